package logger

import (
	"log/slog"
	"os"
)

// New returns the process-wide structured logger. Services log through
// slog with event/request_id attributes so log pipelines can index them.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}
