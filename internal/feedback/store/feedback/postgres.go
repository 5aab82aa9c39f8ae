package feedback

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"havenlink/internal/feedback/models"
	id "havenlink/pkg/domain"
	"havenlink/pkg/platform/sentinel"
	"havenlink/pkg/platform/tx"
)

// Postgres persists feedback in PostgreSQL. The response is flattened
// into nullable columns.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) q(ctx context.Context) querier {
	if sqlTx, ok := tx.From(ctx); ok {
		return sqlTx
	}
	return s.db
}

const columns = `id, author_id, subject, content, status,
	responder_id, response_content, responded_at, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, f *models.Feedback) error {
	query := `
		INSERT INTO feedback (` + columns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`
	responderID, responseContent, respondedAt := responseColumns(f)
	res, err := s.q(ctx).ExecContext(ctx, query,
		uuid.UUID(f.ID), uuid.UUID(f.AuthorID), f.Subject, f.Content,
		string(f.Status), responderID, responseContent, respondedAt,
		f.CreatedAt, f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create feedback: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create feedback: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, feedbackID id.FeedbackID) (*models.Feedback, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+columns+` FROM feedback WHERE id = $1`,
		uuid.UUID(feedbackID))
	f, err := scanFeedback(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

func (s *Postgres) ListByAuthor(ctx context.Context, authorID id.IdentityID) ([]*models.Feedback, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT `+columns+` FROM feedback WHERE author_id = $1 ORDER BY created_at DESC`,
		uuid.UUID(authorID))
	if err != nil {
		return nil, fmt.Errorf("list feedback by author: %w", err)
	}
	return collect(rows)
}

func (s *Postgres) ListAll(ctx context.Context) ([]*models.Feedback, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT `+columns+` FROM feedback ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	return collect(rows)
}

// Execute locks the row FOR UPDATE, validates, mutates, writes back.
func (s *Postgres) Execute(ctx context.Context, feedbackID id.FeedbackID,
	validate func(*models.Feedback) error,
	mutate func(*models.Feedback)) (*models.Feedback, error) {

	sqlTx, owned, err := beginOrJoin(ctx, s.db)
	if err != nil {
		return nil, err
	}
	if owned {
		defer func() { _ = sqlTx.Rollback() }()
	}

	row := sqlTx.QueryRowContext(ctx,
		`SELECT `+columns+` FROM feedback WHERE id = $1 FOR UPDATE`,
		uuid.UUID(feedbackID))
	f, err := scanFeedback(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	if err := validate(f); err != nil {
		return nil, err
	}
	mutate(f)

	responderID, responseContent, respondedAt := responseColumns(f)
	_, err = sqlTx.ExecContext(ctx,
		`UPDATE feedback
		 SET status = $2, responder_id = $3, response_content = $4,
		     responded_at = $5, updated_at = $6
		 WHERE id = $1`,
		uuid.UUID(f.ID), string(f.Status), responderID, responseContent,
		respondedAt, f.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update feedback: %w", err)
	}

	if owned {
		if err := sqlTx.Commit(); err != nil {
			return nil, fmt.Errorf("commit feedback update: %w", err)
		}
	}
	return f, nil
}

func beginOrJoin(ctx context.Context, db *sql.DB) (*sql.Tx, bool, error) {
	if sqlTx, ok := tx.From(ctx); ok {
		return sqlTx, false, nil
	}
	sqlTx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin feedback update: %w", err)
	}
	return sqlTx, true, nil
}

func responseColumns(f *models.Feedback) (*uuid.UUID, *string, *time.Time) {
	if f.Response == nil {
		return nil, nil, nil
	}
	responderID := uuid.UUID(f.Response.ResponderID)
	return &responderID, &f.Response.Content, &f.Response.RespondedAt
}

func collect(rows *sql.Rows) ([]*models.Feedback, error) {
	defer rows.Close()

	var out []*models.Feedback
	for rows.Next() {
		f, err := scanFeedback(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feedback: %w", err)
	}
	return out, nil
}

func scanFeedback(scan func(dest ...any) error) (*models.Feedback, error) {
	var f models.Feedback
	var feedbackID, authorID uuid.UUID
	var status string
	var responderID *uuid.UUID
	var responseContent *string
	var respondedAt *time.Time
	err := scan(&feedbackID, &authorID, &f.Subject, &f.Content, &status,
		&responderID, &responseContent, &respondedAt, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan feedback: %w", err)
	}
	f.ID = id.FeedbackID(feedbackID)
	f.AuthorID = id.IdentityID(authorID)
	f.Status = models.Status(status)
	if responderID != nil && responseContent != nil && respondedAt != nil {
		f.Response = &models.Response{
			ResponderID: id.IdentityID(*responderID),
			Content:     *responseContent,
			RespondedAt: *respondedAt,
		}
	}
	return &f, nil
}
