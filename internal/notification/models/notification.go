package models

import (
	"strings"
	"time"

	id "havenlink/pkg/domain"
	dErrors "havenlink/pkg/domain-errors"
)

// Category groups notices by the workflow that emitted them.
type Category string

const (
	CategoryProfile  Category = "profile"
	CategoryContract Category = "contract"
	CategoryMessage  Category = "message"
	CategoryFeedback Category = "feedback"
)

// Notification is an append-only notice scoped to one recipient. Only the
// read flag mutates after creation, and only by the recipient.
type Notification struct {
	ID          id.NotificationID `json:"id"`
	RecipientID id.IdentityID     `json:"recipient_id"`
	Title       string            `json:"title"`
	Content     string            `json:"content"`
	Category    Category          `json:"category"`
	Read        bool              `json:"read"`
	CreatedAt   time.Time         `json:"created_at"`
	ReadAt      *time.Time        `json:"read_at,omitempty"`
}

// NewNotification constructs an unread notification.
func NewNotification(notificationID id.NotificationID, recipientID id.IdentityID, title, content string, category Category, now time.Time) (*Notification, error) {
	if recipientID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "notification recipient is required")
	}
	if strings.TrimSpace(title) == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "notification title cannot be empty")
	}
	return &Notification{
		ID:          notificationID,
		RecipientID: recipientID,
		Title:       title,
		Content:     content,
		Category:    category,
		CreatedAt:   now,
	}, nil
}

// ApplyRead flips the read flag. Marking an already-read notification is a
// no-op preserving the original ReadAt, so the unread->read transition
// happens exactly once.
func (n *Notification) ApplyRead(now time.Time) {
	if n.Read {
		return
	}
	n.Read = true
	n.ReadAt = &now
}
