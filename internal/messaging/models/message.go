// Package models defines direct messages and their delivery lifecycle.
package models

import (
	"strings"
	"time"

	id "havenlink/pkg/domain"
	dErrors "havenlink/pkg/domain-errors"
)

// DeliveryStatus tracks how far a message has travelled toward its
// recipient. Transitions only move forward: sent -> delivered -> read.
type DeliveryStatus string

const (
	StatusSent      DeliveryStatus = "sent"
	StatusDelivered DeliveryStatus = "delivered"
	StatusRead      DeliveryStatus = "read"
)

func (s DeliveryStatus) rank() int {
	switch s {
	case StatusSent:
		return 0
	case StatusDelivered:
		return 1
	case StatusRead:
		return 2
	default:
		return -1
	}
}

// CanAdvanceTo reports whether the status may move to the target.
// Equal or earlier targets are rejected; delivery never regresses.
func (s DeliveryStatus) CanAdvanceTo(target DeliveryStatus) bool {
	return target.rank() > s.rank()
}

const maxContentLength = 4000

// Message is a direct message between two identities.
type Message struct {
	ID          id.MessageID   `json:"id"`
	SenderID    id.IdentityID  `json:"sender_id"`
	RecipientID id.IdentityID  `json:"recipient_id"`
	Content     string         `json:"content"`
	Status      DeliveryStatus `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	ReadAt      *time.Time     `json:"read_at,omitempty"`
}

// NewMessage validates and constructs a message in the sent state.
func NewMessage(messageID id.MessageID, senderID, recipientID id.IdentityID, content string, now time.Time) (*Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "message content must not be empty")
	}
	if len(content) > maxContentLength {
		return nil, dErrors.Newf(dErrors.CodeValidation, "message content must not exceed %d characters", maxContentLength)
	}
	if senderID == recipientID {
		return nil, dErrors.New(dErrors.CodeValidation, "sender and recipient must differ")
	}
	return &Message{
		ID:          messageID,
		SenderID:    senderID,
		RecipientID: recipientID,
		Content:     content,
		Status:      StatusSent,
		CreatedAt:   now,
	}, nil
}

// CanAdvance validates a delivery transition request.
func (m *Message) CanAdvance(target DeliveryStatus) error {
	if target.rank() < 0 {
		return dErrors.Newf(dErrors.CodeInvalidInput, "unknown delivery status: %s", target)
	}
	if !m.Status.CanAdvanceTo(target) {
		return dErrors.Newf(dErrors.CodeInvalidState, "message is already %s", m.Status)
	}
	return nil
}

// ApplyAdvance moves the message to the target status. Reaching the read
// state stamps ReadAt once; it is never overwritten.
func (m *Message) ApplyAdvance(target DeliveryStatus, now time.Time) {
	m.Status = target
	if target == StatusRead && m.ReadAt == nil {
		at := now
		m.ReadAt = &at
	}
}

// ConversationSummary describes one counterpart thread in an inbox view.
type ConversationSummary struct {
	CounterpartID id.IdentityID `json:"counterpart_id"`
	LastMessage   *Message      `json:"last_message"`
	UnreadCount   int           `json:"unread_count"`
}
