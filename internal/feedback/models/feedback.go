// Package models defines platform feedback and its triage lifecycle.
package models

import (
	"strings"
	"time"

	id "havenlink/pkg/domain"
	dErrors "havenlink/pkg/domain-errors"
)

// Status is the triage state of a feedback item.
type Status string

const (
	StatusOpen      Status = "open"
	StatusInReview  Status = "in_review"
	StatusResolved  Status = "resolved"
	StatusDismissed Status = "dismissed"
)

// ParseStatus validates a caller-supplied triage status.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusOpen, StatusInReview, StatusResolved, StatusDismissed:
		return Status(s), nil
	default:
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown feedback status: %s", s)
	}
}

// IsTerminal reports whether the item has left triage.
func (s Status) IsTerminal() bool {
	return s == StatusResolved || s == StatusDismissed
}

// Response is an administrator's reply on a feedback item.
type Response struct {
	ResponderID id.IdentityID `json:"responder_id"`
	Content     string        `json:"content"`
	RespondedAt time.Time     `json:"responded_at"`
}

const (
	maxSubjectLength = 200
	maxContentLength = 4000
)

// Feedback is an item submitted by a participant for administrator triage.
type Feedback struct {
	ID        id.FeedbackID `json:"id"`
	AuthorID  id.IdentityID `json:"author_id"`
	Subject   string        `json:"subject"`
	Content   string        `json:"content"`
	Status    Status        `json:"status"`
	Response  *Response     `json:"response,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// NewFeedback validates and constructs an open feedback item.
func NewFeedback(feedbackID id.FeedbackID, authorID id.IdentityID, subject, content string, now time.Time) (*Feedback, error) {
	subject = strings.TrimSpace(subject)
	content = strings.TrimSpace(content)
	if subject == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "feedback subject must not be empty")
	}
	if len(subject) > maxSubjectLength {
		return nil, dErrors.Newf(dErrors.CodeValidation, "feedback subject must not exceed %d characters", maxSubjectLength)
	}
	if content == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "feedback content must not be empty")
	}
	if len(content) > maxContentLength {
		return nil, dErrors.Newf(dErrors.CodeValidation, "feedback content must not exceed %d characters", maxContentLength)
	}
	return &Feedback{
		ID:        feedbackID,
		AuthorID:  authorID,
		Subject:   subject,
		Content:   content,
		Status:    StatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// CanRespond validates a triage decision against the current state.
func (f *Feedback) CanRespond(target Status) error {
	if target == StatusOpen {
		return dErrors.New(dErrors.CodeInvalidInput, "feedback cannot be moved back to open")
	}
	if f.Status.IsTerminal() {
		return dErrors.Newf(dErrors.CodeInvalidState, "feedback is already %s", f.Status)
	}
	return nil
}

// ApplyResponse records the administrator's reply and the new status.
func (f *Feedback) ApplyResponse(responderID id.IdentityID, content string, target Status, now time.Time) {
	f.Status = target
	f.Response = &Response{
		ResponderID: responderID,
		Content:     content,
		RespondedAt: now,
	}
	f.UpdatedAt = now
}
