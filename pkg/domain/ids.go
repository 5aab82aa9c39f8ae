// Package domain holds typed identifiers and closed domain primitives
// shared across modules. Typed UUIDs make cross-entity assignment a
// compile error instead of a data corruption bug.
package domain

import (
	"github.com/google/uuid"

	dErrors "havenlink/pkg/domain-errors"
)

// IdentityID identifies a platform participant.
type IdentityID uuid.UUID

// ContractID identifies a housing agreement.
type ContractID uuid.UUID

// MessageID identifies a point-to-point message.
type MessageID uuid.UUID

// NotificationID identifies an outbox notice.
type NotificationID uuid.UUID

// FeedbackID identifies a feedback report.
type FeedbackID uuid.UUID

// NewIdentityID returns a fresh random identity ID.
func NewIdentityID() IdentityID { return IdentityID(uuid.New()) }

// NewContractID returns a fresh random contract ID.
func NewContractID() ContractID { return ContractID(uuid.New()) }

// NewMessageID returns a fresh random message ID.
func NewMessageID() MessageID { return MessageID(uuid.New()) }

// NewNotificationID returns a fresh random notification ID.
func NewNotificationID() NotificationID { return NotificationID(uuid.New()) }

// NewFeedbackID returns a fresh random feedback ID.
func NewFeedbackID() FeedbackID { return FeedbackID(uuid.New()) }

func (id IdentityID) String() string     { return uuid.UUID(id).String() }
func (id ContractID) String() string     { return uuid.UUID(id).String() }
func (id MessageID) String() string      { return uuid.UUID(id).String() }
func (id NotificationID) String() string { return uuid.UUID(id).String() }
func (id FeedbackID) String() string     { return uuid.UUID(id).String() }

func (id IdentityID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id ContractID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id MessageID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id NotificationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id FeedbackID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }

// Defined types do not inherit uuid.UUID's TextMarshaler, so each ID
// implements it explicitly to keep the JSON form a canonical UUID string.

func (id IdentityID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }
func (id ContractID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }
func (id MessageID) MarshalText() ([]byte, error)      { return uuid.UUID(id).MarshalText() }
func (id NotificationID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id FeedbackID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }

func (id *IdentityID) UnmarshalText(b []byte) error     { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ContractID) UnmarshalText(b []byte) error     { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *MessageID) UnmarshalText(b []byte) error      { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *NotificationID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *FeedbackID) UnmarshalText(b []byte) error     { return (*uuid.UUID)(id).UnmarshalText(b) }

// parseUUID enforces the parsing invariant at trust boundaries: IDs must
// be valid, non-empty, non-nil UUIDs.
func parseUUID(s, kind string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s id is required", kind)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "invalid %s id", kind)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s id cannot be nil", kind)
	}
	return u, nil
}

// ParseIdentityID parses and validates an identity ID string.
func ParseIdentityID(s string) (IdentityID, error) {
	u, err := parseUUID(s, "identity")
	return IdentityID(u), err
}

// ParseContractID parses and validates a contract ID string.
func ParseContractID(s string) (ContractID, error) {
	u, err := parseUUID(s, "contract")
	return ContractID(u), err
}

// ParseMessageID parses and validates a message ID string.
func ParseMessageID(s string) (MessageID, error) {
	u, err := parseUUID(s, "message")
	return MessageID(u), err
}

// ParseNotificationID parses and validates a notification ID string.
func ParseNotificationID(s string) (NotificationID, error) {
	u, err := parseUUID(s, "notification")
	return NotificationID(u), err
}

// ParseFeedbackID parses and validates a feedback ID string.
func ParseFeedbackID(s string) (FeedbackID, error) {
	u, err := parseUUID(s, "feedback")
	return FeedbackID(u), err
}
