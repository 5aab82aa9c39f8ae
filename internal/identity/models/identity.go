package models

import (
	"strings"
	"time"

	id "havenlink/pkg/domain"
	dErrors "havenlink/pkg/domain-errors"
)

// Identity is the aggregate root for a platform participant.
//
// Invariants:
//   - Role is set once at onboarding and never changes
//   - ProfileStatus transitions only pending -> approved | rejected,
//     and only through the approval workflow (administrator action)
//   - Email is non-empty and unique across identities
//   - CreatedAt is immutable after construction
type Identity struct {
	ID            id.IdentityID `json:"id"`
	Email         string        `json:"email"`
	DisplayName   string        `json:"display_name"`
	Role          id.Role       `json:"role"`
	ProfileStatus ProfileStatus `json:"profile_status"`
	PasswordHash  string        `json:"-"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// NewIdentity constructs an identity in the pending review state.
func NewIdentity(identityID id.IdentityID, email, displayName string, role id.Role, passwordHash string, now time.Time) (*Identity, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	displayName = strings.TrimSpace(displayName)
	if email == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "email cannot be empty")
	}
	if displayName == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "display name cannot be empty")
	}
	if role == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "role is required")
	}
	return &Identity{
		ID:            identityID,
		Email:         email,
		DisplayName:   displayName,
		Role:          role,
		ProfileStatus: ProfileStatusPending,
		PasswordHash:  passwordHash,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// IsApproved reports whether the identity passed administrator review and
// may participate in discovery.
func (i *Identity) IsApproved() bool {
	return i.ProfileStatus == ProfileStatusApproved
}

// IsAdministrator reports whether the identity may review profiles and
// ratify contracts.
func (i *Identity) IsAdministrator() bool {
	return i.Role == id.RoleAdministrator
}

// CanReview checks that the identity is eligible for an approval decision.
// Terminal statuses are final: re-review is rejected rather than silently
// overwritten.
func (i *Identity) CanReview() error {
	if i.ProfileStatus != ProfileStatusPending {
		return dErrors.Newf(dErrors.CodeInvalidState,
			"profile review already settled as %s", i.ProfileStatus)
	}
	return nil
}

// ApplyReview records the administrator's decision. Call CanReview first;
// this applies the transition unconditionally.
func (i *Identity) ApplyReview(decision ReviewDecision, now time.Time) {
	if decision == DecisionApprove {
		i.ProfileStatus = ProfileStatusApproved
	} else {
		i.ProfileStatus = ProfileStatusRejected
	}
	i.UpdatedAt = now
}
