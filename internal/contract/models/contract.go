package models

import (
	"strings"
	"time"

	id "havenlink/pkg/domain"
	dErrors "havenlink/pkg/domain-errors"
)

// Status is the contract workflow state. Transitions are strictly
// forward: proposed -> completed | cancelled. The dual-signature stage is
// carried by the two signature timestamps, not by the status field; the
// ratification guard checks both timestamps explicitly.
type Status string

const (
	StatusProposed  Status = "proposed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// IsTerminal reports whether the status admits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Duration is a closed enumeration of stay lengths so the end date can be
// derived deterministically at proposal time.
type Duration string

const (
	DurationOneMonth     Duration = "one_month"
	DurationThreeMonths  Duration = "three_months"
	DurationSixMonths    Duration = "six_months"
	DurationTwelveMonths Duration = "twelve_months"
)

// Months returns the calendar-month offset for the duration bucket.
func (d Duration) Months() int {
	switch d {
	case DurationOneMonth:
		return 1
	case DurationThreeMonths:
		return 3
	case DurationSixMonths:
		return 6
	case DurationTwelveMonths:
		return 12
	default:
		return 0
	}
}

// ParseDuration validates a duration string at trust boundaries.
func ParseDuration(s string) (Duration, error) {
	switch Duration(s) {
	case DurationOneMonth, DurationThreeMonths, DurationSixMonths, DurationTwelveMonths:
		return Duration(s), nil
	default:
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown duration %q", s)
	}
}

// Contract is the aggregate root for a housing agreement.
//
// Invariants:
//   - Names exactly one seeker and one host
//   - Signature timestamps are monotonic: once set, never cleared
//   - AdminApprovedAt is set exactly when Status becomes completed
//   - Ratification requires both signatures already present
//   - EndDate is derived once at proposal and never recomputed
type Contract struct {
	ID              id.ContractID  `json:"id"`
	SeekerID        id.IdentityID  `json:"seeker_id"`
	HostID          id.IdentityID  `json:"host_id"`
	Status          Status         `json:"status"`
	Terms           string         `json:"terms"`
	Duration        Duration       `json:"duration"`
	StartDate       time.Time      `json:"start_date"`
	EndDate         time.Time      `json:"end_date"`
	SeekerSignedAt  *time.Time     `json:"seeker_signed_at,omitempty"`
	HostSignedAt    *time.Time     `json:"host_signed_at,omitempty"`
	AdminApprovedAt *time.Time     `json:"admin_approved_at,omitempty"`
	AdminApprovedBy *id.IdentityID `json:"admin_approved_by,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// NewContract constructs a proposal. The end date is computed here, once,
// from the start date and the duration bucket.
func NewContract(contractID id.ContractID, seekerID, hostID id.IdentityID, terms string, duration Duration, startDate time.Time, now time.Time) (*Contract, error) {
	if seekerID.IsNil() || hostID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "contract must name a seeker and a host")
	}
	if seekerID == hostID {
		return nil, dErrors.New(dErrors.CodeValidation, "seeker and host must be different identities")
	}
	if strings.TrimSpace(terms) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "terms are required")
	}
	if duration.Months() == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "duration is required")
	}
	if startDate.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "start date is required")
	}
	return &Contract{
		ID:        contractID,
		SeekerID:  seekerID,
		HostID:    hostID,
		Status:    StatusProposed,
		Terms:     terms,
		Duration:  duration,
		StartDate: startDate,
		EndDate:   startDate.AddDate(0, duration.Months(), 0),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// PartyRole returns the contract-side role of the identity, or "" if the
// identity is not a named party.
func (c *Contract) PartyRole(identityID id.IdentityID) id.Role {
	switch identityID {
	case c.SeekerID:
		return id.RoleSeeker
	case c.HostID:
		return id.RoleHost
	default:
		return ""
	}
}

// IsParty reports whether the identity is one of the two named parties.
func (c *Contract) IsParty(identityID id.IdentityID) bool {
	return c.PartyRole(identityID) != ""
}

// BothSigned reports whether the contract is ratification-eligible. This
// is the implicit both-signed state: detected from the two timestamps,
// never from the status field.
func (c *Contract) BothSigned() bool {
	return c.SeekerSignedAt != nil && c.HostSignedAt != nil
}

// BothSignedAt returns the instant the second signature landed; zero time
// if the contract is not yet fully signed.
func (c *Contract) BothSignedAt() time.Time {
	if !c.BothSigned() {
		return time.Time{}
	}
	if c.SeekerSignedAt.After(*c.HostSignedAt) {
		return *c.SeekerSignedAt
	}
	return *c.HostSignedAt
}

// CanSign checks the contract accepts a signature from the given party
// role. Re-signing is permitted (it becomes a no-op in ApplySignature).
func (c *Contract) CanSign(party id.Role) error {
	if party != id.RoleSeeker && party != id.RoleHost {
		return dErrors.New(dErrors.CodeForbidden, "only named parties may sign")
	}
	if c.Status.IsTerminal() {
		return dErrors.Newf(dErrors.CodeInvalidState, "contract is already %s", c.Status)
	}
	return nil
}

// ApplySignature records the party's signature timestamp if unset.
// Returns true if a new signature was recorded; re-signing by the same
// party preserves the original timestamp and returns false.
func (c *Contract) ApplySignature(party id.Role, now time.Time) bool {
	switch party {
	case id.RoleSeeker:
		if c.SeekerSignedAt != nil {
			return false
		}
		c.SeekerSignedAt = &now
	case id.RoleHost:
		if c.HostSignedAt != nil {
			return false
		}
		c.HostSignedAt = &now
	default:
		return false
	}
	c.UpdatedAt = now
	return true
}

// CanApprove checks the ratification guard: contract still proposed and
// both signatures present.
func (c *Contract) CanApprove() error {
	if c.Status.IsTerminal() {
		return dErrors.Newf(dErrors.CodeInvalidState, "contract is already %s", c.Status)
	}
	if !c.BothSigned() {
		return dErrors.New(dErrors.CodeInvalidState, "contract requires both signatures before ratification")
	}
	return nil
}

// ApplyApproval ratifies the contract. Call CanApprove first.
func (c *Contract) ApplyApproval(adminID id.IdentityID, now time.Time) {
	c.Status = StatusCompleted
	c.AdminApprovedAt = &now
	c.AdminApprovedBy = &adminID
	c.UpdatedAt = now
}

// CanCancel checks the contract has not reached a terminal state.
func (c *Contract) CanCancel() error {
	if c.Status.IsTerminal() {
		return dErrors.Newf(dErrors.CodeInvalidState, "contract is already %s", c.Status)
	}
	return nil
}

// ApplyCancellation abandons the proposal. Call CanCancel first.
func (c *Contract) ApplyCancellation(now time.Time) {
	c.Status = StatusCancelled
	c.UpdatedAt = now
}
