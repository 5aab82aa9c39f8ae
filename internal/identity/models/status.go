package models

import dErrors "havenlink/pkg/domain-errors"

// ProfileStatus is the approval workflow state attached to an identity.
// The profile record itself carries no status; visibility is gated here.
type ProfileStatus string

const (
	ProfileStatusPending  ProfileStatus = "pending"
	ProfileStatusApproved ProfileStatus = "approved"
	ProfileStatusRejected ProfileStatus = "rejected"
)

// CanTransitionTo reports whether the status may move to target. Approved
// and rejected are terminal.
func (s ProfileStatus) CanTransitionTo(target ProfileStatus) bool {
	return s == ProfileStatusPending &&
		(target == ProfileStatusApproved || target == ProfileStatusRejected)
}

// ParseProfileStatus validates a status string at trust boundaries.
func ParseProfileStatus(s string) (ProfileStatus, error) {
	switch ProfileStatus(s) {
	case ProfileStatusPending, ProfileStatusApproved, ProfileStatusRejected:
		return ProfileStatus(s), nil
	default:
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown profile status %q", s)
	}
}

// ReviewDecision is an administrator's verdict on a pending profile.
type ReviewDecision string

const (
	DecisionApprove ReviewDecision = "approve"
	DecisionReject  ReviewDecision = "reject"
)

// ParseReviewDecision validates a decision string at trust boundaries.
func ParseReviewDecision(s string) (ReviewDecision, error) {
	switch ReviewDecision(s) {
	case DecisionApprove, DecisionReject:
		return ReviewDecision(s), nil
	default:
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown review decision %q", s)
	}
}
