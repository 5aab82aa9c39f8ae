package domain

import dErrors "havenlink/pkg/domain-errors"

// Role is a participant's platform role. Set once at onboarding.
type Role string

const (
	RoleSeeker        Role = "seeker"
	RoleHost          Role = "host"
	RoleAdministrator Role = "administrator"
)

// ParseRole validates a role string at trust boundaries.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleSeeker, RoleHost, RoleAdministrator:
		return Role(s), nil
	default:
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown role %q", s)
	}
}

func (r Role) String() string { return string(r) }

// Counterpart returns the role across the marketplace from r. Only
// meaningful for seeker and host.
func (r Role) Counterpart() Role {
	switch r {
	case RoleSeeker:
		return RoleHost
	case RoleHost:
		return RoleSeeker
	default:
		return ""
	}
}

// IsParticipant reports whether the role takes part in the marketplace
// (seekers and hosts submit profiles, message, and sign contracts;
// administrators do not).
func (r Role) IsParticipant() bool {
	return r == RoleSeeker || r == RoleHost
}
