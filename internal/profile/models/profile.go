package models

import (
	"strings"
	"time"

	id "havenlink/pkg/domain"
	dErrors "havenlink/pkg/domain-errors"
	pstrings "havenlink/pkg/platform/strings"
)

// AccommodationType is a closed enumeration so discovery filters stay
// reliable. Free text belongs in Description and SpecialRequirements.
type AccommodationType string

const (
	AccommodationPrivateRoom AccommodationType = "private_room"
	AccommodationSharedRoom  AccommodationType = "shared_room"
	AccommodationEntirePlace AccommodationType = "entire_place"
)

// ParseAccommodationType validates an accommodation type string.
func ParseAccommodationType(s string) (AccommodationType, error) {
	switch AccommodationType(s) {
	case AccommodationPrivateRoom, AccommodationSharedRoom, AccommodationEntirePlace:
		return AccommodationType(s), nil
	default:
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown accommodation type %q", s)
	}
}

// SeekerProfile describes a displaced person's housing need. One per
// seeker identity, updatable in place by its owner only.
type SeekerProfile struct {
	IdentityID          id.IdentityID `json:"identity_id"`
	FamilySize          int           `json:"family_size"`
	HasChildren         bool          `json:"has_children"`
	HasPets             bool          `json:"has_pets"`
	CurrentLocation     string        `json:"current_location"`
	DesiredLocation     string        `json:"desired_location"`
	SpecialRequirements string        `json:"special_requirements,omitempty"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`
}

// Validate enforces the required fields for submission.
func (p *SeekerProfile) Validate() error {
	if p.FamilySize < 1 {
		return dErrors.New(dErrors.CodeValidation, "family size must be at least 1")
	}
	if strings.TrimSpace(p.DesiredLocation) == "" {
		return dErrors.New(dErrors.CodeValidation, "desired location is required")
	}
	return nil
}

// HostProfile describes a volunteer host's accommodation offering. One per
// host identity, updatable in place by its owner only.
type HostProfile struct {
	IdentityID        id.IdentityID     `json:"identity_id"`
	Location          string            `json:"location"`
	AccommodationType AccommodationType `json:"accommodation_type"`
	Capacity          int               `json:"capacity"`
	Amenities         []string          `json:"amenities,omitempty"`
	Languages         []string          `json:"languages,omitempty"`
	AvailableFrom     time.Time         `json:"available_from"`
	Description       string            `json:"description,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// Normalize trims and dedupes the list fields before validation.
func (p *HostProfile) Normalize() {
	p.Location = strings.TrimSpace(p.Location)
	p.Amenities = pstrings.DedupeAndTrim(p.Amenities)
	p.Languages = pstrings.DedupeAndTrimLower(p.Languages)
}

// Validate enforces the required fields for submission.
func (p *HostProfile) Validate() error {
	if p.Location == "" {
		return dErrors.New(dErrors.CodeValidation, "location is required")
	}
	if _, err := ParseAccommodationType(string(p.AccommodationType)); err != nil {
		return dErrors.New(dErrors.CodeValidation, "accommodation type is required")
	}
	if p.Capacity < 1 {
		return dErrors.New(dErrors.CodeValidation, "capacity must be at least 1")
	}
	return nil
}
