// Package service implements the discovery view: approved identities
// browsing the approved counterpart population.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	identitymodels "havenlink/internal/identity/models"
	profilemodels "havenlink/internal/profile/models"
	id "havenlink/pkg/domain"
	dErrors "havenlink/pkg/domain-errors"
	"havenlink/pkg/platform/sentinel"
)

// IdentityStore resolves the requester and the approved population.
type IdentityStore interface {
	FindByID(ctx context.Context, identityID id.IdentityID) (*identitymodels.Identity, error)
	ListByRoleAndStatus(ctx context.Context, role id.Role, status identitymodels.ProfileStatus) ([]*identitymodels.Identity, error)
}

// ProfileStore loads the profile details shown in listings.
type ProfileStore interface {
	FindHostsByIdentityIDs(ctx context.Context, ids []id.IdentityID) (map[id.IdentityID]*profilemodels.HostProfile, error)
	FindSeekersByIdentityIDs(ctx context.Context, ids []id.IdentityID) (map[id.IdentityID]*profilemodels.SeekerProfile, error)
}

// HostListing pairs an approved host identity with its profile.
type HostListing struct {
	Identity *identitymodels.Identity   `json:"identity"`
	Profile  *profilemodels.HostProfile `json:"profile"`
}

// SeekerListing pairs an approved seeker identity with its profile.
type SeekerListing struct {
	Identity *identitymodels.Identity     `json:"identity"`
	Profile  *profilemodels.SeekerProfile `json:"profile"`
}

// HostFilter narrows the host listing. Zero values match everything.
type HostFilter struct {
	Location          string
	AccommodationType profilemodels.AccommodationType
	MinCapacity       int
}

// SeekerFilter narrows the seeker listing. Zero values match everything.
type SeekerFilter struct {
	DesiredLocation string
}

// Service implements the discovery view.
type Service struct {
	identities IdentityStore
	profiles   ProfileStore
	logger     *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(identities IdentityStore, profiles ProfileStore, opts ...Option) *Service {
	s := &Service{
		identities: identities,
		profiles:   profiles,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListAvailableHosts returns approved hosts with profiles, visible only
// to approved requesters.
func (s *Service) ListAvailableHosts(ctx context.Context, requesterID id.IdentityID, filter HostFilter) ([]*HostListing, error) {
	if err := s.requireApproved(ctx, requesterID); err != nil {
		return nil, err
	}

	hosts, err := s.identities.ListByRoleAndStatus(ctx, id.RoleHost, identitymodels.ProfileStatusApproved)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list hosts")
	}
	ids := identityIDs(hosts)
	profiles, err := s.profiles.FindHostsByIdentityIDs(ctx, ids)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load host profiles")
	}

	listings := make([]*HostListing, 0, len(hosts))
	for _, identity := range hosts {
		profile, ok := profiles[identity.ID]
		if !ok {
			// Approved without a stored profile should not happen; skip
			// rather than fail the whole listing.
			s.logger.WarnContext(ctx, "approved host missing profile", "identity_id", identity.ID)
			continue
		}
		if !matchHost(profile, filter) {
			continue
		}
		listings = append(listings, &HostListing{Identity: identity, Profile: profile})
	}
	return listings, nil
}

// ListAvailableSeekers returns approved seekers with profiles, visible
// only to approved requesters.
func (s *Service) ListAvailableSeekers(ctx context.Context, requesterID id.IdentityID, filter SeekerFilter) ([]*SeekerListing, error) {
	if err := s.requireApproved(ctx, requesterID); err != nil {
		return nil, err
	}

	seekers, err := s.identities.ListByRoleAndStatus(ctx, id.RoleSeeker, identitymodels.ProfileStatusApproved)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list seekers")
	}
	ids := identityIDs(seekers)
	profiles, err := s.profiles.FindSeekersByIdentityIDs(ctx, ids)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load seeker profiles")
	}

	listings := make([]*SeekerListing, 0, len(seekers))
	for _, identity := range seekers {
		profile, ok := profiles[identity.ID]
		if !ok {
			s.logger.WarnContext(ctx, "approved seeker missing profile", "identity_id", identity.ID)
			continue
		}
		if !matchSeeker(profile, filter) {
			continue
		}
		listings = append(listings, &SeekerListing{Identity: identity, Profile: profile})
	}
	return listings, nil
}

// requireApproved rejects pending, rejected, and unknown requesters.
// Administrators browse freely.
func (s *Service) requireApproved(ctx context.Context, requesterID id.IdentityID) error {
	requester, err := s.identities.FindByID(ctx, requesterID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "identity not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load identity")
	}
	if requester.IsAdministrator() {
		return nil
	}
	if !requester.IsApproved() {
		return dErrors.New(dErrors.CodeForbidden, "profile must be approved before browsing")
	}
	return nil
}

func matchHost(p *profilemodels.HostProfile, f HostFilter) bool {
	if f.Location != "" && !strings.EqualFold(p.Location, f.Location) {
		return false
	}
	if f.AccommodationType != "" && p.AccommodationType != f.AccommodationType {
		return false
	}
	if f.MinCapacity > 0 && p.Capacity < f.MinCapacity {
		return false
	}
	return true
}

func matchSeeker(p *profilemodels.SeekerProfile, f SeekerFilter) bool {
	return f.DesiredLocation == "" || strings.EqualFold(p.DesiredLocation, f.DesiredLocation)
}

func identityIDs(identities []*identitymodels.Identity) []id.IdentityID {
	out := make([]id.IdentityID, 0, len(identities))
	for _, identity := range identities {
		out = append(out, identity.ID)
	}
	return out
}
