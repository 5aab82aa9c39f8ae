package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	identitymodels "havenlink/internal/identity/models"
	identitystore "havenlink/internal/identity/store/identity"
	notifservice "havenlink/internal/notification/service"
	notifstore "havenlink/internal/notification/store/notification"
	"havenlink/internal/profile/models"
	profilestore "havenlink/internal/profile/store/profile"
	id "havenlink/pkg/domain"
	dErrors "havenlink/pkg/domain-errors"
	"havenlink/pkg/requestcontext"
)

type ProfileServiceSuite struct {
	suite.Suite
	identities    *identitystore.InMemory
	profiles      *profilestore.InMemory
	notifications *notifstore.InMemory
	service       *Service

	seeker *identitymodels.Identity
	host   *identitymodels.Identity
	admin  *identitymodels.Identity
}

func TestProfileServiceSuite(t *testing.T) {
	suite.Run(t, new(ProfileServiceSuite))
}

func (s *ProfileServiceSuite) SetupTest() {
	s.identities = identitystore.NewInMemory()
	s.profiles = profilestore.NewInMemory()
	s.notifications = notifstore.NewInMemory()

	notifier := notifservice.New(s.notifications, s.identities)
	s.service = New(s.identities, s.profiles, notifier)

	s.seeker = s.mustCreateIdentity("seeker@example.com", id.RoleSeeker)
	s.host = s.mustCreateIdentity("host@example.com", id.RoleHost)
	s.admin = s.mustCreateIdentity("admin@example.com", id.RoleAdministrator)
}

func (s *ProfileServiceSuite) mustCreateIdentity(email string, role id.Role) *identitymodels.Identity {
	identity, err := identitymodels.NewIdentity(id.NewIdentityID(), email, email, role, "hash",
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	s.Require().NoError(err)
	s.Require().NoError(s.identities.Create(context.Background(), identity))
	return identity
}

func (s *ProfileServiceSuite) ctxAt(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

func validSeekerProfile() *models.SeekerProfile {
	return &models.SeekerProfile{
		FamilySize:      3,
		HasChildren:     true,
		CurrentLocation: "Przemysl",
		DesiredLocation: "Krakow",
	}
}

func validHostProfile() *models.HostProfile {
	return &models.HostProfile{
		Location:          "Krakow",
		AccommodationType: models.AccommodationPrivateRoom,
		Capacity:          4,
		Amenities:         []string{" wifi ", "kitchen", "wifi"},
		Languages:         []string{"Polish", "english", "POLISH"},
		AvailableFrom:     time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (s *ProfileServiceSuite) TestSubmitSeekerProfile() {
	ctx := s.ctxAt(time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC))

	s.Run("creates profile and notifies administrators", func() {
		profile, err := s.service.SubmitSeekerProfile(ctx, s.seeker.ID, validSeekerProfile())
		s.Require().NoError(err)
		s.Equal(s.seeker.ID, profile.IdentityID)

		notices, err := s.notifications.ListByRecipient(ctx, s.admin.ID)
		s.Require().NoError(err)
		s.Require().Len(notices, 1)
		s.Equal("Profile submitted for review", notices[0].Title)
	})

	s.Run("duplicate submission conflicts", func() {
		_, err := s.service.SubmitSeekerProfile(ctx, s.seeker.ID, validSeekerProfile())
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("host cannot submit a seeker profile", func() {
		_, err := s.service.SubmitSeekerProfile(ctx, s.host.ID, validSeekerProfile())
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("invalid profile is rejected", func() {
		p := validSeekerProfile()
		p.FamilySize = 0
		_, err := s.service.SubmitSeekerProfile(ctx, s.mustCreateIdentity("s2@example.com", id.RoleSeeker).ID, p)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ProfileServiceSuite) TestSubmitHostProfile() {
	ctx := s.ctxAt(time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC))

	s.Run("normalizes amenities and languages", func() {
		profile, err := s.service.SubmitHostProfile(ctx, s.host.ID, validHostProfile())
		s.Require().NoError(err)
		s.Equal([]string{"wifi", "kitchen"}, profile.Amenities)
		s.Equal([]string{"polish", "english"}, profile.Languages)
	})

	s.Run("seeker cannot submit a host profile", func() {
		_, err := s.service.SubmitHostProfile(ctx, s.seeker.ID, validHostProfile())
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *ProfileServiceSuite) TestUpdateProfiles() {
	submittedAt := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	updatedAt := submittedAt.Add(48 * time.Hour)

	s.Run("update preserves creation time", func() {
		_, err := s.service.SubmitSeekerProfile(s.ctxAt(submittedAt), s.seeker.ID, validSeekerProfile())
		s.Require().NoError(err)

		updated := validSeekerProfile()
		updated.DesiredLocation = "Warsaw"
		profile, err := s.service.UpdateSeekerProfile(s.ctxAt(updatedAt), s.seeker.ID, updated)
		s.Require().NoError(err)
		s.Equal("Warsaw", profile.DesiredLocation)
		s.Equal(submittedAt, profile.CreatedAt)
		s.Equal(updatedAt, profile.UpdatedAt)
	})

	s.Run("update without prior submission is not found", func() {
		_, err := s.service.UpdateHostProfile(s.ctxAt(updatedAt), s.host.ID, validHostProfile())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ProfileServiceSuite) TestReviewProfile() {
	ctx := s.ctxAt(time.Date(2026, 1, 3, 9, 0, 0, 0, time.UTC))

	s.Run("approval settles status and notifies the target", func() {
		identity, err := s.service.ReviewProfile(ctx, s.admin.ID, s.seeker.ID, identitymodels.DecisionApprove)
		s.Require().NoError(err)
		s.Equal(identitymodels.ProfileStatusApproved, identity.ProfileStatus)

		notices, err := s.notifications.ListByRecipient(ctx, s.seeker.ID)
		s.Require().NoError(err)
		s.Require().Len(notices, 1)
		s.Equal("Profile approved", notices[0].Title)
	})

	s.Run("re-review of a settled profile is rejected", func() {
		_, err := s.service.ReviewProfile(ctx, s.admin.ID, s.seeker.ID, identitymodels.DecisionReject)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))

		stored, err := s.identities.FindByID(ctx, s.seeker.ID)
		s.Require().NoError(err)
		s.Equal(identitymodels.ProfileStatusApproved, stored.ProfileStatus)
	})

	s.Run("rejection notifies the target", func() {
		identity, err := s.service.ReviewProfile(ctx, s.admin.ID, s.host.ID, identitymodels.DecisionReject)
		s.Require().NoError(err)
		s.Equal(identitymodels.ProfileStatusRejected, identity.ProfileStatus)

		notices, err := s.notifications.ListByRecipient(ctx, s.host.ID)
		s.Require().NoError(err)
		s.Require().Len(notices, 1)
		s.Equal("Profile rejected", notices[0].Title)
	})

	s.Run("non-administrators cannot review", func() {
		target := s.mustCreateIdentity("s3@example.com", id.RoleSeeker)
		_, err := s.service.ReviewProfile(ctx, s.seeker.ID, target.ID, identitymodels.DecisionApprove)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("administrator identities are not reviewable", func() {
		_, err := s.service.ReviewProfile(ctx, s.admin.ID, s.admin.ID, identitymodels.DecisionApprove)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown target is not found", func() {
		_, err := s.service.ReviewProfile(ctx, s.admin.ID, id.NewIdentityID(), identitymodels.DecisionApprove)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ProfileServiceSuite) TestListPendingReviews() {
	ctx := s.ctxAt(time.Date(2026, 1, 3, 9, 0, 0, 0, time.UTC))

	s.Run("queue contains both roles with submitted profiles attached", func() {
		_, err := s.service.SubmitSeekerProfile(ctx, s.seeker.ID, validSeekerProfile())
		s.Require().NoError(err)

		queue, err := s.service.ListPendingReviews(ctx, s.admin.ID)
		s.Require().NoError(err)
		s.Require().Len(queue, 2)

		byID := make(map[id.IdentityID]PendingReview, len(queue))
		for _, review := range queue {
			byID[review.Identity.ID] = review
		}
		s.Require().Contains(byID, s.seeker.ID)
		s.NotNil(byID[s.seeker.ID].Seeker)
		s.Require().Contains(byID, s.host.ID)
		s.Nil(byID[s.host.ID].Host)
	})

	s.Run("settled identities leave the queue", func() {
		_, err := s.service.ReviewProfile(ctx, s.admin.ID, s.host.ID, identitymodels.DecisionApprove)
		s.Require().NoError(err)

		queue, err := s.service.ListPendingReviews(ctx, s.admin.ID)
		s.Require().NoError(err)
		s.Require().Len(queue, 1)
		s.Equal(s.seeker.ID, queue[0].Identity.ID)
	})

	s.Run("non-administrators cannot list the queue", func() {
		_, err := s.service.ListPendingReviews(ctx, s.seeker.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}
