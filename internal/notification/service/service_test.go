package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	identitymodels "havenlink/internal/identity/models"
	identitystore "havenlink/internal/identity/store/identity"
	"havenlink/internal/notification/models"
	notifstore "havenlink/internal/notification/store/notification"
	"havenlink/internal/pubsub"
	id "havenlink/pkg/domain"
	dErrors "havenlink/pkg/domain-errors"
	"havenlink/pkg/requestcontext"
)

type NotificationServiceSuite struct {
	suite.Suite
	identities *identitystore.InMemory
	store      *notifstore.InMemory
	broker     *pubsub.MemoryBroker
	service    *Service

	recipient *identitymodels.Identity
}

func TestNotificationServiceSuite(t *testing.T) {
	suite.Run(t, new(NotificationServiceSuite))
}

func (s *NotificationServiceSuite) SetupTest() {
	s.identities = identitystore.NewInMemory()
	s.store = notifstore.NewInMemory()
	s.broker = pubsub.NewMemoryBroker()
	s.service = New(s.store, s.identities, WithBroker(s.broker))

	s.recipient = s.mustCreateIdentity("user@example.com", id.RoleSeeker)
}

func (s *NotificationServiceSuite) mustCreateIdentity(email string, role id.Role) *identitymodels.Identity {
	identity, err := identitymodels.NewIdentity(id.NewIdentityID(), email, email, role, "hash",
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	s.Require().NoError(err)
	s.Require().NoError(s.identities.Create(context.Background(), identity))
	return identity
}

func (s *NotificationServiceSuite) ctxAt(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

func (s *NotificationServiceSuite) TestNotify() {
	base := time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)

	s.Run("notices list newest first with an unread badge", func() {
		s.Require().NoError(s.service.Notify(s.ctxAt(base), s.recipient.ID,
			"Profile submitted for review", "Your profile is in the queue.", models.CategoryProfile))
		s.Require().NoError(s.service.Notify(s.ctxAt(base.Add(time.Hour)), s.recipient.ID,
			"Profile approved", "You can now browse hosts.", models.CategoryProfile))

		notices, err := s.service.List(context.Background(), s.recipient.ID)
		s.Require().NoError(err)
		s.Require().Len(notices, 2)
		s.Equal("Profile approved", notices[0].Title)
		s.Equal("Profile submitted for review", notices[1].Title)

		count, err := s.service.UnreadCount(context.Background(), s.recipient.ID)
		s.Require().NoError(err)
		s.Equal(2, count)
	})

	s.Run("new notices are pushed to the recipient's session", func() {
		ch, cancel, err := s.broker.Subscribe(context.Background(), pubsub.Topic(s.recipient.ID))
		s.Require().NoError(err)
		defer cancel()

		s.Require().NoError(s.service.Notify(s.ctxAt(base), s.recipient.ID,
			"New message", "You have a new message.", models.CategoryMessage))

		select {
		case event := <-ch:
			s.Equal(pubsub.EventNotificationSent, event.Kind)
		default:
			s.Fail("expected a live event on the recipient topic")
		}
	})

	s.Run("a blank title is rejected", func() {
		err := s.service.Notify(s.ctxAt(base), s.recipient.ID, "  ", "content", models.CategoryProfile)
		s.Error(err)
	})
}

func (s *NotificationServiceSuite) TestNotifyAdministrators() {
	base := time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)

	s.Run("an empty pool is not an error", func() {
		s.Require().NoError(s.service.NotifyAdministrators(s.ctxAt(base),
			"Contract awaiting ratification", "A contract is fully signed.", models.CategoryContract))
	})

	s.Run("every administrator gets their own notice", func() {
		first := s.mustCreateIdentity("admin1@example.com", id.RoleAdministrator)
		second := s.mustCreateIdentity("admin2@example.com", id.RoleAdministrator)

		s.Require().NoError(s.service.NotifyAdministrators(s.ctxAt(base),
			"New feedback submitted", "A participant filed feedback.", models.CategoryFeedback))

		for _, admin := range []*identitymodels.Identity{first, second} {
			notices, err := s.service.List(context.Background(), admin.ID)
			s.Require().NoError(err)
			s.Require().Len(notices, 1)
			s.Equal("New feedback submitted", notices[0].Title)
		}

		notices, err := s.service.List(context.Background(), s.recipient.ID)
		s.Require().NoError(err)
		s.Empty(notices)
	})
}

func (s *NotificationServiceSuite) TestMarkRead() {
	base := time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)

	s.Run("marking read stamps ReadAt once", func() {
		s.Require().NoError(s.service.Notify(s.ctxAt(base), s.recipient.ID,
			"Profile approved", "content", models.CategoryProfile))
		notices, err := s.service.List(context.Background(), s.recipient.ID)
		s.Require().NoError(err)
		s.Require().Len(notices, 1)

		readAt := base.Add(time.Minute)
		read, err := s.service.MarkRead(s.ctxAt(readAt), s.recipient.ID, notices[0].ID)
		s.Require().NoError(err)
		s.True(read.Read)
		s.Require().NotNil(read.ReadAt)
		s.Equal(readAt, *read.ReadAt)

		again, err := s.service.MarkRead(s.ctxAt(readAt.Add(time.Hour)), s.recipient.ID, notices[0].ID)
		s.Require().NoError(err)
		s.Equal(readAt, *again.ReadAt)

		count, err := s.service.UnreadCount(context.Background(), s.recipient.ID)
		s.Require().NoError(err)
		s.Equal(0, count)
	})

	s.Run("only the recipient may mark a notice", func() {
		other := s.mustCreateIdentity("other@example.com", id.RoleHost)
		s.Require().NoError(s.service.Notify(s.ctxAt(base), other.ID,
			"New message", "content", models.CategoryMessage))
		notices, err := s.service.List(context.Background(), other.ID)
		s.Require().NoError(err)
		s.Require().Len(notices, 1)

		_, err = s.service.MarkRead(s.ctxAt(base), s.recipient.ID, notices[0].ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("unknown notices are not found", func() {
		_, err := s.service.MarkRead(s.ctxAt(base), s.recipient.ID, id.NewNotificationID())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
