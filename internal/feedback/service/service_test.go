package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"havenlink/internal/feedback/models"
	feedbackstore "havenlink/internal/feedback/store/feedback"
	identitymodels "havenlink/internal/identity/models"
	identitystore "havenlink/internal/identity/store/identity"
	notifservice "havenlink/internal/notification/service"
	notifstore "havenlink/internal/notification/store/notification"
	id "havenlink/pkg/domain"
	dErrors "havenlink/pkg/domain-errors"
	"havenlink/pkg/requestcontext"
)

type FeedbackServiceSuite struct {
	suite.Suite
	identities    *identitystore.InMemory
	feedback      *feedbackstore.InMemory
	notifications *notifstore.InMemory
	service       *Service

	author *identitymodels.Identity
	admin  *identitymodels.Identity
}

func TestFeedbackServiceSuite(t *testing.T) {
	suite.Run(t, new(FeedbackServiceSuite))
}

func (s *FeedbackServiceSuite) SetupTest() {
	s.identities = identitystore.NewInMemory()
	s.feedback = feedbackstore.NewInMemory()
	s.notifications = notifstore.NewInMemory()

	notifier := notifservice.New(s.notifications, s.identities)
	s.service = New(s.feedback, s.identities, notifier)

	s.author = s.mustCreateIdentity("seeker@example.com", id.RoleSeeker)
	s.admin = s.mustCreateIdentity("admin@example.com", id.RoleAdministrator)
}

func (s *FeedbackServiceSuite) mustCreateIdentity(email string, role id.Role) *identitymodels.Identity {
	identity, err := identitymodels.NewIdentity(id.NewIdentityID(), email, email, role, "hash",
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	s.Require().NoError(err)
	s.Require().NoError(s.identities.Create(context.Background(), identity))
	return identity
}

func (s *FeedbackServiceSuite) ctxAt(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

func (s *FeedbackServiceSuite) submit(subject string, at time.Time) *models.Feedback {
	s.T().Helper()
	item, err := s.service.Submit(s.ctxAt(at), s.author.ID, subject, "details about "+subject)
	s.Require().NoError(err)
	return item
}

func (s *FeedbackServiceSuite) TestSubmit() {
	at := time.Date(2026, 2, 20, 14, 0, 0, 0, time.UTC)

	s.Run("a submission opens and alerts the pool", func() {
		item := s.submit("broken conversation view", at)
		s.Equal(models.StatusOpen, item.Status)
		s.Nil(item.Response)

		notices, err := s.notifications.ListByRecipient(context.Background(), s.admin.ID)
		s.Require().NoError(err)
		s.Require().Len(notices, 1)
		s.Equal("New feedback submitted", notices[0].Title)
	})

	s.Run("a blank subject is rejected", func() {
		_, err := s.service.Submit(s.ctxAt(at), s.author.ID, "  ", "content")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown authors are not found", func() {
		_, err := s.service.Submit(s.ctxAt(at), id.NewIdentityID(), "subject", "content")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *FeedbackServiceSuite) TestRespond() {
	at := time.Date(2026, 2, 20, 14, 0, 0, 0, time.UTC)

	s.Run("a response settles the item and notifies the author", func() {
		item := s.submit("broken conversation view", at)

		respondedAt := at.Add(time.Hour)
		updated, err := s.service.Respond(s.ctxAt(respondedAt), s.admin.ID, item.ID,
			"Fixed in today's deploy.", models.StatusResolved)
		s.Require().NoError(err)
		s.Equal(models.StatusResolved, updated.Status)
		s.Require().NotNil(updated.Response)
		s.Equal(s.admin.ID, updated.Response.ResponderID)
		s.Equal("Fixed in today's deploy.", updated.Response.Content)
		s.Equal(respondedAt, updated.Response.RespondedAt)

		notices, err := s.notifications.ListByRecipient(context.Background(), s.author.ID)
		s.Require().NoError(err)
		s.Require().Len(notices, 1)
		s.Equal("Feedback update", notices[0].Title)
	})

	s.Run("settled items cannot be reopened by a second response", func() {
		item := s.submit("duplicate notifications", at)
		_, err := s.service.Respond(s.ctxAt(at), s.admin.ID, item.ID, "Dismissed.", models.StatusDismissed)
		s.Require().NoError(err)

		_, err = s.service.Respond(s.ctxAt(at), s.admin.ID, item.ID, "Again.", models.StatusResolved)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("a response cannot target the open status", func() {
		item := s.submit("slow discovery page", at)
		_, err := s.service.Respond(s.ctxAt(at), s.admin.ID, item.ID, "Looking into it.", models.StatusOpen)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("in review keeps the item actionable", func() {
		item := s.submit("missing read receipts", at)
		updated, err := s.service.Respond(s.ctxAt(at), s.admin.ID, item.ID, "Investigating.", models.StatusInReview)
		s.Require().NoError(err)
		s.Equal(models.StatusInReview, updated.Status)

		updated, err = s.service.Respond(s.ctxAt(at.Add(time.Hour)), s.admin.ID, item.ID, "Shipped a fix.", models.StatusResolved)
		s.Require().NoError(err)
		s.Equal(models.StatusResolved, updated.Status)
	})

	s.Run("only administrators respond", func() {
		item := s.submit("typo on the login page", at)
		_, err := s.service.Respond(s.ctxAt(at), s.author.ID, item.ID, "I'll fix it myself.", models.StatusResolved)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("a blank response is rejected", func() {
		item := s.submit("empty response attempt", at)
		_, err := s.service.Respond(s.ctxAt(at), s.admin.ID, item.ID, "   ", models.StatusResolved)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown items are not found", func() {
		_, err := s.service.Respond(s.ctxAt(at), s.admin.ID, id.NewFeedbackID(), "reply", models.StatusResolved)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *FeedbackServiceSuite) TestLists() {
	at := time.Date(2026, 2, 20, 14, 0, 0, 0, time.UTC)

	s.Run("authors see only their own submissions newest first", func() {
		other := s.mustCreateIdentity("host@example.com", id.RoleHost)
		first := s.submit("first", at)
		second := s.submit("second", at.Add(time.Hour))
		_, err := s.service.Submit(s.ctxAt(at.Add(2*time.Hour)), other.ID, "someone else's", "content")
		s.Require().NoError(err)

		mine, err := s.service.ListForAuthor(context.Background(), s.author.ID)
		s.Require().NoError(err)
		s.Require().Len(mine, 2)
		s.Equal(second.ID, mine[0].ID)
		s.Equal(first.ID, mine[1].ID)
	})

	s.Run("the triage queue is admin-only", func() {
		all, err := s.service.ListAll(context.Background(), s.admin.ID)
		s.Require().NoError(err)
		s.Len(all, 3)

		_, err = s.service.ListAll(context.Background(), s.author.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}
