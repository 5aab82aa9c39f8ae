package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	identitymodels "havenlink/internal/identity/models"
	identitystore "havenlink/internal/identity/store/identity"
	"havenlink/internal/messaging/models"
	messagestore "havenlink/internal/messaging/store/message"
	"havenlink/internal/pubsub"
	id "havenlink/pkg/domain"
	dErrors "havenlink/pkg/domain-errors"
	"havenlink/pkg/requestcontext"
)

type MessagingServiceSuite struct {
	suite.Suite
	identities *identitystore.InMemory
	messages   *messagestore.InMemory
	broker     *pubsub.MemoryBroker
	service    *Service

	alice *identitymodels.Identity
	bob   *identitymodels.Identity
	carol *identitymodels.Identity
}

func TestMessagingServiceSuite(t *testing.T) {
	suite.Run(t, new(MessagingServiceSuite))
}

func (s *MessagingServiceSuite) SetupTest() {
	s.identities = identitystore.NewInMemory()
	s.messages = messagestore.NewInMemory()
	s.broker = pubsub.NewMemoryBroker()
	s.service = New(s.messages, s.identities, WithBroker(s.broker))

	s.alice = s.mustCreateIdentity("alice@example.com", id.RoleSeeker)
	s.bob = s.mustCreateIdentity("bob@example.com", id.RoleHost)
	s.carol = s.mustCreateIdentity("carol@example.com", id.RoleHost)
}

func (s *MessagingServiceSuite) mustCreateIdentity(email string, role id.Role) *identitymodels.Identity {
	identity, err := identitymodels.NewIdentity(id.NewIdentityID(), email, email, role, "hash",
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	s.Require().NoError(err)
	s.Require().NoError(s.identities.Create(context.Background(), identity))
	return identity
}

func (s *MessagingServiceSuite) ctxAt(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

func (s *MessagingServiceSuite) send(from, to id.IdentityID, content string, at time.Time) *models.Message {
	s.T().Helper()
	msg, err := s.service.Send(s.ctxAt(at), from, to, content)
	s.Require().NoError(err)
	return msg
}

func (s *MessagingServiceSuite) TestSend() {
	at := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

	s.Run("a message starts in the sent state", func() {
		msg := s.send(s.alice.ID, s.bob.ID, "Hello, is the room still available?", at)
		s.Equal(models.StatusSent, msg.Status)
		s.Equal(at, msg.CreatedAt)
		s.Nil(msg.ReadAt)
	})

	s.Run("both participants receive a live event", func() {
		senderCh, cancelSender, err := s.broker.Subscribe(context.Background(), pubsub.Topic(s.alice.ID))
		s.Require().NoError(err)
		defer cancelSender()
		recipientCh, cancelRecipient, err := s.broker.Subscribe(context.Background(), pubsub.Topic(s.bob.ID))
		s.Require().NoError(err)
		defer cancelRecipient()

		s.send(s.alice.ID, s.bob.ID, "ping", at)

		for _, ch := range []<-chan pubsub.Event{senderCh, recipientCh} {
			select {
			case event := <-ch:
				s.Equal(pubsub.EventMessageCreated, event.Kind)
			default:
				s.Fail("expected a live event on the participant topic")
			}
		}
	})

	s.Run("blank content is rejected", func() {
		_, err := s.service.Send(s.ctxAt(at), s.alice.ID, s.bob.ID, "   ")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("messaging yourself is rejected", func() {
		_, err := s.service.Send(s.ctxAt(at), s.alice.ID, s.alice.ID, "note to self")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown recipient is not found", func() {
		_, err := s.service.Send(s.ctxAt(at), s.alice.ID, id.NewIdentityID(), "hello?")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *MessagingServiceSuite) TestConversation() {
	base := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

	s.Run("the thread interleaves both directions oldest first", func() {
		first := s.send(s.alice.ID, s.bob.ID, "hi", base)
		second := s.send(s.bob.ID, s.alice.ID, "hello", base.Add(time.Minute))
		third := s.send(s.alice.ID, s.bob.ID, "how are you", base.Add(2*time.Minute))
		s.send(s.alice.ID, s.carol.ID, "unrelated", base.Add(3*time.Minute))

		thread, err := s.service.Conversation(context.Background(), s.alice.ID, s.bob.ID)
		s.Require().NoError(err)
		s.Require().Len(thread, 3)
		s.Equal(first.ID, thread[0].ID)
		s.Equal(second.ID, thread[1].ID)
		s.Equal(third.ID, thread[2].ID)
	})
}

func (s *MessagingServiceSuite) TestConversations() {
	base := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

	s.Run("summaries count unread and order newest thread first", func() {
		s.send(s.bob.ID, s.alice.ID, "room is free", base)
		s.send(s.bob.ID, s.alice.ID, "from March 1st", base.Add(time.Minute))
		latest := s.send(s.carol.ID, s.alice.ID, "we have a spare room too", base.Add(time.Hour))

		summaries, err := s.service.Conversations(context.Background(), s.alice.ID)
		s.Require().NoError(err)
		s.Require().Len(summaries, 2)

		s.Equal(s.carol.ID, summaries[0].CounterpartID)
		s.Equal(latest.ID, summaries[0].LastMessage.ID)
		s.Equal(1, summaries[0].UnreadCount)

		s.Equal(s.bob.ID, summaries[1].CounterpartID)
		s.Equal(2, summaries[1].UnreadCount)
	})

	s.Run("read messages leave the unread count", func() {
		thread, err := s.service.Conversation(context.Background(), s.alice.ID, s.bob.ID)
		s.Require().NoError(err)
		for _, msg := range thread {
			_, err := s.service.MarkRead(s.ctxAt(base.Add(time.Hour)), s.alice.ID, msg.ID)
			s.Require().NoError(err)
		}

		summaries, err := s.service.Conversations(context.Background(), s.alice.ID)
		s.Require().NoError(err)
		for _, summary := range summaries {
			if summary.CounterpartID == s.bob.ID {
				s.Equal(0, summary.UnreadCount)
			}
		}
	})
}

func (s *MessagingServiceSuite) TestDeliveryLifecycle() {
	base := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

	s.Run("status only moves forward", func() {
		msg := s.send(s.alice.ID, s.bob.ID, "hi", base)

		delivered, err := s.service.MarkDelivered(s.ctxAt(base.Add(time.Second)), s.bob.ID, msg.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusDelivered, delivered.Status)

		readAt := base.Add(time.Minute)
		read, err := s.service.MarkRead(s.ctxAt(readAt), s.bob.ID, msg.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusRead, read.Status)
		s.Require().NotNil(read.ReadAt)
		s.Equal(readAt, *read.ReadAt)

		_, err = s.service.MarkDelivered(s.ctxAt(readAt.Add(time.Second)), s.bob.ID, msg.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))

		stored, ferr := s.messages.FindByID(context.Background(), msg.ID)
		s.Require().NoError(ferr)
		s.Equal(readAt, *stored.ReadAt)
	})

	s.Run("skipping delivered straight to read is allowed", func() {
		msg := s.send(s.alice.ID, s.bob.ID, "hi again", base)
		read, err := s.service.MarkRead(s.ctxAt(base.Add(time.Minute)), s.bob.ID, msg.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusRead, read.Status)
	})

	s.Run("only the recipient may advance", func() {
		msg := s.send(s.alice.ID, s.bob.ID, "hi", base)
		_, err := s.service.MarkDelivered(s.ctxAt(base), s.alice.ID, msg.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
		_, err = s.service.MarkRead(s.ctxAt(base), s.carol.ID, msg.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("read receipts reach the sender's session", func() {
		msg := s.send(s.alice.ID, s.bob.ID, "hi", base)
		ch, cancel, err := s.broker.Subscribe(context.Background(), pubsub.Topic(s.alice.ID))
		s.Require().NoError(err)
		defer cancel()

		_, err = s.service.MarkRead(s.ctxAt(base.Add(time.Minute)), s.bob.ID, msg.ID)
		s.Require().NoError(err)

		select {
		case event := <-ch:
			s.Equal(pubsub.EventMessageRead, event.Kind)
		default:
			s.Fail("expected a read receipt on the sender topic")
		}
	})

	s.Run("unknown message is not found", func() {
		_, err := s.service.MarkRead(s.ctxAt(base), s.bob.ID, id.NewMessageID())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
