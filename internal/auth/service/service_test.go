package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	identitymodels "havenlink/internal/identity/models"
	identitystore "havenlink/internal/identity/store/identity"
	"havenlink/internal/jwttoken"
	id "havenlink/pkg/domain"
	dErrors "havenlink/pkg/domain-errors"
)

type AuthServiceSuite struct {
	suite.Suite
	identities *identitystore.InMemory
	tokens     *jwttoken.Service
	service    *Service
}

func TestAuthServiceSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceSuite))
}

func (s *AuthServiceSuite) SetupTest() {
	s.identities = identitystore.NewInMemory()
	s.tokens = jwttoken.NewService("test-signing-key", "havenlink-test")
	s.service = New(s.identities, s.tokens, time.Hour)
}

func (s *AuthServiceSuite) register(email string, role id.Role) *identitymodels.Identity {
	s.T().Helper()
	identity, err := s.service.Register(context.Background(), RegisterRequest{
		Email:       email,
		DisplayName: "Test User",
		Password:    "correct horse battery",
		Role:        role,
	})
	s.Require().NoError(err)
	return identity
}

func (s *AuthServiceSuite) TestRegister() {
	s.Run("new identities start pending", func() {
		identity := s.register("Seeker@Example.com", id.RoleSeeker)
		s.Equal(identitymodels.ProfileStatusPending, identity.ProfileStatus)
		s.Equal("seeker@example.com", identity.Email)
		s.NotEqual("correct horse battery", identity.PasswordHash)
	})

	s.Run("duplicate emails conflict", func() {
		s.register("host@example.com", id.RoleHost)
		_, err := s.service.Register(context.Background(), RegisterRequest{
			Email:       "host@example.com",
			DisplayName: "Second",
			Password:    "another long password",
			Role:        id.RoleHost,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("short passwords are rejected", func() {
		_, err := s.service.Register(context.Background(), RegisterRequest{
			Email:       "short@example.com",
			DisplayName: "Short",
			Password:    "too short",
			Role:        id.RoleSeeker,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("self-registration as administrator is rejected", func() {
		_, err := s.service.Register(context.Background(), RegisterRequest{
			Email:       "admin@example.com",
			DisplayName: "Admin",
			Password:    "a perfectly fine password",
			Role:        id.RoleAdministrator,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *AuthServiceSuite) TestLogin() {
	s.Run("valid credentials mint a token carrying identity and role", func() {
		identity := s.register("seeker@example.com", id.RoleSeeker)

		result, err := s.service.Login(context.Background(), "seeker@example.com", "correct horse battery")
		s.Require().NoError(err)
		s.Equal(identity.ID, result.Identity.ID)
		s.Equal(time.Hour, result.ExpiresIn)

		claims, err := s.tokens.ValidateToken(result.AccessToken)
		s.Require().NoError(err)
		s.Equal(identity.ID, claims.IdentityID)
		s.Equal(id.RoleSeeker, claims.Role)
	})

	s.Run("wrong password and unknown email fail identically", func() {
		s.register("host@example.com", id.RoleHost)

		_, wrongPassword := s.service.Login(context.Background(), "host@example.com", "not the password")
		_, unknownEmail := s.service.Login(context.Background(), "nobody@example.com", "correct horse battery")

		s.True(dErrors.HasCode(wrongPassword, dErrors.CodeUnauthorized))
		s.True(dErrors.HasCode(unknownEmail, dErrors.CodeUnauthorized))
		s.Equal(wrongPassword.Error(), unknownEmail.Error())
	})
}
