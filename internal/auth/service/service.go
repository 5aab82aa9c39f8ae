// Package service implements registration and credential login.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	identitymodels "havenlink/internal/identity/models"
	id "havenlink/pkg/domain"
	dErrors "havenlink/pkg/domain-errors"
	"havenlink/pkg/platform/sentinel"
	"havenlink/pkg/requestcontext"
	"havenlink/pkg/secrets"
)

// IdentityStore is the identity persistence onboarding needs.
type IdentityStore interface {
	Create(ctx context.Context, identity *identitymodels.Identity) error
	FindByEmail(ctx context.Context, email string) (*identitymodels.Identity, error)
}

// TokenIssuer mints access tokens for authenticated identities.
type TokenIssuer interface {
	GenerateAccessToken(identityID id.IdentityID, role id.Role, expiresIn time.Duration) (string, error)
}

// Service implements registration and login.
type Service struct {
	identities IdentityStore
	tokens     TokenIssuer
	tokenTTL   time.Duration
	logger     *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(identities IdentityStore, tokens TokenIssuer, tokenTTL time.Duration, opts ...Option) *Service {
	s := &Service{
		identities: identities,
		tokens:     tokens,
		tokenTTL:   tokenTTL,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

const minPasswordLength = 10

// RegisterRequest carries the fields a new participant submits.
type RegisterRequest struct {
	Email       string
	DisplayName string
	Password    string
	Role        id.Role
}

// Register creates a pending identity. Administrators are provisioned
// out of band, never through self-registration.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*identitymodels.Identity, error) {
	if !req.Role.IsParticipant() {
		return nil, dErrors.New(dErrors.CodeValidation, "role must be seeker or host")
	}
	if len(req.Password) < minPasswordLength {
		return nil, dErrors.Newf(dErrors.CodeValidation, "password must be at least %d characters", minPasswordLength)
	}

	hash, err := secrets.Hash(req.Password)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	identity, err := identitymodels.NewIdentity(id.NewIdentityID(), req.Email, req.DisplayName, req.Role, hash, now)
	if err != nil {
		return nil, err
	}

	if err := s.identities.Create(ctx, identity); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "an account with this email already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create identity")
	}

	s.logger.InfoContext(ctx, "identity registered",
		"identity_id", identity.ID,
		"role", string(identity.Role),
		"request_id", requestcontext.RequestID(ctx),
	)
	return identity, nil
}

// LoginResult is a successful authentication.
type LoginResult struct {
	Identity    *identitymodels.Identity
	AccessToken string
	ExpiresIn   time.Duration
}

// Login verifies credentials and mints an access token. Unknown emails
// and wrong passwords return the same error.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	identity, err := s.identities.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, invalidCredentials()
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load identity")
	}
	if err := secrets.Verify(password, identity.PasswordHash); err != nil {
		return nil, invalidCredentials()
	}

	token, err := s.tokens.GenerateAccessToken(identity.ID, identity.Role, s.tokenTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue access token")
	}
	return &LoginResult{
		Identity:    identity,
		AccessToken: token,
		ExpiresIn:   s.tokenTTL,
	}, nil
}

func invalidCredentials() error {
	return dErrors.New(dErrors.CodeUnauthorized, "invalid email or password")
}
