package auth

import (
	"context"
	"errors"
	"time"

	"pulsewatch/backend/internal/apperror"
	domain "pulsewatch/backend/internal/domain/auth"

	"github.com/google/uuid"
)

// Client-facing messages. Login uses one message for both unknown email and
// wrong password so the endpoint cannot be used to enumerate accounts.
const (
	MsgEmailInUse         = "Email already in use"
	MsgInvalidCredentials = "Invalid credentials"
	MsgUserNotFound       = "User not found"
)

// Service coordinates authentication workflows between domain and infrastructure.
type Service struct {
	users   domain.UserRepository
	hasher  PasswordHasher
	tokens  TokenManager
	nowFunc func() time.Time
}

// NewService constructs an auth service.
func NewService(users domain.UserRepository, hasher PasswordHasher, tokens TokenManager) *Service {
	return &Service{
		users:   users,
		hasher:  hasher,
		tokens:  tokens,
		nowFunc: time.Now,
	}
}

// RegisterInput is the validated registration payload.
type RegisterInput struct {
	Email    string
	Password string
	Name     *string
}

// LoginResult is returned on successful login.
type LoginResult struct {
	AccessToken string           `json:"accessToken"`
	User        *domain.UserView `json:"user"`
}

// Register creates a new user with role user.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*domain.UserView, error) {
	if _, err := s.users.GetByEmail(ctx, input.Email); err == nil {
		return nil, apperror.Wrap(apperror.KindConflict, MsgEmailInUse, domain.ErrEmailExists)
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, apperror.Internal(err)
	}

	hashed, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        input.Email,
		Name:         input.Name,
		Role:         domain.RoleUser,
		PasswordHash: hashed,
		CreatedAt:    s.nowFunc().UTC(),
	}

	if err := s.users.Create(ctx, user); err != nil {
		// the unique constraint catches a concurrent registration that passed the check above
		if errors.Is(err, domain.ErrEmailExists) {
			return nil, apperror.Wrap(apperror.KindConflict, MsgEmailInUse, err)
		}
		return nil, apperror.Internal(err)
	}

	return user.View(), nil
}

// Login validates credentials and returns a signed access token plus user.
func (s *Service) Login(ctx context.Context, creds domain.Credentials) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, creds.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, apperror.Wrap(apperror.KindUnauthorized, MsgInvalidCredentials, domain.ErrInvalidCredentials)
		}
		return nil, apperror.Internal(err)
	}

	ok, err := s.hasher.Verify(user.PasswordHash, creds.Password)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if !ok {
		return nil, apperror.Wrap(apperror.KindUnauthorized, MsgInvalidCredentials, domain.ErrInvalidCredentials)
	}

	token, err := s.tokens.Sign(domain.Claims{
		Subject: user.ID,
		Email:   user.Email,
		Role:    user.Role,
	})
	if err != nil {
		return nil, apperror.Internal(err)
	}

	return &LoginResult{AccessToken: token, User: user.View()}, nil
}

// GetByID returns the public view of a user.
func (s *Service) GetByID(ctx context.Context, id string) (*domain.UserView, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, apperror.Wrap(apperror.KindNotFound, MsgUserNotFound, err)
		}
		return nil, apperror.Internal(err)
	}
	return user.View(), nil
}

// VerifyToken decodes a bearer token into its claims.
func (s *Service) VerifyToken(token string) (*domain.Claims, error) {
	return s.tokens.Verify(token)
}
