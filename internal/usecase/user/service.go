package user

import (
	"context"
	"errors"
	"strings"

	"pulsewatch/backend/internal/apperror"
	domain "pulsewatch/backend/internal/domain/auth"
)

// Service provides read-only user directory use cases.
type Service struct {
	repo domain.UserRepository
}

// NewService constructs a user service around the provided repository.
func NewService(repo domain.UserRepository) *Service {
	return &Service{repo: repo}
}

// Filter captures supported filters for listing users.
type Filter struct {
	Role string
}

// List returns users matching the supplied filter, newest first.
func (s *Service) List(ctx context.Context, filter Filter) ([]*domain.UserSummary, error) {
	domainFilter := domain.UserFilter{}
	if trimmed := strings.TrimSpace(strings.ToLower(filter.Role)); trimmed != "" {
		role := domain.UserRole(trimmed)
		if !role.Valid() {
			return nil, apperror.Validation("Validation error: query.role: must be one of: user, admin")
		}
		domainFilter.Role = role
	}

	users, err := s.repo.List(ctx, domainFilter)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	out := make([]*domain.UserSummary, 0, len(users))
	for _, u := range users {
		out = append(out, u.Summary())
	}
	return out, nil
}

// Get retrieves a single user by its identifier.
func (s *Service) Get(ctx context.Context, id string) (*domain.UserSummary, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, apperror.Wrap(apperror.KindNotFound, "User not found", err)
		}
		return nil, apperror.Internal(err)
	}
	return user.Summary(), nil
}
