package auth

import (
	"errors"
	"time"
)

var (
	// ErrInvalidCredentials indicates a login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailExists signals a duplicate email registration.
	ErrEmailExists = errors.New("email already registered")
	// ErrTokenInvalid means a supplied token cannot be validated.
	ErrTokenInvalid = errors.New("token invalid or expired")
	// ErrUserNotFound indicates missing user.
	ErrUserNotFound = errors.New("user not found")
)

// UserRole identifies the privileges assigned to a user.
type UserRole string

const (
	// RoleUser represents a standard application user.
	RoleUser UserRole = "user"
	// RoleAdmin represents an administrative user.
	RoleAdmin UserRole = "admin"
)

// Valid reports whether r is one of the supported roles.
func (r UserRole) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User models the authentication entity persisted in storage.
type User struct {
	ID           string
	Email        string
	Name         *string
	Role         UserRole
	PasswordHash string
	CreatedAt    time.Time
}

// View returns the projection exposed by auth endpoints.
func (u *User) View() *UserView {
	return &UserView{
		ID:    u.ID,
		Email: u.Email,
		Name:  u.Name,
		Role:  u.Role,
	}
}

// Summary returns the projection exposed by user listings.
func (u *User) Summary() *UserSummary {
	return &UserSummary{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// UserView is the public-safe identity of a user.
type UserView struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Name  *string  `json:"name"`
	Role  UserRole `json:"role"`
}

// UserSummary is a UserView plus its creation time.
type UserSummary struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      *string   `json:"name"`
	Role      UserRole  `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// Credentials captures raw credential input for login.
type Credentials struct {
	Email    string
	Password string
}

// Claims is the identity carried inside an access token.
type Claims struct {
	Subject   string
	Email     string
	Role      UserRole
	IssuedAt  time.Time
	ExpiresAt time.Time
}
