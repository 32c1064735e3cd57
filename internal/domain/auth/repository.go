package auth

import "context"

// UserRepository defines persistence operations for auth users.
//
// Create must return ErrEmailExists when the storage layer rejects a
// duplicate email; GetByEmail and GetByID return ErrUserNotFound on a miss.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	List(ctx context.Context, filter UserFilter) ([]*User, error)
}

// UserFilter allows narrowing user queries.
type UserFilter struct {
	Role UserRole
}
