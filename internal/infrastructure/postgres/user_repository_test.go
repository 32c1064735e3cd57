package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "pulsewatch/backend/internal/domain/auth"
)

var userRowColumns = []string{"id", "email", "name", "role", "password_hash", "created_at"}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	t.Cleanup(mock.Close)
	return mock
}

func TestUserRepository_Create(t *testing.T) {
	name := "Ann"
	user := &domain.User{
		ID:           "5b6f3c8e-1f0a-4c3e-9a55-0c0f8d1a2b3c",
		Email:        "a@x.com",
		Name:         &name,
		Role:         domain.RoleUser,
		PasswordHash: "$argon2id$digest",
		CreatedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		wantIs    error
		wantErr   bool
	}{
		{
			name: "successful insert",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO users`).
					WithArgs(user.ID, user.Email, pgxmock.AnyArg(), "user", user.PasswordHash, user.CreatedAt).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
			},
		},
		{
			name: "unique violation maps to email exists",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO users`).
					WithArgs(user.ID, user.Email, pgxmock.AnyArg(), "user", user.PasswordHash, user.CreatedAt).
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_email_key"})
			},
			wantErr: true,
			wantIs:  domain.ErrEmailExists,
		},
		{
			name: "other database error is wrapped",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO users`).
					WithArgs(user.ID, user.Email, pgxmock.AnyArg(), "user", user.PasswordHash, user.CreatedAt).
					WillReturnError(errors.New("connection refused"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMock(t)
			tt.setupMock(mock)

			err := NewUserRepository(mock).Create(context.Background(), user)
			if tt.wantErr {
				require.Error(t, err)
				if tt.wantIs != nil {
					assert.ErrorIs(t, err, tt.wantIs)
				} else {
					assert.NotErrorIs(t, err, domain.ErrEmailExists)
					assert.Contains(t, err.Error(), "connection refused")
				}
			} else {
				require.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		})
	}
}

func TestUserRepository_GetByEmail(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
			WithArgs("a@x.com").
			WillReturnRows(pgxmock.NewRows(userRowColumns).
				AddRow("id-1", "a@x.com", (*string)(nil), "admin", "digest", created))

		user, err := NewUserRepository(mock).GetByEmail(context.Background(), "a@x.com")
		require.NoError(t, err)
		assert.Equal(t, "id-1", user.ID)
		assert.Nil(t, user.Name)
		assert.Equal(t, domain.RoleAdmin, user.Role)
		assert.Equal(t, "digest", user.PasswordHash)
		assert.Equal(t, created, user.CreatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
			WithArgs("A@x.com").
			WillReturnRows(pgxmock.NewRows(userRowColumns))

		_, err := NewUserRepository(mock).GetByEmail(context.Background(), "A@x.com")
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserRepository_GetByID(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \$1`).
			WithArgs("id-404").
			WillReturnRows(pgxmock.NewRows(userRowColumns))

		_, err := NewUserRepository(mock).GetByID(context.Background(), "id-404")
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})

	t.Run("database error", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \$1`).
			WithArgs("id-1").
			WillReturnError(errors.New("timeout"))

		_, err := NewUserRepository(mock).GetByID(context.Background(), "id-1")
		require.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrUserNotFound)
		assert.Contains(t, err.Error(), "timeout")
	})
}

func TestUserRepository_List(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	name := "Bo"

	t.Run("all users", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`SELECT .+ FROM users ORDER BY created_at DESC`).
			WillReturnRows(pgxmock.NewRows(userRowColumns).
				AddRow("id-2", "b@x.com", &name, "user", "d2", created.Add(time.Hour)).
				AddRow("id-1", "a@x.com", (*string)(nil), "admin", "d1", created))

		users, err := NewUserRepository(mock).List(context.Background(), domain.UserFilter{})
		require.NoError(t, err)
		require.Len(t, users, 2)
		assert.Equal(t, "id-2", users[0].ID)
		require.NotNil(t, users[0].Name)
		assert.Equal(t, "Bo", *users[0].Name)
		assert.Equal(t, domain.RoleAdmin, users[1].Role)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("filtered by role", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`SELECT .+ FROM users WHERE role = \$1 ORDER BY created_at DESC`).
			WithArgs("admin").
			WillReturnRows(pgxmock.NewRows(userRowColumns))

		users, err := NewUserRepository(mock).List(context.Background(), domain.UserFilter{Role: domain.RoleAdmin})
		require.NoError(t, err)
		assert.Empty(t, users)
		assert.NotNil(t, users)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query error", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`SELECT .+ FROM users`).
			WillReturnError(errors.New("connection reset"))

		_, err := NewUserRepository(mock).List(context.Background(), domain.UserFilter{})
		assert.ErrorContains(t, err, "connection reset")
	})
}
