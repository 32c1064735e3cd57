package auth

import domain "pulsewatch/backend/internal/domain/auth"

// TokenManager abstracts token issuance and verification.
type TokenManager interface {
	// Sign issues a token for the claim subject, email and role. Issued-at and
	// expiry are set by the manager.
	Sign(claims domain.Claims) (string, error)
	// Verify returns domain.ErrTokenInvalid for any token that must not be trusted.
	Verify(token string) (*domain.Claims, error)
}

// PasswordHasher abstracts one-way password hashing.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(digest, password string) (bool, error)
}
