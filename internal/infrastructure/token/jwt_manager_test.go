package token_test

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "pulsewatch/backend/internal/domain/auth"
	"pulsewatch/backend/internal/infrastructure/token"
)

const secret = "0123456789abcdef0123456789abcdef"

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestSignVerifyRoundTrip(t *testing.T) {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	manager := token.NewJWTManager(secret, 15*time.Minute).WithClock(fixedClock(issued))

	signed, err := manager.Sign(domain.Claims{Subject: "user-1", Email: "a@x.com", Role: domain.RoleAdmin})
	require.NoError(t, err)
	assert.Len(t, strings.Split(signed, "."), 3)

	claims, err := manager.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "a@x.com", claims.Email)
	assert.Equal(t, domain.RoleAdmin, claims.Role)
	assert.True(t, claims.IssuedAt.Equal(issued))
	assert.True(t, claims.ExpiresAt.Equal(issued.Add(15*time.Minute)))

	t.Run("repeated verification is stable", func(t *testing.T) {
		again, err := manager.Verify(signed)
		require.NoError(t, err)
		assert.Equal(t, claims, again)
	})
}

func TestVerifyExpiry(t *testing.T) {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	signer := token.NewJWTManager(secret, 15*time.Minute).WithClock(fixedClock(issued))
	signed, err := signer.Sign(domain.Claims{Subject: "user-1", Email: "a@x.com", Role: domain.RoleUser})
	require.NoError(t, err)

	tests := []struct {
		name    string
		now     time.Time
		wantErr bool
	}{
		{name: "just before expiry", now: issued.Add(15*time.Minute - time.Second)},
		{name: "at expiry", now: issued.Add(15 * time.Minute), wantErr: true},
		{name: "after expiry", now: issued.Add(time.Hour), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := signer.WithClock(fixedClock(tt.now)).Verify(signed)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrTokenInvalid)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestVerifyRejectsUntrustedTokens(t *testing.T) {
	manager := token.NewJWTManager(secret, time.Hour)
	valid, err := manager.Sign(domain.Claims{Subject: "user-1", Email: "a@x.com", Role: domain.RoleUser})
	require.NoError(t, err)

	otherSecret, err := token.NewJWTManager("another-secret-another-secret-xx", time.Hour).
		Sign(domain.Claims{Subject: "user-1", Email: "a@x.com", Role: domain.RoleUser})
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user-1"}).
		SignedString([]byte(secret))
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"tampered signature": tamperLast(valid),
		"different secret":   otherSecret,
		"missing expiry":     noExpiry,
		"other algorithm":    hs512,
		"alg none":           unsigned,
		"malformed":          "not.a.jwt",
		"empty":              "",
	}

	for name, tok := range tests {
		t.Run(name, func(t *testing.T) {
			claims, err := manager.Verify(tok)
			assert.ErrorIs(t, err, domain.ErrTokenInvalid)
			assert.Nil(t, claims)
		})
	}
}

func TestSignRequiresSubject(t *testing.T) {
	_, err := token.NewJWTManager(secret, time.Hour).Sign(domain.Claims{Email: "a@x.com"})
	assert.Error(t, err)
}

func tamperLast(tok string) string {
	last := tok[len(tok)-1]
	replacement := byte('A')
	if last == 'A' {
		replacement = 'B'
	}
	return tok[:len(tok)-1] + string(replacement)
}
