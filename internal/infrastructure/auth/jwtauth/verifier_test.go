package jwtauth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

func mint(t *testing.T, method jwt.SigningMethod, key interface{}, claims Claims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return signed
}

func validClaims(sub string) Claims {
	return Claims{
		Email: "site@example.com",
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			Audience:  jwt.ClaimStrings{"authenticated"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestVerifier_ValidToken(t *testing.T) {
	v := NewVerifier(testSecret, "authenticated")
	userID := uuid.New()

	identity, err := v.VerifyToken(context.Background(), mint(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims(userID.String())))
	require.NoError(t, err)
	assert.Equal(t, userID, identity.UserID)
	assert.Equal(t, "site@example.com", identity.Email)
	assert.Equal(t, "authenticated", identity.Role)
}

func TestVerifier_Rejects(t *testing.T) {
	v := NewVerifier(testSecret, "authenticated")
	userID := uuid.New().String()

	expired := validClaims(userID)
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	wrongAudience := validClaims(userID)
	wrongAudience.Audience = jwt.ClaimStrings{"anon"}

	noExpiry := validClaims(userID)
	noExpiry.ExpiresAt = nil

	tests := []struct {
		name  string
		token string
	}{
		{"wrong secret", mint(t, jwt.SigningMethodHS256, []byte("another-secret"), validClaims(userID))},
		{"expired", mint(t, jwt.SigningMethodHS256, []byte(testSecret), expired)},
		{"wrong audience", mint(t, jwt.SigningMethodHS256, []byte(testSecret), wrongAudience)},
		{"missing expiry", mint(t, jwt.SigningMethodHS256, []byte(testSecret), noExpiry)},
		{"non uuid subject", mint(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims("user-1"))},
		{"unsigned", mint(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, validClaims(userID))},
		{"garbage", "not.a.jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.VerifyToken(context.Background(), tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
