package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/cryptic-api/internal/domain/entity"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestNewJWTService_RejectsShortSecret(t *testing.T) {
	_, err := NewJWTService("short", 24)
	assert.Error(t, err)
}

func TestJWTService_RoundTrip(t *testing.T) {
	svc, err := NewJWTService(testSecret, 1)
	require.NoError(t, err)

	user := &entity.User{ID: 42, Email: "setter@example.com", Role: entity.RoleAdmin}
	token, err := svc.GenerateToken(user)
	require.NoError(t, err)

	claims, err := svc.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "setter@example.com", claims.Email)
	assert.True(t, claims.IsAdmin())
	assert.Equal(t, time.Hour, svc.TTL())
}

func TestJWTService_Expired(t *testing.T) {
	svc, err := NewJWTService(testSecret, 1)
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, err := svc.GenerateToken(&entity.User{ID: 1, Role: entity.RoleUser})
	require.NoError(t, err)

	_, err = svc.ParseToken(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestJWTService_WrongSecret(t *testing.T) {
	issuer, err := NewJWTService(testSecret, 1)
	require.NoError(t, err)
	verifier, err := NewJWTService("fedcba9876543210fedcba9876543210", 1)
	require.NoError(t, err)

	token, err := issuer.GenerateToken(&entity.User{ID: 1})
	require.NoError(t, err)

	_, err = verifier.ParseToken(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestJWTService_Malformed(t *testing.T) {
	svc, err := NewJWTService(testSecret, 1)
	require.NoError(t, err)

	_, err = svc.ParseToken("not-a-token")
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

func TestJWTService_RejectsForeignIssuer(t *testing.T) {
	svc, err := NewJWTService(testSecret, 1)
	require.NoError(t, err)

	claims := &JWTCustomClaims{
		UserID: 5,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			Issuer:    "someone-else",
			Audience:  jwt.ClaimStrings{tokenAudience},
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = svc.ParseToken(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestJWTService_GenerateRejectsEmptyUser(t *testing.T) {
	svc, err := NewJWTService(testSecret, 1)
	require.NoError(t, err)

	_, err = svc.GenerateToken(&entity.User{})
	assert.Error(t, err)
}
