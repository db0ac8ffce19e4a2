package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venuepulse/venuepulse/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)

	actor := domain.Actor{ID: uuid.New(), Role: domain.RoleOwner}

	raw, err := tm.Issue(actor)
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	got, err := tm.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, actor.ID, got.ID)
	assert.Equal(t, actor.Role, got.Role)
}

func TestVerifyWrongSecret(t *testing.T) {
	issuer := NewTokenManager("secret-a", time.Hour)
	verifier := NewTokenManager("secret-b", time.Hour)

	raw, err := issuer.Issue(domain.Actor{ID: uuid.New(), Role: domain.RoleUser})
	require.NoError(t, err)

	_, err = verifier.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyExpired(t *testing.T) {
	tm := NewTokenManager("test-secret", -time.Minute)

	raw, err := tm.Issue(domain.Actor{ID: uuid.New(), Role: domain.RoleUser})
	require.NoError(t, err)

	_, err = tm.Verify(raw)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestVerifyGarbage(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)

	_, err := tm.Verify("not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsUnknownRole(t *testing.T) {
	secret := []byte("test-secret")

	claims := jwt.MapClaims{
		"sub":  uuid.New().String(),
		"role": "superuser",
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)

	tm := NewTokenManager("test-secret", time.Hour)
	_, err = tm.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsBadSubject(t *testing.T) {
	secret := []byte("test-secret")

	claims := jwt.MapClaims{
		"sub":  "not-a-uuid",
		"role": "user",
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)

	tm := NewTokenManager("test-secret", time.Hour)
	_, err = tm.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
