package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/venuepulse/venuepulse/internal/domain"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// TokenManager issues and verifies HS256 bearer tokens carrying the caller
// identity and role claim. The identity provider that creates accounts is
// external; this service only verifies what it issued or was configured to
// trust.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Issue signs a token for the given actor.
func (m *TokenManager) Issue(actor domain.Actor) (string, error) {
	const op = "auth.TokenManager.Issue"

	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub":  actor.ID.String(),
		"role": string(actor.Role),
		"iat":  now.Unix(),
		"exp":  now.Add(m.ttl).Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("%s:%w", op, err)
	}

	return signed, nil
}

// Verify parses a bearer token and returns the actor it identifies.
//
// Returns:
//   - error: auth.ErrExpiredToken when the token is past its exp claim.
//   - error: auth.ErrInvalidToken for any other verification failure.
func (m *TokenManager) Verify(raw string) (domain.Actor, error) {
	const op = "auth.TokenManager.Verify"

	tok, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Actor{}, fmt.Errorf("%s:%w", op, ErrExpiredToken)
		}
		return domain.Actor{}, fmt.Errorf("%s:%w", op, ErrInvalidToken)
	}

	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok || !tok.Valid {
		return domain.Actor{}, fmt.Errorf("%s:%w", op, ErrInvalidToken)
	}

	sub, _ := claims["sub"].(string)
	id, err := uuid.Parse(sub)
	if err != nil {
		return domain.Actor{}, fmt.Errorf("%s:%w", op, ErrInvalidToken)
	}

	role, _ := claims["role"].(string)
	switch domain.Role(role) {
	case domain.RoleUser, domain.RoleOwner, domain.RoleAdmin:
	default:
		return domain.Actor{}, fmt.Errorf("%s:%w", op, ErrInvalidToken)
	}

	return domain.Actor{ID: id, Role: domain.Role(role)}, nil
}
