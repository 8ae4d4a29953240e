package app

import (
	"fmt"
	"time"

	"github.com/form3tech-oss/jwt-go"
	"github.com/google/uuid"
)

// InviteService signs and checks tokens granting read access to a private pool.
type InviteService struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func NewInviteService(secret, issuer string, ttl time.Duration) *InviteService {
	return &InviteService{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
	}
}

// Issue returns a signed invite for poolID on behalf of inviterID, and its expiry.
func (s *InviteService) Issue(poolID, inviterID string) (string, time.Time, error) {
	if s == nil || len(s.secret) == 0 {
		return "", time.Time{}, ErrInvitesDisabled
	}
	if poolID == "" {
		return "", time.Time{}, fmt.Errorf("%w: pool id is required", ErrInvalidInput)
	}

	expiresAt := time.Now().Add(s.ttl)
	claims := jwt.MapClaims{
		"iss": s.issuer,
		"sub": poolID,
		"inv": inviterID,
		"exp": expiresAt.Unix(),
		"jti": uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign invite: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks signature, issuer and expiry and returns the pool the invite is for.
func (s *InviteService) Verify(tokenString string) (string, error) {
	if s == nil || len(s.secret) == 0 {
		return "", ErrInvitesDisabled
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidInvite
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidInvite
	}
	if _, ok := claims["exp"]; !ok {
		return "", ErrInvalidInvite
	}
	if !claims.VerifyIssuer(s.issuer, true) {
		return "", ErrInvalidInvite
	}
	poolID, _ := claims["sub"].(string)
	if poolID == "" {
		return "", ErrInvalidInvite
	}
	return poolID, nil
}
