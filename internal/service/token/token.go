package token

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const SessionTTL = 24 * time.Hour

// Signer issues and parses session tokens. Tokens carry the user id as
// subject, fixed issuer/audience and a 24h expiry; there is no refresh flow,
// an expired token requires full re-authentication.
type Signer struct {
	Secret   []byte
	Issuer   string
	Audience string
}

func (s *Signer) Sign(userID uint, now time.Time) (string, time.Time, error) {
	exp := now.Add(SessionTTL)
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(userID), 10),
		Issuer:    s.Issuer,
		Audience:  jwt.ClaimStrings{s.Audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(s.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Parse validates signature, issuer, audience and expiry and returns the
// subject as a user id.
func (s *Signer) Parse(raw string) (uint, error) {
	claims := jwt.RegisteredClaims{}
	t, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.Secret, nil
	}, jwt.WithIssuer(s.Issuer), jwt.WithAudience(s.Audience))
	if err != nil {
		return 0, fmt.Errorf("invalid session token: %w", err)
	}
	if !t.Valid {
		return 0, fmt.Errorf("invalid session token")
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid subject claim %q: %w", claims.Subject, err)
	}
	return uint(id), nil
}
