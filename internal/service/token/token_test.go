package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newSigner() *Signer {
	return &Signer{Secret: []byte("test-secret"), Issuer: "bookbridge", Audience: "bookbridge-api"}
}

func TestSignAndParse(t *testing.T) {
	s := newSigner()
	now := time.Now()

	signed, exp, err := s.Sign(42, now)
	require.NoError(t, err)
	require.WithinDuration(t, now.Add(SessionTTL), exp, time.Second)

	userID, err := s.Parse(signed)
	require.NoError(t, err)
	require.Equal(t, uint(42), userID)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	s := newSigner()
	signed, _, err := s.Sign(42, time.Now())
	require.NoError(t, err)

	other := &Signer{Secret: []byte("other-secret"), Issuer: s.Issuer, Audience: s.Audience}
	_, err = other.Parse(signed)
	require.Error(t, err)
}

func TestParseRejectsWrongIssuerOrAudience(t *testing.T) {
	s := newSigner()
	signed, _, err := s.Sign(42, time.Now())
	require.NoError(t, err)

	wrongIssuer := &Signer{Secret: s.Secret, Issuer: "someone-else", Audience: s.Audience}
	_, err = wrongIssuer.Parse(signed)
	require.Error(t, err)

	wrongAudience := &Signer{Secret: s.Secret, Issuer: s.Issuer, Audience: "other-api"}
	_, err = wrongAudience.Parse(signed)
	require.Error(t, err)
}

func TestParseRejectsExpired(t *testing.T) {
	s := newSigner()
	signed, _, err := s.Sign(42, time.Now().Add(-SessionTTL-time.Hour))
	require.NoError(t, err)

	_, err = s.Parse(signed)
	require.Error(t, err)
}

func TestParseRejectsGarbage(t *testing.T) {
	s := newSigner()
	_, err := s.Parse("not-a-token")
	require.Error(t, err)
}
