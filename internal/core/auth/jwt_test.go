package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJWTer(now time.Time) *JWTer {
	return &JWTer{
		Secret: []byte("test-secret-at-least-32-bytes-long!!"),
		Issuer: "natours",
		TTL:    90 * 24 * time.Hour,
		Now:    func() time.Time { return now },
	}
}

func TestIssueParse_RoundTrip(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	j := newJWTer(now)

	tok, err := j.Issue("u1")
	require.NoError(t, err)

	c, err := j.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", c.UID)
	assert.True(t, c.Issued().Equal(now))
}

func TestParse_Expired(t *testing.T) {
	issued := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	tok, err := newJWTer(issued).Issue("u1")
	require.NoError(t, err)

	_, err = newJWTer(issued.Add(91 * 24 * time.Hour)).Parse(tok)
	require.Error(t, err)
	assert.True(t, errors.Is(err, jwt.ErrTokenExpired))
}

func TestParse_BadSignature(t *testing.T) {
	now := time.Now()
	tok, err := newJWTer(now).Issue("u1")
	require.NoError(t, err)

	other := newJWTer(now)
	other.Secret = []byte("another-secret-another-secret-0000")
	_, err = other.Parse(tok)
	require.Error(t, err)
	assert.True(t, errors.Is(err, jwt.ErrTokenSignatureInvalid))

	_, err = other.Parse("not.a.jwt")
	assert.True(t, errors.Is(err, jwt.ErrTokenMalformed))
}
