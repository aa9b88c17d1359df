package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/tabgo/internal/domain"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestIssueAndParse(t *testing.T) {
	m := NewTokenManager(Config{Secret: testSecret, Issuer: "tabgo", TTL: time.Hour})

	tok, exp, err := m.Issue(domain.Staff{Email: "ana@bistro.test", Role: domain.RoleManager})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	staff, err := m.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "ana@bistro.test", staff.Email)
	assert.Equal(t, domain.RoleManager, staff.Role)
}

func TestIssue_RejectsBadInput(t *testing.T) {
	m := NewTokenManager(Config{Secret: testSecret})

	_, _, err := m.Issue(domain.Staff{Email: " ", Role: domain.RoleServer})
	assert.Error(t, err)

	_, _, err = m.Issue(domain.Staff{Email: "x@y.z", Role: "chef"})
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestParse_Failures(t *testing.T) {
	m := NewTokenManager(Config{Secret: testSecret, Issuer: "tabgo", TTL: time.Minute})

	tok, _, err := m.Issue(domain.Staff{Email: "ana@bistro.test", Role: domain.RoleServer})
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokenManager(Config{Secret: "ffffffffffffffffffffffffffffffff", Issuer: "tabgo"})
		_, err := other.Parse(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := NewTokenManager(Config{Secret: testSecret, Issuer: "someone-else"})
		_, err := other.Parse(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		later := NewTokenManager(Config{Secret: testSecret, Issuer: "tabgo"})
		later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err := later.Parse(tok)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := m.Parse("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("none algorithm", func(t *testing.T) {
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{Email: "x@y.z", Role: domain.RoleAdmin})
		raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = m.Parse(raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
