package security

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := &SessionClaims{
		UserID: 7,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice@example.com",
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("any-secret"))
	require.NoError(t, err)
	return s
}

func TestInspectToken(t *testing.T) {
	token := signToken(t, time.Now().Add(time.Hour))

	claims, err := InspectToken("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", claims.Subject)
	assert.Equal(t, int64(7), claims.UserID)
}

func TestInspectToken_Errors(t *testing.T) {
	_, err := InspectToken("")
	assert.ErrorIs(t, err, ErrTokenMissing)

	_, err = InspectToken("not-a-jwt")
	assert.ErrorIs(t, err, ErrTokenMalformed)

	_, err = InspectToken(signToken(t, time.Now().Add(-time.Minute)))
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestStaticTokenProvider(t *testing.T) {
	p := NewStaticTokenProvider("")
	_, err := p.AccessToken(context.Background())
	assert.ErrorIs(t, err, ErrTokenMissing)

	token := signToken(t, time.Now().Add(time.Hour))
	p.SetToken(token)
	got, err := p.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, token, got)
}
