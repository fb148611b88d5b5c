package helpers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whisperbox/internal/domain/entity"
)

func testManager() *JWTManager {
	return NewJWTManager("access-secret", "refresh-secret", time.Minute, time.Hour)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	m := testManager()
	p := entity.Projection{
		ID:                  "42",
		Username:            "alice",
		Email:               "a@x.com",
		IsVerified:          true,
		IsAcceptingMessages: false,
	}

	token, exp, err := m.IssueAccessToken(p)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(m.AccessTTL), exp, 5*time.Second)

	claims, err := m.ResolveAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, p, claims.Projection())
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	m := testManager()
	p := entity.Projection{ID: "7", Username: "bob", Email: "b@x.com"}

	token, _, err := m.IssueRefreshToken(p)
	require.NoError(t, err)

	claims, err := m.ResolveRefreshToken(token)
	require.NoError(t, err)
	assert.Equal(t, p, claims.Projection())
}

func TestTokensAreNotInterchangeable(t *testing.T) {
	m := testManager()
	p := entity.Projection{ID: "1", Username: "carol"}

	access, _, err := m.IssueAccessToken(p)
	require.NoError(t, err)
	refresh, _, err := m.IssueRefreshToken(p)
	require.NoError(t, err)

	_, err = m.ResolveRefreshToken(access)
	assert.Error(t, err)
	_, err = m.ResolveAccessToken(refresh)
	assert.Error(t, err)
}

func TestExpiredTokenRejected(t *testing.T) {
	m := testManager()
	m.AccessTTL = -time.Minute

	token, _, err := m.IssueAccessToken(entity.Projection{ID: "1", Username: "dave"})
	require.NoError(t, err)

	_, err = m.ResolveAccessToken(token)
	assert.Error(t, err)
}

func TestTamperedTokenRejected(t *testing.T) {
	m := testManager()

	token, _, err := m.IssueAccessToken(entity.Projection{ID: "1", Username: "eve"})
	require.NoError(t, err)

	other := NewJWTManager("different-secret", "x", time.Minute, time.Hour)
	_, err = other.ResolveAccessToken(token)
	assert.Error(t, err)
}
