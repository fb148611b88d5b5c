package application

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whisperbox/internal/domain/repository"
	"whisperbox/internal/infrastructure/filestore"
	"whisperbox/pkg/helpers"
)

func newAuthService(t *testing.T, requireVerification bool) *AuthService {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	store, err := filestore.Open(filepath.Join(t.TempDir(), "devdata.json"), logger)
	require.NoError(t, err)
	jwt := helpers.NewJWTManager("test-access", "test-refresh", time.Hour, 24*time.Hour)
	return NewAuthService(store, jwt, nil, logger, requireVerification, time.Hour, false)
}

func TestSignUpAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService(t, false)

	u, err := svc.SignUp(ctx, "alice", "a@x.com", "secret1")
	require.NoError(t, err)
	assert.True(t, u.IsVerified)
	assert.True(t, u.IsAcceptingMessages)
	assert.NotEqual(t, "secret1", u.PasswordHash)

	// by username
	p, err := svc.Authenticate(ctx, "alice", "secret1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, p.ID)
	assert.Equal(t, "alice", p.Username)

	// by email
	p, err = svc.Authenticate(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, p.ID)

	_, err = svc.Authenticate(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidPassword)

	_, err = svc.Authenticate(ctx, "nobody", "x")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestSignUpDuplicates(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService(t, false)

	_, err := svc.SignUp(ctx, "alice", "a@x.com", "secret1")
	require.NoError(t, err)

	_, err = svc.SignUp(ctx, "alice", "b@x.com", "secret1")
	assert.ErrorIs(t, err, repository.ErrDuplicateUsername)

	_, err = svc.SignUp(ctx, "bob", "a@x.com", "secret1")
	assert.ErrorIs(t, err, repository.ErrDuplicateEmail)
}

func TestProjectionNeverCarriesHash(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService(t, false)

	_, err := svc.SignUp(ctx, "alice", "a@x.com", "secret1")
	require.NoError(t, err)
	p, err := svc.Authenticate(ctx, "alice", "secret1")
	require.NoError(t, err)

	pair, err := svc.IssueTokens(p)
	require.NoError(t, err)

	claims, err := svc.JWT.ResolveAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, p, claims.Projection())
}

func TestRefreshReflectsStoreState(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService(t, false)

	u, err := svc.SignUp(ctx, "alice", "a@x.com", "secret1")
	require.NoError(t, err)
	pair, err := svc.IssueTokens(u.Project())
	require.NoError(t, err)

	// toggle acceptance off behind the session's back
	off := false
	_, err = svc.Store.Update(ctx, u.ID, repository.UserPatch{IsAcceptingMessages: &off})
	require.NoError(t, err)

	rotated, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	claims, err := svc.JWT.ResolveAccessToken(rotated.AccessToken)
	require.NoError(t, err)
	assert.False(t, claims.IsAcceptingMessages, "rotated token must carry current store state")

	_, err = svc.Refresh(ctx, "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyCodeFlow(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService(t, true)

	u, err := svc.SignUp(ctx, "alice", "a@x.com", "secret1")
	require.NoError(t, err)
	assert.False(t, u.IsVerified)
	require.NotEmpty(t, u.VerifyCode)

	assert.ErrorIs(t, svc.VerifyCode(ctx, "nobody", u.VerifyCode), ErrUserNotFound)
	assert.ErrorIs(t, svc.VerifyCode(ctx, "alice", "000000x"), ErrIncorrectCode)

	require.NoError(t, svc.VerifyCode(ctx, "alice", u.VerifyCode))

	got, err := svc.Store.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, got.IsVerified)
	assert.Empty(t, got.VerifyCode)

	// code is single-use
	assert.ErrorIs(t, svc.VerifyCode(ctx, "alice", u.VerifyCode), ErrIncorrectCode)
}

func TestVerifyCodeExpired(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService(t, true)
	svc.VerifyCodeTTL = -time.Minute // already expired at creation

	u, err := svc.SignUp(ctx, "alice", "a@x.com", "secret1")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.VerifyCode(ctx, "alice", u.VerifyCode), ErrCodeExpired)
}

func TestUsernameTaken(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService(t, false)

	taken, err := svc.UsernameTaken(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, taken)

	_, err = svc.SignUp(ctx, "alice", "a@x.com", "secret1")
	require.NoError(t, err)

	taken, err = svc.UsernameTaken(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, taken)
}
