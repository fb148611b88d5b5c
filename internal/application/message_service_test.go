package application

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whisperbox/internal/domain/entity"
	"whisperbox/internal/domain/repository"
	"whisperbox/internal/infrastructure/filestore"
)

func newMessageService(t *testing.T) (*MessageService, *entity.User) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	store, err := filestore.Open(filepath.Join(t.TempDir(), "devdata.json"), logger)
	require.NoError(t, err)

	u, err := store.Create(context.Background(), repository.NewUser{
		Username:            "alice",
		Email:               "a@x.com",
		PasswordHash:        "hash",
		IsVerified:          true,
		IsAcceptingMessages: true,
	})
	require.NoError(t, err)
	return NewMessageService(store, logger), u
}

func TestSendAppendsMessage(t *testing.T) {
	ctx := context.Background()
	svc, u := newMessageService(t)

	require.NoError(t, svc.Send(ctx, "alice", "hello there"))

	msgs, err := svc.ListForOwner(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello there", msgs[0].Content)
	assert.NotEmpty(t, msgs[0].ID)
	assert.False(t, msgs[0].CreatedAt.IsZero())
}

func TestSendToUnknownUser(t *testing.T) {
	ctx := context.Background()
	svc, u := newMessageService(t)

	assert.ErrorIs(t, svc.Send(ctx, "nobody", "hi"), ErrUserNotFound)

	msgs, err := svc.ListForOwner(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs, "failed send must not mutate state")
}

func TestSendRespectsAcceptanceToggle(t *testing.T) {
	ctx := context.Background()
	svc, u := newMessageService(t)

	updated, err := svc.SetAccepting(ctx, u.ID, false)
	require.NoError(t, err)
	assert.False(t, updated.IsAcceptingMessages)

	assert.ErrorIs(t, svc.Send(ctx, "alice", "hi"), ErrNotAccepting)
	msgs, err := svc.ListForOwner(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	_, err = svc.SetAccepting(ctx, u.ID, true)
	require.NoError(t, err)

	require.NoError(t, svc.Send(ctx, "alice", "hi"))
	msgs, err = svc.ListForOwner(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestListNewestFirst(t *testing.T) {
	ctx := context.Background()
	svc, u := newMessageService(t)

	base := time.Now().UTC()
	for i, content := range []string{"first", "second", "third"} {
		err := svc.Store.AppendMessage(ctx, u.ID, entity.Message{
			ID:        content,
			Content:   content,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	msgs, err := svc.ListForOwner(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "third", msgs[0].Content)
	assert.Equal(t, "second", msgs[1].Content)
	assert.Equal(t, "first", msgs[2].Content)
}

func TestDeleteRemovesExactlyOne(t *testing.T) {
	ctx := context.Background()
	svc, u := newMessageService(t)

	require.NoError(t, svc.Send(ctx, "alice", "one"))
	require.NoError(t, svc.Send(ctx, "alice", "two"))

	msgs, err := svc.ListForOwner(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	require.NoError(t, svc.Delete(ctx, u.ID, msgs[0].ID))

	remaining, err := svc.ListForOwner(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.NotEqual(t, msgs[0].ID, remaining[0].ID)

	assert.ErrorIs(t, svc.Delete(ctx, u.ID, msgs[0].ID), repository.ErrMessageNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "missing", "whatever"), ErrUserNotFound)
}

func TestAccepting(t *testing.T) {
	ctx := context.Background()
	svc, u := newMessageService(t)

	on, err := svc.Accepting(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, on)

	_, err = svc.Accepting(ctx, "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
