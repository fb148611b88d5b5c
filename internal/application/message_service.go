package application

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"whisperbox/internal/domain/entity"
	"whisperbox/internal/domain/repository"
)

// ErrNotAccepting is returned when the target user has message acceptance
// toggled off.
var ErrNotAccepting = errors.New("user is not accepting messages")

// MessageService implements the anonymous message operations on top of the
// user store.
type MessageService struct {
	Store  repository.UserStore
	Logger *logrus.Logger
}

func NewMessageService(store repository.UserStore, logger *logrus.Logger) *MessageService {
	return &MessageService{Store: store, Logger: logger}
}

// Send appends an anonymous message to the named user's collection. Callers
// are not authenticated; only the target's acceptance flag gates delivery.
func (s *MessageService) Send(ctx context.Context, username, content string) error {
	u, err := s.Store.FindByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}
	if !u.IsAcceptingMessages {
		return ErrNotAccepting
	}
	msg := entity.Message{
		ID:        uuid.NewString(),
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Store.AppendMessage(ctx, u.ID, msg); err != nil {
		return err
	}
	s.Logger.WithField("target", username).Debug("message delivered")
	return nil
}

// ListForOwner returns the owner's messages newest first. The descending
// order is a presentation guarantee; the store keeps insertion order.
func (s *MessageService) ListForOwner(ctx context.Context, userID string) ([]entity.Message, error) {
	u, err := s.Store.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	msgs := make([]entity.Message, len(u.Messages))
	copy(msgs, u.Messages)
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.After(msgs[j].CreatedAt)
	})
	return msgs, nil
}

// Delete removes exactly one message from the owner's collection.
func (s *MessageService) Delete(ctx context.Context, userID, messageID string) error {
	err := s.Store.RemoveMessage(ctx, userID, messageID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}

// Accepting reports the owner's current acceptance flag, read from the
// store rather than the session so toggles are immediately visible.
func (s *MessageService) Accepting(ctx context.Context, userID string) (bool, error) {
	u, err := s.Store.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, ErrUserNotFound
	}
	if err != nil {
		return false, err
	}
	return u.IsAcceptingMessages, nil
}

// SetAccepting toggles the owner's acceptance flag and returns the updated
// user.
func (s *MessageService) SetAccepting(ctx context.Context, userID string, accepting bool) (*entity.User, error) {
	u, err := s.Store.Update(ctx, userID, repository.UserPatch{IsAcceptingMessages: &accepting})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}
