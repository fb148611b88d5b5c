// Package filestore is the development substitute for the postgres store.
// State lives in one JSON document on disk ({users: [...], nextId: N}) and
// is rewritten wholesale on every mutation. A store-wide mutex serializes
// writers within the process; concurrent processes are not coordinated.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"whisperbox/internal/domain/entity"
	"whisperbox/internal/domain/repository"
)

type storedMessage struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Older dev data files use "_id" and "password" keys. Loading accepts both
// spellings; saving always writes the current ones.
func (m *storedMessage) UnmarshalJSON(b []byte) error {
	type plain storedMessage
	aux := struct {
		*plain
		LegacyID string `json:"_id"`
	}{plain: (*plain)(m)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if m.ID == "" {
		m.ID = aux.LegacyID
	}
	return nil
}

type storedUser struct {
	ID                  string          `json:"id"`
	Username            string          `json:"username"`
	Email               string          `json:"email"`
	PasswordHash        string          `json:"passwordHash"`
	IsVerified          bool            `json:"isVerified"`
	VerifyCode          string          `json:"verifyCode,omitempty"`
	VerifyCodeExpiry    time.Time       `json:"verifyCodeExpiry,omitempty"`
	IsAcceptingMessages bool            `json:"isAcceptingMessages"`
	Messages            []storedMessage `json:"messages"`
	CreatedAt           time.Time       `json:"createdAt"`
	UpdatedAt           time.Time       `json:"updatedAt"`
}

func (u *storedUser) UnmarshalJSON(b []byte) error {
	type plain storedUser
	aux := struct {
		*plain
		LegacyID       string `json:"_id"`
		LegacyPassword string `json:"password"`
	}{plain: (*plain)(u)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if u.ID == "" {
		u.ID = aux.LegacyID
	}
	if u.PasswordHash == "" {
		u.PasswordHash = aux.LegacyPassword
	}
	return nil
}

type storageData struct {
	Users  []*storedUser `json:"users"`
	NextID int           `json:"nextId"`
}

type UserStore struct {
	mu     sync.Mutex
	path   string
	logger *logrus.Logger

	users      map[string]*storedUser // by id
	byUsername map[string]string      // username -> id
	byEmail    map[string]string      // email -> id
	nextID     int
}

// Open loads the JSON document at path, creating a fresh one if absent or
// unreadable.
func Open(path string, logger *logrus.Logger) (*UserStore, error) {
	s := &UserStore{
		path:       path,
		logger:     logger,
		users:      map[string]*storedUser{},
		byUsername: map[string]string{},
		byEmail:    map[string]string{},
		nextID:     1,
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *UserStore) Close() error { return nil }

func (s *UserStore) load() error {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return s.saveLocked()
	}
	if err != nil {
		return fmt.Errorf("read storage file: %w", err)
	}
	var data storageData
	if err := json.Unmarshal(raw, &data); err != nil {
		// Corrupt dev data is not worth dying over; start over.
		s.logger.WithError(err).Warn("storage file unreadable, starting fresh")
		return s.saveLocked()
	}
	if data.NextID > 0 {
		s.nextID = data.NextID
	}
	for _, u := range data.Users {
		s.users[u.ID] = u
		s.byUsername[u.Username] = u.ID
		s.byEmail[u.Email] = u.ID
	}
	s.logger.WithFields(logrus.Fields{"users": len(s.users), "path": s.path}).Debug("filestore loaded")
	return nil
}

// saveLocked rewrites the whole document. Callers must hold mu (or be the
// single-threaded loader).
func (s *UserStore) saveLocked() error {
	data := storageData{Users: make([]*storedUser, 0, len(s.users)), NextID: s.nextID}
	for _, u := range s.users {
		data.Users = append(data.Users, u)
	}
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, b, 0o600)
}

func (s *UserStore) FindByID(ctx context.Context, id string) (*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return toEntity(u), nil
}

func (s *UserStore) FindByUsername(ctx context.Context, username string) (*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byUsername[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return toEntity(s.users[id]), nil
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return toEntity(s.users[id]), nil
}

func (s *UserStore) Create(ctx context.Context, nu repository.NewUser) (*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Uniqueness is checked before any state changes.
	if _, exists := s.byUsername[nu.Username]; exists {
		return nil, repository.ErrDuplicateUsername
	}
	if _, exists := s.byEmail[nu.Email]; exists {
		return nil, repository.ErrDuplicateEmail
	}

	now := time.Now().UTC()
	u := &storedUser{
		ID:                  strconv.Itoa(s.nextID),
		Username:            nu.Username,
		Email:               nu.Email,
		PasswordHash:        nu.PasswordHash,
		IsVerified:          nu.IsVerified,
		VerifyCode:          nu.VerifyCode,
		VerifyCodeExpiry:    nu.VerifyCodeExpiry,
		IsAcceptingMessages: nu.IsAcceptingMessages,
		Messages:            []storedMessage{},
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	s.nextID++
	s.users[u.ID] = u
	s.byUsername[u.Username] = u.ID
	s.byEmail[u.Email] = u.ID

	if err := s.saveLocked(); err != nil {
		return nil, err
	}
	return toEntity(u), nil
}

func (s *UserStore) Update(ctx context.Context, id string, patch repository.UserPatch) (*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if patch.IsVerified != nil {
		u.IsVerified = *patch.IsVerified
	}
	if patch.VerifyCode != nil {
		u.VerifyCode = *patch.VerifyCode
	}
	if patch.VerifyCodeExpiry != nil {
		u.VerifyCodeExpiry = *patch.VerifyCodeExpiry
	}
	if patch.IsAcceptingMessages != nil {
		u.IsAcceptingMessages = *patch.IsAcceptingMessages
	}
	u.UpdatedAt = time.Now().UTC()

	if err := s.saveLocked(); err != nil {
		return nil, err
	}
	return toEntity(u), nil
}

func (s *UserStore) AppendMessage(ctx context.Context, userID string, msg entity.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	u.Messages = append(u.Messages, storedMessage{ID: msg.ID, Content: msg.Content, CreatedAt: msg.CreatedAt})
	u.UpdatedAt = time.Now().UTC()
	return s.saveLocked()
}

func (s *UserStore) RemoveMessage(ctx context.Context, userID, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	for i, m := range u.Messages {
		if m.ID == messageID {
			u.Messages = append(u.Messages[:i], u.Messages[i+1:]...)
			u.UpdatedAt = time.Now().UTC()
			return s.saveLocked()
		}
	}
	return repository.ErrMessageNotFound
}

func (s *UserStore) ListAll(ctx context.Context) ([]*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*entity.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, toEntity(u))
	}
	return out, nil
}

// toEntity copies the stored record so callers cannot mutate store state
// behind the mutex.
func toEntity(u *storedUser) *entity.User {
	msgs := make([]entity.Message, len(u.Messages))
	for i, m := range u.Messages {
		msgs[i] = entity.Message{ID: m.ID, Content: m.Content, CreatedAt: m.CreatedAt}
	}
	return &entity.User{
		ID:                  u.ID,
		Username:            u.Username,
		Email:               u.Email,
		PasswordHash:        u.PasswordHash,
		IsVerified:          u.IsVerified,
		VerifyCode:          u.VerifyCode,
		VerifyCodeExpiry:    u.VerifyCodeExpiry,
		IsAcceptingMessages: u.IsAcceptingMessages,
		Messages:            msgs,
		CreatedAt:           u.CreatedAt,
		UpdatedAt:           u.UpdatedAt,
	}
}

var _ repository.UserStore = (*UserStore)(nil)
