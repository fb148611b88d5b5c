package repository

import (
	"context"
	"errors"
	"time"

	"whisperbox/internal/domain/entity"
)

// Store errors. Handlers map these onto HTTP status codes; backends must
// return exactly these sentinels (wrapped is fine) for the conditions below.
var (
	// ErrNotFound indicates the user does not exist.
	ErrNotFound = errors.New("user not found")

	// ErrMessageNotFound indicates the message id is absent from the
	// owner's collection.
	ErrMessageNotFound = errors.New("message not found")

	// ErrDuplicateUsername / ErrDuplicateEmail indicate a uniqueness
	// violation detected before any mutation was applied.
	ErrDuplicateUsername = errors.New("username is already taken")
	ErrDuplicateEmail    = errors.New("email is already registered")

	// ErrStoreUnavailable indicates the durable backend could not be
	// reached within its timeout. Recoverable, per-request.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// NewUser carries the fields a caller supplies at creation. The store
// assigns the id and timestamps.
type NewUser struct {
	Username            string
	Email               string
	PasswordHash        string
	IsVerified          bool
	VerifyCode          string
	VerifyCodeExpiry    time.Time
	IsAcceptingMessages bool
}

// UserPatch is a shallow partial update. Nil fields are left untouched.
type UserPatch struct {
	IsVerified          *bool
	VerifyCode          *string
	VerifyCodeExpiry    *time.Time
	IsAcceptingMessages *bool
}

// UserStore is the single persistence contract both backends satisfy.
// The postgres variant is the source of truth in production; the file
// variant is a degraded-mode substitute for development. Call sites never
// learn which one is active.
type UserStore interface {
	FindByID(ctx context.Context, id string) (*entity.User, error)
	FindByUsername(ctx context.Context, username string) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)

	Create(ctx context.Context, nu NewUser) (*entity.User, error)
	Update(ctx context.Context, id string, patch UserPatch) (*entity.User, error)

	AppendMessage(ctx context.Context, userID string, msg entity.Message) error
	RemoveMessage(ctx context.Context, userID, messageID string) error

	// ListAll is for diagnostics only (cmd/diag).
	ListAll(ctx context.Context) ([]*entity.User, error)

	Close() error
}
