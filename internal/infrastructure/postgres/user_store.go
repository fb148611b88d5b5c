package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"whisperbox/internal/domain/entity"
	"whisperbox/internal/domain/repository"
)

// opTimeout bounds every store operation so a flapping database surfaces
// as ErrStoreUnavailable instead of a hung request.
const opTimeout = 5 * time.Second

type UserStore struct {
	pool *pgxpool.Pool
}

func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

func (s *UserStore) Close() error {
	s.pool.Close()
	return nil
}

const userColumns = `id, username, email, password_hash, is_verified,
	coalesce(verify_code, ''), coalesce(verify_code_expiry, 'epoch'::timestamptz),
	is_accepting_messages, created_at, updated_at`

func (s *UserStore) FindByID(ctx context.Context, id string) (*entity.User, error) {
	return s.findOne(ctx, `WHERE id::text = $1`, id)
}

func (s *UserStore) FindByUsername(ctx context.Context, username string) (*entity.User, error) {
	return s.findOne(ctx, `WHERE username = $1`, username)
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return s.findOne(ctx, `WHERE email = $1`, email)
}

func (s *UserStore) findOne(ctx context.Context, where string, arg any) (*entity.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	u := &entity.User{}
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users `+where, arg)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsVerified,
		&u.VerifyCode, &u.VerifyCodeExpiry, &u.IsAcceptingMessages,
		&u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	if err := s.loadMessages(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UserStore) loadMessages(ctx context.Context, u *entity.User) error {
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, content, created_at
		FROM messages
		WHERE user_id::text = $1
		ORDER BY created_at ASC
	`, u.ID)
	if err != nil {
		return mapErr(err)
	}
	defer rows.Close()

	for rows.Next() {
		var m entity.Message
		if err := rows.Scan(&m.ID, &m.Content, &m.CreatedAt); err != nil {
			return mapErr(err)
		}
		u.Messages = append(u.Messages, m)
	}
	return mapErr(rows.Err())
}

func (s *UserStore) Create(ctx context.Context, nu repository.NewUser) (*entity.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	u := &entity.User{
		Username:            nu.Username,
		Email:               nu.Email,
		PasswordHash:        nu.PasswordHash,
		IsVerified:          nu.IsVerified,
		VerifyCode:          nu.VerifyCode,
		VerifyCodeExpiry:    nu.VerifyCodeExpiry,
		IsAcceptingMessages: nu.IsAcceptingMessages,
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO users (username, email, password_hash, is_verified, verify_code, verify_code_expiry, is_accepting_messages)
		VALUES ($1, $2, $3, $4, nullif($5, ''), nullif($6, 'epoch'::timestamptz), $7)
		RETURNING id, created_at, updated_at
	`, nu.Username, nu.Email, nu.PasswordHash, nu.IsVerified, nu.VerifyCode, nu.VerifyCodeExpiry, nu.IsAcceptingMessages)

	if err := row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	return u, nil
}

func (s *UserStore) Update(ctx context.Context, id string, patch repository.UserPatch) (*entity.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	// coalesce keeps columns untouched when the patch field is nil.
	res, err := s.pool.Exec(ctx, `
		UPDATE users SET
			is_verified           = coalesce($2, is_verified),
			verify_code           = coalesce($3, verify_code),
			verify_code_expiry    = coalesce($4, verify_code_expiry),
			is_accepting_messages = coalesce($5, is_accepting_messages),
			updated_at            = now()
		WHERE id::text = $1
	`, id, patch.IsVerified, patch.VerifyCode, patch.VerifyCodeExpiry, patch.IsAcceptingMessages)
	if err != nil {
		return nil, mapErr(err)
	}
	if res.RowsAffected() == 0 {
		return nil, repository.ErrNotFound
	}
	return s.FindByID(ctx, id)
}

// AppendMessage is a single INSERT, so concurrent sends to the same user
// cannot lose each other's writes.
func (s *UserStore) AppendMessage(ctx context.Context, userID string, msg entity.Message) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO messages (id, user_id, content, created_at)
		VALUES ($1, (SELECT id FROM users WHERE id::text = $2), $3, $4)
	`, msg.ID, userID, msg.Content, msg.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		// not-null violation on user_id means the owner does not exist
		if errors.As(err, &pgErr) && pgErr.Code == "23502" {
			return repository.ErrNotFound
		}
		return mapErr(err)
	}
	return nil
}

func (s *UserStore) RemoveMessage(ctx context.Context, userID, messageID string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := s.pool.Exec(ctx, `
		DELETE FROM messages WHERE id::text = $1 AND user_id::text = $2
	`, messageID, userID)
	if err != nil {
		return mapErr(err)
	}
	if res.RowsAffected() == 0 {
		return repository.ErrMessageNotFound
	}
	return nil
}

func (s *UserStore) ListAll(ctx context.Context) ([]*entity.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at ASC`)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []*entity.User
	for rows.Next() {
		u := &entity.User{}
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsVerified,
			&u.VerifyCode, &u.VerifyCodeExpiry, &u.IsAcceptingMessages,
			&u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err)
	}
	for _, u := range out {
		if err := s.loadMessages(ctx, u); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// mapErr converts driver errors into the store's sentinel errors.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		switch pgErr.ConstraintName {
		case "users_email_key":
			return repository.ErrDuplicateEmail
		default:
			return repository.ErrDuplicateUsername
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return repository.ErrStoreUnavailable
	}
	return err
}

var _ repository.UserStore = (*UserStore)(nil)
