package application

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"whisperbox/internal/domain/entity"
	"whisperbox/internal/domain/repository"
	"whisperbox/pkg/helpers"
	"whisperbox/pkg/mailer"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrInvalidPassword = errors.New("incorrect password")
	ErrInvalidToken    = errors.New("invalid session token")
	ErrIncorrectCode   = errors.New("incorrect verification code")
	ErrCodeExpired     = errors.New("verification code expired")
)

// TokenPair is an issued access/refresh token set.
type TokenPair struct {
	AccessToken        string
	AccessTokenExpiry  time.Time
	RefreshToken       string
	RefreshTokenExpiry time.Time
}

// AuthService covers sign-up, credential verification, session issuance and
// the verification-code flow.
type AuthService struct {
	Store  repository.UserStore
	JWT    *helpers.JWTManager
	Pub    *helpers.RabbitPublisher
	Logger *logrus.Logger

	RequireVerification bool
	VerifyCodeTTL       time.Duration
	MailEnabled         bool
}

func NewAuthService(store repository.UserStore, jwt *helpers.JWTManager, pub *helpers.RabbitPublisher, logger *logrus.Logger, requireVerification bool, verifyTTL time.Duration, mailEnabled bool) *AuthService {
	return &AuthService{
		Store:               store,
		JWT:                 jwt,
		Pub:                 pub,
		Logger:              logger,
		RequireVerification: requireVerification,
		VerifyCodeTTL:       verifyTTL,
		MailEnabled:         mailEnabled,
	}
}

// SignUp hashes the password, creates the user and enqueues the verification
// email. Uniqueness failures surface as the store's duplicate errors before
// any state changes.
func (s *AuthService) SignUp(ctx context.Context, username, email, password string) (*entity.User, error) {
	hash, err := helpers.HashPassword(password)
	if err != nil {
		return nil, err
	}
	code, err := helpers.GenVerifyCode()
	if err != nil {
		return nil, err
	}

	u, err := s.Store.Create(ctx, repository.NewUser{
		Username:            username,
		Email:               email,
		PasswordHash:        hash,
		IsVerified:          !s.RequireVerification,
		VerifyCode:          code,
		VerifyCodeExpiry:    time.Now().Add(s.VerifyCodeTTL).UTC(),
		IsAcceptingMessages: true,
	})
	if err != nil {
		return nil, err
	}
	s.Logger.WithFields(logrus.Fields{"username": u.Username, "id": u.ID}).Info("user registered")

	if s.Pub != nil && s.MailEnabled {
		job := mailer.EmailJob{
			To:       u.Email,
			Template: "verify_code",
			Data: map[string]any{
				"Username":  u.Username,
				"Code":      code,
				"ExpiresIn": s.VerifyCodeTTL.String(),
			},
		}
		if err := s.Pub.PublishJSON(ctx, job); err != nil {
			// Registration already succeeded; a lost email is recoverable
			// via verify-code re-request, so only log.
			s.Logger.WithError(err).WithField("username", u.Username).Warn("enqueue verification email failed")
		}
	}
	return u, nil
}

// Authenticate looks the user up by email first, then username, and checks
// the password hash. The returned projection never contains the hash.
func (s *AuthService) Authenticate(ctx context.Context, identifier, password string) (entity.Projection, error) {
	u, err := s.Store.FindByEmail(ctx, identifier)
	if errors.Is(err, repository.ErrNotFound) {
		u, err = s.Store.FindByUsername(ctx, identifier)
	}
	if errors.Is(err, repository.ErrNotFound) {
		return entity.Projection{}, ErrUserNotFound
	}
	if err != nil {
		return entity.Projection{}, err
	}
	if !helpers.CheckPassword(u.PasswordHash, password) {
		return entity.Projection{}, ErrInvalidPassword
	}
	return u.Project(), nil
}

// IssueTokens generates the access/refresh pair carrying the projection.
func (s *AuthService) IssueTokens(p entity.Projection) (TokenPair, error) {
	access, aexp, err := s.JWT.IssueAccessToken(p)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, rexp, err := s.JWT.IssueRefreshToken(p)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, AccessTokenExpiry: aexp, RefreshToken: refresh, RefreshTokenExpiry: rexp}, nil
}

// Refresh validates the refresh token and issues a new pair. Claims are
// untrusted input: the user is re-read from the store so rotated tokens pick
// up current field values.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.JWT.ResolveRefreshToken(refreshToken)
	if err != nil {
		return TokenPair{}, ErrInvalidToken
	}
	u, err := s.Store.FindByID(ctx, claims.Subject)
	if err != nil {
		return TokenPair{}, ErrUserNotFound
	}
	return s.IssueTokens(u.Project())
}

// VerifyCode confirms the emailed code and marks the account verified,
// clearing the code fields.
func (s *AuthService) VerifyCode(ctx context.Context, username, code string) error {
	u, err := s.Store.FindByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}
	if u.VerifyCode == "" || u.VerifyCode != code {
		return ErrIncorrectCode
	}
	if !u.VerifyCodeExpiry.IsZero() && time.Now().After(u.VerifyCodeExpiry) {
		return ErrCodeExpired
	}

	verified := true
	empty := ""
	var zero time.Time
	_, err = s.Store.Update(ctx, u.ID, repository.UserPatch{
		IsVerified:       &verified,
		VerifyCode:       &empty,
		VerifyCodeExpiry: &zero,
	})
	return err
}

// UsernameTaken reports whether a username is already registered.
func (s *AuthService) UsernameTaken(ctx context.Context, username string) (bool, error) {
	_, err := s.Store.FindByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
