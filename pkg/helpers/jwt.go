package helpers

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"whisperbox/internal/domain/entity"
)

// JWTManager issues and resolves session tokens. The token is the whole
// session state: claims carry the user projection, nothing is stored
// server side, and revocation before expiry is unsupported.
type JWTManager struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

func NewJWTManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *JWTManager {
	return &JWTManager{
		AccessSecret:  []byte(accessSecret),
		RefreshSecret: []byte(refreshSecret),
		AccessTTL:     accessTTL,
		RefreshTTL:    refreshTTL,
	}
}

// SessionClaims embeds the user projection in the token.
type SessionClaims struct {
	Username            string `json:"username"`
	Email               string `json:"email"`
	IsVerified          bool   `json:"isVerified"`
	IsAcceptingMessages bool   `json:"isAcceptingMessages"`
	jwt.RegisteredClaims
}

// Projection rebuilds the session user from decoded claims.
func (c *SessionClaims) Projection() entity.Projection {
	return entity.Projection{
		ID:                  c.Subject,
		Username:            c.Username,
		Email:               c.Email,
		IsVerified:          c.IsVerified,
		IsAcceptingMessages: c.IsAcceptingMessages,
	}
}

func (m *JWTManager) IssueAccessToken(p entity.Projection) (string, time.Time, error) {
	return m.issue(p, m.AccessSecret, m.AccessTTL)
}

func (m *JWTManager) IssueRefreshToken(p entity.Projection) (string, time.Time, error) {
	return m.issue(p, m.RefreshSecret, m.RefreshTTL)
}

func (m *JWTManager) issue(p entity.Projection, secret []byte, ttl time.Duration) (string, time.Time, error) {
	exp := time.Now().Add(ttl)
	claims := &SessionClaims{
		Username:            p.Username,
		Email:               p.Email,
		IsVerified:          p.IsVerified,
		IsAcceptingMessages: p.IsAcceptingMessages,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := t.SignedString(secret)
	return s, exp, err
}

func (m *JWTManager) ResolveAccessToken(tokenStr string) (*SessionClaims, error) {
	return resolveToken(tokenStr, m.AccessSecret)
}

func (m *JWTManager) ResolveRefreshToken(tokenStr string) (*SessionClaims, error) {
	return resolveToken(tokenStr, m.RefreshSecret)
}

func resolveToken(tokenStr string, secret []byte) (*SessionClaims, error) {
	claims := &SessionClaims{}
	tkn, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !tkn.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
