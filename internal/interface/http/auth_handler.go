package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"whisperbox/internal/application"
	"whisperbox/internal/domain/repository"
	"whisperbox/pkg/helpers"
	"whisperbox/pkg/response"
	"whisperbox/pkg/validation"
)

type AuthHandler struct {
	Svc     *application.AuthService
	Logger  *logrus.Logger
	Cookies *helpers.CookieManager
}

func NewAuthHandler(svc *application.AuthService, logger *logrus.Logger, cookieDomain string, cookieSecure bool) *AuthHandler {
	return &AuthHandler{Svc: svc, Logger: logger, Cookies: helpers.NewCookie(cookieDomain, cookieSecure)}
}

type signUpRequest struct {
	Username string `json:"username" binding:"required,uname"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,pwd"`
}

type signInRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

type verifyCodeRequest struct {
	Username string `json:"username" binding:"required"`
	Code     string `json:"code" binding:"required"`
}

// SignUp POST /api/sign-up
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	_, err := h.Svc.SignUp(c.Request.Context(), req.Username, req.Email, req.Password)
	switch {
	case err == nil:
		response.Success[any](c, http.StatusCreated, nil, "User registered successfully! You can now sign in.")
	case errors.Is(err, repository.ErrDuplicateUsername):
		response.Error[any](c, http.StatusBadRequest, "Username is already taken", nil)
	case errors.Is(err, repository.ErrDuplicateEmail):
		response.Error[any](c, http.StatusBadRequest, "User already exists with this email", nil)
	case errors.Is(err, repository.ErrStoreUnavailable):
		response.Error[any](c, http.StatusServiceUnavailable, "Database connection failed. Please try again later.", nil)
	default:
		h.Logger.WithError(err).Error("sign-up failed")
		response.Error[any](c, http.StatusInternalServerError, "Error registering user", nil)
	}
}

// SignIn POST /api/sign-in
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	p, err := h.Svc.Authenticate(c.Request.Context(), req.Identifier, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrStoreUnavailable) {
			response.Error[any](c, http.StatusServiceUnavailable, "Database connection failed. Please try again later.", nil)
			return
		}
		// UserNotFound and InvalidPassword are both credential failures to
		// the outside; no account enumeration through status codes.
		response.Error[any](c, http.StatusUnauthorized, "Invalid credentials", nil)
		return
	}

	pair, err := h.Svc.IssueTokens(p)
	if err != nil {
		h.Logger.WithError(err).WithField("user_id", p.ID).Error("issue tokens failed")
		response.Error[any](c, http.StatusInternalServerError, "Error signing in", nil)
		return
	}
	h.Cookies.SetPair(c, pair.AccessToken, pair.AccessTokenExpiry, pair.RefreshToken, pair.RefreshTokenExpiry)
	response.Success(c, http.StatusOK, p, "Signed in successfully")
}

// SignOut POST /api/sign-out
func (h *AuthHandler) SignOut(c *gin.Context) {
	h.Cookies.Clear(c)
	response.Success[any](c, http.StatusOK, nil, "Signed out")
}

// Refresh POST /api/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	refresh, err := c.Cookie("refresh_token")
	if err != nil || refresh == "" {
		response.Error[any](c, http.StatusUnauthorized, "missing refresh token", nil)
		return
	}
	pair, err := h.Svc.Refresh(c.Request.Context(), refresh)
	if err != nil {
		response.Error[any](c, http.StatusUnauthorized, "invalid refresh token", nil)
		return
	}
	h.Cookies.SetPair(c, pair.AccessToken, pair.AccessTokenExpiry, pair.RefreshToken, pair.RefreshTokenExpiry)
	response.Success[any](c, http.StatusOK, nil, "token refreshed")
}

// VerifyCode POST /api/verify-code
func (h *AuthHandler) VerifyCode(c *gin.Context) {
	var req verifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	err := h.Svc.VerifyCode(c.Request.Context(), req.Username, req.Code)
	switch {
	case err == nil:
		response.Success[any](c, http.StatusOK, nil, "Account verified successfully")
	case errors.Is(err, application.ErrUserNotFound):
		response.Error[any](c, http.StatusNotFound, "User not found", nil)
	case errors.Is(err, application.ErrIncorrectCode):
		response.Error[any](c, http.StatusBadRequest, "Incorrect verification code", nil)
	case errors.Is(err, application.ErrCodeExpired):
		response.Error[any](c, http.StatusBadRequest, "Verification code has expired", nil)
	case errors.Is(err, repository.ErrStoreUnavailable):
		response.Error[any](c, http.StatusServiceUnavailable, "Database connection failed. Please try again later.", nil)
	default:
		h.Logger.WithError(err).Error("verify code failed")
		response.Error[any](c, http.StatusInternalServerError, "Error verifying user", nil)
	}
}

// CheckUsername GET /api/check-username-unique?username=
// HTTP 200 with success=false means the username is taken.
func (h *AuthHandler) CheckUsername(c *gin.Context) {
	username := strings.TrimSpace(c.Query("username"))
	if username == "" {
		response.Error[any](c, http.StatusBadRequest, "Username is required", nil)
		return
	}

	taken, err := h.Svc.UsernameTaken(c.Request.Context(), username)
	if err != nil {
		if errors.Is(err, repository.ErrStoreUnavailable) {
			response.Error[any](c, http.StatusServiceUnavailable, "Database connection failed. Please try again later.", nil)
			return
		}
		h.Logger.WithError(err).Error("check username failed")
		response.Error[any](c, http.StatusInternalServerError, "Error checking username", nil)
		return
	}
	if taken {
		response.Error[any](c, http.StatusOK, "Username is already taken", nil)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "Username is unique")
}
