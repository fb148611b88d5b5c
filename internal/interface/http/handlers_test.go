package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whisperbox/internal/application"
	"whisperbox/internal/domain/entity"
	"whisperbox/internal/domain/repository"
	"whisperbox/internal/infrastructure/filestore"
	"whisperbox/internal/interface/middleware"
	"whisperbox/pkg/helpers"
	"whisperbox/pkg/validation"
)

var initValidation sync.Once

type envelope struct {
	Status  int             `json:"status"`
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testApp struct {
	router *gin.Engine
	auth   *application.AuthService
	msgs   *application.MessageService
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	store, err := filestore.Open(filepath.Join(t.TempDir(), "devdata.json"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return newTestAppWithStore(t, store)
}

func newTestAppWithStore(t *testing.T, store repository.UserStore) *testApp {
	t.Helper()
	initValidation.Do(func() {
		gin.SetMode(gin.TestMode)
		validation.Init()
	})

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	jwt := helpers.NewJWTManager("test-access", "test-refresh", time.Minute, time.Hour)
	authSvc := application.NewAuthService(store, jwt, nil, logger, false, time.Hour, false)
	msgSvc := application.NewMessageService(store, logger)

	authHandler := NewAuthHandler(authSvc, logger, "", false)
	msgHandler := NewMessageHandler(msgSvc, nil, logger)

	r := gin.New()
	api := r.Group("/api")
	api.POST("/sign-up", authHandler.SignUp)
	api.POST("/sign-in", authHandler.SignIn)
	api.POST("/sign-out", authHandler.SignOut)
	api.POST("/refresh", authHandler.Refresh)
	api.POST("/verify-code", authHandler.VerifyCode)
	api.GET("/check-username-unique", authHandler.CheckUsername)
	api.POST("/send-message", msgHandler.Send)

	authed := api.Group("", middleware.Auth(jwt))
	authed.GET("/get-messages", msgHandler.List)
	authed.DELETE("/delete-message/:messageID", msgHandler.Delete)
	authed.GET("/accept-messages", msgHandler.GetAccepting)
	authed.POST("/accept-messages", msgHandler.SetAccepting)

	return &testApp{router: r, auth: authSvc, msgs: msgSvc}
}

func (a *testApp) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

func (a *testApp) signUp(t *testing.T, username, email, password string) {
	t.Helper()
	w, _ := a.do(t, http.MethodPost, "/api/sign-up", gin.H{
		"username": username, "email": email, "password": password,
	})
	require.Equal(t, http.StatusCreated, w.Code)
}

// signIn returns the session cookies from a successful sign-in.
func (a *testApp) signIn(t *testing.T, identifier, password string) []*http.Cookie {
	t.Helper()
	w, _ := a.do(t, http.MethodPost, "/api/sign-in", gin.H{
		"identifier": identifier, "password": password,
	})
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies
}

func TestSignUp(t *testing.T) {
	app := newTestApp(t)

	w, env := app.do(t, http.MethodPost, "/api/sign-up", gin.H{
		"username": "alice", "email": "a@x.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, env.Success)

	w, env = app.do(t, http.MethodPost, "/api/sign-up", gin.H{
		"username": "alice", "email": "other@x.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Username is already taken", env.Message)

	w, env = app.do(t, http.MethodPost, "/api/sign-up", gin.H{
		"username": "alice2", "email": "a@x.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "User already exists with this email", env.Message)
}

func TestSignUpValidation(t *testing.T) {
	app := newTestApp(t)

	cases := []gin.H{
		{"username": "alice", "email": "a@x.com", "password": "short"},
		{"username": "a", "email": "a@x.com", "password": "secret1"},
		{"username": "has space", "email": "a@x.com", "password": "secret1"},
		{"username": "alice", "email": "not-an-email", "password": "secret1"},
		{"username": "alice", "password": "secret1"},
	}
	for _, body := range cases {
		w, env := app.do(t, http.MethodPost, "/api/sign-up", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body: %v", body)
		assert.False(t, env.Success)
	}
}

func TestSignIn(t *testing.T) {
	app := newTestApp(t)
	app.signUp(t, "alice", "a@x.com", "secret1")

	// by email and by username
	for _, ident := range []string{"a@x.com", "alice"} {
		w, env := app.do(t, http.MethodPost, "/api/sign-in", gin.H{
			"identifier": ident, "password": "secret1",
		})
		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, env.Success)

		names := make(map[string]bool)
		for _, c := range w.Result().Cookies() {
			names[c.Name] = c.HttpOnly
		}
		assert.True(t, names["access_token"])
		assert.True(t, names["refresh_token"])
	}
}

func TestSignInRejectsBadCredentials(t *testing.T) {
	app := newTestApp(t)
	app.signUp(t, "alice", "a@x.com", "secret1")

	// wrong password and unknown user are indistinguishable
	for _, body := range []gin.H{
		{"identifier": "alice", "password": "wrong00"},
		{"identifier": "nobody", "password": "secret1"},
	} {
		w, env := app.do(t, http.MethodPost, "/api/sign-in", body)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Invalid credentials", env.Message)
	}
}

func TestCheckUsername(t *testing.T) {
	app := newTestApp(t)
	app.signUp(t, "alice", "a@x.com", "secret1")

	w, env := app.do(t, http.MethodGet, "/api/check-username-unique?username=alice", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "Username is already taken", env.Message)

	w, env = app.do(t, http.MethodGet, "/api/check-username-unique?username=bob", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
	assert.Equal(t, "Username is unique", env.Message)

	w, _ = app.do(t, http.MethodGet, "/api/check-username-unique", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSendMessage(t *testing.T) {
	app := newTestApp(t)
	app.signUp(t, "alice", "a@x.com", "secret1")

	w, _ := app.do(t, http.MethodPost, "/api/send-message", gin.H{
		"username": "alice", "content": "hello",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	w, env := app.do(t, http.MethodPost, "/api/send-message", gin.H{
		"username": "nobody", "content": "hello",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "User not found", env.Message)

	w, _ = app.do(t, http.MethodPost, "/api/send-message", gin.H{"username": "alice"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSendMessageForbiddenWhenNotAccepting(t *testing.T) {
	app := newTestApp(t)
	app.signUp(t, "alice", "a@x.com", "secret1")
	cookies := app.signIn(t, "alice", "secret1")

	w, _ := app.do(t, http.MethodPost, "/api/accept-messages", gin.H{"acceptMessages": false}, cookies...)
	require.Equal(t, http.StatusOK, w.Code)

	w, env := app.do(t, http.MethodPost, "/api/send-message", gin.H{
		"username": "alice", "content": "hello",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "User is not accepting messages", env.Message)
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	app := newTestApp(t)

	w, _ := app.do(t, http.MethodGet, "/api/get-messages", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	bad := &http.Cookie{Name: "access_token", Value: "not-a-token"}
	w, _ = app.do(t, http.MethodGet, "/api/get-messages", nil, bad)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListAndDeleteMessages(t *testing.T) {
	app := newTestApp(t)
	app.signUp(t, "alice", "a@x.com", "secret1")
	cookies := app.signIn(t, "alice", "secret1")

	for _, content := range []string{"one", "two"} {
		w, _ := app.do(t, http.MethodPost, "/api/send-message", gin.H{
			"username": "alice", "content": content,
		})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w, env := app.do(t, http.MethodGet, "/api/get-messages", nil, cookies...)
	require.Equal(t, http.StatusOK, w.Code)
	var data struct {
		Messages []struct {
			ID      string `json:"id"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data.Messages, 2)

	w, _ = app.do(t, http.MethodDelete, "/api/delete-message/"+data.Messages[0].ID, nil, cookies...)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = app.do(t, http.MethodDelete, "/api/delete-message/"+data.Messages[0].ID, nil, cookies...)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Message not found or already deleted", env.Message)

	w, env = app.do(t, http.MethodGet, "/api/get-messages", nil, cookies...)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Len(t, data.Messages, 1)
}

func TestAcceptMessagesToggle(t *testing.T) {
	app := newTestApp(t)
	app.signUp(t, "alice", "a@x.com", "secret1")
	cookies := app.signIn(t, "alice", "secret1")

	w, env := app.do(t, http.MethodGet, "/api/accept-messages", nil, cookies...)
	require.Equal(t, http.StatusOK, w.Code)
	var status struct {
		IsAcceptingMessages bool `json:"isAcceptingMessages"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.True(t, status.IsAcceptingMessages)

	w, env = app.do(t, http.MethodPost, "/api/accept-messages", gin.H{"acceptMessages": false}, cookies...)
	require.Equal(t, http.StatusOK, w.Code)
	var updated struct {
		UpdatedUser struct {
			Username            string `json:"username"`
			IsAcceptingMessages bool   `json:"isAcceptingMessages"`
		} `json:"updatedUser"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.Equal(t, "alice", updated.UpdatedUser.Username)
	assert.False(t, updated.UpdatedUser.IsAcceptingMessages)

	// the store, not the stale session, answers the follow-up read
	w, env = app.do(t, http.MethodGet, "/api/accept-messages", nil, cookies...)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.False(t, status.IsAcceptingMessages)

	w, _ = app.do(t, http.MethodPost, "/api/accept-messages", gin.H{}, cookies...)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRefresh(t *testing.T) {
	app := newTestApp(t)
	app.signUp(t, "alice", "a@x.com", "secret1")
	cookies := app.signIn(t, "alice", "secret1")

	var refresh *http.Cookie
	for _, c := range cookies {
		if c.Name == "refresh_token" {
			refresh = c
		}
	}
	require.NotNil(t, refresh)

	w, _ := app.do(t, http.MethodPost, "/api/refresh", nil, refresh)
	assert.Equal(t, http.StatusOK, w.Code)

	names := make(map[string]bool)
	for _, c := range w.Result().Cookies() {
		names[c.Name] = true
	}
	assert.True(t, names["access_token"])
	assert.True(t, names["refresh_token"])

	w, _ = app.do(t, http.MethodPost, "/api/refresh", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestVerifyCode(t *testing.T) {
	app := newTestApp(t)

	// register through the service so the code is reachable
	u, err := app.auth.SignUp(context.Background(), "alice", "a@x.com", "secret1")
	require.NoError(t, err)
	require.NotEmpty(t, u.VerifyCode)

	w, _ := app.do(t, http.MethodPost, "/api/verify-code", gin.H{
		"username": "nobody", "code": u.VerifyCode,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env := app.do(t, http.MethodPost, "/api/verify-code", gin.H{
		"username": "alice", "code": "000000x",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Incorrect verification code", env.Message)

	w, _ = app.do(t, http.MethodPost, "/api/verify-code", gin.H{
		"username": "alice", "code": u.VerifyCode,
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

// downStore simulates an unreachable durable backend: every operation fails
// with ErrStoreUnavailable.
type downStore struct{}

func (downStore) FindByID(context.Context, string) (*entity.User, error) {
	return nil, repository.ErrStoreUnavailable
}
func (downStore) FindByUsername(context.Context, string) (*entity.User, error) {
	return nil, repository.ErrStoreUnavailable
}
func (downStore) FindByEmail(context.Context, string) (*entity.User, error) {
	return nil, repository.ErrStoreUnavailable
}
func (downStore) Create(context.Context, repository.NewUser) (*entity.User, error) {
	return nil, repository.ErrStoreUnavailable
}
func (downStore) Update(context.Context, string, repository.UserPatch) (*entity.User, error) {
	return nil, repository.ErrStoreUnavailable
}
func (downStore) AppendMessage(context.Context, string, entity.Message) error {
	return repository.ErrStoreUnavailable
}
func (downStore) RemoveMessage(context.Context, string, string) error {
	return repository.ErrStoreUnavailable
}
func (downStore) ListAll(context.Context) ([]*entity.User, error) {
	return nil, repository.ErrStoreUnavailable
}
func (downStore) Close() error { return nil }

func TestStoreOutageAnswers503(t *testing.T) {
	app := newTestAppWithStore(t, downStore{})

	requests := []struct {
		method, path string
		body         gin.H
	}{
		{http.MethodPost, "/api/sign-up", gin.H{"username": "alice", "email": "a@x.com", "password": "secret1"}},
		{http.MethodPost, "/api/sign-in", gin.H{"identifier": "alice", "password": "secret1"}},
		{http.MethodPost, "/api/send-message", gin.H{"username": "alice", "content": "hello"}},
	}
	for _, r := range requests {
		w, env := app.do(t, r.method, r.path, r.body)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, "%s %s", r.method, r.path)
		assert.False(t, env.Success)
		assert.Equal(t, "Database connection failed. Please try again later.", env.Message)
	}
}
