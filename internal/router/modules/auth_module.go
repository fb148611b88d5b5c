package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"whisperbox/internal/container"
	handlers "whisperbox/internal/interface/http"
	"whisperbox/internal/interface/middleware"
)

type AuthModule struct {
	Handler *handlers.AuthHandler
}

func NewAuthModule(h *handlers.AuthHandler) *AuthModule {
	return &AuthModule{Handler: h}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	rdb := container.GetRedis()
	signUpLimiter := middleware.RateLimit(rdb, 10, time.Minute, middleware.KeyByIPAndPath(), nil)
	signInLimiter := middleware.RateLimit(rdb, 10, time.Minute, middleware.KeyByIP(), nil)
	verifyLimiter := middleware.RateLimit(rdb, 30, time.Minute, middleware.KeyByIPAndPath(), nil)

	rg.POST("/sign-up", signUpLimiter, m.Handler.SignUp)
	rg.POST("/sign-in", signInLimiter, m.Handler.SignIn)
	rg.POST("/sign-out", m.Handler.SignOut)
	rg.POST("/refresh", m.Handler.Refresh)
	rg.POST("/verify-code", verifyLimiter, m.Handler.VerifyCode)
	rg.GET("/check-username-unique", m.Handler.CheckUsername)
}
