package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"whisperbox/internal/container"
	handlers "whisperbox/internal/interface/http"
	"whisperbox/internal/interface/middleware"
)

// MessageModule wires the anonymous-message routes.
// Public: POST /api/send-message, POST /api/suggest-messages
// Protected: GET/POST /api/accept-messages, GET /api/get-messages,
// DELETE /api/delete-message/:messageID

type MessageModule struct {
	Handler *handlers.MessageHandler
}

func NewMessageModule(h *handlers.MessageHandler) *MessageModule {
	return &MessageModule{Handler: h}
}

func (m *MessageModule) Register(rg *gin.RouterGroup) {
	rdb := container.GetRedis()
	sendLimiter := middleware.RateLimit(rdb, 30, time.Minute, middleware.KeyByIPAndPath(), nil)
	suggestLimiter := middleware.RateLimit(rdb, 10, time.Minute, middleware.KeyByIPAndPath(), nil)

	rg.POST("/send-message", sendLimiter, m.Handler.Send)
	rg.POST("/suggest-messages", suggestLimiter, m.Handler.SuggestMessages)

	auth := rg.Group("/")
	auth.Use(middleware.Auth(container.GetJWT()))
	auth.Use(middleware.RateLimit(rdb, 120, time.Minute, middleware.KeyByUserID(), nil))
	{
		auth.GET("/accept-messages", m.Handler.GetAccepting)
		auth.POST("/accept-messages", m.Handler.SetAccepting)
		auth.GET("/get-messages", m.Handler.List)
		auth.DELETE("/delete-message/:messageID", m.Handler.Delete)
	}
}
