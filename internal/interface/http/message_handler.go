package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"whisperbox/internal/application"
	"whisperbox/internal/domain/entity"
	"whisperbox/internal/domain/repository"
	"whisperbox/internal/interface/middleware"
	"whisperbox/pkg/response"
	"whisperbox/pkg/validation"
)

type MessageHandler struct {
	Svc     *application.MessageService
	Suggest *application.SuggestService
	Logger  *logrus.Logger
}

func NewMessageHandler(svc *application.MessageService, suggest *application.SuggestService, logger *logrus.Logger) *MessageHandler {
	return &MessageHandler{Svc: svc, Suggest: suggest, Logger: logger}
}

type sendMessageRequest struct {
	Username string `json:"username" binding:"required"`
	Content  string `json:"content" binding:"required"`
}

type acceptMessagesRequest struct {
	AcceptMessages *bool `json:"acceptMessages" binding:"required"`
}

// userView is the client-safe rendering of a user record.
type userView struct {
	ID                  string `json:"id"`
	Username            string `json:"username"`
	Email               string `json:"email"`
	IsVerified          bool   `json:"isVerified"`
	IsAcceptingMessages bool   `json:"isAcceptingMessages"`
}

func viewOf(u *entity.User) userView {
	return userView{
		ID:                  u.ID,
		Username:            u.Username,
		Email:               u.Email,
		IsVerified:          u.IsVerified,
		IsAcceptingMessages: u.IsAcceptingMessages,
	}
}

// Send POST /api/send-message. Unauthenticated; anyone with the link can
// message a user that is accepting.
func (h *MessageHandler) Send(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "Username and content are required", validation.ToDetails(err))
		return
	}

	err := h.Svc.Send(c.Request.Context(), req.Username, req.Content)
	switch {
	case err == nil:
		response.Success[any](c, http.StatusCreated, nil, "Message sent successfully")
	case errors.Is(err, application.ErrUserNotFound):
		response.Error[any](c, http.StatusNotFound, "User not found", nil)
	case errors.Is(err, application.ErrNotAccepting):
		response.Error[any](c, http.StatusForbidden, "User is not accepting messages", nil)
	case errors.Is(err, repository.ErrStoreUnavailable):
		response.Error[any](c, http.StatusServiceUnavailable, "Database connection failed. Please try again later.", nil)
	default:
		h.Logger.WithError(err).Error("send message failed")
		response.Error[any](c, http.StatusInternalServerError, "Internal server error", nil)
	}
}

// List GET /api/get-messages returns the owner's messages, newest first.
func (h *MessageHandler) List(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	msgs, err := h.Svc.ListForOwner(c.Request.Context(), uid)
	switch {
	case err == nil:
		response.Success(c, http.StatusOK, gin.H{"messages": msgs}, "messages")
	case errors.Is(err, application.ErrUserNotFound):
		response.Error[any](c, http.StatusNotFound, "User not found", nil)
	case errors.Is(err, repository.ErrStoreUnavailable):
		response.Error[any](c, http.StatusServiceUnavailable, "Database connection failed. Please try again later.", nil)
	default:
		h.Logger.WithError(err).Error("list messages failed")
		response.Error[any](c, http.StatusInternalServerError, "Internal server error", nil)
	}
}

// Delete DELETE /api/delete-message/:messageID
func (h *MessageHandler) Delete(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	messageID := c.Param("messageID")

	err := h.Svc.Delete(c.Request.Context(), uid, messageID)
	switch {
	case err == nil:
		response.Success[any](c, http.StatusOK, nil, "Message deleted")
	case errors.Is(err, application.ErrUserNotFound):
		response.Error[any](c, http.StatusNotFound, "User not found", nil)
	case errors.Is(err, repository.ErrMessageNotFound):
		response.Error[any](c, http.StatusNotFound, "Message not found or already deleted", nil)
	case errors.Is(err, repository.ErrStoreUnavailable):
		response.Error[any](c, http.StatusServiceUnavailable, "Database connection failed. Please try again later.", nil)
	default:
		h.Logger.WithError(err).Error("delete message failed")
		response.Error[any](c, http.StatusInternalServerError, "Error deleting message", nil)
	}
}

// GetAccepting GET /api/accept-messages
func (h *MessageHandler) GetAccepting(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	accepting, err := h.Svc.Accepting(c.Request.Context(), uid)
	switch {
	case err == nil:
		response.Success(c, http.StatusOK, gin.H{"isAcceptingMessages": accepting}, "acceptance status")
	case errors.Is(err, application.ErrUserNotFound):
		response.Error[any](c, http.StatusNotFound, "User not found", nil)
	default:
		h.Logger.WithError(err).Error("get acceptance failed")
		response.Error[any](c, http.StatusInternalServerError, "Error retrieving message acceptance status", nil)
	}
}

// SetAccepting POST /api/accept-messages
func (h *MessageHandler) SetAccepting(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	var req acceptMessagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	u, err := h.Svc.SetAccepting(c.Request.Context(), uid, *req.AcceptMessages)
	switch {
	case err == nil:
		response.Success(c, http.StatusOK, gin.H{"updatedUser": viewOf(u)}, "Message acceptance status updated successfully")
	case errors.Is(err, application.ErrUserNotFound):
		response.Error[any](c, http.StatusNotFound, "Unable to find user to update message acceptance status", nil)
	default:
		h.Logger.WithError(err).Error("set acceptance failed")
		response.Error[any](c, http.StatusInternalServerError, "Error updating message acceptance status", nil)
	}
}

// SuggestMessages POST /api/suggest-messages
func (h *MessageHandler) SuggestMessages(c *gin.Context) {
	text, err := h.Suggest.Suggest(c.Request.Context())
	if err != nil {
		h.Logger.WithError(err).Warn("suggestion upstream failed")
		response.Error[any](c, http.StatusBadGateway, "Failed to generate message suggestions", nil)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"text": text}, "suggestions")
}
