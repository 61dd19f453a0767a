// Package api exposes the REST surface of the messaging subsystem.
// It shares the service layer with the websocket gateway, so both entry
// points run the exact same ownership and state validation.
package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/CletsyMedia/musicfy/auth"
	"github.com/CletsyMedia/musicfy/contract"
	"github.com/CletsyMedia/musicfy/errors"
	"github.com/CletsyMedia/musicfy/services"
)

type MessageHandlers struct {
	log      *slog.Logger
	messages services.IMessageService
	registry contract.Registry
}

func NewMessageHandlers(log *slog.Logger, messages services.IMessageService, registry contract.Registry) *MessageHandlers {
	return &MessageHandlers{log: log, messages: messages, registry: registry}
}

type editRequest struct {
	Content string `json:"content"`
}

func (h *MessageHandlers) Edit(c *gin.Context) {
	var body editRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	updated, err := h.messages.Edit(c.Request.Context(), c.Param("id"), body.Content, auth.UserID(c))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Message updated successfully", "data": updated})
}

func (h *MessageHandlers) Delete(c *gin.Context) {
	if err := h.messages.Delete(c.Request.Context(), c.Param("id"), auth.UserID(c)); err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Message deleted successfully"})
}

func (h *MessageHandlers) MarkRead(c *gin.Context) {
	updated, err := h.messages.MarkRead(c.Request.Context(), c.Param("id"), auth.UserID(c))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Message marked as read", "data": updated})
}

// History returns one page of the requester's conversation with the user
// in the path, newest first. This is the offline catch-up read: clients
// refetch after reconnecting instead of replaying missed events.
func (h *MessageHandlers) History(c *gin.Context) {
	var cursor *string
	if raw, ok := c.GetQuery("cursor"); ok {
		cursor = &raw
	}

	messages, next, err := h.messages.History(c.Request.Context(), auth.UserID(c), c.Param("id"), cursor)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages, "cursor": next})
}

func (h *MessageHandlers) OnlineUsers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"users": h.registry.OnlineUsers()})
}

func (h *MessageHandlers) renderError(c *gin.Context, err error) {
	status := errors.MapToHTTPStatus(err)
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"message": err.Error()})
}
