package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/CletsyMedia/musicfy/auth"
	"github.com/CletsyMedia/musicfy/gateway"
)

// SetupRouter wires the REST surface, the websocket upgrade endpoint and
// the health probe onto one engine. The websocket endpoint carries no
// HTTP-level auth; its hello frame presents the same credential instead.
func SetupRouter(tokens *auth.TokenValidator, ws *gateway.Controller, h *MessageHandlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/socket", ws.Handle)

	authenticated := r.Group("/api", auth.Middleware(tokens))
	{
		messages := authenticated.Group("/messages")
		messages.PUT("/:id", h.Edit)
		messages.PATCH("/:id", h.Edit)
		messages.DELETE("/:id", h.Delete)
		messages.POST("/:id/read", h.MarkRead)
		// :id is the peer's user id here: one page of that conversation.
		messages.GET("/:id", h.History)

		authenticated.GET("/users/online", h.OnlineUsers)
	}

	return r
}
