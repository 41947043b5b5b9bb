package ws

import (
	"context"
	"net/http"
	"strings"

	"tictactoe/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// TokenParser resolves a bearer token to a participant id.
type TokenParser interface {
	Parse(token string) (int64, error)
}

// HandleWS authenticates before upgrading; a missing or bad token never
// reaches the socket layer. The token comes from ?token= or an
// Authorization: Bearer header.
func HandleWS(hub *Hub, dispatcher *Dispatcher, tokens TokenParser, allowedOrigin string) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if allowedOrigin == "" {
				return true
			}
			return r.Header.Get("Origin") == allowedOrigin
		},
	}

	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			token = bearer(c.GetHeader("Authorization"))
		}
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "token required"})
			return
		}

		userID, err := tokens.Parse(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("ws upgrade error", "participant", userID, "error", err)
			return
		}

		client := NewClient(userID, conn, hub, dispatcher)
		go client.Run(context.Background())
	}
}

func bearer(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
