package handlers

import (
	"net/http"

	"tictactoe/internal/domain"

	"github.com/gin-gonic/gin"
)

// CreateGame opens a waiting game with the caller as X.
func (h *Handler) CreateGame(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}

	g, err := h.Games.CreateGame(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, g)
}

func (h *Handler) JoinGame(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}

	g, err := h.Games.JoinGame(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (h *Handler) GetGame(c *gin.Context) {
	g, err := h.Games.GetGame(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

// ListGames supports only status=waiting, which is also the default.
func (h *Handler) ListGames(c *gin.Context) {
	status := c.DefaultQuery("status", string(domain.StatusWaiting))
	if status != string(domain.StatusWaiting) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "only status=waiting is supported"})
		return
	}

	games, err := h.Games.ListOpenGames(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if games == nil {
		games = []*domain.Game{}
	}
	c.JSON(http.StatusOK, gin.H{"games": games})
}
