package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) JoinMatchmaking(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}

	res, err := h.Queue.Join(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) LeaveMatchmaking(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}

	h.Queue.Leave(userID)
	c.Status(http.StatusNoContent)
}

// Online returns the number of distinct connected participants.
func (h *Handler) Online(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"count": h.Presence.OnlineCount()})
}
