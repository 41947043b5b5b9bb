package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is anything whose reachability gates readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	store    Pinger
	presence Presence
	started  time.Time
	version  string
}

func NewHealthHandler(store Pinger, presence Presence, version string) *HealthHandler {
	return &HealthHandler{store: store, presence: presence, started: time.Now(), version: version}
}

// storeErr pings the game store within d.
func (h *HealthHandler) storeErr(c *gin.Context, d time.Duration) error {
	ctx, cancel := context.WithTimeout(c.Request.Context(), d)
	defer cancel()
	return h.store.Ping(ctx)
}

// Liveness never touches the store.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Health answers 503 while the game store is unreachable.
func (h *HealthHandler) Health(c *gin.Context) {
	if err := h.storeErr(c, 3*time.Second); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": "game store unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": h.version})
}

// Readiness reports the store check plus session counters.
func (h *HealthHandler) Readiness(c *gin.Context) {
	store, code := "up", http.StatusOK
	if err := h.storeErr(c, 5*time.Second); err != nil {
		store, code = "down: "+err.Error(), http.StatusServiceUnavailable
	}

	body := gin.H{
		"store":   store,
		"version": h.version,
		"uptime":  time.Since(h.started).Round(time.Second).String(),
	}
	if h.presence != nil {
		body["online"] = h.presence.OnlineCount()
	}
	c.JSON(code, body)
}
