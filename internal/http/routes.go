package http

import (
	"time"

	"tictactoe/internal/http/handlers"
	"tictactoe/internal/http/middleware"
	"tictactoe/internal/ratelimit"
	"tictactoe/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Limits configures the fixed-window limits on the REST surface.
type Limits struct {
	APIRequests int
	APIWindow   time.Duration
	GameActions int
	GameWindow  time.Duration
}

// Deps is everything the router wires together.
type Deps struct {
	Games   handlers.Games
	Queue   handlers.Matchmaker
	Hub     *ws.Hub
	WS      gin.HandlerFunc
	Tokens  middleware.TokenParser
	Store   handlers.Pinger
	Limiter ratelimit.Limiter
	Limits  Limits
	Version string
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	h := handlers.NewHandler(d.Games, d.Queue, d.Hub)
	healthHandler := handlers.NewHealthHandler(d.Store, d.Hub, d.Version)

	r.Use(middleware.Metrics())

	// Health checks (no rate limiting)
	r.GET("/health", healthHandler.Health)
	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := middleware.JWT(d.Tokens)
	gameRL := middleware.GameRateLimit(d.Limiter, d.Limits.GameActions, d.Limits.GameWindow)

	api := r.Group("/api")
	api.Use(middleware.RateLimit(d.Limiter, d.Limits.APIRequests, d.Limits.APIWindow))
	{
		api.GET("/online", h.Online)

		api.GET("/games", auth, h.ListGames)
		api.GET("/games/:id", auth, h.GetGame)
		api.POST("/games", auth, gameRL, h.CreateGame)
		api.POST("/games/:id/join", auth, gameRL, h.JoinGame)

		api.POST("/matchmaking/join", auth, gameRL, h.JoinMatchmaking)
		api.DELETE("/matchmaking/leave", auth, h.LeaveMatchmaking)
	}

	if d.WS != nil {
		r.GET("/ws", d.WS)
	}
}
