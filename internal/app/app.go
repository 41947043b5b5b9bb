// Package app assembles the server from configuration.
package app

import (
	"context"
	"time"

	"tictactoe/internal/config"
	httpserver "tictactoe/internal/http"
	"tictactoe/internal/logger"
	"tictactoe/internal/matchmaking"
	"tictactoe/internal/ratelimit"
	"tictactoe/internal/service"
	"tictactoe/internal/session"
	"tictactoe/internal/ws"

	"github.com/gin-gonic/gin"
)

const rematchSweepInterval = 30 * time.Second

type App struct {
	Engine      *gin.Engine
	Hub         *ws.Hub
	Coordinator *session.Coordinator
	Queue       *matchmaking.Queue
	Tokens      *service.TokenService
	Stores      *Stores
}

// New wires hub, coordinator, queue and router over stores. limiter may be
// nil to disable rate limiting.
func New(cfg *config.Config, stores *Stores, limiter ratelimit.Limiter) (*App, error) {
	tokens, err := service.NewTokenService(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		return nil, err
	}

	hub := ws.NewHub()
	coord := session.NewCoordinator(stores.Games, stores.Participants, hub, session.Options{
		ChatMaxLength: cfg.ChatMaxLength,
		RematchTTL:    cfg.RematchTTL,
	})
	queue := matchmaking.NewQueue(coord, hub)
	// an offline participant cannot be told about a match
	hub.OnOffline(queue.Leave)

	dispatcher := ws.NewDispatcher(coord, ws.DispatcherOptions{
		Limiter:    limiter,
		RateLimit:  cfg.WSRateLimit,
		RateWindow: cfg.WSRateWindow,
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors(cfg.AllowedOrigin))

	httpserver.RegisterRoutes(r, httpserver.Deps{
		Games:   coord,
		Queue:   queue,
		Hub:     hub,
		WS:      ws.HandleWS(hub, dispatcher, tokens, cfg.AllowedOrigin),
		Tokens:  tokens,
		Store:   stores.Games,
		Limiter: limiter,
		Limits: httpserver.Limits{
			APIRequests: cfg.APIRateLimit,
			APIWindow:   cfg.APIRateWindow,
			GameActions: cfg.GameRateLimit,
			GameWindow:  cfg.GameRateWindow,
		},
		Version: cfg.AppVersion,
	})

	return &App{
		Engine:      r,
		Hub:         hub,
		Coordinator: coord,
		Queue:       queue,
		Tokens:      tokens,
		Stores:      stores,
	}, nil
}

// Start runs background loops until ctx is done.
func (a *App) Start(ctx context.Context) {
	a.Coordinator.Rematches().StartCleanup(ctx, rematchSweepInterval)
	logger.Info("background workers started")
}

// Shutdown closes live sockets.
func (a *App) Shutdown() {
	a.Hub.CloseAll()
}

func cors(allowedOrigin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" && (allowedOrigin == "" || origin == allowedOrigin) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		}
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
