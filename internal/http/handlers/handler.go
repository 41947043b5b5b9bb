package handlers

import (
	"context"
	"errors"
	"net/http"

	"tictactoe/internal/domain"
	"tictactoe/internal/logger"
	"tictactoe/internal/matchmaking"
	"tictactoe/internal/session"

	"github.com/gin-gonic/gin"
)

// Games is the lobby side of the session coordinator.
type Games interface {
	CreateGame(ctx context.Context, participantID int64) (*domain.Game, error)
	JoinGame(ctx context.Context, participantID int64, gameID string) (*domain.Game, error)
	GetGame(ctx context.Context, gameID string) (*domain.Game, error)
	ListOpenGames(ctx context.Context) ([]*domain.Game, error)
}

type Matchmaker interface {
	Join(ctx context.Context, participantID int64) (matchmaking.Result, error)
	Leave(participantID int64)
}

type Presence interface {
	OnlineCount() int
}

type Handler struct {
	Games    Games
	Queue    Matchmaker
	Presence Presence
}

func NewHandler(games Games, queue Matchmaker, presence Presence) *Handler {
	return &Handler{Games: games, Queue: queue, Presence: presence}
}

// getUserID extracts user_id set by the JWT middleware.
func getUserID(c *gin.Context) (int64, bool) {
	uidVal, ok := c.Get("user_id")
	if !ok {
		return 0, false
	}
	switch v := uidVal.(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

func statusFor(err error) int {
	switch session.KindOf(err) {
	case session.KindNotFound:
		return http.StatusNotFound
	case session.KindNotAPlayer:
		return http.StatusForbidden
	case session.KindInvalidState, session.KindTurnViolation, session.KindConflict:
		return http.StatusConflict
	case session.KindIllegalMove, session.KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps session errors onto HTTP. Infrastructure failures are
// logged and hidden behind a generic message.
func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.WithContext(c.Request.Context()).Error("request failed", "path", c.FullPath(), "error", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": session.PublicMessage(err)})
}
