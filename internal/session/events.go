package session

import (
	"time"

	"tictactoe/internal/domain"
)

// Outbound event names.
const (
	EventGameState        = "game_state"
	EventGameUpdate       = "game_update"
	EventGameError        = "game_error"
	EventChatMessage      = "chat_message"
	EventOpenGamesChanged = "open_games_changed"
	EventOnlineCount      = "online_count"
	EventMatchFound       = "match_found"
	EventRematchRequest   = "rematch_request"
	EventRematchDeclined  = "rematch_declined"
	EventRematchStarted   = "rematch_started"
)

type ErrorPayload struct {
	Message string `json:"message"`
}

type ChatMessage struct {
	ID         string    `json:"id"`
	GameID     string    `json:"gameId"`
	Text       string    `json:"text"`
	SenderID   int64     `json:"senderId"`
	SenderName string    `json:"senderName"`
	CreatedAt  time.Time `json:"createdAt"`
}

type OnlineCountPayload struct {
	Count int `json:"count"`
}

type MatchFoundPayload struct {
	Status string       `json:"status"`
	GameID string       `json:"gameId"`
	Game   *domain.Game `json:"game"`
}

type ParticipantRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type RematchPayload struct {
	GameID string         `json:"gameId"`
	From   ParticipantRef `json:"from"`
}

type RematchStartedPayload struct {
	OldGameID string       `json:"oldGameId"`
	NewGameID string       `json:"newGameId"`
	Game      *domain.Game `json:"game"`
}
