package ws

import "encoding/json"

const (
	// client - server
	MsgJoinGame        = "join_game"
	MsgMakeMove        = "make_move"
	MsgChatMessage     = "chat_message"
	MsgRequestState    = "request_state"
	MsgRematchRequest  = "rematch_request"
	MsgRematchResponse = "rematch_response"
	MsgPing            = "ping"

	// server - client
	MsgPong = "pong"
)

// Message is the envelope for every frame in both directions.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}
