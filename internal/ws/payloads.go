package ws

type GameRefPayload struct {
	GameID string `json:"gameId"`
}

// MovePayload keeps Index as a pointer so a missing index is told apart
// from cell 0.
type MovePayload struct {
	GameID string `json:"gameId"`
	Index  *int   `json:"index"`
}

type ChatPayload struct {
	GameID string `json:"gameId"`
	Text   string `json:"text"`
}

type RematchResponsePayload struct {
	GameID   string `json:"gameId"`
	Accepted bool   `json:"accepted"`
}
