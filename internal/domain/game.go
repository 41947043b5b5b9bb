package domain

import "time"

// Mark is the symbol a player places on the board. Empty cells hold MarkNone.
type Mark string

const (
	MarkNone Mark = ""
	MarkX    Mark = "X"
	MarkO    Mark = "O"
)

// GameStatus - lifecycle of a game, only ever moves forward
type GameStatus string

const (
	StatusWaiting    GameStatus = "waiting"
	StatusInProgress GameStatus = "in_progress"
	StatusFinished   GameStatus = "finished"
)

// Outcome is recorded once a game is finished.
type Outcome string

const (
	OutcomeNone Outcome = ""
	OutcomeX    Outcome = "X"
	OutcomeO    Outcome = "O"
	OutcomeDraw Outcome = "draw"
)

// BoardSize is the number of cells on a 3x3 board.
const BoardSize = 9

// Board - flat 3x3 board, row-major
type Board []Mark

// NewBoard returns an all-empty board.
func NewBoard() Board {
	return make(Board, BoardSize)
}

// Clone returns a copy that shares no memory with b.
func (b Board) Clone() Board {
	out := make(Board, len(b))
	copy(out, b)
	return out
}

// Strings converts the board into its storage form.
func (b Board) Strings() []string {
	out := make([]string, len(b))
	for i, m := range b {
		out[i] = string(m)
	}
	return out
}

// BoardFromStrings is the inverse of Board.Strings.
func BoardFromStrings(cells []string) Board {
	out := make(Board, len(cells))
	for i, c := range cells {
		out[i] = Mark(c)
	}
	return out
}

// Players holds the two fixed slots. X always moves first.
type Players struct {
	X *int64 `json:"x"`
	O *int64 `json:"o"`
}

// Game - authoritative record of one match
type Game struct {
	ID          string     `json:"id"`
	Players     Players    `json:"players"`
	Board       Board      `json:"board"`
	CurrentTurn Mark       `json:"currentTurn"`
	Status      GameStatus `json:"status"`
	Winner      Outcome    `json:"winner,omitempty"`
	Version     int64      `json:"version"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// NewGame builds a fresh game with x in the first slot. When o is non-zero
// both slots are filled and the game starts in progress.
func NewGame(id string, x, o int64) *Game {
	g := &Game{
		ID:          id,
		Players:     Players{X: &x},
		Board:       NewBoard(),
		CurrentTurn: MarkX,
		Status:      StatusWaiting,
	}
	if o != 0 {
		g.Players.O = &o
		g.Status = StatusInProgress
	}
	return g
}

// MarkOf reports which slot the participant occupies.
func (g *Game) MarkOf(participantID int64) (Mark, bool) {
	if g.Players.X != nil && *g.Players.X == participantID {
		return MarkX, true
	}
	if g.Players.O != nil && *g.Players.O == participantID {
		return MarkO, true
	}
	return MarkNone, false
}

// HasPlayer reports whether the participant occupies either slot.
func (g *Game) HasPlayer(participantID int64) bool {
	_, ok := g.MarkOf(participantID)
	return ok
}

// Opponent returns the id in the other slot, if any.
func (g *Game) Opponent(participantID int64) (int64, bool) {
	switch mark, _ := g.MarkOf(participantID); mark {
	case MarkX:
		if g.Players.O != nil {
			return *g.Players.O, true
		}
	case MarkO:
		if g.Players.X != nil {
			return *g.Players.X, true
		}
	}
	return 0, false
}

// Clone returns a deep copy so callers can mutate without touching shared state.
func (g *Game) Clone() *Game {
	cp := *g
	cp.Board = g.Board.Clone()
	if g.Players.X != nil {
		x := *g.Players.X
		cp.Players.X = &x
	}
	if g.Players.O != nil {
		o := *g.Players.O
		cp.Players.O = &o
	}
	return &cp
}
