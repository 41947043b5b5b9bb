package session

import "errors"

var (
	ErrNotFound           = errors.New("game not found")
	ErrNotAPlayer         = errors.New("you are not a player in this game")
	ErrGameFinished       = errors.New("game is already finished")
	ErrWaitingForOpponent = errors.New("waiting for opponent")
	ErrNotYourTurn        = errors.New("not your turn")
	ErrIllegalMove        = errors.New("invalid move")
	ErrConflict           = errors.New("game was updated concurrently")
	ErrGameNotFinished    = errors.New("game is not finished")
	ErrNoPendingRematch   = errors.New("no pending rematch request")
	ErrOwnRematch         = errors.New("cannot answer your own rematch request")
	ErrAlreadyInGame      = errors.New("you are already in this game as X")
	ErrGameFull           = errors.New("game is already full")
	ErrMissingGameID      = errors.New("gameId is required")
)

// Kind groups errors the way clients and HTTP handlers react to them.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindNotAPlayer
	KindInvalidState
	KindTurnViolation
	KindIllegalMove
	KindValidation
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindNotAPlayer:
		return "not_a_player"
	case KindInvalidState:
		return "invalid_state"
	case KindTurnViolation:
		return "turn_violation"
	case KindIllegalMove:
		return "illegal_move"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

var kinds = []struct {
	err  error
	kind Kind
	text string
}{
	{ErrNotFound, KindNotFound, "Game not found"},
	{ErrNotAPlayer, KindNotAPlayer, "You are not a player in this game"},
	{ErrGameFinished, KindInvalidState, "Game is already finished"},
	{ErrWaitingForOpponent, KindInvalidState, "Waiting for opponent"},
	{ErrGameNotFinished, KindInvalidState, "Game is not finished yet"},
	{ErrNoPendingRematch, KindInvalidState, "No pending rematch request"},
	{ErrOwnRematch, KindInvalidState, "You cannot answer your own rematch request"},
	{ErrAlreadyInGame, KindInvalidState, "You are already in this game as X"},
	{ErrGameFull, KindInvalidState, "Game is already full"},
	{ErrNotYourTurn, KindTurnViolation, "Not your turn"},
	{ErrIllegalMove, KindIllegalMove, "Invalid move"},
	{ErrMissingGameID, KindValidation, "gameId is required"},
	{ErrConflict, KindConflict, "Game was updated, please retry"},
}

// KindOf classifies err. Anything unrecognised is an infrastructure failure.
func KindOf(err error) Kind {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// PublicMessage is the text sent back to a client in game_error.
func PublicMessage(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.text
		}
	}
	return "Internal server error"
}
