// Package session is the authoritative game session layer: it validates and
// applies moves, relays chat and rematch events, and fans state out to every
// connection bound to a game.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"tictactoe/internal/domain"
	"tictactoe/internal/game"
	"tictactoe/internal/logger"
	"tictactoe/internal/metrics"
	"tictactoe/internal/repository"

	"github.com/google/uuid"
)

// GameStore is the durable game record. Save must be a compare-and-write on
// Game.Version and return repository.ErrConflict when the record moved on.
type GameStore interface {
	Create(ctx context.Context, g *domain.Game) error
	GetByID(ctx context.Context, id string) (*domain.Game, error)
	Save(ctx context.Context, g *domain.Game) error
	ListOpen(ctx context.Context, limit int) ([]*domain.Game, error)
}

// Directory resolves display names for chat and rematch events.
type Directory interface {
	GetByID(ctx context.Context, id int64) (*domain.Participant, error)
}

// Conn is one live connection of an authenticated participant.
type Conn interface {
	ParticipantID() int64
	Send(event string, payload any)
}

// Broadcaster delivers events to connections. Delivery is best effort.
type Broadcaster interface {
	JoinRoom(gameID string, c Conn)
	BroadcastRoom(gameID string, event string, payload any, except Conn)
	SendToParticipant(participantID int64, event string, payload any)
	BroadcastAll(event string, payload any)
}

type Options struct {
	ChatMaxLength  int
	OpenGamesLimit int
	RematchTTL     time.Duration
}

func (o Options) withDefaults() Options {
	if o.ChatMaxLength <= 0 {
		o.ChatMaxLength = 500
	}
	if o.OpenGamesLimit <= 0 {
		o.OpenGamesLimit = 50
	}
	if o.RematchTTL <= 0 {
		o.RematchTTL = 2 * time.Minute
	}
	return o
}

type Coordinator struct {
	store   GameStore
	users   Directory
	hub     Broadcaster
	locks   *gameLocks
	rematch *Negotiator
	opts    Options

	newID func() string
	now   func() time.Time
}

func NewCoordinator(store GameStore, users Directory, hub Broadcaster, opts Options) *Coordinator {
	opts = opts.withDefaults()
	return &Coordinator{
		store:   store,
		users:   users,
		hub:     hub,
		locks:   newGameLocks(),
		rematch: NewNegotiator(opts.RematchTTL),
		opts:    opts,
		newID:   uuid.NewString,
		now:     time.Now,
	}
}

// Rematches exposes the negotiator so the caller can run its cleanup loop.
func (c *Coordinator) Rematches() *Negotiator {
	return c.rematch
}

// CreateGame opens a waiting game with the caller in slot X.
func (c *Coordinator) CreateGame(ctx context.Context, participantID int64) (*domain.Game, error) {
	g := domain.NewGame(c.newID(), participantID, 0)
	if err := c.store.Create(ctx, g); err != nil {
		return nil, fmt.Errorf("create game: %w", err)
	}
	metrics.GamesCreated.WithLabelValues("lobby").Inc()
	logger.WithContext(ctx).Info("game created", "game", g.ID, "x", participantID)

	c.hub.BroadcastAll(EventOpenGamesChanged, nil)
	return g, nil
}

// CreateMatch stores an in-progress game for two paired participants.
func (c *Coordinator) CreateMatch(ctx context.Context, x, o int64) (*domain.Game, error) {
	g := domain.NewGame(c.newID(), x, o)
	if err := c.store.Create(ctx, g); err != nil {
		return nil, fmt.Errorf("create match: %w", err)
	}
	metrics.GamesCreated.WithLabelValues("matchmaking").Inc()
	return g, nil
}

// JoinGame puts the caller into slot O of a waiting game.
func (c *Coordinator) JoinGame(ctx context.Context, participantID int64, gameID string) (*domain.Game, error) {
	if gameID == "" {
		return nil, ErrMissingGameID
	}
	unlock := c.locks.lock(gameID)
	defer unlock()

	g, err := c.load(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if *g.Players.X == participantID {
		return nil, ErrAlreadyInGame
	}
	if g.Players.O != nil {
		if *g.Players.O == participantID {
			return g, nil
		}
		return nil, ErrGameFull
	}
	if g.Status == domain.StatusFinished {
		return nil, ErrGameFinished
	}

	next := g.Clone()
	next.Players.O = &participantID
	next.Status = domain.StatusInProgress
	if err := c.save(ctx, next); err != nil {
		return nil, err
	}
	logger.WithContext(ctx).Info("game joined", "game", gameID, "o", participantID)

	c.hub.BroadcastRoom(gameID, EventGameUpdate, next, nil)
	c.hub.BroadcastAll(EventOpenGamesChanged, nil)
	return next, nil
}

func (c *Coordinator) GetGame(ctx context.Context, gameID string) (*domain.Game, error) {
	if gameID == "" {
		return nil, ErrMissingGameID
	}
	return c.load(ctx, gameID)
}

func (c *Coordinator) ListOpenGames(ctx context.Context) ([]*domain.Game, error) {
	games, err := c.store.ListOpen(ctx, c.opts.OpenGamesLimit)
	if err != nil {
		return nil, fmt.Errorf("list open games: %w", err)
	}
	return games, nil
}

// JoinRoom binds conn to the game's broadcast group, sends it the current
// state and shows the rest of the group that it arrived.
func (c *Coordinator) JoinRoom(ctx context.Context, conn Conn, gameID string) error {
	if gameID == "" {
		return ErrMissingGameID
	}
	unlock := c.locks.lock(gameID)
	defer unlock()

	g, err := c.load(ctx, gameID)
	if err != nil {
		return err
	}
	if !g.HasPlayer(conn.ParticipantID()) {
		return ErrNotAPlayer
	}

	c.hub.JoinRoom(gameID, conn)
	conn.Send(EventGameState, g)
	c.hub.BroadcastRoom(gameID, EventGameUpdate, g, conn)
	return nil
}

// RequestState re-sends the current state to conn only.
func (c *Coordinator) RequestState(ctx context.Context, conn Conn, gameID string) error {
	if gameID == "" {
		return ErrMissingGameID
	}
	unlock := c.locks.lock(gameID)
	defer unlock()

	g, err := c.load(ctx, gameID)
	if err != nil {
		return err
	}
	if !g.HasPlayer(conn.ParticipantID()) {
		return ErrNotAPlayer
	}
	conn.Send(EventGameState, g)
	return nil
}

// MakeMove validates and applies one move. The per-game lock is held from
// read to broadcast so group members see moves in commit order.
func (c *Coordinator) MakeMove(ctx context.Context, participantID int64, gameID string, index int) (g *domain.Game, err error) {
	if gameID == "" {
		return nil, ErrMissingGameID
	}
	defer func() {
		if err != nil {
			metrics.Moves.WithLabelValues(KindOf(err).String()).Inc()
			return
		}
		metrics.Moves.WithLabelValues("accepted").Inc()
	}()

	unlock := c.locks.lock(gameID)
	defer unlock()

	current, err := c.load(ctx, gameID)
	if err != nil {
		return nil, err
	}

	next := current.Clone()
	opened := false
	switch next.Status {
	case domain.StatusFinished:
		return nil, ErrGameFinished
	case domain.StatusWaiting:
		if next.Players.O == nil {
			return nil, ErrWaitingForOpponent
		}
		// both slots are filled, so the first move starts the game
		next.Status = domain.StatusInProgress
		opened = true
	}

	mark, ok := next.MarkOf(participantID)
	if !ok {
		return nil, ErrNotAPlayer
	}
	if mark != next.CurrentTurn {
		return nil, ErrNotYourTurn
	}
	if !game.IsLegalMove(next.Board, index) {
		return nil, ErrIllegalMove
	}

	next.Board = game.ApplyMove(next.Board, index, mark)
	if outcome := game.Evaluate(next.Board); outcome != domain.OutcomeNone {
		next.Status = domain.StatusFinished
		next.Winner = outcome
	} else {
		next.CurrentTurn = game.NextTurn(mark)
	}

	if err := c.save(ctx, next); err != nil {
		return nil, err
	}

	log := logger.WithContext(ctx)
	log.Debug("move applied", "game", gameID, "participant", participantID, "index", index, "mark", mark)
	if next.Status == domain.StatusFinished {
		metrics.GamesFinished.WithLabelValues(string(next.Winner)).Inc()
		log.Info("game finished", "game", gameID, "winner", next.Winner)
	}

	c.hub.BroadcastRoom(gameID, EventGameUpdate, next, nil)
	if opened {
		c.hub.BroadcastAll(EventOpenGamesChanged, nil)
	}
	return next, nil
}

// PostChatMessage relays text to the game's group. Blank text or a missing
// game id is a silent no-op and returns (nil, nil).
func (c *Coordinator) PostChatMessage(ctx context.Context, participantID int64, gameID, text string) (*ChatMessage, error) {
	text = strings.TrimSpace(text)
	if gameID == "" || text == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(text) > c.opts.ChatMaxLength {
		text = string([]rune(text)[:c.opts.ChatMaxLength])
	}

	g, err := c.load(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if !g.HasPlayer(participantID) {
		return nil, ErrNotAPlayer
	}

	msg := &ChatMessage{
		ID:         c.newID(),
		GameID:     gameID,
		Text:       text,
		SenderID:   participantID,
		SenderName: c.displayName(ctx, participantID),
		CreatedAt:  c.now().UTC(),
	}
	metrics.ChatMessages.Inc()
	c.hub.BroadcastRoom(gameID, EventChatMessage, msg, nil)
	return msg, nil
}

func (c *Coordinator) load(ctx context.Context, gameID string) (*domain.Game, error) {
	g, err := c.store.GetByID(ctx, gameID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load game %s: %w", gameID, err)
	}
	return g, nil
}

func (c *Coordinator) save(ctx context.Context, g *domain.Game) error {
	err := c.store.Save(ctx, g)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrConflict):
		return fmt.Errorf("save game %s: %w", g.ID, ErrConflict)
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	default:
		return fmt.Errorf("save game %s: %w", g.ID, err)
	}
}

func (c *Coordinator) displayName(ctx context.Context, participantID int64) string {
	fallback := "Player " + strconv.FormatInt(participantID, 10)
	if c.users == nil {
		return fallback
	}
	p, err := c.users.GetByID(ctx, participantID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			logger.WithContext(ctx).Warn("display name lookup failed", "participant", participantID, "error", err)
		}
		return fallback
	}
	if name := p.Name(); name != "" {
		return name
	}
	return fallback
}
