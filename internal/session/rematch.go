package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tictactoe/internal/domain"
	"tictactoe/internal/logger"
	"tictactoe/internal/metrics"
)

type rematchRequest struct {
	requester int64
	at        time.Time
}

// Negotiator tracks at most one pending rematch request per finished game.
// A newer request replaces the older one; requests expire after ttl.
type Negotiator struct {
	mu      sync.Mutex
	pending map[string]rematchRequest
	ttl     time.Duration
	now     func() time.Time
}

func NewNegotiator(ttl time.Duration) *Negotiator {
	return &Negotiator{
		pending: make(map[string]rematchRequest),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (n *Negotiator) Request(gameID string, requester int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pending[gameID] = rematchRequest{requester: requester, at: n.now()}
}

// Pending returns the requester of a live request for gameID.
func (n *Negotiator) Pending(gameID string) (int64, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	req, ok := n.pending[gameID]
	if !ok {
		return 0, false
	}
	if n.expired(req) {
		delete(n.pending, gameID)
		return 0, false
	}
	return req.requester, true
}

func (n *Negotiator) Clear(gameID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.pending, gameID)
}

// Prune drops expired requests and returns how many were removed.
func (n *Negotiator) Prune() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	removed := 0
	for id, req := range n.pending {
		if n.expired(req) {
			delete(n.pending, id)
			removed++
		}
	}
	return removed
}

// StartCleanup prunes expired requests every interval until ctx is done.
func (n *Negotiator) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := n.Prune(); removed > 0 {
					logger.Debug("pruned expired rematch requests", "count", removed)
				}
			}
		}
	}()
}

func (n *Negotiator) expired(req rematchRequest) bool {
	return n.ttl > 0 && n.now().Sub(req.at) > n.ttl
}

// RequestRematch records the caller as the pending requester of a finished
// game and tells the game's group.
func (c *Coordinator) RequestRematch(ctx context.Context, participantID int64, gameID string) error {
	if gameID == "" {
		return ErrMissingGameID
	}
	unlock := c.locks.lock(gameID)
	defer unlock()

	g, err := c.load(ctx, gameID)
	if err != nil {
		return err
	}
	if !g.HasPlayer(participantID) {
		return ErrNotAPlayer
	}
	if g.Status != domain.StatusFinished {
		return ErrGameNotFinished
	}

	c.rematch.Request(gameID, participantID)
	metrics.Rematches.WithLabelValues("requested").Inc()

	c.hub.BroadcastRoom(gameID, EventRematchRequest, RematchPayload{
		GameID: gameID,
		From:   ParticipantRef{ID: participantID, Name: c.displayName(ctx, participantID)},
	}, nil)
	return nil
}

// RespondRematch answers the other player's pending request. Accepting
// creates a new in-progress game with the same slots and returns it; a
// decline returns (nil, nil).
func (c *Coordinator) RespondRematch(ctx context.Context, participantID int64, gameID string, accepted bool) (*domain.Game, error) {
	if gameID == "" {
		return nil, ErrMissingGameID
	}
	unlock := c.locks.lock(gameID)
	defer unlock()

	old, err := c.load(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if !old.HasPlayer(participantID) {
		return nil, ErrNotAPlayer
	}
	if old.Status != domain.StatusFinished {
		return nil, ErrGameNotFinished
	}

	requester, ok := c.rematch.Pending(gameID)
	if !ok {
		return nil, ErrNoPendingRematch
	}
	if requester == participantID {
		return nil, ErrOwnRematch
	}

	if !accepted {
		c.rematch.Clear(gameID)
		metrics.Rematches.WithLabelValues("declined").Inc()
		c.hub.BroadcastRoom(gameID, EventRematchDeclined, RematchPayload{
			GameID: gameID,
			From:   ParticipantRef{ID: participantID, Name: c.displayName(ctx, participantID)},
		}, nil)
		return nil, nil
	}

	next := domain.NewGame(c.newID(), *old.Players.X, *old.Players.O)
	if err := c.store.Create(ctx, next); err != nil {
		return nil, fmt.Errorf("create rematch game: %w", err)
	}
	c.rematch.Clear(gameID)
	metrics.Rematches.WithLabelValues("started").Inc()
	metrics.GamesCreated.WithLabelValues("rematch").Inc()
	logger.WithContext(ctx).Info("rematch started", "old_game", gameID, "new_game", next.ID)

	c.hub.BroadcastRoom(gameID, EventRematchStarted, RematchStartedPayload{
		OldGameID: gameID,
		NewGameID: next.ID,
		Game:      next,
	}, nil)
	return next, nil
}
