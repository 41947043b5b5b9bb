// Package matchmaking pairs participants looking for an opponent. The queue
// is in-memory and serves a single process.
package matchmaking

import (
	"context"
	"sync"
	"time"

	"tictactoe/internal/domain"
	"tictactoe/internal/logger"
	"tictactoe/internal/metrics"
	"tictactoe/internal/session"
)

// Creator stores a new in-progress game for a pair.
type Creator interface {
	CreateMatch(ctx context.Context, x, o int64) (*domain.Game, error)
}

// Notifier reaches a participant's live connections, if any.
type Notifier interface {
	SendToParticipant(participantID int64, event string, payload any)
}

type Status string

const (
	StatusWaiting Status = "waiting"
	StatusMatched Status = "matched"
)

type Ticket struct {
	ParticipantID int64
	EnqueuedAt    time.Time
}

// Result is what the joining participant gets back.
type Result struct {
	Status Status       `json:"status"`
	GameID string       `json:"gameId,omitempty"`
	Game   *domain.Game `json:"game,omitempty"`
}

// Queue is a strict FIFO holding at most one ticket per participant.
type Queue struct {
	mu       sync.Mutex
	tickets  []Ticket
	creator  Creator
	notifier Notifier
	now      func() time.Time
}

func NewQueue(creator Creator, notifier Notifier) *Queue {
	return &Queue{
		creator:  creator,
		notifier: notifier,
		now:      time.Now,
	}
}

// Join drops any earlier ticket of the participant, then either pairs them
// with the oldest waiter (who becomes X) or enqueues them.
func (q *Queue) Join(ctx context.Context, participantID int64) (Result, error) {
	q.mu.Lock()
	q.removeLocked(participantID)

	if len(q.tickets) == 0 {
		q.tickets = append(q.tickets, Ticket{ParticipantID: participantID, EnqueuedAt: q.now()})
		metrics.QueueSize.Set(float64(len(q.tickets)))
		q.mu.Unlock()

		logger.WithContext(ctx).Debug("matchmaking: waiting", "participant", participantID)
		return Result{Status: StatusWaiting}, nil
	}

	oldest := q.tickets[0]
	// the store write happens inside the critical section so the waiter
	// cannot be handed to two joiners
	g, err := q.creator.CreateMatch(ctx, oldest.ParticipantID, participantID)
	if err != nil {
		metrics.QueueSize.Set(float64(len(q.tickets)))
		q.mu.Unlock()
		return Result{}, err
	}
	q.tickets = q.tickets[1:]
	metrics.QueueSize.Set(float64(len(q.tickets)))
	q.mu.Unlock()

	metrics.Matches.Inc()
	logger.WithContext(ctx).Info("matchmaking: matched",
		"game", g.ID,
		"x", oldest.ParticipantID,
		"o", participantID,
		"waited", q.now().Sub(oldest.EnqueuedAt).Round(time.Millisecond),
	)

	q.notifier.SendToParticipant(oldest.ParticipantID, session.EventMatchFound, session.MatchFoundPayload{
		Status: string(StatusMatched),
		GameID: g.ID,
		Game:   g,
	})
	return Result{Status: StatusMatched, GameID: g.ID, Game: g}, nil
}

// Leave removes the participant's ticket. Absent tickets are fine.
func (q *Queue) Leave(participantID int64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.removeLocked(participantID) {
		logger.Debug("matchmaking: left", "participant", participantID)
	}
	metrics.QueueSize.Set(float64(len(q.tickets)))
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tickets)
}

// Waiting reports whether the participant holds a ticket.
func (q *Queue) Waiting(participantID int64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, t := range q.tickets {
		if t.ParticipantID == participantID {
			return true
		}
	}
	return false
}

func (q *Queue) removeLocked(participantID int64) bool {
	removed := false
	kept := q.tickets[:0]
	for _, t := range q.tickets {
		if t.ParticipantID == participantID {
			removed = true
			continue
		}
		kept = append(kept, t)
	}
	q.tickets = kept
	return removed
}
