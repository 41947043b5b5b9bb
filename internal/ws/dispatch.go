package ws

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"tictactoe/internal/domain"
	"tictactoe/internal/logger"
	"tictactoe/internal/metrics"
	"tictactoe/internal/ratelimit"
	"tictactoe/internal/session"
)

// Coordinator is the part of session.Coordinator the socket needs.
type Coordinator interface {
	JoinRoom(ctx context.Context, conn session.Conn, gameID string) error
	RequestState(ctx context.Context, conn session.Conn, gameID string) error
	MakeMove(ctx context.Context, participantID int64, gameID string, index int) (*domain.Game, error)
	PostChatMessage(ctx context.Context, participantID int64, gameID, text string) (*session.ChatMessage, error)
	RequestRematch(ctx context.Context, participantID int64, gameID string) error
	RespondRematch(ctx context.Context, participantID int64, gameID string, accepted bool) (*domain.Game, error)
}

type DispatcherOptions struct {
	Limiter     ratelimit.Limiter
	RateLimit   int
	RateWindow  time.Duration
	TimeoutEach time.Duration
}

// Dispatcher turns inbound frames into coordinator calls and maps failures
// back onto the originating connection.
type Dispatcher struct {
	coord   Coordinator
	limiter ratelimit.Limiter
	limit   int
	window  time.Duration
	timeout time.Duration
}

func NewDispatcher(coord Coordinator, opts DispatcherOptions) *Dispatcher {
	if opts.TimeoutEach <= 0 {
		opts.TimeoutEach = 5 * time.Second
	}
	if opts.RateWindow <= 0 {
		opts.RateWindow = 10 * time.Second
	}
	return &Dispatcher{
		coord:   coord,
		limiter: opts.Limiter,
		limit:   opts.RateLimit,
		window:  opts.RateWindow,
		timeout: opts.TimeoutEach,
	}
}

var errTooManyRequests = session.ErrorPayload{Message: "Too many requests"}

// Dispatch handles one frame. Malformed frames are dropped.
func (d *Dispatcher) Dispatch(ctx context.Context, c session.Conn, raw []byte) {
	var msg inbound
	if err := json.Unmarshal(raw, &msg); err != nil {
		logger.WithContext(ctx).Debug("ws malformed frame", "error", err)
		return
	}
	d.handle(ctx, c, msg)
}

// intentLabel keeps the metric's label set bounded to known frame types.
func intentLabel(t string) string {
	switch t {
	case MsgJoinGame, MsgRequestState, MsgMakeMove, MsgChatMessage,
		MsgRematchRequest, MsgRematchResponse, MsgPing:
		return t
	}
	return "unknown"
}

func (d *Dispatcher) handle(ctx context.Context, c session.Conn, msg inbound) {
	metrics.Intents.WithLabelValues(intentLabel(msg.Type)).Inc()

	if msg.Type == MsgPing {
		c.Send(MsgPong, nil)
		return
	}
	if !d.allow(ctx, c) {
		c.Send(session.EventGameError, errTooManyRequests)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	switch msg.Type {
	case MsgJoinGame:
		var p GameRefPayload
		if !decode(ctx, msg, &p) {
			return
		}
		d.fail(ctx, c, msg.Type, p.GameID, d.coord.JoinRoom(ctx, c, p.GameID))

	case MsgRequestState:
		var p GameRefPayload
		if !decode(ctx, msg, &p) {
			return
		}
		d.fail(ctx, c, msg.Type, p.GameID, d.coord.RequestState(ctx, c, p.GameID))

	case MsgMakeMove:
		var p MovePayload
		if !decode(ctx, msg, &p) {
			return
		}
		if p.Index == nil {
			d.fail(ctx, c, msg.Type, p.GameID, session.ErrIllegalMove)
			return
		}
		_, err := d.coord.MakeMove(ctx, c.ParticipantID(), p.GameID, *p.Index)
		d.fail(ctx, c, msg.Type, p.GameID, err)

	case MsgChatMessage:
		var p ChatPayload
		if !decode(ctx, msg, &p) {
			return
		}
		_, err := d.coord.PostChatMessage(ctx, c.ParticipantID(), p.GameID, p.Text)
		d.fail(ctx, c, msg.Type, p.GameID, err)

	case MsgRematchRequest:
		var p GameRefPayload
		if !decode(ctx, msg, &p) {
			return
		}
		d.fail(ctx, c, msg.Type, p.GameID, d.coord.RequestRematch(ctx, c.ParticipantID(), p.GameID))

	case MsgRematchResponse:
		var p RematchResponsePayload
		if !decode(ctx, msg, &p) {
			return
		}
		_, err := d.coord.RespondRematch(ctx, c.ParticipantID(), p.GameID, p.Accepted)
		d.fail(ctx, c, msg.Type, p.GameID, err)

	default:
		c.Send(session.EventGameError, session.ErrorPayload{Message: "Unknown event"})
	}
}

func decode(ctx context.Context, msg inbound, v any) bool {
	if len(msg.Payload) == 0 {
		return true
	}
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		logger.WithContext(ctx).Debug("ws malformed payload", "type", msg.Type, "error", err)
		return false
	}
	return true
}

// allow fails open when the limiter itself is unavailable.
func (d *Dispatcher) allow(ctx context.Context, c session.Conn) bool {
	if d.limiter == nil || d.limit <= 0 {
		return true
	}
	metrics.RLRequests.WithLabelValues("ws").Inc()
	key := "ws:" + strconv.FormatInt(c.ParticipantID(), 10)
	dec, err := d.limiter.Allow(ctx, key, d.limit, d.window)
	if err != nil {
		logger.WithContext(ctx).Warn("ws rate limiter unavailable", "error", err)
		return true
	}
	if !dec.Allowed {
		metrics.RLBlocked.WithLabelValues("ws").Inc()
	}
	return dec.Allowed
}

// fail reports err to the originating connection only.
func (d *Dispatcher) fail(ctx context.Context, c session.Conn, intent, gameID string, err error) {
	if err == nil {
		return
	}
	log := logger.WithContext(ctx).With("intent", intent, "game", gameID)

	switch session.KindOf(err) {
	case session.KindValidation:
		log.Debug("ws intent ignored", "error", err)
		return
	case session.KindConflict:
		// the client raced another writer; show it the state that won
		log.Info("ws intent conflicted, resending state", "error", err)
		if serr := d.coord.RequestState(ctx, c, gameID); serr == nil {
			return
		}
	case session.KindInternal:
		log.Error("ws intent failed", "error", err)
	default:
		log.Debug("ws intent rejected", "error", err)
	}
	c.Send(session.EventGameError, session.ErrorPayload{Message: session.PublicMessage(err)})
}
