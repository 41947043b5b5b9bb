package ws

import (
	"io"
	"sync"

	"tictactoe/internal/logger"
	"tictactoe/internal/metrics"
	"tictactoe/internal/session"
)

// Hub is the connection registry: which participants are online, through
// which connections, and which connections watch which game.
type Hub struct {
	// presence serializes Register and Unregister together with their
	// online_count broadcast, so the last count delivered is the current one.
	presence sync.Mutex

	mu          sync.RWMutex
	clients     map[int64]map[session.Conn]struct{}
	rooms       map[string]*room
	memberships map[session.Conn]map[string]struct{}
	connections int

	onOffline func(participantID int64)
}

func NewHub() *Hub {
	return &Hub{
		clients:     make(map[int64]map[session.Conn]struct{}),
		rooms:       make(map[string]*room),
		memberships: make(map[session.Conn]map[string]struct{}),
	}
}

// OnOffline sets a hook fired after a participant's last connection closes.
// Set it before serving connections.
func (h *Hub) OnOffline(fn func(participantID int64)) {
	h.mu.Lock()
	h.onOffline = fn
	h.mu.Unlock()
}

// Register adds a live connection. The new connection always learns the
// current online count; everyone else hears about it only if it changed.
func (h *Hub) Register(participantID int64, c session.Conn) {
	h.presence.Lock()
	defer h.presence.Unlock()

	h.mu.Lock()
	set, ok := h.clients[participantID]
	if !ok {
		set = make(map[session.Conn]struct{})
		h.clients[participantID] = set
	}
	if _, dup := set[c]; !dup {
		set[c] = struct{}{}
		h.connections++
	}
	online := len(h.clients)
	h.mu.Unlock()

	metrics.Connections.Set(float64(h.connectionCount()))
	metrics.OnlineParticipants.Set(float64(online))
	logger.Debug("ws client registered", "participant", participantID, "online", online)

	if !ok {
		h.BroadcastAll(session.EventOnlineCount, session.OnlineCountPayload{Count: online})
		return
	}
	c.Send(session.EventOnlineCount, session.OnlineCountPayload{Count: online})
}

// Unregister removes a connection from the registry and from every room it
// joined. Unknown connections are ignored.
func (h *Hub) Unregister(participantID int64, c session.Conn) {
	h.presence.Lock()
	hook, wentOffline := h.unregister(participantID, c)
	h.presence.Unlock()

	if wentOffline && hook != nil {
		hook(participantID)
	}
}

// unregister runs with presence held and returns the offline hook to fire.
func (h *Hub) unregister(participantID int64, c session.Conn) (func(int64), bool) {
	h.mu.Lock()
	set, ok := h.clients[participantID]
	if !ok {
		h.mu.Unlock()
		return nil, false
	}
	if _, present := set[c]; !present {
		h.mu.Unlock()
		return nil, false
	}
	delete(set, c)
	h.connections--

	for gameID := range h.memberships[c] {
		if r, ok := h.rooms[gameID]; ok {
			r.remove(c)
			if r.empty() {
				delete(h.rooms, gameID)
			}
		}
	}
	delete(h.memberships, c)

	wentOffline := len(set) == 0
	if wentOffline {
		delete(h.clients, participantID)
	}
	online := len(h.clients)
	hook := h.onOffline
	h.mu.Unlock()

	metrics.Connections.Set(float64(h.connectionCount()))
	metrics.OnlineParticipants.Set(float64(online))
	logger.Debug("ws client unregistered", "participant", participantID, "online", online)

	if wentOffline {
		h.BroadcastAll(session.EventOnlineCount, session.OnlineCountPayload{Count: online})
	}
	return hook, wentOffline
}

// OnlineCount is the number of distinct participants with a live connection.
func (h *Hub) OnlineCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) connectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.connections
}

func (h *Hub) SendToParticipant(participantID int64, event string, payload any) {
	h.mu.RLock()
	targets := make([]session.Conn, 0, len(h.clients[participantID]))
	for c := range h.clients[participantID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.Send(event, payload)
	}
}

func (h *Hub) BroadcastAll(event string, payload any) {
	h.mu.RLock()
	targets := make([]session.Conn, 0, h.connections)
	for _, set := range h.clients {
		for c := range set {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.Send(event, payload)
	}
}

// JoinRoom binds a connection to a game. Joining twice is a no-op.
func (h *Hub) JoinRoom(gameID string, c session.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.rooms[gameID]
	if !ok {
		r = newRoom(gameID)
		h.rooms[gameID] = r
	}
	if !r.add(c) {
		return
	}
	m, ok := h.memberships[c]
	if !ok {
		m = make(map[string]struct{})
		h.memberships[c] = m
	}
	m[gameID] = struct{}{}
}

func (h *Hub) BroadcastRoom(gameID string, event string, payload any, except session.Conn) {
	h.mu.RLock()
	r, ok := h.rooms[gameID]
	var targets []session.Conn
	if ok {
		targets = r.snapshot(except)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.Send(event, payload)
	}
}

// RoomSize reports how many connections watch gameID.
func (h *Hub) RoomSize(gameID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if r, ok := h.rooms[gameID]; ok {
		return len(r.members)
	}
	return 0
}

// CloseAll closes every connection that supports it. Used on shutdown; the
// read pumps unregister themselves as they exit.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	var closers []io.Closer
	for _, set := range h.clients {
		for c := range set {
			if cl, ok := c.(io.Closer); ok {
				closers = append(closers, cl)
			}
		}
	}
	h.mu.RUnlock()

	for _, c := range closers {
		_ = c.Close()
	}
}
