package session

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"tictactoe/internal/domain"
	"tictactoe/internal/repository"
)

type sent struct {
	event   string
	payload any
}

type fakeConn struct {
	id  int64
	mu  sync.Mutex
	got []sent
}

func newConn(id int64) *fakeConn { return &fakeConn{id: id} }

func (c *fakeConn) ParticipantID() int64 { return c.id }

func (c *fakeConn) Send(event string, payload any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = append(c.got, sent{event, payload})
}

func (c *fakeConn) count(event string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, s := range c.got {
		if s.event == event {
			n++
		}
	}
	return n
}

func (c *fakeConn) last(event string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.got) - 1; i >= 0; i-- {
		if c.got[i].event == event {
			return c.got[i].payload, true
		}
	}
	return nil, false
}

type fakeHub struct {
	mu     sync.Mutex
	rooms  map[string][]Conn
	all    []sent
	direct map[int64][]sent
}

func newFakeHub() *fakeHub {
	return &fakeHub{rooms: make(map[string][]Conn), direct: make(map[int64][]sent)}
}

func (h *fakeHub) JoinRoom(gameID string, c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, m := range h.rooms[gameID] {
		if m == c {
			return
		}
	}
	h.rooms[gameID] = append(h.rooms[gameID], c)
}

func (h *fakeHub) BroadcastRoom(gameID string, event string, payload any, except Conn) {
	h.mu.Lock()
	members := append([]Conn(nil), h.rooms[gameID]...)
	h.mu.Unlock()
	for _, m := range members {
		if m != except {
			m.Send(event, payload)
		}
	}
}

func (h *fakeHub) SendToParticipant(id int64, event string, payload any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.direct[id] = append(h.direct[id], sent{event, payload})
}

func (h *fakeHub) BroadcastAll(event string, payload any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.all = append(h.all, sent{event, payload})
}

func (h *fakeHub) countAll(event string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, s := range h.all {
		if s.event == event {
			n++
		}
	}
	return n
}

type fixture struct {
	db    *sql.DB
	coord *Coordinator
	hub   *fakeHub
	games *repository.SQLiteGameRepository
	users *repository.SQLiteUserRepository
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	db, err := repository.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	f := &fixture{
		db:    db,
		hub:   newFakeHub(),
		games: repository.NewSQLiteGameRepository(db),
		users: repository.NewSQLiteUserRepository(db),
	}
	f.coord = NewCoordinator(f.games, f.users, f.hub, opts)
	return f
}

func (f *fixture) gameCount(t *testing.T) int {
	t.Helper()
	var n int
	if err := f.db.QueryRow(`SELECT COUNT(*) FROM games`).Scan(&n); err != nil {
		t.Fatalf("count games: %v", err)
	}
	return n
}

// match creates an in-progress game with x and o.
func (f *fixture) match(t *testing.T, x, o int64) *domain.Game {
	t.Helper()
	g, err := f.coord.CreateMatch(context.Background(), x, o)
	if err != nil {
		t.Fatalf("create match: %v", err)
	}
	return g
}

// play applies moves alternately starting with x and fails on any error.
func (f *fixture) play(t *testing.T, gameID string, x, o int64, cells ...int) *domain.Game {
	t.Helper()
	var g *domain.Game
	for i, cell := range cells {
		who := x
		if i%2 == 1 {
			who = o
		}
		var err error
		g, err = f.coord.MakeMove(context.Background(), who, gameID, cell)
		if err != nil {
			t.Fatalf("move %d (cell %d by %d): %v", i, cell, who, err)
		}
	}
	return g
}
