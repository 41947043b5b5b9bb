package session

import "sync"

// gameLocks hands out one mutex per game id. Entries are reference counted
// and dropped when nobody holds or waits on them.
type gameLocks struct {
	mu    sync.Mutex
	locks map[string]*gameLock
}

type gameLock struct {
	mu   sync.Mutex
	refs int
}

func newGameLocks() *gameLocks {
	return &gameLocks{locks: make(map[string]*gameLock)}
}

// lock blocks until the caller owns gameID and returns the release func.
func (l *gameLocks) lock(gameID string) func() {
	l.mu.Lock()
	gl, ok := l.locks[gameID]
	if !ok {
		gl = &gameLock{}
		l.locks[gameID] = gl
	}
	gl.refs++
	l.mu.Unlock()

	gl.mu.Lock()
	return func() {
		gl.mu.Unlock()

		l.mu.Lock()
		gl.refs--
		if gl.refs == 0 {
			delete(l.locks, gameID)
		}
		l.mu.Unlock()
	}
}

func (l *gameLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
