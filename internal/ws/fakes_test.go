package ws

import (
	"sync"
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

func (c *fakeConn) ParticipantID() int64 { return c.id }

func (c *fakeConn) Send(event string, payload any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = append(c.got, sent{event, payload})
}

func (c *fakeConn) events() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.got))
	for i, s := range c.got {
		out[i] = s.event
	}
	return out
}

func (c *fakeConn) lastPayload() any {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.got) == 0 {
		return nil
	}
	return c.got[len(c.got)-1].payload
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = nil
}
