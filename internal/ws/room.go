package ws

import "tictactoe/internal/session"

// room is the set of connections bound to one game. Rooms live inside the
// Hub and are only touched with the hub lock held.
type room struct {
	id      string
	members map[session.Conn]struct{}
}

func newRoom(id string) *room {
	return &room{id: id, members: make(map[session.Conn]struct{})}
}

func (r *room) add(c session.Conn) bool {
	if _, ok := r.members[c]; ok {
		return false
	}
	r.members[c] = struct{}{}
	return true
}

func (r *room) remove(c session.Conn) {
	delete(r.members, c)
}

func (r *room) empty() bool {
	return len(r.members) == 0
}

// snapshot copies the members so sends can happen without the hub lock.
func (r *room) snapshot(except session.Conn) []session.Conn {
	out := make([]session.Conn, 0, len(r.members))
	for c := range r.members {
		if except != nil && c == except {
			continue
		}
		out = append(out, c)
	}
	return out
}
