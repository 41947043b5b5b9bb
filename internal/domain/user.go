package domain

import "time"

// Participant is an authenticated player. Credentials live elsewhere; this
// side only needs the id and a name to show in chat and rematch prompts.
type Participant struct {
	ID          int64     `db:"id" json:"id"`
	Username    string    `db:"username" json:"username"`
	DisplayName string    `db:"display_name" json:"name"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Name returns the best label for the participant.
func (p *Participant) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Username
}
