package domain

import "time"

// Interaction is a timestamped note attached to a ticket. Author is a free
// text name, not a user reference; CreatedAt is caller-settable so contacts
// can be backdated.
type Interaction struct {
	ID        int64
	TicketID  int64
	Content   string
	Author    string
	CreatedAt time.Time
}
