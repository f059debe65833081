package events

import (
	"time"

	"github.com/chiapettaiago/chamados/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketStaleDigest   EventType = "ticket_stale_digest"
)

// Recipient carries the notification target resolved at publish time.
// PhoneE164 may be empty, in which case only email is attempted.
type Recipient struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	PhoneE164 string `json:"phone_e164,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TicketID  int64               `json:"ticket_id"`
	Title     string              `json:"title"`
	Status    domain.TicketStatus `json:"status"`
	Recipient Recipient           `json:"recipient"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	TicketID  int64               `json:"ticket_id"`
	Title     string              `json:"title"`
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Recipient Recipient           `json:"recipient"`
}

// StaleTicketRef identifies one stale ticket inside a digest.
type StaleTicketRef struct {
	TicketID int64  `json:"ticket_id"`
	Title    string `json:"title"`
}

// TicketStaleDigestPayload aggregates every stale ticket in one listing.
type TicketStaleDigestPayload struct {
	Recipient Recipient        `json:"recipient"`
	Tickets   []StaleTicketRef `json:"tickets"`
}
