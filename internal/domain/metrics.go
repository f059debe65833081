package domain

import (
	"strings"
	"time"
)

// staleThreshold is how long a non-closed ticket may go without contact
// before it is flagged.
const staleThreshold = 24 * time.Hour

// LastContactAt returns the most recent interaction timestamp, or the
// ticket's creation time when no interactions exist.
func LastContactAt(ticket *Ticket, interactions []Interaction) time.Time {
	if len(interactions) == 0 {
		return ticket.CreatedAt
	}
	last := interactions[0].CreatedAt
	for _, in := range interactions[1:] {
		if in.CreatedAt.After(last) {
			last = in.CreatedAt
		}
	}
	return last
}

// LastVendorContactAt returns the most recent interaction authored by the
// ticket's vendor, matched as a case-insensitive substring of the trimmed
// author name. Returns nil when the vendor is blank or nothing matches.
func LastVendorContactAt(ticket *Ticket, interactions []Interaction) *time.Time {
	vendorKey := strings.ToLower(strings.TrimSpace(ticket.Vendor))
	if vendorKey == "" {
		return nil
	}
	var last *time.Time
	for i := range interactions {
		author := strings.ToLower(strings.TrimSpace(interactions[i].Author))
		if author == "" || !strings.Contains(author, vendorKey) {
			continue
		}
		if last == nil || interactions[i].CreatedAt.After(*last) {
			t := interactions[i].CreatedAt
			last = &t
		}
	}
	return last
}

// IsStale24h reports whether a non-closed ticket has gone more than 24 hours
// without contact. Staleness is advisory: any unusable timestamp yields
// false rather than an error.
func IsStale24h(ticket *Ticket, interactions []Interaction, now time.Time) bool {
	if ticket.Status == TicketStatusFechado {
		return false
	}
	last := LastContactAt(ticket, interactions)
	if last.IsZero() {
		last = ticket.CreatedAt
	}
	if last.IsZero() || now.IsZero() {
		return false
	}
	return now.Sub(last) > staleThreshold
}
