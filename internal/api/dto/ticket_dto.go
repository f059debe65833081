package dto

import (
	"time"

	"github.com/chiapettaiago/chamados/internal/domain"
)

// CreateTicketRequest payload. Status and assignee are accepted but not
// honored: creation always opens as "aberto" assigned to the caller.
type CreateTicketRequest struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Status      domain.TicketStatus   `json:"status"`
	Priority    domain.TicketPriority `json:"priority"`
	Vendor      string                `json:"vendor"`
	Assignee    string                `json:"assignee"`
}

// UpdateTicketRequest payload; absent fields stay unchanged.
type UpdateTicketRequest struct {
	Title       *string                `json:"title"`
	Description *string                `json:"description"`
	Status      *domain.TicketStatus   `json:"status"`
	Priority    *domain.TicketPriority `json:"priority"`
	Vendor      *string                `json:"vendor"`
	Assignee    *string                `json:"assignee"`
}

// CreateInteractionRequest payload. CreatedAt may be backdated; when zero
// it defaults to the submission time.
type CreateInteractionRequest struct {
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

// TicketSummary response.
type TicketSummary struct {
	ID        int64                 `json:"id"`
	Title     string                `json:"title"`
	Status    domain.TicketStatus   `json:"status"`
	Priority  domain.TicketPriority `json:"priority"`
	Vendor    string                `json:"vendor,omitempty"`
	Assignee  string                `json:"assignee,omitempty"`
	CreatedBy int64                 `json:"created_by"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info with derived metrics.
type TicketDetailResponse struct {
	ID                  int64                 `json:"id"`
	Title               string                `json:"title"`
	Description         string                `json:"description"`
	Status              domain.TicketStatus   `json:"status"`
	StatusLabel         string                `json:"status_label"`
	Priority            domain.TicketPriority `json:"priority"`
	Vendor              string                `json:"vendor,omitempty"`
	Assignee            string                `json:"assignee,omitempty"`
	CreatedBy           int64                 `json:"created_by"`
	CreatedAt           time.Time             `json:"created_at"`
	UpdatedAt           time.Time             `json:"updated_at"`
	LastContactAt       time.Time             `json:"last_contact_at"`
	LastVendorContactAt *time.Time            `json:"last_vendor_contact_at,omitempty"`
	Stale               bool                  `json:"stale"`
	Interactions        []InteractionResponse `json:"interactions"`
}

// InteractionResponse represents one ticket note.
type InteractionResponse struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}
