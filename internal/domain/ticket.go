package domain

import "time"

// TicketStatus enumerates workflow states for tickets. Every state is
// reachable from every other state; only creation pins the initial value.
type TicketStatus string

const (
	TicketStatusAberto           TicketStatus = "aberto"
	TicketStatusPendenteTotvs    TicketStatus = "pendente_totvs"
	TicketStatusPendenteFeso     TicketStatus = "pendente_feso"
	TicketStatusValidacaoCliente TicketStatus = "validacao_cliente"
	TicketStatusFechado          TicketStatus = "fechado"
)

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityBaixa   TicketPriority = "baixa"
	TicketPriorityMedia   TicketPriority = "media"
	TicketPriorityAlta    TicketPriority = "alta"
	TicketPriorityCritica TicketPriority = "critica"
)

// StatusLabels maps status values to their display names.
var StatusLabels = map[TicketStatus]string{
	TicketStatusAberto:           "Aberto",
	TicketStatusPendenteTotvs:    "Pendente TOTVS",
	TicketStatusPendenteFeso:     "Pendente FESO",
	TicketStatusValidacaoCliente: "Validação Cliente",
	TicketStatusFechado:          "Fechado",
}

// ValidStatus reports whether the value is one of the five workflow states.
func ValidStatus(s TicketStatus) bool {
	_, ok := StatusLabels[s]
	return ok
}

// ValidPriority reports whether the value is a known priority.
func ValidPriority(p TicketPriority) bool {
	switch p {
	case TicketPriorityBaixa, TicketPriorityMedia, TicketPriorityAlta, TicketPriorityCritica:
		return true
	}
	return false
}

// StatusLabel returns the display name for a status, falling back to the raw value.
func StatusLabel(s TicketStatus) string {
	if label, ok := StatusLabels[s]; ok {
		return label
	}
	return string(s)
}

// Ticket is the aggregate for support requests. Vendor and Assignee are
// free text; CreatedBy references the owning user and never changes.
type Ticket struct {
	ID          int64
	Title       string
	Description string
	Status      TicketStatus
	Priority    TicketPriority
	Vendor      string
	Assignee    string
	CreatedBy   int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
