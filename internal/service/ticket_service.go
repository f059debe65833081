package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chiapettaiago/chamados/internal/domain"
	"github.com/chiapettaiago/chamados/internal/events"
	"github.com/chiapettaiago/chamados/internal/repository"
	apperrors "github.com/chiapettaiago/chamados/pkg/util"
)

// TicketService coordinates the ticket lifecycle: creation, edits, deletion,
// interaction appends and the stale check performed on listings.
type TicketService struct {
	tickets      repository.TicketRepository
	interactions repository.InteractionRepository
	users        repository.UserRepository
	dispatcher   events.Dispatcher
	logger       *zap.Logger
	now          func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo      repository.TicketRepository
	InteractionRepo repository.InteractionRepository
	UserRepo        repository.UserRepository
	Dispatcher      events.Dispatcher
	Logger          *zap.Logger
	Now             func() time.Time
}

// TicketCreateInput describes ticket creation payload. Status and assignee
// requests are ignored: new tickets always open as "aberto" assigned to the
// creator.
type TicketCreateInput struct {
	Title       string
	Description string
	Priority    domain.TicketPriority
	Vendor      string
}

// TicketPatch carries edit fields; nil pointers leave the field untouched.
type TicketPatch struct {
	Title       *string
	Description *string
	Status      *domain.TicketStatus
	Priority    *domain.TicketPriority
	Vendor      *string
	Assignee    *string
}

// InteractionInput describes an interaction append. A zero CreatedAt
// defaults to the submission time; past timestamps are accepted.
type InteractionInput struct {
	Content   string
	Author    string
	CreatedAt time.Time
}

// TicketView pairs a ticket with its interactions and derived metrics.
type TicketView struct {
	Ticket              domain.Ticket
	Interactions        []domain.Interaction
	LastContactAt       time.Time
	LastVendorContactAt *time.Time
	Stale               bool
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:      deps.TicketRepo,
		interactions: deps.InteractionRepo,
		users:        deps.UserRepo,
		dispatcher:   deps.Dispatcher,
		logger:       logger,
		now:          now,
	}
}

// Create opens a new ticket owned by the acting user and notifies them.
func (s *TicketService) Create(ctx context.Context, user *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title required", nil)
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedia
	}
	if !domain.ValidPriority(priority) {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": priority})
	}

	ticket := &domain.Ticket{
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Status:      domain.TicketStatusAberto,
		Priority:    priority,
		Vendor:      strings.TrimSpace(input.Vendor),
		Assignee:    user.Name,
		CreatedBy:   user.ID,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type: events.EventTicketCreated,
		Payload: events.TicketCreatedPayload{
			TicketID:  ticket.ID,
			Title:     ticket.Title,
			Status:    ticket.Status,
			Recipient: recipientFromUser(user),
		},
	})
	return ticket, nil
}

// Edit applies a patch to a ticket. Non-admin callers may not change the
// assignee; a supplied value is dropped without error. A status change
// notifies the ticket's creator.
func (s *TicketService) Edit(ctx context.Context, user *domain.User, ticketID int64, patch TicketPatch) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !domain.CanEdit(user, ticket) {
		return nil, apperrors.NewForbidden("no permission to edit this ticket")
	}
	if patch.Status != nil && !domain.ValidStatus(*patch.Status) {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": *patch.Status})
	}
	if patch.Priority != nil && !domain.ValidPriority(*patch.Priority) {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": *patch.Priority})
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, apperrors.NewValidationError("title required", nil)
	}

	oldStatus := ticket.Status
	if patch.Title != nil {
		ticket.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		ticket.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Status != nil {
		ticket.Status = *patch.Status
	}
	if patch.Priority != nil {
		ticket.Priority = *patch.Priority
	}
	if patch.Vendor != nil {
		ticket.Vendor = strings.TrimSpace(*patch.Vendor)
	}
	if patch.Assignee != nil && domain.CanReassign(user) {
		ticket.Assignee = strings.TrimSpace(*patch.Assignee)
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}

	if ticket.Status != oldStatus {
		s.notifyStatusChanged(ctx, ticket, oldStatus)
	}
	return ticket, nil
}

// Delete removes a ticket and every interaction attached to it.
func (s *TicketService) Delete(ctx context.Context, user *domain.User, ticketID int64) error {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return err
	}
	if !domain.CanDelete(user, ticket) {
		return apperrors.NewForbidden("no permission to delete this ticket")
	}
	return s.tickets.Delete(ctx, ticket.ID)
}

// AddInteraction appends a timestamped note. Requires edit rights on the
// ticket. The ticket's updated_at is deliberately left untouched, so the
// listing order reflects ticket edits only.
func (s *TicketService) AddInteraction(ctx context.Context, user *domain.User, ticketID int64, input InteractionInput) (*domain.Interaction, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !domain.CanEdit(user, ticket) {
		return nil, apperrors.NewForbidden("no permission to interact with this ticket")
	}
	content := strings.TrimSpace(input.Content)
	author := strings.TrimSpace(input.Author)
	if content == "" || author == "" {
		return nil, apperrors.NewValidationError("content and author required", nil)
	}
	createdAt := input.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	interaction := &domain.Interaction{
		TicketID:  ticket.ID,
		Content:   content,
		Author:    author,
		CreatedAt: createdAt,
	}
	if err := s.interactions.Create(ctx, interaction); err != nil {
		return nil, err
	}
	return interaction, nil
}

// List returns tickets visible to the user, filtered by a free-text query
// and an optional status, most recently updated first. For non-admin
// viewers it also checks staleness and emits a digest event when any
// non-closed ticket has gone 24h without contact. The digest fires on every
// listing that matches the condition.
func (s *TicketService) List(ctx context.Context, user *domain.User, query string, status domain.TicketStatus) ([]domain.Ticket, error) {
	if status != "" && !domain.ValidStatus(status) {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": status})
	}

	filter := repository.TicketFilter{Query: query, Status: status}
	if !user.IsAdmin() {
		filter.CreatedBy = &user.ID
	}
	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, err
	}

	if !user.IsAdmin() {
		s.checkStaleAndNotify(ctx, user, tickets)
	}
	return tickets, nil
}

// Get returns a ticket with interactions and derived metrics.
func (s *TicketService) Get(ctx context.Context, user *domain.User, ticketID int64) (*TicketView, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !domain.CanView(user, ticket) {
		return nil, apperrors.NewForbidden("no permission to view this ticket")
	}
	interactions, err := s.interactions.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	return &TicketView{
		Ticket:              *ticket,
		Interactions:        interactions,
		LastContactAt:       domain.LastContactAt(ticket, interactions),
		LastVendorContactAt: domain.LastVendorContactAt(ticket, interactions),
		Stale:               domain.IsStale24h(ticket, interactions, now),
	}, nil
}

func (s *TicketService) checkStaleAndNotify(ctx context.Context, user *domain.User, tickets []domain.Ticket) {
	now := s.now()
	var stale []events.StaleTicketRef
	for i := range tickets {
		interactions, err := s.interactions.ListByTicket(ctx, tickets[i].ID)
		if err != nil {
			// staleness is advisory; a failed read never breaks the listing
			s.logger.Warn("stale check skipped", zap.Int64("ticket_id", tickets[i].ID), zap.Error(err))
			continue
		}
		if domain.IsStale24h(&tickets[i], interactions, now) {
			stale = append(stale, events.StaleTicketRef{TicketID: tickets[i].ID, Title: tickets[i].Title})
		}
	}
	if len(stale) == 0 {
		return
	}
	s.publish(ctx, events.Event{
		Type: events.EventTicketStaleDigest,
		Payload: events.TicketStaleDigestPayload{
			Recipient: recipientFromUser(user),
			Tickets:   stale,
		},
	})
}

func (s *TicketService) notifyStatusChanged(ctx context.Context, ticket *domain.Ticket, oldStatus domain.TicketStatus) {
	creator, err := s.users.GetByID(ctx, ticket.CreatedBy)
	if err != nil {
		s.logger.Warn("status change notification skipped: creator lookup failed",
			zap.Int64("ticket_id", ticket.ID), zap.Error(err))
		return
	}
	s.publish(ctx, events.Event{
		Type: events.EventTicketStatusChanged,
		Payload: events.TicketStatusChangedPayload{
			TicketID:  ticket.ID,
			Title:     ticket.Title,
			OldStatus: oldStatus,
			NewStatus: ticket.Status,
			Recipient: recipientFromUser(creator),
		},
	})
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func recipientFromUser(user *domain.User) events.Recipient {
	return events.Recipient{
		Name:      user.Name,
		Email:     user.Email,
		PhoneE164: user.PhoneE164,
	}
}
