package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/chiapettaiago/chamados/internal/domain"
	"github.com/chiapettaiago/chamados/internal/events"
	"github.com/chiapettaiago/chamados/internal/repository"
)

// In-memory fakes mirroring the repository contracts.

type memInteractionRepo struct {
	nextID   int64
	byTicket map[int64][]domain.Interaction
}

func newMemInteractionRepo() *memInteractionRepo {
	return &memInteractionRepo{byTicket: map[int64][]domain.Interaction{}}
}

func (r *memInteractionRepo) Create(_ context.Context, in *domain.Interaction) error {
	r.nextID++
	in.ID = r.nextID
	r.byTicket[in.TicketID] = append(r.byTicket[in.TicketID], *in)
	return nil
}

func (r *memInteractionRepo) ListByTicket(_ context.Context, ticketID int64) ([]domain.Interaction, error) {
	list := append([]domain.Interaction{}, r.byTicket[ticketID]...)
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list, nil
}

type memTicketRepo struct {
	nextID       int64
	tickets      map[int64]domain.Ticket
	interactions *memInteractionRepo
	now          func() time.Time
}

func newMemTicketRepo(interactions *memInteractionRepo, now func() time.Time) *memTicketRepo {
	return &memTicketRepo{tickets: map[int64]domain.Ticket{}, interactions: interactions, now: now}
}

func (r *memTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.nextID++
	ticket.ID = r.nextID
	ticket.CreatedAt = r.now()
	ticket.UpdatedAt = ticket.CreatedAt
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *memTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	if _, ok := r.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = r.now()
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *memTicketRepo) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := ticket
	return &copied, nil
}

func (r *memTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	var result []domain.Ticket
	query := strings.ToLower(strings.TrimSpace(filter.Query))
	for _, ticket := range r.tickets {
		if filter.CreatedBy != nil && ticket.CreatedBy != *filter.CreatedBy {
			continue
		}
		if filter.Status != "" && ticket.Status != filter.Status {
			continue
		}
		if query != "" {
			haystack := strings.ToLower(ticket.Title + "\n" + ticket.Description + "\n" + ticket.Vendor)
			if !strings.Contains(haystack, query) {
				continue
			}
		}
		result = append(result, ticket)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UpdatedAt.After(result[j].UpdatedAt) })
	return result, nil
}

func (r *memTicketRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.tickets, id)
	delete(r.interactions.byTicket, id)
	return nil
}

type memUserRepo struct {
	nextID  int64
	byID    map[int64]domain.User
	byEmail map[string]int64
}

func newMemUserRepo(users ...*domain.User) *memUserRepo {
	repo := &memUserRepo{byID: map[int64]domain.User{}, byEmail: map[string]int64{}}
	for _, user := range users {
		_ = repo.Create(context.Background(), user)
	}
	return repo
}

func (r *memUserRepo) Create(_ context.Context, user *domain.User) error {
	if user.ID == 0 {
		r.nextID++
		user.ID = r.nextID
	} else if user.ID > r.nextID {
		r.nextID = user.ID
	}
	r.byID[user.ID] = *user
	r.byEmail[user.Email] = user.ID
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	user, ok := r.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := user
	return &copied, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	id, ok := r.byEmail[email]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return r.GetByID(context.Background(), id)
}

type captureDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *captureDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *captureDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *captureDispatcher) byType(eventType events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var matched []events.Event
	for _, event := range d.events {
		if event.Type == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}
