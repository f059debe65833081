package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chiapettaiago/chamados/internal/domain"
	"github.com/chiapettaiago/chamados/internal/events"
	apperrors "github.com/chiapettaiago/chamados/pkg/util"
)

type ticketFixture struct {
	svc          *TicketService
	tickets      *memTicketRepo
	interactions *memInteractionRepo
	users        *memUserRepo
	dispatcher   *captureDispatcher
	now          time.Time
}

func newTicketFixture(t *testing.T, users ...*domain.User) *ticketFixture {
	t.Helper()
	fx := &ticketFixture{now: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)}
	fx.interactions = newMemInteractionRepo()
	fx.tickets = newMemTicketRepo(fx.interactions, func() time.Time { return fx.now })
	fx.users = newMemUserRepo(users...)
	fx.dispatcher = &captureDispatcher{}
	fx.svc = NewTicketService(TicketDependencies{
		TicketRepo:      fx.tickets,
		InteractionRepo: fx.interactions,
		UserRepo:        fx.users,
		Dispatcher:      fx.dispatcher,
		Now:             func() time.Time { return fx.now },
	})
	return fx
}

func (fx *ticketFixture) advance(d time.Duration) {
	fx.now = fx.now.Add(d)
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError %q, got %v", code, err)
	}
	if domainErr.Code != code {
		t.Fatalf("expected code %q, got %q", code, domainErr.Code)
	}
}

func adminUser() *domain.User {
	return &domain.User{ID: 1, Name: "Admin", Email: "admin@example.com", Role: domain.RoleAdmin, IsActive: true}
}

func regularUser(id int64, name, email string) *domain.User {
	return &domain.User{ID: id, Name: name, Email: email, Role: domain.RoleUser, IsActive: true}
}

func TestCreateTicket(t *testing.T) {
	ana := regularUser(2, "Ana", "ana@example.com")

	t.Run("forces open status and creator assignment", func(t *testing.T) {
		fx := newTicketFixture(t, ana)
		ticket, err := fx.svc.Create(context.Background(), ana, TicketCreateInput{
			Title:  "Impressora parada",
			Vendor: "TOTVS",
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if ticket.Status != domain.TicketStatusAberto {
			t.Fatalf("expected status aberto, got %s", ticket.Status)
		}
		if ticket.Assignee != "Ana" {
			t.Fatalf("expected assignee Ana, got %q", ticket.Assignee)
		}
		if ticket.Priority != domain.TicketPriorityMedia {
			t.Fatalf("expected default priority media, got %s", ticket.Priority)
		}
		if ticket.CreatedBy != ana.ID {
			t.Fatalf("expected created_by %d, got %d", ana.ID, ticket.CreatedBy)
		}
		if !ticket.UpdatedAt.Equal(ticket.CreatedAt) {
			t.Fatalf("new ticket timestamps should match: %v vs %v", ticket.CreatedAt, ticket.UpdatedAt)
		}

		created := fx.dispatcher.byType(events.EventTicketCreated)
		if len(created) != 1 {
			t.Fatalf("expected one created event, got %d", len(created))
		}
		payload, ok := created[0].Payload.(events.TicketCreatedPayload)
		if !ok {
			t.Fatalf("unexpected payload type %T", created[0].Payload)
		}
		if payload.TicketID != ticket.ID || payload.Recipient.Email != "ana@example.com" {
			t.Fatalf("unexpected payload: %+v", payload)
		}
		if created[0].ID == "" || created[0].Timestamp.IsZero() {
			t.Fatalf("event envelope incomplete: %+v", created[0])
		}
	})

	t.Run("rejects blank title", func(t *testing.T) {
		fx := newTicketFixture(t, ana)
		_, err := fx.svc.Create(context.Background(), ana, TicketCreateInput{Title: "   "})
		requireCode(t, err, "VALIDATION_FAILED")
	})

	t.Run("rejects unknown priority", func(t *testing.T) {
		fx := newTicketFixture(t, ana)
		_, err := fx.svc.Create(context.Background(), ana, TicketCreateInput{Title: "x", Priority: "urgentissima"})
		requireCode(t, err, "VALIDATION_FAILED")
	})
}

func TestEditTicket(t *testing.T) {
	admin := adminUser()
	ana := regularUser(2, "Ana", "ana@example.com")
	bruno := regularUser(3, "Bruno", "bruno@example.com")

	newTicket := func(t *testing.T, fx *ticketFixture, owner *domain.User) *domain.Ticket {
		t.Helper()
		ticket, err := fx.svc.Create(context.Background(), owner, TicketCreateInput{Title: "VPN fora do ar"})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		return ticket
	}

	t.Run("owner edit drops assignee silently", func(t *testing.T) {
		fx := newTicketFixture(t, ana)
		ticket := newTicket(t, fx, ana)

		carlos := "Carlos"
		desc := "sem acesso desde cedo"
		fx.advance(time.Minute)
		updated, err := fx.svc.Edit(context.Background(), ana, ticket.ID, TicketPatch{
			Description: &desc,
			Assignee:    &carlos,
		})
		if err != nil {
			t.Fatalf("edit: %v", err)
		}
		if updated.Assignee != "Ana" {
			t.Fatalf("non-admin reassignment must be ignored, got %q", updated.Assignee)
		}
		if updated.Description != desc {
			t.Fatalf("description not applied: %q", updated.Description)
		}
		if !updated.UpdatedAt.After(ticket.CreatedAt) {
			t.Fatalf("updated_at should advance on edit")
		}
	})

	t.Run("admin reassigns without status event", func(t *testing.T) {
		fx := newTicketFixture(t, admin, ana)
		ticket := newTicket(t, fx, ana)

		carlos := "Carlos"
		updated, err := fx.svc.Edit(context.Background(), admin, ticket.ID, TicketPatch{Assignee: &carlos})
		if err != nil {
			t.Fatalf("edit: %v", err)
		}
		if updated.Assignee != "Carlos" {
			t.Fatalf("admin reassignment should apply, got %q", updated.Assignee)
		}
		if changed := fx.dispatcher.byType(events.EventTicketStatusChanged); len(changed) != 0 {
			t.Fatalf("no status event expected, got %d", len(changed))
		}
	})

	t.Run("status change notifies the creator", func(t *testing.T) {
		fx := newTicketFixture(t, admin, ana)
		ticket := newTicket(t, fx, ana)

		fechado := domain.TicketStatusFechado
		if _, err := fx.svc.Edit(context.Background(), admin, ticket.ID, TicketPatch{Status: &fechado}); err != nil {
			t.Fatalf("edit: %v", err)
		}
		changed := fx.dispatcher.byType(events.EventTicketStatusChanged)
		if len(changed) != 1 {
			t.Fatalf("expected one status event, got %d", len(changed))
		}
		payload := changed[0].Payload.(events.TicketStatusChangedPayload)
		if payload.OldStatus != domain.TicketStatusAberto || payload.NewStatus != domain.TicketStatusFechado {
			t.Fatalf("unexpected transition: %s -> %s", payload.OldStatus, payload.NewStatus)
		}
		if payload.Recipient.Email != "ana@example.com" {
			t.Fatalf("status event must target the creator, got %q", payload.Recipient.Email)
		}
	})

	t.Run("same status produces no event", func(t *testing.T) {
		fx := newTicketFixture(t, admin, ana)
		ticket := newTicket(t, fx, ana)

		aberto := domain.TicketStatusAberto
		if _, err := fx.svc.Edit(context.Background(), admin, ticket.ID, TicketPatch{Status: &aberto}); err != nil {
			t.Fatalf("edit: %v", err)
		}
		if changed := fx.dispatcher.byType(events.EventTicketStatusChanged); len(changed) != 0 {
			t.Fatalf("no status event on no-op status, got %d", len(changed))
		}
	})

	t.Run("stranger is forbidden and nothing changes", func(t *testing.T) {
		fx := newTicketFixture(t, ana, bruno)
		ticket := newTicket(t, fx, ana)

		fechado := domain.TicketStatusFechado
		_, err := fx.svc.Edit(context.Background(), bruno, ticket.ID, TicketPatch{Status: &fechado})
		requireCode(t, err, "FORBIDDEN")

		stored, err := fx.tickets.GetByID(context.Background(), ticket.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if stored.Status != domain.TicketStatusAberto {
			t.Fatalf("forbidden edit must not persist, got %s", stored.Status)
		}
		if len(fx.dispatcher.byType(events.EventTicketStatusChanged)) != 0 {
			t.Fatalf("forbidden edit must not publish events")
		}
	})

	t.Run("unknown status rejected", func(t *testing.T) {
		fx := newTicketFixture(t, ana)
		ticket := newTicket(t, fx, ana)

		bogus := domain.TicketStatus("resolvido")
		_, err := fx.svc.Edit(context.Background(), ana, ticket.ID, TicketPatch{Status: &bogus})
		requireCode(t, err, "VALIDATION_FAILED")
	})
}

func TestDeleteTicket(t *testing.T) {
	ana := regularUser(2, "Ana", "ana@example.com")
	bruno := regularUser(3, "Bruno", "bruno@example.com")

	t.Run("owner delete removes interactions too", func(t *testing.T) {
		fx := newTicketFixture(t, ana)
		ticket, err := fx.svc.Create(context.Background(), ana, TicketCreateInput{Title: "Teclado quebrado"})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		for i := 0; i < 3; i++ {
			if _, err := fx.svc.AddInteraction(context.Background(), ana, ticket.ID, InteractionInput{
				Content: "andamento",
				Author:  "Ana",
			}); err != nil {
				t.Fatalf("add interaction: %v", err)
			}
		}

		if err := fx.svc.Delete(context.Background(), ana, ticket.ID); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, err := fx.tickets.GetByID(context.Background(), ticket.ID); err == nil {
			t.Fatalf("ticket should be gone")
		}
		remaining, _ := fx.interactions.ListByTicket(context.Background(), ticket.ID)
		if len(remaining) != 0 {
			t.Fatalf("interactions should cascade, %d left", len(remaining))
		}
	})

	t.Run("stranger delete forbidden", func(t *testing.T) {
		fx := newTicketFixture(t, ana, bruno)
		ticket, err := fx.svc.Create(context.Background(), ana, TicketCreateInput{Title: "Monitor piscando"})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		requireCode(t, fx.svc.Delete(context.Background(), bruno, ticket.ID), "FORBIDDEN")
	})
}

func TestAddInteraction(t *testing.T) {
	ana := regularUser(2, "Ana", "ana@example.com")
	bruno := regularUser(3, "Bruno", "bruno@example.com")

	t.Run("defaults created_at and leaves updated_at alone", func(t *testing.T) {
		fx := newTicketFixture(t, ana)
		ticket, err := fx.svc.Create(context.Background(), ana, TicketCreateInput{Title: "Sistema lento"})
		if err != nil {
			t.Fatalf("create: %v", err)
		}

		fx.advance(2 * time.Hour)
		interaction, err := fx.svc.AddInteraction(context.Background(), ana, ticket.ID, InteractionInput{
			Content: "reiniciado o servico",
			Author:  "Ana",
		})
		if err != nil {
			t.Fatalf("add interaction: %v", err)
		}
		if !interaction.CreatedAt.Equal(fx.now) {
			t.Fatalf("zero created_at should default to submission time, got %v", interaction.CreatedAt)
		}

		stored, _ := fx.tickets.GetByID(context.Background(), ticket.ID)
		if !stored.UpdatedAt.Equal(ticket.UpdatedAt) {
			t.Fatalf("interactions must not touch updated_at: %v vs %v", stored.UpdatedAt, ticket.UpdatedAt)
		}
	})

	t.Run("accepts backdated timestamps", func(t *testing.T) {
		fx := newTicketFixture(t, ana)
		ticket, _ := fx.svc.Create(context.Background(), ana, TicketCreateInput{Title: "Sistema lento"})

		past := fx.now.Add(-48 * time.Hour)
		interaction, err := fx.svc.AddInteraction(context.Background(), ana, ticket.ID, InteractionInput{
			Content:   "registro antigo",
			Author:    "Ana",
			CreatedAt: past,
		})
		if err != nil {
			t.Fatalf("add interaction: %v", err)
		}
		if !interaction.CreatedAt.Equal(past) {
			t.Fatalf("backdated timestamp should be kept, got %v", interaction.CreatedAt)
		}
	})

	t.Run("stranger forbidden", func(t *testing.T) {
		fx := newTicketFixture(t, ana, bruno)
		ticket, _ := fx.svc.Create(context.Background(), ana, TicketCreateInput{Title: "Sistema lento"})
		_, err := fx.svc.AddInteraction(context.Background(), bruno, ticket.ID, InteractionInput{Content: "x", Author: "Bruno"})
		requireCode(t, err, "FORBIDDEN")
	})

	t.Run("requires content and author", func(t *testing.T) {
		fx := newTicketFixture(t, ana)
		ticket, _ := fx.svc.Create(context.Background(), ana, TicketCreateInput{Title: "Sistema lento"})
		_, err := fx.svc.AddInteraction(context.Background(), ana, ticket.ID, InteractionInput{Content: "  ", Author: "Ana"})
		requireCode(t, err, "VALIDATION_FAILED")
	})
}

func TestListTickets(t *testing.T) {
	admin := adminUser()
	ana := regularUser(2, "Ana", "ana@example.com")
	bruno := regularUser(3, "Bruno", "bruno@example.com")

	seed := func(t *testing.T) *ticketFixture {
		t.Helper()
		fx := newTicketFixture(t, admin, ana, bruno)
		if _, err := fx.svc.Create(context.Background(), ana, TicketCreateInput{Title: "Erro no TOTVS", Vendor: "TOTVS"}); err != nil {
			t.Fatalf("seed: %v", err)
		}
		fx.advance(time.Minute)
		if _, err := fx.svc.Create(context.Background(), bruno, TicketCreateInput{Title: "Link caiu"}); err != nil {
			t.Fatalf("seed: %v", err)
		}
		return fx
	}

	t.Run("admin sees everything", func(t *testing.T) {
		fx := seed(t)
		tickets, err := fx.svc.List(context.Background(), admin, "", "")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(tickets) != 2 {
			t.Fatalf("expected 2 tickets, got %d", len(tickets))
		}
		if !tickets[0].UpdatedAt.After(tickets[1].UpdatedAt) && !tickets[0].UpdatedAt.Equal(tickets[1].UpdatedAt) {
			t.Fatalf("expected most recently updated first")
		}
	})

	t.Run("non-admin sees only own tickets", func(t *testing.T) {
		fx := seed(t)
		tickets, err := fx.svc.List(context.Background(), ana, "", "")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(tickets) != 1 || tickets[0].CreatedBy != ana.ID {
			t.Fatalf("expected only Ana's ticket, got %+v", tickets)
		}
	})

	t.Run("query matches vendor case-insensitively", func(t *testing.T) {
		fx := seed(t)
		tickets, err := fx.svc.List(context.Background(), admin, "totvs", "")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(tickets) != 1 || tickets[0].Vendor != "TOTVS" {
			t.Fatalf("expected the TOTVS ticket, got %+v", tickets)
		}
	})

	t.Run("unknown status filter rejected", func(t *testing.T) {
		fx := seed(t)
		_, err := fx.svc.List(context.Background(), admin, "", domain.TicketStatus("resolvido"))
		requireCode(t, err, "VALIDATION_FAILED")
	})
}

func TestStaleDigestOnListing(t *testing.T) {
	admin := adminUser()
	ana := regularUser(2, "Ana", "ana@example.com")

	seedAged := func(t *testing.T) (*ticketFixture, *domain.Ticket) {
		t.Helper()
		fx := newTicketFixture(t, admin, ana)
		stale, err := fx.svc.Create(context.Background(), ana, TicketCreateInput{Title: "Sem retorno"})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
		closed, err := fx.svc.Create(context.Background(), ana, TicketCreateInput{Title: "Ja resolvido"})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
		fechado := domain.TicketStatusFechado
		if _, err := fx.svc.Edit(context.Background(), ana, closed.ID, TicketPatch{Status: &fechado}); err != nil {
			t.Fatalf("seed: %v", err)
		}
		fx.advance(30 * time.Hour)
		if _, err := fx.svc.Create(context.Background(), ana, TicketCreateInput{Title: "Recente"}); err != nil {
			t.Fatalf("seed: %v", err)
		}
		return fx, stale
	}

	t.Run("digest lists only open stale tickets", func(t *testing.T) {
		fx, stale := seedAged(t)
		if _, err := fx.svc.List(context.Background(), ana, "", ""); err != nil {
			t.Fatalf("list: %v", err)
		}
		digests := fx.dispatcher.byType(events.EventTicketStaleDigest)
		if len(digests) != 1 {
			t.Fatalf("expected one digest, got %d", len(digests))
		}
		payload := digests[0].Payload.(events.TicketStaleDigestPayload)
		if payload.Recipient.Email != "ana@example.com" {
			t.Fatalf("digest must target the viewer, got %q", payload.Recipient.Email)
		}
		if len(payload.Tickets) != 1 || payload.Tickets[0].TicketID != stale.ID {
			t.Fatalf("expected only the aged open ticket, got %+v", payload.Tickets)
		}
	})

	t.Run("digest repeats on every listing", func(t *testing.T) {
		fx, _ := seedAged(t)
		for i := 0; i < 2; i++ {
			if _, err := fx.svc.List(context.Background(), ana, "", ""); err != nil {
				t.Fatalf("list: %v", err)
			}
		}
		if digests := fx.dispatcher.byType(events.EventTicketStaleDigest); len(digests) != 2 {
			t.Fatalf("digest should not be suppressed, got %d", len(digests))
		}
	})

	t.Run("recent interaction clears staleness", func(t *testing.T) {
		fx, stale := seedAged(t)
		if _, err := fx.svc.AddInteraction(context.Background(), ana, stale.ID, InteractionInput{
			Content: "retorno do fornecedor",
			Author:  "Ana",
		}); err != nil {
			t.Fatalf("add interaction: %v", err)
		}
		if _, err := fx.svc.List(context.Background(), ana, "", ""); err != nil {
			t.Fatalf("list: %v", err)
		}
		if digests := fx.dispatcher.byType(events.EventTicketStaleDigest); len(digests) != 0 {
			t.Fatalf("fresh interaction should clear the digest, got %d", len(digests))
		}
	})

	t.Run("admin listing never emits a digest", func(t *testing.T) {
		fx, _ := seedAged(t)
		if _, err := fx.svc.List(context.Background(), admin, "", ""); err != nil {
			t.Fatalf("list: %v", err)
		}
		if digests := fx.dispatcher.byType(events.EventTicketStaleDigest); len(digests) != 0 {
			t.Fatalf("admin listings are digest-free, got %d", len(digests))
		}
	})
}

func TestGetTicket(t *testing.T) {
	ana := regularUser(2, "Ana", "ana@example.com")
	bruno := regularUser(3, "Bruno", "bruno@example.com")

	t.Run("returns derived metrics", func(t *testing.T) {
		fx := newTicketFixture(t, ana)
		ticket, _ := fx.svc.Create(context.Background(), ana, TicketCreateInput{Title: "Erro no TOTVS", Vendor: "TOTVS"})

		fx.advance(time.Hour)
		if _, err := fx.svc.AddInteraction(context.Background(), ana, ticket.ID, InteractionInput{
			Content: "aberto chamado com a TOTVS Suporte",
			Author:  "TOTVS Suporte",
		}); err != nil {
			t.Fatalf("add interaction: %v", err)
		}

		view, err := fx.svc.Get(context.Background(), ana, ticket.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if len(view.Interactions) != 1 {
			t.Fatalf("expected one interaction, got %d", len(view.Interactions))
		}
		if !view.LastContactAt.Equal(fx.now) {
			t.Fatalf("last contact should be the interaction time, got %v", view.LastContactAt)
		}
		if view.LastVendorContactAt == nil || !view.LastVendorContactAt.Equal(fx.now) {
			t.Fatalf("vendor contact should match the vendor-authored interaction, got %v", view.LastVendorContactAt)
		}
		if view.Stale {
			t.Fatalf("ticket with fresh contact is not stale")
		}
	})

	t.Run("stranger forbidden", func(t *testing.T) {
		fx := newTicketFixture(t, ana, bruno)
		ticket, _ := fx.svc.Create(context.Background(), ana, TicketCreateInput{Title: "Erro no TOTVS"})
		_, err := fx.svc.Get(context.Background(), bruno, ticket.ID)
		requireCode(t, err, "FORBIDDEN")
	})
}
