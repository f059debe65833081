package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/chiapettaiago/chamados/internal/api/dto"
	"github.com/chiapettaiago/chamados/internal/auth"
	"github.com/chiapettaiago/chamados/internal/domain"
	"github.com/chiapettaiago/chamados/internal/service"
	apperrors "github.com/chiapettaiago/chamados/pkg/util"
)

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// ListTickets GET /tickets?q=&status=.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	tickets, err := h.service.List(c.Context(), user, c.Query("q"), domain.TicketStatus(c.Query("status")))
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Vendor:      req.Vendor,
	}
	ticket, err := h.service.Create(c.Context(), user, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	id, err := parseID(c.Params("id"))
	if err != nil {
		return err
	}
	view, err := h.service.Get(c.Context(), user, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(view)})
}

// UpdateTicket PUT /tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	id, err := parseID(c.Params("id"))
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	patch := service.TicketPatch{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		Vendor:      req.Vendor,
		Assignee:    req.Assignee,
	}
	ticket, err := h.service.Edit(c.Context(), user, id, patch)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// DeleteTicket DELETE /tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	id, err := parseID(c.Params("id"))
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.Context(), user, id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// AddInteraction POST /tickets/:id/interactions.
func (h *TicketsHandler) AddInteraction(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	id, err := parseID(c.Params("id"))
	if err != nil {
		return err
	}
	var req dto.CreateInteractionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	interaction, err := h.service.AddInteraction(c.Context(), user, id, service.InteractionInput{
		Content:   req.Content,
		Author:    req.Author,
		CreatedAt: req.CreatedAt,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": interactionResponse(interaction)})
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid ticket id", map[string]any{"id": raw})
	}
	return id, nil
}

func ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:        ticket.ID,
		Title:     ticket.Title,
		Status:    ticket.Status,
		Priority:  ticket.Priority,
		Vendor:    ticket.Vendor,
		Assignee:  ticket.Assignee,
		CreatedBy: ticket.CreatedBy,
		CreatedAt: ticket.CreatedAt,
		UpdatedAt: ticket.UpdatedAt,
	}
}

func ticketDetail(view *service.TicketView) dto.TicketDetailResponse {
	interactions := make([]dto.InteractionResponse, 0, len(view.Interactions))
	for i := range view.Interactions {
		interactions = append(interactions, interactionResponse(&view.Interactions[i]))
	}
	return dto.TicketDetailResponse{
		ID:                  view.Ticket.ID,
		Title:               view.Ticket.Title,
		Description:         view.Ticket.Description,
		Status:              view.Ticket.Status,
		StatusLabel:         domain.StatusLabel(view.Ticket.Status),
		Priority:            view.Ticket.Priority,
		Vendor:              view.Ticket.Vendor,
		Assignee:            view.Ticket.Assignee,
		CreatedBy:           view.Ticket.CreatedBy,
		CreatedAt:           view.Ticket.CreatedAt,
		UpdatedAt:           view.Ticket.UpdatedAt,
		LastContactAt:       view.LastContactAt,
		LastVendorContactAt: view.LastVendorContactAt,
		Stale:               view.Stale,
		Interactions:        interactions,
	}
}

func interactionResponse(in *domain.Interaction) dto.InteractionResponse {
	return dto.InteractionResponse{
		ID:        in.ID,
		Content:   in.Content,
		Author:    in.Author,
		CreatedAt: in.CreatedAt,
	}
}
