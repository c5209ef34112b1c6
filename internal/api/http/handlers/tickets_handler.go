package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// TicketsHandler manages ticket and comment endpoints.
type TicketsHandler struct {
	tickets *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService) *TicketsHandler {
	return &TicketsHandler{tickets: tickets}
}

// List handles GET /api/tickets.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	filter := service.TicketListFilter{SearchTerm: queryString(c, "search")}
	for _, status := range queryList(c, "status") {
		filter.Statuses = append(filter.Statuses, domain.TicketStatus(status))
	}
	for _, priority := range queryList(c, "priority") {
		filter.Priorities = append(filter.Priorities, domain.TicketPriority(priority))
	}
	if filter.DepartmentID, err = queryID(c, "department_id"); err != nil {
		return err
	}
	if filter.AgentID, err = queryID(c, "agent_id"); err != nil {
		return err
	}
	if filter.Limit, err = queryInt(c, "limit"); err != nil {
		return err
	}
	if filter.Offset, err = queryInt(c, "offset"); err != nil {
		return err
	}

	tickets, err := h.tickets.ListTickets(c.UserContext(), a, filter)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketResponses(tickets))
}

// Get handles GET /api/tickets/:id and returns the ticket with its thread and history.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	detail, err := h.tickets.GetTicket(c.UserContext(), a, id)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketDetailResponse(detail.Ticket, detail.Comments, detail.Activity))
}

// Create handles POST /api/tickets.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ticket, err := h.tickets.CreateTicket(c.UserContext(), a, service.TicketCreateInput{
		Title:        req.Title,
		Description:  req.Description,
		Priority:     req.Priority,
		DepartmentID: req.DepartmentID,
		OnBehalfOf:   req.UserID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.NewTicketResponse(ticket))
}

// Update handles PUT /api/tickets/:id.
func (h *TicketsHandler) Update(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	patch := service.TicketPatch{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
	}
	if req.DepartmentID.Set {
		patch.DepartmentID = service.SetID(req.DepartmentID.Value)
	}
	if req.AssignedToUserID.Set {
		patch.AssignedToUserID = service.SetID(req.AssignedToUserID.Value)
	}

	ticket, err := h.tickets.UpdateTicket(c.UserContext(), a, id, patch)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketResponse(ticket))
}

// Delete handles DELETE /api/tickets/:id.
func (h *TicketsHandler) Delete(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.tickets.DeleteTicket(c.UserContext(), a, id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// AddComment handles POST /api/tickets/:id/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req dto.CreateCommentRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	comment, err := h.tickets.AddComment(c.UserContext(), a, id, req.Message)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.NewCommentResponse(comment))
}
