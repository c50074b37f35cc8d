package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
	"github.com/spec-kit/helpdesk/internal/session"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// TicketWorkflow is the ticket service surface used by the handlers.
type TicketWorkflow interface {
	Create(ctx context.Context, actor *domain.Actor, input service.TicketCreateInput) (*domain.Ticket, error)
	GetForViewer(ctx context.Context, actor *domain.Actor, ticketID int64) (*service.TicketView, error)
	AddResponse(ctx context.Context, actor *domain.Actor, ticketID int64, input service.ResponseInput) (*domain.TicketResponse, error)
	AssignAgent(ctx context.Context, actor *domain.Actor, ticketID, agentID int64) (*domain.Ticket, error)
	ChangeStatus(ctx context.Context, actor *domain.Actor, ticketID int64, status domain.TicketStatus) (*domain.Ticket, error)
	Delete(ctx context.Context, actor *domain.Actor, ticketID int64) error
	CustomerDashboard(ctx context.Context, actor *domain.Actor) ([]domain.Ticket, error)
	AgentDashboard(ctx context.Context, actor *domain.Actor) ([]domain.Ticket, error)
	AdminDashboard(ctx context.Context, actor *domain.Actor, statuses []domain.TicketStatus) (*service.AdminDashboard, error)
}

// TicketsHandler manages ticket pages and dashboards.
type TicketsHandler struct {
	service  TicketWorkflow
	notifier *Notifier
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService TicketWorkflow, notifier *Notifier) *TicketsHandler {
	return &TicketsHandler{service: ticketService, notifier: notifier}
}

// SubmitForm GET /submit_ticket.
func (h *TicketsHandler) SubmitForm(c *fiber.Ctx) error {
	return h.notifier.Page(c, fiber.StatusOK, dto.TicketFormOptions{
		Categories:      domain.AllTicketCategories(),
		Priorities:      domain.AllTicketPriorities(),
		DefaultPriority: domain.TicketPriorityMedium,
	})
}

// Submit POST /submit_ticket.
func (h *TicketsHandler) Submit(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	_, err := h.service.Create(c.UserContext(), auth.ActorFromContext(c), service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Priority:    req.Priority,
	})
	if err != nil {
		return h.notifier.Fail(c, err)
	}
	return h.notifier.Redirect(c, "/user_dashboard", session.CategorySuccess, "Your ticket has been submitted!")
}

// Detail GET /ticket/:id.
func (h *TicketsHandler) Detail(c *fiber.Ctx) error {
	ticketID, err := idParam(c, "ticket")
	if err != nil {
		return err
	}
	actor := auth.ActorFromContext(c)
	view, err := h.service.GetForViewer(c.UserContext(), actor, ticketID)
	if err != nil {
		return h.notifier.Fail(c, err)
	}

	detail := dto.TicketDetail{
		TicketSummary: ticketSummary(view.Ticket),
		Description:   view.Ticket.Description,
		Responses:     responseViews(view.Responses),
	}
	if actor.Role.IsStaff() {
		detail.Agents = userSummaries(view.Agents)
		detail.Statuses = domain.AllTicketStatuses()
	}
	return h.notifier.Page(c, fiber.StatusOK, detail)
}

// Respond POST /ticket/:id.
func (h *TicketsHandler) Respond(c *fiber.Ctx) error {
	ticketID, err := idParam(c, "ticket")
	if err != nil {
		return err
	}
	var req dto.AddResponseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	_, err = h.service.AddResponse(c.UserContext(), auth.ActorFromContext(c), ticketID, service.ResponseInput{
		Content:        req.Content,
		IsInternalNote: req.IsInternalNote,
	})
	if err != nil {
		return h.notifier.Fail(c, err)
	}
	return h.notifier.Redirect(c, auth.TicketPath(ticketID), session.CategorySuccess, "Your response has been added!")
}

// Assign POST /ticket/:id/assign.
func (h *TicketsHandler) Assign(c *fiber.Ctx) error {
	ticketID, err := idParam(c, "ticket")
	if err != nil {
		return err
	}
	var req dto.AssignAgentRequest
	if err := c.BodyParser(&req); err != nil || req.AgentID <= 0 {
		return h.notifier.Redirect(c, auth.TicketPath(ticketID), session.CategoryDanger, service.NoticeInvalidAgent)
	}
	ticket, err := h.service.AssignAgent(c.UserContext(), auth.ActorFromContext(c), ticketID, req.AgentID)
	if err != nil {
		return h.notifier.Fail(c, err)
	}
	agentName := ""
	if ticket.AgentName != nil {
		agentName = *ticket.AgentName
	}
	return h.notifier.Redirect(c, auth.TicketPath(ticketID), session.CategorySuccess,
		fmt.Sprintf("Ticket assigned to %s.", agentName))
}

// ChangeStatus POST /ticket/:id/status.
func (h *TicketsHandler) ChangeStatus(c *fiber.Ctx) error {
	ticketID, err := idParam(c, "ticket")
	if err != nil {
		return err
	}
	var req dto.ChangeStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return h.notifier.Redirect(c, auth.TicketPath(ticketID), session.CategoryDanger, service.NoticeInvalidStatus)
	}
	ticket, err := h.service.ChangeStatus(c.UserContext(), auth.ActorFromContext(c), ticketID, req.Status)
	if err != nil {
		return h.notifier.Fail(c, err)
	}
	return h.notifier.Redirect(c, auth.TicketPath(ticketID), session.CategorySuccess,
		fmt.Sprintf("Ticket status updated to %s.", ticket.Status))
}

// Delete POST /ticket/:id/delete.
func (h *TicketsHandler) Delete(c *fiber.Ctx) error {
	ticketID, err := idParam(c, "ticket")
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), auth.ActorFromContext(c), ticketID); err != nil {
		return h.notifier.Fail(c, err)
	}
	return h.notifier.Redirect(c, "/admin_dashboard", session.CategorySuccess,
		fmt.Sprintf("Ticket #%d has been deleted.", ticketID))
}

// CustomerDashboard GET /user_dashboard.
func (h *TicketsHandler) CustomerDashboard(c *fiber.Ctx) error {
	tickets, err := h.service.CustomerDashboard(c.UserContext(), auth.ActorFromContext(c))
	if err != nil {
		return h.notifier.Fail(c, err)
	}
	return h.notifier.Page(c, fiber.StatusOK, fiber.Map{"tickets": ticketSummaries(tickets)})
}

// AgentDashboard GET /agent_dashboard.
func (h *TicketsHandler) AgentDashboard(c *fiber.Ctx) error {
	tickets, err := h.service.AgentDashboard(c.UserContext(), auth.ActorFromContext(c))
	if err != nil {
		return h.notifier.Fail(c, err)
	}
	return h.notifier.Page(c, fiber.StatusOK, fiber.Map{"tickets": ticketSummaries(tickets)})
}

// AdminDashboard GET /admin_dashboard. Repeat ?status= to filter the list.
func (h *TicketsHandler) AdminDashboard(c *fiber.Ctx) error {
	var statuses []domain.TicketStatus
	for _, raw := range c.Context().QueryArgs().PeekMulti("status") {
		if value := strings.TrimSpace(string(raw)); value != "" {
			statuses = append(statuses, domain.TicketStatus(value))
		}
	}

	overview, err := h.service.AdminDashboard(c.UserContext(), auth.ActorFromContext(c), statuses)
	if err != nil {
		return h.notifier.Fail(c, err)
	}
	return h.notifier.Page(c, fiber.StatusOK, dto.AdminDashboardView{
		Tickets:      ticketSummaries(overview.Tickets),
		StatusFilter: overview.StatusFilter,
		StatusCounts: overview.StatusCounts,
		UsersCount:   overview.TotalUsers,
		AgentsCount:  overview.TotalAgents,
	})
}
