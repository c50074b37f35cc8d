package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// TicketService coordinates ticket workflows and dashboard reads.
type TicketService struct {
	tickets    repository.TicketRepository
	responses  repository.TicketResponseRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo   repository.TicketRepository
	ResponseRepo repository.TicketResponseRepository
	UserRepo     repository.UserRepository
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string                `json:"title" validate:"required,min=5,max=100"`
	Description string                `json:"description" validate:"notblank"`
	Category    domain.TicketCategory `json:"category" validate:"required,ticket_category"`
	Priority    domain.TicketPriority `json:"priority" validate:"required,ticket_priority"`
}

// ResponseInput describes a reply on a ticket thread.
type ResponseInput struct {
	Content        string `json:"content" validate:"notblank"`
	IsInternalNote bool   `json:"is_internal_note"`
}

// TicketView is a ticket as seen by one viewer.
type TicketView struct {
	Ticket    *domain.Ticket
	Responses []domain.TicketResponse
	// Agents lists assignment candidates; empty for customers.
	Agents []domain.User
}

// AdminDashboard aggregates the admin overview.
type AdminDashboard struct {
	Tickets      []domain.Ticket
	StatusFilter []domain.TicketStatus
	StatusCounts map[domain.TicketStatus]int64
	TotalUsers   int64
	TotalAgents  int64
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		responses:  deps.ResponseRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        clock,
	}
}

// Create stores a new Open, unassigned ticket authored by actor.
func (s *TicketService) Create(ctx context.Context, actor *domain.Actor, input TicketCreateInput) (*domain.Ticket, error) {
	if d := auth.RequireLogin(actor); !d.Allowed {
		return nil, denied(d)
	}
	if input.Priority == "" {
		input.Priority = domain.TicketPriorityMedium
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}

	now := s.timestamp()
	ticket := &domain.Ticket{
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		Priority:    input.Priority,
		Status:      domain.TicketStatusOpen,
		DatePosted:  now,
		LastUpdated: now,
		AuthorID:    actor.ID,
		AuthorName:  actor.Username,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, fmt.Errorf("create ticket: %w", err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload: events.TicketCreatedPayload{
			Title:    ticket.Title,
			Category: ticket.Category,
			Priority: ticket.Priority,
		},
	})
	return ticket, nil
}

// GetForViewer loads a ticket with the thread visible to actor.
func (s *TicketService) GetForViewer(ctx context.Context, actor *domain.Actor, ticketID int64) (*TicketView, error) {
	if d := auth.RequireLogin(actor); !d.Allowed {
		return nil, denied(d)
	}
	ticket, err := s.loadVisible(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}

	responses, err := s.responses.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	view := &TicketView{
		Ticket:    ticket,
		Responses: auth.VisibleResponses(actor.Role, responses),
	}
	if actor.Role.IsStaff() {
		agents, err := s.users.ListAgentCapable(ctx)
		if err != nil {
			return nil, fmt.Errorf("list agents: %w", err)
		}
		view.Agents = agents
	}
	return view, nil
}

// AddResponse appends to the thread and advances the ticket's last_updated.
func (s *TicketService) AddResponse(ctx context.Context, actor *domain.Actor, ticketID int64, input ResponseInput) (*domain.TicketResponse, error) {
	if d := auth.RequireLogin(actor); !d.Allowed {
		return nil, denied(d)
	}
	ticket, err := s.loadVisible(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if input.IsInternalNote {
		if d := auth.CanPostInternalNote(actor, ticket.ID); !d.Allowed {
			return nil, denied(d)
		}
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}

	resp := &domain.TicketResponse{
		TicketID:       ticket.ID,
		AuthorID:       actor.ID,
		Content:        input.Content,
		IsInternalNote: input.IsInternalNote,
		DatePosted:     s.timestamp(),
		ResponderName:  actor.Username,
	}
	if err := s.responses.Create(ctx, resp); err != nil {
		if isNoRows(err) {
			return nil, lookupError("ticket", err)
		}
		return nil, fmt.Errorf("add response: %w", err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketResponseAdded,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload: events.TicketResponseAddedPayload{
			ResponseID:     resp.ID,
			IsInternalNote: resp.IsInternalNote,
			BodyPreview:    preview(resp.Content, 80),
		},
	})
	return resp, nil
}

// AssignAgent sets the ticket's agent. The target must exist and be
// agent-capable. last_updated is left untouched.
func (s *TicketService) AssignAgent(ctx context.Context, actor *domain.Actor, ticketID, agentID int64) (*domain.Ticket, error) {
	if d := auth.RequireAgent(actor); !d.Allowed {
		return nil, denied(d)
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, lookupError("ticket", err)
	}

	agent, err := s.users.GetByID(ctx, agentID)
	if err != nil {
		if isNoRows(err) {
			return nil, deniedWith(NoticeAgentNotFound, auth.TicketPath(ticket.ID), denialCategoryDanger)
		}
		return nil, fmt.Errorf("load agent: %w", err)
	}
	if !agent.AgentCapable() {
		return nil, deniedWith(NoticeInvalidAgent, auth.TicketPath(ticket.ID), denialCategoryDanger)
	}

	previous := ticket.AgentID
	if err := s.tickets.SetAgent(ctx, ticket.ID, agent.ID); err != nil {
		return nil, lookupError("ticket", err)
	}
	ticket, err = s.tickets.GetByID(ctx, ticket.ID)
	if err != nil {
		return nil, lookupError("ticket", err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload: events.TicketAssignedPayload{
			OldAgentID: previous,
			NewAgentID: agent.ID,
		},
	})
	return ticket, nil
}

// ChangeStatus moves the ticket to status. Any status may follow any other,
// and last_updated advances even when the status is unchanged.
func (s *TicketService) ChangeStatus(ctx context.Context, actor *domain.Actor, ticketID int64, status domain.TicketStatus) (*domain.Ticket, error) {
	if d := auth.RequireAgent(actor); !d.Allowed {
		return nil, denied(d)
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, lookupError("ticket", err)
	}
	if !status.Valid() {
		return nil, deniedWith(NoticeInvalidStatus, auth.TicketPath(ticket.ID), denialCategoryDanger)
	}

	previous := ticket.Status
	lastUpdated, err := s.tickets.SetStatus(ctx, ticket.ID, status, s.timestamp())
	if err != nil {
		return nil, lookupError("ticket", err)
	}
	ticket.Status = status
	ticket.Touch(lastUpdated)

	s.publish(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: previous,
			NewStatus: status,
		},
	})
	return ticket, nil
}

// Delete removes a ticket and its thread. Admin only.
func (s *TicketService) Delete(ctx context.Context, actor *domain.Actor, ticketID int64) error {
	if d := auth.RequireAdmin(actor); !d.Allowed {
		return denied(d)
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return lookupError("ticket", err)
	}
	if err := s.tickets.Delete(ctx, ticket.ID); err != nil {
		return lookupError("ticket", err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload:  events.TicketDeletedPayload{Title: ticket.Title},
	})
	return nil
}

// CustomerDashboard lists the actor's own tickets, newest first. Staff are
// sent to their own dashboard.
func (s *TicketService) CustomerDashboard(ctx context.Context, actor *domain.Actor) ([]domain.Ticket, error) {
	if d := auth.RequireLogin(actor); !d.Allowed {
		return nil, denied(d)
	}
	if actor.Role.IsStaff() {
		return nil, deniedWith(NoticeStaffDashboard, "/", denialCategoryInfo)
	}
	tickets, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{AuthorID: &actor.ID})
	if err != nil {
		return nil, fmt.Errorf("list customer tickets: %w", err)
	}
	return tickets, nil
}

// AgentDashboard lists tickets assigned to the actor plus the unassigned
// pool, newest first.
func (s *TicketService) AgentDashboard(ctx context.Context, actor *domain.Actor) ([]domain.Ticket, error) {
	if d := auth.RequireAgent(actor); !d.Allowed {
		return nil, denied(d)
	}
	tickets, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{AgentPoolFor: &actor.ID})
	if err != nil {
		return nil, fmt.Errorf("list agent tickets: %w", err)
	}
	return tickets, nil
}

// AdminDashboard lists every ticket, or only those in statuses when any are
// given, with status and user counts. Counts always cover all tickets.
func (s *TicketService) AdminDashboard(ctx context.Context, actor *domain.Actor, statuses []domain.TicketStatus) (*AdminDashboard, error) {
	if d := auth.RequireAdmin(actor); !d.Allowed {
		return nil, denied(d)
	}
	for _, status := range statuses {
		if !status.Valid() {
			return nil, deniedWith(NoticeInvalidStatus, auth.HomePath(domain.RoleAdmin), denialCategoryDanger)
		}
	}
	tickets, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{Statuses: statuses})
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	counts, err := s.tickets.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count tickets: %w", err)
	}
	totalUsers, err := s.users.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	totalAgents, err := s.users.CountAgentCapable(ctx)
	if err != nil {
		return nil, fmt.Errorf("count agents: %w", err)
	}
	return &AdminDashboard{
		Tickets:      tickets,
		StatusFilter: statuses,
		StatusCounts: counts,
		TotalUsers:   totalUsers,
		TotalAgents:  totalAgents,
	}, nil
}

func (s *TicketService) loadVisible(ctx context.Context, actor *domain.Actor, ticketID int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, lookupError("ticket", err)
	}
	if d := auth.CanViewTicket(actor, ticket); !d.Allowed {
		return nil, denied(d)
	}
	return ticket, nil
}

// timestamp is the store's precision: UTC, microseconds.
func (s *TicketService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	publishEvent(ctx, s.dispatcher, s.logger, s.timestamp(), event)
}

func publishEvent(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, at time.Time, event events.Event) {
	if dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = at
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.Int64("ticket_id", event.TicketID),
			zap.Error(err),
		)
	}
}

func preview(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
