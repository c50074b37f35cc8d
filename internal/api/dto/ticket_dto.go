package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string                `json:"title" form:"title"`
	Description string                `json:"description" form:"description"`
	Category    domain.TicketCategory `json:"category" form:"category"`
	Priority    domain.TicketPriority `json:"priority" form:"priority"`
}

// AddResponseRequest payload.
type AddResponseRequest struct {
	Content        string `json:"content" form:"content"`
	IsInternalNote bool   `json:"is_internal_note" form:"is_internal_note"`
}

// AssignAgentRequest payload.
type AssignAgentRequest struct {
	AgentID int64 `json:"agent_id" form:"agent_id"`
}

// ChangeStatusRequest payload.
type ChangeStatusRequest struct {
	Status domain.TicketStatus `json:"status" form:"status"`
}

// TicketFormOptions lists the choices offered by the submit form.
type TicketFormOptions struct {
	Categories      []domain.TicketCategory `json:"categories"`
	Priorities      []domain.TicketPriority `json:"priorities"`
	DefaultPriority domain.TicketPriority   `json:"default_priority"`
}

// TicketSummary response.
type TicketSummary struct {
	ID          int64                 `json:"id"`
	Title       string                `json:"title"`
	Category    domain.TicketCategory `json:"category"`
	Priority    domain.TicketPriority `json:"priority"`
	Status      domain.TicketStatus   `json:"status"`
	DatePosted  time.Time             `json:"date_posted"`
	LastUpdated time.Time             `json:"last_updated"`
	Author      string                `json:"author"`
	AgentID     *int64                `json:"agent_id"`
	Agent       *string               `json:"agent"`
}

// TicketResponseView is one visible entry of a ticket thread.
type TicketResponseView struct {
	ID             int64     `json:"id"`
	Content        string    `json:"content"`
	IsInternalNote bool      `json:"is_internal_note"`
	DatePosted     time.Time `json:"date_posted"`
	Responder      string    `json:"responder"`
}

// TicketDetail response. Agents and Statuses are only filled for staff.
type TicketDetail struct {
	TicketSummary
	Description string                `json:"description"`
	Responses   []TicketResponseView  `json:"responses"`
	Agents      []UserSummary         `json:"agents,omitempty"`
	Statuses    []domain.TicketStatus `json:"statuses,omitempty"`
}

// AdminDashboardView response.
type AdminDashboardView struct {
	Tickets      []TicketSummary               `json:"tickets"`
	StatusFilter []domain.TicketStatus         `json:"status_filter,omitempty"`
	StatusCounts map[domain.TicketStatus]int64 `json:"ticket_status_data"`
	UsersCount   int64                         `json:"users_count"`
	AgentsCount  int64                         `json:"agents_count"`
}
