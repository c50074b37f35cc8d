package events

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketResponseAdded EventType = "ticket_response_added"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketDeleted       EventType = "ticket_deleted"
	EventUserRoleChanged     EventType = "user_role_changed"
)

// AllEventTypes lists every event the services publish.
func AllEventTypes() []EventType {
	return []EventType{
		EventTicketCreated,
		EventTicketResponseAdded,
		EventTicketAssigned,
		EventTicketStatusChanged,
		EventTicketDeleted,
		EventUserRoleChanged,
	}
}

// Event represents a lifecycle change emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  int64       `json:"ticket_id,omitempty"`
	ActorID   int64       `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title    string                `json:"title"`
	Category domain.TicketCategory `json:"category"`
	Priority domain.TicketPriority `json:"priority"`
}

// TicketResponseAddedPayload payload.
type TicketResponseAddedPayload struct {
	ResponseID     int64  `json:"response_id"`
	IsInternalNote bool   `json:"is_internal_note"`
	BodyPreview    string `json:"body_preview"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	OldAgentID *int64 `json:"old_agent_id,omitempty"`
	NewAgentID int64  `json:"new_agent_id"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketDeletedPayload payload.
type TicketDeletedPayload struct {
	Title string `json:"title"`
}

// UserRoleChangedPayload payload.
type UserRoleChangedPayload struct {
	UserID int64  `json:"user_id"`
	Flag   string `json:"flag"`
	Value  bool   `json:"value"`
}
