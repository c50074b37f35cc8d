package auth

import (
	"fmt"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// Denial notices shown to the user.
const (
	NoticeLoginRequired    = "Please log in to access this page."
	NoticeAgentRequired    = "You do not have permission to view this page."
	NoticeAdminRequired    = "You do not have admin permission to view this page."
	NoticeTicketForbidden  = "You do not have permission to view this ticket."
	NoticeInternalNoteOnly = "Only agents/admins can add internal notes."
)

// Decision is the outcome of an authorization guard. A denial carries the
// notice to show and where to send the user.
type Decision struct {
	Allowed  bool
	Notice   string
	Redirect string
}

// Allow is the permitting decision.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny builds a denial.
func Deny(notice, redirect string) Decision {
	return Decision{Notice: notice, Redirect: redirect}
}

// RequireLogin permits any authenticated actor.
func RequireLogin(actor *domain.Actor) Decision {
	if actor == nil {
		return Deny(NoticeLoginRequired, "/login")
	}
	return Allow()
}

// RequireAgent permits agents and admins.
func RequireAgent(actor *domain.Actor) Decision {
	if d := RequireLogin(actor); !d.Allowed {
		return d
	}
	if !actor.Role.IsStaff() {
		return Deny(NoticeAgentRequired, "/")
	}
	return Allow()
}

// RequireAdmin permits admins only.
func RequireAdmin(actor *domain.Actor) Decision {
	if d := RequireLogin(actor); !d.Allowed {
		return d
	}
	if actor.Role != domain.RoleAdmin {
		return Deny(NoticeAdminRequired, "/")
	}
	return Allow()
}

// CanViewTicket permits the author, the assigned agent and admins.
func CanViewTicket(actor *domain.Actor, ticket *domain.Ticket) Decision {
	if d := RequireLogin(actor); !d.Allowed {
		return d
	}
	if ticket.IsAuthor(actor.ID) || ticket.IsAssignedTo(actor.ID) || actor.Role == domain.RoleAdmin {
		return Allow()
	}
	return Deny(NoticeTicketForbidden, "/user_dashboard")
}

// CanPostInternalNote permits agents and admins to mark a response internal.
func CanPostInternalNote(actor *domain.Actor, ticketID int64) Decision {
	if d := RequireLogin(actor); !d.Allowed {
		return d
	}
	if !actor.Role.IsStaff() {
		return Deny(NoticeInternalNoteOnly, TicketPath(ticketID))
	}
	return Allow()
}

// VisibleResponses drops internal notes for customers.
func VisibleResponses(role domain.Role, responses []domain.TicketResponse) []domain.TicketResponse {
	if role.IsStaff() {
		return responses
	}
	visible := make([]domain.TicketResponse, 0, len(responses))
	for _, resp := range responses {
		if resp.IsInternalNote {
			continue
		}
		visible = append(visible, resp)
	}
	return visible
}

// HomePath is the landing page for a role.
func HomePath(role domain.Role) string {
	switch role {
	case domain.RoleAdmin:
		return "/admin_dashboard"
	case domain.RoleAgent:
		return "/agent_dashboard"
	default:
		return "/user_dashboard"
	}
}

// TicketPath is the detail page of a ticket.
func TicketPath(ticketID int64) string {
	return fmt.Sprintf("/ticket/%d", ticketID)
}
