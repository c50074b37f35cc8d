package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

func ticketSummary(t *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:          t.ID,
		Title:       t.Title,
		Category:    t.Category,
		Priority:    t.Priority,
		Status:      t.Status,
		DatePosted:  t.DatePosted,
		LastUpdated: t.LastUpdated,
		Author:      t.AuthorName,
		AgentID:     t.AgentID,
		Agent:       t.AgentName,
	}
}

func ticketSummaries(tickets []domain.Ticket) []dto.TicketSummary {
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return items
}

func responseViews(responses []domain.TicketResponse) []dto.TicketResponseView {
	items := make([]dto.TicketResponseView, 0, len(responses))
	for _, r := range responses {
		items = append(items, dto.TicketResponseView{
			ID:             r.ID,
			Content:        r.Content,
			IsInternalNote: r.IsInternalNote,
			DatePosted:     r.DatePosted,
			Responder:      r.ResponderName,
		})
	}
	return items
}

func userSummary(u *domain.User) dto.UserSummary {
	return dto.UserSummary{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		IsAgent:  u.IsAgent,
		IsAdmin:  u.IsAdmin,
		Role:     u.Role().String(),
	}
}

func userSummaries(users []domain.User) []dto.UserSummary {
	items := make([]dto.UserSummary, 0, len(users))
	for i := range users {
		items = append(items, userSummary(&users[i]))
	}
	return items
}

// idParam reads the :id route parameter. Malformed ids cannot match a row.
func idParam(c *fiber.Ctx, resource string) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewNotFound(resource, nil)
	}
	return id, nil
}
