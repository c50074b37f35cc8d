package handlers

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/session"
)

// UserAdmin is the user management surface used by the handlers.
type UserAdmin interface {
	List(ctx context.Context, actor *domain.Actor) ([]domain.User, error)
	ToggleAgent(ctx context.Context, actor *domain.Actor, userID int64) (*domain.User, error)
	ToggleAdmin(ctx context.Context, actor *domain.Actor, userID int64) (*domain.User, error)
}

// UsersHandler serves the admin user management pages.
type UsersHandler struct {
	users    UserAdmin
	notifier *Notifier
}

// NewUsersHandler constructs handler.
func NewUsersHandler(users UserAdmin, notifier *Notifier) *UsersHandler {
	return &UsersHandler{users: users, notifier: notifier}
}

// ManageUsers GET /manage_users.
func (h *UsersHandler) ManageUsers(c *fiber.Ctx) error {
	users, err := h.users.List(c.UserContext(), auth.ActorFromContext(c))
	if err != nil {
		return h.notifier.Fail(c, err)
	}
	return h.notifier.Page(c, fiber.StatusOK, fiber.Map{"users": userSummaries(users)})
}

// ToggleAgent POST /user/:id/toggle_agent_status.
func (h *UsersHandler) ToggleAgent(c *fiber.Ctx) error {
	userID, err := idParam(c, "user")
	if err != nil {
		return err
	}
	user, err := h.users.ToggleAgent(c.UserContext(), auth.ActorFromContext(c), userID)
	if err != nil {
		return h.notifier.Fail(c, err)
	}
	return h.notifier.Redirect(c, "/manage_users", session.CategorySuccess,
		fmt.Sprintf("%s agent status toggled to %t.", user.Username, user.IsAgent))
}

// ToggleAdmin POST /user/:id/toggle_admin_status.
func (h *UsersHandler) ToggleAdmin(c *fiber.Ctx) error {
	userID, err := idParam(c, "user")
	if err != nil {
		return err
	}
	user, err := h.users.ToggleAdmin(c.UserContext(), auth.ActorFromContext(c), userID)
	if err != nil {
		return h.notifier.Fail(c, err)
	}
	return h.notifier.Redirect(c, "/manage_users", session.CategorySuccess,
		fmt.Sprintf("%s admin status toggled to %t.", user.Username, user.IsAdmin))
}
