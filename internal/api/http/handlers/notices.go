package handlers

import (
	"errors"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
	"github.com/spec-kit/helpdesk/internal/session"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

const flashClientKey = "flash_client_id"

// Notifier delivers one-shot notices to the browser identified by the flash
// cookie and renders redirects and pages around them.
type Notifier struct {
	store  session.FlashStore
	cookie string
	secure bool
	logger *zap.Logger
}

// NewNotifier constructs a notifier.
func NewNotifier(store session.FlashStore, cookieName string, secure bool, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{store: store, cookie: cookieName, secure: secure, logger: logger}
}

func (n *Notifier) clientID(c *fiber.Ctx) string {
	if id, ok := c.Locals(flashClientKey).(string); ok && id != "" {
		return id
	}
	id := c.Cookies(n.cookie)
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
		c.Cookie(&fiber.Cookie{
			Name:     n.cookie,
			Value:    id,
			Path:     "/",
			HTTPOnly: true,
			Secure:   n.secure,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
	}
	c.Locals(flashClientKey, id)
	return id
}

// Push queues a notice for the next page the client loads.
func (n *Notifier) Push(c *fiber.Ctx, category, message string) {
	err := n.store.Push(c.UserContext(), n.clientID(c), session.Flash{Category: category, Message: message})
	if err != nil {
		n.logger.Warn("flash push failed", zap.Error(err))
	}
}

// Pop drains the pending notices. Store failures yield no notices.
func (n *Notifier) Pop(c *fiber.Ctx) []session.Flash {
	flashes, err := n.store.Pop(c.UserContext(), n.clientID(c))
	if err != nil {
		n.logger.Warn("flash pop failed", zap.Error(err))
		return []session.Flash{}
	}
	if flashes == nil {
		return []session.Flash{}
	}
	return flashes
}

// Redirect queues an optional notice and answers 303 See Other.
func (n *Notifier) Redirect(c *fiber.Ctx, location, category, message string) error {
	if message != "" {
		n.Push(c, category, message)
	}
	return c.Redirect(location, fiber.StatusSeeOther)
}

// Page renders a view model together with the pending notices.
func (n *Notifier) Page(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(fiber.Map{
		"data":    data,
		"flashes": n.Pop(c),
	})
}

// Fail renders authorization denials as a redirect with a notice. Bad
// credentials also queue a notice; every other error is returned for the
// error middleware.
func (n *Notifier) Fail(c *fiber.Ctx, err error) error {
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) {
		return err
	}
	switch domainErr.Code {
	case apperrors.CodeForbidden:
		location, _ := domainErr.Details[service.DetailRedirect].(string)
		category, _ := domainErr.Details[service.DetailCategory].(string)
		if category == "" {
			category = session.CategoryDanger
		}
		return n.deny(c, auth.Decision{Notice: domainErr.Message, Redirect: location}, category)
	case apperrors.CodeUnauthorized:
		n.Push(c, session.CategoryDanger, domainErr.Message)
	}
	return err
}

// Guard runs an authorization guard before the route handler.
func (n *Notifier) Guard(guard func(*domain.Actor) auth.Decision) fiber.Handler {
	return func(c *fiber.Ctx) error {
		decision := guard(auth.ActorFromContext(c))
		if decision.Allowed {
			return c.Next()
		}
		return n.deny(c, decision, session.CategoryDanger)
	}
}

// AnonymousOnly sends logged in users home.
func (n *Notifier) AnonymousOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if auth.ActorFromContext(c) != nil {
			return c.Redirect("/", fiber.StatusSeeOther)
		}
		return c.Next()
	}
}

func (n *Notifier) deny(c *fiber.Ctx, decision auth.Decision, category string) error {
	location := decision.Redirect
	switch location {
	case "":
		location = "/"
	case "/login":
		category = session.CategoryInfo
		location = "/login?next=" + url.QueryEscape(c.OriginalURL())
	}
	return n.Redirect(c, location, category, decision.Notice)
}
