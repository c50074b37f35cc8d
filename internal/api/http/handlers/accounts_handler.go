package handlers

import (
	"context"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
	"github.com/spec-kit/helpdesk/internal/session"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// AccountService is the registration and session surface used by the
// handlers.
type AccountService interface {
	Register(ctx context.Context, input service.RegisterInput) (*domain.User, error)
	Login(ctx context.Context, input service.LoginInput) (*service.LoginResult, error)
	Logout(ctx context.Context, claims *auth.Claims) error
}

// SessionCookie describes the session cookie attributes.
type SessionCookie struct {
	Name   string
	Secure bool
}

// AccountsHandler serves home, registration, login and logout.
type AccountsHandler struct {
	accounts AccountService
	notifier *Notifier
	cookie   SessionCookie
	logger   *zap.Logger
}

// NewAccountsHandler constructs handler.
func NewAccountsHandler(accounts AccountService, notifier *Notifier, cookie SessionCookie, logger *zap.Logger) *AccountsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountsHandler{accounts: accounts, notifier: notifier, cookie: cookie, logger: logger}
}

// Home GET / and /home. Logged in users go to their dashboard.
func (h *AccountsHandler) Home(c *fiber.Ctx) error {
	if actor := auth.ActorFromContext(c); actor != nil {
		return c.Redirect(auth.HomePath(actor.Role), fiber.StatusSeeOther)
	}
	return h.notifier.Page(c, fiber.StatusOK, fiber.Map{"title": "Welcome"})
}

// RegisterForm GET /register.
func (h *AccountsHandler) RegisterForm(c *fiber.Ctx) error {
	return h.notifier.Page(c, fiber.StatusOK, fiber.Map{"title": "Register"})
}

// Register POST /register.
func (h *AccountsHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	_, err := h.accounts.Register(c.UserContext(), service.RegisterInput{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		return h.notifier.Fail(c, err)
	}
	return h.notifier.Redirect(c, "/login", session.CategorySuccess,
		"Your account has been created! You are now able to log in.")
}

// LoginForm GET /login.
func (h *AccountsHandler) LoginForm(c *fiber.Ctx) error {
	return h.notifier.Page(c, fiber.StatusOK, fiber.Map{
		"title": "Login",
		"next":  safeNext(c.Query("next")),
	})
}

// Login POST /login.
func (h *AccountsHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result, err := h.accounts.Login(c.UserContext(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return h.notifier.Fail(c, err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.cookie.Name,
		Value:    result.Token,
		Path:     "/",
		Expires:  result.ExpiresAt,
		HTTPOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	next := req.Next
	if next == "" {
		next = c.Query("next")
	}
	location := safeNext(next)
	if location == "" {
		location = "/"
	}
	return h.notifier.Redirect(c, location, session.CategorySuccess, "Login successful!")
}

// Logout GET /logout.
func (h *AccountsHandler) Logout(c *fiber.Ctx) error {
	if principal, ok := auth.PrincipalFromContext(c); ok {
		if err := h.accounts.Logout(c.UserContext(), principal.Claims); err != nil {
			h.logger.Warn("session revocation failed", zap.Int64("user_id", principal.User.ID), zap.Error(err))
		}
	}
	c.ClearCookie(h.cookie.Name)
	return h.notifier.Redirect(c, "/", session.CategoryInfo, "You have been logged out.")
}

// safeNext keeps only same-site relative paths; anything else yields "".
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return ""
	}
	parsed, err := url.Parse(next)
	if err != nil || parsed.Scheme != "" || parsed.Host != "" {
		return ""
	}
	return next
}
