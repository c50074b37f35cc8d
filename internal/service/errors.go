package service

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/auth"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// Detail keys carried by denial errors.
const (
	DetailRedirect = "redirect"
	DetailCategory = "category"
)

// Denial notices raised inside lifecycle operations.
const (
	NoticeAgentNotFound  = "Selected agent not found."
	NoticeInvalidAgent   = "Invalid agent selection."
	NoticeInvalidStatus  = "Invalid status selection."
	NoticeStaffDashboard = "You are logged in as an agent/admin. Redirecting to your dashboard."
	NoticeLoginFailed    = "Login Unsuccessful. Please check email and password"
	NoticeUsernameTaken  = "That username is taken. Please choose a different one."
	NoticeEmailTaken     = "That email is taken. Please choose a different one."
)

const (
	denialCategoryDanger  = "danger"
	denialCategoryInfo    = "info"
	defaultDenialRedirect = "/"
)

// denied converts a guard decision into a FORBIDDEN error that carries the
// redirect target.
func denied(d auth.Decision) error {
	return deniedWith(d.Notice, d.Redirect, denialCategoryDanger)
}

func deniedWith(notice, redirect, category string) error {
	if redirect == "" {
		redirect = defaultDenialRedirect
	}
	return apperrors.NewDomainError(apperrors.CodeForbidden, notice, http.StatusForbidden, map[string]any{
		DetailRedirect: redirect,
		DetailCategory: category,
	})
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// lookupError maps a missing row onto NOT_FOUND for resource.
func lookupError(resource string, err error) error {
	if isNoRows(err) {
		return apperrors.NewNotFound(resource, nil)
	}
	return err
}
