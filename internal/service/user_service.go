package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// Role flags that admins can toggle.
const (
	FlagAgent = repository.RoleFlagAgent
	FlagAdmin = repository.RoleFlagAdmin
)

// UserService manages role flags on accounts.
type UserService struct {
	users      repository.UserRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// UserDependencies bundles collaborators for the user service.
type UserDependencies struct {
	UserRepo   repository.UserRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewUserService builds the service.
func NewUserService(deps UserDependencies) *UserService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// List returns every account ordered by username.
func (s *UserService) List(ctx context.Context, actor *domain.Actor) ([]domain.User, error) {
	if d := auth.RequireAdmin(actor); !d.Allowed {
		return nil, denied(d)
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// ToggleAgent flips the agent flag. Admins may revoke their own.
func (s *UserService) ToggleAgent(ctx context.Context, actor *domain.Actor, userID int64) (*domain.User, error) {
	return s.toggle(ctx, actor, userID, FlagAgent)
}

// ToggleAdmin flips the admin flag. Admins may revoke their own.
func (s *UserService) ToggleAdmin(ctx context.Context, actor *domain.Actor, userID int64) (*domain.User, error) {
	return s.toggle(ctx, actor, userID, FlagAdmin)
}

func (s *UserService) toggle(ctx context.Context, actor *domain.Actor, userID int64, flag string) (*domain.User, error) {
	if d := auth.RequireAdmin(actor); !d.Allowed {
		return nil, denied(d)
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, lookupError("user", err)
	}

	value, err := s.users.ToggleRoleFlag(ctx, user.ID, flag)
	if err != nil {
		return nil, lookupError("user", err)
	}
	switch flag {
	case FlagAgent:
		user.IsAgent = value
	case FlagAdmin:
		user.IsAdmin = value
	}

	publishEvent(ctx, s.dispatcher, s.logger, s.now().UTC(), events.Event{
		Type:    events.EventUserRoleChanged,
		ActorID: actor.ID,
		Payload: events.UserRoleChangedPayload{
			UserID: user.ID,
			Flag:   flag,
			Value:  value,
		},
	})
	return user, nil
}
