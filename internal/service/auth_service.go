package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/session"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// RegisterInput is the sign-up form.
type RegisterInput struct {
	Username        string `json:"username" validate:"required,min=2,max=20"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

// LoginInput is the sign-in form.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResult carries the issued session.
type LoginResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// AuthService coordinates registration and login flows.
type AuthService struct {
	users       repository.UserRepository
	revocations session.RevocationStore
	tokenMgr    *auth.TokenManager
	bcryptCost  int
	logger      *zap.Logger
	now         func() time.Time
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo    repository.UserRepository
	Revocations session.RevocationStore
	Logger      *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:       deps.UserRepo,
		revocations: deps.Revocations,
		tokenMgr:    auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL()),
		bcryptCost:  cfg.Auth.BcryptCost,
		logger:      logger,
		now:         time.Now,
	}
}

// Tokens exposes the token manager for the authentication middleware.
func (s *AuthService) Tokens() *auth.TokenManager {
	return s.tokenMgr
}

// Register creates a customer account. Taken usernames and emails are
// reported per field before anything is written.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	taken := map[string]any{}
	if _, err := s.users.GetByUsername(ctx, input.Username); err == nil {
		taken["username"] = NoticeUsernameTaken
	} else if !isNoRows(err) {
		return nil, fmt.Errorf("lookup username: %w", err)
	}
	if _, err := s.users.GetByEmail(ctx, input.Email); err == nil {
		taken["email"] = NoticeEmailTaken
	} else if !isNoRows(err) {
		return nil, fmt.Errorf("lookup email: %w", err)
	}
	if len(taken) > 0 {
		return nil, apperrors.NewConflict("account already exists", taken)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &domain.User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		var dup *repository.DuplicateError
		if errors.As(err, &dup) {
			return nil, apperrors.NewConflict("account already exists", duplicateDetails(dup))
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user registered", zap.Int64("user_id", user.ID), zap.String("username", user.Username))
	return user, nil
}

// Login verifies credentials and issues a session token.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	user, err := s.users.GetByEmail(ctx, input.Email)
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NewUnauthorized(NoticeLoginFailed)
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if err := auth.ComparePassword(user.PasswordHash, input.Password); err != nil {
		return nil, apperrors.NewUnauthorized(NoticeLoginFailed)
	}

	token, expiresAt, err := s.tokenMgr.GenerateToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &LoginResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// Logout revokes the session token until it would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil || s.revocations == nil {
		return nil
	}
	ttl := claims.Remaining(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.revocations.Revoke(ctx, claims.TokenID(), ttl); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// Promote grants the admin flag to username. Used to bootstrap the first
// admin from the command line.
func (s *AuthService) Promote(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, lookupError("user", err)
	}
	if user.IsAdmin {
		return user, nil
	}
	if err := s.users.SetRoleFlag(ctx, user.ID, repository.RoleFlagAdmin, true); err != nil {
		return nil, fmt.Errorf("promote user: %w", err)
	}
	user.IsAdmin = true
	s.logger.Info("user promoted to admin", zap.Int64("user_id", user.ID), zap.String("username", user.Username))
	return user, nil
}

func duplicateDetails(dup *repository.DuplicateError) map[string]any {
	switch {
	case strings.Contains(dup.Constraint, "email"):
		return map[string]any{"email": NoticeEmailTaken}
	case strings.Contains(dup.Constraint, "username"):
		return map[string]any{"username": NoticeUsernameTaken}
	default:
		return nil
	}
}
