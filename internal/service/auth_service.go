package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/municipal-it/helpdesk/internal/auth"
	"github.com/municipal-it/helpdesk/internal/config"
	"github.com/municipal-it/helpdesk/internal/domain"
	"github.com/municipal-it/helpdesk/internal/repository"
	apperrors "github.com/municipal-it/helpdesk/pkg/util"
)

// AuthService coordinates login and password changes.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
	logger     *zap.Logger
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo repository.UserRepository
	Logger   *zap.Logger
}

// LoginResult is an issued session.
type LoginResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		bcryptCost: cfg.BcryptCost,
		logger:     orNop(deps.Logger),
	}
}

// Login authenticates by email and password. Accounts that must reset their
// password still get a token; the HTTP layer limits what it can reach.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperrors.NewValidationError("email and password are required", nil)
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("invalid email or password")
		}
		return nil, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid email or password")
	}
	token, exp, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, err
	}
	s.logger.Info("login", zap.String("user_id", user.ID), zap.Bool("must_reset", user.MustResetPassword))
	return &LoginResult{User: user, Token: token, ExpiresAt: exp}, nil
}

// ChangePassword sets a new password for the caller and lifts the reset flag.
func (s *AuthService) ChangePassword(ctx context.Context, caller domain.Caller, newPassword, confirmation string) error {
	if len(newPassword) < auth.MinPasswordLength {
		return apperrors.NewValidationError("password is too short",
			map[string]any{"min_length": auth.MinPasswordLength})
	}
	if newPassword != confirmation {
		return apperrors.NewValidationError("passwords do not match", nil)
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	if err := s.users.SetPassword(ctx, caller.ID, hash, false); err != nil {
		return notFound(err, "user", caller.ID)
	}
	s.logger.Info("password changed", zap.String("user_id", caller.ID))
	return nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
