package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/municipal-it/helpdesk/internal/auth"
	"github.com/municipal-it/helpdesk/internal/config"
	"github.com/municipal-it/helpdesk/internal/domain"
	"github.com/municipal-it/helpdesk/internal/repository"
	apperrors "github.com/municipal-it/helpdesk/pkg/util"
)

// UserService is the administrator's account management.
type UserService struct {
	users           repository.UserRepository
	defaultPassword string
	bcryptCost      int
	logger          *zap.Logger
}

// UserInput is the editable part of an account.
type UserInput struct {
	Email             string
	Municipality      string
	DisplayName       string
	Phone             string
	IsAdmin           bool
	MustResetPassword bool
}

// NewUserService builds the service.
func NewUserService(cfg config.AuthConfig, users repository.UserRepository, logger *zap.Logger) *UserService {
	return &UserService{
		users:           users,
		defaultPassword: cfg.DefaultPassword,
		bcryptCost:      cfg.BcryptCost,
		logger:          orNop(logger),
	}
}

// Search lists accounts whose name, email or municipality contains term.
func (s *UserService) Search(ctx context.Context, caller domain.Caller, term string) ([]domain.User, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	return s.users.Search(ctx, term)
}

// Create adds an account with the default password.
func (s *UserService) Create(ctx context.Context, caller domain.Caller, input UserInput) (*domain.User, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	user, err := userFromInput(input)
	if err != nil {
		return nil, err
	}
	if user.PasswordHash, err = auth.HashPassword(s.defaultPassword, s.bcryptCost); err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewIntegrityError("email", user.Email)
		}
		return nil, err
	}
	s.logger.Info("user created", zap.String("user_id", user.ID), zap.String("by", caller.ID))
	return user, nil
}

// Update rewrites an account's profile and flags.
func (s *UserService) Update(ctx context.Context, caller domain.Caller, id string, input UserInput) (*domain.User, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	user, err := userFromInput(input)
	if err != nil {
		return nil, err
	}
	user.ID = id
	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewIntegrityError("email", user.Email)
		}
		return nil, notFound(err, "user", id)
	}
	return s.users.GetByID(ctx, id)
}

// Delete removes an account. Administrators cannot delete themselves.
func (s *UserService) Delete(ctx context.Context, caller domain.Caller, id string) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	if id == caller.ID {
		return apperrors.NewValidationError("you cannot delete your own account", nil)
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return notFound(err, "user", id)
	}
	s.logger.Info("user deleted", zap.String("user_id", id), zap.String("by", caller.ID))
	return nil
}

// ResetPassword restores the default password and forces a change at next login.
func (s *UserService) ResetPassword(ctx context.Context, caller domain.Caller, id string) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	hash, err := auth.HashPassword(s.defaultPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	if err := s.users.SetPassword(ctx, id, hash, true); err != nil {
		return notFound(err, "user", id)
	}
	s.logger.Info("password reset", zap.String("user_id", id), zap.String("by", caller.ID))
	return nil
}

func userFromInput(input UserInput) (*domain.User, error) {
	user := &domain.User{
		Email:             strings.ToLower(strings.TrimSpace(input.Email)),
		Municipality:      strings.TrimSpace(input.Municipality),
		DisplayName:       strings.TrimSpace(input.DisplayName),
		Phone:             strings.TrimSpace(input.Phone),
		IsAdmin:           input.IsAdmin,
		MustResetPassword: input.MustResetPassword,
	}
	var missing []string
	if user.Email == "" {
		missing = append(missing, "email")
	}
	if user.Municipality == "" {
		missing = append(missing, "municipality")
	}
	if user.DisplayName == "" {
		missing = append(missing, "display_name")
	}
	if len(missing) > 0 {
		return nil, apperrors.NewValidationError("required fields are missing", map[string]any{"fields": missing})
	}
	return user, nil
}
