package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/municipal-it/helpdesk/internal/api/dto"
	"github.com/municipal-it/helpdesk/internal/service"
	apperrors "github.com/municipal-it/helpdesk/pkg/util"
)

// AuthHandler exposes login and password change.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AuthResponse{
		Token:             result.Token,
		ExpiresAt:         result.ExpiresAt,
		MustResetPassword: result.User.MustResetPassword,
		User:              dto.NewUserResponse(result.User),
	}})
}

// ChangePassword handles POST /auth/password/change.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	var req dto.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.auth.ChangePassword(c.UserContext(), caller, req.NewPassword, req.ConfirmPassword); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
