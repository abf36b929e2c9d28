package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/municipal-it/helpdesk/internal/api/dto"
	"github.com/municipal-it/helpdesk/internal/domain"
	"github.com/municipal-it/helpdesk/internal/service"
	apperrors "github.com/municipal-it/helpdesk/pkg/util"
)

// UsersHandler exposes account administration.
type UsersHandler struct {
	users *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(userService *service.UserService) *UsersHandler {
	return &UsersHandler{users: userService}
}

// List handles GET /admin/users?q=.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	users, err := h.users.Search(c.UserContext(), caller, c.Query("q"))
	if err != nil {
		return err
	}
	items := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		items = append(items, dto.NewUserResponse(&users[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Create handles POST /admin/users.
func (h *UsersHandler) Create(c *fiber.Ctx) error {
	caller, input, err := h.parse(c, true)
	if err != nil {
		return err
	}
	user, err := h.users.Create(c.UserContext(), caller, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// Update handles PUT /admin/users/:id.
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	caller, input, err := h.parse(c, false)
	if err != nil {
		return err
	}
	user, err := h.users.Update(c.UserContext(), caller, c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// Delete handles DELETE /admin/users/:id.
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	if err := h.users.Delete(c.UserContext(), caller, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ResetPassword handles POST /admin/users/:id/reset-password.
func (h *UsersHandler) ResetPassword(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	if err := h.users.ResetPassword(c.UserContext(), caller, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// parse reads a user payload. New accounts must reset their password unless
// the request says otherwise.
func (h *UsersHandler) parse(c *fiber.Ctx, creating bool) (domain.Caller, service.UserInput, error) {
	caller, err := callerFrom(c)
	if err != nil {
		return caller, service.UserInput{}, err
	}
	var req dto.UserRequest
	if err := c.BodyParser(&req); err != nil {
		return caller, service.UserInput{}, apperrors.NewValidationError("invalid payload", nil)
	}
	input := service.UserInput{
		Email:             req.Email,
		Municipality:      req.Municipality,
		DisplayName:       req.DisplayName,
		Phone:             req.Phone,
		IsAdmin:           req.IsAdmin,
		MustResetPassword: creating,
	}
	if req.MustResetPassword != nil {
		input.MustResetPassword = *req.MustResetPassword
	}
	return caller, input, nil
}
