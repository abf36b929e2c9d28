package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/municipal-it/helpdesk/internal/api/dto"
	"github.com/municipal-it/helpdesk/internal/domain"
	"github.com/municipal-it/helpdesk/internal/service"
	apperrors "github.com/municipal-it/helpdesk/pkg/util"
)

// AdminHandler exposes catalog and settings administration.
type AdminHandler struct {
	catalog  *service.CatalogService
	settings *service.SettingsService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(catalog *service.CatalogService, settings *service.SettingsService) *AdminHandler {
	return &AdminHandler{catalog: catalog, settings: settings}
}

// ListStatuses handles GET /admin/statuses and GET /catalog/statuses.
func (h *AdminHandler) ListStatuses(c *fiber.Ctx) error {
	statuses, err := h.catalog.ListStatuses(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewStatusList(statuses)})
}

// AddStatus handles POST /admin/statuses.
func (h *AdminHandler) AddStatus(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	var req dto.StatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	status, err := h.catalog.AddStatus(c.UserContext(), caller, req.Name, req.Kind)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewStatusResponse(*status)})
}

// UpdateStatuses handles PUT /admin/statuses.
func (h *AdminHandler) UpdateStatuses(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	var req []dto.StatusBatchItem
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	changes := make([]domain.Status, 0, len(req))
	for _, item := range req {
		changes = append(changes, domain.Status{ID: item.ID, Name: item.Name, Kind: item.Kind})
	}
	if err := h.catalog.UpdateStatuses(c.UserContext(), caller, changes); err != nil {
		return err
	}
	return h.ListStatuses(c)
}

// DeleteStatus handles DELETE /admin/statuses/:id.
func (h *AdminHandler) DeleteStatus(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	if err := h.catalog.DeleteStatus(c.UserContext(), caller, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListProblemTypes handles GET /admin/problem-types and GET /catalog/problem-types.
func (h *AdminHandler) ListProblemTypes(c *fiber.Ctx) error {
	types, err := h.catalog.ListProblemTypes(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewProblemTypeList(types)})
}

// AddProblemType handles POST /admin/problem-types.
func (h *AdminHandler) AddProblemType(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	var req dto.ProblemTypeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	pt, err := h.catalog.AddProblemType(c.UserContext(), caller, req.Name)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.ProblemTypeResponse{ID: pt.ID, Name: pt.Name}})
}

// RenameProblemTypes handles PUT /admin/problem-types.
func (h *AdminHandler) RenameProblemTypes(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	var req []dto.ProblemTypeBatchItem
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	changes := make([]domain.ProblemType, 0, len(req))
	for _, item := range req {
		changes = append(changes, domain.ProblemType{ID: item.ID, Name: item.Name})
	}
	if err := h.catalog.RenameProblemTypes(c.UserContext(), caller, changes); err != nil {
		return err
	}
	return h.ListProblemTypes(c)
}

// DeleteProblemType handles DELETE /admin/problem-types/:id.
func (h *AdminHandler) DeleteProblemType(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	if err := h.catalog.DeleteProblemType(c.UserContext(), caller, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetSettings handles GET /admin/settings.
func (h *AdminHandler) GetSettings(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	view, err := h.settings.Get(c.UserContext(), caller)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.SettingsPageResponse{
		Settings:        dto.NewSettingsResponse(view.Settings),
		CapturedOptions: dto.NewStatusList(view.CapturedOptions),
		ExpiredOptions:  dto.NewStatusList(view.ExpiredOptions),
	}})
}

// SaveSettings handles PUT /admin/settings.
func (h *AdminHandler) SaveSettings(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	var req dto.SettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	settings, err := h.settings.Save(c.UserContext(), caller, service.SettingsInput{
		RedThresholdDays:    req.RedThresholdDays,
		YellowThresholdDays: req.YellowThresholdDays,
		ReopenWindowDays:    req.ReopenWindowDays,
		CapturedStatusID:    req.CapturedStatusID,
		ExpiredStatusID:     req.ExpiredStatusID,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSettingsResponse(settings)})
}
