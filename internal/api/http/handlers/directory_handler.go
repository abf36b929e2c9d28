package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/municipal-it/helpdesk/internal/api/dto"
	"github.com/municipal-it/helpdesk/internal/service"
)

// DirectoryHandler exposes the device inventory and municipality lookups.
type DirectoryHandler struct {
	directory *service.DirectoryService
}

// NewDirectoryHandler constructs handler.
func NewDirectoryHandler(directory *service.DirectoryService) *DirectoryHandler {
	return &DirectoryHandler{directory: directory}
}

// Municipalities handles GET /directory/municipalities.
func (h *DirectoryHandler) Municipalities(c *fiber.Ctx) error {
	names, err := h.directory.Municipalities(c.UserContext())
	if err != nil {
		return err
	}
	if names == nil {
		names = []string{}
	}
	return c.JSON(fiber.Map{"data": names})
}

// Devices handles GET /directory/devices?municipality=.
func (h *DirectoryHandler) Devices(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	devices, err := h.directory.DevicesIn(c.UserContext(), caller, c.Query("municipality"))
	if err != nil {
		return err
	}
	out := make([]*dto.DeviceResponse, 0, len(devices))
	for i := range devices {
		out = append(out, dto.NewDeviceResponse(&devices[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}

// Device handles GET /directory/devices/:serial. An unknown serial yields null data.
func (h *DirectoryHandler) Device(c *fiber.Ctx) error {
	device, err := h.directory.LookupDevice(c.UserContext(), c.Params("serial"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewDeviceResponse(device)})
}

// Responsible handles GET /directory/responsible?municipality=.
func (h *DirectoryHandler) Responsible(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	user, err := h.directory.Responsible(c.UserContext(), caller, c.Query("municipality"))
	if err != nil {
		return err
	}
	if user == nil {
		return c.JSON(fiber.Map{"data": nil})
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}
