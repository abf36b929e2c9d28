package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/municipal-it/helpdesk/internal/api/dto"
	"github.com/municipal-it/helpdesk/internal/auth"
	"github.com/municipal-it/helpdesk/internal/domain"
	"github.com/municipal-it/helpdesk/internal/service"
	apperrors "github.com/municipal-it/helpdesk/pkg/util"
)

const finalizedGroup = "finalized"

// TicketLifecycle is the part of the ticket service the handler drives.
type TicketLifecycle interface {
	ListTickets(ctx context.Context, caller domain.Caller, filter service.ListFilter) (*service.TicketListing, error)
	Submit(ctx context.Context, caller domain.Caller, input service.SubmitInput) (*service.SubmitResult, error)
	Capture(ctx context.Context, caller domain.Caller, ticketID string) (*domain.Ticket, error)
	Update(ctx context.Context, caller domain.Caller, ticketID string, input service.UpdateInput) (*domain.Ticket, error)
	RequesterReopen(ctx context.Context, caller domain.Caller, ticketID string) (*domain.Ticket, error)
}

// TicketsHandler exposes the ticket lifecycle.
type TicketsHandler struct {
	service       TicketLifecycle
	maxPhotoBytes int
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService TicketLifecycle, maxPhotoBytes int) *TicketsHandler {
	return &TicketsHandler{service: ticketService, maxPhotoBytes: maxPhotoBytes}
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	listing, err := h.service.ListTickets(c.UserContext(), caller, parseListFilter(c))
	if err != nil {
		return err
	}
	resp := dto.TicketListResponse{Mine: dto.NewTicketList(listing.Mine)}
	if caller.IsAdmin {
		resp.Others = dto.NewTicketList(listing.Others)
	}
	return c.JSON(fiber.Map{"data": resp})
}

// SubmitTicket POST /tickets (multipart form).
func (h *TicketsHandler) SubmitTicket(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	input := service.SubmitInput{
		Municipality:  c.FormValue("municipality"),
		DeviceSerial:  c.FormValue("device_serial"),
		ProblemTypeID: c.FormValue("problem_type_id"),
		Description:   c.FormValue("description"),
	}
	photo, err := h.readPhoto(c)
	if err != nil {
		return err
	}
	input.Photo = photo

	result, err := h.service.Submit(c.UserContext(), caller, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.SubmitTicketResponse{
		Ticket:  dto.NewTicketSummary(result.Ticket),
		Warning: result.Warning,
	}})
}

// CaptureTicket POST /tickets/:id/capture.
func (h *TicketsHandler) CaptureTicket(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.Capture(c.UserContext(), caller, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketSummary(ticket)})
}

// UpdateTicket POST /tickets/:id/update.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.Update(c.UserContext(), caller, c.Params("id"), service.UpdateInput{
		StatusID: req.StatusID,
		Note:     req.Note,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketSummary(ticket)})
}

// ReopenTicket POST /tickets/:id/reopen.
func (h *TicketsHandler) ReopenTicket(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.RequesterReopen(c.UserContext(), caller, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketSummary(ticket)})
}

func (h *TicketsHandler) readPhoto(c *fiber.Ctx) (*service.PhotoUpload, error) {
	header, err := c.FormFile("photo")
	if errors.Is(err, fasthttp.ErrMissingFile) || errors.Is(err, fasthttp.ErrNoMultipartForm) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewValidationError("invalid photo upload", nil)
	}
	if header.Size == 0 {
		return nil, nil
	}
	if h.maxPhotoBytes > 0 && header.Size > int64(h.maxPhotoBytes) {
		return nil, apperrors.NewValidationError("photo is too large",
			map[string]any{"max_bytes": h.maxPhotoBytes, "size": header.Size})
	}
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return &service.PhotoUpload{Data: data, FileName: header.Filename}, nil
}

func parseListFilter(c *fiber.Ctx) service.ListFilter {
	return service.ListFilter{
		StatusID:      queryPtr(c, "status_id"),
		Municipality:  queryPtr(c, "municipality"),
		ProblemTypeID: queryPtr(c, "problem_type_id"),
		FinalizedOnly: strings.EqualFold(c.Query("status_group"), finalizedGroup),
	}
}

func queryPtr(c *fiber.Ctx, key string) *string {
	if v := strings.TrimSpace(c.Query(key)); v != "" {
		return &v
	}
	return nil
}

func callerFrom(c *fiber.Ctx) (domain.Caller, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return domain.Caller{}, apperrors.NewUnauthorized("authentication required")
	}
	return principal.Caller(), nil
}
