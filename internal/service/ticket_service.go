package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/municipal-it/helpdesk/internal/domain"
	"github.com/municipal-it/helpdesk/internal/events"
	"github.com/municipal-it/helpdesk/internal/repository"
	apperrors "github.com/municipal-it/helpdesk/pkg/util"
)

// PhotoStore keeps uploaded ticket photos and hands back a reference.
type PhotoStore interface {
	Store(data []byte, suggestedName string) (string, error)
	Delete(ref string) error
}

// ExpiryRecorder counts tickets moved by the expiry sweep.
type ExpiryRecorder interface {
	RecordExpired(n int64)
}

// TicketService runs the ticket lifecycle: submission, capture, update,
// requester reopen and the lazy expiry sweep.
type TicketService struct {
	tickets      repository.TicketRepository
	statuses     repository.StatusRepository
	problemTypes repository.ProblemTypeRepository
	users        repository.UserRepository
	catalog      *CatalogService
	settings     *SettingsService
	photos       PhotoStore
	expiry       ExpiryRecorder
	clock        Clock
	location     *time.Location
	events       publisher
	logger       *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo      repository.TicketRepository
	StatusRepo      repository.StatusRepository
	ProblemTypeRepo repository.ProblemTypeRepository
	UserRepo        repository.UserRepository
	Catalog         *CatalogService
	Settings        *SettingsService
	Photos          PhotoStore
	Expiry          ExpiryRecorder
	Dispatcher      events.Dispatcher
	Clock           Clock
	Location        *time.Location
	Logger          *zap.Logger
}

// PhotoUpload is a photo attached to a submission.
type PhotoUpload struct {
	Data     []byte
	FileName string
}

// SubmitInput describes a new ticket. Municipality is only read for
// administrators filing on behalf of a municipality.
type SubmitInput struct {
	Municipality  string
	DeviceSerial  string
	ProblemTypeID string
	Description   string
	Photo         *PhotoUpload
}

// SubmitResult is the created ticket plus a non-fatal notice for the caller.
type SubmitResult struct {
	Ticket  *domain.Ticket
	Warning string
}

// UpdateInput is an administrator's status change and optional note.
type UpdateInput struct {
	StatusID string
	Note     string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := orNop(deps.Logger)
	clock := orSystem(deps.Clock)
	location := deps.Location
	if location == nil {
		location = time.UTC
	}
	return &TicketService{
		tickets:      deps.TicketRepo,
		statuses:     deps.StatusRepo,
		problemTypes: deps.ProblemTypeRepo,
		users:        deps.UserRepo,
		catalog:      deps.Catalog,
		settings:     deps.Settings,
		photos:       deps.Photos,
		expiry:       deps.Expiry,
		clock:        clock,
		location:     location,
		events:       publisher{dispatcher: deps.Dispatcher, clock: clock, logger: logger},
		logger:       logger,
	}
}

// Submit files a new ticket in the initial status.
func (s *TicketService) Submit(ctx context.Context, caller domain.Caller, input SubmitInput) (*SubmitResult, error) {
	input.DeviceSerial = strings.TrimSpace(input.DeviceSerial)
	input.ProblemTypeID = strings.TrimSpace(input.ProblemTypeID)
	input.Description = strings.TrimSpace(input.Description)
	municipality := caller.Municipality
	if caller.IsAdmin {
		municipality = strings.TrimSpace(input.Municipality)
	}

	var missing []string
	if municipality == "" {
		missing = append(missing, "municipality")
	}
	if input.DeviceSerial == "" {
		missing = append(missing, "device_serial")
	}
	if input.ProblemTypeID == "" {
		missing = append(missing, "problem_type_id")
	}
	if input.Description == "" {
		missing = append(missing, "description")
	}
	if len(missing) > 0 {
		return nil, apperrors.NewValidationError("required fields are missing", map[string]any{"fields": missing})
	}

	if _, err := s.problemTypes.GetByID(ctx, input.ProblemTypeID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewValidationError("unknown problem type",
				map[string]any{"problem_type_id": input.ProblemTypeID})
		}
		return nil, err
	}

	initial, err := s.catalog.InitialStatus(ctx)
	if err != nil {
		return nil, err
	}

	result := &SubmitResult{}
	requesterID := caller.ID
	onBehalf := false
	if caller.IsAdmin {
		requester, err := s.users.FirstRequesterIn(ctx, municipality)
		switch {
		case err == nil:
			requesterID = requester.ID
			onBehalf = true
		case errors.Is(err, pgx.ErrNoRows):
			result.Warning = fmt.Sprintf("no user is registered for %s; the ticket was filed under your account", municipality)
		default:
			return nil, err
		}
	}

	var photoRef *string
	if input.Photo != nil && len(input.Photo.Data) > 0 {
		if s.photos == nil {
			return nil, apperrors.NewValidationError("photo uploads are not enabled", nil)
		}
		ref, err := s.photos.Store(input.Photo.Data, input.Photo.FileName)
		if err != nil {
			return nil, err
		}
		photoRef = &ref
	}

	ticket := &domain.Ticket{
		ExternalKey:   generateTicketKey(),
		RequesterID:   requesterID,
		Municipality:  municipality,
		DeviceSerial:  input.DeviceSerial,
		ProblemTypeID: input.ProblemTypeID,
		Description:   input.Description,
		StatusID:      initial.ID,
		PhotoRef:      photoRef,
		CreatedAt:     s.clock.Now(),
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		if photoRef != nil {
			if derr := s.photos.Delete(*photoRef); derr != nil {
				s.logger.Warn("orphaned photo", zap.String("ref", *photoRef), zap.Error(derr))
			}
		}
		return nil, err
	}
	result.Ticket = ticket

	s.logger.Info("ticket submitted",
		zap.String("ticket_id", ticket.ID),
		zap.String("key", ticket.ExternalKey),
		zap.String("municipality", municipality),
		zap.Bool("on_behalf", onBehalf))
	s.events.publish(ctx, events.Event{
		Type:     events.EventTicketSubmitted,
		TicketID: ticket.ID,
		Actor:    callerActor(caller),
		Payload: events.TicketSubmittedPayload{
			ExternalKey:   ticket.ExternalKey,
			Municipality:  municipality,
			ProblemTypeID: ticket.ProblemTypeID,
			FiledOnBehalf: onBehalf,
		},
	})
	return result, nil
}

// Capture assigns an unclaimed ticket to the calling administrator and moves
// it to the captured status. Only one of several concurrent captures wins.
func (s *TicketService) Capture(ctx context.Context, caller domain.Caller, ticketID string) (*domain.Ticket, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	settings, err := s.settings.Load(ctx)
	if err != nil {
		return nil, err
	}
	if settings.CapturedStatusID == nil {
		return nil, apperrors.NewConfigurationError(apperrors.CodeNoCapturedStatus, "no captured status configured")
	}
	captured, err := s.statuses.GetByID(ctx, *settings.CapturedStatusID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewConfigurationError(apperrors.CodeNoCapturedStatus, "captured status no longer exists")
		}
		return nil, err
	}

	ticket, current, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !current.IsInitial() {
		return nil, errNotCapturable(ticket, current)
	}

	at := s.clock.Now()
	if err := s.tickets.Capture(ctx, ticket.ID, caller.ID, captured.ID, at); err != nil {
		if errors.Is(err, repository.ErrStaleTicket) {
			return nil, errNotCapturable(ticket, current)
		}
		return nil, err
	}

	s.logTransition("ticket captured", ticket.ID, current.ID, captured.ID, caller)
	s.events.publish(ctx, events.Event{
		Type:     events.EventTicketCaptured,
		TicketID: ticket.ID,
		Actor:    callerActor(caller),
		Payload:  events.TicketTransitionPayload{OldStatusID: current.ID, NewStatusID: captured.ID},
	})
	return s.reload(ctx, ticket.ID)
}

// Update moves a ticket to any status and records an optional note. A note is
// mandatory when the status changes.
func (s *TicketService) Update(ctx context.Context, caller domain.Caller, ticketID string, input UpdateInput) (*domain.Ticket, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	input.StatusID = strings.TrimSpace(input.StatusID)
	input.Note = strings.TrimSpace(input.Note)
	if input.StatusID == "" {
		return nil, apperrors.NewValidationError("status is required", map[string]any{"field": "status_id"})
	}

	ticket, current, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	target, err := s.statuses.GetByID(ctx, input.StatusID)
	if err != nil {
		return nil, notFound(err, "status", input.StatusID)
	}

	changed := target.ID != current.ID
	if changed && input.Note == "" {
		return nil, apperrors.NewStateConflict(apperrors.CodeNoteRequired,
			"a note is required when changing the status",
			map[string]any{"from": current.ID, "to": target.ID})
	}
	if !changed && input.Note == "" {
		return ticket, nil
	}

	at := s.clock.Now()
	tr := repository.TicketTransition{
		ID:               ticket.ID,
		ExpectedStatusID: current.ID,
		StatusID:         target.ID,
		At:               at,
	}
	if input.Note != "" {
		tr.LogEntry = formatLogEntry(at.In(s.location), authorName(caller), input.Note)
	}
	switch {
	case target.IsInitial():
		tr.ClearHandler = true
	case target.AllowsReopen():
		tr.ResolvedAt = &at
	}

	if err := s.tickets.ApplyTransition(ctx, tr); err != nil {
		if errors.Is(err, repository.ErrStaleTicket) {
			return nil, errStale(ticket.ID)
		}
		return nil, err
	}

	s.logTransition("ticket updated", ticket.ID, current.ID, target.ID, caller)
	s.events.publish(ctx, events.Event{
		Type:     events.EventTicketUpdated,
		TicketID: ticket.ID,
		Actor:    callerActor(caller),
		Payload:  events.TicketTransitionPayload{OldStatusID: current.ID, NewStatusID: target.ID, Note: input.Note},
	})
	return s.reload(ctx, ticket.ID)
}

// RequesterReopen lets the original requester send a resolved ticket back to
// the queue while the reopen window is open. A late attempt moves the ticket
// to the expired status, if one is configured, and fails.
func (s *TicketService) RequesterReopen(ctx context.Context, caller domain.Caller, ticketID string) (*domain.Ticket, error) {
	ticket, current, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.RequesterID != caller.ID {
		return nil, apperrors.NewForbidden("only the requester may reopen this ticket")
	}
	if !current.AllowsReopen() || ticket.ResolvedAt == nil {
		return nil, apperrors.NewStateConflict(apperrors.CodeNotReopenable,
			fmt.Sprintf("tickets in status %q cannot be reopened", current.Name),
			map[string]any{"status_id": current.ID})
	}

	settings, err := s.settings.Load(ctx)
	if err != nil {
		return nil, err
	}
	at := s.clock.Now()
	deadline := ticket.ResolvedAt.Add(settings.ReopenWindow())
	if !at.Before(deadline) {
		s.expireOne(ctx, ticket, current, settings, at)
		return nil, apperrors.NewStateConflict(apperrors.CodeReopenExpired,
			"the reopen window has expired",
			map[string]any{"expired_at": deadline})
	}

	initial, err := s.catalog.InitialStatus(ctx)
	if err != nil {
		return nil, err
	}
	err = s.tickets.ApplyTransition(ctx, repository.TicketTransition{
		ID:               ticket.ID,
		ExpectedStatusID: current.ID,
		StatusID:         initial.ID,
		LogEntry:         requesterReopenEntry(at.In(s.location), authorName(caller)),
		ClearHandler:     true,
		At:               at,
	})
	if err != nil {
		if errors.Is(err, repository.ErrStaleTicket) {
			return nil, errStale(ticket.ID)
		}
		return nil, err
	}

	s.logTransition("ticket reopened by requester", ticket.ID, current.ID, initial.ID, caller)
	s.events.publish(ctx, events.Event{
		Type:     events.EventTicketReopened,
		TicketID: ticket.ID,
		Actor:    callerActor(caller),
		Payload:  events.TicketTransitionPayload{OldStatusID: current.ID, NewStatusID: initial.ID},
	})
	return s.reload(ctx, ticket.ID)
}

// expireOne is the lazy expiry applied to a single ticket after a late reopen.
// Failures are logged; the caller still sees the expiry error.
func (s *TicketService) expireOne(ctx context.Context, ticket *domain.Ticket, current *domain.Status, settings domain.Settings, at time.Time) {
	if settings.ExpiredStatusID == nil {
		return
	}
	err := s.tickets.ApplyTransition(ctx, repository.TicketTransition{
		ID:               ticket.ID,
		ExpectedStatusID: current.ID,
		StatusID:         *settings.ExpiredStatusID,
		At:               at,
	})
	if err != nil {
		if !errors.Is(err, repository.ErrStaleTicket) {
			s.logger.Warn("expire ticket after late reopen", zap.String("ticket_id", ticket.ID), zap.Error(err))
		}
		return
	}
	s.logger.Info("ticket expired", zap.String("ticket_id", ticket.ID), zap.String("status_id", *settings.ExpiredStatusID))
	s.events.publish(ctx, events.Event{
		Type:     events.EventTicketsExpired,
		TicketID: ticket.ID,
		Actor:    systemActor(),
		Payload:  events.TicketsExpiredPayload{ExpiredStatusID: *settings.ExpiredStatusID, Count: 1},
	})
}

func (s *TicketService) load(ctx context.Context, ticketID string) (*domain.Ticket, *domain.Status, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, nil, notFound(err, "ticket", ticketID)
	}
	status, err := s.statuses.GetByID(ctx, ticket.StatusID)
	if err != nil {
		return nil, nil, notFound(err, "status", ticket.StatusID)
	}
	return ticket, status, nil
}

func (s *TicketService) reload(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFound(err, "ticket", ticketID)
	}
	return ticket, nil
}

func (s *TicketService) logTransition(msg, ticketID, from, to string, caller domain.Caller) {
	s.logger.Info(msg,
		zap.String("ticket_id", ticketID),
		zap.String("from_status", from),
		zap.String("to_status", to),
		zap.String("user_id", caller.ID))
}

func errNotCapturable(ticket *domain.Ticket, current *domain.Status) error {
	return apperrors.NewStateConflict(apperrors.CodeNotCapturable,
		fmt.Sprintf("ticket %s is no longer unclaimed", ticket.ExternalKey),
		map[string]any{"ticket_id": ticket.ID, "status_id": current.ID})
}

func errStale(ticketID string) error {
	return apperrors.NewStateConflict(apperrors.CodeStaleTicket,
		"the ticket was changed by someone else, reload and try again",
		map[string]any{"ticket_id": ticketID})
}

func generateTicketKey() string {
	return "TCK-" + strings.ToUpper(uuid.NewString()[:8])
}
