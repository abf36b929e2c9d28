package service

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/municipal-it/helpdesk/internal/domain"
	"github.com/municipal-it/helpdesk/internal/repository"
	apperrors "github.com/municipal-it/helpdesk/pkg/util"
)

// DirectoryService answers read-only questions about devices and the people
// responsible for them.
type DirectoryService struct {
	devices repository.DeviceRepository
	users   repository.UserRepository
	tickets repository.TicketRepository
}

// NewDirectoryService builds the service.
func NewDirectoryService(devices repository.DeviceRepository, users repository.UserRepository, tickets repository.TicketRepository) *DirectoryService {
	return &DirectoryService{devices: devices, users: users, tickets: tickets}
}

// LookupDevice finds a device by its primary serial. A missing device is not
// an error: tickets reference devices loosely.
func (s *DirectoryService) LookupDevice(ctx context.Context, serial string) (*domain.Device, error) {
	device, err := s.devices.GetBySerial(ctx, strings.TrimSpace(serial))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return device, err
}

// DevicesIn lists the inventory of a municipality. Requesters only see their own.
func (s *DirectoryService) DevicesIn(ctx context.Context, caller domain.Caller, municipality string) ([]domain.Device, error) {
	municipality = strings.TrimSpace(municipality)
	if !caller.IsAdmin {
		municipality = caller.Municipality
	}
	if municipality == "" {
		return nil, apperrors.NewValidationError("municipality is required", map[string]any{"field": "municipality"})
	}
	return s.devices.ListByMunicipality(ctx, municipality)
}

// Municipalities lists every municipality that owns devices or has tickets.
func (s *DirectoryService) Municipalities(ctx context.Context) ([]string, error) {
	fromDevices, err := s.devices.ListMunicipalities(ctx)
	if err != nil {
		return nil, err
	}
	fromTickets, err := s.tickets.ListMunicipalities(ctx)
	if err != nil {
		return nil, err
	}
	return mergeSorted(fromDevices, fromTickets), nil
}

// Responsible returns the account tickets for municipality are filed under
// when an administrator submits on its behalf, or nil if there is none.
func (s *DirectoryService) Responsible(ctx context.Context, caller domain.Caller, municipality string) (*domain.User, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	user, err := s.users.FirstRequesterIn(ctx, strings.TrimSpace(municipality))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return user, err
}

// mergeSorted returns the sorted union of a and b.
func mergeSorted(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	out = append(append(out, a...), b...)
	slices.Sort(out)
	return slices.Compact(out)
}
