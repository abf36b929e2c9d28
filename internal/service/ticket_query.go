package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/municipal-it/helpdesk/internal/domain"
	"github.com/municipal-it/helpdesk/internal/events"
	"github.com/municipal-it/helpdesk/internal/repository"
	apperrors "github.com/municipal-it/helpdesk/pkg/util"
)

// ListFilter narrows a ticket listing. Set fields are AND-combined.
type ListFilter struct {
	StatusID      *string
	Municipality  *string
	ProblemTypeID *string
	FinalizedOnly bool
}

// TicketListing is the result of a listing. Requesters only get Mine, holding
// the tickets they opened. Administrators get the tickets they handle in Mine
// and every other match in Others.
type TicketListing struct {
	Mine   []domain.AnnotatedTicket
	Others []domain.AnnotatedTicket
}

// ListTickets runs the expiry sweep and returns annotated tickets, newest first.
func (s *TicketService) ListTickets(ctx context.Context, caller domain.Caller, filter ListFilter) (*TicketListing, error) {
	settings, settingsErr := s.settings.Load(ctx)
	if settingsErr != nil {
		if !apperrors.HasCode(settingsErr, apperrors.CodeMalformedSetting) {
			return nil, settingsErr
		}
		s.logger.Warn("expiry sweep skipped", zap.Error(settingsErr))
	}

	at := s.clock.Now()
	if settingsErr == nil {
		s.Sweep(ctx, settings, at)
	}

	base := repository.TicketFilter{
		StatusID:      trimmed(filter.StatusID),
		Municipality:  trimmed(filter.Municipality),
		ProblemTypeID: trimmed(filter.ProblemTypeID),
		FinalizedOnly: filter.FinalizedOnly,
	}

	listing := &TicketListing{}
	if !caller.IsAdmin {
		own := base
		own.RequesterID = &caller.ID
		views, err := s.tickets.List(ctx, own)
		if err != nil {
			return nil, err
		}
		listing.Mine = annotateAll(views, settings, at, s.location)
		return listing, nil
	}

	mine := base
	mine.HandlerID = &caller.ID
	views, err := s.tickets.List(ctx, mine)
	if err != nil {
		return nil, err
	}
	listing.Mine = annotateAll(views, settings, at, s.location)

	others := base
	others.ExcludeHandlerID = &caller.ID
	views, err = s.tickets.List(ctx, others)
	if err != nil {
		return nil, err
	}
	listing.Others = annotateAll(views, settings, at, s.location)
	return listing, nil
}

// Sweep moves every reopenable ticket whose window has lapsed into the expired
// status. It is a no-op when no expired status is configured, and a failure is
// logged without being returned so the listing that triggered it proceeds.
func (s *TicketService) Sweep(ctx context.Context, settings domain.Settings, at time.Time) int64 {
	if settings.ExpiredStatusID == nil {
		return 0
	}
	n, err := s.tickets.ExpireLapsed(ctx, *settings.ExpiredStatusID, settings.ReopenWindowDays, at)
	if err != nil {
		s.logger.Warn("expiry sweep failed", zap.Error(err))
		return 0
	}
	if n == 0 {
		return 0
	}
	if s.expiry != nil {
		s.expiry.RecordExpired(n)
	}
	s.logger.Info("expiry sweep", zap.Int64("expired", n), zap.String("status_id", *settings.ExpiredStatusID))
	s.events.publish(ctx, events.Event{
		Type:    events.EventTicketsExpired,
		Actor:   systemActor(),
		Payload: events.TicketsExpiredPayload{ExpiredStatusID: *settings.ExpiredStatusID, Count: n},
	})
	return n
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
