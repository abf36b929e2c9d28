package service

import (
	"time"

	"github.com/municipal-it/helpdesk/internal/domain"
)

const day = 24 * time.Hour

// wholeDays counts full days between the calendar day the ticket was opened
// and now, both read in loc.
func wholeDays(now, createdAt time.Time, loc *time.Location) int {
	c := createdAt.In(loc)
	opened := time.Date(c.Year(), c.Month(), c.Day(), 0, 0, 0, 0, loc)
	return int(now.In(loc).Sub(opened) / day)
}

func slaColor(status domain.Status, createdAt time.Time, settings domain.Settings, now time.Time, loc *time.Location) domain.SLAColor {
	if status.IsFinal() {
		return domain.SLAColorSuccess
	}
	if createdAt.IsZero() {
		return domain.SLAColorSecondary
	}
	days := wholeDays(now, createdAt, loc)
	switch {
	case days > settings.RedThresholdDays:
		return domain.SLAColorDanger
	case days > settings.YellowThresholdDays:
		return domain.SLAColorWarning
	default:
		return domain.SLAColorSuccess
	}
}

// reopenDeadline returns when the requester loses the right to reopen, or nil
// when the ticket is not in a reopenable state.
func reopenDeadline(status domain.Status, resolvedAt *time.Time, settings domain.Settings) *time.Time {
	if !status.AllowsReopen() || resolvedAt == nil {
		return nil
	}
	deadline := resolvedAt.Add(settings.ReopenWindow())
	return &deadline
}

// annotate derives the read-time fields of a ticket. Nothing here is stored,
// so policy changes recolor existing tickets immediately.
func annotate(view domain.TicketView, settings domain.Settings, now time.Time, loc *time.Location) domain.AnnotatedTicket {
	out := domain.AnnotatedTicket{
		TicketView:  view,
		BorderColor: slaColor(view.Status, view.CreatedAt, settings, now, loc),
	}
	if deadline := reopenDeadline(view.Status, view.ResolvedAt, settings); deadline != nil && now.Before(*deadline) {
		out.ReopenAvailable = true
		out.ExpiresAt = deadline
	}
	return out
}

func annotateAll(views []domain.TicketView, settings domain.Settings, now time.Time, loc *time.Location) []domain.AnnotatedTicket {
	out := make([]domain.AnnotatedTicket, 0, len(views))
	for _, v := range views {
		out = append(out, annotate(v, settings, now, loc))
	}
	return out
}
