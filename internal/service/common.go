package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/municipal-it/helpdesk/internal/domain"
	"github.com/municipal-it/helpdesk/internal/events"
	apperrors "github.com/municipal-it/helpdesk/pkg/util"
)

func requireAdmin(caller domain.Caller) error {
	if !caller.IsAdmin {
		return apperrors.NewForbidden("administrator access required")
	}
	return nil
}

// notFound turns a missing row into a NotFound error naming the resource.
func notFound(err error, resource, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, map[string]any{"id": id})
	}
	return err
}

func callerActor(caller domain.Caller) events.Actor {
	id := caller.ID
	return events.Actor{UserID: &id, IsAdmin: caller.IsAdmin}
}

func systemActor() events.Actor {
	return events.Actor{System: true}
}

// authorName is the header used for solution log entries written by caller.
func authorName(caller domain.Caller) string {
	if caller.DisplayName != "" {
		return caller.DisplayName
	}
	return caller.Email
}

type publisher struct {
	dispatcher events.Dispatcher
	clock      Clock
	logger     *zap.Logger
}

func (p publisher) publish(ctx context.Context, event events.Event) {
	if p.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = now(p.clock)
	}
	if err := p.dispatcher.Publish(ctx, event); err != nil && p.logger != nil {
		p.logger.Warn("publish event", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func now(c Clock) time.Time {
	if c == nil {
		return time.Now()
	}
	return c.Now()
}

func orNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func orSystem(c Clock) Clock {
	if c == nil {
		return SystemClock()
	}
	return c
}
