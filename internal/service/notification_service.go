package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/municipal-it/helpdesk/internal/config"
	"github.com/municipal-it/helpdesk/internal/events"
)

// Notice audiences.
const (
	AudienceHelpdesk  = "helpdesk"
	AudienceRequester = "requester"
)

// Notice is one outbound message derived from a lifecycle event.
type Notice struct {
	Audience string
	TicketID string
	Subject  string
}

// NotificationService turns lifecycle events into outbound notices. Delivery
// is stubbed: notices are logged with their would-be destination.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     orNop(logger),
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to every ticket event.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for _, et := range events.TicketEventTypes() {
		n.dispatcher.Subscribe(et, n.handle)
	}
}

func (n *NotificationService) handle(_ context.Context, event events.Event) error {
	notice, ok := noticeFor(event)
	if !ok {
		return nil
	}
	fields := []zap.Field{
		zap.String("event_type", string(event.Type)),
		zap.String("audience", notice.Audience),
		zap.String("ticket_id", notice.TicketID),
		zap.String("subject", notice.Subject),
	}
	n.logger.Info("notice", fields...)
	if from := strings.TrimSpace(n.cfg.EmailFrom); from != "" && notice.Audience == AudienceRequester {
		n.logger.Debug("email stub", append(fields, zap.String("from", from))...)
	}
	if url := strings.TrimSpace(n.cfg.WebhookURL); url != "" {
		n.logger.Debug("webhook stub", append(fields, zap.String("url", url))...)
	}
	return nil
}

// noticeFor maps an event to the notice it produces. Requesters hear about
// progress on their ticket; the helpdesk hears about new and returning work.
func noticeFor(event events.Event) (Notice, bool) {
	notice := Notice{TicketID: event.TicketID}
	switch p := event.Payload.(type) {
	case events.TicketSubmittedPayload:
		notice.Audience = AudienceHelpdesk
		notice.Subject = fmt.Sprintf("new ticket %s from %s", p.ExternalKey, p.Municipality)
	case events.TicketTransitionPayload:
		switch event.Type {
		case events.EventTicketCaptured:
			notice.Audience = AudienceRequester
			notice.Subject = "your ticket is being handled"
		case events.EventTicketReopened:
			notice.Audience = AudienceHelpdesk
			notice.Subject = "ticket reopened by its requester"
		default:
			if p.OldStatusID == p.NewStatusID && p.Note == "" {
				return Notice{}, false
			}
			notice.Audience = AudienceRequester
			notice.Subject = "your ticket was updated"
		}
	case events.TicketsExpiredPayload:
		if p.Count == 0 {
			return Notice{}, false
		}
		notice.Audience = AudienceHelpdesk
		notice.Subject = fmt.Sprintf("%d ticket(s) closed after the reopen window", p.Count)
	default:
		return Notice{}, false
	}
	return notice, true
}
