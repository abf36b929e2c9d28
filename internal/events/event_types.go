package events

import (
	"time"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketSubmitted EventType = "ticket_submitted"
	EventTicketCaptured  EventType = "ticket_captured"
	EventTicketUpdated   EventType = "ticket_updated"
	EventTicketReopened  EventType = "ticket_reopened"
	EventTicketsExpired  EventType = "tickets_expired"
	EventCatalogChanged  EventType = "catalog_changed"
	EventSettingsChanged EventType = "settings_changed"
)

// TicketEventTypes lists every event that changes ticket aggregates.
func TicketEventTypes() []EventType {
	return []EventType{
		EventTicketSubmitted,
		EventTicketCaptured,
		EventTicketUpdated,
		EventTicketReopened,
		EventTicketsExpired,
	}
}

// Actor identifies who caused an event. System sweeps have no user id.
type Actor struct {
	UserID  *string `json:"user_id,omitempty"`
	IsAdmin bool    `json:"is_admin"`
	System  bool    `json:"system,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id,omitempty"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketSubmittedPayload payload.
type TicketSubmittedPayload struct {
	ExternalKey   string `json:"external_key"`
	Municipality  string `json:"municipality"`
	ProblemTypeID string `json:"problem_type_id"`
	FiledOnBehalf bool   `json:"filed_on_behalf"`
}

// TicketTransitionPayload payload shared by capture, update and reopen.
type TicketTransitionPayload struct {
	OldStatusID string `json:"old_status_id"`
	NewStatusID string `json:"new_status_id"`
	Note        string `json:"note,omitempty"`
}

// TicketsExpiredPayload payload.
type TicketsExpiredPayload struct {
	ExpiredStatusID string `json:"expired_status_id"`
	Count           int64  `json:"count"`
}

// CatalogChangedPayload payload.
type CatalogChangedPayload struct {
	Catalog string `json:"catalog"`
	Action  string `json:"action"`
}
