package domain

import "time"

// Ticket is the aggregate for a reported device or service issue.
type Ticket struct {
	ID            string
	ExternalKey   string
	RequesterID   string
	Municipality  string
	DeviceSerial  string
	ProblemTypeID string
	Description   string
	StatusID      string
	PhotoRef      *string
	SolutionLog   string
	HandlerID     *string
	ResolvedAt    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TicketView is a ticket joined with its status, problem type, people and device.
type TicketView struct {
	Ticket
	Status          Status
	ProblemTypeName string
	RequesterEmail  string
	RequesterName   string
	HandlerName     *string
	Device          *Device
}

// SLAColor is the urgency indicator shown for a ticket.
type SLAColor string

const (
	SLAColorSuccess   SLAColor = "success"
	SLAColorWarning   SLAColor = "warning"
	SLAColorDanger    SLAColor = "danger"
	SLAColorSecondary SLAColor = "secondary"
)

// AnnotatedTicket carries the read-time derived fields of a ticket.
type AnnotatedTicket struct {
	TicketView
	BorderColor     SLAColor
	ReopenAvailable bool
	ExpiresAt       *time.Time
}
