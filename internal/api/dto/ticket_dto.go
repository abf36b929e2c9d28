package dto

import (
	"time"

	"github.com/municipal-it/helpdesk/internal/domain"
)

// UpdateTicketRequest payload for POST /tickets/:id/update.
type UpdateTicketRequest struct {
	StatusID string `json:"status_id"`
	Note     string `json:"note"`
}

// StatusResponse represents a catalog status with its derived flags.
type StatusResponse struct {
	ID   string            `json:"id"`
	Name string            `json:"name"`
	Kind domain.StatusKind `json:"kind"`
	domain.StatusFlags
}

// DeviceResponse is an inventory record.
type DeviceResponse struct {
	ID           string `json:"id"`
	Municipality string `json:"municipality"`
	IMEI1        string `json:"imei1"`
	IMEI2        string `json:"imei2,omitempty"`
	Brand        string `json:"brand,omitempty"`
	Model        string `json:"model,omitempty"`
	Capacity     string `json:"capacity,omitempty"`
	SerialNumber string `json:"serial_number,omitempty"`
	DeliveredOn  string `json:"delivered_on,omitempty"`
	UsageSite    string `json:"usage_site,omitempty"`
	Condition    string `json:"condition,omitempty"`
	AssetTag     string `json:"asset_tag,omitempty"`
}

// TicketSummary is the stored part of a ticket.
type TicketSummary struct {
	ID            string     `json:"id"`
	ExternalKey   string     `json:"external_key"`
	RequesterID   string     `json:"requester_id"`
	Municipality  string     `json:"municipality"`
	DeviceSerial  string     `json:"device_serial"`
	ProblemTypeID string     `json:"problem_type_id"`
	Description   string     `json:"description"`
	StatusID      string     `json:"status_id"`
	PhotoRef      *string    `json:"photo_ref,omitempty"`
	SolutionLog   string     `json:"solution_log"`
	HandlerID     *string    `json:"handler_id,omitempty"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// TicketListItem is a ticket joined with its references and read-time annotations.
type TicketListItem struct {
	TicketSummary
	Status          StatusResponse  `json:"status"`
	ProblemType     string          `json:"problem_type"`
	RequesterEmail  string          `json:"requester_email"`
	RequesterName   string          `json:"requester_name"`
	HandlerName     *string         `json:"handler_name,omitempty"`
	Device          *DeviceResponse `json:"device,omitempty"`
	BorderColor     domain.SLAColor `json:"border_color"`
	ReopenAvailable bool            `json:"reopen_available"`
	ExpiresAt       *time.Time      `json:"expires_at,omitempty"`
}

// TicketListResponse separates the caller's tickets from the rest.
type TicketListResponse struct {
	Mine   []TicketListItem `json:"mine"`
	Others []TicketListItem `json:"others,omitempty"`
}

// SubmitTicketResponse is the created ticket plus an optional notice.
type SubmitTicketResponse struct {
	Ticket  TicketSummary `json:"ticket"`
	Warning string        `json:"warning,omitempty"`
}

// NewTicketSummary maps a domain ticket.
func NewTicketSummary(t *domain.Ticket) TicketSummary {
	return TicketSummary{
		ID:            t.ID,
		ExternalKey:   t.ExternalKey,
		RequesterID:   t.RequesterID,
		Municipality:  t.Municipality,
		DeviceSerial:  t.DeviceSerial,
		ProblemTypeID: t.ProblemTypeID,
		Description:   t.Description,
		StatusID:      t.StatusID,
		PhotoRef:      t.PhotoRef,
		SolutionLog:   t.SolutionLog,
		HandlerID:     t.HandlerID,
		ResolvedAt:    t.ResolvedAt,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

// NewStatusResponse maps a domain status.
func NewStatusResponse(s domain.Status) StatusResponse {
	return StatusResponse{ID: s.ID, Name: s.Name, Kind: s.Kind, StatusFlags: s.Kind.Flags()}
}

// NewStatusList maps a slice of statuses.
func NewStatusList(statuses []domain.Status) []StatusResponse {
	out := make([]StatusResponse, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, NewStatusResponse(s))
	}
	return out
}

// NewDeviceResponse maps a device; nil stays nil.
func NewDeviceResponse(d *domain.Device) *DeviceResponse {
	if d == nil {
		return nil
	}
	return &DeviceResponse{
		ID:           d.ID,
		Municipality: d.Municipality,
		IMEI1:        d.IMEI1,
		IMEI2:        d.IMEI2,
		Brand:        d.Brand,
		Model:        d.Model,
		Capacity:     d.Capacity,
		SerialNumber: d.SerialNumber,
		DeliveredOn:  d.DeliveredOn,
		UsageSite:    d.UsageSite,
		Condition:    d.Condition,
		AssetTag:     d.AssetTag,
	}
}

// NewTicketListItem maps an annotated ticket.
func NewTicketListItem(t domain.AnnotatedTicket) TicketListItem {
	return TicketListItem{
		TicketSummary:   NewTicketSummary(&t.Ticket),
		Status:          NewStatusResponse(t.Status),
		ProblemType:     t.ProblemTypeName,
		RequesterEmail:  t.RequesterEmail,
		RequesterName:   t.RequesterName,
		HandlerName:     t.HandlerName,
		Device:          NewDeviceResponse(t.Device),
		BorderColor:     t.BorderColor,
		ReopenAvailable: t.ReopenAvailable,
		ExpiresAt:       t.ExpiresAt,
	}
}

// NewTicketList maps a slice of annotated tickets.
func NewTicketList(items []domain.AnnotatedTicket) []TicketListItem {
	out := make([]TicketListItem, 0, len(items))
	for _, t := range items {
		out = append(out, NewTicketListItem(t))
	}
	return out
}
