package dto

import (
	"time"

	"github.com/municipal-it/helpdesk/internal/domain"
)

// StatusRequest payload for creating a status.
type StatusRequest struct {
	Name string            `json:"name"`
	Kind domain.StatusKind `json:"kind"`
}

// StatusBatchItem is one entry of a batch status update.
type StatusBatchItem struct {
	ID   string            `json:"id"`
	Name string            `json:"name"`
	Kind domain.StatusKind `json:"kind"`
}

// ProblemTypeRequest payload for creating a problem type.
type ProblemTypeRequest struct {
	Name string `json:"name"`
}

// ProblemTypeBatchItem is one entry of a batch rename.
type ProblemTypeBatchItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ProblemTypeResponse represents a problem type.
type ProblemTypeResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SettingsRequest carries raw form values; numbers arrive as strings so the
// service can report non-numeric input per field.
type SettingsRequest struct {
	RedThresholdDays    string `json:"redThresholdDays"`
	YellowThresholdDays string `json:"yellowThresholdDays"`
	ReopenWindowDays    string `json:"reopenWindowDays"`
	CapturedStatusID    string `json:"capturedStatusId"`
	ExpiredStatusID     string `json:"expiredStatusId"`
}

// SettingsResponse is the typed policy.
type SettingsResponse struct {
	RedThresholdDays    int     `json:"redThresholdDays"`
	YellowThresholdDays int     `json:"yellowThresholdDays"`
	ReopenWindowDays    int     `json:"reopenWindowDays"`
	CapturedStatusID    *string `json:"capturedStatusId"`
	ExpiredStatusID     *string `json:"expiredStatusId"`
}

// SettingsPageResponse is the policy plus the statuses eligible for each role.
type SettingsPageResponse struct {
	Settings        SettingsResponse `json:"settings"`
	CapturedOptions []StatusResponse `json:"captured_options"`
	ExpiredOptions  []StatusResponse `json:"expired_options"`
}

// ChartBucket is one bar of a dashboard chart.
type ChartBucket struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// KPIResponse are the admin dashboard counters.
type KPIResponse struct {
	Total      int `json:"total"`
	Open       int `json:"open"`
	InProgress int `json:"in_progress"`
	Finalized  int `json:"finalized"`
	Others     int `json:"others"`
}

// AdminDashboardResponse is the admin dashboard.
type AdminDashboardResponse struct {
	KPIs         KPIResponse    `json:"kpis"`
	StatusChart  []ChartBucket  `json:"status_chart"`
	ProblemTypes []ChartBucket  `json:"problem_types"`
	Recent       []RecentTicket `json:"recent"`
}

// RecentTicket is a compact row of the newest tickets table.
type RecentTicket struct {
	ID           string    `json:"id"`
	ExternalKey  string    `json:"external_key"`
	Municipality string    `json:"municipality"`
	Status       string    `json:"status"`
	ProblemType  string    `json:"problem_type"`
	CreatedAt    time.Time `json:"created_at"`
}

// RequesterDashboardResponse counts the caller's tickets.
type RequesterDashboardResponse struct {
	Open      int `json:"open"`
	Finalized int `json:"finalized"`
}

// NewSettingsResponse maps typed settings.
func NewSettingsResponse(s domain.Settings) SettingsResponse {
	return SettingsResponse{
		RedThresholdDays:    s.RedThresholdDays,
		YellowThresholdDays: s.YellowThresholdDays,
		ReopenWindowDays:    s.ReopenWindowDays,
		CapturedStatusID:    s.CapturedStatusID,
		ExpiredStatusID:     s.ExpiredStatusID,
	}
}

// NewProblemTypeList maps problem types.
func NewProblemTypeList(types []domain.ProblemType) []ProblemTypeResponse {
	out := make([]ProblemTypeResponse, 0, len(types))
	for _, pt := range types {
		out = append(out, ProblemTypeResponse{ID: pt.ID, Name: pt.Name})
	}
	return out
}
