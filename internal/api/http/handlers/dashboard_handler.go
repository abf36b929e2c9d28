package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/municipal-it/helpdesk/internal/api/dto"
	"github.com/municipal-it/helpdesk/internal/service"
)

// DashboardHandler exposes ticket aggregates.
type DashboardHandler struct {
	dashboards *service.DashboardService
}

// NewDashboardHandler constructs handler.
func NewDashboardHandler(dashboards *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboards: dashboards}
}

// Admin handles GET /dashboard.
func (h *DashboardHandler) Admin(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	dash, err := h.dashboards.Admin(c.UserContext(), caller)
	if err != nil {
		return err
	}
	resp := dto.AdminDashboardResponse{
		KPIs: dto.KPIResponse{
			Total:      dash.KPIs.Total,
			Open:       dash.KPIs.Open,
			InProgress: dash.KPIs.InProgress,
			Finalized:  dash.KPIs.Finalized,
			Others:     dash.KPIs.Others,
		},
		StatusChart:  chart(dash.StatusChart),
		ProblemTypes: chart(dash.ProblemTypes),
		Recent:       make([]dto.RecentTicket, 0, len(dash.Recent)),
	}
	for _, t := range dash.Recent {
		resp.Recent = append(resp.Recent, dto.RecentTicket{
			ID:           t.ID,
			ExternalKey:  t.ExternalKey,
			Municipality: t.Municipality,
			Status:       t.Status.Name,
			ProblemType:  t.ProblemTypeName,
			CreatedAt:    t.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": resp})
}

// Requester handles GET /dashboard/me.
func (h *DashboardHandler) Requester(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	dash, err := h.dashboards.Requester(c.UserContext(), caller)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.RequesterDashboardResponse{Open: dash.Open, Finalized: dash.Finalized}})
}

func chart(buckets []service.ChartBucket) []dto.ChartBucket {
	out := make([]dto.ChartBucket, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, dto.ChartBucket{ID: b.ID, Name: b.Name, Count: b.Count})
	}
	return out
}
