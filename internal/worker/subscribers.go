package worker

import (
	"github.com/municipal-it/helpdesk/internal/events"
	"github.com/municipal-it/helpdesk/internal/service"
)

// RegisterSubscribers wires the in-process event consumers: outbound
// notifications and dashboard cache invalidation.
func RegisterSubscribers(dispatcher events.Dispatcher, notifications *service.NotificationService, dashboards *service.DashboardService) {
	if notifications != nil {
		notifications.RegisterHandlers()
	}
	if dashboards != nil {
		dashboards.RegisterInvalidation(dispatcher)
	}
}
