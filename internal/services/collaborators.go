package services

import (
	"context"

	"wastewatch-backend/internal/models"
)

// Websocket event names.
const (
	EventReportCreated = "report_created"
	EventReportUpdated = "report_updated"
	EventBinUpdated    = "bin_updated"
	EventBinAlert      = "bin_alert"
	EventDriverUpdated = "driver_updated"
)

// EventPublisher delivers live events to connected dashboards.
// The websocket hub implements it.
type EventPublisher interface {
	BroadcastToUser(userID string, event string, data interface{})
	BroadcastToRole(role models.Role, event string, data interface{})
}

// ReportPusher sends report status notifications to devices and returns the
// tokens that should be forgotten. FCMService implements it.
type ReportPusher interface {
	SendReportStatusNotification(ctx context.Context, tokens []string, r *models.Report) ([]string, error)
}

// Geocoder resolves a free-text location. GeocodingService implements it.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*Address, error)
}
