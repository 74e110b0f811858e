package websocket

import (
	"context"
	"time"

	"siteops-backend/internal/models"
	"siteops-backend/internal/safety"
)

// Name and DeliverCue make the hub a safety cue sink: dashboards play the
// alert sound with the given volume and repeat count.
func (h *Hub) Name() string {
	return "websocket"
}

func (h *Hub) DeliverCue(_ context.Context, cue safety.Cue) error {
	h.BroadcastAll(map[string]interface{}{
		"type":      "safety_alert_cue",
		"data":      cue,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
	return nil
}

// PublishAlerts pushes the current alert feed to every dashboard
func (h *Hub) PublishAlerts(alerts []models.Alert) {
	h.BroadcastAll(map[string]interface{}{
		"type":      "safety_alerts",
		"data":      alerts,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// PublishOperatorLocation pushes a moved operator to every dashboard
func (h *Hub) PublishOperatorLocation(op models.Operator) {
	h.BroadcastAll(map[string]interface{}{
		"type": "operator_location_update",
		"data": map[string]interface{}{
			"operator_id":        op.ID,
			"name":               op.Name,
			"currentLocation":    op.CurrentLocation,
			"lastLocationUpdate": op.LastLocationUpdate,
		},
	})
}

// PublishMachineLocation pushes a moved machine to every dashboard
func (h *Hub) PublishMachineLocation(m models.Machine) {
	h.BroadcastAll(map[string]interface{}{
		"type": "machine_location_update",
		"data": map[string]interface{}{
			"machine_id":          m.ID,
			"model":               m.Model,
			"locationCoordinates": m.LocationCoordinates,
			"lastLocationUpdate":  m.LastLocationUpdate,
		},
	})
}
