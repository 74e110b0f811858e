package safety

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"siteops-backend/internal/models"
)

var ErrNoEmergencyAction = errors.New("alert has no emergency action")

const (
	ActionMachineStop    = "EMERGENCY_MACHINE_STOP"
	ActionZoneEvacuation = "HAZARD_ZONE_EVACUATION"
	responseTimeEstimate = "< 5 seconds"
	evacuationEstimate   = "3 minutes"
)

// EmergencyResponse records what an emergency action did
type EmergencyResponse struct {
	Timestamp       string            `json:"timestamp"`
	Action          string            `json:"action"`
	AlertID         string            `json:"alertId"`
	Operator        string            `json:"operator"`
	Machine         string            `json:"machine,omitempty"`
	Zone            string            `json:"zone,omitempty"`
	Distance        *float64          `json:"distance,omitempty"`
	Coordinates     models.Coordinate `json:"coordinates"`
	EvacuationRoute string            `json:"evacuationRoute,omitempty"`
	ResponseTime    string            `json:"responseTime"`
	Steps           []string          `json:"steps"`
}

// EmergencyStop responds to an alert. For a proximity alert the machine is
// set to emergency_stop in the store; for a hazard alert the operator is
// routed to the safe point. The alert is dismissed either way.
func (m *Monitor) EmergencyStop(ctx context.Context, alertID string) (*EmergencyResponse, error) {
	alert, err := m.Alert(alertID)
	if err != nil {
		return nil, err
	}

	resp := &EmergencyResponse{
		Timestamp:   m.now().UTC().Format(time.RFC3339),
		AlertID:     alert.ID,
		Operator:    alert.Operator,
		Distance:    alert.Distance,
		Coordinates: alert.Coordinates,
	}

	switch {
	case alert.Type == models.AlertProximity && alert.MachineID != nil:
		machine, err := m.store.SetMachineStatus(ctx, *alert.MachineID, models.MachineEmergencyStop)
		if err != nil {
			return nil, fmt.Errorf("failed to stop machine: %w", err)
		}
		resp.Action = ActionMachineStop
		resp.Machine = machine.Model
		resp.ResponseTime = responseTimeEstimate
		resp.Steps = []string{
			fmt.Sprintf("%s STOPPED immediately", machine.Model),
			"Safety alert cleared",
			"Emergency response logged",
			fmt.Sprintf("%s notified to evacuate area", alert.Operator),
			fmt.Sprintf("Safety officer dispatched to coordinates (%s, %s)",
				formatMeters(alert.Coordinates.X), formatMeters(alert.Coordinates.Y)),
		}

	case alert.Type == models.AlertHazardZone:
		resp.Action = ActionZoneEvacuation
		resp.Zone = alert.Zone
		resp.EvacuationRoute = m.safePointLabel()
		resp.ResponseTime = evacuationEstimate
		resp.Steps = []string{
			"All personnel evacuating hazard zone",
			"Safety barriers activated",
			"Emergency team dispatched",
			fmt.Sprintf("%s guided to nearest exit", alert.Operator),
			fmt.Sprintf("Evacuation route: %s", resp.EvacuationRoute),
		}

	default:
		return nil, fmt.Errorf("%s: %w", alert.ID, ErrNoEmergencyAction)
	}

	if _, err := m.remove(alert.ID); err != nil && !errors.Is(err, ErrAlertNotFound) {
		return nil, err
	}

	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Printf("🚨 EMERGENCY RESPONSE: %s", resp.Action)
	log.Printf("   Operator: %s", resp.Operator)
	if resp.Machine != "" {
		log.Printf("   Machine: %s", resp.Machine)
	}
	if resp.Zone != "" {
		log.Printf("   Zone: %s", resp.Zone)
	}
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	m.publish(ctx, m.event(EventEmergency, alert, resp))
	m.notify()
	return resp, nil
}

// MoveToSafety relocates the alert's operator to the safe point and dismisses the alert
func (m *Monitor) MoveToSafety(ctx context.Context, alertID string) (*models.Operator, error) {
	alert, err := m.Alert(alertID)
	if err != nil {
		return nil, err
	}

	op, err := m.store.UpdateOperatorLocation(ctx, alert.OperatorID, m.cfg.SafePoint)
	if err != nil {
		return nil, fmt.Errorf("failed to move operator: %w", err)
	}

	if _, err := m.remove(alert.ID); err != nil && !errors.Is(err, ErrAlertNotFound) {
		return nil, err
	}

	log.Printf("✅ %s moved to %s", op.Name, m.safePointLabel())
	m.publish(ctx, m.event(EventMovedToSafety, alert, nil))
	m.notify()
	return op, nil
}

func (m *Monitor) safePointLabel() string {
	return fmt.Sprintf("%s (%s, %s)", m.cfg.SafePointName,
		formatMeters(m.cfg.SafePoint.X), formatMeters(m.cfg.SafePoint.Y))
}
