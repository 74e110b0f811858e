package safety

import (
	"fmt"
	"math"
	"strconv"

	"siteops-backend/internal/geo"
	"siteops-backend/internal/models"
)

func ProximityKey(operatorID, machineID int) string {
	return fmt.Sprintf("proximity:%d:%d", operatorID, machineID)
}

func HazardKey(operatorID int, zoneName string) string {
	return fmt.Sprintf("hazard:%d:%s", operatorID, zoneName)
}

// ProximitySeverity grades a distance that is already inside radius
func ProximitySeverity(distance, radius, criticalFraction float64) models.Severity {
	if distance < radius*criticalFraction {
		return models.SeverityCritical
	}
	return models.SeverityHigh
}

// Evaluate returns every alert condition that holds for the given positions.
// Results carry a condition key but no id or timestamp. Order is stable:
// operators in input order, then per operator machines followed by zones.
func Evaluate(cfg Config, operators []models.Operator, machines []models.Machine) []models.Alert {
	var found []models.Alert

	for _, op := range operators {
		if op.Status != models.OperatorActive || op.CurrentLocation == nil {
			continue
		}
		pos := *op.CurrentLocation

		for _, m := range machines {
			if m.Status != models.MachineActive || m.LocationCoordinates == nil {
				continue
			}
			if ownMachine(op, m) {
				continue
			}

			radius := cfg.RadiusFor(m.Type)
			if !geo.Within(pos, *m.LocationCoordinates, radius) {
				continue
			}
			d := geo.Distance(pos, *m.LocationCoordinates)

			machineID := m.ID
			rounded := math.Round(d)
			r := radius
			found = append(found, models.Alert{
				ConditionKey: ProximityKey(op.ID, m.ID),
				Type:         models.AlertProximity,
				Severity:     ProximitySeverity(d, radius, cfg.CriticalFraction),
				OperatorID:   op.ID,
				Operator:     op.Name,
				MachineID:    &machineID,
				Machine:      m.Model,
				Distance:     &rounded,
				SafetyRadius: &r,
				Message: fmt.Sprintf("%s too close to %s (%sm, %sm required)",
					op.Name, m.Model, formatMeters(rounded), formatMeters(radius)),
				Coordinates: pos,
			})
		}

		for _, zone := range cfg.HazardZones {
			if !geo.Within(pos, zone.Center, zone.Radius) {
				continue
			}
			d := geo.Distance(pos, zone.Center)

			rounded := math.Round(d)
			r := zone.Radius
			found = append(found, models.Alert{
				ConditionKey: HazardKey(op.ID, zone.Name),
				Type:         models.AlertHazardZone,
				Severity:     zone.Severity,
				OperatorID:   op.ID,
				Operator:     op.Name,
				Zone:         zone.Name,
				Distance:     &rounded,
				SafetyRadius: &r,
				Message:      fmt.Sprintf("%s entered %s (%s)", op.Name, zone.Name, zone.Description),
				Coordinates:  pos,
			})
		}
	}

	return found
}

// ownMachine reports whether m is the machine the operator is driving
func ownMachine(op models.Operator, m models.Machine) bool {
	if op.CurrentMachine != "" && op.CurrentMachine == m.Model {
		return true
	}
	return m.Operator != "" && m.Operator == op.Name
}

func formatMeters(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
