package models

type AlertType string

const (
	AlertProximity  AlertType = "proximity"
	AlertHazardZone AlertType = "hazard_zone"
)

type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Rank orders severities LOW < MEDIUM < HIGH < CRITICAL. Unknown values rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	}
	return 0
}

// Alert is an ephemeral safety alert record. It is never persisted.
// ConditionKey identifies the (operator, hazard source) pair independent of
// when it was detected; ID identifies this particular record.
type Alert struct {
	ID           string     `json:"id"`
	ConditionKey string     `json:"conditionKey"`
	Type         AlertType  `json:"type"`
	Severity     Severity   `json:"severity"`
	OperatorID   int        `json:"operatorId"`
	Operator     string     `json:"operator"`
	MachineID    *int       `json:"machineId,omitempty"`
	Machine      string     `json:"machine,omitempty"`
	Zone         string     `json:"zone,omitempty"`
	Distance     *float64   `json:"distance,omitempty"`
	SafetyRadius *float64   `json:"safetyRadius,omitempty"`
	Message      string     `json:"message"`
	Timestamp    string     `json:"timestamp"`
	Coordinates  Coordinate `json:"coordinates"`
	Resolved     bool       `json:"resolved"`
}
