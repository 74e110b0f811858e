package models

// SafetyIncident is a reported near-miss or accident
type SafetyIncident struct {
	ID                  int        `json:"id"`
	Type                string     `json:"type"` // near-miss, minor, major, equipment-damage
	Description         string     `json:"description"`
	Operator            string     `json:"operator"`
	Machine             string     `json:"machine"`
	Location            string     `json:"location"`
	LocationCoordinates Coordinate `json:"locationCoordinates"`
	Timestamp           string     `json:"timestamp"`
	Status              string     `json:"status"`   // reported, investigating, resolved
	Severity            int        `json:"severity"` // 1-5
}
