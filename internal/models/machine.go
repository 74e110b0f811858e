package models

type MachineType string

const (
	MachineExcavator MachineType = "excavator"
	MachineBulldozer MachineType = "bulldozer"
	MachineGrader    MachineType = "grader"
	MachineTruck     MachineType = "truck"
	MachineLoader    MachineType = "loader"
)

type MachineStatus string

const (
	MachineActive        MachineStatus = "active"
	MachineMaintenance   MachineStatus = "maintenance"
	MachineIdle          MachineStatus = "idle"
	MachineOffline       MachineStatus = "offline"
	MachineEmergencyStop MachineStatus = "emergency_stop" // Set by the safety emergency response
)

type Machine struct {
	ID                  int           `json:"id"`
	Model               string        `json:"model"`
	Type                MachineType   `json:"type"`
	SerialNumber        string        `json:"serialNumber"`
	Status              MachineStatus `json:"status"`
	Operator            string        `json:"operator,omitempty"`
	FuelLevel           float64       `json:"fuelLevel"` // percentage
	HoursOperated       float64       `json:"hoursOperated"`
	Location            string        `json:"location"`
	LocationCoordinates *Coordinate   `json:"locationCoordinates,omitempty"`
	LastMaintenance     string        `json:"lastMaintenance"`
	NextMaintenance     string        `json:"nextMaintenance"`
	LastLocationUpdate  string        `json:"lastLocationUpdate,omitempty"`
}

func ValidMachineStatus(s MachineStatus) bool {
	switch s {
	case MachineActive, MachineMaintenance, MachineIdle, MachineOffline, MachineEmergencyStop:
		return true
	}
	return false
}
