package models

type OperatorRole string

const (
	RoleOperator   OperatorRole = "operator"
	RoleSupervisor OperatorRole = "supervisor"
	RoleAdmin      OperatorRole = "admin"
)

type OperatorStatus string

const (
	OperatorActive  OperatorStatus = "active"
	OperatorOffline OperatorStatus = "offline"
	OperatorBreak   OperatorStatus = "break"
)

// Operator is a person working on site. The whole operators collection is
// rewritten on every mutation, including location updates.
type Operator struct {
	ID                 int            `json:"id"`
	Name               string         `json:"name"`
	Email              string         `json:"email"`
	Role               OperatorRole   `json:"role"`
	Shift              string         `json:"shift"` // "day" or "night"
	Status             OperatorStatus `json:"status"`
	CurrentMachine     string         `json:"currentMachine,omitempty"`
	PerformanceScore   float64        `json:"performanceScore"`
	HoursWorked        float64        `json:"hoursWorked"`
	TasksCompleted     int            `json:"tasksCompleted"`
	CurrentLocation    *Coordinate    `json:"currentLocation,omitempty"`
	LastLocationUpdate string         `json:"lastLocationUpdate,omitempty"`
}

func ValidOperatorStatus(s OperatorStatus) bool {
	switch s {
	case OperatorActive, OperatorOffline, OperatorBreak:
		return true
	}
	return false
}

func ValidOperatorRole(r OperatorRole) bool {
	switch r {
	case RoleOperator, RoleSupervisor, RoleAdmin:
		return true
	}
	return false
}
