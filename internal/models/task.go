package models

type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in-progress"
	TaskDone       TaskStatus = "done"
	TaskBlocked    TaskStatus = "blocked"
)

// AllTaskStatuses lists every status; any status may move to any other.
var AllTaskStatuses = []TaskStatus{TaskPending, TaskInProgress, TaskDone, TaskBlocked}

type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

// Progress history actions
const (
	ActionCreated        = "created"
	ActionUpdated        = "updated"
	ActionStatusChange   = "status_change"
	ActionReassigned     = "reassigned"
	ActionProgressUpdate = "progress_update"
	ActionTimeEstimated  = "time_estimated"
)

// ProgressEntry is one record of the append-only log embedded in a task
type ProgressEntry struct {
	Timestamp string     `json:"timestamp"`
	Progress  *int       `json:"progress,omitempty"`
	Status    TaskStatus `json:"status,omitempty"`
	Notes     string     `json:"notes,omitempty"`
	UpdatedBy string     `json:"updatedBy,omitempty"`
	User      string     `json:"user"`
	Action    string     `json:"action"`
}

type Task struct {
	ID                  int             `json:"id"`
	Title               string          `json:"title"`
	Description         string          `json:"description"`
	AssignedOperator    string          `json:"assignedOperator"` // free text, matched by name
	Machine             string          `json:"machine"`
	Status              TaskStatus      `json:"status"`
	Priority            TaskPriority    `json:"priority"`
	EstimatedDuration   float64         `json:"estimatedDuration"` // hours
	ActualDuration      *float64        `json:"actualDuration,omitempty"`
	StartTime           string          `json:"startTime,omitempty"`
	EndTime             string          `json:"endTime,omitempty"`
	Location            string          `json:"location"`
	LocationCoordinates Coordinate      `json:"locationCoordinates"`
	Progress            int             `json:"progress"` // percentage
	ProgressHistory     []ProgressEntry `json:"progressHistory"`
	TimeSpent           int             `json:"timeSpent"` // minutes
	LastUpdated         string          `json:"lastUpdated,omitempty"`
	DueDate             string          `json:"dueDate"`
	CreatedAt           string          `json:"createdAt"`

	DistanceFromOperator *float64 `json:"distanceFromOperator,omitempty"`
}

func ValidTaskStatus(s TaskStatus) bool {
	for _, st := range AllTaskStatuses {
		if st == s {
			return true
		}
	}
	return false
}

func ValidTaskPriority(p TaskPriority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}
