package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/looplab/fsm"

	"siteops-backend/internal/metrics"
	"siteops-backend/internal/models"
	"siteops-backend/internal/store"
)

// ErrInvalidTask marks input rejected before touching the store
var ErrInvalidTask = errors.New("invalid task")

// TaskFilter mirrors the task screen filters. Operators only see tasks
// assigned to them by name.
type TaskFilter struct {
	Role     string
	UserName string
	Search   string
	Status   models.TaskStatus
	Priority models.TaskPriority
}

// TaskInput carries the editable task fields. Zero values leave the stored
// field unchanged on update.
type TaskInput struct {
	Title               string              `json:"title"`
	Description         string              `json:"description"`
	AssignedOperator    string              `json:"assignedOperator"`
	Machine             string              `json:"machine"`
	Status              models.TaskStatus   `json:"status"`
	Priority            models.TaskPriority `json:"priority"`
	EstimatedDuration   float64             `json:"estimatedDuration"`
	ActualDuration      *float64            `json:"actualDuration"`
	StartTime           string              `json:"startTime"`
	EndTime             string              `json:"endTime"`
	Location            string              `json:"location"`
	LocationCoordinates *models.Coordinate  `json:"locationCoordinates"`
	Progress            *int                `json:"progress"`
	DueDate             string              `json:"dueDate"`
}

type TaskService struct {
	store *store.Store
	now   func() time.Time
}

func NewTaskService(st *store.Store) *TaskService {
	return &TaskService{store: st, now: time.Now}
}

// SetClock overrides the time source used for history timestamps
func (s *TaskService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *TaskService) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

// FilterTasks applies role, search, status and priority filters in that order
func FilterTasks(tasks []models.Task, f TaskFilter) []models.Task {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	filtered := make([]models.Task, 0, len(tasks))

	for _, task := range tasks {
		if f.Role == string(models.RoleOperator) && task.AssignedOperator != f.UserName {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(task.Title), search) &&
			!strings.Contains(strings.ToLower(task.Description), search) &&
			!strings.Contains(strings.ToLower(task.AssignedOperator), search) &&
			!strings.Contains(strings.ToLower(task.Machine), search) {
			continue
		}
		if f.Status != "" && task.Status != f.Status {
			continue
		}
		if f.Priority != "" && task.Priority != f.Priority {
			continue
		}
		filtered = append(filtered, task)
	}
	return filtered
}

func (s *TaskService) List(ctx context.Context, f TaskFilter) ([]models.Task, error) {
	tasks, err := s.store.Tasks(ctx)
	if err != nil {
		return nil, err
	}
	return FilterTasks(tasks, f), nil
}

func (s *TaskService) Get(ctx context.Context, id int) (*models.Task, error) {
	tasks, err := s.store.Tasks(ctx)
	if err != nil {
		return nil, err
	}
	for i := range tasks {
		if tasks[i].ID == id {
			return &tasks[i], nil
		}
	}
	return nil, fmt.Errorf("task %d: %w", id, store.ErrNotFound)
}

// Create appends a task with id max(id)+1 and a "created" history entry
func (s *TaskService) Create(ctx context.Context, in TaskInput, user string) (*models.Task, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidTask)
	}
	if in.Status == "" {
		in.Status = models.TaskPending
	}
	if in.Priority == "" {
		in.Priority = models.PriorityMedium
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	coords, err := s.resolveCoordinates(ctx, in)
	if err != nil {
		return nil, err
	}

	var created *models.Task
	err = s.store.UpdateTasks(ctx, func(tasks []models.Task) ([]models.Task, error) {
		now := s.timestamp()
		nextID := 1
		for _, t := range tasks {
			if t.ID >= nextID {
				nextID = t.ID + 1
			}
		}

		task := models.Task{
			ID:                  nextID,
			Title:               in.Title,
			Description:         in.Description,
			AssignedOperator:    in.AssignedOperator,
			Machine:             in.Machine,
			Status:              in.Status,
			Priority:            in.Priority,
			EstimatedDuration:   in.EstimatedDuration,
			ActualDuration:      in.ActualDuration,
			StartTime:           in.StartTime,
			EndTime:             in.EndTime,
			Location:            in.Location,
			LocationCoordinates: coords,
			DueDate:             in.DueDate,
			CreatedAt:           now,
			LastUpdated:         now,
			ProgressHistory: []models.ProgressEntry{{
				Timestamp: now,
				User:      user,
				Action:    models.ActionCreated,
				Notes:     "Task created",
			}},
		}
		if in.Progress != nil {
			task.Progress = clampProgress(*in.Progress)
		}

		created = &task
		return append(tasks, task), nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Task #%d created: %s", created.ID, created.Title)
	return created, nil
}

// Update merges the non-zero input fields into the task
func (s *TaskService) Update(ctx context.Context, id int, in TaskInput, user string) (*models.Task, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	var coords *models.Coordinate
	if in.LocationCoordinates != nil || in.Location != "" {
		c, err := s.resolveCoordinates(ctx, in)
		if err != nil {
			return nil, err
		}
		coords = &c
	}

	return s.mutate(ctx, id, func(task *models.Task) error {
		if in.Title != "" {
			task.Title = in.Title
		}
		if in.Description != "" {
			task.Description = in.Description
		}
		if in.AssignedOperator != "" {
			task.AssignedOperator = in.AssignedOperator
		}
		if in.Machine != "" {
			task.Machine = in.Machine
		}
		if in.Status != "" {
			task.Status = in.Status
		}
		if in.Priority != "" {
			task.Priority = in.Priority
		}
		if in.EstimatedDuration > 0 {
			task.EstimatedDuration = in.EstimatedDuration
		}
		if in.ActualDuration != nil {
			task.ActualDuration = in.ActualDuration
		}
		if in.StartTime != "" {
			task.StartTime = in.StartTime
		}
		if in.EndTime != "" {
			task.EndTime = in.EndTime
		}
		if in.Location != "" {
			task.Location = in.Location
		}
		if coords != nil {
			task.LocationCoordinates = *coords
		}
		if in.Progress != nil {
			task.Progress = clampProgress(*in.Progress)
		}
		if in.DueDate != "" {
			task.DueDate = in.DueDate
		}

		task.ProgressHistory = append(task.ProgressHistory, models.ProgressEntry{
			Timestamp: s.timestamp(),
			User:      user,
			Action:    models.ActionUpdated,
			Notes:     "Task details updated",
		})
		return nil
	})
}

func (s *TaskService) Delete(ctx context.Context, id int) error {
	return s.store.UpdateTasks(ctx, func(tasks []models.Task) ([]models.Task, error) {
		for i := range tasks {
			if tasks[i].ID == id {
				return append(tasks[:i], tasks[i+1:]...), nil
			}
		}
		return nil, fmt.Errorf("task %d: %w", id, store.ErrNotFound)
	})
}

// ChangeStatus moves a task to any status. done forces progress to 100,
// in-progress raises it to at least 10. Leaving in-progress adds the minutes
// since the task last entered in-progress to timeSpent.
func (s *TaskService) ChangeStatus(ctx context.Context, id int, status models.TaskStatus, user string) (*models.Task, error) {
	if !models.ValidTaskStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTask, status)
	}

	var from models.TaskStatus
	task, err := s.mutate(ctx, id, func(task *models.Task) error {
		from = task.Status
		now := s.now()

		machine := newTaskStatusMachine(task.Status, now)
		if err := machine.Event(ctx, statusEvent(status), task); err != nil {
			var noTransition fsm.NoTransitionError
			if !errors.As(err, &noTransition) {
				return fmt.Errorf("status transition failed: %w", err)
			}
		}

		task.Status = models.TaskStatus(machine.Current())
		task.Progress = progressForStatus(task.Status, task.Progress)

		progress := task.Progress
		task.ProgressHistory = append(task.ProgressHistory, models.ProgressEntry{
			Timestamp: now.UTC().Format(time.RFC3339),
			Progress:  &progress,
			Status:    task.Status,
			User:      user,
			Action:    models.ActionStatusChange,
			Notes:     fmt.Sprintf("Status changed to %s", task.Status),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordTaskTransition(string(from), string(status))
	log.Printf("🔄 Task #%d status: %s → %s (progress %d%%, %d min logged)", id, from, status, task.Progress, task.TimeSpent)
	return task, nil
}

// Reassign hands the task to another operator by name
func (s *TaskService) Reassign(ctx context.Context, id int, operator, user string) (*models.Task, error) {
	if strings.TrimSpace(operator) == "" {
		return nil, fmt.Errorf("%w: operator is required", ErrInvalidTask)
	}

	return s.mutate(ctx, id, func(task *models.Task) error {
		task.AssignedOperator = operator
		task.ProgressHistory = append(task.ProgressHistory, models.ProgressEntry{
			Timestamp: s.timestamp(),
			User:      user,
			Action:    models.ActionReassigned,
			Notes:     fmt.Sprintf("Task reassigned to %s", operator),
		})
		return nil
	})
}

// UpdateProgress records a progress report. Progress is clamped to 0-100.
func (s *TaskService) UpdateProgress(ctx context.Context, id, progress int, notes, user string) (*models.Task, error) {
	progress = clampProgress(progress)
	if notes == "" {
		notes = fmt.Sprintf("Progress updated to %d%%", progress)
	}

	return s.mutate(ctx, id, func(task *models.Task) error {
		task.Progress = progress
		p := progress
		task.ProgressHistory = append(task.ProgressHistory, models.ProgressEntry{
			Timestamp: s.timestamp(),
			Progress:  &p,
			Status:    task.Status,
			UpdatedBy: user,
			User:      user,
			Action:    models.ActionProgressUpdate,
			Notes:     notes,
		})
		return nil
	})
}

// mutate applies fn to one task inside a whole-collection rewrite and stamps lastUpdated
func (s *TaskService) mutate(ctx context.Context, id int, fn func(*models.Task) error) (*models.Task, error) {
	var updated *models.Task
	err := s.store.UpdateTasks(ctx, func(tasks []models.Task) ([]models.Task, error) {
		for i := range tasks {
			if tasks[i].ID != id {
				continue
			}
			if err := fn(&tasks[i]); err != nil {
				return nil, err
			}
			tasks[i].LastUpdated = s.timestamp()
			t := tasks[i]
			updated = &t
			return tasks, nil
		}
		return nil, fmt.Errorf("task %d: %w", id, store.ErrNotFound)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// resolveCoordinates prefers explicit coordinates, then a named site location
func (s *TaskService) resolveCoordinates(ctx context.Context, in TaskInput) (models.Coordinate, error) {
	if in.LocationCoordinates != nil {
		return *in.LocationCoordinates, nil
	}
	if in.Location == "" {
		return models.Coordinate{}, nil
	}

	locations, err := s.store.SiteLocations(ctx)
	if err != nil {
		return models.Coordinate{}, err
	}
	for _, loc := range locations {
		if loc.Name == in.Location {
			return loc.Coordinates, nil
		}
	}
	return models.Coordinate{}, fmt.Errorf("%w: unknown location %q", ErrInvalidTask, in.Location)
}

func validateInput(in TaskInput) error {
	if in.Status != "" && !models.ValidTaskStatus(in.Status) {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTask, in.Status)
	}
	if in.Priority != "" && !models.ValidTaskPriority(in.Priority) {
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidTask, in.Priority)
	}
	if in.EstimatedDuration < 0 {
		return fmt.Errorf("%w: estimatedDuration must not be negative", ErrInvalidTask)
	}
	return nil
}

func clampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

func progressForStatus(status models.TaskStatus, current int) int {
	switch status {
	case models.TaskDone:
		return 100
	case models.TaskInProgress:
		return max(current, 10)
	}
	return current
}

func statusEvent(status models.TaskStatus) string {
	return "to_" + string(status)
}

// newTaskStatusMachine builds a machine where every status reaches every other
func newTaskStatusMachine(current models.TaskStatus, now time.Time) *fsm.FSM {
	all := make([]string, len(models.AllTaskStatuses))
	for i, st := range models.AllTaskStatuses {
		all[i] = string(st)
	}

	events := make(fsm.Events, 0, len(all))
	for _, st := range models.AllTaskStatuses {
		events = append(events, fsm.EventDesc{Name: statusEvent(st), Src: all, Dst: string(st)})
	}

	return fsm.NewFSM(
		string(current),
		events,
		fsm.Callbacks{
			"leave_" + string(models.TaskInProgress): func(_ context.Context, e *fsm.Event) {
				if len(e.Args) == 0 {
					return
				}
				if task, ok := e.Args[0].(*models.Task); ok {
					task.TimeSpent += minutesSinceStarted(task.ProgressHistory, now)
				}
			},
		},
	)
}

// minutesSinceStarted finds the latest status change into in-progress and
// returns the rounded minutes elapsed since it
func minutesSinceStarted(history []models.ProgressEntry, now time.Time) int {
	for i := len(history) - 1; i >= 0; i-- {
		entry := history[i]
		if entry.Action != models.ActionStatusChange || !strings.Contains(entry.Notes, string(models.TaskInProgress)) {
			continue
		}
		started, err := time.Parse(time.RFC3339, entry.Timestamp)
		if err != nil {
			return 0
		}
		minutes := int(math.Round(now.Sub(started).Minutes()))
		if minutes < 0 {
			return 0
		}
		return minutes
	}
	return 0
}
