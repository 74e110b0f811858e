package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"siteops-backend/internal/models"
	"siteops-backend/internal/store"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTaskService(t *testing.T) (*TaskService, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)}
	st := store.New(store.NewMemoryBackend())
	st.SetClock(clock.now)
	svc := NewTaskService(st)
	svc.SetClock(clock.now)
	return svc, clock
}

func TestCreateAssignsNextID(t *testing.T) {
	svc, _ := newTaskService(t)
	ctx := context.Background()

	task, err := svc.Create(ctx, TaskInput{Title: "Trench drainage", Location: "Loading Dock"}, "Lisa Chen")
	require.NoError(t, err)

	assert.Equal(t, 5, task.ID)
	assert.Equal(t, models.TaskPending, task.Status)
	assert.Equal(t, models.PriorityMedium, task.Priority)
	assert.Equal(t, models.Coordinate{X: 75, Y: 300, Zone: "west"}, task.LocationCoordinates)
	require.Len(t, task.ProgressHistory, 1)
	assert.Equal(t, models.ActionCreated, task.ProgressHistory[0].Action)
	assert.Equal(t, 0, task.TimeSpent)

	tasks, err := svc.List(ctx, TaskFilter{})
	require.NoError(t, err)
	assert.Len(t, tasks, 5)
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTaskService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, TaskInput{}, "x")
	assert.True(t, errors.Is(err, ErrInvalidTask))

	_, err = svc.Create(ctx, TaskInput{Title: "a", Status: "archived"}, "x")
	assert.True(t, errors.Is(err, ErrInvalidTask))

	_, err = svc.Create(ctx, TaskInput{Title: "a", Location: "Nowhere"}, "x")
	assert.True(t, errors.Is(err, ErrInvalidTask))
}

func TestChangeStatusProgressRules(t *testing.T) {
	svc, _ := newTaskService(t)
	ctx := context.Background()

	// Task 2 is pending at 0%
	task, err := svc.ChangeStatus(ctx, 2, models.TaskInProgress, "Sarah Johnson")
	require.NoError(t, err)
	assert.Equal(t, models.TaskInProgress, task.Status)
	assert.Equal(t, 10, task.Progress)

	last := task.ProgressHistory[len(task.ProgressHistory)-1]
	assert.Equal(t, models.ActionStatusChange, last.Action)
	assert.Equal(t, "Status changed to in-progress", last.Notes)

	task, err = svc.ChangeStatus(ctx, 2, models.TaskBlocked, "Sarah Johnson")
	require.NoError(t, err)
	assert.Equal(t, 10, task.Progress)

	task, err = svc.ChangeStatus(ctx, 2, models.TaskDone, "Sarah Johnson")
	require.NoError(t, err)
	assert.Equal(t, 100, task.Progress)

	// Task 1 is already in progress at 75%
	task, err = svc.ChangeStatus(ctx, 1, models.TaskInProgress, "John Smith")
	require.NoError(t, err)
	assert.Equal(t, 75, task.Progress)
	assert.Equal(t, models.TaskInProgress, task.Status)
}

func TestChangeStatusAccumulatesTimeSpent(t *testing.T) {
	svc, clock := newTaskService(t)
	ctx := context.Background()

	_, err := svc.ChangeStatus(ctx, 3, models.TaskInProgress, "Mike Wilson")
	require.NoError(t, err)

	clock.t = clock.t.Add(42*time.Minute + 20*time.Second)
	task, err := svc.ChangeStatus(ctx, 3, models.TaskBlocked, "Mike Wilson")
	require.NoError(t, err)
	assert.Equal(t, 42, task.TimeSpent)

	_, err = svc.ChangeStatus(ctx, 3, models.TaskInProgress, "Mike Wilson")
	require.NoError(t, err)
	clock.t = clock.t.Add(18 * time.Minute)
	task, err = svc.ChangeStatus(ctx, 3, models.TaskDone, "Mike Wilson")
	require.NoError(t, err)
	assert.Equal(t, 60, task.TimeSpent)
}

func TestLeavingInProgressWithoutHistoryAddsNothing(t *testing.T) {
	svc, clock := newTaskService(t)
	ctx := context.Background()

	// Seed task 1 has 360 minutes logged and no status_change entry
	clock.t = clock.t.Add(time.Hour)
	task, err := svc.ChangeStatus(ctx, 1, models.TaskDone, "John Smith")
	require.NoError(t, err)
	assert.Equal(t, 360, task.TimeSpent)
}

func TestChangeStatusRejectsUnknown(t *testing.T) {
	svc, _ := newTaskService(t)
	_, err := svc.ChangeStatus(context.Background(), 1, "cancelled", "x")
	assert.True(t, errors.Is(err, ErrInvalidTask))

	_, err = svc.ChangeStatus(context.Background(), 99, models.TaskDone, "x")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestReassignAndProgress(t *testing.T) {
	svc, _ := newTaskService(t)
	ctx := context.Background()

	task, err := svc.Reassign(ctx, 4, "Mike Wilson", "Lisa Chen")
	require.NoError(t, err)
	assert.Equal(t, "Mike Wilson", task.AssignedOperator)
	assert.Equal(t, "Task reassigned to Mike Wilson", task.ProgressHistory[len(task.ProgressHistory)-1].Notes)

	task, err = svc.UpdateProgress(ctx, 4, 140, "", "Mike Wilson")
	require.NoError(t, err)
	assert.Equal(t, 100, task.Progress)
	last := task.ProgressHistory[len(task.ProgressHistory)-1]
	assert.Equal(t, models.ActionProgressUpdate, last.Action)
	assert.Equal(t, "Progress updated to 100%", last.Notes)

	_, err = svc.Reassign(ctx, 4, " ", "Lisa Chen")
	assert.True(t, errors.Is(err, ErrInvalidTask))
}

func TestUpdateMergesFields(t *testing.T) {
	svc, _ := newTaskService(t)
	ctx := context.Background()

	task, err := svc.Update(ctx, 2, TaskInput{Priority: models.PriorityHigh, Location: "Construction Zone C"}, "Lisa Chen")
	require.NoError(t, err)
	assert.Equal(t, "Level Ground Zone B", task.Title)
	assert.Equal(t, models.PriorityHigh, task.Priority)
	assert.Equal(t, 250.0, task.LocationCoordinates.X)
	assert.Equal(t, models.ActionUpdated, task.ProgressHistory[len(task.ProgressHistory)-1].Action)
}

func TestDelete(t *testing.T) {
	svc, _ := newTaskService(t)
	ctx := context.Background()

	require.NoError(t, svc.Delete(ctx, 2))
	_, err := svc.Get(ctx, 2)
	assert.True(t, errors.Is(err, store.ErrNotFound))
	assert.True(t, errors.Is(svc.Delete(ctx, 2), store.ErrNotFound))

	// Ids are never reused below the current max
	task, err := svc.Create(ctx, TaskInput{Title: "Next"}, "x")
	require.NoError(t, err)
	assert.Equal(t, 5, task.ID)
}

func TestFilterTasks(t *testing.T) {
	tasks := store.DefaultTasks(time.Now())

	mine := FilterTasks(tasks, TaskFilter{Role: "operator", UserName: "Mike Wilson"})
	require.Len(t, mine, 1)
	assert.Equal(t, 3, mine[0].ID)

	// Supervisors see everything
	assert.Len(t, FilterTasks(tasks, TaskFilter{Role: "supervisor", UserName: "Lisa Chen"}), 4)

	bySearch := FilterTasks(tasks, TaskFilter{Search: "LOADER"})
	assert.Len(t, bySearch, 2)

	byStatus := FilterTasks(tasks, TaskFilter{Status: models.TaskPending, Priority: models.PriorityHigh})
	require.Len(t, byStatus, 1)
	assert.Equal(t, 3, byStatus[0].ID)
}
