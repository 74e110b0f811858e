package services

import (
	"context"
	"math"
	"sort"
	"time"

	"siteops-backend/internal/models"
)

// ProgressBucket counts tasks whose progress falls in [Min, Max]. Bucket
// edges overlap, so a task at 25% lands in both of the first two buckets.
type ProgressBucket struct {
	Range      string `json:"range"`
	Min        int    `json:"min"`
	Max        int    `json:"max"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
}

type TaskAnalytics struct {
	TotalTasks       int              `json:"totalTasks"`
	CompletedTasks   int              `json:"completedTasks"`
	TotalHoursLogged int              `json:"totalHoursLogged"`
	AvgTaskDuration  float64          `json:"avgTaskDuration"`
	OverdueTasks     int              `json:"overdueTasks"`
	ActiveOperators  int              `json:"activeOperators"`
	ActiveMachines   int              `json:"activeMachines"`
	ProgressBuckets  []ProgressBucket `json:"progressDistribution"`
	RecentUpdates    []RecentUpdate   `json:"recentUpdates"`
}

// RecentUpdate is one progress history entry tagged with its task
type RecentUpdate struct {
	TaskID    int    `json:"taskId"`
	TaskTitle string `json:"taskTitle"`
	models.ProgressEntry
}

const recentUpdateLimit = 10

// parseDueDate accepts full timestamps and bare dates
func parseDueDate(s string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// SummarizeTasks computes the progress dashboard figures for a task list
func SummarizeTasks(tasks []models.Task, now time.Time) TaskAnalytics {
	a := TaskAnalytics{TotalTasks: len(tasks), RecentUpdates: []RecentUpdate{}}

	var minutes int
	var durationSum float64
	for _, t := range tasks {
		minutes += t.TimeSpent
		if t.Status == models.TaskDone {
			a.CompletedTasks++
			if t.ActualDuration != nil {
				durationSum += *t.ActualDuration
			}
			continue
		}
		if due, ok := parseDueDate(t.DueDate); ok && now.After(due) {
			a.OverdueTasks++
		}
	}

	a.TotalHoursLogged = int(math.Round(float64(minutes) / 60))
	if a.CompletedTasks > 0 {
		a.AvgTaskDuration = math.Round(durationSum/float64(a.CompletedTasks)*10) / 10
	}

	for i, label := range []string{"0-25%", "26-50%", "51-75%", "76-100%"} {
		b := ProgressBucket{Range: label, Min: i * 25, Max: (i + 1) * 25}
		for _, t := range tasks {
			if t.Progress >= b.Min && t.Progress <= b.Max {
				b.Count++
			}
		}
		if len(tasks) > 0 {
			b.Percentage = int(math.Round(float64(b.Count) / float64(len(tasks)) * 100))
		}
		a.ProgressBuckets = append(a.ProgressBuckets, b)
	}

	// newest first across all tasks
	for _, t := range tasks {
		for i := len(t.ProgressHistory) - 1; i >= 0; i-- {
			a.RecentUpdates = append(a.RecentUpdates, RecentUpdate{TaskID: t.ID, TaskTitle: t.Title, ProgressEntry: t.ProgressHistory[i]})
		}
	}
	sortUpdatesNewestFirst(a.RecentUpdates)
	if len(a.RecentUpdates) > recentUpdateLimit {
		a.RecentUpdates = a.RecentUpdates[:recentUpdateLimit]
	}
	return a
}

func sortUpdatesNewestFirst(updates []RecentUpdate) {
	sort.SliceStable(updates, func(i, j int) bool {
		return updates[i].Timestamp > updates[j].Timestamp
	})
}

// Analytics summarizes the stored tasks plus active operator and machine counts
func (s *TaskService) Analytics(ctx context.Context) (*TaskAnalytics, error) {
	tasks, err := s.store.Tasks(ctx)
	if err != nil {
		return nil, err
	}
	operators, err := s.store.Operators(ctx)
	if err != nil {
		return nil, err
	}
	machines, err := s.store.Machines(ctx)
	if err != nil {
		return nil, err
	}

	a := SummarizeTasks(tasks, s.now())
	for _, op := range operators {
		if op.Status == models.OperatorActive {
			a.ActiveOperators++
		}
	}
	for _, m := range machines {
		if m.Status == models.MachineActive {
			a.ActiveMachines++
		}
	}
	return &a, nil
}
