package services

import (
	"log"
	"math"
	"sort"

	"siteops-backend/internal/geo"
	"siteops-backend/internal/models"
)

// DefaultNearbyTaskLimit is the prefix size shown on the machines screen
const DefaultNearbyTaskLimit = 5

// TaskPrioritizer orders tasks by straight-line distance from an operator
type TaskPrioritizer struct{}

func NewTaskPrioritizer() *TaskPrioritizer {
	return &TaskPrioritizer{}
}

// ByDistance annotates every task with distanceFromOperator and returns a new
// slice sorted ascending by it. Ties keep their input order. The input slice
// is not modified.
func (tp *TaskPrioritizer) ByDistance(tasks []models.Task, origin models.Coordinate) []models.Task {
	sorted := make([]models.Task, len(tasks))
	copy(sorted, tasks)

	for i := range sorted {
		d := geo.Distance(origin, sorted[i].LocationCoordinates)
		sorted[i].DistanceFromOperator = &d
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		return *sorted[i].DistanceFromOperator < *sorted[j].DistanceFromOperator
	})
	return sorted
}

// Nearest returns at most n tasks closest to origin. n <= 0 returns all.
func (tp *TaskPrioritizer) Nearest(tasks []models.Task, origin models.Coordinate, n int) []models.Task {
	sorted := tp.ByDistance(tasks, origin)
	if n > 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// VisitOrder plans a walking route through tasks using nearest neighbour:
// from the current point always go to the closest remaining task. Each
// task's distanceFromOperator holds the leg length from the previous stop.
func (tp *TaskPrioritizer) VisitOrder(tasks []models.Task, start models.Coordinate) ([]models.Task, float64) {
	if len(tasks) == 0 {
		return []models.Task{}, 0
	}

	log.Printf("🎯 Planning task route from (%.1f, %.1f) through %d tasks", start.X, start.Y, len(tasks))

	ordered := make([]models.Task, 0, len(tasks))
	remaining := make([]models.Task, len(tasks))
	copy(remaining, tasks)

	current := start
	total := 0.0

	for len(remaining) > 0 {
		bestIdx := 0
		bestDistance := math.MaxFloat64

		for i, task := range remaining {
			d := geo.Distance(current, task.LocationCoordinates)
			if d < bestDistance {
				bestDistance = d
				bestIdx = i
			}
		}

		best := remaining[bestIdx]
		leg := bestDistance
		best.DistanceFromOperator = &leg
		ordered = append(ordered, best)
		total += bestDistance

		current = best.LocationCoordinates
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	log.Printf("✅ Task route planned: %d stops, %.1f m total", len(ordered), total)
	return ordered, total
}
