package geo

import (
	"math"

	"siteops-backend/internal/models"
)

// Distance returns the straight-line distance between two site coordinates
// in map units (meters).
func Distance(a, b models.Coordinate) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Within reports whether p lies strictly inside the circle of the given radius.
func Within(p, center models.Coordinate, radius float64) bool {
	return Distance(p, center) < radius
}
