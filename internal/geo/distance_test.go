package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"siteops-backend/internal/models"
)

func TestDistanceIsSymmetric(t *testing.T) {
	points := []models.Coordinate{
		{X: 0, Y: 0},
		{X: 100, Y: 205},
		{X: 350, Y: 250, Zone: "east"},
		{X: -12.5, Y: 7.25},
	}
	for _, a := range points {
		for _, b := range points {
			assert.Equal(t, Distance(a, b), Distance(b, a))
		}
		assert.Zero(t, Distance(a, a))
	}
}

func TestDistanceKnownValues(t *testing.T) {
	assert.InDelta(t, 5.0, Distance(models.Coordinate{X: 100, Y: 205}, models.Coordinate{X: 100, Y: 200}), 1e-9)
	assert.InDelta(t, 5.0, Distance(models.Coordinate{X: 0, Y: 0}, models.Coordinate{X: 3, Y: 4}), 1e-9)
}

func TestDistanceIgnoresZone(t *testing.T) {
	a := models.Coordinate{X: 10, Y: 10, Zone: "north"}
	b := models.Coordinate{X: 10, Y: 10, Zone: "south"}
	assert.Zero(t, Distance(a, b))
}

func TestWithinIsStrict(t *testing.T) {
	center := models.Coordinate{X: 100, Y: 200}
	assert.True(t, Within(models.Coordinate{X: 100, Y: 214.9}, center, 15))
	assert.False(t, Within(models.Coordinate{X: 100, Y: 215}, center, 15))
}
