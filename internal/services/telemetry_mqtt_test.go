package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"siteops-backend/internal/store"
)

func TestParsePositionMessage(t *testing.T) {
	update, err := ParsePositionMessage("site/operators/3/position", []byte(`{"x":120.5,"y":80,"zone":"north"}`))
	require.NoError(t, err)
	assert.Equal(t, "operators", update.Kind)
	assert.Equal(t, 3, update.ID)
	assert.Equal(t, 120.5, update.Location.X)
	assert.Equal(t, "north", update.Location.Zone)

	_, err = ParsePositionMessage("site/cranes/3/position", []byte(`{"x":1,"y":2}`))
	assert.True(t, errors.Is(err, ErrUnknownTopic))

	_, err = ParsePositionMessage("site/machines/1/position", []byte(`{"x":1}`))
	assert.Error(t, err)

	_, err = ParsePositionMessage("site/machines/1/position", []byte(`not json`))
	assert.Error(t, err)
}

func TestTelemetryApplyUpdatesStore(t *testing.T) {
	ctx := context.Background()
	s := store.New(store.NewMemoryBackend())

	var seen []PositionUpdate
	ingest := NewTelemetryIngest(s, func(u PositionUpdate) { seen = append(seen, u) })

	_, err := ingest.Apply(ctx, "site/machines/1/position", []byte(`{"x":10,"y":20}`))
	require.NoError(t, err)

	machine, err := s.Machine(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, machine.LocationCoordinates)
	assert.Equal(t, 10.0, machine.LocationCoordinates.X)
	assert.NotEmpty(t, machine.LastLocationUpdate)

	_, err = ingest.Apply(ctx, "site/operators/999/position", []byte(`{"x":1,"y":1}`))
	assert.True(t, errors.Is(err, store.ErrNotFound))

	require.Len(t, seen, 1)
	assert.Equal(t, "machines", seen[0].Kind)
}
