package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistanceKm(t *testing.T) {
	t.Parallel()

	t.Run("same point is zero", func(t *testing.T) {
		assert.InDelta(t, 0, DistanceKm(13.73, 51.05, 13.73, 51.05), 1e-9)
	})

	t.Run("one degree of latitude", func(t *testing.T) {
		want := EarthRadiusKm * math.Pi / 180
		assert.InDelta(t, want, DistanceKm(0, 0, 0, 1), 1e-6)
	})

	t.Run("dresden to berlin", func(t *testing.T) {
		dresden := Coordinate{Longitude: 13.73, Latitude: 51.05}
		berlin := Coordinate{Longitude: 13.40, Latitude: 52.52}
		d := dresden.DistanceTo(berlin)
		assert.Greater(t, d, 160.0)
		assert.Less(t, d, 170.0)
		assert.InDelta(t, d, berlin.DistanceTo(dresden), 1e-9)
	})

	t.Run("antipodes stay finite", func(t *testing.T) {
		d := DistanceKm(0, 0, 180, 0)
		assert.InDelta(t, EarthRadiusKm*math.Pi, d, 1e-6)
	})
}

func TestCoordinateValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, Coordinate{Longitude: 180, Latitude: -90}.Validate())
	require.Error(t, Coordinate{Longitude: 180.1, Latitude: 0}.Validate())
	require.Error(t, Coordinate{Longitude: 0, Latitude: 90.5}.Validate())
	require.Error(t, Coordinate{Longitude: math.NaN(), Latitude: 0}.Validate())
}
