package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colindex/colindex/colindex/errs"
)

func TestParseDistance(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"300", 300},
		{"1m", 1},
		{"10km", 10000},
		{"2.5 mi", 4023.36},
		{"3yd", 2.7432},
		{"5ft", 1.524},
		{"4in", 0.1016},
		{"7cm", 0.07},
		{"9mm", 0.009},
		{"2nmi", 3704},
		{" 1.5 KM ", 1500},
		{"0", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, err := ParseDistance(tt.in)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, d.Meters(), 1e-9)
		})
	}
}

func TestParseDistanceErrors(t *testing.T) {
	tests := []struct {
		in      string
		message string
	}{
		{"-5km", "Distance must be positive"},
		{"-1", "Distance must be positive"},
		{"5furlongs", "unknown unit 'furlongs'"},
		{"10 parsecs", "unknown unit 'parsecs'"},
		{"", "Unparseable distance"},
		{"km", "Unparseable distance"},
		{"1.2.3m", "Unparseable distance"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := ParseDistance(tt.in)
			require.Error(t, err)
			assert.True(t, errs.IsKind(err, errs.ErrNormalization), "%v", err)
			assert.ErrorContains(t, err, tt.message)
		})
	}
}

func TestDistanceString(t *testing.T) {
	assert.Equal(t, "10km", Distance(10000).String())
	assert.Equal(t, "1500m", Distance(1500).String())
	assert.Equal(t, "0.5m", Distance(0.5).String())
}

func TestCheckCoordinates(t *testing.T) {
	assert.NoError(t, CheckLatitude("Latitude", 90))
	assert.NoError(t, CheckLatitude("Latitude", -90))
	assert.NoError(t, CheckLongitude("Longitude", 180))
	assert.NoError(t, CheckLongitude("Longitude", -180))

	err := CheckLatitude("Latitude", 91)
	assert.True(t, errs.IsKind(err, errs.ErrNormalization))
	assert.ErrorContains(t, err, "Latitude must be in range [-90.0, 90.0], but found '91.0'")

	err = CheckLongitude("max_longitude", -180.5)
	assert.ErrorContains(t, err, "max_longitude must be in range [-180.0, 180.0], but found '-180.5'")

	assert.Error(t, CheckLatitude("Latitude", math.NaN()))
	assert.Error(t, CheckLongitude("Longitude", math.NaN()))
}

func TestHaversine(t *testing.T) {
	assert.Zero(t, Haversine(40.4, -3.7, 40.4, -3.7))

	// One degree along the equator.
	assert.InDelta(t, metersPerDegree, Haversine(0, 0, 0, 1), 1e-3)
	assert.InDelta(t, math.Pi*earthRadiusMeters, Haversine(0, 0, 0, 180), 1e-3)

	// Paris to London is about 343.5km.
	d := Haversine(48.8566, 2.3522, 51.5074, -0.1278)
	assert.InDelta(t, 343500, d, 1000)
	assert.InDelta(t, d, Haversine(51.5074, -0.1278, 48.8566, 2.3522), 1e-6)
}

func TestCells(t *testing.T) {
	cells := Cells(48.8566, 2.3522, 6)
	require.Len(t, cells, 6)
	for i, c := range cells {
		assert.Len(t, c, i+1)
		assert.Equal(t, Cell(48.8566, 2.3522, i+1), c)
	}
}

func TestCoveringLevel(t *testing.T) {
	// Level 5 cells are about 4.9km a side at the equator, level 6 about 610m tall.
	assert.Equal(t, 5, CoveringLevel(0, 1000, MaxLevels))
	assert.Equal(t, 4, CoveringLevel(0, 0.001, 4))
	assert.Equal(t, MaxLevels, CoveringLevel(0, 0.001, MaxLevels))

	// Cells shrink towards the poles until none is wide enough.
	assert.Less(t, CoveringLevel(80, 1000, MaxLevels), 5)
	assert.Equal(t, 0, CoveringLevel(89.99, 1000, MaxLevels))
	assert.Equal(t, 0, CoveringLevel(-90, 1000, MaxLevels))

	// Larger than a level 1 cell.
	assert.Equal(t, 0, CoveringLevel(0, 1e7, MaxLevels))
}

func TestCovering(t *testing.T) {
	cells := Covering(48.8566, 2.3522, 5)
	require.Len(t, cells, 9)
	assert.Equal(t, Cell(48.8566, 2.3522, 5), cells[0])
	set := make(map[string]bool)
	for _, c := range cells {
		assert.Len(t, c, 5)
		set[c] = true
	}
	assert.Len(t, set, 9)

	assert.Nil(t, Covering(48.8566, 2.3522, 0))

	// Neighborhoods crossing a pole or the antimeridian are not covered.
	assert.Nil(t, Covering(89.99, 0, 5))
	assert.Nil(t, Covering(-89.99, 0, 5))
	assert.Nil(t, Covering(0, 179.99, 5))
	assert.Nil(t, Covering(0, -179.99, 5))
}
