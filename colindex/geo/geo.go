// Package geo holds the coordinate checks, distance units and geohash grid
// helpers shared by the geo mapper, the geo conditions and the in-memory
// engine.
package geo

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mmcloughlin/geohash"

	"github.com/colindex/colindex/colindex/errs"
)

const (
	MinLatitude  = -90.0
	MaxLatitude  = 90.0
	MinLongitude = -180.0
	MaxLongitude = 180.0

	// MaxLevels is the deepest geohash level the grid supports.
	MaxLevels = 12

	earthRadiusMeters = 6371008.7714
	metersPerDegree   = 2 * math.Pi * earthRadiusMeters / 360
)

// CheckLatitude fails when lat is outside [-90, 90]. name prefixes the
// message, for example "Latitude" or "min_latitude".
func CheckLatitude(name string, lat float64) error {
	if math.IsNaN(lat) || lat < MinLatitude || lat > MaxLatitude {
		return errs.Normalization("", "%s must be in range [%s, %s], but found '%s'",
			name, format(MinLatitude), format(MaxLatitude), format(lat))
	}
	return nil
}

// CheckLongitude fails when lon is outside [-180, 180].
func CheckLongitude(name string, lon float64) error {
	if math.IsNaN(lon) || lon < MinLongitude || lon > MaxLongitude {
		return errs.Normalization("", "%s must be in range [%s, %s], but found '%s'",
			name, format(MinLongitude), format(MaxLongitude), format(lon))
	}
	return nil
}

func format(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// Haversine returns the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	p1, p2 := radians(lat1), radians(lat2)
	dLat, dLon := radians(lat2-lat1), radians(lon2-lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(p1)*math.Cos(p2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(a)))
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

// Cell returns the geohash of a point at level.
func Cell(lat, lon float64, level int) string {
	return geohash.EncodeWithPrecision(lat, lon, uint(level))
}

// Cells returns the geohashes of a point for levels 1 through maxLevels.
func Cells(lat, lon float64, maxLevels int) []string {
	full := Cell(lat, lon, maxLevels)
	out := make([]string, 0, maxLevels)
	for i := 1; i <= len(full); i++ {
		out = append(out, full[:i])
	}
	return out
}

// CellSize returns the height and width of a cell at level, in meters
// measured at the equator.
func CellSize(level int) (height, width float64) {
	bits := 5 * level
	lonBits := (bits + 1) / 2
	latBits := bits / 2
	height = 180 / math.Exp2(float64(latBits)) * metersPerDegree
	width = 360 / math.Exp2(float64(lonBits)) * metersPerDegree
	return height, width
}

// CoveringLevel returns the deepest level, at most maxLevels, whose cells
// around latitude lat are at least radius meters in both dimensions. It
// returns 0 when even level 1 cells are too small.
func CoveringLevel(lat, radius float64, maxLevels int) int {
	edge := math.Min(MaxLatitude, math.Abs(lat)+radius/metersPerDegree)
	shrink := math.Cos(radians(edge))
	level := 0
	for l := 1; l <= maxLevels; l++ {
		h, w := CellSize(l)
		if h < radius || w*shrink < radius {
			break
		}
		level = l
	}
	return level
}

// Covering returns the cell containing the point at level plus its eight
// neighbors, which together hold every point within the level's cell size
// of the center. It returns nil when the neighborhood would cross a pole or
// the antimeridian.
func Covering(lat, lon float64, level int) []string {
	if level <= 0 {
		return nil
	}
	center := Cell(lat, lon, level)
	box := geohash.BoundingBox(center)
	h, w := box.MaxLat-box.MinLat, box.MaxLng-box.MinLng
	if box.MinLat-h < MinLatitude || box.MaxLat+h > MaxLatitude ||
		box.MinLng-w < MinLongitude || box.MaxLng+w > MaxLongitude {
		return nil
	}
	return append([]string{center}, geohash.Neighbors(center)...)
}

// Distance is a length in meters.
type Distance float64

var units = map[string]float64{
	"mm":  0.001,
	"cm":  0.01,
	"m":   1,
	"km":  1000,
	"in":  0.0254,
	"ft":  0.3048,
	"yd":  0.9144,
	"mi":  1609.344,
	"nmi": 1852,
}

// ParseDistance parses strings such as "10km", "2.5 mi" or "300" (meters).
func ParseDistance(s string) (Distance, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	i := strings.IndexFunc(s, func(r rune) bool { return (r < '0' || r > '9') && r != '.' && r != '-' && r != '+' })
	num, unit := s, "m"
	if i >= 0 {
		num, unit = strings.TrimSpace(s[:i]), strings.TrimSpace(s[i:])
	}
	factor, ok := units[unit]
	if !ok {
		return 0, errs.Normalization("", "Unparseable distance '%s': unknown unit '%s'", s, unit)
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errs.Normalization("", "Unparseable distance '%s'", s)
	}
	if f < 0 {
		return 0, errs.Normalization("", "Distance must be positive, but found '%s'", s)
	}
	return Distance(f * factor), nil
}

// Meters returns d in meters.
func (d Distance) Meters() float64 { return float64(d) }

func (d Distance) String() string {
	if d >= 1000 && math.Mod(float64(d), 1000) == 0 {
		return fmt.Sprintf("%skm", strconv.FormatFloat(float64(d)/1000, 'f', -1, 64))
	}
	return fmt.Sprintf("%sm", strconv.FormatFloat(float64(d), 'f', -1, 64))
}
