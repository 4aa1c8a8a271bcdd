package mapping

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/colindex/colindex/colindex/errs"
	"github.com/colindex/colindex/colindex/geo"
)

// DefaultMaxLevels is the geohash depth of a geo_point mapper with no
// max_levels option.
const DefaultMaxLevels = 11

// Sub-field suffixes of the geo_point representations.
const (
	GeoDistSuffix    = ".dist"
	GeoLatSuffix     = ".lat"
	GeoLonSuffix     = ".lon"
	GeoBBoxLatSuffix = ".bbox.lat"
	GeoBBoxLonSuffix = ".bbox.lon"
)

// GeoPointOptions configures a geo_point mapper.
type GeoPointOptions struct {
	Latitude  string
	Longitude string
	MaxLevels *int
}

// GeoPointMapper maps a latitude column and a longitude column to two
// representations of the same point: geohash cells for distance searches
// and double points for bounding box searches.
type GeoPointMapper struct {
	name      string
	latitude  string
	longitude string
	maxLevels int
	types     []NativeType
}

func NewGeoPointMapper(name string, opts GeoPointOptions) (*GeoPointMapper, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errs.Configuration("%s mapper requires a name", KindGeoPoint)
	}
	if strings.TrimSpace(opts.Latitude) == "" {
		return nil, errs.Configuration("latitude column name is required")
	}
	if strings.TrimSpace(opts.Longitude) == "" {
		return nil, errs.Configuration("longitude column name is required")
	}
	m := &GeoPointMapper{
		name:      name,
		latitude:  opts.Latitude,
		longitude: opts.Longitude,
		maxLevels: DefaultMaxLevels,
		types:     typeSet(textTypes, decimalTypes, []NativeType{NativeInt, NativeBigint, NativeVarint}),
	}
	if opts.MaxLevels != nil {
		if *opts.MaxLevels < 1 || *opts.MaxLevels > geo.MaxLevels {
			return nil, errs.Configuration("max_levels must be in range [1, %d], but found %d", geo.MaxLevels, *opts.MaxLevels)
		}
		m.maxLevels = *opts.MaxLevels
	}
	return m, nil
}

func (*GeoPointMapper) isMapper() {}

func (m *GeoPointMapper) Name() string      { return m.name }
func (m *GeoPointMapper) Kind() Kind        { return KindGeoPoint }
func (m *GeoPointMapper) Indexed() bool     { return true }
func (m *GeoPointMapper) Sorted() bool      { return false }
func (m *GeoPointMapper) Latitude() string  { return m.latitude }
func (m *GeoPointMapper) Longitude() string { return m.longitude }
func (m *GeoPointMapper) MaxLevels() int    { return m.maxLevels }
func (m *GeoPointMapper) Columns() []string { return []string{m.latitude, m.longitude} }

func (m *GeoPointMapper) Supports(t NativeType) bool {
	return t == "" || slices.Contains(m.types, t)
}

// Normalize validates one coordinate column value.
func (m *GeoPointMapper) Normalize(column string, v any) (any, error) {
	switch column {
	case m.latitude:
		return m.readLatitude(v)
	case m.longitude:
		return m.readLongitude(v)
	}
	return nil, errs.Normalization(m.name, "Mapper '%s' does not read column '%s'", m.name, column)
}

func (m *GeoPointMapper) readLatitude(v any) (float64, error) {
	f, ok := toDouble(v)
	if !ok {
		return 0, errs.Normalization(m.name, "Unparseable latitude '%s'", display(v))
	}
	if err := geo.CheckLatitude("Latitude", f); err != nil {
		return 0, withField(err, m.name)
	}
	return f, nil
}

func (m *GeoPointMapper) readLongitude(v any) (float64, error) {
	f, ok := toDouble(v)
	if !ok {
		return 0, errs.Normalization(m.name, "Unparseable longitude '%s'", display(v))
	}
	if err := geo.CheckLongitude("Longitude", f); err != nil {
		return 0, withField(err, m.name)
	}
	return f, nil
}

// Point reads the coordinates of a row. ok is false when the row has
// neither coordinate.
func (m *GeoPointMapper) Point(row Columns) (lat, lon float64, ok bool, err error) {
	latCol, hasLat := row.Get(m.latitude)
	lonCol, hasLon := row.Get(m.longitude)
	hasLat = hasLat && latCol.Value != nil
	hasLon = hasLon && lonCol.Value != nil
	switch {
	case !hasLat && !hasLon:
		return 0, 0, false, nil
	case !hasLat:
		return 0, 0, false, errs.Normalization(m.name, "Latitude column required if there is a longitude")
	case !hasLon:
		return 0, 0, false, errs.Normalization(m.name, "Longitude column required if there is a latitude")
	}
	for _, col := range []Column{latCol, lonCol} {
		if !m.Supports(col.Type) {
			return 0, 0, false, unsupportedType(m.name, col)
		}
	}
	if lat, err = m.readLatitude(latCol.Value); err != nil {
		return 0, 0, false, err
	}
	if lon, err = m.readLongitude(lonCol.Value); err != nil {
		return 0, 0, false, err
	}
	return lat, lon, true, nil
}

// Representations returns the distance and bounding box representations of
// a row's point separately.
func (m *GeoPointMapper) Representations(row Columns) (dist, bbox []Field, err error) {
	lat, lon, ok, err := m.Point(row)
	if err != nil || !ok {
		return nil, nil, err
	}
	for _, cell := range geo.Cells(lat, lon, m.maxLevels) {
		dist = append(dist, Field{Name: m.name + GeoDistSuffix, Value: StringOf(cell), Indexed: true})
	}
	dist = append(dist,
		Field{Name: m.name + GeoLatSuffix, Value: DoubleOf(lat), Sorted: true},
		Field{Name: m.name + GeoLonSuffix, Value: DoubleOf(lon), Sorted: true},
	)
	bbox = []Field{
		{Name: m.name + GeoBBoxLatSuffix, Value: DoubleOf(lat), Indexed: true},
		{Name: m.name + GeoBBoxLonSuffix, Value: DoubleOf(lon), Indexed: true},
	}
	return dist, bbox, nil
}

func (m *GeoPointMapper) Fields(row Columns) ([]Field, error) {
	dist, bbox, err := m.Representations(row)
	if err != nil {
		return nil, err
	}
	return append(dist, bbox...), nil
}

func (m *GeoPointMapper) SortField(bool) (SortField, error) {
	return SortField{}, errs.Unsupported(m.name, "GeoPoint mapper '%s' does not support sorting", m.name)
}

func (m *GeoPointMapper) String() string {
	return fmt.Sprintf("GeoPointMapper{field=%s, latitude=%s, longitude=%s, max_levels=%s}",
		m.name, m.latitude, m.longitude, strconv.Itoa(m.maxLevels))
}

// withField attaches the mapper name to an error built without one.
func withField(err error, field string) error {
	if e, ok := err.(*errs.Error); ok && e.Field == "" {
		c := *e
		c.Field = field
		return &c
	}
	return err
}
