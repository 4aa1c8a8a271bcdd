package condition

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/colindex/colindex/colindex/errs"
)

// wire is the JSON form shared by every condition type. The type
// discriminator selects which of the other members apply.
type wire struct {
	Type  string   `json:"type"`
	Boost *float64 `json:"boost,omitempty"`
	Field string   `json:"field,omitempty"`

	Must   []json.RawMessage `json:"must,omitempty"`
	Should []json.RawMessage `json:"should,omitempty"`
	Not    []json.RawMessage `json:"not,omitempty"`

	Lower        any   `json:"lower,omitempty"`
	Upper        any   `json:"upper,omitempty"`
	IncludeLower *bool `json:"include_lower,omitempty"`
	IncludeUpper *bool `json:"include_upper,omitempty"`

	Value  any   `json:"value,omitempty"`
	Values []any `json:"values,omitempty"`

	MinLatitude  *float64 `json:"min_latitude,omitempty"`
	MaxLatitude  *float64 `json:"max_latitude,omitempty"`
	MinLongitude *float64 `json:"min_longitude,omitempty"`
	MaxLongitude *float64 `json:"max_longitude,omitempty"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	MaxDistance  string   `json:"max_distance,omitempty"`
	MinDistance  string   `json:"min_distance,omitempty"`

	VtFrom    any    `json:"vt_from,omitempty"`
	VtTo      any    `json:"vt_to,omitempty"`
	TtFrom    any    `json:"tt_from,omitempty"`
	TtTo      any    `json:"tt_to,omitempty"`
	Operation string `json:"operation,omitempty"`
}

// Condition type discriminators.
const (
	TypeAll         = "all"
	TypeBoolean     = "boolean"
	TypeRange       = "range"
	TypeContains    = "contains"
	TypeMatch       = "match"
	TypeRegexp      = "regexp"
	TypePrefix      = "prefix"
	TypeWildcard    = "wildcard"
	TypeGeoBBox     = "geo_bbox"
	TypeGeoDistance = "geo_distance"
	TypeBitemporal  = "bitemporal"
)

// Unmarshal decodes one JSON condition. Numbers are kept as json.Number so
// that mappers see the literal digits.
func Unmarshal(data []byte) (Condition, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	dec.DisallowUnknownFields()
	var w wire
	if err := dec.Decode(&w); err != nil {
		return nil, errs.Wrap(errs.ErrQueryParse, "invalid condition", err)
	}
	return w.condition()
}

func (w *wire) boost() float64 {
	if w.Boost == nil {
		return DefaultBoost
	}
	return *w.Boost
}

func (w *wire) requireField() error {
	if strings.TrimSpace(w.Field) == "" {
		return errs.QueryParse("Field name required for %s condition", w.Type)
	}
	return nil
}

func (w *wire) condition() (Condition, error) {
	if w.Boost != nil && *w.Boost < 0 {
		return nil, errs.QueryParse("boost must be positive, but found %v", *w.Boost)
	}
	switch strings.ToLower(w.Type) {
	case TypeAll:
		return All{Boost: w.boost()}, nil

	case TypeBoolean:
		must, err := unmarshalList(w.Must)
		if err != nil {
			return nil, err
		}
		should, err := unmarshalList(w.Should)
		if err != nil {
			return nil, err
		}
		not, err := unmarshalList(w.Not)
		if err != nil {
			return nil, err
		}
		return Boolean{Must: must, Should: should, Not: not, Boost: w.boost()}, nil

	case "":
		return nil, errs.QueryParse("condition requires a type")
	}

	if err := w.requireField(); err != nil {
		return nil, err
	}

	switch strings.ToLower(w.Type) {
	case TypeRange:
		return Range{
			Field:        w.Field,
			Lower:        w.Lower,
			Upper:        w.Upper,
			IncludeLower: w.IncludeLower != nil && *w.IncludeLower,
			IncludeUpper: w.IncludeUpper != nil && *w.IncludeUpper,
			Boost:        w.boost(),
		}, nil

	case TypeContains:
		if len(w.Values) == 0 {
			return nil, errs.QueryParse("Field values required for contains condition on '%s'", w.Field)
		}
		return Contains{Field: w.Field, Values: w.Values, Boost: w.boost()}, nil

	case TypeMatch:
		if w.Value == nil {
			return nil, errs.QueryParse("Field value required for match condition on '%s'", w.Field)
		}
		return Match{Field: w.Field, Value: w.Value, Boost: w.boost()}, nil

	case TypeRegexp, TypePrefix, TypeWildcard:
		s, ok := w.Value.(string)
		if !ok {
			return nil, errs.QueryParse("%s condition on '%s' requires a string value", w.Type, w.Field)
		}
		switch strings.ToLower(w.Type) {
		case TypeRegexp:
			return Regexp{Field: w.Field, Value: s, Boost: w.boost()}, nil
		case TypePrefix:
			return Prefix{Field: w.Field, Value: s, Boost: w.boost()}, nil
		}
		return Wildcard{Field: w.Field, Value: s, Boost: w.boost()}, nil

	case TypeGeoBBox:
		for name, v := range map[string]*float64{
			"min_latitude": w.MinLatitude, "max_latitude": w.MaxLatitude,
			"min_longitude": w.MinLongitude, "max_longitude": w.MaxLongitude,
		} {
			if v == nil {
				return nil, errs.QueryParse("%s required for geo_bbox condition on '%s'", name, w.Field)
			}
		}
		return GeoBBox{
			Field:        w.Field,
			MinLatitude:  *w.MinLatitude,
			MaxLatitude:  *w.MaxLatitude,
			MinLongitude: *w.MinLongitude,
			MaxLongitude: *w.MaxLongitude,
			Boost:        w.boost(),
		}, nil

	case TypeGeoDistance:
		if w.Latitude == nil || w.Longitude == nil {
			return nil, errs.QueryParse("latitude and longitude required for geo_distance condition on '%s'", w.Field)
		}
		if w.MaxDistance == "" {
			return nil, errs.QueryParse("max_distance required for geo_distance condition on '%s'", w.Field)
		}
		return GeoDistance{
			Field:       w.Field,
			Latitude:    *w.Latitude,
			Longitude:   *w.Longitude,
			MaxDistance: w.MaxDistance,
			MinDistance: w.MinDistance,
			Boost:       w.boost(),
		}, nil

	case TypeBitemporal:
		return Bitemporal{
			Field:     w.Field,
			VtFrom:    w.VtFrom,
			VtTo:      w.VtTo,
			TtFrom:    w.TtFrom,
			TtTo:      w.TtTo,
			Operation: w.Operation,
			Boost:     w.boost(),
		}, nil
	}
	return nil, errs.QueryParse("Unknown condition type '%s'", w.Type)
}

func unmarshalList(raws []json.RawMessage) ([]Condition, error) {
	if len(raws) == 0 {
		return nil, nil
	}
	out := make([]Condition, 0, len(raws))
	for _, raw := range raws {
		c, err := Unmarshal(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func marshalList(cs []Condition) ([]json.RawMessage, error) {
	if len(cs) == 0 {
		return nil, nil
	}
	out := make([]json.RawMessage, 0, len(cs))
	for _, c := range cs {
		b, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// marshal writes c in the form Unmarshal reads.
func marshal(c Condition) ([]byte, error) {
	boost := c.GetBoost()
	w := wire{Boost: &boost}
	switch x := c.(type) {
	case All:
		w.Type = TypeAll
	case Boolean:
		w.Type = TypeBoolean
		var err error
		if w.Must, err = marshalList(x.Must); err != nil {
			return nil, err
		}
		if w.Should, err = marshalList(x.Should); err != nil {
			return nil, err
		}
		if w.Not, err = marshalList(x.Not); err != nil {
			return nil, err
		}
	case Range:
		w.Type, w.Field, w.Lower, w.Upper = TypeRange, x.Field, x.Lower, x.Upper
		w.IncludeLower, w.IncludeUpper = &x.IncludeLower, &x.IncludeUpper
	case Contains:
		w.Type, w.Field, w.Values = TypeContains, x.Field, x.Values
	case Match:
		w.Type, w.Field, w.Value = TypeMatch, x.Field, x.Value
	case Regexp:
		w.Type, w.Field, w.Value = TypeRegexp, x.Field, x.Value
	case Prefix:
		w.Type, w.Field, w.Value = TypePrefix, x.Field, x.Value
	case Wildcard:
		w.Type, w.Field, w.Value = TypeWildcard, x.Field, x.Value
	case GeoBBox:
		w.Type, w.Field = TypeGeoBBox, x.Field
		w.MinLatitude, w.MaxLatitude = &x.MinLatitude, &x.MaxLatitude
		w.MinLongitude, w.MaxLongitude = &x.MinLongitude, &x.MaxLongitude
	case GeoDistance:
		w.Type, w.Field = TypeGeoDistance, x.Field
		w.Latitude, w.Longitude = &x.Latitude, &x.Longitude
		w.MaxDistance, w.MinDistance = x.MaxDistance, x.MinDistance
	case Bitemporal:
		w.Type, w.Field, w.Operation = TypeBitemporal, x.Field, x.Op()
		w.VtFrom, w.VtTo, w.TtFrom, w.TtTo = x.VtFrom, x.VtTo, x.TtFrom, x.TtTo
	default:
		return nil, errs.QueryParse("Unknown condition %T", c)
	}
	return json.Marshal(w)
}
