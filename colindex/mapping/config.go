package mapping

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/colindex/colindex/colindex/analysis"
	"github.com/colindex/colindex/colindex/errs"
)

// MapperConfig is the declarative form of one mapper. Which options apply
// depends on Type.
type MapperConfig struct {
	Type          Kind     `yaml:"type" json:"type"`
	Column        string   `yaml:"column,omitempty" json:"column,omitempty"`
	Indexed       *bool    `yaml:"indexed,omitempty" json:"indexed,omitempty"`
	Sorted        *bool    `yaml:"sorted,omitempty" json:"sorted,omitempty"`
	Boost         *float64 `yaml:"boost,omitempty" json:"boost,omitempty"`
	CaseSensitive *bool    `yaml:"case_sensitive,omitempty" json:"case_sensitive,omitempty"`
	Analyzer      string   `yaml:"analyzer,omitempty" json:"analyzer,omitempty"`
	Digits        *int     `yaml:"digits,omitempty" json:"digits,omitempty"`
	Pattern       string   `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	MaxLevels     *int     `yaml:"max_levels,omitempty" json:"max_levels,omitempty"`
	Latitude      string   `yaml:"latitude,omitempty" json:"latitude,omitempty"`
	Longitude     string   `yaml:"longitude,omitempty" json:"longitude,omitempty"`
	VtFrom        string   `yaml:"vt_from,omitempty" json:"vt_from,omitempty"`
	VtTo          string   `yaml:"vt_to,omitempty" json:"vt_to,omitempty"`
	TtFrom        string   `yaml:"tt_from,omitempty" json:"tt_from,omitempty"`
	TtTo          string   `yaml:"tt_to,omitempty" json:"tt_to,omitempty"`
	NowValue      any      `yaml:"now_value,omitempty" json:"now_value,omitempty"`
}

// FieldConfig names one mapper configuration.
type FieldConfig struct {
	Name   string
	Mapper MapperConfig
}

// FieldConfigs keeps fields in the order they are declared.
type FieldConfigs []FieldConfig

// UnmarshalYAML decodes a mapping of field name to mapper configuration
// without losing its order.
func (f *FieldConfigs) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return errs.Configuration("fields must be a mapping of field name to mapper, line %d", node.Line)
	}
	out := make(FieldConfigs, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var fc FieldConfig
		if err := node.Content[i].Decode(&fc.Name); err != nil {
			return err
		}
		if err := node.Content[i+1].Decode(&fc.Mapper); err != nil {
			return errs.Wrap(errs.ErrConfiguration, "invalid mapper for field '"+fc.Name+"'", err)
		}
		out = append(out, fc)
	}
	*f = out
	return nil
}

// SchemaConfig is the declarative form of a schema.
type SchemaConfig struct {
	DefaultAnalyzer string                     `yaml:"default_analyzer,omitempty"`
	Analyzers       map[string]analysis.Config `yaml:"analyzers,omitempty"`
	Fields          FieldConfigs               `yaml:"fields"`
}

// ParseSchema decodes a YAML or JSON schema document and builds it.
func ParseSchema(data []byte) (*Schema, error) {
	var cfg SchemaConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		if errs.KindOf(err) != "" {
			return nil, err
		}
		return nil, errs.Wrap(errs.ErrConfiguration, "invalid schema document", err)
	}
	return cfg.Build()
}

// Build constructs the schema described by c.
func (c SchemaConfig) Build() (*Schema, error) {
	mappers := make([]Mapper, 0, len(c.Fields))
	for _, f := range c.Fields {
		m, err := BuildMapper(f.Name, f.Mapper)
		if err != nil {
			return nil, err
		}
		mappers = append(mappers, m)
	}
	return NewSchema(SchemaOptions{DefaultAnalyzer: c.DefaultAnalyzer, Analyzers: c.Analyzers}, mappers...)
}

// BuildMapper constructs the mapper named by cfg.Type.
func BuildMapper(name string, cfg MapperConfig) (Mapper, error) {
	num := NumericOptions{Column: cfg.Column, Indexed: cfg.Indexed, Sorted: cfg.Sorted, Boost: cfg.Boost}
	kw := KeywordOptions{Column: cfg.Column, Indexed: cfg.Indexed, Sorted: cfg.Sorted, CaseSensitive: cfg.CaseSensitive}

	switch Kind(strings.ToLower(string(cfg.Type))) {
	case KindString:
		return NewStringMapper(name, kw)
	case KindInet:
		return NewInetMapper(name, kw)
	case KindUUID:
		return NewUUIDMapper(name, kw)
	case KindText:
		return NewTextMapper(name, TextOptions{Column: cfg.Column, Indexed: cfg.Indexed, Analyzer: cfg.Analyzer})
	case KindInteger:
		return NewIntegerMapper(name, num)
	case KindLong:
		return NewLongMapper(name, num)
	case KindFloat:
		return NewFloatMapper(name, num)
	case KindDouble:
		return NewDoubleMapper(name, num)
	case KindBoolean:
		return NewBooleanMapper(name, BooleanOptions{Column: cfg.Column, Indexed: cfg.Indexed, Sorted: cfg.Sorted})
	case KindBlob:
		return NewBlobMapper(name, BlobOptions{Column: cfg.Column, Indexed: cfg.Indexed, Sorted: cfg.Sorted})
	case KindBigInteger:
		return NewBigIntegerMapper(name, BigIntegerOptions{Column: cfg.Column, Indexed: cfg.Indexed, Sorted: cfg.Sorted, Digits: cfg.Digits})
	case KindDate:
		return NewDateMapper(name, DateOptions{Column: cfg.Column, Indexed: cfg.Indexed, Sorted: cfg.Sorted, Pattern: cfg.Pattern})
	case KindGeoPoint:
		return NewGeoPointMapper(name, GeoPointOptions{Latitude: cfg.Latitude, Longitude: cfg.Longitude, MaxLevels: cfg.MaxLevels})
	case KindBitemporal:
		return NewBitemporalMapper(name, BitemporalOptions{
			VtFrom: cfg.VtFrom, VtTo: cfg.VtTo, TtFrom: cfg.TtFrom, TtTo: cfg.TtTo,
			Pattern: cfg.Pattern, NowValue: cfg.NowValue,
		})
	case "":
		return nil, errs.Configuration("field '%s' requires a mapper type", name)
	}
	return nil, errs.Configuration("unknown mapper type '%s' for field '%s'", cfg.Type, name)
}
