package ops

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/colindex/colindex/colindex/mapping"
	"github.com/colindex/colindex/colindex/storage"
)

// RowDocument is the JSON form of one row handed to PrepareRow:
//
//	{"partition": "p1", "key": "k1",
//	 "columns": {"name": "alice", "age": 33},
//	 "types": {"age": "int"}}
//
// Types is optional; undeclared columns get the type their JSON value
// infers.
type RowDocument struct {
	Partition string                        `json:"partition"`
	Key       string                        `json:"key"`
	Columns   map[string]any                `json:"columns"`
	Types     map[string]mapping.NativeType `json:"types,omitempty"`
}

// PreparedRow is a row ready to store.
type PreparedRow struct {
	Partition string
	Key       string
	Columns   mapping.Columns
}

// PrepareRow parses docJSON and checks that every mapper of schema accepts
// the row.
func PrepareRow(schema *mapping.Schema, docJSON []byte) (*PreparedRow, error) {
	dec := json.NewDecoder(bytes.NewReader(docJSON))
	dec.UseNumber()
	var doc RowDocument
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("invalid JSON row: %w", err)
	}
	if strings.TrimSpace(doc.Partition) == "" {
		return nil, fmt.Errorf("row must contain a non-empty 'partition'")
	}
	if strings.TrimSpace(doc.Key) == "" {
		return nil, fmt.Errorf("row must contain a non-empty 'key'")
	}

	cols := make(mapping.Columns, 0, len(doc.Columns))
	for _, name := range sortedKeys(doc.Columns) {
		col, err := columnOf(name, doc.Columns[name], doc.Types[name])
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	if _, err := schema.Fields(cols); err != nil {
		return nil, err
	}
	return &PreparedRow{Partition: doc.Partition, Key: doc.Key, Columns: cols}, nil
}

// columnOf converts a decoded JSON value to the Go value stored for typ.
// Without a declared type, integers become bigint and other numbers
// double.
func columnOf(name string, v any, typ mapping.NativeType) (mapping.Column, error) {
	if v == nil {
		return mapping.Column{Name: name, Type: typ}, nil
	}
	if typ != "" {
		var text string
		switch x := v.(type) {
		case string:
			text = x
		case json.Number:
			text = x.String()
		case bool:
			text = fmt.Sprint(x)
		default:
			return mapping.Column{}, fmt.Errorf("column %s: unsupported JSON value %T", name, v)
		}
		if typ == mapping.NativeTimestamp || typ == mapping.NativeDate {
			// dates keep their text form and are parsed by their mapper
			return mapping.Column{Name: name, Type: mapping.NativeText, Value: text}, nil
		}
		val, err := storage.DecodeValue(typ, text)
		if err != nil {
			return mapping.Column{}, fmt.Errorf("column %s: %w", name, err)
		}
		return mapping.Column{Name: name, Type: typ, Value: val}, nil
	}
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return mapping.Column{Name: name, Type: mapping.NativeBigint, Value: n}, nil
		}
		f, err := x.Float64()
		if err != nil {
			return mapping.Column{}, fmt.Errorf("column %s: %w", name, err)
		}
		return mapping.Column{Name: name, Type: mapping.NativeDouble, Value: f}, nil
	case string:
		return mapping.Column{Name: name, Type: mapping.NativeText, Value: x}, nil
	case bool:
		return mapping.Column{Name: name, Type: mapping.NativeBoolean, Value: x}, nil
	}
	return mapping.Column{}, fmt.Errorf("column %s: unsupported JSON value %T", name, v)
}
