package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/colindex/colindex/colindex/mapping"
	"github.com/colindex/colindex/colindex/storage/sqlbuilder"
)

// ColumnStore is the store rows are read from. The index never writes to
// it during a search; PutRow and DeleteRow exist for loading.
type ColumnStore interface {
	GetColumnValue(ctx context.Context, partition, rowKey, column string) (mapping.Column, bool, error)
	GetRows(ctx context.Context, partition string, rowKeys []string) (map[string]mapping.Columns, error)
	Partitions(ctx context.Context) ([]string, error)
	ScanPartition(ctx context.Context, partition string, fn func(rowKey string, row mapping.Columns) error) error
	PutRow(ctx context.Context, partition, rowKey string, row mapping.Columns) error
	DeleteRow(ctx context.Context, partition, rowKey string) error
	CountRows(ctx context.Context) (int, error)
}

// DBColumnStore keeps cells in the cells table of an index database.
type DBColumnStore struct {
	db    *sql.DB
	sqlt  SQL
	style sqlbuilder.PlaceholderStyle
}

// NewDBColumnStore returns a column store over db using a's statements.
func NewDBColumnStore(db *sql.DB, a Adapter) *DBColumnStore {
	return &DBColumnStore{db: db, sqlt: a.SQL(), style: a.PlaceholderStyle()}
}

func (s *DBColumnStore) GetColumnValue(ctx context.Context, partition, rowKey, column string) (mapping.Column, bool, error) {
	var typ, raw string
	err := s.db.QueryRowContext(ctx, s.sqlt.GetCell, partition, rowKey, column).Scan(&typ, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return mapping.Column{}, false, nil
	}
	if err != nil {
		return mapping.Column{}, false, fmt.Errorf("get cell: %w", err)
	}
	v, err := DecodeValue(mapping.NativeType(typ), raw)
	if err != nil {
		return mapping.Column{}, false, err
	}
	return mapping.Column{Name: column, Type: mapping.NativeType(typ), Value: v}, true, nil
}

// GetRows returns the cells of the given rows keyed by row key. Missing
// rows are absent from the result.
func (s *DBColumnStore) GetRows(ctx context.Context, partition string, rowKeys []string) (map[string]mapping.Columns, error) {
	out := make(map[string]mapping.Columns, len(rowKeys))
	if len(rowKeys) == 0 {
		return out, nil
	}
	b := sqlbuilder.New(s.style)
	b.Arg(partition)
	keys := make([]any, len(rowKeys))
	for i, k := range rowKeys {
		keys[i] = k
	}
	query := fmt.Sprintf(s.sqlt.GetRows, b.List(keys...))

	rows, err := s.db.QueryContext(ctx, query, b.Args()...)
	if err != nil {
		return nil, fmt.Errorf("get rows: %w", err)
	}
	defer rows.Close()
	err = scanCells(rows, func(rowKey string, col mapping.Column) error {
		out[rowKey] = append(out[rowKey], col)
		return nil
	})
	return out, err
}

func (s *DBColumnStore) Partitions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.sqlt.ListPartitions)
	if err != nil {
		return nil, fmt.Errorf("list partitions: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan partition: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate partitions: %w", err)
	}
	return out, nil
}

// ScanPartition calls fn once per row of partition, in row key order.
func (s *DBColumnStore) ScanPartition(ctx context.Context, partition string, fn func(rowKey string, row mapping.Columns) error) error {
	rows, err := s.db.QueryContext(ctx, s.sqlt.ScanPartition, partition)
	if err != nil {
		return fmt.Errorf("scan partition: %w", err)
	}
	defer rows.Close()

	var curKey string
	var cur mapping.Columns
	started := false
	err = scanCells(rows, func(rowKey string, col mapping.Column) error {
		if started && rowKey != curKey {
			if err := fn(curKey, cur); err != nil {
				return err
			}
			cur = nil
		}
		started = true
		curKey = rowKey
		cur = append(cur, col)
		return nil
	})
	if err != nil {
		return err
	}
	if started {
		return fn(curKey, cur)
	}
	return nil
}

func scanCells(rows *sql.Rows, fn func(rowKey string, col mapping.Column) error) error {
	for rows.Next() {
		var rowKey, name, typ, raw string
		if err := rows.Scan(&rowKey, &name, &typ, &raw); err != nil {
			return fmt.Errorf("scan cell: %w", err)
		}
		v, err := DecodeValue(mapping.NativeType(typ), raw)
		if err != nil {
			return err
		}
		if err := fn(rowKey, mapping.Column{Name: name, Type: mapping.NativeType(typ), Value: v}); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate cells: %w", err)
	}
	return nil
}

// RowOp is one write of a batch: the cells of a row, or its removal.
type RowOp struct {
	Partition string
	Key       string
	Row       mapping.Columns
	Delete    bool
}

// PutRow replaces the cells of one row. Null columns are not stored.
func (s *DBColumnStore) PutRow(ctx context.Context, partition, rowKey string, row mapping.Columns) error {
	return s.Apply(ctx, []RowOp{{Partition: partition, Key: rowKey, Row: row}})
}

// Apply runs ops in order inside one transaction.
func (s *DBColumnStore) Apply(ctx context.Context, ops []RowOp) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, op := range ops {
		if _, err = tx.ExecContext(ctx, s.sqlt.DeleteRow, op.Partition, op.Key); err != nil {
			return fmt.Errorf("clear row: %w", err)
		}
		if op.Delete {
			continue
		}
		if err = s.putCells(ctx, tx, op); err != nil {
			return err
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *DBColumnStore) putCells(ctx context.Context, tx *sql.Tx, op RowOp) error {
	for _, col := range op.Row {
		if col.Value == nil {
			continue
		}
		typ := col.Type
		if typ == "" {
			var err error
			if typ, err = InferType(col.Value); err != nil {
				return err
			}
		}
		raw, err := EncodeValue(typ, col.Value)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, s.sqlt.PutCell, op.Partition, op.Key, col.Name, string(typ), raw); err != nil {
			return fmt.Errorf("put cell %s: %w", col.Name, err)
		}
	}
	return nil
}

func (s *DBColumnStore) DeleteRow(ctx context.Context, partition, rowKey string) error {
	if _, err := s.db.ExecContext(ctx, s.sqlt.DeleteRow, partition, rowKey); err != nil {
		return fmt.Errorf("delete row: %w", err)
	}
	return nil
}

// CountRows returns the number of distinct rows across partitions.
func (s *DBColumnStore) CountRows(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, s.sqlt.CountRows).Scan(&n); err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	return n, nil
}
