package colindex

import (
	"context"
	"fmt"

	"github.com/colindex/colindex/colindex/errs"
	"github.com/colindex/colindex/colindex/ops"
	"github.com/colindex/colindex/colindex/storage"
)

type batchOpKind int

const (
	batchPut batchOpKind = iota
	batchDelete
)

type batchOp struct {
	kind      batchOpKind
	doc       []byte
	partition string
	key       string
}

// Batch collects row writes applied together by Index.Batch.
type Batch struct {
	ops []batchOp
}

func NewBatch() *Batch {
	return &Batch{}
}

// PutJSON queues a row document (see ops.RowDocument).
func (b *Batch) PutJSON(doc []byte) {
	b.ops = append(b.ops, batchOp{kind: batchPut, doc: append([]byte(nil), doc...)})
}

func (b *Batch) Delete(partition, rowKey string) error {
	if partition == "" || rowKey == "" {
		return errs.New(errs.ErrNormalization, "delete needs a partition and a row key")
	}
	b.ops = append(b.ops, batchOp{kind: batchDelete, partition: partition, key: rowKey})
	return nil
}

func (b *Batch) Len() int {
	return len(b.ops)
}

// Batch prepares every queued row, then writes them in one transaction.
// Nothing is written when any row fails to prepare.
func (ix *Index) Batch(ctx context.Context, b *Batch) (int, error) {
	if b == nil || b.Len() == 0 {
		return 0, nil
	}

	rows := make([]storage.RowOp, 0, b.Len())
	for i, op := range b.ops {
		switch op.kind {
		case batchPut:
			row, err := ops.PrepareRow(ix.schema, op.doc)
			if err != nil {
				return 0, fmt.Errorf("batch row %d: %w", i+1, wrap(errs.ErrNormalization, "prepare row", err))
			}
			rows = append(rows, storage.RowOp{Partition: row.Partition, Key: row.Key, Row: row.Columns})
		case batchDelete:
			rows = append(rows, storage.RowOp{Partition: op.partition, Key: op.key, Delete: true})
		}
	}
	if err := ix.store.Apply(ctx, rows); err != nil {
		return 0, wrap(errs.ErrSQL, "apply batch", err)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, op := range rows {
		if err := ix.writeLocked(op); err != nil {
			return 0, err
		}
	}
	return len(rows), nil
}
