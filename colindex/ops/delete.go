package ops

import (
	"context"
	"fmt"

	"github.com/colindex/colindex/colindex/storage"
)

// DeleteRow removes a row from store. It reports whether the row existed.
func DeleteRow(ctx context.Context, store storage.ColumnStore, partition, rowKey string) (bool, error) {
	rows, err := store.GetRows(ctx, partition, []string{rowKey})
	if err != nil {
		return false, fmt.Errorf("find row: %w", err)
	}
	if _, ok := rows[rowKey]; !ok {
		return false, nil
	}
	if err := store.DeleteRow(ctx, partition, rowKey); err != nil {
		return false, err
	}
	return true, nil
}
