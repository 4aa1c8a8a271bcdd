package colindex

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/colindex/colindex/colindex/ops"
	"github.com/colindex/colindex/colindex/storage/sqlite"
)

func TestWritesDuringRefreshSurvive_SQLite(t *testing.T) {
	ctx := context.Background()
	schema := []byte("fields:\n  name:\n    type: string\n")
	ix, err := Create(ctx, sqlite.New(filepath.Join(t.TempDir(), "test.db")), schema, DefaultIndexOptions())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer ix.Close()

	for _, k := range []string{"a", "b"} {
		if err := ix.PutJSON(ctx, []byte(fmt.Sprintf(`{"partition":"p1","key":%q,"columns":{"name":"ann"}}`, k))); err != nil {
			t.Fatalf("PutJSON: %v", err)
		}
	}

	// The store is scanned first, then rows change before the swap.
	ix.beginRefresh()
	res, names, err := ops.LoadPartitions(ctx, ix.store, ix.schema, 0)
	if err != nil {
		t.Fatalf("LoadPartitions: %v", err)
	}
	if err := ix.PutJSON(ctx, []byte(`{"partition":"p2","key":"c","columns":{"name":"ann"}}`)); err != nil {
		t.Fatalf("PutJSON: %v", err)
	}
	if _, err := ix.Delete(ctx, "p1", "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := ix.finishRefresh(res, names, nil); err != nil {
		t.Fatalf("finishRefresh: %v", err)
	}

	page, err := ix.Search(ctx, []byte(`{"query":{"type":"match","field":"name","value":"ann"}}`), SearchOptions{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	var got []string
	for _, it := range page.Items {
		got = append(got, it.Key)
	}
	if fmt.Sprint(got) != "[b c]" {
		t.Fatalf("items = %v, want [b c]", got)
	}
	if fmt.Sprint(ix.Partitions()) != "[p1 p2]" {
		t.Fatalf("partitions = %v", ix.Partitions())
	}
	if len(ix.pending) != 0 {
		t.Fatalf("%d writes still pending", len(ix.pending))
	}
}
