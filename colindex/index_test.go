package colindex_test

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	_ "modernc.org/sqlite"

	"github.com/colindex/colindex/colindex"
	"github.com/colindex/colindex/colindex/errs"
	"github.com/colindex/colindex/colindex/mapping"
	"github.com/colindex/colindex/colindex/storage/sqlite"
)

const schemaYAML = `
default_analyzer: english
fields:
  name:
    type: string
    sorted: true
  city:
    type: string
  age:
    type: integer
    sorted: true
  bio:
    type: text
`

func newIndex(t *testing.T, opts colindex.IndexOptions) (*colindex.Index, string) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	ix, err := colindex.Create(context.Background(), sqlite.New(dbPath), []byte(schemaYAML), opts)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	t.Cleanup(func() { _ = ix.Close() })
	return ix, dbPath
}

func put(t *testing.T, ix *colindex.Index, partition, key string, cols map[string]any) {
	t.Helper()
	b, err := json.Marshal(map[string]any{"partition": partition, "key": key, "columns": cols})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := ix.PutJSON(context.Background(), b); err != nil {
		t.Fatalf("PutJSON: %v", err)
	}
}

func keysOf(items []colindex.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Key
	}
	return out
}

func seed(t *testing.T, ix *colindex.Index) {
	t.Helper()
	cities := []string{"madrid", "paris", "rome"}
	for i := 0; i < 23; i++ {
		partition := fmt.Sprintf("p%d", i%3)
		put(t, ix, partition, fmt.Sprintf("k%02d", i), map[string]any{
			"name": fmt.Sprintf("user%02d", i),
			"city": cities[i%len(cities)],
			"age":  20 + i%7,
			"bio":  "likes running",
		})
	}
	// the same row replicated in another partition
	put(t, ix, "p1", "k00", map[string]any{"name": "user00", "city": "madrid", "age": 20, "bio": "likes running"})
}

func TestPutGetDelete_SQLite(t *testing.T) {
	ix, _ := newIndex(t, colindex.DefaultIndexOptions())
	ctx := context.Background()

	put(t, ix, "p1", "a", map[string]any{"name": "ann", "age": 31})
	row, err := ix.Get(ctx, "p1", "a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got := row.ValueOf("name"); got != "ann" {
		t.Fatalf("name = %v, want ann", got)
	}

	found, err := ix.Delete(ctx, "p1", "a")
	if err != nil || !found {
		t.Fatalf("Delete: found=%v err=%v", found, err)
	}
	if _, err := ix.Get(ctx, "p1", "a"); !errs.IsKind(err, errs.ErrNotFound) {
		t.Fatalf("Get after delete: %v, want not_found", err)
	}

	page, err := ix.Search(ctx, []byte(`{}`), colindex.SearchOptions{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(page.Items) != 0 {
		t.Fatalf("deleted row still searchable: %v", keysOf(page.Items))
	}
}

func TestPutRejectsUnmappableRow_SQLite(t *testing.T) {
	ix, _ := newIndex(t, colindex.DefaultIndexOptions())
	b := []byte(`{"partition":"p1","key":"a","columns":{"age":"old"}}`)
	if err := ix.PutJSON(context.Background(), b); !errs.IsKind(err, errs.ErrNormalization) {
		t.Fatalf("PutJSON: %v, want value_normalization", err)
	}
}

func TestBatch_SQLite(t *testing.T) {
	ctx := context.Background()
	ix, _ := newIndex(t, colindex.DefaultIndexOptions())
	put(t, ix, "p0", "k0", map[string]any{"name": "old"})

	b := colindex.NewBatch()
	b.PutJSON([]byte(`{"partition":"p0","key":"k1","columns":{"name":"ann","age":30}}`))
	b.PutJSON([]byte(`{"partition":"p9","key":"k2","columns":{"name":"bob","age":40}}`))
	if err := b.Delete("p0", "k0"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := b.Delete("", "k0"); !errs.IsKind(err, errs.ErrNormalization) {
		t.Fatalf("expected normalization error, got %v", err)
	}
	n, err := ix.Batch(ctx, b)
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 ops, got %d", n)
	}
	if got := fmt.Sprint(ix.Partitions()); got != "[p0 p9]" {
		t.Fatalf("unexpected partitions %s", got)
	}
	page, err := ix.Search(ctx, []byte(`{"sort":[{"field":"age"}]}`), colindex.SearchOptions{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got := fmt.Sprint(keysOf(page.Items)); got != "[k1 k2]" {
		t.Fatalf("unexpected keys %s", got)
	}

	bad := colindex.NewBatch()
	bad.PutJSON([]byte(`{"partition":"p0","key":"k3","columns":{"age":1}}`))
	bad.PutJSON([]byte(`{"partition":"p0","key":"k4","columns":{"age":"old"}}`))
	if _, err := ix.Batch(ctx, bad); !errs.IsKind(err, errs.ErrNormalization) {
		t.Fatalf("expected normalization error, got %v", err)
	}
	if _, err := ix.Get(ctx, "p0", "k3"); !errs.IsKind(err, errs.ErrNotFound) {
		t.Fatalf("expected k3 to be absent, got %v", err)
	}
}

func TestCursorResumability_SQLite(t *testing.T) {
	ix, _ := newIndex(t, colindex.DefaultIndexOptions())
	seed(t, ix)
	ctx := context.Background()

	searches := []string{
		`{"sort":[{"field":"age"},{"field":"name","reverse":true}]}`,
		`{"query":{"type":"contains","field":"city","values":["madrid","rome"]}}`,
		`{"filter":{"type":"range","field":"age","lower":22,"include_lower":true},"sort":[{"field":"age","reverse":true}]}`,
	}
	for _, mode := range []colindex.CursorMode{colindex.CursorFull, colindex.CursorShort} {
		for _, q := range searches {
			t.Run(string(mode)+" "+q, func(t *testing.T) {
				all, err := ix.Search(ctx, []byte(q), colindex.SearchOptions{Limit: 100})
				if err != nil {
					t.Fatalf("Search: %v", err)
				}
				if all.HasMore {
					t.Fatalf("single page should hold every row")
				}
				want := keysOf(all.Items)
				if len(want) == 0 {
					t.Fatalf("no rows matched")
				}

				var got []string
				after := ""
				for n := 0; ; n++ {
					if n > len(want) {
						t.Fatalf("paging did not terminate")
					}
					page, err := ix.Search(ctx, []byte(q), colindex.SearchOptions{Limit: 4, After: after, CursorMode: mode})
					if err != nil {
						t.Fatalf("Search page %d: %v", n, err)
					}
					got = append(got, keysOf(page.Items)...)
					if !page.HasMore {
						break
					}
					after = page.NextCursor
				}
				if fmt.Sprint(got) != fmt.Sprint(want) {
					t.Fatalf("paged rows differ\n got: %v\nwant: %v", got, want)
				}
				seen := make(map[string]bool)
				for _, k := range got {
					if seen[k] {
						t.Fatalf("row %s returned twice", k)
					}
					seen[k] = true
				}
			})
		}
	}
}

func TestCursorFromAnotherSearch_SQLite(t *testing.T) {
	ix, _ := newIndex(t, colindex.DefaultIndexOptions())
	seed(t, ix)
	ctx := context.Background()

	page, err := ix.Search(ctx, []byte(`{"sort":[{"field":"age"}]}`), colindex.SearchOptions{Limit: 2})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	_, err = ix.Search(ctx, []byte(`{"sort":[{"field":"name"}]}`), colindex.SearchOptions{Limit: 2, After: page.NextCursor})
	if !errs.IsKind(err, errs.ErrCursor) {
		t.Fatalf("Search: %v, want cursor error", err)
	}
}

func TestOpenReloadsPartitions_SQLite(t *testing.T) {
	ix, dbPath := newIndex(t, colindex.DefaultIndexOptions())
	seed(t, ix)
	if err := ix.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	ctx := context.Background()
	ix2, err := colindex.Open(ctx, sqlite.New(dbPath), colindex.DefaultIndexOptions())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer ix2.Close()

	if got := fmt.Sprint(ix2.Partitions()); got != "[p0 p1 p2]" {
		t.Fatalf("partitions = %s", got)
	}
	page, err := ix2.Search(ctx, []byte(`{"query":{"type":"match","field":"name","value":"user05"}}`), colindex.SearchOptions{Fetch: true})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].Key != "k05" {
		t.Fatalf("items = %v", keysOf(page.Items))
	}
	if got := page.Items[0].Columns.ValueOf("city"); got != "rome" {
		t.Fatalf("fetched city = %v, want rome", got)
	}
}

func TestRefreshFlag_SQLite(t *testing.T) {
	ix, _ := newIndex(t, colindex.DefaultIndexOptions())
	ctx := context.Background()

	// written behind the index's back
	err := ix.Store().PutRow(ctx, "p9", "z", mapping.Columns{{Name: "name", Value: "zed"}})
	if err != nil {
		t.Fatalf("PutRow: %v", err)
	}

	page, err := ix.Search(ctx, []byte(`{"query":{"type":"match","field":"name","value":"zed"}}`), colindex.SearchOptions{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(page.Items) != 0 {
		t.Fatalf("row visible before refresh")
	}

	page, err = ix.Search(ctx, []byte(`{"query":{"type":"match","field":"name","value":"zed"}, "refresh":true}`), colindex.SearchOptions{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got := keysOf(page.Items); fmt.Sprint(got) != "[z]" {
		t.Fatalf("items = %v, want [z]", got)
	}
}

func TestValidate_SQLite(t *testing.T) {
	ix, _ := newIndex(t, colindex.DefaultIndexOptions())

	if err := ix.Validate([]byte(`{"query":{"type":"match","field":"name","value":"x"}}`)); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	cases := map[string]errs.ErrorKind{
		`{"query":{"type":"match","field":"nope","value":"x"}}`:           errs.ErrSchemaResolution,
		`{"query":{"type":"geo_bbox","field":"name","min_latitude":0,"max_latitude":1,"min_longitude":0,"max_longitude":1}}`: errs.ErrMapperMismatch,
		`{"query":{"type":"match","field":"age","value":"old"}}`:          errs.ErrNormalization,
		`{"sort":[{"field":"city"}]}`:                                     errs.ErrMapperMismatch,
		`{"query":{"type":"nope"}}`:                                       errs.ErrQueryParse,
	}
	for q, kind := range cases {
		if err := ix.Validate([]byte(q)); !errs.IsKind(err, kind) {
			t.Errorf("Validate(%s) = %v, want %s", q, err, kind)
		}
	}
}

func TestDiscoverAndStats_SQLite(t *testing.T) {
	ix, _ := newIndex(t, colindex.DefaultIndexOptions())
	put(t, ix, "p1", "a", map[string]any{"city": "madrid", "age": 30})
	put(t, ix, "p1", "b", map[string]any{"city": "madrid", "age": 40})
	put(t, ix, "p2", "c", map[string]any{"city": "rome", "age": 20})

	vals, err := ix.DiscoverValues("city", 10)
	if err != nil {
		t.Fatalf("DiscoverValues: %v", err)
	}
	if got := fmt.Sprint(vals); got != "[{madrid 2} {rome 1}]" {
		t.Fatalf("values = %s", got)
	}

	st, err := ix.Stats("age")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Count != 3 || *st.Min != 20 || *st.Max != 40 || *st.Median != 30 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestMetrics_SQLite(t *testing.T) {
	reg := prometheus.NewRegistry()
	opts := colindex.DefaultIndexOptions()
	opts.Metrics = colindex.NewMetrics(reg)
	ix, _ := newIndex(t, opts)
	seed(t, ix)
	ctx := context.Background()

	if _, err := ix.Search(ctx, []byte(`{"query":{"type":"boolean","not":[{"type":"match","field":"city","value":"rome"}]}}`), colindex.SearchOptions{}); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if _, err := ix.Search(ctx, []byte(`{"query":{"type":"match","field":"nope","value":"x"}}`), colindex.SearchOptions{}); err == nil {
		t.Fatalf("expected error")
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	got := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			name := mf.GetName()
			for _, l := range m.GetLabel() {
				name += "/" + l.GetValue()
			}
			switch {
			case m.GetCounter() != nil:
				got[name] = m.GetCounter().GetValue()
			case m.GetHistogram() != nil:
				got[name] = float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	want := map[string]float64{
		"colindex_searches_total/ok":       1,
		"colindex_searches_total/error":    1,
		"colindex_search_duration_seconds": 2,
		"colindex_pure_negations_total":    1,
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %v, want %v", k, got[k], v)
		}
	}
	if got["colindex_merged_rows_total"] == 0 {
		t.Errorf("merged rows not counted")
	}
}

func TestAfterFromPredicates(t *testing.T) {
	after, rest := colindex.AfterFromPredicates([]colindex.Predicate{
		{Column: "city", Value: "rome"},
		{Column: colindex.SearchAfterPredicate, Value: "tok"},
	})
	if after != "tok" {
		t.Fatalf("after = %q", after)
	}
	if len(rest) != 1 || rest[0].Column != "city" {
		t.Fatalf("rest = %v", rest)
	}
}
