package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/colindex/colindex/colindex"
	"github.com/colindex/colindex/colindex/search"
	"github.com/colindex/colindex/internal/cliopt"
)

const testSchema = `
fields:
  name:
    type: string
    sorted: true
  city:
    type: string
  age:
    type: integer
    sorted: true
`

const testRows = `{"partition":"p0","key":"k1","columns":{"name":"ann","city":"madrid","age":30}}
{"partition":"p0","key":"k2","columns":{"name":"bob","city":"rome","age":25}}

{"partition":"p1","key":"k3","columns":{"name":"cid","city":"madrid","age":41}}
{"partition":"p1","key":"k4","columns":{"name":"dan","city":"paris","age":25}}
{"partition":"p1","key":"k5","columns":{"name":"eve","city":"madrid","age":35}}
`

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCommand(strings.NewReader(stdin), &out, &errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// newTestIndex creates a loaded index and returns the global flags that
// address it.
func newTestIndex(t *testing.T) []string {
	t.Helper()
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "schema.yaml")
	if err := os.WriteFile(schemaPath, []byte(testSchema), 0o644); err != nil {
		t.Fatalf("write schema: %v", err)
	}
	global := []string{"--sqlite-path", filepath.Join(dir, "data"), "-i", "people"}

	out, err := run(t, "", append(global, "index", "create", "--schema", schemaPath)...)
	if err != nil {
		t.Fatalf("index create: %v", err)
	}
	if !strings.HasPrefix(out, "created ") || !strings.HasSuffix(strings.TrimSpace(out), "people.db") {
		t.Fatalf("unexpected create output %q", out)
	}

	out, err = run(t, testRows, append(global, "put")...)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if strings.TrimSpace(out) != "imported 5" {
		t.Fatalf("unexpected put output %q", out)
	}
	return global
}

func withArgs(global []string, args ...string) []string {
	return append(append([]string{}, global...), args...)
}

func TestSearchPagesWithCursor(t *testing.T) {
	global := newTestIndex(t)

	for _, mode := range []string{"short", "full"} {
		t.Run(mode, func(t *testing.T) {
			var pages [][]string
			after := ""
			for i := 0; i < 5; i++ {
				args := withArgs(global, "-o", "json", "search", `{"sort":[{"field":"age"}]}`, "--limit", "2", "--cursor", mode)
				if after != "" {
					args = append(args, "--after", after)
				}
				out, err := run(t, "", args...)
				if err != nil {
					t.Fatalf("search: %v", err)
				}
				var page pageView
				if err := json.Unmarshal([]byte(out), &page); err != nil {
					t.Fatalf("decode page: %v\n%s", err, out)
				}
				var keys []string
				for _, h := range page.Hits {
					keys = append(keys, h.Key)
				}
				pages = append(pages, keys)
				if !page.HasMore {
					break
				}
				after = page.NextCursor
			}
			want := [][]string{{"k2", "k4"}, {"k1", "k5"}, {"k3"}}
			if !reflect.DeepEqual(pages, want) {
				t.Fatalf("pages = %v, want %v", pages, want)
			}
		})
	}
}

func TestSearchOutputFormats(t *testing.T) {
	global := newTestIndex(t)
	query := `{"filter":{"type":"match","field":"city","value":"madrid"},"sort":[{"field":"age","reverse":true}]}`

	out, err := run(t, "", withArgs(global, "-o", "keys", "search", query)...)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if out != "p1/k3\np1/k5\np0/k1\n" {
		t.Fatalf("unexpected keys output %q", out)
	}

	out, err = run(t, query, withArgs(global, "search", "-", "--fetch", "--explain")...)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	for _, want := range []string{"Found 3 rows", "- p1/k3", "name: cid", "Explanation:"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestSearchReportsWriteFailure(t *testing.T) {
	global := newTestIndex(t)
	var errOut bytes.Buffer
	root := NewRootCommand(strings.NewReader(""), failingWriter{}, &errOut)
	root.SetArgs(withArgs(global, "-o", "json", "search", `{"sort":[{"field":"age"}]}`))
	err := root.ExecuteContext(context.Background())
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("err = %v, want write failure", err)
	}
}

func TestRowCommands(t *testing.T) {
	global := newTestIndex(t)

	out, err := run(t, "", withArgs(global, "-o", "json", "get", "p0", "k1")...)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var row map[string]string
	if err := json.Unmarshal([]byte(out), &row); err != nil {
		t.Fatalf("decode row: %v", err)
	}
	if row["name"] != "ann" || row["age"] != "30" {
		t.Fatalf("unexpected row %v", row)
	}

	if _, err := run(t, "", withArgs(global, "delete", "p0", "k1")...); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := run(t, "", withArgs(global, "delete", "p0", "k1")...); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := run(t, "", withArgs(global, "get", "p0", "k1")...); err == nil {
		t.Fatal("expected get of deleted row to fail")
	}
}

func TestDiscoverAndStats(t *testing.T) {
	global := newTestIndex(t)

	out, err := run(t, "", withArgs(global, "-o", "json", "discover", "values", "city")...)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	var vals []colindex.ValueCount
	if err := json.Unmarshal([]byte(out), &vals); err != nil {
		t.Fatalf("decode values: %v", err)
	}
	want := []colindex.ValueCount{{Value: "madrid", Count: 3}, {Value: "paris", Count: 1}, {Value: "rome", Count: 1}}
	if !reflect.DeepEqual(vals, want) {
		t.Fatalf("values = %v, want %v", vals, want)
	}

	out, err = run(t, "", withArgs(global, "-o", "json", "stats", "age")...)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	var st colindex.StatsResult
	if err := json.Unmarshal([]byte(out), &st); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if st.Count != 5 || *st.Min != 25 || *st.Max != 41 || *st.Median != 30 {
		t.Fatalf("unexpected stats %+v", st)
	}

	if _, err := run(t, "", withArgs(global, "stats", "name")...); err == nil {
		t.Fatal("expected stats on a string field to fail")
	}
}

func TestValidateAndSchema(t *testing.T) {
	global := newTestIndex(t)

	out, err := run(t, "", withArgs(global, "validate", `{"query":{"type":"match","field":"city","value":"rome"}}`)...)
	if err != nil || strings.TrimSpace(out) != "ok" {
		t.Fatalf("validate: %q %v", out, err)
	}
	if _, err := run(t, "", withArgs(global, "validate", `{"query":{"type":"match","field":"nope","value":"x"}}`)...); err == nil {
		t.Fatal("expected unknown field to fail validation")
	}

	out, err = run(t, "", withArgs(global, "index", "schema")...)
	if err != nil {
		t.Fatalf("index schema: %v", err)
	}
	for _, want := range []string{"FIELD", "age", "integer", "city"} {
		if !strings.Contains(out, want) {
			t.Fatalf("schema output missing %q:\n%s", want, out)
		}
	}

	out, err = run(t, "", withArgs(global, "cursor", "cleanup")...)
	if err != nil || strings.TrimSpace(out) != "removed 0 cursors" {
		t.Fatalf("cursor cleanup: %q %v", out, err)
	}
}

func TestPutIsAllOrNothing(t *testing.T) {
	global := newTestIndex(t)
	rows := `{"partition":"p0","key":"k9","columns":{"age":1}}
{"partition":"p0","columns":{"age":2}}
`
	_, err := run(t, rows, withArgs(global, "put")...)
	if err == nil || !strings.Contains(err.Error(), "batch row 2") {
		t.Fatalf("expected batch row 2 error, got %v", err)
	}
	if _, err := run(t, "", withArgs(global, "get", "p0", "k9")...); err == nil {
		t.Fatal("expected k9 to be absent after a failed batch")
	}
}

func TestOpenMissingIndex(t *testing.T) {
	_, err := run(t, "", "--sqlite-path", t.TempDir(), "-i", "missing", "index", "stats")
	if err == nil || !strings.Contains(err.Error(), "open index") {
		t.Fatalf("expected open error, got %v", err)
	}
	if _, err := run(t, "", "index", "stats"); err == nil || !strings.Contains(err.Error(), "missing --index") {
		t.Fatalf("expected missing index error, got %v", err)
	}
}

func TestResolveIndexRef(t *testing.T) {
	g := cliopt.DefaultGlobalOptions()
	g.SQLitePath = "/var/lib/colindex"

	tests := []struct {
		backend, index, want string
	}{
		{"sqlite", "people", filepath.Join("/var/lib/colindex", "people.db")},
		{"sqlite", "people.db", "people.db"},
		{"sqlite", "/tmp/x/people", "/tmp/x/people"},
		{"postgres", "people", "people"},
	}
	for _, tt := range tests {
		g.Backend = tt.backend
		if got := ResolveIndexRef(g, tt.index); got != tt.want {
			t.Fatalf("ResolveIndexRef(%s, %s) = %s, want %s", tt.backend, tt.index, got, tt.want)
		}
	}
}

func TestSearchWhere(t *testing.T) {
	global := newTestIndex(t)

	tests := []struct {
		args []string
		want string
	}{
		{[]string{"--where", "city:madrid age>=31", "--sort", "-age"}, "p1/k3\np1/k5\n"},
		{[]string{"--where", "NOT city:madrid", "--sort", "age"}, "p0/k2\np1/k4\n"},
		{[]string{"-w", "city:rome OR name:d*", "--sort", "name"}, "p0/k2\np1/k4\n"},
		{[]string{"--where", "age:30..35", "--sort", "-name", "--limit", "1"}, "p1/k5\n"},
	}
	for _, tt := range tests {
		out, err := run(t, "", withArgs(global, append([]string{"-o", "keys", "search"}, tt.args...)...)...)
		if err != nil {
			t.Fatalf("search %v: %v", tt.args, err)
		}
		if out != tt.want {
			t.Fatalf("search %v = %q, want %q", tt.args, out, tt.want)
		}
	}

	if _, err := run(t, "", withArgs(global, "search", "--where", "city:")...); err == nil || !strings.Contains(err.Error(), "--where") {
		t.Fatalf("expected --where parse error, got %v", err)
	}
	if _, err := run(t, "", withArgs(global, "search", "{}", "--sort", "age")...); err == nil {
		t.Fatal("expected JSON search with --sort to fail")
	}
}

func TestParseSortFlag(t *testing.T) {
	got := parseSortFlag(" age, -name ,,")
	want := []search.SortClause{{Field: "age"}, {Field: "name", Reverse: true}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("parseSortFlag = %v, want %v", got, want)
	}
}
