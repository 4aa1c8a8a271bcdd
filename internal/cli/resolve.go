package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/colindex/colindex/colindex/storage"
	"github.com/colindex/colindex/colindex/storage/postgres"
	"github.com/colindex/colindex/colindex/storage/sqlite"
	"github.com/colindex/colindex/internal/cliopt"
)

// ResolveIndexRef transforms the user-provided -i/--index value into a backend-specific reference.
//
//   - sqlite: if index contains a path separator or ends with .db, treat as explicit path.
//     else: <SQLitePath>/<name>.db
//   - postgres: return the name as-is; it becomes the index schema.
func ResolveIndexRef(g cliopt.GlobalOptions, index string) string {
	switch g.Backend {
	case "sqlite":
		if strings.Contains(index, string(filepath.Separator)) || strings.HasSuffix(index, ".db") {
			return index
		}
		return filepath.Join(g.SQLitePath, index+".db")
	default:
		return index
	}
}

// adapterFor returns the storage adapter of the index named in g. With
// create set, the sqlite directory is made when missing.
func adapterFor(g cliopt.GlobalOptions, create bool) (storage.Adapter, error) {
	if g.Index == "" {
		return nil, fmt.Errorf("missing --index")
	}
	ref := ResolveIndexRef(g, g.Index)
	switch g.Backend {
	case "postgres":
		return postgres.New(g.PostgresDSN, ref), nil
	default:
		if create {
			if err := os.MkdirAll(filepath.Dir(ref), 0o755); err != nil {
				return nil, fmt.Errorf("create index directory: %w", err)
			}
		} else if _, err := os.Stat(ref); err != nil {
			return nil, fmt.Errorf("open index %s: %w", ref, err)
		}
		return sqlite.NewWithDriver(ref, g.Driver), nil
	}
}
