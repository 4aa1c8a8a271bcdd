package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/colindex/colindex/colindex/storage"
	"github.com/colindex/colindex/colindex/storage/sqlbuilder"
)

// Driver names. DriverModernc is the pure Go driver registered by
// modernc.org/sqlite; DriverMattn is the cgo driver registered by
// github.com/mattn/go-sqlite3.
const (
	DriverModernc = "sqlite"
	DriverMattn   = "sqlite3"
)

type Adapter struct {
	Path       string
	DriverName string
}

func New(path string) *Adapter {
	return &Adapter{Path: path, DriverName: DriverModernc}
}

func NewWithDriver(path, driver string) *Adapter {
	return &Adapter{Path: path, DriverName: driver}
}

func (a *Adapter) Backend() storage.Backend {
	return storage.BackendSQLite
}

func (a *Adapter) PlaceholderStyle() sqlbuilder.PlaceholderStyle {
	return sqlbuilder.PlaceholderQuestion
}

func (a *Adapter) IndexID() string {
	return a.Path
}

// dsn adds the busy timeout and foreign key settings in the form the
// selected driver understands.
func (a *Adapter) dsn() string {
	var params string
	switch a.DriverName {
	case DriverMattn:
		params = "_busy_timeout=5000&_foreign_keys=on"
	default:
		params = "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	}
	if strings.Contains(a.Path, "?") {
		return a.Path + "&" + params
	}
	return a.Path + "?" + params
}

func (a *Adapter) Connect(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open(a.DriverName, a.dsn())
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func (a *Adapter) Close() error {
	return nil
}

func (a *Adapter) SQL() storage.SQL {
	return SQLTemplates
}

func (a *Adapter) CreateIndex(ctx context.Context, db *sql.DB, schemaJSON []byte) error {
	if _, err := db.ExecContext(ctx, ddlBase); err != nil {
		return err
	}
	_, _ = db.ExecContext(ctx, "PRAGMA journal_mode=WAL;")
	_, _ = db.ExecContext(ctx, "PRAGMA synchronous=NORMAL;")

	sqlt := a.SQL()
	if _, err := db.ExecContext(ctx, sqlt.SetMeta, storage.MetaMagic, storage.Magic); err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, sqlt.SetMeta, storage.MetaVersion, storage.Version); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx, sqlt.SetMeta, storage.MetaSchema, string(schemaJSON))
	return err
}

func (a *Adapter) OpenIndex(ctx context.Context, db *sql.DB) ([]byte, error) {
	sqlt := a.SQL()
	var magic string
	if err := db.QueryRowContext(ctx, sqlt.GetMeta, storage.MetaMagic).Scan(&magic); err != nil {
		return nil, err
	}
	if magic != storage.Magic {
		return nil, fmt.Errorf("not a colindex db")
	}
	var schemaStr string
	if err := db.QueryRowContext(ctx, sqlt.GetMeta, storage.MetaSchema).Scan(&schemaStr); err != nil {
		return nil, err
	}
	return []byte(schemaStr), nil
}

func (a *Adapter) Optimize(ctx context.Context, db *sql.DB) error {
	_, _ = db.ExecContext(ctx, "VACUUM")
	return nil
}
