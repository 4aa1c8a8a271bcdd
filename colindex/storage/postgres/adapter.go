package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/colindex/colindex/colindex/storage"
	"github.com/colindex/colindex/colindex/storage/sqlbuilder"
)

type Adapter struct {
	DSN    string
	Schema string // used as dedicated schema via search_path
}

func New(dsn, schema string) *Adapter {
	return &Adapter{DSN: dsn, Schema: schema}
}

func (a *Adapter) Backend() storage.Backend { return storage.BackendPostgres }

func (a *Adapter) PlaceholderStyle() sqlbuilder.PlaceholderStyle { return sqlbuilder.PlaceholderDollar }

func (a *Adapter) IndexID() string { return "postgres:" + a.Schema }

func (a *Adapter) Close() error { return nil }

func (a *Adapter) SQL() storage.SQL { return SQLTemplates }

var schemaNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func quoteIdent(ident string) string {
	// ident is validated to contain no quotes
	return `"` + ident + `"`
}

func (a *Adapter) validSchema() error {
	if a.Schema == "" || !schemaNameRe.MatchString(a.Schema) {
		return fmt.Errorf("invalid postgres schema name %q (must match %s)", a.Schema, schemaNameRe.String())
	}
	return nil
}

func (a *Adapter) ensureSchema(ctx context.Context, db *sql.DB) error {
	if err := a.validSchema(); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+quoteIdent(a.Schema))
	return err
}

// config parses the DSN and pins search_path to the index schema, with
// public as a fallback for built-ins.
func (a *Adapter) config() (*pgx.ConnConfig, error) {
	cfg, err := pgx.ParseConfig(a.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.RuntimeParams == nil {
		cfg.RuntimeParams = make(map[string]string)
	}
	cfg.RuntimeParams["search_path"] = fmt.Sprintf("%s,public", quoteIdent(a.Schema))
	return cfg, nil
}

func (a *Adapter) Connect(ctx context.Context) (*sql.DB, error) {
	if err := a.validSchema(); err != nil {
		return nil, err
	}
	cfg0, err := pgx.ParseConfig(a.DSN)
	if err != nil {
		return nil, err
	}
	db0 := stdlib.OpenDB(*cfg0)
	if err := db0.PingContext(ctx); err != nil {
		_ = db0.Close()
		return nil, err
	}
	if err := a.ensureSchema(ctx, db0); err != nil {
		_ = db0.Close()
		return nil, err
	}
	_ = db0.Close()

	cfg, err := a.config()
	if err != nil {
		return nil, err
	}
	db := stdlib.OpenDB(*cfg)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func (a *Adapter) CreateIndex(ctx context.Context, db *sql.DB, schemaJSON []byte) error {
	if _, err := db.ExecContext(ctx, ddlBase); err != nil {
		return err
	}
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
	_, _ = db.ExecContext(ctx, "ANALYZE")
	return nil
}
