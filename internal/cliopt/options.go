// Package cliopt holds the global CLI options. Flags are bound on the root
// command and overlaid by a config file and COLINDEX_* environment
// variables.
package cliopt

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/colindex/colindex/colindex"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "COLINDEX"

// GlobalOptions are parsed once at the CLI root and passed to subcommands.
type GlobalOptions struct {
	// Index names the index: a sqlite file (or a name resolved under
	// SQLitePath) or a postgres schema.
	Index       string
	Backend     string
	Driver      string
	SQLitePath  string
	PostgresDSN string

	LogLevel  string
	LogFormat string
	Format    string

	Parallelism int
	CursorTTL   time.Duration
}

func DefaultGlobalOptions() GlobalOptions {
	return GlobalOptions{
		Backend:    "sqlite",
		Driver:     "sqlite",
		SQLitePath: ".",
		LogLevel:   "warn",
		LogFormat:  "text",
		Format:     "pretty",
		CursorTTL:  colindex.DefaultCursorTTL,
	}
}

// BindGlobalFlags registers the global flags on fs with defaults taken
// from g.
func BindGlobalFlags(fs *pflag.FlagSet, g GlobalOptions) {
	fs.String("config", "", "config file (yaml, json or toml)")
	fs.StringP("index", "i", g.Index, "index name, sqlite file or postgres schema")
	fs.String("backend", g.Backend, "backend: sqlite|postgres")
	fs.String("driver", g.Driver, "sqlite driver: sqlite (pure Go) or sqlite3 (cgo)")
	fs.String("sqlite-path", g.SQLitePath, "sqlite directory or explicit .db file path")
	fs.String("pg-dsn", g.PostgresDSN, "postgres DSN")
	fs.String("log-level", g.LogLevel, "log level: debug|info|warn|error")
	fs.String("log-format", g.LogFormat, "log format: text|json")
	fs.StringP("format", "o", g.Format, "output format: pretty|keys|json")
	fs.Int("parallelism", g.Parallelism, "partitions searched at once (0 = all)")
	fs.Duration("cursor-ttl", g.CursorTTL, "lifetime of short cursors")
}

// Load resolves the global options from fs. A flag set on the command line
// wins over the environment, which wins over the config file.
func Load(fs *pflag.FlagSet) (GlobalOptions, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return GlobalOptions{}, fmt.Errorf("bind flags: %w", err)
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return GlobalOptions{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	g := GlobalOptions{
		Index:       v.GetString("index"),
		Backend:     strings.ToLower(v.GetString("backend")),
		Driver:      v.GetString("driver"),
		SQLitePath:  v.GetString("sqlite-path"),
		PostgresDSN: v.GetString("pg-dsn"),
		LogLevel:    v.GetString("log-level"),
		LogFormat:   strings.ToLower(v.GetString("log-format")),
		Format:      strings.ToLower(v.GetString("format")),
		Parallelism: v.GetInt("parallelism"),
		CursorTTL:   v.GetDuration("cursor-ttl"),
	}
	return g, g.Validate()
}

// Validate checks option values that have a fixed set of choices.
func (g GlobalOptions) Validate() error {
	switch g.Backend {
	case "sqlite":
		if g.Driver != "sqlite" && g.Driver != "sqlite3" {
			return fmt.Errorf("unknown sqlite driver %q", g.Driver)
		}
	case "postgres":
		if g.PostgresDSN == "" {
			return fmt.Errorf("postgres backend needs --pg-dsn")
		}
	default:
		return fmt.Errorf("unknown backend %q", g.Backend)
	}
	switch g.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", g.LogFormat)
	}
	if g.Parallelism < 0 {
		return fmt.Errorf("parallelism must not be negative")
	}
	return nil
}
