package cliopt

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, args ...string) (GlobalOptions, error) {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindGlobalFlags(fs, DefaultGlobalOptions())
	require.NoError(t, fs.Parse(args))
	return Load(fs)
}

func TestLoadDefaults(t *testing.T) {
	g, err := parse(t)
	require.NoError(t, err)
	assert.Equal(t, DefaultGlobalOptions(), g)
}

func TestLoadPrecedence(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "colindex.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("sqlite-path: /from/config\nformat: json\nparallelism: 2\ncursor-ttl: 5m\n"), 0o644))

	t.Setenv("COLINDEX_FORMAT", "keys")
	t.Setenv("COLINDEX_LOG_LEVEL", "debug")

	g, err := parse(t, "--config", cfg, "--parallelism", "4")
	require.NoError(t, err)
	assert.Equal(t, "/from/config", g.SQLitePath)
	assert.Equal(t, "keys", g.Format)
	assert.Equal(t, "debug", g.LogLevel)
	assert.Equal(t, 4, g.Parallelism)
	assert.Equal(t, 5*time.Minute, g.CursorTTL)
}

func TestLoadMissingConfigFile(t *testing.T) {
	_, err := parse(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*GlobalOptions)
		want string
	}{
		{"unknown backend", func(g *GlobalOptions) { g.Backend = "redis" }, `unknown backend "redis"`},
		{"unknown driver", func(g *GlobalOptions) { g.Driver = "cgo" }, `unknown sqlite driver "cgo"`},
		{"postgres without dsn", func(g *GlobalOptions) { g.Backend = "postgres" }, "needs --pg-dsn"},
		{"log format", func(g *GlobalOptions) { g.LogFormat = "xml" }, `unknown log format "xml"`},
		{"parallelism", func(g *GlobalOptions) { g.Parallelism = -1 }, "must not be negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := DefaultGlobalOptions()
			tt.mod(&g)
			err := g.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	g := DefaultGlobalOptions()
	g.Driver = "sqlite3"
	assert.NoError(t, g.Validate())
}
