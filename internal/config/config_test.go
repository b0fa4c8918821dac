package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nosyt-lien/preql/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"DATABASE_URL", "PREQL_DATABASE_URI", "PREQL_FORMAT", "PREQL_DEBUG", "PREQL_PAGE_SIZE"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load(afero.NewMemMapFs())
	require.NoError(t, err)
	assert.Equal(t, "sqlite://:memory:", cfg.DatabaseURI)
	assert.False(t, cfg.Debug)
	assert.Equal(t, "text", cfg.Format)
	assert.Equal(t, 20, cfg.PageSize)
	assert.Equal(t, 10*time.Second, cfg.ConnectTimeout)
}

func TestLoad_ConfigFile(t *testing.T) {
	clearEnv(t)
	wd, err := os.Getwd()
	require.NoError(t, err)

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, filepath.Join(wd, ".preql.yaml"), []byte(`
database_uri: sqlite://app.db
format: json
page_size: 5
connect_timeout: 3s
`), 0o644))

	cfg, err := config.Load(fs)
	require.NoError(t, err)
	assert.Equal(t, "sqlite://app.db", cfg.DatabaseURI)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, 5, cfg.PageSize)
	assert.Equal(t, 3*time.Second, cfg.ConnectTimeout)
}

func TestLoad_Environment(t *testing.T) {
	clearEnv(t)
	t.Setenv("PREQL_FORMAT", "json")
	t.Setenv("DATABASE_URL", "postgres://localhost/films")

	cfg, err := config.Load(afero.NewMemMapFs())
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "postgres://localhost/films", cfg.DatabaseURI)

	t.Setenv("PREQL_DATABASE_URI", "mysql://root@localhost/films")
	cfg, err = config.Load(afero.NewMemMapFs())
	require.NoError(t, err)
	assert.Equal(t, "mysql://root@localhost/films", cfg.DatabaseURI)
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	t.Cleanup(func() { os.Unsetenv("PREQL_DATABASE_URI") })

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, ".env", []byte("PREQL_DATABASE_URI=sqlite://from-env.db\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, ".env.local", []byte("PREQL_DATABASE_URI=sqlite://from-local.db\n"), 0o644))

	cfg, err := config.Load(fs)
	require.NoError(t, err)
	assert.Equal(t, "sqlite://from-local.db", cfg.DatabaseURI)
}

func TestValidate(t *testing.T) {
	good := config.Config{Format: "text", PageSize: 10, ConnectTimeout: time.Second}
	assert.NoError(t, good.Validate())

	bad := good
	bad.Format = "xml"
	assert.Error(t, bad.Validate())

	bad = good
	bad.PageSize = 0
	assert.Error(t, bad.Validate())
}
