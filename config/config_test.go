package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir moves into an empty directory so a stray .env is not picked up.
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "release", cfg.Server.Mode)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "app.db", cfg.Database.DSN)
	assert.Equal(t, 10, cfg.Database.MaxOpenConns)
	assert.Equal(t, 5, cfg.Database.MaxIdleConns)
	assert.Equal(t, 5*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/mymodels", cfg.Views.Path)
	assert.Equal(t, "/class_mymodels", cfg.Views.ClassPath)
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdir(t)
	t.Setenv("MYMODELS_SERVER_ADDR", ":9090")
	t.Setenv("MYMODELS_DATABASE_DRIVER", "postgres")
	t.Setenv("MYMODELS_DATABASE_DSN", "host=localhost dbname=mymodels")
	t.Setenv("MYMODELS_SERVER_SHUTDOWN_TIMEOUT", "15s")
	t.Setenv("MYMODELS_METRICS_ENABLED", "false")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "host=localhost dbname=mymodels", cfg.Database.DSN)
	assert.Equal(t, 15*time.Second, cfg.Server.ShutdownTimeout)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoad_File(t *testing.T) {
	dir := chdir(t)
	path := filepath.Join(dir, "config.yaml")
	content := "server:\n  addr: \":7000\"\nlog:\n  level: debug\n  format: console\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	// untouched keys keep their defaults
	assert.Equal(t, "sqlite", cfg.Database.Driver)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := chdir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("MYMODELS_DATABASE_DSN=from-dotenv.db\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("MYMODELS_DATABASE_DSN") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv.db", cfg.Database.DSN)
}

func TestLoad_MissingFile(t *testing.T) {
	chdir(t)
	_, err := Load("does-not-exist.yaml")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	chdir(t)
	cfg, err := Load("")
	require.NoError(t, err)

	bad := *cfg
	bad.Database.Driver = "mysql"
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.Log.Format = "xml"
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.Server.Mode = "verbose"
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.Views.ClassPath = bad.Views.Path
	assert.Error(t, bad.Validate())
}
