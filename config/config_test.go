package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "3002", cfg.PortFor(ServicePost))
	assert.Equal(t, "8080", cfg.PortFor(ServiceGateway))
	assert.Equal(t, []string{"*"}, cfg.App.AllowedOrigins)
	assert.Equal(t, []string{"/api/v1/auth/"}, cfg.Auth.PublicPrefixes)
	assert.Equal(t, 10, cfg.Services.TimeoutSeconds)
	assert.True(t, cfg.Outbox.Enabled)
	assert.Empty(t, cfg.Auth.JWTSecret)
	assert.False(t, cfg.Redis.Enabled())
}

func TestLoadFileThenEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{
  "app": {"worker_port": "4001", "allowed_origins": ["https://dash.example.org"]},
  "database": {"driver": "mysql", "host": "db.internal", "name": "patrol"},
  "services": {"worker_url": "http://workers:3001"}
}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	t.Setenv("DB_HOST", "db.override")
	t.Setenv("SERVICES_TIMEOUT_SECONDS", "3")
	t.Setenv("APP_PORT", "9999")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, "db.override", cfg.Database.Host)
	assert.Equal(t, "patrol", cfg.Database.Name)
	assert.Equal(t, "http://workers:3001", cfg.Services.WorkerURL)
	assert.Equal(t, 3, cfg.Services.TimeoutSeconds)
	assert.Equal(t, "4001", cfg.App.WorkerPort)
	assert.Equal(t, "9999", cfg.PortFor(ServiceWorker))
	assert.Equal(t, []string{"https://dash.example.org"}, cfg.App.AllowedOrigins)
}

func TestLoadRejectsBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)

	assert.Error(t, cfg.Validate(ServiceUser))
	assert.Error(t, cfg.Validate(ServiceGateway))
	assert.NoError(t, cfg.Validate(ServiceWorker))
	assert.NoError(t, cfg.Validate(ServicePost))
	assert.Error(t, cfg.Validate("billing"))

	cfg.Auth.JWTSecret = "s3cr3t"
	assert.NoError(t, cfg.Validate(ServiceUser))
	assert.NoError(t, cfg.Validate(ServiceGateway))

	cfg.Storage.Driver = "s3"
	assert.Error(t, cfg.Validate(ServicePost))
}

func TestInitDatabaseSQLite(t *testing.T) {
	type probe struct {
		ID   uint
		Name string
	}
	cfg := AppConfig{
		Database: DatabaseConfig{Driver: "sqlite", DSN: "file:config_probe?mode=memory&cache=shared", AutoMigrate: true},
		Log:      LogConfig{Level: "silent"},
	}
	db, err := InitDatabase(cfg, &probe{})
	require.NoError(t, err)
	require.NoError(t, db.Create(&probe{Name: "x"}).Error)

	var n int64
	require.NoError(t, db.Model(&probe{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)

	_, err = InitDatabase(AppConfig{Database: DatabaseConfig{Driver: "oracle"}})
	assert.Error(t, err)
}
