package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithEnv(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DB_URL", "postgres://localhost/septic")
	t.Setenv("CANCELLATION_LIMIT", "")
	t.Setenv("PORT", "9090")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 3, cfg.Booking.CancellationLimit)
	assert.Equal(t, "local", cfg.Storage.Driver)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Same(t, cfg, AppConfig)
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DB_URL", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadTOMLFileThenEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[server]
port = "7000"

[database]
url = "postgres://file/septic"

[booking]
cancellation_limit = 5

[redis]
address = "localhost:6379"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("DB_URL", "")
	t.Setenv("PORT", "")
	t.Setenv("CANCELLATION_LIMIT", "4")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, "postgres://file/septic", cfg.Database.URL)
	assert.Equal(t, 4, cfg.Booking.CancellationLimit)
	assert.Equal(t, "localhost:6379", cfg.Redis.Address)
}

func TestValidateStorageDriver(t *testing.T) {
	cfg := defaults()
	cfg.Database.URL = "postgres://x"

	cfg.Storage.Driver = "cloudinary"
	assert.Error(t, cfg.Validate())

	cfg.Storage.CloudinaryCloudName = "demo"
	cfg.Storage.CloudinaryAPIKey = "key"
	cfg.Storage.CloudinaryAPISecret = "secret"
	assert.NoError(t, cfg.Validate())

	cfg.Storage.Driver = "ftp"
	assert.Error(t, cfg.Validate())
}
