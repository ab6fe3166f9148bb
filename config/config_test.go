package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, ":8080", cfg.Addr())
	require.Equal(t, DriverMemory, cfg.StoreDriver)
	require.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	require.Len(t, cfg.Images, 8)
	require.True(t, cfg.DBMigrate)
}

func TestLoadFrom_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := "store_driver: mysql\nport: \"9000\"\ndb_name: annotations\nhttp_timeout: 3s\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("PORT", "9100")
	t.Setenv("ADMIN_CHAT_ID", "42")

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	require.Equal(t, DriverMySQL, cfg.StoreDriver)
	require.Equal(t, "9100", cfg.Port)
	require.Equal(t, "annotations", cfg.DBName)
	require.Equal(t, 3*time.Second, cfg.HTTPTimeout)
	require.Equal(t, int64(42), cfg.AdminChatID)
}

func TestLoadFrom_InvalidDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")

	_, err := LoadFrom(t.TempDir())
	require.Error(t, err)
}

func TestLoadFrom_EmptyServerURLDisablesSync(t *testing.T) {
	t.Setenv("SERVER_URL", "")

	cfg, err := LoadFrom(t.TempDir())
	require.NoError(t, err)
	require.Empty(t, cfg.ServerURL)
}
