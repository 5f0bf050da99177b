package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.HTTPPort)
	require.Equal(t, "localhost:7233", cfg.TemporalAddress)
	require.Equal(t, "licensing-housekeeping", cfg.TemporalTaskQueue)
	require.Equal(t, "localhost:9000", cfg.MinioEndpoint)
	require.Equal(t, 24*time.Hour, cfg.OrphanCollectionAge)
	require.Equal(t, int64(10*1024*1024), cfg.AllowedUploadBytes)
	require.Equal(t, "0.10", cfg.GSTRate.StringFixed(2))
	require.Equal(t, logrus.InfoLevel, cfg.LogrusLevel())
}

func TestLoadRequiresDSNForPostgres(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("POSTGRES_DSN", "")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.ErrorContains(t, err, "POSTGRES_DSN is required")
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.ErrorContains(t, err, "unknown STORE_DRIVER")
}

func TestLoadReadsEnvFile(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	// godotenv does not override variables that are already set, so
	// register cleanup for the keys the file introduces.
	for _, k := range []string{"HTTP_PORT", "LOG_LEVEL"} {
		k := k
		prev, had := os.LookupEnv(k)
		t.Cleanup(func() {
			if had {
				_ = os.Setenv(k, prev)
			} else {
				_ = os.Unsetenv(k)
			}
		})
		_ = os.Unsetenv(k)
	}

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("HTTP_PORT=9090\nLOG_LEVEL=debug\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "9090", cfg.HTTPPort)
	require.Equal(t, logrus.DebugLevel, cfg.LogrusLevel())
}
