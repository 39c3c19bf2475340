package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Save original env vars and restore after tests
	originalEnv := map[string]string{
		"LEDGERDOCS_APP_NAME":            os.Getenv("LEDGERDOCS_APP_NAME"),
		"LEDGERDOCS_APP_ENV":             os.Getenv("LEDGERDOCS_APP_ENV"),
		"LEDGERDOCS_APP_PORT":            os.Getenv("LEDGERDOCS_APP_PORT"),
		"LEDGERDOCS_DATABASE_HOST":       os.Getenv("LEDGERDOCS_DATABASE_HOST"),
		"LEDGERDOCS_DATABASE_PORT":       os.Getenv("LEDGERDOCS_DATABASE_PORT"),
		"LEDGERDOCS_DATABASE_USER":       os.Getenv("LEDGERDOCS_DATABASE_USER"),
		"LEDGERDOCS_DATABASE_PASSWORD":   os.Getenv("LEDGERDOCS_DATABASE_PASSWORD"),
		"LEDGERDOCS_DATABASE_DBNAME":     os.Getenv("LEDGERDOCS_DATABASE_DBNAME"),
		"LEDGERDOCS_DATABASE_SSLMODE":    os.Getenv("LEDGERDOCS_DATABASE_SSLMODE"),
		"LEDGERDOCS_VAULT_IDENTITY":      os.Getenv("LEDGERDOCS_VAULT_IDENTITY"),
		"LEDGERDOCS_STORAGE_BUCKET":      os.Getenv("LEDGERDOCS_STORAGE_BUCKET"),
		"LEDGERDOCS_STORAGE_ACCESS_KEY":  os.Getenv("LEDGERDOCS_STORAGE_ACCESS_KEY"),
		"LEDGERDOCS_STORAGE_SECRET_KEY":  os.Getenv("LEDGERDOCS_STORAGE_SECRET_KEY"),
		"LEDGERDOCS_EXTRACTION_BASE_URL": os.Getenv("LEDGERDOCS_EXTRACTION_BASE_URL"),
		"LEDGERDOCS_QUEUE_WORKERS":       os.Getenv("LEDGERDOCS_QUEUE_WORKERS"),
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	clearEnv := func() {
		for k := range originalEnv {
			os.Unsetenv(k)
		}
	}

	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearEnv()

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "ledgerdocs-backend", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "ledgerdocs", cfg.Database.DBName)
		assert.Equal(t, "disable", cfg.Database.SSLMode)
		assert.Equal(t, "ledgerdocs-documents", cfg.Storage.Bucket)
		assert.Equal(t, "extraction:jobs", cfg.Queue.Key)
		assert.Equal(t, 4, cfg.Queue.Workers)
		assert.Equal(t, 3, cfg.Queue.MaxAttempts)
		assert.Equal(t, 1024, cfg.Audit.BufferSize)
		assert.Empty(t, cfg.Vault.Identity)
	})

	t.Run("loads values from environment variables with LEDGERDOCS prefix", func(t *testing.T) {
		clearEnv()
		os.Setenv("LEDGERDOCS_APP_NAME", "test-app")
		os.Setenv("LEDGERDOCS_APP_PORT", "9000")
		os.Setenv("LEDGERDOCS_DATABASE_HOST", "testdb.local")
		os.Setenv("LEDGERDOCS_DATABASE_PORT", "5433")
		os.Setenv("LEDGERDOCS_DATABASE_USER", "testuser")
		os.Setenv("LEDGERDOCS_DATABASE_PASSWORD", "testpass")
		os.Setenv("LEDGERDOCS_VAULT_IDENTITY", "AGE-SECRET-KEY-1TEST")
		os.Setenv("LEDGERDOCS_QUEUE_WORKERS", "8")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "test-app", cfg.App.Name)
		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, "testuser", cfg.Database.User)
		assert.Equal(t, "testpass", cfg.Database.Password)
		assert.Equal(t, "AGE-SECRET-KEY-1TEST", cfg.Vault.Identity)
		assert.Equal(t, 8, cfg.Queue.Workers)
	})

	t.Run("production requires hardened settings", func(t *testing.T) {
		clearEnv()
		os.Setenv("LEDGERDOCS_APP_ENV", "production")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password")

		os.Setenv("LEDGERDOCS_DATABASE_PASSWORD", "secret")
		os.Setenv("LEDGERDOCS_DATABASE_SSLMODE", "require")
		_, err = Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "vault.identity")

		os.Setenv("LEDGERDOCS_VAULT_IDENTITY", "AGE-SECRET-KEY-1TEST")
		os.Setenv("LEDGERDOCS_STORAGE_ACCESS_KEY", "minio")
		os.Setenv("LEDGERDOCS_STORAGE_SECRET_KEY", "minio123")
		os.Setenv("LEDGERDOCS_EXTRACTION_BASE_URL", "https://extract.internal")
		_, err = Load()
		assert.NoError(t, err)
	})
}

func TestDatabaseConfigDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "db.internal",
		Port:     5432,
		User:     "ledger",
		Password: "p@ss/word",
		DBName:   "ledgerdocs",
		SSLMode:  "require",
	}

	dsn := cfg.DSN()
	assert.Contains(t, dsn, "postgres://")
	assert.Contains(t, dsn, "db.internal:5432")
	assert.Contains(t, dsn, "sslmode=require")
	// Special characters in the password must be escaped.
	assert.NotContains(t, dsn, "p@ss/word")
}
