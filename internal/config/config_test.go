package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("STORAGE_BACKEND", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_MAX_OPEN_CONNS", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, BackendPostgres, cfg.Storage)
	assert.Equal(t, 10, cfg.DB.MaxOpenConns)
	assert.Equal(t, 5, cfg.DB.MaxIdleConns)
	assert.Equal(t, 30*time.Second, cfg.DB.ConnectTimeout)
	assert.Equal(t, 10*time.Second, cfg.DB.ConnMaxIdleTime)
	assert.NotEmpty(t, cfg.JWTSecret, "development falls back to a dev secret")
	assert.Equal(t, cfg.JWTSecret, cfg.SessionSecret)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
}

func TestLoadConfig_ProductionRequiresJWTSecret(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("STORAGE_BACKEND", "memory")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoadConfig_ProductionUsesSupabaseDB(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORAGE_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SUPABASE_DB_URL", "postgres://supa@db.example.co:5432/postgres")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "postgres://supa@db.example.co:5432/postgres", cfg.DB.DSN())
}

func TestLoadConfig_SupabaseBackendNeedsCredentials(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("STORAGE_BACKEND", "supabase")
	t.Setenv("SUPABASE_URL", "")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfig_UnknownBackend(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("STORAGE_BACKEND", "sqlite")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("X_INT", "nope")
	t.Setenv("X_DUR", "90s")
	t.Setenv("X_BOOL", "false")
	t.Setenv("X_SLICE", " a, ,b ")

	assert.Equal(t, 7, getEnvAsInt("X_INT", 7))
	assert.Equal(t, 90*time.Second, getEnvAsDuration("X_DUR", time.Second))
	assert.False(t, getEnvAsBool("X_BOOL", true))
	assert.Equal(t, []string{"a", "b"}, getEnvAsSlice("X_SLICE", nil))
}

func TestDBConfig_DSNFromParts(t *testing.T) {
	d := DBConfig{Host: "h", Port: "1", User: "u", Password: "p", Name: "n", SSLMode: "disable", ConnectTimeout: 30 * time.Second}
	assert.Equal(t, "host=h port=1 user=u password=p dbname=n sslmode=disable connect_timeout=30", d.DSN())
}
