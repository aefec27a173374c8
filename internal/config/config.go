package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	BackendPostgres = "postgres"
	BackendSupabase = "supabase"
	BackendMemory   = "memory"
)

type DBConfig struct {
	URL             string
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	ConnectTimeout  time.Duration
	RunMigrations   bool
}

// DSN returns DATABASE_URL when set, otherwise a key/value DSN built from the parts.
func (d DBConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s connect_timeout=%d",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode, int(d.ConnectTimeout.Seconds()))
}

type Config struct {
	Port        string
	Environment string
	LogLevel    string
	Storage     string
	FrontendURL string
	CORSOrigins []string

	DB DBConfig

	JWTSecret     string
	JWTExpiresIn  time.Duration
	SessionSecret string
	SessionTTL    time.Duration

	SupabaseURL            string
	SupabaseAnonKey        string
	SupabaseServiceRoleKey string

	MongoDBURI      string
	MongoDBPassword string
	MongoDBDatabase string

	RedisAddr       string
	RedisPassword   string
	RateLimit       int
	RateLimitWindow time.Duration

	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:        getEnvWithDefault("PORT", "8080"),
		Environment: getEnvWithDefault("ENVIRONMENT", "development"),
		LogLevel:    getEnvWithDefault("LOG_LEVEL", "info"),
		Storage:     strings.ToLower(getEnvWithDefault("STORAGE_BACKEND", BackendPostgres)),
		FrontendURL: getEnvWithDefault("FRONTEND_URL", "http://localhost:3000"),
		DB: DBConfig{
			URL:             os.Getenv("DATABASE_URL"),
			Host:            getEnvWithDefault("DB_HOST", "localhost"),
			Port:            getEnvWithDefault("DB_PORT", "5432"),
			User:            getEnvWithDefault("DB_USER", "postgres"),
			Password:        getEnvWithDefault("DB_PASSWORD", "postgres"),
			Name:            getEnvWithDefault("DB_NAME", "homeswift"),
			SSLMode:         getEnvWithDefault("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 10*time.Second),
			ConnectTimeout:  getEnvAsDuration("DB_CONNECT_TIMEOUT", 30*time.Second),
			RunMigrations:   getEnvAsBool("RUN_MIGRATIONS", true),
		},
		JWTSecret:              os.Getenv("JWT_SECRET"),
		JWTExpiresIn:           getEnvAsDuration("JWT_EXPIRES_IN", 7*24*time.Hour),
		SessionSecret:          os.Getenv("SESSION_SECRET"),
		SessionTTL:             getEnvAsDuration("SESSION_TTL", 24*time.Hour),
		SupabaseURL:            strings.TrimRight(os.Getenv("SUPABASE_URL"), "/"),
		SupabaseAnonKey:        os.Getenv("SUPABASE_ANON_KEY"),
		SupabaseServiceRoleKey: os.Getenv("SUPABASE_SERVICE_ROLE_KEY"),
		MongoDBURI:             os.Getenv("MONGODB_URI"),
		MongoDBPassword:        os.Getenv("MONGODB_PASSWORD"),
		MongoDBDatabase:        getEnvWithDefault("MONGODB_DATABASE", "homeswift"),
		RedisAddr:              os.Getenv("REDIS_ADDR"),
		RedisPassword:          os.Getenv("REDIS_PASSWORD"),
		RateLimit:              getEnvAsInt("RATE_LIMIT", 20),
		RateLimitWindow:        getEnvAsDuration("RATE_LIMIT_WINDOW", time.Minute),
		CloudinaryCloudName:    os.Getenv("CLOUDINARY_CLOUD_NAME"),
		CloudinaryAPIKey:       os.Getenv("CLOUDINARY_API_KEY"),
		CloudinaryAPISecret:    os.Getenv("CLOUDINARY_API_SECRET"),
	}
	cfg.CORSOrigins = getEnvAsSlice("CORS_ORIGINS", []string{cfg.FrontendURL})

	// Production talks to the Supabase-hosted Postgres unless told otherwise.
	if cfg.DB.URL == "" && cfg.IsProduction() {
		cfg.DB.URL = os.Getenv("SUPABASE_DB_URL")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage {
	case BackendPostgres, BackendMemory:
	case BackendSupabase:
		if !c.SupabaseEnabled() {
			return fmt.Errorf("STORAGE_BACKEND=supabase requires SUPABASE_URL and a Supabase key")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_BACKEND %q (expected postgres, supabase or memory)", c.Storage)
	}

	if c.JWTSecret == "" {
		if !c.IsDevelopment() {
			return fmt.Errorf("JWT_SECRET is required")
		}
		c.JWTSecret = "homeswift-dev-secret"
	}
	if c.SessionSecret == "" {
		c.SessionSecret = c.JWTSecret
	}
	if c.RateLimit <= 0 {
		return fmt.Errorf("RATE_LIMIT must be positive")
	}
	return nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// SupabaseKey prefers the service role key for server-side calls.
func (c *Config) SupabaseKey() string {
	if c.SupabaseServiceRoleKey != "" {
		return c.SupabaseServiceRoleKey
	}
	return c.SupabaseAnonKey
}

func (c *Config) SupabaseEnabled() bool {
	return c.SupabaseURL != "" && c.SupabaseKey() != ""
}

func (c *Config) MongoEnabled() bool {
	return c.MongoDBURI != ""
}

func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

func (c *Config) CloudinaryEnabled() bool {
	return c.CloudinaryCloudName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}
