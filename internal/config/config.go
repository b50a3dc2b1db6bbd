package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Database
	DatabaseURL       string
	DBHost            string
	DBPort            string
	DBUser            string
	DBPassword        string
	DBName            string
	DBSSLMode         string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	// Server
	Port            string
	MCPPort         string
	CORSOrigins     string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// MCP
	MCPServerName    string
	MCPServerVersion string

	// Observability
	AppEnv       string
	LogLevel     string
	LogRetention time.Duration
	SentryDSN    string
}

// Load reads the configuration from the environment. A .env file in the
// working directory is loaded first when present; real environment variables
// take precedence over it.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnv("DB_PORT", "5432"),
		DBUser:            getEnv("DB_USER", "postgres"),
		DBPassword:        getEnv("DB_PASSWORD", ""),
		DBName:            getEnv("DB_NAME", "users"),
		DBSSLMode:         getEnv("DB_SSLMODE", "disable"),
		DBMaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 20),
		DBMaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 10),
		DBConnMaxLifetime: parseDuration(getEnv("DB_CONN_MAX_LIFETIME", "30m"), 30*time.Minute),

		Port:            getEnv("PORT", "3000"),
		MCPPort:         getEnv("MCP_PORT", "8000"),
		CORSOrigins:     getEnv("CORS_ORIGIN", "*"),
		ReadTimeout:     parseDuration(getEnv("SERVER_READ_TIMEOUT", "10s"), 10*time.Second),
		WriteTimeout:    parseDuration(getEnv("SERVER_WRITE_TIMEOUT", "30s"), 30*time.Second),
		ShutdownTimeout: parseDuration(getEnv("SHUTDOWN_TIMEOUT", "10s"), 10*time.Second),

		MCPServerName:    getEnv("MCP_SERVER_NAME", "users"),
		MCPServerVersion: getEnv("MCP_SERVER_VERSION", "1.0.0"),

		AppEnv:       getEnv("APP_ENV", "development"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogRetention: parseDuration(getEnv("LOG_RETENTION", "720h"), 30*24*time.Hour),
		SentryDSN:    getEnv("SENTRY_DSN", ""),
	}

	// DB_HOST or DB_PASSWORD opts into building the DSN from DB_* parts
	if cfg.DatabaseURL == "" && (os.Getenv("DB_HOST") != "" || cfg.DBPassword != "") {
		cfg.DatabaseURL = cfg.DSN()
	}

	return cfg
}

// Validate reports configuration that would keep the servers from starting.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL (or DB_HOST with the other DB_* variables) is required")
	}
	if c.Port == c.MCPPort {
		return errors.New("PORT and MCP_PORT must differ")
	}
	return nil
}

// DSN builds a key=value Postgres DSN; an empty password is left out.
func (c *Config) DSN() string {
	dsn := "host=" + c.DBHost + " user=" + c.DBUser
	if c.DBPassword != "" {
		dsn += " password=" + c.DBPassword
	}
	return dsn +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// AllowedOrigins splits CORS_ORIGIN on commas.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
