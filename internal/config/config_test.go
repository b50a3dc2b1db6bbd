package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "")
	t.Setenv("DB_PASSWORD", "")
	t.Setenv("PORT", "")
	t.Setenv("MCP_PORT", "")
	t.Setenv("CORS_ORIGIN", "")
	t.Setenv("APP_ENV", "")

	c := Load()
	require.NotNil(t, c)

	assert.Equal(t, "3000", c.Port)
	assert.Equal(t, "8000", c.MCPPort)
	assert.Equal(t, "*", c.CORSOrigins)
	assert.Equal(t, "users", c.MCPServerName)
	assert.Equal(t, "1.0.0", c.MCPServerVersion)
	assert.Equal(t, 30*24*time.Hour, c.LogRetention)
	assert.False(t, c.IsProduction())
	assert.Empty(t, c.DatabaseURL)
	assert.Error(t, c.Validate())
}

func TestLoad_BuildsDSNFromParts(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_PASSWORD", "pw")
	t.Setenv("DB_NAME", "accounts")

	c := Load()
	assert.Equal(t, "host=db user=app password=pw dbname=accounts port=5432 sslmode=disable TimeZone=UTC", c.DatabaseURL)
	assert.NoError(t, c.Validate())
}

func TestLoad_PasswordlessDSNFromHost(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_USER", "dev")
	t.Setenv("DB_PASSWORD", "")
	t.Setenv("DB_NAME", "")
	t.Setenv("DB_PORT", "")
	t.Setenv("DB_SSLMODE", "")

	c := Load()
	assert.Equal(t, "host=localhost user=dev dbname=users port=5432 sslmode=disable TimeZone=UTC", c.DatabaseURL)
	assert.NoError(t, c.Validate())
}

func TestLoad_DatabaseURLWins(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/users")
	t.Setenv("DB_PASSWORD", "ignored")

	c := Load()
	assert.Equal(t, "postgres://u:p@localhost:5432/users", c.DatabaseURL)
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "many")
	t.Setenv("SERVER_READ_TIMEOUT", "soon")

	c := Load()
	assert.Equal(t, 20, c.DBMaxOpenConns)
	assert.Equal(t, 10*time.Second, c.ReadTimeout)
}

func TestValidate_SamePorts(t *testing.T) {
	c := &Config{DatabaseURL: "sqlite://x.db", Port: "9000", MCPPort: "9000"}
	assert.Error(t, c.Validate())
}

func TestAllowedOrigins(t *testing.T) {
	c := &Config{CORSOrigins: " https://a.example, ,https://b.example "}
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.AllowedOrigins())

	c.CORSOrigins = ""
	assert.Equal(t, []string{"*"}, c.AllowedOrigins())
}

func TestIsProduction(t *testing.T) {
	assert.True(t, (&Config{AppEnv: "Production"}).IsProduction())
	assert.False(t, (&Config{AppEnv: "staging"}).IsProduction())
}
