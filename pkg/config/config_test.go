package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/cokelateh-api/pkg/config"
)

func TestLoad_ValoresPorDefecto(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "admin@cokelateh.com", cfg.Auth.BootstrapAdminEmail)
	assert.Equal(t, 30*time.Second, cfg.Auth.LoginTimeout)
	assert.Equal(t, 480*time.Minute, cfg.Auth.SessionIdle)
	assert.Equal(t, time.Second, cfg.Stock.QuietWindow)
	assert.Equal(t, 3, cfg.Stock.MaxRetries)
	assert.Equal(t, "1000000", cfg.Stock.Ceiling.String())
}

func TestLoad_EnvTienePrioridad(t *testing.T) {
	t.Setenv("AUTH_LOGIN_TIMEOUT", "5s")
	t.Setenv("STOCK_RETRY_BASE", "250")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("STOCK_CEILING", "5000")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Auth.LoginTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Stock.RetryBase)
	assert.Equal(t, "0.0.0.0:9090", cfg.HTTP.Addr())
	assert.Equal(t, "5000", cfg.Stock.Ceiling.String())
}

func TestLoad_SessionIdleSigueAlJWT(t *testing.T) {
	t.Setenv("JWT_EXPIRATION_MINUTES", "60")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, time.Hour, cfg.Auth.SessionIdle)

	t.Setenv("AUTH_SESSION_IDLE", "15m")
	cfg, err = config.Load()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, cfg.Auth.SessionIdle)
}

func TestLoad_CeilingInvalido(t *testing.T) {
	t.Setenv("STOCK_CEILING", "mucho")
	_, err := config.Load()
	assert.Error(t, err)
}

func TestDBConfig_DSNEscapaPassword(t *testing.T) {
	c := config.DBConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss:word", DBName: "cokelateh", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss%3Aword@db:5432/cokelateh?sslmode=disable", c.ConnectionString())

	c.DatabaseURL = "postgres://x@y/z"
	assert.Equal(t, "postgres://x@y/z", c.ConnectionString())
}
