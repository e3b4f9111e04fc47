package app

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validSecret = "config-test-secret-0123456789abcdef"

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", validSecret)
	t.Setenv("STORE_DRIVER", "memory")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, "campus-erp", cfg.JWTIssuer)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 5*time.Minute, cfg.DashboardCacheTTL)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.False(t, cfg.IsProduction())

	pool := cfg.PoolOptions()
	assert.EqualValues(t, 10, pool.MaxConns)
	assert.Equal(t, 30*time.Minute, pool.MaxConnLifetime)
	assert.Equal(t, cfg.RedisAddr, cfg.RedisOptions().Asynq().Addr)
}

func TestLoadConfigRejectsBadSettings(t *testing.T) {
	cases := map[string]map[string]string{
		"short secret":   {"JWT_SECRET": "short"},
		"unknown driver": {"JWT_SECRET": validSecret, "STORE_DRIVER": "mongo"},
		"bcrypt cost":    {"JWT_SECRET": validSecret, "STORE_DRIVER": "memory", "BCRYPT_COST": "40"},
		"ttl":            {"JWT_SECRET": validSecret, "STORE_DRIVER": "memory", "JWT_TTL": "0s"},
		"pool bounds":    {"JWT_SECRET": validSecret, "STORE_DRIVER": "postgres", "PG_MIN_CONNS": "20"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("STORE_DRIVER", "memory")
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := LoadConfig()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "JWT_SECRET"), err.Error())
}

func TestLoggerFormat(t *testing.T) {
	var buf strings.Builder
	newLogger(&Config{LogFormat: "json", AppEnv: "test"}, &buf).Info("hello")
	assert.Contains(t, buf.String(), `"msg":"hello"`)
	assert.Contains(t, buf.String(), `"env":"test"`)

	buf.Reset()
	newLogger(&Config{LogFormat: "pretty"}, &buf).Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}
