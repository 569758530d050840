package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T) (*Config, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	return LoadConfig()
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := load(t)
	require.NoError(t, err)

	assert.Equal(t, "recipe-compat", cfg.App.Name)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, int64(1024*1024), cfg.Server.MaxBodyBytes)
	assert.Equal(t, DriverMemory, cfg.Cache.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, 4, cfg.Compat.Workers)
	assert.Equal(t, 3*time.Second, cfg.Compat.DispatchTimeout)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("APP_SERVER_PORT", "9090")
	t.Setenv("APP_COMPAT_WORKERS", "8")
	t.Setenv("APP_CACHE_DRIVER", "redis")
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := load(t)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 8, cfg.Compat.Workers)
	assert.Equal(t, DriverRedis, cfg.Cache.Driver)
	assert.Equal(t, "cache:6380", cfg.Cache.RedisAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"unknown store driver", map[string]string{"APP_STORE_DRIVER": "sqlite"}, "unknown store driver"},
		{"upstream without base url", map[string]string{"APP_STORE_DRIVER": "upstream"}, "upstream base url"},
		{"unknown cache driver", map[string]string{"APP_CACHE_DRIVER": "memcached"}, "unknown cache driver"},
		{"zero workers", map[string]string{"APP_COMPAT_WORKERS": "0"}, "invalid compat workers"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := load(t)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "****", maskAPIKey("short"))
	assert.Equal(t, "abcd...wxyz", maskAPIKey("abcdefghijklmnopqrstuvwxyz"))
}
