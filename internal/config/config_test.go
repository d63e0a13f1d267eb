package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Env:                      "production",
		Port:                     "8080",
		JWTSecret:                "secure-secret-at-least-32-chars-long",
		DBDriver:                 "postgres",
		DBPassword:               "secure-password",
		DBSSLMode:                "require",
		PredictionTimeoutSeconds: 10,
		HistoryLimit:             20,
		MediaMaxUploadMB:         25,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
	}{
		{"valid production", func(*Config) {}, false},
		{"missing port", func(c *Config) { c.Port = "" }, true},
		{"missing secret", func(c *Config) { c.JWTSecret = "" }, true},
		{"default secret in production", func(c *Config) { c.JWTSecret = defaultJWTSecret }, true},
		{"short secret in production", func(c *Config) { c.JWTSecret = "short" }, true},
		{"short secret in development", func(c *Config) { c.Env = "development"; c.JWTSecret = "short" }, false},
		{"unknown driver", func(c *Config) { c.DBDriver = "mysql" }, true},
		{"sqlite without path", func(c *Config) { c.DBDriver = "sqlite" }, true},
		{"sqlite in production skips db password", func(c *Config) {
			c.DBDriver = "sqlite"
			c.SQLitePath = "feed.db"
			c.DBPassword = ""
		}, false},
		{"weak db password in production", func(c *Config) { c.DBPassword = "password" }, true},
		{"ssl disabled in production", func(c *Config) { c.DBSSLMode = "disable" }, true},
		{"ssl disabled in development", func(c *Config) { c.Env = "development"; c.DBSSLMode = "disable" }, false},
		{"zero prediction timeout", func(c *Config) { c.PredictionTimeoutSeconds = 0 }, true},
		{"zero history limit", func(c *Config) { c.HistoryLimit = 0 }, true},
		{"zero upload size", func(c *Config) { c.MediaMaxUploadMB = 0 }, true},
		{"stdout tracing", func(c *Config) { c.TracingExporter = "stdout"; c.TracingSampler = 0.5 }, false},
		{"otlp without endpoint", func(c *Config) { c.TracingExporter = "otlp" }, true},
		{"otlp with endpoint", func(c *Config) { c.TracingExporter = "otlp"; c.OTLPEndpoint = "otel:4318" }, false},
		{"unknown exporter", func(c *Config) { c.TracingExporter = "jaeger" }, true},
		{"sampler above one", func(c *Config) { c.TracingSampler = 1.5 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig_DefaultsAndNormalization(t *testing.T) {
	defer viper.Reset()

	t.Setenv("APP_ENV", "development")
	t.Setenv("DB_DRIVER", "  SQLite ")
	t.Setenv("SQLITE_PATH", "test.db")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", c.DBDriver)
	assert.Equal(t, "test.db", c.SQLitePath)
	assert.Equal(t, 20, c.HistoryLimit)
	assert.Equal(t, 10, c.PredictionTimeoutSeconds)
	assert.Equal(t, "none", c.TracingExporter)
	assert.False(t, c.IsProduction())
}

func TestLoadConfig_ProductionProfileRequired(t *testing.T) {
	defer viper.Reset()

	t.Setenv("APP_ENV", "staging-without-file")

	_, err := LoadConfig()
	assert.Error(t, err)
}
