package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Env:                      "production",
		DBDriver:                 "postgres",
		DBSSLMode:                "require",
		DBSchemaMode:             "sql",
		JWTSecret:                "secure-secret-at-least-32-chars-long",
		DBPassword:               "secure-password",
		Port:                     "8080",
		DBConnMaxLifetimeMinutes: 1,
		RedisURL:                 "redis://localhost:6379",
	}
}

func TestConfig_ValidateSSLMode(t *testing.T) {
	tests := []struct {
		name        string
		env         string
		sslMode     string
		expectError bool
	}{
		{"Production with empty SSL mode", "production", "", true},
		{"Production with disable SSL mode", "production", "disable", true},
		{"Production with require SSL mode", "production", "require", false},
		{"Prod with verify-full SSL mode", "prod", "verify-full", false},
		{"Development with disable SSL mode", "development", "disable", false},
		{"Test with empty SSL mode", "test", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			c.Env = tt.env
			c.DBSSLMode = tt.sslMode

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateProductionGuards(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"default secret", func(c *Config) { c.JWTSecret = defaultJWTSecret }},
		{"short secret", func(c *Config) { c.JWTSecret = "short" }},
		{"weak db password", func(c *Config) { c.DBPassword = "password" }},
		{"sqlite driver", func(c *Config) { c.DBDriver = "sqlite" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestConfig_ValidateRejectsUnknownModes(t *testing.T) {
	c := validConfig()
	c.DBSchemaMode = "yolo"
	assert.Error(t, c.Validate())

	c = validConfig()
	c.DBDriver = "mysql"
	assert.Error(t, c.Validate())
}

func TestLoadConfig_Normalization(t *testing.T) {
	defer os.Unsetenv("APP_ENV")
	defer os.Unsetenv("DB_SSLMODE")
	defer os.Unsetenv("DB_SCHEMA_MODE")
	defer viper.Reset()

	os.Setenv("APP_ENV", "development")
	os.Setenv("DB_SSLMODE", "  DISABLE  ")
	os.Setenv("DB_SCHEMA_MODE", " Auto ")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, "auto", c.DBSchemaMode)
	assert.Equal(t, 4, c.InvalidationWorkers)
}
