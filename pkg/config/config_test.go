package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.AI.Timeout)
	assert.Equal(t, "INR", cfg.Reports.Currency)
	assert.Equal(t, "0 3 * * *", cfg.Cron.CatalogSchedule)
	assert.Empty(t, cfg.Categorization.KeywordTablePath)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("AI_CLASSIFIER_TIMEOUT", "750ms")
	t.Setenv("AI_CLASSIFIER_RATE_PER_SECOND", "0.5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("REPORTS_TIMEZONE", "UTC")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 750*time.Millisecond, cfg.AI.Timeout)
	assert.InDelta(t, 0.5, cfg.AI.RateLimitPerSecond, 1e-9)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, time.UTC, cfg.Reports.Location())
}

func TestLoad_Validation(t *testing.T) {
	t.Run("missing jwt secret", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("bad timezone", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "test-secret")
		t.Setenv("REPORTS_TIMEZONE", "Mars/Olympus")
		_, err := Load()
		assert.ErrorContains(t, err, "REPORTS_TIMEZONE")
	})

	t.Run("non-positive timeout", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "test-secret")
		t.Setenv("AI_CLASSIFIER_TIMEOUT", "0s")
		_, err := Load()
		assert.ErrorContains(t, err, "AI_CLASSIFIER_TIMEOUT")
	})
}

func TestDSN(t *testing.T) {
	db := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "d", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=d sslmode=disable", db.DSN())
}
