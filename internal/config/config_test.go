package config

import (
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/point"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("JWT_SECRET_KEY", "jwt-secret")
	t.Setenv("APP_TIMEZONE", "UTC")
}

// ===== CONFIG TESTS =====

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, int64(10<<20), cfg.Storage.MaxUploadSize)
	assert.Equal(t, 4, cfg.Reconcile.Workers)
	assert.Equal(t, 2*time.Minute, cfg.Reconcile.DuplicateWindow)
	assert.Equal(t, 240, cfg.Reconcile.MaxOvertimeMinutes)
	assert.Equal(t, 30*time.Minute, cfg.Reconcile.ProcessingLease)
	assert.Equal(t, 90, cfg.Points.ExpiryDays)
	assert.Equal(t, time.UTC, cfg.Location())

	policy := cfg.PointPolicy()
	assert.True(t, policy.Value(point.TypeTardy).Equal(decimal.RequireFromString("0.5")))
	assert.True(t, policy.IsGBROType(point.TypeTardyUndertime))
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("RECONCILE_WORKERS", "8")
	t.Setenv("RECONCILE_MAX_OVERTIME_MINUTES", "0")
	t.Setenv("POINT_VALUES", "tardy=0.25, no_call_no_show=2")
	t.Setenv("POINT_GBRO_TYPES", "tardy")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Reconcile.Workers)
	assert.Equal(t, 0, cfg.Reconcile.MaxOvertimeMinutes)
	assert.True(t, cfg.Points.Values[point.TypeTardy].Equal(decimal.RequireFromString("0.25")))
	assert.True(t, cfg.Points.Values[point.TypeNoCallNoShow].Equal(decimal.NewFromInt(2)))
	assert.True(t, cfg.Points.Values[point.TypeUndertime].Equal(decimal.RequireFromString("0.5")))
	assert.Equal(t, []point.Type{point.TypeTardy}, cfg.Points.GBROTypes)
	assert.Len(t, cfg.App.AllowedOrigins, 2)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad port", "DB_PORT", "abc"},
		{"bad duration", "RECONCILE_DUPLICATE_WINDOW", "two minutes"},
		{"zero workers", "RECONCILE_WORKERS", "0"},
		{"zero processing lease", "INGEST_PROCESSING_LEASE", "0s"},
		{"bad timezone", "APP_TIMEZONE", "Mars/Olympus"},
		{"unknown point type", "POINT_VALUES", "sleeping=1"},
		{"malformed point value", "POINT_VALUES", "tardy"},
		{"negative point value", "POINT_VALUES", "tardy=-1"},
		{"unknown gbro type", "POINT_GBRO_TYPES", "napping"},
		{"unsupported storage", "STORAGE_TYPE", "s3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.key, tt.val)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestValidate_RequiresSecrets(t *testing.T) {
	t.Setenv("DB_PASSWORD", "")
	t.Setenv("JWT_SECRET_KEY", "jwt-secret")

	_, err := Load()

	assert.ErrorContains(t, err, "DB_PASSWORD is required")
}
