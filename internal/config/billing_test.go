package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateBillingConfig(t *testing.T) {
	assert.NoError(t, validateBillingConfig(DefaultBillingConfig()))

	cfg := DefaultBillingConfig()
	cfg.InvoiceNumberTemplate = " "
	assert.Error(t, validateBillingConfig(cfg))

	cfg = DefaultBillingConfig()
	cfg.InvoiceNumberTemplate = "INV-{YYYY}{MM}"
	assert.Error(t, validateBillingConfig(cfg))

	cfg = DefaultBillingConfig()
	cfg.HistoryMaxMonths = 0
	assert.Error(t, validateBillingConfig(cfg))

	cfg = DefaultBillingConfig()
	cfg.Schedule = "every month"
	assert.Error(t, validateBillingConfig(cfg))
}

func TestStaticBillingConfigHolder(t *testing.T) {
	cfg := DefaultBillingConfig()
	cfg.DefaultTier = "elevate"

	holder := NewStaticBillingConfigHolder(cfg)
	assert.Equal(t, "elevate", holder.Get().DefaultTier)

	var nilHolder *BillingConfigHolder
	assert.Equal(t, "launch", nilHolder.Get().DefaultTier)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_TYPE", "sqlite")
	t.Setenv("PORTAL_BASE_URL", "https://portal.example.com/")
	t.Setenv("SCHEDULER_ENABLED", "off")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("SEED_DEFAULT_ORG", "")
	t.Setenv("RATE_LIMIT_GENERATE_RATE", "0.5")

	cfg := Load()
	assert.Equal(t, "sqlite", cfg.DBType)
	assert.Equal(t, "https://portal.example.com", cfg.PortalBaseURL)
	assert.False(t, cfg.SchedulerEnabled)
	assert.False(t, cfg.Redis.Enabled())
	assert.True(t, cfg.SeedDefaultOrg)
	assert.Equal(t, 0.5, cfg.RateLimit.GenerateRate)
	assert.Equal(t, 20, cfg.RateLimit.GenerateBurst)
}
