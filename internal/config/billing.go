package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// BillingConfig holds the operator-tunable billing settings read from billing.yml.
type BillingConfig struct {
	// DefaultTier is applied when no fee plan is effective for a target date.
	DefaultTier           string `mapstructure:"default_tier"`
	InvoiceNumberTemplate string `mapstructure:"invoice_number_template"`
	Currency              string `mapstructure:"currency"`
	// Schedule is a cron spec for the monthly invoice run.
	Schedule         string `mapstructure:"schedule"`
	HistoryMaxMonths int    `mapstructure:"history_max_months"`
	NotifyOnCreate   bool   `mapstructure:"notify_on_create"`
}

func DefaultBillingConfig() BillingConfig {
	return BillingConfig{
		DefaultTier:           "launch",
		InvoiceNumberTemplate: "INV-{YYYY}{MM}-{SEQ5}",
		Currency:              "USD",
		Schedule:              "0 2 1 * *",
		HistoryMaxMonths:      24,
		NotifyOnCreate:        true,
	}
}

type BillingConfigHolder struct {
	current atomic.Value // holds BillingConfig
}

func NewBillingConfigHolder(log *zap.Logger) (*BillingConfigHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("config.billing")

	v := viper.New()

	v.SetConfigName("billing")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/propbill/config")
	v.AddConfigPath("/etc/propbill")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PROPBILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultBillingConfig()
	v.SetDefault("billing.default_tier", defaults.DefaultTier)
	v.SetDefault("billing.invoice_number_template", defaults.InvoiceNumberTemplate)
	v.SetDefault("billing.currency", defaults.Currency)
	v.SetDefault("billing.schedule", defaults.Schedule)
	v.SetDefault("billing.history_max_months", defaults.HistoryMaxMonths)
	v.SetDefault("billing.notify_on_create", defaults.NotifyOnCreate)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	var cfg BillingConfig
	if err := v.UnmarshalKey("billing", &cfg); err != nil {
		return nil, err
	}
	if err := validateBillingConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticBillingConfigHolder(cfg)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated BillingConfig
		if err := v.UnmarshalKey("billing", &updated); err != nil {
			log.Warn("billing config reload failed", zap.Error(err))
			return
		}
		if err := validateBillingConfig(updated); err != nil {
			log.Warn("invalid billing config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("billing config reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

// NewStaticBillingConfigHolder wraps a fixed BillingConfig, used by tools and tests.
func NewStaticBillingConfigHolder(cfg BillingConfig) *BillingConfigHolder {
	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *BillingConfigHolder) Get() BillingConfig {
	if h == nil {
		return DefaultBillingConfig()
	}
	return h.current.Load().(BillingConfig)
}

func validateBillingConfig(cfg BillingConfig) error {
	if strings.TrimSpace(cfg.InvoiceNumberTemplate) == "" {
		return errors.New("billing.invoice_number_template cannot be empty")
	}
	if !strings.Contains(cfg.InvoiceNumberTemplate, "{SEQ") {
		return errors.New("billing.invoice_number_template must contain a {SEQ} token")
	}
	if strings.TrimSpace(cfg.Currency) == "" {
		return errors.New("billing.currency cannot be empty")
	}
	if cfg.HistoryMaxMonths <= 0 {
		return errors.New("billing.history_max_months must be positive")
	}
	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return fmt.Errorf("billing.schedule: %w", err)
	}
	return nil
}
