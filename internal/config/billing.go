package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// BillingConfig carries the operator-tunable billing defaults: the flat
// per-cylinder monthly rate, the tax fallback used when neither the
// location, the rental nor the org settings carry a rate, and the
// payment window applied when an agreement has no parsable terms.
type BillingConfig struct {
	DefaultMonthlyRate float64 `mapstructure:"defaultMonthlyRate"`
	FallbackTaxRate    float64 `mapstructure:"fallbackTaxRate"`
	DefaultDueDays     int     `mapstructure:"defaultDueDays"`
}

func DefaultBillingConfig() BillingConfig {
	return BillingConfig{
		DefaultMonthlyRate: 10.0,
		FallbackTaxRate:    0.11,
		DefaultDueDays:     30,
	}
}

// BillingConfigHolder exposes the current billing defaults and swaps
// them atomically on file reload.
type BillingConfigHolder struct {
	current atomic.Value // holds BillingConfig
}

func NewBillingConfigHolder(log *zap.Logger) (*BillingConfigHolder, error) {
	log = log.Named("billing.config")
	v := viper.New()

	v.SetConfigName("billing")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/cylinderbill/config") // Volume-mounted config
	v.AddConfigPath("/etc/cylinderbill")            // System config
	v.AddConfigPath(".")                            // Current directory (dev mode)

	v.SetEnvPrefix("CYLINDERBILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultBillingConfig()
		v.SetDefault("billing.defaultMonthlyRate", defaults.DefaultMonthlyRate)
		v.SetDefault("billing.fallbackTaxRate", defaults.FallbackTaxRate)
		v.SetDefault("billing.defaultDueDays", defaults.DefaultDueDays)
	}

	var cfg BillingConfig
	if err := v.UnmarshalKey("billing", &cfg); err != nil {
		return nil, err
	}
	if err := validateBillingConfig(cfg); err != nil {
		return nil, err
	}

	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)

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

func (h *BillingConfigHolder) Get() BillingConfig {
	return h.current.Load().(BillingConfig)
}

func validateBillingConfig(cfg BillingConfig) error {
	if cfg.DefaultMonthlyRate <= 0 {
		return errors.New("billing.defaultMonthlyRate must be positive")
	}
	if cfg.FallbackTaxRate < 0 || cfg.FallbackTaxRate >= 1 {
		return errors.New("billing.fallbackTaxRate must be a fraction in [0, 1)")
	}
	if cfg.DefaultDueDays <= 0 {
		return errors.New("billing.defaultDueDays must be positive")
	}
	return nil
}
