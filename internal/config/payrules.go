package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// PayRules holds the operator-tunable pay calculation rules. Break length is
// the unpaid-break time removed from a day's pay once the driver's configured
// daily-hours threshold is exceeded.
type PayRules struct {
	BreakLengthHours    float64 `mapstructure:"breakLengthHours"`
	DefaultBreaksAfter  float64 `mapstructure:"defaultBreaksAfter"`
	ManualLineMaxHours  float64 `mapstructure:"manualLineMaxHours"`
	ManualLineMaxRate   float64 `mapstructure:"manualLineMaxRate"`
	RevertReasonMinimum int     `mapstructure:"revertReasonMinimum"`
}

func DefaultPayRules() PayRules {
	return PayRules{
		BreakLengthHours:    0.5,
		DefaultBreaksAfter:  6,
		ManualLineMaxHours:  24,
		ManualLineMaxRate:   1000,
		RevertReasonMinimum: 5,
	}
}

// PayRulesHolder serves the current pay rules and hot-reloads them when the
// config file changes on disk.
type PayRulesHolder struct {
	current atomic.Value // holds PayRules
}

func NewPayRulesHolder() (*PayRulesHolder, error) {
	v := viper.New()

	v.SetConfigName("payrules")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/worklog/config")
	v.AddConfigPath("/etc/worklog")
	v.AddConfigPath(".")

	v.SetEnvPrefix("WORKLOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultPayRules()
	v.SetDefault("payrules.breakLengthHours", defaults.BreakLengthHours)
	v.SetDefault("payrules.defaultBreaksAfter", defaults.DefaultBreaksAfter)
	v.SetDefault("payrules.manualLineMaxHours", defaults.ManualLineMaxHours)
	v.SetDefault("payrules.manualLineMaxRate", defaults.ManualLineMaxRate)
	v.SetDefault("payrules.revertReasonMinimum", defaults.RevertReasonMinimum)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var rules PayRules
	if err := v.UnmarshalKey("payrules", &rules); err != nil {
		return nil, err
	}
	if err := validatePayRules(rules); err != nil {
		return nil, err
	}

	holder := &PayRulesHolder{}
	holder.current.Store(rules)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated PayRules
		if err := v.UnmarshalKey("payrules", &updated); err != nil {
			log.Printf("[payrules] reload failed: %v", err)
			return
		}
		if err := validatePayRules(updated); err != nil {
			log.Printf("[payrules] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[payrules] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticPayRules builds a holder pinned to the given rules. Test hook.
func NewStaticPayRules(rules PayRules) *PayRulesHolder {
	holder := &PayRulesHolder{}
	holder.current.Store(rules)
	return holder
}

func (h *PayRulesHolder) Current() PayRules {
	return h.current.Load().(PayRules)
}

func validatePayRules(rules PayRules) error {
	if rules.BreakLengthHours < 0 {
		return errors.New("breakLengthHours must not be negative")
	}
	if rules.DefaultBreaksAfter < 0 {
		return errors.New("defaultBreaksAfter must not be negative")
	}
	if rules.RevertReasonMinimum < 1 {
		return errors.New("revertReasonMinimum must be at least 1")
	}
	return nil
}
