package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// DunningPolicy controls how the unpaid sweep escalates against a record.
type DunningPolicy struct {
	// MessageCooldown is the minimum gap between two "please pay" messages
	// for the same record.
	MessageCooldown time.Duration `mapstructure:"messageCooldown"`
	// MaxMessages caps message escalations per record. Zero disables the cap.
	MaxMessages int `mapstructure:"maxMessages"`
	// RetryEnabled toggles automatic re-charging in the sweep.
	RetryEnabled bool `mapstructure:"retryEnabled"`
}

func DefaultDunningPolicy() DunningPolicy {
	return DunningPolicy{
		MessageCooldown: 72 * time.Hour,
		MaxMessages:     5,
		RetryEnabled:    true,
	}
}

type DunningPolicyHolder struct {
	current atomic.Value // holds DunningPolicy
}

// NewStaticDunningPolicyHolder returns a holder that never reloads.
func NewStaticDunningPolicyHolder(policy DunningPolicy) *DunningPolicyHolder {
	holder := &DunningPolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func NewDunningPolicyHolder() (*DunningPolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("dunning")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/ridepay/config")
	v.AddConfigPath("/etc/ridepay")
	v.AddConfigPath(".")

	v.SetEnvPrefix("RIDEPAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultDunningPolicy()
	v.SetDefault("dunning.messageCooldown", defaults.MessageCooldown)
	v.SetDefault("dunning.maxMessages", defaults.MaxMessages)
	v.SetDefault("dunning.retryEnabled", defaults.RetryEnabled)

	configFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		configFound = false
	}

	var policy DunningPolicy
	if err := v.UnmarshalKey("dunning", &policy); err != nil {
		return nil, err
	}
	if err := validateDunningPolicy(policy); err != nil {
		return nil, err
	}

	holder := NewStaticDunningPolicyHolder(policy)
	if !configFound {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated DunningPolicy
		if err := v.UnmarshalKey("dunning", &updated); err != nil {
			log.Printf("[dunning-config] reload failed: %v", err)
			return
		}
		if err := validateDunningPolicy(updated); err != nil {
			log.Printf("[dunning-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[dunning-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *DunningPolicyHolder) Get() DunningPolicy {
	if h == nil {
		return DefaultDunningPolicy()
	}
	policy, ok := h.current.Load().(DunningPolicy)
	if !ok {
		return DefaultDunningPolicy()
	}
	return policy
}

func validateDunningPolicy(policy DunningPolicy) error {
	if policy.MessageCooldown < 0 {
		return errors.New("dunning.messageCooldown cannot be negative")
	}
	if policy.MaxMessages < 0 {
		return errors.New("dunning.maxMessages cannot be negative")
	}
	return nil
}
