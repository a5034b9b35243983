package config

import (
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// ReceivablesConfig tunes settlement behaviour without a redeploy.
type ReceivablesConfig struct {
	RemainderDueDays   int           `mapstructure:"remainderDueDays"`
	ElectronicKeywords []string      `mapstructure:"electronicKeywords"`
	LockTTL            time.Duration `mapstructure:"lockTTL"`
}

func DefaultReceivablesConfig() ReceivablesConfig {
	return ReceivablesConfig{
		RemainderDueDays: 7,
		ElectronicKeywords: []string{
			"cartão", "cartao",
			"pix",
			"débito", "debito",
			"crédito", "credito",
		},
		LockTTL: 10 * time.Second,
	}
}

type ReceivablesConfigHolder struct {
	current atomic.Value // holds ReceivablesConfig
}

// NewStaticReceivablesConfigHolder serves a fixed config, for tests and tools.
func NewStaticReceivablesConfigHolder(cfg ReceivablesConfig) *ReceivablesConfigHolder {
	holder := &ReceivablesConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewReceivablesConfigHolder(log *zap.Logger) (*ReceivablesConfigHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("config.receivables")

	v := viper.New()

	v.SetConfigName("receivables")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/clinicledger")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CLINICLEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultReceivablesConfig()
	v.SetDefault("receivables.remainderDueDays", defaults.RemainderDueDays)
	v.SetDefault("receivables.electronicKeywords", defaults.ElectronicKeywords)
	v.SetDefault("receivables.lockTTL", defaults.LockTTL)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileLoaded = false
	}

	var cfg ReceivablesConfig
	if err := v.UnmarshalKey("receivables", &cfg); err != nil {
		return nil, err
	}
	if err := validateReceivablesConfig(cfg); err != nil {
		return nil, err
	}

	holder := &ReceivablesConfigHolder{}
	holder.current.Store(normalizeReceivablesConfig(cfg))

	if fileLoaded {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			var updated ReceivablesConfig
			if err := v.UnmarshalKey("receivables", &updated); err != nil {
				log.Warn("reload failed", zap.Error(err))
				return
			}
			if err := validateReceivablesConfig(updated); err != nil {
				log.Warn("invalid config ignored", zap.Error(err))
				return
			}
			holder.current.Store(normalizeReceivablesConfig(updated))
			log.Info("reloaded", zap.String("file", e.Name))
		})
	}

	return holder, nil
}

func (h *ReceivablesConfigHolder) Get() ReceivablesConfig {
	if h == nil {
		return DefaultReceivablesConfig()
	}
	cfg, ok := h.current.Load().(ReceivablesConfig)
	if !ok {
		return DefaultReceivablesConfig()
	}
	return cfg
}

func validateReceivablesConfig(cfg ReceivablesConfig) error {
	if cfg.RemainderDueDays <= 0 {
		return errors.New("receivables.remainderDueDays must be positive")
	}
	if cfg.LockTTL < 0 {
		return errors.New("receivables.lockTTL cannot be negative")
	}
	return nil
}

func normalizeReceivablesConfig(cfg ReceivablesConfig) ReceivablesConfig {
	keywords := make([]string, 0, len(cfg.ElectronicKeywords))
	for _, kw := range cfg.ElectronicKeywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		keywords = append(keywords, kw)
	}
	cfg.ElectronicKeywords = keywords
	return cfg
}
