package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const DefaultNumberTemplate = "{PREFIX}-{YYYY}-{SEQ4}"

// DocumentsConfig drives document numbering and quotation validity.
type DocumentsConfig struct {
	NumberTemplate        string            `mapstructure:"numberTemplate"`
	Prefixes              map[string]string `mapstructure:"prefixes"`
	QuotationValidityDays int               `mapstructure:"quotationValidityDays"`
	DefaultCurrency       string            `mapstructure:"defaultCurrency"`
}

func DefaultDocumentsConfig() DocumentsConfig {
	return DocumentsConfig{
		NumberTemplate: DefaultNumberTemplate,
		Prefixes: map[string]string{
			"invoice":   "INV",
			"quotation": "QUO",
			"receipt":   "RCT",
		},
		QuotationValidityDays: 14,
		DefaultCurrency:       "BTN",
	}
}

// PrefixFor returns the configured prefix of a document kind, falling back
// to the upper-cased kind itself.
func (c DocumentsConfig) PrefixFor(kind string) string {
	kind = strings.ToLower(strings.TrimSpace(kind))
	if prefix, ok := c.Prefixes[kind]; ok && strings.TrimSpace(prefix) != "" {
		return strings.TrimSpace(prefix)
	}
	return strings.ToUpper(kind)
}

type DocumentsConfigHolder struct {
	current atomic.Value // holds DocumentsConfig
}

// NewStaticDocumentsConfigHolder wraps a fixed config, mostly for tests.
func NewStaticDocumentsConfigHolder(cfg DocumentsConfig) *DocumentsConfigHolder {
	holder := &DocumentsConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewDocumentsConfigHolder(appCfg Config, log *zap.Logger) (*DocumentsConfigHolder, error) {
	v := viper.New()

	if appCfg.DocumentsConfigPath != "" {
		v.SetConfigFile(appCfg.DocumentsConfigPath)
	} else {
		v.SetConfigName("documents")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/vendorbill")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("VENDORBILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultDocumentsConfig()
	v.SetDefault("documents.numberTemplate", defaults.NumberTemplate)
	v.SetDefault("documents.prefixes", defaults.Prefixes)
	v.SetDefault("documents.quotationValidityDays", defaults.QuotationValidityDays)
	v.SetDefault("documents.defaultCurrency", defaults.DefaultCurrency)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileLoaded = false
	}

	var cfg DocumentsConfig
	if err := v.UnmarshalKey("documents", &cfg); err != nil {
		return nil, err
	}
	if err := validateDocumentsConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticDocumentsConfigHolder(cfg)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated DocumentsConfig
		if err := v.UnmarshalKey("documents", &updated); err != nil {
			log.Warn("documents config reload failed", zap.Error(err))
			return
		}
		if err := validateDocumentsConfig(updated); err != nil {
			log.Warn("invalid documents config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("documents config reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *DocumentsConfigHolder) Get() DocumentsConfig {
	return h.current.Load().(DocumentsConfig)
}

func validateDocumentsConfig(cfg DocumentsConfig) error {
	if strings.TrimSpace(cfg.NumberTemplate) == "" {
		return errors.New("documents.numberTemplate cannot be empty")
	}
	if !strings.Contains(cfg.NumberTemplate, "{SEQ") {
		return fmt.Errorf("documents.numberTemplate %q has no sequence token", cfg.NumberTemplate)
	}
	if cfg.QuotationValidityDays < 0 {
		return errors.New("documents.quotationValidityDays cannot be negative")
	}
	return nil
}
