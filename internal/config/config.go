// Package config loads recurctl settings from a YAML file, RECUR_*
// environment variables and flag overrides, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/cyp0633/taskrecur/series"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"golang.org/x/text/language"
)

const (
	configName = "recurctl"
	envPrefix  = "RECUR"
)

// Config is the full recurctl configuration.
type Config struct {
	Store   StoreConfig   `mapstructure:"store"`
	Log     LogConfig     `mapstructure:"log"`
	Crypto  CryptoConfig  `mapstructure:"crypto"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Summary SummaryConfig `mapstructure:"summary"`
	User    UserConfig    `mapstructure:"user"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver" validate:"oneof=memory sqlite"`
	Path   string `mapstructure:"path" validate:"required_if=Driver sqlite"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

// CryptoConfig selects the at-rest cipher. Key wins over Passphrase; with
// neither, text is stored as is.
type CryptoConfig struct {
	Passphrase string `mapstructure:"passphrase"`
	Key        string `mapstructure:"key" validate:"omitempty,hexadecimal,len=64"`
}

type CacheConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	TTL        time.Duration `mapstructure:"ttl" validate:"min=0"`
	MaxEntries int           `mapstructure:"max_entries" validate:"min=1"`
}

type SummaryConfig struct {
	Locale string `mapstructure:"locale" validate:"bcp47_language_tag"`
}

type UserConfig struct {
	ID string `mapstructure:"id" validate:"required"`
}

// validate is a single instance of Validate, it caches struct info
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("mapstructure")
	})
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.path", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("crypto.passphrase", "")
	v.SetDefault("crypto.key", "")
	v.SetDefault("cache.enabled", series.DefaultManagerConfig.CacheEnabled)
	v.SetDefault("cache.ttl", series.DefaultCacheConfig.TTL)
	v.SetDefault("cache.max_entries", series.DefaultCacheConfig.MaxEntries)
	v.SetDefault("summary.locale", "en")
	v.SetDefault("user.id", "local")
}

// Load reads configuration. file may be empty, in which case recurctl.yaml
// is looked up in the working directory and then $HOME; a missing file is
// fine. overrides are applied last, keyed like "store.driver".
func Load(file string, overrides map[string]any) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	for key, value := range overrides {
		v.Set(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("invalid config: %s failed %q (got %v)", configKey(fe.Namespace()), fe.Tag(), fe.Value())
	}
	return fmt.Errorf("invalid config: %w", err)
}

// configKey turns "Config.store.driver" into "store.driver".
func configKey(ns string) string {
	parts := strings.Split(ns, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	return strings.Join(parts, ".")
}

// Language is the parsed summary locale.
func (c *Config) Language() language.Tag {
	tag, err := language.Parse(c.Summary.Locale)
	if err != nil {
		return language.English
	}
	return tag
}

// ManagerConfig maps the cache and summary settings onto a series preset.
func (c *Config) ManagerConfig() series.ManagerConfig {
	if !c.Cache.Enabled {
		cfg := series.DisabledCacheConfig
		cfg.SummaryLanguage = c.Language()
		return cfg
	}
	cfg := series.DefaultManagerConfig
	cfg.CacheConfig.TTL = c.Cache.TTL
	cfg.CacheConfig.MaxEntries = c.Cache.MaxEntries
	cfg.SummaryLanguage = c.Language()
	return cfg
}
