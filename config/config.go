package config

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/viper"

	"github.com/krisalay/salon-cache/salon"
	"github.com/krisalay/salon-cache/types"
)

// Config aggregates configuration for the cache layer and its tools.
type Config struct {
	TTL      TTLConfig      `mapstructure:"ttl"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
}

// TTLConfig is the freshness window per data kind.
type TTLConfig struct {
	Services     time.Duration `mapstructure:"services"`
	Hours        time.Duration `mapstructure:"hours"`
	Settings     time.Duration `mapstructure:"settings"`
	Gallery      time.Duration `mapstructure:"gallery"`
	Testimonials time.Duration `mapstructure:"testimonials"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		TTL: TTLConfig{
			Services:     salon.DefaultTTLs[types.Services],
			Hours:        salon.DefaultTTLs[types.Hours],
			Settings:     salon.DefaultTTLs[types.Settings],
			Gallery:      salon.DefaultTTLs[types.Gallery],
			Testimonials: salon.DefaultTTLs[types.Testimonials],
		},
		Log: LogConfig{Level: "error"},
	}
}

// Load reads configuration from salon-cache.yaml (in the working directory or
// the directories given) and from environment variables.
// Environment variables use the prefix "SALONCACHE" and the dot character
// in keys is replaced by an underscore. For example, "ttl.hours" becomes
// "SALONCACHE_TTL_HOURS".
func Load(paths ...string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigName("salon-cache")
	v.AddConfigPath(".")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetEnvPrefix("SALONCACHE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var result *multierror.Error
	for kind, ttl := range c.TTL.Table() {
		if ttl <= 0 {
			result = multierror.Append(result, fmt.Errorf("ttl.%s must be positive, got %s", kind, ttl))
		}
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error", "fatal":
	default:
		result = multierror.Append(result, fmt.Errorf("log.level %q is not a known level", c.Log.Level))
	}
	return result.ErrorOrNil()
}

// Table returns the TTLs keyed by data kind, ready for salon.WithTTLs.
func (t TTLConfig) Table() map[types.Kind]time.Duration {
	return map[types.Kind]time.Duration{
		types.Services:     t.Services,
		types.Hours:        t.Hours,
		types.Settings:     t.Settings,
		types.Gallery:      t.Gallery,
		types.Testimonials: t.Testimonials,
	}
}

// bindEnvs registers all keys within cfg so that viper will look up
// corresponding environment variables when unmarshalling.
func bindEnvs(v *viper.Viper, cfg any, parts ...string) {
	val := reflect.ValueOf(cfg)
	typ := reflect.TypeOf(cfg)
	if typ.Kind() == reflect.Ptr {
		val = val.Elem()
		typ = typ.Elem()
	}
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" {
			tag = strings.ToLower(f.Name)
		}
		key := append(parts, tag)
		if f.Type.Kind() == reflect.Struct {
			bindEnvs(v, val.Field(i).Interface(), key...)
			continue
		}
		_ = v.BindEnv(strings.Join(key, "."))
	}
}
