// Package config loads SwipePad settings from an optional swipepad.yaml
// and SWIPEPAD_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/roach88/swipepad/internal/batch"
	"github.com/roach88/swipepad/internal/domain"
	"github.com/roach88/swipepad/internal/session"
)

// EnvPrefix prefixes every environment variable, e.g.
// SWIPEPAD_TRANSFER_TIMEOUT or SWIPEPAD_PRESETS_THRESHOLDS.
const EnvPrefix = "SWIPEPAD"

// FileName is the config file looked up in the config directory.
const FileName = "swipepad"

// Config holds all SwipePad settings.
type Config struct {
	CatalogPath     string        `mapstructure:"catalog_path" validate:"required"`
	LedgerDB        string        `mapstructure:"ledger_db" validate:"required"`
	WalletAddress   string        `mapstructure:"wallet_address" validate:"omitempty,eth_addr"`
	TransferTimeout time.Duration `mapstructure:"transfer_timeout" validate:"gte=0"`
	StatsPolicy     string        `mapstructure:"stats_policy" validate:"required"`
	ServerAddr      string        `mapstructure:"server_addr" validate:"required"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	LogLevel        string        `mapstructure:"log_level" validate:"required"`
	Presets         Presets       `mapstructure:"presets"`
}

// Presets is the configurable form of session.Presets.
type Presets struct {
	Amounts          []string `mapstructure:"amounts" yaml:"amounts" validate:"min=1"`
	Currencies       []string `mapstructure:"currencies" yaml:"currencies" validate:"min=1"`
	Thresholds       []int    `mapstructure:"thresholds" yaml:"thresholds" validate:"min=1,dive,gt=0"`
	DefaultCurrency  string   `mapstructure:"default_currency" yaml:"default_currency"`
	DefaultThreshold int      `mapstructure:"default_threshold" yaml:"default_threshold"`
}

// Load reads configuration. dir is searched for swipepad.yaml (the
// working directory if empty); a missing file is not an error.
// Environment variables override the file, which overrides defaults.
func Load(dir string) (*Config, error) {
	v := viper.New()

	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	if dir == "" {
		dir = "."
	}
	v.AddConfigPath(dir)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
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

// DefaultPresets returns session.DefaultPresets in configuration form.
func DefaultPresets() Presets {
	def := session.DefaultPresets()
	p := Presets{
		Thresholds:       slices.Clone(def.Thresholds),
		DefaultCurrency:  string(def.DefaultCurrency),
		DefaultThreshold: def.DefaultThreshold,
	}
	for _, a := range def.Amounts {
		p.Amounts = append(p.Amounts, a.StringFixed(2))
	}
	for _, c := range def.Currencies {
		p.Currencies = append(p.Currencies, string(c))
	}
	return p
}

func setDefaults(v *viper.Viper) {
	def := DefaultPresets()

	v.SetDefault("catalog_path", "projects.json")
	v.SetDefault("ledger_db", "swipepad.db")
	v.SetDefault("wallet_address", "")
	v.SetDefault("transfer_timeout", batch.DefaultTransferTimeout)
	v.SetDefault("stats_policy", "accept")
	v.SetDefault("server_addr", ":8080")
	v.SetDefault("cors_origins", []string{"*"})
	v.SetDefault("log_level", "info")
	v.SetDefault("presets.amounts", def.Amounts)
	v.SetDefault("presets.currencies", def.Currencies)
	v.SetDefault("presets.thresholds", def.Thresholds)
	v.SetDefault("presets.default_currency", def.DefaultCurrency)
	v.SetDefault("presets.default_threshold", def.DefaultThreshold)
}

var validate = newValidator()

// newValidator reports fields by their config key rather than the Go name.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Validate checks field constraints, then that every derived setting parses.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("config: %s fails %q (value %v)", strings.TrimPrefix(fe.Namespace(), "Config."), fe.ActualTag(), fe.Value())
		}
		return fmt.Errorf("config: %w", err)
	}
	if _, err := c.Policy(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := c.Level(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := c.SessionPresets(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// SessionPresets converts the preset settings.
func (c *Config) SessionPresets() (session.Presets, error) {
	return c.Presets.Session()
}

// Session parses and validates p.
func (p Presets) Session() (session.Presets, error) {
	var out session.Presets
	for _, s := range p.Amounts {
		d, err := decimal.NewFromString(strings.TrimSpace(s))
		if err != nil {
			return session.Presets{}, fmt.Errorf("presets.amounts: %q is not a decimal", s)
		}
		out.Amounts = append(out.Amounts, d)
	}
	for _, s := range p.Currencies {
		cur, err := domain.ParseCurrency(s)
		if err != nil {
			return session.Presets{}, fmt.Errorf("presets.currencies: %w", err)
		}
		out.Currencies = append(out.Currencies, cur)
	}
	out.Thresholds = slices.Clone(p.Thresholds)

	def, err := domain.ParseCurrency(p.DefaultCurrency)
	if err != nil {
		return session.Presets{}, fmt.Errorf("presets.default_currency: %w", err)
	}
	out.DefaultCurrency = def
	out.DefaultThreshold = p.DefaultThreshold

	if err := out.Validate(); err != nil {
		return session.Presets{}, err
	}
	return out, nil
}

// Policy parses stats_policy.
func (c *Config) Policy() (session.StatsPolicy, error) {
	return session.ParseStatsPolicy(c.StatsPolicy)
}

// Level parses log_level (debug, info, warn, error).
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}
