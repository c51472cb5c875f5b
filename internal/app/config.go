package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/charlesng35/inkhub/internal/auth"
	"github.com/charlesng35/inkhub/internal/database"
	"github.com/charlesng35/inkhub/internal/slug"
)

// Config represents the runtime configuration for the inkhub API.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Content    ContentConfig    `mapstructure:"content"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	LogLevel        string        `mapstructure:"log_level"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig describes connection options for the supported databases.
// URL wins over every other field when set.
type DatabaseConfig struct {
	Driver   string       `mapstructure:"driver"`
	Path     string       `mapstructure:"path"`
	DSN      string       `mapstructure:"dsn"`
	URL      string       `mapstructure:"url"`
	Postgres DBAuthConfig `mapstructure:"postgres"`
	MySQL    DBAuthConfig `mapstructure:"mysql"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Host     string            `mapstructure:"host"`
	Port     int               `mapstructure:"port"`
	Database string            `mapstructure:"database"`
	Username string            `mapstructure:"username"`
	Password string            `mapstructure:"password"`
	Options  map[string]string `mapstructure:"options"`
}

// AuthConfig describes how session tokens from the external session service are verified.
type AuthConfig struct {
	Session SessionSettings `mapstructure:"session"`
}

// SessionSettings configures bearer token validation.
type SessionSettings struct {
	Secret   string        `mapstructure:"secret"`
	Issuer   string        `mapstructure:"issuer"`
	Audience string        `mapstructure:"audience"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

// ContentConfig tunes content identity rules.
type ContentConfig struct {
	Slug SlugConfig `mapstructure:"slug"`
}

// SlugConfig bounds generated slugs per scope.
type SlugConfig struct {
	MaxLength   SlugLengths `mapstructure:"max_length"`
	MaxAttempts int         `mapstructure:"max_attempts"`
}

// SlugLengths holds the per-scope slug length limits.
type SlugLengths struct {
	Works   int `mapstructure:"works"`
	Groups  int `mapstructure:"groups"`
	Authors int `mapstructure:"authors"`
}

// MonitoringConfig enables metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// PrometheusConfig toggles the metrics endpoint.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// LoadConfig reads config.yaml from ./config and the given paths, then applies
// INKHUB_ prefixed environment overrides.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("INKHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Auth.Session.Secret) == "" {
		return errors.New("config: auth.session.secret is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.shutdown_timeout", "15s")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/inkhub.sqlite")
	v.SetDefault("database.url", "")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.mysql.port", 3306)

	// registered so AutomaticEnv can override them
	v.SetDefault("auth.session.secret", "")
	v.SetDefault("auth.session.issuer", "")
	v.SetDefault("auth.session.audience", "")
	v.SetDefault("auth.session.token_ttl", "15m")

	v.SetDefault("content.slug.max_length.works", 200)
	v.SetDefault("content.slug.max_length.groups", 100)
	v.SetDefault("content.slug.max_length.authors", 100)
	v.SetDefault("content.slug.max_attempts", 8)

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// JWTServiceConfig converts the session settings into JWT validator parameters.
func (c AuthConfig) JWTServiceConfig() auth.JWTConfig {
	ttl := c.Session.TokenTTL
	if ttl <= 0 {
		ttl = auth.DefaultAccessTokenTTL
	}
	return auth.JWTConfig{
		Secret:         c.Session.Secret,
		Issuer:         c.Session.Issuer,
		Audience:       c.Session.Audience,
		AccessTokenTTL: ttl,
	}
}

// SlugAllocatorConfig converts the slug settings, keeping defaults for unset limits.
func (c ContentConfig) SlugAllocatorConfig() slug.Config {
	cfg := slug.DefaultConfig()
	for scope, length := range map[slug.Scope]int{
		slug.ScopeWorks:   c.Slug.MaxLength.Works,
		slug.ScopeGroups:  c.Slug.MaxLength.Groups,
		slug.ScopeAuthors: c.Slug.MaxLength.Authors,
	} {
		if length > 0 {
			cfg.MaxLength[scope] = length
		}
	}
	if c.Slug.MaxAttempts > 0 {
		cfg.MaxAttempts = c.Slug.MaxAttempts
	}
	return cfg
}

// DatabaseOpenConfig selects the connection parameters for the configured driver.
func (c DatabaseConfig) DatabaseOpenConfig() database.Config {
	cfg := database.Config{
		Driver: c.Driver,
		Path:   c.Path,
		DSN:    c.DSN,
		URL:    c.URL,
	}

	var host DBAuthConfig
	switch strings.ToLower(strings.TrimSpace(c.Driver)) {
	case "postgres", "postgresql":
		host = c.Postgres
	case "mysql":
		host = c.MySQL
	default:
		return cfg
	}
	cfg.Host = host.Host
	cfg.Port = host.Port
	cfg.User = host.Username
	cfg.Password = host.Password
	cfg.Name = host.Database
	cfg.Options = host.Options
	return cfg
}
