package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage drivers understood by the server.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Battle    BattleConfig    `mapstructure:"battle"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// AllowedOrigins restricts websocket upgrades; empty allows any origin.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// BattleConfig holds the pacing and liveness limits of the battle core.
type BattleConfig struct {
	InterTurnDelay      time.Duration `mapstructure:"inter_turn_delay"`
	MaxTurns            int           `mapstructure:"max_turns"`
	StalemateRounds     int           `mapstructure:"stalemate_rounds"`
	TurnTimeLimit       time.Duration `mapstructure:"turn_time_limit"`
	WatchdogInterval    time.Duration `mapstructure:"watchdog_interval"`
	RetryCap            int           `mapstructure:"retry_cap"`
	RetryInitialBackoff time.Duration `mapstructure:"retry_initial_backoff"`
	RetryMaxBackoff     time.Duration `mapstructure:"retry_max_backoff"`
	MaxQueueDepth       int           `mapstructure:"max_queue_depth"`
	MinActionInterval   time.Duration `mapstructure:"min_action_interval"`
}

type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

type TelemetryConfig struct {
	// OTLPEndpoint enables tracing when set (e.g. http://localhost:4318).
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	ServiceName  string `mapstructure:"service_name"`
}

// EnvPrefix prefixes every environment override, e.g. ARENA_SERVER_ADDRESS.
const EnvPrefix = "ARENA"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.allowed_origins", []string{})

	v.SetDefault("storage.driver", DriverSQLite)
	v.SetDefault("storage.dsn", "arena.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("battle.inter_turn_delay", time.Second)
	v.SetDefault("battle.max_turns", 200)
	v.SetDefault("battle.stalemate_rounds", 5)
	v.SetDefault("battle.turn_time_limit", 2*time.Minute)
	v.SetDefault("battle.watchdog_interval", 5*time.Second)
	v.SetDefault("battle.retry_cap", 3)
	v.SetDefault("battle.retry_initial_backoff", 50*time.Millisecond)
	v.SetDefault("battle.retry_max_backoff", time.Second)
	v.SetDefault("battle.max_queue_depth", 10)
	v.SetDefault("battle.min_action_interval", 250*time.Millisecond)

	v.SetDefault("catalog.path", "config/cards.yaml")

	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.service_name", "chimera-arena")
}

// Load reads the YAML configuration at path (optional when empty) and
// applies ARENA_* environment overrides on top of the defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the services cannot run with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.Driver {
	case DriverSQLite, DriverPostgres:
		if strings.TrimSpace(c.Storage.DSN) == "" {
			errs = append(errs, fmt.Errorf("storage.dsn is required for driver %q", c.Storage.Driver))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q is not one of sqlite, postgres, memory", c.Storage.Driver))
	}
	b := c.Battle
	if b.InterTurnDelay < 0 {
		errs = append(errs, errors.New("battle.inter_turn_delay must not be negative"))
	}
	if b.MaxTurns <= 0 {
		errs = append(errs, errors.New("battle.max_turns must be positive"))
	}
	if b.StalemateRounds < 2 {
		errs = append(errs, errors.New("battle.stalemate_rounds must be at least 2"))
	}
	if b.TurnTimeLimit <= 0 {
		errs = append(errs, errors.New("battle.turn_time_limit must be positive"))
	}
	if b.WatchdogInterval <= 0 {
		errs = append(errs, errors.New("battle.watchdog_interval must be positive"))
	}
	if b.RetryCap < 1 {
		errs = append(errs, errors.New("battle.retry_cap must be at least 1"))
	}
	if b.RetryInitialBackoff <= 0 || b.RetryMaxBackoff < b.RetryInitialBackoff {
		errs = append(errs, errors.New("battle retry backoff must satisfy 0 < initial <= max"))
	}
	if b.MaxQueueDepth < 1 {
		errs = append(errs, errors.New("battle.max_queue_depth must be at least 1"))
	}
	if b.MinActionInterval < 0 {
		errs = append(errs, errors.New("battle.min_action_interval must not be negative"))
	}
	if strings.TrimSpace(c.Catalog.Path) == "" {
		errs = append(errs, errors.New("catalog.path is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
