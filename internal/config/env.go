package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Bootstrap holds the settings read from the environment before the
// config file is located.
type Bootstrap struct {
	ConfigPath string `env:"ARENA_CONFIG" envDefault:"config/arena.yaml"`
}

// ParseBootstrap loads Bootstrap from environment variables.
func ParseBootstrap() (Bootstrap, error) {
	var b Bootstrap
	if err := env.Parse(&b); err != nil {
		return Bootstrap{}, fmt.Errorf("parse env: %w", err)
	}
	return b, nil
}
