package config

import (
	"github.com/kiosk404/warden/internal/warden/options"
)

// Config is the running configuration structure of the warden service.
type Config struct {
	*options.Options
}

// CreateConfigFromOptions creates a running configuration instance based
// on a given warden command line or configuration file option.
func CreateConfigFromOptions(opts *options.Options) (*Config, error) {
	return &Config{opts}, nil
}
