package options

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/kiosk404/warden/pkg/logger"
)

// LogOptions configures the global logger.
type LogOptions struct {
	logger.Options `mapstructure:",squash"`
}

func NewLogOptions() *LogOptions {
	return &LogOptions{Options: logger.Options{Level: "info", Format: "text", Output: "stderr"}}
}

func (o *LogOptions) Validate() []error {
	var errs []error
	if _, err := logrus.ParseLevel(o.Level); err != nil {
		errs = append(errs, fmt.Errorf("--log.level: %w", err))
	}
	if o.Format != "text" && o.Format != "json" {
		errs = append(errs, fmt.Errorf("--log.format %q must be text or json", o.Format))
	}
	return errs
}

func (o *LogOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Level, "log.level", o.Level, "Minimum log level (debug, info, warn, error).")
	fs.StringVar(&o.Format, "log.format", o.Format, "Log format, text or json.")
	fs.StringVar(&o.Output, "log.output", o.Output, "Log output: stdout, stderr or a file path.")
}
