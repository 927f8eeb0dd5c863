package options

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"

	"github.com/kiosk404/warden/internal/pkg/server"
)

// ServerRunOptions contains the options for the HTTP server.
type ServerRunOptions struct {
	BindAddress     string        `json:"bind-address"     mapstructure:"bind-address"`
	BindPort        int           `json:"bind-port"        mapstructure:"bind-port"`
	Mode            string        `json:"mode"             mapstructure:"mode"`
	Healthz         bool          `json:"healthz"          mapstructure:"healthz"`
	EnableProfiling bool          `json:"enable-profiling" mapstructure:"enable-profiling"`
	ShutdownTimeout time.Duration `json:"shutdown-timeout" mapstructure:"shutdown-timeout"`

	// AuthToken enables bearer authentication for non-loopback clients.
	// Falls back to the WARDEN_AUTH_TOKEN environment variable.
	AuthToken string `json:"auth-token" mapstructure:"auth-token"`
}

// NewServerRunOptions creates a new ServerRunOptions object with default parameters.
func NewServerRunOptions() *ServerRunOptions {
	return &ServerRunOptions{
		BindAddress:     "127.0.0.1",
		BindPort:        8787,
		Mode:            gin.ReleaseMode,
		Healthz:         true,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Address returns host:port.
func (s *ServerRunOptions) Address() string {
	return fmt.Sprintf("%s:%d", s.BindAddress, s.BindPort)
}

// ApplyTo applies the run options to the method receiver and returns self.
func (s *ServerRunOptions) ApplyTo(c *server.Config) error {
	c.Address = s.Address()
	c.Mode = s.Mode
	c.Healthz = s.Healthz
	c.EnableProfiling = s.EnableProfiling
	c.ShutdownTimeout = s.ShutdownTimeout
	return nil
}

// Validate checks validation of ServerRunOptions.
func (s *ServerRunOptions) Validate() []error {
	var errs []error
	if s.BindPort < 0 || s.BindPort > 65535 {
		errs = append(errs, fmt.Errorf("--server.bind-port %d must be between 0 and 65535", s.BindPort))
	}
	switch s.Mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
	default:
		errs = append(errs, fmt.Errorf("--server.mode %q must be one of debug, release or test", s.Mode))
	}
	if s.ShutdownTimeout < 0 {
		errs = append(errs, fmt.Errorf("--server.shutdown-timeout must not be negative"))
	}
	return errs
}

// AddFlags adds flags for a specific APIServer to the specified FlagSet.
func (s *ServerRunOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&s.BindAddress, "server.bind-address", s.BindAddress, "IP address on which to serve the HTTP API.")
	fs.IntVar(&s.BindPort, "server.bind-port", s.BindPort, "Port on which to serve the HTTP API.")
	fs.StringVar(&s.Mode, "server.mode", s.Mode, "Start the server in a specified server mode. Supported server mode: debug, test, release.")
	fs.BoolVar(&s.Healthz, "server.healthz", s.Healthz, "Add self readiness check and install /healthz router.")
	fs.BoolVar(&s.EnableProfiling, "server.enable-profiling", s.EnableProfiling, "Enable profiling via web interface host:port/debug/pprof/.")
	fs.DurationVar(&s.ShutdownTimeout, "server.shutdown-timeout", s.ShutdownTimeout, "Grace period for in-flight requests on shutdown.")
	fs.StringVar(&s.AuthToken, "server.auth-token", s.AuthToken, "Bearer token required from non-loopback clients.")
}
