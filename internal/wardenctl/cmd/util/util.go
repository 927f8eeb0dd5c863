package util

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/viper"

	"github.com/kiosk404/warden/internal/wardenctl/client"
)

// Global flag names shared by every subcommand.
const (
	FlagServer  = "server"
	FlagToken   = "token"
	FlagTimeout = "timeout"
)

// IOStreams provides the standard names for iostreams.
type IOStreams struct {
	In     io.Reader
	Out    io.Writer
	ErrOut io.Writer
}

// Factory builds the API client from the global flags.
type Factory interface {
	Client() *client.Client
}

type factoryImpl struct{}

// NewDefaultFactory reads the global flags through viper, so that
// WARDENCTL_SERVER and friends also work.
func NewDefaultFactory() Factory {
	return factoryImpl{}
}

func (factoryImpl) Client() *client.Client {
	timeout := viper.GetDuration(FlagTimeout)
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return client.New(viper.GetString(FlagServer), viper.GetString(FlagToken), &http.Client{Timeout: timeout})
}

var fatalErrHandler = fatal

// CheckErr prints a user friendly error to STDERR and exits with a non-zero
// exit code.
func CheckErr(err error) {
	if err == nil {
		return
	}
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Reference != "" {
		fatalErrHandler(fmt.Sprintf("%s Error: %s (see %s)", color.RedString("✗"), apiErr.Message, apiErr.Reference), 1)
		return
	}
	fatalErrHandler(fmt.Sprintf("%s Error: %v", color.RedString("✗"), err), 1)
}

func fatal(msg string, code int) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(code)
}
