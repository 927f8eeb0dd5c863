package warden

import (
	"github.com/kiosk404/warden/internal/warden/config"
	"github.com/kiosk404/warden/internal/warden/options"
	"github.com/kiosk404/warden/pkg/app"
	"github.com/kiosk404/warden/pkg/logger"
)

const commandDesc = `Warden runs LLM conversations whose tool calls are gated by human approval.

A turn sends the conversation to the configured model provider. Tool calls the
model proposes are either executed right away or parked until an operator
approves or rejects them over the REST API; the conversation then resumes.`

// NewApp creates an App object with default parameters.
func NewApp(basename string) *app.App {
	opts := options.NewOptions()
	application := app.NewApp("Warden Server",
		basename,
		app.WithOptions(opts),
		app.WithDescription(commandDesc),
		app.WithDefaultValidArgs(),
		app.WithRunFunc(run(opts)),
	)
	return application
}

func run(opts *options.Options) app.RunFunc {
	return func(basename string) error {
		if err := logger.InitLog(&opts.LogOptions.Options); err != nil {
			return err
		}
		defer logger.FlushLog()

		cfg, err := config.CreateConfigFromOptions(opts)
		if err != nil {
			return err
		}

		return Run(cfg)
	}
}
