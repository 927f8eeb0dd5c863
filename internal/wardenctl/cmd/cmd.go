package cmd

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kiosk404/warden/internal/warden/handler/middleware"
	"github.com/kiosk404/warden/internal/wardenctl/cmd/approval"
	"github.com/kiosk404/warden/internal/wardenctl/cmd/catalog"
	"github.com/kiosk404/warden/internal/wardenctl/cmd/chat"
	"github.com/kiosk404/warden/internal/wardenctl/cmd/conversation"
	"github.com/kiosk404/warden/internal/wardenctl/cmd/util"
	"github.com/kiosk404/warden/pkg/utils/cliflag"
)

const envPrefix = "WARDENCTL"

// NewDefaultWardenCtlCommand creates the `wardenctl` command with default arguments.
func NewDefaultWardenCtlCommand() *cobra.Command {
	return NewWardenCtlCommand(os.Stdin, os.Stdout, os.Stderr)
}

func NewWardenCtlCommand(in io.Reader, out, errOut io.Writer) *cobra.Command {
	cmds := &cobra.Command{
		Use:   "wardenctl",
		Short: "wardenctl talks to a warden server",
		Long: heredoc.Doc(`
			wardenctl is the command line client of the warden server.

			It chats with the configured model, lists the tool calls waiting for a
			human decision, approves or rejects them and resumes the conversation.

			Global flags can also be set as WARDENCTL_SERVER, WARDENCTL_TOKEN and
			WARDENCTL_TIMEOUT. The token falls back to WARDEN_AUTH_TOKEN.`),
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}
	cmds.SetIn(in)
	cmds.SetOut(out)
	cmds.SetErr(errOut)

	flags := cmds.PersistentFlags()
	flags.SetNormalizeFunc(cliflag.WordSepNormalizeFunc)
	flags.String(util.FlagServer, "http://127.0.0.1:8787", "Address of the warden server.")
	flags.String(util.FlagToken, "", "Bearer token of the warden server.")
	flags.Duration(util.FlagTimeout, 120*time.Second, "Timeout of a single request.")

	_ = viper.BindPFlags(flags)
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	_ = viper.BindEnv(util.FlagToken, envPrefix+"_TOKEN", middleware.TokenEnv)

	ioStreams := util.IOStreams{In: in, Out: out, ErrOut: errOut}
	f := util.NewDefaultFactory()

	cmds.AddGroup(
		&cobra.Group{ID: "basic", Title: "Basic Commands:"},
		&cobra.Group{ID: "approval", Title: "Approval Commands:"},
		&cobra.Group{ID: "catalog", Title: "Catalog Commands:"},
	)
	add := func(group string, subs ...*cobra.Command) {
		for _, sub := range subs {
			sub.GroupID = group
			cmds.AddCommand(sub)
		}
	}
	add("basic",
		chat.NewCmdChat(f, ioStreams),
		conversation.NewCmdList(f, ioStreams),
		conversation.NewCmdShow(f, ioStreams),
		conversation.NewCmdDelete(f, ioStreams),
	)
	add("approval",
		approval.NewCmdApprovals(f, ioStreams),
		approval.NewCmdApprove(f, ioStreams),
		approval.NewCmdReject(f, ioStreams),
		conversation.NewCmdResume(f, ioStreams),
	)
	add("catalog",
		catalog.NewCmdTools(f, ioStreams),
		catalog.NewCmdProviders(f, ioStreams),
	)

	return cmds
}
