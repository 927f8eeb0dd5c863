package catalog

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kiosk404/warden/internal/wardenctl/cmd/util"
)

// NewCmdTools returns the 'tools' sub command.
func NewCmdTools(f util.Factory, ioStreams util.IOStreams) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tools the server can offer to the model",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			infos, err := f.Client().Tools(cmd.Context())
			util.CheckErr(err)

			table := util.NewTable(ioStreams.Out)
			table.AddRow("NAME", "SOURCE", "APPROVAL", "DESCRIPTION")
			for _, info := range infos {
				approval := "no"
				if info.RequiresApproval {
					approval = "required"
				}
				table.AddRow(info.Name, info.Source, approval, info.Description)
			}
			fmt.Fprintln(ioStreams.Out, table)
		},
	}
}

// NewCmdProviders returns the 'providers' sub command.
func NewCmdProviders(f util.Factory, ioStreams util.IOStreams) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List the model providers of the server",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			resp, err := f.Client().Providers(cmd.Context())
			util.CheckErr(err)

			table := util.NewTable(ioStreams.Out)
			table.AddRow("PROVIDER", "DEFAULT")
			for _, id := range resp.Providers {
				mark := ""
				if id == resp.Default {
					mark = "*"
				}
				table.AddRow(id, mark)
			}
			fmt.Fprintln(ioStreams.Out, table)
		},
	}
}
