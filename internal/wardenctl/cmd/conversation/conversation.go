package conversation

import (
	"context"
	"fmt"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	v1 "github.com/kiosk404/warden/internal/warden/handler/v1"
	"github.com/kiosk404/warden/internal/warden/service/agents/domain/entity"
	"github.com/kiosk404/warden/internal/wardenctl/cmd/util"
)

// NewCmdList returns the 'list' sub command.
func NewCmdList(f util.Factory, ioStreams util.IOStreams) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List conversations, most recently updated first",
		Example: heredoc.Doc(`
			wardenctl list --limit 20`),
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			util.CheckErr(runList(cmd.Context(), f, ioStreams, limit))
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of conversations; 0 lists all.")
	return cmd
}

func runList(ctx context.Context, f util.Factory, streams util.IOStreams, limit int) error {
	ids, err := f.Client().ListConversations(ctx, limit)
	if err != nil {
		return err
	}
	table := util.NewTable(streams.Out)
	table.AddRow("CONVERSATION")
	for _, id := range ids {
		table.AddRow(id)
	}
	fmt.Fprintln(streams.Out, table)
	return nil
}

// NewCmdShow returns the 'show' sub command.
func NewCmdShow(f util.Factory, ioStreams util.IOStreams) *cobra.Command {
	return &cobra.Command{
		Use:   "show CONVERSATION",
		Short: "Print the messages and tool calls of a conversation",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			util.CheckErr(runShow(cmd.Context(), f, ioStreams, args[0]))
		},
	}
}

func runShow(ctx context.Context, f util.Factory, streams util.IOStreams, id string) error {
	conv, err := f.Client().GetConversation(ctx, id)
	if err != nil {
		return err
	}
	printConversation(streams, conv)
	return nil
}

func printConversation(streams util.IOStreams, conv *v1.ConversationResponse) {
	width := util.TerminalWidth(streams.Out)
	fmt.Fprintf(streams.Out, "%s %s  %s\n", util.DimStyle.Render("conversation"), conv.ID, util.DimStyle.Render("updated "+conv.UpdatedAt))
	for _, m := range conv.Messages {
		style := util.AssistantStyle
		if m.Role == entity.RoleUser {
			style = util.UserStyle
		}
		fmt.Fprintln(streams.Out, style.Render(string(m.Role)))
		if m.Text != "" {
			fmt.Fprintln(streams.Out, util.Wrap(m.Text, width, "  "))
		}
	}

	if len(conv.ToolCalls) == 0 {
		return
	}
	fmt.Fprintln(streams.Out)
	table := util.NewTable(streams.Out)
	table.AddRow("TOOL CALL", "TOOL", "STATUS", "REASON")
	for _, tc := range conv.ToolCalls {
		table.AddRow(tc.ID, tc.ToolName, tc.Status, tc.RejectionReason)
	}
	fmt.Fprintln(streams.Out, table)
	if conv.HasPendingApprovals {
		fmt.Fprintln(streams.Out, util.ToolStyle.Render("waiting for approval: wardenctl approvals "+string(conv.ID)))
	}
}

// NewCmdDelete returns the 'delete' sub command.
func NewCmdDelete(f util.Factory, ioStreams util.IOStreams) *cobra.Command {
	return &cobra.Command{
		Use:   "delete CONVERSATION",
		Short: "Delete a conversation",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			err := f.Client().DeleteConversation(cmd.Context(), args[0])
			util.CheckErr(err)
			fmt.Fprintf(ioStreams.Out, "conversation %s deleted\n", args[0])
		},
	}
}

// NewCmdResume returns the 'resume' sub command.
func NewCmdResume(f util.Factory, ioStreams util.IOStreams) *cobra.Command {
	req := &v1.ResumeRequest{}
	cmd := &cobra.Command{
		Use:   "resume CONVERSATION",
		Short: "Run the decided tool calls and continue the conversation",
		Long: heredoc.Doc(`
			Execute the approved tool calls of a conversation, record the rejected ones,
			and send the results to the model. Fails while a call is still pending.`),
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			resp, err := f.Client().Resume(cmd.Context(), args[0], req)
			util.CheckErr(err)
			fmt.Fprintln(ioStreams.Out, resp.Text)
			if resp.HasPendingApprovals {
				fmt.Fprintln(ioStreams.Out, util.ToolStyle.Render("new tool calls wait for approval: wardenctl approvals "+args[0]))
			}
		},
	}
	cmd.Flags().StringArrayVar(&req.Tools, "tool", nil, "Tool or toolkit offered to the model. Repeatable.")
	cmd.Flags().StringVar(&req.SystemPrompt, "system", "", "System prompt override.")
	return cmd
}
