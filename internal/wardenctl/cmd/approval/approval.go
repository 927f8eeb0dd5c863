package approval

import (
	"context"
	"errors"
	"fmt"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/kiosk404/warden/internal/warden/service/agents/domain/entity"
	"github.com/kiosk404/warden/internal/wardenctl/cmd/util"
	"github.com/kiosk404/warden/pkg/utils/json"
)

// NewCmdApprovals returns the 'approvals' sub command.
func NewCmdApprovals(f util.Factory, ioStreams util.IOStreams) *cobra.Command {
	return &cobra.Command{
		Use:   "approvals CONVERSATION",
		Short: "List the tool calls awaiting a decision",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			util.CheckErr(runApprovals(cmd.Context(), f, ioStreams, args[0]))
		},
	}
}

func runApprovals(ctx context.Context, f util.Factory, streams util.IOStreams, id string) error {
	pending, err := f.Client().ListApprovals(ctx, id)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		fmt.Fprintln(streams.Out, "no tool calls awaiting approval")
		return nil
	}
	table := util.NewTable(streams.Out)
	table.AddRow("TOOL CALL", "TOOL", "INPUT")
	for _, tc := range pending {
		input, _ := json.MarshalString(tc.Input)
		table.AddRow(tc.ID, tc.ToolName, input)
	}
	fmt.Fprintln(streams.Out, table)
	return nil
}

// DecideOptions is an options struct to support 'approve' and 'reject'.
type DecideOptions struct {
	All    bool
	Reason string
	Resume bool

	approve bool
	factory util.Factory
	util.IOStreams
}

// NewCmdApprove returns the 'approve' sub command.
func NewCmdApprove(f util.Factory, ioStreams util.IOStreams) *cobra.Command {
	o := &DecideOptions{approve: true, factory: f, IOStreams: ioStreams}
	cmd := &cobra.Command{
		Use:   "approve CONVERSATION [TOOL_CALL...]",
		Short: "Approve pending tool calls",
		Example: heredoc.Doc(`
			# Approve one call and continue the conversation
			wardenctl approve ops-1 call_3f9a --resume

			# Approve everything that is pending
			wardenctl approve ops-1 --all`),
		Args: cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			util.CheckErr(o.Run(cmd.Context(), args[0], args[1:]))
		},
	}
	o.addFlags(cmd)
	return cmd
}

// NewCmdReject returns the 'reject' sub command.
func NewCmdReject(f util.Factory, ioStreams util.IOStreams) *cobra.Command {
	o := &DecideOptions{factory: f, IOStreams: ioStreams}
	cmd := &cobra.Command{
		Use:   "reject CONVERSATION [TOOL_CALL...]",
		Short: "Reject pending tool calls",
		Example: heredoc.Doc(`
			wardenctl reject ops-1 call_3f9a --reason "not during the freeze"`),
		Args: cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			util.CheckErr(o.Run(cmd.Context(), args[0], args[1:]))
		},
	}
	o.addFlags(cmd)
	cmd.Flags().StringVar(&o.Reason, "reason", "", "Reason reported to the model.")
	return cmd
}

func (o *DecideOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.All, "all", false, "Decide every pending tool call.")
	cmd.Flags().BoolVar(&o.Resume, "resume", false, "Resume the conversation once nothing is pending.")
}

func (o *DecideOptions) Run(ctx context.Context, id string, callIDs []string) error {
	if o.All == (len(callIDs) > 0) {
		return errors.New("name the tool calls to decide or pass --all")
	}

	c := o.factory.Client()
	var (
		resp *entity.AgentResponse
		err  error
	)
	switch {
	case o.All && o.approve:
		resp, err = c.ApproveAll(ctx, id)
	case o.All:
		resp, err = c.RejectAll(ctx, id, o.Reason)
	default:
		decisions := make([]entity.ApprovalDecision, 0, len(callIDs))
		for _, callID := range callIDs {
			decisions = append(decisions, entity.ApprovalDecision{
				ToolCallID:      entity.ToolCallID(callID),
				Approved:        o.approve,
				RejectionReason: o.Reason,
			})
		}
		resp, err = c.Decide(ctx, id, decisions)
	}
	if err != nil {
		return err
	}

	verb := "rejected"
	if o.approve {
		verb = "approved"
	}
	for _, tc := range resp.ToolCalls {
		if tc.Status == entity.ToolCallApproved || tc.Status == entity.ToolCallRejected {
			fmt.Fprintf(o.Out, "%s %s (%s)\n", tc.ID, tc.Status, tc.ToolName)
		}
	}
	if resp.HasPendingApprovals {
		fmt.Fprintf(o.Out, "tool calls %s; others still await a decision\n", verb)
		return nil
	}
	if !o.Resume {
		fmt.Fprintf(o.Out, "all tool calls decided, continue with: wardenctl resume %s\n", id)
		return nil
	}

	resumed, err := c.Resume(ctx, id, nil)
	if err != nil {
		return err
	}
	fmt.Fprintln(o.Out, resumed.Text)
	return nil
}
