package chat

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	v1 "github.com/kiosk404/warden/internal/warden/handler/v1"
	"github.com/kiosk404/warden/internal/warden/service/agents/domain/entity"
	"github.com/kiosk404/warden/internal/wardenctl/client"
	"github.com/kiosk404/warden/internal/wardenctl/cmd/util"
	"github.com/kiosk404/warden/pkg/utils/json"
)

var chatExample = heredoc.Doc(`
	# Interactive chat
	wardenctl chat

	# Single message, continuing a conversation
	wardenctl chat --conversation ops-1 "restart the api service"

	# Offer only some tools and decide approvals automatically
	wardenctl chat --tool shell_exec --tool mcp:github --approve "list open issues"
`)

// ChatOptions is an options struct to support 'chat' sub command.
type ChatOptions struct {
	ConversationID string
	SystemPrompt   string
	Tools          []string
	NoStream       bool
	Markdown       bool

	// Approve decides every pending tool call without prompting: "" asks,
	// "all" approves and "none" rejects.
	Approve string

	factory util.Factory
	reader  *bufio.Reader
	util.IOStreams
}

func NewChatOptions(f util.Factory, ioStreams util.IOStreams) *ChatOptions {
	return &ChatOptions{
		factory:   f,
		IOStreams: ioStreams,
	}
}

// NewCmdChat returns new initialized instance of 'chat' sub command.
func NewCmdChat(f util.Factory, ioStreams util.IOStreams) *cobra.Command {
	o := NewChatOptions(f, ioStreams)

	cmd := &cobra.Command{
		Use:                   "chat [message]",
		DisableFlagsInUseLine: true,
		Short:                 "Chat with the model, deciding tool calls as they come",
		Long: heredoc.Doc(`
			Send messages to a warden conversation.

			Tool calls that need a human decision are shown one by one; answer y to
			approve, anything else to reject (the answer is kept as the reason). The
			conversation resumes once every call is decided.

			Without a message argument an interactive session is started.`),
		Example: chatExample,
		Run: func(cmd *cobra.Command, args []string) {
			util.CheckErr(o.Complete(args))
			util.CheckErr(o.Validate())
			util.CheckErr(o.Run(cmd.Context(), args))
		},
	}

	cmd.Flags().StringVar(&o.ConversationID, "conversation", o.ConversationID, "Conversation to continue. A new one is created when empty.")
	cmd.Flags().StringVar(&o.SystemPrompt, "system", o.SystemPrompt, "System prompt of a new conversation.")
	cmd.Flags().StringArrayVar(&o.Tools, "tool", o.Tools, "Tool or toolkit offered to the model. Repeatable; default is the whole catalogue.")
	cmd.Flags().BoolVar(&o.NoStream, "no-stream", o.NoStream, "Wait for the whole reply instead of streaming it.")
	cmd.Flags().BoolVar(&o.Markdown, "markdown", o.Markdown, "Render replies as markdown.")
	cmd.Flags().StringVar(&o.Approve, "approve", o.Approve, "Decide tool calls without prompting: all or none.")
	cmd.Flags().Lookup("approve").NoOptDefVal = "all"

	return cmd
}

func (o *ChatOptions) Complete(_ []string) error {
	o.reader = bufio.NewReader(o.In)
	if o.Markdown && !util.IsTerminal(o.Out) {
		o.Markdown = false
	}
	return nil
}

func (o *ChatOptions) Validate() error {
	switch o.Approve {
	case "", "all", "none":
		return nil
	default:
		return fmt.Errorf("--approve must be all or none, got %q", o.Approve)
	}
}

func (o *ChatOptions) Run(ctx context.Context, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	c := o.factory.Client()

	if len(args) > 0 {
		return o.turn(ctx, c, strings.Join(args, " "))
	}

	fmt.Fprintln(o.Out, util.DimStyle.Render("Type a message and press Enter. /new starts a new conversation, /quit exits."))
	for {
		fmt.Fprint(o.Out, util.UserStyle.Render("> "))
		line, err := o.reader.ReadString('\n')
		input := strings.TrimSpace(line)
		if input == "" && err != nil {
			fmt.Fprintln(o.Out)
			return nil
		}

		switch input {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/new":
			o.ConversationID = ""
			fmt.Fprintln(o.Out, util.DimStyle.Render("Started a new conversation."))
			continue
		}

		if err := o.turn(ctx, c, input); err != nil {
			fmt.Fprintln(o.ErrOut, util.ErrorStyle.Render("Error: "+err.Error()))
		}
	}
}

// turn sends one message and keeps resuming until no decision is pending.
func (o *ChatOptions) turn(ctx context.Context, c *client.Client, content string) error {
	req := &v1.ExecuteRequest{
		ConversationID: o.ConversationID,
		Content:        content,
		Tools:          o.Tools,
		SystemPrompt:   o.SystemPrompt,
	}

	var (
		resp *entity.AgentResponse
		err  error
	)
	fmt.Fprintln(o.Out, util.AssistantStyle.Render("assistant"))
	if o.NoStream {
		resp, err = c.Execute(ctx, req)
		if err == nil {
			o.printText(resp.Text)
		}
	} else {
		resp, err = c.ExecuteStream(ctx, req, o.printEvent)
		if err == nil {
			fmt.Fprintln(o.Out)
		}
	}
	if err != nil {
		if client.IsCode(err, v1.ErrConversationBlocked) {
			return fmt.Errorf("%w; decide the pending tool calls first (wardenctl approvals %s)", err, o.ConversationID)
		}
		return err
	}
	o.ConversationID = string(resp.ConversationID)

	for resp.HasPendingApprovals {
		decisions, err := o.decide(resp.ToolCalls)
		if err != nil {
			return err
		}
		if _, err := c.Decide(ctx, o.ConversationID, decisions); err != nil {
			return err
		}
		resp, err = c.Resume(ctx, o.ConversationID, &v1.ResumeRequest{Tools: o.Tools, SystemPrompt: o.SystemPrompt})
		if err != nil {
			return err
		}
		fmt.Fprintln(o.Out, util.AssistantStyle.Render("assistant"))
		o.printText(resp.Text)
	}
	return nil
}

func (o *ChatOptions) printEvent(ev *entity.StreamEvent) {
	switch ev.Type {
	case entity.StreamTextDelta:
		fmt.Fprint(o.Out, ev.Text)
	case entity.StreamToolUseStart:
		fmt.Fprintf(o.Out, "\n%s\n", util.ToolStyle.Render("→ "+ev.ToolName))
	case entity.StreamReasoningStep:
		fmt.Fprintln(o.Out, util.DimStyle.Render(ev.Content))
	}
}

func (o *ChatOptions) printText(text string) {
	if text == "" {
		return
	}
	if o.Markdown {
		text = util.RenderMarkdown(text, util.TerminalWidth(o.Out)-4)
	}
	fmt.Fprintln(o.Out, text)
}

// decide asks for a decision on every pending call of calls.
func (o *ChatOptions) decide(calls []entity.ToolCallView) ([]entity.ApprovalDecision, error) {
	width := util.TerminalWidth(o.Out)
	var decisions []entity.ApprovalDecision
	for _, tc := range calls {
		if tc.Status != entity.ToolCallPending {
			continue
		}

		input, _ := json.MarshalString(tc.Input)
		fmt.Fprintf(o.Out, "%s %s\n", util.ToolStyle.Render("tool call "+tc.ToolName), util.DimStyle.Render(string(tc.ID)))
		if tc.Description != "" {
			fmt.Fprintln(o.Out, util.Wrap(tc.Description, width, "  "))
		}
		fmt.Fprintln(o.Out, util.Wrap(input, width, "  "))

		decision := entity.ApprovalDecision{ToolCallID: tc.ID}
		switch o.Approve {
		case "all":
			decision.Approved = true
		case "none":
			decision.RejectionReason = "rejected by operator"
		default:
			fmt.Fprint(o.Out, "Approve? [y/N or a rejection reason] ")
			answer, err := o.reader.ReadString('\n')
			if err != nil && !errors.Is(err, io.EOF) {
				return nil, err
			}
			decision.Approved, decision.RejectionReason = parseAnswer(answer)
		}
		decisions = append(decisions, decision)
	}
	return decisions, nil
}

// parseAnswer turns a prompt answer into a decision. Anything other than
// yes rejects, and a free-form answer becomes the rejection reason.
func parseAnswer(answer string) (approved bool, reason string) {
	answer = strings.TrimSpace(answer)
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, ""
	case "", "n", "no":
		return false, "rejected by operator"
	default:
		return false, answer
	}
}
