package runtime

import (
	"strings"

	"github.com/kiosk404/warden/internal/warden/service/agents/domain/entity"
)

// DefaultDelimiter joins the text of merged same-role messages.
const DefaultDelimiter = "\n\n"

// NormalizeOptions are the per-backend knobs of Normalize.
type NormalizeOptions struct {
	// KeepToolBlocks keeps TOOL_USE and TOOL_RESULT blocks in the history.
	// When false, messages made only of tool blocks are dropped and tool
	// blocks are stripped from mixed messages, for backends that cannot
	// receive raw tool blocks across turns.
	KeepToolBlocks bool

	// PairToolBlocks drops a TOOL_USE block that has no TOOL_RESULT in the
	// following message, and a TOOL_RESULT block that has no TOOL_USE in the
	// preceding message. Backends validating tool pairing need this.
	PairToolBlocks bool

	// Delimiter joins text of merged messages. Defaults to DefaultDelimiter.
	Delimiter string
}

// Normalize rewrites a conversation history into a shape strict backends
// accept:
//
//   - SYSTEM messages are removed (see SystemPrompt);
//   - tool blocks are filtered when KeepToolBlocks is false;
//   - messages with blank text and no tool block are dropped;
//   - adjacent same-role messages are merged;
//   - leading non-user messages are dropped;
//   - unpaired tool blocks are dropped when PairToolBlocks is true.
//
// The steps repeat until nothing changes. Every step only removes or merges,
// so the loop terminates and Normalize(Normalize(m)) equals Normalize(m).
// The result alternates user/assistant roles and starts with a user message.
// Input messages are never modified.
func Normalize(msgs []*entity.Message, opts NormalizeOptions) []*entity.Message {
	if opts.Delimiter == "" {
		opts.Delimiter = DefaultDelimiter
	}

	out := make([]*entity.Message, 0, len(msgs))
	for _, m := range msgs {
		if m != nil && m.Role() != entity.RoleSystem {
			out = append(out, m)
		}
	}

	for {
		before := size(out)
		out = normalizePass(out, opts)
		if size(out) == before {
			return out
		}
	}
}

// SystemPrompt combines prompt with the text of SYSTEM messages in msgs.
// A SYSTEM message repeating prompt verbatim is skipped.
func SystemPrompt(msgs []*entity.Message, prompt string) string {
	parts := make([]string, 0, 2)
	if strings.TrimSpace(prompt) != "" {
		parts = append(parts, prompt)
	}
	for _, m := range msgs {
		if m == nil || m.Role() != entity.RoleSystem {
			continue
		}
		text := m.Text()
		if strings.TrimSpace(text) == "" || text == prompt {
			continue
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, DefaultDelimiter)
}

type footprint struct{ messages, blocks int }

func size(msgs []*entity.Message) footprint {
	f := footprint{messages: len(msgs)}
	for _, m := range msgs {
		f.blocks += m.Content().Len()
	}
	return f
}

func normalizePass(msgs []*entity.Message, opts NormalizeOptions) []*entity.Message {
	msgs = filterBlocks(msgs, opts.KeepToolBlocks)
	msgs = dropBlank(msgs)
	msgs = mergeSameRole(msgs, opts.Delimiter)
	msgs = dropLeadingNonUser(msgs)
	if opts.PairToolBlocks {
		msgs = pairToolBlocks(msgs)
	}
	return msgs
}

// filterBlocks removes empty text blocks and, unless keepTools is set,
// every tool block.
func filterBlocks(msgs []*entity.Message, keepTools bool) []*entity.Message {
	out := make([]*entity.Message, 0, len(msgs))
	for _, m := range msgs {
		if !keepTools && m.Content().IsToolOnly() {
			continue
		}
		blocks := m.Blocks()
		kept := blocks[:0]
		for _, b := range blocks {
			if b.Type == entity.BlockText && b.Text == "" {
				continue
			}
			if !keepTools && b.IsTool() {
				continue
			}
			kept = append(kept, b)
		}
		if len(kept) == m.Content().Len() {
			out = append(out, m)
			continue
		}
		out = append(out, m.WithContent(entity.NewMessageContent(kept...)))
	}
	return out
}

func dropBlank(msgs []*entity.Message) []*entity.Message {
	out := make([]*entity.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Content().IsBlank() {
			continue
		}
		out = append(out, m)
	}
	return out
}

func mergeSameRole(msgs []*entity.Message, delimiter string) []*entity.Message {
	out := make([]*entity.Message, 0, len(msgs))
	for _, m := range msgs {
		if n := len(out); n > 0 && out[n-1].Role() == m.Role() {
			out[n-1] = merge(out[n-1], m, delimiter)
			continue
		}
		out = append(out, m)
	}
	return out
}

// merge concatenates the blocks of a and b. Text blocks meeting at the seam
// are fused with the delimiter so the merged text reads as one message.
func merge(a, b *entity.Message, delimiter string) *entity.Message {
	left, right := a.Blocks(), b.Blocks()
	if n := len(left); n > 0 && len(right) > 0 &&
		left[n-1].Type == entity.BlockText && right[0].Type == entity.BlockText {
		left[n-1] = entity.TextBlock(left[n-1].Text + delimiter + right[0].Text)
		right = right[1:]
	}
	return a.WithContent(entity.NewMessageContent(append(left, right...)...))
}

func dropLeadingNonUser(msgs []*entity.Message) []*entity.Message {
	for i, m := range msgs {
		if m.Role() == entity.RoleUser {
			return msgs[i:]
		}
	}
	return msgs[:0]
}

func pairToolBlocks(msgs []*entity.Message) []*entity.Message {
	out := make([]*entity.Message, 0, len(msgs))
	for i, m := range msgs {
		var prev, next map[entity.ToolCallID]struct{}
		if i > 0 {
			prev = idSet(msgs[i-1].Content().ToolUseIDs())
		}
		if i+1 < len(msgs) {
			next = idSet(msgs[i+1].Content().ToolResultIDs())
		}

		blocks := m.Blocks()
		kept := blocks[:0]
		for _, b := range blocks {
			switch b.Type {
			case entity.BlockToolUse:
				if _, ok := next[b.ToolUseID]; !ok {
					continue
				}
			case entity.BlockToolResult:
				if _, ok := prev[b.ToolUseID]; !ok {
					continue
				}
			}
			kept = append(kept, b)
		}
		if len(kept) == m.Content().Len() {
			out = append(out, m)
			continue
		}
		out = append(out, m.WithContent(entity.NewMessageContent(kept...)))
	}
	return out
}

func idSet(ids []entity.ToolCallID) map[entity.ToolCallID]struct{} {
	set := make(map[entity.ToolCallID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
