package entity

import (
	"strings"

	"github.com/kiosk404/warden/pkg/utils/json"
)

// ContentBlockType discriminates the blocks of a MessageContent.
type ContentBlockType string

const (
	BlockText       ContentBlockType = "text"
	BlockToolUse    ContentBlockType = "tool_use"
	BlockToolResult ContentBlockType = "tool_result"
)

// ContentBlock is one piece of a message: plain text, a tool invocation
// proposed by the assistant, or the result of such an invocation.
type ContentBlock struct {
	Type ContentBlockType `json:"type"`

	// Text is the text of a TEXT block or the result text of a TOOL_RESULT block.
	Text string `json:"text,omitempty"`

	// ToolUseID links TOOL_USE and TOOL_RESULT blocks together.
	ToolUseID ToolCallID `json:"tool_use_id,omitempty"`

	// ToolName and Input are set on TOOL_USE blocks.
	ToolName string    `json:"tool_name,omitempty"`
	Input    ToolInput `json:"input"`

	// IsError marks a TOOL_RESULT describing a failure or rejection.
	IsError bool `json:"is_error,omitempty"`
}

func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: BlockText, Text: text}
}

func ToolUseBlock(id ToolCallID, name string, input ToolInput) ContentBlock {
	return ContentBlock{Type: BlockToolUse, ToolUseID: id, ToolName: name, Input: input}
}

func ToolResultBlock(id ToolCallID, result string, isError bool) ContentBlock {
	return ContentBlock{Type: BlockToolResult, ToolUseID: id, Text: result, IsError: isError}
}

// IsTool reports whether the block is a TOOL_USE or TOOL_RESULT block.
func (b ContentBlock) IsTool() bool {
	return b.Type == BlockToolUse || b.Type == BlockToolResult
}

// MessageContent is an immutable, ordered list of content blocks.
type MessageContent struct {
	blocks []ContentBlock
}

// NewMessageContent copies blocks into a new MessageContent.
func NewMessageContent(blocks ...ContentBlock) MessageContent {
	if len(blocks) == 0 {
		return MessageContent{}
	}
	return MessageContent{blocks: append([]ContentBlock(nil), blocks...)}
}

// TextContent builds a content holding a single TEXT block.
func TextContent(text string) MessageContent {
	return MessageContent{blocks: []ContentBlock{TextBlock(text)}}
}

// Blocks returns a copy of the blocks.
func (c MessageContent) Blocks() []ContentBlock {
	return append([]ContentBlock(nil), c.blocks...)
}

func (c MessageContent) Len() int { return len(c.blocks) }

// Text concatenates the TEXT blocks.
func (c MessageContent) Text() string {
	var sb strings.Builder
	for _, b := range c.blocks {
		if b.Type == BlockText {
			sb.WriteString(b.Text)
		}
	}
	return sb.String()
}

// HasToolBlocks reports whether any TOOL_USE or TOOL_RESULT block is present.
func (c MessageContent) HasToolBlocks() bool {
	for _, b := range c.blocks {
		if b.IsTool() {
			return true
		}
	}
	return false
}

// IsToolOnly reports whether the content consists solely of tool blocks.
func (c MessageContent) IsToolOnly() bool {
	if len(c.blocks) == 0 {
		return false
	}
	for _, b := range c.blocks {
		if !b.IsTool() {
			return false
		}
	}
	return true
}

// IsBlank reports whether the content carries no tool block and no
// non-whitespace text.
func (c MessageContent) IsBlank() bool {
	return !c.HasToolBlocks() && strings.TrimSpace(c.Text()) == ""
}

// ToolUseIDs returns the ids of TOOL_USE blocks in order.
func (c MessageContent) ToolUseIDs() []ToolCallID {
	return c.idsOf(BlockToolUse)
}

// ToolResultIDs returns the ids of TOOL_RESULT blocks in order.
func (c MessageContent) ToolResultIDs() []ToolCallID {
	return c.idsOf(BlockToolResult)
}

func (c MessageContent) idsOf(t ContentBlockType) []ToolCallID {
	var ids []ToolCallID
	for _, b := range c.blocks {
		if b.Type == t {
			ids = append(ids, b.ToolUseID)
		}
	}
	return ids
}

func (c MessageContent) MarshalJSON() ([]byte, error) {
	if c.blocks == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c.blocks)
}

func (c *MessageContent) UnmarshalJSON(data []byte) error {
	var blocks []ContentBlock
	if err := json.Unmarshal(data, &blocks); err != nil {
		return err
	}
	c.blocks = blocks
	return nil
}
