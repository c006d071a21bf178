package anthropic

import (
	"encoding/json"
	"fmt"
)

// MessagesRequest is the inbound request body of the Messages API.
//
// Decoding is deliberately lenient: system prompts and message content accept
// both the string and the block-array form, and unknown content block types are
// preserved verbatim so passthrough never loses information.
type MessagesRequest struct {
	Model         string          `json:"model"`
	Messages      []Message       `json:"messages"`
	System        SystemPrompt    `json:"system,omitempty"`
	Tools         []Tool          `json:"tools,omitempty"`
	ToolChoice    json.RawMessage `json:"tool_choice,omitempty"`
	Temperature   *float64        `json:"temperature,omitempty"`
	TopP          *float64        `json:"top_p,omitempty"`
	TopK          *int            `json:"top_k,omitempty"`
	MaxTokens     int             `json:"max_tokens,omitempty"`
	StopSequences []string        `json:"stop_sequences,omitempty"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
	Thinking      *ThinkingConfig `json:"thinking,omitempty"`
	Stream        bool            `json:"stream,omitempty"`
}

// ThinkingConfig enables extended thinking with an explicit token budget.
type ThinkingConfig struct {
	Type         string `json:"type,omitempty"`
	BudgetTokens int    `json:"budget_tokens,omitempty"`
}

// Message is a single conversation turn.
type Message struct {
	Role    string      `json:"role"`
	Content MessageBody `json:"content"`
}

// MessageBody holds a message's content blocks. The wire form is either a bare
// string (shorthand for a single text block) or an array of blocks.
type MessageBody struct {
	Blocks []ContentBlock

	// wasString records the inbound shorthand so passthrough-adjacent
	// marshaling reproduces the original shape.
	wasString bool
}

// UnmarshalJSON accepts both the string shorthand and the block-array form.
func (b *MessageBody) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		b.Blocks = []ContentBlock{{Type: ContentTypeText, Text: s}}
		b.wasString = true
		return nil
	}
	b.wasString = false
	if err := json.Unmarshal(data, &b.Blocks); err != nil {
		return fmt.Errorf("message content is neither string nor block array: %w", err)
	}
	return nil
}

// MarshalJSON reproduces the inbound shape.
func (b MessageBody) MarshalJSON() ([]byte, error) {
	if b.wasString && len(b.Blocks) == 1 && b.Blocks[0].Type == ContentTypeText {
		return json.Marshal(b.Blocks[0].Text)
	}
	return json.Marshal(b.Blocks)
}

// SystemPrompt is the system instruction, either a bare string or text blocks.
type SystemPrompt struct {
	Parts []ContentBlock

	wasString bool
}

// UnmarshalJSON accepts both the string and the block-array form.
func (s *SystemPrompt) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		s.Parts = []ContentBlock{{Type: ContentTypeText, Text: str}}
		s.wasString = true
		return nil
	}
	s.wasString = false
	if err := json.Unmarshal(data, &s.Parts); err != nil {
		return fmt.Errorf("system prompt is neither string nor block array: %w", err)
	}
	return nil
}

// MarshalJSON reproduces the inbound shape.
func (s SystemPrompt) MarshalJSON() ([]byte, error) {
	if s.wasString && len(s.Parts) == 1 {
		return json.Marshal(s.Parts[0].Text)
	}
	return json.Marshal(s.Parts)
}

// IsZero reports whether no system prompt was provided.
func (s SystemPrompt) IsZero() bool {
	return s.Parts == nil
}

// TextParts returns the text fragments of the system prompt in order,
// skipping non-text blocks.
func (s SystemPrompt) TextParts() []string {
	var parts []string
	for _, p := range s.Parts {
		if p.Type == ContentTypeText && p.Text != "" {
			parts = append(parts, p.Text)
		}
	}
	return parts
}

// Content block type discriminators.
const (
	ContentTypeText                = "text"
	ContentTypeImage               = "image"
	ContentTypeToolUse             = "tool_use"
	ContentTypeToolResult          = "tool_result"
	ContentTypeThinking            = "thinking"
	ContentTypeServerToolUse       = "server_tool_use"
	ContentTypeWebSearchToolResult = "web_search_tool_result"
)

// ContentBlock is the flat union of Anthropic content block kinds. Fields are
// populated according to Type; blocks of any other type keep their raw payload
// in Unknown and round-trip unchanged.
type ContentBlock struct {
	Type string `json:"type"`

	// text
	Text string `json:"text,omitempty"`

	// image
	Source *ImageSource `json:"source,omitempty"`

	// tool_use, server_tool_use
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result, web_search_tool_result
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`

	// thinking
	Thinking  string `json:"thinking,omitempty"`
	Signature string `json:"signature,omitempty"`

	// Reasoning round-trip credentials for thinking blocks produced from an
	// upstream reasoning item. Opaque to clients; echoed back on the next turn.
	ExtractedID               string `json:"extracted_openai_rs_id,omitempty"`
	ExtractedEncryptedContent string `json:"extracted_openai_rs_encrypted_content,omitempty"`

	// Unknown holds the verbatim payload of unrecognized block types.
	Unknown json.RawMessage `json:"-"`
}

// ImageSource describes image block content, base64-embedded or by URL.
type ImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data,omitempty"`
	URL       string `json:"url,omitempty"`
}

// contentBlock avoids UnmarshalJSON recursion.
type contentBlock ContentBlock

// UnmarshalJSON decodes known block types into typed fields and preserves
// anything else verbatim.
func (c *ContentBlock) UnmarshalJSON(data []byte) error {
	var cb contentBlock
	if err := json.Unmarshal(data, &cb); err != nil {
		return err
	}
	*c = ContentBlock(cb)
	switch c.Type {
	case ContentTypeText, ContentTypeImage, ContentTypeToolUse, ContentTypeToolResult,
		ContentTypeThinking, ContentTypeServerToolUse, ContentTypeWebSearchToolResult:
	default:
		c.Unknown = append(json.RawMessage(nil), data...)
	}
	return nil
}

// MarshalJSON emits unrecognized blocks verbatim and typed blocks from fields.
func (c ContentBlock) MarshalJSON() ([]byte, error) {
	if c.Unknown != nil {
		return c.Unknown, nil
	}
	return json.Marshal(contentBlock(c))
}

// Tool declares a client-callable tool. InputSchema is carried as a generic
// map so unrecognized JSON Schema keywords survive translation untouched.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema,omitempty"`
}

// Usage is the token accounting attached to responses. TotalTokens is only
// populated on complete responses, not on streaming delta frames.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens,omitempty"`
}

// Stop reasons of the Messages API.
const (
	StopReasonEndTurn      = "end_turn"
	StopReasonMaxTokens    = "max_tokens"
	StopReasonStopSequence = "stop_sequence"
	StopReasonToolUse      = "tool_use"
)

// MessagesResponse is the non-streaming response body of the Messages API.
type MessagesResponse struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	Role         string         `json:"role"`
	Model        string         `json:"model"`
	Content      []ContentBlock `json:"content"`
	StopReason   *string        `json:"stop_reason"`
	StopSequence *string        `json:"stop_sequence"`
	Usage        Usage          `json:"usage"`
}

// NewMessagesResponse returns a response shell with the fixed envelope fields set.
func NewMessagesResponse(id, model string) *MessagesResponse {
	return &MessagesResponse{
		ID:      id,
		Type:    "message",
		Role:    "assistant",
		Model:   model,
		Content: []ContentBlock{},
	}
}
