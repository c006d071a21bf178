package openaichat

import (
	"claude-router/internal/adapter"
	"claude-router/internal/anthropic"
)

// buildRequest translates the inbound Messages request into a Chat
// Completions request for the decided model.
func buildRequest(call *adapter.Invocation, stream bool) *Request {
	req := call.Request
	out := &Request{
		Model:       call.Decision.Model,
		Messages:    buildMessages(req),
		Tools:       buildTools(req),
		ToolChoice:  adapter.ToolChoice(req.ToolChoice, false),
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Stop:        req.StopSequences,
		Stream:      stream,
	}
	if stream {
		out.StreamOptions = &StreamOptions{IncludeUsage: true}
	}

	if call.Decision.SupportReasoning {
		// Reasoning models reject explicit output caps.
		out.ReasoningEffort = adapter.ReasoningEffort(&call.Config.OpenAI, req)
	} else if req.MaxTokens > 0 {
		tokens := adapter.MaxOutputTokens(req)
		out.MaxTokens = &tokens
	}

	return out
}

// buildMessages walks the conversation and emits chat messages. The system
// prompt becomes the leading system message; tool results become
// role "tool" messages keyed by their call id.
func buildMessages(req *anthropic.MessagesRequest) []Message {
	var messages []Message
	if system := adapter.SystemText(req); system != "" {
		messages = append(messages, Message{Role: "system", Content: system})
	}

	for _, msg := range req.Messages {
		var parts []ContentPart
		var toolCalls []ToolCall
		hasImage := false

		flush := func() {
			if len(parts) == 0 && len(toolCalls) == 0 {
				return
			}
			m := Message{Role: msg.Role, Content: flattenParts(parts, hasImage), ToolCalls: toolCalls}
			messages = append(messages, m)
			parts, toolCalls, hasImage = nil, nil, false
		}

		for _, block := range msg.Content.Blocks {
			switch block.Type {
			case anthropic.ContentTypeText:
				parts = append(parts, ContentPart{Type: "text", Text: block.Text})
			case anthropic.ContentTypeImage:
				parts = append(parts, ContentPart{
					Type:     "image_url",
					ImageURL: &ImageURL{URL: adapter.ImageDataURI(block.Source)},
				})
				hasImage = true
			case anthropic.ContentTypeToolUse:
				toolCalls = append(toolCalls, ToolCall{
					ID:   block.ID,
					Type: "function",
					Function: FunctionCall{
						Name:      block.Name,
						Arguments: adapter.ArgumentsJSON(block.Input),
					},
				})
			case anthropic.ContentTypeToolResult:
				flush()
				content := adapter.ToolResultText(block.Content)
				if block.IsError {
					// Chat Completions has no error slot on tool messages, so
					// failed executions are marked in the content itself.
					content = "Error: " + content
				}
				messages = append(messages, Message{
					Role:       "tool",
					ToolCallID: block.ToolUseID,
					Content:    content,
				})
			case anthropic.ContentTypeThinking:
				// The Chat Completions dialect has no input slot that
				// round-trips thinking, so these blocks are dropped.
			}
		}
		flush()
	}
	return messages
}

// flattenParts keeps plain-text turns as a bare string, the form every
// backend accepts; the part array is only used when images force it.
func flattenParts(parts []ContentPart, hasImage bool) any {
	if hasImage {
		return parts
	}
	text := ""
	for _, p := range parts {
		if text != "" {
			text += "\n"
		}
		text += p.Text
	}
	return text
}

func buildTools(req *anthropic.MessagesRequest) []Tool {
	var tools []Tool
	for _, t := range req.Tools {
		tools = append(tools, Tool{
			Type: "function",
			Function: FunctionDef{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  adapter.CleanToolSchema(t.InputSchema),
			},
		})
	}
	return tools
}
