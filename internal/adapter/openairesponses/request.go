package openairesponses

import (
	"claude-router/internal/adapter"
	"claude-router/internal/anthropic"
)

// buildRequest translates the inbound Messages request into a Responses
// request for the decided model.
func buildRequest(call *adapter.Invocation, stream bool) *Request {
	req := call.Request
	out := &Request{
		Model:        call.Decision.Model,
		Instructions: adapter.SystemText(req),
		Input:        buildInput(req),
		Tools:        buildTools(call),
		ToolChoice:   adapter.ToolChoice(req.ToolChoice, true),
		Temperature:  req.Temperature,
		TopP:         req.TopP,
		Stream:       stream,
	}

	if call.Decision.SupportReasoning {
		effort := adapter.ReasoningEffort(&call.Config.OpenAI, req)
		reasoning := &ReasoningConfig{Effort: effort}
		if effort != "minimal" {
			reasoning.Summary = "auto"
		}
		out.Reasoning = reasoning
		// Encrypted reasoning content lets the next turn resume thinking
		// without server-side response storage.
		out.Include = []string{"reasoning.encrypted_content"}
	} else if req.MaxTokens > 0 {
		// Reasoning models reject output caps, so the cap only applies
		// to non-reasoning targets.
		tokens := adapter.MaxOutputTokens(req)
		out.MaxOutputTokens = &tokens
	}

	return out
}

// buildInput walks the conversation and emits Responses input items.
// Consecutive text and image blocks of a turn collapse into one message item;
// tool calls, tool results and resumable thinking blocks become items of
// their own.
func buildInput(req *anthropic.MessagesRequest) []InputItem {
	var items []InputItem
	var pending []ContentPart
	var pendingRole string

	flush := func() {
		if len(pending) == 0 {
			return
		}
		items = append(items, InputItem{Type: itemMessage, Role: pendingRole, Content: pending})
		pending = nil
	}

	for _, msg := range req.Messages {
		if msg.Role != pendingRole {
			flush()
			pendingRole = msg.Role
		}
		for _, block := range msg.Content.Blocks {
			switch block.Type {
			case anthropic.ContentTypeText:
				pending = append(pending, ContentPart{Type: textPartType(msg.Role), Text: block.Text})
			case anthropic.ContentTypeImage:
				pending = append(pending, ContentPart{Type: partInputImage, ImageURL: adapter.ImageDataURI(block.Source)})
			case anthropic.ContentTypeToolUse:
				flush()
				items = append(items, InputItem{
					Type:      itemFunctionCall,
					Name:      block.Name,
					Arguments: adapter.ArgumentsJSON(block.Input),
					CallID:    block.ID,
				})
			case anthropic.ContentTypeToolResult:
				flush()
				item := InputItem{
					Type:   itemFunctionCallOutput,
					CallID: block.ToolUseID,
					Output: adapter.ToolResultText(block.Content),
				}
				if block.IsError {
					item.Status = "error"
				}
				items = append(items, item)
			case anthropic.ContentTypeThinking:
				// Thinking survives the round trip only with its reasoning
				// credentials; blocks without them are dropped silently.
				if block.ExtractedEncryptedContent != "" || block.ExtractedID != "" {
					flush()
					item := InputItem{Type: itemReasoning, Summary: []byte("[]")}
					if block.ExtractedEncryptedContent != "" {
						item.EncryptedContent = block.ExtractedEncryptedContent
					} else {
						item.ID = block.ExtractedID
					}
					items = append(items, item)
				}
			}
		}
	}
	flush()
	return items
}

func textPartType(role string) string {
	if role == "assistant" {
		return partOutputText
	}
	return partInputText
}

// buildTools maps client tools onto flat Responses function tools, appending
// the provider's web search tool when configured.
func buildTools(call *adapter.Invocation) []Tool {
	req := call.Request
	var tools []Tool
	for _, t := range req.Tools {
		tools = append(tools, Tool{
			Type:        "function",
			Name:        t.Name,
			Description: t.Description,
			Parameters:  adapter.CleanToolSchema(t.InputSchema),
		})
	}
	if p, ok := call.Config.Providers[call.Decision.Provider]; ok && p.InjectWebSearch {
		tools = append(tools, Tool{Type: "web_search"})
	}
	return tools
}
