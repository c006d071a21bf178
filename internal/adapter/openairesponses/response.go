package openairesponses

import (
	"encoding/json"

	"claude-router/internal/adapter"
	"claude-router/internal/anthropic"

	"github.com/google/uuid"
)

// toMessagesResponse converts a complete Responses body into a Messages API
// response. Output items map in order: reasoning summaries become thinking
// blocks (carrying their round-trip credentials), message text becomes text
// blocks with web search citations expanded into paired blocks, and function
// calls become tool_use blocks.
func toMessagesResponse(resp *Response, model string) *anthropic.MessagesResponse {
	out := anthropic.NewMessagesResponse(resp.ID, model)
	stop := stopReasonFor(resp)

	for _, item := range resp.Output {
		switch item.Type {
		case itemReasoning:
			text := ""
			for _, s := range item.Summary {
				if text != "" {
					text += "\n"
				}
				text += s.Text
			}
			out.Content = append(out.Content, anthropic.ContentBlock{
				Type:                      anthropic.ContentTypeThinking,
				Thinking:                  text,
				ExtractedID:               item.ID,
				ExtractedEncryptedContent: item.EncryptedContent,
			})
		case itemMessage:
			for _, part := range item.Content {
				if part.Type != partOutputText {
					continue
				}
				out.Content = append(out.Content, anthropic.ContentBlock{
					Type: anthropic.ContentTypeText,
					Text: part.Text,
				})
				for _, ann := range part.Annotations {
					out.Content = append(out.Content, webSearchBlocks(item.ID, ann)...)
				}
			}
		case itemFunctionCall:
			out.Content = append(out.Content, anthropic.ContentBlock{
				Type:  anthropic.ContentTypeToolUse,
				ID:    toolCallID(item.CallID),
				Name:  item.Name,
				Input: adapter.ParseArguments(item.Arguments),
			})
			stop = anthropic.StopReasonToolUse
		}
	}

	out.StopReason = &stop
	if resp.Usage != nil {
		total := resp.Usage.TotalTokens
		if total == 0 {
			total = resp.Usage.InputTokens + resp.Usage.OutputTokens
		}
		out.Usage = anthropic.Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
			TotalTokens:  total,
		}
	}
	return out
}

// toolCallID falls back to a generated call id; tool_use blocks must always
// carry a non-empty id for the result round trip.
func toolCallID(id string) string {
	if id != "" {
		return id
	}
	return "call_" + uuid.NewString()
}

// stopReasonFor maps the response status onto a stop reason.
func stopReasonFor(resp *Response) string {
	if resp.Status == "incomplete" && resp.IncompleteDetails != nil {
		return adapter.StopReason(resp.IncompleteDetails.Reason)
	}
	return adapter.StopReason(resp.Status)
}

// webSearchBlocks expands a URL citation into the paired server_tool_use and
// web_search_tool_result blocks the Messages API uses for search citations.
func webSearchBlocks(itemID string, ann Annotation) []anthropic.ContentBlock {
	if ann.Type != "url_citation" {
		return nil
	}
	id := "srvtoolu_" + itemID
	result, err := json.Marshal([]map[string]any{{
		"type":  "web_search_result",
		"url":   ann.URL,
		"title": ann.Title,
	}})
	if err != nil {
		return nil
	}
	return []anthropic.ContentBlock{
		{
			Type:  anthropic.ContentTypeServerToolUse,
			ID:    id,
			Name:  "web_search",
			Input: json.RawMessage(`{}`),
		},
		{
			Type:      anthropic.ContentTypeWebSearchToolResult,
			ToolUseID: id,
			Content:   result,
		},
	}
}
