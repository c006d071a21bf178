package openaichat

import (
	"claude-router/internal/adapter"
	"claude-router/internal/anthropic"

	"github.com/google/uuid"
)

// toMessagesResponse converts a complete Chat Completions body into a
// Messages API response: reasoning content leads as a thinking block, then
// text, then tool_use blocks.
func toMessagesResponse(resp *Response, model string) *anthropic.MessagesResponse {
	out := anthropic.NewMessagesResponse(responseID(resp.ID), model)
	stop := anthropic.StopReasonEndTurn

	if len(resp.Choices) > 0 {
		choice := resp.Choices[0]
		if choice.FinishReason != nil {
			stop = adapter.StopReason(*choice.FinishReason)
		}
		if choice.Message.ReasoningContent != "" {
			out.Content = append(out.Content, anthropic.ContentBlock{
				Type:     anthropic.ContentTypeThinking,
				Thinking: choice.Message.ReasoningContent,
			})
		}
		if choice.Message.Content != nil && *choice.Message.Content != "" {
			out.Content = append(out.Content, anthropic.ContentBlock{
				Type: anthropic.ContentTypeText,
				Text: *choice.Message.Content,
			})
		}
		for _, tc := range choice.Message.ToolCalls {
			out.Content = append(out.Content, anthropic.ContentBlock{
				Type:  anthropic.ContentTypeToolUse,
				ID:    toolCallID(tc.ID),
				Name:  tc.Function.Name,
				Input: adapter.ParseArguments(tc.Function.Arguments),
			})
			stop = anthropic.StopReasonToolUse
		}
	}

	out.StopReason = &stop
	if resp.Usage != nil {
		total := resp.Usage.TotalTokens
		if total == 0 {
			total = resp.Usage.PromptTokens + resp.Usage.CompletionTokens
		}
		out.Usage = anthropic.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  total,
		}
	}
	return out
}

// responseID falls back to a generated message id when the backend omits one.
func responseID(id string) string {
	if id != "" {
		return id
	}
	return "msg_" + uuid.NewString()
}

// toolCallID falls back to a generated call id; tool_use blocks must always
// carry a non-empty id for the result round trip.
func toolCallID(id string) string {
	if id != "" {
		return id
	}
	return "call_" + uuid.NewString()
}
