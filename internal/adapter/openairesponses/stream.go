package openairesponses

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"claude-router/internal/anthropic"
	"claude-router/internal/upstream"
)

// translator converts one Responses SSE stream into Messages API frames.
// It tracks which output items opened which block kinds; the shared
// StreamState enforces the framing invariants.
type translator struct {
	state *anthropic.StreamState
	model string

	// toolItems maps function_call item ids to their call ids so argument
	// deltas can be validated against a known open call.
	toolItems    map[string]string
	openToolItem string

	outputTokens int
}

func newTranslator(model string) *translator {
	return &translator{
		state:     anthropic.NewStreamState(),
		model:     model,
		toolItems: make(map[string]string),
	}
}

// translate maps one upstream event onto zero or more frames. A returned
// error aborts the stream; events the translator does not understand are
// skipped after logging.
func (t *translator) translate(ctx context.Context, raw upstream.Event) ([]anthropic.Frame, error) {
	var ev streamEvent
	if err := json.Unmarshal(raw.Data, &ev); err != nil {
		slog.WarnContext(ctx, "skipping malformed upstream event", "type", raw.Type, "error", err)
		return nil, nil
	}

	switch ev.Type {
	case "response.created":
		id := ""
		if ev.Response != nil {
			id = ev.Response.ID
		}
		return t.state.StartMessage(id, t.model), nil

	case "response.output_item.added":
		return t.itemAdded(ctx, ev.Item)

	case "response.output_text.delta":
		return t.state.Text(ev.Delta), nil

	case "response.reasoning_summary_text.delta":
		return t.state.Thinking(ev.Delta), nil

	case "response.function_call_arguments.delta":
		if t.openToolItem == "" || t.openToolItem != ev.ItemID {
			if _, known := t.toolItems[ev.ItemID]; !known {
				return nil, &anthropic.StreamProtocolError{
					Reason: fmt.Sprintf("argument delta for unknown tool call item %q", ev.ItemID),
				}
			}
		}
		return t.state.ToolArgs(ev.Delta)

	case "response.output_text.annotation.added":
		if ev.Annotation == nil {
			return nil, nil
		}
		var frames []anthropic.Frame
		for _, block := range webSearchBlocks(ev.ItemID, *ev.Annotation) {
			frames = append(frames, t.state.WholeBlock(block)...)
		}
		return frames, nil

	case "response.output_item.done":
		if ev.Item != nil && ev.Item.Type == itemFunctionCall {
			t.openToolItem = ""
			return t.state.CloseBlock(), nil
		}
		return nil, nil

	case "response.completed":
		stop := anthropic.StopReasonEndTurn
		if ev.Response != nil {
			stop = stopReasonFor(ev.Response)
			if ev.Response.Usage != nil {
				t.outputTokens = ev.Response.Usage.OutputTokens
			}
			for _, item := range ev.Response.Output {
				if item.Type == itemFunctionCall {
					stop = anthropic.StopReasonToolUse
					break
				}
			}
		}
		return t.state.Finish(stop, t.outputTokens), nil

	case "response.failed", "error":
		message := "upstream reported a stream failure"
		if ev.Response != nil && ev.Response.Error != nil {
			message = ev.Response.Error.Message
		}
		return nil, &anthropic.StreamProtocolError{Reason: message}

	case "response.in_progress", "response.output_text.done",
		"response.reasoning_summary_text.done", "response.reasoning_summary_part.added",
		"response.reasoning_summary_part.done", "response.function_call_arguments.done",
		"response.content_part.added", "response.content_part.done":
		return nil, nil

	default:
		slog.DebugContext(ctx, "skipping unhandled upstream event", "type", ev.Type)
		return nil, nil
	}
}

// itemAdded opens the block for a newly announced output item.
func (t *translator) itemAdded(ctx context.Context, item *OutputItem) ([]anthropic.Frame, error) {
	if item == nil {
		return nil, nil
	}
	switch item.Type {
	case itemFunctionCall:
		if item.CallID == "" && item.Name == "" {
			return nil, &anthropic.StreamProtocolError{
				Reason: fmt.Sprintf("tool call item %q announced without call id or name", item.ID),
			}
		}
		callID := toolCallID(item.CallID)
		t.toolItems[item.ID] = callID
		t.openToolItem = item.ID
		return t.state.StartToolUse(callID, item.Name), nil
	case itemReasoning:
		return t.state.StartThinking(item.ID, item.EncryptedContent), nil
	case itemMessage, itemWebSearchCall:
		return nil, nil
	default:
		slog.DebugContext(ctx, "skipping unhandled output item", "type", item.Type)
		return nil, nil
	}
}

// finalize emits terminal frames if the upstream ended without a
// response.completed event.
func (t *translator) finalize() []anthropic.Frame {
	if !t.state.Started() || t.state.Finished() {
		return nil
	}
	return t.state.Finish(anthropic.StopReasonEndTurn, t.outputTokens)
}
