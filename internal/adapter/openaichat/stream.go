package openaichat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"claude-router/internal/adapter"
	"claude-router/internal/anthropic"
	"claude-router/internal/upstream"
)

// translator converts one Chat Completions chunk stream into Messages API
// frames. Tool call fragments are correlated by their chunk index; only the
// first fragment of a call carries id and name.
type translator struct {
	state *anthropic.StreamState
	model string

	// calls maps tool call chunk indices to their identity so a call can be
	// reopened after text or reasoning deltas interrupted it.
	calls     map[int]knownCall
	openIndex int

	stopReason   string
	outputTokens int
}

// knownCall is the identity of a tool call seen earlier in the stream.
type knownCall struct {
	id   string
	name string
}

func newTranslator(model string) *translator {
	return &translator{
		state:     anthropic.NewStreamState(),
		model:     model,
		calls:     make(map[int]knownCall),
		openIndex: -1,
	}
}

// translate maps one upstream chunk onto zero or more frames. A returned
// error aborts the stream; malformed chunks are logged and skipped.
func (t *translator) translate(ctx context.Context, raw upstream.Event) ([]anthropic.Frame, error) {
	var chunk Chunk
	if err := json.Unmarshal(raw.Data, &chunk); err != nil {
		slog.WarnContext(ctx, "skipping malformed upstream chunk", "error", err)
		return nil, nil
	}

	frames := t.state.StartMessage(responseID(chunk.ID), t.model)

	if chunk.Usage != nil {
		t.outputTokens = chunk.Usage.CompletionTokens
	}
	if len(chunk.Choices) == 0 {
		return frames, nil
	}
	choice := chunk.Choices[0]

	if choice.Delta.ReasoningContent != nil && *choice.Delta.ReasoningContent != "" {
		frames = append(frames, t.state.Thinking(*choice.Delta.ReasoningContent)...)
		t.openIndex = -1
	}
	if choice.Delta.Content != nil && *choice.Delta.Content != "" {
		frames = append(frames, t.state.Text(*choice.Delta.Content)...)
		t.openIndex = -1
	}

	for _, tc := range choice.Delta.ToolCalls {
		call, known := t.calls[tc.Index]
		if !known {
			if tc.ID == "" && tc.Function.Name == "" {
				return frames, &anthropic.StreamProtocolError{
					Reason: fmt.Sprintf("tool call fragment at index %d arrived without id or name", tc.Index),
				}
			}
			call = knownCall{id: toolCallID(tc.ID), name: tc.Function.Name}
			t.calls[tc.Index] = call
			t.openIndex = tc.Index
			frames = append(frames, t.state.StartToolUse(call.id, call.name)...)
		} else if t.openIndex != tc.Index {
			t.openIndex = tc.Index
			frames = append(frames, t.state.StartToolUse(call.id, call.name)...)
		}
		if tc.Function.Arguments != "" {
			argFrames, err := t.state.ToolArgs(tc.Function.Arguments)
			if err != nil {
				return frames, err
			}
			frames = append(frames, argFrames...)
		}
	}

	if choice.FinishReason != nil {
		t.stopReason = adapter.StopReason(*choice.FinishReason)
	}
	return frames, nil
}

// finalize emits the terminal frames once the upstream stream ends. Chat
// backends deliver the usage chunk after the finish reason, so termination
// waits for end of stream.
func (t *translator) finalize() []anthropic.Frame {
	if !t.state.Started() || t.state.Finished() {
		return nil
	}
	stop := t.stopReason
	if stop == "" {
		stop = anthropic.StopReasonEndTurn
	}
	return t.state.Finish(stop, t.outputTokens)
}
