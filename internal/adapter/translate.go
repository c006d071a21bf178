package adapter

import (
	"encoding/json"
	"fmt"
	"strings"

	"claude-router/internal/anthropic"
	"claude-router/internal/config"
	"claude-router/internal/router"
)

// StopReason maps upstream finish and status reasons onto Messages API stop
// reasons. Unknown reasons and absent reasons map to end_turn.
func StopReason(upstream string) string {
	switch upstream {
	case "length", "max_output_tokens":
		return anthropic.StopReasonMaxTokens
	case "content_filter":
		return anthropic.StopReasonStopSequence
	case "tool_calls", "function_call":
		return anthropic.StopReasonToolUse
	default:
		return anthropic.StopReasonEndTurn
	}
}

// SystemText flattens the system prompt into a single instruction string,
// joining text fragments with newlines.
func SystemText(req *anthropic.MessagesRequest) string {
	return strings.Join(req.System.TextParts(), "\n")
}

// MaxOutputTokens clamps the requested budget to the dialect minimum of 16.
func MaxOutputTokens(req *anthropic.MessagesRequest) int {
	if req.MaxTokens < 16 {
		return 16
	}
	return req.MaxTokens
}

// ReasoningEffort maps a thinking token budget onto an effort level using the
// configured thresholds. A zero or absent budget yields the configured
// default effort.
func ReasoningEffort(cfg *config.OpenAIConfig, req *anthropic.MessagesRequest) string {
	budget := 0
	if req.Thinking != nil {
		budget = req.Thinking.BudgetTokens
	}
	switch {
	case budget <= 0:
		return cfg.ReasoningEffortDefault
	case budget <= cfg.ReasoningThresholds.LowMax:
		return "low"
	case budget <= cfg.ReasoningThresholds.MediumMax:
		return "medium"
	default:
		return "high"
	}
}

// ArgumentsJSON serializes a tool_use input for the upstream arguments field.
// Absent input becomes the empty object; input that is not valid JSON is
// wrapped so the call still round-trips.
func ArgumentsJSON(input json.RawMessage) string {
	if len(input) == 0 {
		return "{}"
	}
	if json.Valid(input) {
		return string(input)
	}
	wrapped, err := json.Marshal(map[string]string{"raw_arguments": string(input)})
	if err != nil {
		return "{}"
	}
	return string(wrapped)
}

// ParseArguments parses an upstream tool call arguments string back into a
// tool_use input object. Unparseable arguments are preserved under
// raw_arguments instead of failing the whole response.
func ParseArguments(raw string) json.RawMessage {
	if raw == "" {
		return json.RawMessage("{}")
	}
	trimmed := strings.TrimSpace(raw)
	if json.Valid([]byte(trimmed)) && (strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")) {
		return json.RawMessage(trimmed)
	}
	wrapped, err := json.Marshal(map[string]string{"raw_arguments": raw})
	if err != nil {
		return json.RawMessage("{}")
	}
	return wrapped
}

// ToolChoice translates the Anthropic tool_choice object into the OpenAI
// form. flat selects the Responses shape ({"type":"function","name":...});
// otherwise the Chat Completions nesting is used. Unknown shapes are dropped.
func ToolChoice(raw json.RawMessage, flat bool) json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	var choice struct {
		Type string `json:"type"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &choice); err != nil {
		return nil
	}
	switch choice.Type {
	case "auto":
		return json.RawMessage(`"auto"`)
	case "any":
		return json.RawMessage(`"required"`)
	case "none":
		return json.RawMessage(`"none"`)
	case "tool":
		var out any
		if flat {
			out = map[string]any{"type": "function", "name": choice.Name}
		} else {
			out = map[string]any{"type": "function", "function": map[string]any{"name": choice.Name}}
		}
		encoded, err := json.Marshal(out)
		if err != nil {
			return nil
		}
		return encoded
	default:
		return nil
	}
}

// ToolResultText flattens a tool_result content payload into the string form
// the OpenAI dialects expect: strings pass through, block arrays contribute
// their text parts, anything else is JSON-encoded.
func ToolResultText(content json.RawMessage) string {
	if len(content) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(content, &s); err == nil {
		return s
	}
	var blocks []anthropic.ContentBlock
	if err := json.Unmarshal(content, &blocks); err == nil {
		var parts []string
		for _, b := range blocks {
			if b.Type == anthropic.ContentTypeText {
				parts = append(parts, b.Text)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, "\n")
		}
	}
	return string(content)
}

// ImageDataURI renders an image source as the data URI / URL form used by
// both dialects.
func ImageDataURI(src *anthropic.ImageSource) string {
	if src == nil {
		return ""
	}
	if src.URL != "" {
		return src.URL
	}
	return fmt.Sprintf("data:%s;base64,%s", src.MediaType, src.Data)
}

// CleanToolSchema returns the tool input schema with the properties and
// required keys guaranteed present. Everything the client sent is preserved;
// strict backends reject schemas missing these keys.
func CleanToolSchema(schema map[string]any) map[string]any {
	cleaned := make(map[string]any, len(schema)+2)
	for k, v := range schema {
		cleaned[k] = v
	}
	if _, ok := cleaned["type"]; !ok {
		cleaned["type"] = "object"
	}
	if _, ok := cleaned["properties"]; !ok {
		cleaned["properties"] = map[string]any{}
	}
	if _, ok := cleaned["required"]; !ok {
		cleaned["required"] = []any{}
	}
	return cleaned
}

// ApplyOverrides flattens the typed outbound request into generic JSON and
// merges the decision's override config onto it. The returned map is the
// final upstream payload.
func ApplyOverrides(outbound any, decision router.Decision) (map[string]any, error) {
	raw, err := json.Marshal(outbound)
	if err != nil {
		return nil, fmt.Errorf("failed to flatten outbound request: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to flatten outbound request: %w", err)
	}
	if len(decision.Config) == 0 {
		return m, nil
	}
	return router.Merge(m, decision.Config), nil
}
