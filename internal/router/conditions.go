package router

import (
	"context"
	"log/slog"
	"net/http"
	"reflect"

	"claude-router/internal/anthropic"
	"claude-router/internal/config"
)

// Request condition keys with dedicated matching semantics. Any other key
// under when.request is compared for exact equality against the body field.
const (
	condModelRegex  = "model_regex"
	condHasTool     = "has_tool"
	condSystemRegex = "system_regex"
	condUserRegex   = "user_regex"
)

// ruleMatches reports whether every condition group of the rule holds. A rule
// with an invalid regex never matches; the pattern is logged and routing
// continues with the next rule.
func (e *Engine) ruleMatches(ctx context.Context, rule *config.OverrideRule, headers http.Header, req *anthropic.MessagesRequest, rawBody map[string]any) bool {
	for key, expected := range rule.When.Header {
		if !headerMatches(headers, key, expected) {
			return false
		}
	}
	for key, expected := range rule.When.Request {
		ok, err := e.requestConditionMatches(key, expected, req, rawBody)
		if err != nil {
			slog.WarnContext(ctx, "override rule has invalid pattern, skipping rule", "condition", key, "error", err)
			return false
		}
		if !ok {
			return false
		}
	}
	return true
}

// headerMatches compares the header (case-insensitive name) against a scalar
// for equality or a list for membership. Absent headers never match.
func headerMatches(headers http.Header, name string, expected any) bool {
	values := headers.Values(name)
	if len(values) == 0 {
		return false
	}
	actual := values[0]
	if list, ok := expected.([]any); ok {
		for _, candidate := range list {
			if s, ok := candidate.(string); ok && s == actual {
				return true
			}
		}
		return false
	}
	s, ok := expected.(string)
	return ok && s == actual
}

func (e *Engine) requestConditionMatches(key string, expected any, req *anthropic.MessagesRequest, rawBody map[string]any) (bool, error) {
	switch key {
	case condModelRegex:
		return e.search(expected, req.Model)
	case condHasTool:
		name, ok := expected.(string)
		if !ok {
			return false, nil
		}
		for _, tool := range req.Tools {
			if tool.Name == name {
				return true, nil
			}
		}
		return false, nil
	case condSystemRegex:
		for _, part := range req.System.TextParts() {
			ok, err := e.search(expected, part)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case condUserRegex:
		text := lastUserText(req)
		if text == "" {
			return false, nil
		}
		return e.search(expected, text)
	default:
		actual, present := rawBody[key]
		return present && literalEqual(expected, actual), nil
	}
}

// search runs a cached case-insensitive substring search of pattern in text.
func (e *Engine) search(pattern any, text string) (bool, error) {
	s, ok := pattern.(string)
	if !ok {
		return false, nil
	}
	re, err := e.compile(s)
	if err != nil {
		return false, err
	}
	return re.MatchString(text), nil
}

// lastUserText returns the text of the most recent genuine user message.
// User turns that only carry tool results are skipped; those are transport
// artifacts of tool execution, not something the user typed.
func lastUserText(req *anthropic.MessagesRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		msg := &req.Messages[i]
		if msg.Role != "user" {
			continue
		}
		var text string
		var genuine bool
		for _, block := range msg.Content.Blocks {
			if block.Type != anthropic.ContentTypeToolResult {
				genuine = true
			}
			if block.Type == anthropic.ContentTypeText {
				if text != "" {
					text += "\n"
				}
				text += block.Text
			}
		}
		if genuine {
			return text
		}
	}
	return ""
}

// literalEqual compares a rule literal against a decoded body value, tolerant
// of the int/float64 split between YAML and JSON decoding.
func literalEqual(a, b any) bool {
	if af, aok := asFloat(a); aok {
		bf, bok := asFloat(b)
		return bok && af == bf
	}
	return reflect.DeepEqual(a, b)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
