package router

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"claude-router/internal/anthropic"
	"claude-router/internal/config"
)

func testConfig(overrides ...config.OverrideRule) *config.Config {
	cfg := config.Default()
	cfg.Providers = map[string]config.ProviderConfig{
		"openai": {Adapter: config.AdapterOpenAIResponses},
		"local":  {Adapter: config.AdapterOpenAIChatCompletions},
	}
	cfg.Overrides = overrides
	return cfg
}

func messagesRequest(t *testing.T, body string) (*anthropic.MessagesRequest, map[string]any) {
	t.Helper()
	var req anthropic.MessagesRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("failed to decode request fixture: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		t.Fatalf("failed to decode raw fixture: %v", err)
	}
	return &req, raw
}

func TestDecideDefaultPassthrough(t *testing.T) {
	req, raw := messagesRequest(t, `{"model":"claude-sonnet-4","messages":[]}`)

	d := New().Decide(context.Background(), testConfig(), http.Header{}, req, raw)

	if d.Provider != "anthropic" || d.Model != "passthrough" || d.Adapter != config.AdapterAnthropicPassthrough {
		t.Errorf("default decision = %+v, want anthropic passthrough sentinel", d)
	}
}

func TestDecideModelRegex(t *testing.T) {
	cfg := testConfig(config.OverrideRule{
		When:  config.RuleWhen{Request: map[string]any{"model_regex": "haiku"}},
		Model: "gpt-5-mini",
	})
	req, raw := messagesRequest(t, `{"model":"claude-haiku-4","messages":[]}`)

	d := New().Decide(context.Background(), cfg, http.Header{}, req, raw)

	if d.Provider != "openai" || d.Model != "gpt-5-mini" || d.Adapter != config.AdapterOpenAIResponses {
		t.Errorf("decision = %+v, want openai/gpt-5-mini via responses", d)
	}
	if !d.SupportReasoning {
		t.Error("gpt-5-mini should resolve as a reasoning model by prefix")
	}
}

func TestDecideSystemRegex(t *testing.T) {
	rule := config.OverrideRule{
		When:  config.RuleWhen{Request: map[string]any{"system_regex": "plan mode"}},
		Model: "gpt-5",
	}

	tests := []struct {
		name string
		body string
		want string
	}{
		{
			"string system",
			`{"model":"m","system":"You are in Plan Mode today","messages":[]}`,
			"gpt-5",
		},
		{
			"block system",
			`{"model":"m","system":[{"type":"text","text":"preamble"},{"type":"text","text":"PLAN MODE active"}],"messages":[]}`,
			"gpt-5",
		},
		{
			"no match",
			`{"model":"m","system":"just chat","messages":[]}`,
			"m",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, raw := messagesRequest(t, tt.body)
			d := New().Decide(context.Background(), testConfig(rule), http.Header{}, req, raw)
			if d.Model != tt.want {
				t.Errorf("model = %q, want %q", d.Model, tt.want)
			}
		})
	}
}

func TestDecideUserRegexSkipsToolResultTurns(t *testing.T) {
	cfg := testConfig(config.OverrideRule{
		When:  config.RuleWhen{Request: map[string]any{"user_regex": "ultrathink"}},
		Model: "gpt-5",
	})
	// The last user turn is a tool result; the genuine user text before it
	// contains the trigger.
	req, raw := messagesRequest(t, `{
		"model":"m",
		"messages":[
			{"role":"user","content":"please ultrathink about this"},
			{"role":"assistant","content":[{"type":"tool_use","id":"t1","name":"read_file","input":{}}]},
			{"role":"user","content":[{"type":"tool_result","tool_use_id":"t1","content":"file contents"}]}
		]}`)

	d := New().Decide(context.Background(), cfg, http.Header{}, req, raw)

	if d.Model != "gpt-5" {
		t.Errorf("model = %q, want gpt-5 (trigger in last genuine user turn)", d.Model)
	}
}

func TestDecideHasTool(t *testing.T) {
	cfg := testConfig(config.OverrideRule{
		When:  config.RuleWhen{Request: map[string]any{"has_tool": "web_search"}},
		Model: "gpt-5",
	})
	req, raw := messagesRequest(t, `{"model":"m","messages":[],"tools":[{"name":"web_search","input_schema":{"type":"object"}}]}`)

	if d := New().Decide(context.Background(), cfg, http.Header{}, req, raw); d.Model != "gpt-5" {
		t.Errorf("model = %q, want gpt-5", d.Model)
	}

	req2, raw2 := messagesRequest(t, `{"model":"m","messages":[],"tools":[{"name":"web_searcher","input_schema":{}}]}`)
	if d := New().Decide(context.Background(), cfg, http.Header{}, req2, raw2); d.Model != "m" {
		t.Errorf("tool name must match exactly, got model %q", d.Model)
	}
}

func TestDecideHeaderConditions(t *testing.T) {
	cfg := testConfig(config.OverrideRule{
		When:  config.RuleWhen{Header: map[string]any{"X-Router-Target": []any{"local", "ollama"}}},
		Model: "local/qwen3",
	})
	req, raw := messagesRequest(t, `{"model":"m","messages":[]}`)

	headers := http.Header{}
	headers.Set("x-router-target", "ollama")

	d := New().Decide(context.Background(), cfg, headers, req, raw)
	if d.Provider != "local" || d.Model != "qwen3" {
		t.Errorf("decision = %+v, want provider local model qwen3", d)
	}
	if d.Adapter != config.AdapterOpenAIChatCompletions {
		t.Errorf("adapter = %q, want chat completions from provider config", d.Adapter)
	}

	if d := New().Decide(context.Background(), cfg, http.Header{}, req, raw); d.Provider != "anthropic" {
		t.Errorf("absent header must not match, got provider %q", d.Provider)
	}
}

func TestDecideAllConditionsMustMatch(t *testing.T) {
	cfg := testConfig(config.OverrideRule{
		When: config.RuleWhen{
			Header:  map[string]any{"x-env": "prod"},
			Request: map[string]any{"model_regex": "haiku"},
		},
		Model: "gpt-5-mini",
	})
	req, raw := messagesRequest(t, `{"model":"claude-haiku-4","messages":[]}`)

	headers := http.Header{}
	headers.Set("X-Env", "staging")

	if d := New().Decide(context.Background(), cfg, headers, req, raw); d.Model != "claude-haiku-4" {
		t.Errorf("partial match must not route, got %q", d.Model)
	}

	headers.Set("X-Env", "prod")
	if d := New().Decide(context.Background(), cfg, headers, req, raw); d.Model != "gpt-5-mini" {
		t.Errorf("full match must route, got %q", d.Model)
	}
}

func TestDecideFirstMatchWins(t *testing.T) {
	cfg := testConfig(
		config.OverrideRule{
			When:  config.RuleWhen{Request: map[string]any{"model_regex": "claude"}},
			Model: "first",
		},
		config.OverrideRule{
			When:  config.RuleWhen{Request: map[string]any{"model_regex": "claude"}},
			Model: "second",
		},
	)
	req, raw := messagesRequest(t, `{"model":"claude-sonnet-4","messages":[]}`)

	if d := New().Decide(context.Background(), cfg, http.Header{}, req, raw); d.Model != "first" {
		t.Errorf("model = %q, want first (rule order)", d.Model)
	}
}

func TestDecideInvalidRegexSkipsRule(t *testing.T) {
	cfg := testConfig(
		config.OverrideRule{
			When:  config.RuleWhen{Request: map[string]any{"model_regex": "haiku["}},
			Model: "broken",
		},
		config.OverrideRule{
			When:  config.RuleWhen{Request: map[string]any{"model_regex": "haiku"}},
			Model: "gpt-5-mini",
		},
	)
	req, raw := messagesRequest(t, `{"model":"claude-haiku-4","messages":[]}`)

	if d := New().Decide(context.Background(), cfg, http.Header{}, req, raw); d.Model != "gpt-5-mini" {
		t.Errorf("model = %q, want gpt-5-mini (invalid rule skipped)", d.Model)
	}
}

func TestDecideGenericRequestField(t *testing.T) {
	cfg := testConfig(config.OverrideRule{
		When:  config.RuleWhen{Request: map[string]any{"max_tokens": 1024}},
		Model: "gpt-5-mini",
	})
	req, raw := messagesRequest(t, `{"model":"m","messages":[],"max_tokens":1024}`)

	if d := New().Decide(context.Background(), cfg, http.Header{}, req, raw); d.Model != "gpt-5-mini" {
		t.Errorf("model = %q, want gpt-5-mini (numeric field equality)", d.Model)
	}
}

func TestResolveProviderModel(t *testing.T) {
	tests := []struct {
		explicit, model, wantProvider, wantModel string
	}{
		{"", "gpt-5", "openai", "gpt-5"},
		{"", "local/qwen3", "local", "qwen3"},
		{"", "groq/llama-3/70b", "groq", "llama-3/70b"},
		{"azure", "deepseek/v3", "azure", "deepseek/v3"},
	}

	for _, tt := range tests {
		provider, model := resolveProviderModel(tt.explicit, tt.model)
		if provider != tt.wantProvider || model != tt.wantModel {
			t.Errorf("resolveProviderModel(%q, %q) = (%q, %q), want (%q, %q)",
				tt.explicit, tt.model, provider, model, tt.wantProvider, tt.wantModel)
		}
	}
}

func TestResolveAdapterDefaults(t *testing.T) {
	cfg := testConfig()
	ctx := context.Background()

	if got := resolveAdapter(ctx, cfg, "anthropic"); got != config.AdapterAnthropicPassthrough {
		t.Errorf("anthropic adapter = %q", got)
	}
	if got := resolveAdapter(ctx, cfg, "someprovider"); got != config.AdapterOpenAIChatCompletions {
		t.Errorf("unknown provider adapter = %q, want chat completions", got)
	}
}

func TestSupportReasoningExplicitOverridesPrefix(t *testing.T) {
	cfg := testConfig()
	no := false

	if supportsReasoning(cfg, &no, "gpt-5") {
		t.Error("explicit false must win over prefix match")
	}
	if !supportsReasoning(cfg, nil, "o4-mini") {
		t.Error("o4-mini should match reasoning prefixes")
	}
	if supportsReasoning(cfg, nil, "qwen3") {
		t.Error("qwen3 should not match reasoning prefixes")
	}
}
