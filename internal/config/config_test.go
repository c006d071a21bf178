package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default configuration is invalid: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
router:
  listen: "127.0.0.1:9000"
providers:
  local:
    base_url: "http://127.0.0.1:8080/v1"
    adapter: openai-chat-completions
    api_key_env: LOCAL_KEY
overrides:
  - when:
      request:
        model_regex: "haiku"
    model: gpt-5-mini
  - when:
      header:
        x-target: ["a", "b"]
    model: local/qwen
    config:
      temperature:
        value: 0.3
        when:
          current_not_equals: 0.3
      max_tokens: 2048
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got, want := cfg.Router.Listen, "127.0.0.1:9000"; got != want {
		t.Errorf("listen = %q, want %q", got, want)
	}
	// Defaults survive under the overlay.
	if got, want := cfg.Router.OriginalBaseURL, "https://api.anthropic.com"; got != want {
		t.Errorf("original_base_url = %q, want %q", got, want)
	}
	if got, want := cfg.OpenAI.ReasoningThresholds.LowMax, 5000; got != want {
		t.Errorf("low_max = %d, want %d", got, want)
	}
	if got := len(cfg.Overrides); got != 2 {
		t.Fatalf("len(overrides) = %d, want 2", got)
	}

	tree := cfg.Overrides[1].ConfigTree
	if tree == nil {
		t.Fatal("override config was not parsed")
	}
	if node := tree["temperature"]; node.Kind != NodeConditional || node.When == nil {
		t.Errorf("temperature node = %+v, want conditional with predicate", node)
	}
	if node := tree["max_tokens"]; node.Kind != NodeLiteral {
		t.Errorf("max_tokens node kind = %v, want literal", node.Kind)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("ROUTER_LOGGING__LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got, want := cfg.Logging.Level, "debug"; got != want {
		t.Errorf("logging.level = %q, want %q", got, want)
	}
}

func TestValidateRejectsBadThresholds(t *testing.T) {
	cfg := Default()
	cfg.OpenAI.ReasoningThresholds = ReasoningThresholds{LowMax: 9000, MediumMax: 4000}

	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() accepted medium_max <= low_max")
	}
}

func TestValidateRejectsUnknownAdapter(t *testing.T) {
	cfg := Default()
	cfg.Providers = map[string]ProviderConfig{
		"x": {Adapter: "grpc-tunnel"},
	}

	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() accepted unknown adapter kind")
	}
}

func TestParseOverrideConfigShapes(t *testing.T) {
	tree, err := ParseOverrideConfig(map[string]any{
		"temperature": map[string]any{
			"value": 0.7,
			"when":  map[string]any{"current_in": []any{nil, 0.1}},
		},
		"max_tokens": 4096,
		"reasoning": map[string]any{
			"effort": "high",
		},
	})
	if err != nil {
		t.Fatalf("ParseOverrideConfig() error = %v", err)
	}

	if node := tree["temperature"]; node.Kind != NodeConditional {
		t.Errorf("temperature kind = %v, want conditional", node.Kind)
	}
	if node := tree["max_tokens"]; node.Kind != NodeLiteral {
		t.Errorf("max_tokens kind = %v, want literal", node.Kind)
	}
	node := tree["reasoning"]
	if node.Kind != NodeNested {
		t.Fatalf("reasoning kind = %v, want nested", node.Kind)
	}
	if child := node.Children["effort"]; child.Kind != NodeLiteral || child.Value != "high" {
		t.Errorf("reasoning.effort = %+v, want literal high", child)
	}
}

func TestParseOverrideConfigRejectsUnknownPredicate(t *testing.T) {
	_, err := ParseOverrideConfig(map[string]any{
		"temperature": map[string]any{
			"value": 0.7,
			"when":  map[string]any{"current_above": 1},
		},
	})
	if err == nil {
		t.Fatal("ParseOverrideConfig() accepted unknown predicate")
	}
}

func TestWhenConditionMatches(t *testing.T) {
	tests := []struct {
		name    string
		when    WhenCondition
		current any
		want    bool
	}{
		{"in with nil sentinel matches absent", WhenCondition{In: []any{nil, 0.1}}, nil, true},
		{"in matches numeric across types", WhenCondition{In: []any{1}}, 1.0, true},
		{"in misses other value", WhenCondition{In: []any{0.1}}, 0.7, false},
		{"not_in rejects member", WhenCondition{NotIn: []any{"a"}}, "a", false},
		{"not_in passes non-member", WhenCondition{NotIn: []any{"a"}}, "b", true},
		{"equals", WhenCondition{Equals: 0.3, hasEquals: true}, 0.3, true},
		{"not_equals rejects equal", WhenCondition{NotEquals: 0.3, hasNotEquals: true}, 0.3, false},
		{"not_equals passes absent", WhenCondition{NotEquals: 0.3, hasNotEquals: true}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.when.Matches(tt.current); got != tt.want {
				t.Errorf("Matches(%v) = %v, want %v", tt.current, got, tt.want)
			}
		})
	}
}

func TestStoreReloadKeepsSnapshotOnError(t *testing.T) {
	path := writeConfig(t, "router:\n  listen: \"127.0.0.1:9000\"\n")
	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	before := store.Current()
	if before.Router.Listen != "127.0.0.1:9000" {
		t.Fatalf("unexpected initial snapshot: %q", before.Router.Listen)
	}
	// Snapshots are pointers; a second read without reload returns the same one.
	if store.Current() != before {
		t.Error("Current() returned a different snapshot without a reload")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "router.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config fixture: %v", err)
	}
	return path
}
