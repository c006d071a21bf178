package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Adapter kinds a provider can be served through.
const (
	AdapterAnthropicPassthrough  = "anthropic-passthrough"
	AdapterOpenAIResponses       = "openai-responses"
	AdapterOpenAIChatCompletions = "openai-chat-completions"
)

// Config is one immutable snapshot of the gateway configuration. Snapshots are
// swapped whole on reload; requests keep the snapshot they started with.
type Config struct {
	Router             RouterConfig              `koanf:"router"`
	Providers          map[string]ProviderConfig `koanf:"providers" validate:"omitempty,dive"`
	OpenAI             OpenAIConfig              `koanf:"openai"`
	Timeouts           TimeoutsMS                `koanf:"timeouts_ms"`
	Logging            LoggingConfig             `koanf:"logging"`
	ToolPolicy         ToolPolicy                `koanf:"tool_policy"`
	SystemPromptFilter SystemPromptFilter        `koanf:"system_prompt_filter"`
	Overrides          []OverrideRule            `koanf:"overrides"`
}

// RouterConfig holds the listen address and the passthrough origin.
type RouterConfig struct {
	Listen          string `koanf:"listen" validate:"required,hostname_port"`
	OriginalBaseURL string `koanf:"original_base_url" validate:"required,url"`
}

// ProviderConfig describes one upstream backend.
type ProviderConfig struct {
	BaseURL         string      `koanf:"base_url" validate:"omitempty,url"`
	Adapter         string      `koanf:"adapter" validate:"omitempty,oneof=anthropic-passthrough openai-responses openai-chat-completions"`
	APIKeyEnv       string      `koanf:"api_key_env"`
	Timeouts        *TimeoutsMS `koanf:"timeouts_ms"`
	InjectWebSearch bool        `koanf:"inject_web_search"`
}

// OpenAIConfig holds defaults for OpenAI-dialect backends.
type OpenAIConfig struct {
	APIKeyEnv              string              `koanf:"api_key_env" validate:"required"`
	ReasoningEffortDefault string              `koanf:"reasoning_effort_default" validate:"oneof=minimal low medium high"`
	ReasoningThresholds    ReasoningThresholds `koanf:"reasoning_thresholds"`
	ReasoningModelPrefixes []string            `koanf:"reasoning_model_prefixes"`
}

// ReasoningThresholds map thinking token budgets to effort levels.
type ReasoningThresholds struct {
	LowMax    int `koanf:"low_max" validate:"gt=0"`
	MediumMax int `koanf:"medium_max" validate:"gt=0"`
}

// TimeoutsMS are upstream HTTP timeouts in milliseconds.
type TimeoutsMS struct {
	Connect int `koanf:"connect" validate:"gt=0"`
	Read    int `koanf:"read" validate:"gt=0"`
}

// LoggingConfig selects slog level and output encoding.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json text"`
}

// ToolPolicy removes restricted tools from inbound requests before routing.
type ToolPolicy struct {
	RestrictedToolNames []string `koanf:"restricted_tool_names"`
}

// SystemPromptFilter deletes configured clauses from inbound system prompts.
type SystemPromptFilter struct {
	ClauseFilters []ClauseFilter `koanf:"clause_filters"`
}

// ClauseFilter is one clause to strip, literal by default or a regex.
type ClauseFilter struct {
	Pattern string `koanf:"pattern" validate:"required"`
	Regex   bool   `koanf:"regex"`
}

// OverrideRule routes matching requests to a model/provider and optionally
// rewrites outbound request parameters.
type OverrideRule struct {
	When             RuleWhen       `koanf:"when"`
	Model            string         `koanf:"model" validate:"required"`
	Provider         string         `koanf:"provider"`
	SupportReasoning *bool          `koanf:"support_reasoning"`
	Config           map[string]any `koanf:"config"`

	// ConfigTree is Config parsed into override nodes at load time.
	ConfigTree map[string]ConfigNode `koanf:"-"`
}

// RuleWhen is the condition tree of an override rule. All present groups must
// match. Header values and request values may be scalars or lists.
type RuleWhen struct {
	Header  map[string]any `koanf:"header"`
	Request map[string]any `koanf:"request"`
}

// Default returns the built-in configuration, matching a bare gateway that
// passes everything through to the Anthropic API.
func Default() *Config {
	return &Config{
		Router: RouterConfig{
			Listen:          "0.0.0.0:8787",
			OriginalBaseURL: "https://api.anthropic.com",
		},
		OpenAI: OpenAIConfig{
			APIKeyEnv:              "OPENAI_API_KEY",
			ReasoningEffortDefault: "minimal",
			ReasoningThresholds:    ReasoningThresholds{LowMax: 5000, MediumMax: 15000},
			ReasoningModelPrefixes: []string{"gpt-5", "o4", "o3", "o1"},
		},
		Timeouts: TimeoutsMS{Connect: 5000, Read: 600000},
		Logging:  LoggingConfig{Level: "info", Format: "json"},
	}
}

// Validate checks structural constraints and parses override config trees.
func (c *Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.OpenAI.ReasoningThresholds.MediumMax <= c.OpenAI.ReasoningThresholds.LowMax {
		return fmt.Errorf("reasoning_thresholds.medium_max (%d) must exceed low_max (%d)",
			c.OpenAI.ReasoningThresholds.MediumMax, c.OpenAI.ReasoningThresholds.LowMax)
	}
	for i := range c.Overrides {
		tree, err := ParseOverrideConfig(c.Overrides[i].Config)
		if err != nil {
			return fmt.Errorf("overrides[%d].config: %w", i, err)
		}
		c.Overrides[i].ConfigTree = tree
	}
	return nil
}

// ProviderTimeouts resolves effective timeouts for a provider, falling back to
// the global defaults.
func (c *Config) ProviderTimeouts(provider string) TimeoutsMS {
	if p, ok := c.Providers[provider]; ok && p.Timeouts != nil {
		return *p.Timeouts
	}
	return c.Timeouts
}
