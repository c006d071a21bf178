package router

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"sync"

	"claude-router/internal/anthropic"
	"claude-router/internal/config"
)

// Decision is the immutable routing outcome for one request.
type Decision struct {
	Provider         string
	Model            string
	Adapter          string
	Reason           string
	Config           map[string]config.ConfigNode
	SupportReasoning bool
}

// Engine evaluates override rules against inbound requests. The engine only
// owns the regex cache; rules come from the per-request config snapshot, so a
// hot reload takes effect without engine restarts.
type Engine struct {
	// regexes memoizes compiled patterns by source text. Entries are written
	// once per distinct pattern; concurrent duplicate compilation is harmless.
	regexes sync.Map
}

// New returns an Engine with an empty pattern cache.
func New() *Engine {
	return &Engine{}
}

// Decide returns the routing decision for the request: the first override rule
// whose conditions all match wins, otherwise the passthrough default. rawBody
// is the decoded request body as generic JSON, used for exact-equality
// conditions on arbitrary request fields.
func (e *Engine) Decide(ctx context.Context, cfg *config.Config, headers http.Header, req *anthropic.MessagesRequest, rawBody map[string]any) Decision {
	for i := range cfg.Overrides {
		rule := &cfg.Overrides[i]
		if !e.ruleMatches(ctx, rule, headers, req, rawBody) {
			continue
		}
		provider, model := resolveProviderModel(rule.Provider, rule.Model)
		return Decision{
			Provider:         provider,
			Model:            model,
			Adapter:          resolveAdapter(ctx, cfg, provider),
			Reason:           fmt.Sprintf("override rule %d", i),
			Config:           rule.ConfigTree,
			SupportReasoning: supportsReasoning(cfg, rule.SupportReasoning, model),
		}
	}
	return Decision{
		Provider: "anthropic",
		Model:    "passthrough",
		Adapter:  config.AdapterAnthropicPassthrough,
		Reason:   "no override matched",
	}
}

// resolveProviderModel resolves the target provider and model name. An
// explicit provider wins; otherwise a "provider/model" prefix is split off;
// otherwise the provider defaults to openai.
func resolveProviderModel(explicit, model string) (string, string) {
	if explicit != "" {
		return explicit, model
	}
	if provider, rest, ok := strings.Cut(model, "/"); ok && provider != "" && rest != "" {
		return provider, rest
	}
	return "openai", model
}

// resolveAdapter picks the adapter for a provider: its configured adapter if
// set, otherwise a default by provider name.
func resolveAdapter(ctx context.Context, cfg *config.Config, provider string) string {
	if p, ok := cfg.Providers[provider]; ok && p.Adapter != "" {
		return p.Adapter
	}
	switch provider {
	case "anthropic":
		return config.AdapterAnthropicPassthrough
	case "openai":
		return config.AdapterOpenAIResponses
	default:
		slog.DebugContext(ctx, "provider has no configured adapter, assuming chat completions", "provider", provider)
		return config.AdapterOpenAIChatCompletions
	}
}

// supportsReasoning resolves whether the target model takes reasoning
// parameters: an explicit rule flag wins, otherwise the model name is matched
// against the configured reasoning model prefixes.
func supportsReasoning(cfg *config.Config, explicit *bool, model string) bool {
	if explicit != nil {
		return *explicit
	}
	for _, prefix := range cfg.OpenAI.ReasoningModelPrefixes {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}

// compiledPattern caches the outcome of one compilation, success or failure.
type compiledPattern struct {
	re  *regexp.Regexp
	err error
}

// compile returns the case-insensitive compilation of pattern, memoized.
func (e *Engine) compile(pattern string) (*regexp.Regexp, error) {
	if cached, ok := e.regexes.Load(pattern); ok {
		c := cached.(compiledPattern)
		return c.re, c.err
	}
	re, err := regexp.Compile("(?i)" + pattern)
	e.regexes.Store(pattern, compiledPattern{re: re, err: err})
	return re, err
}
