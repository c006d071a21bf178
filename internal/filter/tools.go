// Package filter preprocesses inbound requests before routing: restricted
// tools are removed and configured clauses are stripped from system prompts.
package filter

import (
	"context"
	"log/slog"
	"strings"

	"claude-router/internal/anthropic"
	"claude-router/internal/config"
)

// ApplyToolPolicy removes restricted tools from the request, matching names
// case-insensitively. The request is modified in place.
func ApplyToolPolicy(ctx context.Context, policy config.ToolPolicy, req *anthropic.MessagesRequest) {
	if len(policy.RestrictedToolNames) == 0 || len(req.Tools) == 0 {
		return
	}
	restricted := make(map[string]struct{}, len(policy.RestrictedToolNames))
	for _, name := range policy.RestrictedToolNames {
		restricted[strings.ToLower(name)] = struct{}{}
	}
	kept := req.Tools[:0]
	var removed []string
	for _, tool := range req.Tools {
		if _, blocked := restricted[strings.ToLower(tool.Name)]; blocked {
			removed = append(removed, tool.Name)
			continue
		}
		kept = append(kept, tool)
	}
	req.Tools = kept
	if len(removed) > 0 {
		slog.DebugContext(ctx, "removed restricted tools", "tools", removed)
	}
}
