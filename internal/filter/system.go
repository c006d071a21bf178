package filter

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"claude-router/internal/anthropic"
	"claude-router/internal/config"
)

// clauseRegexes memoizes compiled clause patterns by source text. Written once
// per distinct pattern; duplicate compilation under contention is harmless.
var clauseRegexes sync.Map

// ApplySystemPromptFilter strips configured clauses from the system prompt.
// Literal patterns are removed as plain substrings, regex patterns by
// replacement. Text blocks left empty are dropped. The request is modified in
// place; invalid regex patterns are logged and skipped.
func ApplySystemPromptFilter(ctx context.Context, f config.SystemPromptFilter, req *anthropic.MessagesRequest) {
	if len(f.ClauseFilters) == 0 || req.System.IsZero() {
		return
	}
	kept := req.System.Parts[:0]
	for _, part := range req.System.Parts {
		if part.Type != anthropic.ContentTypeText {
			kept = append(kept, part)
			continue
		}
		text := part.Text
		for _, clause := range f.ClauseFilters {
			text = stripClause(ctx, clause, text)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		part.Text = text
		kept = append(kept, part)
	}
	req.System.Parts = kept
}

func stripClause(ctx context.Context, clause config.ClauseFilter, text string) string {
	if !clause.Regex {
		return strings.ReplaceAll(text, clause.Pattern, "")
	}
	re, err := compileClause(clause.Pattern)
	if err != nil {
		slog.WarnContext(ctx, "invalid clause filter pattern, skipping", "pattern", clause.Pattern, "error", err)
		return text
	}
	return re.ReplaceAllString(text, "")
}

func compileClause(pattern string) (*regexp.Regexp, error) {
	if cached, ok := clauseRegexes.Load(pattern); ok {
		switch v := cached.(type) {
		case *regexp.Regexp:
			return v, nil
		case error:
			return nil, v
		}
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		clauseRegexes.Store(pattern, err)
		return nil, err
	}
	clauseRegexes.Store(pattern, re)
	return re, nil
}
