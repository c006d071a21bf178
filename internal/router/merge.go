package router

import "claude-router/internal/config"

// Merge applies override config nodes onto the outbound request parameters
// and returns a new map; existing is never mutated. Node semantics:
//
//   - a literal fills the key only when it is absent
//   - a {value, when} entry overwrites when its predicate holds against the
//     current value (absent keys evaluate as nil; no predicate means always)
//   - a nested map recurses; a non-map current value is kept, like a
//     literal meeting a present key
//
// Merging the same overrides twice yields the same result.
func Merge(existing map[string]any, overrides map[string]config.ConfigNode) map[string]any {
	merged := make(map[string]any, len(existing)+len(overrides))
	for key, value := range existing {
		merged[key] = value
	}
	for key, node := range overrides {
		switch node.Kind {
		case config.NodeLiteral:
			if _, present := merged[key]; !present {
				merged[key] = node.Value
			}
		case config.NodeConditional:
			if node.When.Matches(merged[key]) {
				merged[key] = node.Value
			}
		case config.NodeNested:
			current, present := merged[key]
			child, isMap := current.(map[string]any)
			if present && !isMap {
				continue
			}
			merged[key] = Merge(child, node.Children)
		}
	}
	return merged
}
