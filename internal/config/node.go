package config

import (
	"fmt"
	"reflect"
)

// NodeKind discriminates override config nodes.
type NodeKind int

const (
	// NodeLiteral is a bare value; merging applies it only when the key is absent.
	NodeLiteral NodeKind = iota
	// NodeConditional is a {value, when} entry; merging applies the value when
	// the predicate holds against the current value (or unconditionally when
	// no predicate is given).
	NodeConditional
	// NodeNested is a map of child nodes merged recursively.
	NodeNested
)

// ConfigNode is one node of an override config tree.
type ConfigNode struct {
	Kind     NodeKind
	Value    any
	When     *WhenCondition
	Children map[string]ConfigNode
}

// WhenCondition is the predicate of a conditional entry, evaluated against the
// value currently present in the outbound request. A missing key evaluates as
// nil, so lists may name nil to match absence.
type WhenCondition struct {
	In    []any
	NotIn []any

	Equals       any
	hasEquals    bool
	NotEquals    any
	hasNotEquals bool
}

// Matches reports whether every present predicate holds for current.
func (w *WhenCondition) Matches(current any) bool {
	if w == nil {
		return true
	}
	if w.In != nil && !containsValue(w.In, current) {
		return false
	}
	if w.NotIn != nil && containsValue(w.NotIn, current) {
		return false
	}
	if w.hasEquals && !valuesEqual(w.Equals, current) {
		return false
	}
	if w.hasNotEquals && valuesEqual(w.NotEquals, current) {
		return false
	}
	return true
}

// ParseOverrideConfig parses a raw override config map into nodes.
func ParseOverrideConfig(raw map[string]any) (map[string]ConfigNode, error) {
	if raw == nil {
		return nil, nil
	}
	tree := make(map[string]ConfigNode, len(raw))
	for key, value := range raw {
		node, err := parseNode(value)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		tree[key] = node
	}
	return tree, nil
}

// parseNode classifies one raw value. A map carrying a "value" key and nothing
// besides "value"/"when" is a conditional entry; any other map nests.
func parseNode(v any) (ConfigNode, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return ConfigNode{Kind: NodeLiteral, Value: v}, nil
	}
	if isConditionalEntry(m) {
		node := ConfigNode{Kind: NodeConditional, Value: m["value"]}
		if rawWhen, ok := m["when"]; ok {
			when, err := parseWhen(rawWhen)
			if err != nil {
				return ConfigNode{}, err
			}
			node.When = when
		}
		return node, nil
	}
	children := make(map[string]ConfigNode, len(m))
	for key, child := range m {
		node, err := parseNode(child)
		if err != nil {
			return ConfigNode{}, fmt.Errorf("key %q: %w", key, err)
		}
		children[key] = node
	}
	return ConfigNode{Kind: NodeNested, Children: children}, nil
}

func isConditionalEntry(m map[string]any) bool {
	if _, ok := m["value"]; !ok {
		return false
	}
	for key := range m {
		if key != "value" && key != "when" {
			return false
		}
	}
	return true
}

func parseWhen(raw any) (*WhenCondition, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("when predicate must be a map, got %T", raw)
	}
	var when WhenCondition
	for key, value := range m {
		switch key {
		case "current_in":
			list, ok := value.([]any)
			if !ok {
				return nil, fmt.Errorf("current_in must be a list, got %T", value)
			}
			when.In = list
		case "current_not_in":
			list, ok := value.([]any)
			if !ok {
				return nil, fmt.Errorf("current_not_in must be a list, got %T", value)
			}
			when.NotIn = list
		case "current_equals":
			when.Equals = value
			when.hasEquals = true
		case "current_not_equals":
			when.NotEquals = value
			when.hasNotEquals = true
		default:
			return nil, fmt.Errorf("unknown when predicate %q", key)
		}
	}
	return &when, nil
}

func containsValue(list []any, v any) bool {
	for _, candidate := range list {
		if valuesEqual(candidate, v) {
			return true
		}
	}
	return false
}

// valuesEqual compares config values across the numeric representations YAML
// and JSON decoding produce (int vs float64).
func valuesEqual(a, b any) bool {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}
