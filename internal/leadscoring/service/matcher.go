package service

import (
	"strings"

	"crm_intent_backend/internal/leadscoring/domain"
)

// Matches reports whether an event satisfies a rule condition. The
// condition's "event" discriminator must equal the event's type
// ("event_type" is accepted as an alias); every other key is an equality
// predicate against the event's fields and all must hold. An empty
// condition matches nothing.
func Matches(condition map[string]any, ev domain.Event) bool {
	wantType, ok := conditionEvent(condition)
	if !ok || !strings.EqualFold(wantType, ev.Type) {
		return false
	}

	for key, want := range condition {
		if key == "event" || key == "event_type" {
			continue
		}
		got, ok := ev.Fields[key]
		if !ok || !looseEqual(got, want) {
			return false
		}
	}
	return true
}

// conditionEvent extracts the condition's event discriminator.
func conditionEvent(condition map[string]any) (string, bool) {
	if v, ok := condition["event"].(string); ok {
		return v, true
	}
	v, ok := condition["event_type"].(string)
	return v, ok
}

// Evaluate runs the event through the rules in order and returns the total
// point delta plus every rule that matched. Rules do not short-circuit: all
// matching rules contribute.
func Evaluate(rules []domain.Rule, ev domain.Event) (int, []domain.Rule) {
	total := 0
	var matched []domain.Rule
	for _, rule := range rules {
		if Matches(rule.Condition, ev) {
			total += rule.Points
			matched = append(matched, rule)
		}
	}
	return total, matched
}

// looseEqual compares condition values against event fields across the type
// drift JSON introduces: numbers arrive as float64 from JSONB and as int
// from Go callers, so numeric values compare by value.
func looseEqual(got, want any) bool {
	if gn, ok := toFloat(got); ok {
		if wn, ok := toFloat(want); ok {
			return gn == wn
		}
		return false
	}
	if gs, ok := got.(string); ok {
		ws, ok := want.(string)
		return ok && strings.EqualFold(gs, ws)
	}
	if gb, ok := got.(bool); ok {
		wb, ok := want.(bool)
		return ok && gb == wb
	}
	return got == want
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
