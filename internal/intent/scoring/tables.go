package scoring

import (
	"os"

	"gopkg.in/yaml.v3"
)

// PatternBoost adds Points when Pattern appears (case-insensitive) in the
// inspected value.
type PatternBoost struct {
	Pattern string `yaml:"pattern"`
	Points  int    `yaml:"points"`
}

// DurationTier adds Points when the visit lasted at least MinSeconds.
// Tiers are checked in order; the first tier met wins, no stacking.
type DurationTier struct {
	MinSeconds int `yaml:"min_seconds"`
	Points     int `yaml:"points"`
}

// FlagBoosts are fixed boosts for boolean metadata signals.
type FlagBoosts struct {
	ReturnVisitor int `yaml:"return_visitor"`
	HighValuePage int `yaml:"high_value_page"`
	MultiPage     int `yaml:"multi_page"`
}

// Tables holds every tunable used by the scoring engine.
type Tables struct {
	ActionDefaults  map[string]int `yaml:"action_defaults"`
	UnknownAction   int            `yaml:"unknown_action"`
	URLBoosts       []PatternBoost `yaml:"url_boosts"`
	ReferrerBoosts  []PatternBoost `yaml:"referrer_boosts"`
	UserAgentBoosts []PatternBoost `yaml:"user_agent_boosts"`
	DurationTiers   []DurationTier `yaml:"duration_tiers"`
	Flags           FlagBoosts     `yaml:"flags"`
}

// DefaultTables returns the built-in scoring configuration. Tenant overrides
// for base action scores layer on top via the action-score store; everything
// else is deployment-wide.
func DefaultTables() Tables {
	return Tables{
		ActionDefaults: map[string]int{
			"email_open":      10,
			"email_click":     25,
			"campaign_view":   15,
			"form_submission": 30,
			"page_view":       10,
		},
		UnknownAction: 10,
		URLBoosts: []PatternBoost{
			{Pattern: "pricing", Points: 15},
			{Pattern: "checkout", Points: 15},
			{Pattern: "demo", Points: 12},
			{Pattern: "trial", Points: 12},
			{Pattern: "signup", Points: 10},
			{Pattern: "contact", Points: 8},
			{Pattern: "product", Points: 5},
			{Pattern: "blog", Points: 2},
		},
		ReferrerBoosts: []PatternBoost{
			{Pattern: "linkedin", Points: 8},
			{Pattern: "google", Points: 5},
			{Pattern: "bing", Points: 4},
			{Pattern: "twitter", Points: 3},
			{Pattern: "facebook", Points: 2},
		},
		UserAgentBoosts: []PatternBoost{
			{Pattern: "outlook", Points: 4},
			{Pattern: "windows nt", Points: 2},
			{Pattern: "macintosh", Points: 2},
		},
		DurationTiers: []DurationTier{
			{MinSeconds: 300, Points: 15},
			{MinSeconds: 120, Points: 10},
			{MinSeconds: 60, Points: 6},
			{MinSeconds: 30, Points: 3},
		},
		Flags: FlagBoosts{
			ReturnVisitor: 10,
			HighValuePage: 15,
			MultiPage:     5,
		},
	}
}

// LoadTables reads a YAML overrides file and layers the sections it defines
// over the defaults. An empty path returns the defaults unchanged.
func LoadTables(path string) (Tables, error) {
	tables := DefaultTables()
	if path == "" {
		return tables, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return tables, err
	}

	var overrides Tables
	if err := yaml.Unmarshal(raw, &overrides); err != nil {
		return tables, err
	}

	if len(overrides.ActionDefaults) > 0 {
		for action, score := range overrides.ActionDefaults {
			tables.ActionDefaults[action] = score
		}
	}
	if overrides.UnknownAction > 0 {
		tables.UnknownAction = overrides.UnknownAction
	}
	if len(overrides.URLBoosts) > 0 {
		tables.URLBoosts = overrides.URLBoosts
	}
	if len(overrides.ReferrerBoosts) > 0 {
		tables.ReferrerBoosts = overrides.ReferrerBoosts
	}
	if len(overrides.UserAgentBoosts) > 0 {
		tables.UserAgentBoosts = overrides.UserAgentBoosts
	}
	if len(overrides.DurationTiers) > 0 {
		tables.DurationTiers = overrides.DurationTiers
	}
	if overrides.Flags != (FlagBoosts{}) {
		tables.Flags = overrides.Flags
	}

	return tables, nil
}
