// Package scoring computes 0-100 buyer-intent scores for behavioral events.
//
// A score is the tenant-configurable base score for the action plus
// independent context boosts (page URL, referrer, user agent, visit duration,
// metadata flags), clamped to [0,100]. The engine is intentionally
// failure-tolerant: any lookup problem degrades to the built-in default base
// score rather than surfacing an error, because scoring must never block the
// action being scored.
package scoring

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"crm_intent_backend/internal/intent/domain"
	"crm_intent_backend/platform/cache"
	"crm_intent_backend/platform/logger"

	"github.com/google/uuid"
)

// Intent level buckets, inclusive lower bounds.
const (
	LevelVeryLow  = "very_low"
	LevelLow      = "low"
	LevelMedium   = "medium"
	LevelHigh     = "high"
	LevelVeryHigh = "very_high"
)

var levelLabels = map[string]string{
	LevelVeryLow:  "Very Low",
	LevelLow:      "Low",
	LevelMedium:   "Medium",
	LevelHigh:     "High",
	LevelVeryHigh: "Very High",
}

// ActionScoreStore resolves tenant-specific base score overrides.
// The bool reports whether an override exists for the action.
type ActionScoreStore interface {
	GetActionScore(ctx context.Context, tenantID uuid.UUID, action string) (int, bool, error)
}

// Engine computes intent scores.
type Engine struct {
	store  ActionScoreStore
	cache  cache.Cache
	ttl    time.Duration
	tables Tables
	log    *logger.Logger
}

// NewEngine creates a scoring engine. The cache holds tenant action-score
// lookups for ttl; pass a MemoryCache in tests.
func NewEngine(store ActionScoreStore, c cache.Cache, ttl time.Duration, tables Tables, log *logger.Logger) *Engine {
	return &Engine{store: store, cache: c, ttl: ttl, tables: tables, log: log}
}

// ActionScoreCacheKey is the cache key for a tenant's action base score.
// Config writers must Forget this key when an override changes.
func ActionScoreCacheKey(tenantID uuid.UUID, action string) string {
	return fmt.Sprintf("intent:action_score:%s:%s", tenantID, action)
}

// ScoreFor computes the intent score for an event envelope.
// Always returns a value in [0,100] and never fails: internal errors fall
// back to the default base score with no boosts.
func (e *Engine) ScoreFor(ctx context.Context, env domain.EventEnvelope, tenantID uuid.UUID) int {
	base, err := e.baseScore(ctx, env.Action, tenantID)
	if err != nil {
		if e.log != nil {
			e.log.ScoringFallback(tenantID, env.Action, err)
		}
		return clamp(e.defaultScore(env.Action))
	}

	return clamp(base + e.contextBoost(env))
}

// BaseScore returns the action's base score before boosts, degrading to the
// default table on lookup failure. Used for audit metadata on stored events.
func (e *Engine) BaseScore(ctx context.Context, action string, tenantID uuid.UUID) int {
	base, err := e.baseScore(ctx, action, tenantID)
	if err != nil {
		return e.defaultScore(action)
	}
	return base
}

// baseScore resolves the tenant override through the cache, falling back to
// the default table.
func (e *Engine) baseScore(ctx context.Context, action string, tenantID uuid.UUID) (int, error) {
	raw, err := e.cache.Remember(ctx, ActionScoreCacheKey(tenantID, action), e.ttl, func(ctx context.Context) (string, error) {
		score, ok, err := e.store.GetActionScore(ctx, tenantID, action)
		if err != nil {
			return "", err
		}
		if !ok {
			score = e.defaultScore(action)
		}
		return strconv.Itoa(score), nil
	})
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(raw)
}

func (e *Engine) defaultScore(action string) int {
	if score, ok := e.tables.ActionDefaults[action]; ok {
		return score
	}
	return e.tables.UnknownAction
}

// contextBoost sums the independent boost signals.
func (e *Engine) contextBoost(env domain.EventEnvelope) int {
	boost := 0
	boost += matchBoost(env.PageURL, e.tables.URLBoosts)
	boost += matchBoost(env.Referrer, e.tables.ReferrerBoosts)
	boost += matchBoost(env.UserAgent, e.tables.UserAgentBoosts)
	boost += e.durationBoost(env.DurationSeconds)

	if env.Flag("return_visitor") {
		boost += e.tables.Flags.ReturnVisitor
	}
	if env.Flag("high_value_page") {
		boost += e.tables.Flags.HighValuePage
	}
	if env.IntNamed("pages_viewed") > 1 {
		boost += e.tables.Flags.MultiPage
	}

	return boost
}

// matchBoost sums every pattern present in value, case-insensitive.
func matchBoost(value string, boosts []PatternBoost) int {
	if value == "" {
		return 0
	}
	value = strings.ToLower(value)

	total := 0
	for _, b := range boosts {
		if strings.Contains(value, strings.ToLower(b.Pattern)) {
			total += b.Points
		}
	}
	return total
}

// durationBoost returns the highest tier met; tiers do not stack.
func (e *Engine) durationBoost(seconds int) int {
	for _, tier := range e.tables.DurationTiers {
		if seconds >= tier.MinSeconds {
			return tier.Points
		}
	}
	return 0
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// IntentLevel maps a score onto one of five ordered buckets.
func IntentLevel(score int) string {
	switch {
	case score < 20:
		return LevelVeryLow
	case score < 40:
		return LevelLow
	case score < 60:
		return LevelMedium
	case score < 80:
		return LevelHigh
	default:
		return LevelVeryHigh
	}
}

// IntentLevelLabel returns the display string for a level bucket.
func IntentLevelLabel(level string) string {
	if label, ok := levelLabels[level]; ok {
		return label
	}
	return "Unknown"
}
