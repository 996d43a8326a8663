package scoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"crm_intent_backend/internal/intent/domain"
	"crm_intent_backend/platform/cache"

	"github.com/google/uuid"
)

type fakeStore struct {
	overrides map[string]int
	err       error
	calls     int
}

func (f *fakeStore) GetActionScore(_ context.Context, _ uuid.UUID, action string) (int, bool, error) {
	f.calls++
	if f.err != nil {
		return 0, false, f.err
	}
	score, ok := f.overrides[action]
	return score, ok, nil
}

func newTestEngine(store *fakeStore) *Engine {
	return NewEngine(store, cache.NewMemoryCache(), time.Hour, DefaultTables(), nil)
}

func TestScoreFor_DefaultBaseScores(t *testing.T) {
	engine := newTestEngine(&fakeStore{})
	tenantID := uuid.New()

	cases := []struct {
		action string
		want   int
	}{
		{"email_open", 10},
		{"email_click", 25},
		{"campaign_view", 15},
		{"no_such_action", 10},
	}
	for _, tc := range cases {
		got := engine.ScoreFor(context.Background(), domain.EventEnvelope{Action: tc.action}, tenantID)
		if got != tc.want {
			t.Errorf("ScoreFor(%s): expected %d, got %d", tc.action, tc.want, got)
		}
	}
}

func TestScoreFor_TenantOverride(t *testing.T) {
	store := &fakeStore{overrides: map[string]int{"email_click": 40}}
	engine := newTestEngine(store)

	got := engine.ScoreFor(context.Background(), domain.EventEnvelope{Action: "email_click"}, uuid.New())
	if got != 40 {
		t.Fatalf("expected tenant override 40, got %d", got)
	}
}

func TestScoreFor_OverrideCached(t *testing.T) {
	store := &fakeStore{overrides: map[string]int{"email_open": 12}}
	engine := newTestEngine(store)
	tenantID := uuid.New()

	for i := 0; i < 3; i++ {
		engine.ScoreFor(context.Background(), domain.EventEnvelope{Action: "email_open"}, tenantID)
	}
	if store.calls != 1 {
		t.Fatalf("expected one store lookup, got %d", store.calls)
	}
}

func TestScoreFor_ContextBoosts(t *testing.T) {
	engine := newTestEngine(&fakeStore{})
	tenantID := uuid.New()

	env := domain.EventEnvelope{
		Action:  "email_click",
		PageURL: "https://example.com/pricing",
	}
	if got := engine.ScoreFor(context.Background(), env, tenantID); got != 40 {
		t.Errorf("pricing URL boost: expected 25+15=40, got %d", got)
	}

	env = domain.EventEnvelope{
		Action:   "campaign_view",
		Referrer: "https://www.LinkedIn.com/feed",
	}
	if got := engine.ScoreFor(context.Background(), env, tenantID); got != 23 {
		t.Errorf("referrer boost: expected 15+8=23, got %d", got)
	}

	env = domain.EventEnvelope{
		Action:          "campaign_view",
		DurationSeconds: 150,
	}
	if got := engine.ScoreFor(context.Background(), env, tenantID); got != 25 {
		t.Errorf("duration tier: expected 15+10=25, got %d", got)
	}

	env = domain.EventEnvelope{
		Action: "email_open",
		Metadata: map[string]any{
			"return_visitor":  true,
			"high_value_page": true,
			"pages_viewed":    3,
		},
	}
	if got := engine.ScoreFor(context.Background(), env, tenantID); got != 40 {
		t.Errorf("flag boosts: expected 10+10+15+5=40, got %d", got)
	}
}

func TestScoreFor_DurationTierNoStacking(t *testing.T) {
	engine := newTestEngine(&fakeStore{})

	env := domain.EventEnvelope{Action: "email_open", DurationSeconds: 900}
	// Only the 300s tier applies, not 300+120+60+30.
	if got := engine.ScoreFor(context.Background(), env, uuid.New()); got != 25 {
		t.Fatalf("expected 10+15=25, got %d", got)
	}
}

func TestScoreFor_ClampedToHundred(t *testing.T) {
	store := &fakeStore{overrides: map[string]int{"email_click": 95}}
	engine := newTestEngine(store)

	env := domain.EventEnvelope{
		Action:          "email_click",
		PageURL:         "https://example.com/pricing/checkout/demo",
		Referrer:        "https://linkedin.com",
		DurationSeconds: 600,
		Metadata: map[string]any{
			"return_visitor":  true,
			"high_value_page": true,
			"pages_viewed":    5,
		},
	}
	if got := engine.ScoreFor(context.Background(), env, uuid.New()); got != 100 {
		t.Fatalf("expected clamp at 100, got %d", got)
	}
}

func TestScoreFor_BoundsProperty(t *testing.T) {
	engine := newTestEngine(&fakeStore{overrides: map[string]int{"x": 0}})

	envs := []domain.EventEnvelope{
		{},
		{Action: "x"},
		{Action: "email_click", DurationSeconds: -50},
		{Action: "email_click", PageURL: "::::", Referrer: "\x00", UserAgent: "bot"},
		{Action: "email_open", DurationSeconds: 1 << 30, Metadata: map[string]any{"pages_viewed": 1 << 40}},
	}
	for i, env := range envs {
		got := engine.ScoreFor(context.Background(), env, uuid.New())
		if got < 0 || got > 100 {
			t.Errorf("envelope %d: score %d outside [0,100]", i, got)
		}
	}
}

func TestScoreFor_StoreFailureFallsBack(t *testing.T) {
	store := &fakeStore{err: errors.New("connection refused")}
	engine := newTestEngine(store)

	env := domain.EventEnvelope{
		Action:          "email_click",
		PageURL:         "https://example.com/pricing",
		DurationSeconds: 600,
	}
	// Fallback is the unmodified default base score, boosts are skipped.
	if got := engine.ScoreFor(context.Background(), env, uuid.New()); got != 25 {
		t.Fatalf("expected default base 25 on store failure, got %d", got)
	}
}

func TestIntentLevel(t *testing.T) {
	cases := []struct {
		score int
		want  string
	}{
		{0, LevelVeryLow},
		{19, LevelVeryLow},
		{20, LevelLow},
		{39, LevelLow},
		{40, LevelMedium},
		{59, LevelMedium},
		{60, LevelHigh},
		{79, LevelHigh},
		{80, LevelVeryHigh},
		{100, LevelVeryHigh},
	}
	for _, tc := range cases {
		if got := IntentLevel(tc.score); got != tc.want {
			t.Errorf("IntentLevel(%d): expected %s, got %s", tc.score, tc.want, got)
		}
	}
}

func TestIntentLevelLabel(t *testing.T) {
	if got := IntentLevelLabel(LevelVeryHigh); got != "Very High" {
		t.Errorf("expected Very High, got %q", got)
	}
	if got := IntentLevelLabel("bogus"); got != "Unknown" {
		t.Errorf("expected Unknown for bogus level, got %q", got)
	}
}
