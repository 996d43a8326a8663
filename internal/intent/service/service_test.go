package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"crm_intent_backend/internal/campaigns"
	"crm_intent_backend/internal/events"
	"crm_intent_backend/internal/intent/domain"
	"crm_intent_backend/internal/intent/scoring"
	"crm_intent_backend/platform/cache"
	"crm_intent_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeStore struct {
	byKey   map[string]*domain.IntentEvent
	inserts int
	failOn  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{byKey: map[string]*domain.IntentEvent{}}
}

func (f *fakeStore) FindByIdempotencyKey(_ context.Context, _ uuid.UUID, key string) (*domain.IntentEvent, error) {
	if ev, ok := f.byKey[key]; ok {
		return ev, nil
	}
	return nil, errors.New("not found")
}

func (f *fakeStore) InsertOrFetch(_ context.Context, event *domain.IntentEvent, idempotencyKey, _ string) (*domain.IntentEvent, bool, error) {
	if f.failOn != nil {
		return nil, false, f.failOn
	}
	if ev, ok := f.byKey[idempotencyKey]; ok {
		return ev, false, nil
	}
	f.inserts++
	event.ID = uuid.New()
	event.CreatedAt = time.Now()
	f.byKey[idempotencyKey] = event
	return event, true, nil
}

type fakeDirectory struct {
	campaign campaigns.Campaign
	err      error
}

func (f *fakeDirectory) FindCampaign(_ context.Context, _, _ uuid.UUID) (campaigns.Campaign, error) {
	return f.campaign, f.err
}

type noOverrides struct{}

func (noOverrides) GetActionScore(_ context.Context, _ uuid.UUID, _ string) (int, bool, error) {
	return 0, false, nil
}

type recordingBus struct {
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.published = append(b.published, event)
}

func (b *recordingBus) PublishSync(_ context.Context, event events.Event) error {
	b.published = append(b.published, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func testEngine() *scoring.Engine {
	return scoring.NewEngine(noOverrides{}, cache.NewMemoryCache(), time.Hour, scoring.DefaultTables(), logger.New("development"))
}

func testFixture(store *fakeStore) (*Service, campaigns.Recipient) {
	tenantID := uuid.New()
	campaignID := uuid.New()
	contactID := uuid.New()

	dir := &fakeDirectory{campaign: campaigns.Campaign{
		ID:       campaignID,
		TenantID: tenantID,
		Name:     "Q3 Nurture",
		Type:     "email",
	}}
	rcpt := campaigns.Recipient{
		ID:         uuid.New(),
		CampaignID: campaignID,
		TenantID:   tenantID,
		ContactID:  &contactID,
		MessageID:  "msg-123",
		Email:      "buyer@example.com",
	}

	svc := New(store, dir, testEngine(), nil, logger.New("development"))
	return svc, rcpt
}

func TestConvertEmailOpenCreatesEvent(t *testing.T) {
	store := newFakeStore()
	svc, rcpt := testFixture(store)
	svc.SetClock(func() time.Time { return time.Date(2026, 3, 10, 14, 5, 0, 0, time.UTC) })

	ev := svc.ConvertEmailOpenToIntent(context.Background(), rcpt, WebhookData{
		UserAgent: "Outlook/16.0",
		IPAddress: "203.0.113.7",
		Raw:       map[string]any{"provider": "sendgrid"},
	})
	if ev == nil {
		t.Fatal("expected event, got nil")
	}
	if ev.EventName != domain.ActionEmailOpen {
		t.Fatalf("expected event name %q, got %q", domain.ActionEmailOpen, ev.EventName)
	}
	// email_open base 10 + outlook UA boost 4
	if ev.IntentScore != 14 {
		t.Fatalf("expected score 14, got %d", ev.IntentScore)
	}
	wantKey := IdempotencyKey(rcpt.CampaignID, rcpt.ID, domain.ActionEmailOpen, time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC))
	if ev.IdempotencyKey() != wantKey {
		t.Fatalf("expected idempotency key %q, got %q", wantKey, ev.IdempotencyKey())
	}
	if got := ev.EventData["page_url"]; got != "email://"+rcpt.CampaignID.String()+"/"+rcpt.ID.String() {
		t.Fatalf("unexpected virtual page url %v", got)
	}
	if ev.Metadata["base_score"] != 10 {
		t.Fatalf("expected base_score 10, got %v", ev.Metadata["base_score"])
	}
	if ev.ContactID == nil || *ev.ContactID != *rcpt.ContactID {
		t.Fatal("expected contact id carried onto event")
	}
}

func TestConvertSameHourIsIdempotent(t *testing.T) {
	store := newFakeStore()
	svc, rcpt := testFixture(store)
	at := time.Date(2026, 3, 10, 14, 5, 0, 0, time.UTC)
	svc.SetClock(func() time.Time { return at })

	data := WebhookData{URL: "https://example.com/pricing", Raw: map[string]any{}}
	first := svc.ConvertEmailClickToIntent(context.Background(), rcpt, data)
	if first == nil {
		t.Fatal("expected first event")
	}

	// Redelivery 40 minutes later, same hour bucket.
	svc.SetClock(func() time.Time { return at.Add(40 * time.Minute) })
	second := svc.ConvertEmailClickToIntent(context.Background(), rcpt, data)
	if second == nil {
		t.Fatal("expected duplicate to return the existing event")
	}
	if second.ID != first.ID {
		t.Fatalf("expected same event id, got %s vs %s", second.ID, first.ID)
	}
	if store.inserts != 1 {
		t.Fatalf("expected 1 insert, got %d", store.inserts)
	}
}

func TestConvertNextHourCreatesNewEvent(t *testing.T) {
	store := newFakeStore()
	svc, rcpt := testFixture(store)
	at := time.Date(2026, 3, 10, 14, 55, 0, 0, time.UTC)
	svc.SetClock(func() time.Time { return at })

	data := WebhookData{URL: "https://example.com/pricing", Raw: map[string]any{}}
	first := svc.ConvertEmailClickToIntent(context.Background(), rcpt, data)

	svc.SetClock(func() time.Time { return at.Add(10 * time.Minute) })
	second := svc.ConvertEmailClickToIntent(context.Background(), rcpt, data)

	if first == nil || second == nil {
		t.Fatal("expected both events")
	}
	if second.ID == first.ID {
		t.Fatal("expected a distinct event after the hour boundary")
	}
	if store.inserts != 2 {
		t.Fatalf("expected 2 inserts, got %d", store.inserts)
	}
	if first.IdempotencyKey() == second.IdempotencyKey() {
		t.Fatal("expected different idempotency keys across hours")
	}
}

func TestConvertCampaignLandingScoresURL(t *testing.T) {
	store := newFakeStore()
	svc, rcpt := testFixture(store)
	svc.SetClock(func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) })

	ev := svc.ConvertCampaignLandingToIntent(context.Background(), rcpt, "https://Example.COM/demo?gclid=abc&junk=1", WebhookData{
		Referrer:        "https://www.linkedin.com/feed",
		DurationSeconds: 130,
		Raw:             map[string]any{"return_visitor": true},
	})
	if ev == nil {
		t.Fatal("expected event, got nil")
	}
	// campaign_view 15 + demo URL 12 + linkedin referrer 8 + duration>=120 10
	// + return_visitor 10 + high_value_page flag 15
	if ev.IntentScore != 70 {
		t.Fatalf("expected score 70, got %d", ev.IntentScore)
	}
	if got := ev.Metadata["page_url_normalized"]; got != "https://example.com/demo?gclid=abc" {
		t.Fatalf("unexpected normalized url %v", got)
	}
	if ev.Metadata["is_high_value_page"] != true {
		t.Fatal("expected demo page flagged high value")
	}
	if ev.Metadata["page_category"] != "demo" {
		t.Fatalf("expected category demo, got %v", ev.Metadata["page_category"])
	}
}

func TestConvertPublishesRecordedEventOnce(t *testing.T) {
	store := newFakeStore()
	svc, rcpt := testFixture(store)
	svc.SetClock(func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) })

	bus := &recordingBus{}
	svc.bus = bus

	data := WebhookData{Raw: map[string]any{}}
	svc.ConvertEmailOpenToIntent(context.Background(), rcpt, data)
	svc.ConvertEmailOpenToIntent(context.Background(), rcpt, data)

	if len(bus.published) != 1 {
		t.Fatalf("expected exactly 1 published event, got %d", len(bus.published))
	}
	recorded, ok := bus.published[0].(events.IntentEventRecorded)
	if !ok {
		t.Fatalf("expected IntentEventRecorded, got %T", bus.published[0])
	}
	if recorded.Action != domain.ActionEmailOpen {
		t.Fatalf("expected action %q, got %q", domain.ActionEmailOpen, recorded.Action)
	}
}

func TestConvertNeverFails(t *testing.T) {
	t.Run("campaign lookup error", func(t *testing.T) {
		store := newFakeStore()
		svc, rcpt := testFixture(store)
		svc.directory = &fakeDirectory{err: errors.New("db down")}

		if ev := svc.ConvertEmailOpenToIntent(context.Background(), rcpt, WebhookData{}); ev != nil {
			t.Fatalf("expected nil on lookup failure, got %+v", ev)
		}
	})

	t.Run("insert error", func(t *testing.T) {
		store := newFakeStore()
		store.failOn = errors.New("constraint violated")
		svc, rcpt := testFixture(store)

		if ev := svc.ConvertEmailClickToIntent(context.Background(), rcpt, WebhookData{URL: "https://example.com"}); ev != nil {
			t.Fatalf("expected nil on insert failure, got %+v", ev)
		}
	})
}

func TestSessionIDStableWithinHour(t *testing.T) {
	campaignID := uuid.New()
	recipientID := uuid.New()
	at := time.Date(2026, 3, 10, 14, 5, 0, 0, time.UTC)

	a := sessionIDFor(campaignID, recipientID, at)
	b := sessionIDFor(campaignID, recipientID, at.Add(50*time.Minute))
	c := sessionIDFor(campaignID, recipientID, at.Add(time.Hour))

	if a != b {
		t.Fatalf("expected stable session id within hour, got %q vs %q", a, b)
	}
	if a == c {
		t.Fatal("expected session id to rotate with the hour bucket")
	}
}
