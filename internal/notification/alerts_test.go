package notification

import (
	"context"
	"testing"

	"crm_intent_backend/internal/events"
	"crm_intent_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeSender struct {
	sent []AlertData
	to   string
}

func (f *fakeSender) SendHighIntentAlert(_ context.Context, toEmail string, data AlertData) error {
	f.to = toEmail
	f.sent = append(f.sent, data)
	return nil
}

type alertConfig struct {
	threshold int
}

func (c alertConfig) GetAlertsEnabled() bool      { return true }
func (c alertConfig) GetAlertScoreThreshold() int { return c.threshold }
func (c alertConfig) GetSMTPHost() string         { return "localhost" }
func (c alertConfig) GetSMTPPort() int            { return 1025 }
func (c alertConfig) GetSMTPUsername() string     { return "" }
func (c alertConfig) GetSMTPPassword() string     { return "" }
func (c alertConfig) GetAlertFromAddress() string { return "alerts@example.com" }
func (c alertConfig) GetAlertToAddress() string   { return "sales@example.com" }

func recordedEvent(score int) events.IntentEventRecorded {
	return events.IntentEventRecorded{
		BaseEvent:     events.NewBaseEvent(),
		IntentEventID: uuid.New(),
		TenantID:      uuid.New(),
		Action:        "email_click",
		IntentScore:   score,
		IntentLevel:   "very_high",
		CampaignID:    uuid.New(),
	}
}

func TestAlerterSendsAboveThreshold(t *testing.T) {
	sender := &fakeSender{}
	alerter := NewAlerter(sender, alertConfig{threshold: 80}, logger.New("development"))

	if err := alerter.Handle(context.Background(), recordedEvent(85)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(sender.sent))
	}
	if sender.to != "sales@example.com" {
		t.Fatalf("expected configured recipient, got %q", sender.to)
	}
	if sender.sent[0].IntentScore != 85 {
		t.Fatalf("unexpected alert data %+v", sender.sent[0])
	}
}

func TestAlerterSkipsBelowThreshold(t *testing.T) {
	sender := &fakeSender{}
	alerter := NewAlerter(sender, alertConfig{threshold: 80}, logger.New("development"))

	if err := alerter.Handle(context.Background(), recordedEvent(79)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("expected no alerts, got %d", len(sender.sent))
	}
}

func TestAlerterIgnoresOtherEvents(t *testing.T) {
	sender := &fakeSender{}
	alerter := NewAlerter(sender, alertConfig{threshold: 80}, logger.New("development"))

	if err := alerter.Handle(context.Background(), events.LeadScoreChanged{BaseEvent: events.NewBaseEvent()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Fatal("expected no alerts for unrelated events")
	}
}
