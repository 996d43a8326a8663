package notification

import (
	"context"

	"crm_intent_backend/internal/events"
	"crm_intent_backend/platform/config"
	"crm_intent_backend/platform/logger"
)

// Alerter watches recorded intent events and emails the configured address
// when a score crosses the alert threshold.
type Alerter struct {
	sender    Sender
	toAddress string
	threshold int
	log       *logger.Logger
}

// NewAlerter creates an alerter from the alert configuration.
func NewAlerter(sender Sender, cfg config.AlertConfig, log *logger.Logger) *Alerter {
	return &Alerter{
		sender:    sender,
		toAddress: cfg.GetAlertToAddress(),
		threshold: cfg.GetAlertScoreThreshold(),
		log:       log,
	}
}

// Register subscribes the alerter to the event bus.
func (a *Alerter) Register(bus events.Bus) {
	bus.Subscribe(events.IntentEventRecorded{}.EventName(), events.HandlerFunc(a.Handle))
}

// Handle sends an alert for one recorded event when it meets the threshold.
func (a *Alerter) Handle(ctx context.Context, event events.Event) error {
	recorded, ok := event.(events.IntentEventRecorded)
	if !ok {
		return nil
	}
	if recorded.IntentScore < a.threshold {
		return nil
	}

	err := a.sender.SendHighIntentAlert(ctx, a.toAddress, AlertData{
		Action:      recorded.Action,
		IntentScore: recorded.IntentScore,
		IntentLevel: recorded.IntentLevel,
		PageURL:     recorded.PageURL,
		CampaignID:  recorded.CampaignID.String(),
	})
	if err != nil {
		a.log.Error("high intent alert failed", "tenant_id", recorded.TenantID, "error", err)
		return err
	}

	a.log.Info("high_intent_alert_sent",
		"tenant_id", recorded.TenantID.String(),
		"intent_score", recorded.IntentScore,
		"action", recorded.Action,
	)
	return nil
}
