// Package service builds, deduplicates, and persists intent events from
// campaign webhook triggers.
package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"crm_intent_backend/internal/campaigns"
	"crm_intent_backend/internal/events"
	"crm_intent_backend/internal/intent/domain"
	"crm_intent_backend/internal/intent/scoring"
	"crm_intent_backend/platform/logger"
	"crm_intent_backend/platform/urlnorm"

	"github.com/google/uuid"
)

// idempotencyHourFormat buckets dedup keys by clock hour. Identical actions
// on the same recipient within the same hour collapse to one event; a repeat
// after the hour boundary records a fresh event. The hour window is the
// chosen dedup granularity, wide enough to absorb webhook redeliveries and
// narrow enough to keep real re-engagement visible.
const idempotencyHourFormat = "2006-01-02-15"

// EventStore is the persistence surface the factory needs.
// Satisfied by repository.Repository.
type EventStore interface {
	FindByIdempotencyKey(ctx context.Context, tenantID uuid.UUID, key string) (*domain.IntentEvent, error)
	InsertOrFetch(ctx context.Context, event *domain.IntentEvent, idempotencyKey, sessionID string) (*domain.IntentEvent, bool, error)
}

// CampaignDirectory resolves campaigns for recipients.
// Satisfied by campaigns.Repository.
type CampaignDirectory interface {
	FindCampaign(ctx context.Context, campaignID, tenantID uuid.UUID) (campaigns.Campaign, error)
}

// WebhookData carries the delivery context a webhook provides for a trigger.
type WebhookData struct {
	URL             string         // clicked link or landing page, where applicable
	Referrer        string
	UserAgent       string
	IPAddress       string
	DurationSeconds int
	Raw             map[string]any // full webhook payload, archived on the event
}

// Service converts campaign triggers into stored intent events.
type Service struct {
	store     EventStore
	directory CampaignDirectory
	engine    *scoring.Engine
	bus       events.Bus
	log       *logger.Logger

	// now is injectable so tests can cross hour boundaries.
	now func() time.Time
}

// New creates the intent event service.
func New(store EventStore, directory CampaignDirectory, engine *scoring.Engine, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		store:     store,
		directory: directory,
		engine:    engine,
		bus:       bus,
		log:       log,
		now:       time.Now,
	}
}

// SetClock overrides the time source. Used by tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// ConvertEmailOpenToIntent records an intent event for an email open.
// Opens have no real page, so a virtual email:// URL identifies the message.
// Returns nil when no event could be created; never returns an error.
func (s *Service) ConvertEmailOpenToIntent(ctx context.Context, rcpt campaigns.Recipient, data WebhookData) *domain.IntentEvent {
	pageURL := fmt.Sprintf("email://%s/%s", rcpt.CampaignID, rcpt.ID)
	return s.guarded(ctx, rcpt, domain.ActionEmailOpen, pageURL, data)
}

// ConvertEmailClickToIntent records an intent event for a clicked link.
func (s *Service) ConvertEmailClickToIntent(ctx context.Context, rcpt campaigns.Recipient, data WebhookData) *domain.IntentEvent {
	return s.guarded(ctx, rcpt, domain.ActionEmailClick, data.URL, data)
}

// ConvertCampaignLandingToIntent records an intent event for a campaign
// landing page view.
func (s *Service) ConvertCampaignLandingToIntent(ctx context.Context, rcpt campaigns.Recipient, landingURL string, data WebhookData) *domain.IntentEvent {
	return s.guarded(ctx, rcpt, domain.ActionCampaignView, landingURL, data)
}

// guarded runs convert under the never-throw boundary contract: scoring is
// best-effort telemetry and must not fail the action that triggered it.
func (s *Service) guarded(ctx context.Context, rcpt campaigns.Recipient, action, pageURL string, data WebhookData) (event *domain.IntentEvent) {
	defer func() {
		if r := recover(); r != nil {
			if s.log != nil {
				s.log.Error("intent conversion panicked", "action", action, "recipient_id", rcpt.ID, "panic", r)
			}
			event = nil
		}
	}()

	event, err := s.convert(ctx, rcpt, action, pageURL, data)
	if err != nil {
		if s.log != nil {
			s.log.Error("intent conversion failed", "action", action, "recipient_id", rcpt.ID, "error", err)
		}
		return nil
	}
	return event
}

func (s *Service) convert(ctx context.Context, rcpt campaigns.Recipient, action, pageURL string, data WebhookData) (*domain.IntentEvent, error) {
	campaign, err := s.directory.FindCampaign(ctx, rcpt.CampaignID, rcpt.TenantID)
	if err != nil {
		return nil, fmt.Errorf("resolve campaign: %w", err)
	}

	now := s.now().UTC()
	idempotencyKey := IdempotencyKey(campaign.ID, rcpt.ID, action, now)

	// Fast path for redeliveries inside the hour bucket. The unique
	// constraint behind InsertOrFetch closes the remaining race window.
	if existing, err := s.store.FindByIdempotencyKey(ctx, rcpt.TenantID, idempotencyKey); err == nil {
		if s.log != nil {
			s.log.IntentEventDuplicate(rcpt.TenantID, idempotencyKey)
		}
		return existing, nil
	}

	normalizedURL := urlnorm.Normalize(pageURL)
	pageCategory := urlnorm.PageCategory(pageURL)
	highValue := urlnorm.IsHighValuePage(pageURL)
	sessionID := sessionIDFor(campaign.ID, rcpt.ID, now)
	visitorID := visitorIDFor(campaign.ID, rcpt)
	referrer := data.Referrer
	if referrer == "" {
		referrer = "direct"
	}

	envMetadata := map[string]any{
		"campaign_id":   campaign.ID.String(),
		"campaign_name": campaign.Name,
		"campaign_type": campaign.Type,
		"recipient_id":  rcpt.ID.String(),
		"message_id":    rcpt.MessageID,
		"raw_webhook":   data.Raw,
		"source":        domain.SourceCampaignWebhook,
	}
	if highValue {
		envMetadata["high_value_page"] = true
	}
	// Behavioral flags ride in on the webhook payload.
	for _, flag := range []string{"return_visitor", "pages_viewed"} {
		if v, ok := data.Raw[flag]; ok {
			envMetadata[flag] = v
		}
	}

	envelope := domain.EventEnvelope{
		Action:          action,
		PageURL:         pageURL,
		Referrer:        referrer,
		UserAgent:       data.UserAgent,
		DurationSeconds: data.DurationSeconds,
		SessionID:       sessionID,
		VisitorID:       visitorID,
		Metadata:        envMetadata,
	}

	score := s.engine.ScoreFor(ctx, envelope, rcpt.TenantID)
	baseScore := s.engine.BaseScore(ctx, action, rcpt.TenantID)

	event := &domain.IntentEvent{
		TenantID:  rcpt.TenantID,
		EventType: domain.EventTypeCampaignAction,
		EventName: action,
		EventData: map[string]any{
			"action":              action,
			"page_url":            pageURL,
			"page_url_normalized": normalizedURL,
			"duration_seconds":    data.DurationSeconds,
			"metadata":            envMetadata,
			"session_id":          sessionID,
			"rc_vid":              visitorID,
			"referrer":            referrer,
			"idempotency_key":     idempotencyKey,
			"status":              "recorded",
		},
		IntentScore: score,
		Source:      domain.SourceCampaignWebhook,
		IPAddress:   data.IPAddress,
		UserAgent:   data.UserAgent,
		Metadata: map[string]any{
			"idempotency_key":     idempotencyKey,
			"status":              "recorded",
			"page_url_normalized": normalizedURL,
			"page_category":       pageCategory,
			"is_high_value_page":  highValue,
			"base_score":          baseScore,
		},
		CompanyID: rcpt.CompanyID,
		ContactID: rcpt.ContactID,
	}

	stored, created, err := s.store.InsertOrFetch(ctx, event, idempotencyKey, sessionID)
	if err != nil {
		return nil, fmt.Errorf("persist intent event: %w", err)
	}

	if created {
		if s.log != nil {
			s.log.IntentEventRecorded(rcpt.TenantID, action, stored.IntentScore, idempotencyKey)
		}
		if s.bus != nil {
			s.bus.Publish(ctx, events.IntentEventRecorded{
				BaseEvent:     events.NewBaseEvent(),
				IntentEventID: stored.ID,
				TenantID:      rcpt.TenantID,
				Action:        action,
				IntentScore:   stored.IntentScore,
				IntentLevel:   scoring.IntentLevel(stored.IntentScore),
				PageURL:       normalizedURL,
				CampaignID:    campaign.ID,
			})
		}
	} else if s.log != nil {
		s.log.IntentEventDuplicate(rcpt.TenantID, idempotencyKey)
	}

	return stored, nil
}

// IdempotencyKey builds the hour-bucketed dedup key for a campaign trigger.
func IdempotencyKey(campaignID, recipientID uuid.UUID, action string, at time.Time) string {
	return fmt.Sprintf("campaign_%s_%s_%s_%s", campaignID, recipientID, action, at.UTC().Format(idempotencyHourFormat))
}

// sessionIDFor derives a deterministic session identifier from the campaign,
// recipient, and hour bucket, so every trigger in the same window shares a
// session.
func sessionIDFor(campaignID, recipientID uuid.UUID, at time.Time) string {
	sum := sha256.Sum256([]byte(campaignID.String() + "|" + recipientID.String() + "|" + at.UTC().Format(idempotencyHourFormat)))
	return "sess_" + hex.EncodeToString(sum[:8])
}

// visitorIDFor builds the rc_vid visitor tag: campaign and contact prefixes
// plus a random suffix.
func visitorIDFor(campaignID uuid.UUID, rcpt campaigns.Recipient) string {
	subject := rcpt.ID
	if rcpt.ContactID != nil {
		subject = *rcpt.ContactID
	}

	suffix := make([]byte, 3)
	_, _ = rand.Read(suffix)
	return fmt.Sprintf("vid_%s_%s_%s", shortID(campaignID), shortID(subject), hex.EncodeToString(suffix))
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}
