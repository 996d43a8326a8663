package webhook

import (
	"context"
	"fmt"

	"crm_intent_backend/internal/campaigns"
	"crm_intent_backend/internal/events"
	"crm_intent_backend/internal/intent/domain"
	"crm_intent_backend/internal/intent/enrichment"
	"crm_intent_backend/internal/intent/scoring"
	intentsvc "crm_intent_backend/internal/intent/service"
	lsdomain "crm_intent_backend/internal/leadscoring/domain"
	"crm_intent_backend/platform/apperr"
	"crm_intent_backend/platform/logger"

	"github.com/google/uuid"
)

// IntentConverter turns campaign triggers into stored intent events.
// Satisfied by the intent service.
type IntentConverter interface {
	ConvertEmailOpenToIntent(ctx context.Context, rcpt campaigns.Recipient, data intentsvc.WebhookData) *domain.IntentEvent
	ConvertEmailClickToIntent(ctx context.Context, rcpt campaigns.Recipient, data intentsvc.WebhookData) *domain.IntentEvent
	ConvertCampaignLandingToIntent(ctx context.Context, rcpt campaigns.Recipient, landingURL string, data intentsvc.WebhookData) *domain.IntentEvent
}

// Enricher merges form identity into recorded intent events.
// Satisfied by the enrichment service.
type Enricher interface {
	EnrichFromFormData(ctx context.Context, tenantID uuid.UUID, sessionID string, payload map[string]any) *domain.IntentEvent
}

// LeadScorer applies scoring rules to behavioral events.
// Satisfied by the lead scoring service.
type LeadScorer interface {
	ProcessEvent(ctx context.Context, ev lsdomain.Event) int
}

// ContactResolver finds contacts by email for form attribution.
// Satisfied by the lead scoring repository.
type ContactResolver interface {
	FindContactByEmail(ctx context.Context, tenantID uuid.UUID, email string) (lsdomain.Contact, error)
}

// RecipientDirectory resolves campaign recipients.
// Satisfied by the campaigns repository.
type RecipientDirectory interface {
	FindRecipient(ctx context.Context, recipientID, tenantID uuid.UUID) (campaigns.Recipient, error)
}

// Service orchestrates inbound webhook processing: campaign triggers into
// the intent pipeline, form submissions into enrichment and lead scoring.
type Service struct {
	recipients RecipientDirectory
	converter  IntentConverter
	enricher   Enricher
	scorer     LeadScorer
	contacts   ContactResolver
	bus        events.Bus
	log        *logger.Logger
}

// NewService creates the webhook service.
func NewService(recipients RecipientDirectory, converter IntentConverter, enricher Enricher, scorer LeadScorer, contacts ContactResolver, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		recipients: recipients,
		converter:  converter,
		enricher:   enricher,
		scorer:     scorer,
		contacts:   contacts,
		bus:        bus,
		log:        log,
	}
}

// CampaignTrigger is a parsed campaign webhook delivery.
type CampaignTrigger struct {
	Action          string
	RecipientID     uuid.UUID
	URL             string
	Referrer        string
	UserAgent       string
	IPAddress       string
	DurationSeconds int
	Raw             map[string]any
}

// TriggerResult reports what a campaign trigger produced.
type TriggerResult struct {
	IntentEventID  uuid.UUID `json:"intentEventId"`
	IntentScore    int       `json:"intentScore"`
	IntentLevel    string    `json:"intentLevel"`
	LeadScoreDelta int       `json:"leadScoreDelta"`
}

// ProcessCampaignTrigger resolves the recipient, records the intent event
// for the action, and feeds the action into lead scoring when the recipient
// maps to a known contact.
func (s *Service) ProcessCampaignTrigger(ctx context.Context, tenantID uuid.UUID, trigger CampaignTrigger) (TriggerResult, error) {
	rcpt, err := s.recipients.FindRecipient(ctx, trigger.RecipientID, tenantID)
	if err != nil {
		return TriggerResult{}, apperr.NotFound("recipient not found").WithOp("webhook.ProcessCampaignTrigger")
	}

	data := intentsvc.WebhookData{
		URL:             trigger.URL,
		Referrer:        trigger.Referrer,
		UserAgent:       trigger.UserAgent,
		IPAddress:       trigger.IPAddress,
		DurationSeconds: trigger.DurationSeconds,
		Raw:             trigger.Raw,
	}

	var event *domain.IntentEvent
	switch trigger.Action {
	case domain.ActionEmailOpen:
		event = s.converter.ConvertEmailOpenToIntent(ctx, rcpt, data)
	case domain.ActionEmailClick:
		event = s.converter.ConvertEmailClickToIntent(ctx, rcpt, data)
	case domain.ActionCampaignView:
		event = s.converter.ConvertCampaignLandingToIntent(ctx, rcpt, trigger.URL, data)
	default:
		return TriggerResult{}, apperr.BadRequest(fmt.Sprintf("unsupported action %q", trigger.Action)).WithOp("webhook.ProcessCampaignTrigger")
	}
	if event == nil {
		return TriggerResult{}, apperr.Internal("intent event could not be recorded").WithOp("webhook.ProcessCampaignTrigger")
	}

	result := TriggerResult{
		IntentEventID: event.ID,
		IntentScore:   event.IntentScore,
		IntentLevel:   scoring.IntentLevel(event.IntentScore),
	}

	if rcpt.ContactID != nil {
		result.LeadScoreDelta = s.scorer.ProcessEvent(ctx, lsdomain.Event{
			TenantID:  tenantID,
			ContactID: *rcpt.ContactID,
			Type:      trigger.Action,
			Fields: map[string]any{
				"campaign_id": rcpt.CampaignID.String(),
				"page_url":    trigger.URL,
				"referrer":    trigger.Referrer,
			},
		})
	}

	return result, nil
}

// FormSubmission is a parsed inbound form capture.
type FormSubmission struct {
	SessionID    string
	SourceDomain string
	Fields       map[string]any
	Raw          []byte
}

// FormResult reports what a form submission produced.
type FormResult struct {
	Status         string    `json:"status"`
	IntentEventID  uuid.UUID `json:"intentEventId,omitempty"`
	IntentScore    int       `json:"intentScore,omitempty"`
	LeadScoreDelta int       `json:"leadScoreDelta"`
}

// ProcessFormSubmission archives the raw payload, enriches the session's
// intent event with the submitted identity, and scores the submission
// against the tenant's rules when the email maps to a known contact.
func (s *Service) ProcessFormSubmission(ctx context.Context, tenantID uuid.UUID, sub FormSubmission) (FormResult, error) {
	if s.bus != nil {
		s.bus.Publish(ctx, events.WebhookFormReceived{
			BaseEvent:    events.NewBaseEvent(),
			TenantID:     tenantID,
			SourceDomain: sub.SourceDomain,
			RawPayload:   sub.Raw,
		})
	}

	result := FormResult{Status: "received"}

	if sub.SessionID != "" {
		if enriched := s.enricher.EnrichFromFormData(ctx, tenantID, sub.SessionID, sub.Fields); enriched != nil {
			result.Status = "enriched"
			result.IntentEventID = enriched.ID
			result.IntentScore = enriched.IntentScore
		}
	}

	info := enrichment.ExtractContactInfo(sub.Fields)
	if !info.HasContactInfo() {
		return result, nil
	}

	contact, err := s.contacts.FindContactByEmail(ctx, tenantID, info.Email)
	if err != nil {
		// Unknown visitors still count as received; attribution needs an
		// existing contact.
		return result, nil
	}

	result.LeadScoreDelta = s.scorer.ProcessEvent(ctx, lsdomain.Event{
		TenantID:  tenantID,
		ContactID: contact.ID,
		Type:      lsdomain.EventFormSubmission,
		Fields: map[string]any{
			"email":         info.Email,
			"source_domain": sub.SourceDomain,
			"session_id":    sub.SessionID,
		},
	})

	return result, nil
}
