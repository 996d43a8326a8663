// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"crm_intent_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

// Re-export platform functions
var (
	NewBaseEvent   = events.NewBaseEvent
	NewInMemoryBus = events.NewInMemoryBus
)

// =============================================================================
// Intent Domain Events
// =============================================================================

// IntentEventRecorded is published when a new intent event is persisted.
// Duplicate webhook deliveries that dedupe against an existing event do not
// publish this.
type IntentEventRecorded struct {
	BaseEvent
	IntentEventID uuid.UUID `json:"intentEventId"`
	TenantID      uuid.UUID `json:"tenantId"`
	Action        string    `json:"action"`
	IntentScore   int       `json:"intentScore"`
	IntentLevel   string    `json:"intentLevel"`
	PageURL       string    `json:"pageUrl"`
	CampaignID    uuid.UUID `json:"campaignId"`
}

func (e IntentEventRecorded) EventName() string { return "intent.event.recorded" }

// IntentEventEnriched is published when visitor identity extracted from a
// form submission is merged into an intent event's metadata.
type IntentEventEnriched struct {
	BaseEvent
	IntentEventID uuid.UUID `json:"intentEventId"`
	TenantID      uuid.UUID `json:"tenantId"`
	VisitorEmail  string    `json:"visitorEmail"`
	NewScore      int       `json:"newScore"`
}

func (e IntentEventEnriched) EventName() string { return "intent.event.enriched" }

// =============================================================================
// Lead Scoring Domain Events
// =============================================================================

// LeadScoreChanged is published after rule evaluation applies a nonzero
// delta to a contact's cumulative lead score.
type LeadScoreChanged struct {
	BaseEvent
	ContactID    uuid.UUID `json:"contactId"`
	TenantID     uuid.UUID `json:"tenantId"`
	Delta        int       `json:"delta"`
	NewScore     int       `json:"newScore"`
	RulesApplied []string  `json:"rulesApplied"`
}

func (e LeadScoreChanged) EventName() string { return "leadscoring.score.changed" }

// =============================================================================
// Webhook Domain Events
// =============================================================================

// WebhookFormReceived is published for every accepted form submission,
// before extraction or scoring runs. Subscribers use it for raw payload
// archival.
type WebhookFormReceived struct {
	BaseEvent
	TenantID     uuid.UUID `json:"tenantId"`
	SourceDomain string    `json:"sourceDomain"`
	RawPayload   []byte    `json:"rawPayload"`
}

func (e WebhookFormReceived) EventName() string { return "webhook.form.received" }
