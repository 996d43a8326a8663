// Package domain holds the core types of the buyer-intent pipeline.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Coarse event categories and fine-grained action names.
const (
	EventTypeCampaignAction = "campaign_action"

	ActionEmailOpen    = "email_open"
	ActionEmailClick   = "email_click"
	ActionCampaignView = "campaign_view"

	SourceCampaignWebhook = "campaign_webhook"
)

// EventEnvelope is the canonical event-data structure scored by the engine
// and persisted inside an IntentEvent.
type EventEnvelope struct {
	Action          string         `json:"action"`
	PageURL         string         `json:"page_url"`
	Referrer        string         `json:"referrer,omitempty"`
	UserAgent       string         `json:"user_agent,omitempty"`
	DurationSeconds int            `json:"duration_seconds,omitempty"`
	SessionID       string         `json:"session_id,omitempty"`
	VisitorID       string         `json:"rc_vid,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// Flag reports whether a truthy metadata flag is set on the envelope.
// Accepts bools and the string forms webhook payloads tend to carry.
func (e EventEnvelope) Flag(name string) bool {
	v, ok := e.Metadata[name]
	if !ok {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t == "true" || t == "1" || t == "yes"
	case float64:
		return t != 0
	case int:
		return t != 0
	}
	return false
}

// IntNamed returns a numeric metadata field as int, 0 when absent.
func (e EventEnvelope) IntNamed(name string) int {
	switch t := e.Metadata[name].(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	}
	return 0
}

// IntentEvent is a recorded behavioral signal with its computed score.
// Created once; only enrichment mutates it afterwards.
type IntentEvent struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	EventType   string
	EventName   string
	EventData   map[string]any
	IntentScore int
	Source      string
	IPAddress   string
	UserAgent   string
	Metadata    map[string]any
	CompanyID   *uuid.UUID
	ContactID   *uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IdempotencyKey returns the stored dedup key, empty when missing.
func (e *IntentEvent) IdempotencyKey() string {
	if e.Metadata == nil {
		return ""
	}
	key, _ := e.Metadata["idempotency_key"].(string)
	return key
}
