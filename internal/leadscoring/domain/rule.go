// Package domain defines the lead scoring bounded context's core types.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event types rules can match on.
const (
	EventFormSubmission = "form_submission"
	EventEmailOpen      = "email_open"
	EventEmailClick     = "email_click"
	EventCampaignView   = "campaign_view"
	EventPageView       = "page_view"
	EventPhoneCall      = "phone_call"
	EventContactCreated = "contact_created"
)

// Rule is a tenant-defined scoring rule. The condition is a flat object:
// "event" selects which events the rule applies to ("event_type" also
// works), every other key is an equality predicate on the event's fields.
// All predicates must hold.
type Rule struct {
	ID        uuid.UUID      `json:"id"`
	TenantID  uuid.UUID      `json:"tenantId"`
	Name      string         `json:"name"`
	Priority  int            `json:"priority"`
	Points    int            `json:"points"`
	IsActive  bool           `json:"isActive"`
	Condition map[string]any `json:"condition"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Contact is the read model lead scoring operates on.
type Contact struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenantId"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Company   string    `json:"company"`
	Source    string    `json:"source"`
	LeadScore int       `json:"leadScore"`
	CreatedAt time.Time `json:"createdAt"`
}

// Event is a behavioral occurrence evaluated against the scoring rules.
type Event struct {
	TenantID  uuid.UUID
	ContactID uuid.UUID
	Type      string
	Fields    map[string]any
}
