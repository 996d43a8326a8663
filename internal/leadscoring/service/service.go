// Package service evaluates scoring rules against behavioral events and
// maintains cumulative contact lead scores.
package service

import (
	"context"
	"fmt"

	"crm_intent_backend/internal/events"
	"crm_intent_backend/internal/leadscoring/domain"
	"crm_intent_backend/platform/logger"

	"github.com/google/uuid"
)

// Store is the persistence surface the scoring service needs.
// Satisfied by repository.Repository.
type Store interface {
	ListActiveRules(ctx context.Context, tenantID uuid.UUID) ([]domain.Rule, error)
	GetContact(ctx context.Context, tenantID, contactID uuid.UUID) (domain.Contact, error)
	ApplyScoreDelta(ctx context.Context, tenantID, contactID uuid.UUID, delta int) (int, error)
	ResetScore(ctx context.Context, tenantID, contactID uuid.UUID) error
}

// Service applies scoring rules to events and recalculates contact scores.
type Service struct {
	store Store
	bus   events.Bus
	log   *logger.Logger
}

// New creates the lead scoring service.
func New(store Store, bus events.Bus, log *logger.Logger) *Service {
	return &Service{store: store, bus: bus, log: log}
}

// ProcessEvent evaluates the tenant's active rules against the event and
// applies the resulting delta to the contact's cumulative score. Returns
// the delta applied, zero when nothing matched or on failure: scoring is
// best-effort and never blocks the action that produced the event.
func (s *Service) ProcessEvent(ctx context.Context, ev domain.Event) (delta int) {
	defer func() {
		if r := recover(); r != nil {
			if s.log != nil {
				s.log.Error("lead scoring panicked", "contact_id", ev.ContactID, "event_type", ev.Type, "panic", r)
			}
			delta = 0
		}
	}()

	delta, err := s.process(ctx, ev)
	if err != nil {
		if s.log != nil {
			s.log.Error("lead scoring failed", "contact_id", ev.ContactID, "event_type", ev.Type, "error", err)
		}
		return 0
	}
	return delta
}

func (s *Service) process(ctx context.Context, ev domain.Event) (int, error) {
	if ev.ContactID == uuid.Nil {
		return 0, nil
	}

	rules, err := s.store.ListActiveRules(ctx, ev.TenantID)
	if err != nil {
		return 0, fmt.Errorf("list rules: %w", err)
	}

	total, matched := Evaluate(rules, ev)
	if total == 0 {
		return 0, nil
	}

	newScore, err := s.store.ApplyScoreDelta(ctx, ev.TenantID, ev.ContactID, total)
	if err != nil {
		return 0, fmt.Errorf("apply delta: %w", err)
	}

	names := make([]string, len(matched))
	for i, rule := range matched {
		names[i] = rule.Name
	}

	if s.log != nil {
		s.log.LeadScoreApplied(ev.TenantID, ev.ContactID, total, len(matched))
	}
	if s.bus != nil {
		s.bus.Publish(ctx, events.LeadScoreChanged{
			BaseEvent:    events.NewBaseEvent(),
			ContactID:    ev.ContactID,
			TenantID:     ev.TenantID,
			Delta:        total,
			NewScore:     newScore,
			RulesApplied: names,
		})
	}

	return total, nil
}

// RecalculateContactScore rebuilds a contact's score from scratch against
// the current rule set. Past events are not replayed; the score is derived
// from rules whose conditions the contact's present attributes satisfy.
func (s *Service) RecalculateContactScore(ctx context.Context, tenantID, contactID uuid.UUID) (int, []string, error) {
	contact, err := s.store.GetContact(ctx, tenantID, contactID)
	if err != nil {
		return 0, nil, fmt.Errorf("get contact: %w", err)
	}

	rules, err := s.store.ListActiveRules(ctx, tenantID)
	if err != nil {
		return 0, nil, fmt.Errorf("list rules: %w", err)
	}

	total := 0
	applied := []string{}
	for _, ev := range attributeEvents(contact) {
		delta, matched := Evaluate(rules, ev)
		total += delta
		for _, rule := range matched {
			applied = append(applied, rule.Name)
		}
	}

	if err := s.store.ResetScore(ctx, tenantID, contactID); err != nil {
		return 0, nil, fmt.Errorf("reset score: %w", err)
	}

	newScore := 0
	if total != 0 {
		newScore, err = s.store.ApplyScoreDelta(ctx, tenantID, contactID, total)
		if err != nil {
			return 0, nil, fmt.Errorf("apply recalculated score: %w", err)
		}
	}

	if s.log != nil {
		s.log.Info("lead_score_recalculated",
			"tenant_id", tenantID.String(),
			"contact_id", contactID.String(),
			"new_score", newScore,
			"rules_applied", len(applied),
		)
	}
	return newScore, applied, nil
}

// attributeEvents derives the events a contact's current attributes imply.
// A contact with an email has necessarily submitted identity, one with a
// phone number is reachable by phone, and every contact was created.
func attributeEvents(c domain.Contact) []domain.Event {
	fields := map[string]any{
		"email":   c.Email,
		"phone":   c.Phone,
		"company": c.Company,
		"source":  c.Source,
	}

	evs := []domain.Event{
		{TenantID: c.TenantID, ContactID: c.ID, Type: domain.EventContactCreated, Fields: fields},
	}
	if c.Email != "" {
		evs = append(evs, domain.Event{TenantID: c.TenantID, ContactID: c.ID, Type: domain.EventFormSubmission, Fields: fields})
	}
	if c.Phone != "" {
		evs = append(evs, domain.Event{TenantID: c.TenantID, ContactID: c.ID, Type: domain.EventPhoneCall, Fields: fields})
	}
	return evs
}
