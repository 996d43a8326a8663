package enrichment

import (
	"context"
	"fmt"
	"time"

	"crm_intent_backend/internal/events"
	"crm_intent_backend/internal/intent/domain"
	"crm_intent_backend/platform/logger"

	"github.com/google/uuid"
)

// identifiedVisitorBoost is added to an event's score once the visitor
// self-identifies through a form. Capped so enrichment cannot push a score
// past 100.
const identifiedVisitorBoost = 20

// EventStore is the persistence surface enrichment needs.
// Satisfied by repository.Repository.
type EventStore interface {
	FindLatestBySession(ctx context.Context, tenantID uuid.UUID, sessionID string) (*domain.IntentEvent, error)
	UpdateEnrichment(ctx context.Context, tenantID, eventID uuid.UUID, score int, metadata map[string]any) error
}

// Service merges extracted visitor identity into recorded intent events.
type Service struct {
	store EventStore
	bus   events.Bus
	log   *logger.Logger
	now   func() time.Time
}

// New creates the enrichment service.
func New(store EventStore, bus events.Bus, log *logger.Logger) *Service {
	return &Service{store: store, bus: bus, log: log, now: time.Now}
}

// SetClock overrides the service clock. Tests only.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// EnrichFromFormData attaches visitor identity from a form submission to the
// latest intent event in the submitting session, boosting its score.
// Returns the updated event, or nil when the payload carried no usable
// identity, no session event exists, or the update failed. Never panics.
func (s *Service) EnrichFromFormData(ctx context.Context, tenantID uuid.UUID, sessionID string, payload map[string]any) (event *domain.IntentEvent) {
	defer func() {
		if r := recover(); r != nil {
			if s.log != nil {
				s.log.Error("enrichment panicked", "tenant_id", tenantID, "session_id", sessionID, "panic", r)
			}
			event = nil
		}
	}()

	event, err := s.enrich(ctx, tenantID, sessionID, payload)
	if err != nil {
		if s.log != nil {
			s.log.Error("enrichment failed", "tenant_id", tenantID, "session_id", sessionID, "error", err)
		}
		return nil
	}
	return event
}

func (s *Service) enrich(ctx context.Context, tenantID uuid.UUID, sessionID string, payload map[string]any) (*domain.IntentEvent, error) {
	info := ExtractContactInfo(payload)
	if !info.HasContactInfo() {
		return nil, nil
	}

	target, err := s.store.FindLatestBySession(ctx, tenantID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("find session event: %w", err)
	}

	newScore := target.IntentScore + identifiedVisitorBoost
	if newScore > 100 {
		newScore = 100
	}

	visitor := map[string]any{"email": info.Email}
	if name := info.FullName(); name != "" {
		visitor["full_name"] = name
	}
	if info.FirstName != "" {
		visitor["first_name"] = info.FirstName
	}
	if info.LastName != "" {
		visitor["last_name"] = info.LastName
	}
	if info.Phone != "" {
		visitor["phone"] = info.Phone
	}
	if info.Company != "" {
		visitor["company"] = info.Company
	}
	enrichedAt := s.now().UTC().Format(time.RFC3339)
	visitor["captured_at"] = enrichedAt
	visitor["raw_form_data"] = payload

	metadata := make(map[string]any, len(target.Metadata)+4)
	for k, v := range target.Metadata {
		metadata[k] = v
	}
	metadata["visitor_data"] = visitor
	metadata["visitor_enriched"] = true
	metadata["enriched_at"] = enrichedAt
	metadata["status"] = "enriched"

	if err := s.store.UpdateEnrichment(ctx, tenantID, target.ID, newScore, metadata); err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}

	target.IntentScore = newScore
	target.Metadata = metadata

	if s.bus != nil {
		s.bus.Publish(ctx, events.IntentEventEnriched{
			BaseEvent:     events.NewBaseEvent(),
			IntentEventID: target.ID,
			TenantID:      tenantID,
			VisitorEmail:  info.Email,
			NewScore:      newScore,
		})
	}
	if s.log != nil {
		s.log.Info("intent_event_enriched",
			"tenant_id", tenantID.String(),
			"intent_event_id", target.ID.String(),
			"new_score", newScore,
		)
	}

	return target, nil
}
