package enrichment

import (
	"context"
	"errors"
	"testing"
	"time"

	"crm_intent_backend/internal/intent/domain"
	"crm_intent_backend/platform/logger"

	"github.com/google/uuid"
)

func TestExtractContactInfoAliases(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]any
		want    ContactInfo
	}{
		{
			name: "standard fields",
			payload: map[string]any{
				"email":      "Jane@Example.com",
				"first_name": "Jane",
				"last_name":  "Doe",
				"company":    "Acme",
			},
			want: ContactInfo{Email: "jane@example.com", FirstName: "Jane", LastName: "Doe", Company: "Acme"},
		},
		{
			name: "dashed and spaced keys",
			payload: map[string]any{
				"E-Mail":     "bob@example.com",
				"First Name": "Bob",
				"Last-Name":  "Stone",
			},
			want: ContactInfo{Email: "bob@example.com", FirstName: "Bob", LastName: "Stone"},
		},
		{
			name: "email address alias",
			payload: map[string]any{
				"email_address": "carol@example.com",
			},
			want: ContactInfo{Email: "carol@example.com"},
		},
		{
			name: "full name splits on first space",
			payload: map[string]any{
				"email": "ann@example.com",
				"name":  "Ann van der Berg",
			},
			want: ContactInfo{Email: "ann@example.com", FirstName: "Ann", LastName: "van der Berg"},
		},
		{
			name: "full name in first-name field",
			payload: map[string]any{
				"email":      "jane@example.com",
				"first_name": "Jane Doe",
			},
			want: ContactInfo{Email: "jane@example.com", FirstName: "Jane", LastName: "Doe"},
		},
		{
			name: "single word name",
			payload: map[string]any{
				"email":     "x@example.com",
				"full_name": "Cher",
			},
			want: ContactInfo{Email: "x@example.com", FirstName: "Cher"},
		},
		{
			name: "explicit parts beat combined name",
			payload: map[string]any{
				"email":      "d@example.com",
				"name":       "Wrong Person",
				"first_name": "Dana",
			},
			want: ContactInfo{Email: "d@example.com", FirstName: "Dana"},
		},
		{
			name: "nested data object",
			payload: map[string]any{
				"form_id": "f-9",
				"data": map[string]any{
					"email":   "nested@example.com",
					"company": "Globex",
				},
			},
			want: ContactInfo{Email: "nested@example.com", Company: "Globex"},
		},
		{
			name: "top level wins over nested",
			payload: map[string]any{
				"email": "top@example.com",
				"data": map[string]any{
					"email": "nested@example.com",
				},
			},
			want: ContactInfo{Email: "top@example.com"},
		},
		{
			name:    "empty payload",
			payload: map[string]any{},
			want:    ContactInfo{},
		},
		{
			name: "non-string values ignored",
			payload: map[string]any{
				"email": 42,
				"phone": []string{"555"},
			},
			want: ContactInfo{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractContactInfo(tt.payload)
			if got != tt.want {
				t.Fatalf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestExtractContactInfoNormalizesPhone(t *testing.T) {
	got := ExtractContactInfo(map[string]any{
		"email": "p@example.com",
		"phone": "(415) 555-2671",
	})
	if got.Phone != "+14155552671" {
		t.Fatalf("expected E.164 phone, got %q", got.Phone)
	}
}

func TestHasContactInfoRequiresEmail(t *testing.T) {
	if (ContactInfo{FirstName: "Jane", Phone: "+15551234567"}).HasContactInfo() {
		t.Fatal("expected false without email")
	}
	if !(ContactInfo{Email: "jane@example.com"}).HasContactInfo() {
		t.Fatal("expected true with email")
	}
}

type fakeEventStore struct {
	event     *domain.IntentEvent
	findErr   error
	updateErr error

	updatedScore    int
	updatedMetadata map[string]any
}

func (f *fakeEventStore) FindLatestBySession(_ context.Context, _ uuid.UUID, _ string) (*domain.IntentEvent, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.event, nil
}

func (f *fakeEventStore) UpdateEnrichment(_ context.Context, _, _ uuid.UUID, score int, metadata map[string]any) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updatedScore = score
	f.updatedMetadata = metadata
	return nil
}

func sessionEvent(score int) *domain.IntentEvent {
	return &domain.IntentEvent{
		ID:          uuid.New(),
		TenantID:    uuid.New(),
		IntentScore: score,
		Metadata:    map[string]any{"status": "recorded", "page_category": "pricing"},
	}
}

func TestEnrichFromFormDataBoostsScore(t *testing.T) {
	store := &fakeEventStore{event: sessionEvent(55)}
	svc := New(store, nil, logger.New("development"))
	at := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	svc.SetClock(func() time.Time { return at })

	payload := map[string]any{"email": "jane@example.com", "name": "Jane Doe"}
	got := svc.EnrichFromFormData(context.Background(), store.event.TenantID, "sess_abc", payload)
	if got == nil {
		t.Fatal("expected enriched event")
	}
	if store.updatedScore != 75 {
		t.Fatalf("expected score 75, got %d", store.updatedScore)
	}
	if store.updatedMetadata["status"] != "enriched" {
		t.Fatalf("expected status enriched, got %v", store.updatedMetadata["status"])
	}
	if store.updatedMetadata["visitor_enriched"] != true {
		t.Fatal("expected visitor_enriched flag")
	}
	if store.updatedMetadata["enriched_at"] != "2026-03-14T09:30:00Z" {
		t.Fatalf("unexpected enriched_at %v", store.updatedMetadata["enriched_at"])
	}
	if store.updatedMetadata["page_category"] != "pricing" {
		t.Fatal("expected existing metadata preserved")
	}
	visitor, ok := store.updatedMetadata["visitor_data"].(map[string]any)
	if !ok {
		t.Fatal("expected visitor_data metadata")
	}
	if visitor["email"] != "jane@example.com" || visitor["full_name"] != "Jane Doe" {
		t.Fatalf("unexpected visitor data %+v", visitor)
	}
	if visitor["captured_at"] != "2026-03-14T09:30:00Z" {
		t.Fatalf("unexpected captured_at %v", visitor["captured_at"])
	}
	raw, ok := visitor["raw_form_data"].(map[string]any)
	if !ok || raw["name"] != "Jane Doe" {
		t.Fatalf("expected raw form payload on visitor data, got %v", visitor["raw_form_data"])
	}
}

func TestEnrichFromFormDataCapsAt100(t *testing.T) {
	store := &fakeEventStore{event: sessionEvent(92)}
	svc := New(store, nil, logger.New("development"))

	got := svc.EnrichFromFormData(context.Background(), store.event.TenantID, "sess_abc", map[string]any{"email": "x@example.com"})
	if got == nil {
		t.Fatal("expected enriched event")
	}
	if store.updatedScore != 100 {
		t.Fatalf("expected score capped at 100, got %d", store.updatedScore)
	}
}

func TestEnrichFromFormDataNoIdentity(t *testing.T) {
	store := &fakeEventStore{event: sessionEvent(50)}
	svc := New(store, nil, logger.New("development"))

	got := svc.EnrichFromFormData(context.Background(), store.event.TenantID, "sess_abc", map[string]any{"comment": "nice site"})
	if got != nil {
		t.Fatalf("expected nil without identity, got %+v", got)
	}
	if store.updatedMetadata != nil {
		t.Fatal("expected no update without identity")
	}
}

func TestEnrichFromFormDataNeverFails(t *testing.T) {
	t.Run("session lookup error", func(t *testing.T) {
		store := &fakeEventStore{findErr: errors.New("no rows")}
		svc := New(store, nil, logger.New("development"))

		if got := svc.EnrichFromFormData(context.Background(), uuid.New(), "sess_abc", map[string]any{"email": "x@example.com"}); got != nil {
			t.Fatalf("expected nil on lookup failure, got %+v", got)
		}
	})

	t.Run("update error", func(t *testing.T) {
		store := &fakeEventStore{event: sessionEvent(40), updateErr: errors.New("write failed")}
		svc := New(store, nil, logger.New("development"))

		if got := svc.EnrichFromFormData(context.Background(), uuid.New(), "sess_abc", map[string]any{"email": "x@example.com"}); got != nil {
			t.Fatalf("expected nil on update failure, got %+v", got)
		}
	})
}
