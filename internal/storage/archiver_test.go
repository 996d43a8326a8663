package storage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"crm_intent_backend/internal/events"
	"crm_intent_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeObjectStore struct {
	bucket string
	key    string
	data   []byte
	err    error
}

func (f *fakeObjectStore) PutObject(_ context.Context, bucket, key string, data []byte, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.bucket = bucket
	f.key = key
	f.data = data
	return nil
}

func TestArchiverStoresPayload(t *testing.T) {
	store := &fakeObjectStore{}
	archiver := NewArchiver(store, "webhook-archive", logger.New("development"))

	tenantID := uuid.New()
	err := archiver.Handle(context.Background(), events.WebhookFormReceived{
		BaseEvent:  events.NewBaseEvent(),
		TenantID:   tenantID,
		RawPayload: []byte(`{"email":"x@example.com"}`),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.bucket != "webhook-archive" {
		t.Fatalf("expected bucket webhook-archive, got %q", store.bucket)
	}
	if !strings.HasPrefix(store.key, tenantID.String()+"/") || !strings.HasSuffix(store.key, ".json") {
		t.Fatalf("unexpected archive key %q", store.key)
	}
	if string(store.data) != `{"email":"x@example.com"}` {
		t.Fatalf("unexpected payload %q", store.data)
	}
}

func TestArchiverPropagatesStoreError(t *testing.T) {
	store := &fakeObjectStore{err: errors.New("bucket gone")}
	archiver := NewArchiver(store, "webhook-archive", logger.New("development"))

	err := archiver.Handle(context.Background(), events.WebhookFormReceived{
		BaseEvent: events.NewBaseEvent(),
		TenantID:  uuid.New(),
	})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestArchiverIgnoresOtherEvents(t *testing.T) {
	store := &fakeObjectStore{}
	archiver := NewArchiver(store, "webhook-archive", logger.New("development"))

	err := archiver.Handle(context.Background(), events.LeadScoreChanged{BaseEvent: events.NewBaseEvent()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.key != "" {
		t.Fatal("expected no write for unrelated event")
	}
}
