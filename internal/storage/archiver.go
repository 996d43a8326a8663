package storage

import (
	"context"
	"fmt"
	"time"

	"crm_intent_backend/internal/events"
	"crm_intent_backend/platform/logger"

	"github.com/google/uuid"
)

// ObjectStore is the storage surface the archiver writes to.
// Satisfied by Service.
type ObjectStore interface {
	PutObject(ctx context.Context, bucket, key string, data []byte, contentType string) error
}

// Archiver persists raw webhook payloads to object storage as they arrive.
// It subscribes to the form-received event so ingestion never waits on
// storage.
type Archiver struct {
	store  ObjectStore
	bucket string
	log    *logger.Logger
}

// NewArchiver creates a payload archiver writing to the given bucket.
func NewArchiver(store ObjectStore, bucket string, log *logger.Logger) *Archiver {
	return &Archiver{store: store, bucket: bucket, log: log}
}

// Register subscribes the archiver to the event bus.
func (a *Archiver) Register(bus events.Bus) {
	bus.Subscribe(events.WebhookFormReceived{}.EventName(), events.HandlerFunc(a.Handle))
}

// Handle archives one form payload. The key is date-partitioned per tenant
// so payloads can be replayed or audited by day.
func (a *Archiver) Handle(ctx context.Context, event events.Event) error {
	received, ok := event.(events.WebhookFormReceived)
	if !ok {
		return nil
	}

	key := archiveKey(received.TenantID, received.OccurredAt())
	if err := a.store.PutObject(ctx, a.bucket, key, received.RawPayload, "application/json"); err != nil {
		a.log.Error("webhook payload archive failed", "tenant_id", received.TenantID, "key", key, "error", err)
		return err
	}

	a.log.Debug("webhook payload archived", "tenant_id", received.TenantID, "key", key)
	return nil
}

func archiveKey(tenantID uuid.UUID, at time.Time) string {
	return fmt.Sprintf("%s/%s/%s.json", tenantID, at.UTC().Format("2006/01/02"), uuid.New())
}
