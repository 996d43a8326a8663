// Package repository provides data access for intent events and tenant
// action-score overrides.
package repository

import (
	"context"
	"errors"
	"time"

	"crm_intent_backend/internal/intent/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrEventNotFound       = errors.New("intent event not found")
	ErrActionScoreNotFound = errors.New("action score override not found")
)

const eventColumns = `
	id, tenant_id, event_type, event_name, event_data, intent_score,
	source, ip_address, user_agent, metadata, company_id, contact_id,
	created_at, updated_at`

// Repository provides persistence for the intent pipeline.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new intent repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// FindByIdempotencyKey returns the event stored under the given dedup key.
func (r *Repository) FindByIdempotencyKey(ctx context.Context, tenantID uuid.UUID, key string) (*domain.IntentEvent, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+eventColumns+`
		FROM intent_events
		WHERE tenant_id = $1 AND idempotency_key = $2
	`, tenantID, key)
	return scanEvent(row)
}

// InsertOrFetch persists a new intent event. When another request already
// stored an event under the same (tenant_id, idempotency_key) the unique
// constraint turns the race into a fetch: the existing event is returned and
// created is false.
func (r *Repository) InsertOrFetch(ctx context.Context, event *domain.IntentEvent, idempotencyKey, sessionID string) (*domain.IntentEvent, bool, error) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO intent_events (
			id, tenant_id, event_type, event_name, event_data, intent_score,
			source, ip_address, user_agent, metadata, company_id, contact_id,
			idempotency_key, session_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (tenant_id, idempotency_key) DO NOTHING
		RETURNING `+eventColumns+`
	`, event.ID, event.TenantID, event.EventType, event.EventName, event.EventData,
		event.IntentScore, event.Source, event.IPAddress, event.UserAgent,
		event.Metadata, event.CompanyID, event.ContactID, idempotencyKey, sessionID)

	stored, err := scanEvent(row)
	if err == nil {
		return stored, true, nil
	}
	if !errors.Is(err, ErrEventNotFound) {
		return nil, false, err
	}

	// Conflict: a concurrent delivery won the insert. Fetch theirs.
	existing, err := r.FindByIdempotencyKey(ctx, event.TenantID, idempotencyKey)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// UpdateEnrichment applies the only post-creation mutation an intent event
// supports: the enrichment score bump and the visitor metadata merge.
func (r *Repository) UpdateEnrichment(ctx context.Context, tenantID, eventID uuid.UUID, score int, metadata map[string]any) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE intent_events
		SET intent_score = $1, metadata = $2, updated_at = now()
		WHERE id = $3 AND tenant_id = $4
	`, score, metadata, eventID, tenantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEventNotFound
	}
	return nil
}

// FindLatestBySession returns the most recent event recorded for a visitor
// session, used to link form submissions back to the landing event.
func (r *Repository) FindLatestBySession(ctx context.Context, tenantID uuid.UUID, sessionID string) (*domain.IntentEvent, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+eventColumns+`
		FROM intent_events
		WHERE tenant_id = $1 AND session_id = $2
		ORDER BY created_at DESC
		LIMIT 1
	`, tenantID, sessionID)
	return scanEvent(row)
}

// List returns recent events for a tenant, newest first.
func (r *Repository) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]domain.IntentEvent, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+eventColumns+`
		FROM intent_events
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.IntentEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *event)
	}
	return events, rows.Err()
}

func scanEvent(row pgx.Row) (*domain.IntentEvent, error) {
	var event domain.IntentEvent
	err := row.Scan(
		&event.ID, &event.TenantID, &event.EventType, &event.EventName,
		&event.EventData, &event.IntentScore, &event.Source, &event.IPAddress,
		&event.UserAgent, &event.Metadata, &event.CompanyID, &event.ContactID,
		&event.CreatedAt, &event.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// =============================================================================
// Tenant action-score overrides
// =============================================================================

// ActionScore is a tenant override for an action's base score.
type ActionScore struct {
	TenantID  uuid.UUID
	Action    string
	Score     int
	UpdatedAt time.Time
}

// GetActionScore implements scoring.ActionScoreStore.
func (r *Repository) GetActionScore(ctx context.Context, tenantID uuid.UUID, action string) (int, bool, error) {
	var score int
	err := r.pool.QueryRow(ctx, `
		SELECT score_default FROM intent_action_scores
		WHERE tenant_id = $1 AND action = $2
	`, tenantID, action).Scan(&score)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return score, true, nil
}

// UpsertActionScore creates or replaces a tenant's base score override.
func (r *Repository) UpsertActionScore(ctx context.Context, tenantID uuid.UUID, action string, score int) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO intent_action_scores (tenant_id, action, score_default)
		VALUES ($1, $2, $3)
		ON CONFLICT (tenant_id, action)
		DO UPDATE SET score_default = EXCLUDED.score_default, updated_at = now()
	`, tenantID, action, score)
	return err
}

// DeleteActionScore removes a tenant's override so the default applies again.
func (r *Repository) DeleteActionScore(ctx context.Context, tenantID uuid.UUID, action string) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM intent_action_scores WHERE tenant_id = $1 AND action = $2
	`, tenantID, action)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrActionScoreNotFound
	}
	return nil
}

// ListActionScores returns all overrides for a tenant.
func (r *Repository) ListActionScores(ctx context.Context, tenantID uuid.UUID) ([]ActionScore, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT tenant_id, action, score_default, updated_at
		FROM intent_action_scores
		WHERE tenant_id = $1
		ORDER BY action
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scores []ActionScore
	for rows.Next() {
		var s ActionScore
		if err := rows.Scan(&s.TenantID, &s.Action, &s.Score, &s.UpdatedAt); err != nil {
			return nil, err
		}
		scores = append(scores, s)
	}
	return scores, rows.Err()
}
