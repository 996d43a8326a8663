// Package repository provides data access for lead scoring rules and
// contact scores.
package repository

import (
	"context"
	"errors"

	"crm_intent_backend/internal/leadscoring/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrRuleNotFound    = errors.New("lead scoring rule not found")
	ErrContactNotFound = errors.New("contact not found")
)

const ruleColumns = `id, tenant_id, name, priority, points, is_active, condition, created_at, updated_at`

// Repository provides persistence for lead scoring.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new lead scoring repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ---- Rules ----

// ListActiveRules returns the tenant's active rules ordered by priority.
func (r *Repository) ListActiveRules(ctx context.Context, tenantID uuid.UUID) ([]domain.Rule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+ruleColumns+`
		FROM lead_scoring_rules
		WHERE tenant_id = $1 AND is_active = true
		ORDER BY priority ASC, created_at ASC
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRules(rows)
}

// ListRules returns all of the tenant's rules, active or not.
func (r *Repository) ListRules(ctx context.Context, tenantID uuid.UUID) ([]domain.Rule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+ruleColumns+`
		FROM lead_scoring_rules
		WHERE tenant_id = $1
		ORDER BY priority ASC, created_at ASC
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRules(rows)
}

// GetRule returns a single rule scoped to the tenant.
func (r *Repository) GetRule(ctx context.Context, tenantID, ruleID uuid.UUID) (domain.Rule, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+ruleColumns+`
		FROM lead_scoring_rules
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, ruleID)
	return scanRule(row)
}

// CreateRule inserts a new rule and returns it with generated fields.
func (r *Repository) CreateRule(ctx context.Context, rule domain.Rule) (domain.Rule, error) {
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO lead_scoring_rules (id, tenant_id, name, priority, points, is_active, condition)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+ruleColumns+`
	`, rule.ID, rule.TenantID, rule.Name, rule.Priority, rule.Points, rule.IsActive, rule.Condition)
	return scanRule(row)
}

// UpdateRule replaces a rule's mutable fields.
func (r *Repository) UpdateRule(ctx context.Context, rule domain.Rule) (domain.Rule, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE lead_scoring_rules
		SET name = $3, priority = $4, points = $5, is_active = $6, condition = $7, updated_at = now()
		WHERE tenant_id = $1 AND id = $2
		RETURNING `+ruleColumns+`
	`, rule.TenantID, rule.ID, rule.Name, rule.Priority, rule.Points, rule.IsActive, rule.Condition)
	return scanRule(row)
}

// DeleteRule removes a rule scoped to the tenant.
func (r *Repository) DeleteRule(ctx context.Context, tenantID, ruleID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM lead_scoring_rules
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, ruleID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRuleNotFound
	}
	return nil
}

// ---- Contacts ----

const contactColumns = `id, tenant_id, COALESCE(email, ''), COALESCE(phone, ''), COALESCE(company, ''), COALESCE(source, ''), lead_score, created_at`

// GetContact returns a contact scoped to the tenant.
func (r *Repository) GetContact(ctx context.Context, tenantID, contactID uuid.UUID) (domain.Contact, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+contactColumns+`
		FROM contacts
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, contactID)
	return scanContact(row)
}

// FindContactByEmail resolves a contact by email, case-insensitive.
func (r *Repository) FindContactByEmail(ctx context.Context, tenantID uuid.UUID, email string) (domain.Contact, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+contactColumns+`
		FROM contacts
		WHERE tenant_id = $1 AND lower(email) = lower($2)
		ORDER BY created_at ASC
		LIMIT 1
	`, tenantID, email)
	return scanContact(row)
}

// ApplyScoreDelta atomically adds delta to the contact's lead score and
// returns the new value. The increment happens in SQL so concurrent events
// never lose updates.
func (r *Repository) ApplyScoreDelta(ctx context.Context, tenantID, contactID uuid.UUID, delta int) (int, error) {
	var newScore int
	err := r.pool.QueryRow(ctx, `
		UPDATE contacts
		SET lead_score = lead_score + $3, lead_score_updated_at = now(), updated_at = now()
		WHERE tenant_id = $1 AND id = $2
		RETURNING lead_score
	`, tenantID, contactID, delta).Scan(&newScore)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrContactNotFound
	}
	return newScore, err
}

// ResetScore sets the contact's lead score back to zero.
func (r *Repository) ResetScore(ctx context.Context, tenantID, contactID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE contacts
		SET lead_score = 0, lead_score_updated_at = now(), updated_at = now()
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, contactID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrContactNotFound
	}
	return nil
}

// ListContactIDs returns every contact ID for the tenant. Used by the
// nightly recalculation job.
func (r *Repository) ListContactIDs(ctx context.Context, tenantID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id FROM contacts WHERE tenant_id = $1 ORDER BY created_at ASC
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListTenantIDs returns every tenant that has contacts. Used by the nightly
// recalculation job.
func (r *Repository) ListTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT tenant_id FROM contacts ORDER BY tenant_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ---- scanning ----

func scanRule(row pgx.Row) (domain.Rule, error) {
	var rule domain.Rule
	err := row.Scan(
		&rule.ID, &rule.TenantID, &rule.Name, &rule.Priority, &rule.Points,
		&rule.IsActive, &rule.Condition, &rule.CreatedAt, &rule.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Rule{}, ErrRuleNotFound
	}
	return rule, err
}

func scanRules(rows pgx.Rows) ([]domain.Rule, error) {
	var rules []domain.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func scanContact(row pgx.Row) (domain.Contact, error) {
	var c domain.Contact
	err := row.Scan(
		&c.ID, &c.TenantID, &c.Email, &c.Phone, &c.Company, &c.Source,
		&c.LeadScore, &c.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Contact{}, ErrContactNotFound
	}
	return c, err
}
