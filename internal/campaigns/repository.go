// Package campaigns exposes read-only access to the campaign subsystem:
// recipient and campaign lookups consumed by the intent pipeline. Campaign
// management itself lives outside this service.
package campaigns

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrRecipientNotFound = errors.New("campaign recipient not found")
	ErrCampaignNotFound  = errors.New("campaign not found")
)

// Campaign is the parent campaign of a recipient.
type Campaign struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	Name     string
	Type     string
}

// Recipient is an addressee of a campaign, optionally linked to a CRM
// contact and company.
type Recipient struct {
	ID         uuid.UUID
	CampaignID uuid.UUID
	TenantID   uuid.UUID
	ContactID  *uuid.UUID
	CompanyID  *uuid.UUID
	MessageID  string
	Email      string
}

// Repository provides recipient and campaign lookups.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new campaigns repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// FindRecipient resolves a recipient under the given tenant.
func (r *Repository) FindRecipient(ctx context.Context, recipientID, tenantID uuid.UUID) (Recipient, error) {
	var rcpt Recipient
	err := r.pool.QueryRow(ctx, `
		SELECT id, campaign_id, tenant_id, contact_id, company_id, message_id, email
		FROM campaign_recipients
		WHERE id = $1 AND tenant_id = $2
	`, recipientID, tenantID).Scan(
		&rcpt.ID, &rcpt.CampaignID, &rcpt.TenantID, &rcpt.ContactID,
		&rcpt.CompanyID, &rcpt.MessageID, &rcpt.Email,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Recipient{}, ErrRecipientNotFound
	}
	return rcpt, err
}

// FindCampaign resolves a campaign under the given tenant.
func (r *Repository) FindCampaign(ctx context.Context, campaignID, tenantID uuid.UUID) (Campaign, error) {
	var c Campaign
	err := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, name, type
		FROM campaigns
		WHERE id = $1 AND tenant_id = $2
	`, campaignID, tenantID).Scan(&c.ID, &c.TenantID, &c.Name, &c.Type)
	if errors.Is(err, pgx.ErrNoRows) {
		return Campaign{}, ErrCampaignNotFound
	}
	return c, err
}
