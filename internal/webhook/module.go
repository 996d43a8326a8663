// Package webhook provides the webhook capture bounded context module.
// This file defines the module that encapsulates all webhook setup and route
// registration.
package webhook

import (
	"crm_intent_backend/internal/events"
	apphttp "crm_intent_backend/internal/http"
	"crm_intent_backend/platform/logger"
	"crm_intent_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the webhook bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	repo    *Repository
}

// NewModule creates and initializes the webhook module with all its dependencies.
func NewModule(pool *pgxpool.Pool, recipients RecipientDirectory, converter IntentConverter, enricher Enricher, scorer LeadScorer, contacts ContactResolver, eventBus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := NewRepository(pool)
	service := NewService(recipients, converter, enricher, scorer, contacts, eventBus, log)
	handler := NewHandler(service, repo, val)

	return &Module{
		handler: handler,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "webhook"
}

// RegisterRoutes mounts webhook routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Public webhook endpoints (API key auth, no JWT)
	webhookGroup := ctx.V1.Group("/webhook")
	webhookGroup.Use(APIKeyAuthMiddleware(m.repo))
	webhookGroup.POST("/campaigns", m.handler.HandleCampaignTrigger)
	webhookGroup.POST("/forms", m.handler.HandleFormSubmission)

	// Admin API key management (JWT auth + admin role)
	adminGroup := ctx.Admin.Group("/webhook/keys")
	adminGroup.POST("", m.handler.HandleCreateAPIKey)
	adminGroup.GET("", m.handler.HandleListAPIKeys)
	adminGroup.DELETE("/:keyId", m.handler.HandleRevokeAPIKey)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
