// Package intent provides the buyer intent bounded context module: event
// capture, scoring, enrichment, and tenant score configuration.
package intent

import (
	"crm_intent_backend/internal/campaigns"
	"crm_intent_backend/internal/events"
	apphttp "crm_intent_backend/internal/http"
	"crm_intent_backend/internal/intent/enrichment"
	"crm_intent_backend/internal/intent/handler"
	"crm_intent_backend/internal/intent/repository"
	"crm_intent_backend/internal/intent/scoring"
	"crm_intent_backend/internal/intent/service"
	"crm_intent_backend/platform/cache"
	"crm_intent_backend/platform/config"
	"crm_intent_backend/platform/logger"
	"crm_intent_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the intent bounded context module implementing http.Module.
type Module struct {
	handler    *handler.Handler
	repo       *repository.Repository
	engine     *scoring.Engine
	service    *service.Service
	enrichment *enrichment.Service
}

// NewModule creates and initializes the intent module with all its
// dependencies. Scoring table overrides load from the configured path when
// one is set.
func NewModule(pool *pgxpool.Pool, c cache.Cache, cfg config.ScoringConfig, eventBus events.Bus, val *validator.Validator, log *logger.Logger) (*Module, error) {
	repo := repository.New(pool)

	tables := scoring.DefaultTables()
	if path := cfg.GetScoringTablesPath(); path != "" {
		loaded, err := scoring.LoadTables(path)
		if err != nil {
			return nil, err
		}
		tables = loaded
	}

	engine := scoring.NewEngine(repo, c, cfg.GetActionScoreCacheTTL(), tables, log)
	campaignRepo := campaigns.New(pool)
	svc := service.New(repo, campaignRepo, engine, eventBus, log)
	enrich := enrichment.New(repo, eventBus, log)
	h := handler.New(repo, c, val)

	return &Module{
		handler:    h,
		repo:       repo,
		engine:     engine,
		service:    svc,
		enrichment: enrich,
	}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "intent"
}

// Service exposes the event factory for the webhook module.
func (m *Module) Service() *service.Service {
	return m.service
}

// Enrichment exposes the enrichment service for the webhook module.
func (m *Module) Enrichment() *enrichment.Service {
	return m.enrichment
}

// Repository exposes event persistence for the scheduler and other modules.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts intent routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	protected := ctx.Protected.Group("/intent")
	protected.GET("/events", m.handler.HandleListEvents)

	admin := ctx.Admin.Group("/intent")
	admin.GET("/action-scores", m.handler.HandleListActionScores)
	admin.PUT("/action-scores", m.handler.HandleUpsertActionScore)
	admin.DELETE("/action-scores/:action", m.handler.HandleDeleteActionScore)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
