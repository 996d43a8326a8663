// Package leadscoring provides the lead scoring bounded context module:
// tenant-defined rules that turn behavioral events into cumulative contact
// scores.
package leadscoring

import (
	"crm_intent_backend/internal/events"
	apphttp "crm_intent_backend/internal/http"
	"crm_intent_backend/internal/leadscoring/handler"
	"crm_intent_backend/internal/leadscoring/repository"
	"crm_intent_backend/internal/leadscoring/service"
	"crm_intent_backend/platform/logger"
	"crm_intent_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the lead scoring bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates and initializes the lead scoring module.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, eventBus, log)
	h := handler.New(svc, repo, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leadscoring"
}

// Service exposes the scoring service for other modules (webhook ingestion)
// and the scheduler.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository exposes contact lookups for other modules.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts lead scoring routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	scores := ctx.Protected.Group("/lead-scoring")
	scores.GET("/contacts/:contactId/score", m.handler.HandleGetContactScore)

	admin := ctx.Admin.Group("/lead-scoring")
	admin.GET("/rules", m.handler.HandleListRules)
	admin.POST("/rules", m.handler.HandleCreateRule)
	admin.PUT("/rules/:ruleId", m.handler.HandleUpdateRule)
	admin.DELETE("/rules/:ruleId", m.handler.HandleDeleteRule)
	admin.POST("/contacts/:contactId/recalculate", m.handler.HandleRecalculateContact)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
