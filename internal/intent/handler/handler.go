// Package handler exposes intent event listing and tenant action-score
// configuration over HTTP.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"crm_intent_backend/internal/intent/repository"
	"crm_intent_backend/internal/intent/scoring"
	"crm_intent_backend/platform/cache"
	"crm_intent_backend/platform/httpkit"
	"crm_intent_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler handles intent HTTP requests.
type Handler struct {
	repo  *repository.Repository
	cache cache.Cache
	val   *validator.Validator
}

// New creates a new intent handler.
func New(repo *repository.Repository, c cache.Cache, val *validator.Validator) *Handler {
	return &Handler{repo: repo, cache: c, val: val}
}

// EventResponse is the listing projection of a stored intent event.
type EventResponse struct {
	ID          uuid.UUID      `json:"id"`
	EventName   string         `json:"eventName"`
	IntentScore int            `json:"intentScore"`
	IntentLevel string         `json:"intentLevel"`
	LevelLabel  string         `json:"levelLabel"`
	Source      string         `json:"source"`
	Metadata    map[string]any `json:"metadata"`
	CreatedAt   string         `json:"createdAt"`
}

// HandleListEvents lists the tenant's intent events, newest first.
// GET /api/v1/intent/events?limit=&offset=
func (h *Handler) HandleListEvents(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	items, err := h.repo.List(c.Request.Context(), tenantID, limit, offset)
	if httpkit.HandleError(c, err) {
		return
	}

	out := make([]EventResponse, 0, len(items))
	for _, ev := range items {
		level := scoring.IntentLevel(ev.IntentScore)
		out = append(out, EventResponse{
			ID:          ev.ID,
			EventName:   ev.EventName,
			IntentScore: ev.IntentScore,
			IntentLevel: level,
			LevelLabel:  scoring.IntentLevelLabel(level),
			Source:      ev.Source,
			Metadata:    ev.Metadata,
			CreatedAt:   ev.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
	httpkit.OK(c, gin.H{"events": out})
}

// ActionScoreRequest configures a tenant's base score override.
type ActionScoreRequest struct {
	Action string `json:"action" validate:"required,min=1,max=60"`
	Score  int    `json:"score" validate:"min=0,max=100"`
}

// HandleListActionScores lists the tenant's base score overrides.
// GET /api/v1/admin/intent/action-scores
func (h *Handler) HandleListActionScores(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	scores, err := h.repo.ListActionScores(c.Request.Context(), tenantID)
	if httpkit.HandleError(c, err) {
		return
	}
	if scores == nil {
		scores = []repository.ActionScore{}
	}
	httpkit.OK(c, gin.H{"actionScores": scores})
}

// HandleUpsertActionScore sets a tenant's base score override for an action.
// PUT /api/v1/admin/intent/action-scores
func (h *Handler) HandleUpsertActionScore(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	var req ActionScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation error", err.Error())
		return
	}
	req.Action = strings.ToLower(strings.TrimSpace(req.Action))

	if err := h.repo.UpsertActionScore(c.Request.Context(), tenantID, req.Action, req.Score); httpkit.HandleError(c, err) {
		return
	}

	// Drop the cached value so the override takes effect immediately.
	_ = h.cache.Forget(c.Request.Context(), scoring.ActionScoreCacheKey(tenantID, req.Action))

	httpkit.OK(c, gin.H{"action": req.Action, "score": req.Score})
}

// HandleDeleteActionScore removes a tenant's override, restoring the default.
// DELETE /api/v1/admin/intent/action-scores/:action
func (h *Handler) HandleDeleteActionScore(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	action := strings.ToLower(strings.TrimSpace(c.Param("action")))
	if action == "" {
		httpkit.Error(c, http.StatusBadRequest, "missing action", nil)
		return
	}

	err := h.repo.DeleteActionScore(c.Request.Context(), tenantID, action)
	if errors.Is(err, repository.ErrActionScoreNotFound) {
		httpkit.Error(c, http.StatusNotFound, "no override for action", nil)
		return
	}
	if httpkit.HandleError(c, err) {
		return
	}

	_ = h.cache.Forget(c.Request.Context(), scoring.ActionScoreCacheKey(tenantID, action))

	c.Status(http.StatusNoContent)
}

func (h *Handler) tenantID(c *gin.Context) (uuid.UUID, bool) {
	tenantID, ok := httpkit.TenantID(c)
	if !ok {
		httpkit.Error(c, http.StatusUnauthorized, "no tenant context", nil)
		return uuid.Nil, false
	}
	return tenantID, true
}
