// Package handler exposes lead scoring rule management and score operations
// over HTTP.
package handler

import (
	"errors"
	"net/http"

	"crm_intent_backend/internal/leadscoring/domain"
	"crm_intent_backend/internal/leadscoring/repository"
	"crm_intent_backend/internal/leadscoring/service"
	"crm_intent_backend/platform/httpkit"
	"crm_intent_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	errInvalidRequest = "invalid request body"
	errValidation     = "validation error"
	errInvalidID      = "invalid id"
)

// Handler handles lead scoring HTTP requests.
type Handler struct {
	svc  *service.Service
	repo *repository.Repository
	val  *validator.Validator
}

// New creates a new lead scoring handler.
func New(svc *service.Service, repo *repository.Repository, val *validator.Validator) *Handler {
	return &Handler{svc: svc, repo: repo, val: val}
}

// RuleRequest is the request body for creating or updating a rule.
type RuleRequest struct {
	Name      string         `json:"name" validate:"required,min=1,max=120"`
	Priority  int            `json:"priority" validate:"min=0,max=10000"`
	Points    int            `json:"points" validate:"required,min=-100,max=100"`
	IsActive  *bool          `json:"isActive"`
	Condition map[string]any `json:"condition" validate:"required,min=1"`
}

// HandleListRules lists all scoring rules for the tenant.
// GET /api/v1/admin/lead-scoring/rules
func (h *Handler) HandleListRules(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	rules, err := h.repo.ListRules(c.Request.Context(), tenantID)
	if httpkit.HandleError(c, err) {
		return
	}
	if rules == nil {
		rules = []domain.Rule{}
	}
	httpkit.OK(c, gin.H{"rules": rules})
}

// HandleCreateRule creates a scoring rule.
// POST /api/v1/admin/lead-scoring/rules
func (h *Handler) HandleCreateRule(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	req, ok := h.bindRule(c)
	if !ok {
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	rule, err := h.repo.CreateRule(c.Request.Context(), domain.Rule{
		TenantID:  tenantID,
		Name:      req.Name,
		Priority:  req.Priority,
		Points:    req.Points,
		IsActive:  active,
		Condition: req.Condition,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	c.JSON(http.StatusCreated, rule)
}

// HandleUpdateRule replaces a rule's mutable fields.
// PUT /api/v1/admin/lead-scoring/rules/:ruleId
func (h *Handler) HandleUpdateRule(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	ruleID, ok := h.pathID(c, "ruleId")
	if !ok {
		return
	}

	req, ok := h.bindRule(c)
	if !ok {
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	rule, err := h.repo.UpdateRule(c.Request.Context(), domain.Rule{
		ID:        ruleID,
		TenantID:  tenantID,
		Name:      req.Name,
		Priority:  req.Priority,
		Points:    req.Points,
		IsActive:  active,
		Condition: req.Condition,
	})
	if errors.Is(err, repository.ErrRuleNotFound) {
		httpkit.Error(c, http.StatusNotFound, "rule not found", nil)
		return
	}
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, rule)
}

// HandleDeleteRule removes a rule.
// DELETE /api/v1/admin/lead-scoring/rules/:ruleId
func (h *Handler) HandleDeleteRule(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	ruleID, ok := h.pathID(c, "ruleId")
	if !ok {
		return
	}

	err := h.repo.DeleteRule(c.Request.Context(), tenantID, ruleID)
	if errors.Is(err, repository.ErrRuleNotFound) {
		httpkit.Error(c, http.StatusNotFound, "rule not found", nil)
		return
	}
	if httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleGetContactScore returns a contact's current lead score.
// GET /api/v1/lead-scoring/contacts/:contactId/score
func (h *Handler) HandleGetContactScore(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	contactID, ok := h.pathID(c, "contactId")
	if !ok {
		return
	}

	contact, err := h.repo.GetContact(c.Request.Context(), tenantID, contactID)
	if errors.Is(err, repository.ErrContactNotFound) {
		httpkit.Error(c, http.StatusNotFound, "contact not found", nil)
		return
	}
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"contactId": contact.ID, "leadScore": contact.LeadScore})
}

// HandleRecalculateContact rebuilds a contact's score against the current
// rule set.
// POST /api/v1/admin/lead-scoring/contacts/:contactId/recalculate
func (h *Handler) HandleRecalculateContact(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	contactID, ok := h.pathID(c, "contactId")
	if !ok {
		return
	}

	newScore, rulesApplied, err := h.svc.RecalculateContactScore(c.Request.Context(), tenantID, contactID)
	if errors.Is(err, repository.ErrContactNotFound) {
		httpkit.Error(c, http.StatusNotFound, "contact not found", nil)
		return
	}
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"contactId": contactID, "leadScore": newScore, "rulesApplied": rulesApplied})
}

func (h *Handler) bindRule(c *gin.Context) (RuleRequest, bool) {
	var req RuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidRequest, nil)
		return req, false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errValidation, err.Error())
		return req, false
	}
	if !hasEventDiscriminator(req.Condition) {
		httpkit.Error(c, http.StatusBadRequest, errValidation, "condition requires an event string")
		return req, false
	}
	return req, true
}

// hasEventDiscriminator checks that a rule condition names the event it
// applies to, under the canonical "event" key or the "event_type" alias.
func hasEventDiscriminator(condition map[string]any) bool {
	if _, ok := condition["event"].(string); ok {
		return true
	}
	_, ok := condition["event_type"].(string)
	return ok
}

func (h *Handler) tenantID(c *gin.Context) (uuid.UUID, bool) {
	tenantID, ok := httpkit.TenantID(c)
	if !ok {
		httpkit.Error(c, http.StatusUnauthorized, "no tenant context", nil)
		return uuid.Nil, false
	}
	return tenantID, true
}

func (h *Handler) pathID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidID, nil)
		return uuid.Nil, false
	}
	return id, true
}
