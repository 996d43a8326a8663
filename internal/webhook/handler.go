package webhook

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"crm_intent_backend/platform/httpkit"
	"crm_intent_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	errNoTenantContext = "no tenant context"
	errInvalidRequest  = "invalid request body"
	errValidation      = "validation error"

	maxBodyBytes = 1 << 20 // 1 MiB
)

// Handler handles webhook HTTP requests.
type Handler struct {
	service *Service
	repo    *Repository
	val     *validator.Validator
}

// NewHandler creates a new webhook handler.
func NewHandler(service *Service, repo *Repository, val *validator.Validator) *Handler {
	return &Handler{service: service, repo: repo, val: val}
}

// ---- Campaign triggers (public, API-key authenticated) ----

// CampaignTriggerRequest is the body of a campaign webhook delivery.
type CampaignTriggerRequest struct {
	Action          string         `json:"action" validate:"required,oneof=email_open email_click campaign_view"`
	RecipientID     uuid.UUID      `json:"recipientId" validate:"required"`
	URL             string         `json:"url" validate:"omitempty,max=2000"`
	Referrer        string         `json:"referrer" validate:"omitempty,max=2000"`
	UserAgent       string         `json:"userAgent" validate:"omitempty,max=500"`
	DurationSeconds int            `json:"durationSeconds" validate:"min=0,max=86400"`
	Metadata        map[string]any `json:"metadata"`
}

// HandleCampaignTrigger processes an inbound campaign action.
// POST /api/v1/webhook/campaigns
// Authenticated via X-Webhook-API-Key header (set by middleware).
func (h *Handler) HandleCampaignTrigger(c *gin.Context) {
	tenantID, ok := h.getWebhookTenantID(c)
	if !ok {
		return
	}

	var req CampaignTriggerRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	raw := req.Metadata
	if raw == nil {
		raw = map[string]any{}
	}

	result, err := h.service.ProcessCampaignTrigger(c.Request.Context(), tenantID, CampaignTrigger{
		Action:          req.Action,
		RecipientID:     req.RecipientID,
		URL:             req.URL,
		Referrer:        req.Referrer,
		UserAgent:       userAgent(c, req.UserAgent),
		IPAddress:       c.ClientIP(),
		DurationSeconds: req.DurationSeconds,
		Raw:             raw,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	c.JSON(http.StatusCreated, result)
}

// HandleFormSubmission processes an inbound form submission.
// POST /api/v1/webhook/forms
// Authenticated via X-Webhook-API-Key header (set by middleware).
// Accepts JSON bodies and classic urlencoded form posts.
func (h *Handler) HandleFormSubmission(c *gin.Context) {
	tenantID, ok := h.getWebhookTenantID(c)
	if !ok {
		return
	}

	raw, fields, ok := h.collectFields(c)
	if !ok {
		return
	}

	sessionID, _ := fields["session_id"].(string)
	delete(fields, "session_id")

	result, err := h.service.ProcessFormSubmission(c.Request.Context(), tenantID, FormSubmission{
		SessionID:    sessionID,
		SourceDomain: sourceDomain(c),
		Fields:       fields,
		Raw:          raw,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	c.JSON(http.StatusCreated, result)
}

// ---- Admin API key management (JWT authenticated) ----

// CreateAPIKeyRequest is the request body for creating a new API key.
type CreateAPIKeyRequest struct {
	Name           string   `json:"name" validate:"required,min=1,max=100"`
	AllowedDomains []string `json:"allowedDomains" validate:"max=20,dive,max=200"`
}

// APIKeyResponse is returned when listing or creating API keys.
type APIKeyResponse struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	KeyPrefix      string    `json:"keyPrefix"`
	AllowedDomains []string  `json:"allowedDomains"`
	IsActive       bool      `json:"isActive"`
	CreatedAt      string    `json:"createdAt"`
}

// CreateAPIKeyResponse includes the plaintext key (shown only once).
type CreateAPIKeyResponse struct {
	APIKeyResponse
	Key string `json:"key"` // plaintext, shown only once
}

// HandleCreateAPIKey creates a new webhook API key.
// POST /api/v1/admin/webhook/keys
func (h *Handler) HandleCreateAPIKey(c *gin.Context) {
	var req CreateAPIKeyRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	tenantID, ok := h.getTenantID(c)
	if !ok {
		return
	}

	plaintext, hash, prefix, err := GenerateAPIKey()
	if err != nil {
		httpkit.Error(c, http.StatusInternalServerError, "failed to generate API key", nil)
		return
	}

	domains := req.AllowedDomains
	if domains == nil {
		domains = []string{}
	}

	key, err := h.repo.Create(c.Request.Context(), tenantID, req.Name, hash, prefix, domains)
	if httpkit.HandleError(c, err) {
		return
	}

	c.JSON(http.StatusCreated, CreateAPIKeyResponse{
		APIKeyResponse: toAPIKeyResponse(key),
		Key:            plaintext,
	})
}

// HandleListAPIKeys lists all webhook API keys for the tenant.
// GET /api/v1/admin/webhook/keys
func (h *Handler) HandleListAPIKeys(c *gin.Context) {
	tenantID, ok := h.getTenantID(c)
	if !ok {
		return
	}

	keys, err := h.repo.ListByTenant(c.Request.Context(), tenantID)
	if httpkit.HandleError(c, err) {
		return
	}

	out := make([]APIKeyResponse, 0, len(keys))
	for _, key := range keys {
		out = append(out, toAPIKeyResponse(key))
	}
	httpkit.OK(c, gin.H{"keys": out})
}

// HandleRevokeAPIKey deactivates a webhook API key.
// DELETE /api/v1/admin/webhook/keys/:keyId
func (h *Handler) HandleRevokeAPIKey(c *gin.Context) {
	tenantID, ok := h.getTenantID(c)
	if !ok {
		return
	}

	keyID, err := uuid.Parse(c.Param("keyId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid key ID", nil)
		return
	}

	if err := h.repo.Revoke(c.Request.Context(), tenantID, keyID); err != nil {
		if err == ErrAPIKeyNotFound {
			httpkit.Error(c, http.StatusNotFound, "API key not found", nil)
			return
		}
		httpkit.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func toAPIKeyResponse(key APIKey) APIKeyResponse {
	return APIKeyResponse{
		ID:             key.ID,
		Name:           key.Name,
		KeyPrefix:      key.KeyPrefix,
		AllowedDomains: key.AllowedDomains,
		IsActive:       key.IsActive,
		CreatedAt:      key.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

// ---- helpers ----

// collectFields reads the raw body and decodes it into a flat field map.
// JSON objects pass through; urlencoded forms flatten to single values.
func (h *Handler) collectFields(c *gin.Context) ([]byte, map[string]any, bool) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidRequest, nil)
		return nil, nil, false
	}

	fields := map[string]any{}
	contentType := c.ContentType()
	switch {
	case strings.Contains(contentType, "application/json"), contentType == "":
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &fields); err != nil {
				httpkit.Error(c, http.StatusBadRequest, errInvalidRequest, nil)
				return nil, nil, false
			}
		}
	case strings.Contains(contentType, "application/x-www-form-urlencoded"):
		values, err := url.ParseQuery(string(raw))
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, errInvalidRequest, nil)
			return nil, nil, false
		}
		for key := range values {
			fields[key] = values.Get(key)
		}
	default:
		httpkit.Error(c, http.StatusUnsupportedMediaType, "unsupported content type", nil)
		return nil, nil, false
	}

	return raw, fields, true
}

func (h *Handler) bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidRequest, nil)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errValidation, err.Error())
		return false
	}
	return true
}

func (h *Handler) getWebhookTenantID(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get("webhookTenantID")
	if !exists {
		httpkit.Error(c, http.StatusUnauthorized, errNoTenantContext, nil)
		return uuid.Nil, false
	}
	tenantID, ok := v.(uuid.UUID)
	if !ok {
		httpkit.Error(c, http.StatusUnauthorized, errNoTenantContext, nil)
		return uuid.Nil, false
	}
	return tenantID, true
}

func (h *Handler) getTenantID(c *gin.Context) (uuid.UUID, bool) {
	tenantID, ok := httpkit.TenantID(c)
	if !ok {
		httpkit.Error(c, http.StatusUnauthorized, errNoTenantContext, nil)
		return uuid.Nil, false
	}
	return tenantID, true
}

func userAgent(c *gin.Context, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	return c.Request.UserAgent()
}

func sourceDomain(c *gin.Context) string {
	origin := c.GetHeader("Origin")
	if origin == "" {
		origin = c.GetHeader("Referer")
	}
	if origin == "" {
		return ""
	}
	if parsed, err := url.Parse(origin); err == nil {
		return strings.ToLower(parsed.Hostname())
	}
	return ""
}
