package httpapi

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"voicedash/internal/audit"
	"voicedash/internal/auth"
	"voicedash/internal/calls"
	"voicedash/internal/mappings"
	"voicedash/internal/rbac"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Auth     *auth.Manager
	Calls    *calls.Service
	Mappings *mappings.Service
	Audit    *audit.Service
}

// --- Auth ---

type loginRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Login issues a JWT token pair.
//
// NOTE: This is a skeleton-only endpoint. Real deployments must validate
// credentials against an identity provider before issuing tokens.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "email required"})
		return
	}
	if req.Role != rbac.RoleAdmin && req.Role != rbac.RoleViewer {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "role must be admin or viewer"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), req.Email, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh exchanges a valid refresh token for a fresh pair.
func (h Handlers) Refresh(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "refresh_token required"})
		return
	}
	claims, err := h.Auth.Verify(req.RefreshToken, auth.TokenTypeRefresh, time.Now())
	if err != nil || claims.Role == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), claims.Email, claims.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// --- Calls ---

// ListCalls returns the normalized call list visible to the caller, newest
// first. Admins see everything; viewers see only calls for assistants mapped
// to their email. `?summary=1` adds an aggregate block.
func (h Handlers) ListCalls(c *gin.Context) {
	if h.Calls == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "calls not configured"})
		return
	}
	restriction, ok := h.restrictionFor(c)
	if !ok {
		return
	}

	records, err := h.Calls.FetchCalls(c.Request.Context(), restriction)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "upstream provider unavailable"})
		return
	}

	resp := gin.H{"calls": records}
	if c.Query("summary") == "1" {
		resp["summary"] = calls.Summarize(records)
	}
	c.JSON(http.StatusOK, resp)
}

// GetCall returns one normalized call. Viewers get 404 for calls outside
// their permitted assistant set; existence is not revealed.
func (h Handlers) GetCall(c *gin.Context) {
	if h.Calls == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "calls not configured"})
		return
	}
	id := c.Param("id")
	if id == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "call id required"})
		return
	}
	restriction, ok := h.restrictionFor(c)
	if !ok {
		return
	}

	rec, err := h.Calls.FetchCallByID(c.Request.Context(), id)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "upstream provider unavailable"})
		return
	}
	if rec == nil || !restriction.Allows(rec.AssistantID) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "call not found"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// restrictionFor resolves the caller's visibility: nil for admins, the
// mapped assistant-id set for viewers. On failure it writes the error
// response and returns ok=false.
func (h Handlers) restrictionFor(c *gin.Context) (*calls.Restriction, bool) {
	email, err := auth.Email(c.Request.Context())
	if err != nil || email == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "identity required"})
		return nil, false
	}
	role, _ := auth.Role(c.Request.Context())
	if rbac.IsAdmin(role) {
		return nil, true
	}
	if h.Mappings == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "mappings not configured"})
		return nil, false
	}
	ids, err := h.Mappings.AllowedAssistantIDs(c.Request.Context(), email)
	if err != nil {
		slog.Error("allowed assistant lookup failed", "email", email, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "permission lookup failed"})
		return nil, false
	}
	return &calls.Restriction{AssistantIDs: ids}, true
}

// --- Admin: mappings ---

type mappingRequest struct {
	UserEmail   string `json:"user_email"`
	AssistantID string `json:"assistant_id"`
}

func (h Handlers) ListMappings(c *gin.Context) {
	if h.Mappings == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "mappings not configured"})
		return
	}
	out, err := h.Mappings.List(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "mapping list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"mappings": out})
}

func (h Handlers) GetUserMappings(c *gin.Context) {
	if h.Mappings == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "mappings not configured"})
		return
	}
	email := c.Param("email")
	ids, err := h.Mappings.AllowedAssistantIDs(c.Request.Context(), email)
	if err != nil {
		status := http.StatusInternalServerError
		if err == mappings.ErrInvalidArgument {
			status = http.StatusBadRequest
		}
		c.AbortWithStatusJSON(status, gin.H{"error": "mapping lookup failed"})
		return
	}
	c.JSON(http.StatusOK, mappings.UserMappings{
		UserEmail:    strings.ToLower(strings.TrimSpace(email)),
		AssistantIDs: ids,
	})
}

// AddMapping grants a user access to one assistant. Idempotent: granting an
// existing pair succeeds.
func (h Handlers) AddMapping(c *gin.Context) {
	if h.Mappings == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "mappings not configured"})
		return
	}
	var req mappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := h.Mappings.Add(c.Request.Context(), req.UserEmail, req.AssistantID); err != nil {
		if err == mappings.ErrInvalidArgument {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_email and assistant_id required"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "mapping add failed"})
		return
	}
	h.auditMapping(c, true, req.UserEmail, req.AssistantID)
	c.JSON(http.StatusCreated, gin.H{"status": "ok"})
}

// RemoveMapping revokes a user's access to one assistant. Removing a pair
// that does not exist is a successful no-op.
func (h Handlers) RemoveMapping(c *gin.Context) {
	if h.Mappings == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "mappings not configured"})
		return
	}
	var req mappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := h.Mappings.Remove(c.Request.Context(), req.UserEmail, req.AssistantID); err != nil {
		if err == mappings.ErrInvalidArgument {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_email and assistant_id required"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "mapping remove failed"})
		return
	}
	h.auditMapping(c, false, req.UserEmail, req.AssistantID)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// auditMapping records an admin mapping change. Best-effort: a failed
// append is logged, never surfaced to the admin.
func (h Handlers) auditMapping(c *gin.Context, added bool, targetEmail, assistantID string) {
	if h.Audit == nil {
		return
	}
	actor, _ := auth.Email(c.Request.Context())
	role, _ := auth.Role(c.Request.Context())

	var err error
	if added {
		err = h.Audit.LogMappingAdded(c.Request.Context(), actor, role, c.ClientIP(), targetEmail, assistantID)
	} else {
		err = h.Audit.LogMappingRemoved(c.Request.Context(), actor, role, c.ClientIP(), targetEmail, assistantID)
	}
	if err != nil {
		slog.Warn("audit append failed", "actor", actor, "target", targetEmail, "assistant_id", assistantID, "err", err)
	}
}
