package httpapi

import (
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"uikit-analytics/internal/auth"
	"uikit-analytics/internal/tracking"
	"uikit-analytics/internal/users"
	"uikit-analytics/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Auth     *auth.Manager
	Users    *users.Service
	Tracking *tracking.Service
}

/* ===================== TRACKING ===================== */

// TrackEvent ingests one event. The caller's UI never blocks on failure here;
// error handling for dropped events lives client-side.
func (h Handlers) TrackEvent(c *gin.Context) {
	var req tracking.TrackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	e, err := h.Tracking.Track(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "id": e.ID})
}

// GetStats serves the aggregated rollup. Unauthenticated: stats are
// non-sensitive summaries; only raw export requires identity.
func (h Handlers) GetStats(c *gin.Context) {
	f, err := parseFilter(c)
	if err != nil {
		writeError(c, err)
		return
	}

	rollup, err := h.Tracking.Stats(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rollup)
}

// ExportCSV streams the filtered raw events as a CSV attachment.
// The filter is validated before headers are written; mid-stream failures can
// only be logged since the status line is already on the wire.
func (h Handlers) ExportCSV(c *gin.Context) {
	f, err := parseFilter(c)
	if err != nil {
		writeError(c, err)
		return
	}

	userID, _ := auth.UserID(c.Request.Context())
	logger.FromGin(c).Info("export requested", "format", "csv", "user_id", userID)

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="component-tracking.csv"`)
	c.Status(http.StatusOK)

	if err := h.Tracking.ExportCSV(c.Request.Context(), f, c.Writer); err != nil {
		logger.FromGin(c).Error("csv export aborted", "err", err)
	}
}

// ExportJSON streams the filtered raw events as a single JSON document.
func (h Handlers) ExportJSON(c *gin.Context) {
	f, err := parseFilter(c)
	if err != nil {
		writeError(c, err)
		return
	}

	userID, _ := auth.UserID(c.Request.Context())
	logger.FromGin(c).Info("export requested", "format", "json", "user_id", userID)

	c.Header("Content-Type", "application/json; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="component-tracking.json"`)
	c.Status(http.StatusOK)

	if err := h.Tracking.ExportJSON(c.Request.Context(), f, c.Writer); err != nil {
		logger.FromGin(c).Error("json export aborted", "err", err)
	}
}

/* ===================== AUTH ===================== */

// Register creates a principal and returns a bearer token for it.
func (h Handlers) Register(c *gin.Context) {
	var req users.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	u, err := h.Users.Register(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	token, err := h.Auth.Issue(time.Now(), u.ID, u.Role)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": token, "user": u})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login verifies credentials and returns a bearer token.
func (h Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	u, err := h.Users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}

	token, err := h.Auth.Issue(time.Now(), u.ID, u.Role)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": u})
}

/* ===================== FILTER PARSING ===================== */

// parseFilter reads the shared query-string filter shape used by stats and
// both export formats. from/to must be ISO-8601; an inverted range is rejected
// by Filter.Validate before any store access.
func parseFilter(c *gin.Context) (tracking.Filter, error) {
	var f tracking.Filter

	if raw := strings.TrimSpace(c.Query("from")); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return tracking.Filter{}, &tracking.ValidationError{Field: "from", Message: "from must be an ISO-8601 date"}
		}
		f.From = t
	}
	if raw := strings.TrimSpace(c.Query("to")); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return tracking.Filter{}, &tracking.ValidationError{Field: "to", Message: "to must be an ISO-8601 date"}
		}
		f.To = t
	}

	f.ComponentName = strings.TrimSpace(c.Query("componentName"))
	if utf8.RuneCountInString(f.ComponentName) > tracking.MaxComponentNameLen {
		return tracking.Filter{}, &tracking.ValidationError{Field: "componentName", Message: "componentName must be at most 120 characters"}
	}
	f.ProjectID = strings.TrimSpace(c.Query("projectId"))
	if utf8.RuneCountInString(f.ProjectID) > tracking.MaxIdentifierLen {
		return tracking.Filter{}, &tracking.ValidationError{Field: "projectId", Message: "projectId must be at most 120 characters"}
	}

	if err := f.Validate(); err != nil {
		return tracking.Filter{}, err
	}
	return f, nil
}
