package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"uikit-analytics/internal/auth"
	"uikit-analytics/internal/config"
	"uikit-analytics/internal/rbac"
	"uikit-analytics/internal/tracking"
	"uikit-analytics/internal/users"

	"github.com/gin-gonic/gin"
)

// countingRepo wraps the in-memory event repo to observe read traffic, so
// tests can assert that rejected requests never reach the store.
type countingRepo struct {
	inner *tracking.MemoryRepo
	reads atomic.Int64
}

func (r *countingRepo) Insert(ctx context.Context, e tracking.Event) error {
	return r.inner.Insert(ctx, e)
}

func (r *countingRepo) Count(ctx context.Context, f tracking.Filter) (int, error) {
	r.reads.Add(1)
	return r.inner.Count(ctx, f)
}

func (r *countingRepo) Stream(ctx context.Context, f tracking.Filter, fn func(tracking.Event) error) error {
	r.reads.Add(1)
	return r.inner.Stream(ctx, f, fn)
}

type testEnv struct {
	router  *gin.Engine
	events  *countingRepo
	users   *users.MemoryRepo
	manager *auth.Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	manager, err := auth.NewManager(config.AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}

	events := &countingRepo{inner: tracking.NewMemoryRepo()}
	userRepo := users.NewMemoryRepo()

	h := Handlers{
		Auth:     manager,
		Users:    users.NewService(userRepo),
		Tracking: tracking.NewService(events),
	}

	r := gin.New()
	r.NoRoute(NotFound)
	r.POST("/events", h.TrackEvent)
	r.GET("/stats", h.GetStats)

	export := r.Group("/export")
	export.Use(auth.RequireToken(manager), rbac.RequireAnyRole(rbac.AllRoles()...))
	{
		export.GET("", h.ExportCSV)
		export.GET("/json", h.ExportJSON)
	}

	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)

	return &testEnv{router: r, events: events, users: userRepo, manager: manager}
}

func (env *testEnv) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *strings.Reader
	if body == "" {
		rd = strings.NewReader("")
	} else {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func (env *testEnv) token(t *testing.T, role string) string {
	t.Helper()
	tok, err := env.manager.Issue(time.Now(), "user-1", role)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return tok
}

/* ===================== INGESTION ===================== */

func TestTrackEvent_PersistsAndReturnsID(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/events", `{"componentName":"Button","action":"click","variant":"primary"}`, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		OK bool   `json:"ok"`
		ID string `json:"id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !resp.OK || resp.ID == "" {
		t.Fatalf("expected ok+id, got %s", w.Body.String())
	}

	stored := env.events.inner.Events()
	if len(stored) != 1 || stored[0].ID != resp.ID {
		t.Fatalf("expected the returned id to match the stored row")
	}
}

func TestTrackEvent_InvalidActionRejectedWithoutWrite(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/events", `{"componentName":"Button","action":"swipe"}`, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "action") {
		t.Fatalf("expected the offending field in the message, got %s", w.Body.String())
	}
	if len(env.events.inner.Events()) != 0 {
		t.Fatalf("expected no partial write")
	}
}

func TestTrackEvent_MalformedJSON(t *testing.T) {
	env := newTestEnv(t)
	if w := env.do(t, http.MethodPost, "/events", `{not json`, ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

/* ===================== STATS ===================== */

func TestStats_ExampleScenario(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 3; i++ {
		w := env.do(t, http.MethodPost, "/events", `{"componentName":"Button","action":"click","variant":"primary"}`, "")
		if w.Code != http.StatusCreated {
			t.Fatalf("seed: %d", w.Code)
		}
	}
	if w := env.do(t, http.MethodPost, "/events", `{"componentName":"Input","action":"mount"}`, ""); w.Code != http.StatusCreated {
		t.Fatalf("seed: %d", w.Code)
	}

	w := env.do(t, http.MethodGet, "/stats", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var out tracking.Rollup
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.TotalEvents != 4 {
		t.Fatalf("expected totalEvents 4, got %d", out.TotalEvents)
	}
	if len(out.TopComponents) != 2 ||
		out.TopComponents[0].ComponentName != "Button" ||
		out.TopComponents[1].ComponentName != "Input" {
		t.Fatalf("expected Button before Input, got %+v", out.TopComponents)
	}
	if out.TopComponents[0].VariantBreakdown["primary"] != 3 ||
		out.TopComponents[0].ActionBreakdown["click"] != 3 {
		t.Fatalf("unexpected Button breakdowns: %+v", out.TopComponents[0])
	}
}

func TestStats_InvertedRangeRejected(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/stats?from=2025-02-01T00:00:00Z&to=2025-01-01T00:00:00Z", "", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if env.events.reads.Load() != 0 {
		t.Fatalf("expected store untouched, saw %d reads", env.events.reads.Load())
	}
}

func TestStats_BadDateRejected(t *testing.T) {
	env := newTestEnv(t)
	if w := env.do(t, http.MethodGet, "/stats?from=yesterday", "", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

/* ===================== EXPORT ===================== */

func TestExport_RequiresBearerToken(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/export", "/export/json"} {
		if w := env.do(t, http.MethodGet, path, "", ""); w.Code != http.StatusUnauthorized {
			t.Fatalf("%s without token: expected 401, got %d", path, w.Code)
		}

		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s with garbage token: expected 401, got %d", path, w.Code)
		}
	}

	if env.events.reads.Load() != 0 {
		t.Fatalf("expected store never queried, saw %d reads", env.events.reads.Load())
	}
}

func TestExportCSV_StreamsAttachment(t *testing.T) {
	env := newTestEnv(t)
	if w := env.do(t, http.MethodPost, "/events", `{"componentName":"Button","action":"click","metadata":{"a":"b,c"}}`, ""); w.Code != http.StatusCreated {
		t.Fatalf("seed: %d", w.Code)
	}

	w := env.do(t, http.MethodGet, "/export", "", env.token(t, rbac.RoleDeveloper))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, `attachment; filename="component-tracking.csv"`) {
		t.Fatalf("unexpected disposition %q", cd)
	}

	body := w.Body.String()
	if !strings.HasPrefix(body, "componentName,variant,action,projectId,userId,timestamp,metadata\r\n") {
		t.Fatalf("unexpected header row: %q", body)
	}
	if !strings.Contains(body, `"{""a"":""b,c""}"`) {
		t.Fatalf("expected escaped metadata cell in %q", body)
	}
}

func TestExportJSON_StreamsAttachment(t *testing.T) {
	env := newTestEnv(t)
	if w := env.do(t, http.MethodPost, "/events", `{"componentName":"Card","action":"render"}`, ""); w.Code != http.StatusCreated {
		t.Fatalf("seed: %d", w.Code)
	}

	w := env.do(t, http.MethodGet, "/export/json", "", env.token(t, rbac.RoleDesigner))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, `filename="component-tracking.json"`) {
		t.Fatalf("unexpected disposition %q", cd)
	}

	var doc struct {
		TotalEvents int              `json:"totalEvents"`
		Events      []tracking.Event `json:"events"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if doc.TotalEvents != 1 || len(doc.Events) != 1 || doc.Events[0].ComponentName != "Card" {
		t.Fatalf("unexpected document: %s", w.Body.String())
	}
}

func TestExport_InvertedRangeRejectedBeforeHeaders(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/export?from=2025-02-01T00:00:00Z&to=2025-01-01T00:00:00Z", "", env.token(t, rbac.RoleAdmin))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("expected no CSV headers on rejection")
	}
	if env.events.reads.Load() != 0 {
		t.Fatalf("expected store untouched")
	}
}

/* ===================== AUTH ===================== */

func TestRegister_IssuesTokenAndConflictsOnDuplicate(t *testing.T) {
	env := newTestEnv(t)

	body := `{"name":"Ada","email":"a@b.com","password":"password123","role":"designer"}`
	w := env.do(t, http.MethodPost, "/auth/register", body, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Token string     `json:"token"`
		User  users.User `json:"user"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Token == "" || resp.User.Email != "a@b.com" {
		t.Fatalf("unexpected response: %s", w.Body.String())
	}
	if strings.Contains(w.Body.String(), "password") {
		t.Fatalf("password material leaked: %s", w.Body.String())
	}

	// Token from registration must open the export gate.
	if w := env.do(t, http.MethodGet, "/export", "", resp.Token); w.Code != http.StatusOK {
		t.Fatalf("expected registered token to pass auth, got %d", w.Code)
	}

	// Same email again: conflict, still exactly one principal.
	if w := env.do(t, http.MethodPost, "/auth/register", body, ""); w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
	if env.users.Len() != 1 {
		t.Fatalf("expected exactly one principal, got %d", env.users.Len())
	}
}

func TestLogin_VerifiesCredentials(t *testing.T) {
	env := newTestEnv(t)

	reg := `{"name":"Ada","email":"a@b.com","password":"password123"}`
	if w := env.do(t, http.MethodPost, "/auth/register", reg, ""); w.Code != http.StatusCreated {
		t.Fatalf("register: %d", w.Code)
	}

	w := env.do(t, http.MethodPost, "/auth/login", `{"email":"a@b.com","password":"password123"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "token") {
		t.Fatalf("expected token in response")
	}

	w = env.do(t, http.MethodPost, "/auth/login", `{"email":"a@b.com","password":"wrongpass"}`, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

/* ===================== ROUTING ===================== */

func TestUnmatchedRouteIs404(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/nope", "", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "error") {
		t.Fatalf("expected error body, got %s", w.Body.String())
	}
}
