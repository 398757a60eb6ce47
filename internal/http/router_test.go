package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"countdowntodo-sync/internal/config"
	"countdowntodo-sync/internal/db/dbtest"
	"countdowntodo-sync/internal/logging"
	"countdowntodo-sync/internal/metrics"
	"countdowntodo-sync/internal/models"
	"countdowntodo-sync/internal/repos"
)

func setupRouter(t *testing.T, cfg config.Config) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := logging.Discard()
	m := metrics.New()
	repo := repos.New(dbtest.New(t))
	r, err := NewRouter(cfg, logger, m, NewHandlers(repo, logger, m))
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func do(t *testing.T, r http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-User-ID", "u1")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

type pushResponse struct {
	Applied bool              `json:"applied"`
	Record  models.TodoRecord `json:"record"`
}

type deleteResponse struct {
	OK      bool `json:"ok"`
	Applied bool `json:"applied"`
}

func TestTodoFlow(t *testing.T) {
	r := setupRouter(t, config.Config{})

	rec := do(t, r, http.MethodPost, "/api/v1/todos", `{"content":"buy milk","completed":false,"updated_at":100}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("push status=%d body=%s", rec.Code, rec.Body.String())
	}
	var first pushResponse
	decode(t, rec, &first)
	if !first.Applied || first.Record.ID == 0 {
		t.Fatalf("expected applied push with id: %s", rec.Body.String())
	}

	rec = do(t, r, http.MethodPost, "/api/v1/todos", `{"content":"buy milk","completed":true,"updated_at":50}`)
	var stale pushResponse
	decode(t, rec, &stale)
	if stale.Applied || stale.Record.Completed {
		t.Fatalf("stale push must be discarded: %s", rec.Body.String())
	}

	rec = do(t, r, http.MethodPost, "/api/v1/todos", `{"content":"buy milk","completed":true,"updated_at":200}`)
	var newer pushResponse
	decode(t, rec, &newer)
	if !newer.Applied || !newer.Record.Completed {
		t.Fatalf("newer push must apply: %s", rec.Body.String())
	}

	id := first.Record.ID
	rec = do(t, r, http.MethodPost, "/api/v1/todos/"+itoa(id)+"/delete", `{"updated_at":300}`)
	var del deleteResponse
	decode(t, rec, &del)
	if rec.Code != http.StatusOK || !del.OK || !del.Applied {
		t.Fatalf("delete status=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = do(t, r, http.MethodGet, "/api/v1/todos", "")
	var todos []models.TodoRecord
	decode(t, rec, &todos)
	if len(todos) != 1 || !todos[0].Deleted || todos[0].UpdatedAt != 300 {
		t.Fatalf("expected one tombstone, got %s", rec.Body.String())
	}

	// Other owners see nothing.
	rec = do(t, r, http.MethodGet, "/api/v1/todos", "", "X-User-ID", "u2")
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("expected empty list for other owner, got %s", rec.Body.String())
	}
}

func TestDeleteUnknownID(t *testing.T) {
	r := setupRouter(t, config.Config{})

	rec := do(t, r, http.MethodPost, "/api/v1/countdowns/42/delete", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var del deleteResponse
	decode(t, rec, &del)
	if del.OK || del.Applied {
		t.Fatalf("expected ok=false, got %s", rec.Body.String())
	}

	rec = do(t, r, http.MethodPost, "/api/v1/countdowns/abc/delete", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", rec.Code)
	}
}

func TestCountdownFlow(t *testing.T) {
	r := setupRouter(t, config.Config{})

	rec := do(t, r, http.MethodPost, "/api/v1/countdowns", `{"title":"exam","target_time":"2027-06-07T09:00:00Z","updated_at":10}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("push status=%d body=%s", rec.Code, rec.Body.String())
	}
	rec = do(t, r, http.MethodPost, "/api/v1/countdowns", `{"title":"exam","target_time":"2027-06-08T09:00:00Z","updated_at":10}`)
	var body struct {
		Applied bool `json:"applied"`
	}
	decode(t, rec, &body)
	if body.Applied {
		t.Fatalf("equal timestamp must not replace: %s", rec.Body.String())
	}

	rec = do(t, r, http.MethodGet, "/api/v1/countdowns", "")
	var cds []models.CountdownRecord
	decode(t, rec, &cds)
	if len(cds) != 1 || cds[0].TargetTime.Day() != 7 {
		t.Fatalf("unexpected countdowns: %s", rec.Body.String())
	}
}

func TestValidationErrors(t *testing.T) {
	r := setupRouter(t, config.Config{})
	cases := []struct {
		path, body string
	}{
		{"/api/v1/todos", `{"content":"","updated_at":1}`},
		{"/api/v1/todos", `{"content":"a","updated_at":-1}`},
		{"/api/v1/todos", `{"content":"a","bogus":1}`},
		{"/api/v1/todos", `not json`},
		{"/api/v1/countdowns", `{"title":"x","updated_at":1}`},
		{"/api/v1/usage", `{"device":"d","day":"2026/10/15","apps":[]}`},
		{"/api/v1/usage", `{"device":"d","day":"2026-10-15","apps":[{"app_id":"","duration":1}]}`},
		{"/api/v1/usage", `{"device":"d","day":"2026-10-15","apps":[{"app_id":"a","duration":-4}]}`},
	}
	for _, tc := range cases {
		rec := do(t, r, http.MethodPost, tc.path, tc.body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s %s: expected 400, got %d body=%s", tc.path, tc.body, rec.Code, rec.Body.String())
		}
	}

	rec := do(t, r, http.MethodGet, "/api/v1/todos", "")
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("rejected pushes must not store anything: %s", rec.Body.String())
	}
}

func TestUsageSummaryThroughMappings(t *testing.T) {
	r := setupRouter(t, config.Config{AdminToken: "root"})

	rec := do(t, r, http.MethodPut, "/admin/v1/mappings",
		`{"mappings":[{"app_id":"com.a","canonical_name":"MyApp","category":"Tools"},{"app_id":"A.exe","canonical_name":"MyApp","category":"Tools"}]}`,
		"Authorization", "Bearer root")
	if rec.Code != http.StatusOK {
		t.Fatalf("replace mappings status=%d body=%s", rec.Code, rec.Body.String())
	}

	for _, body := range []string{
		`{"device":"phone","day":"2026-10-15","apps":[{"app_id":"com.a","duration":600},{"app_id":"com.android.launcher3","duration":900}]}`,
		`{"device":"pc","day":"2026-10-15","apps":[{"app_id":"A.exe","duration":300},{"app_id":"notepad.exe","duration":5}]}`,
	} {
		rec = do(t, r, http.MethodPost, "/api/v1/usage", body)
		if rec.Code != http.StatusOK {
			t.Fatalf("push usage status=%d body=%s", rec.Code, rec.Body.String())
		}
	}

	rec = do(t, r, http.MethodGet, "/api/v1/usage/summary?day=2026-10-15", "")
	var rows []models.UsageSummary
	decode(t, rec, &rows)
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %s", rec.Body.String())
	}

	rec = do(t, r, http.MethodGet, "/api/v1/usage/summary?day=2026-10-15&merge_devices=true&exclude_system=true&min_duration=60", "")
	rows = nil
	decode(t, rec, &rows)
	want := models.UsageSummary{CanonicalName: "MyApp", Category: "Tools", Device: "*", Duration: 900}
	if len(rows) != 1 || rows[0] != want {
		t.Fatalf("expected %+v, got %s", want, rec.Body.String())
	}

	rec = do(t, r, http.MethodGet, "/api/v1/mappings", "")
	var ms []models.IdentityMapping
	decode(t, rec, &ms)
	if len(ms) != 2 {
		t.Fatalf("expected 2 mappings, got %s", rec.Body.String())
	}

	rec = do(t, r, http.MethodGet, "/api/v1/usage/summary?day=today", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad day, got %d", rec.Code)
	}
}

func TestMappingMergeKeepsOtherEntries(t *testing.T) {
	r := setupRouter(t, config.Config{AdminToken: "root"})
	auth := []string{"Authorization", "Bearer root"}

	rec := do(t, r, http.MethodPut, "/admin/v1/mappings",
		`{"mappings":[{"app_id":"com.a","canonical_name":"A","category":"Tools"}]}`, auth...)
	if rec.Code != http.StatusOK {
		t.Fatalf("replace status=%d body=%s", rec.Code, rec.Body.String())
	}
	rec = do(t, r, http.MethodPost, "/admin/v1/mappings",
		`{"mappings":[{"app_id":"com.b","canonical_name":"B"},{"app_id":"com.a","canonical_name":"A2","category":"Tools"}]}`, auth...)
	if rec.Code != http.StatusOK {
		t.Fatalf("merge status=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = do(t, r, http.MethodGet, "/api/v1/mappings", "")
	var ms []models.IdentityMapping
	decode(t, rec, &ms)
	want := []models.IdentityMapping{
		{AppID: "com.a", CanonicalName: "A2", Category: "Tools"},
		{AppID: "com.b", CanonicalName: "B", Category: models.Unclassified},
	}
	if len(ms) != 2 || ms[0] != want[0] || ms[1] != want[1] {
		t.Fatalf("expected %+v, got %s", want, rec.Body.String())
	}

	rec = do(t, r, http.MethodPost, "/admin/v1/mappings", `{"mappings":[{"app_id":"","canonical_name":"x"}]}`, auth...)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank app_id, got %d", rec.Code)
	}
}

func TestAuth(t *testing.T) {
	r := setupRouter(t, config.Config{AuthToken: "secret", AdminToken: "root"})

	rec := do(t, r, http.MethodGet, "/api/v1/todos", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	rec = do(t, r, http.MethodGet, "/api/v1/todos", "", "Authorization", "Bearer secret", "X-User-ID", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without user, got %d", rec.Code)
	}
	rec = do(t, r, http.MethodGet, "/api/v1/todos", "", "Authorization", "bearer secret")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d body=%s", rec.Code, rec.Body.String())
	}

	rec = do(t, r, http.MethodPost, "/admin/v1/reset", "", "Authorization", "Bearer secret")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("client token must not reach admin routes, got %d", rec.Code)
	}
	rec = do(t, r, http.MethodPost, "/admin/v1/reset", "", "Authorization", "Bearer root")
	if rec.Code != http.StatusOK {
		t.Fatalf("reset status=%d body=%s", rec.Code, rec.Body.String())
	}

	disabled := setupRouter(t, config.Config{})
	rec = do(t, disabled, http.MethodPost, "/admin/v1/reset", "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("admin routes must be off without a token, got %d", rec.Code)
	}
}

func TestLeaderboardAndOps(t *testing.T) {
	r := setupRouter(t, config.Config{})

	rec := do(t, r, http.MethodPost, "/api/v1/leaderboard", `{"username":"ann","score":10,"duration":30}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit status=%d body=%s", rec.Code, rec.Body.String())
	}
	rec = do(t, r, http.MethodGet, "/api/v1/leaderboard?limit=5", "")
	var top []models.LeaderboardEntry
	decode(t, rec, &top)
	if len(top) != 1 || top[0].Username != "ann" {
		t.Fatalf("unexpected leaderboard: %s", rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected request id header")
	}

	rec = do(t, r, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status=%d", rec.Code)
	}
	rec = do(t, r, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "countdownsync_http_request_duration_seconds") {
		t.Fatalf("metrics missing request histogram: %d", rec.Code)
	}
}

func itoa(i int64) string {
	b, _ := json.Marshal(i)
	return string(b)
}
