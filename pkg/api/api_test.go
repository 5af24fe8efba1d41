package api

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cjrt007/Tornado.Ai/pkg/audit"
	"github.com/cjrt007/Tornado.Ai/pkg/catalog"
	"github.com/cjrt007/Tornado.Ai/pkg/control"
	"github.com/cjrt007/Tornado.Ai/pkg/defaults"
	"github.com/cjrt007/Tornado.Ai/pkg/jsonutil"
	"github.com/cjrt007/Tornado.Ai/pkg/logging"
	"github.com/cjrt007/Tornado.Ai/pkg/metrics"
	"github.com/cjrt007/Tornado.Ai/pkg/rbac"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return epoch }

func newServer(t *testing.T, opts ...Option) (*Server, *control.Store) {
	t.Helper()
	store, err := control.New(control.WithClock(clock))
	require.NoError(t, err)
	opts = append([]Option{WithLogger(logging.Discard()), WithClock(clock)}, opts...)
	return New(store, opts...), store
}

func do(t *testing.T, h http.Handler, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := jsonutil.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, jsonutil.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestGetSurfaceWithETag(t *testing.T) {
	t.Parallel()
	srv, _ := newServer(t)
	h := srv.Handler()

	rec := do(t, h, http.MethodGet, defaults.PathControl, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, defaults.ContentTypeJSON, rec.Header().Get("Content-Type"))
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	sf := decode[control.Surface](t, rec)
	assert.Len(t, sf.Features, 5)
	assert.Len(t, sf.Roles, 4)
	assert.Len(t, sf.ScanProfiles, 2)

	rec = do(t, h, http.MethodGet, defaults.PathControl, "", "If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, etag, rec.Header().Get("ETag"))

	rec = do(t, h, http.MethodGet, defaults.PathControl, "", "If-None-Match", `"stale", W/`+etag)
	assert.Equal(t, http.StatusNotModified, rec.Code)
}

func TestETagChangesAfterUpdate(t *testing.T) {
	t.Parallel()
	srv, _ := newServer(t)
	h := srv.Handler()

	before := do(t, h, http.MethodGet, defaults.PathControl, "").Header().Get("ETag")
	rec := do(t, h, http.MethodPatch, defaults.PathFeatures, `{"features":[{"id":"ai.orchestration","enabled":false}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, defaults.PathControl, "", "If-None-Match", before)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEqual(t, before, rec.Header().Get("ETag"))
}

func TestPatchFeaturesReturnsCollection(t *testing.T) {
	t.Parallel()
	srv, store := newServer(t)
	h := srv.Handler()

	for _, method := range []string{http.MethodPatch, http.MethodPost} {
		rec := do(t, h, method, defaults.PathFeatures, `{"features":[{"id":"ui.advanced-controls","enabled":true,"tags":["beta"]}]}`)
		require.Equal(t, http.StatusOK, rec.Code, method)

		features := decode[[]control.FeatureToggle](t, rec)
		require.Len(t, features, 5)
		f, ok := store.Snapshot().Feature("ui.advanced-controls")
		require.True(t, ok)
		assert.True(t, f.Enabled)
		assert.Equal(t, []string{"beta"}, f.Tags)
	}
}

func TestPatchTogglesLockedFeature(t *testing.T) {
	t.Parallel()
	srv, store := newServer(t)
	_, err := store.UpdateFeatures([]control.FeatureTogglePatch{{ID: "reporting.auto-publish", Locked: control.Ptr(true)}})
	require.NoError(t, err)

	rec := do(t, srv.Handler(), http.MethodPatch, defaults.PathFeatures, `{"features":[{"id":"reporting.auto-publish","enabled":true}]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	f, _ := store.Snapshot().Feature("reporting.auto-publish")
	assert.True(t, f.Enabled)
	assert.True(t, f.Locked)
}

func TestPatchRolesMergesEnforcement(t *testing.T) {
	t.Parallel()
	srv, store := newServer(t)

	rec := do(t, srv.Handler(), http.MethodPatch, defaults.PathRoles, `{"roles":[{"role":"viewer","enforcement":{"mfaRequired":true}}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	roles := decode[[]control.RoleControl](t, rec)
	assert.Len(t, roles, 4)

	viewer, ok := store.Snapshot().Role(control.RoleViewer)
	require.True(t, ok)
	assert.True(t, viewer.Enforcement.MFARequired)
	assert.Positive(t, viewer.Enforcement.SessionTimeoutMinutes)
}

func TestScanInsertTreatsZeroTimestampsAsAbsent(t *testing.T) {
	t.Parallel()
	srv, store := newServer(t)

	p := control.DefaultSurface(epoch).ScanProfiles[0]
	p.ID = "scan.custom.quarterly"
	p.Name = "Quarterly"
	p.CreatedAt = time.Time{}
	p.UpdatedAt = time.Time{}
	body, err := jsonutil.Marshal(map[string]any{"scanProfiles": []control.ScanProfile{p}})
	require.NoError(t, err)

	rec := do(t, srv.Handler(), http.MethodPatch, defaults.PathScans, string(body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got, ok := store.Snapshot().ScanProfile("scan.custom.quarterly")
	require.True(t, ok)
	assert.True(t, got.CreatedAt.Equal(epoch))
	assert.True(t, got.UpdatedAt.Equal(epoch))
}

func TestScanUpdateLogsUnknownTooling(t *testing.T) {
	t.Parallel()
	var logs bytes.Buffer
	srv, _ := newServer(t, WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	rec := do(t, srv.Handler(), http.MethodPatch, defaults.PathScans,
		`{"scanProfiles":[{"id":"scan.network.weekly","tooling":["nmap_scan.sim","zmap_scan.sim"]}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	out := logs.String()
	assert.Contains(t, out, "unknown tooling")
	assert.Contains(t, out, "zmap_scan.sim")
	assert.NotContains(t, out, "nmap_scan.sim]")
}

func TestUpdateRejectsMalformedBodies(t *testing.T) {
	t.Parallel()
	srv, _ := newServer(t)
	h := srv.Handler()

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"empty body", defaults.PathFeatures, "", http.StatusBadRequest},
		{"not json", defaults.PathFeatures, "{", http.StatusBadRequest},
		{"top-level array", defaults.PathFeatures, `[{"id":"x"}]`, http.StatusBadRequest},
		{"missing key", defaults.PathFeatures, `{"roles":[]}`, http.StatusBadRequest},
		{"null key", defaults.PathRoles, `{"roles":null}`, http.StatusBadRequest},
		{"wrong shape", defaults.PathScans, `{"scanProfiles":{"id":"x"}}`, http.StatusBadRequest},
		{"too large", defaults.PathFeatures, `{"features":[],"pad":"` + strings.Repeat("x", int(defaults.MaxRequestBody)) + `"}`, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPatch, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code)
			env := decode[ErrorResponse](t, rec)
			assert.NotEmpty(t, env.Error)
		})
	}
}

func TestEmptyBatchIsNoop(t *testing.T) {
	t.Parallel()
	srv, store := newServer(t)
	before := store.Snapshot()

	rec := do(t, srv.Handler(), http.MethodPatch, defaults.PathFeatures, `{"features":[]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, mustJSON(t, before.Features), rec.Body.String())
}

func TestValidationFailureIs422AndAtomic(t *testing.T) {
	t.Parallel()
	srv, store := newServer(t)
	before := store.Snapshot()

	rec := do(t, srv.Handler(), http.MethodPatch, defaults.PathRoles,
		`{"roles":[{"role":"auditor","displayName":"Audit"},{"role":"viewer","enforcement":{"sessionTimeoutMinutes":0}}]}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	env := decode[ErrorResponse](t, rec)
	assert.Equal(t, "validation failed", env.Error)
	require.NotEmpty(t, env.Details)
	assert.NotEmpty(t, env.Details[0].Path)
	assert.NotEmpty(t, env.Details[0].Message)

	assert.Equal(t, mustJSON(t, before), mustJSON(t, store.Snapshot()))
}

func TestMethodNotAllowed(t *testing.T) {
	t.Parallel()
	srv, _ := newServer(t)
	h := srv.Handler()

	rec := do(t, h, http.MethodDelete, defaults.PathControl, "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "GET", rec.Header().Get("Allow"))

	rec = do(t, h, http.MethodGet, defaults.PathFeatures, "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "PATCH, POST", rec.Header().Get("Allow"))

	rec = do(t, h, http.MethodGet, defaults.PathReset, "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestResetRestoresSeed(t *testing.T) {
	t.Parallel()
	srv, store := newServer(t)
	h := srv.Handler()
	seed := store.Snapshot()

	rec := do(t, h, http.MethodPatch, defaults.PathFeatures, `{"features":[{"id":"ai.orchestration","enabled":false}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEqual(t, mustJSON(t, seed), mustJSON(t, store.Snapshot()))

	rec = do(t, h, http.MethodPost, defaults.PathReset, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, mustJSON(t, seed), rec.Body.String())
	assert.Equal(t, mustJSON(t, seed), mustJSON(t, store.Snapshot()))
}

func TestPermissions(t *testing.T) {
	t.Parallel()
	srv, _ := newServer(t)
	h := srv.Handler()

	rec := do(t, h, http.MethodGet, defaults.PathRoles+"/admin/permissions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	admin := decode[PermissionsResponse](t, rec)
	assert.Equal(t, control.RoleAdmin, admin.Role)
	assert.Equal(t, rbac.Universe, admin.Permissions)

	rec = do(t, h, http.MethodGet, defaults.PathRoles+"/viewer/permissions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []rbac.Permission{rbac.ViewDashboards}, decode[PermissionsResponse](t, rec).Permissions)

	rec = do(t, h, http.MethodGet, defaults.PathRoles+"/root/permissions", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPermissionsFollowUpdates(t *testing.T) {
	t.Parallel()
	srv, _ := newServer(t)
	h := srv.Handler()

	rec := do(t, h, http.MethodPatch, defaults.PathRoles, `{"roles":[{"role":"viewer","permissions":["view_dashboards","view_reports"]}]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, defaults.PathRoles+"/viewer/permissions", "")
	assert.Equal(t, []rbac.Permission{rbac.ViewDashboards, rbac.ViewReports}, decode[PermissionsResponse](t, rec).Permissions)
}

func TestReport(t *testing.T) {
	t.Parallel()
	srv, _ := newServer(t)
	h := srv.Handler()

	rec := do(t, h, http.MethodGet, defaults.PathReport, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, defaults.ContentTypeJSON, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"executive_summary"`)

	rec = do(t, h, http.MethodGet, defaults.PathReport+"?format=html&template=compliance_report&engagement=q3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, defaults.ContentTypeHTML, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Engagement: q3")

	rec = do(t, h, http.MethodGet, defaults.PathReport+"?format=pdf&template=vulnerability_assessment", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, defaults.ContentTypePDF, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "tornado-vulnerability_assessment.pdf")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))

	rec = do(t, h, http.MethodGet, defaults.PathReport+"?format=docx", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, h, http.MethodGet, defaults.PathReport+"?template=board", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTools(t *testing.T) {
	t.Parallel()
	srv, _ := newServer(t)
	h := srv.Handler()

	rec := do(t, h, http.MethodGet, defaults.PathTools, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]catalog.Tool](t, rec), catalog.Default().Size())

	rec = do(t, h, http.MethodGet, defaults.PathTools+"?category=network", "")
	require.Equal(t, http.StatusOK, rec.Code)
	tools := decode[[]catalog.Tool](t, rec)
	require.NotEmpty(t, tools)
	for _, tool := range tools {
		assert.Equal(t, catalog.Network, tool.Category)
	}

	rec = do(t, h, http.MethodGet, defaults.PathTools+"?category=quantum", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestHealth(t *testing.T) {
	t.Parallel()
	srv, _ := newServer(t)

	rec := do(t, srv.Handler(), http.MethodGet, defaults.PathHealth, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, HealthResponse{
		Status:       "ok",
		Version:      defaults.Version,
		RegistrySize: catalog.Default().Size(),
		Features:     5,
		Roles:        4,
		ScanProfiles: 2,
	}, decode[HealthResponse](t, rec))
}

func TestHealthReportsAuditTrail(t *testing.T) {
	t.Parallel()
	log, err := audit.Open(filepath.Join(t.TempDir(), "audit.log.jsonl"),
		audit.WithClock(clock), audit.WithLogger(logging.Discard()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = log.Close() })

	store, err := control.New(control.WithClock(clock), control.WithObserver(log))
	require.NoError(t, err)
	h := New(store, WithLogger(logging.Discard()), WithAudit(log)).Handler()

	rec := do(t, h, http.MethodGet, defaults.PathHealth, "")
	body := decode[HealthResponse](t, rec)
	require.NotNil(t, body.AuditEntries)
	assert.Zero(t, *body.AuditEntries)
	assert.Nil(t, body.LastAuditEvent)
	assert.NotContains(t, rec.Body.String(), "lastAuditEvent")

	do(t, h, http.MethodPatch, defaults.PathFeatures, `{"features":[{"id":"ai.orchestration","enabled":false}]}`)
	do(t, h, http.MethodPost, defaults.PathReset, "")

	body = decode[HealthResponse](t, do(t, h, http.MethodGet, defaults.PathHealth, ""))
	require.NotNil(t, body.AuditEntries)
	assert.Equal(t, 2, *body.AuditEntries)
	require.NotNil(t, body.LastAuditEvent)
	assert.True(t, body.LastAuditEvent.Equal(epoch))
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	c, err := metrics.New()
	require.NoError(t, err)
	srv, _ := newServer(t, WithMetrics(c))
	h := srv.Handler()

	do(t, h, http.MethodGet, defaults.PathHealth, "")
	rec := do(t, h, http.MethodGet, defaults.PathMetrics, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "tornado_http_requests_total")
	assert.Contains(t, body, `route="/api/health"`)
}

func TestMetricsAbsentWithoutCollector(t *testing.T) {
	t.Parallel()
	srv, _ := newServer(t)
	assert.Equal(t, http.StatusNotFound, do(t, srv.Handler(), http.MethodGet, defaults.PathMetrics, "").Code)
}

func TestUnknownRouteIsJSON404(t *testing.T) {
	t.Parallel()
	srv, _ := newServer(t)

	rec := do(t, srv.Handler(), http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not found", decode[ErrorResponse](t, rec).Error)
}

func TestRequestIDAndSecurityHeaders(t *testing.T) {
	t.Parallel()
	srv, _ := newServer(t)
	h := srv.Handler()

	rec := do(t, h, http.MethodGet, defaults.PathHealth, "")
	assert.Len(t, rec.Header().Get(headerRequestID), 36)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))

	rec = do(t, h, http.MethodGet, defaults.PathHealth, "", headerRequestID, "req-42")
	assert.Equal(t, "req-42", rec.Header().Get(headerRequestID))
}

func TestRecoveryWritesJSON500(t *testing.T) {
	t.Parallel()
	srv, _ := newServer(t)
	h := srv.recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))

	rec := do(t, h, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
}

func TestCORS(t *testing.T) {
	t.Parallel()
	srv, _ := newServer(t, WithCORS(true, nil))
	h := srv.Handler()

	rec := do(t, h, http.MethodOptions, defaults.PathFeatures, "",
		"Origin", "http://console.local",
		"Access-Control-Request-Method", http.MethodPatch,
	)
	assert.Equal(t, "http://console.local", rec.Header().Get("Access-Control-Allow-Origin"))

	restricted, _ := newServer(t, WithCORS(true, []string{"http://allowed.local"}))
	rec = do(t, restricted.Handler(), http.MethodGet, defaults.PathHealth, "", "Origin", "http://evil.local")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMCPMount(t *testing.T) {
	t.Parallel()
	mcp := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	srv, _ := newServer(t, WithMCP(mcp))
	assert.Equal(t, http.StatusTeapot, do(t, srv.Handler(), http.MethodPost, defaults.PathMCP, "{}").Code)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	t.Parallel()
	srv, _ := newServer(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + defaults.PathHealth)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestETagMatches(t *testing.T) {
	t.Parallel()
	assert.False(t, etagMatches("", `"a"`))
	assert.True(t, etagMatches(`"a"`, `"a"`))
	assert.True(t, etagMatches(`"b", "a"`, `"a"`))
	assert.True(t, etagMatches(`W/"a"`, `"a"`))
	assert.True(t, etagMatches("*", `"a"`))
	assert.False(t, etagMatches(`"b"`, `"a"`))
}
