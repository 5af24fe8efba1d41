package api

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-json-experiment/json/jsontext"

	"github.com/cjrt007/Tornado.Ai/pkg/catalog"
	"github.com/cjrt007/Tornado.Ai/pkg/control"
	"github.com/cjrt007/Tornado.Ai/pkg/defaults"
	"github.com/cjrt007/Tornado.Ai/pkg/jsonutil"
	"github.com/cjrt007/Tornado.Ai/pkg/rbac"
	"github.com/cjrt007/Tornado.Ai/pkg/report"
)

// Envelope keys of the update bodies.
const (
	keyFeatures     = "features"
	keyRoles        = "roles"
	keyScanProfiles = "scanProfiles"
)

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status       string `json:"status"`
	Version      string `json:"version"`
	RegistrySize int    `json:"registrySize"`
	Features     int    `json:"features"`
	Roles        int    `json:"roles"`
	ScanProfiles int    `json:"scanProfiles"`
	// Audit fields are present only when an audit log is configured.
	AuditEntries   *int       `json:"auditEntries,omitempty"`
	LastAuditEvent *time.Time `json:"lastAuditEvent,omitempty"`
}

// PermissionsResponse is the body of GET /api/control/roles/{role}/permissions.
type PermissionsResponse struct {
	Role        control.Role      `json:"role"`
	Permissions []rbac.Permission `json:"permissions"`
}

func (s *Server) handleSurface(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	data, err := jsonutil.Marshal(s.store.Snapshot())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encoding response")
		return
	}
	etag := surfaceETag(data)
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", defaults.ContentTypeJSON)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// serveUpdate decodes the {key: [...]} envelope and applies it. It writes
// the error response itself and reports whether the caller should respond.
func serveUpdate[P any](s *Server, w http.ResponseWriter, r *http.Request, key string, apply func([]P) (control.Surface, error)) (control.Surface, []P, bool) {
	if !allowMethods(w, r, http.MethodPatch, http.MethodPost) {
		return control.Surface{}, nil, false
	}

	var env map[string]jsontext.Value
	if err := jsonutil.DecodeBody(r.Body, defaults.MaxRequestBody, &env); err != nil {
		writeDecodeError(w, err)
		return control.Surface{}, nil, false
	}
	raw, ok := env[key]
	if !ok || raw.Kind() == 'n' {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("body must contain a %q array", key))
		return control.Surface{}, nil, false
	}
	var patches []P
	if err := jsonutil.Unmarshal(raw, &patches); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("%q must be an array of records", key))
		return control.Surface{}, nil, false
	}

	sf, err := apply(patches)
	if err != nil {
		attrs := []slog.Attr{
			slog.String("collection", key),
			slog.Int("patches", len(patches)),
			slog.String("request_id", RequestID(r.Context())),
		}
		if ve, ok := control.AsValidationError(err); ok {
			attrs = append(attrs, slog.Int("issues", len(ve.Issues)))
			s.logger.LogAttrs(r.Context(), slog.LevelInfo, "control update rejected", attrs...)
		} else {
			attrs = append(attrs, slog.String("error", err.Error()))
			s.logger.LogAttrs(r.Context(), slog.LevelError, "control update failed", attrs...)
		}
		writeStoreError(w, err)
		return control.Surface{}, nil, false
	}
	return sf, patches, true
}

func (s *Server) handleFeatures(w http.ResponseWriter, r *http.Request) {
	sf, _, ok := serveUpdate(s, w, r, keyFeatures, s.store.UpdateFeatures)
	if ok {
		writeJSON(w, http.StatusOK, sf.Features)
	}
}

func (s *Server) handleRoles(w http.ResponseWriter, r *http.Request) {
	sf, _, ok := serveUpdate(s, w, r, keyRoles, s.store.UpdateRoles)
	if ok {
		writeJSON(w, http.StatusOK, sf.Roles)
	}
}

func (s *Server) handleScans(w http.ResponseWriter, r *http.Request) {
	sf, patches, ok := serveUpdate(s, w, r, keyScanProfiles, s.store.UpdateScanProfiles)
	if !ok {
		return
	}
	s.warnUnknownTooling(r, sf, patches)
	writeJSON(w, http.StatusOK, sf.ScanProfiles)
}

// warnUnknownTooling logs tool ids missing from the catalog. They are
// accepted.
func (s *Server) warnUnknownTooling(r *http.Request, sf control.Surface, patches []control.ScanProfilePatch) {
	seen := make(map[string]bool, len(patches))
	for _, p := range patches {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		profile, ok := sf.ScanProfile(p.ID)
		if !ok {
			continue
		}
		if unknown := s.catalog.UnknownTooling(profile); len(unknown) > 0 {
			s.logger.WarnContext(r.Context(), "scan profile references unknown tooling",
				slog.String("profile", p.ID),
				slog.Any("tooling", unknown),
				slog.String("request_id", RequestID(r.Context())),
			)
		}
	}
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodPost) {
		return
	}
	sf := s.store.Reset()
	s.logger.InfoContext(r.Context(), "control surface reset", slog.String("request_id", RequestID(r.Context())))
	writeJSON(w, http.StatusOK, sf)
}

func (s *Server) handlePermissions(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	role := control.Role(r.PathValue("role"))
	perms, err := rbac.ListPermissions(s.store.Snapshot(), role)
	if err != nil {
		if errors.Is(err, rbac.ErrUnknownRole) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("unknown role %q", role))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, PermissionsResponse{Role: role, Permissions: perms})
}

// handleReport renders the current surface. Query parameters other than
// format and template are passed through as report metadata.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	format, err := report.ParseFormat(q.Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tmpl, err := report.ParseTemplate(q.Get("template"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var data map[string]any
	for k, v := range q {
		if k == "format" || k == "template" || len(v) == 0 {
			continue
		}
		if data == nil {
			data = make(map[string]any)
		}
		data[k] = v[0]
	}

	var buf bytes.Buffer
	if err := report.Generate(&buf, s.store.Snapshot(), report.Request{Format: format, Template: tmpl, Data: data}, s.now()); err != nil {
		s.logger.ErrorContext(r.Context(), "report rendering failed",
			slog.String("format", string(format)),
			slog.String("template", string(tmpl)),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "report rendering failed")
		return
	}

	w.Header().Set("Content-Type", report.ContentType(format))
	if format == report.FormatPDF {
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="tornado-%s.pdf"`, tmpl))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// handleTools lists the catalog, optionally filtered by ?category=.
func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	if cat := r.URL.Query().Get("category"); cat != "" {
		writeJSON(w, http.StatusOK, s.catalog.ByCategory(catalog.Category(cat)))
		return
	}
	writeJSON(w, http.StatusOK, s.catalog.All())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	sf := s.store.Snapshot()
	resp := HealthResponse{
		Status:       "ok",
		Version:      defaults.Version,
		RegistrySize: s.catalog.Size(),
		Features:     len(sf.Features),
		Roles:        len(sf.Roles),
		ScanProfiles: len(sf.ScanProfiles),
	}
	if s.audit != nil {
		st := s.audit.Status()
		resp.AuditEntries = &st.Entries
		if !st.LastEventTime.IsZero() {
			resp.LastAuditEvent = &st.LastEventTime
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
