package controlclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cjrt007/Tornado.Ai/pkg/control"
	"github.com/cjrt007/Tornado.Ai/pkg/defaults"
	"github.com/cjrt007/Tornado.Ai/pkg/httpclient"
	"github.com/cjrt007/Tornado.Ai/pkg/iohelper"
	"github.com/cjrt007/Tornado.Ai/pkg/jsonutil"
	"github.com/cjrt007/Tornado.Ai/pkg/logging"
	"github.com/cjrt007/Tornado.Ai/pkg/tracing"
)

// HTTPTransport talks to the control API over HTTP.
type HTTPTransport struct {
	baseURL string
	client  *http.Client
	tracer  trace.Tracer
	logger  *slog.Logger
}

// HTTPOption configures an HTTPTransport.
type HTTPOption func(*HTTPTransport)

// WithHTTPClient replaces the shared httpclient.Default() client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(t *HTTPTransport) {
		if c != nil {
			t.client = c
		}
	}
}

// WithTracer records a client span per request.
func WithTracer(tr trace.Tracer) HTTPOption {
	return func(t *HTTPTransport) { t.tracer = tr }
}

// WithHTTPLogger sets the logger used for request debug output.
func WithHTTPLogger(l *slog.Logger) HTTPOption {
	return func(t *HTTPTransport) { t.logger = l }
}

// NewHTTPTransport returns a transport rooted at baseURL, e.g.
// "http://127.0.0.1:8080".
func NewHTTPTransport(baseURL string, opts ...HTTPOption) (*HTTPTransport, error) {
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("controlclient: invalid base URL %q", baseURL)
	}
	t := &HTTPTransport{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpclient.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.tracer = tracing.OrNoop(t.tracer)
	t.logger = logging.OrDefault(t.logger)
	return t, nil
}

// errorEnvelope is the API's error body.
type errorEnvelope struct {
	Error   string          `json:"error"`
	Details []control.Issue `json:"details,omitempty"`
}

func (e errorEnvelope) message() string {
	if len(e.Details) == 0 {
		return e.Error
	}
	parts := make([]string, len(e.Details))
	for i, d := range e.Details {
		parts[i] = d.String()
	}
	return e.Error + ": " + strings.Join(parts, "; ")
}

type exchange struct {
	op     string
	method string
	path   string
	body   any
	etag   string
	out    any
}

// do performs one request. It returns the response status and ETag.
func (t *HTTPTransport) do(ctx context.Context, x exchange) (status int, etag string, err error) {
	ctx, span := t.tracer.Start(ctx, x.op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", x.method),
			attribute.String("url.path", x.path),
		),
	)
	defer func() {
		span.SetAttributes(attribute.Int("http.response.status_code", status))
		tracing.RecordError(span, err)
		span.End()
	}()

	var body io.Reader
	if x.body != nil {
		data, err := jsonutil.Marshal(x.body)
		if err != nil {
			return 0, "", &TransportError{Op: x.op, Message: "encoding request", Err: err}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, x.method, t.baseURL+x.path, body)
	if err != nil {
		return 0, "", &TransportError{Op: x.op, Err: err}
	}
	req.Header.Set("Accept", defaults.ContentTypeJSON)
	if body != nil {
		req.Header.Set("Content-Type", defaults.ContentTypeJSON)
	}
	if x.etag != "" {
		req.Header.Set("If-None-Match", x.etag)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return 0, "", &TransportError{Op: x.op, Err: httpclient.Classify(err)}
	}
	defer iohelper.DrainAndClose(resp.Body)

	t.logger.Debug("control api call",
		slog.String("op", x.op),
		slog.String("method", x.method),
		slog.String("path", x.path),
		slog.Int("status", resp.StatusCode),
	)

	etag = resp.Header.Get("ETag")
	if resp.StatusCode == http.StatusNotModified {
		return resp.StatusCode, etag, nil
	}

	data, err := iohelper.ReadBodyStrict(resp.Body, defaults.MaxResponseBody)
	if err != nil {
		return resp.StatusCode, "", &TransportError{Op: x.op, StatusCode: resp.StatusCode, Message: "reading response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		te := &TransportError{Op: x.op, StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var env errorEnvelope
		if jsonutil.Unmarshal(data, &env) == nil && env.Error != "" {
			te.Message = env.message()
		} else if text := strings.TrimSpace(string(data)); text != "" {
			te.Message = text
		}
		return resp.StatusCode, "", te
	}

	if x.out != nil {
		if err := jsonutil.Unmarshal(data, x.out); err != nil {
			return resp.StatusCode, "", &TransportError{Op: x.op, StatusCode: resp.StatusCode, Message: "decoding response", Err: err}
		}
	}
	return resp.StatusCode, etag, nil
}

func (t *HTTPTransport) FetchSurface(ctx context.Context, etag string) (Snapshot, error) {
	var sf control.Surface
	status, newTag, err := t.do(ctx, exchange{
		op:     "fetch control surface",
		method: http.MethodGet,
		path:   defaults.PathControl,
		etag:   etag,
		out:    &sf,
	})
	if err != nil {
		return Snapshot{}, err
	}
	if status == http.StatusNotModified {
		if newTag == "" {
			newTag = etag
		}
		return Snapshot{ETag: newTag, NotModified: true}, nil
	}
	return Snapshot{Surface: sf, ETag: newTag}, nil
}

// UpdateFeatures sends full records rather than patches so that empty
// lists survive the omitempty encoding of patch types. The same holds for
// the other update calls.
func (t *HTTPTransport) UpdateFeatures(ctx context.Context, features []control.FeatureToggle) ([]control.FeatureToggle, error) {
	var out []control.FeatureToggle
	_, _, err := t.do(ctx, exchange{
		op:     "update features",
		method: http.MethodPatch,
		path:   defaults.PathFeatures,
		body: struct {
			Features []control.FeatureToggle `json:"features"`
		}{features},
		out: &out,
	})
	return out, err
}

func (t *HTTPTransport) UpdateRoles(ctx context.Context, roles []control.RoleControl) ([]control.RoleControl, error) {
	var out []control.RoleControl
	_, _, err := t.do(ctx, exchange{
		op:     "update roles",
		method: http.MethodPatch,
		path:   defaults.PathRoles,
		body: struct {
			Roles []control.RoleControl `json:"roles"`
		}{roles},
		out: &out,
	})
	return out, err
}

func (t *HTTPTransport) UpdateScanProfiles(ctx context.Context, scans []control.ScanProfile) ([]control.ScanProfile, error) {
	var out []control.ScanProfile
	_, _, err := t.do(ctx, exchange{
		op:     "update scan profiles",
		method: http.MethodPatch,
		path:   defaults.PathScans,
		body: struct {
			ScanProfiles []control.ScanProfile `json:"scanProfiles"`
		}{scans},
		out: &out,
	})
	return out, err
}

func (t *HTTPTransport) Reset(ctx context.Context) (control.Surface, error) {
	var sf control.Surface
	_, _, err := t.do(ctx, exchange{
		op:     "reset control surface",
		method: http.MethodPost,
		path:   defaults.PathReset,
		out:    &sf,
	})
	return sf, err
}
