// Package duration provides canonical time constants for the entire codebase.
// This is the single source of truth for time-based configuration.
//
// Usage:
//
//	ctx, cancel := context.WithTimeout(ctx, duration.ShutdownGrace)
//	client := httpclient.New(httpclient.WithTimeout(duration.HTTPAPI))
//
// Do not hardcode time.Duration values like `30 * time.Second` anywhere.
package duration

import "time"

// ============================================================================
// HTTP CLIENT TIMEOUTS
// ============================================================================

const (
	// HTTPHealthCheck is the timeout for one health check (5s)
	HTTPHealthCheck = 5 * time.Second
	// HealthInterval is the pause between readiness checks (500ms)
	HealthInterval = 500 * time.Millisecond
	// HealthWait is how long the CLI waits for the API to come up (30s)
	HealthWait = 30 * time.Second

	// HTTPAPI is for control API calls (15s)
	HTTPAPI = 15 * time.Second

	// DialTimeout bounds connection establishment (10s)
	DialTimeout = 10 * time.Second

	// IdleConn is how long idle client connections stay pooled (90s)
	IdleConn = 90 * time.Second
)

// ============================================================================
// HTTP SERVER TIMEOUTS
// ============================================================================

const (
	// ReadHeaderTimeout guards against slowloris clients (10s)
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout bounds reading a full request (30s)
	ReadTimeout = 30 * time.Second

	// WriteTimeout bounds writing a response; zero for streaming MCP (0)
	WriteTimeout = 0

	// IdleTimeout is the server keep-alive window (120s)
	IdleTimeout = 120 * time.Second

	// ShutdownGrace is how long in-flight requests get on shutdown (10s)
	ShutdownGrace = 10 * time.Second

	// CORSMaxAge is the preflight cache lifetime (1h)
	CORSMaxAge = time.Hour
)

// ============================================================================
// TELEMETRY
// ============================================================================

const (
	// ExporterTimeout bounds OTLP exports (10s)
	ExporterTimeout = 10 * time.Second

	// TracerShutdown bounds flushing spans on exit (5s)
	TracerShutdown = 5 * time.Second
)
