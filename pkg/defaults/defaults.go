// Package defaults provides canonical default values for the entire codebase.
// This is the single source of truth for runtime configuration defaults.
//
// Usage:
//
//	cfg.Server.Port = defaults.ServerPort
//	req.Header.Set("Content-Type", defaults.ContentTypeJSON)
//
// Do not hardcode ports, limits or content types anywhere else.
// Reference the appropriate constant from this package instead.
package defaults

import "fmt"

// Version is the current Tornado version
const Version = "0.4.0"

// ============================================================================
// TOOL IDENTITY
// ============================================================================

const (
	// ToolName is the binary and service name
	ToolName = "tornado"

	// ToolNameDisplay is the human readable product name
	ToolNameDisplay = "Tornado.Ai"

	// ServiceName is the default OpenTelemetry service name
	ServiceName = "tornado-control"
)

// UserAgent returns the User-Agent sent by the control client.
func UserAgent() string {
	return fmt.Sprintf("%s/%s", ToolName, Version)
}

// ============================================================================
// SERVER SETTINGS
// ============================================================================
//
// The defaults mirror the bootstrap values of the web console backend.
// ============================================================================

const (
	// ServerHost is the default bind address (0.0.0.0)
	ServerHost = "0.0.0.0"

	// ServerPort is the default listen port (8080)
	ServerPort = 8080

	// ClientBaseURL is where the control client looks for the API by default
	ClientBaseURL = "http://127.0.0.1:8080"

	// LogLevel is the default slog level name
	LogLevel = "info"
)

// ============================================================================
// API PATHS
// ============================================================================

const (
	// PathControl is the control surface snapshot endpoint
	PathControl = "/api/control"

	// PathFeatures is the feature toggle patch endpoint
	PathFeatures = PathControl + "/features"

	// PathRoles is the role control patch endpoint
	PathRoles = PathControl + "/roles"

	// PathScans is the scan profile patch endpoint
	PathScans = PathControl + "/scans"

	// PathReset restores the seed surface
	PathReset = PathControl + "/reset"

	// PathReport renders the surface as a report
	PathReport = PathControl + "/report"

	// PathTools lists the simulated tool catalog
	PathTools = "/api/tools"

	// PathHealth is the liveness endpoint
	PathHealth = "/api/health"

	// PathMetrics is the Prometheus scrape endpoint
	PathMetrics = "/metrics"

	// PathMCP mounts the streamable MCP transport
	PathMCP = "/mcp"
)

// ============================================================================
// CONTENT TYPES
// ============================================================================

const (
	// ContentTypeJSON for JSON request/response bodies
	ContentTypeJSON = "application/json"

	// ContentTypeHTML for rendered reports
	ContentTypeHTML = "text/html; charset=utf-8"

	// ContentTypePDF for rendered reports
	ContentTypePDF = "application/pdf"
)

// ============================================================================
// BODY LIMITS
// ============================================================================

const (
	// MaxRequestBody caps PATCH bodies accepted by the API (1MB)
	MaxRequestBody int64 = 1024 * 1024

	// MaxResponseBody caps bodies read by the control client (8MB)
	MaxResponseBody int64 = 8 * 1024 * 1024
)

// ============================================================================
// CONTROL SURFACE LIMITS
// ============================================================================

const (
	// DefaultLanding is the landing page assigned when a role omits one
	DefaultLanding = "dashboard"

	// DefaultTimezone is the schedule timezone assigned when omitted
	DefaultTimezone = "UTC"

	// ApprovalsNeeded is the default approval count for guarded scans
	ApprovalsNeeded = 1

	// MaxApprovalsNeeded is the upper bound for guardrails.approvalsNeeded
	MaxApprovalsNeeded = 5
)
