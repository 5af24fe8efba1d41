package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/cjrt007/Tornado.Ai/pkg/catalog"
	"github.com/cjrt007/Tornado.Ai/pkg/control"
	"github.com/cjrt007/Tornado.Ai/pkg/rbac"
)

// Surface sections accepted by get_control_surface.
const (
	sectionFeatures     = "features"
	sectionRoles        = "roles"
	sectionScanProfiles = "scanProfiles"
)

func (s *Server) registerTools() {
	s.addGetControlSurfaceTool()
	s.addUpdateFeaturesTool()
	s.addUpdateRolesTool()
	s.addUpdateScanProfilesTool()
	s.addResetTool()
	s.addListToolsTool()
	s.addCheckPermissionTool()
}

// patchArray describes an array of partial records keyed by key.
func patchArray(key, description string, properties map[string]any) map[string]any {
	return map[string]any{
		"type":        "array",
		"description": description,
		"items": map[string]any{
			"type":       "object",
			"required":   []string{key},
			"properties": properties,
		},
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// get_control_surface
// ═══════════════════════════════════════════════════════════════════════════

type getSurfaceArgs struct {
	Section string `json:"section"`
}

func (s *Server) addGetControlSurfaceTool() {
	s.mcp.AddTool(
		&mcp.Tool{
			Name:        "get_control_surface",
			Title:       "Get Control Surface",
			Description: "Return the current control surface: feature toggles, role controls and scan profiles. Pass section to get one collection only.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"section": map[string]any{
						"type":        "string",
						"enum":        []string{sectionFeatures, sectionRoles, sectionScanProfiles},
						"description": "Return only this collection.",
					},
				},
			},
			Annotations: &mcp.ToolAnnotations{
				ReadOnlyHint:   true,
				IdempotentHint: true,
				OpenWorldHint:  boolPtr(false),
				Title:          "Get Control Surface",
			},
		},
		s.instrument("get_control_surface", s.handleGetControlSurface),
	)
}

func (s *Server) handleGetControlSurface(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args getSurfaceArgs
	if err := parseArgs(req, &args); err != nil {
		return errorResult(err.Error()), nil
	}
	sf := s.store.Snapshot()
	switch args.Section {
	case "":
		return jsonResult(sf)
	case sectionFeatures:
		return jsonResult(sf.Features)
	case sectionRoles:
		return jsonResult(sf.Roles)
	case sectionScanProfiles:
		return jsonResult(sf.ScanProfiles)
	default:
		return errorResult(fmt.Sprintf("unknown section %q: use %s, %s or %s",
			args.Section, sectionFeatures, sectionRoles, sectionScanProfiles)), nil
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// update_features / update_roles / update_scan_profiles
// ═══════════════════════════════════════════════════════════════════════════

type updateFeaturesArgs struct {
	Features []control.FeatureTogglePatch `json:"features"`
}

func (s *Server) addUpdateFeaturesTool() {
	s.mcp.AddTool(
		&mcp.Tool{
			Name:  "update_features",
			Title: "Update Feature Toggles",
			Description: "Patch feature toggles by id. Only the fields sent change. " +
				"The batch is all-or-nothing; validation issues are returned with their paths.",
			InputSchema: map[string]any{
				"type":     "object",
				"required": []string{"features"},
				"properties": map[string]any{
					"features": patchArray("id", "Feature toggle patches.", map[string]any{
						"id":              map[string]any{"type": "string", "description": "Feature id, e.g. ai.orchestration"},
						"label":           map[string]any{"type": "string"},
						"description":     map[string]any{"type": "string"},
						"category":        map[string]any{"type": "string", "enum": enumOf(control.FeatureCategories)},
						"enabled":         map[string]any{"type": "boolean"},
						"locked":          map[string]any{"type": "boolean"},
						"requiresRestart": map[string]any{"type": "boolean"},
						"tags":            map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					}),
				},
			},
			Annotations: &mcp.ToolAnnotations{
				IdempotentHint:  true,
				DestructiveHint: boolPtr(false),
				OpenWorldHint:   boolPtr(false),
				Title:           "Update Feature Toggles",
			},
		},
		s.instrument("update_features", s.handleUpdateFeatures),
	)
}

func (s *Server) handleUpdateFeatures(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args updateFeaturesArgs
	if err := parseArgs(req, &args); err != nil {
		return errorResult(err.Error()), nil
	}
	if args.Features == nil {
		return errorResult(`"features" array is required`), nil
	}
	sf, err := s.store.UpdateFeatures(args.Features)
	if err != nil {
		s.logRejected(ctx, sectionFeatures, len(args.Features), err)
		return storeErrorResult(err), nil
	}
	return jsonResult(sf.Features)
}

type updateRolesArgs struct {
	Roles []control.RoleControlPatch `json:"roles"`
}

func (s *Server) addUpdateRolesTool() {
	s.mcp.AddTool(
		&mcp.Tool{
			Name:  "update_roles",
			Title: "Update Role Controls",
			Description: "Patch role controls by role (admin, pentester, auditor, viewer). " +
				"Enforcement fields merge individually. Roles cannot be created.",
			InputSchema: map[string]any{
				"type":     "object",
				"required": []string{"roles"},
				"properties": map[string]any{
					"roles": patchArray("role", "Role control patches.", map[string]any{
						"role":           map[string]any{"type": "string", "enum": enumOf(control.Roles)},
						"displayName":    map[string]any{"type": "string"},
						"description":    map[string]any{"type": "string"},
						"permissions":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
						"featureAccess":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
						"defaultLanding": map[string]any{"type": "string"},
						"enforcement": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"mfaRequired":           map[string]any{"type": "boolean"},
								"sessionTimeoutMinutes": map[string]any{"type": "integer", "minimum": 1},
							},
						},
					}),
				},
			},
			Annotations: &mcp.ToolAnnotations{
				IdempotentHint:  true,
				DestructiveHint: boolPtr(false),
				OpenWorldHint:   boolPtr(false),
				Title:           "Update Role Controls",
			},
		},
		s.instrument("update_roles", s.handleUpdateRoles),
	)
}

func (s *Server) handleUpdateRoles(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args updateRolesArgs
	if err := parseArgs(req, &args); err != nil {
		return errorResult(err.Error()), nil
	}
	if args.Roles == nil {
		return errorResult(`"roles" array is required`), nil
	}
	sf, err := s.store.UpdateRoles(args.Roles)
	if err != nil {
		s.logRejected(ctx, sectionRoles, len(args.Roles), err)
		return storeErrorResult(err), nil
	}
	return jsonResult(sf.Roles)
}

type updateScansArgs struct {
	ScanProfiles []control.ScanProfilePatch `json:"scanProfiles"`
}

// scanUpdateResult carries the updated profiles and any tool ids the
// catalog does not know, keyed by profile id.
type scanUpdateResult struct {
	ScanProfiles   []control.ScanProfile `json:"scanProfiles"`
	UnknownTooling map[string][]string   `json:"unknownTooling,omitempty"`
}

func (s *Server) addUpdateScanProfilesTool() {
	s.mcp.AddTool(
		&mcp.Tool{
			Name:  "update_scan_profiles",
			Title: "Update Scan Profiles",
			Description: "Patch scan profiles by id, or create one by sending a complete record with a new id. " +
				"updatedAt is stamped on every change; createdAt is set on creation and never changes.",
			InputSchema: map[string]any{
				"type":     "object",
				"required": []string{"scanProfiles"},
				"properties": map[string]any{
					"scanProfiles": patchArray("id", "Scan profile patches.", map[string]any{
						"id":          map[string]any{"type": "string"},
						"name":        map[string]any{"type": "string"},
						"category":    map[string]any{"type": "string", "enum": enumOf(control.ScanCategories)},
						"description": map[string]any{"type": "string"},
						"targets":     map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
						"tooling":     map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Catalog tool ids, see list_tools."},
						"parameters":  map[string]any{"type": "object"},
						"tags":        map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
						"schedule":    map[string]any{"type": "object"},
						"guardrails":  map[string]any{"type": "object"},
						"owner":       map[string]any{"type": "string"},
					}),
				},
			},
			Annotations: &mcp.ToolAnnotations{
				DestructiveHint: boolPtr(false),
				OpenWorldHint:   boolPtr(false),
				Title:           "Update Scan Profiles",
			},
		},
		s.instrument("update_scan_profiles", s.handleUpdateScanProfiles),
	)
}

func (s *Server) handleUpdateScanProfiles(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args updateScansArgs
	if err := parseArgs(req, &args); err != nil {
		return errorResult(err.Error()), nil
	}
	if args.ScanProfiles == nil {
		return errorResult(`"scanProfiles" array is required`), nil
	}
	sf, err := s.store.UpdateScanProfiles(args.ScanProfiles)
	if err != nil {
		s.logRejected(ctx, sectionScanProfiles, len(args.ScanProfiles), err)
		return storeErrorResult(err), nil
	}

	out := scanUpdateResult{ScanProfiles: sf.ScanProfiles}
	for _, p := range args.ScanProfiles {
		profile, ok := sf.ScanProfile(p.ID)
		if !ok {
			continue
		}
		if unknown := s.catalog.UnknownTooling(profile); len(unknown) > 0 {
			if out.UnknownTooling == nil {
				out.UnknownTooling = make(map[string][]string)
			}
			out.UnknownTooling[p.ID] = unknown
			s.logger.WarnContext(ctx, "scan profile references unknown tooling",
				slog.String("profile", p.ID),
				slog.Any("tooling", unknown),
			)
		}
	}
	return jsonResult(out)
}

func (s *Server) logRejected(ctx context.Context, collection string, patches int, err error) {
	attrs := []slog.Attr{
		slog.String("collection", collection),
		slog.Int("patches", patches),
	}
	if ve, ok := control.AsValidationError(err); ok {
		attrs = append(attrs, slog.Int("issues", len(ve.Issues)))
		s.logger.LogAttrs(ctx, slog.LevelInfo, "control update rejected", attrs...)
		return
	}
	attrs = append(attrs, slog.String("error", err.Error()))
	s.logger.LogAttrs(ctx, slog.LevelError, "control update failed", attrs...)
}

// ═══════════════════════════════════════════════════════════════════════════
// reset_control_surface
// ═══════════════════════════════════════════════════════════════════════════

func (s *Server) addResetTool() {
	s.mcp.AddTool(
		&mcp.Tool{
			Name:        "reset_control_surface",
			Title:       "Reset Control Surface",
			Description: "Discard every change and restore the seed control surface. Returns the restored surface.",
			InputSchema: map[string]any{"type": "object"},
			Annotations: &mcp.ToolAnnotations{
				IdempotentHint:  true,
				DestructiveHint: boolPtr(true),
				OpenWorldHint:   boolPtr(false),
				Title:           "Reset Control Surface",
			},
		},
		s.instrument("reset_control_surface", s.handleReset),
	)
}

func (s *Server) handleReset(ctx context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sf := s.store.Reset()
	s.logger.InfoContext(ctx, "control surface reset", slog.String("via", "mcp"))
	return jsonResult(sf)
}

// ═══════════════════════════════════════════════════════════════════════════
// list_tools
// ═══════════════════════════════════════════════════════════════════════════

type listToolsArgs struct {
	Category string `json:"category"`
}

func (s *Server) addListToolsTool() {
	s.mcp.AddTool(
		&mcp.Tool{
			Name:        "list_tools",
			Title:       "List Simulated Tools",
			Description: "List the simulated security tools scan profiles can reference, optionally filtered by category.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"category": map[string]any{
						"type":        "string",
						"enum":        enumOf(s.catalog.Categories()),
						"description": "Only list tools in this category.",
					},
				},
			},
			Annotations: &mcp.ToolAnnotations{
				ReadOnlyHint:   true,
				IdempotentHint: true,
				OpenWorldHint:  boolPtr(false),
				Title:          "List Simulated Tools",
			},
		},
		s.instrument("list_tools", s.handleListTools),
	)
}

func (s *Server) handleListTools(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args listToolsArgs
	if err := parseArgs(req, &args); err != nil {
		return errorResult(err.Error()), nil
	}
	if args.Category == "" {
		return jsonResult(s.catalog.All())
	}
	return jsonResult(s.catalog.ByCategory(catalog.Category(strings.ToLower(args.Category))))
}

// ═══════════════════════════════════════════════════════════════════════════
// check_permission
// ═══════════════════════════════════════════════════════════════════════════

type checkPermissionArgs struct {
	Role       string `json:"role"`
	Permission string `json:"permission"`
	Feature    string `json:"feature"`
}

// permissionResult answers check_permission. Granted and FeatureAccess are
// set only when the matching argument was given.
type permissionResult struct {
	Role          control.Role      `json:"role"`
	Permissions   []rbac.Permission `json:"permissions"`
	Permission    string            `json:"permission,omitempty"`
	Granted       *bool             `json:"granted,omitempty"`
	Feature       string            `json:"feature,omitempty"`
	FeatureAccess *bool             `json:"featureAccess,omitempty"`
}

func (s *Server) addCheckPermissionTool() {
	s.mcp.AddTool(
		&mcp.Tool{
			Name:  "check_permission",
			Title: "Check Role Permission",
			Description: "Expand a role's effective permissions against the live role controls. " +
				"Pass permission to test one, or feature to test feature access.",
			InputSchema: map[string]any{
				"type":     "object",
				"required": []string{"role"},
				"properties": map[string]any{
					"role":       map[string]any{"type": "string", "enum": enumOf(control.Roles)},
					"permission": map[string]any{"type": "string", "enum": enumOf(rbac.Universe)},
					"feature":    map[string]any{"type": "string", "description": "Feature id to test access to."},
				},
			},
			Annotations: &mcp.ToolAnnotations{
				ReadOnlyHint:   true,
				IdempotentHint: true,
				OpenWorldHint:  boolPtr(false),
				Title:          "Check Role Permission",
			},
		},
		s.instrument("check_permission", s.handleCheckPermission),
	)
}

func (s *Server) handleCheckPermission(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args checkPermissionArgs
	if err := parseArgs(req, &args); err != nil {
		return errorResult(err.Error()), nil
	}
	if args.Role == "" {
		return errorResult("role is required"), nil
	}

	sf := s.store.Snapshot()
	role := control.Role(args.Role)
	perms, err := rbac.ListPermissions(sf, role)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	out := permissionResult{Role: role, Permissions: perms}

	if args.Permission != "" {
		granted, err := rbac.HasPermission(sf, role, rbac.Permission(args.Permission))
		if err != nil {
			return errorResult(err.Error()), nil
		}
		out.Permission = args.Permission
		out.Granted = &granted
	}
	if args.Feature != "" {
		access, err := rbac.CanAccessFeature(sf, role, args.Feature)
		if err != nil {
			return errorResult(err.Error()), nil
		}
		out.Feature = args.Feature
		out.FeatureAccess = &access
	}
	return jsonResult(out)
}

// enumOf converts a closed set of string constants to a schema enum.
func enumOf[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
