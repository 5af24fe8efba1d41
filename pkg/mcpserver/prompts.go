package mcpserver

import (
	"context"
	"fmt"
	"slices"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/cjrt007/Tornado.Ai/pkg/control"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(
		&mcp.Prompt{
			Name:        "review_role_access",
			Description: "Audit one role: effective permissions, feature access and enforcement settings.",
			Arguments: []*mcp.PromptArgument{
				{Name: "role", Description: "Role to review: admin, pentester, auditor or viewer", Required: true},
			},
		},
		func(_ context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
			role := req.Params.Arguments["role"]
			if !slices.Contains(control.Roles, control.Role(role)) {
				return nil, fmt.Errorf("'role' must be one of %v, got %q", control.Roles, role)
			}
			return &mcp.GetPromptResult{
				Description: fmt.Sprintf("Access review: %s", role),
				Messages: []*mcp.PromptMessage{
					{
						Role: "user",
						Content: &mcp.TextContent{
							Text: fmt.Sprintf(`Review the access policy of the %[1]s role.

1. Call check_permission with role %[1]s to list its effective permissions.
2. Call get_control_surface with section "roles" and read its featureAccess,
   defaultLanding and enforcement.
3. For each feature it can reach, call check_permission with the feature id
   to confirm the feature is enabled.
4. Flag anything broader than the role needs, a missing MFA requirement on
   privileged roles, and session timeouts over 60 minutes.

Propose changes as an update_roles batch but do not apply it.`, role),
						},
					},
				},
			}, nil
		},
	)

	s.mcp.AddPrompt(
		&mcp.Prompt{
			Name:        "draft_scan_profile",
			Description: "Draft a new scan profile from the tool catalog for a target and category.",
			Arguments: []*mcp.PromptArgument{
				{Name: "target", Description: "Target host, CIDR or URL", Required: true},
				{Name: "category", Description: "Scan category, e.g. network or webapp", Required: false},
			},
		},
		func(_ context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
			target := req.Params.Arguments["target"]
			if target == "" {
				return nil, fmt.Errorf("'target' argument is required")
			}
			category := req.Params.Arguments["category"]
			if category == "" {
				category = string(control.ScanNetwork)
			}
			return &mcp.GetPromptResult{
				Description: fmt.Sprintf("Scan profile draft: %s", target),
				Messages: []*mcp.PromptMessage{
					{
						Role: "user",
						Content: &mcp.TextContent{
							Text: fmt.Sprintf(`Draft a %[2]s scan profile for %[1]s.

1. Call list_tools with category %[2]s and pick the tools that fit.
2. Call get_control_surface with section "scanProfiles" and reuse the
   schedule and guardrail conventions of existing profiles.
3. Create the profile with update_scan_profiles. Send a complete record:
   id, name, category, description, targets, tooling, parameters, tags,
   schedule, guardrails and owner. Keep safeMode on.
4. Report any unknownTooling warnings in the result.`, target, category),
						},
					},
				},
			}, nil
		},
	)
}
