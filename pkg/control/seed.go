package control

import "time"

// DefaultFeatures returns the built-in feature toggles.
func DefaultFeatures() []FeatureToggle {
	return []FeatureToggle{
		{
			ID:          "ai.orchestration",
			Label:       "AI Orchestration Engine",
			Description: "Enable the multi-agent orchestration layer for automated campaign execution.",
			Category:    CategoryGeneral,
			Enabled:     true,
			Tags:        []string{"orchestration", "agents"},
		},
		{
			ID:          "ui.advanced-controls",
			Label:       "Advanced UI Control Surface",
			Description: "Expose Nessus-style orchestration controls in the web console.",
			Category:    CategoryUI,
			Enabled:     true,
			Tags:        []string{"ui", "control"},
		},
		{
			ID:          "mcp.streaming-results",
			Label:       "MCP Streaming Results",
			Description: "Stream MCP tool execution events to the client UI for live telemetry.",
			Category:    CategoryMCP,
			Enabled:     true,
			Tags:        []string{"mcp"},
		},
		{
			ID:          "reporting.auto-publish",
			Label:       "Auto Publish Reports",
			Description: "Automatically publish completed reports to the reporting center.",
			Category:    CategoryReporting,
			Enabled:     false,
			Tags:        []string{"reports"},
		},
		{
			ID:          "observability.deep-metrics",
			Label:       "Advanced Metrics Collection",
			Description: "Collect extended telemetry, histograms, and traces for all tool executions.",
			Category:    CategoryObservability,
			Enabled:     true,
			Tags:        []string{"metrics"},
		},
	}
}

// DefaultRoles returns the built-in role controls. The administrator gets
// access to every default feature.
func DefaultRoles() []RoleControl {
	features := DefaultFeatures()
	all := make([]string, len(features))
	for i, f := range features {
		all[i] = f.ID
	}

	return []RoleControl{
		{
			Role:           RoleAdmin,
			DisplayName:    "Administrator",
			Description:    "Full platform access with override privileges.",
			Permissions:    []string{PermissionAll},
			FeatureAccess:  all,
			DefaultLanding: "dashboard",
			Enforcement:    Enforcement{MFARequired: true, SessionTimeoutMinutes: 30},
		},
		{
			Role:           RolePentester,
			DisplayName:    "Offensive Operator",
			Description:    "Execute tooling, manage scans, and access findings.",
			Permissions:    []string{"execute_tools", "manage_scans", "view_reports"},
			FeatureAccess:  []string{"ai.orchestration", "ui.advanced-controls", "mcp.streaming-results"},
			DefaultLanding: "operations",
			Enforcement:    Enforcement{MFARequired: true, SessionTimeoutMinutes: 30},
		},
		{
			Role:           RoleAuditor,
			DisplayName:    "Audit & Compliance",
			Description:    "Read-only access to reports, dashboards, and compliance scans.",
			Permissions:    []string{"view_reports", "view_dashboards"},
			FeatureAccess:  []string{"observability.deep-metrics"},
			DefaultLanding: "reports",
			Enforcement:    Enforcement{MFARequired: true, SessionTimeoutMinutes: 60},
		},
		{
			Role:           RoleViewer,
			DisplayName:    "Stakeholder",
			Description:    "Limited dashboard access for stakeholders and clients.",
			Permissions:    []string{"view_dashboards"},
			FeatureAccess:  []string{"observability.deep-metrics"},
			DefaultLanding: "dashboard",
			Enforcement:    Enforcement{MFARequired: false, SessionTimeoutMinutes: 120},
		},
	}
}

// DefaultScanProfiles returns the built-in scan profiles stamped with now.
func DefaultScanProfiles(now time.Time) []ScanProfile {
	return []ScanProfile{
		{
			ID:          "scan.network.weekly",
			Name:        "Weekly Network Recon",
			Category:    ScanNetwork,
			Description: "Recurring internal and external network mapping with safe concurrency.",
			Targets:     []string{"10.0.0.0/24", "corp.example.com"},
			Tooling:     []string{"nmap_scan.sim", "masscan_scan.sim", "autorecon_scan.sim"},
			Parameters: map[string]any{
				"nmap_scan":      map[string]any{"intensity": "med", "scripts": []any{"vuln"}},
				"masscan_scan":   map[string]any{"rate": float64(2000)},
				"autorecon_scan": map[string]any{"profile": "network-default"},
			},
			Tags: []string{"baseline", "scheduled"},
			Schedule: Schedule{
				Type:              ScheduleScheduled,
				Cron:              "0 2 * * 1",
				Timezone:          "UTC",
				MaintenanceWindow: &MaintenanceWindow{Start: "02:00", DurationMinutes: 180},
			},
			Guardrails: Guardrails{
				ApprovalsRequired: true,
				ApprovalsNeeded:   1,
				SafeMode:          true,
				MaxParallelTasks:  3,
				NotifyRoles:       []Role{RoleAdmin, RolePentester},
			},
			Owner:     "admin",
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:          "scan.webapp.critical",
			Name:        "Critical Web Applications",
			Category:    ScanWebApp,
			Description: "Continuous coverage for production web applications with attack chain guardrails.",
			Targets:     []string{"https://app.example.com", "https://api.example.com"},
			Tooling:     []string{"nuclei_scan.sim", "sqlmap_scan.sim", "gobuster_scan.sim"},
			Parameters: map[string]any{
				"nuclei_scan":   map[string]any{"severity": []any{"critical", "high"}, "templates": []any{"cves"}},
				"sqlmap_scan":   map[string]any{"threads": float64(3)},
				"gobuster_scan": map[string]any{"wordlist": "common.txt", "threads": float64(20)},
			},
			Tags: []string{"continuous", "high-priority"},
			Schedule: Schedule{
				Type:     ScheduleContinuous,
				Timezone: "UTC",
			},
			Guardrails: Guardrails{
				ApprovalsRequired: false,
				ApprovalsNeeded:   0,
				SafeMode:          true,
				MaxParallelTasks:  2,
				NotifyRoles:       []Role{RoleAdmin, RoleAuditor},
			},
			Owner:     "pentester",
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

// DefaultSurface returns the complete built-in surface stamped with now.
func DefaultSurface(now time.Time) Surface {
	return Surface{
		Features:     DefaultFeatures(),
		Roles:        DefaultRoles(),
		ScanProfiles: DefaultScanProfiles(now),
	}
}

// fillDefaults replaces each nil collection of s with the matching one
// from seed.
func fillDefaults(s, seed Surface) Surface {
	if s.Features == nil {
		s.Features = seed.Features
	}
	if s.Roles == nil {
		s.Roles = seed.Roles
	}
	if s.ScanProfiles == nil {
		s.ScanProfiles = seed.ScanProfiles
	}
	return s
}
