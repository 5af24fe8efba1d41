package main

import (
	"fmt"
	"strconv"

	"github.com/cjrt007/Tornado.Ai/pkg/control"
	"github.com/cjrt007/Tornado.Ai/pkg/ui"
)

const timeLayout = "2006-01-02 15:04"

// renderSurface prints one section, or all three when section is empty.
func renderSurface(p *ui.Printer, sf control.Surface, section string) {
	if section == "" {
		p.Title("Control surface", fmt.Sprintf("%d features · %d roles · %d scan profiles",
			len(sf.Features), len(sf.Roles), len(sf.ScanProfiles)))
	}
	if section == "" || section == "features" {
		p.Section("Features")
		renderFeatures(p, sf.Features)
	}
	if section == "" || section == "roles" {
		p.Section("Roles")
		renderRoles(p, sf.Roles)
	}
	if section == "" || section == "scans" {
		p.Section("Scan profiles")
		renderScans(p, sf.ScanProfiles)
	}
}

func renderFeatures(p *ui.Printer, features []control.FeatureToggle) {
	rows := make([][]string, 0, len(features))
	for _, f := range features {
		flags := p.Locked(f.Locked)
		if f.RequiresRestart {
			if flags != "" {
				flags += " "
			}
			flags += p.Badge("restart")
		}
		rows = append(rows, []string{f.ID, string(f.Category), p.Status(f.Enabled), flags, ui.Join(f.Tags)})
	}
	p.Table([]string{"ID", "CATEGORY", "STATUS", "FLAGS", "TAGS"}, rows)
}

func renderRoles(p *ui.Printer, roles []control.RoleControl) {
	rows := make([][]string, 0, len(roles))
	for _, r := range roles {
		rows = append(rows, []string{
			string(r.Role),
			ui.Join(r.Permissions),
			ui.Join(r.FeatureAccess),
			r.DefaultLanding,
			p.Bool(r.Enforcement.MFARequired),
			strconv.Itoa(r.Enforcement.SessionTimeoutMinutes) + "m",
		})
	}
	p.Table([]string{"ROLE", "PERMISSIONS", "FEATURE ACCESS", "LANDING", "MFA", "TIMEOUT"}, rows)
}

func renderScans(p *ui.Printer, scans []control.ScanProfile) {
	rows := make([][]string, 0, len(scans))
	for _, s := range scans {
		schedule := string(s.Schedule.Type)
		if s.Schedule.Cron != "" {
			schedule += " " + s.Schedule.Cron
		}
		safe := ""
		if s.Guardrails.SafeMode {
			safe = p.Badge("safe")
		}
		rows = append(rows, []string{
			s.ID,
			string(s.Category),
			schedule,
			ui.Join(s.Tooling),
			s.Owner,
			safe,
			s.UpdatedAt.UTC().Format(timeLayout),
		})
	}
	p.Table([]string{"ID", "CATEGORY", "SCHEDULE", "TOOLING", "OWNER", "GUARDRAILS", "UPDATED"}, rows)
}
