package control

import (
	"fmt"
	"slices"

	"github.com/cjrt007/Tornado.Ai/pkg/defaults"
)

// checker accumulates issues so a caller sees every problem at once.
type checker struct {
	issues []Issue
}

func (c *checker) fail(path, format string, args ...any) {
	c.issues = append(c.issues, Issue{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (c *checker) ok() bool { return len(c.issues) == 0 }

func (c *checker) err(op string) error {
	if c.ok() {
		return nil
	}
	return &ValidationError{Op: op, Issues: c.issues}
}

func oneOf[T comparable](c *checker, path string, v T, allowed []T) {
	if !slices.Contains(allowed, v) {
		c.fail(path, "invalid value %q (allowed: %v)", fmt.Sprint(v), allowed)
	}
}

func checkFeature(c *checker, path string, f FeatureToggle) {
	if f.ID == "" {
		c.fail(path+".id", "required")
	}
	oneOf(c, path+".category", f.Category, FeatureCategories)
}

func checkRole(c *checker, path string, r RoleControl) {
	oneOf(c, path+".role", r.Role, Roles)
	if r.Enforcement.SessionTimeoutMinutes <= 0 {
		c.fail(path+".enforcement.sessionTimeoutMinutes", "must be a positive integer, got %d", r.Enforcement.SessionTimeoutMinutes)
	}
}

func checkScan(c *checker, path string, p ScanProfile) {
	if p.ID == "" {
		c.fail(path+".id", "required")
	}
	oneOf(c, path+".category", p.Category, ScanCategories)
	oneOf(c, path+".schedule.type", p.Schedule.Type, ScheduleTypes)
	if w := p.Schedule.MaintenanceWindow; w != nil && w.DurationMinutes <= 0 {
		c.fail(path+".schedule.maintenanceWindow.durationMinutes", "must be a positive integer, got %d", w.DurationMinutes)
	}
	g := p.Guardrails
	if g.ApprovalsNeeded < 0 || g.ApprovalsNeeded > defaults.MaxApprovalsNeeded {
		c.fail(path+".guardrails.approvalsNeeded", "must be between 0 and %d, got %d", defaults.MaxApprovalsNeeded, g.ApprovalsNeeded)
	}
	if g.MaxParallelTasks <= 0 {
		c.fail(path+".guardrails.maxParallelTasks", "must be a positive integer, got %d", g.MaxParallelTasks)
	}
	for i, r := range g.NotifyRoles {
		oneOf(c, fmt.Sprintf("%s.guardrails.notifyRoles[%d]", path, i), r, Roles)
	}
	if p.CreatedAt.IsZero() {
		c.fail(path+".createdAt", "required")
	}
	if p.UpdatedAt.IsZero() {
		c.fail(path+".updatedAt", "required")
	}
}

func checkUnique[T any](c *checker, collection string, items []T, keyOf func(T) string) {
	seen := make(map[string]int, len(items))
	for i, item := range items {
		k := keyOf(item)
		if first, dup := seen[k]; dup {
			c.fail(fmt.Sprintf("%s[%d]", collection, i), "duplicate key %q (first at index %d)", k, first)
			continue
		}
		seen[k] = i
	}
}

func checkSurface(c *checker, s Surface) {
	for i, f := range s.Features {
		checkFeature(c, fmt.Sprintf("features[%d]", i), f)
	}
	for i, r := range s.Roles {
		checkRole(c, fmt.Sprintf("roles[%d]", i), r)
	}
	for i, p := range s.ScanProfiles {
		checkScan(c, fmt.Sprintf("scanProfiles[%d]", i), p)
	}
	checkUnique(c, "features", s.Features, featureKey)
	checkUnique(c, "roles", s.Roles, roleKey)
	checkUnique(c, "scanProfiles", s.ScanProfiles, scanKey)
}

// Validate checks a whole surface and returns a *ValidationError listing
// every issue, or nil.
func Validate(s Surface) error {
	var c checker
	checkSurface(&c, s)
	return c.err("validate")
}
