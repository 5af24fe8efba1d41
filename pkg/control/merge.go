package control

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/cjrt007/Tornado.Ai/pkg/defaults"
)

func featureKey(f FeatureToggle) string { return f.ID }
func roleKey(r RoleControl) string      { return string(r.Role) }
func scanKey(p ScanProfile) string      { return p.ID }

// batch describes how one collection folds a list of patches.
type batch[R, P any] struct {
	op         string
	collection string
	keyField   string
	key        func(R) string
	patchKey   func(P) string
	insert     func(c *checker, path string, p P, now time.Time) R
	merge      func(existing R, p P, now time.Time) R
	check      func(c *checker, path string, r R)
}

// applyBatch folds updates left to right over a draft copy of current.
// A patch whose key matches a draft record is merged onto it; otherwise it
// is inserted and must carry the full record shape. Each resulting record
// is checked before the next update runs, so later updates observe earlier
// ones. The first failing update aborts the batch; current is never
// touched.
func applyBatch[R, P any](current []R, updates []P, b batch[R, P], now time.Time) ([]R, error) {
	draft := slices.Clone(current)
	for i, u := range updates {
		var c checker
		path := fmt.Sprintf("%s[%d]", b.collection, i)
		k := b.patchKey(u)
		if k == "" {
			c.fail(path+"."+b.keyField, "required")
			return nil, c.err(b.op)
		}
		idx := slices.IndexFunc(draft, func(r R) bool { return b.key(r) == k })

		var rec R
		if idx < 0 {
			rec = b.insert(&c, path, u, now)
		} else {
			rec = b.merge(draft[idx], u, now)
		}
		if c.ok() {
			b.check(&c, path, rec)
		}
		if !c.ok() {
			return nil, c.err(b.op)
		}

		if idx < 0 {
			draft = append(draft, rec)
		} else {
			draft[idx] = rec
		}
	}
	return draft, nil
}

func required[T any](c *checker, path string, v *T) T {
	if v == nil {
		c.fail(path, "required")
		var zero T
		return zero
	}
	return *v
}

func requiredSlice[T any](c *checker, path string, v []T) []T {
	if v == nil {
		c.fail(path, "required")
		return nil
	}
	return slices.Clone(v)
}

func optional[T any](v *T, def T) T {
	if v == nil {
		return def
	}
	return *v
}

// createdAt treats a zero timestamp like an absent one.
func createdAt(v *time.Time, now time.Time) time.Time {
	if v == nil || v.IsZero() {
		return now
	}
	return *v
}

func optionalSlice[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return slices.Clone(v)
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func setSlice[T any](dst *[]T, v []T) {
	if v != nil {
		*dst = slices.Clone(v)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Feature toggles
// ═══════════════════════════════════════════════════════════════════════════

var featureBatch = batch[FeatureToggle, FeatureTogglePatch]{
	op:         "update features",
	collection: "features",
	keyField:   "id",
	key:        featureKey,
	patchKey:   func(p FeatureTogglePatch) string { return p.ID },
	insert:     insertFeature,
	merge:      mergeFeature,
	check:      checkFeature,
}

func insertFeature(c *checker, path string, p FeatureTogglePatch, _ time.Time) FeatureToggle {
	return FeatureToggle{
		ID:              p.ID,
		Label:           required(c, path+".label", p.Label),
		Description:     required(c, path+".description", p.Description),
		Category:        required(c, path+".category", p.Category),
		Enabled:         required(c, path+".enabled", p.Enabled),
		Locked:          optional(p.Locked, false),
		RequiresRestart: optional(p.RequiresRestart, false),
		Tags:            optionalSlice(p.Tags),
	}
}

func mergeFeature(f FeatureToggle, p FeatureTogglePatch, _ time.Time) FeatureToggle {
	set(&f.Label, p.Label)
	set(&f.Description, p.Description)
	set(&f.Category, p.Category)
	set(&f.Enabled, p.Enabled)
	set(&f.Locked, p.Locked)
	set(&f.RequiresRestart, p.RequiresRestart)
	setSlice(&f.Tags, p.Tags)
	return f
}

// ═══════════════════════════════════════════════════════════════════════════
// Role controls
// ═══════════════════════════════════════════════════════════════════════════

var roleBatch = batch[RoleControl, RoleControlPatch]{
	op:         "update roles",
	collection: "roles",
	keyField:   "role",
	key:        roleKey,
	patchKey:   func(p RoleControlPatch) string { return string(p.Role) },
	insert:     insertRole,
	merge:      mergeRole,
	check:      checkRole,
}

func insertRole(c *checker, path string, p RoleControlPatch, _ time.Time) RoleControl {
	r := RoleControl{
		Role:           p.Role,
		DisplayName:    required(c, path+".displayName", p.DisplayName),
		Description:    required(c, path+".description", p.Description),
		Permissions:    requiredSlice(c, path+".permissions", p.Permissions),
		FeatureAccess:  optionalSlice(p.FeatureAccess),
		DefaultLanding: optional(p.DefaultLanding, defaults.DefaultLanding),
	}
	if p.Enforcement == nil {
		c.fail(path+".enforcement", "required")
		return r
	}
	r.Enforcement = Enforcement{
		MFARequired:           required(c, path+".enforcement.mfaRequired", p.Enforcement.MFARequired),
		SessionTimeoutMinutes: required(c, path+".enforcement.sessionTimeoutMinutes", p.Enforcement.SessionTimeoutMinutes),
	}
	return r
}

// mergeRole overlays a patch; enforcement is merged one level deeper so an
// omitted enforcement field keeps its current value.
func mergeRole(r RoleControl, p RoleControlPatch, _ time.Time) RoleControl {
	set(&r.DisplayName, p.DisplayName)
	set(&r.Description, p.Description)
	setSlice(&r.Permissions, p.Permissions)
	setSlice(&r.FeatureAccess, p.FeatureAccess)
	set(&r.DefaultLanding, p.DefaultLanding)
	if e := p.Enforcement; e != nil {
		set(&r.Enforcement.MFARequired, e.MFARequired)
		set(&r.Enforcement.SessionTimeoutMinutes, e.SessionTimeoutMinutes)
	}
	return r
}

// ═══════════════════════════════════════════════════════════════════════════
// Scan profiles
// ═══════════════════════════════════════════════════════════════════════════

var scanBatch = batch[ScanProfile, ScanProfilePatch]{
	op:         "update scan profiles",
	collection: "scanProfiles",
	keyField:   "id",
	key:        scanKey,
	patchKey:   func(p ScanProfilePatch) string { return p.ID },
	insert:     insertScan,
	merge:      mergeScan,
	check:      checkScan,
}

func insertScan(c *checker, path string, p ScanProfilePatch, now time.Time) ScanProfile {
	s := ScanProfile{
		ID:          p.ID,
		Name:        required(c, path+".name", p.Name),
		Category:    required(c, path+".category", p.Category),
		Description: required(c, path+".description", p.Description),
		Targets:     requiredSlice(c, path+".targets", p.Targets),
		Tooling:     requiredSlice(c, path+".tooling", p.Tooling),
		Parameters:  cloneParams(p.Parameters),
		Tags:        optionalSlice(p.Tags),
		Owner:       required(c, path+".owner", p.Owner),
		CreatedAt:   createdAt(p.CreatedAt, now),
		UpdatedAt:   now,
	}

	if p.Schedule == nil {
		c.fail(path+".schedule", "required")
	} else {
		s.Schedule = Schedule{
			Type:              required(c, path+".schedule.type", p.Schedule.Type),
			Cron:              optional(p.Schedule.Cron, ""),
			Timezone:          optional(p.Schedule.Timezone, defaults.DefaultTimezone),
			MaintenanceWindow: cloneWindow(p.Schedule.MaintenanceWindow),
		}
	}

	if p.Guardrails == nil {
		c.fail(path+".guardrails", "required")
	} else {
		g := p.Guardrails
		s.Guardrails = Guardrails{
			ApprovalsRequired: required(c, path+".guardrails.approvalsRequired", g.ApprovalsRequired),
			ApprovalsNeeded:   optional(g.ApprovalsNeeded, defaults.ApprovalsNeeded),
			SafeMode:          required(c, path+".guardrails.safeMode", g.SafeMode),
			MaxParallelTasks:  required(c, path+".guardrails.maxParallelTasks", g.MaxParallelTasks),
			NotifyRoles:       optionalSlice(g.NotifyRoles),
		}
	}
	return s
}

// mergeScan overlays a patch; schedule and guardrails are merged one level
// deeper. createdAt never changes and updatedAt is always refreshed.
func mergeScan(s ScanProfile, p ScanProfilePatch, now time.Time) ScanProfile {
	set(&s.Name, p.Name)
	set(&s.Category, p.Category)
	set(&s.Description, p.Description)
	setSlice(&s.Targets, p.Targets)
	setSlice(&s.Tooling, p.Tooling)
	if p.Parameters != nil {
		s.Parameters = cloneParams(p.Parameters)
	}
	setSlice(&s.Tags, p.Tags)
	set(&s.Owner, p.Owner)

	if sp := p.Schedule; sp != nil {
		set(&s.Schedule.Type, sp.Type)
		set(&s.Schedule.Cron, sp.Cron)
		set(&s.Schedule.Timezone, sp.Timezone)
		if sp.MaintenanceWindow != nil {
			s.Schedule.MaintenanceWindow = cloneWindow(sp.MaintenanceWindow)
		}
	}
	if gp := p.Guardrails; gp != nil {
		set(&s.Guardrails.ApprovalsRequired, gp.ApprovalsRequired)
		set(&s.Guardrails.ApprovalsNeeded, gp.ApprovalsNeeded)
		set(&s.Guardrails.SafeMode, gp.SafeMode)
		set(&s.Guardrails.MaxParallelTasks, gp.MaxParallelTasks)
		setSlice(&s.Guardrails.NotifyRoles, gp.NotifyRoles)
	}

	s.UpdatedAt = now
	return s
}

// ═══════════════════════════════════════════════════════════════════════════
// Deep copies
// ═══════════════════════════════════════════════════════════════════════════

func cloneWindow(w *MaintenanceWindow) *MaintenanceWindow {
	if w == nil {
		return nil
	}
	c := *w
	return &c
}

func cloneParams(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneParams(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return slices.Clone(t)
	case map[string]string:
		return maps.Clone(t)
	default:
		return v
	}
}

func (f FeatureToggle) clone() FeatureToggle {
	f.Tags = slices.Clone(f.Tags)
	return f
}

func (r RoleControl) clone() RoleControl {
	r.Permissions = slices.Clone(r.Permissions)
	r.FeatureAccess = slices.Clone(r.FeatureAccess)
	return r
}

func (p ScanProfile) clone() ScanProfile {
	p.Targets = slices.Clone(p.Targets)
	p.Tooling = slices.Clone(p.Tooling)
	p.Tags = slices.Clone(p.Tags)
	if p.Parameters != nil {
		p.Parameters = cloneParams(p.Parameters)
	}
	p.Schedule.MaintenanceWindow = cloneWindow(p.Schedule.MaintenanceWindow)
	p.Guardrails.NotifyRoles = slices.Clone(p.Guardrails.NotifyRoles)
	return p
}

func cloneAll[T interface{ clone() T }](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	for i, v := range in {
		out[i] = v.clone()
	}
	return out
}

// Clone returns a deep copy of the surface.
func (s Surface) Clone() Surface {
	return Surface{
		Features:     cloneAll(s.Features),
		Roles:        cloneAll(s.Roles),
		ScanProfiles: cloneAll(s.ScanProfiles),
	}
}

// Feature returns the toggle with the given id.
func (s Surface) Feature(id string) (FeatureToggle, bool) {
	i := slices.IndexFunc(s.Features, func(f FeatureToggle) bool { return f.ID == id })
	if i < 0 {
		return FeatureToggle{}, false
	}
	return s.Features[i], true
}

// Role returns the control for the given role.
func (s Surface) Role(role Role) (RoleControl, bool) {
	i := slices.IndexFunc(s.Roles, func(r RoleControl) bool { return r.Role == role })
	if i < 0 {
		return RoleControl{}, false
	}
	return s.Roles[i], true
}

// ScanProfile returns the profile with the given id.
func (s Surface) ScanProfile(id string) (ScanProfile, bool) {
	i := slices.IndexFunc(s.ScanProfiles, func(p ScanProfile) bool { return p.ID == id })
	if i < 0 {
		return ScanProfile{}, false
	}
	return s.ScanProfiles[i], true
}
