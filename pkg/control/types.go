package control

import "time"

// FeatureCategory groups feature toggles in the console.
type FeatureCategory string

const (
	CategoryGeneral       FeatureCategory = "general"
	CategoryAuth          FeatureCategory = "auth"
	CategoryMCP           FeatureCategory = "mcp"
	CategoryReporting     FeatureCategory = "reporting"
	CategoryUI            FeatureCategory = "ui"
	CategoryObservability FeatureCategory = "observability"
	CategoryTools         FeatureCategory = "tools"
)

// FeatureCategories lists every valid feature category.
var FeatureCategories = []FeatureCategory{
	CategoryGeneral, CategoryAuth, CategoryMCP, CategoryReporting,
	CategoryUI, CategoryObservability, CategoryTools,
}

// Role is one of the closed set of platform roles.
type Role string

const (
	RoleAdmin     Role = "admin"
	RolePentester Role = "pentester"
	RoleAuditor   Role = "auditor"
	RoleViewer    Role = "viewer"
)

// Roles lists every valid role.
var Roles = []Role{RoleAdmin, RolePentester, RoleAuditor, RoleViewer}

// ScanCategory classifies a scan profile.
type ScanCategory string

const (
	ScanNetwork    ScanCategory = "network"
	ScanWebApp     ScanCategory = "webapp"
	ScanCloud      ScanCategory = "cloud"
	ScanBinary     ScanCategory = "binary"
	ScanCTF        ScanCategory = "ctf"
	ScanOSINT      ScanCategory = "osint"
	ScanCompliance ScanCategory = "compliance"
	ScanHybrid     ScanCategory = "hybrid"
)

// ScanCategories lists every valid scan category.
var ScanCategories = []ScanCategory{
	ScanNetwork, ScanWebApp, ScanCloud, ScanBinary,
	ScanCTF, ScanOSINT, ScanCompliance, ScanHybrid,
}

// ScheduleType says how a scan profile is triggered.
type ScheduleType string

const (
	ScheduleManual     ScheduleType = "manual"
	ScheduleScheduled  ScheduleType = "scheduled"
	ScheduleContinuous ScheduleType = "continuous"
)

// ScheduleTypes lists every valid schedule type.
var ScheduleTypes = []ScheduleType{ScheduleManual, ScheduleScheduled, ScheduleContinuous}

// PermissionAll grants every permission when present in RoleControl.Permissions.
const PermissionAll = "*"

// ═══════════════════════════════════════════════════════════════════════════
// Records
// ═══════════════════════════════════════════════════════════════════════════

// FeatureToggle is a named platform capability switch. Keyed by ID.
type FeatureToggle struct {
	ID              string          `json:"id" yaml:"id"`
	Label           string          `json:"label" yaml:"label"`
	Description     string          `json:"description" yaml:"description"`
	Category        FeatureCategory `json:"category" yaml:"category"`
	Enabled         bool            `json:"enabled" yaml:"enabled"`
	Locked          bool            `json:"locked" yaml:"locked"`
	RequiresRestart bool            `json:"requiresRestart" yaml:"requiresRestart"`
	Tags            []string        `json:"tags" yaml:"tags"`
}

// Enforcement holds the session rules applied to a role.
type Enforcement struct {
	MFARequired           bool `json:"mfaRequired" yaml:"mfaRequired"`
	SessionTimeoutMinutes int  `json:"sessionTimeoutMinutes" yaml:"sessionTimeoutMinutes"`
}

// RoleControl is the access policy for one role. Keyed by Role.
type RoleControl struct {
	Role           Role        `json:"role" yaml:"role"`
	DisplayName    string      `json:"displayName" yaml:"displayName"`
	Description    string      `json:"description" yaml:"description"`
	Permissions    []string    `json:"permissions" yaml:"permissions"`
	FeatureAccess  []string    `json:"featureAccess" yaml:"featureAccess"`
	DefaultLanding string      `json:"defaultLanding" yaml:"defaultLanding"`
	Enforcement    Enforcement `json:"enforcement" yaml:"enforcement"`
}

// MaintenanceWindow is a recurring quiet period for scheduled scans.
type MaintenanceWindow struct {
	Start           string `json:"start" yaml:"start"`
	DurationMinutes int    `json:"durationMinutes" yaml:"durationMinutes"`
}

// Schedule describes when a scan profile runs. Cron is informational only.
type Schedule struct {
	Type              ScheduleType       `json:"type" yaml:"type"`
	Cron              string             `json:"cron,omitempty" yaml:"cron,omitempty"`
	Timezone          string             `json:"timezone" yaml:"timezone"`
	MaintenanceWindow *MaintenanceWindow `json:"maintenanceWindow,omitempty" yaml:"maintenanceWindow,omitempty"`
}

// Guardrails are the safety constraints enforced by the orchestrator.
type Guardrails struct {
	ApprovalsRequired bool   `json:"approvalsRequired" yaml:"approvalsRequired"`
	ApprovalsNeeded   int    `json:"approvalsNeeded" yaml:"approvalsNeeded"`
	SafeMode          bool   `json:"safeMode" yaml:"safeMode"`
	MaxParallelTasks  int    `json:"maxParallelTasks" yaml:"maxParallelTasks"`
	NotifyRoles       []Role `json:"notifyRoles" yaml:"notifyRoles"`
}

// ScanProfile is a stored scan configuration. Keyed by ID.
type ScanProfile struct {
	ID          string         `json:"id" yaml:"id"`
	Name        string         `json:"name" yaml:"name"`
	Category    ScanCategory   `json:"category" yaml:"category"`
	Description string         `json:"description" yaml:"description"`
	Targets     []string       `json:"targets" yaml:"targets"`
	Tooling     []string       `json:"tooling" yaml:"tooling"`
	Parameters  map[string]any `json:"parameters" yaml:"parameters"`
	Tags        []string       `json:"tags" yaml:"tags"`
	Schedule    Schedule       `json:"schedule" yaml:"schedule"`
	Guardrails  Guardrails     `json:"guardrails" yaml:"guardrails"`
	Owner       string         `json:"owner" yaml:"owner"`
	CreatedAt   time.Time      `json:"createdAt" yaml:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt" yaml:"updatedAt"`
}

// Surface is the aggregate control state: the unit of validation and of
// snapshot exchange.
type Surface struct {
	Features     []FeatureToggle `json:"features" yaml:"features"`
	Roles        []RoleControl   `json:"roles" yaml:"roles"`
	ScanProfiles []ScanProfile   `json:"scanProfiles" yaml:"scanProfiles"`
}

// ═══════════════════════════════════════════════════════════════════════════
// Patches
// ═══════════════════════════════════════════════════════════════════════════
//
// A patch carries the record key plus optional values for every other
// field. Nil means "absent". A patch whose key is unknown is an insert and
// must carry every required field.

// FeatureTogglePatch is a partial FeatureToggle keyed by ID.
type FeatureTogglePatch struct {
	ID              string           `json:"id"`
	Label           *string          `json:"label,omitempty"`
	Description     *string          `json:"description,omitempty"`
	Category        *FeatureCategory `json:"category,omitempty"`
	Enabled         *bool            `json:"enabled,omitempty"`
	Locked          *bool            `json:"locked,omitempty"`
	RequiresRestart *bool            `json:"requiresRestart,omitempty"`
	Tags            []string         `json:"tags,omitempty"`
}

// EnforcementPatch sets enforcement fields individually.
type EnforcementPatch struct {
	MFARequired           *bool `json:"mfaRequired,omitempty"`
	SessionTimeoutMinutes *int  `json:"sessionTimeoutMinutes,omitempty"`
}

// RoleControlPatch is a partial RoleControl keyed by Role.
type RoleControlPatch struct {
	Role           Role              `json:"role"`
	DisplayName    *string           `json:"displayName,omitempty"`
	Description    *string           `json:"description,omitempty"`
	Permissions    []string          `json:"permissions,omitempty"`
	FeatureAccess  []string          `json:"featureAccess,omitempty"`
	DefaultLanding *string           `json:"defaultLanding,omitempty"`
	Enforcement    *EnforcementPatch `json:"enforcement,omitempty"`
}

// SchedulePatch sets schedule fields individually. A maintenance window is
// replaced as a whole.
type SchedulePatch struct {
	Type              *ScheduleType      `json:"type,omitempty"`
	Cron              *string            `json:"cron,omitempty"`
	Timezone          *string            `json:"timezone,omitempty"`
	MaintenanceWindow *MaintenanceWindow `json:"maintenanceWindow,omitempty"`
}

// GuardrailsPatch sets guardrail fields individually.
type GuardrailsPatch struct {
	ApprovalsRequired *bool  `json:"approvalsRequired,omitempty"`
	ApprovalsNeeded   *int   `json:"approvalsNeeded,omitempty"`
	SafeMode          *bool  `json:"safeMode,omitempty"`
	MaxParallelTasks  *int   `json:"maxParallelTasks,omitempty"`
	NotifyRoles       []Role `json:"notifyRoles,omitempty"`
}

// ScanProfilePatch is a partial ScanProfile keyed by ID.
type ScanProfilePatch struct {
	ID          string           `json:"id"`
	Name        *string          `json:"name,omitempty"`
	Category    *ScanCategory    `json:"category,omitempty"`
	Description *string          `json:"description,omitempty"`
	Targets     []string         `json:"targets,omitempty"`
	Tooling     []string         `json:"tooling,omitempty"`
	Parameters  map[string]any   `json:"parameters,omitempty"`
	Tags        []string         `json:"tags,omitempty"`
	Schedule    *SchedulePatch   `json:"schedule,omitempty"`
	Guardrails  *GuardrailsPatch `json:"guardrails,omitempty"`
	Owner       *string          `json:"owner,omitempty"`
	CreatedAt   *time.Time       `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time       `json:"updatedAt,omitempty"`
}

// Ptr returns a pointer to v. It keeps patch literals short.
func Ptr[T any](v T) *T { return &v }

// Patch converts a full toggle into a patch that sets every field.
func (f FeatureToggle) Patch() FeatureTogglePatch {
	return FeatureTogglePatch{
		ID:              f.ID,
		Label:           Ptr(f.Label),
		Description:     Ptr(f.Description),
		Category:        Ptr(f.Category),
		Enabled:         Ptr(f.Enabled),
		Locked:          Ptr(f.Locked),
		RequiresRestart: Ptr(f.RequiresRestart),
		Tags:            nonNil(f.Tags),
	}
}

// Patch converts a full role control into a patch that sets every field.
func (r RoleControl) Patch() RoleControlPatch {
	return RoleControlPatch{
		Role:           r.Role,
		DisplayName:    Ptr(r.DisplayName),
		Description:    Ptr(r.Description),
		Permissions:    nonNil(r.Permissions),
		FeatureAccess:  nonNil(r.FeatureAccess),
		DefaultLanding: Ptr(r.DefaultLanding),
		Enforcement: &EnforcementPatch{
			MFARequired:           Ptr(r.Enforcement.MFARequired),
			SessionTimeoutMinutes: Ptr(r.Enforcement.SessionTimeoutMinutes),
		},
	}
}

// Patch converts a full scan profile into a patch that sets every field.
func (p ScanProfile) Patch() ScanProfilePatch {
	sched := &SchedulePatch{
		Type:     Ptr(p.Schedule.Type),
		Timezone: Ptr(p.Schedule.Timezone),
	}
	if p.Schedule.Cron != "" {
		sched.Cron = Ptr(p.Schedule.Cron)
	}
	if p.Schedule.MaintenanceWindow != nil {
		w := *p.Schedule.MaintenanceWindow
		sched.MaintenanceWindow = &w
	}
	params := p.Parameters
	if params == nil {
		params = map[string]any{}
	}
	out := ScanProfilePatch{
		ID:          p.ID,
		Name:        Ptr(p.Name),
		Category:    Ptr(p.Category),
		Description: Ptr(p.Description),
		Targets:     nonNil(p.Targets),
		Tooling:     nonNil(p.Tooling),
		Parameters:  params,
		Tags:        nonNil(p.Tags),
		Schedule:    sched,
		Guardrails: &GuardrailsPatch{
			ApprovalsRequired: Ptr(p.Guardrails.ApprovalsRequired),
			ApprovalsNeeded:   Ptr(p.Guardrails.ApprovalsNeeded),
			SafeMode:          Ptr(p.Guardrails.SafeMode),
			MaxParallelTasks:  Ptr(p.Guardrails.MaxParallelTasks),
			NotifyRoles:       nonNil(p.Guardrails.NotifyRoles),
		},
		Owner: Ptr(p.Owner),
	}
	if !p.CreatedAt.IsZero() {
		out.CreatedAt = Ptr(p.CreatedAt)
	}
	if !p.UpdatedAt.IsZero() {
		out.UpdatedAt = Ptr(p.UpdatedAt)
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
