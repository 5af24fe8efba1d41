package control_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cjrt007/Tornado.Ai/pkg/control"
	"github.com/cjrt007/Tornado.Ai/pkg/jsonutil"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newStore(t *testing.T, opts ...control.Option) *control.Store {
	t.Helper()
	s, err := control.New(opts...)
	require.NoError(t, err)
	return s
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := jsonutil.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func TestNewSeedsDefaults(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	snap := s.Snapshot()

	require.Len(t, snap.Features, 5)
	require.Len(t, snap.Roles, 4)
	require.Len(t, snap.ScanProfiles, 2)

	admin, ok := snap.Role(control.RoleAdmin)
	require.True(t, ok)
	assert.Equal(t, []string{control.PermissionAll}, admin.Permissions)
	assert.Len(t, admin.FeatureAccess, 5)

	weekly, ok := snap.ScanProfile("scan.network.weekly")
	require.True(t, ok)
	require.NotNil(t, weekly.Schedule.MaintenanceWindow)
	assert.Equal(t, 180, weekly.Schedule.MaintenanceWindow.DurationMinutes)
	assert.Equal(t, []control.Role{control.RoleAdmin, control.RolePentester}, weekly.Guardrails.NotifyRoles)
}

func TestResetIsIdempotent(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	_, err := s.UpdateFeatures([]control.FeatureTogglePatch{{ID: "ai.orchestration", Enabled: control.Ptr(false)}})
	require.NoError(t, err)

	first := mustJSON(t, s.Reset())
	time.Sleep(2 * time.Millisecond)
	second := mustJSON(t, s.Reset())

	assert.Equal(t, first, second)
	assert.Equal(t, first, mustJSON(t, s.Snapshot()))

	f, ok := s.Snapshot().Feature("ai.orchestration")
	require.True(t, ok)
	assert.True(t, f.Enabled)
}

func TestResetIgnoresClockAdvance(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	s := newStore(t, control.WithClock(clock.Now))

	first := mustJSON(t, s.Reset())
	clock.Advance(time.Hour)
	assert.Equal(t, first, mustJSON(t, s.Reset()))
}

func TestPatchPreservesSiblingEnforcementField(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	got, err := s.UpdateRoles([]control.RoleControlPatch{{
		Role:        control.RoleViewer,
		Enforcement: &control.EnforcementPatch{MFARequired: control.Ptr(true)},
	}})
	require.NoError(t, err)

	viewer, ok := got.Role(control.RoleViewer)
	require.True(t, ok)
	assert.Equal(t, control.Enforcement{MFARequired: true, SessionTimeoutMinutes: 120}, viewer.Enforcement)
}

func TestInsertRequiresFullShape(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	before := mustJSON(t, s.Snapshot().Features)

	_, err := s.UpdateFeatures([]control.FeatureTogglePatch{{ID: "new.feature"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, control.ErrValidation))

	ve, ok := control.AsValidationError(err)
	require.True(t, ok)
	paths := make([]string, 0, len(ve.Issues))
	for _, issue := range ve.Issues {
		paths = append(paths, issue.Path)
	}
	assert.ElementsMatch(t, []string{
		"features[0].label",
		"features[0].description",
		"features[0].category",
		"features[0].enabled",
	}, paths)

	assert.Equal(t, before, mustJSON(t, s.Snapshot().Features))
}

func TestInsertAppliesDefaults(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	got, err := s.UpdateFeatures([]control.FeatureTogglePatch{{
		ID:          "tools.sandbox",
		Label:       control.Ptr("Tool Sandbox"),
		Description: control.Ptr("Run tools in an isolated sandbox."),
		Category:    control.Ptr(control.CategoryTools),
		Enabled:     control.Ptr(true),
	}})
	require.NoError(t, err)

	require.Len(t, got.Features, 6)
	f := got.Features[5]
	assert.Equal(t, "tools.sandbox", f.ID)
	assert.False(t, f.Locked)
	assert.False(t, f.RequiresRestart)
	assert.NotNil(t, f.Tags)
	assert.Empty(t, f.Tags)
}

func TestInsertFeatureRequiresID(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	_, err := s.UpdateFeatures([]control.FeatureTogglePatch{{
		Label:       control.Ptr("Nameless"),
		Description: control.Ptr("No key."),
		Category:    control.Ptr(control.CategoryTools),
		Enabled:     control.Ptr(true),
	}})
	ve, ok := control.AsValidationError(err)
	require.True(t, ok, "expected validation error, got %v", err)
	require.Len(t, ve.Issues, 1)
	assert.Equal(t, "features[0].id", ve.Issues[0].Path)
	assert.Len(t, s.Snapshot().Features, 5)
}

func TestInsertRoleRejectsUnknownRole(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	_, err := s.UpdateRoles([]control.RoleControlPatch{{
		Role:        "superuser",
		DisplayName: control.Ptr("Super"),
		Description: control.Ptr("Everything."),
		Permissions: []string{"*"},
		Enforcement: &control.EnforcementPatch{MFARequired: control.Ptr(true), SessionTimeoutMinutes: control.Ptr(10)},
	}})
	require.ErrorIs(t, err, control.ErrValidation)
	assert.Len(t, s.Snapshot().Roles, 4)
}

func TestUpdatedAtRefresh(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	s := newStore(t, control.WithClock(clock.Now))

	before, ok := s.Snapshot().ScanProfile("scan.webapp.critical")
	require.True(t, ok)
	t0 := before.UpdatedAt

	clock.Advance(time.Minute)
	got, err := s.UpdateScanProfiles([]control.ScanProfilePatch{{ID: "scan.webapp.critical", Tags: []string{"continuous"}}})
	require.NoError(t, err)

	after, ok := got.ScanProfile("scan.webapp.critical")
	require.True(t, ok)
	assert.True(t, after.UpdatedAt.After(t0))
	assert.Equal(t, before.CreatedAt, after.CreatedAt)
}

func TestCreatedAtIsImmutableOnMerge(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	s := newStore(t, control.WithClock(clock.Now))
	before, _ := s.Snapshot().ScanProfile("scan.network.weekly")

	clock.Advance(time.Hour)
	forged := time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)
	got, err := s.UpdateScanProfiles([]control.ScanProfilePatch{{ID: "scan.network.weekly", CreatedAt: &forged}})
	require.NoError(t, err)

	after, _ := got.ScanProfile("scan.network.weekly")
	assert.Equal(t, before.CreatedAt, after.CreatedAt)
	assert.Equal(t, clock.Now(), after.UpdatedAt)
}

func TestSequentialFoldLaterUpdateWins(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	got, err := s.UpdateFeatures([]control.FeatureTogglePatch{
		{ID: "reporting.auto-publish", Enabled: control.Ptr(false)},
		{ID: "reporting.auto-publish", Enabled: control.Ptr(true)},
	})
	require.NoError(t, err)

	f, ok := got.Feature("reporting.auto-publish")
	require.True(t, ok)
	assert.True(t, f.Enabled)
}

func TestSequentialFoldSeesEarlierInsert(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	got, err := s.UpdateFeatures([]control.FeatureTogglePatch{
		{
			ID:          "auth.sso",
			Label:       control.Ptr("Single Sign-On"),
			Description: control.Ptr("Federated login."),
			Category:    control.Ptr(control.CategoryAuth),
			Enabled:     control.Ptr(false),
		},
		{ID: "auth.sso", Enabled: control.Ptr(true)},
	})
	require.NoError(t, err)
	require.Len(t, got.Features, 6)

	f, _ := got.Feature("auth.sso")
	assert.True(t, f.Enabled)
	assert.Equal(t, "Single Sign-On", f.Label)
}

func TestBatchIsAllOrNothing(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	before := mustJSON(t, s.Snapshot())

	_, err := s.UpdateFeatures([]control.FeatureTogglePatch{
		{
			ID:          "auth.sso",
			Label:       control.Ptr("Single Sign-On"),
			Description: control.Ptr("Federated login."),
			Category:    control.Ptr(control.CategoryAuth),
			Enabled:     control.Ptr(true),
		},
		{ID: "ui.advanced-controls", Category: control.Ptr(control.FeatureCategory("bogus"))},
	})
	require.ErrorIs(t, err, control.ErrValidation)

	assert.Equal(t, before, mustJSON(t, s.Snapshot()))
	_, found := s.Snapshot().Feature("auth.sso")
	assert.False(t, found)
}

func TestViewerEnforcementEndToEnd(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	got, err := s.UpdateRoles([]control.RoleControlPatch{{
		Role: control.RoleViewer,
		Enforcement: &control.EnforcementPatch{
			MFARequired:           control.Ptr(true),
			SessionTimeoutMinutes: control.Ptr(45),
		},
	}})
	require.NoError(t, err)

	viewer, ok := got.Role(control.RoleViewer)
	require.True(t, ok)
	assert.True(t, viewer.Enforcement.MFARequired)
	assert.Equal(t, 45, viewer.Enforcement.SessionTimeoutMinutes)

	seed, _ := control.DefaultSurface(time.Now()).Role(control.RoleViewer)
	assert.Equal(t, seed.DisplayName, viewer.DisplayName)
	assert.Equal(t, seed.Permissions, viewer.Permissions)
	assert.Equal(t, seed.FeatureAccess, viewer.FeatureAccess)
}

func TestScanScheduleAndGuardrailsMergeFieldByField(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	got, err := s.UpdateScanProfiles([]control.ScanProfilePatch{{
		ID:         "scan.network.weekly",
		Schedule:   &control.SchedulePatch{Timezone: control.Ptr("Europe/Berlin")},
		Guardrails: &control.GuardrailsPatch{MaxParallelTasks: control.Ptr(5)},
	}})
	require.NoError(t, err)

	p, _ := got.ScanProfile("scan.network.weekly")
	assert.Equal(t, control.ScheduleScheduled, p.Schedule.Type)
	assert.Equal(t, "0 2 * * 1", p.Schedule.Cron)
	assert.Equal(t, "Europe/Berlin", p.Schedule.Timezone)
	require.NotNil(t, p.Schedule.MaintenanceWindow)
	assert.Equal(t, "02:00", p.Schedule.MaintenanceWindow.Start)

	assert.True(t, p.Guardrails.ApprovalsRequired)
	assert.Equal(t, 1, p.Guardrails.ApprovalsNeeded)
	assert.Equal(t, 5, p.Guardrails.MaxParallelTasks)
	assert.Equal(t, []control.Role{control.RoleAdmin, control.RolePentester}, p.Guardrails.NotifyRoles)
}

func TestScanProfileInsert(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	s := newStore(t, control.WithClock(clock.Now))
	clock.Advance(time.Minute)

	got, err := s.UpdateScanProfiles([]control.ScanProfilePatch{{
		ID:          "scan.cloud.audit",
		Name:        control.Ptr("Cloud Audit"),
		Category:    control.Ptr(control.ScanCloud),
		Description: control.Ptr("Monthly cloud posture review."),
		Targets:     []string{"aws:prod"},
		Tooling:     []string{"prowler_assess.sim"},
		Schedule:    &control.SchedulePatch{Type: control.Ptr(control.ScheduleManual)},
		Guardrails: &control.GuardrailsPatch{
			ApprovalsRequired: control.Ptr(true),
			SafeMode:          control.Ptr(true),
			MaxParallelTasks:  control.Ptr(1),
		},
		Owner: control.Ptr("auditor"),
	}})
	require.NoError(t, err)

	p, ok := got.ScanProfile("scan.cloud.audit")
	require.True(t, ok)
	assert.Equal(t, "UTC", p.Schedule.Timezone)
	assert.Equal(t, 1, p.Guardrails.ApprovalsNeeded)
	assert.Empty(t, p.Guardrails.NotifyRoles)
	assert.NotNil(t, p.Parameters)
	assert.Equal(t, clock.Now(), p.CreatedAt)
	assert.Equal(t, clock.Now(), p.UpdatedAt)
}

func TestScanProfileInsertZeroCreatedAtIsAbsent(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	s := newStore(t, control.WithClock(clock.Now))

	p := s.Snapshot().ScanProfiles[0].Patch()
	p.ID = "scan.network.copy"
	p.CreatedAt = control.Ptr(time.Time{})
	got, err := s.UpdateScanProfiles([]control.ScanProfilePatch{p})
	require.NoError(t, err)

	inserted, ok := got.ScanProfile("scan.network.copy")
	require.True(t, ok)
	assert.Equal(t, clock.Now(), inserted.CreatedAt)
}

func TestScanProfileValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		patch control.ScanProfilePatch
		path  string
	}{
		{
			name:  "approvals above range",
			patch: control.ScanProfilePatch{ID: "scan.network.weekly", Guardrails: &control.GuardrailsPatch{ApprovalsNeeded: control.Ptr(6)}},
			path:  "scanProfiles[0].guardrails.approvalsNeeded",
		},
		{
			name:  "approvals below range",
			patch: control.ScanProfilePatch{ID: "scan.network.weekly", Guardrails: &control.GuardrailsPatch{ApprovalsNeeded: control.Ptr(-1)}},
			path:  "scanProfiles[0].guardrails.approvalsNeeded",
		},
		{
			name:  "zero parallel tasks",
			patch: control.ScanProfilePatch{ID: "scan.network.weekly", Guardrails: &control.GuardrailsPatch{MaxParallelTasks: control.Ptr(0)}},
			path:  "scanProfiles[0].guardrails.maxParallelTasks",
		},
		{
			name: "empty maintenance window",
			patch: control.ScanProfilePatch{ID: "scan.webapp.critical", Schedule: &control.SchedulePatch{
				MaintenanceWindow: &control.MaintenanceWindow{Start: "01:00", DurationMinutes: 0},
			}},
			path: "scanProfiles[0].schedule.maintenanceWindow.durationMinutes",
		},
		{
			name:  "unknown schedule type",
			patch: control.ScanProfilePatch{ID: "scan.webapp.critical", Schedule: &control.SchedulePatch{Type: control.Ptr(control.ScheduleType("hourly"))}},
			path:  "scanProfiles[0].schedule.type",
		},
		{
			name:  "unknown notify role",
			patch: control.ScanProfilePatch{ID: "scan.webapp.critical", Guardrails: &control.GuardrailsPatch{NotifyRoles: []control.Role{"root"}}},
			path:  "scanProfiles[0].guardrails.notifyRoles[0]",
		},
		{
			name:  "missing key",
			patch: control.ScanProfilePatch{Name: control.Ptr("nameless")},
			path:  "scanProfiles[0].id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := newStore(t)
			before := mustJSON(t, s.Snapshot())

			_, err := s.UpdateScanProfiles([]control.ScanProfilePatch{tt.patch})
			ve, ok := control.AsValidationError(err)
			require.True(t, ok, "expected validation error, got %v", err)
			require.NotEmpty(t, ve.Issues)
			assert.Equal(t, tt.path, ve.Issues[0].Path)
			assert.Equal(t, before, mustJSON(t, s.Snapshot()))
		})
	}
}

func TestRoleSessionTimeoutMustBePositive(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	_, err := s.UpdateRoles([]control.RoleControlPatch{{
		Role:        control.RoleAuditor,
		Enforcement: &control.EnforcementPatch{SessionTimeoutMinutes: control.Ptr(0)},
	}})
	require.ErrorIs(t, err, control.ErrValidation)

	auditor, _ := s.Snapshot().Role(control.RoleAuditor)
	assert.Equal(t, 60, auditor.Enforcement.SessionTimeoutMinutes)
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	snap := s.Snapshot()
	snap.Features[0].Tags[0] = "mutated"
	snap.Roles[0].Permissions[0] = "mutated"
	snap.ScanProfiles[0].Parameters["nmap_scan"].(map[string]any)["intensity"] = "mutated"
	snap.ScanProfiles[0].Schedule.MaintenanceWindow.Start = "mutated"

	fresh := s.Snapshot()
	assert.Equal(t, "orchestration", fresh.Features[0].Tags[0])
	assert.Equal(t, control.PermissionAll, fresh.Roles[0].Permissions[0])
	assert.Equal(t, "med", fresh.ScanProfiles[0].Parameters["nmap_scan"].(map[string]any)["intensity"])
	assert.Equal(t, "02:00", fresh.ScanProfiles[0].Schedule.MaintenanceWindow.Start)
}

func TestPatchSlicesAreNotAliased(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	tags := []string{"one"}
	_, err := s.UpdateFeatures([]control.FeatureTogglePatch{{ID: "mcp.streaming-results", Tags: tags}})
	require.NoError(t, err)

	tags[0] = "mutated"
	f, _ := s.Snapshot().Feature("mcp.streaming-results")
	assert.Equal(t, []string{"one"}, f.Tags)
}

func TestWithInitialFallsBackPerCollection(t *testing.T) {
	t.Parallel()

	initial := control.Surface{
		Features: []control.FeatureToggle{{
			ID: "only.one", Label: "Only", Description: "Single toggle.",
			Category: control.CategoryGeneral, Enabled: true, Tags: []string{},
		}},
	}
	s := newStore(t, control.WithInitial(initial))
	snap := s.Snapshot()

	require.Len(t, snap.Features, 1)
	assert.Len(t, snap.Roles, 4)
	assert.Len(t, snap.ScanProfiles, 2)

	reset := s.Reset()
	assert.Len(t, reset.Features, 5)
}

func TestWithInitialRejectsInvalidState(t *testing.T) {
	t.Parallel()

	_, err := control.New(control.WithInitial(control.Surface{
		Roles: []control.RoleControl{{Role: control.RoleViewer, Enforcement: control.Enforcement{SessionTimeoutMinutes: -5}}},
	}))
	require.ErrorIs(t, err, control.ErrValidation)
}

func TestWithInitialRejectsDuplicateKeys(t *testing.T) {
	t.Parallel()

	dup := control.DefaultFeatures()
	dup = append(dup, dup[0])
	_, err := control.New(control.WithInitial(control.Surface{Features: dup}))
	ve, ok := control.AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "features[5]", ve.Issues[0].Path)
}

func TestWithSeedDrivesReset(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	seed := control.Surface{ScanProfiles: control.DefaultScanProfiles(time.Time{})[:1]}
	s := newStore(t, control.WithSeed(seed), control.WithClock(clock.Now))

	snap := s.Reset()
	require.Len(t, snap.ScanProfiles, 1)
	assert.Equal(t, clock.Now(), snap.ScanProfiles[0].CreatedAt)
	assert.Len(t, snap.Features, 5)
}

type recordingObserver struct {
	mu       sync.Mutex
	updates  []string
	failures int
	sizes    [3]int
}

func (o *recordingObserver) ObserveUpdate(collection string, patches int, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.updates = append(o.updates, fmt.Sprintf("%s:%d", collection, patches))
	if err != nil {
		o.failures++
	}
}

func (o *recordingObserver) ObserveSize(features, roles, scans int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sizes = [3]int{features, roles, scans}
}

func TestObserverReceivesUpdates(t *testing.T) {
	t.Parallel()

	obs := &recordingObserver{}
	s := newStore(t, control.WithObserver(obs))
	assert.Equal(t, [3]int{5, 4, 2}, obs.sizes)

	_, err := s.UpdateFeatures([]control.FeatureTogglePatch{{ID: "x"}})
	require.Error(t, err)
	_, err = s.UpdateRoles([]control.RoleControlPatch{{Role: control.RoleAdmin, DefaultLanding: control.Ptr("ops")}})
	require.NoError(t, err)

	assert.Equal(t, []string{"features:1", "roles:1"}, obs.updates)
	assert.Equal(t, 1, obs.failures)
}

type resetCounter struct {
	recordingObserver
	resets int
}

func (o *resetCounter) ObserveReset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.resets++
}

func TestObserversFanOutAndHearResets(t *testing.T) {
	t.Parallel()

	plain := &recordingObserver{}
	counting := &resetCounter{}
	s := newStore(t, control.WithObserver(plain), control.WithObserver(nil), control.WithObserver(counting))

	_, err := s.UpdateRoles([]control.RoleControlPatch{{Role: control.RoleAdmin, DefaultLanding: control.Ptr("ops")}})
	require.NoError(t, err)
	s.Reset()
	s.Reset()

	assert.Equal(t, []string{"roles:1"}, plain.updates)
	assert.Equal(t, []string{"roles:1"}, counting.updates)
	assert.Equal(t, 2, counting.resets)
	assert.Equal(t, [3]int{5, 4, 2}, counting.sizes)
}

func TestConcurrentUpdatesAreSerialized(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.UpdateFeatures([]control.FeatureTogglePatch{{
				ID:          fmt.Sprintf("load.%02d", i),
				Label:       control.Ptr("Load"),
				Description: control.Ptr("Concurrent insert."),
				Category:    control.Ptr(control.CategoryGeneral),
				Enabled:     control.Ptr(i%2 == 0),
			}})
			assert.NoError(t, err)
			_ = s.Snapshot()
		}(i)
	}
	wg.Wait()

	assert.Len(t, s.Snapshot().Features, 55)
}
