package controlclient

import (
	"context"
	"net/http"

	"github.com/cjrt007/Tornado.Ai/pkg/control"
)

// LocalTransport talks to an in-process store. It is used by the CLI when
// no API URL is configured and by tests.
type LocalTransport struct {
	store *control.Store
}

// NewLocalTransport wraps store.
func NewLocalTransport(store *control.Store) *LocalTransport {
	return &LocalTransport{store: store}
}

func (t *LocalTransport) FetchSurface(ctx context.Context, _ string) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, &TransportError{Op: "fetch control surface", Err: err}
	}
	return Snapshot{Surface: t.store.Snapshot()}, nil
}

func (t *LocalTransport) UpdateFeatures(ctx context.Context, features []control.FeatureToggle) ([]control.FeatureToggle, error) {
	patches := make([]control.FeatureTogglePatch, len(features))
	for i, f := range features {
		patches[i] = f.Patch()
	}
	sf, err := localCall(ctx, "update features", func() (control.Surface, error) { return t.store.UpdateFeatures(patches) })
	return sf.Features, err
}

func (t *LocalTransport) UpdateRoles(ctx context.Context, roles []control.RoleControl) ([]control.RoleControl, error) {
	patches := make([]control.RoleControlPatch, len(roles))
	for i, r := range roles {
		patches[i] = r.Patch()
	}
	sf, err := localCall(ctx, "update roles", func() (control.Surface, error) { return t.store.UpdateRoles(patches) })
	return sf.Roles, err
}

func (t *LocalTransport) UpdateScanProfiles(ctx context.Context, scans []control.ScanProfile) ([]control.ScanProfile, error) {
	patches := make([]control.ScanProfilePatch, len(scans))
	for i, s := range scans {
		patches[i] = s.Patch()
	}
	sf, err := localCall(ctx, "update scan profiles", func() (control.Surface, error) { return t.store.UpdateScanProfiles(patches) })
	return sf.ScanProfiles, err
}

func (t *LocalTransport) Reset(ctx context.Context) (control.Surface, error) {
	return localCall(ctx, "reset control surface", func() (control.Surface, error) { return t.store.Reset(), nil })
}

// localCall maps store errors onto TransportError the way the HTTP API
// maps them onto status codes.
func localCall(ctx context.Context, op string, fn func() (control.Surface, error)) (control.Surface, error) {
	if err := ctx.Err(); err != nil {
		return control.Surface{}, &TransportError{Op: op, Err: err}
	}
	sf, err := fn()
	if err != nil {
		te := &TransportError{Op: op, Message: err.Error(), Err: err}
		if _, ok := control.AsValidationError(err); ok {
			te.StatusCode = http.StatusUnprocessableEntity
		}
		return control.Surface{}, te
	}
	return sf, nil
}
