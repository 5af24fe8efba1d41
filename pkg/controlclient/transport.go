// Package controlclient is the client side of the control surface: a
// transport to the API and an optimistic store that applies edits locally
// before the server confirms them.
package controlclient

import (
	"context"

	"github.com/cjrt007/Tornado.Ai/pkg/control"
)

// Snapshot is the result of a surface fetch. NotModified is set when the
// server confirmed the caller's ETag; Surface is then zero.
type Snapshot struct {
	Surface     control.Surface
	ETag        string
	NotModified bool
}

// Transport moves control data to and from a control store. Update calls
// send full records and return the whole updated collection.
type Transport interface {
	FetchSurface(ctx context.Context, etag string) (Snapshot, error)
	UpdateFeatures(ctx context.Context, features []control.FeatureToggle) ([]control.FeatureToggle, error)
	UpdateRoles(ctx context.Context, roles []control.RoleControl) ([]control.RoleControl, error)
	UpdateScanProfiles(ctx context.Context, scans []control.ScanProfile) ([]control.ScanProfile, error)
	Reset(ctx context.Context) (control.Surface, error)
}
