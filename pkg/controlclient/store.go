package controlclient

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cjrt007/Tornado.Ai/pkg/control"
	"github.com/cjrt007/Tornado.Ai/pkg/logging"
)

// State is what subscribers see. Surface is nil until the first
// successful fetch.
type State struct {
	Surface *control.Surface
	Loading bool
	Error   string
}

// Store caches the control surface and applies edits optimistically: the
// cache changes first, the transport call follows, and a failure restores
// the surface captured before the edit.
//
// Overlapping edits are last-writer-wins. A failing call reverts to its own
// snapshot, which can discard a concurrent call's optimistic change.
type Store struct {
	transport Transport
	logger    *slog.Logger
	now       func() time.Time

	mu    sync.Mutex
	state State
	etag  string
	subs  map[int]func(State)
	next  int
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithStoreLogger sets the logger.
func WithStoreLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// WithStoreClock sets the clock used to stamp new scan profiles.
func WithStoreClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// NewStore returns an empty store backed by t.
func NewStore(t Transport, opts ...StoreOption) *Store {
	s := &Store{
		transport: t,
		now:       func() time.Time { return time.Now().UTC() },
		subs:      make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrDefault(s.logger).With(slog.String("component", "controlclient"))
	return s
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyState()
}

// Subscribe registers fn to be called after every state change. The
// returned function removes the subscription.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// set applies mutate under the lock and notifies subscribers outside it.
func (s *Store) set(mutate func(*State)) {
	s.mu.Lock()
	mutate(&s.state)
	st := s.copyState()
	subs := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(st)
	}
}

func (s *Store) copyState() State {
	st := s.state
	if st.Surface != nil {
		c := st.Surface.Clone()
		st.Surface = &c
	}
	return st
}

// FetchSurface loads the surface. On failure the cached surface is kept and
// the error is recorded in State.Error as well as returned.
func (s *Store) FetchSurface(ctx context.Context) error {
	s.mu.Lock()
	etag := s.etag
	if s.state.Surface == nil {
		etag = ""
	}
	s.mu.Unlock()

	s.set(func(st *State) {
		st.Loading = true
		st.Error = ""
	})

	snap, err := s.transport.FetchSurface(ctx, etag)
	if err != nil {
		s.logger.Warn("fetch control surface failed", slog.String("error", err.Error()))
		s.set(func(st *State) {
			st.Loading = false
			st.Error = err.Error()
		})
		return err
	}

	s.mu.Lock()
	s.etag = snap.ETag
	s.mu.Unlock()

	s.set(func(st *State) {
		st.Loading = false
		if !snap.NotModified {
			sf := snap.Surface
			st.Surface = &sf
		}
	})
	return nil
}

// ToggleFeature sets enabled on feature and persists it.
func (s *Store) ToggleFeature(ctx context.Context, feature control.FeatureToggle, enabled bool) error {
	feature.Enabled = enabled
	return persist(ctx, s, "toggle feature", feature, featureID, featuresOf,
		func(ctx context.Context) ([]control.FeatureToggle, error) {
			return s.transport.UpdateFeatures(ctx, []control.FeatureToggle{feature})
		})
}

// PersistRole saves a role control.
func (s *Store) PersistRole(ctx context.Context, role control.RoleControl) error {
	return persist(ctx, s, "persist role", role, roleName, rolesOf,
		func(ctx context.Context) ([]control.RoleControl, error) {
			return s.transport.UpdateRoles(ctx, []control.RoleControl{role})
		})
}

// PersistScan saves a scan profile. A profile without timestamps is
// stamped with the current time so it can be inserted.
func (s *Store) PersistScan(ctx context.Context, scan control.ScanProfile) error {
	now := s.now()
	if scan.CreatedAt.IsZero() {
		scan.CreatedAt = now
	}
	if scan.UpdatedAt.IsZero() {
		scan.UpdatedAt = now
	}
	return persist(ctx, s, "persist scan", scan, scanID, scansOf,
		func(ctx context.Context) ([]control.ScanProfile, error) {
			return s.transport.UpdateScanProfiles(ctx, []control.ScanProfile{scan})
		})
}

// Reset asks the server to restore the seed surface and caches the result.
func (s *Store) Reset(ctx context.Context) error {
	sf, err := s.transport.Reset(ctx)
	if err != nil {
		s.set(func(st *State) { st.Error = err.Error() })
		return err
	}
	s.mu.Lock()
	s.etag = ""
	s.mu.Unlock()
	s.set(func(st *State) {
		st.Surface = &sf
		st.Error = ""
	})
	return nil
}

func featureID(f control.FeatureToggle) string { return f.ID }
func roleName(r control.RoleControl) string   { return string(r.Role) }
func scanID(p control.ScanProfile) string     { return p.ID }

func featuresOf(sf *control.Surface) *[]control.FeatureToggle { return &sf.Features }
func rolesOf(sf *control.Surface) *[]control.RoleControl     { return &sf.Roles }
func scansOf(sf *control.Surface) *[]control.ScanProfile     { return &sf.ScanProfiles }

// persist runs one optimistic edit. Without a cached surface it does
// nothing and returns nil. set runs mutate under s.mu, so the closures may
// touch s.etag.
func persist[T any](
	ctx context.Context,
	s *Store,
	op string,
	entry T,
	keyOf func(T) string,
	field func(*control.Surface) *[]T,
	send func(context.Context) ([]T, error),
) error {
	s.mu.Lock()
	loaded := s.state.Surface != nil
	s.mu.Unlock()
	if !loaded {
		return nil
	}

	// The cache stops matching the stored ETag once the optimistic entry is
	// written, so the next fetch must not revalidate against it.
	var before control.Surface
	s.set(func(st *State) {
		s.etag = ""
		before = st.Surface.Clone()
		next := st.Surface.Clone()
		col := field(&next)
		*col = upsert(*col, entry, keyOf)
		st.Surface = &next
		st.Error = ""
	})

	confirmed, err := send(ctx)
	if err != nil {
		s.logger.Warn("optimistic update reverted",
			slog.String("op", op),
			slog.String("key", keyOf(entry)),
			slog.String("error", err.Error()),
		)
		s.set(func(st *State) {
			s.etag = ""
			st.Surface = &before
			st.Error = err.Error()
		})
		return err
	}

	s.set(func(st *State) {
		if st.Surface == nil {
			return
		}
		next := st.Surface.Clone()
		col := field(&next)
		*col = Reconcile(*col, keyOf(entry), entry, confirmed, keyOf)
		st.Surface = &next
		st.Error = ""
	})
	return nil
}
