// Package control holds the authoritative control surface: feature toggles,
// role access policies and scan profiles, validated as one unit.
//
// A Store is constructed explicitly and shared by the HTTP API, the MCP
// server and tests. Every update folds a batch of patches over a draft
// copy of one collection, validates the draft surface, and only then
// replaces the live state. A failed batch leaves the state untouched.
package control

import (
	"log/slog"
	"sync"
	"time"
)

// Observer receives a callback after every update attempt and every state
// change. Implementations must be safe for concurrent use.
type Observer interface {
	ObserveUpdate(collection string, patches int, err error)
	ObserveSize(features, roles, scanProfiles int)
}

// ResetObserver is implemented by observers that also want to hear about
// Reset, which is not an update attempt.
type ResetObserver interface {
	ObserveReset()
}

// observers fans callbacks out in registration order.
type observers []Observer

func (o observers) ObserveUpdate(collection string, patches int, err error) {
	for _, obs := range o {
		obs.ObserveUpdate(collection, patches, err)
	}
}

func (o observers) ObserveSize(features, roles, scanProfiles int) {
	for _, obs := range o {
		obs.ObserveSize(features, roles, scanProfiles)
	}
}

func (o observers) ObserveReset() {
	for _, obs := range o {
		if r, ok := obs.(ResetObserver); ok {
			r.ObserveReset()
		}
	}
}

type options struct {
	initial   *Surface
	seed      *Surface
	clock     func() time.Time
	logger    *slog.Logger
	observers observers
}

// Option configures a Store.
type Option func(*options)

// WithInitial sets the starting state. A nil collection falls back to the
// seed collection.
func WithInitial(s Surface) Option {
	return func(o *options) { o.initial = &s }
}

// WithSeed replaces the built-in defaults restored by Reset. A nil
// collection keeps the built-in one. Scan profiles with zero timestamps
// are stamped with the clock.
func WithSeed(s Surface) Option {
	return func(o *options) { o.seed = &s }
}

// WithClock sets the time source used for scan profile timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.clock = now
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithObserver registers an observer, such as the metrics collector or the
// audit log. It may be given more than once; nil is ignored.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observers = append(o.observers, obs)
		}
	}
}

// Store is the server-side control surface. It is safe for concurrent use;
// updates are serialized so one batch never interleaves with another.
type Store struct {
	mu       sync.RWMutex
	state    Surface
	seed     Surface
	now      func() time.Time
	logger   *slog.Logger
	observer observers
}

// New builds a store. The seed is materialised once, so every Reset
// restores identical content. An invalid seed or initial state is
// rejected with a *ValidationError.
func New(opts ...Option) (*Store, error) {
	o := options{
		clock: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	now := o.clock()
	seed := DefaultSurface(now)
	if o.seed != nil {
		seed = fillDefaults(o.seed.Clone(), seed)
		stampProfiles(seed.ScanProfiles, now)
	}
	if err := validateAs("seed", seed); err != nil {
		return nil, err
	}

	state := seed.Clone()
	if o.initial != nil {
		state = fillDefaults(o.initial.Clone(), seed.Clone())
		if err := validateAs("initial state", state); err != nil {
			return nil, err
		}
	}

	s := &Store{
		state:    state,
		seed:     seed,
		now:      o.clock,
		logger:   o.logger.With(slog.String("component", "control")),
		observer: o.observers,
	}
	s.observeSize()
	return s, nil
}

// Snapshot returns a deep copy of the current surface.
func (s *Store) Snapshot() Surface {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// UpdateFeatures applies feature toggle patches as one batch.
func (s *Store) UpdateFeatures(updates []FeatureTogglePatch) (Surface, error) {
	return update(s, updates, featureBatch, func(sf *Surface) *[]FeatureToggle { return &sf.Features })
}

// UpdateRoles applies role control patches as one batch. Enforcement
// fields are merged individually.
func (s *Store) UpdateRoles(updates []RoleControlPatch) (Surface, error) {
	return update(s, updates, roleBatch, func(sf *Surface) *[]RoleControl { return &sf.Roles })
}

// UpdateScanProfiles applies scan profile patches as one batch. Schedule
// and guardrails are merged field by field and updatedAt is refreshed on
// every profile the batch touches.
func (s *Store) UpdateScanProfiles(updates []ScanProfilePatch) (Surface, error) {
	return update(s, updates, scanBatch, func(sf *Surface) *[]ScanProfile { return &sf.ScanProfiles })
}

// Reset restores the seed surface.
func (s *Store) Reset() Surface {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = s.seed.Clone()
	s.logger.Info("control surface reset to defaults")
	s.observer.ObserveReset()
	s.observeSize()
	return s.state.Clone()
}

func update[R, P any](s *Store, updates []P, b batch[R, P], field func(*Surface) *[]R) (Surface, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	draft := s.state
	col, err := applyBatch(*field(&draft), updates, b, s.now())
	if err == nil {
		*field(&draft) = col
		err = validateAs(b.op, draft)
	}
	s.observer.ObserveUpdate(b.collection, len(updates), err)
	if err != nil {
		s.logger.Warn("control update rejected",
			slog.String("collection", b.collection),
			slog.Int("patches", len(updates)),
			slog.String("error", err.Error()),
		)
		return Surface{}, err
	}

	s.state = draft
	s.logger.Info("control surface updated",
		slog.String("collection", b.collection),
		slog.Int("patches", len(updates)),
	)
	s.observeSize()
	return s.state.Clone(), nil
}

// observeSize must be called with the lock held.
func (s *Store) observeSize() {
	s.observer.ObserveSize(len(s.state.Features), len(s.state.Roles), len(s.state.ScanProfiles))
}

func validateAs(op string, sf Surface) error {
	var c checker
	checkSurface(&c, sf)
	return c.err(op)
}

func stampProfiles(profiles []ScanProfile, now time.Time) {
	for i := range profiles {
		if profiles[i].CreatedAt.IsZero() {
			profiles[i].CreatedAt = now
		}
		if profiles[i].UpdatedAt.IsZero() {
			profiles[i].UpdatedAt = now
		}
	}
}
