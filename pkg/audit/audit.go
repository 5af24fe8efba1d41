// Package audit appends control surface changes to a JSONL file and
// reports how many entries it holds and when the last one was written.
//
// A Log is a control.Observer: register it with control.WithObserver and
// every update attempt and reset is recorded, accepted or rejected.
package audit

import (
	"bufio"
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cjrt007/Tornado.Ai/pkg/jsonutil"
	"github.com/cjrt007/Tornado.Ai/pkg/logging"
)

// Actions recorded in Event.Action.
const (
	ActionUpdate = "update"
	ActionReset  = "reset"
)

// Outcomes recorded in Event.Outcome.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
)

// maxLine bounds a single entry when scanning an existing log.
const maxLine = 1024 * 1024

// Event is one line of the log.
type Event struct {
	Timestamp  time.Time `json:"timestamp"`
	Action     string    `json:"action"`
	Collection string    `json:"collection,omitempty"`
	Patches    int       `json:"patches,omitzero"`
	Outcome    string    `json:"outcome"`
	Error      string    `json:"error,omitempty"`
}

// Status summarises the log for health checks.
type Status struct {
	Entries       int
	LastEventTime time.Time
}

// Log is an append-only audit file. It is safe for concurrent use.
type Log struct {
	path   string
	now    func() time.Time
	logger *slog.Logger

	mu     sync.Mutex
	file   *os.File
	enc    *jsonutil.Encoder
	status Status
}

// Option configures a Log.
type Option func(*Log)

// WithClock sets the time source for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Log) {
		if now != nil {
			l.now = now
		}
	}
}

// WithLogger sets the logger used to report write failures.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Log) { l.logger = logger }
}

// Open opens or creates the log at path. Existing entries are counted and
// the newest timestamp is remembered; unreadable lines are skipped.
func Open(path string, opts ...Option) (*Log, error) {
	l := &Log{
		path: path,
		now:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = logging.OrDefault(l.logger).With(slog.String("component", "audit"))

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("audit: creating %s: %w", dir, err)
		}
	}
	status, err := scan(path)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("audit: opening %s: %w", path, err)
	}
	l.file = f
	l.enc = jsonutil.NewStreamEncoder(f)
	l.status = status
	return l, nil
}

func scan(path string) (Status, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return Status{}, nil
	}
	if err != nil {
		return Status{}, fmt.Errorf("audit: reading %s: %w", path, err)
	}
	defer f.Close()

	var st Status
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		st.Entries++
		var ev Event
		if jsonutil.Unmarshal(line, &ev) == nil && !ev.Timestamp.IsZero() {
			st.LastEventTime = ev.Timestamp
		}
	}
	if err := sc.Err(); err != nil {
		return Status{}, fmt.Errorf("audit: reading %s: %w", path, err)
	}
	return st, nil
}

// Path returns the file the log appends to.
func (l *Log) Path() string { return l.path }

// Status returns the entry count and the newest event time.
func (l *Log) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

// Record appends ev, stamping it when Timestamp is zero.
func (l *Log) Record(ev Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return fmt.Errorf("audit: %s is closed", l.path)
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = l.now()
	}
	if err := l.enc.Encode(ev); err != nil {
		return fmt.Errorf("audit: writing %s: %w", l.path, err)
	}
	l.status.Entries++
	l.status.LastEventTime = ev.Timestamp
	return nil
}

// ObserveUpdate records an update attempt.
func (l *Log) ObserveUpdate(collection string, patches int, err error) {
	ev := Event{Action: ActionUpdate, Collection: collection, Patches: patches, Outcome: OutcomeOK}
	if err != nil {
		ev.Outcome = OutcomeRejected
		ev.Error = err.Error()
	}
	l.record(ev)
}

// ObserveReset records a reset to the seed surface.
func (l *Log) ObserveReset() {
	l.record(Event{Action: ActionReset, Outcome: OutcomeOK})
}

// ObserveSize is a no-op; sizes are not audited.
func (l *Log) ObserveSize(int, int, int) {}

func (l *Log) record(ev Event) {
	if err := l.Record(ev); err != nil {
		l.logger.Warn("audit write failed", slog.String("error", err.Error()))
	}
}

// Close flushes and closes the file. Later records fail.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
