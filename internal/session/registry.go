package session

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/roach88/sqlbridge/internal/metrics"
)

// OpenRequest describes an openDatabase call after argument validation.
type OpenRequest struct {
	Path           string
	ReadOnly       bool
	SingleInstance bool
	LogLevel       LogLevel
}

// OpenResult is the outcome of Registry.Open.
type OpenResult struct {
	Session Session
	// Recovered is true when an existing single-instance session was returned.
	Recovered bool
}

// Registry maps session ids and single-instance paths to sessions.
//
// Thread-safety: all methods are safe for concurrent use. Each method holds
// mu for its whole critical section, so an Open, Close or Delete is atomic
// with respect to every other registry operation.
type Registry struct {
	mu        sync.Mutex
	byID      map[uint32]*Session
	byPath    map[string]uint32
	openCount int
	lastID    uint32

	fs     FS
	logger *slog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithFS replaces the filesystem collaborator.
func WithFS(fsys FS) RegistryOption {
	return func(r *Registry) {
		r.fs = fsys
	}
}

// WithLogger sets the logger used for open/close diagnostics.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates an empty Registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		byID:   make(map[uint32]*Session),
		byPath: make(map[string]uint32),
		fs:     OSFS{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open registers a new session or returns the live single-instance session
// for the same path.
//
// Single-instance mode is ignored for the in-memory sentinel. For on-disk,
// writable databases the parent directory is created before anything is
// registered; if that fails nothing is registered.
func (r *Registry) Open(req OpenRequest) (OpenResult, error) {
	if req.Path == "" {
		return OpenResult{}, fmt.Errorf("open: empty path")
	}
	inMemory := IsInMemoryPath(req.Path)
	single := req.SingleInstance && !inMemory
	key := NormalizePath(req.Path)

	if single {
		if res, ok := r.recover(key); ok {
			return res, nil
		}
	}

	// Directory creation stays outside the lock; it is the only I/O on this path.
	if !inMemory && !req.ReadOnly {
		if err := ensureParentDir(r.fs, req.Path); err != nil {
			return OpenResult{}, fmt.Errorf("open %s: create directory: %w", req.Path, err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// A concurrent open of the same single-instance path may have won the race
	// while the directory was being created.
	if single {
		if id, ok := r.byPath[key]; ok {
			return OpenResult{Session: *r.byID[id], Recovered: true}, nil
		}
	}

	r.lastID++
	sess := &Session{
		ID:             r.lastID,
		Path:           req.Path,
		ReadOnly:       req.ReadOnly,
		SingleInstance: single,
		LogLevel:       req.LogLevel,
	}
	r.byID[sess.ID] = sess
	if single {
		r.byPath[key] = sess.ID
	}
	if r.openCount == 0 && req.LogLevel.HasVerbose() {
		r.logger.Debug("first database opened")
	}
	r.openCount++
	metrics.Metrics.OpenSessions.Inc()
	metrics.Metrics.SessionsOpened.Inc()

	if req.LogLevel.HasSQL() {
		r.logger.Info("opened database", "id", sess.ID, "path", sess.Path,
			"read_only", sess.ReadOnly, "single_instance", sess.SingleInstance)
	}
	return OpenResult{Session: *sess}, nil
}

func (r *Registry) recover(key string) (OpenResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byPath[key]
	if !ok {
		return OpenResult{}, false
	}
	sess := r.byID[id]
	if sess.LogLevel.HasSQL() {
		r.logger.Info("reopened single instance", "id", sess.ID, "path", sess.Path,
			"in_transaction", sess.InTransaction)
	}
	return OpenResult{Session: *sess, Recovered: true}, true
}

// Lookup returns a copy of the session registered under id.
func (r *Registry) Lookup(id uint32) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.byID[id]
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

// LookupPath returns a copy of the single-instance session registered for path.
func (r *Registry) LookupPath(path string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byPath[NormalizePath(path)]
	if !ok {
		return Session{}, false
	}
	return *r.byID[id], true
}

// Close unregisters the session with the given id.
func (r *Registry) Close(id uint32) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closeLocked(id)
}

func (r *Registry) closeLocked(id uint32) (Session, error) {
	sess, ok := r.byID[id]
	if !ok {
		return Session{}, &NotFoundError{ID: id}
	}
	delete(r.byID, id)
	if sess.SingleInstance {
		key := NormalizePath(sess.Path)
		if r.byPath[key] == id {
			delete(r.byPath, key)
		}
	}
	r.openCount--
	metrics.Metrics.OpenSessions.Dec()
	if r.openCount == 0 && sess.LogLevel.HasVerbose() {
		r.logger.Debug("no more databases open")
	}
	if sess.LogLevel.HasSQL() {
		r.logger.Info("closed database", "id", sess.ID, "path", sess.Path)
	}
	return *sess, nil
}

// Delete closes the single-instance session registered for path and removes
// the database file with its sidecars.
//
// A path with no registered session is a no-op: deleted is false and the file
// is left alone.
func (r *Registry) Delete(path string) (sess Session, deleted bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byPath[NormalizePath(path)]
	if !ok {
		return Session{}, false, nil
	}
	sess, err = r.closeLocked(id)
	if err != nil {
		return Session{}, false, err
	}
	if err := removeDatabaseFiles(r.fs, sess.Path); err != nil {
		return sess, true, fmt.Errorf("delete %s: %w", sess.Path, err)
	}
	if sess.LogLevel.HasSQL() {
		r.logger.Info("deleted database", "id", sess.ID, "path", sess.Path)
	}
	return sess, true, nil
}

// SetInTransaction records the advisory in-transaction flag for a session.
func (r *Registry) SetInTransaction(id uint32, inTransaction bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.byID[id]
	if !ok {
		return &NotFoundError{ID: id}
	}
	sess.InTransaction = inTransaction
	return nil
}

// Count returns the number of open sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.openCount
}

// Snapshot returns copies of all open sessions ordered by id.
func (r *Registry) Snapshot() []Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Session, 0, len(r.byID))
	for _, sess := range r.byID {
		out = append(out, *sess)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
