package plugin

import (
	"context"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"time"

	"github.com/roach88/sqlbridge/internal/batch"
	"github.com/roach88/sqlbridge/internal/metrics"
	"github.com/roach88/sqlbridge/internal/session"
	"github.com/roach88/sqlbridge/internal/sqlexec"
	"github.com/roach88/sqlbridge/internal/value"
)

// Method names.
const (
	MethodGetPlatformVersion = "getPlatformVersion"
	MethodGetDatabasesPath   = "getDatabasesPath"
	MethodOptions            = "options"
	MethodOpenDatabase       = "openDatabase"
	MethodCloseDatabase      = "closeDatabase"
	MethodDeleteDatabase     = "deleteDatabase"
	MethodExecute            = batch.MethodExecute
	MethodInsert             = batch.MethodInsert
	MethodUpdate             = batch.MethodUpdate
	MethodQuery              = batch.MethodQuery
	MethodBatch              = "batch"
	MethodDebug              = "debug"
	MethodDebugMode          = "debugMode"
)

// DefaultPlatform is reported by getPlatformVersion when none is configured.
const DefaultPlatform = "Linux"

// Config holds the settings a Plugin is built from.
type Config struct {
	// DatabasesDir is where relative database paths are resolved.
	DatabasesDir string
	// Platform is returned by getPlatformVersion.
	Platform string
	// BusyTimeout bounds how long a statement waits on a locked database.
	BusyTimeout time.Duration
	// LogLevel and QueryAsMapList seed the global options.
	LogLevel       session.LogLevel
	QueryAsMapList bool
}

type handlerFunc func(p *Plugin, ctx context.Context, call MethodCall) Reply

// Plugin dispatches method calls.
//
// Thread-safety: HandleMethodCall is safe for concurrent use. The registry
// lock is the only lock taken on the call path and is never held across
// statement execution.
type Plugin struct {
	cfg       Config
	options   *Options
	registry  *session.Registry
	executor  *sqlexec.Executor
	processor *batch.Processor
	fs        session.FS
	names     sqlexec.NameGenerator
	logger    *slog.Logger
	handlers  map[string]handlerFunc
}

// Option configures a Plugin.
type Option func(*Plugin)

// WithLogger sets the logger shared by the plugin and its components.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Plugin) {
		p.logger = logger
	}
}

// WithFS replaces the filesystem used for directories and deletes.
func WithFS(fsys session.FS) Option {
	return func(p *Plugin) {
		p.fs = fsys
	}
}

// WithNameGenerator sets the generator naming in-memory databases.
func WithNameGenerator(g sqlexec.NameGenerator) Option {
	return func(p *Plugin) {
		p.names = g
	}
}

// New creates a Plugin from cfg.
func New(cfg Config, opts ...Option) *Plugin {
	if cfg.Platform == "" {
		cfg.Platform = DefaultPlatform
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = sqlexec.DefaultBusyTimeout
	}
	p := &Plugin{
		cfg:     cfg,
		options: NewOptions(cfg.LogLevel, cfg.QueryAsMapList),
		fs:      session.OSFS{},
		names:   sqlexec.UUIDv7Generator{},
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.registry = session.NewRegistry(session.WithFS(p.fs), session.WithLogger(p.logger))
	p.executor = sqlexec.NewExecutor(
		sqlexec.WithBusyTimeout(cfg.BusyTimeout),
		sqlexec.WithNameGenerator(p.names),
		sqlexec.WithLogger(p.logger),
	)
	p.processor = batch.NewProcessor(p.registry, p.executor, describeError, batch.WithLogger(p.logger))
	p.handlers = map[string]handlerFunc{
		MethodGetPlatformVersion: (*Plugin).handleGetPlatformVersion,
		MethodGetDatabasesPath:   (*Plugin).handleGetDatabasesPath,
		MethodOptions:            (*Plugin).handleOptions,
		MethodOpenDatabase:       (*Plugin).handleOpenDatabase,
		MethodCloseDatabase:      (*Plugin).handleCloseDatabase,
		MethodDeleteDatabase:     (*Plugin).handleDeleteDatabase,
		MethodExecute:            (*Plugin).handleStatement,
		MethodInsert:             (*Plugin).handleStatement,
		MethodUpdate:             (*Plugin).handleStatement,
		MethodQuery:              (*Plugin).handleStatement,
		MethodBatch:              (*Plugin).handleBatch,
		MethodDebug:              (*Plugin).handleDebug,
		MethodDebugMode:          (*Plugin).handleDebugMode,
	}
	return p
}

// HandleMethodCall dispatches call and returns its reply.
func (p *Plugin) HandleMethodCall(ctx context.Context, call MethodCall) Reply {
	h, ok := p.handlers[call.Method]
	if !ok {
		p.logger.Debug("method not implemented", "method", call.Method)
		metrics.Metrics.CallsCounter.WithLabelValues("unknown", metrics.OutcomeNotImplemented).Inc()
		return NotImplemented()
	}

	reply := h(p, ctx, call)

	outcome := metrics.OutcomeSuccess
	switch reply.Kind {
	case ReplyError:
		outcome = metrics.OutcomeError
		p.logger.Debug("call failed", "method", call.Method, "code", reply.Code, "message", reply.Message)
	case ReplyNotImplemented:
		outcome = metrics.OutcomeNotImplemented
	}
	metrics.Metrics.CallsCounter.WithLabelValues(call.Method, outcome).Inc()
	return reply
}

// Options exposes the global options.
func (p *Plugin) Options() *Options {
	return p.options
}

// Registry exposes the session registry.
func (p *Plugin) Registry() *session.Registry {
	return p.registry
}

// DatabasesDir returns the directory relative paths resolve under.
func (p *Plugin) DatabasesDir() string {
	return p.cfg.DatabasesDir
}

// Close releases every in-memory database. Registered sessions are left as is.
func (p *Plugin) Close() error {
	return p.executor.Close()
}

// resolvePath maps a caller path onto the filesystem. Absolute paths and the
// in-memory sentinel pass through; relative paths live under the databases
// directory.
func (p *Plugin) resolvePath(path string) string {
	if session.IsInMemoryPath(path) || filepath.IsAbs(path) || p.cfg.DatabasesDir == "" {
		return path
	}
	return filepath.Join(p.cfg.DatabasesDir, path)
}

// idValue encodes a session id the way integers travel on the wire: Int32
// when it fits.
func idValue(id uint32) value.Value {
	if id <= math.MaxInt32 {
		return value.Int32(int32(id))
	}
	return value.Int64(int64(id))
}
