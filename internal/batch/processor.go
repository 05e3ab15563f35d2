package batch

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/sqlbridge/internal/metrics"
	"github.com/roach88/sqlbridge/internal/session"
	"github.com/roach88/sqlbridge/internal/sqlexec"
	"github.com/roach88/sqlbridge/internal/value"
)

// Sessions resolves session ids. Implemented by *session.Registry.
type Sessions interface {
	Lookup(id uint32) (session.Session, bool)
	SetInTransaction(id uint32, inTransaction bool) error
}

// Executor runs one statement. Implemented by *sqlexec.Executor.
type Executor interface {
	Execute(ctx context.Context, req sqlexec.Request) (value.Value, error)
}

// ErrorDescriber maps an operation failure to its wire code and message.
type ErrorDescriber func(err error) (code, message string)

// Processor dispatches operations to the execution engine.
//
// Thread-safety: Processor holds no mutable state and is safe for concurrent use.
type Processor struct {
	sessions Sessions
	exec     Executor
	describe ErrorDescriber
	logger   *slog.Logger
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		p.logger = logger
	}
}

// NewProcessor creates a Processor.
func NewProcessor(sessions Sessions, exec Executor, describe ErrorDescriber, opts ...ProcessorOption) *Processor {
	p := &Processor{
		sessions: sessions,
		exec:     exec,
		describe: describe,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RunOne executes a single operation against session id and records the
// outcome on op. The returned error is op.Err.
func (p *Processor) RunOne(ctx context.Context, id uint32, op *Operation, shape sqlexec.Shape) error {
	op.Result, op.Err = p.execute(ctx, id, op, shape)
	return op.Err
}

// Run executes ops in order against session id and returns the per-operation
// entries.
//
// The session is resolved again for every operation, so a concurrent close
// shows up as that operation's error entry rather than failing the batch as
// a whole.
func (p *Processor) Run(ctx context.Context, id uint32, ops []*Operation, shape sqlexec.Shape) value.List {
	results := value.List{}
	for i, op := range ops {
		if err := p.RunOne(ctx, id, op, shape); err != nil {
			metrics.Metrics.BatchOperations.WithLabelValues(metrics.OutcomeError).Inc()
			if !op.NoResult {
				results = append(results, p.errorEntry(err))
			}
			if !op.ContinueOnError {
				p.logger.Debug("batch stopped", "id", id, "op", i, "skipped", len(ops)-i-1, "error", err)
				break
			}
			continue
		}
		metrics.Metrics.BatchOperations.WithLabelValues(metrics.OutcomeSuccess).Inc()
		if !op.NoResult {
			results = append(results, resultEntry(op.Result))
		}
	}
	return results
}

func (p *Processor) execute(ctx context.Context, id uint32, op *Operation, shape sqlexec.Shape) (value.Value, error) {
	if !IsStatementMethod(op.Method) {
		return nil, &UnknownMethodError{Method: op.Method}
	}
	sess, ok := p.sessions.Lookup(id)
	if !ok {
		return nil, &session.NotFoundError{ID: id}
	}
	result, err := p.exec.Execute(ctx, sqlexec.Request{
		Session: sess,
		Method:  op.Method,
		SQL:     op.SQL,
		Args:    op.Arguments,
		Shape:   shape,
	})
	if err != nil {
		return nil, err
	}
	// The marker records the caller's view of the transaction once the
	// statement that opened or closed it has succeeded.
	if op.InTransaction != nil {
		if err := p.sessions.SetInTransaction(id, *op.InTransaction); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func resultEntry(v value.Value) value.Map {
	if v == nil {
		v = value.Null{}
	}
	return value.NewMap(value.E("result", v))
}

func (p *Processor) errorEntry(err error) value.Map {
	code, message := p.describe(err)
	return value.NewMap(value.E("error", value.NewMap(
		value.E("code", value.String(code)),
		value.E("message", value.String(message)),
		value.E("data", value.Null{}),
	)))
}

// UnknownMethodError reports a descriptor whose method is not a statement method.
type UnknownMethodError struct {
	Method string
}

func (e *UnknownMethodError) Error() string {
	return fmt.Sprintf("unknown batch method %q", e.Method)
}
