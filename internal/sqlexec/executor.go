package sqlexec

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/roach88/sqlbridge/internal/metrics"
	"github.com/roach88/sqlbridge/internal/session"
	"github.com/roach88/sqlbridge/internal/value"
)

// DefaultBusyTimeout is how long a connection waits on a locked database.
const DefaultBusyTimeout = 5 * time.Second

// MethodInsert is the only method whose result differs from the cursor output.
const MethodInsert = "insert"

// Shape selects how rows are assembled into a result Value.
type Shape int

const (
	ShapeTabular Shape = iota
	ShapeMapList
)

// Request is one statement to run for a session.
type Request struct {
	Session session.Session
	Method  string
	SQL     string
	Args    value.List
	Shape   Shape
}

// Executor runs statements against SQLite.
//
// Thread-safety: Execute may be called concurrently. File-backed sessions
// get an independent connection per call; in-memory sessions share their
// pinned database, which serializes access through a single connection.
type Executor struct {
	busyTimeout time.Duration
	names       NameGenerator
	logger      *slog.Logger

	mu       sync.Mutex
	pinned   map[uint32]*sql.DB
	released map[uint32]struct{} // ids whose in-memory database was dropped
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithBusyTimeout sets the busy timeout applied to every connection.
func WithBusyTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) {
		e.busyTimeout = d
	}
}

// WithNameGenerator replaces the generator used to name in-memory databases.
func WithNameGenerator(g NameGenerator) ExecutorOption {
	return func(e *Executor) {
		e.names = g
	}
}

// WithLogger sets the logger used for statement diagnostics.
func WithLogger(logger *slog.Logger) ExecutorOption {
	return func(e *Executor) {
		e.logger = logger
	}
}

// NewExecutor creates an Executor.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{
		busyTimeout: DefaultBusyTimeout,
		names:       UUIDv7Generator{},
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		pinned:      make(map[uint32]*sql.DB),
		released:    make(map[uint32]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs req and returns its result.
// A nil Value with a nil error means the statement ran and produced nothing.
func (e *Executor) Execute(ctx context.Context, req Request) (value.Value, error) {
	start := time.Now()
	defer func() {
		metrics.Metrics.StatementDuration.WithLabelValues(req.Method).Observe(time.Since(start).Seconds())
	}()

	args, err := BindArgs(req.Args)
	if err != nil {
		return nil, err
	}

	sess := req.Session
	if sess.LogLevel.HasSQL() {
		e.logger.Info("sql", "id", sess.ID, "method", req.Method, "sql", req.SQL, "args", len(args))
	}

	db, release, err := e.acquire(ctx, sess)
	if err != nil {
		return nil, err
	}
	defer release()

	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, newSQLError("open", err)
	}
	defer conn.Close()

	result, rowCount, err := e.run(ctx, conn, req, args)
	if err != nil {
		if sess.LogLevel.HasSQL() {
			e.logger.Warn("sql failed", "id", sess.ID, "sql", req.SQL, "error", err)
		}
		return nil, err
	}
	if sess.LogLevel.HasVerbose() {
		e.logger.Debug("sql done", "id", sess.ID, "rows", rowCount, "elapsed", time.Since(start))
	}
	return result, nil
}

func (e *Executor) run(ctx context.Context, conn *sql.Conn, req Request, args []any) (value.Value, int, error) {
	var result value.Value
	var rowCount int
	err := conn.Raw(func(driverConn any) error {
		c, ok := driverConn.(*sqlite3.SQLiteConn)
		if !ok {
			return fmt.Errorf("unexpected driver connection %T", driverConn)
		}
		var err error
		result, rowCount, err = query(ctx, c, req.SQL, args, req.Shape)
		return err
	})
	if err != nil {
		return nil, 0, err
	}

	if req.Method == MethodInsert {
		var id int64
		if err := conn.QueryRowContext(ctx, "SELECT last_insert_rowid()").Scan(&id); err != nil {
			return nil, rowCount, newSQLError("rowid", err)
		}
		return value.Int64(id), rowCount, nil
	}
	if value.IsEmpty(result) {
		return nil, rowCount, nil
	}
	return result, rowCount, nil
}

// query prepares and steps sqlText on the driver connection directly, so
// that column values can be read by their storage class.
func query(ctx context.Context, c *sqlite3.SQLiteConn, sqlText string, args []any, shape Shape) (value.Value, int, error) {
	stmt, err := c.PrepareContext(ctx, sqlText)
	if err != nil {
		return nil, 0, newSQLError("prepare", err)
	}
	defer stmt.Close()

	named := make([]driver.NamedValue, len(args))
	for i, a := range args {
		named[i] = driver.NamedValue{Ordinal: i + 1, Value: a}
	}
	queryer, ok := stmt.(driver.StmtQueryContext)
	if !ok {
		return nil, 0, fmt.Errorf("unexpected driver statement %T", stmt)
	}
	rows, err := queryer.QueryContext(ctx, named)
	if err != nil {
		return nil, 0, newSQLError("query", err)
	}
	if sr, ok := rows.(*sqlite3.SQLiteRows); ok {
		keepStorageClass(sr)
	}
	return collect(rows, shape)
}

// convertingDeclTypes are the declared column types for which the driver
// turns INTEGER and TEXT values into bool or time.Time.
var convertingDeclTypes = map[string]bool{
	"boolean":   true,
	"date":      true,
	"datetime":  true,
	"timestamp": true,
}

// keepStorageClass clears the converting declared types before the first
// step. DeclTypes returns the slice the driver consults in Next, so the
// stored INTEGER or TEXT value comes back unchanged.
func keepStorageClass(rows *sqlite3.SQLiteRows) {
	decl := rows.DeclTypes()
	for i, t := range decl {
		if convertingDeclTypes[t] {
			decl[i] = ""
		}
	}
}

// collect steps rows to completion and assembles the result in shape.
// rows is always closed.
func collect(rows driver.Rows, shape Shape) (value.Value, int, error) {
	defer rows.Close()

	names := rows.Columns()
	var columns value.List
	dest := make([]driver.Value, len(names))
	out := value.List{}

	for {
		err := rows.Next(dest)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, newSQLError("step", err)
		}
		// Column names are reported once a row exists.
		if columns == nil {
			columns = make(value.List, len(names))
			for i, c := range names {
				columns[i] = value.String(c)
			}
		}

		row := make(value.List, len(names))
		for i, r := range dest {
			v, err := decodeColumn(r)
			if err != nil {
				return nil, 0, fmt.Errorf("column %q: %w", names[i], err)
			}
			row[i] = v
		}

		if shape == ShapeMapList {
			entries := make([]value.Entry, len(names))
			for i, c := range names {
				entries[i] = value.E(c, row[i])
			}
			out = append(out, value.NewMap(entries...))
		} else {
			out = append(out, row)
		}
	}

	if shape == ShapeMapList {
		return out, len(out), nil
	}
	if len(out) == 0 {
		return nil, 0, nil
	}
	return value.NewMap(
		value.E("columns", columns),
		value.E("rows", out),
	), len(out), nil
}

// acquire returns the database for sess and a function releasing it.
func (e *Executor) acquire(ctx context.Context, sess session.Session) (*sql.DB, func(), error) {
	if sess.InMemory() {
		db, err := e.pin(ctx, sess.ID)
		if err != nil {
			return nil, nil, err
		}
		return db, func() {}, nil
	}

	db, err := sql.Open("sqlite3", e.fileDSN(sess.Path, sess.ReadOnly))
	if err != nil {
		return nil, nil, newSQLError("open", err)
	}
	db.SetMaxOpenConns(1)
	return db, func() { db.Close() }, nil
}

// pin returns the shared-cache database for an in-memory session, creating
// it on first use.
func (e *Executor) pin(ctx context.Context, id uint32) (*sql.DB, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if db, ok := e.pinned[id]; ok {
		return db, nil
	}
	// A statement racing closeDatabase holds a stale session copy. Ids are
	// never reused, so a released id stays closed.
	if _, ok := e.released[id]; ok {
		return nil, &session.NotFoundError{ID: id}
	}
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=%d",
		e.names.Generate(), e.busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, newSQLError("open", err)
	}
	// One connection keeps the shared-cache database alive and avoids
	// table-level lock errors between connections to it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, newSQLError("open", err)
	}
	e.pinned[id] = db
	return db, nil
}

// Release drops the in-memory database pinned for a session, if any.
// Its contents are discarded and later statements for id fail with
// *session.NotFoundError.
func (e *Executor) Release(id uint32) error {
	e.mu.Lock()
	db, ok := e.pinned[id]
	delete(e.pinned, id)
	e.released[id] = struct{}{}
	e.mu.Unlock()

	if !ok {
		return nil
	}
	return db.Close()
}

// Close releases every pinned in-memory database.
func (e *Executor) Close() error {
	e.mu.Lock()
	pinned := e.pinned
	e.pinned = make(map[uint32]*sql.DB)
	e.mu.Unlock()

	var firstErr error
	for _, db := range pinned {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var uriEscaper = strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23")

func (e *Executor) fileDSN(path string, readOnly bool) string {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d", uriEscaper.Replace(path), e.busyTimeout.Milliseconds())
	if readOnly {
		dsn += "&mode=ro"
	}
	return dsn
}
