package batch

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sqlbridge/internal/callargs"
	"github.com/roach88/sqlbridge/internal/session"
	"github.com/roach88/sqlbridge/internal/sqlexec"
	"github.com/roach88/sqlbridge/internal/testutil"
	"github.com/roach88/sqlbridge/internal/value"
)

func describe(err error) (string, string) {
	if session.IsNotFound(err) {
		return "sqlite_error", "database_closed"
	}
	if callargs.IsError(err) {
		return "bad_param", err.Error()
	}
	return "sqlite_error", err.Error()
}

type fixture struct {
	registry  *session.Registry
	executor  *sqlexec.Executor
	processor *Processor
	id        uint32
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	registry := session.NewRegistry()
	executor := sqlexec.NewExecutor(sqlexec.WithNameGenerator(testutil.NewSequentialNameGenerator("batch")))
	t.Cleanup(func() { executor.Close() })

	res, err := registry.Open(session.OpenRequest{Path: filepath.Join(t.TempDir(), "batch.db")})
	require.NoError(t, err)

	f := &fixture{
		registry:  registry,
		executor:  executor,
		processor: NewProcessor(registry, executor, describe),
		id:        res.Session.ID,
	}
	f.exec(t, "CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT UNIQUE)")
	return f
}

func (f *fixture) exec(t *testing.T, sql string) value.Value {
	t.Helper()
	op := &Operation{Kind: FromCall, Method: MethodExecute, SQL: sql}
	require.NoError(t, f.processor.RunOne(context.Background(), f.id, op, sqlexec.ShapeTabular))
	return op.Result
}

func (f *fixture) count(t *testing.T) int64 {
	t.Helper()
	op := &Operation{Kind: FromCall, Method: MethodQuery, SQL: "SELECT COUNT(*) FROM t"}
	require.NoError(t, f.processor.RunOne(context.Background(), f.id, op, sqlexec.ShapeTabular))
	rows, _ := op.Result.(value.Map).Lookup("rows")
	return int64(rows.(value.List)[0].(value.List)[0].(value.Int64))
}

func insertOp(name string) value.Map {
	return value.NewMap(
		value.E("method", value.String("insert")),
		value.E("sql", value.String("INSERT INTO t (name) VALUES (?)")),
		value.E("arguments", value.List{value.String(name)}),
	)
}

func failingBatch(continueOnError bool) value.Map {
	return value.NewMap(
		value.E("operations", value.List{
			insertOp("a"),
			insertOp("a"), // violates UNIQUE
			insertOp("c"),
		}),
		value.E("continueOnError", value.Bool(continueOnError)),
	)
}

func TestRun_StopsAfterFirstError(t *testing.T) {
	f := newFixture(t)
	ops, err := Decode(failingBatch(false))
	require.NoError(t, err)

	results := f.processor.Run(context.Background(), f.id, ops, sqlexec.ShapeTabular)

	require.Len(t, results, 2)
	assert.True(t, value.Equal(value.NewMap(value.E("result", value.Int64(1))), results[0]))

	errEntry, ok := results[1].(value.Map).Lookup("error")
	require.True(t, ok)
	code, _ := errEntry.(value.Map).Lookup("code")
	assert.Equal(t, value.String("sqlite_error"), code)
	msg, _ := errEntry.(value.Map).Lookup("message")
	assert.Contains(t, string(msg.(value.String)), "UNIQUE")

	// The third insert never ran.
	assert.Equal(t, int64(1), f.count(t))
	assert.Nil(t, ops[2].Result)
	assert.NoError(t, ops[2].Err)
}

func TestRun_ContinueOnError(t *testing.T) {
	f := newFixture(t)
	ops, err := Decode(failingBatch(true))
	require.NoError(t, err)

	results := f.processor.Run(context.Background(), f.id, ops, sqlexec.ShapeTabular)

	require.Len(t, results, 3)
	_, isErr := results[1].(value.Map).Lookup("error")
	assert.True(t, isErr)
	assert.True(t, value.Equal(value.NewMap(value.E("result", value.Int64(2))), results[2]),
		"got %#v", results[2])
	assert.Equal(t, int64(2), f.count(t))
}

func TestRun_ErrorEntryShape(t *testing.T) {
	f := newFixture(t)
	ops, err := Decode(failingBatch(false))
	require.NoError(t, err)

	results := f.processor.Run(context.Background(), f.id, ops, sqlexec.ShapeTabular)
	require.Len(t, results, 2)

	entry := results[1].(value.Map)
	require.Equal(t, 1, entry.Len())
	inner := entry.Entries()[0].Value.(value.Map)
	keys := []value.Value{}
	for _, e := range inner.Entries() {
		keys = append(keys, e.Key)
	}
	assert.Equal(t, []value.Value{value.String("code"), value.String("message"), value.String("data")}, keys)
	data, _ := inner.Get(value.String("data"))
	assert.Equal(t, value.Null{}, data)
}

func TestRun_NoResultSuppressesEntries(t *testing.T) {
	f := newFixture(t)
	args := value.NewMap(
		value.E("operations", value.List{insertOp("a"), insertOp("a"), insertOp("c")}),
		value.E("noResult", value.Int32(1)),
	)
	ops, err := Decode(args)
	require.NoError(t, err)

	results := f.processor.Run(context.Background(), f.id, ops, sqlexec.ShapeTabular)

	assert.Empty(t, results)
	assert.Error(t, ops[1].Err, "the failure is still recorded on the operation")
	assert.Equal(t, int64(1), f.count(t))
}

func TestRun_NoValueResultIsNull(t *testing.T) {
	f := newFixture(t)
	ops, err := Decode(value.NewMap(value.E("operations", value.List{
		value.NewMap(
			value.E("method", value.String("query")),
			value.E("sql", value.String("SELECT * FROM t")),
		),
	})))
	require.NoError(t, err)

	results := f.processor.Run(context.Background(), f.id, ops, sqlexec.ShapeMapList)

	require.Len(t, results, 1)
	assert.True(t, value.Equal(value.NewMap(value.E("result", value.Null{})), results[0]))
}

func TestRun_ClosedSessionBecomesErrorEntry(t *testing.T) {
	f := newFixture(t)
	_, err := f.registry.Close(f.id)
	require.NoError(t, err)

	ops, err := Decode(failingBatch(true))
	require.NoError(t, err)
	results := f.processor.Run(context.Background(), f.id, ops, sqlexec.ShapeTabular)

	require.Len(t, results, 3)
	for _, r := range results {
		entry, ok := r.(value.Map).Lookup("error")
		require.True(t, ok)
		msg, _ := entry.(value.Map).Lookup("message")
		assert.Equal(t, value.String("database_closed"), msg)
	}
}

func TestRun_UnknownMethodIsErrorEntry(t *testing.T) {
	f := newFixture(t)
	ops, err := Decode(value.NewMap(value.E("operations", value.List{
		value.NewMap(
			value.E("method", value.String("vacuum")),
			value.E("sql", value.String("VACUUM")),
		),
	})))
	require.NoError(t, err)

	results := f.processor.Run(context.Background(), f.id, ops, sqlexec.ShapeTabular)

	require.Len(t, results, 1)
	var unknown *UnknownMethodError
	assert.ErrorAs(t, ops[0].Err, &unknown)
}

func TestRunOne_InTransactionMarker(t *testing.T) {
	f := newFixture(t)
	on := true
	op := &Operation{Kind: FromCall, Method: MethodExecute, SQL: "BEGIN IMMEDIATE", InTransaction: &on}
	require.NoError(t, f.processor.RunOne(context.Background(), f.id, op, sqlexec.ShapeTabular))

	sess, ok := f.registry.Lookup(f.id)
	require.True(t, ok)
	assert.True(t, sess.InTransaction)
}

func TestRunOne_FailedStatementLeavesMarker(t *testing.T) {
	f := newFixture(t)
	on := true
	op := &Operation{Kind: FromCall, Method: MethodExecute, SQL: "NOT SQL", InTransaction: &on}
	require.Error(t, f.processor.RunOne(context.Background(), f.id, op, sqlexec.ShapeTabular))

	sess, _ := f.registry.Lookup(f.id)
	assert.False(t, sess.InTransaction)
}
