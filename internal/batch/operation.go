package batch

import (
	"fmt"
	"strings"

	"github.com/roach88/sqlbridge/internal/callargs"
	"github.com/roach88/sqlbridge/internal/value"
)

// Statement methods accepted by the processor.
const (
	MethodExecute = "execute"
	MethodInsert  = "insert"
	MethodUpdate  = "update"
	MethodQuery   = "query"
)

// IsStatementMethod reports whether method runs a single SQL statement.
func IsStatementMethod(method string) bool {
	switch method {
	case MethodExecute, MethodInsert, MethodUpdate, MethodQuery:
		return true
	}
	return false
}

// Kind tags where an Operation came from.
type Kind int

const (
	FromDescriptor Kind = iota
	FromCall
)

func (k Kind) String() string {
	switch k {
	case FromDescriptor:
		return "descriptor"
	case FromCall:
		return "call"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Operation is one statement plus the sink for its outcome.
type Operation struct {
	Kind      Kind
	Method    string
	SQL       string
	Arguments value.List
	// InTransaction is nil when the operation carries no marker.
	InTransaction *bool

	NoResult        bool
	ContinueOnError bool

	// Result and Err are filled in by the processor.
	Result value.Value
	Err    error
}

// Wire keys of a call or descriptor.
const (
	keyMethod          = "method"
	keySQL             = "sql"
	keyArguments       = "arguments"
	keyInTransaction   = "inTransaction"
	keyNoResult        = "noResult"
	keyContinueOnError = "continueOnError"
	keyOperations      = "operations"
)

// FromCallArgs builds a FromCall operation for a standalone statement call.
func FromCallArgs(method string, args value.Map) (*Operation, error) {
	op := &Operation{Kind: FromCall, Method: method}
	if err := op.decodeStatement(args); err != nil {
		return nil, err
	}
	return op, nil
}

// Decode builds FromDescriptor operations from the "operations" entry of a
// batch call. The call-level noResult and continueOnError flags are copied
// into every operation.
func Decode(args value.Map) ([]*Operation, error) {
	noResult, err := callargs.Flag(args, keyNoResult)
	if err != nil {
		return nil, err
	}
	continueOnError, err := callargs.Flag(args, keyContinueOnError)
	if err != nil {
		return nil, err
	}
	v, ok := args.Lookup(keyOperations)
	if !ok {
		return nil, &callargs.Error{Key: keyOperations, Reason: "required"}
	}
	list, err := value.AsList(v)
	if err != nil {
		return nil, &callargs.Error{Key: keyOperations, Reason: err.Error()}
	}

	ops := make([]*Operation, 0, len(list))
	for i, item := range list {
		m, ok := item.(value.Map)
		if !ok {
			return nil, &callargs.Error{Key: keyOperations, Reason: fmt.Sprintf("operation %d is not a map", i)}
		}
		op := &Operation{
			Kind:            FromDescriptor,
			NoResult:        noResult,
			ContinueOnError: continueOnError,
		}
		method, err := callargs.RequiredString(m, keyMethod)
		if err != nil {
			return nil, fmt.Errorf("operation %d: %w", i, err)
		}
		op.Method = method
		if err := op.decodeStatement(m); err != nil {
			return nil, fmt.Errorf("operation %d: %w", i, err)
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func (op *Operation) decodeStatement(m value.Map) error {
	sql, err := callargs.RequiredString(m, keySQL)
	if err != nil {
		return err
	}
	if strings.TrimSpace(sql) == "" {
		return &callargs.Error{Key: keySQL, Reason: "blank statement"}
	}
	args, err := callargs.List(m, keyArguments)
	if err != nil {
		return err
	}
	inTx, err := callargs.OptionalFlag(m, keyInTransaction)
	if err != nil {
		return err
	}
	op.SQL = sql
	op.Arguments = args
	op.InTransaction = inTx
	return nil
}
