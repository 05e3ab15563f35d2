package sqlexec

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/roach88/sqlbridge/internal/value"
)

// SQLErrorCode is the wire code for every engine failure.
const SQLErrorCode = "sqlite_error"

// SQLError reports a failure from the SQLite engine while opening,
// preparing, binding or stepping a statement.
type SQLError struct {
	// Op is the phase that failed: open, prepare, query, step or rowid.
	Op string

	// ResultCode and ExtendedCode are SQLite's native codes, zero when the
	// failure did not come from SQLite itself.
	ResultCode   int
	ExtendedCode int

	// Message is the engine's native error text.
	Message string

	Err error
}

func (e *SQLError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *SQLError) Unwrap() error {
	return e.Err
}

// Code returns the wire error code.
func (e *SQLError) Code() string {
	return SQLErrorCode
}

func newSQLError(op string, err error) *SQLError {
	se := &SQLError{Op: op, Message: err.Error(), Err: err}
	var native sqlite3.Error
	if errors.As(err, &native) {
		se.ResultCode = int(native.Code)
		se.ExtendedCode = int(native.ExtendedCode)
	}
	return se
}

// IsSQLError returns true if err carries a *SQLError.
func IsSQLError(err error) bool {
	var se *SQLError
	return errors.As(err, &se)
}

// BindError reports an argument that cannot be bound as a SQL parameter.
type BindError struct {
	// Position is the 1-based parameter index.
	Position int
	Kind     value.Kind
}

func (e *BindError) Error() string {
	return fmt.Sprintf("cannot bind %s argument at position %d", e.Kind, e.Position)
}

// IsBindError returns true if err carries a *BindError.
func IsBindError(err error) bool {
	var be *BindError
	return errors.As(err, &be)
}
