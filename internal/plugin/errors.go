package plugin

import (
	"errors"

	"github.com/roach88/sqlbridge/internal/batch"
	"github.com/roach88/sqlbridge/internal/callargs"
	"github.com/roach88/sqlbridge/internal/session"
	"github.com/roach88/sqlbridge/internal/sqlexec"
)

// Wire error codes.
const (
	CodeSQLError   = sqlexec.SQLErrorCode
	CodeBadParam   = "bad_param"
	CodeOpenFailed = "open_failed"
)

// MessageDatabaseClosed is the message of every unknown-session error.
const MessageDatabaseClosed = "database_closed"

// OpenError reports a registry failure while opening a database.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return "open " + e.Path + ": " + e.Err.Error()
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

// describeError maps a failure to its wire code and message.
func describeError(err error) (code, message string) {
	var (
		sqlErr     *sqlexec.SQLError
		bindErr    *sqlexec.BindError
		argErr     *callargs.Error
		unknownErr *batch.UnknownMethodError
		openErr    *OpenError
	)
	switch {
	case session.IsNotFound(err):
		return CodeSQLError, MessageDatabaseClosed
	case errors.As(err, &sqlErr):
		return CodeSQLError, sqlErr.Message
	case errors.As(err, &bindErr):
		return CodeBadParam, bindErr.Error()
	case errors.As(err, &argErr):
		return CodeBadParam, err.Error()
	case errors.As(err, &unknownErr):
		return CodeBadParam, unknownErr.Error()
	case errors.As(err, &openErr):
		return CodeOpenFailed, openErr.Error()
	default:
		return CodeSQLError, err.Error()
	}
}

// errorReply builds the error reply for err.
func errorReply(err error) Reply {
	code, message := describeError(err)
	return Error(code, message, nil)
}
