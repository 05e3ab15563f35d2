package session

import (
	"fmt"
	"path/filepath"

	"golang.org/x/text/unicode/norm"
)

// InMemoryPath is the reserved path of a database that lives only in memory.
// It never participates in single-instance deduplication.
const InMemoryPath = ":memory:"

// LogLevel controls diagnostic output for a session.
type LogLevel int

const (
	LogLevelNone LogLevel = iota
	LogLevelSQL
	LogLevelVerbose
)

// ParseLogLevel converts a wire level (0, 1, 2) into a LogLevel.
func ParseLogLevel(n int64) (LogLevel, error) {
	if n < int64(LogLevelNone) || n > int64(LogLevelVerbose) {
		return LogLevelNone, fmt.Errorf("invalid log level %d", n)
	}
	return LogLevel(n), nil
}

// HasSQL reports whether statements should be logged.
func (l LogLevel) HasSQL() bool {
	return l >= LogLevelSQL
}

// HasVerbose reports whether verbose diagnostics should be logged.
func (l LogLevel) HasVerbose() bool {
	return l >= LogLevelVerbose
}

func (l LogLevel) String() string {
	switch l {
	case LogLevelNone:
		return "none"
	case LogLevelSQL:
		return "sql"
	case LogLevelVerbose:
		return "verbose"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// Session is one caller-visible logical database handle.
type Session struct {
	ID             uint32
	Path           string
	ReadOnly       bool
	SingleInstance bool
	// InTransaction is advisory. It is set by calls carrying an
	// inTransaction marker and is not enforced against the engine.
	InTransaction bool
	// LogLevel is the global level captured when the session was opened.
	LogLevel LogLevel
}

// InMemory reports whether the session targets the in-memory sentinel.
func (s Session) InMemory() bool {
	return IsInMemoryPath(s.Path)
}

// IsInMemoryPath reports whether path is the in-memory sentinel.
func IsInMemoryPath(path string) bool {
	return path == InMemoryPath
}

// NormalizePath returns the key used for single-instance deduplication.
// Paths are cleaned and converted to Unicode NFC so that visually identical
// names typed on different systems map to the same session.
func NormalizePath(path string) string {
	if IsInMemoryPath(path) {
		return path
	}
	return norm.NFC.String(filepath.Clean(path))
}
