package plugin

import (
	"sync/atomic"

	"github.com/roach88/sqlbridge/internal/session"
	"github.com/roach88/sqlbridge/internal/sqlexec"
)

// Options holds the process-wide knobs set by the options call.
//
// The log level is captured into each session when it is opened, so a change
// only affects sessions opened afterwards. The result shape is read on every
// execution and applies immediately to every session.
//
// Thread-safety: all methods are safe for concurrent use.
type Options struct {
	logLevel       atomic.Int32
	queryAsMapList atomic.Bool
}

// NewOptions creates Options with initial values.
func NewOptions(level session.LogLevel, queryAsMapList bool) *Options {
	o := &Options{}
	o.SetLogLevel(level)
	o.SetQueryAsMapList(queryAsMapList)
	return o
}

func (o *Options) LogLevel() session.LogLevel {
	return session.LogLevel(o.logLevel.Load())
}

func (o *Options) SetLogLevel(level session.LogLevel) {
	o.logLevel.Store(int32(level))
}

func (o *Options) QueryAsMapList() bool {
	return o.queryAsMapList.Load()
}

func (o *Options) SetQueryAsMapList(on bool) {
	o.queryAsMapList.Store(on)
}

// Shape returns the result shape selected by QueryAsMapList.
func (o *Options) Shape() sqlexec.Shape {
	if o.QueryAsMapList() {
		return sqlexec.ShapeMapList
	}
	return sqlexec.ShapeTabular
}
