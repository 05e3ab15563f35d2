package harness

import (
	"github.com/roach88/sqlbridge/internal/plugin"
	"github.com/roach88/sqlbridge/internal/value"
)

// Entry is one call and its reply.
type Entry struct {
	Seq    int
	Method string
	Args   value.Value
	Reply  plugin.Reply
}

// Result is the outcome of running a scenario.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool

	// Transcript has one entry per call, in call order.
	Transcript []Entry

	// Errors describes every failed expectation and assertion.
	Errors []string
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:       true,
		Transcript: []Entry{},
		Errors:     []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func statusOf(reply plugin.Reply) string {
	switch reply.Kind {
	case plugin.ReplySuccess:
		return StatusSuccess
	case plugin.ReplyError:
		return StatusError
	default:
		return StatusNotImplemented
	}
}
