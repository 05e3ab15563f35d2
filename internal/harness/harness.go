package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/roach88/sqlbridge/internal/plugin"
	"github.com/roach88/sqlbridge/internal/session"
	"github.com/roach88/sqlbridge/internal/testutil"
	"github.com/roach88/sqlbridge/internal/value"
)

// Harness runs scenarios.
type Harness struct {
	logger *slog.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger routes plugin diagnostics to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = logger
	}
}

// New creates a Harness.
func New(opts ...Option) *Harness {
	h := &Harness{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes scenario with a default Harness.
func Run(scenario *Scenario) (*Result, error) {
	return New().Run(context.Background(), scenario)
}

// Run executes scenario against a fresh plugin whose databases directory is
// a temporary directory removed afterwards.
//
// The returned error reports a harness failure. Failed expectations are
// recorded on the Result instead.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	dir, err := os.MkdirTemp("", "sqlbridge-scenario-")
	if err != nil {
		return nil, fmt.Errorf("failed to create databases directory: %w", err)
	}
	defer os.RemoveAll(dir)

	cfg := plugin.Config{DatabasesDir: dir}
	if scenario.Options != nil {
		level, err := session.ParseLogLevel(int64(scenario.Options.LogLevel))
		if err != nil {
			return nil, fmt.Errorf("invalid scenario options: %w", err)
		}
		cfg.LogLevel = level
		cfg.QueryAsMapList = scenario.Options.QueryAsMapList
	}
	p := plugin.New(cfg,
		plugin.WithLogger(h.logger),
		plugin.WithNameGenerator(testutil.NewSequentialNameGenerator(scenario.Name)),
	)
	defer p.Close()

	result := NewResult()
	for i := range scenario.Calls {
		call := &scenario.Calls[i]
		args, err := nodeToValue(&call.Args)
		if err != nil {
			return nil, fmt.Errorf("calls[%d]: args: %w", i, err)
		}

		reply := p.HandleMethodCall(ctx, plugin.MethodCall{Method: call.Method, Arguments: args})
		result.Transcript = append(result.Transcript, Entry{
			Seq:    i + 1,
			Method: call.Method,
			Args:   args,
			Reply:  reply,
		})

		if call.Expect != nil {
			for _, msg := range checkExpect(call.Expect, reply) {
				result.AddError(fmt.Sprintf("call %d (%s): %s", i+1, call.Method, msg))
			}
		}
	}

	for _, msg := range evaluateAssertions(p, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func checkExpect(expect *Expect, reply plugin.Reply) []string {
	var problems []string
	if got := statusOf(reply); got != expect.Status {
		detail := ""
		if reply.Kind == plugin.ReplyError {
			detail = fmt.Sprintf(" (%s: %s)", reply.Code, reply.Message)
		}
		return append(problems, fmt.Sprintf("expected status %s, got %s%s", expect.Status, got, detail))
	}

	want, err := nodeToValue(&expect.Result)
	if err != nil {
		return append(problems, fmt.Sprintf("expect.result: %v", err))
	}
	if want != nil && !Matches(want, reply.Value) {
		problems = append(problems, fmt.Sprintf("result mismatch: expected %s, got %s", render(want), render(reply.Value)))
	}

	if expect.Error != nil {
		if expect.Error.Code != "" && expect.Error.Code != reply.Code {
			problems = append(problems, fmt.Sprintf("expected error code %s, got %s", expect.Error.Code, reply.Code))
		}
		if expect.Error.Message != "" && !strings.Contains(reply.Message, expect.Error.Message) {
			problems = append(problems, fmt.Sprintf("expected error message containing %q, got %q", expect.Error.Message, reply.Message))
		}
	}
	return problems
}

func render(v value.Value) string {
	if v == nil {
		return "no value"
	}
	data, err := value.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%#v", v)
	}
	return string(data)
}
