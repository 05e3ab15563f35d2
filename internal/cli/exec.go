package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/sqlbridge/internal/plugin"
	"github.com/roach88/sqlbridge/internal/value"
)

// ExecOptions holds flags for the exec command.
type ExecOptions struct {
	*RootOptions
	Database string
	SQL      string
	Args     []string // JSON-encoded arguments
	Method   string
	ReadOnly bool
}

var execMethods = []string{
	plugin.MethodQuery,
	plugin.MethodExecute,
	plugin.MethodInsert,
	plugin.MethodUpdate,
}

// NewExecCommand creates the exec command.
func NewExecCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExecOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "exec",
		Short: "Run one SQL statement against a database",
		Long: `Opens a database, runs one statement through the same router the serve
command uses, prints the result and closes the database.

Each --arg is a JSON value bound to the next ? placeholder.

Examples:
  sqlbridge exec --db app.db --sql "SELECT * FROM notes WHERE id = ?" --arg 1
  sqlbridge exec --db app.db --method insert --sql "INSERT INTO notes(body) VALUES (?)" --arg '"hi"'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExec(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "database path, relative to the databases directory (required)")
	cmd.Flags().StringVar(&opts.SQL, "sql", "", "SQL statement (required)")
	cmd.Flags().StringArrayVar(&opts.Args, "arg", nil, "JSON argument for the next placeholder (repeatable)")
	cmd.Flags().StringVar(&opts.Method, "method", plugin.MethodQuery, "one of query, execute, insert, update")
	cmd.Flags().BoolVar(&opts.ReadOnly, "read-only", false, "open the database read-only")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("sql")

	return cmd
}

func runExec(cmd *cobra.Command, opts *ExecOptions) error {
	formatter := newFormatter(cmd, opts.RootOptions)

	if !slices.Contains(execMethods, opts.Method) {
		return NewExitError(ExitCommandError,
			fmt.Sprintf("invalid method %q: must be one of %v", opts.Method, execMethods))
	}
	arguments, err := parseArgs(opts.Args)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --arg", err)
	}

	cfg, err := loadConfig(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg, opts.RootOptions)
	p := plugin.New(cfg.Plugin(), plugin.WithLogger(logger))
	defer p.Close()

	ctx := cmd.Context()
	entries := []value.Entry{value.E("path", value.String(opts.Database))}
	if opts.ReadOnly {
		entries = append(entries, value.E("readOnly", value.Bool(true)))
	}
	openArgs := value.NewMap(entries...)
	opened := p.HandleMethodCall(ctx, plugin.MethodCall{Method: plugin.MethodOpenDatabase, Arguments: openArgs})
	if !opened.IsSuccess() {
		return replyFailure(formatter, opened)
	}
	openMap, err := value.AsMap(opened.Value)
	if err != nil {
		return WrapExitError(ExitFailure, "unexpected openDatabase reply", err)
	}
	id, _ := openMap.Lookup("id")
	formatter.VerboseLog("opened %s as %v", opts.Database, id)

	reply := p.HandleMethodCall(ctx, plugin.MethodCall{
		Method: opts.Method,
		Arguments: value.NewMap(
			value.E("id", id),
			value.E("sql", value.String(opts.SQL)),
			value.E("arguments", arguments),
		),
	})

	closed := p.HandleMethodCall(ctx, plugin.MethodCall{
		Method:    plugin.MethodCloseDatabase,
		Arguments: value.NewMap(value.E("id", id)),
	})
	if !closed.IsSuccess() {
		formatter.VerboseLog("close failed: %s", closed.Message)
	}

	if !reply.IsSuccess() {
		return replyFailure(formatter, reply)
	}
	return formatter.Success(reply.Value)
}

// parseArgs decodes each raw argument as a JSON value.
func parseArgs(raw []string) (value.List, error) {
	out := make(value.List, 0, len(raw))
	for i, r := range raw {
		v, err := value.Unmarshal([]byte(r))
		if err != nil {
			return nil, fmt.Errorf("argument %d %q: %w", i+1, r, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// replyFailure prints an error reply and returns the matching exit error.
func replyFailure(f *OutputFormatter, reply plugin.Reply) error {
	code, message := reply.Code, reply.Message
	if reply.Kind == plugin.ReplyNotImplemented {
		code, message = "not_implemented", "method not implemented"
	}
	var details any
	if reply.Details != nil {
		details = reply.Details
	}
	if err := f.Error(code, message, details); err != nil {
		return err
	}
	return NewExitError(ExitFailure, fmt.Sprintf("%s: %s", code, message))
}
