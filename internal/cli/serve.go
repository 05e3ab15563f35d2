package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/sqlbridge/internal/channel"
	"github.com/roach88/sqlbridge/internal/metrics"
	"github.com/roach88/sqlbridge/internal/plugin"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve method calls as JSON lines on stdin/stdout",
		Long: `Reads one JSON request per line from stdin and writes one JSON response
per line to stdout. Requests look like:

  {"id": 1, "method": "openDatabase", "arguments": {"path": "app.db"}}

Serving stops at end of input or on SIGINT/SIGTERM. Open databases are
closed on the way out.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, rootOpts)
		},
	}
}

func runServe(cmd *cobra.Command, rootOpts *RootOptions) error {
	cfg, err := loadConfig(cmd, rootOpts)
	if err != nil {
		return err
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg, rootOpts)

	p := plugin.New(cfg.Plugin(), plugin.WithLogger(logger))
	defer func() {
		if err := p.Close(); err != nil {
			logger.Warn("close databases", "error", err)
		}
	}()

	if cfg.MetricsAddr != "" {
		srv := metrics.StartServer(cfg.MetricsAddr, logger)
		defer srv.Close()
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	logger.Debug("serving", "databases_dir", p.DatabasesDir(), "max_in_flight", cfg.MaxInFlight)
	done := make(chan error, 1)
	go func() {
		done <- channel.Serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), p, channel.Options{
			MaxInFlight: cfg.MaxInFlight,
			Logger:      logger,
		})
	}()

	// A blocked read on stdin does not observe ctx, so stop waiting on it.
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return WrapExitError(ExitFailure, "serve failed", err)
	}
	return nil
}
