package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/torosent/burst/internal/client"
	"github.com/torosent/burst/internal/config"
	"github.com/torosent/burst/internal/logging"
	"github.com/torosent/burst/internal/output"
)

const (
	closeTimeout = 5 * time.Second
	// exactCloseBudget caps teardown after an exact deadline; pending spans
	// are dropped rather than delaying the exit.
	exactCloseBudget = 50 * time.Millisecond
)

var errInterrupted = errors.New("interrupted")

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()

	switch {
	case err == nil, errors.Is(err, client.ErrDeadlineReached):
		// The exact deadline ends the process without waiting for
		// abandoned requests.
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	loader := config.NewLoader()
	loader.Out = stdout
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if cfg.PrintConfig {
		return output.PrintConfig(stdout, *cfg)
	}

	logger, err := logging.NewWithWriter(cfg.Log, stderr)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	for _, w := range cfg.Warnings() {
		logger.Warn(w)
	}

	c, err := client.New(ctx, cfg,
		client.WithReporter(output.NewLineReporter(stdout, stderr)),
		client.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	budget := closeTimeout
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), budget)
		defer cancel()
		if err := c.Close(closeCtx); err != nil {
			logger.Warn("shutdown", zap.Error(err))
		}
	}()

	err = c.Run(ctx)
	if errors.Is(err, client.ErrDeadlineReached) {
		budget = exactCloseBudget
	}
	if err != nil && ctx.Err() != nil && !errors.Is(err, client.ErrDeadlineReached) {
		return errInterrupted
	}
	return err
}
