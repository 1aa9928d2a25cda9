package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikey/auto-dictionary/internal/cli"
	"github.com/mikey/auto-dictionary/internal/di"
	"github.com/mikey/auto-dictionary/internal/factory"
	"github.com/mikey/auto-dictionary/internal/utils"
	"go.uber.org/zap"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Run the application
	started := false
	runErr := container.Invoke(func(
		logger *zap.Logger,
		deductions *factory.DeductionFactory,
		windows *factory.WindowFactory,
		addresses *utils.AddressProcessor,
	) error {
		started = true
		return run(ctx, cancel, logger, deductions, windows, addresses)
	})

	if started {
		if err := di.Close(context.Background(), container); err != nil {
			fmt.Fprintf(os.Stderr, "Shutdown error: %v\n", err)
		}
	}
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Application error: %v\n", runErr)
		os.Exit(1)
	}
}

// run serves a session on stdin/stdout until the input ends or a signal arrives
func run(
	ctx context.Context,
	cancel context.CancelFunc,
	logger *zap.Logger,
	deductions *factory.DeductionFactory,
	windows *factory.WindowFactory,
	addresses *utils.AddressProcessor,
) error {
	defer logger.Sync()

	session := cli.NewSession(deductions, windows, addresses, os.Stdout, logger)
	done := make(chan error, 1)
	go func() {
		done <- session.Run(ctx, os.Stdin)
	}()
	logger.Info("Serving compose sessions on stdin")

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-done:
		if err := session.Close(ctx); err != nil {
			logger.Warn("Errors while closing windows", zap.Error(err))
		}
		logger.Info("Input closed, shutting down")
		return err
	case sig := <-sigCh:
		logger.Info("Shutting down...", zap.String("signal", sig.String()))
		// the session goroutine may still be blocked on stdin; controllers
		// are shut down through the container
		cancel()
		return nil
	}
}
