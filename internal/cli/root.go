// Package cli implements the auto-dictionary command line.
package cli

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/auto-dictionary/internal/di"
)

// app carries the state shared by every subcommand
type app struct {
	flags di.CLIFlags
	in    io.Reader
	out   io.Writer
}

// NewRootCommand creates the auto-dictionary command tree
func NewRootCommand() *cobra.Command {
	return newRootCommand(&app{in: os.Stdin, out: os.Stdout})
}

func newRootCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auto-dictionary",
		Short: "Remember spell-check languages per recipient",
		Long: `auto-dictionary remembers which spell-check languages were used for which
recipients and deduces them for new messages, falling back to a guess based on
the recipients' email domains.`,
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&a.flags.ConfigFile, "config", "c", "", "Path to config file (default: search ./configs, $HOME/.auto-dictionary, /etc/auto-dictionary)")
	flags.StringVar(&a.flags.StorageType, "storage", "", "Storage backend (memory, sqlite, mysql, redis)")
	flags.StringVar(&a.flags.SQLitePath, "sqlite-path", "", "SQLite database path")
	flags.StringVar(&a.flags.Locale, "locale", "", "Locale used to render labels")
	flags.BoolVarP(&a.flags.Verbose, "verbose", "v", false, "Enable verbose logging")
	flags.BoolVar(&a.flags.JSONLog, "json-log", false, "Output logs in JSON format")

	cmd.AddCommand(
		newSessionCommand(a),
		newLearnCommand(a),
		newDeduceCommand(a),
		newInspectCommand(a),
		newPrefsCommand(a),
	)

	return cmd
}

// run builds the container, invokes fn and shuts everything down
func (a *app) run(ctx context.Context, fn any) error {
	container, err := di.BuildCLIContainer(&a.flags)
	if err != nil {
		return err
	}

	runErr := container.Invoke(fn)
	closeErr := a.close(ctx, container)
	if runErr != nil {
		return dig.RootCause(runErr)
	}
	return closeErr
}

func (a *app) close(ctx context.Context, container *dig.Container) error {
	err := di.Close(ctx, container)
	_ = container.Invoke(func(logger *zap.Logger) {
		_ = logger.Sync()
	})
	return err
}
