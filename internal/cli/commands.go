package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey/auto-dictionary/internal/adapters/compose"
	"github.com/mikey/auto-dictionary/internal/adapters/storage"
	"github.com/mikey/auto-dictionary/internal/core"
	"github.com/mikey/auto-dictionary/internal/factory"
	"github.com/mikey/auto-dictionary/internal/utils"
)

func newSessionCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Drive compose windows from JSON lines on stdin",
		Long: `Read compose window events as JSON lines on stdin and write labels and
deduction results as JSON lines on stdout. Supported ops: open, recipients,
languages, deduce, close. Example:

  {"op":"open","window":"w1"}
  {"op":"recipients","window":"w1","to":["foo@bar.dom"]}
  {"op":"languages","window":"w1","languages":["fr"]}`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.run(ctx, func(
				deductions *factory.DeductionFactory,
				windows *factory.WindowFactory,
				addresses *utils.AddressProcessor,
				logger *zap.Logger,
			) error {
				session := NewSession(deductions, windows, addresses, a.out, logger)
				runErr := session.Run(ctx, a.in)
				if err := session.Close(ctx); err != nil {
					logger.Warn("Errors while closing windows", zap.Error(err))
				}
				return runErr
			})
		},
	}
}

func newLearnCommand(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "learn",
		Short: "Learn the languages of a sent message",
		Long: `Read an RFC 5322 message and store its Content-Language for its To and Cc
recipients, as if the languages had been chosen while composing it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.run(ctx, func(
				deductions *factory.DeductionFactory,
				windows *factory.WindowFactory,
				addresses *utils.AddressProcessor,
			) error {
				input, closeInput, err := a.open(file)
				if err != nil {
					return err
				}
				defer closeInput()

				msg, err := compose.ReadMessage(input, addresses)
				if err != nil {
					return err
				}
				if msg.Languages.IsEmpty() {
					return errors.New("message has no Content-Language header")
				}
				return learn(ctx, deductions, windows, msg, a.out)
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Message file (stdin if not specified)")
	return cmd
}

func learn(ctx context.Context, deductions *factory.DeductionFactory, windows *factory.WindowFactory, msg *compose.Message, out io.Writer) error {
	window := windows.CreateWindow("learn")
	window.SetRecipients(msg.Recipients)
	window.ChooseLanguages(msg.Languages)

	controller := deductions.CreateController(window, "learn")
	defer controller.Shutdown(ctx)

	if err := controller.LanguageChanged(ctx); err != nil {
		return err
	}
	key := msg.Recipients.Compact().Key()
	if _, stored, err := deductions.Store().Get(ctx, key); err != nil {
		return err
	} else if !stored {
		fmt.Fprintf(out, "not stored: %s\n", key)
		return nil
	}
	if msg.Subject != "" {
		fmt.Fprintf(out, "%s\t%s\t%s\n", key, windows.Printer().LanguageNames(msg.Languages), msg.Subject)
		return nil
	}
	fmt.Fprintf(out, "%s\t%s\n", key, windows.Printer().LanguageNames(msg.Languages))
	return nil
}

func newDeduceCommand(a *app) *cobra.Command {
	var to, cc []string
	cmd := &cobra.Command{
		Use:   "deduce",
		Short: "Deduce the languages for recipients",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.run(ctx, func(
				deductions *factory.DeductionFactory,
				windows *factory.WindowFactory,
				addresses *utils.AddressProcessor,
			) error {
				window := windows.CreateWindow("deduce")
				window.SetRecipients(addresses.Recipients(to, cc))

				controller := deductions.CreateController(window, "deduce")
				defer controller.Shutdown(ctx)

				if err := controller.DeduceLanguage(ctx); err != nil {
					return err
				}
				languages, err := window.Languages(ctx)
				if err != nil {
					return err
				}
				labels := window.Labels()
				if len(labels) == 0 {
					fmt.Fprintln(a.out, "no recipients")
					return nil
				}
				last := labels[len(labels)-1]
				fmt.Fprintf(a.out, "%s\t%s\n", last.Label, last.Text)
				if !languages.IsEmpty() {
					fmt.Fprintf(a.out, "languages\t%s\n", joinCodes(languages))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&to, "to", nil, "TO recipients")
	cmd.Flags().StringSliceVar(&cc, "cc", nil, "CC recipients")
	return cmd
}

func newInspectCommand(a *app) *cobra.Command {
	var keys bool
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show stored recipients and domain counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if keys {
				return a.run(ctx, func(backend storage.Backend) error {
					stored, err := backend.Keys(ctx)
					if err != nil {
						return err
					}
					for _, key := range stored {
						fmt.Fprintln(a.out, key)
					}
					return nil
				})
			}
			return a.run(ctx, func(deductions *factory.DeductionFactory) error {
				pairs, err := deductions.Store().Snapshot(ctx)
				if err != nil {
					return err
				}
				triples, err := deductions.Heuristic().Pairs(ctx)
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
				fmt.Fprintf(w, "# recipients (%d/%d, oldest first)\n", len(pairs), deductions.Store().MaxSize())
				for _, pair := range pairs {
					fmt.Fprintf(w, "%s\t%s\n", pair.Key, joinCodes(pair.Languages))
				}
				fmt.Fprintf(w, "# domains (%d)\n", len(triples))
				for _, t := range triples {
					fmt.Fprintf(w, "%s\t%s\t%d\n", t.First, t.Second, t.Count)
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().BoolVar(&keys, "keys", false, "List the raw storage keys instead")
	return cmd
}

func newPrefsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Read or change stored preferences",
		Long: `Read or change the stored preferences: max_size, max_recipients, notification_level.
A reset preference falls back to its configured default.`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "get <name>",
			Short: "Print a preference",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				return a.run(ctx, func(prefs *core.Preferences) error {
					value, err := prefs.Get(ctx, args[0])
					if err != nil {
						return err
					}
					fmt.Fprintln(a.out, value)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "set <name> <value>",
			Short: "Store a preference",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				return a.run(ctx, func(prefs *core.Preferences, deductions *factory.DeductionFactory) error {
					if err := prefs.Set(ctx, args[0], args[1]); err != nil {
						return err
					}
					if args[0] == "max_size" {
						size, err := cast.ToIntE(args[1])
						if err != nil {
							return err
						}
						return deductions.Store().Resize(ctx, size)
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "reset <name>",
			Short: "Remove a stored preference",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				return a.run(ctx, func(prefs *core.Preferences, backend storage.Backend) error {
					key, err := prefs.Key(args[0])
					if err != nil {
						return err
					}
					return backend.Delete(ctx, key)
				})
			},
		},
	)
	return cmd
}

// open returns the named file, or the command input when name is empty
func (a *app) open(name string) (io.Reader, func(), error) {
	if name == "" {
		return a.in, func() {}, nil
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	return f, func() { f.Close() }, nil
}

func joinCodes(languages core.LanguageSet) string {
	if languages.IsEmpty() {
		return "-"
	}
	out := languages[0]
	for _, code := range languages[1:] {
		out += "," + code
	}
	return out
}
