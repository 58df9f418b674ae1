package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"afterseed/pkg/seed"
	"afterseed/pkg/telemetry"
	"afterseed/services/seeder"
)

const serviceName = "afterseed"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "afterseed",
		Short:         "Ship ordered, tracked data changes to the database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newMigrateCommand())
	cmd.AddCommand(newGenerateCommand())
	cmd.AddCommand(newPlaceholderCommand())
	cmd.AddCommand(newSeedCommand())
	cmd.AddCommand(newDeployCommand())
	cmd.AddCommand(newStatusCommand())
	cmd.AddCommand(newWatchCommand())
	return cmd
}

func newLogger(level string) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl).With().Timestamp().Logger()
}

// withApp loads configuration, starts tracing and opens the app for the
// duration of fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, app *seeder.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := seeder.LoadConfig(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := newLogger(cfg.LogLevel)

	shutdown, err := telemetry.Init(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	app, err := seeder.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Error().Err(err).Msg("close app")
		}
	}()

	return fn(ctx, app)
}

// tagFlag returns the --tag value, or nil when the flag was not given.
func tagFlag(cmd *cobra.Command) *string {
	if !cmd.Flags().Changed("tag") {
		return nil
	}
	tag, _ := cmd.Flags().GetString("tag")
	return &tag
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Install or upgrade the after_seeders ledger table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *seeder.App) error {
				fmt.Fprintln(cmd.OutOrStdout(), "Ledger table is up to date.")
				return nil
			})
		},
	}
}

func newGenerateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate <table>",
		Short: "Create a seeder from rows already in a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *seeder.App) error {
				p := seeder.NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
				gen, err := app.Generate(ctx, args[0], tagFlag(cmd), p)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created seeder %s with %d record(s).\n", gen.Name, gen.Records)
				return nil
			})
		},
	}
	cmd.Flags().String("tag", "", "Tag written into the seeder")
	return cmd
}

func newPlaceholderCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "placeholder <table>",
		Short: "Create an example seeder for a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *seeder.App) error {
				name, err := app.Placeholder(ctx, args[0], tagFlag(cmd))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created seeder %s.\n", name)
				return nil
			})
		},
	}
	cmd.Flags().String("tag", "", "Tag written into the seeder")
	return cmd
}

func newSeedCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Apply pending seeders matching --tag (untagged seeders when omitted)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *seeder.App) error {
				report, err := app.Seed(ctx, tagFlag(cmd))
				seeder.PrintReport(cmd.OutOrStdout(), report)
				if err != nil {
					return err
				}
				return report.Err()
			})
		},
	}
	cmd.Flags().String("tag", "", "Only apply seeders carrying this tag")
	return cmd
}

func newDeployCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "deploy",
		Short: "Run a seed pass for every configured tag, in order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *seeder.App) error {
				reports, err := app.Deploy(ctx)
				for _, report := range reports {
					fmt.Fprintf(cmd.OutOrStdout(), "Tag %s\n", seed.TagLabel(report.Tag))
					seeder.PrintReport(cmd.OutOrStdout(), report)
				}
				if err == nil && len(reports) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No tags available.")
				}
				return err
			})
		},
	}
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List seeders and whether they have been applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *seeder.App) error {
				rows, err := app.Status(ctx)
				if err != nil {
					return err
				}
				seeder.PrintStatus(cmd.OutOrStdout(), rows)
				return nil
			})
		},
	}
}

func newWatchCommand() *cobra.Command {
	var durable string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print applied-seeder events from NATS until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *seeder.App) error {
				err := app.Watch(ctx, durable, func(ctx context.Context, evt seed.AppliedEvent) error {
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", evt.Seeder, seeder.FormatEvent(evt))
					return nil
				})
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		},
	}
	cmd.Flags().StringVar(&durable, "durable", "afterseed-watch", "Durable consumer name")
	return cmd
}
