package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/twopeaks/controlroom/internal/app"
	"github.com/twopeaks/controlroom/internal/config"
	"github.com/twopeaks/controlroom/internal/sheets"
)

// env is shared by every subcommand and built once in PersistentPreRunE.
type env struct {
	deps *app.Deps
	svcs *app.Services
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("⚠️ No .env file found, relying on OS environment variables")
	}

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	e := &env{}
	defer func() {
		if e.deps != nil {
			e.deps.Close()
		}
	}()
	return newRootCmd(e).ExecuteContext(ctx)
}

func newRootCmd(e *env) *cobra.Command {
	root := &cobra.Command{
		Use:           "seeder",
		Short:         "Seed and maintain Two Peaks data",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return e.setup(cmd.Context())
		},
	}
	root.AddCommand(
		engagementCmd(e),
		ordersCmd(e),
		resetCmd(e),
		importCmd(e),
		scoreCmd(e),
		generateCmd(e),
		fulfillmentCmd(e),
	)
	return root
}

func (e *env) setup(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	app.SetupLogger(cfg.App)
	if cfg.App.StoreDriver == config.DriverMemory {
		log.Warn().Msg("⚠️ APP_STORE_DRIVER=memory, seeded data is dropped when the seeder exits")
	}

	e.deps, err = app.Bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	e.svcs, err = e.deps.Services(nil)
	return err
}

func engagementCmd(e *env) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "engagement",
		Short: "Insert simulated Instagram comments",
		RunE: func(cmd *cobra.Command, _ []string) error {
			evs, err := e.svcs.Engagement.Simulate(cmd.Context(), count)
			if err != nil {
				return err
			}
			log.Info().Int("count", len(evs)).Msg("✅ engagement seeded")
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", 10, "number of comments")
	return cmd
}

func ordersCmd(e *env) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Insert mock orders",
		RunE: func(cmd *cobra.Command, _ []string) error {
			orders, err := e.svcs.Fulfillment.GenerateMockOrders(cmd.Context(), count)
			if err != nil {
				return err
			}
			log.Info().Int("count", len(orders)).Msg("✅ orders seeded")
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", 25, "number of orders")
	return cmd
}

var errNoSheets = errors.New("sheets are not configured, set SHEETS_SPREADSHEET_ID")

func resetCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Clear the raw engagement, lead and post-purchase worksheets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if e.deps.Sheets == nil {
				return errNoSheets
			}
			for _, name := range sheets.ResettableSheets {
				if err := e.deps.Sheets.Reset(cmd.Context(), name); err != nil {
					return fmt.Errorf("reset %s: %w", name, err)
				}
				log.Info().Str("sheet", name).Msg("🧹 worksheet reset")
			}
			return nil
		},
	}
}

func importCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Import engagement rows from the raw worksheet",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if e.deps.Sheets == nil {
				return errNoSheets
			}
			values, err := e.deps.Sheets.Read(cmd.Context(), sheets.EngagementRaw)
			if err != nil {
				return fmt.Errorf("read %s: %w", sheets.EngagementRaw, err)
			}
			n, err := e.svcs.Engagement.ImportRecords(cmd.Context(), sheets.Records(values))
			if err != nil {
				return err
			}
			log.Info().Int("imported", n).Msg("✅ engagement imported")
			return nil
		},
	}
}

func scoreCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "score",
		Short: "Score every unscored engagement event",
		RunE: func(cmd *cobra.Command, _ []string) error {
			leads, err := e.svcs.Scoring.ScorePending(cmd.Context())
			if err != nil {
				return err
			}
			log.Info().Int("scored", len(leads)).Msg("✅ leads scored")
			return nil
		},
	}
}

func generateCmd(e *env) *cobra.Command {
	var threshold int
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Draft outreach templates for qualified leads",
		RunE: func(cmd *cobra.Command, _ []string) error {
			drafts, err := e.svcs.Generation.GenerateQualified(cmd.Context(), threshold)
			if err != nil {
				return err
			}
			log.Info().Int("drafts", len(drafts)).Msg("✅ templates generated")
			return nil
		},
	}
	cmd.Flags().IntVar(&threshold, "threshold", 0, "minimum lead score (default PIPELINE_TEMPLATE_THRESHOLD)")
	return cmd
}

func fulfillmentCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "fulfillment",
		Short: "Draft thank-you emails for delivered orders",
		RunE: func(cmd *cobra.Command, _ []string) error {
			drafts, err := e.svcs.Fulfillment.GenerateEmails(cmd.Context())
			if err != nil {
				return err
			}
			log.Info().Int("drafts", len(drafts)).Msg("✅ fulfillment emails generated")
			return nil
		},
	}
}
