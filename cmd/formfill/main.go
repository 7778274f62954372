package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/v0xg/formfill/internal/analyzer"
	"github.com/v0xg/formfill/internal/config"
	"github.com/v0xg/formfill/internal/observability"
	"github.com/v0xg/formfill/internal/store"
)

var (
	cfgFile string
	verbose bool
	cfg     *config.Config
)

func main() {
	// Load .env file if present (silently ignore if not found)
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	observability.Sync()
	if err != nil {
		os.Exit(exitCode(err))
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "formfill",
		Short: "Discover web forms and fill them automatically",
		Long: `formfill finds the primary form on a web page, records a descriptor of its
fields and submit control, and replays that descriptor in a real browser.

Example:
  formfill analyze "https://example.com/contact" -o contact.json
  formfill fill contact.json --generate --visible`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(viper.New(), cfgFile)
			if err != nil {
				return err
			}
			if verbose {
				loaded.Logger.Level = "debug"
			}
			cfg = loaded
			observability.InitializeLogger(cfg.Logger)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed progress")

	rootCmd.AddCommand(
		newAnalyzeCmd(),
		newFillCmd(),
		newGenerateCmd(),
		newServeCmd(),
		newMigrateCmd(),
	)
	return rootCmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			fmt.Print("→ Migrating database... ")
			if err := st.Migrate(cmd.Context()); err != nil {
				fmt.Println("failed")
				return err
			}
			fmt.Println("done")
			return nil
		},
	}
}

func openStore(ctx context.Context) (*store.Store, error) {
	if cfg.Database.DSN == "" {
		return nil, errors.New("database.dsn is not configured (set FORMFILL_DATABASE_DSN)")
	}
	return store.Open(ctx, cfg.Database.DSN, observability.GetLogger())
}

// exitCode separates "no form on the page" from other failures
func exitCode(err error) int {
	switch {
	case errors.Is(err, analyzer.ErrNoFormFound):
		return 2
	case errors.Is(err, context.Canceled):
		return 130
	default:
		return 1
	}
}
