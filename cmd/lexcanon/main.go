package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/coolbeans/lexcanon/pkg/config"
	"github.com/coolbeans/lexcanon/pkg/corpus"
	"github.com/coolbeans/lexcanon/pkg/logging"
	"github.com/coolbeans/lexcanon/pkg/types"
)

var version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "lexcanon",
		Short: "Citation authority and canonical identifier engine",
		Long: `Lexcanon checks the primary sources cited by published legal guidance.

Every source is classified into an authority tier and given a stable
canonical identifier derived from its type, jurisdiction and normalized
citation. Entries whose sources are unclassified, unidentified or
duplicated are blocked from publication, and conflicting sources are
ordered by tier or escalated to an editor.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("config", "", "Path to a lexcanon.yaml config file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level override (debug, info, warn, error)")

	rootCmd.AddCommand(verifyCmd())
	rootCmd.AddCommand(identifyCmd())
	rootCmd.AddCommand(normalizeCmd())
	rootCmd.AddCommand(lintCmd())
	rootCmd.AddCommand(resolveCmd())
	rootCmd.AddCommand(orderCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(jurisdictionsCmd())

	return rootCmd
}

// loadConfig reads --config when given, else the defaults, and applies
// global flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config) (zerolog.Logger, error) {
	return logging.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
}

func loadRegistry(cfg *config.Config) (*types.JurisdictionRegistry, error) {
	registry, err := cfg.Registry()
	if err != nil {
		return nil, fmt.Errorf("failed to build jurisdiction registry: %w", err)
	}
	return registry, nil
}

// openStore opens the configured corpus. The returned close function is
// never nil.
func openStore(cfg config.CorpusConfig, registry *types.JurisdictionRegistry) (corpus.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Driver {
	case config.DriverFile:
		store, err := corpus.NewFileStore(cfg.Path, registry)
		if err != nil {
			return nil, noop, err
		}
		return store, noop, nil
	case config.DriverSQLite, config.DriverPostgres:
		store, err := corpus.OpenSQLStore(cfg.Driver, cfg.DSN, registry)
		if err != nil {
			return nil, noop, err
		}
		return store, store.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown corpus driver %q", cfg.Driver)
	}
}
