package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coolbeans/lexcanon/pkg/config"
	"github.com/coolbeans/lexcanon/pkg/corpus"
	"github.com/coolbeans/lexcanon/pkg/harness"
	"github.com/coolbeans/lexcanon/pkg/server"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Copy a file corpus into a SQL store",
		Long: `Load a file corpus and write it to SQLite or PostgreSQL. Existing corpus
rows are replaced.

The corpus is verified first and the import is refused if it has any
violation. Records are stored exactly as authored.

With --restamp every source is stored with its derived authority tier
and canonical identifier, overwriting persisted values. Each overwritten
value is logged. Use it to migrate a corpus to a new identifier format.

Example:
  lexcanon import --corpus ./corpus --to sqlite --dsn corpus.db
  lexcanon import --corpus ./corpus --to sqlite --dsn corpus.db --restamp
  lexcanon import --corpus ./corpus --to postgres --dsn "postgres://lexcanon@localhost/lexcanon?sslmode=disable"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			to, _ := cmd.Flags().GetString("to")
			dsn, _ := cmd.Flags().GetString("dsn")
			restamp, _ := cmd.Flags().GetBool("restamp")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if path, _ := cmd.Flags().GetString("corpus"); path != "" {
				cfg.Corpus.Path = path
			}
			if to != config.DriverSQLite && to != config.DriverPostgres {
				return fmt.Errorf("--to must be %s or %s", config.DriverSQLite, config.DriverPostgres)
			}
			if dsn == "" {
				return fmt.Errorf("--dsn is required")
			}

			logger, err := newLogger(cmd, cfg)
			if err != nil {
				return err
			}
			registry, err := loadRegistry(cfg)
			if err != nil {
				return err
			}

			fileStore, err := corpus.NewFileStore(cfg.Corpus.Path, registry)
			if err != nil {
				return err
			}
			snapshot, err := fileStore.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to load corpus: %w", err)
			}
			for _, rejected := range snapshot.Rejected() {
				logger.Warn().Str("path", rejected.Path).Str("reason", rejected.Reason).Msg("document skipped")
			}

			if restamp {
				var changes []corpus.IdentityChange
				snapshot, changes = corpus.Restamp(snapshot)
				for _, change := range changes {
					logger.Warn().
						Str("slug", change.Slug).
						Int("index", change.Index).
						Str("citation", change.Citation).
						Str("field", change.Field).
						Str("previous", change.Previous).
						Str("current", change.Current).
						Msg("persisted identity rewritten")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Restamped %d persisted values\n", len(changes))
			} else {
				checker := harness.New(harness.Options{
					Concurrency: cfg.Harness.Concurrency,
					Logger:      &logger,
				})
				report, err := checker.Verify(cmd.Context(), snapshot)
				if err != nil {
					return err
				}
				if !report.Passed() {
					return fmt.Errorf("import refused: %d violations in %d entries (fix them or pass --restamp to rewrite persisted identities)",
						len(report.Violations()), report.EntriesFailed)
				}
			}

			sqlStore, err := corpus.OpenSQLStore(to, dsn, registry)
			if err != nil {
				return err
			}
			defer func() { _ = sqlStore.Close() }()

			if err := sqlStore.Migrate(cmd.Context()); err != nil {
				return err
			}
			if err := sqlStore.Save(cmd.Context(), snapshot); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d entries and %d conflict assertions into %s\n",
				snapshot.Len(), len(snapshot.Conflicts()), to)
			return nil
		},
	}

	cmd.Flags().String("corpus", "", "Corpus directory to import (default from config)")
	cmd.Flags().String("to", config.DriverSQLite, "Target driver (sqlite, postgres)")
	cmd.Flags().String("dsn", "", "Target data source name")
	cmd.Flags().Bool("restamp", false, "Store derived tiers and ids, overwriting persisted ones")

	return cmd
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the authoring API",
		Long: `Serve the authoring API used by editors and content tooling.

Endpoints:
  GET  /healthz
  GET  /metrics
  POST /v1/sources/identify
  POST /v1/entries/validate
  POST /v1/conflicts/resolve

Example:
  lexcanon serve --addr :8080`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				cfg.Server.Addr = addr
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, err := newLogger(cmd, cfg)
			if err != nil {
				return err
			}
			registry, err := loadRegistry(cfg)
			if err != nil {
				return err
			}

			metrics := harness.NewMetrics()
			checker := harness.New(harness.Options{
				StaleAfterDays: cfg.Harness.StaleAfterDays,
				Logger:         &logger,
				Metrics:        metrics,
			})
			return server.New(cfg.Server, registry, checker, metrics, logger).ListenAndServe(cmd.Context())
		},
	}

	cmd.Flags().String("addr", "", "Listen address (default from config)")
	return cmd
}
