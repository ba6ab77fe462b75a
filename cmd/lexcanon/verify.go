package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/coolbeans/lexcanon/pkg/config"
	"github.com/coolbeans/lexcanon/pkg/corpus"
	"github.com/coolbeans/lexcanon/pkg/harness"
)

func verifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify every entry and conflict assertion in the corpus",
		Long: `Verify the corpus and exit non-zero if any entry violates the source
contract.

Every entry is checked for:
  - sources missing an authority tier or canonical identifier
  - persisted tiers or identifiers that no longer match their source
  - two sources resolving to the same canonical identifier
  - a disclosure claim with no sources

Conflict assertions naming unknown identifiers fail the run. Assertions
between sources of equal tier are listed as escalations for an editor.
Citation canon and verification age are reported as warnings.

Example:
  lexcanon verify --corpus ./corpus
  lexcanon verify --format markdown --output report.md
  lexcanon verify --driver sqlite --dsn corpus.db --format json
  lexcanon verify --metrics-file /var/lib/node_exporter/lexcanon.prom
  lexcanon verify --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatStr, _ := cmd.Flags().GetString("format")
			outputPath, _ := cmd.Flags().GetString("output")
			metricsPath, _ := cmd.Flags().GetString("metrics-file")
			watch, _ := cmd.Flags().GetBool("watch")

			switch formatStr {
			case "text", "json", "markdown":
			default:
				return fmt.Errorf("unknown format %q (text, json, markdown)", formatStr)
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			applyCorpusFlags(cmd, cfg)
			if cmd.Flags().Changed("fail-on-warn") {
				cfg.Harness.FailOnWarn, _ = cmd.Flags().GetBool("fail-on-warn")
			}
			if cmd.Flags().Changed("concurrency") {
				cfg.Harness.Concurrency, _ = cmd.Flags().GetInt("concurrency")
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
			store, closeStore, err := openStore(cfg.Corpus, registry)
			if err != nil {
				return err
			}
			defer func() { _ = closeStore() }()

			var metrics *harness.Metrics
			if metricsPath != "" {
				metrics = harness.NewMetrics()
			}
			checker := harness.New(harness.Options{
				Concurrency:    cfg.Harness.Concurrency,
				FailOnWarn:     cfg.Harness.FailOnWarn,
				StaleAfterDays: cfg.Harness.StaleAfterDays,
				Logger:         &logger,
				Metrics:        metrics,
			})

			run := func(ctx context.Context) (*harness.Report, error) {
				report, err := checker.Run(ctx, store)
				if err != nil {
					return nil, err
				}
				if err := writeReport(cmd.OutOrStdout(), report, formatStr, outputPath); err != nil {
					return nil, err
				}
				if metrics != nil {
					if err := metrics.WriteTextfile(metricsPath); err != nil {
						return nil, fmt.Errorf("failed to write metrics: %w", err)
					}
				}
				return report, nil
			}

			if watch {
				return watchCorpus(cmd.Context(), store, cfg, logger, run)
			}

			report, err := run(cmd.Context())
			if err != nil {
				return err
			}
			if report.ExitCode() != 0 {
				return fmt.Errorf("verification failed: %d violations in %d entries, %d warnings",
					len(report.Violations()), report.EntriesFailed, len(report.Warnings()))
			}
			return nil
		},
	}

	addCorpusFlags(cmd)
	cmd.Flags().StringP("format", "f", "text", "Output format (text, json, markdown)")
	cmd.Flags().StringP("output", "o", "", "Also save the report to a file (format based on extension: .md, .json, else text)")
	cmd.Flags().String("metrics-file", "", "Write Prometheus metrics to this textfile after each run")
	cmd.Flags().Bool("fail-on-warn", false, "Exit non-zero on warnings as well as violations")
	cmd.Flags().Int("concurrency", 0, "Entries checked in parallel (default from config)")
	cmd.Flags().Bool("watch", false, "Re-run whenever the corpus directory changes (file driver only)")

	return cmd
}

func addCorpusFlags(cmd *cobra.Command) {
	cmd.Flags().String("corpus", "", "Corpus directory (file driver)")
	cmd.Flags().String("driver", "", "Corpus driver override (file, sqlite, postgres)")
	cmd.Flags().String("dsn", "", "Data source name for the SQL drivers")
}

func applyCorpusFlags(cmd *cobra.Command, cfg *config.Config) {
	if path, _ := cmd.Flags().GetString("corpus"); path != "" {
		cfg.Corpus.Driver = config.DriverFile
		cfg.Corpus.Path = path
	}
	if driver, _ := cmd.Flags().GetString("driver"); driver != "" {
		cfg.Corpus.Driver = driver
	}
	if dsn, _ := cmd.Flags().GetString("dsn"); dsn != "" {
		cfg.Corpus.DSN = dsn
	}
}

func writeReport(out io.Writer, report *harness.Report, formatStr, outputPath string) error {
	rendered, err := renderReport(report, formatStr)
	if err != nil {
		return err
	}
	if _, err := out.Write(rendered); err != nil {
		return err
	}

	if outputPath == "" {
		return nil
	}
	saved, err := renderReport(report, formatForPath(outputPath))
	if err != nil {
		return err
	}
	if err := os.WriteFile(outputPath, saved, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func renderReport(report *harness.Report, formatStr string) ([]byte, error) {
	switch formatStr {
	case "json":
		data, err := report.ToJSON()
		if err != nil {
			return nil, fmt.Errorf("failed to serialize report: %w", err)
		}
		return append(data, '\n'), nil
	case "markdown":
		return []byte(report.ToMarkdown()), nil
	default:
		return []byte(report.String()), nil
	}
}

func formatForPath(path string) string {
	switch {
	case strings.HasSuffix(path, ".md"):
		return "markdown"
	case strings.HasSuffix(path, ".json"):
		return "json"
	default:
		return "text"
	}
}

func watchCorpus(ctx context.Context, store corpus.Store, cfg *config.Config, logger zerolog.Logger, run func(context.Context) (*harness.Report, error)) error {
	fileStore, ok := store.(*corpus.FileStore)
	if !ok {
		return fmt.Errorf("--watch requires the file corpus driver")
	}

	rerun := func() {
		report, err := run(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("verification failed to run")
			return
		}
		logger.Info().Bool("passed", report.Passed()).Msg("waiting for corpus changes")
	}

	rerun()
	return fileStore.Watch(ctx, cfg.Harness.WatchDebounce, rerun)
}
