package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/coolbeans/lexcanon/pkg/citation"
	"github.com/coolbeans/lexcanon/pkg/conflict"
	"github.com/coolbeans/lexcanon/pkg/corpus"
	"github.com/coolbeans/lexcanon/pkg/harness"
)

func identifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "identify",
		Short: "Classify a source and derive its canonical identifier",
		Long: `Classify a single source into its authority tier and derive its
canonical identifier. Formatting differences in the citation do not
change the identifier.

Example:
  lexcanon identify --type constitutional_or_statutory --jurisdiction US --citation "26 U.S.C. § 6038A"
  lexcanon identify --type agency_guidance --jurisdiction US --url https://www.irs.gov/forms-pubs/about-form-5472
  lexcanon identify --type implementing_regulation --jurisdiction US --citation "26 CFR 1.6038A-2" --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatStr, _ := cmd.Flags().GetString("format")
			record := corpus.SourceRecord{}
			record.Type, _ = cmd.Flags().GetString("type")
			record.Jurisdiction, _ = cmd.Flags().GetString("jurisdiction")
			record.Citation, _ = cmd.Flags().GetString("citation")
			record.URL, _ = cmd.Flags().GetString("url")
			record.Title, _ = cmd.Flags().GetString("title")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			registry, err := loadRegistry(cfg)
			if err != nil {
				return err
			}

			built, err := corpus.BuildSource(record, registry, corpus.BuildOptions{})
			if err != nil {
				return fmt.Errorf("invalid source: %w", err)
			}
			descriptor := built.Descriptor()

			out := cmd.OutOrStdout()
			if formatStr == "json" {
				return writeJSON(out, map[string]any{
					"type":                descriptor.Type(),
					"jurisdiction":        descriptor.Jurisdiction().Code,
					"authority_level":     built.AuthorityLevel(),
					"canonical_id":        built.CanonicalID(),
					"normalized_citation": descriptor.NormalizedCitation(),
				})
			}

			fmt.Fprintf(out, "Canonical ID:     %s\n", built.CanonicalID())
			fmt.Fprintf(out, "Authority level:  %s\n", built.AuthorityLevel())
			fmt.Fprintf(out, "Type:             %s\n", descriptor.Type())
			fmt.Fprintf(out, "Jurisdiction:     %s\n", descriptor.Jurisdiction().Code)
			if descriptor.Citation() != "" {
				fmt.Fprintf(out, "Normalized:       %s\n", descriptor.NormalizedCitation())
				fmt.Fprintf(out, "Canon form:       %s\n", citation.Canon(descriptor.Citation()))
			}
			return nil
		},
	}

	cmd.Flags().String("type", "", "Source type (constitutional_or_statutory, implementing_regulation, administrative_instrument, agency_guidance)")
	cmd.Flags().String("jurisdiction", "", "Jurisdiction code, e.g. US, US-DE, EU")
	cmd.Flags().String("citation", "", "Citation text")
	cmd.Flags().String("url", "", "Source URL")
	cmd.Flags().String("title", "", "Source title")
	cmd.Flags().StringP("format", "f", "text", "Output format (text, json)")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("jurisdiction")

	return cmd
}

func normalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize <citation>...",
		Short: "Print the identity form of citations",
		Long: `Print the normalized form used for identifier generation, followed
by the display canon form.

Example:
  lexcanon normalize "26 USC 6038A" "26 U.S.C. §6038A"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(writer, "CITATION\tNORMALIZED\tCANON")
			for _, raw := range args {
				fmt.Fprintf(writer, "%s\t%s\t%s\n", raw, citation.Normalize(raw), citation.Canon(raw))
			}
			return writer.Flush()
		},
	}
}

func lintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lint <citation>...",
		Short: "Check citations against the display canon",
		Long: `Check citations against the display canon and exit non-zero when any
finding is reported.

Example:
  lexcanon lint "26 USC 6038A"
  lexcanon lint --entry corpus/entries/form-5472.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			entryPath, _ := cmd.Flags().GetString("entry")

			citations := append([]string(nil), args...)
			if entryPath != "" {
				record, err := readEntryRecord(entryPath)
				if err != nil {
					return err
				}
				for _, sourceRecord := range record.Sources {
					if sourceRecord.Citation != "" {
						citations = append(citations, sourceRecord.Citation)
					}
				}
			}
			if len(citations) == 0 {
				return fmt.Errorf("no citations to lint")
			}

			out := cmd.OutOrStdout()
			total := 0
			for _, raw := range citations {
				findings := citation.Lint(raw)
				if len(findings) == 0 {
					continue
				}
				total += len(findings)
				fmt.Fprintf(out, "%q\n", raw)
				for _, finding := range findings {
					fmt.Fprintf(out, "  [%s] %s\n", finding.Rule, finding.Message)
				}
				fmt.Fprintf(out, "  canon: %s\n", citation.Canon(raw))
			}

			if total > 0 {
				return fmt.Errorf("%d canon findings", total)
			}
			fmt.Fprintf(out, "%d citations conform to canon %s\n", len(citations), citation.CanonVersion)
			return nil
		},
	}

	cmd.Flags().String("entry", "", "Lint every citation of an entry document (YAML or JSON)")
	return cmd
}

// resolveRequest is the document read by the resolve command.
type resolveRequest struct {
	Left  corpus.SourceRecord `yaml:"left"`
	Right corpus.SourceRecord `yaml:"right"`
	Point string              `yaml:"point"`
	Note  string              `yaml:"note,omitempty"`
}

func resolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <request.yaml>",
		Short: "Resolve a conflict between two sources by authority tier",
		Long: `Resolve a conflict between two sources. The higher tier controls;
sources of equal tier are reported as indeterminate and need an editor.

The request document names both sources and the point of conflict:

  left:
    type: agency_guidance
    jurisdiction: US
    citation: 9 FAM 402.2
  right:
    type: constitutional_or_statutory
    jurisdiction: US
    citation: 8 U.S.C. § 1184(b)
  point: intent to immigrate

Example:
  lexcanon resolve conflict.yaml
  lexcanon resolve conflict.yaml --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatStr, _ := cmd.Flags().GetString("format")

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read request: %w", err)
			}
			var request resolveRequest
			if err := yaml.Unmarshal(data, &request); err != nil {
				return fmt.Errorf("failed to parse request: %w", err)
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			registry, err := loadRegistry(cfg)
			if err != nil {
				return err
			}

			left, err := corpus.BuildSource(request.Left, registry, corpus.BuildOptions{})
			if err != nil {
				return fmt.Errorf("left source: %w", err)
			}
			right, err := corpus.BuildSource(request.Right, registry, corpus.BuildOptions{})
			if err != nil {
				return fmt.Errorf("right source: %w", err)
			}
			left, right = left.Reclassified(), right.Reclassified()

			resolution, err := conflict.Resolve(left, right, conflict.Assertion{
				Left:  left.CanonicalID(),
				Right: right.CanonicalID(),
				Point: request.Point,
				Note:  request.Note,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if formatStr == "json" {
				summary := map[string]any{"outcome": resolution.Outcome, "point": request.Point}
				if resolution.Resolved() {
					summary["controlling"] = resolution.Controlling.CanonicalID()
					summary["subordinate"] = resolution.Subordinate.CanonicalID()
				} else {
					summary["tied"] = []string{resolution.Tied[0].CanonicalID().String(), resolution.Tied[1].CanonicalID().String()}
				}
				return writeJSON(out, summary)
			}

			fmt.Fprintf(out, "Point: %s\n", request.Point)
			if resolution.Resolved() {
				fmt.Fprintf(out, "Controlling: %s %s (%s)\n",
					resolution.Controlling.CanonicalID(), resolution.Controlling.Descriptor().Label(), resolution.Controlling.AuthorityLevel())
				fmt.Fprintf(out, "Subordinate: %s %s (%s)\n",
					resolution.Subordinate.CanonicalID(), resolution.Subordinate.Descriptor().Label(), resolution.Subordinate.AuthorityLevel())
				return nil
			}
			fmt.Fprintf(out, "Indeterminate: both sources are %s; editorial review required\n", resolution.Tied[0].AuthorityLevel())
			for _, tied := range resolution.Tied {
				fmt.Fprintf(out, "  %s %s\n", tied.CanonicalID(), tied.Descriptor().Label())
			}
			return nil
		},
	}

	cmd.Flags().StringP("format", "f", "text", "Output format (text, json)")
	return cmd
}

func orderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order <entry.yaml>",
		Short: "Validate an entry and print its sources in precedence order",
		Long: `Validate a single entry document and print its sources in publication
order: higher tier first, then jurisdiction, then citation. An entry
with violations has no publication order; its violations are printed
instead.

Example:
  lexcanon order corpus/entries/b1-b2-visa.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatStr, _ := cmd.Flags().GetString("format")

			record, err := readEntryRecord(args[0])
			if err != nil {
				return err
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			registry, err := loadRegistry(cfg)
			if err != nil {
				return err
			}

			result := harness.New(harness.Options{}).CheckEntry(record, registry, corpus.BuildOptions{})

			out := cmd.OutOrStdout()
			if formatStr == "json" {
				if err := writeJSON(out, result); err != nil {
					return err
				}
			} else if result.Passed {
				writer := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(writer, "#\tTIER\tJURISDICTION\tCANONICAL ID\tCITATION")
				for i, ordered := range result.Ordered {
					fmt.Fprintf(writer, "%d\t%s\t%s\t%s\t%s\n",
						i+1, ordered.AuthorityLevel, ordered.Jurisdiction, ordered.CanonicalID, ordered.Citation)
				}
				if err := writer.Flush(); err != nil {
					return err
				}
			} else {
				for _, violation := range result.Violations {
					fmt.Fprintf(out, "ERROR %s\n", violation)
				}
			}

			if !result.Passed {
				return fmt.Errorf("entry %s has %d violations", result.Slug, len(result.Violations))
			}
			return nil
		},
	}

	cmd.Flags().StringP("format", "f", "text", "Output format (text, json)")
	return cmd
}

func jurisdictionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jurisdictions",
		Short: "List known jurisdictions and their identifier tags",
		RunE: func(cmd *cobra.Command, args []string) error {
			formatStr, _ := cmd.Flags().GetString("format")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			registry, err := loadRegistry(cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if formatStr == "json" {
				return writeJSON(out, registry.List())
			}

			writer := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(writer, "CODE\tTAG\tKIND\tPARENT\tNAME")
			for _, jurisdiction := range registry.List() {
				parent := jurisdiction.Parent
				if parent == "" {
					parent = "-"
				}
				fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\n",
					jurisdiction.Code, jurisdiction.Tag, jurisdiction.Kind, parent, jurisdiction.Name)
			}
			return writer.Flush()
		},
	}

	cmd.Flags().StringP("format", "f", "text", "Output format (text, json)")
	return cmd
}

// readEntryRecord reads a single entry document. JSON documents are valid
// YAML, so one decoder serves both.
func readEntryRecord(path string) (corpus.EntryRecord, error) {
	var record corpus.EntryRecord
	data, err := os.ReadFile(path)
	if err != nil {
		return record, fmt.Errorf("failed to read entry: %w", err)
	}
	if err := yaml.Unmarshal(data, &record); err != nil {
		return record, fmt.Errorf("failed to parse entry %s: %w", path, err)
	}
	if strings.TrimSpace(record.Slug) == "" {
		return record, fmt.Errorf("entry %s has no slug", path)
	}
	return record, nil
}

func writeJSON(out io.Writer, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize output: %w", err)
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}
