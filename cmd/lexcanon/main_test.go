package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeTestCorpus(t *testing.T, entry string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "entries"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "corpus.yaml"), []byte("id_format: \"1.0.0\"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "entries", "entry.yaml"), []byte(entry), 0o644))
	return dir
}

const cleanEntry = `slug: b1-b2-visa
sources:
  - type: agency_guidance
    jurisdiction: US
    citation: 9 FAM 402.2
  - type: constitutional_or_statutory
    jurisdiction: US
    citation: "8 U.S.C. § 1184(b)"
`

const duplicateEntry = `slug: form-5472
sources:
  - type: constitutional_or_statutory
    jurisdiction: US
    citation: "26 U.S.C. § 6038A"
  - type: constitutional_or_statutory
    jurisdiction: US
    citation: "26 U.S.C. §6038A"
`

func TestVerifyPasses(t *testing.T) {
	dir := writeTestCorpus(t, cleanEntry)
	reportPath := filepath.Join(t.TempDir(), "report.md")
	metricsPath := filepath.Join(t.TempDir(), "lexcanon.prom")

	out, err := runCLI(t, "verify", "--corpus", dir, "--log-level", "error",
		"--output", reportPath, "--metrics-file", metricsPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Status: PASS")

	saved, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Contains(t, string(saved), "# Citation Verification Report `PASS`")

	metrics, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "lexcanon_verify_runs_total 1")
}

func TestVerifyExampleCorpus(t *testing.T) {
	out, err := runCLI(t, "verify", "--corpus", filepath.Join("..", "..", "examples", "corpus"), "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "Summary: 3 checked, 3 passed, 0 failed, 7 sources")
}

func TestVerifyFailsOnViolations(t *testing.T) {
	dir := writeTestCorpus(t, duplicateEntry)

	out, err := runCLI(t, "verify", "--corpus", dir, "--log-level", "error", "--format", "json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "verification failed")
	assert.Contains(t, out, `"DuplicateCanonicalId"`)
	assert.Contains(t, out, `"26 U.S.C. §6038A"`)
}

func TestVerifyRejectsUnknownFormat(t *testing.T) {
	_, err := runCLI(t, "verify", "--format", "html")
	assert.Error(t, err)
}

func TestIdentifyIgnoresFormatting(t *testing.T) {
	first, err := runCLI(t, "identify", "--type", "constitutional_or_statutory", "--jurisdiction", "US", "--citation", "26 USC 6038A")
	require.NoError(t, err)
	second, err := runCLI(t, "identify", "--type", "constitutional_or_statutory", "--jurisdiction", "US", "--citation", "26 U.S.C. § 6038A")
	require.NoError(t, err)

	assert.Contains(t, first, "Authority level:  tier-1")
	assert.Equal(t, firstLine(first), firstLine(second))
}

func TestLint(t *testing.T) {
	_, err := runCLI(t, "lint", "26 U.S.C. § 6038A")
	assert.NoError(t, err)

	out, err := runCLI(t, "lint", "26 USC 6038A")
	assert.Error(t, err)
	assert.Contains(t, out, "usc-periods")
}

func TestOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entry.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cleanEntry), 0o644))

	out, err := runCLI(t, "order", path)
	require.NoError(t, err)
	assert.Less(t, bytes.Index([]byte(out), []byte("8 U.S.C.")), bytes.Index([]byte(out), []byte("9 FAM")))
}

func TestResolve(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conflict.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`left:
  type: agency_guidance
  jurisdiction: US
  citation: 9 FAM 402.2
right:
  type: constitutional_or_statutory
  jurisdiction: US
  citation: "8 U.S.C. § 1184(b)"
point: intent to immigrate
`), 0o644))

	out, err := runCLI(t, "resolve", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Controlling: stat-us-")
}

func TestImportIntoSQLite(t *testing.T) {
	dir := writeTestCorpus(t, cleanEntry)
	dsn := filepath.Join(t.TempDir(), "corpus.db")

	out, err := runCLI(t, "import", "--corpus", dir, "--to", "sqlite", "--dsn", dsn, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 1 entries")

	out, err = runCLI(t, "verify", "--driver", "sqlite", "--dsn", dsn, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "Status: PASS")
}

const staleEntry = `slug: b1-b2-visa
sources:
  - type: agency_guidance
    jurisdiction: US
    citation: 9 FAM 402.2
  - type: constitutional_or_statutory
    jurisdiction: US
    citation: "8 U.S.C. § 1184(b)"
    authority_level: tier-1
    canonical_id: stat-us-0000000000000000
`

func TestImportRefusesFailingCorpus(t *testing.T) {
	dir := writeTestCorpus(t, staleEntry)
	dsn := filepath.Join(t.TempDir(), "corpus.db")

	_, err := runCLI(t, "import", "--corpus", dir, "--to", "sqlite", "--dsn", dsn, "--log-level", "error")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "import refused")
	assert.Contains(t, err.Error(), "--restamp")
}

func TestImportRestamp(t *testing.T) {
	dir := writeTestCorpus(t, staleEntry)
	dsn := filepath.Join(t.TempDir(), "corpus.db")

	out, err := runCLI(t, "import", "--corpus", dir, "--to", "sqlite", "--dsn", dsn, "--restamp", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "Restamped 1 persisted values")

	out, err = runCLI(t, "verify", "--driver", "sqlite", "--dsn", dsn, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "Status: PASS")
}

func TestJurisdictions(t *testing.T) {
	out, err := runCLI(t, "jurisdictions")
	require.NoError(t, err)
	assert.Contains(t, out, "US-DE")
	assert.Contains(t, out, "gm")
}

func firstLine(text string) string {
	line, _, _ := bytes.Cut([]byte(text), []byte("\n"))
	return string(line)
}
