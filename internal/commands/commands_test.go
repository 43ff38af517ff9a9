package commands_test

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rvudash/rvudash/internal/export"
)

var binaryPath string

func TestMain(m *testing.M) {
	// Build the binary once for all tests.
	tmpDir, err := os.MkdirTemp("", "rvudash-test-*")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(tmpDir)

	binaryPath = filepath.Join(tmpDir, "rvudash")
	cmd := exec.Command("go", "build", "-o", binaryPath, "../../cmd/rvudash")
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		panic("failed to build binary: " + err.Error())
	}

	os.Exit(m.Run())
}

// runRvudash runs the binary in dir and returns stdout and stderr separately.
func runRvudash(t *testing.T, dir string, args ...string) (string, string, error) {
	t.Helper()
	cmd := exec.Command(binaryPath, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "NO_COLOR=1")
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// initWorkspace runs init in a temp dir and drops the Epic fixture into data/.
func initWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	_, _, err := runRvudash(t, dir, "init")
	require.NoError(t, err)

	fixture, err := os.ReadFile(filepath.Join("..", "..", "testdata", "charges_epic.txt"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data", "charges_epic.txt"), fixture, 0o644))
	return dir
}

func TestInit_CreatesStructure(t *testing.T) {
	dir := t.TempDir()
	out, _, err := runRvudash(t, dir, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Initialized rvudash at")

	info, err := os.Stat(filepath.Join(dir, "data"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	for _, f := range []string{"rvudash.yaml", ".gitignore", filepath.Join("data", ".gitkeep")} {
		_, err := os.Stat(filepath.Join(dir, f))
		assert.NoError(t, err, "%s should exist", f)
	}
}

func TestInit_Config(t *testing.T) {
	dir := t.TempDir()
	_, _, err := runRvudash(t, dir, "init")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "rvudash.yaml"))
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "Pullman Regional Hospital IP")
	assert.Contains(t, contents, "Lee , Jonathan MD")
}

func TestInit_RefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	_, _, err := runRvudash(t, dir, "init")
	require.NoError(t, err)

	_, stderr, err := runRvudash(t, dir, "init")
	require.Error(t, err)
	assert.Contains(t, stderr, "already exists")

	_, _, err = runRvudash(t, dir, "init", "--force")
	assert.NoError(t, err)
}

func TestInit_TargetDirectory(t *testing.T) {
	dir := t.TempDir()
	_, _, err := runRvudash(t, dir, "init", "clinic")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "clinic", "rvudash.yaml"))
	assert.NoError(t, err)
}

func TestIngest_Summary(t *testing.T) {
	dir := initWorkspace(t)
	out, _, err := runRvudash(t, dir, "ingest")
	require.NoError(t, err)

	assert.Contains(t, out, "Rows: 7")
	assert.Contains(t, out, "Sources: 1 fetched, 0 skipped, 0 failed")
	assert.Contains(t, out, "Lee")
	assert.Contains(t, out, "Mike")
	assert.Contains(t, out, "No rows: Gordon, Katie, Shields")
	assert.NotContains(t, out, "not in providers config")
}

func TestIngest_SummaryFlagsUnconfiguredProvider(t *testing.T) {
	dir := initWorkspace(t)
	cfg := "providers:\n  Lee:\n    - \"Lee , Jonathan MD\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rvudash.yaml"), []byte(cfg), 0o644))

	out, _, err := runRvudash(t, dir, "ingest")
	require.NoError(t, err)
	assert.Contains(t, out, "Frostad, Michael J. MD")
	assert.Contains(t, out, "(not in providers config)")
	assert.NotContains(t, out, "No rows:")
}

func TestIngest_NoData(t *testing.T) {
	dir := t.TempDir()
	_, _, err := runRvudash(t, dir, "init")
	require.NoError(t, err)

	_, stderr, err := runRvudash(t, dir, "ingest")
	require.Error(t, err)
	assert.Contains(t, stderr, "no charge data")
}

func TestStats_JSON(t *testing.T) {
	dir := initWorkspace(t)
	out, _, err := runRvudash(t, dir, "stats",
		"--provider", "Lee", "--start", "2024-01-01", "--end", "2024-01-31", "--format", "json")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "4.97", got["ttl_wrvu"])
	assert.Equal(t, float64(3), got["ttl_encs"])
	assert.Equal(t, float64(1), got["ttl_wcc_encs"])
	assert.Equal(t, float64(1), got["inpt_num_pts"])
}

func TestStats_Table(t *testing.T) {
	dir := initWorkspace(t)
	out, _, err := runRvudash(t, dir, "stats", "--provider", "Lee", "--start", "2024-01-01")
	require.NoError(t, err)
	assert.Contains(t, out, "ttl_wrvu")
	assert.Contains(t, out, "outpt_medicaid_wrvu")
}

func TestStats_Compare(t *testing.T) {
	dir := initWorkspace(t)
	out, _, err := runRvudash(t, dir, "stats",
		"--provider", "Lee", "--start", "2024-01-01", "--end", "2024-01-31",
		"--compare-start", "2023-12-01", "--compare-end", "2023-12-31", "--format", "json")
	require.NoError(t, err)

	var got map[string]map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "4.97", got["range"]["ttl_wrvu"])
	assert.Equal(t, "1.92", got["compare"]["ttl_wrvu"])
	assert.Equal(t, float64(1), got["compare"]["ttl_encs"])
}

func TestStats_CompareTable(t *testing.T) {
	dir := initWorkspace(t)
	out, _, err := runRvudash(t, dir, "stats",
		"--provider", "Lee", "--start", "2024-01-01", "--compare-start", "2020-01-01", "--compare-end", "2020-01-31")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, []string{"field", "range", "compare"}, strings.Fields(lines[0]))
	assert.Contains(t, out, "ttl_wrvu")
}

func TestStats_CompareBadRange(t *testing.T) {
	dir := initWorkspace(t)
	_, stderr, err := runRvudash(t, dir, "stats", "--provider", "Lee", "--start", "2024-01-01",
		"--compare-start", "2023-12-31", "--compare-end", "2023-12-01")
	require.Error(t, err)
	assert.Contains(t, stderr, "--compare-end 2023-12-01 is before --compare-start 2023-12-31")
}

func TestStats_UnknownProvider(t *testing.T) {
	dir := initWorkspace(t)
	_, stderr, err := runRvudash(t, dir, "stats", "--provider", "Nobody", "--start", "2024-01-01")
	require.Error(t, err)
	assert.Contains(t, stderr, `no data for provider "Nobody"`)
}

func TestStats_BadRange(t *testing.T) {
	dir := initWorkspace(t)
	_, stderr, err := runRvudash(t, dir, "stats",
		"--provider", "Lee", "--start", "2024-02-01", "--end", "2024-01-01")
	require.Error(t, err)
	assert.Contains(t, stderr, "is before --start")
}

func TestStats_RequiresProvider(t *testing.T) {
	dir := initWorkspace(t)
	_, _, err := runRvudash(t, dir, "stats", "--start", "2024-01-01")
	assert.Error(t, err)
}

func TestPartitions_Table(t *testing.T) {
	dir := initWorkspace(t)
	out, _, err := runRvudash(t, dir, "partitions", "--provider", "Lee", "--start", "2024-01-01")
	require.NoError(t, err)
	assert.Contains(t, out, "all_encs")
	assert.Contains(t, out, "neg_wrvu_encs")
	assert.Contains(t, out, "outpt_non_enc_wrvus")
}

func TestPartitions_Named(t *testing.T) {
	dir := initWorkspace(t)
	out, _, err := runRvudash(t, dir, "partitions",
		"--provider", "Lee", "--start", "2024-01-01", "--name", "inpt_encs")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "99233")

	_, _, err = runRvudash(t, dir, "partitions",
		"--provider", "Lee", "--start", "2024-01-01", "--name", "nope")
	assert.Error(t, err)
}

func TestReconcile(t *testing.T) {
	dir := initWorkspace(t)
	logPath := filepath.Join(dir, "visits.csv")
	visits := "01/05/2024,100001,E1,99213\n01/20/2024,100099,E2,99214\n"
	require.NoError(t, os.WriteFile(logPath, []byte(visits), 0o644))

	out, _, err := runRvudash(t, dir, "reconcile",
		"--provider", "Lee", "--start", "2024-01-01", "--end", "2024-01-31", "--log", logPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Validated: 1")
	assert.Contains(t, out, "Not found in billing: 1")
	assert.Contains(t, out, "100099")
}

func TestReconcile_MissingLog(t *testing.T) {
	dir := initWorkspace(t)
	_, stderr, err := runRvudash(t, dir, "reconcile",
		"--provider", "Lee", "--start", "2024-01-01", "--log", "missing.csv")
	require.Error(t, err)
	assert.Contains(t, stderr, "opening visit log")
}

func TestExport_CSV(t *testing.T) {
	dir := initWorkspace(t)
	out, _, err := runRvudash(t, dir, "export", "--provider", "Lee", "--start", "2024-01-01")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 13 files")

	data, err := os.ReadFile(filepath.Join(dir, "exports", export.StatsFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "ttl_wrvu")

	_, err = os.Stat(filepath.Join(dir, "exports", "all_encs.csv"))
	assert.NoError(t, err)
}

func TestExport_Parquet(t *testing.T) {
	dir := initWorkspace(t)
	out := filepath.Join(dir, "pq")
	_, _, err := runRvudash(t, dir, "export",
		"--provider", "Lee", "--start", "2024-01-01", "--end", "2024-01-31",
		"--format", "parquet", "--out", out)
	require.NoError(t, err)

	rows, err := parquet.ReadFile[export.ChargeParquet](filepath.Join(out, "all_encs.parquet"))
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestHistory(t *testing.T) {
	dir := initWorkspace(t)
	out, _, err := runRvudash(t, dir, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No runs recorded.")

	_, _, err = runRvudash(t, dir, "ingest")
	require.NoError(t, err)
	_, _, err = runRvudash(t, dir, "stats", "--provider", "Lee", "--start", "2024-01-01")
	require.NoError(t, err)

	out, _, err = runRvudash(t, dir, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "ingest")
	assert.Contains(t, out, "stats")

	out, _, err = runRvudash(t, dir, "history", "--last", "1")
	require.NoError(t, err)
	assert.NotContains(t, out, "ingest")
}

func TestRoot_BadLogFormat(t *testing.T) {
	dir := initWorkspace(t)
	_, stderr, err := runRvudash(t, dir, "ingest", "--log-format", "xml")
	require.Error(t, err)
	assert.Contains(t, stderr, "invalid --log-format")
}

func TestRoot_EnvFile(t *testing.T) {
	dir := initWorkspace(t)
	require.NoError(t, os.Remove(filepath.Join(dir, "rvudash.yaml")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("RVUDASH_DATA_DIR=elsewhere\n"), 0o644))

	_, stderr, err := runRvudash(t, dir, "ingest")
	require.Error(t, err)
	assert.Contains(t, stderr, "no charge data")
}
