package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/2507-taguchi-keita/CalculateSales/internal/config"
	"github.com/2507-taguchi-keita/CalculateSales/internal/pipeline"
	"github.com/2507-taguchi-keita/CalculateSales/internal/validation"
	"github.com/2507-taguchi-keita/CalculateSales/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.trai.ch/zerr"
)

// salesDir builds an input directory with the standard definition files and
// one transaction file per record, numbered from 1.
func salesDir(t *testing.T, records ...string) string {
	t.Helper()
	dir := t.TempDir()
	write(t, dir, "branch.lst", "001,Tokyo\n002,Osaka\n")
	write(t, dir, "commodity.lst", "SFT00001,Software\nHWD00001,Hardware\n")
	for i, record := range records {
		write(t, dir, fmt.Sprintf("%08d.rcd", i+1), record)
	}
	return dir
}

func write(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func read(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	return string(data)
}

func assertNoOutputs(t *testing.T, dir string) {
	t.Helper()
	assert.NoFileExists(t, filepath.Join(dir, "branch.out"))
	assert.NoFileExists(t, filepath.Join(dir, "commodity.out"))
}

func run(t *testing.T, dir string, opts pipeline.Options) (*pipeline.Result, error) {
	t.Helper()
	return pipeline.New(config.DefaultMainConfig(), opts).Run(context.Background(), dir)
}

func TestRun_AggregatesAndWritesSummaries(t *testing.T) {
	dir := salesDir(t,
		"001\nSFT00001\n1000\n",
		"001\nSFT00001\n1000\n",
		"001\nSFT00001\n1000\n",
	)

	result, err := run(t, dir, pipeline.Options{})
	require.NoError(t, err)

	assert.Equal(t, "001,Tokyo,3000\n002,Osaka,0\n", read(t, dir, "branch.out"))
	assert.Equal(t, "HWD00001,Hardware,0\nSFT00001,Software,3000\n", read(t, dir, "commodity.out"))

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 3, result.Stats.FilesProcessed)
	assert.Equal(t, int64(3000), result.Stats.GrandTotal)
	assert.Equal(t, []string{filepath.Join(dir, "branch.out"), filepath.Join(dir, "commodity.out")}, result.Outputs)
}

func TestRun_NoTransactionFiles(t *testing.T) {
	dir := salesDir(t)

	_, err := run(t, dir, pipeline.Options{})
	require.NoError(t, err)
	assert.Equal(t, "001,Tokyo,0\n002,Osaka,0\n", read(t, dir, "branch.out"))
}

func TestRun_Idempotent(t *testing.T) {
	dir := salesDir(t, "001\nSFT00001\n10\n", "002\nHWD00001\n20\n")

	_, err := run(t, dir, pipeline.Options{})
	require.NoError(t, err)
	first, err := utils.Checksum(filepath.Join(dir, "branch.out"))
	require.NoError(t, err)

	_, err = run(t, dir, pipeline.Options{})
	require.NoError(t, err)
	second, err := utils.Checksum(filepath.Join(dir, "branch.out"))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRun_FailuresWriteNothing(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T) string
		want    error
		step    string
		wantMsg string
	}{
		{
			name: "missing branch definitions",
			setup: func(t *testing.T) string {
				dir := salesDir(t)
				require.NoError(t, os.Remove(filepath.Join(dir, "branch.lst")))
				return dir
			},
			want:    validation.ErrFileNotFound,
			step:    pipeline.StepBranchDefinitions,
			wantMsg: "branch.lst",
		},
		{
			name: "malformed commodity definitions",
			setup: func(t *testing.T) string {
				dir := salesDir(t)
				write(t, dir, "commodity.lst", "SFT0001,Software\n")
				return dir
			},
			want:    validation.ErrInvalidFormat,
			step:    pipeline.StepCommodityDefinitions,
			wantMsg: "commodity.lst",
		},
		{
			name: "gap in serial numbers",
			setup: func(t *testing.T) string {
				dir := salesDir(t, "001\nSFT00001\n10\n")
				write(t, dir, "00000003.rcd", "001\nSFT00001\n10\n")
				return dir
			},
			want: validation.ErrNonSequentialFiles,
			step: pipeline.StepSequence,
		},
		{
			name: "non numeric amount",
			setup: func(t *testing.T) string {
				return salesDir(t, "001\nSFT00001\n12a3\n")
			},
			want:    validation.ErrUnknown,
			step:    pipeline.StepAggregation,
			wantMsg: "00000001.rcd",
		},
		{
			name: "unknown branch in a later file",
			setup: func(t *testing.T) string {
				return salesDir(t, "001\nSFT00001\n10\n", "009\nSFT00001\n10\n")
			},
			want:    validation.ErrInvalidBranchCode,
			step:    pipeline.StepAggregation,
			wantMsg: "00000002.rcd",
		},
		{
			name: "total reaches ten digits",
			setup: func(t *testing.T) string {
				return salesDir(t, "001\nSFT00001\n9999999999\n", "002\nSFT00001\n1\n")
			},
			want: validation.ErrAmountOverflow,
			step: pipeline.StepAggregation,
		},
		{
			name: "two line transaction file",
			setup: func(t *testing.T) string {
				return salesDir(t, "001\n1000\n")
			},
			want: validation.ErrInvalidFormat,
			step: pipeline.StepAggregation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := tt.setup(t)

			_, err := run(t, dir, pipeline.Options{})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}

			var zerrErr *zerr.Error
			require.True(t, errors.As(err, &zerrErr))
			assert.Equal(t, tt.step, zerrErr.Metadata()["step"])

			assertNoOutputs(t, dir)
		})
	}
}

func TestRun_DryRunWritesNothing(t *testing.T) {
	dir := salesDir(t, "001\nSFT00001\n10\n")

	result, err := run(t, dir, pipeline.Options{DryRun: true})
	require.NoError(t, err)

	assert.Equal(t, int64(10), result.Branches.Total("001"))
	assert.Empty(t, result.Outputs)
	assertNoOutputs(t, dir)
}

func TestRun_CancelledContext(t *testing.T) {
	dir := salesDir(t, "001\nSFT00001\n10\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pipeline.New(config.DefaultMainConfig(), pipeline.Options{}).Run(ctx, dir)
	require.ErrorIs(t, err, context.Canceled)
	assertNoOutputs(t, dir)
}

type recordingProgress struct {
	total    int
	advanced []string
	finished bool
}

func (p *recordingProgress) Start(total int)     { p.total = total }
func (p *recordingProgress) Advance(name string) { p.advanced = append(p.advanced, name) }
func (p *recordingProgress) Finish()             { p.finished = true }

func TestRun_DrivesProgress(t *testing.T) {
	dir := salesDir(t, "001\nSFT00001\n10\n", "001\nSFT00001\n10\n")
	progress := &recordingProgress{}

	_, err := run(t, dir, pipeline.Options{Progress: progress})
	require.NoError(t, err)

	assert.Equal(t, 2, progress.total)
	assert.Equal(t, []string{"00000001.rcd", "00000002.rcd"}, progress.advanced)
	assert.True(t, progress.finished)
}

func TestRun_WorkbookAndReport(t *testing.T) {
	dir := salesDir(t, "001\nSFT00001\n10\n")
	cfg := config.DefaultMainConfig()
	cfg.XLSXOutput = "summary.xlsx"
	cfg.ReportFile = "report.txt"

	result, err := pipeline.New(cfg, pipeline.Options{}).Run(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, result.Outputs, 4)

	f, err := excelize.OpenFile(filepath.Join(dir, "summary.xlsx"))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"branch", "commodity"}, f.GetSheetList())

	branchSum, err := utils.Checksum(filepath.Join(dir, "branch.out"))
	require.NoError(t, err)

	report := read(t, dir, "report.txt")
	assert.Contains(t, report, result.RunID)
	assert.Contains(t, report, "xxhash="+branchSum)
	assert.Contains(t, report, "Grand Total:       10")
}

func TestRun_CustomNamesAndOrder(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "shops.lst", "002,Osaka\n001,Tokyo\n")
	write(t, dir, "commodity.lst", "SFT00001,Software\n")
	write(t, dir, "00000001.rcd", "001\nSFT00001\n7\n")

	cfg, err := config.ParseMainConfig([]byte(`
branch:
  definition_file: shops.lst
  output_file: shops.out
output:
  order: insertion
`))
	require.NoError(t, err)

	_, err = pipeline.New(cfg, pipeline.Options{}).Run(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, "002,Osaka,0\n001,Tokyo,7\n", read(t, dir, "shops.out"))
}
