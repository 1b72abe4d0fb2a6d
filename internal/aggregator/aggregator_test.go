package aggregator_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/2507-taguchi-keita/CalculateSales/internal/aggregator"
	"github.com/2507-taguchi-keita/CalculateSales/internal/types"
	"github.com/2507-taguchi-keita/CalculateSales/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tables() (*types.ReferenceTable, *types.ReferenceTable) {
	branches := types.NewReferenceTable("branch")
	branches.Set("001", "Tokyo")
	branches.Set("002", "Osaka")

	commodities := types.NewReferenceTable("commodity")
	commodities.Set("SFT00001", "Software")
	commodities.Set("HWD00001", "Hardware")

	return branches, commodities
}

// writeRecords writes one transaction file per content, numbered from 1.
func writeRecords(t *testing.T, contents ...string) []types.TransactionFile {
	t.Helper()
	dir := t.TempDir()

	files := make([]types.TransactionFile, len(contents))
	for i, content := range contents {
		name := fmt.Sprintf("%08d.rcd", i+1)
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		files[i] = types.TransactionFile{Name: name, Path: path, Serial: i + 1}
	}
	return files
}

func TestProcess_SumsPerBranchAndCommodity(t *testing.T) {
	branches, commodities := tables()
	files := writeRecords(t,
		"001\nSFT00001\n1000\n",
		"001\nSFT00001\n1000\n",
		"001\nSFT00001\n1000\n",
		"002\nHWD00001\n5\n",
	)

	agg := aggregator.New(branches, commodities)
	require.NoError(t, agg.Process(context.Background(), files))

	assert.Equal(t, int64(3000), branches.Total("001"))
	assert.Equal(t, int64(5), branches.Total("002"))
	assert.Equal(t, int64(3000), commodities.Total("SFT00001"))
	assert.Equal(t, int64(5), commodities.Total("HWD00001"))
	assert.Equal(t, aggregator.Stats{FilesProcessed: 4, GrandTotal: 3005}, agg.Stats())
}

func TestProcess_CRLFLineEndings(t *testing.T) {
	branches, commodities := tables()
	files := writeRecords(t, "001\r\nSFT00001\r\n42\r\n")

	require.NoError(t, aggregator.New(branches, commodities).Process(context.Background(), files))
	assert.Equal(t, int64(42), branches.Total("001"))
}

func TestProcess_OverflowBoundary(t *testing.T) {
	t.Run("largest total accepted", func(t *testing.T) {
		branches, commodities := tables()
		files := writeRecords(t, "001\nSFT00001\n9999999999\n")

		require.NoError(t, aggregator.New(branches, commodities).Process(context.Background(), files))
		assert.Equal(t, int64(9_999_999_999), branches.Total("001"))
		assert.Equal(t, int64(9_999_999_999), commodities.Total("SFT00001"))
	})

	t.Run("one more rejected, both totals untouched", func(t *testing.T) {
		branches, commodities := tables()
		files := writeRecords(t,
			"001\nSFT00001\n9999999999\n",
			"001\nSFT00001\n1\n",
		)

		err := aggregator.New(branches, commodities).Process(context.Background(), files)
		require.Error(t, err)
		assert.ErrorIs(t, err, validation.ErrAmountOverflow)
		assert.Equal(t, int64(9_999_999_999), branches.Total("001"))
		assert.Equal(t, int64(9_999_999_999), commodities.Total("SFT00001"))
	})

	t.Run("amount beyond int64", func(t *testing.T) {
		branches, commodities := tables()
		files := writeRecords(t, "001\nSFT00001\n99999999999999999999\n")

		err := aggregator.New(branches, commodities).Process(context.Background(), files)
		assert.ErrorIs(t, err, validation.ErrAmountOverflow)
	})
}

func TestProcess_CommitIsAtomic(t *testing.T) {
	branches, commodities := tables()
	// Branch 002 has room, commodity SFT00001 does not.
	files := writeRecords(t,
		"001\nSFT00001\n9999999000\n",
		"002\nSFT00001\n1000\n",
	)

	err := aggregator.New(branches, commodities).Process(context.Background(), files)
	require.ErrorIs(t, err, validation.ErrAmountOverflow)

	assert.Zero(t, branches.Total("002"), "branch total must not be committed alone")
	assert.Equal(t, int64(9_999_999_000), commodities.Total("SFT00001"))
}

func TestProcess_StopsAtFirstError(t *testing.T) {
	branches, commodities := tables()
	files := writeRecords(t,
		"001\nSFT00001\n10\n",
		"999\nSFT00001\n10\n",
		"001\nSFT00001\n10\n",
	)

	var seen []string
	agg := aggregator.New(branches, commodities, aggregator.WithProgress(func(f types.TransactionFile) {
		seen = append(seen, f.Name)
	}))

	err := agg.Process(context.Background(), files)
	require.Error(t, err)
	assert.ErrorIs(t, err, validation.ErrInvalidBranchCode)
	assert.Contains(t, err.Error(), "00000002.rcd")

	assert.Equal(t, int64(10), branches.Total("001"), "third file must not be aggregated")
	assert.Equal(t, []string{"00000001.rcd"}, seen)
	assert.Equal(t, 1, agg.Stats().FilesProcessed)
}

func TestProcess_NonNumericAmountLeavesTotals(t *testing.T) {
	branches, commodities := tables()
	files := writeRecords(t, "001\nSFT00001\n12a3\n")

	err := aggregator.New(branches, commodities).Process(context.Background(), files)
	require.Error(t, err)
	assert.Equal(t, validation.UnknownError, validation.KindOf(err))
	assert.Zero(t, branches.Total("001"))
	assert.Zero(t, commodities.Total("SFT00001"))
}

func TestProcess_CustomCeiling(t *testing.T) {
	branches, commodities := tables()
	files := writeRecords(t, "001\nSFT00001\n99\n", "001\nSFT00001\n1\n")

	err := aggregator.New(branches, commodities, aggregator.WithCeiling(100)).Process(context.Background(), files)
	require.ErrorIs(t, err, validation.ErrAmountOverflow)
	assert.Equal(t, int64(99), branches.Total("001"))
}

func TestProcess_CancelledContext(t *testing.T) {
	branches, commodities := tables()
	files := writeRecords(t, "001\nSFT00001\n10\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := aggregator.New(branches, commodities).Process(ctx, files)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, branches.Total("001"))
}

func TestProcess_MissingFile(t *testing.T) {
	branches, commodities := tables()
	files := []types.TransactionFile{{Name: "00000001.rcd", Path: filepath.Join(t.TempDir(), "00000001.rcd"), Serial: 1}}

	err := aggregator.New(branches, commodities).Process(context.Background(), files)
	assert.ErrorIs(t, err, validation.ErrFileNotFound)
}

func TestParseRecord(t *testing.T) {
	branches, commodities := tables()

	tests := []struct {
		name    string
		lines   []string
		wantErr error
		want    types.TransactionRecord
	}{
		{
			name:  "valid",
			lines: []string{"001", "SFT00001", "1000"},
			want:  types.TransactionRecord{BranchCode: "001", CommodityCode: "SFT00001", Amount: 1000, Source: "00000001.rcd"},
		},
		{name: "two lines", lines: []string{"001", "1000"}, wantErr: validation.ErrInvalidFormat},
		{name: "four lines", lines: []string{"001", "SFT00001", "1000", ""}, wantErr: validation.ErrInvalidFormat},
		{name: "empty", lines: nil, wantErr: validation.ErrInvalidFormat},
		{name: "unknown branch", lines: []string{"003", "SFT00001", "1"}, wantErr: validation.ErrInvalidBranchCode},
		{name: "unknown commodity", lines: []string{"001", "SFT00009", "1"}, wantErr: validation.ErrInvalidCommodityCode},
		{name: "commodity code is case sensitive", lines: []string{"001", "sft00001", "1"}, wantErr: validation.ErrInvalidCommodityCode},
		{name: "negative amount", lines: []string{"001", "SFT00001", "-1"}, wantErr: validation.ErrUnknown},
		{name: "decimal amount", lines: []string{"001", "SFT00001", "1.5"}, wantErr: validation.ErrUnknown},
		{name: "empty amount", lines: []string{"001", "SFT00001", ""}, wantErr: validation.ErrUnknown},
		{name: "padded amount", lines: []string{"001", "SFT00001", " 10"}, wantErr: validation.ErrUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := aggregator.ParseRecord("00000001.rcd", tt.lines, branches, commodities)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, record)
		})
	}
}

func TestReadRecord_KeepsTrailingLines(t *testing.T) {
	files := writeRecords(t, "001\nSFT00001\n10\n\n")

	lines, err := aggregator.ReadRecord(files[0].Path, files[0].Name)
	require.NoError(t, err)
	assert.Equal(t, []string{"001", "SFT00001", "10", ""}, lines)
}

func TestProcess_CROnlyLineEndings(t *testing.T) {
	branches, commodities := tables()
	files := writeRecords(t, "001\rSFT00001\r42\r")

	require.NoError(t, aggregator.New(branches, commodities).Process(context.Background(), files))
	assert.Equal(t, int64(42), branches.Total("001"))
	assert.Equal(t, int64(42), commodities.Total("SFT00001"))
}
