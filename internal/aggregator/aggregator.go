// =============================================================================
// Sales Aggregator - Transaction Aggregator
// =============================================================================
//
// This module validates transaction files and folds their amounts into the
// branch and commodity reference tables.
//
// TRANSACTION FILE FORMAT (NNNNNNNN.rcd):
//   001        <- branch code, must exist in the branch table
//   SFT00001   <- commodity code, must exist in the commodity table
//   10000      <- amount, digits only
//
// PROCESSING PER FILE:
//   1. Read every line
//   2. Check the shape (exactly 3 lines)
//   3. Check both codes against the tables
//   4. Parse the amount
//   5. Compute both candidate totals and check them against the ceiling
//   6. Commit both totals
//
// A record either updates both totals or neither. The first failing file
// stops the run; later files are not read.
//
// =============================================================================

package aggregator

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/2507-taguchi-keita/CalculateSales/internal/types"
	"github.com/2507-taguchi-keita/CalculateSales/internal/validation"
	"github.com/2507-taguchi-keita/CalculateSales/pkg/utils"
)

// recordLines is the number of lines of a transaction file.
const recordLines = 3

// =============================================================================
// STATISTICS
// =============================================================================

// Stats contains statistics about an aggregation pass.
type Stats struct {
	// FilesProcessed is the number of transaction files committed.
	FilesProcessed int

	// GrandTotal is the sum of all committed amounts.
	GrandTotal int64
}

// =============================================================================
// AGGREGATOR STRUCTURE
// =============================================================================

// Aggregator folds transaction files into two reference tables.
type Aggregator struct {
	branches    *types.ReferenceTable
	commodities *types.ReferenceTable

	ceiling  int64
	progress func(file types.TransactionFile)
	logger   *slog.Logger

	stats Stats
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithCeiling overrides the smallest rejected total.
func WithCeiling(ceiling int64) Option {
	return func(a *Aggregator) {
		a.ceiling = ceiling
	}
}

// WithProgress registers a callback invoked after each committed file.
func WithProgress(fn func(file types.TransactionFile)) Option {
	return func(a *Aggregator) {
		a.progress = fn
	}
}

// WithLogger sets the logger used for per-file debug lines.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) {
		a.logger = logger
	}
}

// New creates an Aggregator over the given tables.
//
// PARAMETERS:
//   - branches: The branch table; its totals are updated in place.
//   - commodities: The commodity table; its totals are updated in place.
//   - opts: Optional settings.
func New(branches, commodities *types.ReferenceTable, opts ...Option) *Aggregator {
	a := &Aggregator{
		branches:    branches,
		commodities: commodities,
		ceiling:     validation.DefaultTotalCeiling,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Stats returns the statistics accumulated so far.
func (a *Aggregator) Stats() Stats {
	return a.stats
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Process aggregates files in the given order.
//
// PARAMETERS:
//   - ctx: Checked before each file; a cancelled context stops the pass.
//   - files: The transaction files, already sorted and sequence-checked.
//
// RETURNS:
//   - nil if every file was committed.
//   - The first failure otherwise. Files before the failing one stay
//     committed; the caller must not write outputs.
func (a *Aggregator) Process(ctx context.Context, files []types.TransactionFile) error {
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := a.processFile(file); err != nil {
			return err
		}

		a.stats.FilesProcessed++
		if a.progress != nil {
			a.progress(file)
		}
	}

	return nil
}

// processFile validates one file and commits its amount.
func (a *Aggregator) processFile(file types.TransactionFile) error {
	lines, err := ReadRecord(file.Path, file.Name)
	if err != nil {
		return err
	}

	record, err := ParseRecord(file.Name, lines, a.branches, a.commodities)
	if err != nil {
		return err
	}

	return a.commit(record)
}

// commit checks both candidate totals before updating either of them.
func (a *Aggregator) commit(record types.TransactionRecord) error {
	branchTotal, err := validation.CheckTotal(record.Source,
		a.branches.Total(record.BranchCode), record.Amount, a.ceiling)
	if err != nil {
		return err
	}

	commodityTotal, err := validation.CheckTotal(record.Source,
		a.commodities.Total(record.CommodityCode), record.Amount, a.ceiling)
	if err != nil {
		return err
	}

	a.branches.SetTotal(record.BranchCode, branchTotal)
	a.commodities.SetTotal(record.CommodityCode, commodityTotal)
	a.stats.GrandTotal += record.Amount

	a.logger.Debug("aggregated transaction",
		slog.String("file", record.Source),
		slog.String("branch", record.BranchCode),
		slog.String("commodity", record.CommodityCode),
		slog.Int64("amount", record.Amount))

	return nil
}

// =============================================================================
// RECORD PARSING
// =============================================================================

// ReadRecord reads every line of a transaction file.
//
// PARAMETERS:
//   - path: The file location.
//   - name: The bare file name used in errors.
//
// RETURNS:
//   - The lines without their terminators (\n, \r\n or \r).
//   - IOFailure if the file cannot be opened, read or closed.
func ReadRecord(path, name string) (lines []string, err error) {
	file, err := os.Open(path) //nolint:gosec // path comes from directory discovery
	if errors.Is(err, fs.ErrNotExist) {
		return nil, validation.New(validation.FileNotFound, name, "")
	}
	if err != nil {
		return nil, validation.Wrap(validation.IOFailure, name, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			lines, err = nil, validation.Wrap(validation.IOFailure, name, cerr)
		}
	}()

	scanner := utils.NewLineScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, validation.Wrap(validation.IOFailure, name, err)
	}

	return lines, nil
}

// ParseRecord validates the lines of one transaction file.
//
// PARAMETERS:
//   - name: The file name used in errors.
//   - lines: The file content, one element per line.
//   - branches, commodities: The tables the codes must exist in.
//
// RETURNS:
//   - The record on success.
//   - InvalidFormat if there are not exactly 3 lines.
//   - InvalidBranchCode / InvalidCommodityCode for unknown codes.
//   - UnknownError for a non-numeric amount.
//   - AmountOverflow for an amount too large to represent.
//
// ParseRecord never mutates the tables.
func ParseRecord(name string, lines []string, branches, commodities *types.ReferenceTable) (types.TransactionRecord, error) {
	if len(lines) != recordLines {
		return types.TransactionRecord{}, validation.New(validation.InvalidFormat, name,
			"expected %d lines, got %d", recordLines, len(lines))
	}

	branchCode, commodityCode, amountText := lines[0], lines[1], lines[2]

	if !branches.Has(branchCode) {
		return types.TransactionRecord{}, validation.New(validation.InvalidBranchCode, name,
			"%q is not in the %s table", branchCode, branches.Label)
	}
	if !commodities.Has(commodityCode) {
		return types.TransactionRecord{}, validation.New(validation.InvalidCommodityCode, name,
			"%q is not in the %s table", commodityCode, commodities.Label)
	}

	amount, err := validation.ParseAmount(name, amountText)
	if err != nil {
		return types.TransactionRecord{}, err
	}

	return types.TransactionRecord{
		BranchCode:    branchCode,
		CommodityCode: commodityCode,
		Amount:        amount,
		Source:        name,
	}, nil
}
