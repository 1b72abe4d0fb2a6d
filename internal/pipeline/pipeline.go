// =============================================================================
// Sales Aggregator - Pipeline Module
// =============================================================================
//
// This module orchestrates a complete run over one input directory.
//
// PIPELINE:
//   1. Load the branch definitions
//   2. Load the commodity definitions
//   3. Discover the transaction files
//   4. Check the serial sequence
//   5. Validate and aggregate every transaction file
//   6. Write the branch summary
//   7. Write the commodity summary
//   8. Export the workbook (optional)
//   9. Write the run report (optional)
//
// The first failing step stops the run. Nothing is written unless steps 1-5
// all succeeded, so an aborted run never leaves partial summaries behind.
//
// =============================================================================

package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/2507-taguchi-keita/CalculateSales/internal/aggregator"
	"github.com/2507-taguchi-keita/CalculateSales/internal/config"
	"github.com/2507-taguchi-keita/CalculateSales/internal/lstparser"
	"github.com/2507-taguchi-keita/CalculateSales/internal/summarywriter"
	"github.com/2507-taguchi-keita/CalculateSales/internal/types"
	"github.com/2507-taguchi-keita/CalculateSales/internal/validation"
	"github.com/2507-taguchi-keita/CalculateSales/internal/xlsxexport"
	"github.com/2507-taguchi-keita/CalculateSales/pkg/utils"
	"github.com/google/uuid"
	"go.trai.ch/zerr"
)

// Step names attached to errors and log lines.
const (
	StepBranchDefinitions    = "branch_definitions"
	StepCommodityDefinitions = "commodity_definitions"
	StepDiscovery            = "discovery"
	StepSequence             = "sequence"
	StepAggregation          = "aggregation"
	StepBranchOutput         = "branch_output"
	StepCommodityOutput      = "commodity_output"
	StepWorkbook             = "workbook"
	StepReport               = "report"
)

// =============================================================================
// OPTIONS AND RESULT
// =============================================================================

// Progress receives aggregation progress.
type Progress interface {
	// Start is called once with the number of transaction files.
	Start(total int)

	// Advance is called after each committed file.
	Advance(name string)

	// Finish is called when aggregation ends, successfully or not.
	Finish()
}

// Options controls a run.
type Options struct {
	// DryRun performs every check but writes nothing.
	DryRun bool

	// Logger receives stage logs. Default: slog.Default()
	Logger *slog.Logger

	// Progress, if set, is driven during aggregation.
	Progress Progress
}

// Result represents the outcome of a run.
type Result struct {
	// RunID identifies the run in logs and in the report.
	RunID string

	// Dir is the input directory.
	Dir string

	// Branches and Commodities hold the final totals.
	Branches    *types.ReferenceTable
	Commodities *types.ReferenceTable

	// Files are the transaction files in processing order.
	Files []types.TransactionFile

	// Stats are the aggregation statistics.
	Stats aggregator.Stats

	// Outputs lists every file written, in write order.
	Outputs []string

	StartTime time.Time
	EndTime   time.Time
}

// =============================================================================
// RUNNER
// =============================================================================

// Runner executes runs with a fixed configuration.
type Runner struct {
	cfg  *config.MainConfig
	opts Options
}

// New creates a Runner.
func New(cfg *config.MainConfig, opts Options) *Runner {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Runner{cfg: cfg, opts: opts}
}

// Run executes the pipeline over dir.
//
// RETURNS:
//   - The result, partially filled when an error occurred.
//   - The first failure. Its validation.Kind is preserved through the
//     context added here, so validation.KindOf and errors.Is work on it.
func (r *Runner) Run(ctx context.Context, dir string) (*Result, error) {
	result := &Result{
		RunID:     uuid.New().String(),
		Dir:       dir,
		StartTime: time.Now(),
	}
	logger := r.opts.Logger.With(slog.String("run_id", result.RunID))

	logger.Info("starting run", slog.String("dir", dir), slog.Bool("dry_run", r.opts.DryRun))

	if err := r.load(ctx, logger, result); err != nil {
		return result, err
	}

	if err := r.aggregate(ctx, logger, result); err != nil {
		return result, err
	}

	if r.opts.DryRun {
		result.EndTime = time.Now()
		logger.Info("dry run complete, no files written",
			slog.Int("files", result.Stats.FilesProcessed),
			slog.Int64("grand_total", result.Stats.GrandTotal))
		return result, nil
	}

	if err := r.write(ctx, logger, result); err != nil {
		return result, err
	}

	result.EndTime = time.Now()

	if r.cfg.ReportFile != "" {
		path := utils.NewFileManager(dir, nil).Path(r.cfg.ReportFile)
		if err := r.writeReport(result, path); err != nil {
			return result, stepError(validation.Wrap(validation.IOFailure, r.cfg.ReportFile, err), StepReport)
		}
		result.Outputs = append(result.Outputs, path)
	}

	logger.Info("run complete",
		slog.Int("files", result.Stats.FilesProcessed),
		slog.Int64("grand_total", result.Stats.GrandTotal),
		slog.Duration("duration", result.EndTime.Sub(result.StartTime)))

	return result, nil
}

// =============================================================================
// STAGES
// =============================================================================

// load reads both definition files and discovers the transaction files.
func (r *Runner) load(ctx context.Context, logger *slog.Logger, result *Result) error {
	branches, err := loadDomain(result.Dir, &r.cfg.Branch)
	if err != nil {
		return stepError(err, StepBranchDefinitions)
	}
	result.Branches = branches
	logger.Info("loaded definitions", slog.String("domain", branches.Label), slog.Int("codes", branches.Len()))

	if err := ctx.Err(); err != nil {
		return err
	}

	commodities, err := loadDomain(result.Dir, &r.cfg.Commodity)
	if err != nil {
		return stepError(err, StepCommodityDefinitions)
	}
	result.Commodities = commodities
	logger.Info("loaded definitions", slog.String("domain", commodities.Label), slog.Int("codes", commodities.Len()))

	fm := utils.NewFileManager(result.Dir, r.cfg.TransactionRegexp())
	files, err := fm.DiscoverTransactionFiles()
	if err != nil {
		return stepError(err, StepDiscovery)
	}
	result.Files = files
	logger.Info("discovered transaction files", slog.Int("count", len(files)))

	if err := utils.CheckSequence(files); err != nil {
		return stepError(err, StepSequence)
	}

	return nil
}

func loadDomain(dir string, domain *config.Domain) (*types.ReferenceTable, error) {
	table, err := lstparser.Load(dir, domain.DefinitionFile, domain.CodeRegexp())
	if err != nil {
		return nil, err
	}
	table.Label = domain.Label
	return table, nil
}

// aggregate folds every transaction file into the tables.
func (r *Runner) aggregate(ctx context.Context, logger *slog.Logger, result *Result) error {
	opts := []aggregator.Option{
		aggregator.WithCeiling(r.cfg.TotalCeiling),
		aggregator.WithLogger(logger),
	}

	if p := r.opts.Progress; p != nil {
		p.Start(len(result.Files))
		defer p.Finish()
		opts = append(opts, aggregator.WithProgress(func(file types.TransactionFile) {
			p.Advance(file.Name)
		}))
	}

	agg := aggregator.New(result.Branches, result.Commodities, opts...)
	err := agg.Process(ctx, result.Files)
	result.Stats = agg.Stats()
	if err != nil {
		return stepError(err, StepAggregation)
	}

	logger.Info("aggregated transactions",
		slog.Int("files", result.Stats.FilesProcessed),
		slog.Int64("grand_total", result.Stats.GrandTotal))

	return nil
}

// write emits both summaries and the optional workbook.
func (r *Runner) write(ctx context.Context, logger *slog.Logger, result *Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	options := summarywriter.DefaultWriteOptions()
	options.Order = r.cfg.Output.Order
	fm := utils.NewFileManager(result.Dir, nil)

	outputs := []struct {
		step   string
		domain *config.Domain
		table  *types.ReferenceTable
	}{
		{StepBranchOutput, &r.cfg.Branch, result.Branches},
		{StepCommodityOutput, &r.cfg.Commodity, result.Commodities},
	}

	for _, out := range outputs {
		if err := summarywriter.WriteWithOptions(result.Dir, out.domain.OutputFile, out.table, options); err != nil {
			return stepError(err, out.step)
		}
		path := fm.Path(out.domain.OutputFile)
		result.Outputs = append(result.Outputs, path)
		logger.Info("wrote summary", slog.String("file", path), slog.Int("rows", out.table.Len()))
	}

	if r.cfg.XLSXOutput != "" {
		path := fm.Path(r.cfg.XLSXOutput)
		if err := xlsxexport.Export(path, r.cfg.Output.Order, result.Branches, result.Commodities); err != nil {
			return stepError(validation.Wrap(validation.IOFailure, r.cfg.XLSXOutput, err), StepWorkbook)
		}
		result.Outputs = append(result.Outputs, path)
		logger.Info("wrote workbook", slog.String("file", path))
	}

	return nil
}

// writeReport writes the run report with checksums of every output so far.
func (r *Runner) writeReport(result *Result, path string) error {
	report := utils.RunReport{
		RunID:            result.RunID,
		InputDir:         result.Dir,
		StartTime:        result.StartTime,
		EndTime:          result.EndTime,
		DryRun:           r.opts.DryRun,
		TransactionFiles: len(result.Files),
		Branches:         result.Branches.Len(),
		Commodities:      result.Commodities.Len(),
		GrandTotal:       result.Stats.GrandTotal,
	}

	fm := utils.NewFileManager(result.Dir, nil)
	rows := map[string]int{
		fm.Path(r.cfg.Branch.OutputFile):    result.Branches.Len(),
		fm.Path(r.cfg.Commodity.OutputFile): result.Commodities.Len(),
	}

	for _, path := range result.Outputs {
		sum, err := utils.Checksum(path)
		if err != nil {
			return err
		}
		report.Outputs = append(report.Outputs, utils.OutputInfo{
			Path:     path,
			Rows:     rows[path],
			Checksum: sum,
		})
	}

	return utils.WriteRunReport(report, path)
}

// stepError attaches the failing step to err.
func stepError(err error, step string) error {
	return zerr.With(zerr.Wrap(err, "step "+step+" failed"), "step", step)
}
