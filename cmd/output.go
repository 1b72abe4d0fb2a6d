// =============================================================================
// Sales Aggregator - Terminal Output
// =============================================================================
//
// Styled status lines and the transaction progress bar.
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/2507-taguchi-keita/CalculateSales/internal/pipeline"
	"github.com/2507-taguchi-keita/CalculateSales/internal/validation"
	"github.com/charmbracelet/lipgloss"
	"github.com/schollz/progressbar/v3"
)

var (
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	failureStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
	kindStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	mutedStyle   = lipgloss.NewStyle().Faint(true)
)

// printSuccess writes the one-line summary of a finished run.
func printSuccess(w io.Writer, result *pipeline.Result, dryRun bool) {
	verb := "Aggregated"
	if dryRun {
		verb = "Validated"
	}

	line := fmt.Sprintf("%s %s %d transaction file(s), grand total %d",
		successStyle.Render("✓"), verb, result.Stats.FilesProcessed, result.Stats.GrandTotal)

	if len(result.Outputs) > 0 {
		names := make([]string, len(result.Outputs))
		for i, path := range result.Outputs {
			names[i] = filepath.Base(path)
		}
		line += mutedStyle.Render(" -> " + strings.Join(names, ", "))
	}

	fmt.Fprintln(w, line)
}

// printFailure writes the one-line report of a failed run.
func printFailure(w io.Writer, err error) {
	fmt.Fprintf(w, "%s %s %s\n",
		failureStyle.Render("✗"),
		kindStyle.Render(validation.KindOf(err).String()),
		err.Error())
}

// =============================================================================
// PROGRESS BAR
// =============================================================================

// progressBar drives a terminal progress bar from pipeline events.
type progressBar struct {
	w   io.Writer
	bar *progressbar.ProgressBar
}

func newProgressBar(w io.Writer) *progressBar {
	return &progressBar{w: w}
}

// Start implements pipeline.Progress.
func (p *progressBar) Start(total int) {
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(p.w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Aggregating transactions...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(p.w); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
}

// Advance implements pipeline.Progress.
func (p *progressBar) Advance(name string) {
	if p.bar == nil {
		return
	}
	p.bar.Describe("[cyan][bold]" + name + "[reset]")
	if err := p.bar.Add(1); err != nil {
		slog.Warn("Failed to update progress bar", "error", err)
	}
}

// Finish implements pipeline.Progress.
func (p *progressBar) Finish() {
	if p.bar == nil {
		return
	}
	if err := p.bar.Finish(); err != nil {
		slog.Warn("Failed to finish progress bar", "error", err)
	}
}
