// =============================================================================
// Sales Aggregator - File Manager Utility
// =============================================================================
//
// This module provides the file handling shared by the run:
//   - Transaction file discovery (NNNNNNNN.rcd)
//   - Serial sequence check over the discovered names
//   - Atomic file replacement for outputs
//   - Output checksums and the optional run report
//
// DISCOVERY RULES:
//   - Only regular files directly inside the input directory are considered
//     (symlinks are followed, sub-directories are never descended into).
//   - The name must match the transaction pattern.
//   - Files are sorted by name; with a fixed 8-digit prefix this equals
//     numeric order.
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/2507-taguchi-keita/CalculateSales/internal/types"
	"github.com/2507-taguchi-keita/CalculateSales/internal/validation"
	"github.com/cespare/xxhash/v2"
)

// serialDigits is the length of the numeric prefix of a transaction file name.
const serialDigits = 8

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations inside one input directory.
type FileManager struct {
	// Dir is the input directory.
	Dir string

	// TransactionPattern selects transaction files by name.
	TransactionPattern *regexp.Regexp
}

// NewFileManager creates a new FileManager for dir.
func NewFileManager(dir string, transactionPattern *regexp.Regexp) *FileManager {
	return &FileManager{
		Dir:                dir,
		TransactionPattern: transactionPattern,
	}
}

// Path joins name onto the input directory unless name is already absolute.
func (fm *FileManager) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(fm.Dir, name)
}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// DiscoverTransactionFiles lists the transaction files of the input directory.
//
// RETURNS:
//   - The files sorted ascending by name.
//   - IOFailure if the directory cannot be read.
//   - InvalidFormat if a matching name does not start with 8 digits (only
//     possible with a custom transaction pattern).
func (fm *FileManager) DiscoverTransactionFiles() ([]types.TransactionFile, error) {
	entries, err := os.ReadDir(fm.Dir)
	if err != nil {
		return nil, validation.Wrap(validation.IOFailure, fm.Dir, err)
	}

	var files []types.TransactionFile
	for _, entry := range entries {
		name := entry.Name()
		if !fm.TransactionPattern.MatchString(name) {
			continue
		}

		path := filepath.Join(fm.Dir, name)
		if !isRegularFile(entry, path) {
			continue
		}

		serial, err := parseSerial(name)
		if err != nil {
			return nil, validation.New(validation.InvalidFormat, name, "file name has no %d-digit serial number", serialDigits)
		}

		files = append(files, types.TransactionFile{
			Name:   name,
			Path:   path,
			Serial: serial,
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})

	return files, nil
}

// isRegularFile reports whether entry is a regular file, following symlinks.
func isRegularFile(entry os.DirEntry, path string) bool {
	if entry.Type().IsRegular() {
		return true
	}
	if entry.Type()&os.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// parseSerial reads the leading 8 digits of a transaction file name.
func parseSerial(name string) (int, error) {
	if len(name) < serialDigits {
		return 0, fmt.Errorf("name %q is shorter than %d characters", name, serialDigits)
	}
	prefix := name[:serialDigits]
	for _, r := range prefix {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("name %q does not start with %d digits", name, serialDigits)
		}
	}
	return strconv.Atoi(prefix)
}

// =============================================================================
// SEQUENCE CHECK
// =============================================================================

// CheckSequence verifies that consecutive files differ by exactly one serial.
//
// PARAMETERS:
//   - files: Files sorted ascending by name.
//
// RETURNS:
//   - NonSequentialFiles naming the first broken pair, nil otherwise.
//     Empty and single-file lists always pass.
func CheckSequence(files []types.TransactionFile) error {
	for i := 0; i+1 < len(files); i++ {
		former, latter := files[i], files[i+1]
		if latter.Serial-former.Serial != 1 {
			return validation.New(validation.NonSequentialFiles, latter.Name,
				"%s follows %s", latter.Name, former.Name)
		}
	}
	return nil
}

// =============================================================================
// ATOMIC WRITES
// =============================================================================

// WriteFileAtomic writes path through a temporary file in the same directory
// and renames it into place once fill succeeded. On any failure the temporary
// file is removed and path is left untouched.
//
// The writer handed to fill is buffered; WriteFileAtomic flushes it.
func WriteFileAtomic(path string, fill func(w io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	writer := bufio.NewWriter(tmp)
	if err = fill(writer); err != nil {
		return err
	}
	if err = writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", filepath.Base(path), err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", filepath.Base(path), err)
	}
	if err = os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", filepath.Base(path), err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}

	return nil
}

// =============================================================================
// CHECKSUMS
// =============================================================================

// Checksum returns the xxhash64 digest of a file as 16 hex digits.
func Checksum(path string) (string, error) {
	file, err := os.Open(path) //nolint:gosec // path is built from the input directory
	if err != nil {
		return "", err
	}
	defer file.Close()

	digest := xxhash.New()
	if _, err := io.Copy(digest, file); err != nil {
		return "", err
	}

	return fmt.Sprintf("%016x", digest.Sum64()), nil
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// =============================================================================
// RUN REPORT
// =============================================================================

// RunReport summarizes one run.
type RunReport struct {
	RunID            string
	InputDir         string
	StartTime        time.Time
	EndTime          time.Time
	DryRun           bool
	TransactionFiles int
	Branches         int
	Commodities      int
	GrandTotal       int64
	Outputs          []OutputInfo
}

// OutputInfo describes one written output file.
type OutputInfo struct {
	Path     string
	Rows     int
	Checksum string
}

// WriteRunReport writes a human-readable run report to path.
func WriteRunReport(report RunReport, path string) error {
	return WriteFileAtomic(path, func(w io.Writer) error {
		duration := report.EndTime.Sub(report.StartTime)

		_, err := fmt.Fprintf(w, "Sales Aggregator - Run Report\n"+
			"================================================================================\n\n"+
			"Run Information:\n"+
			"  Run ID:         %s\n"+
			"  Input Dir:      %s\n"+
			"  Start Time:     %s\n"+
			"  End Time:       %s\n"+
			"  Duration:       %s\n"+
			"  Dry Run:        %t\n\n"+
			"Statistics:\n"+
			"  Transaction Files: %d\n"+
			"  Branches:          %d\n"+
			"  Commodities:       %d\n"+
			"  Grand Total:       %d\n\n",
			report.RunID,
			report.InputDir,
			report.StartTime.Format("2006-01-02 15:04:05"),
			report.EndTime.Format("2006-01-02 15:04:05"),
			duration.String(),
			report.DryRun,
			report.TransactionFiles,
			report.Branches,
			report.Commodities,
			report.GrandTotal)
		if err != nil {
			return err
		}

		if len(report.Outputs) > 0 {
			if _, err := io.WriteString(w, "Outputs:\n"+
				"--------------------------------------------------------------------------------\n"); err != nil {
				return err
			}
			for _, out := range report.Outputs {
				if _, err := fmt.Fprintf(w, "  %s  rows=%d  xxhash=%s\n", out.Path, out.Rows, out.Checksum); err != nil {
					return err
				}
			}
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}

		_, err = io.WriteString(w, "================================================================================\n"+
			"End of Report\n")
		return err
	})
}
