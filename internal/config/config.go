// =============================================================================
// Sales Aggregator - Configuration Module
// =============================================================================
//
// This module loads the optional YAML configuration file. Every setting has a
// default equal to the fixed conventions of the sales directory layout, so a
// run without any configuration file behaves exactly like:
//
//   branch.lst    -> branch.out     (codes: ^[0-9]{3}$)
//   commodity.lst -> commodity.out  (codes: ^[A-Za-z0-9]{8}$)
//   NNNNNNNN.rcd transaction files, totals below 10,000,000,000
//
// CONFIGURATION FILE (calcsales.yaml):
//   branch:
//     definition_file: branch.lst
//     output_file: branch.out
//     code_pattern: "^[0-9]{3}$"
//   commodity:
//     definition_file: commodity.lst
//     output_file: commodity.out
//     code_pattern: "^[A-Za-z0-9]{8}$"
//   transaction_pattern: "^[0-9]{8}\\.rcd$"
//   total_ceiling: 10000000000
//   output:
//     order: sorted          # sorted | insertion | unordered
//   xlsx_output: ""          # workbook path, empty = disabled
//   report_file: ""          # run report path, empty = disabled
//   log_level: info
//   log_format: console
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"

	"github.com/2507-taguchi-keita/CalculateSales/internal/types"
	"github.com/2507-taguchi-keita/CalculateSales/internal/validation"
	"gopkg.in/yaml.v3"
)

// DefaultTransactionPattern matches transaction file names.
const DefaultTransactionPattern = `^[0-9]{8}\.rcd$`

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the settings of a run.
type MainConfig struct {
	// Branch describes the branch reference domain.
	Branch Domain `yaml:"branch"`

	// Commodity describes the commodity reference domain.
	Commodity Domain `yaml:"commodity"`

	// TransactionPattern selects transaction files in the input directory.
	// The first 8 characters of a matching name must be digits; they are
	// the file's serial number.
	TransactionPattern string `yaml:"transaction_pattern"`

	// TotalCeiling is the smallest rejected running total.
	// Default: 10000000000
	TotalCeiling int64 `yaml:"total_ceiling"`

	// Output controls the summary files.
	Output OutputSettings `yaml:"output"`

	// XLSXOutput is the path of an optional workbook holding both summaries.
	// Relative paths are resolved against the input directory.
	XLSXOutput string `yaml:"xlsx_output"`

	// ReportFile is the path of an optional run report.
	// Relative paths are resolved against the input directory.
	ReportFile string `yaml:"report_file"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// LogFormat is console or json.
	LogFormat string `yaml:"log_format"`

	transactionRegexp *regexp.Regexp
}

// Domain describes one reference domain (branches or commodities).
type Domain struct {
	// Label names the domain in logs and messages.
	Label string `yaml:"label"`

	// DefinitionFile is the code,name reference file inside the input directory.
	DefinitionFile string `yaml:"definition_file"`

	// OutputFile is the code,name,total summary written to the input directory.
	OutputFile string `yaml:"output_file"`

	// CodePattern is the regular expression every code must match.
	CodePattern string `yaml:"code_pattern"`

	codeRegexp *regexp.Regexp
}

// OutputSettings controls summary serialization.
type OutputSettings struct {
	// Order is the row order of the summary files.
	// Valid values: "sorted", "insertion", "unordered"
	// Default: "sorted"
	Order types.Order `yaml:"order"`
}

// CodeRegexp returns the compiled code pattern.
func (d *Domain) CodeRegexp() *regexp.Regexp {
	return d.codeRegexp
}

// TransactionRegexp returns the compiled transaction file pattern.
func (c *MainConfig) TransactionRegexp() *regexp.Regexp {
	return c.transactionRegexp
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// DefaultMainConfig returns the configuration used when no file is given.
func DefaultMainConfig() *MainConfig {
	cfg := &MainConfig{}
	applyMainConfigDefaults(cfg)
	if err := validateMainConfig(cfg); err != nil {
		// The defaults are constants; failing here is a programming error.
		panic(err)
	}
	return cfg
}

// LoadMainConfig loads the configuration from a YAML file.
//
// PARAMETERS:
//   - configPath: The path to the configuration file. An empty path, or a
//     path that does not exist, yields the defaults.
//
// RETURNS:
//   - A pointer to the MainConfig struct.
//   - An error if the file cannot be read, parsed or validated.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	if configPath == "" {
		return DefaultMainConfig(), nil
	}

	data, err := os.ReadFile(configPath) //nolint:gosec // path is provided by user
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultMainConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return ParseMainConfig(data)
}

// ParseMainConfig parses YAML bytes into a validated configuration.
func ParseMainConfig(data []byte) (*MainConfig, error) {
	var cfg MainConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyMainConfigDefaults(&cfg)

	if err := validateMainConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(cfg *MainConfig) {
	applyDomainDefaults(&cfg.Branch, "branch", "branch.lst", "branch.out", validation.BranchCodePattern.String())
	applyDomainDefaults(&cfg.Commodity, "commodity", "commodity.lst", "commodity.out", validation.CommodityCodePattern.String())

	if cfg.TransactionPattern == "" {
		cfg.TransactionPattern = DefaultTransactionPattern
	}
	if cfg.TotalCeiling == 0 {
		cfg.TotalCeiling = validation.DefaultTotalCeiling
	}
	if cfg.Output.Order == "" {
		cfg.Output.Order = types.OrderSorted
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "console"
	}
}

func applyDomainDefaults(d *Domain, label, definition, output, pattern string) {
	if d.Label == "" {
		d.Label = label
	}
	if d.DefinitionFile == "" {
		d.DefinitionFile = definition
	}
	if d.OutputFile == "" {
		d.OutputFile = output
	}
	if d.CodePattern == "" {
		d.CodePattern = pattern
	}
}

// Validate re-checks the configuration after fields were overridden
// (for example by command line flags) and recompiles the patterns.
func (c *MainConfig) Validate() error {
	applyMainConfigDefaults(c)
	return validateMainConfig(c)
}

// validateMainConfig checks values and compiles the patterns.
func validateMainConfig(cfg *MainConfig) error {
	for _, d := range []*Domain{&cfg.Branch, &cfg.Commodity} {
		re, err := regexp.Compile(d.CodePattern)
		if err != nil {
			return fmt.Errorf("%s code_pattern: %w", d.Label, err)
		}
		d.codeRegexp = re
	}

	if cfg.Branch.Label == cfg.Commodity.Label {
		return fmt.Errorf("branch and commodity labels must differ (both %q)", cfg.Branch.Label)
	}

	if cfg.Branch.OutputFile == cfg.Commodity.OutputFile {
		return fmt.Errorf("branch and commodity output files must differ (both %q)", cfg.Branch.OutputFile)
	}

	re, err := regexp.Compile(cfg.TransactionPattern)
	if err != nil {
		return fmt.Errorf("transaction_pattern: %w", err)
	}
	cfg.transactionRegexp = re

	if cfg.TotalCeiling < 0 {
		return fmt.Errorf("total_ceiling must be positive, got %d", cfg.TotalCeiling)
	}

	switch cfg.Output.Order {
	case types.OrderSorted, types.OrderInsertion, types.OrderUnordered:
	default:
		return fmt.Errorf("output.order must be sorted, insertion or unordered, got %q", cfg.Output.Order)
	}

	switch cfg.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("log_format must be console or json, got %q", cfg.LogFormat)
	}

	return nil
}
