// =============================================================================
// Sales Aggregator - Field Validators
// =============================================================================
//
// Field-level checks shared by the definition loader and the aggregator:
//   - Code format checks (branch / commodity patterns)
//   - Amount format and parsing
//   - The 10-digit ceiling on running totals
//
// These functions never mutate state. Callers decide what to do with a
// failure; the aggregator uses CheckTotal on both totals before committing
// either of them.
//
// =============================================================================

package validation

import (
	"regexp"
	"strconv"
)

// DefaultTotalCeiling is the smallest total that is rejected (10 digits).
const DefaultTotalCeiling int64 = 10_000_000_000

// Default code patterns.
var (
	BranchCodePattern    = regexp.MustCompile(`^[0-9]{3}$`)
	CommodityCodePattern = regexp.MustCompile(`^[A-Za-z0-9]{8}$`)
)

var amountPattern = regexp.MustCompile(`^\d+$`)

// ValidateCode reports whether code matches the domain pattern.
func ValidateCode(pattern *regexp.Regexp, code string) bool {
	return pattern.MatchString(code)
}

// ParseAmount parses the amount line of a transaction file.
//
// RETURNS:
//   - The amount.
//   - UnknownError if the value is not digits only (no sign, no decimal point,
//     no surrounding whitespace).
//   - AmountOverflow if the digits do not fit in an int64; such a value is
//     necessarily past any ceiling.
func ParseAmount(file, value string) (int64, error) {
	if !amountPattern.MatchString(value) {
		return 0, New(UnknownError, file, "amount %q is not a whole number", value)
	}

	amount, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, Wrap(AmountOverflow, file, err)
	}

	return amount, nil
}

// CheckTotal computes current+amount and rejects results at or above ceiling.
//
// The comparison is arranged so that it cannot itself overflow for any
// non-negative amount.
func CheckTotal(file string, current, amount, ceiling int64) (int64, error) {
	if amount >= ceiling-current {
		return 0, New(AmountOverflow, file, "%d + %d reaches %d", current, amount, ceiling)
	}
	return current + amount, nil
}
