// =============================================================================
// Sales Aggregator - Shared Types
// =============================================================================
//
// This package contains the types shared by every stage of the run. Keeping
// them here avoids import cycles between:
//   - lstparser      (creates reference tables)
//   - aggregator     (mutates totals)
//   - summarywriter  (reads tables)
//   - xlsxexport     (reads tables)
//
// =============================================================================

package types

import (
	"slices"
	"sort"
)

// =============================================================================
// REFERENCE TABLE
// =============================================================================

// ReferenceTable pairs a code->name mapping with a code->total mapping.
//
// The two mappings always share the same key set: the only way to add a key
// is Set, which writes both. Totals start at zero and change only through
// SetTotal, which ignores unknown codes.
type ReferenceTable struct {
	// Label identifies the domain ("branch", "commodity") in messages.
	Label string

	names  map[string]string
	totals map[string]int64

	// order records the first-seen position of every code.
	order []string
}

// NewReferenceTable creates an empty table for the given domain label.
func NewReferenceTable(label string) *ReferenceTable {
	return &ReferenceTable{
		Label:  label,
		names:  make(map[string]string),
		totals: make(map[string]int64),
	}
}

// Set registers code with name and resets its total to zero.
// A code that is already present keeps its original position.
func (t *ReferenceTable) Set(code, name string) {
	if _, exists := t.names[code]; !exists {
		t.order = append(t.order, code)
	}
	t.names[code] = name
	t.totals[code] = 0
}

// Has reports whether code is a known key.
func (t *ReferenceTable) Has(code string) bool {
	_, ok := t.names[code]
	return ok
}

// Name returns the name registered for code.
func (t *ReferenceTable) Name(code string) string {
	return t.names[code]
}

// Total returns the running total for code.
func (t *ReferenceTable) Total(code string) int64 {
	return t.totals[code]
}

// SetTotal overwrites the total of a known code. Unknown codes are ignored so
// the key-set invariant holds.
func (t *ReferenceTable) SetTotal(code string, total int64) {
	if !t.Has(code) {
		return
	}
	t.totals[code] = total
}

// Len returns the number of codes in the table.
func (t *ReferenceTable) Len() int {
	return len(t.names)
}

// =============================================================================
// ITERATION
// =============================================================================

// Order selects how Codes walks the table.
type Order string

const (
	// OrderSorted yields codes in ascending byte order.
	OrderSorted Order = "sorted"

	// OrderInsertion yields codes in the order they first appeared in the
	// definition file.
	OrderInsertion Order = "insertion"

	// OrderUnordered yields codes in Go map iteration order.
	OrderUnordered Order = "unordered"
)

// Codes returns the table's codes in the requested order.
func (t *ReferenceTable) Codes(order Order) []string {
	switch order {
	case OrderInsertion:
		return slices.Clone(t.order)

	case OrderUnordered:
		codes := make([]string, 0, len(t.names))
		for code := range t.names {
			codes = append(codes, code)
		}
		return codes

	default:
		codes := slices.Clone(t.order)
		sort.Strings(codes)
		return codes
	}
}

// Row is a single code,name,total line of a summary.
type Row struct {
	Code  string
	Name  string
	Total int64
}

// Rows returns a snapshot of the table as rows in the requested order.
func (t *ReferenceTable) Rows(order Order) []Row {
	codes := t.Codes(order)
	rows := make([]Row, len(codes))
	for i, code := range codes {
		rows[i] = Row{Code: code, Name: t.names[code], Total: t.totals[code]}
	}
	return rows
}

// GrandTotal returns the sum of all totals in the table.
func (t *ReferenceTable) GrandTotal() int64 {
	var sum int64
	for _, total := range t.totals {
		sum += total
	}
	return sum
}

// =============================================================================
// TRANSACTION TYPES
// =============================================================================

// TransactionFile is a discovered NNNNNNNN.rcd file.
type TransactionFile struct {
	// Name is the bare file name, e.g. "00000001.rcd".
	Name string

	// Path is the file's location inside the input directory.
	Path string

	// Serial is the integer value of the 8-digit prefix.
	Serial int
}

// TransactionRecord is the parsed content of a transaction file.
type TransactionRecord struct {
	BranchCode    string
	CommodityCode string
	Amount        int64

	// Source is the name of the file the record was read from.
	Source string
}
