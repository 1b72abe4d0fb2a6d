// =============================================================================
// Sales Aggregator - Error Taxonomy
// =============================================================================
//
// Every failure in a run is reported as a *SalesError carrying one Kind.
// The kind is what callers branch on; the message text is for humans only.
//
// ERROR KINDS:
//   - UsageError           : wrong number of command line arguments
//   - FileNotFound         : a definition file is missing
//   - InvalidFormat        : malformed definition line or transaction file shape
//   - InvalidBranchCode    : transaction references an unknown branch
//   - InvalidCommodityCode : transaction references an unknown commodity
//   - NonSequentialFiles   : gap in the transaction file serial numbers
//   - AmountOverflow       : a total would reach the 10-digit ceiling
//   - IOFailure            : unreadable/unwritable file, close failure
//   - UnknownError         : anything else, including a non-numeric amount
//
// MATCHING:
//   Each kind has a sentinel (ErrInvalidFormat, ...). A *SalesError matches its
//   sentinel through errors.Is even after further wrapping:
//
//     if errors.Is(err, validation.ErrAmountOverflow) { ... }
//
// =============================================================================

package validation

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure.
type Kind int

const (
	UnknownError Kind = iota
	UsageError
	FileNotFound
	InvalidFormat
	InvalidBranchCode
	InvalidCommodityCode
	NonSequentialFiles
	AmountOverflow
	IOFailure
)

var kindNames = map[Kind]string{
	UnknownError:         "UnknownError",
	UsageError:           "UsageError",
	FileNotFound:         "FileNotFound",
	InvalidFormat:        "InvalidFormat",
	InvalidBranchCode:    "InvalidBranchCode",
	InvalidCommodityCode: "InvalidCommodityCode",
	NonSequentialFiles:   "NonSequentialFiles",
	AmountOverflow:       "AmountOverflow",
	IOFailure:            "IOFailure",
}

// String returns the kind's name.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// =============================================================================
// SENTINELS
// =============================================================================

var (
	ErrUnknown              = errors.New("unexpected error")
	ErrUsage                = errors.New("invalid usage")
	ErrFileNotFound         = errors.New("file does not exist")
	ErrInvalidFormat        = errors.New("invalid format")
	ErrInvalidBranchCode    = errors.New("invalid branch code")
	ErrInvalidCommodityCode = errors.New("invalid commodity code")
	ErrNonSequentialFiles   = errors.New("transaction file names are not sequential")
	ErrAmountOverflow       = errors.New("total amount exceeds 10 digits")
	ErrIOFailure            = errors.New("i/o failure")
)

var sentinels = map[Kind]error{
	UnknownError:         ErrUnknown,
	UsageError:           ErrUsage,
	FileNotFound:         ErrFileNotFound,
	InvalidFormat:        ErrInvalidFormat,
	InvalidBranchCode:    ErrInvalidBranchCode,
	InvalidCommodityCode: ErrInvalidCommodityCode,
	NonSequentialFiles:   ErrNonSequentialFiles,
	AmountOverflow:       ErrAmountOverflow,
	IOFailure:            ErrIOFailure,
}

// Sentinel returns the sentinel error for k.
func (k Kind) Sentinel() error {
	if err, ok := sentinels[k]; ok {
		return err
	}
	return ErrUnknown
}

// =============================================================================
// SALES ERROR
// =============================================================================

// SalesError is a classified failure.
type SalesError struct {
	// Kind is the failure class.
	Kind Kind

	// File is the file the failure relates to, if any (bare name).
	File string

	// Line is the 1-based line inside File, or 0 when not applicable.
	Line int

	// Msg is an optional human-readable detail.
	Msg string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *SalesError) Error() string {
	var b strings.Builder

	if e.File != "" {
		b.WriteString(e.File)
		if e.Line > 0 {
			fmt.Fprintf(&b, ":%d", e.Line)
		}
		b.WriteString(": ")
	}

	b.WriteString(e.Kind.Sentinel().Error())

	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}

	return b.String()
}

// Unwrap returns the underlying cause.
func (e *SalesError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind.
func (e *SalesError) Is(target error) bool {
	return target == e.Kind.Sentinel()
}

// =============================================================================
// CONSTRUCTORS
// =============================================================================

// New creates a SalesError of the given kind for file.
func New(kind Kind, file, format string, args ...any) *SalesError {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &SalesError{Kind: kind, File: file, Msg: msg}
}

// AtLine creates a SalesError pointing at a line of file.
func AtLine(kind Kind, file string, line int, format string, args ...any) *SalesError {
	e := New(kind, file, format, args...)
	e.Line = line
	return e
}

// Wrap classifies an underlying error.
func Wrap(kind Kind, file string, err error) *SalesError {
	return &SalesError{Kind: kind, File: file, Err: err}
}

// KindOf returns the kind of the first SalesError in err's chain.
// Errors that carry no kind are UnknownError.
func KindOf(err error) Kind {
	var se *SalesError
	if errors.As(err, &se) {
		return se.Kind
	}
	return UnknownError
}
