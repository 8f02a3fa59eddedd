// Package diag provides stable diagnostic codes for FHIRPath parsing and
// evaluation: a code-stable, accumulating diagnostics model layered over
// eval.EvalError.
package diag

import (
	"fmt"

	"github.com/robertoaraneda/gofhir/pkg/common"
)

// ErrorCode is a stable, documented diagnostic code of the form FP####.
type ErrorCode int

// Code ranges group diagnostics by the phase that raises them.
const (
	// Parse diagnostics: FP0001-FP0049.
	CodeUnexpectedToken     ErrorCode = 1
	CodeUnterminatedString  ErrorCode = 2
	CodeInvalidNumber       ErrorCode = 3
	CodeInvalidDateTime     ErrorCode = 4
	CodeInvalidQuantity     ErrorCode = 5
	CodeUnexpectedEOF       ErrorCode = 6
	CodeExpectedExpression  ErrorCode = 7
	CodeUnbalancedDelimiter ErrorCode = 8
	CodeInvalidEscape       ErrorCode = 9

	// Type diagnostics: FP0050-FP0059.
	CodeTypeMismatch      ErrorCode = 50
	CodeUnknownType       ErrorCode = 51
	CodeAmbiguousChoice   ErrorCode = 52
	CodeUnknownProperty   ErrorCode = 53

	// Evaluation diagnostics: FP0060-FP0079.
	CodeSingletonExpected ErrorCode = 60
	CodeFunctionNotFound  ErrorCode = 61
	CodeInvalidArguments  ErrorCode = 62
	CodeDivisionByZero    ErrorCode = 63
	CodeInvalidOperation  ErrorCode = 64
	// CodeIncompatibleUnits sits in the evaluation number range but, per
	// spec, carries KindType rather than the range's default
	// KindEvaluation; see IncompatibleUnits in constructors.go.
	CodeIncompatibleUnits  ErrorCode = 65
	CodeCollectionTooLarge ErrorCode = 66
	CodeMaxDepthExceeded   ErrorCode = 67
	CodeUndefinedVariable  ErrorCode = 68
	CodeIndexOutOfRange    ErrorCode = 69
	CodeInvalidPath        ErrorCode = 70

	// Provider/service diagnostics: FP0080-FP0099.
	CodeProviderUnavailable ErrorCode = 80
	CodeProviderTimeout     ErrorCode = 81
	CodeResolveFailed       ErrorCode = 82
	CodeTimeout             ErrorCode = 83
	CodeCanceled            ErrorCode = 84
	// CodeInternal also sits in the provider/service number range but
	// carries KindInternal: an engine invariant violation (e.g. an
	// unhandled AST node kind) isn't a provider failure, just numbered
	// alongside one.
	CodeInternal ErrorCode = 89
)

// String renders the code as "FP0001"-style text.
func (c ErrorCode) String() string {
	return fmt.Sprintf("FP%04d", int(c))
}

// Kind classifies a diagnostic by the phase or subsystem that raised it,
// independent of its numeric ErrorCode range. Most diagnostics get their
// Kind for free from their code's range (see defaultKind); a few codes
// deliberately carry a Kind that doesn't match their numeric range (see
// CodeIncompatibleUnits, CodeInternal).
type Kind int

const (
	// KindParse means the lexer or parser could not produce an AST.
	KindParse Kind = iota
	// KindType means a value's runtime type didn't satisfy an operator,
	// function, or is/as/ofType check.
	KindType
	// KindEvaluation means evaluation itself failed (arity, singleton
	// cardinality, undefined variable, and similar runtime conditions).
	KindEvaluation
	// KindProvider means a model.Provider call failed or was unavailable.
	KindProvider
	// KindService means an external service dependency (e.g. a
	// resolve() target fetch) failed.
	KindService
	// KindResource means a FHIR resource reference could not be resolved
	// to a concrete resource.
	KindResource
	// KindCancellation means evaluation stopped because its
	// context.Context was canceled or its deadline elapsed.
	KindCancellation
	// KindInternal means an engine invariant was violated (a case the
	// implementation believes is unreachable).
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindParse:
		return "parse"
	case KindType:
		return "type"
	case KindEvaluation:
		return "evaluation"
	case KindProvider:
		return "provider"
	case KindService:
		return "service"
	case KindResource:
		return "resource"
	case KindCancellation:
		return "cancellation"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Fatal reports whether a diagnostic of this Kind must always surface to
// the caller rather than quietly propagate as an Empty result the way
// Type/Evaluation diagnostics may under FHIRPath's empty-propagation
// rules (spec §8 boundary behavior): Internal and Cancellation are the
// two kinds the engine can never treat as "just another empty value".
func (k Kind) Fatal() bool {
	switch k {
	case KindInternal, KindCancellation:
		return true
	default:
		return false
	}
}

// defaultKind derives the Kind a code would carry purely from its
// numeric range, per spec §6.4. Constructors for codes that need a
// different Kind (CodeIncompatibleUnits, CodeInternal, CodeCanceled,
// CodeTimeout, CodeResolveFailed) override it explicitly via WithKind.
func (c ErrorCode) defaultKind() Kind {
	switch {
	case c < 50:
		return KindParse
	case c < 60:
		return KindType
	case c < 80:
		return KindEvaluation
	default:
		return KindProvider
	}
}

// Severity classifies how a diagnostic should be treated by callers.
type Severity int

const (
	// SeverityError means the evaluation or parse cannot produce a result.
	SeverityError Severity = iota
	// SeverityWarning means the result is still usable but is suspect.
	SeverityWarning
	// SeverityInfo is purely informational (e.g. Analyze-mode notices).
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return "unknown"
	}
}

// Span is a half-open byte range [Start, End) into the source expression,
// plus the 1-based line/column of Start for human-facing messages.
type Span struct {
	Start  int
	End    int
	Line   int
	Column int
}

// Diagnostic is a single, code-stable parse or evaluation finding.
type Diagnostic struct {
	Code     ErrorCode
	Kind     Kind
	Severity Severity
	Message  string
	Path     string // expression path (e.g. "Patient.name.given") where relevant
	Span     Span
	Cause    error
}

// Error implements the error interface so a Diagnostic can be returned
// anywhere a plain error is expected.
func (d *Diagnostic) Error() string {
	if d.Path != "" {
		return fmt.Sprintf("%s: %s (at %s)", d.Code, d.Message, d.Path)
	}
	if d.Span.Line > 0 {
		return fmt.Sprintf("%s: %s (%d:%d)", d.Code, d.Message, d.Span.Line, d.Span.Column)
	}
	return fmt.Sprintf("%s: %s", d.Code, d.Message)
}

// Unwrap supports errors.Is/As against the wrapped cause.
func (d *Diagnostic) Unwrap() error {
	return d.Cause
}

// AsError renders the diagnostic as a plain path-contextualized error,
// for call sites that just want an `error` rather than a *Diagnostic to
// inspect further. Reuses
// pkg/common's PathError rather than duplicating its "at <path>: <err>"
// formatting.
func (d *Diagnostic) AsError() error {
	cause := d.Cause
	if cause == nil {
		cause = fmt.Errorf("%s: %s", d.Code, d.Message)
	}
	return common.WrapPath(d.Path, cause)
}

// New creates an error-severity Diagnostic.
func New(code ErrorCode, format string, args ...any) *Diagnostic {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &Diagnostic{Code: code, Kind: code.defaultKind(), Severity: SeverityError, Message: msg}
}

// Newf is an alias of New kept for readability at call sites that always
// pass format arguments.
func Newf(code ErrorCode, format string, args ...any) *Diagnostic {
	return New(code, format, args...)
}

// WithSpan attaches a source span to the diagnostic.
func (d *Diagnostic) WithSpan(span Span) *Diagnostic {
	d.Span = span
	return d
}

// WithPath attaches an expression path to the diagnostic.
func (d *Diagnostic) WithPath(path string) *Diagnostic {
	d.Path = path
	return d
}

// WithKind overrides the diagnostic's Kind when its code's range-derived
// default doesn't match (e.g. CodeIncompatibleUnits, CodeInternal).
func (d *Diagnostic) WithKind(k Kind) *Diagnostic {
	d.Kind = k
	return d
}

// WithSeverity overrides the diagnostic's severity.
func (d *Diagnostic) WithSeverity(sev Severity) *Diagnostic {
	d.Severity = sev
	return d
}

// WithCause wraps an underlying error as the diagnostic's cause.
func (d *Diagnostic) WithCause(err error) *Diagnostic {
	d.Cause = err
	return d
}

// Bag accumulates diagnostics additively across a parse or Analyze pass,
// rather than stopping at the first error.
type Bag struct {
	items []*Diagnostic
}

// Add appends a diagnostic to the bag.
func (b *Bag) Add(d *Diagnostic) {
	b.items = append(b.items, d)
}

// Addf is a convenience wrapper that builds and appends a Diagnostic.
func (b *Bag) Addf(code ErrorCode, format string, args ...any) {
	b.Add(New(code, format, args...))
}

// All returns every accumulated diagnostic, in insertion order.
func (b *Bag) All() []*Diagnostic {
	return b.items
}

// HasErrors returns true if any accumulated diagnostic is SeverityError.
func (b *Bag) HasErrors() bool {
	for _, d := range b.items {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Len returns the number of accumulated diagnostics.
func (b *Bag) Len() int {
	return len(b.items)
}
