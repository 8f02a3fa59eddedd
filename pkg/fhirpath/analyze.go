package fhirpath

import (
	"context"
	"errors"

	"github.com/robertoaraneda/gofhir/pkg/fhirpath/ast"
	"github.com/robertoaraneda/gofhir/pkg/fhirpath/diag"
	"github.com/robertoaraneda/gofhir/pkg/fhirpath/eval"
	"github.com/robertoaraneda/gofhir/pkg/fhirpath/model"
	"github.com/robertoaraneda/gofhir/pkg/fhirpath/parser"
	"github.com/robertoaraneda/gofhir/pkg/fhirpath/types"
)

// Parse parses source in the given mode and returns the resulting tree
// (zero-valued if parsing failed entirely) alongside any diagnostics.
func Parse(source string, mode parser.Mode) (ast.Node, *diag.Bag) {
	result := parser.Parse(source, mode)
	if result.Root == nil {
		return ast.Node{}, result.Diagnostics
	}
	return *result.Root, result.Diagnostics
}

// AnalysisReport summarizes a static analysis pass over an expression:
// which builtin functions it calls (so callers can flag unsupported or
// deprecated ones) and whether the parse was clean.
type AnalysisReport struct {
	Source        string
	Valid         bool
	FunctionsUsed []string
}

// Analyze parses source in Analyze mode (accumulating every diagnostic
// rather than stopping at the first) and reports the functions it
// invokes. A non-empty contextType is checked against model.Builtin's
// resource types and reported as CodeUnknownType when unknown; the
// expression's own navigation is not validated.
func Analyze(source string, contextType string, opts ...EvalOption) (AnalysisReport, *diag.Bag) {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	result := parser.Parse(source, parser.Analyze)
	report := AnalysisReport{Source: source, Valid: result.Root != nil && !result.Diagnostics.HasErrors()}
	if result.Root == nil {
		return report, result.Diagnostics
	}

	seen := map[string]bool{}
	collectFunctionCalls(result.Root, seen)
	for name := range seen {
		report.FunctionsUsed = append(report.FunctionsUsed, name)
	}

	if contextType != "" {
		provider := model.NewBuiltin()
		if ok, err := provider.IsResourceType(context.Background(), contextType); err == nil && !ok {
			result.Diagnostics.Addf(diag.CodeUnknownType, "unknown context type %q", contextType)
		}
	}

	return report, result.Diagnostics
}

func collectFunctionCalls(n *ast.Node, seen map[string]bool) {
	if n == nil {
		return
	}
	if n.Kind == ast.KindFunctionCall {
		seen[n.Text] = true
	}
	for _, child := range n.Children {
		collectFunctionCalls(child, seen)
	}
}

// EvaluateWithDiagnostics evaluates source against root and returns
// accumulated diagnostics instead of a single error, for callers that
// want the full Analyze-style diagnostic bag from a live evaluation
// (e.g. surfacing every FHIRPath FP#### code a CLI run hit, not just the
// first). It otherwise behaves like Evaluate.
func EvaluateWithDiagnostics(source string, root []byte, opts ...EvalOption) (types.Collection, *diag.Bag) {
	bag := &diag.Bag{}
	compiled, err := Compile(source)
	if err != nil {
		bag.Add(diag.New(diag.CodeUnexpectedToken, "%s", err.Error()))
		return nil, bag
	}
	result, err := compiled.EvaluateWithOptions(root, opts...)
	if err != nil {
		bag.Add(evalErrorToDiagnostic(err))
		return nil, bag
	}
	return result, bag
}

// EvaluateWithMetadata parses and evaluates source against root with
// CanonicalPath/WrappedValue provenance tracking turned on, returning
// each result already type-asserted to types.WrappedValue for callers
// that want the navigation path without unwrapping themselves.
func EvaluateWithMetadata(source string, root []byte) ([]types.WrappedValue, *diag.Bag) {
	bag := &diag.Bag{}
	compiled, err := Compile(source)
	if err != nil {
		bag.Add(diag.New(diag.CodeUnexpectedToken, "%s", err.Error()))
		return nil, bag
	}
	col, err := compiled.EvaluateWithMetadata(root)
	if err != nil {
		bag.Add(evalErrorToDiagnostic(err))
		return nil, bag
	}
	out := make([]types.WrappedValue, 0, len(col))
	for _, v := range col {
		if w, ok := v.(types.WrappedValue); ok {
			out = append(out, w)
		} else {
			out = append(out, types.NewWrappedValue(v))
		}
	}
	return out, bag
}

// evalErrorToDiagnostic converts whatever error Evaluator.Eval returned
// into a code-stable, Kind-tagged *diag.Diagnostic, via
// diagnosticForEvalErrorType's mapping table rather than a single
// catch-all code — every eval.ErrorType gets its own FP#### code (plus a
// Kind override for IncompatibleUnits/Timeout/InvalidExpression and a
// warning severity for DivisionByZero).
func evalErrorToDiagnostic(err error) *diag.Diagnostic {
	var evalErr *eval.EvalError
	if errors.As(err, &evalErr) {
		d := diagnosticForEvalErrorType(evalErr.Type, evalErr.Message)
		if evalErr.Position.Line > 0 {
			d = d.WithSpan(diag.Span{Line: evalErr.Position.Line, Column: evalErr.Position.Column})
		}
		if evalErr.Path != "" {
			d = d.WithPath(evalErr.Path)
		}
		return d.WithCause(evalErr)
	}

	if errors.Is(err, context.Canceled) {
		return diag.Canceled(err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return diag.Timeout().WithCause(err)
	}

	return diag.New(diag.CodeInvalidOperation, "%s", err.Error()).WithCause(err)
}

// diagnosticForEvalErrorType maps each eval.ErrorType to the diag code
// (and, where it differs from the code's default, Kind) that §7
// promises for it, so FP0065/IncompatibleUnits and every other
// evaluation-phase code is actually reachable from a live Eval failure
// instead of collapsing into one generic code.
func diagnosticForEvalErrorType(t eval.ErrorType, message string) *diag.Diagnostic {
	switch t {
	case eval.ErrParse:
		return diag.New(diag.CodeExpectedExpression, "%s", message)
	case eval.ErrType:
		return diag.New(diag.CodeTypeMismatch, "%s", message)
	case eval.ErrIncompatibleUnits:
		return diag.New(diag.CodeIncompatibleUnits, "%s", message).WithKind(diag.KindType)
	case eval.ErrSingletonExpected:
		return diag.New(diag.CodeSingletonExpected, "%s", message)
	case eval.ErrFunctionNotFound:
		return diag.New(diag.CodeFunctionNotFound, "%s", message)
	case eval.ErrInvalidArguments:
		return diag.New(diag.CodeInvalidArguments, "%s", message)
	case eval.ErrDivisionByZero:
		return diag.New(diag.CodeDivisionByZero, "%s", message).WithSeverity(diag.SeverityWarning)
	case eval.ErrInvalidPath:
		return diag.New(diag.CodeInvalidPath, "%s", message)
	case eval.ErrTimeout:
		return diag.New(diag.CodeTimeout, "%s", message).WithKind(diag.KindCancellation)
	case eval.ErrInvalidOperation:
		return diag.New(diag.CodeInvalidOperation, "%s", message)
	case eval.ErrCollectionTooLarge:
		return diag.New(diag.CodeCollectionTooLarge, "%s", message)
	case eval.ErrInvalidExpression:
		// Raised only for "unhandled node kind" style conditions the
		// evaluator believes unreachable; always an engine invariant,
		// not a user-facing evaluation failure.
		return diag.Internal(errors.New(message))
	default:
		return diag.New(diag.CodeInvalidOperation, "%s", message)
	}
}
