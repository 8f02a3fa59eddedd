package fhirpath

import (
	"fmt"

	"github.com/robertoaraneda/gofhir/pkg/fhirpath/parser"
)

// compile parses a FHIRPath expression into a compiled Expression using
// the hand-written recursive-descent parser.
func compile(expr string) (*Expression, error) {
	if expr == "" {
		return nil, fmt.Errorf("empty expression")
	}

	result := parser.Parse(expr, parser.Fast)
	if result.Root == nil {
		return nil, fmt.Errorf("parse error: %s", firstDiagnosticMessage(result))
	}

	return &Expression{
		source: expr,
		tree:   result.Root,
	}, nil
}

func firstDiagnosticMessage(r *parser.Result) string {
	all := r.Diagnostics.All()
	if len(all) == 0 {
		return "unknown error"
	}
	return all[0].Error()
}
