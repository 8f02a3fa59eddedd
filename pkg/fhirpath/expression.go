package fhirpath

import (
	"github.com/robertoaraneda/gofhir/pkg/fhirpath/ast"
	"github.com/robertoaraneda/gofhir/pkg/fhirpath/eval"
	"github.com/robertoaraneda/gofhir/pkg/fhirpath/model"
	"github.com/robertoaraneda/gofhir/pkg/fhirpath/registry"
	"github.com/robertoaraneda/gofhir/pkg/fhirpath/types"
)

// defaultRegistry is the process-wide function registry: every builtin
// function, classified and cache-wrapped (see pkg/fhirpath/registry).
var defaultRegistry = registry.Default()

// Expression represents a compiled FHIRPath expression.
type Expression struct {
	source string
	tree   *ast.Node
}

// Evaluate executes the expression against a JSON resource.
func (e *Expression) Evaluate(resource []byte) (types.Collection, error) {
	ctx := eval.NewContext(resource)
	return e.EvaluateWithContext(ctx)
}

// EvaluateWithContext executes the expression with a custom context.
func (e *Expression) EvaluateWithContext(ctx *eval.Context) (types.Collection, error) {
	evaluator := eval.NewEvaluator(ctx, defaultRegistry)
	return evaluator.Evaluate(e.tree)
}

// EvaluateWithMetadata executes the expression with CanonicalPath/
// WrappedValue provenance tracking turned on for every navigated result
// (DESIGN.md Open Question #1).
func (e *Expression) EvaluateWithMetadata(resource []byte) (types.Collection, error) {
	ctx := eval.NewContext(resource)
	ctx.EnableMetadata()
	return e.EvaluateWithContext(ctx)
}

// EvaluateWithProvider is like EvaluateWithContext but resolves choice
// (value[x]) element types through a schema-backed model.Provider instead
// of the zero-configuration model.Builtin. Property types and navigation
// paths are not checked against the provider.
func (e *Expression) EvaluateWithProvider(ctx *eval.Context, provider model.Provider) (types.Collection, error) {
	evaluator := eval.NewEvaluator(ctx, defaultRegistry).WithProvider(provider)
	return evaluator.Evaluate(e.tree)
}

// String returns the original expression string.
func (e *Expression) String() string {
	return e.source
}
