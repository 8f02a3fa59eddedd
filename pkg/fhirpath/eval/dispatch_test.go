package eval

import (
	"testing"

	"github.com/robertoaraneda/gofhir/pkg/fhirpath/ast"
	"github.com/robertoaraneda/gofhir/pkg/fhirpath/types"
)

// fakeRegistry is a minimal FuncRegistry for exercising callFunction's
// dispatch without pulling in the funcs package, which would import eval
// back and create a cycle.
type fakeRegistry struct {
	defs map[string]FuncDef
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{defs: make(map[string]FuncDef)}
}

func (r *fakeRegistry) add(name string, min, max int, fn FuncImpl) {
	r.defs[name] = FuncDef{Name: name, MinArgs: min, MaxArgs: max, Fn: fn}
}

func (r *fakeRegistry) Get(name string) (FuncDef, bool) {
	d, ok := r.defs[name]
	return d, ok
}

func (r *fakeRegistry) Invoke(ctx *Context, name string, input types.Collection, args []interface{}) (types.Collection, error) {
	d, ok := r.defs[name]
	if !ok {
		return nil, FunctionNotFoundError(name)
	}
	return d.Fn(ctx, input, args)
}

func node(kind ast.Kind, text string, children ...*ast.Node) *ast.Node {
	return &ast.Node{Kind: kind, Text: text, Children: children}
}

func TestEvalLiterals(t *testing.T) {
	e := NewEvaluator(NewContext([]byte(`{}`)), newFakeRegistry())

	tests := []struct {
		name string
		n    *ast.Node
		want string
	}{
		{"boolean true", node(ast.KindBooleanLiteral, "true"), "true"},
		{"string", node(ast.KindStringLiteral, "'hi'"), "hi"},
		{"integer", node(ast.KindNumberLiteral, "42"), "42"},
		{"decimal", node(ast.KindNumberLiteral, "3.5"), "3.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := e.Eval(tt.n)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Empty() {
				t.Fatal("expected a non-empty result")
			}
			if got := result[0].String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEvalNilNode(t *testing.T) {
	e := NewEvaluator(NewContext([]byte(`{}`)), newFakeRegistry())
	result, err := e.Eval(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Empty() {
		t.Error("expected empty result for a nil node")
	}
}

func TestEvalUnknownKind(t *testing.T) {
	e := NewEvaluator(NewContext([]byte(`{}`)), newFakeRegistry())
	_, err := e.Eval(node(ast.Kind(999), "bogus"))
	if err == nil {
		t.Error("expected an error for an unhandled node kind")
	}
}

func TestEvalIdentifierNavigation(t *testing.T) {
	resource := []byte(`{"resourceType":"Patient","name":[{"given":["Ada"]},{"given":["Grace"]}]}`)
	ctx := NewContext(resource)
	e := NewEvaluator(ctx, newFakeRegistry())

	result, err := e.Eval(node(ast.KindIdentifier, "name"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("expected 2 name entries, got %d", len(result))
	}
}

func TestNavigateMemberWithMetadata(t *testing.T) {
	resource := []byte(`{"resourceType":"Patient","name":[{"given":["Ada"]},{"given":["Grace"]}]}`)
	ctx := NewContext(resource)
	ctx.EnableMetadata()
	e := NewEvaluator(ctx, newFakeRegistry())

	result, err := e.Eval(node(ast.KindIdentifier, "name"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("expected 2 name entries, got %d", len(result))
	}

	first, ok := result[0].(types.WrappedValue)
	if !ok {
		t.Fatalf("expected a WrappedValue under metadata mode, got %T", result[0])
	}
	if got, want := first.Path.String(), "Patient.name[0]"; got != want {
		t.Errorf("path = %q, want %q", got, want)
	}

	second, ok := result[1].(types.WrappedValue)
	if !ok {
		t.Fatalf("expected a WrappedValue for the second entry, got %T", result[1])
	}
	if got, want := second.Path.String(), "Patient.name[1]"; got != want {
		t.Errorf("path = %q, want %q", got, want)
	}
}

func TestNavigateMemberWithoutMetadataIsUnwrapped(t *testing.T) {
	resource := []byte(`{"resourceType":"Patient","name":[{"given":["Ada"]}]}`)
	e := NewEvaluator(NewContext(resource), newFakeRegistry())

	result, err := e.Eval(node(ast.KindIdentifier, "name"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("expected 1 name entry, got %d", len(result))
	}
	if _, ok := result[0].(types.WrappedValue); ok {
		t.Error("did not expect a WrappedValue when metadata mode is off")
	}
}

func TestCallFunctionWhereFiltersPerElement(t *testing.T) {
	resource := []byte(`{"resourceType":"Patient","name":[{"use":"official","given":["Ada"]},{"use":"nickname","given":["Grace"]}]}`)
	ctx := NewContext(resource)
	e := NewEvaluator(ctx, newFakeRegistry())

	names, err := e.Eval(node(ast.KindIdentifier, "name"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	criteria := node(ast.KindEqualityExpression, "=",
		node(ast.KindIdentifier, "use"),
		node(ast.KindStringLiteral, "'official'"),
	)
	whereCall := node(ast.KindFunctionCall, "where", criteria)

	result, err := e.callFunction(whereCall, names)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("expected exactly 1 match, got %d", len(result))
	}
}

func TestCallFunctionUnknownNameErrors(t *testing.T) {
	e := NewEvaluator(NewContext([]byte(`{}`)), newFakeRegistry())
	_, err := e.callFunction(node(ast.KindFunctionCall, "notAFunction"), types.Collection{})
	if err == nil {
		t.Error("expected an error for an unregistered function")
	}
}

func TestCallFunctionArityChecking(t *testing.T) {
	reg := newFakeRegistry()
	reg.add("need2", 2, 2, func(ctx *Context, input types.Collection, args []interface{}) (types.Collection, error) {
		return types.Collection{types.NewBoolean(true)}, nil
	})
	e := NewEvaluator(NewContext([]byte(`{}`)), reg)

	_, err := e.callFunction(node(ast.KindFunctionCall, "need2", node(ast.KindNumberLiteral, "1")), types.Collection{})
	if err == nil {
		t.Error("expected an arity error when too few arguments are supplied")
	}
}

func TestWithItemSetsThisAndIndex(t *testing.T) {
	e := NewEvaluator(NewContext([]byte(`{}`)), newFakeRegistry())
	input := types.Collection{types.NewInteger(10), types.NewInteger(20), types.NewInteger(30)}

	result, err := e.withItem(input, 1, func() (types.Collection, error) {
		return types.Collection{types.NewInteger(int64(e.ctx.index)), e.ctx.This()[0]}, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("expected 2 values back, got %d", len(result))
	}
	if got := result[0].(types.Integer).Value(); got != 1 {
		t.Errorf("$index = %d, want 1", got)
	}
	if got := result[1].(types.Integer).Value(); got != 20 {
		t.Errorf("$this = %d, want 20", got)
	}
}

func TestIifLazyEvaluatesOnlyMatchingBranch(t *testing.T) {
	e := NewEvaluator(NewContext([]byte(`{}`)), newFakeRegistry())

	trueBranch := node(ast.KindStringLiteral, "'yes'")
	falseBranch := node(ast.KindFunctionCall, "explodes")

	result, err := e.evaluateIif([]*ast.Node{node(ast.KindBooleanLiteral, "true"), trueBranch, falseBranch})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Empty() || result[0].String() != "yes" {
		t.Errorf("expected 'yes', got %v", result)
	}
}

func TestInvocationExpressionThreadsBase(t *testing.T) {
	resource := []byte(`{"resourceType":"Patient","name":[{"given":["Ada","Lovelace"]}]}`)
	e := NewEvaluator(NewContext(resource), newFakeRegistry())

	expr := node(ast.KindInvocationExpression, "",
		node(ast.KindInvocationExpression, "",
			node(ast.KindIdentifier, "name"),
			node(ast.KindIdentifier, "given"),
		),
		node(ast.KindFunctionCall, "first"),
	)

	reg := newFakeRegistry()
	reg.add("first", 0, 0, func(ctx *Context, input types.Collection, args []interface{}) (types.Collection, error) {
		if input.Empty() {
			return types.Collection{}, nil
		}
		return types.Collection{input[0]}, nil
	})
	e.funcs = reg

	result, err := e.Eval(expr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Empty() || types.Unwrap(result[0]).String() != "Ada" {
		t.Errorf("expected 'Ada', got %v", result)
	}
}
