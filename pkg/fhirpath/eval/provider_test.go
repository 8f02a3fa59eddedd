package eval

import (
	"context"
	"testing"

	"github.com/robertoaraneda/gofhir/pkg/fhirpath/ast"
	"github.com/robertoaraneda/gofhir/pkg/fhirpath/model"
	"github.com/robertoaraneda/gofhir/pkg/fhirpath/types"
)

// stubChoiceProvider answers ResolveChoiceType for one baseType/property
// pair with a fixed suffix, leaving everything else unanswered, so tests
// can tell whether the evaluator actually consulted it.
type stubChoiceProvider struct {
	baseType, property, suffix string
	calls                      int
}

func (p *stubChoiceProvider) TypeReflection(context.Context, string) (model.TypeReflection, error) {
	return model.TypeReflection{}, nil
}

func (p *stubChoiceProvider) PropertyType(context.Context, string, string) (model.ClassInfo, bool, error) {
	return model.ClassInfo{}, false, nil
}

func (p *stubChoiceProvider) ResolveChoiceType(_ context.Context, baseType, property string) (string, bool, error) {
	p.calls++
	if baseType == p.baseType && property == p.property {
		return p.suffix, true, nil
	}
	return "", false, nil
}

func (p *stubChoiceProvider) ValidateNavigationPath(context.Context, string) (bool, string, error) {
	return true, "", nil
}

func (p *stubChoiceProvider) IsResourceType(context.Context, string) (bool, error) {
	return false, nil
}

func (p *stubChoiceProvider) IsPrimitiveType(context.Context, string) (bool, error) {
	return false, nil
}

func TestWithProviderIsConsultedForChoiceElementNavigation(t *testing.T) {
	provider := &stubChoiceProvider{baseType: "Observation", property: "value", suffix: "Quantity"}

	ctx := NewContext([]byte(`{"resourceType":"Observation","valueQuantity":{"value":5,"unit":"mg"}}`))
	ev := NewEvaluator(ctx, newFakeRegistry()).WithProvider(provider)

	obj := ctx.Root()[0].(*types.ObjectValue)
	result := ev.resolvePolymorphicField(obj, "value")

	if provider.calls == 0 {
		t.Error("expected the configured provider to be consulted for choice-element resolution")
	}
	if result.Empty() {
		t.Fatal("expected resolvePolymorphicField to find valueQuantity via the provider-declared suffix")
	}
}

func TestWithoutSchemaFallsBackToSuffixProbing(t *testing.T) {
	ctx := NewContext([]byte(`{"resourceType":"Observation","valueString":"ok"}`))
	ev := NewEvaluator(ctx, newFakeRegistry())

	obj := ctx.Root()[0].(*types.ObjectValue)
	result := ev.resolvePolymorphicField(obj, "value")

	if result.Empty() {
		t.Fatal("expected the default model.Builtin-backed evaluator to still resolve via suffix probing")
	}
}

func TestIsAsOfTypeGoThroughTheResolver(t *testing.T) {
	ev := NewEvaluator(NewContext([]byte(`{}`)), newFakeRegistry())

	input := types.Collection{types.NewInteger(5)}
	typeExpr := node(ast.KindIdentifier, "Integer")

	isResult, err := ev.evaluateIsFunction(input, typeExpr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !isResult[0].(types.Boolean).Bool() {
		t.Error("expected is(Integer) to report true for an Integer value")
	}

	asResult, err := ev.evaluateAsFunction(input, typeExpr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if asResult.Empty() {
		t.Error("expected as(Integer) to pass through an Integer value")
	}

	ofTypeResult, err := ev.evaluateOfType(input, typeExpr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ofTypeResult.Empty() {
		t.Error("expected ofType(Integer) to keep the Integer value")
	}
}
