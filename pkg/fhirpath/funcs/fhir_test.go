package funcs

import (
	"context"
	"testing"

	"github.com/robertoaraneda/gofhir/pkg/fhirpath/eval"
	"github.com/robertoaraneda/gofhir/pkg/fhirpath/types"
)

type stubResolver struct {
	resources map[string][]byte
}

func (r *stubResolver) Resolve(ctx context.Context, reference string) ([]byte, error) {
	data, ok := r.resources[reference]
	if !ok {
		return nil, eval.NewEvalError(eval.ErrInvalidExpression, "not found: %s", reference)
	}
	return data, nil
}

func TestFnResolve(t *testing.T) {
	ctx := eval.NewContext([]byte(`{}`))

	t.Run("no resolver set returns empty", func(t *testing.T) {
		input := types.Collection{types.NewString("Patient/123")}
		result, err := fnResolve(ctx, input, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.Empty() {
			t.Error("expected an empty result with no resolver configured")
		}
	})

	t.Run("resolves a string reference", func(t *testing.T) {
		ctx.SetResolver(&stubResolver{resources: map[string][]byte{
			"Patient/123": []byte(`{"resourceType":"Patient","id":"123"}`),
		}})
		input := types.Collection{types.NewString("Patient/123")}
		result, err := fnResolve(ctx, input, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Empty() {
			t.Fatal("expected the resolved resource back")
		}
		obj, ok := result[0].(*types.ObjectValue)
		if !ok {
			t.Fatalf("expected an *ObjectValue, got %T", result[0])
		}
		if obj.Type() != "Patient" {
			t.Errorf("resolved resource type = %q, want %q", obj.Type(), "Patient")
		}
	})

	t.Run("unresolvable reference is skipped, not an error", func(t *testing.T) {
		ctx.SetResolver(&stubResolver{resources: map[string][]byte{}})
		input := types.Collection{types.NewString("Patient/missing")}
		result, err := fnResolve(ctx, input, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.Empty() {
			t.Error("expected an empty result for an unresolvable reference")
		}
	})
}

func TestFnExtensionAndHelpers(t *testing.T) {
	ctx := eval.NewContext([]byte(`{}`))
	patient := types.NewObjectValue([]byte(`{
		"resourceType":"Patient",
		"extension":[
			{"url":"http://example.org/fav-color","valueString":"blue"},
			{"url":"http://example.org/other","valueInteger":5}
		]
	}`))
	input := types.Collection{patient}
	urlArg := []interface{}{types.Collection{types.NewString("http://example.org/fav-color")}}

	t.Run("extension filters by URL", func(t *testing.T) {
		result, err := fnExtension(ctx, input, urlArg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result) != 1 {
			t.Fatalf("expected exactly 1 matching extension, got %d", len(result))
		}
	})

	t.Run("hasExtension true for a known URL", func(t *testing.T) {
		result, err := fnHasExtension(ctx, input, urlArg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result[0].(types.Boolean).Bool() {
			t.Error("expected hasExtension to report true")
		}
	})

	t.Run("hasExtension false for an unknown URL", func(t *testing.T) {
		missing := []interface{}{types.Collection{types.NewString("http://example.org/nope")}}
		result, err := fnHasExtension(ctx, input, missing)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result[0].(types.Boolean).Bool() {
			t.Error("expected hasExtension to report false")
		}
	})

	t.Run("getExtensionValue returns the value[x] payload", func(t *testing.T) {
		result, err := fnGetExtensionValue(ctx, input, urlArg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Empty() {
			t.Fatal("expected a value back")
		}
		s, ok := result[0].(types.String)
		if !ok || s.Value() != "blue" {
			t.Errorf("got %v, want String(blue)", result[0])
		}
	})
}

func TestFnGetReferenceKey(t *testing.T) {
	ctx := eval.NewContext([]byte(`{}`))

	tests := []struct {
		name      string
		reference string
		part      string
		want      string
	}{
		{"default key", "Patient/123", "", "Patient/123"},
		{"type part", "Patient/123", "type", "Patient"},
		{"id part", "Patient/123", "id", "123"},
		{"full url reduces to type/id", "http://example.org/fhir/Patient/123", "key", "Patient/123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := types.Collection{types.NewString(tt.reference)}
			var args []interface{}
			if tt.part != "" {
				args = []interface{}{types.Collection{types.NewString(tt.part)}}
			}
			result, err := fnGetReferenceKey(ctx, input, args)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Empty() || result[0].(types.String).Value() != tt.want {
				t.Errorf("got %v, want %q", result, tt.want)
			}
		})
	}
}
