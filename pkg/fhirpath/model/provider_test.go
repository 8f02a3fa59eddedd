package model

import (
	"context"
	"testing"
)

func TestBuiltinTypeReflection(t *testing.T) {
	b := NewBuiltin()
	ctx := context.Background()

	t.Run("System primitive", func(t *testing.T) {
		ref, err := b.TypeReflection(ctx, "System.Boolean")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ref.Simple == nil || ref.Simple.Name != "Boolean" || ref.Simple.Namespace != "System" {
			t.Errorf("got %+v", ref.Simple)
		}
	})

	t.Run("FHIR-namespaced primitive", func(t *testing.T) {
		ref, err := b.TypeReflection(ctx, "FHIR.String")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ref.Simple == nil || ref.Simple.Name != "String" || ref.Simple.Namespace != "FHIR" {
			t.Errorf("got %+v", ref.Simple)
		}
	})

	t.Run("bare primitive defaults to FHIR namespace", func(t *testing.T) {
		ref, err := b.TypeReflection(ctx, "Integer")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ref.Simple == nil || ref.Simple.Namespace != "FHIR" {
			t.Errorf("got %+v", ref.Simple)
		}
	})

	t.Run("domain resource class", func(t *testing.T) {
		ref, err := b.TypeReflection(ctx, "Patient")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ref.Class == nil || ref.Class.Name != "Patient" || ref.Class.BaseType != "DomainResource" {
			t.Errorf("got %+v", ref.Class)
		}
	})

	t.Run("non-domain resource class", func(t *testing.T) {
		ref, err := b.TypeReflection(ctx, "Bundle")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ref.Class == nil || ref.Class.BaseType != "Resource" {
			t.Errorf("got %+v", ref.Class)
		}
	})

	t.Run("lowercase name is not treated as a resource", func(t *testing.T) {
		ref, err := b.TypeReflection(ctx, "backboneElement")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ref.Class == nil || ref.Class.BaseType != "" {
			t.Errorf("expected no base type for a non-PascalCase name, got %+v", ref.Class)
		}
	})
}

func TestBuiltinPropertyTypeAlwaysUnknown(t *testing.T) {
	b := NewBuiltin()
	_, ok, err := b.PropertyType(context.Background(), "Patient", "name")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected Builtin.PropertyType to always report unknown (ok=false)")
	}
}

func TestBuiltinResolveChoiceTypeAlwaysUnresolved(t *testing.T) {
	b := NewBuiltin()
	_, ok, err := b.ResolveChoiceType(context.Background(), "Observation", "value")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected Builtin.ResolveChoiceType to always report ok=false")
	}
}

func TestBuiltinValidateNavigationPathAlwaysValid(t *testing.T) {
	b := NewBuiltin()
	valid, reason, err := b.ValidateNavigationPath(context.Background(), "Patient.name.given")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !valid {
		t.Errorf("expected Builtin.ValidateNavigationPath to always report valid=true, got reason %q", reason)
	}
}

func TestBuiltinIsResourceType(t *testing.T) {
	b := NewBuiltin()
	ctx := context.Background()

	if ok, _ := b.IsResourceType(ctx, "Patient"); !ok {
		t.Error("expected Patient to be reported as a resource type")
	}
	if ok, _ := b.IsResourceType(ctx, "HumanName"); ok {
		t.Error("did not expect HumanName to be reported as a resource type")
	}
	if ok, _ := b.IsResourceType(ctx, "String"); ok {
		t.Error("did not expect the String primitive to be reported as a resource type")
	}
}

func TestBuiltinIsPrimitiveType(t *testing.T) {
	b := NewBuiltin()
	ctx := context.Background()

	if ok, _ := b.IsPrimitiveType(ctx, "Boolean"); !ok {
		t.Error("expected Boolean to be reported as primitive")
	}
	if ok, _ := b.IsPrimitiveType(ctx, "Patient"); ok {
		t.Error("did not expect Patient to be reported as primitive")
	}
}

func TestNewBuiltinSatisfiesProvider(t *testing.T) {
	var _ Provider = NewBuiltin()
}
