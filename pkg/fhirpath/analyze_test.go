package fhirpath

import (
	"testing"

	"github.com/robertoaraneda/gofhir/pkg/fhirpath/diag"
	"github.com/robertoaraneda/gofhir/pkg/fhirpath/parser"
)

func TestParse(t *testing.T) {
	t.Run("valid expression", func(t *testing.T) {
		tree, bag := Parse("Patient.name.given", parser.Fast)
		if bag.HasErrors() {
			t.Fatalf("unexpected diagnostics: %v", bag.All())
		}
		if tree.Fingerprint == 0 {
			t.Error("expected a populated parse tree with a structural fingerprint")
		}
	})

	t.Run("invalid syntax accumulates diagnostics", func(t *testing.T) {
		_, bag := Parse("Patient..name", parser.Analyze)
		if !bag.HasErrors() {
			t.Error("expected at least one diagnostic for malformed input")
		}
	})
}

func TestAnalyze(t *testing.T) {
	t.Run("reports functions used", func(t *testing.T) {
		report, bag := Analyze("name.where(use = 'official').given.first()", "")
		if bag.HasErrors() {
			t.Fatalf("unexpected diagnostics: %v", bag.All())
		}
		if !report.Valid {
			t.Error("expected a valid report")
		}
		found := map[string]bool{}
		for _, name := range report.FunctionsUsed {
			found[name] = true
		}
		if !found["where"] || !found["first"] {
			t.Errorf("expected where/first in functions used, got %v", report.FunctionsUsed)
		}
	})

	t.Run("unknown context type produces a diagnostic", func(t *testing.T) {
		_, bag := Analyze("name.given", "notAResourceTypeName")
		if !bag.HasErrors() {
			t.Error("expected a diagnostic for an unrecognized context type")
		}
	})

	t.Run("parse error short-circuits function collection", func(t *testing.T) {
		report, bag := Analyze("name.where(", "")
		if report.Valid {
			t.Error("expected an invalid report for malformed input")
		}
		if !bag.HasErrors() {
			t.Error("expected at least one diagnostic")
		}
	})
}

func TestEvaluateWithDiagnostics(t *testing.T) {
	t.Run("successful evaluation", func(t *testing.T) {
		result, bag := EvaluateWithDiagnostics("Patient.name.given", patientJSON)
		if bag.HasErrors() {
			t.Fatalf("unexpected diagnostics: %v", bag.All())
		}
		if result.Empty() {
			t.Error("expected a non-empty result")
		}
	})

	t.Run("compile error surfaces as a diagnostic", func(t *testing.T) {
		_, bag := EvaluateWithDiagnostics("", patientJSON)
		if !bag.HasErrors() {
			t.Error("expected a diagnostic for an empty expression")
		}
	})

	t.Run("incompatible quantity units surface as FP0065/KindType", func(t *testing.T) {
		_, bag := EvaluateWithDiagnostics("4 'g' + 4 's'", patientJSON)
		if !bag.HasErrors() {
			t.Fatal("expected a diagnostic for incompatible units")
		}
		all := bag.All()
		d := all[len(all)-1]
		if d.Code != diag.CodeIncompatibleUnits {
			t.Errorf("code = %v, want %v", d.Code, diag.CodeIncompatibleUnits)
		}
		if d.Kind != diag.KindType {
			t.Errorf("kind = %v, want %v", d.Kind, diag.KindType)
		}
		if d.Kind.Fatal() {
			t.Error("expected a Type-kind diagnostic to not be Fatal")
		}
	})

	t.Run("singleton-expected evaluation failure maps to its own code", func(t *testing.T) {
		_, bag := EvaluateWithDiagnostics("Patient.name + Patient.name", patientJSON)
		if !bag.HasErrors() {
			t.Fatal("expected a diagnostic for a non-singleton operand")
		}
		all := bag.All()
		d := all[len(all)-1]
		if d.Code != diag.CodeSingletonExpected {
			t.Errorf("code = %v, want %v", d.Code, diag.CodeSingletonExpected)
		}
	})
}

func TestEvaluateWithMetadataPackageLevel(t *testing.T) {
	results, bag := EvaluateWithMetadata("Patient.name.given", patientJSON)
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", bag.All())
	}
	if len(results) == 0 {
		t.Fatal("expected at least one result")
	}
	for _, w := range results {
		if w.Path.String() == "" {
			t.Error("expected a non-empty canonical path")
		}
	}
}
