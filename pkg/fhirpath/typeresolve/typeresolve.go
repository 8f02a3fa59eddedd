// Package typeresolve answers the property- and type-level questions
// FHIRPath navigation and the is/as/ofType operators need beyond the raw
// value algebra: what type does a property resolve to, does a runtime
// type satisfy a requested type, and (for Analyze-mode diagnostics) what
// did the author probably mean to type when a name doesn't resolve.
//
// It is a thin layer over model.Provider: PropertyType and
// ResolveChoiceType ask the Provider and report ok=false when it has no
// answer, without a heuristic fallback of their own (eval probes
// model.PolymorphicTypeSuffixes against the instance data itself, per
// DESIGN.md Open Question #2). IsOfType does not consult the Provider.
package typeresolve

import (
	"context"
	"strings"

	"github.com/xrash/smetrics"

	"github.com/robertoaraneda/gofhir/pkg/fhirpath/model"
)

// Resolver answers property and type questions against a model.Provider;
// where the provider has no structural answer, PropertyType and
// ResolveChoiceType report ok=false.
type Resolver struct {
	provider model.Provider
}

// New builds a Resolver backed by provider. Pass model.NewBuiltin() for
// the zero-configuration case.
func New(provider model.Provider) *Resolver {
	return &Resolver{provider: provider}
}

// PropertyType resolves the type of navigating from baseType via
// property, trying the Provider's StructureDefinition-backed answer
// first and then the Provider's ResolveChoiceType answer (returned as a
// FHIR ClassInfo named by the suffix). It reports ok=false when neither
// answers, as with Builtin.
func (r *Resolver) PropertyType(ctx context.Context, baseType, property string) (model.ClassInfo, bool, error) {
	if ci, ok, err := r.provider.PropertyType(ctx, baseType, property); err != nil {
		return model.ClassInfo{}, false, err
	} else if ok {
		return ci, true, nil
	}

	if suffix, ok, err := r.ResolveChoiceType(ctx, baseType, property); err != nil {
		return model.ClassInfo{}, false, err
	} else if ok {
		return model.ClassInfo{Name: suffix, Namespace: "FHIR"}, true, nil
	}

	return model.ClassInfo{}, false, nil
}

// ResolveChoiceType resolves a choice element (e.g. "value" on
// Observation) to its concrete type suffix, trying the Provider first.
// Without a schema to say which suffix baseType actually declares for
// property, there is no single correct answer to synthesize here; the
// caller falls back to probing model.PolymorphicTypeSuffixes against the
// actual instance data instead (DESIGN.md Open Question #2).
func (r *Resolver) ResolveChoiceType(ctx context.Context, baseType, property string) (string, bool, error) {
	if suffix, ok, err := r.provider.ResolveChoiceType(ctx, baseType, property); err != nil {
		return "", false, err
	} else if ok {
		return suffix, true, nil
	}
	return "", false, nil
}

// IsOfType reports whether actualType satisfies typeName, delegating
// directly to model.TypeMatches; it has its own entry point here (rather
// than calling model.TypeMatches from eval) so evaluator code and
// Analyze-mode static checks share one call path.
func (r *Resolver) IsOfType(actualType, typeName string) bool {
	return model.TypeMatches(actualType, typeName)
}

// suggestionThreshold is the minimum Jaro-Winkler similarity a candidate
// must clear to be offered as a "did you mean" suggestion; below this,
// two names are unrelated often enough that a wrong suggestion would be
// more confusing than silence.
const suggestionThreshold = 0.75

// SuggestName finds the candidate most similar to name by Jaro-Winkler
// distance, for Analyze-mode diagnostics like "unknown property 'nmae',
// did you mean 'name'?". Returns ok=false if no candidate clears
// suggestionThreshold.
func SuggestName(name string, candidates []string) (best string, ok bool) {
	lower := strings.ToLower(name)
	var bestScore float64
	for _, c := range candidates {
		score := smetrics.JaroWinkler(lower, strings.ToLower(c), 0.7, 4)
		if score > bestScore {
			bestScore = score
			best = c
		}
	}
	if bestScore < suggestionThreshold {
		return "", false
	}
	return best, true
}
