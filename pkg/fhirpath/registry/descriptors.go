package registry

import (
	"fmt"

	"github.com/robertoaraneda/gofhir/pkg/fhirpath/funcs"
)

// meta is the category/purity metadata this package adds on top of each
// funcs.FuncDef. Cardinality is read from the FuncDef itself rather than
// duplicated here, so Min/Max can never drift out of sync with the
// function body that enforces them.
type meta struct {
	category Category
	pure     bool
}

// builtinMeta maps every function name the funcs package registers
// (grep'd from funcs/*.go's init() calls) to its operation category and
// purity. now/today/timeOfDay/trace are impure: their
// result depends on wall-clock time or has the side effect of writing a
// trace log, so they must never be served from the result cache.
var builtinMeta = map[string]meta{
	// existence.go
	"empty": {CategoryExistence, true}, "exists": {CategoryExistence, true},
	"all": {CategoryExistence, true}, "allTrue": {CategoryExistence, true},
	"anyTrue": {CategoryExistence, true}, "allFalse": {CategoryExistence, true},
	"anyFalse": {CategoryExistence, true}, "count": {CategoryExistence, true},
	"distinct": {CategoryExistence, true}, "isDistinct": {CategoryExistence, true},
	"subsetOf": {CategoryExistence, true}, "supersetOf": {CategoryExistence, true},

	// filtering.go
	"where": {CategoryFiltering, true}, "select": {CategoryFiltering, true},
	"repeat": {CategoryFiltering, true}, "ofType": {CategoryFiltering, true},

	// subsetting.go
	"first": {CategorySubsetting, true}, "last": {CategorySubsetting, true},
	"tail": {CategorySubsetting, true}, "skip": {CategorySubsetting, true},
	"take": {CategorySubsetting, true}, "single": {CategorySubsetting, true},
	"intersect": {CategorySubsetting, true}, "exclude": {CategorySubsetting, true},

	// aggregate.go (also hosts tree/combining/type operators grouped
	// alongside the true aggregate function)
	"aggregate": {CategoryAggregate, true}, "children": {CategoryTree, true},
	"descendants": {CategoryTree, true}, "not": {CategoryExistence, true},
	"hasValue": {CategoryExistence, true}, "getValue": {CategoryExistence, true},
	"combine": {CategoryCombining, true}, "union": {CategoryCombining, true},
	"as": {CategoryTypeChecking, true},

	// conversion.go
	"iif": {CategoryConversion, true}, "toBoolean": {CategoryConversion, true},
	"convertsToBoolean": {CategoryConversion, true}, "toInteger": {CategoryConversion, true},
	"convertsToInteger": {CategoryConversion, true}, "toDecimal": {CategoryConversion, true},
	"convertsToDecimal": {CategoryConversion, true}, "toString": {CategoryConversion, true},
	"convertsToString": {CategoryConversion, true}, "toDate": {CategoryConversion, true},
	"convertsToDate": {CategoryConversion, true}, "toDateTime": {CategoryConversion, true},
	"convertsToDateTime": {CategoryConversion, true}, "toTime": {CategoryConversion, true},
	"convertsToTime": {CategoryConversion, true}, "toQuantity": {CategoryConversion, true},
	"convertsToQuantity": {CategoryConversion, true},

	// strings.go
	"startsWith": {CategoryStringManipulation, true}, "endsWith": {CategoryStringManipulation, true},
	"contains": {CategoryStringManipulation, true}, "replace": {CategoryStringManipulation, true},
	"matches": {CategoryRegex, true}, "replaceMatches": {CategoryRegex, true},
	"indexOf": {CategoryStringManipulation, true}, "substring": {CategoryStringManipulation, true},
	"lower": {CategoryStringManipulation, true}, "upper": {CategoryStringManipulation, true},
	"toChars": {CategoryStringManipulation, true}, "split": {CategoryStringManipulation, true},
	"join": {CategoryStringManipulation, true}, "trim": {CategoryStringManipulation, true},
	"length": {CategoryStringManipulation, true},

	// math.go
	"abs": {CategoryMath, true}, "ceiling": {CategoryMath, true}, "exp": {CategoryMath, true},
	"floor": {CategoryMath, true}, "ln": {CategoryMath, true}, "log": {CategoryMath, true},
	"power": {CategoryMath, true}, "round": {CategoryMath, true}, "sqrt": {CategoryMath, true},
	"truncate": {CategoryMath, true}, "sum": {CategoryMath, true}, "min": {CategoryMath, true},
	"max": {CategoryMath, true}, "avg": {CategoryMath, true},

	// typechecking.go
	"is": {CategoryTypeChecking, true},

	// temporal.go / utility.go — now/today/timeOfDay are wall-clock
	// dependent and therefore impure regardless of which file a given
	// build registers them from.
	"year": {CategoryTemporal, true}, "month": {CategoryTemporal, true},
	"day": {CategoryTemporal, true}, "hour": {CategoryTemporal, true},
	"minute": {CategoryTemporal, true}, "second": {CategoryTemporal, true},
	"millisecond": {CategoryTemporal, true}, "now": {CategoryTemporal, false},
	"today": {CategoryTemporal, false}, "timeOfDay": {CategoryTemporal, false},

	// utility.go
	"trace": {CategoryUtility, false},

	// fhir.go
	"resolve": {CategoryFHIRSpecific, false}, "extension": {CategoryFHIRSpecific, true},
	"hasExtension": {CategoryFHIRSpecific, true}, "getExtensionValue": {CategoryFHIRSpecific, true},
	"getReferenceKey": {CategoryFHIRSpecific, true},
}

// Default builds a Registry wrapping every function in funcs.GetRegistry,
// classified by builtinMeta. It panics if a function from the global
// funcs registry has no entry here — a new function was added to funcs
// without registry classification, which should be caught at wiring time
// rather than silently falling through with zero metadata.
func Default() *Registry {
	r := New()
	for _, name := range funcs.List() {
		def, ok := funcs.Get(name)
		if !ok {
			continue
		}
		m, ok := builtinMeta[name]
		if !ok {
			panic(fmt.Sprintf("registry: function %q has no category/purity classification", name))
		}
		r.Describe(Descriptor{
			Name:        name,
			Category:    m.category,
			Cardinality: Cardinality{Min: def.MinArgs, Max: def.MaxArgs},
			Pure:        m.pure,
			Fn:          def.Fn,
		})
	}
	return r
}
