// Package registry wraps funcs.Registry/eval.FuncDef function bodies
// with operation metadata (category, cardinality, purity) and an
// LRU-backed dispatch cache, so the function implementations themselves
// don't need to change.
package registry

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/robertoaraneda/gofhir/pkg/fhirpath/eval"
	"github.com/robertoaraneda/gofhir/pkg/fhirpath/types"
)

// Category groups a function by the section of the FHIRPath spec it
// belongs to, for documentation and Analyze-mode diagnostics.
type Category int

const (
	CategoryExistence Category = iota
	CategoryFiltering
	CategorySubsetting
	CategoryCombining
	CategoryConversion
	CategoryStringManipulation
	CategoryMath
	CategoryTree
	CategoryUtility
	CategoryTypeChecking
	CategoryTemporal
	CategoryAggregate
	CategoryFHIRSpecific
	CategoryRegex
)

func (c Category) String() string {
	switch c {
	case CategoryExistence:
		return "existence"
	case CategoryFiltering:
		return "filtering"
	case CategorySubsetting:
		return "subsetting"
	case CategoryCombining:
		return "combining"
	case CategoryConversion:
		return "conversion"
	case CategoryStringManipulation:
		return "string-manipulation"
	case CategoryMath:
		return "math"
	case CategoryTree:
		return "tree-navigation"
	case CategoryUtility:
		return "utility"
	case CategoryTypeChecking:
		return "type-checking"
	case CategoryTemporal:
		return "temporal"
	case CategoryAggregate:
		return "aggregate"
	case CategoryFHIRSpecific:
		return "fhir-specific"
	case CategoryRegex:
		return "regex"
	default:
		return "unknown"
	}
}

// Cardinality describes how a function's MinArgs/MaxArgs constrain its
// argument count, mirroring the per-call arity checks in evaluator.go's
// function-call dispatch.
type Cardinality struct {
	Min int
	Max int // -1 means unbounded
}

// Descriptor is a function's full operation metadata: identity,
// cardinality, domain category, purity, and the executor itself (an
// unmodified eval.FuncImpl body).
type Descriptor struct {
	Name        string
	Category    Category
	Cardinality Cardinality
	// Pure functions (the overwhelming majority: upper(), count(),
	// substring(), ...) have no side effects and depend only on their
	// input collection and arguments, so their results are safe to
	// memoize. Impure functions (e.g. trace(), now(), today()) must
	// bypass the result cache.
	Pure bool
	Fn   eval.FuncImpl
}

// FuncDef adapts the descriptor to the shape funcs.Registry/eval
// dispatch already expects, so registry.Describe can sit directly next
// to the funcs.Register call for the same function.
func (d Descriptor) FuncDef() eval.FuncDef {
	return eval.FuncDef{Name: d.Name, MinArgs: d.Cardinality.Min, MaxArgs: d.Cardinality.Max, Fn: d.Fn}
}

const (
	descriptorCacheSize = 256
	resultCacheSize     = 1024
)

// Registry holds Descriptors alongside the plain funcs.Registry, and
// caches both descriptor lookups and pure-function results.
type Registry struct {
	mu          sync.RWMutex
	descriptors map[string]Descriptor

	descriptorCache *lru.Cache[string, Descriptor]
	resultCache     *lru.Cache[resultKey, types.Collection]
}

// resultKey identifies a memoized pure-function call: the function
// name, a structural fingerprint of the input collection, and a
// fingerprint of the (already-evaluated) arguments.
type resultKey struct {
	name   string
	input  string
	args   string
}

// New creates an empty Registry with its LRU caches sized for a single
// evaluation session's working set.
func New() *Registry {
	descCache, err := lru.New[string, Descriptor](descriptorCacheSize)
	if err != nil {
		panic(fmt.Sprintf("registry: descriptor cache: %v", err))
	}
	resCache, err := lru.New[resultKey, types.Collection](resultCacheSize)
	if err != nil {
		panic(fmt.Sprintf("registry: result cache: %v", err))
	}
	return &Registry{
		descriptors:     make(map[string]Descriptor),
		descriptorCache: descCache,
		resultCache:     resCache,
	}
}

// Describe registers a Descriptor. Call sites mirror funcs.Register one
// for one: each funcs.go init() that calls Register(FuncDef{...}) gets a
// matching Describe(Descriptor{...}) naming the same Fn.
func (r *Registry) Describe(d Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.descriptors[d.Name] = d
	r.descriptorCache.Add(d.Name, d)
}

// Lookup returns the Descriptor for name, consulting the LRU cache
// before the backing map.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	if d, ok := r.descriptorCache.Get(name); ok {
		return d, true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.descriptors[name]
	return d, ok
}

// Get adapts Lookup to the eval.FuncRegistry interface's shape
// (eval.FuncDef rather than Descriptor), so a *Registry can be passed
// directly to eval.NewEvaluator.
func (r *Registry) Get(name string) (eval.FuncDef, bool) {
	d, ok := r.Lookup(name)
	if !ok {
		return eval.FuncDef{}, false
	}
	return d.FuncDef(), true
}

// Names returns every registered function name.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.descriptors))
	for name := range r.descriptors {
		names = append(names, name)
	}
	return names
}

// Invoke calls the named function's executor, serving a cached result
// for pure functions when the input collection and arguments fingerprint
// identically to a prior call.
func (r *Registry) Invoke(ctx *eval.Context, name string, input types.Collection, args []interface{}) (types.Collection, error) {
	d, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("registry: unknown function %q", name)
	}
	if !d.Pure {
		return d.Fn(ctx, input, args)
	}
	key := resultKey{name: name, input: fingerprintCollection(input), args: fingerprintArgs(args)}
	if cached, ok := r.resultCache.Get(key); ok {
		return cached, nil
	}
	result, err := d.Fn(ctx, input, args)
	if err != nil {
		return nil, err
	}
	r.resultCache.Add(key, result)
	return result, nil
}

func fingerprintCollection(c types.Collection) string {
	s := ""
	for _, v := range c {
		s += v.Type() + ":" + v.String() + "|"
	}
	return s
}

func fingerprintArgs(args []interface{}) string {
	s := ""
	for _, a := range args {
		switch v := a.(type) {
		case types.Collection:
			s += fingerprintCollection(v) + ";"
		case types.Value:
			s += v.Type() + ":" + v.String() + ";"
		default:
			s += fmt.Sprintf("%v;", v)
		}
	}
	return s
}
