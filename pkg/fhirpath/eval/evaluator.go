package eval

import (
	"context"
	"strconv"
	"strings"

	"github.com/robertoaraneda/gofhir/pkg/fhirpath/ast"
	"github.com/robertoaraneda/gofhir/pkg/fhirpath/model"
	"github.com/robertoaraneda/gofhir/pkg/fhirpath/typeresolve"
	"github.com/robertoaraneda/gofhir/pkg/fhirpath/types"
)

// FuncImpl is the signature for function implementations.
type FuncImpl func(ctx *Context, input types.Collection, args []interface{}) (types.Collection, error)

// FuncDef defines a FHIRPath function.
type FuncDef struct {
	Name    string
	MinArgs int
	MaxArgs int
	Fn      FuncImpl
}

// FuncRegistry is an interface for function lookup and invocation. Both
// funcs.Registry (direct dispatch) and registry.Registry (cached
// dispatch with operation metadata) satisfy this.
type FuncRegistry interface {
	Get(name string) (FuncDef, bool)
	Invoke(ctx *Context, name string, input types.Collection, args []interface{}) (types.Collection, error)
}

// Resolver handles FHIR reference resolution.
type Resolver interface {
	Resolve(ctx context.Context, reference string) ([]byte, error)
}

// Evaluator evaluates a parsed FHIRPath ast.Node tree, dispatching on
// ast.Kind from a single Eval(node) entry point.
type Evaluator struct {
	ctx      *Context
	funcs    FuncRegistry
	provider model.Provider
	resolver *typeresolve.Resolver
}

// Context holds the evaluation state.
type Context struct {
	root      types.Collection
	this      types.Collection
	index     int
	total     types.Value
	variables map[string]types.Collection
	limits    map[string]int
	goCtx     context.Context
	resolver  Resolver

	// metadata, when true, makes navigateMember and the per-element
	// iteration functions (where/select/exists/all/repeat) wrap results
	// in types.WrappedValue carrying a types.CanonicalPath, so callers
	// of EvaluateWithMetadata can report exactly where a result
	// navigated from. Plain Evaluate leaves this off: bare values with
	// no provenance, unchanged by default.
	metadata bool
	path     types.CanonicalPath
}

// NewContext creates a new evaluation context.
// Automatically sets %resource and %context to the root resource for FHIR constraint evaluation.
// Per FHIRPath spec:
//   - %resource: the root resource being evaluated
//   - %context: the original node passed to the evaluation engine (same as %resource for top-level evaluation)
func NewContext(resource []byte) *Context {
	//nolint:errcheck // Empty collection is acceptable for invalid JSON in context creation
	root, _ := types.JSONToCollection(resource)

	// Initialize variables map with %resource and %context pointing to root
	// %resource is required by FHIR constraints like bdl-3, bdl-4
	// %context represents the evaluation context (same as root for top-level evaluation)
	variables := make(map[string]types.Collection)
	variables["resource"] = root
	variables["context"] = root

	path := types.CanonicalPath{}
	if len(root) > 0 {
		path = types.NewCanonicalPath(root[0].Type())
	}

	return &Context{
		root:      root,
		this:      root,
		variables: variables,
		limits:    make(map[string]int),
		goCtx:     context.Background(),
		path:      path,
	}
}

// EnableMetadata turns on WrappedValue/CanonicalPath propagation for
// subsequent navigation, used by Expression.EvaluateWithMetadata.
func (c *Context) EnableMetadata() {
	c.metadata = true
}

// MetadataEnabled reports whether metadata propagation is active.
func (c *Context) MetadataEnabled() bool {
	return c.metadata
}

// Path returns the CanonicalPath of the current $this.
func (c *Context) Path() types.CanonicalPath {
	return c.path
}

// SetLimit sets a limit value (e.g., maxDepth, maxCollectionSize).
func (c *Context) SetLimit(name string, value int) {
	if c.limits == nil {
		c.limits = make(map[string]int)
	}
	c.limits[name] = value
}

// GetLimit gets a limit value.
func (c *Context) GetLimit(name string) int {
	if c.limits == nil {
		return 0
	}
	return c.limits[name]
}

// SetContext sets the Go context for cancellation.
func (c *Context) SetContext(ctx context.Context) {
	c.goCtx = ctx
}

// Context returns the Go context.
func (c *Context) Context() context.Context {
	if c.goCtx == nil {
		return context.Background()
	}
	return c.goCtx
}

// SetResolver sets the reference resolver.
func (c *Context) SetResolver(r Resolver) {
	c.resolver = r
}

// GetResolver returns the reference resolver.
func (c *Context) GetResolver() Resolver {
	return c.resolver
}

// CheckCancellation checks if the context has been canceled.
func (c *Context) CheckCancellation() error {
	if c.goCtx == nil {
		return nil
	}
	select {
	case <-c.goCtx.Done():
		return c.goCtx.Err()
	default:
		return nil
	}
}

// CheckCollectionSize validates that a collection doesn't exceed the maximum size.
// Returns an error if the collection is too large.
func (c *Context) CheckCollectionSize(col types.Collection) error {
	maxSize := c.GetLimit("maxCollectionSize")
	if maxSize > 0 && len(col) > maxSize {
		return NewEvalError(ErrCollectionTooLarge,
			"collection size %d exceeds maximum allowed %d", len(col), maxSize)
	}
	return nil
}

// EnforceCollectionLimit truncates a collection if it exceeds the maximum size.
// Returns the (possibly truncated) collection and whether truncation occurred.
func (c *Context) EnforceCollectionLimit(col types.Collection) (types.Collection, bool) {
	maxSize := c.GetLimit("maxCollectionSize")
	if maxSize > 0 && len(col) > maxSize {
		return col[:maxSize], true
	}
	return col, false
}

// Root returns the root collection.
func (c *Context) Root() types.Collection {
	return c.root
}

// This returns the current $this value.
func (c *Context) This() types.Collection {
	return c.this
}

// WithThis returns a new context with the given $this value.
func (c *Context) WithThis(this types.Collection) *Context {
	newCtx := *c
	newCtx.this = this
	return &newCtx
}

// WithThisAt returns a new context with $this and its CanonicalPath set,
// for member navigation and per-element iteration under metadata mode.
func (c *Context) WithThisAt(this types.Collection, path types.CanonicalPath) *Context {
	newCtx := *c
	newCtx.this = this
	newCtx.path = path
	return &newCtx
}

// WithIndex returns a new context with the given $index value.
func (c *Context) WithIndex(index int) *Context {
	newCtx := *c
	newCtx.index = index
	return &newCtx
}

// SetVariable sets an external variable.
func (c *Context) SetVariable(name string, value types.Collection) {
	c.variables[name] = value
}

// GetVariable gets an external variable.
func (c *Context) GetVariable(name string) (types.Collection, bool) {
	v, ok := c.variables[name]
	return v, ok
}

// NewEvaluator creates a new evaluator with the given context and function registry.
func NewEvaluator(ctx *Context, funcs FuncRegistry) *Evaluator {
	builtin := model.NewBuiltin()
	return &Evaluator{ctx: ctx, funcs: funcs, provider: builtin, resolver: typeresolve.New(builtin)}
}

// WithProvider swaps in a schema-backed model.Provider in place of the
// default model.Builtin, used by Expression.EvaluateWithProvider for a
// caller-supplied provider. is/as/ofType and value[x] choice-element
// navigation are then answered through this provider first (via
// typeresolve.Resolver), falling back to the schema-free heuristics only
// when the provider has nothing to say.
func (e *Evaluator) WithProvider(p model.Provider) *Evaluator {
	e.provider = p
	e.resolver = typeresolve.New(p)
	return e
}

// Evaluate evaluates a parsed tree and returns the result.
func (e *Evaluator) Evaluate(root *ast.Node) (types.Collection, error) {
	return e.Eval(root)
}

// Eval dispatches on node.Kind, one case per grammar production.
func (e *Evaluator) Eval(n *ast.Node) (types.Collection, error) {
	if n == nil {
		return types.Collection{}, nil
	}

	switch n.Kind {
	case ast.KindNullLiteral:
		return types.Collection{}, nil

	case ast.KindBooleanLiteral:
		return types.Collection{types.NewBoolean(n.Text == "true")}, nil

	case ast.KindStringLiteral:
		return types.Collection{types.NewString(unquoteString(n.Text))}, nil

	case ast.KindNumberLiteral:
		return e.evalNumberLiteral(n)

	case ast.KindDateLiteral:
		return e.evalDateLiteral(n)

	case ast.KindDateTimeLiteral:
		return e.evalDateTimeLiteral(n)

	case ast.KindTimeLiteral:
		return e.evalTimeLiteral(n)

	case ast.KindQuantityLiteral:
		q, err := types.NewQuantity(n.Text)
		if err != nil {
			return nil, ParseError("invalid quantity: " + n.Text)
		}
		return types.Collection{q}, nil

	case ast.KindParenthesizedExpression:
		return e.Eval(n.Operand(0))

	case ast.KindExternalConstant:
		return e.evalExternalConstant(n)

	case ast.KindThisInvocation:
		return e.ctx.This(), nil

	case ast.KindIndexInvocation:
		return types.Collection{types.NewInteger(int64(e.ctx.index))}, nil

	case ast.KindTotalInvocation:
		if e.ctx.total != nil {
			return types.Collection{e.ctx.total}, nil
		}
		return types.Collection{}, nil

	case ast.KindIdentifier:
		return e.navigateMember(e.ctx.This(), e.ctx.Path(), stripBackticks(n.Text)), nil

	case ast.KindFunctionCall:
		return e.evalFunctionCall(n)

	case ast.KindInvocationExpression:
		return e.evalInvocationExpression(n)

	case ast.KindIndexerExpression:
		return e.evalIndexerExpression(n)

	case ast.KindPolarityExpression:
		return e.evalPolarity(n)

	case ast.KindMultiplicativeExpression:
		return e.evalMultiplicative(n)

	case ast.KindAdditiveExpression:
		return e.evalAdditive(n)

	case ast.KindUnionExpression:
		return e.evalUnion(n)

	case ast.KindInequalityExpression:
		return e.evalInequality(n)

	case ast.KindEqualityExpression:
		return e.evalEquality(n)

	case ast.KindMembershipExpression:
		return e.evalMembership(n)

	case ast.KindAndExpression:
		left, err := e.Eval(n.Operand(0))
		if err != nil {
			return nil, err
		}
		right, err := e.Eval(n.Operand(1))
		if err != nil {
			return nil, err
		}
		return And(types.UnwrapCollection(left), types.UnwrapCollection(right)), nil

	case ast.KindOrExpression:
		return e.evalOrXor(n)

	case ast.KindImpliesExpression:
		left, err := e.Eval(n.Operand(0))
		if err != nil {
			return nil, err
		}
		right, err := e.Eval(n.Operand(1))
		if err != nil {
			return nil, err
		}
		return Implies(types.UnwrapCollection(left), types.UnwrapCollection(right)), nil

	case ast.KindTypeExpression:
		return e.evalTypeExpression(n)

	default:
		return nil, NewEvalError(ErrInvalidExpression, "unhandled node kind %s", n.Kind)
	}
}

func (e *Evaluator) evalNumberLiteral(n *ast.Node) (types.Collection, error) {
	text := n.Text
	if !strings.Contains(text, ".") {
		if i, err := strconv.ParseInt(text, 10, 64); err == nil {
			return types.Collection{types.NewInteger(i)}, nil
		}
	}
	d, err := types.NewDecimal(text)
	if err != nil {
		return nil, ParseError("invalid number: " + text)
	}
	return types.Collection{d}, nil
}

func (e *Evaluator) evalDateLiteral(n *ast.Node) (types.Collection, error) {
	text := strings.TrimPrefix(n.Text, "@")
	d, err := types.NewDate(text)
	if err != nil {
		return nil, ParseError("invalid date: " + text)
	}
	return types.Collection{d}, nil
}

func (e *Evaluator) evalDateTimeLiteral(n *ast.Node) (types.Collection, error) {
	text := strings.TrimPrefix(n.Text, "@")
	dt, err := types.NewDateTime(text)
	if err != nil {
		return nil, ParseError("invalid datetime: " + text)
	}
	return types.Collection{dt}, nil
}

func (e *Evaluator) evalTimeLiteral(n *ast.Node) (types.Collection, error) {
	text := strings.TrimPrefix(n.Text, "@")
	t, err := types.NewTime(text)
	if err != nil {
		return nil, ParseError("invalid time: " + text)
	}
	return types.Collection{t}, nil
}

func (e *Evaluator) evalExternalConstant(n *ast.Node) (types.Collection, error) {
	text := strings.TrimPrefix(n.Text, "%")
	var name string
	switch {
	case strings.HasPrefix(text, "`"):
		name = unbacktick(text)
	case strings.HasPrefix(text, "'"):
		name = unquoteString(text)
	default:
		name = text
	}
	if value, ok := e.ctx.GetVariable(name); ok {
		return value, nil
	}
	return nil, NewEvalError(ErrInvalidPath, "undefined variable: %"+name)
}

// evalFunctionCall evaluates a bare function call (no preceding `.`),
// implicitly operating on $this.
func (e *Evaluator) evalFunctionCall(n *ast.Node) (types.Collection, error) {
	return e.callFunction(n, e.ctx.This())
}

// callFunction looks up and invokes the function named by n (a
// KindFunctionCall node) against the given input collection, special
// casing the functions that require lazy, per-element evaluation of
// their argument expressions (where/exists/all/select/repeat/is/as/
// ofType/iif) before falling through to generic eager-argument dispatch.
func (e *Evaluator) callFunction(n *ast.Node, input types.Collection) (types.Collection, error) {
	name := n.Text
	fn, ok := e.funcs.Get(name)
	if !ok {
		return nil, FunctionNotFoundError(name)
	}

	argExprs := n.Children
	argCount := len(argExprs)

	if argCount < fn.MinArgs {
		return nil, InvalidArgumentsError(name, fn.MinArgs, argCount)
	}
	if fn.MaxArgs >= 0 && argCount > fn.MaxArgs {
		return nil, InvalidArgumentsError(name, fn.MaxArgs, argCount)
	}

	switch name {
	case "where":
		if argCount > 0 {
			return e.evaluateWhere(input, argExprs[0])
		}
	case "exists":
		if argCount > 0 {
			return e.evaluateExists(input, argExprs[0])
		}
	case "all":
		if argCount > 0 {
			return e.evaluateAll(input, argExprs[0])
		}
	case "select":
		if argCount > 0 {
			return e.evaluateSelect(input, argExprs[0])
		}
	case "repeat":
		if argCount > 0 {
			return e.evaluateRepeat(input, argExprs[0])
		}
	case "is":
		if argCount > 0 {
			return e.evaluateIsFunction(input, argExprs[0])
		}
	case "as":
		if argCount > 0 {
			return e.evaluateAsFunction(input, argExprs[0])
		}
	case "ofType":
		if argCount > 0 {
			return e.evaluateOfType(input, argExprs[0])
		}
	case "iif":
		if argCount >= 2 {
			return e.evaluateIif(argExprs)
		}
	}

	args := make([]interface{}, argCount)
	for i, argExpr := range argExprs {
		result, err := e.Eval(argExpr)
		if err != nil {
			return nil, err
		}
		args[i] = result
	}

	return e.funcs.Invoke(e.ctx, name, input, args)
}

// withItem runs fn with $this/$index set to the i-th element of input
// (preserving its CanonicalPath when metadata mode is on), restoring the
// prior context afterward. Centralizes the save/restore dance shared by
// evaluateWhere/Exists/All/Select/Repeat.
func (e *Evaluator) withItem(input types.Collection, i int, fn func() (types.Collection, error)) (types.Collection, error) {
	oldCtx := e.ctx
	itemPath := e.itemPath(input, i)
	e.ctx = e.ctx.WithThisAt(types.Collection{input[i]}, itemPath)
	e.ctx = e.ctx.WithIndex(i)
	defer func() { e.ctx = oldCtx }()
	return fn()
}

// itemPath derives the CanonicalPath for input[i]: the item's own path
// if it already carries one (types.WrappedValue, from a prior navigate),
// or the current context path indexed by i otherwise.
func (e *Evaluator) itemPath(input types.Collection, i int) types.CanonicalPath {
	if w, ok := input[i].(types.WrappedValue); ok {
		return w.Path
	}
	if len(input) > 1 {
		return e.ctx.Path().Index(i)
	}
	return e.ctx.Path()
}

// evaluateWhere evaluates the where() function with per-element criteria.
func (e *Evaluator) evaluateWhere(input types.Collection, criteria *ast.Node) (types.Collection, error) {
	result := types.Collection{}
	if err := e.ctx.CheckCollectionSize(input); err != nil {
		return nil, err
	}
	for i := range input {
		if i%100 == 0 {
			if err := e.ctx.CheckCancellation(); err != nil {
				return nil, err
			}
		}
		criteriaResult, err := e.withItem(input, i, func() (types.Collection, error) { return e.Eval(criteria) })
		if err != nil {
			return nil, err
		}
		if !criteriaResult.Empty() {
			if b, ok := types.Unwrap(criteriaResult[0]).(types.Boolean); ok && b.Bool() {
				result = append(result, input[i])
			}
		}
	}
	return result, nil
}

// evaluateExists evaluates exists() with optional criteria.
func (e *Evaluator) evaluateExists(input types.Collection, criteria *ast.Node) (types.Collection, error) {
	for i := range input {
		if i%100 == 0 {
			if err := e.ctx.CheckCancellation(); err != nil {
				return nil, err
			}
		}
		criteriaResult, err := e.withItem(input, i, func() (types.Collection, error) { return e.Eval(criteria) })
		if err != nil {
			return nil, err
		}
		if !criteriaResult.Empty() {
			if b, ok := types.Unwrap(criteriaResult[0]).(types.Boolean); ok && b.Bool() {
				return types.Collection{types.NewBoolean(true)}, nil
			}
		}
	}
	return types.Collection{types.NewBoolean(false)}, nil
}

// evaluateAll evaluates all() - returns true if all elements match criteria.
func (e *Evaluator) evaluateAll(input types.Collection, criteria *ast.Node) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{types.NewBoolean(true)}, nil
	}
	for i := range input {
		if i%100 == 0 {
			if err := e.ctx.CheckCancellation(); err != nil {
				return nil, err
			}
		}
		criteriaResult, err := e.withItem(input, i, func() (types.Collection, error) { return e.Eval(criteria) })
		if err != nil {
			return nil, err
		}
		if criteriaResult.Empty() {
			return types.Collection{types.NewBoolean(false)}, nil
		}
		if b, ok := types.Unwrap(criteriaResult[0]).(types.Boolean); ok && !b.Bool() {
			return types.Collection{types.NewBoolean(false)}, nil
		}
	}
	return types.Collection{types.NewBoolean(true)}, nil
}

// evaluateSelect evaluates select() - projects each element.
func (e *Evaluator) evaluateSelect(input types.Collection, projection *ast.Node) (types.Collection, error) {
	result := types.Collection{}
	if err := e.ctx.CheckCollectionSize(input); err != nil {
		return nil, err
	}
	for i := range input {
		if i%100 == 0 {
			if err := e.ctx.CheckCancellation(); err != nil {
				return nil, err
			}
		}
		projResult, err := e.withItem(input, i, func() (types.Collection, error) { return e.Eval(projection) })
		if err != nil {
			return nil, err
		}
		result = append(result, projResult...)
		if err := e.ctx.CheckCollectionSize(result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// evaluateRepeat evaluates repeat() - repeatedly applies projection,
// accumulating results over the transitive closure until no new
// elements appear, per FHIRPath's repeat() semantics (unlike select(),
// which projects exactly once).
func (e *Evaluator) evaluateRepeat(input types.Collection, projection *ast.Node) (types.Collection, error) {
	seen := map[string]bool{}
	result := types.Collection{}
	frontier := input
	for len(frontier) > 0 {
		if err := e.ctx.CheckCancellation(); err != nil {
			return nil, err
		}
		next := types.Collection{}
		for i := range frontier {
			projResult, err := e.withItem(frontier, i, func() (types.Collection, error) { return e.Eval(projection) })
			if err != nil {
				return nil, err
			}
			for _, v := range projResult {
				key := types.Unwrap(v).Type() + ":" + types.Unwrap(v).String()
				if seen[key] {
					continue
				}
				seen[key] = true
				result = append(result, v)
				next = append(next, v)
			}
		}
		if err := e.ctx.CheckCollectionSize(result); err != nil {
			return nil, err
		}
		frontier = next
	}
	return result, nil
}

// evaluateIsFunction evaluates is() function - checks if input is of specified type.
func (e *Evaluator) evaluateIsFunction(input types.Collection, typeExpr *ast.Node) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}
	if len(input) != 1 {
		return nil, SingletonError(len(input))
	}
	typeName := extractTypeName(typeExpr)
	if typeName == "" {
		return nil, InvalidArgumentsError("is", 1, 0)
	}
	actualType := types.Unwrap(input[0]).Type()
	return types.Collection{types.NewBoolean(e.resolver.IsOfType(actualType, typeName))}, nil
}

// evaluateAsFunction evaluates as() function - casts input to specified type.
func (e *Evaluator) evaluateAsFunction(input types.Collection, typeExpr *ast.Node) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}
	if len(input) != 1 {
		return nil, SingletonError(len(input))
	}
	typeName := extractTypeName(typeExpr)
	if typeName == "" {
		return nil, InvalidArgumentsError("as", 1, 0)
	}
	actualType := types.Unwrap(input[0]).Type()
	if e.resolver.IsOfType(actualType, typeName) {
		return input, nil
	}
	return types.Collection{}, nil
}

// extractTypeName extracts a type name from a FHIRPath type-specifier
// expression. For a hand-written ast.Node this is always a bare (or
// dotted) KindIdentifier/KindInvocationExpression chain; reconstructing
// its dotted text covers both forms the grammar allows (Patient,
// FHIR.Patient).
func extractTypeName(expr *ast.Node) string {
	if expr == nil {
		return ""
	}
	if expr.Kind == ast.KindIdentifier {
		return expr.Text
	}
	if expr.Kind == ast.KindInvocationExpression {
		left := extractTypeName(expr.Operand(0))
		right := extractTypeName(expr.Operand(1))
		if left == "" {
			return right
		}
		return left + "." + right
	}
	return expr.Text
}

// evaluateOfType evaluates ofType() function - filters collection by type.
func (e *Evaluator) evaluateOfType(input types.Collection, typeExpr *ast.Node) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}
	typeName := extractTypeName(typeExpr)
	if typeName == "" {
		return nil, InvalidArgumentsError("ofType", 1, 0)
	}
	result := types.Collection{}
	for _, item := range input {
		if e.resolver.IsOfType(types.Unwrap(item).Type(), typeName) {
			result = append(result, item)
		}
	}
	return result, nil
}

// evaluateIif evaluates the iif() function with lazy evaluation.
// Only the matching branch is evaluated, preventing errors from the
// other branch. Signature: iif(criterion, true-result [, otherwise-result])
func (e *Evaluator) evaluateIif(argExprs []*ast.Node) (types.Collection, error) {
	if len(argExprs) < 2 {
		return nil, InvalidArgumentsError("iif", 2, len(argExprs))
	}
	criterionResult, err := e.Eval(argExprs[0])
	if err != nil {
		return nil, err
	}
	criterion := false
	if !criterionResult.Empty() {
		if b, ok := types.Unwrap(criterionResult[0]).(types.Boolean); ok {
			criterion = b.Bool()
		}
	}
	if criterion {
		return e.Eval(argExprs[1])
	}
	if len(argExprs) > 2 {
		return e.Eval(argExprs[2])
	}
	return types.Collection{}, nil
}

// evalInvocationExpression evaluates expr.invocation, threading the
// evaluated base as the new $this for the right-hand invocation.
func (e *Evaluator) evalInvocationExpression(n *ast.Node) (types.Collection, error) {
	base, err := e.Eval(n.Operand(0))
	if err != nil {
		return nil, err
	}
	oldCtx := e.ctx
	e.ctx = e.ctx.WithThisAt(base, e.basePath(base))
	defer func() { e.ctx = oldCtx }()

	inv := n.Operand(1)
	if inv.Kind == ast.KindFunctionCall {
		return e.callFunction(inv, base)
	}
	return e.Eval(inv)
}

// basePath derives the CanonicalPath to report as the new $this's
// location: the shared path of its elements when they already carry one
// (WrappedValue, from navigateMember), or the context's current path
// otherwise (e.g. for a literal or function-call base).
func (e *Evaluator) basePath(base types.Collection) types.CanonicalPath {
	if len(base) > 0 {
		if w, ok := base[0].(types.WrappedValue); ok {
			return w.Path
		}
	}
	return e.ctx.Path()
}

// evalIndexerExpression evaluates expr[index].
func (e *Evaluator) evalIndexerExpression(n *ast.Node) (types.Collection, error) {
	base, err := e.Eval(n.Operand(0))
	if err != nil {
		return nil, err
	}
	idxCol, err := e.Eval(n.Operand(1))
	if err != nil {
		return nil, err
	}
	if idxCol.Empty() {
		return types.Collection{}, nil
	}
	idx, ok := types.Unwrap(idxCol[0]).(types.Integer)
	if !ok {
		return nil, TypeError("Integer", idxCol[0].Type(), "indexer")
	}
	i := int(idx.Value())
	if i < 0 || i >= len(base) {
		return types.Collection{}, nil
	}
	return types.Collection{base[i]}, nil
}

func (e *Evaluator) evalPolarity(n *ast.Node) (types.Collection, error) {
	col, err := e.Eval(n.Operand(0))
	if err != nil {
		return nil, err
	}
	if col.Empty() {
		return col, nil
	}
	if len(col) != 1 {
		return nil, SingletonError(len(col))
	}
	if n.Text == "-" {
		negated, err := Negate(types.Unwrap(col[0]))
		if err != nil {
			return nil, err
		}
		return types.Collection{negated}, nil
	}
	return col, nil
}

func (e *Evaluator) evalMultiplicative(n *ast.Node) (types.Collection, error) {
	leftCol, rightCol, empty, err := e.evalBinaryOperands(n)
	if err != nil || empty {
		return types.Collection{}, err
	}
	if len(leftCol) != 1 || len(rightCol) != 1 {
		return nil, SingletonError(len(leftCol) + len(rightCol))
	}
	l, r := types.Unwrap(leftCol[0]), types.Unwrap(rightCol[0])
	var result types.Value
	switch n.Text {
	case "*":
		result, err = Multiply(l, r)
	case "/":
		result, err = Divide(l, r)
	case "div":
		result, err = IntegerDivide(l, r)
	case "mod":
		result, err = Modulo(l, r)
	}
	if err != nil {
		// A zero divisor for /, div or mod yields Empty, not an error.
		if n.Text != "*" {
			switch d := r.(type) {
			case types.Integer:
				if d.Value() == 0 {
					return types.Collection{}, nil
				}
			case types.Decimal:
				if d.Value().IsZero() {
					return types.Collection{}, nil
				}
			}
		}
		return nil, err
	}
	return types.Collection{result}, nil
}

func (e *Evaluator) evalAdditive(n *ast.Node) (types.Collection, error) {
	left, err := e.Eval(n.Operand(0))
	if err != nil {
		return nil, err
	}
	right, err := e.Eval(n.Operand(1))
	if err != nil {
		return nil, err
	}
	leftCol, rightCol := types.UnwrapCollection(left), types.UnwrapCollection(right)

	if n.Text == "&" {
		return Concatenate(leftCol, rightCol), nil
	}
	if leftCol.Empty() || rightCol.Empty() {
		return types.Collection{}, nil
	}
	if len(leftCol) != 1 || len(rightCol) != 1 {
		return nil, SingletonError(len(leftCol) + len(rightCol))
	}
	var result types.Value
	switch n.Text {
	case "+":
		result, err = Add(leftCol[0], rightCol[0])
	case "-":
		result, err = Subtract(leftCol[0], rightCol[0])
	}
	if err != nil {
		return nil, err
	}
	return types.Collection{result}, nil
}

func (e *Evaluator) evalUnion(n *ast.Node) (types.Collection, error) {
	left, err := e.Eval(n.Operand(0))
	if err != nil {
		return nil, err
	}
	right, err := e.Eval(n.Operand(1))
	if err != nil {
		return nil, err
	}
	return Union(types.UnwrapCollection(left), types.UnwrapCollection(right)), nil
}

func (e *Evaluator) evalInequality(n *ast.Node) (types.Collection, error) {
	leftCol, rightCol, empty, err := e.evalBinaryOperands(n)
	if err != nil || empty {
		return types.Collection{}, err
	}
	if len(leftCol) != 1 || len(rightCol) != 1 {
		return nil, SingletonError(len(leftCol) + len(rightCol))
	}
	l, r := leftCol[0], rightCol[0]
	switch n.Text {
	case "<":
		return LessThan(l, r)
	case "<=":
		return LessOrEqual(l, r)
	case ">":
		return GreaterThan(l, r)
	case ">=":
		return GreaterOrEqual(l, r)
	default:
		return types.Collection{}, nil
	}
}

func (e *Evaluator) evalEquality(n *ast.Node) (types.Collection, error) {
	left, err := e.Eval(n.Operand(0))
	if err != nil {
		return nil, err
	}
	right, err := e.Eval(n.Operand(1))
	if err != nil {
		return nil, err
	}
	leftCol, rightCol := types.UnwrapCollection(left), types.UnwrapCollection(right)
	switch n.Text {
	case "=":
		return Equal(leftCol, rightCol), nil
	case "!=":
		return NotEqual(leftCol, rightCol), nil
	case "~":
		return Equivalent(leftCol, rightCol), nil
	case "!~":
		return NotEquivalent(leftCol, rightCol), nil
	}
	return types.Collection{}, nil
}

func (e *Evaluator) evalMembership(n *ast.Node) (types.Collection, error) {
	left, err := e.Eval(n.Operand(0))
	if err != nil {
		return nil, err
	}
	right, err := e.Eval(n.Operand(1))
	if err != nil {
		return nil, err
	}
	leftCol, rightCol := types.UnwrapCollection(left), types.UnwrapCollection(right)
	switch n.Text {
	case "in":
		return In(leftCol, rightCol), nil
	case "contains":
		return Contains(leftCol, rightCol), nil
	}
	return types.Collection{}, nil
}

func (e *Evaluator) evalOrXor(n *ast.Node) (types.Collection, error) {
	left, err := e.Eval(n.Operand(0))
	if err != nil {
		return nil, err
	}
	right, err := e.Eval(n.Operand(1))
	if err != nil {
		return nil, err
	}
	leftCol, rightCol := types.UnwrapCollection(left), types.UnwrapCollection(right)
	switch n.Text {
	case "or":
		return Or(leftCol, rightCol), nil
	case "xor":
		return Xor(leftCol, rightCol), nil
	}
	return types.Collection{}, nil
}

func (e *Evaluator) evalTypeExpression(n *ast.Node) (types.Collection, error) {
	left, err := e.Eval(n.Operand(0))
	if err != nil {
		return nil, err
	}
	leftCol := types.UnwrapCollection(left)
	typeName := n.Operand(1).Text

	if leftCol.Empty() {
		return types.Collection{}, nil
	}
	if len(leftCol) != 1 {
		return nil, SingletonError(len(leftCol))
	}
	actualType := leftCol[0].Type()
	switch n.Text {
	case "is":
		return types.Collection{types.NewBoolean(e.resolver.IsOfType(actualType, typeName))}, nil
	case "as":
		if e.resolver.IsOfType(actualType, typeName) {
			return leftCol, nil
		}
		return types.Collection{}, nil
	}
	return types.Collection{}, nil
}

// evalBinaryOperands evaluates both operands of a binary node and
// reports whether either side is empty (the common "empty propagates"
// rule shared by multiplicative/additive/inequality expressions).
func (e *Evaluator) evalBinaryOperands(n *ast.Node) (left, right types.Collection, empty bool, err error) {
	l, err := e.Eval(n.Operand(0))
	if err != nil {
		return nil, nil, false, err
	}
	r, err := e.Eval(n.Operand(1))
	if err != nil {
		return nil, nil, false, err
	}
	left, right = types.UnwrapCollection(l), types.UnwrapCollection(r)
	return left, right, left.Empty() || right.Empty(), nil
}

// navigateMember navigates to a member of objects in the collection.
// Supports FHIR polymorphic elements (value[x] pattern) by automatically
// resolving element names like "value" to their typed variants. When
// the context has metadata mode on, each result is wrapped in a
// types.WrappedValue carrying the CanonicalPath it navigated through.
func (e *Evaluator) navigateMember(input types.Collection, basePath types.CanonicalPath, name string) types.Collection {
	result := types.Collection{}

	for _, rawItem := range input {
		item := types.Unwrap(rawItem)
		obj, ok := item.(*types.ObjectValue)
		if !ok {
			continue
		}

		if model.IsSubtypeOf(obj.Type(), name) {
			result = append(result, e.wrapNavigated(obj, basePath, name, -1))
			continue
		}

		children := obj.GetCollection(name)
		if len(children) > 0 {
			for i, child := range children {
				idx := i
				if len(children) == 1 {
					idx = -1
				}
				result = append(result, e.wrapNavigated(child, basePath, name, idx))
			}
			continue
		}

		polymorphicChildren := e.resolvePolymorphicField(obj, name)
		for i, child := range polymorphicChildren {
			idx := i
			if len(polymorphicChildren) == 1 {
				idx = -1
			}
			result = append(result, e.wrapNavigated(child, basePath, name, idx))
		}
	}

	return result
}

func (e *Evaluator) wrapNavigated(v types.Value, basePath types.CanonicalPath, property string, index int) types.Value {
	if !e.ctx.MetadataEnabled() {
		return v
	}
	p := basePath.Property(property)
	if index >= 0 {
		p = p.Index(index)
	}
	return types.WrappedValue{Value: v, FHIRType: v.Type(), Path: p}
}

// resolvePolymorphicField attempts to resolve a polymorphic FHIR element.
// For example, accessing "value" will search for "valueQuantity", "valueString", etc.
// Tries the configured model.Provider (via typeresolve.Resolver) first for
// the concrete suffix this resource type actually declares; a
// provider-backed answer skips straight to the one matching field instead
// of probing every possible suffix against the instance data.
func (e *Evaluator) resolvePolymorphicField(obj *types.ObjectValue, name string) types.Collection {
	if suffix, ok, err := e.resolver.ResolveChoiceType(e.ctx.Context(), obj.Type(), name); err == nil && ok {
		if children := obj.GetCollection(name + suffix); len(children) > 0 {
			return append(types.Collection{}, children...)
		}
	}

	result := types.Collection{}
	for _, suffix := range model.PolymorphicTypeSuffixes {
		fieldName := name + suffix
		children := obj.GetCollection(fieldName)
		if len(children) > 0 {
			result = append(result, children...)
			return result
		}
	}
	return result
}

// unquoteString removes quotes and handles escape sequences.
func unquoteString(s string) string {
	if len(s) < 2 {
		return s
	}
	s = s[1 : len(s)-1]
	s = strings.ReplaceAll(s, "\\'", "'")
	s = strings.ReplaceAll(s, "\\\\", "\\")
	s = strings.ReplaceAll(s, "\\n", "\n")
	s = strings.ReplaceAll(s, "\\r", "\r")
	s = strings.ReplaceAll(s, "\\t", "\t")
	return s
}

// stripBackticks removes backtick delimiters from delimited identifiers.
// FHIRPath allows backticks for identifiers with special characters: `PID-1`
func stripBackticks(s string) string {
	return unbacktick(s)
}

func unbacktick(s string) string {
	if len(s) >= 2 && s[0] == '`' && s[len(s)-1] == '`' {
		return s[1 : len(s)-1]
	}
	return s
}
