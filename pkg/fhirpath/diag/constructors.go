package diag

// Constructors mirror eval.ParseError/TypeError/...'s helper shape, but
// return code-stable *Diagnostic values instead of untyped *EvalError.

// UnexpectedToken reports a lexer/parser token mismatch.
func UnexpectedToken(got, want string) *Diagnostic {
	return New(CodeUnexpectedToken, "unexpected token %q, expected %s", got, want)
}

// UnterminatedString reports a string literal missing its closing quote.
func UnterminatedString() *Diagnostic {
	return New(CodeUnterminatedString, "unterminated string literal")
}

// InvalidNumber reports a malformed numeric literal.
func InvalidNumber(text string) *Diagnostic {
	return New(CodeInvalidNumber, "invalid number literal %q", text)
}

// InvalidDateTime reports a malformed date/time/datetime literal.
func InvalidDateTime(text string) *Diagnostic {
	return New(CodeInvalidDateTime, "invalid date/time literal %q", text)
}

// InvalidQuantity reports a malformed quantity literal.
func InvalidQuantity(text string) *Diagnostic {
	return New(CodeInvalidQuantity, "invalid quantity literal %q", text)
}

// UnexpectedEOF reports the input ending mid-expression.
func UnexpectedEOF(want string) *Diagnostic {
	return New(CodeUnexpectedEOF, "unexpected end of expression, expected %s", want)
}

// ExpectedExpression reports a position where an expression was required.
func ExpectedExpression(got string) *Diagnostic {
	return New(CodeExpectedExpression, "expected expression, found %q", got)
}

// TypeMismatch reports an operator/function type mismatch.
func TypeMismatch(expected, actual, operation string) *Diagnostic {
	return New(CodeTypeMismatch, "expected %s, got %s in %s", expected, actual, operation)
}

// UnknownType reports a type name the ModelProvider could not resolve.
func UnknownType(name string) *Diagnostic {
	return New(CodeUnknownType, "unknown type %q", name)
}

// AmbiguousChoice reports a choice-type (value[x]) property with more
// than one plausible resolution.
func AmbiguousChoice(property string, candidates []string) *Diagnostic {
	return New(CodeAmbiguousChoice, "ambiguous choice property %q: candidates %v", property, candidates)
}

// UnknownProperty reports a navigation step the ModelProvider rejected,
// optionally carrying a did-you-mean suggestion.
func UnknownProperty(typeName, property, suggestion string) *Diagnostic {
	if suggestion != "" {
		return New(CodeUnknownProperty, "unknown property %q on type %s (did you mean %q?)", property, typeName, suggestion)
	}
	return New(CodeUnknownProperty, "unknown property %q on type %s", property, typeName)
}

// SingletonExpected reports an operation that requires a single-element
// collection receiving a different count.
func SingletonExpected(count int) *Diagnostic {
	return New(CodeSingletonExpected, "expected single value, got %d elements", count)
}

// FunctionNotFound reports a call to an unregistered function.
func FunctionNotFound(name string) *Diagnostic {
	return New(CodeFunctionNotFound, "unknown function %q", name)
}

// InvalidArguments reports an arity mismatch on a function call.
func InvalidArguments(funcName string, expected, actual int) *Diagnostic {
	return New(CodeInvalidArguments, "function %q expects %d arguments, got %d", funcName, expected, actual)
}

// DivisionByZero reports a division/modulo by zero (informational; the
// evaluator itself returns Empty per FHIRPath semantics, see Evaluator).
func DivisionByZero() *Diagnostic {
	return New(CodeDivisionByZero, "division by zero").WithSeverity(SeverityWarning)
}

// InvalidOperation reports an operator applied to incompatible operand
// types.
func InvalidOperation(op, leftType, rightType string) *Diagnostic {
	return New(CodeInvalidOperation, "cannot apply %q to %s and %s", op, leftType, rightType)
}

// IncompatibleUnits reports arithmetic or comparison between two
// Quantity values whose units UCUM normalization could not reconcile.
// Numbered within the evaluation code range but carries KindType: per
// spec §8 boundary behavior this surfaces as a real diagnostic rather
// than propagating as Empty the way most evaluation failures do.
func IncompatibleUnits(leftUnit, rightUnit string) *Diagnostic {
	return New(CodeIncompatibleUnits, "incompatible units: %s and %s", leftUnit, rightUnit).WithKind(KindType)
}

// InvalidPath reports a structurally invalid navigation path.
func InvalidPath(path string) *Diagnostic {
	return New(CodeInvalidPath, "invalid path %q", path)
}

// CollectionTooLarge reports a collection exceeding a configured limit.
func CollectionTooLarge(size, limit int) *Diagnostic {
	return New(CodeCollectionTooLarge, "collection size %d exceeds maximum allowed %d", size, limit)
}

// MaxDepthExceeded reports descendants()/recursive navigation exceeding
// the configured recursion depth.
func MaxDepthExceeded(limit int) *Diagnostic {
	return New(CodeMaxDepthExceeded, "maximum recursion depth %d exceeded", limit)
}

// UndefinedVariable reports a reference to an unset %variable.
func UndefinedVariable(name string) *Diagnostic {
	return New(CodeUndefinedVariable, "undefined variable %%%s", name)
}

// ProviderUnavailable reports a ModelProvider call that failed to
// complete (e.g. the provider's context was canceled).
func ProviderUnavailable(reason string) *Diagnostic {
	return New(CodeProviderUnavailable, "model provider unavailable: %s", reason)
}

// ResolveFailed reports a resolve() reference that could not be fetched.
// Carries KindResource rather than the provider-range default: the
// provider itself answered fine, it's the referenced resource that's
// missing.
func ResolveFailed(reference string, cause error) *Diagnostic {
	return New(CodeResolveFailed, "failed to resolve reference %q", reference).WithKind(KindResource).WithCause(cause)
}

// Canceled reports evaluation stopped due to context cancellation.
// Carries KindCancellation so Kind.Fatal() reports true: a canceled
// evaluation must always surface, never silently propagate as Empty.
func Canceled(cause error) *Diagnostic {
	return New(CodeCanceled, "evaluation canceled").WithKind(KindCancellation).WithCause(cause)
}

// Timeout reports evaluation stopped due to exceeding its deadline.
// Carries KindCancellation for the same always-surface reason as
// Canceled.
func Timeout() *Diagnostic {
	return New(CodeTimeout, "evaluation timed out").WithKind(KindCancellation)
}

// Internal reports an engine invariant violation — a code path the
// implementation believes is unreachable (e.g. an AST node kind with no
// eval* handler). Always Kind.Fatal().
func Internal(cause error) *Diagnostic {
	return New(CodeInternal, "internal error: %s", cause.Error()).WithKind(KindInternal).WithCause(cause)
}
