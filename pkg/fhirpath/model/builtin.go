package model

import (
	"context"
	"strings"
)

// Builtin is the zero-configuration Provider that eval.NewEvaluator uses
// unless another Provider is set with WithProvider. It answers from FHIR type-hierarchy
// and value[x] heuristics (IsSubtypeOf/TypeMatches/
// PolymorphicTypeSuffixes) exposed as a real Provider so typeresolve and
// eval share one implementation instead of two copies.
type Builtin struct{}

// NewBuiltin constructs the default, schema-free Provider.
func NewBuiltin() *Builtin {
	return &Builtin{}
}

// nonDomainResources are FHIR resources that inherit directly from
// Resource rather than DomainResource.
var nonDomainResources = map[string]bool{
	"Bundle": true, "Binary": true, "Parameters": true,
}

var primitiveTypes = map[string]bool{
	"Boolean": true, "String": true, "Integer": true, "Decimal": true,
	"Date": true, "DateTime": true, "Time": true, "Quantity": true,
	"Object": true,
}

// fhirToFHIRPath maps lowercase FHIR primitive type names to their
// FHIRPath System type.
var fhirToFHIRPath = map[string]string{
	"boolean": "Boolean", "string": "String", "integer": "Integer",
	"decimal": "Decimal", "date": "Date", "datetime": "DateTime",
	"time": "Time", "instant": "DateTime", "uri": "String", "url": "String",
	"canonical": "String", "base64binary": "String", "code": "String",
	"id": "String", "markdown": "String", "oid": "String", "uuid": "String",
	"positiveint": "Integer", "unsignedint": "Integer", "integer64": "Integer",
	"quantity": "Quantity", "simplequantity": "Quantity", "age": "Quantity",
	"count": "Quantity", "distance": "Quantity", "duration": "Quantity",
	"money": "Quantity",
}

// PolymorphicTypeSuffixes lists FHIR type suffixes used to resolve
// choice (value[x]) element names, e.g. "value" -> "valueQuantity".
var PolymorphicTypeSuffixes = []string{
	"Boolean", "Integer", "Integer64", "Decimal", "String", "Code", "Id", "Uri", "Url", "Canonical",
	"Base64Binary", "Instant", "Date", "DateTime", "Time", "Oid", "Uuid", "Markdown", "PositiveInt", "UnsignedInt",
	"Quantity", "CodeableConcept", "Coding", "Range", "Period", "Ratio", "RatioRange",
	"Identifier", "Reference", "Attachment", "HumanName", "Address", "ContactPoint",
	"Timing", "Signature", "Annotation", "SampledData", "Age", "Distance", "Duration",
	"Count", "Money", "MoneyQuantity", "SimpleQuantity",
	"Meta", "Dosage", "ContactDetail", "Contributor", "DataRequirement", "Expression",
	"ParameterDefinition", "RelatedArtifact", "TriggerDefinition", "UsageContext",
}

// isPossibleResourceType reports whether typeName looks like a FHIR
// resource type: PascalCase and not a recognized primitive.
func isPossibleResourceType(typeName string) bool {
	if typeName == "" || primitiveTypes[typeName] {
		return false
	}
	return typeName[0] >= 'A' && typeName[0] <= 'Z'
}

// IsDomainResource reports whether resourceType inherits from
// DomainResource (true for all resources except Bundle/Binary/Parameters).
func IsDomainResource(resourceType string) bool {
	return !nonDomainResources[resourceType]
}

// IsSubtypeOf reports whether actualType is actualType itself or a
// known subtype of baseType, handling the Resource/DomainResource base
// types FHIR resources implicitly inherit from.
func IsSubtypeOf(actualType, baseType string) bool {
	if actualType == baseType || strings.EqualFold(actualType, baseType) {
		return true
	}
	if strings.EqualFold(baseType, "Resource") {
		return isPossibleResourceType(actualType)
	}
	if strings.EqualFold(baseType, "DomainResource") {
		return isPossibleResourceType(actualType) && IsDomainResource(actualType)
	}
	return false
}

// TypeMatches reports whether actualType satisfies a request for
// typeName, handling case-insensitivity, FHIR base-type inheritance,
// FHIR-to-FHIRPath primitive aliasing, and the System./FHIR. namespace
// prefixes.
func TypeMatches(actualType, typeName string) bool {
	if actualType == typeName {
		return true
	}
	actualLower := strings.ToLower(actualType)
	typeNameLower := strings.ToLower(typeName)
	if actualLower == typeNameLower {
		return true
	}
	if IsSubtypeOf(actualType, typeName) {
		return true
	}
	if fhirPathType, ok := fhirToFHIRPath[typeNameLower]; ok && actualType == fhirPathType {
		return true
	}
	if fhirPathType, ok := fhirToFHIRPath[actualLower]; ok && strings.EqualFold(fhirPathType, typeName) {
		return true
	}
	if strings.HasPrefix(typeNameLower, "system.") {
		return strings.EqualFold(actualType, typeName[len("System."):])
	}
	if strings.HasPrefix(typeNameLower, "fhir.") {
		return strings.EqualFold(actualType, typeName[len("FHIR."):])
	}
	return false
}

func (b *Builtin) TypeReflection(_ context.Context, typeName string) (TypeReflection, error) {
	bare := typeName
	namespace := "FHIR"
	if strings.HasPrefix(typeName, "System.") {
		bare = strings.TrimPrefix(typeName, "System.")
		namespace = "System"
	} else if strings.HasPrefix(typeName, "FHIR.") {
		bare = strings.TrimPrefix(typeName, "FHIR.")
	}
	if primitiveTypes[bare] {
		return TypeReflection{Simple: &SimpleType{Name: bare, Namespace: namespace}}, nil
	}
	base := ""
	if isPossibleResourceType(bare) && IsDomainResource(bare) {
		base = "DomainResource"
	} else if isPossibleResourceType(bare) {
		base = "Resource"
	}
	return TypeReflection{Class: &ClassInfo{Name: bare, Namespace: "FHIR", BaseType: base}}, nil
}

// PropertyType has no structural schema to consult in Builtin mode, so
// it always reports "unknown, not an error" — callers fall back to
// structural navigation against the actual JSON instance instead of a
// schema. A real Provider backed by StructureDefinitions overrides this.
func (b *Builtin) PropertyType(_ context.Context, _, _ string) (ClassInfo, bool, error) {
	return ClassInfo{}, false, nil
}

// ResolveChoiceType has no StructureDefinition to consult for which
// value[x] suffix a given resource type actually declares, so it always
// reports ok=false; per DESIGN.md's Open Question #2 decision, eval
// falls back to scanning the instance data against
// PolymorphicTypeSuffixes itself. A schema-backed Provider overrides
// this to resolve statically instead.
func (b *Builtin) ResolveChoiceType(_ context.Context, _, _ string) (string, bool, error) {
	return "", false, nil
}

// ValidateNavigationPath always reports valid=true: Builtin has no
// schema against which to validate, so navigation errors surface lazily
// (as empty results) rather than being rejected up front.
func (b *Builtin) ValidateNavigationPath(_ context.Context, _ string) (bool, string, error) {
	return true, "", nil
}

func (b *Builtin) IsResourceType(_ context.Context, typeName string) (bool, error) {
	for _, dataType := range PolymorphicTypeSuffixes {
		if dataType == typeName {
			return false, nil
		}
	}
	return isPossibleResourceType(typeName), nil
}

func (b *Builtin) IsPrimitiveType(_ context.Context, typeName string) (bool, error) {
	return primitiveTypes[typeName], nil
}
