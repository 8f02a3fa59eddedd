// Package model defines the ModelProvider contract FHIRPath evaluation
// consults for type reflection, property navigation validation, and
// choice-type (value[x]) resolution. It also ships model.Builtin, a
// provider with no external schema that answers from plain type-matching
// heuristics (kept in this package rather than eval to avoid an
// eval<->typeresolve import cycle).
package model

import "context"

// SimpleType names a FHIRPath/System primitive type (Boolean, String,
// Integer, Decimal, Date, DateTime, Time, Quantity).
type SimpleType struct {
	Name      string
	Namespace string // "System" or "FHIR"
}

// ListType describes a property that yields a collection of Of.
type ListType struct {
	Of ClassInfo
}

// TupleElement is one named, typed member of a TupleType.
type TupleElement struct {
	Name     string
	Type     ClassInfo
	MinCard  int
	MaxCard  int // -1 means unbounded
}

// TupleType describes an anonymous structural type (e.g. the result of
// a backbone element) made up of named elements.
type TupleType struct {
	Elements []TupleElement
}

// ClassInfo identifies a named, navigable type: a FHIR resource or
// complex type, or a System primitive.
type ClassInfo struct {
	Name      string
	Namespace string // "FHIR" or "System"
	BaseType  string // e.g. "DomainResource", "" if none
}

// TypeReflection is the result of resolving a type name or a value's
// runtime type to structural information. Exactly one of Simple/List/
// Tuple/Class is populated, mirroring FHIRPath's type() reflection.
type TypeReflection struct {
	Simple *SimpleType
	List   *ListType
	Tuple  *TupleType
	Class  *ClassInfo
}

// Provider is the external schema oracle FHIRPath evaluation consults
// for anything beyond pure value-algebra operations. All methods take a
// context so a real implementation (backed by a StructureDefinition
// store, a network call, or a generated registry) can be canceled or
// time-bounded; model.Builtin's implementations complete synchronously
// and ignore ctx cancellation since they do no I/O.
type Provider interface {
	// TypeReflection resolves typeName (possibly namespaced, e.g.
	// "FHIR.Patient") to structural type information.
	TypeReflection(ctx context.Context, typeName string) (TypeReflection, error)

	// PropertyType resolves the type of navigating from baseType via
	// property. Returns ok=false if the property is not defined on
	// baseType.
	PropertyType(ctx context.Context, baseType, property string) (ClassInfo, bool, error)

	// ResolveChoiceType resolves a FHIR choice element name (e.g.
	// "value" on Observation) to the concrete type suffix that is
	// actually present for a given resource type, e.g. "Quantity" for
	// "valueQuantity". Returns ok=false if baseType/property is not a
	// recognized choice element.
	ResolveChoiceType(ctx context.Context, baseType, property string) (suffix string, ok bool, err error)

	// ValidateNavigationPath checks whether navigating fullPath (a
	// dotted path rooted at a resource type, e.g. "Patient.name.given")
	// is structurally valid. Returns a human-readable reason when not.
	ValidateNavigationPath(ctx context.Context, fullPath string) (valid bool, reason string, err error)

	// IsResourceType reports whether typeName names a FHIR resource
	// type (as opposed to a complex type or primitive).
	IsResourceType(ctx context.Context, typeName string) (bool, error)

	// IsPrimitiveType reports whether typeName names a FHIR or System
	// primitive type.
	IsPrimitiveType(ctx context.Context, typeName string) (bool, error)
}
