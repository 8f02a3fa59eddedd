package types

import "fmt"

// TypeInfoObject is the FHIRPath value produced by the type() function:
// a reflection object carrying a namespace-qualified type name and,
// for FHIR complex/resource types, the base type it derives from. It
// implements Value like any other FHIRPath result (ObjectValue-shaped,
// with Namespace/Name/BaseType as its accessible properties) so it can
// flow through is/as/ofType and be projected with .namespace/.name.
type TypeInfoObject struct {
	Namespace string // "System" or "FHIR"
	Name      string
	BaseType  string // namespace-qualified, e.g. "FHIR.DomainResource"; "" if none
}

// NewTypeInfo constructs a TypeInfoObject.
func NewTypeInfo(namespace, name, baseType string) TypeInfoObject {
	return TypeInfoObject{Namespace: namespace, Name: name, BaseType: baseType}
}

func (t TypeInfoObject) Type() string { return "TypeInfo" }

func (t TypeInfoObject) Equal(other Value) bool {
	o, ok := other.(TypeInfoObject)
	if !ok {
		return false
	}
	return t.Namespace == o.Namespace && t.Name == o.Name
}

func (t TypeInfoObject) Equivalent(other Value) bool {
	return t.Equal(other)
}

func (t TypeInfoObject) String() string {
	return t.QualifiedName()
}

func (t TypeInfoObject) IsEmpty() bool {
	return t.Namespace == "" && t.Name == ""
}

// QualifiedName renders the namespace-qualified type name, e.g. "FHIR.Patient".
func (t TypeInfoObject) QualifiedName() string {
	if t.Namespace == "" {
		return t.Name
	}
	return fmt.Sprintf("%s.%s", t.Namespace, t.Name)
}

// Get implements the same structural-property access ObjectValue offers
// (see ObjectValue.Get), so type().namespace and type().name navigate
// without a special case in the evaluator's member-access dispatch.
func (t TypeInfoObject) Get(name string) (Value, bool) {
	switch name {
	case "namespace":
		return NewString(t.Namespace), true
	case "name":
		return NewString(t.Name), true
	case "baseType":
		if t.BaseType == "" {
			return nil, false
		}
		return NewString(t.BaseType), true
	default:
		return nil, false
	}
}
