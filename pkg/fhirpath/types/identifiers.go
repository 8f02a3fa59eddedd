package types

// Identifier wraps String for the FHIR primitive types whose FHIRPath
// System type is String but whose FHIR type name must survive for
// type()/is/as/ofType reflection: Uri, Url, Canonical, Id, Oid, Uuid,
// Base64Binary, Markdown, Code. Equal/Equivalent/Compare
// all defer to the wrapped String so comparisons between e.g. a Url and
// a plain String keep working; only Type() differs.
type Identifier struct {
	String
	fhirType string
}

func newIdentifier(fhirType, value string) Identifier {
	return Identifier{String: NewString(value), fhirType: fhirType}
}

// NewUri constructs a FHIR uri-typed value.
func NewUri(value string) Identifier { return newIdentifier("uri", value) }

// NewUrl constructs a FHIR url-typed value.
func NewUrl(value string) Identifier { return newIdentifier("url", value) }

// NewCanonicalURI constructs a FHIR canonical-typed value.
func NewCanonicalURI(value string) Identifier { return newIdentifier("canonical", value) }

// NewId constructs a FHIR id-typed value.
func NewId(value string) Identifier { return newIdentifier("id", value) }

// NewOid constructs a FHIR oid-typed value.
func NewOid(value string) Identifier { return newIdentifier("oid", value) }

// NewUuid constructs a FHIR uuid-typed value.
func NewUuid(value string) Identifier { return newIdentifier("uuid", value) }

// NewCode constructs a FHIR code-typed value.
func NewCode(value string) Identifier { return newIdentifier("code", value) }

// NewMarkdown constructs a FHIR markdown-typed value.
func NewMarkdown(value string) Identifier { return newIdentifier("markdown", value) }

// NewBase64Binary constructs a FHIR base64Binary-typed value. Validity of
// the base64 payload is a FHIR-level structural concern, not a FHIRPath
// value-algebra one, so it is not checked here.
func NewBase64Binary(value string) Identifier { return newIdentifier("base64Binary", value) }

// Type reports the FHIR-specific type name rather than "String", so
// type()/is/ofType can distinguish e.g. Uri from plain String while
// string-family operations keep working unchanged.
func (i Identifier) Type() string { return i.fhirType }

// FHIRType exposes the wrapped FHIR primitive name directly.
func (i Identifier) FHIRType() string { return i.fhirType }

func (i Identifier) Equal(other Value) bool {
	if o, ok := other.(Identifier); ok {
		return i.String.Equal(o.String)
	}
	return i.String.Equal(other)
}

func (i Identifier) Equivalent(other Value) bool {
	if o, ok := other.(Identifier); ok {
		return i.String.Equivalent(o.String)
	}
	return i.String.Equivalent(other)
}
