package types

import "fmt"

// PathSegmentKind identifies the shape of one step in a CanonicalPath.
type PathSegmentKind int

const (
	// SegmentRoot is the path's starting resource/type name.
	SegmentRoot PathSegmentKind = iota
	// SegmentProperty is a named member access, e.g. ".name".
	SegmentProperty
	// SegmentIndex is a positional indexer, e.g. "[0]".
	SegmentIndex
	// SegmentWildcard is an unresolved multi-element step (e.g. inside
	// a where()/select() projection before the index is known).
	SegmentWildcard
)

// PathSegment is one step of a CanonicalPath.
type PathSegment struct {
	Kind  PathSegmentKind
	Name  string // set for SegmentRoot/SegmentProperty
	Index int    // set for SegmentIndex
}

func (s PathSegment) String() string {
	switch s.Kind {
	case SegmentRoot:
		return s.Name
	case SegmentProperty:
		return "." + s.Name
	case SegmentIndex:
		return fmt.Sprintf("[%d]", s.Index)
	default:
		return "[*]"
	}
}

// CanonicalPath is the fully-resolved navigation path that produced a
// value, e.g. Patient.name[0].given[1]. It is carried alongside values
// in metadata-aware evaluation so callers (diagnostics, audit trails,
// FHIRPath's %resource-relative addressing) can report exactly where a
// result came from.
type CanonicalPath struct {
	Segments []PathSegment
}

// NewCanonicalPath starts a path rooted at the given type/resource name.
func NewCanonicalPath(root string) CanonicalPath {
	return CanonicalPath{Segments: []PathSegment{{Kind: SegmentRoot, Name: root}}}
}

// Property returns a new CanonicalPath with a property step appended.
func (p CanonicalPath) Property(name string) CanonicalPath {
	return CanonicalPath{Segments: append(append([]PathSegment{}, p.Segments...), PathSegment{Kind: SegmentProperty, Name: name})}
}

// Index returns a new CanonicalPath with an index step appended.
func (p CanonicalPath) Index(i int) CanonicalPath {
	return CanonicalPath{Segments: append(append([]PathSegment{}, p.Segments...), PathSegment{Kind: SegmentIndex, Index: i})}
}

// Wildcard returns a new CanonicalPath with an unresolved step appended.
func (p CanonicalPath) Wildcard() CanonicalPath {
	return CanonicalPath{Segments: append(append([]PathSegment{}, p.Segments...), PathSegment{Kind: SegmentWildcard})}
}

// String renders the path in dotted/bracketed form, e.g. "Patient.name[0].given".
func (p CanonicalPath) String() string {
	var out string
	for i, seg := range p.Segments {
		if i == 0 {
			out = seg.String()
			continue
		}
		out += seg.String()
	}
	return out
}

// WrappedValue pairs a FHIRPath Value with the navigation metadata a
// bare eval.Context otherwise loses at every step: the FHIR/System type
// name at this position, the enclosing resource type, and the
// CanonicalPath that produced it. After eval's Context.EnableMetadata,
// member navigation and the per-element iteration functions carry these
// instead of discarding them (DESIGN.md Open Question #1). WrappedValue itself implements Value so it can sit
// inside a plain Collection when metadata-aware mode isn't in use.
type WrappedValue struct {
	Value        Value
	FHIRType     string
	ResourceType string
	Path         CanonicalPath
	Index        int
}

// NewWrappedValue wraps v with no path information (used for values not
// yet attached to navigation, e.g. literals).
func NewWrappedValue(v Value) WrappedValue {
	return WrappedValue{Value: v}
}

// Unwrap returns the underlying Value, stripping metadata.
func (w WrappedValue) Unwrap() Value {
	if w.Value == nil {
		return NewString("")
	}
	return w.Value
}

func (w WrappedValue) Type() string {
	if w.FHIRType != "" {
		return w.FHIRType
	}
	return w.Unwrap().Type()
}

func (w WrappedValue) Equal(other Value) bool {
	if o, ok := other.(WrappedValue); ok {
		return w.Unwrap().Equal(o.Unwrap())
	}
	return w.Unwrap().Equal(other)
}

func (w WrappedValue) Equivalent(other Value) bool {
	if o, ok := other.(WrappedValue); ok {
		return w.Unwrap().Equivalent(o.Unwrap())
	}
	return w.Unwrap().Equivalent(other)
}

func (w WrappedValue) String() string {
	return w.Unwrap().String()
}

func (w WrappedValue) IsEmpty() bool {
	return w.Value == nil || w.Unwrap().IsEmpty()
}

// WithPath returns a copy of w with its CanonicalPath replaced.
func (w WrappedValue) WithPath(p CanonicalPath) WrappedValue {
	w.Path = p
	return w
}

// WithIndex returns a copy of w with its Index replaced.
func (w WrappedValue) WithIndex(i int) WrappedValue {
	w.Index = i
	return w
}

// Unwrap strips WrappedValue metadata from a single value, for call
// sites (operators, most functions) that don't need provenance; other
// values pass through unchanged.
func Unwrap(v Value) Value {
	if w, ok := v.(WrappedValue); ok {
		return w.Unwrap()
	}
	return v
}

// UnwrapCollection applies Unwrap to every element.
func UnwrapCollection(c Collection) Collection {
	out := make(Collection, len(c))
	for i, v := range c {
		out[i] = Unwrap(v)
	}
	return out
}
