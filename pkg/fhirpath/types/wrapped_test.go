package types

import "testing"

func TestCanonicalPathString(t *testing.T) {
	p := NewCanonicalPath("Patient").Property("name").Index(0).Property("given").Index(1)
	if got := p.String(); got != "Patient.name[0].given[1]" {
		t.Errorf("String() = %q, want %q", got, "Patient.name[0].given[1]")
	}
}

func TestCanonicalPathWildcard(t *testing.T) {
	p := NewCanonicalPath("Patient").Property("name").Wildcard()
	if got := p.String(); got != "Patient.name[*]" {
		t.Errorf("String() = %q, want %q", got, "Patient.name[*]")
	}
}

func TestCanonicalPathImmutability(t *testing.T) {
	base := NewCanonicalPath("Patient").Property("name")
	withIndex := base.Index(0)

	if base.String() == withIndex.String() {
		t.Error("expected appending a segment to not mutate the original path")
	}
	if got := base.String(); got != "Patient.name" {
		t.Errorf("original path mutated: got %q", got)
	}
}

func TestWrappedValueUnwrap(t *testing.T) {
	inner := NewString("hello")
	w := NewWrappedValue(inner)
	if w.Unwrap() != inner {
		t.Error("expected Unwrap to return the original Value")
	}
}

func TestWrappedValueUnwrapNilDefaultsToEmptyString(t *testing.T) {
	w := WrappedValue{}
	if w.Unwrap().Type() != "String" {
		t.Errorf("expected a nil-Value WrappedValue to Unwrap to an empty String, got %v", w.Unwrap())
	}
}

func TestWrappedValueType(t *testing.T) {
	t.Run("uses FHIRType when set", func(t *testing.T) {
		w := WrappedValue{Value: NewString("blue"), FHIRType: "code"}
		if got := w.Type(); got != "code" {
			t.Errorf("Type() = %q, want %q", got, "code")
		}
	})

	t.Run("falls back to the unwrapped value's type", func(t *testing.T) {
		w := NewWrappedValue(NewInteger(5))
		if got := w.Type(); got != "Integer" {
			t.Errorf("Type() = %q, want %q", got, "Integer")
		}
	})
}

func TestWrappedValueEqual(t *testing.T) {
	a := NewWrappedValue(NewString("x"))
	b := NewWrappedValue(NewString("x")).WithPath(NewCanonicalPath("Patient").Property("foo"))
	c := NewWrappedValue(NewString("y"))

	if !a.Equal(b) {
		t.Error("expected equality to compare underlying values, ignoring path metadata")
	}
	if a.Equal(c) {
		t.Error("expected different underlying values to be unequal")
	}
	if !a.Equal(NewString("x")) {
		t.Error("expected a WrappedValue to be Equal to a bare matching Value")
	}
	if !a.Equivalent(b) {
		t.Error("expected Equivalent to delegate like Equal")
	}
}

func TestWrappedValueStringAndIsEmpty(t *testing.T) {
	w := NewWrappedValue(NewString("abc"))
	if w.String() != "abc" {
		t.Errorf("String() = %q, want %q", w.String(), "abc")
	}
	if w.IsEmpty() {
		t.Error("expected a populated WrappedValue to not be empty")
	}

	empty := WrappedValue{}
	if !empty.IsEmpty() {
		t.Error("expected a zero-value WrappedValue to be empty")
	}
}

func TestWrappedValueWithPathAndWithIndex(t *testing.T) {
	base := NewWrappedValue(NewString("x"))
	path := NewCanonicalPath("Patient").Property("name")

	withPath := base.WithPath(path)
	if withPath.Path.String() != "Patient.name" {
		t.Errorf("WithPath did not stick: %q", withPath.Path.String())
	}
	if base.Path.Segments != nil {
		t.Error("expected WithPath to return a copy, not mutate the receiver")
	}

	withIndex := base.WithIndex(3)
	if withIndex.Index != 3 {
		t.Errorf("WithIndex did not stick: %d", withIndex.Index)
	}
	if base.Index != 0 {
		t.Error("expected WithIndex to return a copy, not mutate the receiver")
	}
}

func TestUnwrapHelper(t *testing.T) {
	plain := NewString("x")
	if Unwrap(plain) != plain {
		t.Error("expected Unwrap to pass through a non-WrappedValue unchanged")
	}

	wrapped := NewWrappedValue(plain)
	if Unwrap(wrapped) != plain {
		t.Error("expected Unwrap to strip WrappedValue metadata")
	}
}

func TestUnwrapCollectionHelper(t *testing.T) {
	c := Collection{NewWrappedValue(NewString("a")), NewString("b"), NewWrappedValue(NewInteger(1))}
	out := UnwrapCollection(c)

	if len(out) != 3 {
		t.Fatalf("expected 3 elements, got %d", len(out))
	}
	for i, v := range out {
		if _, ok := v.(WrappedValue); ok {
			t.Errorf("element %d is still wrapped: %v", i, v)
		}
	}
	if out[0].(String).Value() != "a" || out[1].(String).Value() != "b" {
		t.Error("unwrapped string values did not survive unchanged")
	}
}

func TestPathSegmentString(t *testing.T) {
	cases := []struct {
		seg  PathSegment
		want string
	}{
		{PathSegment{Kind: SegmentRoot, Name: "Patient"}, "Patient"},
		{PathSegment{Kind: SegmentProperty, Name: "name"}, ".name"},
		{PathSegment{Kind: SegmentIndex, Index: 2}, "[2]"},
		{PathSegment{Kind: SegmentWildcard}, "[*]"},
	}
	for _, tt := range cases {
		if got := tt.seg.String(); got != tt.want {
			t.Errorf("PathSegment(%v).String() = %q, want %q", tt.seg, got, tt.want)
		}
	}
}
