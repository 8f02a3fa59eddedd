package funcs

import (
	"bytes"
	"strings"
	"testing"

	"github.com/robertoaraneda/gofhir/pkg/fhirpath/eval"
	"github.com/robertoaraneda/gofhir/pkg/fhirpath/types"
)

func TestFnTraceReturnsInputUnchanged(t *testing.T) {
	ctx := eval.NewContext([]byte(`{}`))
	input := types.Collection{types.NewString("a"), types.NewString("b")}
	args := []interface{}{types.Collection{types.NewString("label")}}

	result, err := fnTrace(ctx, input, args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != len(input) {
		t.Fatalf("expected trace() to pass the input through unchanged, got %v", result)
	}
}

func TestFnTraceRequiresAName(t *testing.T) {
	ctx := eval.NewContext([]byte(`{}`))
	if _, err := fnTrace(ctx, types.Collection{types.NewString("a")}, nil); err == nil {
		t.Error("expected an error when trace() is called with no name argument")
	}
}

func TestFnTraceLogsThroughTheConfiguredLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := GetTraceLogger()
	SetTraceLogger(NewDefaultTraceLogger(&buf, false))
	defer SetTraceLogger(prev)

	ctx := eval.NewContext([]byte(`{}`))
	input := types.Collection{types.NewString("x")}
	args := []interface{}{types.Collection{types.NewString("checkpoint")}}

	if _, err := fnTrace(ctx, input, args); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "checkpoint") {
		t.Errorf("expected the trace label in the log output, got %q", out)
	}
	if !strings.Contains(out, "x") {
		t.Errorf("expected the input value in the log output, got %q", out)
	}
}

func TestNullTraceLoggerDiscardsOutput(t *testing.T) {
	prev := GetTraceLogger()
	SetTraceLogger(NullTraceLogger{})
	defer SetTraceLogger(prev)

	ctx := eval.NewContext([]byte(`{}`))
	input := types.Collection{types.NewString("x")}
	args := []interface{}{types.Collection{types.NewString("n")}}

	result, err := fnTrace(ctx, input, args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 1 {
		t.Error("expected trace() to still return its input under a NullTraceLogger")
	}
}

func TestFormatCollection(t *testing.T) {
	if got := formatCollection(types.Collection{}); got != "{ }" {
		t.Errorf("empty collection formatted as %q, want %q", got, "{ }")
	}
	got := formatCollection(types.Collection{types.NewString("a"), types.NewString("b")})
	if got != "{ a, b }" {
		t.Errorf("got %q, want %q", got, "{ a, b }")
	}
}

func TestDefaultTraceLoggerJSONMode(t *testing.T) {
	var buf bytes.Buffer
	logger := NewDefaultTraceLogger(&buf, true)
	logger.Log(TraceEntry{Name: "n", Count: 2})
	if !strings.Contains(buf.String(), `"name":"n"`) {
		t.Errorf("expected JSON-encoded output, got %q", buf.String())
	}
}
