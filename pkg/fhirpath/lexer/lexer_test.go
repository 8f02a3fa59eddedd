package lexer

import (
	"testing"

	"github.com/robertoaraneda/gofhir/pkg/fhirpath/diag"
)

func scanAll(src string) []Token {
	l := New(src, nil)
	var toks []Token
	for {
		tok := l.Next()
		toks = append(toks, tok)
		if tok.Kind == EOF {
			return toks
		}
	}
}

func TestLexerPunctuationAndOperators(t *testing.T) {
	toks := scanAll("a.b[0] != 'x' <= 3")
	kinds := make([]TokenKind, 0, len(toks))
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
	}
	want := []TokenKind{Identifier, Dot, Identifier, LBracket, Number, RBracket, NotEqual, String, LessOrEqual, Number, EOF}
	if len(kinds) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(kinds), len(want), kinds)
	}
	for i, k := range want {
		if kinds[i] != k {
			t.Errorf("token %d: got %v, want %v", i, kinds[i], k)
		}
	}
}

func TestLexerKeywordsVsIdentifiers(t *testing.T) {
	toks := scanAll("true and is notakeyword")
	want := []TokenKind{KeywordTrue, KeywordAnd, KeywordIs, Identifier, EOF}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Errorf("token %d: got %v, want %v", i, toks[i].Kind, k)
		}
	}
}

func TestLexerDollarVariants(t *testing.T) {
	toks := scanAll("$this $index $total $")
	want := []TokenKind{DollarThis, DollarIndex, DollarTotal, Dollar, EOF}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Errorf("token %d: got %v, want %v", i, toks[i].Kind, k)
		}
	}
}

func TestLexerDateTimeLiterals(t *testing.T) {
	tests := []struct {
		src  string
		kind TokenKind
	}{
		{"@2024-01-01", Date},
		{"@2024-01-01T10:00:00", DateTime},
		{"@T10:00:00", Time},
	}
	for _, tt := range tests {
		toks := scanAll(tt.src)
		if toks[0].Kind != tt.kind {
			t.Errorf("%q: got %v, want %v", tt.src, toks[0].Kind, tt.kind)
		}
	}
}

func TestLexerQuantityLiteralUnit(t *testing.T) {
	toks := scanAll("4 days")
	if toks[0].Kind != Number || toks[0].Text != "4" {
		t.Fatalf("expected a bare Number token for the magnitude, got %v", toks[0])
	}
	// The unit word is left for the parser to consume as a calendar
	// duration keyword, not folded into the Number token itself.
	if toks[1].Kind != Identifier || toks[1].Text != "days" {
		t.Errorf("expected an Identifier token for the unit word, got %v", toks[1])
	}
}

func TestLexerDecimalNumber(t *testing.T) {
	toks := scanAll("3.14")
	if toks[0].Kind != Number || toks[0].Text != "3.14" {
		t.Errorf("got %v, want Number(3.14)", toks[0])
	}
}

func TestLexerUnterminatedStringReportsDiagnostic(t *testing.T) {
	bag := &diag.Bag{}
	l := New("'unterminated", bag)
	tok := l.Next()
	if tok.Kind != Error {
		t.Errorf("expected an Error token, got %v", tok.Kind)
	}
	if !bag.HasErrors() {
		t.Error("expected a diagnostic for the unterminated string")
	}
}

func TestLexerDelimitedIdentifier(t *testing.T) {
	toks := scanAll("`PID-1`")
	if toks[0].Kind != DelimitedIdentifier || toks[0].Text != "`PID-1`" {
		t.Errorf("got %v, want a DelimitedIdentifier for PID-1", toks[0])
	}
}

func TestLexerComments(t *testing.T) {
	toks := scanAll("a // trailing comment\n.b /* block */ .c")
	kinds := make([]TokenKind, 0, len(toks))
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
	}
	want := []TokenKind{Identifier, Dot, Identifier, Dot, Identifier, EOF}
	if len(kinds) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(kinds), len(want), kinds)
	}
}

func TestLexerEOFIsStableAfterExhaustion(t *testing.T) {
	l := New("a", nil)
	l.Next()
	first := l.Next()
	second := l.Next()
	if first.Kind != EOF || second.Kind != EOF {
		t.Error("expected repeated EOF tokens once input is exhausted")
	}
}
