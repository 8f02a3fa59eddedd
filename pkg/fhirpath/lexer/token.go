// Package lexer tokenizes FHIRPath source text with a hand-written
// scanner; token kinds follow the lexical classes the FHIRPath grammar
// defines (identifiers, delimited identifiers, string/number/date/time
// literals, operators, punctuation).
package lexer

import "fmt"

// TokenKind classifies a single lexical token.
type TokenKind int

const (
	EOF TokenKind = iota
	Error

	Identifier      // foo
	DelimitedIdentifier // `delimited identifier`
	String          // 'single quoted'
	Number          // 123, 1.5
	Date            // @2024-01-01
	DateTime        // @2024-01-01T10:00:00
	Time            // @T10:00:00
	ExternalConstant // %name, %`name`, %'name'

	// Keywords that are also valid identifiers in member position
	KeywordTrue
	KeywordFalse
	KeywordAnd
	KeywordOr
	KeywordXor
	KeywordImplies
	KeywordDiv
	KeywordMod
	KeywordIn
	KeywordContains
	KeywordIs
	KeywordAs

	// Punctuation / operators
	Dot
	Comma
	LParen
	RParen
	LBracket
	RBracket
	LBrace
	RBrace
	Plus
	Minus
	Star
	Slash
	Ampersand
	Pipe
	Equal
	NotEqual
	Equivalent
	NotEquivalent
	Less
	LessOrEqual
	Greater
	GreaterOrEqual
	Dollar
	DollarThis
	DollarIndex
	DollarTotal
	Unit // not emitted by the lexer; quantity units are scanned as Identifier or String tokens
)

// Token is a single lexed unit with its source span.
type Token struct {
	Kind       TokenKind
	Text       string
	Start, End int
	Line, Col  int
}

func (t Token) String() string {
	return fmt.Sprintf("%v(%q)@%d:%d", t.Kind, t.Text, t.Line, t.Col)
}

var keywords = map[string]TokenKind{
	"true":     KeywordTrue,
	"false":    KeywordFalse,
	"and":      KeywordAnd,
	"or":       KeywordOr,
	"xor":      KeywordXor,
	"implies":  KeywordImplies,
	"div":      KeywordDiv,
	"mod":      KeywordMod,
	"in":       KeywordIn,
	"contains": KeywordContains,
	"is":       KeywordIs,
	"as":       KeywordAs,
}

func (k TokenKind) String() string {
	names := map[TokenKind]string{
		EOF: "EOF", Error: "Error", Identifier: "Identifier",
		DelimitedIdentifier: "DelimitedIdentifier", String: "String",
		Number: "Number", Date: "Date", DateTime: "DateTime", Time: "Time",
		ExternalConstant: "ExternalConstant",
		Dot: ".", Comma: ",", LParen: "(", RParen: ")",
		LBracket: "[", RBracket: "]", LBrace: "{", RBrace: "}",
		Plus: "+", Minus: "-", Star: "*", Slash: "/", Ampersand: "&",
		Pipe: "|", Equal: "=", NotEqual: "!=", Equivalent: "~",
		NotEquivalent: "!~", Less: "<", LessOrEqual: "<=", Greater: ">",
		GreaterOrEqual: ">=", Dollar: "$", DollarThis: "$this",
		DollarIndex: "$index", DollarTotal: "$total", Unit: "Unit",
	}
	if n, ok := names[k]; ok {
		return n
	}
	for text, kw := range keywords {
		if kw == k {
			return text
		}
	}
	return "Unknown"
}
