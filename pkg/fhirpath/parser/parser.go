// Package parser implements a hand-written recursive-descent parser for
// FHIRPath, producing an *ast.Node tree. The precedence climbing mirrors
// the official FHIRPath grammar's rule order exactly, lowest to highest
// precedence:
//
//	implies > or/xor > and > membership(in/contains) > equality >
//	inequality > union > type(is/as) > additive > multiplicative >
//	polarity > unary postfix (invocation/indexer) > term
//
// Note FHIRPath's actual precedence nests "is/as" between union and
// additive; see parseTypeExpr below for the exact slot (the left operand
// of a TypeExpression is a full additive expression).
package parser

import (
	"github.com/robertoaraneda/gofhir/pkg/fhirpath/ast"
	"github.com/robertoaraneda/gofhir/pkg/fhirpath/diag"
	"github.com/robertoaraneda/gofhir/pkg/fhirpath/lexer"
)

// Mode selects how aggressively the parser recovers from and reports
// errors.
type Mode int

const (
	// Fast stops at the first syntax error (used by Compile/Evaluate).
	Fast Mode = iota
	// Analyze accumulates every diagnostic it can and attempts to
	// recover far enough to keep parsing (used by Analyze).
	Analyze
)

// Parser turns a token stream into an *ast.Node tree.
type Parser struct {
	lex         *lexer.Lexer
	cur         lexer.Token
	mode        Mode
	diagnostics *diag.Bag
}

// Result is the outcome of a Parse call.
type Result struct {
	Root        *ast.Node
	Diagnostics *diag.Bag
}

// Parse parses src in the given Mode and returns the resulting tree
// together with any accumulated diagnostics. In Fast mode, the first
// error diagnostic aborts parsing and Root is nil.
func Parse(src string, mode Mode) *Result {
	bag := &diag.Bag{}
	p := &Parser{lex: lexer.New(src, bag), mode: mode, diagnostics: bag}
	p.cur = p.lex.Next()

	if src == "" {
		bag.Addf(diag.CodeExpectedExpression, "empty expression")
		return &Result{Diagnostics: bag}
	}

	root := p.parseExpression()
	if root == nil {
		return &Result{Diagnostics: bag}
	}
	if p.cur.Kind != lexer.EOF {
		p.errorf(diag.UnexpectedToken(p.cur.Text, "end of expression"))
		if mode == Fast {
			return &Result{Diagnostics: bag}
		}
	}
	ast.ComputeFingerprint(root)
	return &Result{Root: root, Diagnostics: bag}
}

func (p *Parser) errorf(d *diag.Diagnostic) {
	d = d.WithSpan(diag.Span{Start: p.cur.Start, End: p.cur.End, Line: p.cur.Line, Column: p.cur.Col})
	p.diagnostics.Add(d)
}

func (p *Parser) advance() lexer.Token {
	t := p.cur
	p.cur = p.lex.Next()
	return t
}

func (p *Parser) expect(k lexer.TokenKind, what string) (lexer.Token, bool) {
	if p.cur.Kind != k {
		p.errorf(diag.UnexpectedToken(p.cur.Text, what))
		return lexer.Token{}, false
	}
	return p.advance(), true
}

func span(start, end lexer.Token) ast.Span {
	return ast.Span{Start: start.Start, End: end.End, Line: start.Line, Column: start.Col}
}

func node(kind ast.Kind, text string, sp ast.Span, children ...*ast.Node) *ast.Node {
	n := &ast.Node{Kind: kind, Text: text, Span: sp, Children: children}
	ast.ComputeFingerprint(n)
	return n
}

// parseExpression is the entry point for the full precedence chain,
// rooted at the lowest-precedence operator: implies.
func (p *Parser) parseExpression() *ast.Node {
	return p.parseImplies()
}

func (p *Parser) parseImplies() *ast.Node {
	left := p.parseOr()
	for left != nil && p.cur.Kind == lexer.KeywordImplies {
		op := p.advance()
		right := p.parseOr()
		if right == nil {
			return nil
		}
		left = node(ast.KindImpliesExpression, op.Text, span(op, op), left, right)
	}
	return left
}

func (p *Parser) parseOr() *ast.Node {
	left := p.parseAnd()
	for left != nil && (p.cur.Kind == lexer.KeywordOr || p.cur.Kind == lexer.KeywordXor) {
		op := p.advance()
		right := p.parseAnd()
		if right == nil {
			return nil
		}
		left = node(ast.KindOrExpression, op.Text, span(op, op), left, right)
	}
	return left
}

func (p *Parser) parseAnd() *ast.Node {
	left := p.parseMembership()
	for left != nil && p.cur.Kind == lexer.KeywordAnd {
		op := p.advance()
		right := p.parseMembership()
		if right == nil {
			return nil
		}
		left = node(ast.KindAndExpression, op.Text, span(op, op), left, right)
	}
	return left
}

func (p *Parser) parseMembership() *ast.Node {
	left := p.parseEquality()
	for left != nil && (p.cur.Kind == lexer.KeywordIn || p.cur.Kind == lexer.KeywordContains) {
		op := p.advance()
		right := p.parseEquality()
		if right == nil {
			return nil
		}
		left = node(ast.KindMembershipExpression, op.Text, span(op, op), left, right)
	}
	return left
}

// parseEquality sits below membership and above inequality.
func (p *Parser) parseEquality() *ast.Node {
	left := p.parseInequality()
	for left != nil {
		switch p.cur.Kind {
		case lexer.Equal, lexer.NotEqual, lexer.Equivalent, lexer.NotEquivalent:
			op := p.advance()
			right := p.parseInequality()
			if right == nil {
				return nil
			}
			left = node(ast.KindEqualityExpression, op.Text, span(op, op), left, right)
			continue
		}
		break
	}
	return left
}

func (p *Parser) parseInequality() *ast.Node {
	left := p.parseUnion()
	for left != nil {
		switch p.cur.Kind {
		case lexer.Less, lexer.LessOrEqual, lexer.Greater, lexer.GreaterOrEqual:
			op := p.advance()
			right := p.parseUnion()
			if right == nil {
				return nil
			}
			left = node(ast.KindInequalityExpression, op.Text, span(op, op), left, right)
			continue
		}
		break
	}
	return left
}

func (p *Parser) parseUnion() *ast.Node {
	left := p.parseTypeExpr()
	for left != nil && p.cur.Kind == lexer.Pipe {
		op := p.advance()
		right := p.parseTypeExpr()
		if right == nil {
			return nil
		}
		left = node(ast.KindUnionExpression, op.Text, span(op, op), left, right)
	}
	return left
}

func (p *Parser) parseAdditive() *ast.Node {
	left := p.parseMultiplicative()
	for left != nil {
		switch p.cur.Kind {
		case lexer.Plus, lexer.Minus, lexer.Ampersand:
			op := p.advance()
			right := p.parseMultiplicative()
			if right == nil {
				return nil
			}
			left = node(ast.KindAdditiveExpression, op.Text, span(op, op), left, right)
			continue
		}
		break
	}
	return left
}

func (p *Parser) parseMultiplicative() *ast.Node {
	left := p.parsePolarity()
	for left != nil {
		switch p.cur.Kind {
		case lexer.Star, lexer.Slash, lexer.KeywordDiv, lexer.KeywordMod:
			op := p.advance()
			right := p.parsePolarity()
			if right == nil {
				return nil
			}
			left = node(ast.KindMultiplicativeExpression, op.Text, span(op, op), left, right)
			continue
		}
		break
	}
	return left
}

// parseTypeExpr handles the postfix "is Type" / "as Type" forms, which
// bind tighter than union/inequality/equality but looser than additive
// arithmetic. The resulting TypeExpression node wraps a single operand
// plus a TypeSpecifier, not a full nested expression.
func (p *Parser) parseTypeExpr() *ast.Node {
	left := p.parseAdditive()
	for left != nil && (p.cur.Kind == lexer.KeywordIs || p.cur.Kind == lexer.KeywordAs) {
		op := p.advance()
		typeName, ok := p.parseTypeSpecifier()
		if !ok {
			return nil
		}
		left = node(ast.KindTypeExpression, op.Text, span(op, op), left, typeNode(typeName, op))
	}
	return left
}

func typeNode(name string, at lexer.Token) *ast.Node {
	return node(ast.KindIdentifier, name, span(at, at))
}

// parseTypeSpecifier parses a (possibly dotted) type name: Patient,
// FHIR.Patient, System.String.
func (p *Parser) parseTypeSpecifier() (string, bool) {
	tok, ok := p.expect(lexer.Identifier, "type name")
	if !ok {
		return "", false
	}
	name := tok.Text
	for p.cur.Kind == lexer.Dot {
		p.advance()
		part, ok := p.expect(lexer.Identifier, "type name")
		if !ok {
			return "", false
		}
		name += "." + part.Text
	}
	return name, true
}

func (p *Parser) parsePolarity() *ast.Node {
	if p.cur.Kind == lexer.Plus || p.cur.Kind == lexer.Minus {
		op := p.advance()
		operand := p.parsePolarity()
		if operand == nil {
			return nil
		}
		return node(ast.KindPolarityExpression, op.Text, span(op, op), operand)
	}
	return p.parsePostfix()
}

// parsePostfix handles left-recursive invocation (.member/.func()) and
// indexer ([expr]) suffixes applied to a term.
func (p *Parser) parsePostfix() *ast.Node {
	left := p.parseTerm()
	for left != nil {
		switch p.cur.Kind {
		case lexer.Dot:
			dot := p.advance()
			inv := p.parseInvocation()
			if inv == nil {
				return nil
			}
			left = node(ast.KindInvocationExpression, dot.Text, span(dot, dot), left, inv)
		case lexer.LBracket:
			lb := p.advance()
			idx := p.parseExpression()
			if idx == nil {
				return nil
			}
			rb, ok := p.expect(lexer.RBracket, "]")
			if !ok {
				return nil
			}
			left = node(ast.KindIndexerExpression, "[]", span(lb, rb), left, idx)
		default:
			return left
		}
	}
	return left
}

// parseTerm parses a single term: literal, invocation, parenthesized
// expression, or external constant.
func (p *Parser) parseTerm() *ast.Node {
	switch p.cur.Kind {
	case lexer.LParen:
		lp := p.advance()
		inner := p.parseExpression()
		if inner == nil {
			return nil
		}
		rp, ok := p.expect(lexer.RParen, ")")
		if !ok {
			return nil
		}
		return node(ast.KindParenthesizedExpression, "()", span(lp, rp), inner)
	case lexer.LBrace:
		lb := p.advance()
		rb, ok := p.expect(lexer.RBrace, "}")
		if !ok {
			return nil
		}
		return node(ast.KindNullLiteral, "{}", span(lb, rb))
	case lexer.ExternalConstant:
		t := p.advance()
		return node(ast.KindExternalConstant, t.Text, span(t, t))
	case lexer.DollarThis:
		t := p.advance()
		return node(ast.KindThisInvocation, t.Text, span(t, t))
	case lexer.DollarIndex:
		t := p.advance()
		return node(ast.KindIndexInvocation, t.Text, span(t, t))
	case lexer.DollarTotal:
		t := p.advance()
		return node(ast.KindTotalInvocation, t.Text, span(t, t))
	case lexer.KeywordTrue, lexer.KeywordFalse:
		t := p.advance()
		return node(ast.KindBooleanLiteral, t.Text, span(t, t))
	case lexer.String:
		t := p.advance()
		return node(ast.KindStringLiteral, t.Text, span(t, t))
	case lexer.Number:
		return p.parseNumberOrQuantity()
	case lexer.Date:
		t := p.advance()
		return node(ast.KindDateLiteral, t.Text, span(t, t))
	case lexer.DateTime:
		t := p.advance()
		return node(ast.KindDateTimeLiteral, t.Text, span(t, t))
	case lexer.Time:
		t := p.advance()
		return node(ast.KindTimeLiteral, t.Text, span(t, t))
	case lexer.Identifier, lexer.DelimitedIdentifier,
		lexer.KeywordDiv, lexer.KeywordMod, lexer.KeywordIn, lexer.KeywordContains,
		lexer.KeywordIs, lexer.KeywordAs, lexer.KeywordAnd, lexer.KeywordOr,
		lexer.KeywordXor, lexer.KeywordImplies:
		// Keywords are valid identifiers in member/function position per
		// the FHIRPath grammar (e.g. `Patient.contains`).
		return p.parseInvocation()
	default:
		p.errorf(diag.ExpectedExpression(p.cur.Text))
		return nil
	}
}

// parseNumberOrQuantity parses a Number token, combining it with a
// following unit string or calendar-duration keyword into a single
// QuantityLiteral node.
func (p *Parser) parseNumberOrQuantity() *ast.Node {
	numTok := p.advance()
	if p.cur.Kind == lexer.String {
		unitTok := p.advance()
		return node(ast.KindQuantityLiteral, numTok.Text+" "+unitTok.Text, span(numTok, unitTok))
	}
	if isCalendarDurationToken(p.cur) {
		unitTok := p.advance()
		return node(ast.KindQuantityLiteral, numTok.Text+" "+unitTok.Text, span(numTok, unitTok))
	}
	return node(ast.KindNumberLiteral, numTok.Text, span(numTok, numTok))
}

func isCalendarDurationToken(t lexer.Token) bool {
	if t.Kind != lexer.Identifier {
		return false
	}
	switch t.Text {
	case "year", "years", "month", "months", "week", "weeks", "day", "days",
		"hour", "hours", "minute", "minutes", "second", "seconds",
		"millisecond", "milliseconds":
		return true
	}
	return false
}

// parseInvocation parses a bare identifier, function call, or keyword
// used as an identifier: name, name(args), $this-style constructs are
// handled in parseTerm instead.
func (p *Parser) parseInvocation() *ast.Node {
	tok := p.advance()
	name := tok.Text
	if tok.Kind == lexer.DelimitedIdentifier {
		name = unbacktick(name)
	}
	if p.cur.Kind != lexer.LParen {
		return node(ast.KindIdentifier, name, span(tok, tok))
	}

	p.advance() // (
	var args []*ast.Node
	if p.cur.Kind != lexer.RParen {
		for {
			arg := p.parseExpression()
			if arg == nil {
				return nil
			}
			args = append(args, arg)
			if p.cur.Kind == lexer.Comma {
				p.advance()
				continue
			}
			break
		}
	}
	rp, ok := p.expect(lexer.RParen, ")")
	if !ok {
		return nil
	}
	fn := node(ast.KindFunctionCall, name, span(tok, rp))
	fn.Children = args
	ast.ComputeFingerprint(fn)
	return fn
}

func unbacktick(s string) string {
	if len(s) >= 2 && s[0] == '`' && s[len(s)-1] == '`' {
		return s[1 : len(s)-1]
	}
	return s
}
