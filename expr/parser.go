package expr

import (
	"math"
	"strconv"
	"strings"
)

// Parse parses the filter micro-language:
//
//	expr    = or
//	or      = and { "or" and }
//	and     = unary { "and" unary }
//	unary   = "not" unary | primary
//	primary = "(" expr ")" | operand ( cmpop operand | "is" [ "not" ] "null" )
//	cmpop   = "<" | ">" | "<=" | ">=" | "==" | "=" | "!=" | "<>"
//	operand = ident | number | string | "true" | "false" | "null"
//
// Keywords are case-insensitive. Identifiers are returned unbound; see Bind.
func Parse(src string) (Expr, error) {
	p := &parser{lx: lexer{src: src}}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.kind == tokEOF {
		return nil, syntaxErrf(src, 0, "empty expression")
	}
	e, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, syntaxErrf(src, p.tok.pos, "unexpected %q", p.tok.text)
	}
	return e, nil
}

type parser struct {
	lx  lexer
	tok token
}

func (p *parser) advance() error {
	tok, err := p.lx.next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *parser) isKeyword(kw string) bool {
	return p.tok.kind == tokIdent && strings.EqualFold(p.tok.text, kw)
}

func (p *parser) errf(format string, args ...any) error {
	return syntaxErrf(p.lx.src, p.tok.pos, format, args...)
}

func (p *parser) parseOr() (Expr, error) {
	l, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("or") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		r, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		l = &Or{l, r}
	}
	return l, nil
}

func (p *parser) parseAnd() (Expr, error) {
	l, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("and") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		r, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		l = &And{l, r}
	}
	return l, nil
}

func (p *parser) parseUnary() (Expr, error) {
	if p.isKeyword("not") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Not{x}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Expr, error) {
	if p.tok.kind == tokLParen {
		if err := p.advance(); err != nil {
			return nil, err
		}
		e, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.tok.kind != tokRParen {
			return nil, p.errf("expected ')'")
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return e, nil
	}

	l, err := p.parseOperand()
	if err != nil {
		return nil, err
	}

	if p.isKeyword("is") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		negate := false
		if p.isKeyword("not") {
			negate = true
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		if !p.isKeyword("null") {
			return nil, p.errf("expected NULL after IS")
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &NullTest{X: l, Negate: negate}, nil
	}

	if p.tok.kind != tokOp {
		return nil, p.errf("expected comparison operator after %s", l)
	}
	op := ParseOp(p.tok.text)
	if op == OpInvalid {
		return nil, p.errf("invalid operator %q", p.tok.text)
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	r, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	return &Cmp{Op: op, L: l, R: r}, nil
}

func (p *parser) parseOperand() (Operand, error) {
	tok := p.tok
	switch tok.kind {
	case tokIdent:
		var o Operand
		switch strings.ToLower(tok.text) {
		case "true":
			o = Literal(Bool(true))
		case "false":
			o = Literal(Bool(false))
		case "null":
			o = Literal(Null)
		case "and", "or", "not", "is":
			return Operand{}, p.errf("unexpected keyword %q", tok.text)
		default:
			o = FieldRef(tok.text)
		}
		return o, p.advance()
	case tokNumber:
		v, err := parseNumber(tok.text)
		if err != nil {
			return Operand{}, p.errf("%v", err)
		}
		return Literal(v), p.advance()
	case tokString:
		return Literal(String(tok.text)), p.advance()
	case tokEOF:
		return Operand{}, p.errf("unexpected end of expression")
	default:
		return Operand{}, p.errf("unexpected %q", tok.text)
	}
}

func parseNumber(s string) (Value, error) {
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return Int(i), nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) {
		return Null, strconv.ErrRange
	}
	return Float(f), nil
}
