package expr

import (
	"strings"
)

type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokOp
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string // raw text; for strings, the unescaped value
	pos  int
}

type lexer struct {
	src string
	off int
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// IsIdent reports whether s is usable as a field name in expressions.
func IsIdent(s string) bool {
	if s == "" || !isIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isIdentPart(s[i]) {
			return false
		}
	}
	return !isKeyword(s)
}

func isKeyword(s string) bool {
	switch strings.ToLower(s) {
	case "and", "or", "not", "is", "null", "true", "false":
		return true
	default:
		return false
	}
}

func (lx *lexer) next() (token, error) {
	src := lx.src
	for lx.off < len(src) && (src[lx.off] == ' ' || src[lx.off] == '\t' || src[lx.off] == '\n' || src[lx.off] == '\r') {
		lx.off++
	}
	start := lx.off
	if start >= len(src) {
		return token{kind: tokEOF, pos: start}, nil
	}
	c := src[start]
	switch {
	case c == '(':
		lx.off++
		return token{tokLParen, "(", start}, nil
	case c == ')':
		lx.off++
		return token{tokRParen, ")", start}, nil
	case isIdentStart(c):
		for lx.off < len(src) && isIdentPart(src[lx.off]) {
			lx.off++
		}
		return token{tokIdent, src[start:lx.off], start}, nil
	case isDigit(c) || c == '.' || (c == '-' && start+1 < len(src) && (isDigit(src[start+1]) || src[start+1] == '.')):
		return lx.number()
	case c == '\'' || c == '"':
		return lx.str(c)
	case c == '<' || c == '>' || c == '=' || c == '!':
		lx.off++
		if lx.off < len(src) {
			two := src[start : lx.off+1]
			switch two {
			case "<=", ">=", "==", "!=", "<>":
				lx.off++
				return token{tokOp, two, start}, nil
			}
		}
		if c == '!' {
			return token{}, syntaxErrf(src, start, "unexpected '!'")
		}
		return token{tokOp, src[start:lx.off], start}, nil
	default:
		return token{}, syntaxErrf(src, start, "unexpected character %q", c)
	}
}

func (lx *lexer) number() (token, error) {
	src := lx.src
	start := lx.off
	if src[lx.off] == '-' {
		lx.off++
	}
	var digits int
	for lx.off < len(src) && isDigit(src[lx.off]) {
		lx.off++
		digits++
	}
	if lx.off < len(src) && src[lx.off] == '.' {
		lx.off++
		for lx.off < len(src) && isDigit(src[lx.off]) {
			lx.off++
			digits++
		}
	}
	if digits == 0 {
		return token{}, syntaxErrf(src, start, "malformed number")
	}
	if lx.off < len(src) && (src[lx.off] == 'e' || src[lx.off] == 'E') {
		lx.off++
		if lx.off < len(src) && (src[lx.off] == '+' || src[lx.off] == '-') {
			lx.off++
		}
		expStart := lx.off
		for lx.off < len(src) && isDigit(src[lx.off]) {
			lx.off++
		}
		if lx.off == expStart {
			return token{}, syntaxErrf(src, start, "malformed exponent")
		}
	}
	if lx.off < len(src) && isIdentStart(src[lx.off]) {
		return token{}, syntaxErrf(src, lx.off, "unexpected character %q after number", src[lx.off])
	}
	return token{tokNumber, src[start:lx.off], start}, nil
}

func (lx *lexer) str(quote byte) (token, error) {
	src := lx.src
	start := lx.off
	lx.off++
	var buf strings.Builder
	for lx.off < len(src) {
		c := src[lx.off]
		switch {
		case c == quote:
			if lx.off+1 < len(src) && src[lx.off+1] == quote {
				buf.WriteByte(quote)
				lx.off += 2
				continue
			}
			lx.off++
			return token{tokString, buf.String(), start}, nil
		case c == '\\':
			if lx.off+1 >= len(src) {
				return token{}, syntaxErrf(src, lx.off, "dangling escape")
			}
			switch e := src[lx.off+1]; e {
			case 'n':
				buf.WriteByte('\n')
			case 't':
				buf.WriteByte('\t')
			case 'r':
				buf.WriteByte('\r')
			case '0':
				buf.WriteByte(0)
			default:
				buf.WriteByte(e)
			}
			lx.off += 2
		default:
			buf.WriteByte(c)
			lx.off++
		}
	}
	return token{}, syntaxErrf(src, start, "unterminated string")
}
