package objidx

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/andreyvit/objidx/expr"
)

// colBounds collects the constraints that top-level conjuncts put on one
// column.
type colBounds struct {
	eq           *expr.Value // non-null literal, or null for IS NULL
	lower, upper *expr.Value
}

// collectBounds looks at the top-level conjuncts of the form
// `field op literal` (either way around) and `field IS NULL`. Anything else is
// left for the recheck.
func collectBounds(e expr.Expr, ncols int) []colBounds {
	bounds := make([]colBounds, ncols)
	for _, c := range expr.Conjuncts(e) {
		switch c := c.(type) {
		case *expr.Cmp:
			op, col, lit, ok := normalizeCmp(c)
			if !ok || lit.IsNull() {
				continue
			}
			b := &bounds[col]
			switch op {
			case expr.OpEq:
				b.eq = &lit
			case expr.OpGt, expr.OpGe:
				if b.lower == nil || cmpValues(lit, *b.lower) > 0 {
					b.lower = &lit
				}
			case expr.OpLt, expr.OpLe:
				if b.upper == nil || cmpValues(lit, *b.upper) < 0 {
					b.upper = &lit
				}
			}
		case *expr.NullTest:
			if c.X.IsField && !c.Negate {
				null := expr.Null
				bounds[c.X.Col].eq = &null
			}
		}
	}
	return bounds
}

func cmpValues(a, b expr.Value) int {
	c, _ := expr.Compare(a, b)
	return c
}

// normalizeCmp rewrites a comparison into field-op-literal form.
func normalizeCmp(c *expr.Cmp) (op expr.Op, col int, lit expr.Value, ok bool) {
	switch {
	case c.L.IsField && !c.R.IsField:
		return c.Op, c.L.Col, c.R.Lit, true
	case !c.L.IsField && c.R.IsField:
		return c.Op.Flip(), c.R.Col, c.L.Lit, true
	default:
		return expr.OpInvalid, 0, expr.Null, false
	}
}

// indexPlan is a range scan over one index: all entries starting with
// prefix, and if rangeTag is set, whose next element lies within
// [lower, upper] (both inclusive, nil upper means open).
type indexPlan struct {
	spec     IndexSpec
	eqCols   int
	prefix   []byte
	rangeTag byte
	lower    []byte
	upper    []byte
	score    int
}

// chooseIndex picks the index with the longest equality prefix, preferring
// one that can also bound the next column. Returns nil if no index helps.
func chooseIndex(e expr.Expr, ncols int, specs []IndexSpec) *indexPlan {
	bounds := collectBounds(e, ncols)
	var best *indexPlan
	for _, spec := range specs {
		p := &indexPlan{spec: spec}
		for _, col := range spec.Columns {
			if bounds[col].eq == nil {
				break
			}
			p.prefix = appendIndexElem(p.prefix, *bounds[col].eq)
			p.eqCols++
		}
		p.score = 2 * p.eqCols
		if p.eqCols < len(spec.Columns) {
			b := bounds[spec.Columns[p.eqCols]]
			if b.lower != nil || b.upper != nil {
				p.score++
				if b.lower != nil {
					p.rangeTag = familyTag(b.lower.Kind.Family())
					p.lower = appendIndexElem(nil, *b.lower)
				} else {
					p.rangeTag = familyTag(b.upper.Kind.Family())
					p.lower = []byte{p.rangeTag}
				}
				if b.upper != nil {
					p.upper = appendIndexElem(nil, *b.upper)
				}
			}
		}
		if p.score > 0 && (best == nil || p.score > best.score) {
			best = p
		}
	}
	return best
}

func (p *indexPlan) seekKey() []byte {
	return append(append([]byte(nil), p.prefix...), p.lower...)
}

// accepts reports whether an index entry key is still within the plan's
// range. Keys are visited in order, so false means the scan is over.
func (p *indexPlan) accepts(k []byte) (bool, error) {
	if !bytes.HasPrefix(k, p.prefix) {
		return false, nil
	}
	if p.rangeTag == 0 {
		return true, nil
	}
	rest := k[len(p.prefix):]
	if len(rest) == 0 || rest[0] != p.rangeTag {
		return false, nil
	}
	if p.upper == nil {
		return true, nil
	}
	n, err := indexElemLen(rest)
	if err != nil {
		return false, err
	}
	return bytes.Compare(rest[:n], p.upper) <= 0, nil
}

func (p *indexPlan) String() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "idx_%s eq=%d", p.spec.Name, p.eqCols)
	if p.rangeTag != 0 {
		fmt.Fprintf(&buf, " range=%s..%s", hexstr(p.lower), hexstr(p.upper))
	}
	return buf.String()
}
