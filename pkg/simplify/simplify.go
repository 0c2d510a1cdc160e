// Package simplify rewrites expression trees into smaller equivalent ones.
package simplify

import (
	"math"

	"github.com/chazu/frep/pkg/expr"
)

// DefaultMaxIterations caps the number of rewrite passes.
const DefaultMaxIterations = 32

type options struct {
	stableTies bool
	maxIter    int
}

// Option configures Simplify.
type Option func(*options)

// WithStableTies keeps the operand order of min and max. Canonical
// ordering otherwise swaps them by node id, which changes which operand a
// gradient tie selects.
func WithStableTies() Option {
	return func(o *options) { o.stableTies = true }
}

// WithMaxIterations overrides DefaultMaxIterations.
func WithMaxIterations(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxIter = n
		}
	}
}

// Simplify flattens remaps, folds constant subtrees, orders commutative
// operands and applies algebraic identities until the root stops
// changing. The result evaluates to the same value as t at every point
// where t evaluates without a domain error. Simplify(Simplify(t)) returns
// the identical tree.
func Simplify(t expr.Tree, opts ...Option) (expr.Tree, error) {
	o := options{maxIter: DefaultMaxIterations}
	for _, opt := range opts {
		opt(&o)
	}
	if !t.IsValid() {
		return t, nil
	}
	cur, err := expr.Flatten(t)
	if err != nil {
		return expr.Tree{}, err
	}
	for i := 0; i < o.maxIter; i++ {
		next, err := pass(cur, o)
		if err != nil {
			return expr.Tree{}, err
		}
		if next.Eq(cur) {
			return next, nil
		}
		cur = next
	}
	return cur, nil
}

// pass rebuilds the tree bottom-up once. Interning makes unchanged
// subtrees come back as the same nodes.
func pass(t expr.Tree, o options) (expr.Tree, error) {
	b := expr.NewBuilder(t.Arena())
	memo := make(map[*expr.Node]expr.Tree)
	for _, n := range t.Postorder() {
		if n.Op().IsLeaf() {
			memo[n] = expr.TreeOf(n)
			continue
		}
		l := memo[n.Lhs()]
		var r expr.Tree
		if n.Rhs() != nil {
			r = memo[n.Rhs()]
		}
		memo[n] = rewrite(b, n.Op(), l, r, o)
		if b.Err() != nil {
			return expr.Tree{}, b.Err()
		}
	}
	return memo[t.Root()], nil
}

func lhs(t expr.Tree) expr.Tree { return expr.TreeOf(t.Root().Lhs()) }
func rhs(t expr.Tree) expr.Tree { return expr.TreeOf(t.Root().Rhs()) }

func isConst(t expr.Tree, v float64) bool {
	c, ok := t.ConstValue()
	return ok && c == v
}

func rewrite(b *expr.Builder, op expr.Opcode, l, r expr.Tree, o options) expr.Tree {
	switch op {
	case expr.OpAdd:
		if l.Op() == expr.OpNeg {
			return b.Sub(r, lhs(l))
		}
		if r.Op() == expr.OpNeg {
			return b.Sub(l, lhs(r))
		}
		if t, ok := reassociate(b, op, l, r); ok {
			return t
		}
	case expr.OpSub:
		if l.Eq(r) {
			return b.C(0)
		}
		if r.Op() == expr.OpNeg {
			return b.Add(l, lhs(r))
		}
	case expr.OpMul:
		if isConst(l, 0) || isConst(r, 0) {
			return b.C(0)
		}
		if t, ok := reassociate(b, op, l, r); ok {
			return t
		}
	case expr.OpDiv:
		if l.Eq(r) {
			return b.C(1)
		}
		if isConst(l, 0) {
			return b.C(0)
		}
	case expr.OpNeg:
		if l.Op() == expr.OpSub {
			return b.Sub(rhs(l), lhs(l))
		}
	case expr.OpAbs:
		switch l.Op() {
		case expr.OpSquare, expr.OpAbs:
			return l
		case expr.OpNeg:
			return b.Abs(lhs(l))
		}
	case expr.OpSquare:
		if l.Op() == expr.OpNeg || l.Op() == expr.OpAbs {
			return b.Square(lhs(l))
		}
	case expr.OpMin, expr.OpMax:
		// min(a, min(a, b)) = min(a, b)
		if r.Op() == op && (lhs(r).Eq(l) || rhs(r).Eq(l)) {
			return r
		}
		if l.Op() == op && (lhs(l).Eq(r) || rhs(l).Eq(r)) {
			return l
		}
	}

	if op.Commutative() && r.IsValid() && r.Root().ID() < l.Root().ID() {
		if !o.stableTies || (op != expr.OpMin && op != expr.OpMax) {
			l, r = r, l
		}
	}
	if r.IsValid() {
		return b.Apply(op, l, r)
	}
	return b.Apply(op, l)
}

// reassociate merges constants across a nested add or mul:
// (x + c1) + c2 becomes x + (c1 + c2).
func reassociate(b *expr.Builder, op expr.Opcode, l, r expr.Tree) (expr.Tree, bool) {
	c2, ok := r.ConstValue()
	inner := l
	if !ok {
		c2, ok = l.ConstValue()
		inner = r
	}
	if !ok || inner.Op() != op {
		return expr.Tree{}, false
	}
	x := lhs(inner)
	c1, ok := rhs(inner).ConstValue()
	if !ok {
		if c1, ok = x.ConstValue(); !ok {
			return expr.Tree{}, false
		}
		x = rhs(inner)
	}
	v, ok := expr.Fold(op, c1, c2)
	if !ok || math.IsInf(v, 0) {
		return expr.Tree{}, false
	}
	return b.Apply(op, x, b.C(v)), true
}
