package shapes

import "github.com/chazu/frep/pkg/expr"

// Union is the minimum of its operands. At least one is required.
func Union(b *expr.Builder, ts ...expr.Tree) expr.Tree { return b.MinOf(ts...) }

// Intersection is the maximum of its operands. At least one is required.
func Intersection(b *expr.Builder, ts ...expr.Tree) expr.Tree { return b.MaxOf(ts...) }

// Inverse swaps inside and outside.
func Inverse(b *expr.Builder, t expr.Tree) expr.Tree { return b.Neg(t) }

// Difference subtracts every shape in cut from a.
func Difference(b *expr.Builder, a expr.Tree, cut ...expr.Tree) expr.Tree {
	return b.Max(a, Inverse(b, Union(b, cut...)))
}

// Offset grows t by o.
func Offset(b *expr.Builder, t, o expr.Tree) expr.Tree { return b.Sub(t, o) }

// Clearance subtracts cut, grown by o, from a.
func Clearance(b *expr.Builder, a, cut, o expr.Tree) expr.Tree {
	return Difference(b, a, Offset(b, cut, o))
}

// Shell hollows t. A negative o leaves a wall of thickness -o inside the
// original surface.
func Shell(b *expr.Builder, t, o expr.Tree) expr.Tree { return Clearance(b, t, t, o) }

// Blend is an exponential smooth union; m is roughly the blend radius.
func Blend(b *expr.Builder, x, y, m expr.Tree) expr.Tree {
	k := b.Div(b.C(2.75), b.Square(m))
	sum := b.Add(b.Exp(b.Neg(b.Mul(k, x))), b.Exp(b.Neg(b.Mul(k, y))))
	return b.Div(b.Neg(b.Log(sum)), k)
}

// Morph interpolates linearly between x (m = 0) and y (m = 1).
func Morph(b *expr.Builder, x, y, m expr.Tree) expr.Tree {
	return b.Add(b.Mul(x, b.Sub(b.C(1), m)), b.Mul(y, m))
}

// ExtrudeZ turns a 2D shape into a prism between zmin and zmax.
func ExtrudeZ(b *expr.Builder, t, zmin, zmax expr.Tree) expr.Tree {
	z := b.Z()
	return b.MaxOf(t, b.Sub(zmin, z), b.Sub(z, zmax))
}
