package shapes

import (
	"math"

	"github.com/chazu/frep/pkg/expr"
)

// Circle of radius r.
func Circle(b *expr.Builder, r expr.Tree, center Vec2) expr.Tree {
	return b.Sub(b.Hypot2(b.Sub(b.X(), center.X), b.Sub(b.Y(), center.Y)), r)
}

// Ring is the annulus between radii ri and ro.
func Ring(b *expr.Builder, ro, ri expr.Tree, center Vec2) expr.Tree {
	return Difference(b, Circle(b, ro, center), Circle(b, ri, center))
}

// Polygon is a regular n-gon inscribed in a circle of radius r.
func Polygon(b *expr.Builder, r expr.Tree, n int, center Vec2) expr.Tree {
	if n < 3 {
		b.Fail(&expr.BuildError{Op: expr.OpMax, Err: expr.ErrInvalidValue, Msg: "polygon needs at least 3 sides"})
		return expr.Tree{}
	}
	apothem := b.MulC(r, math.Cos(math.Pi/float64(n)))
	half := b.Sub(b.Y(), apothem)
	sides := []expr.Tree{half}
	origin := V3(b, 0, 0, 0)
	for i := 1; i < n; i++ {
		angle := b.C(2 * math.Pi * float64(i) / float64(n))
		sides = append(sides, RotateZ(b, half, angle, origin))
	}
	zero := b.C(0)
	return Move(b, Intersection(b, sides...), Vec3{center.X, center.Y, zero})
}

// Rectangle with corners lo and hi. The field is exact only inside.
func Rectangle(b *expr.Builder, lo, hi Vec2) expr.Tree {
	x, y := b.X(), b.Y()
	return b.MaxOf(b.Sub(lo.X, x), b.Sub(x, hi.X), b.Sub(lo.Y, y), b.Sub(y, hi.Y))
}

// RoundedRectangle is a rectangle whose corners are rounded with radius r.
func RoundedRectangle(b *expr.Builder, lo, hi Vec2, r expr.Tree) expr.Tree {
	return Union(b,
		Rectangle(b, Vec2{lo.X, b.Add(lo.Y, r)}, Vec2{hi.X, b.Sub(hi.Y, r)}),
		Rectangle(b, Vec2{b.Add(lo.X, r), lo.Y}, Vec2{b.Sub(hi.X, r), hi.Y}),
		Circle(b, r, Vec2{b.Add(lo.X, r), b.Add(lo.Y, r)}),
		Circle(b, r, Vec2{b.Sub(hi.X, r), b.Sub(hi.Y, r)}),
		Circle(b, r, Vec2{b.Add(lo.X, r), b.Sub(hi.Y, r)}),
		Circle(b, r, Vec2{b.Sub(hi.X, r), b.Add(lo.Y, r)}),
	)
}

// RectangleExact is a rectangle with a true distance field.
func RectangleExact(b *expr.Builder, lo, hi Vec2) expr.Tree {
	return RectangleCenteredExact(b, sub2(b, hi, lo), scale2(b, add2(b, lo, hi), 0.5))
}

// RectangleCenteredExact is a rectangle of the given size centered on
// center, with a true distance field.
func RectangleCenteredExact(b *expr.Builder, size, center Vec2) expr.Tree {
	dx := b.Sub(b.Abs(b.Sub(b.X(), center.X)), b.MulC(size.X, 0.5))
	dy := b.Sub(b.Abs(b.Sub(b.Y(), center.Y)), b.MulC(size.Y, 0.5))
	zero := b.C(0)
	outside := b.Hypot2(b.Max(dx, zero), b.Max(dy, zero))
	inside := b.Min(b.Max(dx, dy), zero)
	return b.Add(outside, inside)
}

// Triangle with vertices p, q and r in either winding.
func Triangle(b *expr.Builder, p, q, r Vec2) expr.Tree {
	// edge is negative to the left of p→q.
	edge := func(p, q Vec2) expr.Tree {
		dx, dy := b.Sub(q.X, p.X), b.Sub(q.Y, p.Y)
		cross := b.Sub(b.Mul(dy, b.Sub(b.X(), p.X)), b.Mul(dx, b.Sub(b.Y(), p.Y)))
		return b.Div(cross, b.Hypot2(dx, dy))
	}
	ccw := Intersection(b, edge(p, q), edge(q, r), edge(r, p))
	cw := Intersection(b, edge(q, p), edge(r, q), edge(p, r))
	return Union(b, ccw, cw)
}
