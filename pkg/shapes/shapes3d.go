package shapes

import (
	"math"

	"github.com/chazu/frep/pkg/expr"
)

// Sphere of radius r.
func Sphere(b *expr.Builder, r expr.Tree, center Vec3) expr.Tree {
	d := sub3(b, axes(b), center)
	return b.Sub(b.Hypot3(d.X, d.Y, d.Z), r)
}

// BoxMitered is the box with corners lo and hi. Its field is the largest
// face distance, so offsets of it keep sharp edges.
func BoxMitered(b *expr.Builder, lo, hi Vec3) expr.Tree {
	return ExtrudeZ(b, Rectangle(b, lo.XY(), hi.XY()), lo.Z, hi.Z)
}

// BoxMiteredCentered is BoxMitered of the given size around center.
func BoxMiteredCentered(b *expr.Builder, size, center Vec3) expr.Tree {
	half := scale3(b, size, 0.5)
	return BoxMitered(b, sub3(b, center, half), add3(b, center, half))
}

// BoxExactCentered is a box of the given size around center with a true
// distance field.
func BoxExactCentered(b *expr.Builder, size, center Vec3) expr.Tree {
	p := sub3(b, axes(b), center)
	dx := b.Sub(b.Abs(p.X), b.MulC(size.X, 0.5))
	dy := b.Sub(b.Abs(p.Y), b.MulC(size.Y, 0.5))
	dz := b.Sub(b.Abs(p.Z), b.MulC(size.Z, 0.5))
	zero := b.C(0)
	outside := b.Hypot3(b.Max(dx, zero), b.Max(dy, zero), b.Max(dz, zero))
	inside := b.Min(b.MaxOf(dx, dy, dz), zero)
	return b.Add(outside, inside)
}

// BoxExact is the box with corners lo and hi and a true distance field.
func BoxExact(b *expr.Builder, lo, hi Vec3) expr.Tree {
	return BoxExactCentered(b, sub3(b, hi, lo), scale3(b, add3(b, lo, hi), 0.5))
}

// RoundedBox is the box with corners lo and hi whose edges are rounded
// with radius r.
func RoundedBox(b *expr.Builder, lo, hi Vec3, r expr.Tree) expr.Tree {
	rv := Vec3{r, r, r}
	return Offset(b, BoxExact(b, add3(b, lo, rv), sub3(b, hi, rv)), r)
}

// HalfSpace is everything behind the plane through point with outward
// normal norm.
func HalfSpace(b *expr.Builder, norm, point Vec3) expr.Tree {
	d := sub3(b, axes(b), point)
	dot := b.Sum(b.Mul(d.X, norm.X), b.Mul(d.Y, norm.Y), b.Mul(d.Z, norm.Z))
	return b.Div(dot, b.Hypot3(norm.X, norm.Y, norm.Z))
}

// CylinderZ is a cylinder of radius r standing on base with height h.
func CylinderZ(b *expr.Builder, r, h expr.Tree, base Vec3) expr.Tree {
	return ExtrudeZ(b, Circle(b, r, base.XY()), base.Z, b.Add(base.Z, h))
}

// ConeAngZ is a cone standing on base with its apex h above it and the
// given half-angle at the apex.
func ConeAngZ(b *expr.Builder, angle, h expr.Tree, base Vec3) expr.Tree {
	p := sub3(b, axes(b), base)
	rho := b.Hypot2(p.X, p.Y)
	side := b.Add(b.Mul(b.Cos(angle), rho), b.Mul(b.Sin(angle), b.Sub(p.Z, h)))
	return b.Max(b.Neg(p.Z), side)
}

// ConeZ is a cone of base radius r and height h standing on base.
func ConeZ(b *expr.Builder, r, h expr.Tree, base Vec3) expr.Tree {
	return ConeAngZ(b, b.Atan2(r, h), h, base)
}

// PyramidZ is a pyramid over the rectangle lo-hi at height zmin with its
// apex h above the rectangle's center.
func PyramidZ(b *expr.Builder, lo, hi Vec2, zmin, h expr.Tree) expr.Tree {
	c := scale2(b, add2(b, lo, hi), 0.5)
	half := scale2(b, sub2(b, hi, lo), 0.5)
	dz := b.Sub(b.Z(), zmin)
	// face is the signed distance to the slanted face over the edge at
	// distance w from the center along u.
	face := func(u, w expr.Tree) expr.Tree {
		n := b.Sub(b.Add(b.Mul(u, h), b.Mul(dz, w)), b.Mul(w, h))
		return b.Div(n, b.Hypot2(h, w))
	}
	ux, uy := b.Sub(b.X(), c.X), b.Sub(b.Y(), c.Y)
	return b.MaxOf(
		b.Neg(dz),
		face(ux, half.X), face(b.Neg(ux), half.X),
		face(uy, half.Y), face(b.Neg(uy), half.Y),
	)
}

// TorusZ is a torus around the z axis through center with major radius ro
// and tube radius ri.
func TorusZ(b *expr.Builder, ro, ri expr.Tree, center Vec3) expr.Tree {
	p := sub3(b, axes(b), center)
	ring := b.Sub(b.Hypot2(p.X, p.Y), ro)
	return b.Sub(b.Hypot2(ring, p.Z), ri)
}

// Gyroid is a triply periodic minimal surface thickened into a wall.
func Gyroid(b *expr.Builder, period Vec3, thickness expr.Tree) expr.Tree {
	tau := b.C(2 * math.Pi)
	px := b.Div(b.Mul(b.X(), tau), period.X)
	py := b.Div(b.Mul(b.Y(), tau), period.Y)
	pz := b.Div(b.Mul(b.Z(), tau), period.Z)
	g := b.Sum(
		b.Mul(b.Sin(px), b.Cos(py)),
		b.Mul(b.Sin(py), b.Cos(pz)),
		b.Mul(b.Sin(pz), b.Cos(px)),
	)
	return Shell(b, g, b.Neg(thickness))
}

// Emptiness contains no points.
func Emptiness(b *expr.Builder) expr.Tree { return b.C(math.MaxFloat32) }
