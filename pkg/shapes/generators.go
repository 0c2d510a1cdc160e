package shapes

import (
	"math"

	"github.com/chazu/frep/pkg/expr"
)

// ArrayX unions n copies of t spaced dx apart along x.
func ArrayX(b *expr.Builder, t expr.Tree, n int, dx expr.Tree) expr.Tree {
	zero := b.C(0)
	copies := make([]expr.Tree, 0, n)
	for i := 0; i < n; i++ {
		copies = append(copies, Move(b, t, Vec3{b.MulC(dx, float64(i)), zero, zero}))
	}
	return Union(b, copies...)
}

// ArrayXY unions an nx by ny grid of copies of t with spacing d.
func ArrayXY(b *expr.Builder, t expr.Tree, nx, ny int, d Vec2) expr.Tree {
	zero := b.C(0)
	copies := make([]expr.Tree, 0, nx*ny)
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			off := Vec3{b.MulC(d.X, float64(i)), b.MulC(d.Y, float64(j)), zero}
			copies = append(copies, Move(b, t, off))
		}
	}
	return Union(b, copies...)
}

// ArrayPolarZ unions n copies of t rotated evenly about the vertical axis
// through center.
func ArrayPolarZ(b *expr.Builder, t expr.Tree, n int, center Vec2) expr.Tree {
	c := Vec3{center.X, center.Y, b.C(0)}
	copies := make([]expr.Tree, 0, n)
	for i := 0; i < n; i++ {
		angle := b.C(2 * math.Pi * float64(i) / float64(n))
		copies = append(copies, RotateZ(b, t, angle, c))
	}
	return Union(b, copies...)
}
