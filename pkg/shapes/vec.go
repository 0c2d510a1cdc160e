// Package shapes builds common solids, CSG operations and transforms as
// expression trees. Every constructor is a composition of Builder calls;
// failures are recorded on the Builder.
//
// Parameters are trees so that shapes can be driven by free variables.
// Use V2 and V3 for constant vectors and Builder.C for constant scalars.
package shapes

import "github.com/chazu/frep/pkg/expr"

// Vec2 is a pair of scalar trees.
type Vec2 struct {
	X, Y expr.Tree
}

// Vec3 is a triple of scalar trees.
type Vec3 struct {
	X, Y, Z expr.Tree
}

// V2 returns a constant Vec2.
func V2(b *expr.Builder, x, y float64) Vec2 {
	return Vec2{X: b.C(x), Y: b.C(y)}
}

// V3 returns a constant Vec3.
func V3(b *expr.Builder, x, y, z float64) Vec3 {
	return Vec3{X: b.C(x), Y: b.C(y), Z: b.C(z)}
}

// XY drops the z component.
func (v Vec3) XY() Vec2 { return Vec2{X: v.X, Y: v.Y} }

// Const returns the components when all three are constants.
func (v Vec3) Const() ([3]float64, bool) {
	x, okx := v.X.ConstValue()
	y, oky := v.Y.ConstValue()
	z, okz := v.Z.ConstValue()
	return [3]float64{x, y, z}, okx && oky && okz
}

func add3(b *expr.Builder, u, v Vec3) Vec3 {
	return Vec3{b.Add(u.X, v.X), b.Add(u.Y, v.Y), b.Add(u.Z, v.Z)}
}

func sub3(b *expr.Builder, u, v Vec3) Vec3 {
	return Vec3{b.Sub(u.X, v.X), b.Sub(u.Y, v.Y), b.Sub(u.Z, v.Z)}
}

func scale3(b *expr.Builder, v Vec3, s float64) Vec3 {
	return Vec3{b.MulC(v.X, s), b.MulC(v.Y, s), b.MulC(v.Z, s)}
}

func add2(b *expr.Builder, u, v Vec2) Vec2 {
	return Vec2{b.Add(u.X, v.X), b.Add(u.Y, v.Y)}
}

func sub2(b *expr.Builder, u, v Vec2) Vec2 {
	return Vec2{b.Sub(u.X, v.X), b.Sub(u.Y, v.Y)}
}

func scale2(b *expr.Builder, v Vec2, s float64) Vec2 {
	return Vec2{b.MulC(v.X, s), b.MulC(v.Y, s)}
}

// axes returns the point being evaluated as a Vec3.
func axes(b *expr.Builder) Vec3 { return Vec3{b.X(), b.Y(), b.Z()} }
