package shapes

import (
	"math"

	"github.com/chazu/frep/pkg/expr"
)

// remap evaluates t at p.
func remap(b *expr.Builder, t expr.Tree, p Vec3) expr.Tree {
	return b.Remap(t, p.X, p.Y, p.Z)
}

// Move translates t by offset.
func Move(b *expr.Builder, t expr.Tree, offset Vec3) expr.Tree {
	if d, ok := offset.Const(); ok {
		return b.Shift(t, d[0], d[1], d[2])
	}
	return remap(b, t, sub3(b, axes(b), offset))
}

// ReflectX mirrors t across the plane x = x0.
func ReflectX(b *expr.Builder, t, x0 expr.Tree) expr.Tree {
	return b.Remap(t, b.Sub(b.MulC(x0, 2), b.X()), b.Y(), b.Z())
}

// ReflectY mirrors t across the plane y = y0.
func ReflectY(b *expr.Builder, t, y0 expr.Tree) expr.Tree {
	return b.Remap(t, b.X(), b.Sub(b.MulC(y0, 2), b.Y()), b.Z())
}

// ReflectZ mirrors t across the plane z = z0.
func ReflectZ(b *expr.Builder, t, z0 expr.Tree) expr.Tree {
	return b.Remap(t, b.X(), b.Y(), b.Sub(b.MulC(z0, 2), b.Z()))
}

// SymmetricX keeps the +x half of t and mirrors it onto -x.
func SymmetricX(b *expr.Builder, t expr.Tree) expr.Tree {
	return b.Remap(t, b.Abs(b.X()), b.Y(), b.Z())
}

// SymmetricY keeps the +y half of t and mirrors it onto -y.
func SymmetricY(b *expr.Builder, t expr.Tree) expr.Tree {
	return b.Remap(t, b.X(), b.Abs(b.Y()), b.Z())
}

// SymmetricZ keeps the +z half of t and mirrors it onto -z.
func SymmetricZ(b *expr.Builder, t expr.Tree) expr.Tree {
	return b.Remap(t, b.X(), b.Y(), b.Abs(b.Z()))
}

// ScaleXYZ scales t by s about center.
func ScaleXYZ(b *expr.Builder, t expr.Tree, s, center Vec3) expr.Tree {
	sc, ok1 := s.Const()
	c, ok2 := center.Const()
	if ok1 && ok2 && sc[0] != 0 && sc[1] != 0 && sc[2] != 0 {
		var m expr.Affine
		for i := 0; i < 3; i++ {
			m[i*4+i] = 1 / sc[i]
			m[i*4+3] = c[i] - c[i]/sc[i]
		}
		return b.RemapAffine(t, m)
	}
	p := axes(b)
	return remap(b, t, Vec3{
		b.Add(center.X, b.Div(b.Sub(p.X, center.X), s.X)),
		b.Add(center.Y, b.Div(b.Sub(p.Y, center.Y), s.Y)),
		b.Add(center.Z, b.Div(b.Sub(p.Z, center.Z), s.Z)),
	})
}

// rotation samples t at the point rotated by -angle in the (i, j) plane,
// which turns the shape by +angle about center.
func rotation(b *expr.Builder, t, angle expr.Tree, center Vec3, i, j int) expr.Tree {
	if a, ok := angle.ConstValue(); ok {
		if c, ok := center.Const(); ok {
			cos, sin := math.Cos(a), math.Sin(a)
			m := expr.IdentityAffine()
			m[i*4+i], m[i*4+j] = cos, sin
			m[j*4+i], m[j*4+j] = -sin, cos
			// p' = c + R(p - c)
			for _, row := range []int{i, j} {
				m[row*4+3] = c[row] - m[row*4+i]*c[i] - m[row*4+j]*c[j]
			}
			return b.RemapAffine(t, m)
		}
	}
	local := sub3(b, axes(b), center)
	comp := []expr.Tree{local.X, local.Y, local.Z}
	cos, sin := b.Cos(angle), b.Sin(angle)
	ri := b.Add(b.Mul(cos, comp[i]), b.Mul(sin, comp[j]))
	rj := b.Sub(b.Mul(cos, comp[j]), b.Mul(sin, comp[i]))
	comp[i], comp[j] = ri, rj
	return remap(b, t, add3(b, Vec3{comp[0], comp[1], comp[2]}, center))
}

// RotateX turns t by angle radians about the x axis through center.
func RotateX(b *expr.Builder, t, angle expr.Tree, center Vec3) expr.Tree {
	return rotation(b, t, angle, center, 1, 2)
}

// RotateY turns t by angle radians about the y axis through center.
func RotateY(b *expr.Builder, t, angle expr.Tree, center Vec3) expr.Tree {
	return rotation(b, t, angle, center, 2, 0)
}

// RotateZ turns t by angle radians about the z axis through center.
func RotateZ(b *expr.Builder, t, angle expr.Tree, center Vec3) expr.Tree {
	return rotation(b, t, angle, center, 0, 1)
}

// TaperXYZ scales the xy cross-section of t linearly along z: by
// baseScale at base.z and by scale at base.z + height.
func TaperXYZ(b *expr.Builder, t expr.Tree, base Vec3, height, scale, baseScale expr.Tree) expr.Tree {
	dz := b.Sub(b.Z(), base.Z)
	den := b.Add(b.Mul(scale, dz), b.Mul(baseScale, b.Sub(height, dz)))
	s := b.Div(height, den)
	return b.Remap(t,
		b.Add(base.X, b.Mul(b.Sub(b.X(), base.X), s)),
		b.Add(base.Y, b.Mul(b.Sub(b.Y(), base.Y), s)),
		b.Z(),
	)
}

// RevolveY sweeps the 2D profile t around the line x = x0 parallel to the
// y axis.
func RevolveY(b *expr.Builder, t, x0 expr.Tree) expr.Tree {
	zero := b.C(0)
	centered := Move(b, t, Vec3{b.Neg(x0), zero, zero})
	r := b.Hypot2(b.X(), b.Z())
	swept := Union(b,
		b.Remap(centered, r, b.Y(), b.Z()),
		b.Remap(centered, b.Neg(r), b.Y(), b.Z()),
	)
	return Move(b, swept, Vec3{x0, zero, zero})
}
