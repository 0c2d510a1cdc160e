package expr

import "math"

// Affine is a row-major 3x4 matrix mapping a point p to M*p + t:
//
//	x' = m[0]*x + m[1]*y + m[2]*z  + m[3]
//	y' = m[4]*x + m[5]*y + m[6]*z  + m[7]
//	z' = m[8]*x + m[9]*y + m[10]*z + m[11]
//
// RemapAffine(t, m) evaluates t at m(p).
type Affine [12]float64

// IdentityAffine returns the identity transform.
func IdentityAffine() Affine {
	return Affine{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
	}
}

// TranslationAffine returns p + (dx, dy, dz).
func TranslationAffine(dx, dy, dz float64) Affine {
	return Affine{
		1, 0, 0, dx,
		0, 1, 0, dy,
		0, 0, 1, dz,
	}
}

// ScaleAffine returns (sx*x, sy*y, sz*z).
func ScaleAffine(sx, sy, sz float64) Affine {
	return Affine{
		sx, 0, 0, 0,
		0, sy, 0, 0,
		0, 0, sz, 0,
	}
}

// IsIdentity reports whether m maps every point to itself.
func (m Affine) IsIdentity() bool { return m == IdentityAffine() }

// IsFinite reports whether every entry is finite.
func (m Affine) IsFinite() bool {
	for _, v := range m {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Apply maps a point through m.
func (m Affine) Apply(x, y, z float64) (float64, float64, float64) {
	return m[0]*x + m[1]*y + m[2]*z + m[3],
		m[4]*x + m[5]*y + m[6]*z + m[7],
		m[8]*x + m[9]*y + m[10]*z + m[11]
}

// Then returns the transform that applies m first and then n, i.e. n∘m.
func (m Affine) Then(n Affine) Affine {
	var r Affine
	for row := 0; row < 3; row++ {
		for col := 0; col < 4; col++ {
			var s float64
			for k := 0; k < 3; k++ {
				s += n[row*4+k] * m[k*4+col]
			}
			if col == 3 {
				s += n[row*4+3]
			}
			r[row*4+col] = s
		}
	}
	return r
}

func (m Affine) bits() [12]uint64 {
	var b [12]uint64
	for i, v := range m {
		b[i] = math.Float64bits(v)
	}
	return b
}
