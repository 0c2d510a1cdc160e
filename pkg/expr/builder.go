package expr

// Builder is a convenience wrapper over the combinators that records the
// first error instead of returning it from every call. After an error all
// further calls return the zero Tree, and Err reports what went wrong.
// Shape formulas are written against a Builder so they read like math.
//
// A Builder is not safe for concurrent use; create one per goroutine.
// Several Builders may share an Arena.
type Builder struct {
	arena *Arena
	err   error
}

// NewBuilder returns a Builder over a.
func NewBuilder(a *Arena) *Builder {
	return &Builder{arena: a}
}

// Arena returns the arena trees are built in.
func (b *Builder) Arena() *Arena { return b.arena }

// Err returns the first error encountered, or nil.
func (b *Builder) Err() error { return b.err }

// Fail records err unless an earlier error is already recorded.
func (b *Builder) Fail(err error) {
	if b.err == nil && err != nil {
		b.err = err
	}
}

// Result returns t together with the recorded error.
func (b *Builder) Result(t Tree) (Tree, error) {
	if b.err != nil {
		return Tree{}, b.err
	}
	return t, nil
}

func (b *Builder) check(t Tree, err error) Tree {
	if err != nil {
		b.Fail(err)
		return Tree{}
	}
	return t
}

// X returns the X axis.
func (b *Builder) X() Tree { return b.arena.X() }

// Y returns the Y axis.
func (b *Builder) Y() Tree { return b.arena.Y() }

// Z returns the Z axis.
func (b *Builder) Z() Tree { return b.arena.Z() }

// C interns a constant.
func (b *Builder) C(v float64) Tree {
	if b.err != nil {
		return Tree{}
	}
	return b.check(b.arena.Const(v))
}

// Var declares a fresh free variable.
func (b *Builder) Var(name string) Tree {
	if b.err != nil {
		return Tree{}
	}
	return b.check(b.arena.Var(name))
}

// Apply builds op over args.
func (b *Builder) Apply(op Opcode, args ...Tree) Tree {
	if b.err != nil {
		return Tree{}
	}
	return b.check(Apply(op, args...))
}

func (b *Builder) Add(x, y Tree) Tree     { return b.Apply(OpAdd, x, y) }
func (b *Builder) Sub(x, y Tree) Tree     { return b.Apply(OpSub, x, y) }
func (b *Builder) Mul(x, y Tree) Tree     { return b.Apply(OpMul, x, y) }
func (b *Builder) Div(x, y Tree) Tree     { return b.Apply(OpDiv, x, y) }
func (b *Builder) Min(x, y Tree) Tree     { return b.Apply(OpMin, x, y) }
func (b *Builder) Max(x, y Tree) Tree     { return b.Apply(OpMax, x, y) }
func (b *Builder) Atan2(y, x Tree) Tree   { return b.Apply(OpAtan2, y, x) }
func (b *Builder) Pow(x, e Tree) Tree     { return b.Apply(OpPow, x, e) }
func (b *Builder) NthRoot(x, n Tree) Tree { return b.Apply(OpNthRoot, x, n) }
func (b *Builder) Mod(x, m Tree) Tree     { return b.Apply(OpMod, x, m) }
func (b *Builder) Compare(x, y Tree) Tree { return b.Apply(OpCompare, x, y) }

func (b *Builder) Neg(x Tree) Tree    { return b.Apply(OpNeg, x) }
func (b *Builder) Square(x Tree) Tree { return b.Apply(OpSquare, x) }
func (b *Builder) Sqrt(x Tree) Tree   { return b.Apply(OpSqrt, x) }
func (b *Builder) Abs(x Tree) Tree    { return b.Apply(OpAbs, x) }
func (b *Builder) Sin(x Tree) Tree    { return b.Apply(OpSin, x) }
func (b *Builder) Cos(x Tree) Tree    { return b.Apply(OpCos, x) }
func (b *Builder) Atan(x Tree) Tree   { return b.Apply(OpAtan, x) }
func (b *Builder) Exp(x Tree) Tree    { return b.Apply(OpExp, x) }
func (b *Builder) Log(x Tree) Tree    { return b.Apply(OpLog, x) }

// AddC returns x + c.
func (b *Builder) AddC(x Tree, c float64) Tree { return b.Add(x, b.C(c)) }

// SubC returns x - c.
func (b *Builder) SubC(x Tree, c float64) Tree { return b.Sub(x, b.C(c)) }

// MulC returns x * c.
func (b *Builder) MulC(x Tree, c float64) Tree { return b.Mul(x, b.C(c)) }

// Hypot2 returns sqrt(x² + y²).
func (b *Builder) Hypot2(x, y Tree) Tree {
	return b.Sqrt(b.Add(b.Square(x), b.Square(y)))
}

// Hypot3 returns sqrt(x² + y² + z²).
func (b *Builder) Hypot3(x, y, z Tree) Tree {
	return b.Sqrt(b.Add(b.Add(b.Square(x), b.Square(y)), b.Square(z)))
}

// Sum folds Add over ts. An empty list is the constant 0.
func (b *Builder) Sum(ts ...Tree) Tree {
	if len(ts) == 0 {
		return b.C(0)
	}
	out := ts[0]
	for _, t := range ts[1:] {
		out = b.Add(out, t)
	}
	return out
}

// MinOf folds Min over ts. At least one operand is required.
func (b *Builder) MinOf(ts ...Tree) Tree {
	if len(ts) == 0 {
		b.Fail(buildErr(OpMin, ErrArity, "need at least one operand"))
		return Tree{}
	}
	out := ts[0]
	for _, t := range ts[1:] {
		out = b.Min(out, t)
	}
	return out
}

// MaxOf folds Max over ts. At least one operand is required.
func (b *Builder) MaxOf(ts ...Tree) Tree {
	if len(ts) == 0 {
		b.Fail(buildErr(OpMax, ErrArity, "need at least one operand"))
		return Tree{}
	}
	out := ts[0]
	for _, t := range ts[1:] {
		out = b.Max(out, t)
	}
	return out
}

// Remap substitutes x, y and z for the axes of t.
func (b *Builder) Remap(t, x, y, z Tree) Tree {
	if b.err != nil {
		return Tree{}
	}
	return b.check(Remap(t, x, y, z))
}

// RemapAffine evaluates t at m(p).
func (b *Builder) RemapAffine(t Tree, m Affine) Tree {
	if b.err != nil {
		return Tree{}
	}
	return b.check(RemapAffine(t, m))
}

// Shift moves t by (dx, dy, dz).
func (b *Builder) Shift(t Tree, dx, dy, dz float64) Tree {
	if b.err != nil {
		return Tree{}
	}
	return b.check(Shift(t, dx, dy, dz))
}

// Scale scales t by (sx, sy, sz).
func (b *Builder) Scale(t Tree, sx, sy, sz float64) Tree {
	if b.err != nil {
		return Tree{}
	}
	return b.check(Scale(t, sx, sy, sz))
}
