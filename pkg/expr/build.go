package expr

import "math"

// Apply builds op over the given operands. It checks the operand count
// against op.Arity and that every operand is a valid tree of one arena,
// folds cheap local identities, and interns the result.
func Apply(op Opcode, args ...Tree) (Tree, error) {
	if !op.Valid() || op.IsLeaf() || op == OpRemapAffine {
		return Tree{}, buildErr(op, ErrArity, "not a unary or binary operation")
	}
	if len(args) != op.Arity() {
		return Tree{}, buildErr(op, ErrArity, "want %d operands, got %d", op.Arity(), len(args))
	}
	a, err := commonArena(op, args...)
	if err != nil {
		return Tree{}, err
	}
	var n *Node
	if op.Arity() == 1 {
		n, err = a.unary(op, args[0].root)
	} else {
		n, err = a.binary(op, args[0].root, args[1].root)
	}
	if err != nil {
		return Tree{}, err
	}
	return Tree{root: n}, nil
}

// commonArena checks that every operand is valid and shares one arena.
func commonArena(op Opcode, args ...Tree) (*Arena, error) {
	var a *Arena
	for i, t := range args {
		if !t.IsValid() {
			return nil, buildErr(op, ErrArity, "operand %d is the zero Tree", i)
		}
		if a == nil {
			a = t.root.arena
		} else if t.root.arena != a {
			return nil, buildErr(op, ErrArenaMismatch, "operand %d", i)
		}
	}
	return a, nil
}

// foldConst interns the folded value when it is finite and in-domain.
func (a *Arena) foldConst(op Opcode, x, y float64) (*Node, bool, error) {
	v, ok := Fold(op, x, y)
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, false, nil
	}
	n, err := a.intern(OpConst, nil, nil, v, 0, nil)
	return n, err == nil, err
}

func (a *Arena) unary(op Opcode, x *Node) (*Node, error) {
	if x.op == OpConst {
		if n, ok, err := a.foldConst(op, x.value, 0); ok || err != nil {
			return n, err
		}
	}
	switch op {
	case OpNeg:
		if x.op == OpNeg {
			return x.lhs, nil
		}
	case OpAbs, OpConstVar:
		if x.op == op {
			return x, nil
		}
	}
	return a.intern(op, x, nil, 0, 0, nil)
}

func (a *Arena) binary(op Opcode, x, y *Node) (*Node, error) {
	if x.op == OpConst && y.op == OpConst {
		if n, ok, err := a.foldConst(op, x.value, y.value); ok || err != nil {
			return n, err
		}
	}
	switch op {
	case OpAdd:
		if y.isConst(0) {
			return x, nil
		}
		if x.isConst(0) {
			return y, nil
		}
	case OpSub:
		if y.isConst(0) {
			return x, nil
		}
		if x.isConst(0) {
			return a.unary(OpNeg, y)
		}
	case OpMul:
		switch {
		case y.isConst(1):
			return x, nil
		case x.isConst(1):
			return y, nil
		case y.isConst(-1):
			return a.unary(OpNeg, x)
		case x.isConst(-1):
			return a.unary(OpNeg, y)
		case x == y:
			return a.unary(OpSquare, x)
		}
	case OpDiv:
		if y.isConst(1) {
			return x, nil
		}
	case OpMin, OpMax:
		if x == y {
			return x, nil
		}
	case OpPow, OpNthRoot:
		if y.isConst(1) {
			return x, nil
		}
	}
	return a.intern(op, x, y, 0, 0, nil)
}

func Add(x, y Tree) (Tree, error)     { return Apply(OpAdd, x, y) }
func Sub(x, y Tree) (Tree, error)     { return Apply(OpSub, x, y) }
func Mul(x, y Tree) (Tree, error)     { return Apply(OpMul, x, y) }
func Div(x, y Tree) (Tree, error)     { return Apply(OpDiv, x, y) }
func Min(x, y Tree) (Tree, error)     { return Apply(OpMin, x, y) }
func Max(x, y Tree) (Tree, error)     { return Apply(OpMax, x, y) }
func Atan2(y, x Tree) (Tree, error)   { return Apply(OpAtan2, y, x) }
func Pow(x, e Tree) (Tree, error)     { return Apply(OpPow, x, e) }
func NthRoot(x, n Tree) (Tree, error) { return Apply(OpNthRoot, x, n) }
func Mod(x, m Tree) (Tree, error)     { return Apply(OpMod, x, m) }
func NanFill(x, y Tree) (Tree, error) { return Apply(OpNanFill, x, y) }
func Compare(x, y Tree) (Tree, error) { return Apply(OpCompare, x, y) }

func Neg(x Tree) (Tree, error)      { return Apply(OpNeg, x) }
func Square(x Tree) (Tree, error)   { return Apply(OpSquare, x) }
func Sqrt(x Tree) (Tree, error)     { return Apply(OpSqrt, x) }
func Abs(x Tree) (Tree, error)      { return Apply(OpAbs, x) }
func Sin(x Tree) (Tree, error)      { return Apply(OpSin, x) }
func Cos(x Tree) (Tree, error)      { return Apply(OpCos, x) }
func Tan(x Tree) (Tree, error)      { return Apply(OpTan, x) }
func Asin(x Tree) (Tree, error)     { return Apply(OpAsin, x) }
func Acos(x Tree) (Tree, error)     { return Apply(OpAcos, x) }
func Atan(x Tree) (Tree, error)     { return Apply(OpAtan, x) }
func Exp(x Tree) (Tree, error)      { return Apply(OpExp, x) }
func Log(x Tree) (Tree, error)      { return Apply(OpLog, x) }
func Recip(x Tree) (Tree, error)    { return Apply(OpRecip, x) }
func ConstVar(x Tree) (Tree, error) { return Apply(OpConstVar, x) }

// RemapAffine returns t evaluated at m(p). An identity matrix returns t
// itself; nested remaps are composed into one node.
func RemapAffine(t Tree, m Affine) (Tree, error) {
	if !t.IsValid() {
		return Tree{}, buildErr(OpRemapAffine, ErrArity, "operand 0 is the zero Tree")
	}
	if !m.IsFinite() {
		return Tree{}, buildErr(OpRemapAffine, ErrInvalidValue, "affine matrix has non-finite entries")
	}
	if m.IsIdentity() || t.root.flags&(flagX|flagY|flagZ) == 0 {
		return t, nil
	}
	if t.root.op == OpRemapAffine {
		return RemapAffine(Tree{root: t.root.lhs}, m.Then(*t.root.affine))
	}
	n, err := t.root.arena.intern(OpRemapAffine, t.root, nil, 0, 0, &m)
	if err != nil {
		return Tree{}, err
	}
	return Tree{root: n}, nil
}

// Shift moves the shape described by t by (dx, dy, dz).
func Shift(t Tree, dx, dy, dz float64) (Tree, error) {
	return RemapAffine(t, TranslationAffine(-dx, -dy, -dz))
}

// Scale scales the shape described by t by (sx, sy, sz) about the origin.
// Zero factors are rejected with ErrInvalidValue.
func Scale(t Tree, sx, sy, sz float64) (Tree, error) {
	if sx == 0 || sy == 0 || sz == 0 {
		return Tree{}, buildErr(OpRemapAffine, ErrInvalidValue, "zero scale factor (%g, %g, %g)", sx, sy, sz)
	}
	return RemapAffine(t, ScaleAffine(1/sx, 1/sy, 1/sz))
}
