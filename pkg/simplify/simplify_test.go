package simplify_test

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/frep/pkg/eval"
	"github.com/chazu/frep/pkg/expr"
	"github.com/chazu/frep/pkg/simplify"
)

func TestRules(t *testing.T) {
	a := expr.NewArena()
	b := expr.NewBuilder(a)
	x, y := b.X(), b.Y()

	tests := []struct {
		name string
		in   expr.Tree
		want string
	}{
		{"x-x", b.Sub(b.Sin(x), b.Sin(x)), "0"},
		{"x*0", b.Mul(b.Exp(y), b.C(0)), "0"},
		{"x/x", b.Div(b.Cos(x), b.Cos(x)), "1"},
		{"0/x", b.Div(b.C(0), y), "0"},
		{"x+(-y)", b.Add(x, b.Neg(y)), "(sub x y)"},
		{"x-(-y)", b.Sub(x, b.Neg(y)), "(add x y)"},
		{"(x+1)+2", b.Add(b.AddC(x, 1), b.C(2)), "(add x 3)"},
		{"(x*2)*3", b.Mul(b.MulC(x, 2), b.C(3)), "(mul x 6)"},
		{"abs(square)", b.Abs(b.Square(x)), "(square x)"},
		{"abs(neg)", b.Abs(b.Neg(x)), "(abs x)"},
		{"square(neg)", b.Square(b.Neg(x)), "(square x)"},
		{"neg(sub)", b.Neg(b.Sub(x, y)), "(sub y x)"},
		{"min absorb", b.Min(x, b.Min(x, y)), "(min x y)"},
		{"max absorb", b.Max(b.Max(y, x), x), "(max x y)"},
		{"constant subtree", b.Add(b.Sqrt(b.C(9)), b.Mul(b.C(2), b.C(5))), "13"},
		{"canonical order", b.Add(y, x), "(add x y)"},
		{"remap", b.Shift(b.Square(x), 1, 0, 0), "(square (add x -1))"},
	}
	require.NoError(t, b.Err())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := simplify.Simplify(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestCommutedOperandsDeduplicate(t *testing.T) {
	a := expr.NewArena()
	b := expr.NewBuilder(a)
	p := b.Mul(b.Sin(b.Z()), b.Add(b.Y(), b.X()))
	q := b.Mul(b.Add(b.X(), b.Y()), b.Sin(b.Z()))
	require.NoError(t, b.Err())
	require.False(t, p.Eq(q))

	sp, err := simplify.Simplify(p)
	require.NoError(t, err)
	sq, err := simplify.Simplify(q)
	require.NoError(t, err)
	assert.True(t, sp.Eq(sq), "%s vs %s", sp, sq)
}

func TestDomainErrorsSurvive(t *testing.T) {
	a := expr.NewArena()
	q, err := expr.Div(a.MustConst(1), a.MustConst(0))
	require.NoError(t, err)

	s, err := simplify.Simplify(q)
	require.NoError(t, err)
	_, err = eval.Evaluate(s, &eval.Context{}, eval.ModeScalar)
	assert.ErrorIs(t, err, eval.ErrDomain)
}

func TestStableTies(t *testing.T) {
	a := expr.NewArena()
	b := expr.NewBuilder(a)
	f := b.Min(b.Y(), b.X())
	require.NoError(t, b.Err())

	reordered, err := simplify.Simplify(f)
	require.NoError(t, err)
	assert.Equal(t, "(min x y)", reordered.String())

	kept, err := simplify.Simplify(f, simplify.WithStableTies())
	require.NoError(t, err)
	assert.True(t, kept.Eq(f))

	// The gradient at a tie follows the first operand.
	res, err := eval.Evaluate(kept, eval.At(1, 1, 0), eval.ModeGradient)
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Gradient[expr.VarY])
}

func corpus(b *expr.Builder) map[string]expr.Tree {
	x, y, z := b.X(), b.Y(), b.Z()
	sphere := b.SubC(b.Hypot3(x, y, z), 1)
	box := b.MaxOf(b.SubC(b.Abs(x), 0.5), b.SubC(b.Abs(y), 0.5), b.SubC(b.Abs(z), 0.5))
	return map[string]expr.Tree{
		"csg":      b.Max(b.Min(sphere, b.Shift(box, 0.5, 0, 0)), b.Neg(b.Shift(sphere, 0, 0.7, 0))),
		"noisy":    b.Add(b.Sub(b.Mul(x, b.C(0)), b.Neg(b.Add(b.AddC(y, 1), b.C(2)))), b.Div(b.Sin(z), b.Sin(z))),
		"symmetry": b.Sub(b.Add(b.Square(b.Neg(x)), b.Abs(b.Abs(y))), b.Neg(b.Sub(z, x))),
		"nested":   b.Min(b.Min(x, y), b.Min(b.Min(y, x), z)),
		"scaled":   b.Scale(b.Shift(b.Mul(b.MulC(x, 2), b.C(0.5)), 1, 2, 3), 2, 1, 0.5),
	}
}

func TestIdempotent(t *testing.T) {
	a := expr.NewArena()
	b := expr.NewBuilder(a)
	trees := corpus(b)
	require.NoError(t, b.Err())

	for name, f := range trees {
		t.Run(name, func(t *testing.T) {
			once, err := simplify.Simplify(f)
			require.NoError(t, err)
			twice, err := simplify.Simplify(once)
			require.NoError(t, err)
			assert.Same(t, once.Root(), twice.Root())
			assert.False(t, once.HasRemap())
			assert.LessOrEqual(t, once.Size(), mustFlatten(t, f).Size())
		})
	}
}

func mustFlatten(t *testing.T, f expr.Tree) expr.Tree {
	t.Helper()
	flat, err := expr.Flatten(f)
	require.NoError(t, err)
	return flat
}

func TestEquivalentAtInDomainPoints(t *testing.T) {
	a := expr.NewArena()
	b := expr.NewBuilder(a)
	trees := corpus(b)
	require.NoError(t, b.Err())

	rng := rand.New(rand.NewPCG(7, 11))
	for name, f := range trees {
		t.Run(name, func(t *testing.T) {
			s, err := simplify.Simplify(f)
			require.NoError(t, err)
			before, err := eval.Compile(f)
			require.NoError(t, err)
			after, err := eval.Compile(s)
			require.NoError(t, err)

			for i := 0; i < 200; i++ {
				c := eval.At(rng.Float64()*6-3, rng.Float64()*6-3, rng.Float64()*6-3)
				want, err := before.Scalar(c)
				if err != nil {
					continue
				}
				got, err := after.Scalar(c)
				require.NoError(t, err)
				assert.InDelta(t, want, got, 1e-9*(1+math.Abs(want)))
			}
		})
	}
}
