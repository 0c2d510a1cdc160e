package engine

import (
	"math"
	"strings"
	"testing"

	"github.com/chazu/frep/pkg/eval"
	"github.com/chazu/frep/pkg/expr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreprocessKeywords(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{"simple keyword", `(sphere :r 2)`, `(sphere "__kw_r" 2)`},
		{"multiple keywords", `(box :min a :max b)`, `(box "__kw_min" a "__kw_max" b)`},
		{"keyword in string preserved", `"thing with :keyword inside"`, `"thing with :keyword inside"`},
		{"escaped quote in string", `"say \":hi\"" :r`, `"say \":hi\"" "__kw_r"`},
		{"backtick string preserved", "`a-b :c`", "`a-b :c`"},
		{"assignment operator preserved", `(def x := 10)`, `(def x := 10)`},
		{"kebab-case identifier", `(rounded-box :base-scale 2)`, `(rounded_box "__kw_base-scale" 2)`},
		{"minus operator preserved", `(- 10 5)`, `(- 10 5)`},
		{"negative literal preserved", `(move s -1)`, `(move s -1)`},
		{"comment converted to // style", `;; comment with :keyword`, `// comment with :keyword`},
		{"single semicolon comment", `; simple comment`, `// simple comment`},
		{"digits in keyword", `:p2`, `"__kw_p2"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, preprocessSource(tt.input))
		})
	}
}

// evalDesign evaluates source and fails the test on any error.
func evalDesign(t *testing.T, source string, opts ...Option) *Design {
	t.Helper()
	d, evalErrs, err := NewEngine(opts...).Evaluate(source)
	require.NoError(t, err)
	require.Empty(t, evalErrs)
	require.NotNil(t, d)
	return d
}

// evalFailure evaluates source, expects a script error and returns its text.
func evalFailure(t *testing.T, source string) string {
	t.Helper()
	d, evalErrs, err := NewEngine().Evaluate(source)
	require.NoError(t, err)
	assert.Nil(t, d)
	require.NotEmpty(t, evalErrs)
	msgs := make([]string, len(evalErrs))
	for i, e := range evalErrs {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "\n")
}

func sampleShape(t *testing.T, d *Design, name string, x, y, z float64) float64 {
	t.Helper()
	s, ok := d.Lookup(name)
	require.True(t, ok, "shape %q", name)
	res, err := eval.Evaluate(s.Tree, d.At(x, y, z), eval.ModeScalar)
	require.NoError(t, err)
	return res.Value
}

func TestSphereAndBox(t *testing.T) {
	d := evalDesign(t, `
; a sphere and a box
(defshape "ball" (sphere :r 1))
(defshape "crate" (box :min (vec3 -1 -1 -1) :max [1 1 1]))
`)
	assert.Equal(t, []string{"ball", "crate"}, d.Names())
	assert.InDelta(t, -1, sampleShape(t, d, "ball", 0, 0, 0), 1e-12)
	assert.InDelta(t, 9, sampleShape(t, d, "ball", 10, 0, 0), 1e-12)
	assert.Less(t, sampleShape(t, d, "crate", 0, 0, 0), 0.0)
	assert.Greater(t, sampleShape(t, d, "crate", 0, 0, 3), 0.0)
}

func TestDefaultsAndKeywords(t *testing.T) {
	d := evalDesign(t, `
(defshape "unit" (sphere))
(defshape "moved" (sphere :r 0.5 :center (vec3 2 0 0)))
(defshape "listed" (sphere :center [0 3 0]))
`)
	assert.InDelta(t, 0, sampleShape(t, d, "unit", 1, 0, 0), 1e-12)
	assert.InDelta(t, -0.5, sampleShape(t, d, "moved", 2, 0, 0), 1e-12)
	assert.InDelta(t, -1, sampleShape(t, d, "listed", 0, 3, 0), 1e-12)
}

func TestArithmeticBuiltins(t *testing.T) {
	d := evalDesign(t, `
(defshape "paraboloid" (sub (add (square X) (mul Y Y)) Z))
(defshape "neg" (sub X))
(defshape "minmax" (max (min X Y) 0.5))
(defshape "trig" (add (sin X) (cos (z)) (atan2 (y) 1)))
(defshape "nth" (nth-root X 3))
`)
	assert.InDelta(t, 3*3+4*4-1, sampleShape(t, d, "paraboloid", 3, 4, 1), 1e-12)
	assert.InDelta(t, -2, sampleShape(t, d, "neg", 2, 0, 0), 1e-12)
	assert.InDelta(t, 1, sampleShape(t, d, "minmax", 1, 2, 0), 1e-12)
	assert.InDelta(t, 0.5, sampleShape(t, d, "minmax", -1, 2, 0), 1e-12)
	assert.InDelta(t, math.Sin(0.3)+math.Cos(0.2)+math.Atan2(0.1, 1), sampleShape(t, d, "trig", 0.3, 0.1, 0.2), 1e-12)
	assert.InDelta(t, 2, sampleShape(t, d, "nth", 8, 0, 0), 1e-12)
}

func TestNumbersPromoteToConstants(t *testing.T) {
	d := evalDesign(t, `(defshape "c" (constant 2.5))`)
	s, _ := d.Lookup("c")
	v, ok := s.Tree.ConstValue()
	require.True(t, ok)
	assert.Equal(t, 2.5, v)
}

func TestInterningAcrossBuiltins(t *testing.T) {
	d := evalDesign(t, `
(defshape "a" (add X 1))
(defshape "b" (add (x) (constant 1)))
`)
	a, _ := d.Lookup("a")
	b, _ := d.Lookup("b")
	assert.True(t, a.Tree.Eq(b.Tree), "equal structure interns to one node")
}

func TestCSGAndTransforms(t *testing.T) {
	d := evalDesign(t, `
(def body (box-exact-centered :size (vec3 2 2 2)))
(defshape "hollow" (difference body (sphere :r 0.8)))
(defshape "pair" (union (sphere :r 0.5) (move (sphere :r 0.5) (vec3 3 0 0))))
(defshape "spun" (rotate-z (box :min (vec3 0 -0.1 -0.1) :max (vec3 2 0.1 0.1)) (div pi 2)))
(defshape "wide" (scale-xyz (sphere) (vec3 2 1 1)))
(defshape "row" (array-x (sphere :r 0.25) :n 3 :dx 1))
`)
	assert.Greater(t, sampleShape(t, d, "hollow", 0, 0, 0), 0.0, "the center is cut away")
	assert.Less(t, sampleShape(t, d, "hollow", 0.9, 0.9, 0), 0.0)

	assert.Less(t, sampleShape(t, d, "pair", 3, 0, 0), 0.0)
	assert.Greater(t, sampleShape(t, d, "pair", 1.5, 0, 0), 0.0)

	assert.Less(t, sampleShape(t, d, "spun", 0, 1, 0), 0.0, "the bar now points along y")
	assert.Greater(t, sampleShape(t, d, "spun", 1, 0, 0), 0.0)

	assert.InDelta(t, 0, sampleShape(t, d, "wide", 2, 0, 0), 1e-12)

	assert.Less(t, sampleShape(t, d, "row", 2, 0, 0), 0.0)
	assert.Greater(t, sampleShape(t, d, "row", 3, 0, 0), 0.0)
}

func TestVariables(t *testing.T) {
	d := evalDesign(t, `
(def r (variable "r" 2))
(defshape "ball" (sphere :r r))
(defshape "again" (sphere :r (variable "r")))
(defshape "free" (sphere :r (variable "k")))
`)
	ball, _ := d.Lookup("ball")
	again, _ := d.Lookup("again")
	assert.True(t, ball.Tree.Eq(again.Tree), "a name declares one variable")

	assert.InDelta(t, -2, sampleShape(t, d, "ball", 0, 0, 0), 1e-12)

	resolved, err := d.Resolve(ball)
	require.NoError(t, err)
	assert.Empty(t, resolved.Vars())

	free, _ := d.Lookup("free")
	_, err = eval.Evaluate(free.Tree, d.At(0, 0, 0), eval.ModeScalar)
	assert.ErrorIs(t, err, eval.ErrUnbound)
}

func TestShapeLookup(t *testing.T) {
	d := evalDesign(t, `
(defshape "base" (sphere))
(defshape "bigger" (offset (shape "base") 1))
`)
	assert.InDelta(t, -2, sampleShape(t, d, "bigger", 0, 0, 0), 1e-12)

	msg := evalFailure(t, `(shape "missing")`)
	assert.Contains(t, msg, "missing")
}

func TestDuplicateShape(t *testing.T) {
	msg := evalFailure(t, `
(defshape "s" (sphere))
(defshape "s" (sphere))
`)
	assert.Contains(t, msg, "already defined")
}

func TestShapeBounds(t *testing.T) {
	d := evalDesign(t, `(defshape "s" (sphere) :min (vec3 -2 -2 -2) :max (vec3 2 2 2))`)
	s, _ := d.Lookup("s")
	require.NotNil(t, s.Bounds)
	assert.Equal(t, [3]float64{-2, -2, -2}, s.Bounds.Min())
	assert.Equal(t, [3]float64{2, 2, 2}, s.Bounds.Max())

	assert.Contains(t, evalFailure(t, `(defshape "s" (sphere) :min (vec3 -2 -2 -2))`), "required")
	assert.Contains(t, evalFailure(t, `(defshape "s" (sphere) :min (vec3 2 2 2) :max (vec3 1 1 1))`), "below")
}

func TestSimplifyBuiltin(t *testing.T) {
	d := evalDesign(t, `(defshape "s" (simplify (add (mul X 2) (mul X 0))))`)
	s, _ := d.Lookup("s")
	assert.Equal(t, "(mul x 2)", s.Tree.String())

	on := evalDesign(t, `(defshape "s" (add (add X 1) -1))`, WithSimplify(true))
	s, _ = on.Lookup("s")
	assert.Equal(t, "x", s.Tree.String())
}

func TestSampleBuiltin(t *testing.T) {
	d := evalDesign(t, `(defshape "c" (constant (sample (sphere :r 2) (vec3 0 0 0))))`)
	s, _ := d.Lookup("c")
	v, ok := s.Tree.ConstValue()
	require.True(t, ok)
	assert.Equal(t, -2.0, v)

	assert.Contains(t, evalFailure(t, `(sample (div 1 X) (vec3 0 0 0))`), "domain")
}

func TestBuiltinErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"polygon with two sides", `(polygon :n 2)`, "polygon"},
		{"empty union", `(union)`, "union"},
		{"bad keyword type", `(sphere :r "big")`, "sphere"},
		{"short vector", `(sphere :center [1 2])`, "center"},
		{"unary arity", `(sqrt X Y)`, "sqrt"},
		{"non-constant sample point", `(sample X (vec3 X 0 0))`, "constant"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, evalFailure(t, tt.source), tt.want)
		})
	}
}

func TestValidate(t *testing.T) {
	d := evalDesign(t, `
(defshape "ok" (sphere))
(defshape "far" (sphere :center (vec3 100 0 0)))
(defshape "flat" (constant 1))
(defshape "loose" (sphere :r (variable "k")))
`)
	r := Validate(d, eval.NewBox3([3]float64{-5, -5, -5}, [3]float64{5, 5, 5}))
	assert.False(t, r.OK())

	require.Len(t, r.Errors, 1)
	assert.Equal(t, "loose", r.Errors[0].Shape)
	assert.Contains(t, r.Errors[0].Message, "k")
	assert.Equal(t, SeverityError, r.Errors[0].Severity)

	byShape := map[string][]string{}
	for _, w := range r.Warnings {
		assert.Equal(t, SeverityWarning, w.Severity)
		byShape[w.Shape] = append(byShape[w.Shape], w.Message)
	}
	assert.NotContains(t, byShape, "ok")
	require.Contains(t, byShape, "far")
	assert.Contains(t, byShape["far"][0], "empty")
	require.Contains(t, byShape, "flat")
	assert.Contains(t, byShape["flat"][0], "does not depend")
}

func TestValidateUsesExplicitBounds(t *testing.T) {
	d := evalDesign(t, `(defshape "inside" (sphere :r 10) :min (vec3 -1 -1 -1) :max (vec3 1 1 1))`)
	r := Validate(d, eval.NewBox3([3]float64{-50, -50, -50}, [3]float64{50, 50, 50}))
	assert.True(t, r.OK())
	require.Len(t, r.Warnings, 1)
	assert.Contains(t, r.Warnings[0].Message, "fills")
	assert.Equal(t, "[warning] shape \"inside\": "+r.Warnings[0].Message, r.Warnings[0].Error())
}

func TestDesignClose(t *testing.T) {
	d := evalDesign(t, `(defshape "s" (sphere))`)
	d.Close()
	assert.True(t, d.Arena.Closed())
	_, err := d.Arena.Const(1)
	assert.ErrorIs(t, err, expr.ErrArenaClosed)
	assert.InDelta(t, -1, sampleShape(t, d, "s", 0, 0, 0), 1e-12, "trees stay evaluable")
}
