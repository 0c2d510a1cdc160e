package engine

import (
	"fmt"
	"math"
	"strings"

	"github.com/chazu/frep/pkg/expr"
	"github.com/chazu/frep/pkg/shapes"
	zygo "github.com/glycerine/zygomys/zygo"
)

// sexpTree carries an expression tree between builtins.
type sexpTree struct {
	t expr.Tree
}

func (s *sexpTree) SexpString(ps *zygo.PrintState) string { return s.t.String() }
func (s *sexpTree) Type() *zygo.RegisteredType            { return nil }

// sexpVec2 carries a pair of trees, built by vec2.
type sexpVec2 struct {
	v shapes.Vec2
}

func (s *sexpVec2) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec2 %s %s)", s.v.X, s.v.Y)
}
func (s *sexpVec2) Type() *zygo.RegisteredType { return nil }

// sexpVec3 carries a triple of trees, built by vec3.
type sexpVec3 struct {
	v shapes.Vec3
}

func (s *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %s %s %s)", s.v.X, s.v.Y, s.v.Z)
}
func (s *sexpVec3) Type() *zygo.RegisteredType { return nil }

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW reports the keyword name of a preprocessed keyword string.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return str.S[len(kwPrefix):], true
}

// kwArgs is an argument list split into keyword and positional parts.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i++
		} else {
			result.kw[name] = zygo.SexpNull
		}
	}
	return result
}

func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

func toInt(s zygo.Sexp) (int, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return int(v.Val), nil
	case *zygo.SexpFloat:
		if v.Val == math.Trunc(v.Val) {
			return int(v.Val), nil
		}
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toTree accepts a tree or a number; numbers become constants in a.
func toTree(a *expr.Arena, s zygo.Sexp) (expr.Tree, error) {
	if t, ok := s.(*sexpTree); ok {
		if t.t.Arena() != a {
			return expr.Tree{}, expr.ErrArenaMismatch
		}
		return t.t, nil
	}
	f, err := toFloat64(s)
	if err != nil {
		return expr.Tree{}, fmt.Errorf("expected tree or number, got %T (%s)", s, s.SexpString(nil))
	}
	return a.Const(f)
}

// toVec3 accepts a vec3 or a list or array of three trees or numbers.
func toVec3(a *expr.Arena, s zygo.Sexp) (shapes.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.v, nil
	}
	ts, err := toTrees(a, s, 3)
	if err != nil {
		return shapes.Vec3{}, fmt.Errorf("expected vec3: %w", err)
	}
	return shapes.Vec3{X: ts[0], Y: ts[1], Z: ts[2]}, nil
}

// toVec2 accepts a vec2 or a list or array of two trees or numbers.
func toVec2(a *expr.Arena, s zygo.Sexp) (shapes.Vec2, error) {
	if v, ok := s.(*sexpVec2); ok {
		return v.v, nil
	}
	ts, err := toTrees(a, s, 2)
	if err != nil {
		return shapes.Vec2{}, fmt.Errorf("expected vec2: %w", err)
	}
	return shapes.Vec2{X: ts[0], Y: ts[1]}, nil
}

func toTrees(a *expr.Arena, s zygo.Sexp, n int) ([]expr.Tree, error) {
	items, err := sexpListToSlice(s)
	if err != nil {
		return nil, err
	}
	if len(items) != n {
		return nil, fmt.Errorf("want %d components, got %d", n, len(items))
	}
	ts := make([]expr.Tree, n)
	for i, item := range items {
		if ts[i], err = toTree(a, item); err != nil {
			return nil, err
		}
	}
	return ts, nil
}

// sexpListToSlice converts a list or array to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// call reads the arguments of one builtin invocation. The first failure
// is kept; later reads return zero values.
type call struct {
	name string
	b    *expr.Builder
	args kwArgs
	err  error
}

func newCall(a *expr.Arena, name string, args []zygo.Sexp) *call {
	return &call{name: name, b: expr.NewBuilder(a), args: parseArgs(args)}
}

func (c *call) fail(what string, err error) {
	if c.err == nil {
		c.err = fmt.Errorf("%s: %s: %w", c.name, what, err)
	}
}

func (c *call) arena() *expr.Arena { return c.b.Arena() }

// nargs is the number of positional arguments.
func (c *call) nargs() int { return len(c.args.positional) }

// tree returns positional argument i as a tree.
func (c *call) tree(i int) expr.Tree {
	if i >= len(c.args.positional) {
		c.fail(fmt.Sprintf("argument %d", i+1), expr.ErrArity)
		return expr.Tree{}
	}
	t, err := toTree(c.arena(), c.args.positional[i])
	if err != nil {
		c.fail(fmt.Sprintf("argument %d", i+1), err)
	}
	return t
}

// trees returns every positional argument from i on as trees.
func (c *call) trees(from int) []expr.Tree {
	var ts []expr.Tree
	for i := from; i < len(c.args.positional); i++ {
		ts = append(ts, c.tree(i))
	}
	return ts
}

// kwTree returns keyword kw as a tree, or the constant def when absent.
func (c *call) kwTree(kw string, def float64) expr.Tree {
	s, ok := c.args.kw[kw]
	if !ok {
		return c.b.C(def)
	}
	t, err := toTree(c.arena(), s)
	if err != nil {
		c.fail(kw, err)
	}
	return t
}

func (c *call) kwInt(kw string, def int) int {
	s, ok := c.args.kw[kw]
	if !ok {
		return def
	}
	n, err := toInt(s)
	if err != nil {
		c.fail(kw, err)
	}
	return n
}

func (c *call) kwVec3(kw string, def [3]float64) shapes.Vec3 {
	s, ok := c.args.kw[kw]
	if !ok {
		return shapes.V3(c.b, def[0], def[1], def[2])
	}
	v, err := toVec3(c.arena(), s)
	if err != nil {
		c.fail(kw, err)
	}
	return v
}

func (c *call) kwVec2(kw string, def [2]float64) shapes.Vec2 {
	s, ok := c.args.kw[kw]
	if !ok {
		return shapes.V2(c.b, def[0], def[1])
	}
	v, err := toVec2(c.arena(), s)
	if err != nil {
		c.fail(kw, err)
	}
	return v
}

// arg reads a parameter given either as positional argument i or as
// keyword kw.
func (c *call) arg(i int, kw string, def float64) expr.Tree {
	if i < len(c.args.positional) {
		return c.tree(i)
	}
	return c.kwTree(kw, def)
}

func (c *call) argVec3(i int, kw string, def [3]float64) shapes.Vec3 {
	if i >= len(c.args.positional) {
		return c.kwVec3(kw, def)
	}
	v, err := toVec3(c.arena(), c.args.positional[i])
	if err != nil {
		c.fail(kw, err)
	}
	return v
}

// str returns positional argument i as a string.
func (c *call) str(i int) string {
	if i >= len(c.args.positional) {
		c.fail(fmt.Sprintf("argument %d", i+1), expr.ErrArity)
		return ""
	}
	s, err := toString(c.args.positional[i])
	if err != nil {
		c.fail(fmt.Sprintf("argument %d", i+1), err)
	}
	return s
}

// result wraps t, reporting any argument or build failure.
func (c *call) result(t expr.Tree) (zygo.Sexp, error) {
	if c.err != nil {
		return zygo.SexpNull, c.err
	}
	t, err := c.b.Result(t)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("%s: %w", c.name, err)
	}
	return &sexpTree{t: t}, nil
}
