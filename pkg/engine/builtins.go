package engine

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/chazu/frep/pkg/eval"
	"github.com/chazu/frep/pkg/expr"
	"github.com/chazu/frep/pkg/shapes"
	"github.com/chazu/frep/pkg/simplify"
	zygo "github.com/glycerine/zygomys/zygo"
)

// session is the state shared by the builtins of one evaluation.
type session struct {
	design   *Design
	simplify bool
	log      *slog.Logger
}

// builtin is the body of a builtin; c carries the parsed arguments.
type builtin func(c *call) (zygo.Sexp, error)

// add registers fn under name. zygomys identifiers cannot hold hyphens, so
// the function is registered under the snake_case spelling that
// preprocessSource produces; error messages keep the kebab-case name.
func (s *session) add(env *zygo.Zlisp, name string, fn builtin) {
	env.AddFunction(strings.ReplaceAll(name, "-", "_"),
		func(env *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
			return fn(newCall(s.design.Arena, name, args))
		})
}

// addTree registers a builtin that builds a single tree.
func (s *session) addTree(env *zygo.Zlisp, name string, fn func(c *call) expr.Tree) {
	s.add(env, name, func(c *call) (zygo.Sexp, error) { return c.result(fn(c)) })
}

// registerBuiltins installs the frep builtins into env. Source must be
// run through preprocessSource first so that keywords and kebab-case
// names match what is registered here.
func registerBuiltins(env *zygo.Zlisp, s *session) {
	a := s.design.Arena
	env.AddGlobal("X", &sexpTree{t: a.X()})
	env.AddGlobal("Y", &sexpTree{t: a.Y()})
	env.AddGlobal("Z", &sexpTree{t: a.Z()})
	env.AddGlobal("pi", &zygo.SexpFloat{Val: math.Pi})

	registerArithmetic(env, s)
	registerShapes(env, s)
	registerCSG(env, s)
	registerTransforms(env, s)
	registerDesign(env, s)
}

var unaryBuiltins = map[string]expr.Opcode{
	"neg":    expr.OpNeg,
	"square": expr.OpSquare,
	"sqrt":   expr.OpSqrt,
	"abs":    expr.OpAbs,
	"sin":    expr.OpSin,
	"cos":    expr.OpCos,
	"tan":    expr.OpTan,
	"asin":   expr.OpAsin,
	"acos":   expr.OpAcos,
	"atan":   expr.OpAtan,
	"exp":    expr.OpExp,
	"log":    expr.OpLog,
	"recip":  expr.OpRecip,
}

var binaryBuiltins = map[string]expr.Opcode{
	"div":      expr.OpDiv,
	"atan2":    expr.OpAtan2,
	"pow":      expr.OpPow,
	"nth-root": expr.OpNthRoot,
	"mod":      expr.OpMod,
	"compare":  expr.OpCompare,
	"nan-fill": expr.OpNanFill,
}

func registerArithmetic(env *zygo.Zlisp, s *session) {
	s.addTree(env, "x", func(c *call) expr.Tree { return c.b.X() })
	s.addTree(env, "y", func(c *call) expr.Tree { return c.b.Y() })
	s.addTree(env, "z", func(c *call) expr.Tree { return c.b.Z() })

	// (constant 2.5)
	s.addTree(env, "constant", func(c *call) expr.Tree { return c.tree(0) })

	// (variable "r") or (variable "r" 2.5) to give it a default value.
	s.addTree(env, "variable", func(c *call) expr.Tree {
		name := c.str(0)
		if c.err != nil {
			return expr.Tree{}
		}
		t, err := s.design.variable(name)
		if err != nil {
			c.fail("declare", err)
			return expr.Tree{}
		}
		if c.nargs() > 1 {
			v, err := toFloat64(c.args.positional[1])
			if err != nil {
				c.fail("default", err)
				return expr.Tree{}
			}
			s.design.Values[t.Root().Var()] = v
		}
		return t
	})

	for name, op := range unaryBuiltins {
		s.addTree(env, name, func(c *call) expr.Tree {
			if c.nargs() != 1 {
				c.fail("arguments", fmt.Errorf("%w: want 1, got %d", expr.ErrArity, c.nargs()))
			}
			return c.b.Apply(op, c.tree(0))
		})
	}
	for name, op := range binaryBuiltins {
		s.addTree(env, name, func(c *call) expr.Tree {
			if c.nargs() != 2 {
				c.fail("arguments", fmt.Errorf("%w: want 2, got %d", expr.ErrArity, c.nargs()))
			}
			return c.b.Apply(op, c.tree(0), c.tree(1))
		})
	}

	s.addTree(env, "add", func(c *call) expr.Tree { return c.b.Sum(c.trees(0)...) })
	s.addTree(env, "mul", func(c *call) expr.Tree {
		out := c.b.C(1)
		for _, t := range c.trees(0) {
			out = c.b.Mul(out, t)
		}
		return out
	})
	// (sub a) negates, (sub a b c) subtracts b and c from a.
	s.addTree(env, "sub", func(c *call) expr.Tree {
		switch c.nargs() {
		case 0:
			c.fail("arguments", expr.ErrArity)
			return expr.Tree{}
		case 1:
			return c.b.Neg(c.tree(0))
		}
		out := c.tree(0)
		for _, t := range c.trees(1) {
			out = c.b.Sub(out, t)
		}
		return out
	})
	s.addTree(env, "min", func(c *call) expr.Tree { return c.b.MinOf(c.trees(0)...) })
	s.addTree(env, "max", func(c *call) expr.Tree { return c.b.MaxOf(c.trees(0)...) })

	// (remap t x y z) evaluates t at the point (x, y, z).
	s.addTree(env, "remap", func(c *call) expr.Tree {
		return c.b.Remap(c.tree(0), c.tree(1), c.tree(2), c.tree(3))
	})

	s.add(env, "vec2", func(c *call) (zygo.Sexp, error) {
		v := shapes.Vec2{X: c.tree(0), Y: c.tree(1)}
		if c.err != nil {
			return zygo.SexpNull, c.err
		}
		return &sexpVec2{v: v}, nil
	})
	s.add(env, "vec3", func(c *call) (zygo.Sexp, error) {
		v := shapes.Vec3{X: c.tree(0), Y: c.tree(1), Z: c.tree(2)}
		if c.err != nil {
			return zygo.SexpNull, c.err
		}
		return &sexpVec3{v: v}, nil
	})
}

var (
	origin2 = [2]float64{}
	origin3 = [3]float64{}
)

func registerShapes(env *zygo.Zlisp, s *session) {
	shapes2d := map[string]func(c *call) expr.Tree{
		"circle": func(c *call) expr.Tree {
			return shapes.Circle(c.b, c.kwTree("r", 1), c.kwVec2("center", origin2))
		},
		"ring": func(c *call) expr.Tree {
			return shapes.Ring(c.b, c.kwTree("ro", 1), c.kwTree("ri", 0.5), c.kwVec2("center", origin2))
		},
		"polygon": func(c *call) expr.Tree {
			return shapes.Polygon(c.b, c.kwTree("r", 1), c.kwInt("n", 6), c.kwVec2("center", origin2))
		},
		"rectangle": func(c *call) expr.Tree {
			return shapes.Rectangle(c.b, c.kwVec2("min", [2]float64{-1, -1}), c.kwVec2("max", [2]float64{1, 1}))
		},
		"rounded-rectangle": func(c *call) expr.Tree {
			return shapes.RoundedRectangle(c.b,
				c.kwVec2("min", [2]float64{-1, -1}), c.kwVec2("max", [2]float64{1, 1}), c.kwTree("r", 0.25))
		},
		"rectangle-exact": func(c *call) expr.Tree {
			return shapes.RectangleExact(c.b, c.kwVec2("min", [2]float64{-1, -1}), c.kwVec2("max", [2]float64{1, 1}))
		},
		"rectangle-centered-exact": func(c *call) expr.Tree {
			return shapes.RectangleCenteredExact(c.b, c.kwVec2("size", [2]float64{2, 2}), c.kwVec2("center", origin2))
		},
		"triangle": func(c *call) expr.Tree {
			return shapes.Triangle(c.b,
				c.kwVec2("a", origin2), c.kwVec2("b", [2]float64{1, 0}), c.kwVec2("c", [2]float64{0, 1}))
		},
	}
	shapes3d := map[string]func(c *call) expr.Tree{
		"sphere": func(c *call) expr.Tree {
			return shapes.Sphere(c.b, c.kwTree("r", 1), c.kwVec3("center", origin3))
		},
		"box": func(c *call) expr.Tree {
			return shapes.BoxMitered(c.b, c.kwVec3("min", [3]float64{-1, -1, -1}), c.kwVec3("max", [3]float64{1, 1, 1}))
		},
		"box-centered": func(c *call) expr.Tree {
			return shapes.BoxMiteredCentered(c.b, c.kwVec3("size", [3]float64{2, 2, 2}), c.kwVec3("center", origin3))
		},
		"box-exact": func(c *call) expr.Tree {
			return shapes.BoxExact(c.b, c.kwVec3("min", [3]float64{-1, -1, -1}), c.kwVec3("max", [3]float64{1, 1, 1}))
		},
		"box-exact-centered": func(c *call) expr.Tree {
			return shapes.BoxExactCentered(c.b, c.kwVec3("size", [3]float64{2, 2, 2}), c.kwVec3("center", origin3))
		},
		"rounded-box": func(c *call) expr.Tree {
			return shapes.RoundedBox(c.b,
				c.kwVec3("min", [3]float64{-1, -1, -1}), c.kwVec3("max", [3]float64{1, 1, 1}), c.kwTree("r", 0.25))
		},
		"half-space": func(c *call) expr.Tree {
			return shapes.HalfSpace(c.b, c.kwVec3("norm", [3]float64{0, 0, 1}), c.kwVec3("point", origin3))
		},
		"cylinder-z": func(c *call) expr.Tree {
			return shapes.CylinderZ(c.b, c.kwTree("r", 1), c.kwTree("h", 1), c.kwVec3("base", origin3))
		},
		"cone-z": func(c *call) expr.Tree {
			return shapes.ConeZ(c.b, c.kwTree("r", 1), c.kwTree("h", 1), c.kwVec3("base", origin3))
		},
		"cone-ang-z": func(c *call) expr.Tree {
			return shapes.ConeAngZ(c.b, c.kwTree("angle", math.Pi/6), c.kwTree("h", 1), c.kwVec3("base", origin3))
		},
		"pyramid-z": func(c *call) expr.Tree {
			return shapes.PyramidZ(c.b, c.kwVec2("min", [2]float64{-1, -1}), c.kwVec2("max", [2]float64{1, 1}),
				c.kwTree("zmin", 0), c.kwTree("h", 1))
		},
		"torus-z": func(c *call) expr.Tree {
			return shapes.TorusZ(c.b, c.kwTree("ro", 1), c.kwTree("ri", 0.25), c.kwVec3("center", origin3))
		},
		"gyroid": func(c *call) expr.Tree {
			return shapes.Gyroid(c.b, c.kwVec3("period", [3]float64{1, 1, 1}), c.kwTree("thickness", 0.1))
		},
		"emptiness": func(c *call) expr.Tree { return shapes.Emptiness(c.b) },
	}
	for _, group := range []map[string]func(c *call) expr.Tree{shapes2d, shapes3d} {
		for name, fn := range group {
			s.addTree(env, name, fn)
		}
	}
}

func registerCSG(env *zygo.Zlisp, s *session) {
	s.addTree(env, "union", func(c *call) expr.Tree { return shapes.Union(c.b, c.trees(0)...) })
	s.addTree(env, "intersection", func(c *call) expr.Tree { return shapes.Intersection(c.b, c.trees(0)...) })
	s.addTree(env, "inverse", func(c *call) expr.Tree { return shapes.Inverse(c.b, c.tree(0)) })
	// (difference a cut...)
	s.addTree(env, "difference", func(c *call) expr.Tree {
		return shapes.Difference(c.b, c.tree(0), c.trees(1)...)
	})
	s.addTree(env, "offset", func(c *call) expr.Tree {
		return shapes.Offset(c.b, c.tree(0), c.arg(1, "o", 0))
	})
	s.addTree(env, "clearance", func(c *call) expr.Tree {
		return shapes.Clearance(c.b, c.tree(0), c.tree(1), c.arg(2, "o", 0))
	})
	s.addTree(env, "shell", func(c *call) expr.Tree {
		return shapes.Shell(c.b, c.tree(0), c.arg(1, "o", 0))
	})
	s.addTree(env, "blend", func(c *call) expr.Tree {
		return shapes.Blend(c.b, c.tree(0), c.tree(1), c.arg(2, "m", 0.5))
	})
	s.addTree(env, "morph", func(c *call) expr.Tree {
		return shapes.Morph(c.b, c.tree(0), c.tree(1), c.arg(2, "m", 0.5))
	})
	s.addTree(env, "extrude-z", func(c *call) expr.Tree {
		return shapes.ExtrudeZ(c.b, c.tree(0), c.arg(1, "zmin", 0), c.arg(2, "zmax", 1))
	})
}

func registerTransforms(env *zygo.Zlisp, s *session) {
	// (move t (vec3 dx dy dz)) or (move t :offset (vec3 ...))
	s.addTree(env, "move", func(c *call) expr.Tree {
		return shapes.Move(c.b, c.tree(0), c.argVec3(1, "offset", origin3))
	})

	reflect := map[string]func(*expr.Builder, expr.Tree, expr.Tree) expr.Tree{
		"reflect-x": shapes.ReflectX,
		"reflect-y": shapes.ReflectY,
		"reflect-z": shapes.ReflectZ,
	}
	for name, fn := range reflect {
		s.addTree(env, name, func(c *call) expr.Tree { return fn(c.b, c.tree(0), c.arg(1, "at", 0)) })
	}

	symmetric := map[string]func(*expr.Builder, expr.Tree) expr.Tree{
		"symmetric-x": shapes.SymmetricX,
		"symmetric-y": shapes.SymmetricY,
		"symmetric-z": shapes.SymmetricZ,
	}
	for name, fn := range symmetric {
		s.addTree(env, name, func(c *call) expr.Tree { return fn(c.b, c.tree(0)) })
	}

	rotate := map[string]func(*expr.Builder, expr.Tree, expr.Tree, shapes.Vec3) expr.Tree{
		"rotate-x": shapes.RotateX,
		"rotate-y": shapes.RotateY,
		"rotate-z": shapes.RotateZ,
	}
	for name, fn := range rotate {
		s.addTree(env, name, func(c *call) expr.Tree {
			return fn(c.b, c.tree(0), c.arg(1, "angle", 0), c.kwVec3("center", origin3))
		})
	}

	s.addTree(env, "scale-xyz", func(c *call) expr.Tree {
		return shapes.ScaleXYZ(c.b, c.tree(0), c.argVec3(1, "s", [3]float64{1, 1, 1}), c.kwVec3("center", origin3))
	})
	s.addTree(env, "taper-xyz", func(c *call) expr.Tree {
		return shapes.TaperXYZ(c.b, c.tree(0), c.kwVec3("base", origin3),
			c.kwTree("h", 1), c.kwTree("scale", 1), c.kwTree("base-scale", 1))
	})
	s.addTree(env, "revolve-y", func(c *call) expr.Tree {
		return shapes.RevolveY(c.b, c.tree(0), c.arg(1, "x0", 0))
	})

	s.addTree(env, "array-x", func(c *call) expr.Tree {
		return shapes.ArrayX(c.b, c.tree(0), c.kwInt("n", 2), c.kwTree("dx", 1))
	})
	s.addTree(env, "array-xy", func(c *call) expr.Tree {
		return shapes.ArrayXY(c.b, c.tree(0), c.kwInt("nx", 2), c.kwInt("ny", 2), c.kwVec2("d", [2]float64{1, 1}))
	})
	s.addTree(env, "array-polar-z", func(c *call) expr.Tree {
		return shapes.ArrayPolarZ(c.b, c.tree(0), c.kwInt("n", 4), c.kwVec2("center", origin2))
	})
}

func registerDesign(env *zygo.Zlisp, s *session) {
	d := s.design

	// (defshape "name" tree :min (vec3 ...) :max (vec3 ...))
	s.add(env, "defshape", func(c *call) (zygo.Sexp, error) {
		name := c.str(0)
		t := c.tree(1)
		bounds := c.bounds()
		if c.err != nil {
			return zygo.SexpNull, c.err
		}
		if s.simplify {
			st, err := simplify.Simplify(t)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("defshape: %s: %w", name, err)
			}
			t = st
		}
		if err := d.define(Shape{Name: name, Tree: t, Bounds: bounds}); err != nil {
			return zygo.SexpNull, fmt.Errorf("defshape: %w", err)
		}
		s.log.Debug("shape defined", "name", name, "nodes", t.Size(), "bounded", bounds != nil)
		return &sexpTree{t: t}, nil
	})

	// (shape "name")
	s.add(env, "shape", func(c *call) (zygo.Sexp, error) {
		name := c.str(0)
		if c.err != nil {
			return zygo.SexpNull, c.err
		}
		sh, ok := d.Lookup(name)
		if !ok {
			return zygo.SexpNull, fmt.Errorf("shape: no shape named %q", name)
		}
		return &sexpTree{t: sh.Tree}, nil
	})

	s.add(env, "simplify", func(c *call) (zygo.Sexp, error) {
		t := c.tree(0)
		if c.err != nil {
			return zygo.SexpNull, c.err
		}
		st, err := simplify.Simplify(t)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("simplify: %w", err)
		}
		return &sexpTree{t: st}, nil
	})

	// (sample t (vec3 x y z)) evaluates t at a point.
	s.add(env, "sample", func(c *call) (zygo.Sexp, error) {
		t := c.tree(0)
		p := c.argVec3(1, "at", origin3)
		if c.err != nil {
			return zygo.SexpNull, c.err
		}
		xyz, ok := p.Const()
		if !ok {
			return zygo.SexpNull, fmt.Errorf("sample: point must be constant")
		}
		res, err := eval.Evaluate(t, d.At(xyz[0], xyz[1], xyz[2]), eval.ModeScalar)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sample: %w", err)
		}
		return &zygo.SexpFloat{Val: res.Value}, nil
	})
}

// bounds reads the optional :min and :max keywords of defshape. Both or
// neither must be given, and both must be constant.
func (c *call) bounds() *eval.Box3 {
	_, hasMin := c.args.kw["min"]
	_, hasMax := c.args.kw["max"]
	if !hasMin && !hasMax {
		return nil
	}
	if hasMin != hasMax {
		c.fail("bounds", fmt.Errorf("both :min and :max are required"))
		return nil
	}
	lo, okLo := c.kwVec3("min", origin3).Const()
	hi, okHi := c.kwVec3("max", origin3).Const()
	if c.err != nil {
		return nil
	}
	if !okLo || !okHi {
		c.fail("bounds", fmt.Errorf("corners must be constant"))
		return nil
	}
	for i := range lo {
		if !(lo[i] < hi[i]) {
			c.fail("bounds", fmt.Errorf("min %v is not below max %v", lo, hi))
			return nil
		}
	}
	box := eval.NewBox3(lo, hi)
	return &box
}
