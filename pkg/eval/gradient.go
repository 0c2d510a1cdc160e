package eval

import (
	"fmt"
	"math"

	"github.com/chazu/frep/pkg/expr"
)

// Gradient evaluates the tape at c together with the partial derivative
// with respect to X, Y, Z and every free variable.
func (tp *Tape) Gradient(c *Context, opts ...Option) (float64, map[expr.Var]float64, error) {
	o := newOptions(opts)
	vals, err := tp.bindValues(c)
	if err != nil {
		return 0, nil, err
	}

	nv := len(tp.vars)
	slots := make([]float64, len(tp.instrs))
	grads := make([]float64, len(tp.instrs)*nv)
	for i, in := range tp.instrs {
		g := grads[i*nv : (i+1)*nv]
		switch in.op {
		case expr.OpConst:
			slots[i] = in.value
			continue
		case expr.OpVarX, expr.OpVarY, expr.OpVarZ, expr.OpVarFree:
			slots[i] = vals[in.slot]
			g[in.slot] = 1
			continue
		}

		a, b := slots[in.a], 0.0
		da := grads[int(in.a)*nv : (int(in.a)+1)*nv]
		var db []float64
		if in.b >= 0 {
			b = slots[in.b]
			db = grads[int(in.b)*nv : (int(in.b)+1)*nv]
		}
		r, ok := expr.Fold(in.op, a, b)
		if !ok && o.policy == PolicyError {
			return r, nil, domainError(in.op, a, b)
		}
		slots[i] = r
		for k := range g {
			var dbk float64
			if db != nil {
				dbk = db[k]
			}
			g[k] = derivative(in.op, a, b, r, da[k], dbk)
		}
	}

	last := len(tp.instrs) - 1
	out := make(map[expr.Var]float64, nv)
	for k, v := range tp.vars {
		out[v] = grads[last*nv+k]
	}
	return slots[last], out, nil
}

// scaled returns d·s, treating a zero d as exact so that an infinite or
// undefined local slope contributes nothing along directions the operand
// does not move in.
func scaled(d, s float64) float64 {
	if d == 0 {
		return 0
	}
	return d * s
}

// derivative applies the chain rule for op with operands a, b, result r
// and operand derivatives da, db along one variable.
func derivative(op expr.Opcode, a, b, r, da, db float64) float64 {
	switch op {
	case expr.OpSquare:
		return scaled(da, 2*a)
	case expr.OpSqrt:
		return scaled(da, 0.5/r)
	case expr.OpNeg:
		return -da
	case expr.OpSin:
		return scaled(da, math.Cos(a))
	case expr.OpCos:
		return scaled(da, -math.Sin(a))
	case expr.OpTan:
		c := math.Cos(a)
		return scaled(da, 1/(c*c))
	case expr.OpAsin:
		return scaled(da, 1/math.Sqrt(1-a*a))
	case expr.OpAcos:
		return scaled(da, -1/math.Sqrt(1-a*a))
	case expr.OpAtan:
		return scaled(da, 1/(1+a*a))
	case expr.OpExp:
		return scaled(da, r)
	case expr.OpLog:
		return scaled(da, 1/a)
	case expr.OpAbs:
		if a < 0 {
			return -da
		}
		return da
	case expr.OpRecip:
		return scaled(da, -1/(a*a))
	case expr.OpConstVar, expr.OpCompare:
		return 0
	case expr.OpAdd:
		return da + db
	case expr.OpSub:
		return da - db
	case expr.OpMul:
		return scaled(da, b) + scaled(db, a)
	case expr.OpDiv:
		return scaled(da, 1/b) - scaled(db, a/(b*b))
	case expr.OpMin:
		if a <= b || math.IsNaN(a) {
			return da
		}
		return db
	case expr.OpMax:
		if a >= b || math.IsNaN(a) {
			return da
		}
		return db
	case expr.OpAtan2:
		// a is y, b is x.
		den := a*a + b*b
		if den == 0 {
			return 0
		}
		return scaled(da, b/den) - scaled(db, a/den)
	case expr.OpPow:
		d := scaled(da, b*math.Pow(a, b-1))
		if a > 0 {
			d += scaled(db, r*math.Log(a))
		}
		return d
	case expr.OpNthRoot:
		return scaled(da, r/(b*a))
	case expr.OpMod:
		return da - scaled(db, math.Floor(a/b))
	case expr.OpNanFill:
		if math.IsNaN(a) {
			return db
		}
		return da
	}
	panic(fmt.Sprintf("eval: gradient of %s", op))
}
