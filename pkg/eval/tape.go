package eval

import (
	"math"
	"sync"

	"github.com/chazu/frep/pkg/expr"
)

// instr is one tape slot. Operands refer to earlier slots.
type instr struct {
	op    expr.Opcode
	a, b  int32
	value float64
	slot  int32 // variable index for leaves
}

// Tape is a compiled tree: one instruction per unique node in postorder,
// so every shared subtree is computed once per evaluation. A Tape is
// immutable and may be evaluated from many goroutines at once.
type Tape struct {
	tree   expr.Tree
	instrs []instr
	// vars lists X, Y, Z followed by the free variables of the tree.
	vars  []expr.Var
	names []string
	used  []bool
	free  bool

	scratch sync.Pool
}

// Compile lays the tree out as a Tape. Remap nodes are expanded on the
// tape itself, so compiling never touches the arena and works after the
// arena is closed.
func Compile(t expr.Tree) (*Tape, error) {
	if !t.IsValid() {
		return nil, ErrInvalidTree
	}

	tp := &Tape{tree: t, vars: []expr.Var{expr.VarX, expr.VarY, expr.VarZ}}
	c := compiler{
		tp:      tp,
		varSlot: map[expr.Var]int32{expr.VarX: 0, expr.VarY: 1, expr.VarZ: 2},
		leaves:  make(map[int32]int32),
		consts:  make(map[uint64]int32),
		memo:    make(map[emitKey]int32),
	}
	for _, v := range t.Vars() {
		c.varSlot[v] = int32(len(tp.vars))
		tp.vars = append(tp.vars, v)
		tp.free = true
	}
	tp.names = make([]string, len(tp.vars))
	tp.used = make([]bool, len(tp.vars))
	for i, v := range tp.vars {
		tp.names[i] = t.Arena().VarName(v)
		tp.used[i] = !v.IsAxis()
	}

	c.emit(t.Root(), identityAxes)
	n := len(tp.instrs)
	tp.scratch.New = func() any {
		s := make([]float64, n)
		return &s
	}
	return tp, nil
}

// identityAxes marks the untransformed axes: the instruction for an axis
// is its variable leaf.
var identityAxes = [3]int32{-1, -1, -1}

type emitKey struct {
	n    *expr.Node
	axes [3]int32
}

// compiler appends instructions in dependency order. A node is emitted
// once per distinct set of axis instructions it is evaluated at.
type compiler struct {
	tp      *Tape
	varSlot map[expr.Var]int32
	leaves  map[int32]int32
	consts  map[uint64]int32
	memo    map[emitKey]int32
}

func (c *compiler) push(in instr) int32 {
	c.tp.instrs = append(c.tp.instrs, in)
	return int32(len(c.tp.instrs) - 1)
}

func (c *compiler) constant(v float64) int32 {
	bits := math.Float64bits(v)
	if i, ok := c.consts[bits]; ok {
		return i
	}
	i := c.push(instr{op: expr.OpConst, a: -1, b: -1, value: v})
	c.consts[bits] = i
	return i
}

func (c *compiler) leaf(op expr.Opcode, slot int32) int32 {
	if i, ok := c.leaves[slot]; ok {
		return i
	}
	c.tp.used[slot] = true
	i := c.push(instr{op: op, a: -1, b: -1, slot: slot})
	c.leaves[slot] = i
	return i
}

var axisOps = [3]expr.Opcode{expr.OpVarX, expr.OpVarY, expr.OpVarZ}

func (c *compiler) axis(i int, axes [3]int32) int32 {
	if axes[i] >= 0 {
		return axes[i]
	}
	return c.leaf(axisOps[i], int32(i))
}

func (c *compiler) emit(n *expr.Node, axes [3]int32) int32 {
	t := expr.TreeOf(n)
	if !t.HasRemap() && !t.DependsOn(expr.VarX) && !t.DependsOn(expr.VarY) && !t.DependsOn(expr.VarZ) {
		axes = identityAxes
	}
	k := emitKey{n: n, axes: axes}
	if i, ok := c.memo[k]; ok {
		return i
	}

	var i int32
	switch n.Op() {
	case expr.OpConst:
		i = c.constant(n.Value())
	case expr.OpVarX:
		i = c.axis(0, axes)
	case expr.OpVarY:
		i = c.axis(1, axes)
	case expr.OpVarZ:
		i = c.axis(2, axes)
	case expr.OpVarFree:
		i = c.leaf(expr.OpVarFree, c.varSlot[n.Var()])
	case expr.OpRemapAffine:
		var inner [3]int32
		for row := range inner {
			inner[row] = c.affineRow(n.Affine(), row, axes)
		}
		i = c.emit(n.Lhs(), inner)
	default:
		in := instr{op: n.Op(), a: c.emit(n.Lhs(), axes), b: -1}
		if n.Rhs() != nil {
			in.b = c.emit(n.Rhs(), axes)
		}
		i = c.push(in)
	}
	c.memo[k] = i
	return i
}

// affineRow emits m[row]·(axes, 1), skipping zero coefficients.
func (c *compiler) affineRow(m *expr.Affine, row int, axes [3]int32) int32 {
	sum := int32(-1)
	for col := 0; col < 3; col++ {
		coef := m[row*4+col]
		if coef == 0 {
			continue
		}
		term := c.axis(col, axes)
		if coef != 1 {
			term = c.push(instr{op: expr.OpMul, a: term, b: c.constant(coef)})
		}
		if sum < 0 {
			sum = term
		} else {
			sum = c.push(instr{op: expr.OpAdd, a: sum, b: term})
		}
	}
	offset := m[row*4+3]
	switch {
	case sum < 0:
		return c.constant(offset)
	case offset == 0:
		return sum
	}
	return c.push(instr{op: expr.OpAdd, a: sum, b: c.constant(offset)})
}

// Tree returns the tree the tape was compiled from.
func (tp *Tape) Tree() expr.Tree { return tp.tree }

// Len returns the number of instructions.
func (tp *Tape) Len() int { return len(tp.instrs) }

// Vars returns X, Y, Z followed by the free variables of the tree.
func (tp *Tape) Vars() []expr.Var {
	return append([]expr.Var(nil), tp.vars...)
}

// HasFreeVars reports whether the tree references variables other than
// the axes.
func (tp *Tape) HasFreeVars() bool { return tp.free }

// Unused axes may be left unbound; their slots read as zero.
func (tp *Tape) bindValues(c *Context) ([]float64, error) {
	vals := make([]float64, len(tp.vars))
	for i, v := range tp.vars {
		val, ok := c.value(v)
		if !ok && tp.used[i] {
			return nil, unbound(tp.names[i])
		}
		vals[i] = val
	}
	return vals, nil
}

func (tp *Tape) bindIntervals(c *Context) ([]Interval, error) {
	ivs := make([]Interval, len(tp.vars))
	for i, v := range tp.vars {
		iv, ok := c.interval(v)
		if !ok && tp.used[i] {
			return nil, unbound(tp.names[i])
		}
		ivs[i] = iv
	}
	return ivs, nil
}

// run evaluates the tape over bound variable values using the slots
// scratch buffer.
func (tp *Tape) run(vals, slots []float64, policy DomainPolicy) (float64, error) {
	for i, in := range tp.instrs {
		switch in.op {
		case expr.OpConst:
			slots[i] = in.value
		case expr.OpVarX, expr.OpVarY, expr.OpVarZ, expr.OpVarFree:
			slots[i] = vals[in.slot]
		default:
			a, b := slots[in.a], 0.0
			if in.b >= 0 {
				b = slots[in.b]
			}
			r, ok := expr.Fold(in.op, a, b)
			if !ok && policy == PolicyError {
				return r, domainError(in.op, a, b)
			}
			slots[i] = r
		}
	}
	return slots[len(slots)-1], nil
}

// Scalar evaluates the tape at the values bound in c.
func (tp *Tape) Scalar(c *Context, opts ...Option) (float64, error) {
	o := newOptions(opts)
	vals, err := tp.bindValues(c)
	if err != nil {
		return 0, err
	}
	return tp.eval(vals, o.policy)
}

func (tp *Tape) eval(vals []float64, policy DomainPolicy) (float64, error) {
	sp := tp.scratch.Get().(*[]float64)
	defer tp.scratch.Put(sp)
	return tp.run(vals, *sp, policy)
}

// Point evaluates an axis-only tape at (x, y, z). Domain errors yield NaN.
// Tapes with free variables fail with ErrUnbound.
func (tp *Tape) Point(x, y, z float64) (float64, error) {
	if tp.free {
		return 0, unbound(tp.names[3])
	}
	return tp.eval([]float64{x, y, z}, PolicyNaN)
}

// Interval evaluates a conservative enclosure of the tape over the boxes
// bound in c. Values bound with Context.With act as degenerate intervals.
func (tp *Tape) Interval(c *Context) (Interval, error) {
	ivs, err := tp.bindIntervals(c)
	if err != nil {
		return Interval{}, err
	}
	return tp.runInterval(ivs), nil
}

func (tp *Tape) runInterval(ivs []Interval) Interval {
	slots := make([]Interval, len(tp.instrs))
	for i, in := range tp.instrs {
		switch in.op {
		case expr.OpConst:
			slots[i] = Point(in.value)
		case expr.OpVarX, expr.OpVarY, expr.OpVarZ, expr.OpVarFree:
			slots[i] = ivs[in.slot]
		default:
			var b Interval
			if in.b >= 0 {
				b = slots[in.b]
			}
			slots[i] = applyInterval(in.op, slots[in.a], b)
		}
	}
	return slots[len(slots)-1]
}
