package expr

import (
	"fmt"
	"math"
	"sync"
)

// internKey is the structural identity of a node.
type internKey struct {
	op     Opcode
	lhs    uint32 // child id, 0 for none
	rhs    uint32
	bits   uint64 // float bits of a constant
	v      Var
	affine [12]uint64
}

// Arena owns every Node of a session. Nodes are appended monotonically and
// never reclaimed while the arena is open. The intern table is guarded by a
// mutex so several goroutines may build trees concurrently; interned nodes
// are immutable, so evaluation never needs the lock.
type Arena struct {
	mu     sync.Mutex
	table  map[internKey]*Node
	count  uint32
	names  []string // free variable names, indexed by Var - firstFreeVar
	closed bool

	x, y, z *Node
}

// ArenaOption configures NewArena.
type ArenaOption func(*arenaOptions)

type arenaOptions struct {
	capacity int
}

// WithCapacity pre-sizes the intern table.
func WithCapacity(n int) ArenaOption {
	return func(o *arenaOptions) {
		if n > 0 {
			o.capacity = n
		}
	}
}

// NewArena creates an empty session. The axis leaves are interned eagerly.
func NewArena(opts ...ArenaOption) *Arena {
	o := arenaOptions{capacity: 64}
	for _, opt := range opts {
		opt(&o)
	}
	a := &Arena{table: make(map[internKey]*Node, o.capacity)}
	a.x, _ = a.intern(OpVarX, nil, nil, 0, VarX, nil)
	a.y, _ = a.intern(OpVarY, nil, nil, 0, VarY, nil)
	a.z, _ = a.intern(OpVarZ, nil, nil, 0, VarZ, nil)
	return a
}

// Close ends the session. The intern table is released and every further
// construction fails with ErrArenaClosed; trees built earlier remain
// readable and evaluable.
func (a *Arena) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	a.table = nil
}

// Closed reports whether Close has been called.
func (a *Arena) Closed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closed
}

// Len returns the number of nodes ever interned.
func (a *Arena) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return int(a.count)
}

// X returns the X axis tree.
func (a *Arena) X() Tree { return Tree{root: a.x} }

// Y returns the Y axis tree.
func (a *Arena) Y() Tree { return Tree{root: a.y} }

// Z returns the Z axis tree.
func (a *Arena) Z() Tree { return Tree{root: a.z} }

// Axis returns the tree for an axis variable.
func (a *Arena) Axis(v Var) Tree {
	switch v {
	case VarX:
		return a.X()
	case VarY:
		return a.Y()
	case VarZ:
		return a.Z()
	}
	return Tree{}
}

// Const interns a constant. Non-finite values are rejected with
// ErrInvalidValue.
func (a *Arena) Const(v float64) (Tree, error) {
	n, err := a.intern(OpConst, nil, nil, v, 0, nil)
	if err != nil {
		return Tree{}, err
	}
	return Tree{root: n}, nil
}

// MustConst is like Const but panics on error.
func (a *Arena) MustConst(v float64) Tree {
	t, err := a.Const(v)
	if err != nil {
		panic(err)
	}
	return t
}

// Var allocates a fresh free variable. Every call returns a distinct
// variable, even for equal names.
func (a *Arena) Var(name string) (Tree, error) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return Tree{}, buildErr(OpVarFree, ErrArenaClosed, "declaring %q", name)
	}
	v := firstFreeVar + Var(len(a.names))
	a.names = append(a.names, name)
	a.mu.Unlock()

	n, err := a.intern(OpVarFree, nil, nil, 0, v, nil)
	if err != nil {
		return Tree{}, err
	}
	return Tree{root: n}, nil
}

// VarName returns the declared name of a variable.
func (a *Arena) VarName(v Var) string {
	if v.IsAxis() {
		return v.String()
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	i := int(v - firstFreeVar)
	if i < len(a.names) && a.names[i] != "" {
		return a.names[i]
	}
	return v.String()
}

// intern returns the unique node for the given structure, creating it if
// needed. Children must already belong to a.
func (a *Arena) intern(op Opcode, lhs, rhs *Node, value float64, v Var, aff *Affine) (*Node, error) {
	if op == OpConst && (math.IsNaN(value) || math.IsInf(value, 0)) {
		return nil, buildErr(op, ErrInvalidValue, "constant %v is not finite", value)
	}
	if aff != nil && !aff.IsFinite() {
		return nil, buildErr(op, ErrInvalidValue, "affine matrix has non-finite entries")
	}
	if op.Arity() < 0 {
		return nil, buildErr(op, ErrArity, "unknown opcode %d", uint8(op))
	}
	for _, c := range []*Node{lhs, rhs} {
		if c != nil && c.arena != a {
			return nil, buildErr(op, ErrArenaMismatch, "child %d belongs to another arena", c.id)
		}
	}

	k := internKey{op: op, v: v}
	if op == OpConst {
		k.bits = math.Float64bits(value)
	}
	if lhs != nil {
		k.lhs = lhs.id
	}
	if rhs != nil {
		k.rhs = rhs.id
	}
	if aff != nil {
		k.affine = aff.bits()
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil, buildErr(op, ErrArenaClosed, "")
	}
	if n, ok := a.table[k]; ok {
		return n, nil
	}

	a.count++
	n := &Node{
		op:    op,
		lhs:   lhs,
		rhs:   rhs,
		v:     v,
		id:    a.count,
		arena: a,
	}
	if op == OpConst {
		n.value = value
	}
	if aff != nil {
		m := *aff
		n.affine = &m
		n.flags |= flagRemap
	}
	switch op {
	case OpVarX:
		n.flags |= flagX
	case OpVarY:
		n.flags |= flagY
	case OpVarZ:
		n.flags |= flagZ
	case OpVarFree:
		n.flags |= flagFree
	}
	for _, c := range []*Node{lhs, rhs} {
		if c == nil {
			continue
		}
		n.flags |= c.flags
		if c.height+1 > n.height {
			n.height = c.height + 1
		}
	}
	if op == OpRemapAffine {
		// Axes are rebound below a remap; the mix depends on the matrix.
		n.flags &^= flagX | flagY | flagZ
		n.flags |= affineAxisFlags(aff, lhs.flags)
	}
	a.table[k] = n
	return n, nil
}

// affineAxisFlags reports which outer axes a remapped child depends on.
func affineAxisFlags(m *Affine, child uint8) uint8 {
	var f uint8
	rows := [3]uint8{flagX, flagY, flagZ}
	for row, rf := range rows {
		if child&rf == 0 {
			continue
		}
		for col, cf := range rows {
			if m[row*4+col] != 0 {
				f |= cf
			}
		}
	}
	return f
}

func (a *Arena) String() string {
	return fmt.Sprintf("Arena(%d nodes)", a.Len())
}
