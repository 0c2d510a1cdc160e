package expr

import "fmt"

// Var identifies a variable. The three axes are fixed; free variables are
// allocated per arena by Arena.Var.
type Var uint32

const (
	VarX Var = iota
	VarY
	VarZ

	firstFreeVar
)

// IsAxis reports whether v is X, Y or Z.
func (v Var) IsAxis() bool { return v < firstFreeVar }

func (v Var) String() string {
	switch v {
	case VarX:
		return "x"
	case VarY:
		return "y"
	case VarZ:
		return "z"
	}
	return fmt.Sprintf("var%d", uint32(v-firstFreeVar))
}

// node flags summarize the subtree below a node.
const (
	flagX uint8 = 1 << iota
	flagY
	flagZ
	flagFree
	flagRemap

	flagVars = flagX | flagY | flagZ | flagFree
)

// Node is a single interned operation in the expression graph. Nodes are
// immutable after creation and are only constructed through an Arena.
type Node struct {
	op     Opcode
	lhs    *Node
	rhs    *Node
	value  float64
	v      Var
	affine *Affine
	id     uint32
	height uint32
	flags  uint8
	arena  *Arena
}

// Op returns the node's operation.
func (n *Node) Op() Opcode { return n.op }

// Lhs returns the first child, or nil for leaves.
func (n *Node) Lhs() *Node { return n.lhs }

// Rhs returns the second child, or nil for leaves and unary nodes.
func (n *Node) Rhs() *Node { return n.rhs }

// Value returns the constant value of an OpConst node.
func (n *Node) Value() float64 { return n.value }

// Var returns the variable of a variable node.
func (n *Node) Var() Var { return n.v }

// Affine returns the matrix of an OpRemapAffine node, or nil.
func (n *Node) Affine() *Affine { return n.affine }

// ID returns the node's arena-unique identifier. IDs start at 1 and grow
// with creation order, so children always have smaller IDs than parents.
func (n *Node) ID() uint32 { return n.id }

// Height is the length of the longest path to a leaf.
func (n *Node) Height() uint32 { return n.height }

// Arena returns the owning arena.
func (n *Node) Arena() *Arena { return n.arena }

// Children returns the node's children in operand order.
func (n *Node) Children() []*Node {
	switch {
	case n.rhs != nil:
		return []*Node{n.lhs, n.rhs}
	case n.lhs != nil:
		return []*Node{n.lhs}
	}
	return nil
}

func (n *Node) isConst(v float64) bool {
	return n.op == OpConst && n.value == v
}

// Tree is a handle to a root Node. The zero Tree is invalid. Trees are
// cheap values; copying one shares the underlying graph.
type Tree struct {
	root *Node
}

// TreeOf wraps a node in a Tree handle.
func TreeOf(n *Node) Tree { return Tree{root: n} }

// Root returns the root node, or nil for the zero Tree.
func (t Tree) Root() *Node { return t.root }

// IsValid reports whether the tree has a root.
func (t Tree) IsValid() bool { return t.root != nil }

// Arena returns the arena owning the tree, or nil for the zero Tree.
func (t Tree) Arena() *Arena {
	if t.root == nil {
		return nil
	}
	return t.root.arena
}

// Op returns the root operation.
func (t Tree) Op() Opcode {
	if t.root == nil {
		return OpInvalid
	}
	return t.root.op
}

// Eq reports whether two trees are structurally identical. Thanks to
// interning this is an identity test.
func (t Tree) Eq(o Tree) bool { return t.root == o.root }

// IsConst reports whether the tree depends on no variable.
func (t Tree) IsConst() bool {
	return t.root != nil && t.root.flags&flagVars == 0
}

// ConstValue returns the value of a tree that is a single constant node.
func (t Tree) ConstValue() (float64, bool) {
	if t.root == nil || t.root.op != OpConst {
		return 0, false
	}
	return t.root.value, true
}

// DependsOn reports whether the tree references axis variable v. Free
// variables are reported through Vars.
func (t Tree) DependsOn(v Var) bool {
	if t.root == nil {
		return false
	}
	switch v {
	case VarX:
		return t.root.flags&flagX != 0
	case VarY:
		return t.root.flags&flagY != 0
	case VarZ:
		return t.root.flags&flagZ != 0
	}
	for _, fv := range t.Vars() {
		if fv == v {
			return true
		}
	}
	return false
}

// HasRemap reports whether an unexpanded OpRemapAffine node is reachable.
func (t Tree) HasRemap() bool {
	return t.root != nil && t.root.flags&flagRemap != 0
}

// Postorder returns every unique node reachable from the root, children
// before parents. Shared subtrees appear once.
func (t Tree) Postorder() []*Node {
	if t.root == nil {
		return nil
	}
	const (
		white = iota
		gray
		black
	)
	color := make(map[*Node]uint8)
	var order []*Node

	// Iterative DFS; expression DAGs can be deep.
	type frame struct {
		n    *Node
		next int
	}
	stack := []frame{{n: t.root}}
	color[t.root] = gray
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		children := top.n.Children()
		if top.next < len(children) {
			c := children[top.next]
			top.next++
			if color[c] == white {
				color[c] = gray
				stack = append(stack, frame{n: c})
			}
			continue
		}
		color[top.n] = black
		order = append(order, top.n)
		stack = stack[:len(stack)-1]
	}
	return order
}

// Size returns the number of unique nodes reachable from the root.
func (t Tree) Size() int { return len(t.Postorder()) }

// Vars returns the free variables referenced by the tree in order of
// first appearance in postorder. Axis variables are not included.
func (t Tree) Vars() []Var {
	if t.root == nil || t.root.flags&flagFree == 0 {
		return nil
	}
	var vars []Var
	for _, n := range t.Postorder() {
		if n.op == OpVarFree {
			vars = append(vars, n.v)
		}
	}
	return vars
}
