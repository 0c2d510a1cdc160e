package expr

// Bind replaces the free variables of t that appear in values by
// constants and folds what becomes constant. Variables missing from
// values are left in place.
func Bind(t Tree, values map[Var]float64) (Tree, error) {
	if !t.IsValid() || t.root.flags&flagFree == 0 || len(values) == 0 {
		return t, nil
	}
	b := binder{arena: t.root.arena, values: values, memo: make(map[*Node]*Node)}
	n, err := b.bind(t.root)
	if err != nil {
		return Tree{}, err
	}
	return Tree{root: n}, nil
}

type binder struct {
	arena  *Arena
	values map[Var]float64
	memo   map[*Node]*Node
}

func (b *binder) bind(n *Node) (*Node, error) {
	if n.flags&flagFree == 0 {
		return n, nil
	}
	if out, ok := b.memo[n]; ok {
		return out, nil
	}
	var out *Node
	var err error
	switch {
	case n.op == OpVarFree:
		v, ok := b.values[n.v]
		if !ok {
			return n, nil
		}
		out, err = b.arena.intern(OpConst, nil, nil, v, 0, nil)
	case n.op == OpRemapAffine:
		var child *Node
		if child, err = b.bind(n.lhs); err != nil {
			return nil, err
		}
		var t Tree
		if t, err = RemapAffine(Tree{root: child}, *n.affine); err == nil {
			out = t.root
		}
	case n.rhs == nil:
		var lhs *Node
		if lhs, err = b.bind(n.lhs); err != nil {
			return nil, err
		}
		out, err = b.arena.unary(n.op, lhs)
	default:
		var lhs, rhs *Node
		if lhs, err = b.bind(n.lhs); err != nil {
			return nil, err
		}
		if rhs, err = b.bind(n.rhs); err != nil {
			return nil, err
		}
		out, err = b.arena.binary(n.op, lhs, rhs)
	}
	if err != nil {
		return nil, err
	}
	b.memo[n] = out
	return out, nil
}
