package expr

// Remap substitutes x, y and z for the axes of t. Remap nodes inside t are
// expanded on the way, so the result never contains OpRemapAffine.
func Remap(t, x, y, z Tree) (Tree, error) {
	a, err := commonArena(OpRemapAffine, t, x, y, z)
	if err != nil {
		return Tree{}, err
	}
	r := remapper{arena: a, memo: make(map[remapKey]*Node)}
	n, err := r.subst(t.root, [3]*Node{x.root, y.root, z.root})
	if err != nil {
		return Tree{}, err
	}
	return Tree{root: n}, nil
}

// Flatten expands every OpRemapAffine node of t by substituting the
// transformed axes into its child. Trees without remaps are returned as is.
func Flatten(t Tree) (Tree, error) {
	if !t.IsValid() || !t.HasRemap() {
		return t, nil
	}
	a := t.root.arena
	return Remap(t, a.X(), a.Y(), a.Z())
}

type remapKey struct {
	n    *Node
	axes [3]*Node
}

type remapper struct {
	arena *Arena
	memo  map[remapKey]*Node
}

func (r *remapper) subst(n *Node, axes [3]*Node) (*Node, error) {
	if n.flags&(flagX|flagY|flagZ|flagRemap) == 0 {
		return n, nil
	}
	k := remapKey{n: n, axes: axes}
	if out, ok := r.memo[k]; ok {
		return out, nil
	}

	var out *Node
	var err error
	switch n.op {
	case OpVarX:
		out = axes[0]
	case OpVarY:
		out = axes[1]
	case OpVarZ:
		out = axes[2]
	case OpRemapAffine:
		var inner [3]*Node
		for row := 0; row < 3; row++ {
			inner[row], err = r.affineRow(n.affine, row, axes)
			if err != nil {
				return nil, err
			}
		}
		out, err = r.subst(n.lhs, inner)
	default:
		var lhs, rhs *Node
		lhs, err = r.subst(n.lhs, axes)
		if err != nil {
			return nil, err
		}
		if n.rhs == nil {
			out, err = r.arena.unary(n.op, lhs)
			break
		}
		rhs, err = r.subst(n.rhs, axes)
		if err != nil {
			return nil, err
		}
		out, err = r.arena.binary(n.op, lhs, rhs)
	}
	if err != nil {
		return nil, err
	}
	r.memo[k] = out
	return out, nil
}

// affineRow builds m[row]·(axes, 1), skipping zero coefficients.
func (r *remapper) affineRow(m *Affine, row int, axes [3]*Node) (*Node, error) {
	var sum *Node
	for col := 0; col < 3; col++ {
		c := m[row*4+col]
		if c == 0 {
			continue
		}
		term := axes[col]
		if c != 1 {
			k, err := r.arena.intern(OpConst, nil, nil, c, 0, nil)
			if err != nil {
				return nil, err
			}
			if term, err = r.arena.binary(OpMul, term, k); err != nil {
				return nil, err
			}
		}
		if sum == nil {
			sum = term
			continue
		}
		var err error
		if sum, err = r.arena.binary(OpAdd, sum, term); err != nil {
			return nil, err
		}
	}
	offset, err := r.arena.intern(OpConst, nil, nil, m[row*4+3], 0, nil)
	if err != nil {
		return nil, err
	}
	if sum == nil {
		return offset, nil
	}
	return r.arena.binary(OpAdd, sum, offset)
}
