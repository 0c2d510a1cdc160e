package eval

import "context"

// Region classifies a box against a solid.
type Region uint8

const (
	Ambiguous Region = iota
	// Empty boxes lie entirely outside the solid.
	Empty
	// Filled boxes lie entirely inside the solid.
	Filled
)

func (r Region) String() string {
	switch r {
	case Empty:
		return "empty"
	case Filled:
		return "filled"
	}
	return "ambiguous"
}

// Classify evaluates the tape over box. A lower bound above zero means
// the box is empty; an upper bound below zero means it is filled.
func Classify(tp *Tape, box Box3) (Region, error) {
	if tp.free {
		return Ambiguous, unbound(tp.names[3])
	}
	return classify(tp, box), nil
}

func classify(tp *Tape, box Box3) Region {
	iv := tp.runInterval([]Interval{box.X, box.Y, box.Z})
	switch {
	case iv.Lo > 0:
		return Empty
	case iv.Hi < 0:
		return Filled
	}
	return Ambiguous
}

// Bounds searches box for the solid by octree subdivision down to depth
// levels, discarding empty cells. Each level is classified in one
// BatchIntervals call, so WithWorkers spreads the search. It returns the
// hull of the cells that were not proven empty, and false when every cell
// was.
func Bounds(ctx context.Context, tp *Tape, box Box3, depth int, opts ...Option) (Box3, bool, error) {
	if tp.free {
		return Box3{}, false, unbound(tp.names[3])
	}
	var (
		out   Box3
		found bool
	)
	frontier := []Box3{box}
	for level := depth; len(frontier) > 0; level-- {
		ivs, err := BatchIntervals(ctx, tp, nil, frontier, opts...)
		if err != nil {
			return Box3{}, false, err
		}
		var next []Box3
		for i, iv := range ivs {
			b := frontier[i]
			switch {
			case iv.Lo > 0:
				continue
			case iv.Hi < 0 || level == 0:
				if !found {
					out, found = b, true
				} else {
					out = out.Hull(b)
				}
			default:
				sub := b.Split()
				next = append(next, sub[:]...)
			}
		}
		frontier = next
	}
	return out, found, nil
}
