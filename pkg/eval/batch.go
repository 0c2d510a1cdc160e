package eval

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Box3 is an axis-aligned box.
type Box3 struct {
	X, Y, Z Interval
}

// NewBox3 returns the box spanning min and max.
func NewBox3(min, max [3]float64) Box3 {
	return Box3{X: I(min[0], max[0]), Y: I(min[1], max[1]), Z: I(min[2], max[2])}
}

// Min returns the lower corner.
func (b Box3) Min() [3]float64 { return [3]float64{b.X.Lo, b.Y.Lo, b.Z.Lo} }

// Max returns the upper corner.
func (b Box3) Max() [3]float64 { return [3]float64{b.X.Hi, b.Y.Hi, b.Z.Hi} }

// Hull returns the smallest box containing b and o.
func (b Box3) Hull(o Box3) Box3 {
	return Box3{X: b.X.Hull(o.X), Y: b.Y.Hull(o.Y), Z: b.Z.Hull(o.Z)}
}

// Split divides b into its eight octants.
func (b Box3) Split() [8]Box3 {
	halves := func(i Interval) [2]Interval {
		m := i.Mid()
		return [2]Interval{{i.Lo, m}, {m, i.Hi}}
	}
	xs, ys, zs := halves(b.X), halves(b.Y), halves(b.Z)
	var out [8]Box3
	for i := range out {
		out[i] = Box3{X: xs[i&1], Y: ys[(i>>1)&1], Z: zs[(i>>2)&1]}
	}
	return out
}

func (b Box3) String() string {
	return fmt.Sprintf("%v×%v×%v", b.X, b.Y, b.Z)
}

// Batch evaluates the tape at every point. Work is split across
// WithWorkers goroutines; cancellation is checked between samples. Free
// variables are taken from base, which may be nil for axis-only tapes.
func Batch(ctx context.Context, tp *Tape, base *Context, points [][3]float64, opts ...Option) ([]float64, error) {
	o := newOptions(opts)
	proto, err := tp.bindFree(base)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(points))
	err = parallel(ctx, len(points), o.workers, func(lo, hi int) error {
		vals := append([]float64(nil), proto...)
		for i := lo; i < hi; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			vals[0], vals[1], vals[2] = points[i][0], points[i][1], points[i][2]
			v, err := tp.eval(vals, o.policy)
			if err != nil {
				return fmt.Errorf("sample %d: %w", i, err)
			}
			out[i] = v
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// BatchIntervals evaluates an interval enclosure over every box.
func BatchIntervals(ctx context.Context, tp *Tape, base *Context, boxes []Box3, opts ...Option) ([]Interval, error) {
	o := newOptions(opts)
	proto, err := tp.bindFree(base)
	if err != nil {
		return nil, err
	}
	out := make([]Interval, len(boxes))
	err = parallel(ctx, len(boxes), o.workers, func(lo, hi int) error {
		ivs := make([]Interval, len(proto))
		for k := 3; k < len(proto); k++ {
			ivs[k] = Point(proto[k])
		}
		for i := lo; i < hi; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			ivs[0], ivs[1], ivs[2] = boxes[i].X, boxes[i].Y, boxes[i].Z
			out[i] = tp.runInterval(ivs)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// bindFree returns a value vector with the free variables filled from c
// and the axis slots zeroed.
func (tp *Tape) bindFree(c *Context) ([]float64, error) {
	vals := make([]float64, len(tp.vars))
	for i := 3; i < len(tp.vars); i++ {
		v, ok := c.value(tp.vars[i])
		if !ok {
			return nil, unbound(tp.names[i])
		}
		vals[i] = v
	}
	return vals, nil
}

// parallel runs fn over contiguous chunks of [0, n) on up to workers
// goroutines. The first error cancels the rest.
func parallel(ctx context.Context, n, workers int, fn func(lo, hi int) error) error {
	if n == 0 {
		return ctx.Err()
	}
	if workers > n {
		workers = n
	}
	g, gctx := errgroup.WithContext(ctx)
	chunk := (n + workers - 1) / workers
	for lo := 0; lo < n; lo += chunk {
		lo, hi := lo, min(lo+chunk, n)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(lo, hi)
		})
	}
	if err := g.Wait(); err != nil {
		// Report the caller's cancellation rather than the derived one.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}
