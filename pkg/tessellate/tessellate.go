// Package tessellate meshes the named shapes of a design with a geometry
// kernel. One mesh is produced per shape, in definition order.
package tessellate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/chazu/frep/pkg/engine"
	"github.com/chazu/frep/pkg/eval"
	"github.com/chazu/frep/pkg/kernel"
)

const (
	// DefaultHalfExtent is the half side of the cube searched for shapes
	// that carry no explicit bounds.
	DefaultHalfExtent = 100.0
	// DefaultDepth is the octree depth of the bounds search.
	DefaultDepth = 6
)

// ErrEmpty is returned for a shape proven empty over the search box.
var ErrEmpty = errors.New("tessellate: shape is empty")

type options struct {
	search    eval.Box3
	depth     int
	skipEmpty bool
	workers   int
	log       *slog.Logger
}

// Option configures Tessellate.
type Option func(*options)

// WithSearchBox sets the box searched for shapes without explicit bounds.
func WithSearchBox(b eval.Box3) Option {
	return func(o *options) { o.search = b }
}

// WithHalfExtent searches the cube [-h, h] on every axis.
func WithHalfExtent(h float64) Option {
	return func(o *options) { o.search = cube(h) }
}

// WithDepth sets the octree depth of the bounds search.
func WithDepth(d int) Option {
	return func(o *options) {
		if d >= 0 {
			o.depth = d
		}
	}
}

// WithSkipEmpty drops empty shapes instead of failing with ErrEmpty.
func WithSkipEmpty(skip bool) Option {
	return func(o *options) { o.skipEmpty = skip }
}

// WithWorkers bounds the goroutines of the bounds search. Zero or less
// uses every processor.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithLogger sets the logger. A nil logger keeps the default.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

func cube(h float64) eval.Box3 {
	return eval.NewBox3([3]float64{-h, -h, -h}, [3]float64{h, h, h})
}

// Tessellate produces one triangle mesh per shape of d using k. The kernel
// must build its solids in d.Arena. Shapes without explicit bounds are
// located by an interval search of the configured box.
func Tessellate(ctx context.Context, d *engine.Design, k kernel.Kernel, opts ...Option) ([]*kernel.Mesh, error) {
	if d == nil {
		return nil, nil
	}
	o := options{search: cube(DefaultHalfExtent), depth: DefaultDepth, log: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	var meshes []*kernel.Mesh
	for _, s := range d.Shapes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		mesh, err := meshShape(ctx, d, k, s, &o)
		if errors.Is(err, ErrEmpty) && o.skipEmpty {
			o.log.Warn("skipping empty shape", "shape", s.Name)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("tessellate: shape %q: %w", s.Name, err)
		}
		meshes = append(meshes, mesh)
	}
	return meshes, nil
}

func meshShape(ctx context.Context, d *engine.Design, k kernel.Kernel, s engine.Shape, o *options) (*kernel.Mesh, error) {
	tree, err := d.Resolve(s)
	if err != nil {
		return nil, err
	}

	var box eval.Box3
	if s.Bounds != nil {
		box = *s.Bounds
	} else {
		tp, err := eval.Compile(tree)
		if err != nil {
			return nil, err
		}
		found, ok, err := eval.Bounds(ctx, tp, o.search, o.depth, eval.WithWorkers(o.workers))
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrEmpty
		}
		box = pad(found)
		o.log.Debug("located shape", "shape", s.Name, "bounds", box.String())
	}

	solid, err := k.FromTree(tree, box.Min(), box.Max())
	if err != nil {
		return nil, err
	}
	mesh, err := k.ToMesh(solid)
	if err != nil {
		return nil, err
	}
	mesh.PartName = s.Name
	o.log.Debug("meshed shape", "shape", s.Name, "triangles", mesh.TriangleCount())
	return mesh, nil
}

// pad grows b by 2% of its largest side so the surface never touches the
// meshing grid boundary.
func pad(b eval.Box3) eval.Box3 {
	lo, hi := b.Min(), b.Max()
	var side float64
	for i := range lo {
		side = max(side, hi[i]-lo[i])
	}
	m := 0.02 * side
	for i := range lo {
		lo[i] -= m
		hi[i] += m
	}
	return eval.NewBox3(lo, hi)
}
