// Package sdfx implements the kernel.Kernel interface over expression
// trees, meshing them with the marching cubes renderer of the
// github.com/deadsy/sdfx SDF-based CAD library.
package sdfx

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/chazu/frep/pkg/eval"
	"github.com/chazu/frep/pkg/expr"
	"github.com/chazu/frep/pkg/kernel"
	"github.com/chazu/frep/pkg/shapes"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

// DefaultMeshCells controls marching cubes tessellation resolution along
// the longest side of the bounding box.
const DefaultMeshCells = 200

// far is reported where the field has no value, so such points count as
// outside the solid.
const far = math.MaxFloat32

var ErrForeignSolid = errors.New("sdfx: solid was not built by this kernel")

// solid is a tree together with the box it is meshed in. Construction
// failures are carried along and reported by ToMesh.
type solid struct {
	t        expr.Tree
	min, max [3]float64
	err      error
}

// BoundingBox returns the axis-aligned bounding box.
func (s *solid) BoundingBox() (min, max [3]float64) {
	return s.min, s.max
}

// Option configures New.
type Option func(*SdfxKernel)

// WithMeshCells overrides DefaultMeshCells.
func WithMeshCells(n int) Option {
	return func(k *SdfxKernel) {
		if n > 0 {
			k.cells = n
		}
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(k *SdfxKernel) {
		if l != nil {
			k.log = l
		}
	}
}

// SdfxKernel implements kernel.Kernel. Solids are trees in one arena.
type SdfxKernel struct {
	arena *expr.Arena
	cells int
	log   *slog.Logger
}

// New returns a kernel that builds its solids in a.
func New(a *expr.Arena, opts ...Option) *SdfxKernel {
	k := &SdfxKernel{arena: a, cells: DefaultMeshCells, log: slog.Default()}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Arena returns the arena solids are built in.
func (k *SdfxKernel) Arena() *expr.Arena { return k.arena }

// MeshCells returns the marching cubes resolution.
func (k *SdfxKernel) MeshCells() int { return k.cells }

func unwrap(s kernel.Solid) *solid {
	if sol, ok := s.(*solid); ok {
		return sol
	}
	return &solid{err: ErrForeignSolid}
}

// build runs fn on a fresh builder unless one of the operands already
// failed.
func (k *SdfxKernel) build(min, max [3]float64, fn func(b *expr.Builder) expr.Tree, operands ...*solid) kernel.Solid {
	for _, o := range operands {
		if o.err != nil {
			return &solid{err: o.err}
		}
	}
	b := expr.NewBuilder(k.arena)
	t, err := b.Result(fn(b))
	if err != nil {
		return &solid{err: err}
	}
	return &solid{t: t, min: min, max: max}
}

// Box creates a box with the given dimensions and its minimum corner at
// the origin, so that translations place the corner.
func (k *SdfxKernel) Box(x, y, z float64) kernel.Solid {
	return k.build([3]float64{}, [3]float64{x, y, z}, func(b *expr.Builder) expr.Tree {
		return shapes.BoxExact(b, shapes.V3(b, 0, 0, 0), shapes.V3(b, x, y, z))
	})
}

// Cylinder creates a cylinder along z centered on the origin.
// The segments parameter is ignored since the surface is implicit.
func (k *SdfxKernel) Cylinder(height, radius float64, segments int) kernel.Solid {
	min := [3]float64{-radius, -radius, -height / 2}
	max := [3]float64{radius, radius, height / 2}
	return k.build(min, max, func(b *expr.Builder) expr.Tree {
		return shapes.CylinderZ(b, b.C(radius), b.C(height), shapes.V3(b, 0, 0, -height/2))
	})
}

// Sphere creates a sphere centered on the origin.
func (k *SdfxKernel) Sphere(radius float64) kernel.Solid {
	min := [3]float64{-radius, -radius, -radius}
	max := [3]float64{radius, radius, radius}
	return k.build(min, max, func(b *expr.Builder) expr.Tree {
		return shapes.Sphere(b, b.C(radius), shapes.V3(b, 0, 0, 0))
	})
}

// Union returns the union of two solids.
func (k *SdfxKernel) Union(a, b kernel.Solid) kernel.Solid {
	sa, sb := unwrap(a), unwrap(b)
	min, max := hull(sa, sb)
	return k.build(min, max, func(bl *expr.Builder) expr.Tree {
		return shapes.Union(bl, sa.t, sb.t)
	}, sa, sb)
}

// Difference returns the difference a - b.
func (k *SdfxKernel) Difference(a, b kernel.Solid) kernel.Solid {
	sa, sb := unwrap(a), unwrap(b)
	return k.build(sa.min, sa.max, func(bl *expr.Builder) expr.Tree {
		return shapes.Difference(bl, sa.t, sb.t)
	}, sa, sb)
}

// Intersection returns the intersection of two solids.
func (k *SdfxKernel) Intersection(a, b kernel.Solid) kernel.Solid {
	sa, sb := unwrap(a), unwrap(b)
	var min, max [3]float64
	for i := range min {
		min[i] = math.Max(sa.min[i], sb.min[i])
		max[i] = math.Max(min[i], math.Min(sa.max[i], sb.max[i]))
	}
	return k.build(min, max, func(bl *expr.Builder) expr.Tree {
		return shapes.Intersection(bl, sa.t, sb.t)
	}, sa, sb)
}

// Translate moves a solid by (x, y, z).
func (k *SdfxKernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	so := unwrap(s)
	d := [3]float64{x, y, z}
	var min, max [3]float64
	for i := range d {
		min[i], max[i] = so.min[i]+d[i], so.max[i]+d[i]
	}
	return k.build(min, max, func(b *expr.Builder) expr.Tree {
		return shapes.Move(b, so.t, shapes.V3(b, x, y, z))
	}, so)
}

// Rotate rotates a solid by Euler angles (degrees) about the X, then Y,
// then Z axis through the origin.
func (k *SdfxKernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid {
	so := unwrap(s)
	rad := [3]float64{x * math.Pi / 180, y * math.Pi / 180, z * math.Pi / 180}
	min, max := rotatedBounds(so.min, so.max, rad)
	return k.build(min, max, func(b *expr.Builder) expr.Tree {
		origin := shapes.V3(b, 0, 0, 0)
		t := shapes.RotateX(b, so.t, b.C(rad[0]), origin)
		t = shapes.RotateY(b, t, b.C(rad[1]), origin)
		return shapes.RotateZ(b, t, b.C(rad[2]), origin)
	}, so)
}

// FromTree wraps t as a solid meshed within min-max. The tree must belong
// to the kernel's arena and must not have free variables.
func (k *SdfxKernel) FromTree(t expr.Tree, min, max [3]float64) (kernel.Solid, error) {
	if !t.IsValid() {
		return nil, eval.ErrInvalidTree
	}
	if t.Arena() != k.arena {
		return nil, expr.ErrArenaMismatch
	}
	if vars := t.Vars(); len(vars) > 0 {
		names := make([]string, len(vars))
		for i, v := range vars {
			names[i] = k.arena.VarName(v)
		}
		return nil, fmt.Errorf("%w: %s", eval.ErrUnbound, strings.Join(names, ", "))
	}
	for i := range min {
		if !(min[i] < max[i]) {
			return nil, fmt.Errorf("sdfx: empty bounding box %v to %v", min, max)
		}
	}
	return &solid{t: t, min: min, max: max}, nil
}

// ToMesh converts a solid to a triangle mesh using marching cubes. Vertex
// normals are the normalized field gradient, falling back to the face
// normal where the gradient vanishes or is undefined.
func (k *SdfxKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	so := unwrap(s)
	if so.err != nil {
		return nil, so.err
	}
	tp, err := eval.Compile(so.t)
	if err != nil {
		return nil, err
	}
	f := &field{tp: tp, bb: sdf.Box3{
		Min: v3.Vec{X: so.min[0], Y: so.min[1], Z: so.min[2]},
		Max: v3.Vec{X: so.max[0], Y: so.max[1], Z: so.max[2]},
	}}

	start := time.Now()
	renderer := render.NewMarchingCubesUniform(k.cells)
	triangles := render.ToTriangles(f, renderer)

	numVerts := len(triangles) * 3
	vertices := make([]float32, 0, numVerts*3)
	normals := make([]float32, 0, numVerts*3)
	indices := make([]uint32, 0, numVerts)

	for i, tri := range triangles {
		face := tri.Normal()
		for j := 0; j < 3; j++ {
			v := tri[j]
			n := f.normal(v, face)
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
			normals = append(normals, float32(n.X), float32(n.Y), float32(n.Z))
			indices = append(indices, uint32(i*3+j))
		}
	}

	k.log.Debug("meshed solid", "cells", k.cells, "instructions", tp.Len(),
		"triangles", len(triangles), "elapsed", time.Since(start))

	return &kernel.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}, nil
}

// field exposes a compiled tape as an sdf.SDF3.
type field struct {
	tp *eval.Tape
	bb sdf.Box3
}

// Evaluate returns the field value at p. Points where the field is
// undefined are reported as far outside.
func (f *field) Evaluate(p v3.Vec) float64 {
	v, err := f.tp.Point(p.X, p.Y, p.Z)
	if err != nil || math.IsNaN(v) {
		return far
	}
	return v
}

// BoundingBox returns the box the field is meshed in.
func (f *field) BoundingBox() sdf.Box3 { return f.bb }

func (f *field) normal(p, fallback v3.Vec) v3.Vec {
	_, g, err := f.tp.Gradient(eval.At(p.X, p.Y, p.Z), eval.WithPolicy(eval.PolicyNaN))
	if err == nil {
		if n, ok := unit(g[expr.VarX], g[expr.VarY], g[expr.VarZ]); ok {
			return n
		}
	}
	if n, ok := unit(fallback.X, fallback.Y, fallback.Z); ok {
		return n
	}
	return v3.Vec{Z: 1}
}

func unit(x, y, z float64) (v3.Vec, bool) {
	l := math.Sqrt(x*x + y*y + z*z)
	if l == 0 || math.IsNaN(l) || math.IsInf(l, 0) {
		return v3.Vec{}, false
	}
	return v3.Vec{X: x / l, Y: y / l, Z: z / l}, true
}

func hull(a, b *solid) (min, max [3]float64) {
	for i := range min {
		min[i] = math.Min(a.min[i], b.min[i])
		max[i] = math.Max(a.max[i], b.max[i])
	}
	return min, max
}

// rotatedBounds returns the box around the eight corners of min-max after
// rotating them about x, y and z in turn.
func rotatedBounds(min, max [3]float64, rad [3]float64) (lo, hi [3]float64) {
	planes := [3][2]int{{1, 2}, {2, 0}, {0, 1}}
	for i := range lo {
		lo[i], hi[i] = math.Inf(1), math.Inf(-1)
	}
	for c := 0; c < 8; c++ {
		p := [3]float64{min[0], min[1], min[2]}
		for axis := 0; axis < 3; axis++ {
			if c&(1<<axis) != 0 {
				p[axis] = max[axis]
			}
		}
		for axis, pl := range planes {
			cos, sin := math.Cos(rad[axis]), math.Sin(rad[axis])
			i, j := pl[0], pl[1]
			p[i], p[j] = cos*p[i]-sin*p[j], sin*p[i]+cos*p[j]
		}
		for i := range p {
			lo[i] = math.Min(lo[i], p[i])
			hi[i] = math.Max(hi[i], p[i])
		}
	}
	return lo, hi
}
