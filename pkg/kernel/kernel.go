// Package kernel defines the abstract solid kernel interface.
// Implementations build solids from implicit expression trees and turn
// them into triangle meshes. The abstraction keeps the meshing backend
// swappable without touching the rest of the system.
package kernel

import "github.com/chazu/frep/pkg/expr"

// Solid is an opaque handle to a kernel solid.
type Solid interface {
	// BoundingBox returns the axis-aligned box the solid is meshed in.
	BoundingBox() (min, max [3]float64)
}

// Kernel is the abstract solid kernel interface.
type Kernel interface {
	// Primitives. Box has its minimum corner at the origin; Cylinder
	// and Sphere are centered on it.
	Box(x, y, z float64) Solid
	Cylinder(height, radius float64, segments int) Solid
	Sphere(radius float64) Solid

	// Boolean operations
	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in degrees

	// FromTree wraps an arbitrary field whose solid lies within min-max.
	FromTree(t expr.Tree, min, max [3]float64) (Solid, error)

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)
}
