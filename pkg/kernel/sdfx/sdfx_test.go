package sdfx

import (
	"math"
	"testing"

	"github.com/chazu/frep/pkg/eval"
	"github.com/chazu/frep/pkg/expr"
	"github.com/chazu/frep/pkg/kernel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCells = 40

func newKernel() *SdfxKernel {
	return New(expr.NewArena(), WithMeshCells(testCells))
}

func checkMesh(t *testing.T, m *kernel.Mesh) {
	t.Helper()
	require.False(t, m.IsEmpty())
	assert.Greater(t, m.TriangleCount(), 0)
	assert.Equal(t, len(m.Vertices), len(m.Normals))
	assert.Equal(t, m.TriangleCount()*3, len(m.Indices))
	for i := 0; i+2 < len(m.Normals); i += 3 {
		n := m.Normals[i : i+3]
		l := math.Sqrt(float64(n[0]*n[0] + n[1]*n[1] + n[2]*n[2]))
		require.InDelta(t, 1, l, 1e-4, "normal %d is not unit length", i/3)
	}
}

// TestKernelContract drives the backend only through kernel.Kernel.
func TestKernelContract(t *testing.T) {
	var k kernel.Kernel = newKernel()

	min, max := k.Box(2, 2, 2).BoundingBox()
	assert.Equal(t, [3]float64{0, 0, 0}, min)
	assert.Equal(t, [3]float64{2, 2, 2}, max)

	moved := k.Translate(k.Sphere(1), 5, 0, 0)
	min, max = moved.BoundingBox()
	assert.Equal(t, [3]float64{4, -1, -1}, min)
	assert.Equal(t, [3]float64{6, 1, 1}, max)

	u := k.Union(k.Box(2, 2, 2), moved)
	min, max = u.BoundingBox()
	assert.Equal(t, [3]float64{0, -1, -1}, min)
	assert.Equal(t, [3]float64{6, 2, 2}, max)

	m, err := k.ToMesh(u)
	require.NoError(t, err)
	checkMesh(t, m)
	lo, hi := m.Bounds()
	cell := 6.0 / testCells
	for i := 0; i < 3; i++ {
		assert.GreaterOrEqual(t, float64(lo[i]), min[i]-cell, "axis %d", i)
		assert.LessOrEqual(t, float64(hi[i]), max[i]+cell, "axis %d", i)
	}

	empty := k.Difference(k.Sphere(1), k.Sphere(2))
	m, err = k.ToMesh(empty)
	require.NoError(t, err)
	assert.True(t, m.IsEmpty())

	_, err = k.FromTree(expr.Tree{}, [3]float64{-1, -1, -1}, [3]float64{1, 1, 1})
	assert.ErrorIs(t, err, eval.ErrInvalidTree)
}

func TestBox(t *testing.T) {
	k := newKernel()
	box := k.Box(100, 50, 25)
	min, max := box.BoundingBox()
	assert.Equal(t, [3]float64{0, 0, 0}, min)
	assert.Equal(t, [3]float64{100, 50, 25}, max)

	mesh, err := k.ToMesh(box)
	require.NoError(t, err)
	checkMesh(t, mesh)

	lo, hi := mesh.Bounds()
	cell := float32(100.0 / testCells)
	want := [3]float32{100, 50, 25}
	for i := 0; i < 3; i++ {
		assert.InDelta(t, 0, lo[i], float64(cell), "axis %d", i)
		assert.InDelta(t, want[i], hi[i], float64(cell), "axis %d", i)
	}
}

func TestSphereNormalsFollowGradient(t *testing.T) {
	k := newKernel()
	mesh, err := k.ToMesh(k.Sphere(1))
	require.NoError(t, err)
	checkMesh(t, mesh)

	for i := 0; i+2 < len(mesh.Vertices); i += 3 {
		x, y, z := float64(mesh.Vertices[i]), float64(mesh.Vertices[i+1]), float64(mesh.Vertices[i+2])
		r := math.Sqrt(x*x + y*y + z*z)
		require.InDelta(t, 1, r, 0.05, "vertex %d is off the surface", i/3)
		nx, ny, nz := float64(mesh.Normals[i]), float64(mesh.Normals[i+1]), float64(mesh.Normals[i+2])
		assert.InDelta(t, 1, (x*nx+y*ny+z*nz)/r, 1e-3, "normal %d should point outward", i/3)
	}
}

func TestCylinder(t *testing.T) {
	k := newKernel()
	cyl := k.Cylinder(50, 10, 32)
	min, max := cyl.BoundingBox()
	assert.Equal(t, [3]float64{-10, -10, -25}, min)
	assert.Equal(t, [3]float64{10, 10, 25}, max)

	mesh, err := k.ToMesh(cyl)
	require.NoError(t, err)
	checkMesh(t, mesh)
}

func TestDifference(t *testing.T) {
	k := newKernel()

	box := k.Box(100, 100, 100)
	boxMesh, err := k.ToMesh(box)
	require.NoError(t, err)

	hole := k.Translate(k.Cylinder(120, 20, 32), 50, 50, 50)
	diff := k.Difference(box, hole)
	min, max := diff.BoundingBox()
	assert.Equal(t, [3]float64{0, 0, 0}, min)
	assert.Equal(t, [3]float64{100, 100, 100}, max)

	diffMesh, err := k.ToMesh(diff)
	require.NoError(t, err)
	checkMesh(t, diffMesh)
	// The bore adds more surface than it removes from the caps.
	assert.Greater(t, diffMesh.TriangleCount(), boxMesh.TriangleCount())
}

func TestUnionAndIntersection(t *testing.T) {
	k := newKernel()
	a := k.Sphere(1)
	b := k.Translate(k.Sphere(1), 1, 0, 0)

	u := k.Union(a, b)
	min, max := u.BoundingBox()
	assert.Equal(t, [3]float64{-1, -1, -1}, min)
	assert.Equal(t, [3]float64{2, 1, 1}, max)

	in := k.Intersection(a, b)
	min, max = in.BoundingBox()
	assert.Equal(t, [3]float64{0, -1, -1}, min)
	assert.Equal(t, [3]float64{1, 1, 1}, max)

	for _, s := range []kernel.Solid{u, in} {
		mesh, err := k.ToMesh(s)
		require.NoError(t, err)
		checkMesh(t, mesh)
	}
}

func TestRotate(t *testing.T) {
	k := newKernel()
	bar := k.Box(10, 1, 1)
	turned := k.Rotate(bar, 0, 0, 90)

	min, max := turned.BoundingBox()
	assert.InDelta(t, -1, min[0], 1e-9)
	assert.InDelta(t, 0, max[0], 1e-9)
	assert.InDelta(t, 0, min[1], 1e-9)
	assert.InDelta(t, 10, max[1], 1e-9)

	tree := unwrap(turned).t
	res, err := eval.Evaluate(tree, eval.At(-0.5, 5, 0.5), eval.ModeScalar)
	require.NoError(t, err)
	assert.Less(t, res.Value, 0.0)
	res, err = eval.Evaluate(tree, eval.At(5, 0.5, 0.5), eval.ModeScalar)
	require.NoError(t, err)
	assert.Greater(t, res.Value, 0.0)
}

func TestFromTree(t *testing.T) {
	k := newKernel()
	a := k.Arena()
	b := expr.NewBuilder(a)
	torus := b.Sub(b.Hypot2(b.SubC(b.Hypot2(b.X(), b.Y()), 2), b.Z()), b.C(0.5))
	require.NoError(t, b.Err())

	s, err := k.FromTree(torus, [3]float64{-3, -3, -1}, [3]float64{3, 3, 1})
	require.NoError(t, err)
	mesh, err := k.ToMesh(s)
	require.NoError(t, err)
	checkMesh(t, mesh)

	_, err = k.FromTree(expr.Tree{}, [3]float64{-1, -1, -1}, [3]float64{1, 1, 1})
	assert.ErrorIs(t, err, eval.ErrInvalidTree)

	other := expr.NewArena()
	_, err = k.FromTree(other.X(), [3]float64{-1, -1, -1}, [3]float64{1, 1, 1})
	assert.ErrorIs(t, err, expr.ErrArenaMismatch)

	free := b.Sub(b.X(), b.Var("r"))
	_, err = k.FromTree(free, [3]float64{-1, -1, -1}, [3]float64{1, 1, 1})
	assert.ErrorIs(t, err, eval.ErrUnbound)

	_, err = k.FromTree(torus, [3]float64{1, -1, -1}, [3]float64{1, 1, 1})
	assert.Error(t, err)
}

func TestDomainErrorsMeshAsOutside(t *testing.T) {
	k := newKernel()
	b := expr.NewBuilder(k.Arena())
	// sqrt is undefined for x < 0, which must not produce geometry there.
	half := b.Sub(b.C(0.5), b.Sqrt(b.X()))
	s, err := k.FromTree(half, [3]float64{-1, -1, -1}, [3]float64{1, 1, 1})
	require.NoError(t, err)
	mesh, err := k.ToMesh(s)
	require.NoError(t, err)
	lo, _ := mesh.Bounds()
	assert.GreaterOrEqual(t, lo[0], float32(-0.1))
}

func TestConstructionErrorsSurfaceInToMesh(t *testing.T) {
	k := newKernel()
	bad := k.Box(math.NaN(), 1, 1)
	_, err := k.ToMesh(k.Union(bad, k.Sphere(1)))
	assert.ErrorIs(t, err, expr.ErrInvalidValue)
}

type foreign struct{}

func (foreign) BoundingBox() (min, max [3]float64) { return }

func TestForeignSolid(t *testing.T) {
	k := newKernel()
	_, err := k.ToMesh(foreign{})
	assert.ErrorIs(t, err, ErrForeignSolid)
}
