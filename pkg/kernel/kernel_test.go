package kernel

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeshCounts(t *testing.T) {
	tests := []struct {
		name      string
		vertices  []float32
		indices   []uint32
		verts     int
		triangles int
	}{
		{"empty", nil, nil, 0, 0},
		{"one vertex", []float32{1, 2, 3}, nil, 1, 0},
		{"quad", []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0}, []uint32{0, 1, 2, 2, 3, 0}, 4, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Vertices: tt.vertices, Indices: tt.indices}
			assert.Equal(t, tt.verts, m.VertexCount())
			assert.Equal(t, tt.triangles, m.TriangleCount())
			assert.Equal(t, tt.verts == 0, m.IsEmpty())
		})
	}
}

func TestMeshBounds(t *testing.T) {
	m := &Mesh{Vertices: []float32{
		1, -2, 3,
		-4, 5, 0.5,
		2, 0, -6,
	}}
	min, max := m.Bounds()
	assert.Equal(t, [3]float32{-4, -2, -6}, min)
	assert.Equal(t, [3]float32{2, 5, 3}, max)

	min, max = (&Mesh{}).Bounds()
	for i := 0; i < 3; i++ {
		assert.Greater(t, min[i], max[i], "empty mesh bounds should be inverted")
	}
	assert.Equal(t, float32(math.MaxFloat32), min[0])
}
