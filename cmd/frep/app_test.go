package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/frep/pkg/config"
)

// testApp returns an App with a coarse mesh so the pipeline stays fast.
func testApp() *App {
	cfg := config.Default()
	cfg.MeshCells = 30
	cfg.SearchHalfExtent = 10
	cfg.BoundsDepth = 5
	return NewApp(cfg, nil)
}

func readExample(t *testing.T, name string) string {
	t.Helper()
	b, err := os.ReadFile("../../examples/" + name)
	require.NoError(t, err)
	return string(b)
}

func requireOK(t *testing.T, res EvalResult) {
	t.Helper()
	for _, e := range res.Errors {
		t.Errorf("error (line %d, shape %q): %s", e.Line, e.Shape, e.Message)
	}
	require.True(t, res.OK())
}

func TestBuildExamples(t *testing.T) {
	tests := []struct {
		file  string
		parts []string
	}{
		{"sphere_box.frep", []string{"ball", "crate"}},
		{"flange.frep", []string{"flange"}},
		{"blobs.frep", []string{"blob", "lattice"}},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			res := testApp().Build(context.Background(), readExample(t, tt.file))
			requireOK(t, res)
			require.Len(t, res.Meshes, len(tt.parts))
			for i, m := range res.Meshes {
				assert.Equal(t, tt.parts[i], m.PartName)
				assert.NotEmpty(t, m.Vertices, "part %q", m.PartName)
				assert.Len(t, m.Normals, len(m.Vertices), "part %q", m.PartName)
				assert.NotEmpty(t, m.Indices, "part %q", m.PartName)
				assert.True(t, strings.HasPrefix(m.Color, "#"))
			}
		})
	}
}

func TestBuildEmptySource(t *testing.T) {
	for _, src := range []string{"", "   \n\t", "; only a comment\n;; and another"} {
		res := testApp().Build(context.Background(), src)
		requireOK(t, res)
		assert.Empty(t, res.Meshes)
		assert.Empty(t, res.Warnings)
	}
}

func TestBuildSyntaxError(t *testing.T) {
	res := testApp().Build(context.Background(), "(defshape \"a\" (sphere))\n(defshape \"b\" (sphere)\n")
	require.False(t, res.OK())
	assert.Empty(t, res.Meshes)
	assert.NotEmpty(t, res.Errors[0].Message)
}

func TestBuildUndefinedShape(t *testing.T) {
	res := testApp().Build(context.Background(), `(defshape "b" (offset (shape "a") 1))`)
	require.False(t, res.OK())
	assert.Contains(t, res.Errors[0].Message, `"a"`)
}

func TestBuildValidationErrors(t *testing.T) {
	res := testApp().Build(context.Background(), `(defshape "free" (sphere :r (variable "k")))`)
	require.False(t, res.OK())
	assert.Equal(t, "free", res.Errors[0].Shape)
	assert.Contains(t, res.Errors[0].Message, "k")
	assert.Empty(t, res.Meshes)
}

func TestBuildSkipsEmptyShapes(t *testing.T) {
	res := testApp().Build(context.Background(), `
(defshape "far" (sphere :center (vec3 500 0 0)))
(defshape "near" (sphere))
`)
	requireOK(t, res)
	require.Len(t, res.Meshes, 1)
	assert.Equal(t, "near", res.Meshes[0].PartName)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "far", res.Warnings[0].Shape)
	assert.Contains(t, res.Warnings[0].Message, "empty")
}

func TestBuildColorPaletteWraps(t *testing.T) {
	var src strings.Builder
	n := len(colorPalette) + 1
	for i := 0; i < n; i++ {
		fmt.Fprintf(&src, "(defshape \"s%d\" (sphere :r 0.5 :center (vec3 %d 0 0)))\n", i, 2*i-8)
	}
	res := testApp().Build(context.Background(), src.String())
	requireOK(t, res)
	require.Len(t, res.Meshes, n)
	for i, m := range res.Meshes {
		assert.Equal(t, fmt.Sprintf("s%d", i), m.PartName)
		assert.Equal(t, colorPalette[i%len(colorPalette)], m.Color)
	}
	assert.Equal(t, res.Meshes[0].Color, res.Meshes[len(colorPalette)].Color)
}

func TestBuildConcurrentCalls(t *testing.T) {
	app := testApp()
	src := `(defshape "ball" (sphere))`
	var wg sync.WaitGroup
	results := make([]EvalResult, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = app.Build(context.Background(), src)
		}(i)
	}
	wg.Wait()

	// Overlapping builds may supersede each other; the last one always wins.
	completed := 0
	for _, res := range results {
		if res.OK() {
			completed++
			require.Len(t, res.Meshes, 1)
		} else {
			assert.Contains(t, res.Errors[0].Message, "superseded")
		}
	}
	assert.GreaterOrEqual(t, completed, 1)
}
