package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/frep/pkg/eval"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "frep.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	p, err := cfg.DomainPolicy()
	require.NoError(t, err)
	assert.Equal(t, eval.PolicyError, p)

	l, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, l)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
policy = "nan"
eval_timeout = "250ms"
mesh_cells = 64
simplify = true
log_level = "debug"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "nan", cfg.Policy)
	assert.Equal(t, 250*time.Millisecond, cfg.EvalTimeout.Duration)
	assert.Equal(t, 64, cfg.MeshCells)
	assert.True(t, cfg.Simplify)
	assert.Equal(t, Default().BoundsDepth, cfg.BoundsDepth, "unset keys keep defaults")
	assert.Equal(t, Default().SearchHalfExtent, cfg.SearchHalfExtent)

	l, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, l)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown key", `colour = "red"`, "colour"},
		{"bad duration", `eval_timeout = "soon"`, "soon"},
		{"bad policy", `policy = "ignore"`, "ignore"},
		{"bad level", `log_level = "loud"`, "log_level"},
		{"zero cells", `mesh_cells = 0`, "mesh_cells"},
		{"negative extent", `search_half_extent = -1.0`, "search_half_extent"},
		{"deep search", `bounds_depth = 40`, "bounds_depth"},
		{"syntax", `policy = `, "frep.toml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWriteThenLoad(t *testing.T) {
	cfg := Default()
	cfg.Workers = 3
	cfg.EvalTimeout = Duration{2 * time.Second}
	path := filepath.Join(t.TempDir(), "out.toml")
	require.NoError(t, cfg.Write(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Workers = -1
	cfg.MeshCells = 1
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workers")
	assert.Contains(t, err.Error(), "mesh_cells")
}

func TestOptions(t *testing.T) {
	cfg := Default()
	assert.Len(t, cfg.EngineOptions(slog.Default()), 3)
	assert.Len(t, cfg.TessellateOptions(nil), 4)
}
