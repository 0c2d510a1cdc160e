package main

import (
	"context"
	"log/slog"

	"github.com/chazu/frep/pkg/config"
	"github.com/chazu/frep/pkg/engine"
	"github.com/chazu/frep/pkg/eval"
	"github.com/chazu/frep/pkg/kernel/sdfx"
	"github.com/chazu/frep/pkg/tessellate"
)

// colorPalette is a default palette used to assign distinct colors to parts.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// App runs scripts through the engine, validation and meshing.
type App struct {
	cfg    config.Config
	log    *slog.Logger
	engine *engine.Engine
}

// MeshData is the JSON form of one meshed shape.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	PartName string    `json:"partName"`
	Color    string    `json:"color"`
}

// EvalErrorData is the JSON form of an error or warning.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Shape   string `json:"shape,omitempty"`
	Message string `json:"message"`
}

// EvalResult is the full result of a build.
type EvalResult struct {
	Meshes   []MeshData      `json:"meshes"`
	Errors   []EvalErrorData `json:"errors"`
	Warnings []EvalErrorData `json:"warnings"`
}

// OK reports whether the build produced no errors.
func (r EvalResult) OK() bool { return len(r.Errors) == 0 }

// NewApp creates an App configured by cfg.
func NewApp(cfg config.Config, log *slog.Logger) *App {
	if log == nil {
		log = slog.Default()
	}
	return &App{
		cfg:    cfg,
		log:    log,
		engine: engine.NewEngine(cfg.EngineOptions(log)...),
	}
}

// Load evaluates source into a design. The caller closes the design.
func (a *App) Load(source string) (*engine.Design, []engine.EvalError, error) {
	return a.engine.Evaluate(source)
}

func (a *App) searchBox() eval.Box3 {
	h := a.cfg.SearchHalfExtent
	return eval.NewBox3([3]float64{-h, -h, -h}, [3]float64{h, h, h})
}

// Build evaluates source, validates every shape and meshes the valid
// design. Problems are reported in the result rather than returned.
func (a *App) Build(ctx context.Context, source string) EvalResult {
	result := EvalResult{
		Meshes:   []MeshData{},
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}

	d, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		a.log.Error("evaluate failed", "err", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{Line: e.Line, Col: e.Col, Message: e.Message})
		}
		return result
	}
	defer d.Close()

	vr := engine.Validate(d, a.searchBox())
	for _, w := range vr.Warnings {
		result.Warnings = append(result.Warnings, EvalErrorData{Shape: w.Shape, Message: w.Message})
	}
	if !vr.OK() {
		for _, e := range vr.Errors {
			result.Errors = append(result.Errors, EvalErrorData{Shape: e.Shape, Message: e.Message})
		}
		return result
	}

	k := sdfx.New(d.Arena, sdfx.WithMeshCells(a.cfg.MeshCells), sdfx.WithLogger(a.log))
	opts := append(a.cfg.TessellateOptions(a.log), tessellate.WithSkipEmpty(true))
	meshes, err := tessellate.Tessellate(ctx, d, k, opts...)
	if err != nil {
		a.log.Error("tessellate failed", "err", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: "tessellation failed: " + err.Error()})
		return result
	}

	for i, m := range meshes {
		result.Meshes = append(result.Meshes, MeshData{
			Vertices: m.Vertices,
			Normals:  m.Normals,
			Indices:  m.Indices,
			PartName: m.PartName,
			Color:    colorPalette[i%len(colorPalette)],
		})
	}
	return result
}
