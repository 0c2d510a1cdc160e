// Package engine evaluates frep Lisp scripts. It wraps zygomys in a
// sandboxed environment and collects the named shapes a script defines
// into a Design.
package engine

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chazu/frep/pkg/eval"
	"github.com/chazu/frep/pkg/expr"
	zygo "github.com/glycerine/zygomys/zygo"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Shape is a named root registered with defshape.
type Shape struct {
	Name string
	Tree expr.Tree
	// Bounds is the explicit bounding box, nil when the script gave none.
	Bounds *eval.Box3
}

// Design is the result of one evaluation. It owns the arena every tree of
// the evaluation was built in.
type Design struct {
	Arena  *expr.Arena
	Shapes []Shape
	// Values holds the default values given to free variables.
	Values map[expr.Var]float64

	index map[string]int
	vars  map[string]expr.Tree
}

func newDesign() *Design {
	return &Design{
		Arena:  expr.NewArena(),
		Values: make(map[expr.Var]float64),
		index:  make(map[string]int),
		vars:   make(map[string]expr.Tree),
	}
}

// Lookup returns the shape with the given name.
func (d *Design) Lookup(name string) (Shape, bool) {
	i, ok := d.index[name]
	if !ok {
		return Shape{}, false
	}
	return d.Shapes[i], true
}

// Names returns the shape names in definition order.
func (d *Design) Names() []string {
	names := make([]string, len(d.Shapes))
	for i, s := range d.Shapes {
		names[i] = s.Name
	}
	return names
}

// At returns an evaluation context at (x, y, z) with every defaulted free
// variable bound.
func (d *Design) At(x, y, z float64) *eval.Context {
	c := eval.At(x, y, z)
	for v, val := range d.Values {
		c.With(v, val)
	}
	return c
}

// Resolve returns the tree of s with every defaulted free variable
// replaced by its value.
func (d *Design) Resolve(s Shape) (expr.Tree, error) {
	return expr.Bind(s.Tree, d.Values)
}

// Close releases the arena. Trees stay evaluable.
func (d *Design) Close() { d.Arena.Close() }

func (d *Design) define(s Shape) error {
	if _, dup := d.index[s.Name]; dup {
		return fmt.Errorf("shape %q already defined", s.Name)
	}
	d.index[s.Name] = len(d.Shapes)
	d.Shapes = append(d.Shapes, s)
	return nil
}

// variable returns the free variable called name, declaring it on first use.
func (d *Design) variable(name string) (expr.Tree, error) {
	if t, ok := d.vars[name]; ok {
		return t, nil
	}
	t, err := d.Arena.Var(name)
	if err != nil {
		return expr.Tree{}, err
	}
	d.vars[name] = t
	return t, nil
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithSimplify simplifies every shape as defshape registers it.
func WithSimplify(on bool) Option {
	return func(e *Engine) { e.simplify = on }
}

// Engine wraps the zygomys interpreter. It is safe for concurrent use;
// each call to Evaluate creates a fresh sandbox and a fresh arena.
type Engine struct {
	mu         sync.Mutex
	generation uint64

	timeout  time.Duration
	log      *slog.Logger
	simplify bool
}

// NewEngine creates a new Engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{timeout: DefaultTimeout, log: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate runs source and returns the Design it defines.
//
// Return semantics:
//   - On success: returns design + nil errors + nil error
//   - On parse/eval failure: returns nil design + eval errors + nil error
//   - On fatal failure (timeout, panic, superseded): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*Design, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		d, evalErrs, err := e.evaluate(source)
		ch <- evalResult{design: d, errors: evalErrs, err: err}
	}()

	start := time.Now()
	d, evalErrs, err := waitWithTimeout(ch, gen, &e.mu, &e.generation, e.timeout)
	switch {
	case err != nil:
		e.log.Error("evaluation failed", "generation", gen, "err", err)
	case len(evalErrs) > 0:
		e.log.Debug("evaluation reported errors", "generation", gen, "errors", len(evalErrs))
	default:
		e.log.Debug("evaluation done", "generation", gen, "shapes", len(d.Shapes),
			"nodes", d.Arena.Len(), "elapsed", time.Since(start))
	}
	return d, evalErrs, err
}

func (e *Engine) evaluate(source string) (*Design, []EvalError, error) {
	d := newDesign()
	if strings.TrimSpace(source) == "" {
		return d, nil, nil
	}

	// Sandbox mode keeps scripts away from the filesystem and syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	registerBuiltins(env, &session{design: d, simplify: e.simplify, log: e.log})

	if err := env.LoadString(preprocessSource(source)); err != nil {
		d.Close()
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		d.Close()
		return nil, parseZygomysError(err), nil
	}
	return d, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into EvalErrors, extracting
// the line number when the message carries one.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()
	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
