// Package eval evaluates expression trees at points, over boxes and with
// forward-mode derivatives.
package eval

import (
	"fmt"
	"math"
	"runtime"

	"github.com/chazu/frep/pkg/expr"
)

// Mode selects what Evaluate computes.
type Mode uint8

const (
	ModeScalar Mode = iota
	ModeInterval
	ModeGradient
)

func (m Mode) String() string {
	switch m {
	case ModeScalar:
		return "scalar"
	case ModeInterval:
		return "interval"
	case ModeGradient:
		return "gradient"
	}
	return fmt.Sprintf("mode(%d)", uint8(m))
}

// ParseMode accepts the names returned by Mode.String.
func ParseMode(s string) (Mode, error) {
	for _, m := range []Mode{ModeScalar, ModeInterval, ModeGradient} {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("eval: unknown mode %q", s)
}

// DomainPolicy controls what Scalar and Gradient evaluation do when an
// operation leaves its domain.
type DomainPolicy uint8

const (
	// PolicyError aborts with a *DomainError.
	PolicyError DomainPolicy = iota
	// PolicyNaN continues with NaN.
	PolicyNaN
)

func (p DomainPolicy) String() string {
	if p == PolicyNaN {
		return "nan"
	}
	return "error"
}

// ParsePolicy accepts "error" and "nan".
func ParsePolicy(s string) (DomainPolicy, error) {
	switch s {
	case "error", "":
		return PolicyError, nil
	case "nan":
		return PolicyNaN, nil
	}
	return 0, fmt.Errorf("eval: unknown domain policy %q", s)
}

type options struct {
	policy  DomainPolicy
	workers int
}

// Option configures evaluation.
type Option func(*options)

// WithPolicy sets the domain policy. The default is PolicyError.
func WithPolicy(p DomainPolicy) Option {
	return func(o *options) { o.policy = p }
}

// WithWorkers bounds the goroutines used by Batch and BatchIntervals.
// Values below 1 select runtime.GOMAXPROCS(0).
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

func newOptions(opts []Option) options {
	o := options{policy: PolicyError}
	for _, opt := range opts {
		opt(&o)
	}
	if o.workers < 1 {
		o.workers = runtime.GOMAXPROCS(0)
	}
	return o
}

// Context binds variables for one evaluation.
type Context struct {
	Values    map[expr.Var]float64
	Intervals map[expr.Var]Interval
}

// At binds the axes to a point.
func At(x, y, z float64) *Context {
	return &Context{Values: map[expr.Var]float64{expr.VarX: x, expr.VarY: y, expr.VarZ: z}}
}

// Over binds the axes to a box.
func Over(x, y, z Interval) *Context {
	return &Context{Intervals: map[expr.Var]Interval{expr.VarX: x, expr.VarY: y, expr.VarZ: z}}
}

// With binds v to val and returns c.
func (c *Context) With(v expr.Var, val float64) *Context {
	if c.Values == nil {
		c.Values = make(map[expr.Var]float64)
	}
	c.Values[v] = val
	return c
}

// WithInterval binds v to iv and returns c.
func (c *Context) WithInterval(v expr.Var, iv Interval) *Context {
	if c.Intervals == nil {
		c.Intervals = make(map[expr.Var]Interval)
	}
	c.Intervals[v] = iv
	return c
}

func (c *Context) value(v expr.Var) (float64, bool) {
	if c == nil {
		return 0, false
	}
	val, ok := c.Values[v]
	return val, ok
}

func (c *Context) interval(v expr.Var) (Interval, bool) {
	if c == nil {
		return Interval{}, false
	}
	if iv, ok := c.Intervals[v]; ok {
		return iv, true
	}
	if val, ok := c.Values[v]; ok {
		return Point(val), true
	}
	return Interval{}, false
}

// Result holds the output of Evaluate. Only the fields for the requested
// mode are set.
type Result struct {
	Mode     Mode
	Value    float64
	Interval Interval
	Gradient map[expr.Var]float64
}

// Evaluate compiles t and evaluates it once in the given mode. Callers
// evaluating the same tree repeatedly should Compile once and use the
// Tape methods.
func Evaluate(t expr.Tree, c *Context, mode Mode, opts ...Option) (Result, error) {
	tp, err := Compile(t)
	if err != nil {
		return Result{}, err
	}
	return tp.Evaluate(c, mode, opts...)
}

// Evaluate evaluates the tape in the given mode.
func (tp *Tape) Evaluate(c *Context, mode Mode, opts ...Option) (Result, error) {
	res := Result{Mode: mode}
	var err error
	switch mode {
	case ModeScalar:
		res.Value, err = tp.Scalar(c, opts...)
	case ModeInterval:
		res.Interval, err = tp.Interval(c)
	case ModeGradient:
		res.Value, res.Gradient, err = tp.Gradient(c, opts...)
	default:
		return Result{}, fmt.Errorf("eval: unknown mode %s", mode)
	}
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// IsInside reports whether v denotes a point inside the solid (v < 0).
// NaN is outside.
func IsInside(v float64) bool { return v < 0 && !math.IsNaN(v) }
