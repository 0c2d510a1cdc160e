package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/frep/pkg/eval"
	"github.com/chazu/frep/pkg/expr"
)

// ValidationSeverity indicates whether a validation finding blocks meshing
// or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks meshing
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	Shape    string // which shape has the problem
	Message  string
	Severity ValidationSeverity
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] shape %q: %s", e.Severity, e.Shape, e.Message)
}

// ValidationResult bundles errors (blocking) and warnings (advisory) from
// all validation tiers.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// OK reports whether no blocking finding was made.
func (r ValidationResult) OK() bool { return len(r.Errors) == 0 }

func (r *ValidationResult) add(e ValidationError) {
	if e.Severity == SeverityError {
		r.Errors = append(r.Errors, e)
	} else {
		r.Warnings = append(r.Warnings, e)
	}
}

// Validate checks every shape of d. Tier 1 looks at the tree alone; tier 2
// evaluates the shape over its bounds, or over search when the shape has
// none. Validate never mutates the design.
func Validate(d *Design, search eval.Box3) ValidationResult {
	var r ValidationResult
	for _, s := range d.Shapes {
		findings := validateStructure(d, s)
		blocked := false
		for _, f := range findings {
			r.add(f)
			blocked = blocked || f.Severity == SeverityError
		}
		if blocked {
			continue
		}
		for _, f := range validateGeometry(d, s, search) {
			r.add(f)
		}
	}
	return r
}

// validateStructure is tier 1: the tree must be valid, every free variable
// needs a default, and a shape should depend on at least one axis.
func validateStructure(d *Design, s Shape) []ValidationError {
	if !s.Tree.IsValid() {
		return []ValidationError{{Shape: s.Name, Message: "tree is invalid", Severity: SeverityError}}
	}
	var out []ValidationError
	var unbound []string
	for _, v := range s.Tree.Vars() {
		if _, ok := d.Values[v]; !ok {
			unbound = append(unbound, d.Arena.VarName(v))
		}
	}
	if len(unbound) > 0 {
		out = append(out, ValidationError{
			Shape:    s.Name,
			Message:  "free variables without a value: " + strings.Join(unbound, ", "),
			Severity: SeverityError,
		})
	}
	if !s.Tree.DependsOn(expr.VarX) && !s.Tree.DependsOn(expr.VarY) && !s.Tree.DependsOn(expr.VarZ) {
		out = append(out, ValidationError{
			Shape:    s.Name,
			Message:  "does not depend on x, y or z",
			Severity: SeverityWarning,
		})
	}
	return out
}

// validateGeometry is tier 2: interval evaluation over the bounds flags
// shapes that are empty or solid throughout.
func validateGeometry(d *Design, s Shape, search eval.Box3) []ValidationError {
	box := search
	if s.Bounds != nil {
		box = *s.Bounds
	}
	t, err := d.Resolve(s)
	if err != nil {
		return []ValidationError{{Shape: s.Name, Message: err.Error(), Severity: SeverityError}}
	}
	tp, err := eval.Compile(t)
	if err != nil {
		return []ValidationError{{Shape: s.Name, Message: err.Error(), Severity: SeverityError}}
	}
	region, err := eval.Classify(tp, box)
	if err != nil {
		return []ValidationError{{Shape: s.Name, Message: err.Error(), Severity: SeverityError}}
	}
	switch region {
	case eval.Empty:
		return []ValidationError{{
			Shape:    s.Name,
			Message:  fmt.Sprintf("is empty over %s", box),
			Severity: SeverityWarning,
		}}
	case eval.Filled:
		return []ValidationError{{
			Shape:    s.Name,
			Message:  fmt.Sprintf("fills all of %s", box),
			Severity: SeverityWarning,
		}}
	}
	return nil
}
