package eval

import (
	"errors"
	"fmt"

	"github.com/chazu/frep/pkg/expr"
)

var (
	// ErrDomain is wrapped by every *DomainError.
	ErrDomain = errors.New("eval: domain error")

	// ErrUnbound is returned when a tree references a variable the
	// Context does not bind.
	ErrUnbound = errors.New("eval: unbound variable")

	// ErrInvalidTree is returned when compiling the zero Tree.
	ErrInvalidTree = errors.New("eval: invalid tree")
)

// DomainError reports an operation evaluated outside its domain, such as
// division by zero or the square root of a negative number.
type DomainError struct {
	Op   expr.Opcode
	Args []float64
}

func (e *DomainError) Error() string {
	switch len(e.Args) {
	case 1:
		return fmt.Sprintf("eval: %s(%g) is outside its domain", e.Op, e.Args[0])
	case 2:
		return fmt.Sprintf("eval: %s(%g, %g) is outside its domain", e.Op, e.Args[0], e.Args[1])
	}
	return fmt.Sprintf("eval: %s is outside its domain", e.Op)
}

func (e *DomainError) Unwrap() error { return ErrDomain }

func domainError(op expr.Opcode, a, b float64) *DomainError {
	if op.Arity() == 1 {
		return &DomainError{Op: op, Args: []float64{a}}
	}
	return &DomainError{Op: op, Args: []float64{a, b}}
}

func unbound(name string) error {
	return fmt.Errorf("%w: %s", ErrUnbound, name)
}
