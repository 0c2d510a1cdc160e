package expr

import (
	"errors"
	"fmt"
)

// Construction-time error taxonomy. Every failed combinator returns one of
// these, wrapped in a *BuildError naming the operation.
var (
	ErrInvalidValue  = errors.New("expr: invalid value")
	ErrArenaMismatch = errors.New("expr: trees belong to different arenas")
	ErrArity         = errors.New("expr: wrong operand count")
	ErrArenaClosed   = errors.New("expr: arena closed")
)

// BuildError reports a failed Builder call. The tree is never left
// partially constructed.
type BuildError struct {
	Op  Opcode
	Err error  // one of the sentinel errors above
	Msg string // detail, may be empty
}

func (e *BuildError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Err, e.Msg)
}

func (e *BuildError) Unwrap() error { return e.Err }

func buildErr(op Opcode, err error, format string, args ...any) error {
	return &BuildError{Op: op, Err: err, Msg: fmt.Sprintf(format, args...)}
}
