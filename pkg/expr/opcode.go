package expr

// Opcode enumerates the operations a Node can perform. The set is closed:
// every evaluator switches over all of it.
type Opcode uint8

const (
	OpInvalid Opcode = iota

	// Leaves.
	OpConst   // numeric constant
	OpVarX    // the X axis
	OpVarY    // the Y axis
	OpVarZ    // the Z axis
	OpVarFree // a user-declared free variable

	// Unary operations.
	OpSquare
	OpSqrt
	OpNeg
	OpSin
	OpCos
	OpTan
	OpAsin
	OpAcos
	OpAtan
	OpExp
	OpLog
	OpAbs
	OpRecip
	OpConstVar // value passes through, derivatives are zero

	// Binary operations.
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMin
	OpMax
	OpAtan2
	OpPow
	OpNthRoot
	OpMod
	OpNanFill
	OpCompare

	// OpRemapAffine evaluates its child at an affinely transformed point.
	// It carries an Affine payload and is expanded by Flatten.
	OpRemapAffine

	opCount
)

var opNames = [...]string{
	OpInvalid:     "invalid",
	OpConst:       "const",
	OpVarX:        "x",
	OpVarY:        "y",
	OpVarZ:        "z",
	OpVarFree:     "var",
	OpSquare:      "square",
	OpSqrt:        "sqrt",
	OpNeg:         "neg",
	OpSin:         "sin",
	OpCos:         "cos",
	OpTan:         "tan",
	OpAsin:        "asin",
	OpAcos:        "acos",
	OpAtan:        "atan",
	OpExp:         "exp",
	OpLog:         "log",
	OpAbs:         "abs",
	OpRecip:       "recip",
	OpConstVar:    "const-var",
	OpAdd:         "add",
	OpSub:         "sub",
	OpMul:         "mul",
	OpDiv:         "div",
	OpMin:         "min",
	OpMax:         "max",
	OpAtan2:       "atan2",
	OpPow:         "pow",
	OpNthRoot:     "nth-root",
	OpMod:         "mod",
	OpNanFill:     "nan-fill",
	OpCompare:     "compare",
	OpRemapAffine: "remap-affine",
}

func (op Opcode) String() string {
	if op < opCount {
		return opNames[op]
	}
	return "unknown"
}

// Arity returns the number of child operands the opcode takes.
func (op Opcode) Arity() int {
	switch {
	case op >= OpConst && op <= OpVarFree:
		return 0
	case op >= OpSquare && op <= OpConstVar:
		return 1
	case op >= OpAdd && op <= OpCompare:
		return 2
	case op == OpRemapAffine:
		return 1
	default:
		return -1
	}
}

// IsLeaf reports whether the opcode has no children.
func (op Opcode) IsLeaf() bool { return op.Arity() == 0 }

// IsVar reports whether the opcode is an axis or free variable.
func (op Opcode) IsVar() bool { return op >= OpVarX && op <= OpVarFree }

// Commutative reports whether operand order does not affect the value.
func (op Opcode) Commutative() bool {
	switch op {
	case OpAdd, OpMul, OpMin, OpMax:
		return true
	}
	return false
}

// Valid reports whether op is a member of the enumeration.
func (op Opcode) Valid() bool { return op > OpInvalid && op < opCount }

// Opcodes returns every valid opcode in declaration order.
func Opcodes() []Opcode {
	ops := make([]Opcode, 0, int(opCount)-1)
	for op := OpConst; op < opCount; op++ {
		ops = append(ops, op)
	}
	return ops
}

// ParseOpcode looks an opcode up by its String form.
func ParseOpcode(name string) (Opcode, bool) {
	for op := OpConst; op < opCount; op++ {
		if opNames[op] == name {
			return op, true
		}
	}
	return OpInvalid, false
}
