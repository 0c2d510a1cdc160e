package expr

import "math"

// Fold computes op on scalar operands. It returns ok=false when the
// operation is outside its mathematical domain: division, reciprocal or
// modulo by zero, sqrt or even roots of negatives, log of non-positive
// values, asin/acos outside [-1, 1], negative bases with non-integer
// exponents, and any operation producing NaN from non-NaN operands.
// b is ignored for unary opcodes.
//
// Fold is the single definition of scalar semantics shared by the
// builder's constant folding, the simplifier and the evaluator.
func Fold(op Opcode, a, b float64) (float64, bool) {
	var r float64
	switch op {
	case OpSquare:
		r = a * a
	case OpSqrt:
		if a < 0 {
			return math.NaN(), false
		}
		r = math.Sqrt(a)
	case OpNeg:
		r = -a
	case OpSin:
		r = math.Sin(a)
	case OpCos:
		r = math.Cos(a)
	case OpTan:
		r = math.Tan(a)
	case OpAsin:
		if a < -1 || a > 1 {
			return math.NaN(), false
		}
		r = math.Asin(a)
	case OpAcos:
		if a < -1 || a > 1 {
			return math.NaN(), false
		}
		r = math.Acos(a)
	case OpAtan:
		r = math.Atan(a)
	case OpExp:
		r = math.Exp(a)
	case OpLog:
		if a <= 0 {
			return math.NaN(), false
		}
		r = math.Log(a)
	case OpAbs:
		r = math.Abs(a)
	case OpRecip:
		if a == 0 {
			return math.NaN(), false
		}
		r = 1 / a
	case OpConstVar:
		r = a
	case OpAdd:
		r = a + b
	case OpSub:
		r = a - b
	case OpMul:
		r = a * b
	case OpDiv:
		if b == 0 {
			return math.NaN(), false
		}
		r = a / b
	case OpMin:
		// NaN operands propagate rather than being silently dropped.
		if math.IsNaN(a) || math.IsNaN(b) {
			return math.NaN(), true
		}
		r = math.Min(a, b)
	case OpMax:
		if math.IsNaN(a) || math.IsNaN(b) {
			return math.NaN(), true
		}
		r = math.Max(a, b)
	case OpAtan2:
		r = math.Atan2(a, b)
	case OpPow:
		if a < 0 && b != math.Trunc(b) {
			return math.NaN(), false
		}
		if a == 0 && b < 0 {
			return math.NaN(), false
		}
		r = math.Pow(a, b)
	case OpNthRoot:
		return nthRoot(a, b)
	case OpMod:
		if b == 0 {
			return math.NaN(), false
		}
		r = math.Mod(a, b)
		if r != 0 && (r < 0) != (b < 0) {
			r += b
		}
	case OpNanFill:
		if math.IsNaN(a) {
			return b, true
		}
		return a, true
	case OpCompare:
		switch {
		case math.IsNaN(a) || math.IsNaN(b):
			return math.NaN(), true
		case a < b:
			r = -1
		case a > b:
			r = 1
		default:
			r = 0
		}
	default:
		return math.NaN(), false
	}
	if math.IsNaN(r) && !math.IsNaN(a) && (op.Arity() == 1 || !math.IsNaN(b)) {
		return r, false
	}
	return r, true
}

// nthRoot computes the real n-th root of a. n must be a positive integer;
// odd roots of negative numbers are negative.
func nthRoot(a, n float64) (float64, bool) {
	if n <= 0 || n != math.Trunc(n) {
		return math.NaN(), false
	}
	switch n {
	case 1:
		return a, true
	case 2:
		if a < 0 {
			return math.NaN(), false
		}
		return math.Sqrt(a), true
	case 3:
		return math.Cbrt(a), true
	}
	odd := math.Mod(n, 2) == 1
	if a < 0 {
		if !odd {
			return math.NaN(), false
		}
		return -math.Pow(-a, 1/n), true
	}
	return math.Pow(a, 1/n), true
}
