package eval

import (
	"fmt"
	"math"

	"github.com/chazu/frep/pkg/expr"
)

// Interval is a closed range [Lo, Hi] of reals. Infinite endpoints are
// allowed; Entire() is the unbounded interval produced whenever an
// operation may leave its domain somewhere inside its inputs.
type Interval struct {
	Lo, Hi float64
}

// I returns the interval spanning lo and hi in either order.
func I(lo, hi float64) Interval {
	if lo > hi {
		lo, hi = hi, lo
	}
	return Interval{Lo: lo, Hi: hi}
}

// Point returns the degenerate interval [v, v].
func Point(v float64) Interval { return Interval{Lo: v, Hi: v} }

// Entire returns (-∞, ∞).
func Entire() Interval { return Interval{Lo: math.Inf(-1), Hi: math.Inf(1)} }

// IsEntire reports whether the interval is unbounded on both sides.
func (i Interval) IsEntire() bool { return math.IsInf(i.Lo, -1) && math.IsInf(i.Hi, 1) }

// IsEmpty reports whether the interval contains no value.
func (i Interval) IsEmpty() bool { return !(i.Lo <= i.Hi) }

// IsPoint reports whether Lo == Hi.
func (i Interval) IsPoint() bool { return i.Lo == i.Hi }

// Contains reports whether v lies in the interval.
func (i Interval) Contains(v float64) bool { return v >= i.Lo && v <= i.Hi }

// ContainsZero reports whether 0 lies in the interval.
func (i Interval) ContainsZero() bool { return i.Lo <= 0 && i.Hi >= 0 }

// Width returns Hi - Lo.
func (i Interval) Width() float64 { return i.Hi - i.Lo }

// Mid returns the midpoint.
func (i Interval) Mid() float64 { return i.Lo + (i.Hi-i.Lo)/2 }

// Hull returns the smallest interval containing both i and o.
func (i Interval) Hull(o Interval) Interval {
	return Interval{Lo: math.Min(i.Lo, o.Lo), Hi: math.Max(i.Hi, o.Hi)}
}

func (i Interval) String() string {
	return fmt.Sprintf("[%g, %g]", i.Lo, i.Hi)
}

// span builds an interval from candidate extrema, widening to Entire when
// any candidate is NaN (for example 0·∞ or ∞-∞).
func span(vals ...float64) Interval {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range vals {
		if math.IsNaN(v) {
			return Entire()
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return Interval{Lo: lo, Hi: hi}
}

// applyInterval evaluates op over interval operands. It never fails: any
// possible domain error inside the inputs widens the result to Entire.
func applyInterval(op expr.Opcode, a, b Interval) Interval {
	switch op {
	case expr.OpSquare:
		return iSquare(a)
	case expr.OpSqrt:
		if a.Lo < 0 {
			return Entire()
		}
		return Interval{math.Sqrt(a.Lo), math.Sqrt(a.Hi)}
	case expr.OpNeg:
		return Interval{-a.Hi, -a.Lo}
	case expr.OpSin:
		return iSin(a)
	case expr.OpCos:
		return iCos(a)
	case expr.OpTan:
		return iTan(a)
	case expr.OpAsin:
		if a.Lo < -1 || a.Hi > 1 {
			return Entire()
		}
		return Interval{math.Asin(a.Lo), math.Asin(a.Hi)}
	case expr.OpAcos:
		if a.Lo < -1 || a.Hi > 1 {
			return Entire()
		}
		return Interval{math.Acos(a.Hi), math.Acos(a.Lo)}
	case expr.OpAtan:
		return Interval{math.Atan(a.Lo), math.Atan(a.Hi)}
	case expr.OpExp:
		return Interval{math.Exp(a.Lo), math.Exp(a.Hi)}
	case expr.OpLog:
		if a.Lo <= 0 {
			return Entire()
		}
		return Interval{math.Log(a.Lo), math.Log(a.Hi)}
	case expr.OpAbs:
		switch {
		case a.Lo >= 0:
			return a
		case a.Hi <= 0:
			return Interval{-a.Hi, -a.Lo}
		}
		return Interval{0, math.Max(-a.Lo, a.Hi)}
	case expr.OpRecip:
		if a.ContainsZero() {
			return Entire()
		}
		return span(1/a.Lo, 1/a.Hi)
	case expr.OpConstVar:
		return a
	case expr.OpAdd:
		return span(a.Lo+b.Lo, a.Hi+b.Hi)
	case expr.OpSub:
		return span(a.Lo-b.Hi, a.Hi-b.Lo)
	case expr.OpMul:
		return span(a.Lo*b.Lo, a.Lo*b.Hi, a.Hi*b.Lo, a.Hi*b.Hi)
	case expr.OpDiv:
		if b.ContainsZero() {
			return Entire()
		}
		return span(a.Lo/b.Lo, a.Lo/b.Hi, a.Hi/b.Lo, a.Hi/b.Hi)
	case expr.OpMin:
		return Interval{math.Min(a.Lo, b.Lo), math.Min(a.Hi, b.Hi)}
	case expr.OpMax:
		return Interval{math.Max(a.Lo, b.Lo), math.Max(a.Hi, b.Hi)}
	case expr.OpAtan2:
		return iAtan2(a, b)
	case expr.OpPow:
		return iPow(a, b)
	case expr.OpNthRoot:
		return iNthRoot(a, b)
	case expr.OpMod:
		return iMod(a, b)
	case expr.OpNanFill:
		// a may be NaN somewhere in the box even when bounded: cos or abs
		// of a widened operand narrows it again.
		return a.Hull(b)
	case expr.OpCompare:
		switch {
		case a.Hi < b.Lo:
			return Point(-1)
		case a.Lo > b.Hi:
			return Point(1)
		case a.IsPoint() && b.IsPoint() && a.Lo == b.Lo:
			return Point(0)
		}
		return Interval{-1, 1}
	}
	panic(fmt.Sprintf("eval: interval evaluation of %s", op))
}

func iSquare(a Interval) Interval {
	switch {
	case a.Lo >= 0:
		return Interval{a.Lo * a.Lo, a.Hi * a.Hi}
	case a.Hi <= 0:
		return Interval{a.Hi * a.Hi, a.Lo * a.Lo}
	}
	return Interval{0, math.Max(a.Lo*a.Lo, a.Hi*a.Hi)}
}

// hasPeriodicPoint reports whether base + k·period lies in a for some
// integer k.
func hasPeriodicPoint(a Interval, base, period float64) bool {
	k := math.Ceil((a.Lo - base) / period)
	return base+k*period <= a.Hi
}

func iSin(a Interval) Interval {
	if math.IsInf(a.Lo, 0) || math.IsInf(a.Hi, 0) || a.Width() >= 2*math.Pi {
		return Interval{-1, 1}
	}
	out := span(math.Sin(a.Lo), math.Sin(a.Hi))
	if hasPeriodicPoint(a, math.Pi/2, 2*math.Pi) {
		out.Hi = 1
	}
	if hasPeriodicPoint(a, -math.Pi/2, 2*math.Pi) {
		out.Lo = -1
	}
	return out
}

func iCos(a Interval) Interval {
	if math.IsInf(a.Lo, 0) || math.IsInf(a.Hi, 0) || a.Width() >= 2*math.Pi {
		return Interval{-1, 1}
	}
	out := span(math.Cos(a.Lo), math.Cos(a.Hi))
	if hasPeriodicPoint(a, 0, 2*math.Pi) {
		out.Hi = 1
	}
	if hasPeriodicPoint(a, math.Pi, 2*math.Pi) {
		out.Lo = -1
	}
	return out
}

func iTan(a Interval) Interval {
	if math.IsInf(a.Lo, 0) || math.IsInf(a.Hi, 0) || a.Width() >= math.Pi {
		return Entire()
	}
	if hasPeriodicPoint(a, math.Pi/2, math.Pi) {
		return Entire()
	}
	return span(math.Tan(a.Lo), math.Tan(a.Hi))
}

func iAtan2(y, x Interval) Interval {
	full := Interval{-math.Pi, math.Pi}
	for _, v := range []float64{y.Lo, y.Hi, x.Lo, x.Hi} {
		if math.IsInf(v, 0) {
			return full
		}
	}
	// The branch cut lies on the negative x axis; the origin is singular.
	if y.ContainsZero() && x.Lo <= 0 {
		return full
	}
	// Away from the cut and the origin atan2 is monotone along each edge
	// of the box, so the extremes are at the corners.
	return span(
		math.Atan2(y.Lo, x.Lo), math.Atan2(y.Lo, x.Hi),
		math.Atan2(y.Hi, x.Lo), math.Atan2(y.Hi, x.Hi),
	)
}

func iPow(a, b Interval) Interval {
	if b.IsPoint() && b.Lo == math.Trunc(b.Lo) && !math.IsInf(b.Lo, 0) {
		n := b.Lo
		if n == 0 {
			return Point(1)
		}
		if n < 0 && a.ContainsZero() {
			return Entire()
		}
		p1, p2 := math.Pow(a.Lo, n), math.Pow(a.Hi, n)
		even := math.Mod(n, 2) == 0
		if even && n > 0 && a.Lo < 0 && a.Hi > 0 {
			return span(0, p1, p2)
		}
		return span(p1, p2)
	}
	if a.Lo > 0 || (a.Lo == 0 && b.Lo > 0) {
		return span(
			math.Pow(a.Lo, b.Lo), math.Pow(a.Lo, b.Hi),
			math.Pow(a.Hi, b.Lo), math.Pow(a.Hi, b.Hi),
		)
	}
	return Entire()
}

func iNthRoot(a, n Interval) Interval {
	if !n.IsPoint() || n.Lo < 1 || n.Lo != math.Trunc(n.Lo) || math.IsInf(n.Lo, 0) {
		return Entire()
	}
	lo, okLo := expr.Fold(expr.OpNthRoot, a.Lo, n.Lo)
	hi, okHi := expr.Fold(expr.OpNthRoot, a.Hi, n.Lo)
	if !okLo || !okHi {
		return Entire()
	}
	return span(lo, hi)
}

func iMod(a, m Interval) Interval {
	if m.ContainsZero() || math.IsInf(a.Lo, 0) || math.IsInf(a.Hi, 0) {
		if m.Lo > 0 {
			return Interval{0, m.Hi}
		}
		if m.Hi < 0 {
			return Interval{m.Lo, 0}
		}
		return Entire()
	}
	if m.IsPoint() && !math.IsInf(m.Lo, 0) {
		// Within one period the modulo is the identity shifted by k·m.
		if math.Floor(a.Lo/m.Lo) == math.Floor(a.Hi/m.Lo) {
			lo, _ := expr.Fold(expr.OpMod, a.Lo, m.Lo)
			hi, _ := expr.Fold(expr.OpMod, a.Hi, m.Lo)
			if lo <= hi {
				return Interval{lo, hi}
			}
		}
	}
	if m.Lo > 0 {
		return Interval{0, m.Hi}
	}
	return Interval{m.Lo, 0}
}
