package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chazu/frep/pkg/expr"
)

// Every operation that can appear on a tape must be handled by each mode.
func TestEveryOpcodeHasIntervalAndDerivative(t *testing.T) {
	for _, op := range expr.Opcodes() {
		if op.IsLeaf() || op == expr.OpRemapAffine {
			continue
		}
		assert.NotPanics(t, func() { applyInterval(op, I(0.5, 1), I(1, 2)) }, "interval %s", op)
		assert.NotPanics(t, func() { derivative(op, 0.5, 2, 0.25, 1, 1) }, "derivative %s", op)
	}
}

func TestIntervalHelpers(t *testing.T) {
	assert.True(t, Entire().IsEntire())
	assert.True(t, Interval{Lo: 1, Hi: 0}.IsEmpty())
	assert.False(t, Point(3).IsEmpty())
	assert.Equal(t, I(-1, 5), I(5, -1))
	assert.Equal(t, I(-1, 4), I(-1, 0).Hull(I(2, 4)))
	assert.Equal(t, 2.0, I(1, 3).Mid())

	assert.Equal(t, I(-1, 1), iSin(I(0, 7)))
	s := iSin(I(0, 2))
	assert.Equal(t, 1.0, s.Hi)
	assert.InDelta(t, 0, s.Lo, 1e-15)

	assert.True(t, iTan(I(1, 2)).IsEntire())
	assert.Equal(t, I(0, 9), iSquare(I(-3, 2)))
	assert.Equal(t, I(0, 2), iMod(I(-10, 10), Point(2)))
	m := iMod(I(2.5, 3.5), Point(2))
	assert.InDelta(t, 0.5, m.Lo, 1e-15)
	assert.InDelta(t, 1.5, m.Hi, 1e-15)
}
