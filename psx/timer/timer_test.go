package timer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeSink struct {
	notified []uint
}

func (f *fakeSink) Notify(bit uint) { f.notified = append(f.notified, bit) }

func TestTick_ReachesTargetAndFiresOnce(t *testing.T) {
	sink := &fakeSink{}
	tm := NewTimer(4, sink)
	tm.SetTarget(10)
	tm.SetMode((1 << bitResetMode) | (1 << bitIRQOnTarget)) // reset-on-target, irq-on-target, one-shot

	tm.Tick(10, false) // current 0 -> 10, equals target but no reset yet (limit = target+1 = 11, sum=10 < 11)
	assert.Equal(t, uint16(10), tm.Current())
	assert.Empty(t, sink.notified, "not yet reached: sum 10 < limit 11")

	tm.Tick(1, false) // sum=11 >= limit 11, wraps to 0, fires
	assert.Equal(t, uint16(0), tm.Current())
	assert.Equal(t, []uint{4}, sink.notified)

	tm.Tick(11, false) // one-shot: must not fire again
	assert.Equal(t, []uint{4}, sink.notified, "one-shot mode must not re-fire without a mode rewrite")
}

func TestTick_RepeatModeFiresEveryWrap(t *testing.T) {
	sink := &fakeSink{}
	tm := NewTimer(5, sink)
	tm.SetTarget(3)
	tm.SetMode((1 << bitResetMode) | (1 << bitIRQOnTarget) | (1 << bitOneShot)) // repeat

	tm.Tick(4, false) // wraps once (limit=4)
	tm.Tick(4, false) // wraps again
	assert.Equal(t, []uint{5, 5}, sink.notified)
}

func TestSyncMode0_PausesDuringBlank(t *testing.T) {
	sink := &fakeSink{}
	tm := NewTimer(0, sink)
	tm.SetMode(1 << bitSyncEnable) // sync mode 0 = pause during blank

	tm.Tick(5, true) // in blank, should not advance
	assert.Equal(t, uint16(0), tm.Current())

	tm.Tick(5, false) // not in blank, should advance
	assert.Equal(t, uint16(5), tm.Current())
}

func TestMode_ReadClearsStickyBits(t *testing.T) {
	sink := &fakeSink{}
	tm := NewTimer(0, sink)
	tm.SetTarget(1)
	tm.SetMode(1 << bitResetMode)

	tm.Tick(2, false) // reaches target, sets bitReachedTgt

	m := tm.Mode()
	assert.NotEqual(t, uint16(0), m&(1<<bitReachedTgt))

	m2 := tm.Mode()
	assert.Equal(t, uint16(0), m2&(1<<bitReachedTgt), "reading Mode must clear the sticky status bit")
}
