package timer

// Timers owns the three counter instances and routes the system clock,
// GPU dot clock, and H/VBlank edge events to whichever instance is
// configured to count them, per spec.md §4.4. By PSX convention Timer 0
// syncs against HBlank and Timer 1 against VBlank; Timer 2 has no blank
// sync (modes 0/3 simply stop it, 1/2 free-run).
type Timers struct {
	T [3]*Timer

	inHBlank bool
	inVBlank bool
}

// New constructs the three timers, each notifying sink on its own IRQ bit.
func New(sink IrqSink, timer0Bit, timer1Bit, timer2Bit uint) *Timers {
	return &Timers{
		T: [3]*Timer{
			NewTimer(timer0Bit, sink),
			NewTimer(timer1Bit, sink),
			NewTimer(timer2Bit, sink),
		},
	}
}

func clockSource(mode uint16) uint16 { return (mode >> bitClockSource) & 0x3 }

// NotifySystemClock feeds cycles system-clock pulses to Timer 0 (if not
// dot-clocked) and Timer 2 (if not /8-divided); Timer 2's /8 divider
// accumulates a remainder across calls.
func (t *Timers) NotifySystemClock(cycles uint32) {
	t0 := t.T[0]
	if clockSource(t0.mode)&1 == 0 {
		t0.Tick(cycles, t.inHBlank)
	}

	t1 := t.T[1]
	if clockSource(t1.mode)&1 == 0 {
		t1.Tick(cycles, t.inVBlank)
	}

	// Timer 2 has no blank input: it is ticked with inBlank=true, so the
	// blank gate stops it in sync modes 0 and 3 and lets it run in 1 and 2.
	t2 := t.T[2]
	if clockSource(t2.mode)&2 == 0 {
		t2.Tick(cycles, true)
	} else {
		t2.remainingCycles += cycles
		whole := t2.remainingCycles / 8
		t2.remainingCycles %= 8
		if whole > 0 {
			t2.Tick(whole, true)
		}
	}
}

// NotifyDots feeds dots GPU-dot-clock pulses to Timer 0 when it is
// dot-clocked.
func (t *Timers) NotifyDots(dots uint32) {
	t0 := t.T[0]
	if clockSource(t0.mode)&1 == 1 {
		t0.Tick(dots, t.inHBlank)
	}
}

// NotifyHBlankStart marks the start of horizontal retrace: Timer 1 gets
// one HBlank-sourced pulse if configured for it, and Timer 0's sync gate
// sees the blank edge.
func (t *Timers) NotifyHBlankStart() {
	t.inHBlank = true
	t.T[0].NotifyBlankEdge()

	t1 := t.T[1]
	if clockSource(t1.mode)&1 == 1 {
		t1.Tick(1, false)
	}
}

// NotifyHBlankEnd marks the end of horizontal retrace.
func (t *Timers) NotifyHBlankEnd() {
	t.inHBlank = false
}

// NotifyVBlankStart marks the start of vertical retrace, driving Timer 1's
// sync gate.
func (t *Timers) NotifyVBlankStart() {
	t.inVBlank = true
	t.T[1].NotifyBlankEdge()
}

// NotifyVBlankEnd marks the end of vertical retrace.
func (t *Timers) NotifyVBlankEnd() {
	t.inVBlank = false
}
