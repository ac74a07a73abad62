package counter

import (
	"testing"
	"time"
)

const rearm = 10 * time.Millisecond

func at(ms int) time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(ms) * time.Millisecond)
}

func TestFirstFallingEdgeCounts(t *testing.T) {
	ch := &channelState{}
	if !ch.handleEdge(true, at(0), rearm) {
		t.Fatal("first falling edge should count")
	}
	if !ch.beamBroken {
		t.Error("latch should be set after a counted edge")
	}
}

func TestRisingEdgeNeverCounts(t *testing.T) {
	ch := &channelState{}
	if ch.handleEdge(false, at(0), rearm) {
		t.Error("rising edge on armed channel must not count")
	}
	ch.handleEdge(true, at(0), rearm)
	if ch.handleEdge(false, at(100), rearm) {
		t.Error("rising edge on broken channel must not count")
	}
	if ch.beamBroken {
		t.Error("rising edge should re-arm the latch")
	}
}

func TestChatterDuringOneInterruption(t *testing.T) {
	// Repeated falling edges with no intervening rising edge: electrical
	// bounce within a single pass, exactly one event.
	ch := &channelState{}
	count := 0
	for ms := 0; ms < 100; ms += 20 {
		if ch.handleEdge(true, at(ms), rearm) {
			count++
		}
	}
	if count != 1 {
		t.Errorf("sustained-low chatter counted %d times, want 1", count)
	}
}

func TestDoublePulseInsideRearmWindow(t *testing.T) {
	// Falling, rising, falling again within rearm_ms: the mechanical
	// double-pulse of a thin object. One event.
	ch := &channelState{}
	count := 0
	if ch.handleEdge(true, at(0), rearm) {
		count++
	}
	ch.handleEdge(false, at(3), rearm)
	if ch.handleEdge(true, at(5), rearm) {
		count++
	}
	if count != 1 {
		t.Errorf("double pulse counted %d times, want 1", count)
	}
	if ch.beamBroken {
		t.Error("suppressed falling edge must not set the latch")
	}
}

func TestSeparatePassesEachCount(t *testing.T) {
	// Falling edges more than rearm_ms apart with intervening rising edges:
	// one event per pass.
	ch := &channelState{}
	count := 0
	for i := 0; i < 5; i++ {
		base := i * 50
		if ch.handleEdge(true, at(base), rearm) {
			count++
		}
		ch.handleEdge(false, at(base+20), rearm)
	}
	if count != 5 {
		t.Errorf("5 separated passes counted %d times, want 5", count)
	}
}

func TestRearmBoundaryIsExclusive(t *testing.T) {
	ch := &channelState{}
	ch.handleEdge(true, at(0), rearm)
	ch.handleEdge(false, at(2), rearm)

	if ch.handleEdge(true, at(9), rearm) {
		t.Error("falling edge 9ms after last count must be suppressed")
	}
	if !ch.handleEdge(true, at(10), rearm) {
		t.Error("falling edge exactly rearm_ms after last count should count")
	}
}

func TestRapidFallingBurst(t *testing.T) {
	// All falling edges spaced under rearm_ms, rising edges interleaved:
	// still exactly one event.
	ch := &channelState{}
	count := 0
	for ms := 0; ms < 10; ms++ {
		if ch.handleEdge(ms%2 == 0, at(ms), rearm) {
			count++
		}
	}
	if count != 1 {
		t.Errorf("sub-rearm burst counted %d times, want 1", count)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	e := NullEngine{}
	e.Stop()
	e.Stop()

	if err := e.Start(make(chan int)); err != nil {
		t.Fatalf("null engine start: %v", err)
	}
	e.Stop()
}
