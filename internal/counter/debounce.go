// Package counter turns raw beam-break sensor edges into exactly-once scoring
// events. Each channel is a two-state latch (armed / broken) with a secondary
// minimum re-trigger interval; the two guards suppress different bounce modes
// and both are required to avoid over- or under-counting.
package counter

import "time"

// channelState is the per-sensor debounce state. It is created at engine
// start and discarded at stop; counted events become long-lived counts in the
// orchestrator, so nothing here survives a restart.
type channelState struct {
	beamBroken bool
	lastCount  time.Time
}

// handleEdge evaluates one hardware edge and reports whether it counts.
//
// A rising edge (beam restored) re-arms the latch and never counts. A falling
// edge counts only when the latch is armed and at least rearm has elapsed
// since the last counted event on this channel: a falling edge on a broken
// beam is electrical chatter within one interruption, and a falling edge
// inside the rearm window is the double-pulse a thin object produces as it
// enters and leaves the beam.
func (c *channelState) handleEdge(falling bool, now time.Time, rearm time.Duration) bool {
	if !falling {
		c.beamBroken = false
		return false
	}
	if c.beamBroken {
		return false
	}
	if !c.lastCount.IsZero() && now.Sub(c.lastCount) < rearm {
		return false
	}
	c.beamBroken = true
	c.lastCount = now
	return true
}
