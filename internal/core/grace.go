package core

import (
	"time"

	"hub-service/internal/telemetry"
	"hub-service/internal/types"
)

// gracePeriod is how long a derived period/activity value is held after the
// raw signal drops. The robot's signals are bursty near period boundaries; a
// short drop-out must not flip the hub to disabled/inactive.
const gracePeriod = 3 * time.Second

// graceState holds the two hold-over deadlines. One instance is owned by the
// orchestrator and shared, under its lock, by the 1 Hz status poll and the
// 4 Hz practice indicator task, so the two loops can never disagree about
// period or activity.
type graceState struct {
	autoGraceUntil time.Time
	hubGraceUntil  time.Time
}

// evaluate derives the effective period and activity from the raw FMS control
// code and activity signal, advancing the grace deadlines as a side effect.
func (g *graceState) evaluate(control int, rawActive bool, now time.Time) (types.Period, bool) {
	var period types.Period
	switch {
	case control == telemetry.FmsControlAuto:
		g.autoGraceUntil = now.Add(gracePeriod)
		period = types.PeriodAuto
	case now.Before(g.autoGraceUntil):
		period = types.PeriodAuto
	case control == telemetry.FmsControlTeleop:
		period = types.PeriodTeleop
	default:
		period = types.PeriodDisabled
	}

	active := rawActive
	if rawActive {
		g.hubGraceUntil = now.Add(gracePeriod)
	} else {
		active = now.Before(g.hubGraceUntil)
	}
	return period, active
}
