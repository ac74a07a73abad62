package core

import (
	"time"

	"hub-service/internal/types"
)

// processBalls consumes countable events from the sensor engine (and the
// simulator) and runs categorization and output routing for each.
func (s *HubSystem) processBalls() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case ch := <-s.balls:
			s.handleBall(ch)
		}
	}
}

func (s *HubSystem) handleBall(channel int) {
	mode := s.Mode()

	s.mu.Lock()
	var category string
	switch {
	case mode == types.ModeDemo:
		s.activeCount++
		category = "active"
	case s.fmsPeriod == types.PeriodAuto:
		s.autoCount++
		s.activeCount++
		category = "auto"
	case !s.hubActive:
		s.inactiveCount++
		category = "inactive"
	default:
		s.activeCount++
		category = "active"
	}
	active := s.activeCount
	total := s.activeCount + s.inactiveCount
	s.mu.Unlock()

	metricObjects.WithLabelValues(category).Inc()
	s.log.Debugf("Counted object on channel %d (%s)", channel, category)

	// The field bus wants the cumulative total; the robot wants only the
	// activity-filtered count. Demo publishes nothing.
	switch {
	case mode == types.ModeField:
		s.fieldBus.SetCount(s.hub.CountRegister, uint16(total))
	case mode.IsRobot():
		s.telemetry.PublishCount(active)
	}

	switch mode {
	case types.ModeDemo:
		s.restartDemoFlash()
	case types.ModeRobotTeleop:
		s.applyIndicator(s.scoreColor())
	}

	s.broadcast()
}

// restartDemoFlash flashes the idle color for one second, cancelling any
// flash already in flight so rapid events keep the light on.
func (s *HubSystem) restartDemoFlash() {
	s.mu.Lock()
	s.stopFlashLocked()
	stop := make(chan struct{})
	s.flashCancel = stop
	s.mu.Unlock()

	go func() {
		s.applyIndicator(s.hub.IdleColor)
		select {
		case <-time.After(demoFlashDuration):
		case <-stop:
		case <-s.ctx.Done():
		}

		// A superseding flash owns the indicator now; otherwise both the
		// timeout and cancellation paths turn the light back off.
		s.mu.Lock()
		superseded := s.flashCancel != nil && s.flashCancel != stop
		if s.flashCancel == stop {
			s.flashCancel = nil
		}
		s.mu.Unlock()
		if !superseded {
			s.applyIndicator(types.ColorOff)
		}
	}()
}

func (s *HubSystem) stopFlashLocked() {
	if s.flashCancel != nil {
		close(s.flashCancel)
		s.flashCancel = nil
	}
}

// processColors forwards lighting-console colors to the indicator while the
// hub is in field mode. The receiver hands colors off through a queue the
// same way the sensor engine does.
func (s *HubSystem) processColors() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case c := <-s.colors:
			if s.Mode() == types.ModeField {
				s.applyIndicator(c)
			}
		}
	}
}

func (s *HubSystem) statusPoll() {
	defer s.wg.Done()
	ticker := time.NewTicker(statusPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.pollStatus()
		}
	}
}

func (s *HubSystem) pollStatus() {
	mode := s.Mode()
	now := s.now()
	changed := false

	if mode.IsRobot() {
		connected := s.telemetry.IsConnected()
		var period types.Period
		var active bool
		secs := -1.0

		if mode == types.ModeRobotPractice {
			control := s.telemetry.FmsControlCode()
			raw := s.telemetry.PracticeHubActive()
			secs = s.telemetry.SecondsUntilInactive()
			s.mu.Lock()
			period, active = s.grace.evaluate(control, raw, now)
		} else {
			// Teleop takes the reported period at face value, no hysteresis.
			switch s.telemetry.FmsPeriod() {
			case string(types.PeriodAuto):
				period = types.PeriodAuto
			case string(types.PeriodTeleop):
				period = types.PeriodTeleop
			default:
				period = types.PeriodDisabled
			}
			active = s.telemetry.HubActive()
			s.mu.Lock()
		}

		if s.telemetryConnected != connected {
			s.telemetryConnected = connected
			changed = true
		}
		if s.fmsPeriod != period {
			s.fmsPeriod = period
			changed = true
		}
		if s.hubActive != active {
			s.hubActive = active
			changed = true
		}
		if mode == types.ModeRobotPractice {
			// Broadcast on whole-second changes only, to bound volume.
			if int(s.secondsUntilInactive) != int(secs) {
				changed = true
			}
			s.secondsUntilInactive = secs
		}
		s.mu.Unlock()
		boolGauge(metricTelemetryConnected, connected)
	}

	fbActive := s.fieldBus.IsActive()
	ltActive := s.lighting.IsActive()
	s.mu.Lock()
	if s.fieldBusActive != fbActive {
		s.fieldBusActive = fbActive
		changed = true
	}
	if s.lightingActive != ltActive {
		s.lightingActive = ltActive
		changed = true
	}
	s.mu.Unlock()
	boolGauge(metricFieldBusActive, fbActive)
	boolGauge(metricLightingActive, ltActive)

	if changed {
		s.broadcast()
	}
}

// practiceIndicator runs the grace evaluation at blink resolution. It shares
// the orchestrator's grace state with the status poll, so the light and the
// reported counts always agree about period and activity.
func (s *HubSystem) practiceIndicator() {
	defer s.wg.Done()
	ticker := time.NewTicker(practiceIndicatorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.practiceTick()
		}
	}
}

func (s *HubSystem) practiceTick() {
	if s.Mode() != types.ModeRobotPractice {
		return
	}

	control := s.telemetry.FmsControlCode()
	raw := s.telemetry.PracticeHubActive()
	secs := s.telemetry.SecondsUntilInactive()
	now := s.now()

	s.mu.Lock()
	period, active := s.grace.evaluate(control, raw, now)
	var color types.Color
	switch {
	case period == types.PeriodTeleop && active && secs >= 0 && secs <= 3:
		// Countdown warning: blink at this task's cadence.
		s.blinkOn = !s.blinkOn
		if s.blinkOn {
			color = s.hub.IdleColor
		}
	case period == types.PeriodAuto || (period == types.PeriodTeleop && active):
		s.blinkOn = false
		color = s.hub.IdleColor
	default:
		s.blinkOn = false
	}
	s.mu.Unlock()

	s.applyIndicator(color)
}

func (s *HubSystem) motorPoll() {
	defer s.wg.Done()
	ticker := time.NewTicker(motorPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.motorTick()
		}
	}
}

func (s *HubSystem) motorTick() {
	mode := s.Mode()
	n := len(s.cfg.MotorPwmChannels)

	switch {
	case mode == types.ModeField:
		// Two PLC coils select one shared throttle for all motors.
		var throttle float64
		if s.fieldBus.GetCoil(s.cfg.MotorCoilBase) {
			if s.fieldBus.GetCoil(s.cfg.MotorCoilBase + 1) {
				throttle = -1
			} else {
				throttle = 1
			}
		}
		for i := 0; i < n; i++ {
			s.setThrottle(i, throttle)
		}
	case mode.IsRobot():
		for i := 0; i < n; i++ {
			s.setThrottle(i, s.telemetry.MotorThrottle(i))
		}
	default:
		s.mu.RLock()
		running, speed := s.motorsRunning, s.motorSpeed
		s.mu.RUnlock()
		var throttle float64
		if running {
			throttle = speed
		}
		for i := 0; i < n; i++ {
			s.setThrottle(i, throttle)
		}
	}
}

func (s *HubSystem) setThrottle(index int, throttle float64) {
	if err := s.motors.SetThrottle(index, throttle); err != nil {
		s.log.Debugf("Motor %d throttle: %v", index, err)
	}
}
