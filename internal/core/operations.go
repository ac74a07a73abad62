package core

import (
	"fmt"

	"github.com/librescoot/librefsm"

	"hub-service/internal/fsm"
	"hub-service/internal/types"
)

// Operator-facing operations, called from the dashboard handlers. Invalid
// input is rejected here with a descriptive error; nothing below this layer
// validates operator data.

// SetMode transitions the hub to a new operating mode. Setting the current
// mode is a no-op: no state change, no broadcast.
func (s *HubSystem) SetMode(mode types.Mode) error {
	if s.Mode() == mode {
		return nil
	}
	ev, ok := fsm.EventForState(librefsm.StateID(mode))
	if !ok {
		return fmt.Errorf("invalid mode: %q", mode)
	}
	return s.machine.SendSync(librefsm.Event{ID: ev})
}

// ResetCounts zeroes all three counters, clears the indicator and pushes the
// zeroed total to whichever output is authoritative for the current mode.
func (s *HubSystem) ResetCounts() {
	mode := s.Mode()

	s.mu.Lock()
	s.activeCount = 0
	s.autoCount = 0
	s.inactiveCount = 0
	s.mu.Unlock()

	switch {
	case mode == types.ModeField:
		s.fieldBus.SetCount(s.hub.CountRegister, 0)
	case mode.IsRobot():
		s.telemetry.PublishCount(0)
	}

	s.applyIndicator(types.ColorOff)
	s.broadcast()
	s.log.Infof("Counts reset")
}

// SetTelemetryAddress changes the robot broker address, restarting the
// client if it is running. The address is persisted.
func (s *HubSystem) SetTelemetryAddress(address string) error {
	if address == "" {
		return fmt.Errorf("telemetry address is empty")
	}

	s.mu.Lock()
	s.telemetryAddress = address
	up := s.telemetryUp
	s.mu.Unlock()

	if up {
		s.telemetry.Stop()
		if err := s.telemetry.Start(address, s.hub.TelemetryID); err != nil {
			s.log.Warnf("Telemetry restart on %s failed: %v", address, err)
			s.setTelemetryUp(false)
		}
	}

	s.persistPrefs()
	s.broadcast()
	return nil
}

// ToggleSimulator enables or disables simulated event injection and returns
// the new state.
func (s *HubSystem) ToggleSimulator() bool {
	s.mu.Lock()
	s.simulatorEnabled = !s.simulatorEnabled
	enabled := s.simulatorEnabled
	s.mu.Unlock()

	s.log.Infof("Simulator enabled: %v", enabled)
	s.broadcast()
	return enabled
}

// SimulateEvent injects one scoring event on channel 0, as if the sensor had
// fired. Rejected while the simulator is disabled.
func (s *HubSystem) SimulateEvent() error {
	s.mu.RLock()
	enabled := s.simulatorEnabled
	s.mu.RUnlock()

	if !enabled {
		return fmt.Errorf("simulator is disabled")
	}
	select {
	case s.balls <- 0:
		return nil
	default:
		return fmt.Errorf("event queue is full")
	}
}

// ToggleMotors starts or stops manual motor running (demo/idle modes only;
// field and robot modes override on the next motor poll). Returns the new
// state.
func (s *HubSystem) ToggleMotors() bool {
	s.mu.Lock()
	s.motorsRunning = !s.motorsRunning
	running := s.motorsRunning
	s.mu.Unlock()

	if !running {
		s.motors.StopAll()
	}
	s.log.Infof("Motors running: %v", running)
	s.broadcast()
	return running
}

// SetMotorSpeed sets the manual motor throttle, clamped to [0, 1], and
// persists it. Returns the applied value.
func (s *HubSystem) SetMotorSpeed(speed float64) float64 {
	if speed < 0 {
		speed = 0
	} else if speed > 1 {
		speed = 1
	}

	s.mu.Lock()
	s.motorSpeed = speed
	s.mu.Unlock()

	s.persistPrefs()
	s.broadcast()
	return speed
}
