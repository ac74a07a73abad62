package types

import "fmt"

// Mode is the hub operating mode. Exactly one mode is active at a time;
// mode-specific subsystems (telemetry client, lighting receiver) are started
// and stopped on transitions.
type Mode string

const (
	ModeDemo          Mode = "demo"
	ModeField         Mode = "field"
	ModeRobotTeleop   Mode = "robot_teleop"
	ModeRobotPractice Mode = "robot_practice"
)

// ParseMode validates an operator-supplied mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeDemo, ModeField, ModeRobotTeleop, ModeRobotPractice:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("invalid mode: %q", s)
	}
}

// IsRobot reports whether the mode uses the telemetry client.
func (m Mode) IsRobot() bool {
	return m == ModeRobotTeleop || m == ModeRobotPractice
}

// Period is the competition phase as reported (or held over) from telemetry.
type Period string

const (
	PeriodAuto     Period = "auto"
	PeriodTeleop   Period = "teleop"
	PeriodDisabled Period = "disabled"
)

// Color is an RGB triple for the indicator strip.
type Color struct {
	R, G, B uint8
}

var ColorOff = Color{}

// Hex returns the color as "#rrggbb" for the dashboard.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Snapshot is a point-in-time copy of orchestrator state, broadcast to
// dashboard clients. It is a value type, safe to use after the orchestrator
// lock is released.
type Snapshot struct {
	HubName              string  `json:"hub_name"`
	Mode                 Mode    `json:"mode"`
	ActiveCount          int     `json:"active_count"`
	AutoCount            int     `json:"auto_count"`
	InactiveCount        int     `json:"inactive_count"`
	FmsPeriod            Period  `json:"fms_period"`
	HubActive            bool    `json:"hub_is_active"`
	SecondsUntilInactive float64 `json:"seconds_until_inactive"`
	TelemetryConnected   bool    `json:"telemetry_connected"`
	TelemetryAddress     string  `json:"telemetry_address"`
	FieldBusActive       bool    `json:"field_bus_active"`
	LightingActive       bool    `json:"lighting_active"`
	SimulatorEnabled     bool    `json:"simulator_enabled"`
	MotorsRunning        bool    `json:"motors_running"`
	MotorSpeed           float64 `json:"motor_speed"`
	IndicatorColor       string  `json:"indicator_color"`
}
