// Package config defines hub configuration and the persisted preference
// subset. Configuration layers defaults, an optional YAML file, and HUB_*
// environment variables; only preferences change at runtime and only they are
// written back to disk.
package config

import (
	"os"
	"strings"

	"hub-service/internal/types"
)

// Config contains everything fixed for the lifetime of the process.
type Config struct {
	// LogLevel controls verbosity: 0=none .. 4=debug.
	LogLevel int `koanf:"log_level"`

	// HTTPAddr is the dashboard listen address.
	HTTPAddr string `koanf:"http_addr"`

	// SensorPins are the BCM offsets of the beam-break sensors on gpiochip0.
	SensorPins []int `koanf:"sensor_pins"`

	// RearmMs is the minimum interval between counted events on one channel.
	RearmMs int `koanf:"rearm_ms"`

	// LedCount is the indicator strip length.
	LedCount int `koanf:"led_count"`

	// SpiDevice is the spidev node driving the indicator strip.
	SpiDevice string `koanf:"spi_device"`

	// MotorPwmChip and MotorPwmChannels select the sysfs PWM outputs.
	MotorPwmChip     int   `koanf:"motor_pwm_chip"`
	MotorPwmChannels []int `koanf:"motor_pwm_channels"`

	// FieldBusAddr is the Modbus TCP listen address.
	FieldBusAddr string `koanf:"field_bus_addr"`

	// MotorCoilBase is the first of the two motor command coils.
	MotorCoilBase uint16 `koanf:"motor_coil_base"`

	// LightingUniverse is the sACN universe carrying indicator colors.
	LightingUniverse uint16 `koanf:"lighting_universe"`

	// TelemetryPort is the MQTT broker port on the robot controller.
	TelemetryPort int `koanf:"telemetry_port"`

	// ThresholdEnergized and ThresholdSupercharged are the ascending score
	// thresholds for the robot_teleop indicator colors.
	ThresholdEnergized    int `koanf:"threshold_energized"`
	ThresholdSupercharged int `koanf:"threshold_supercharged"`

	// StateFile holds persisted preferences.
	StateFile string `koanf:"state_file"`
}

// Defaults returns the built-in configuration, matching the deployed hubs.
func Defaults() *Config {
	return &Config{
		LogLevel:              3,
		HTTPAddr:              ":8080",
		SensorPins:            []int{23, 24, 25, 16},
		RearmMs:               10,
		LedCount:              300,
		SpiDevice:             "/dev/spidev0.0",
		MotorPwmChip:          0,
		MotorPwmChannels:      []int{0, 1},
		FieldBusAddr:          "0.0.0.0:502",
		MotorCoilBase:         2,
		LightingUniverse:      1,
		TelemetryPort:         1883,
		ThresholdEnergized:    100,
		ThresholdSupercharged: 360,
		StateFile:             "/var/lib/hub-service/state.yaml",
	}
}

// Hub is the per-alliance identity: which field-bus register this hub owns
// and what its idle color looks like.
type Hub struct {
	Name          string
	CountRegister uint16
	IdleColor     types.Color
	TelemetryID   string
}

var (
	RedHub  = Hub{Name: "RedHub", CountRegister: 0, IdleColor: types.Color{R: 255}, TelemetryID: "red-hub"}
	BlueHub = Hub{Name: "BlueHub", CountRegister: 1, IdleColor: types.Color{B: 255}, TelemetryID: "blue-hub"}
)

// ResolveHub selects the hub identity from a CLI argument, falling back to
// the hostname, then to the red hub.
func ResolveHub(arg string) Hub {
	switch arg {
	case "red":
		return RedHub
	case "blue":
		return BlueHub
	}
	host, err := os.Hostname()
	if err == nil && strings.Contains(strings.ToLower(host), "blue") {
		return BlueHub
	}
	return RedHub
}
