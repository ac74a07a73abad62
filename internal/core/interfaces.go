package core

import (
	"hub-service/internal/config"
	"hub-service/internal/types"
)

// Adapter contracts consumed by the orchestrator. Each has a real hardware or
// network implementation and a null/mock variant selected at startup.

// SensorEngine delivers one channel-index event per physical object pass.
type SensorEngine interface {
	Start(events chan<- int) error
	Stop()
}

// Indicator drives the LED strip. Only the orchestrator writes to it.
type Indicator interface {
	SetAll(c types.Color)
	SetBrightness(b float64)
	Show() error
	Clear() error
}

// Motors drives the hub's motor controllers.
type Motors interface {
	SetThrottle(index int, throttle float64) error
	StopAll()
}

// FieldBus is the Modbus server: score registers out, motor coils in.
type FieldBus interface {
	Start() error
	Stop()
	SetCount(register, count uint16)
	GetCoil(addr uint16) bool
	IsActive() bool
}

// Telemetry is the robot-side bus client.
type Telemetry interface {
	Start(address, identity string) error
	Stop()
	PublishCount(count int)
	IsConnected() bool
	FmsPeriod() string
	FmsControlCode() int
	HubActive() bool
	PracticeHubActive() bool
	SecondsUntilInactive() float64
	MotorThrottle(index int) float64
}

// Lighting receives field lighting colors in field mode.
type Lighting interface {
	Start(colors chan<- types.Color) error
	Stop()
	IsActive() bool
}

// Broadcaster pushes state snapshots to dashboard clients, fire-and-forget.
type Broadcaster interface {
	Broadcast(snap types.Snapshot)
}

// PrefStore persists the operator-controlled preference subset.
type PrefStore interface {
	Load() (config.Prefs, error)
	Save(p config.Prefs) error
}
