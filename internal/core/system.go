// Package core contains the hub orchestrator: the mode state machine, the
// task set it schedules, event categorization and output routing, and the
// grace-period hysteresis over the robot's period/activity signals.
package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/librescoot/librefsm"

	"hub-service/internal/config"
	"hub-service/internal/fsm"
	"hub-service/internal/logger"
	"hub-service/internal/types"
)

const (
	ballQueueSize  = 64
	colorQueueSize = 16

	statusPollInterval        = time.Second
	practiceIndicatorInterval = 250 * time.Millisecond
	motorPollInterval         = 50 * time.Millisecond
	demoFlashDuration         = time.Second
)

// Indicator colors for the robot_teleop score thresholds.
var (
	colorEnergized    = types.Color{R: 255, G: 179, B: 0}
	colorSupercharged = types.Color{G: 207, B: 255}
)

// Deps are the adapters the orchestrator drives. All are required except
// Broadcaster, which may be nil until the dashboard attaches.
type Deps struct {
	Sensors     SensorEngine
	Strip       Indicator
	Motors      Motors
	FieldBus    FieldBus
	Telemetry   Telemetry
	Lighting    Lighting
	Broadcaster Broadcaster
	Prefs       PrefStore
}

// HubSystem owns all mutable hub state. Adapter callbacks hand events off
// through the ball and color queues; everything else mutates state under mu.
type HubSystem struct {
	cfg *config.Config
	hub config.Hub
	log *logger.Logger

	sensors   SensorEngine
	strip     Indicator
	motors    Motors
	fieldBus  FieldBus
	telemetry Telemetry
	lighting  Lighting
	prefs     PrefStore

	machine *librefsm.Machine

	mu            sync.RWMutex
	broadcaster   Broadcaster
	mode          types.Mode
	activeCount   int
	autoCount     int
	inactiveCount int

	fmsPeriod            types.Period
	hubActive            bool
	secondsUntilInactive float64
	grace                graceState
	blinkOn              bool

	telemetryConnected bool
	fieldBusActive     bool
	lightingActive     bool
	telemetryUp        bool
	lightingUp         bool

	indicatorColor   types.Color
	motorsRunning    bool
	motorSpeed       float64
	simulatorEnabled bool
	telemetryAddress string

	flashCancel chan struct{}

	balls  chan int
	colors chan types.Color

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	now    func() time.Time
}

func NewHubSystem(cfg *config.Config, hub config.Hub, deps Deps, log *logger.Logger) *HubSystem {
	return &HubSystem{
		cfg:                  cfg,
		hub:                  hub,
		log:                  log.WithTag("core"),
		sensors:              deps.Sensors,
		strip:                deps.Strip,
		motors:               deps.Motors,
		fieldBus:             deps.FieldBus,
		telemetry:            deps.Telemetry,
		lighting:             deps.Lighting,
		broadcaster:          deps.Broadcaster,
		prefs:                deps.Prefs,
		mode:                 types.ModeDemo,
		fmsPeriod:            types.PeriodDisabled,
		hubActive:            true,
		secondsUntilInactive: -1,
		balls:                make(chan int, ballQueueSize),
		colors:               make(chan types.Color, colorQueueSize),
		now:                  time.Now,
	}
}

// SetBroadcaster attaches the dashboard broadcaster after construction; the
// web server needs the system and the system needs the broadcaster.
func (s *HubSystem) SetBroadcaster(b Broadcaster) {
	s.mu.Lock()
	s.broadcaster = b
	s.mu.Unlock()
}

// Start restores preferences, arms the sensor engine, brings up the field
// bus, starts the mode machine and launches the task set.
func (s *HubSystem) Start(ctx context.Context) error {
	s.log.Infof("Starting %s", s.hub.Name)
	s.ctx, s.cancel = context.WithCancel(ctx)

	p, err := s.prefs.Load()
	if err != nil {
		s.log.Warnf("Failed to load preferences, using defaults: %v", err)
	}
	s.mu.Lock()
	s.telemetryAddress = p.TelemetryAddress
	s.motorSpeed = p.MotorSpeed
	s.mu.Unlock()

	// Core sensing is the one thing the hub cannot run without.
	if err := s.sensors.Start(s.balls); err != nil {
		return fmt.Errorf("start sensor engine: %w", err)
	}
	s.strip.SetBrightness(1)

	// The field bus serves the score register in every mode; the motor task
	// only honors its coils in field mode.
	if err := s.fieldBus.Start(); err != nil {
		s.log.Warnf("Field bus unavailable: %v", err)
	}

	if err := s.initFSM(p.Mode); err != nil {
		s.sensors.Stop()
		return err
	}

	s.wg.Add(5)
	go s.processBalls()
	go s.processColors()
	go s.statusPoll()
	go s.practiceIndicator()
	go s.motorPoll()

	s.log.Infof("Hub system started in %s mode", s.Mode())
	return nil
}

func (s *HubSystem) initFSM(restored types.Mode) error {
	machine, err := fsm.NewDefinition(s).Build()
	if err != nil {
		return fmt.Errorf("build mode machine: %w", err)
	}
	s.machine = machine

	machine.OnStateChange(func(from, to librefsm.StateID) {
		s.log.Infof("Mode change: %s -> %s", from, to)
		s.persistPrefs()
		s.broadcast()
	})

	if err := machine.Start(s.ctx); err != nil {
		return fmt.Errorf("start mode machine: %w", err)
	}

	// Restore the persisted mode through a real transition so the entry
	// action reconciles the adapter set.
	if restored != types.ModeDemo {
		if ev, ok := fsm.EventForState(librefsm.StateID(restored)); ok {
			if err := machine.SendSync(librefsm.Event{ID: ev}); err != nil {
				s.log.Warnf("Failed to restore %s mode: %v", restored, err)
			}
		}
	}
	return nil
}

// Mode returns the current operating mode. The orchestrator mirrors the
// machine's state into s.mode in every entry action, so this never has to
// reach into the machine.
func (s *HubSystem) Mode() types.Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// Mode entry actions. Each reconciles the full adapter set so any mode is
// reachable from any other without ordering hazards.

func (s *HubSystem) EnterDemo(c *librefsm.Context) error {
	return s.reconcileMode(types.ModeDemo)
}

func (s *HubSystem) EnterField(c *librefsm.Context) error {
	return s.reconcileMode(types.ModeField)
}

func (s *HubSystem) EnterRobotTeleop(c *librefsm.Context) error {
	return s.reconcileMode(types.ModeRobotTeleop)
}

func (s *HubSystem) EnterRobotPractice(c *librefsm.Context) error {
	return s.reconcileMode(types.ModeRobotPractice)
}

func (s *HubSystem) reconcileMode(mode types.Mode) error {
	s.mu.Lock()
	s.mode = mode
	address := s.telemetryAddress
	telemetryUp := s.telemetryUp
	lightingUp := s.lightingUp
	s.stopFlashLocked()

	// Telemetry-derived state is meaningless outside robot modes.
	if !mode.IsRobot() {
		s.fmsPeriod = types.PeriodDisabled
		s.hubActive = true
		s.telemetryConnected = false
		s.secondsUntilInactive = -1
		s.grace = graceState{}
	}
	s.blinkOn = false
	s.mu.Unlock()

	if mode == types.ModeField {
		if !lightingUp {
			if err := s.lighting.Start(s.colors); err != nil {
				s.log.Warnf("Lighting receiver unavailable: %v", err)
			} else {
				s.setLightingUp(true)
			}
		}
	} else if lightingUp {
		s.lighting.Stop()
		s.setLightingUp(false)
	}

	if mode.IsRobot() {
		if !telemetryUp {
			if err := s.telemetry.Start(address, s.hub.TelemetryID); err != nil {
				s.log.Warnf("Telemetry client unavailable: %v", err)
			} else {
				s.setTelemetryUp(true)
			}
		}
	} else if telemetryUp {
		s.telemetry.Stop()
		s.setTelemetryUp(false)
	}

	// Baseline indicator for the new mode; the continuous tasks take over
	// from here.
	switch mode {
	case types.ModeRobotTeleop:
		s.applyIndicator(s.scoreColor())
	default:
		s.applyIndicator(types.ColorOff)
	}
	return nil
}

func (s *HubSystem) setTelemetryUp(up bool) {
	s.mu.Lock()
	s.telemetryUp = up
	s.mu.Unlock()
}

func (s *HubSystem) setLightingUp(up bool) {
	s.mu.Lock()
	s.lightingUp = up
	s.mu.Unlock()
}

// scoreColor maps the active count to the teleop indicator color.
func (s *HubSystem) scoreColor() types.Color {
	s.mu.RLock()
	count := s.activeCount
	s.mu.RUnlock()

	switch {
	case count >= s.cfg.ThresholdSupercharged:
		return colorSupercharged
	case count >= s.cfg.ThresholdEnergized:
		return colorEnergized
	default:
		return s.hub.IdleColor
	}
}

// applyIndicator writes a color to the strip and broadcasts if it changed.
func (s *HubSystem) applyIndicator(c types.Color) {
	s.mu.Lock()
	changed := s.indicatorColor != c
	s.indicatorColor = c
	s.mu.Unlock()

	s.strip.SetAll(c)
	if err := s.strip.Show(); err != nil {
		s.log.Errorf("Indicator update failed: %v", err)
	}
	if changed {
		s.broadcast()
	}
}

// Snapshot returns a copy of the current state for the dashboard.
func (s *HubSystem) Snapshot() types.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *HubSystem) snapshotLocked() types.Snapshot {
	return types.Snapshot{
		HubName:              s.hub.Name,
		Mode:                 s.mode,
		ActiveCount:          s.activeCount,
		AutoCount:            s.autoCount,
		InactiveCount:        s.inactiveCount,
		FmsPeriod:            s.fmsPeriod,
		HubActive:            s.hubActive,
		SecondsUntilInactive: s.secondsUntilInactive,
		TelemetryConnected:   s.telemetryConnected,
		TelemetryAddress:     s.telemetryAddress,
		FieldBusActive:       s.fieldBusActive,
		LightingActive:       s.lightingActive,
		SimulatorEnabled:     s.simulatorEnabled,
		MotorsRunning:        s.motorsRunning,
		MotorSpeed:           s.motorSpeed,
		IndicatorColor:       s.indicatorColor.Hex(),
	}
}

func (s *HubSystem) broadcast() {
	s.mu.RLock()
	b := s.broadcaster
	snap := s.snapshotLocked()
	s.mu.RUnlock()

	if b != nil {
		b.Broadcast(snap)
	}
}

func (s *HubSystem) persistPrefs() {
	mode := s.Mode()
	s.mu.RLock()
	p := config.Prefs{
		Mode:             mode,
		TelemetryAddress: s.telemetryAddress,
		MotorSpeed:       s.motorSpeed,
	}
	s.mu.RUnlock()

	if err := s.prefs.Save(p); err != nil {
		s.log.Warnf("Failed to persist preferences: %v", err)
	}
}

// Shutdown stops the task set and tears the adapters down in order: sensing
// first, motors to neutral, then the network surfaces, indicator last so a
// failure elsewhere can't leave the strip lit.
func (s *HubSystem) Shutdown() {
	s.log.Infof("Shutting down hub system")
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()

	s.sensors.Stop()
	s.motors.StopAll()

	s.mu.Lock()
	s.stopFlashLocked()
	lightingUp := s.lightingUp
	telemetryUp := s.telemetryUp
	s.lightingUp = false
	s.telemetryUp = false
	s.mu.Unlock()

	if lightingUp {
		s.lighting.Stop()
	}
	if telemetryUp {
		s.telemetry.Stop()
	}

	if err := s.strip.Clear(); err != nil {
		s.log.Errorf("Failed to clear indicator: %v", err)
	}
	s.fieldBus.Stop()
	s.persistPrefs()
	s.log.Infof("Hub system stopped")
}
