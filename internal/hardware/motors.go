package hardware

import (
	"fmt"
	"os"
	"sync"

	"hub-service/internal/logger"
)

// RC PWM timing for REV Spark Max controllers: 50 Hz frame, 1000 µs pulse is
// full reverse, 1500 µs neutral, 2000 µs full forward.
const (
	pwmPeriodNs  = 20_000_000
	pwmNeutralNs = 1_500_000
	pwmRangeNs   = 500_000
)

// PwmMotors drives motor controllers through the Linux sysfs PWM class.
// Channels are exported lazily on first use, matching how the hub is wired
// in the field (not every hub has every motor populated).
type PwmMotors struct {
	chipPath string
	channels []int
	log      *logger.Logger

	mu     sync.Mutex
	active map[int]bool // exported and enabled channels
}

func NewPwmMotors(chip int, channels []int, log *logger.Logger) *PwmMotors {
	return &PwmMotors{
		chipPath: fmt.Sprintf("/sys/class/pwm/pwmchip%d", chip),
		channels: channels,
		log:      log.WithTag("motors"),
		active:   make(map[int]bool),
	}
}

// SetThrottle applies a throttle in [-1, 1] to motor index. Out-of-range
// values are clamped, not rejected.
func (m *PwmMotors) SetThrottle(index int, throttle float64) error {
	if index < 0 || index >= len(m.channels) {
		return fmt.Errorf("motor index %d out of range", index)
	}
	if throttle > 1 {
		throttle = 1
	} else if throttle < -1 {
		throttle = -1
	}

	ch := m.channels[index]

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.active[ch] {
		if err := m.claim(ch); err != nil {
			return err
		}
		m.active[ch] = true
	}

	duty := pwmNeutralNs + int(throttle*pwmRangeNs)
	return m.writeChannel(ch, "duty_cycle", duty)
}

// StopAll parks every active motor at neutral. The PWM signal keeps running:
// a Spark Max treats a missing signal as a fault, a neutral pulse as stopped.
func (m *PwmMotors) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for ch := range m.active {
		if err := m.writeChannel(ch, "duty_cycle", pwmNeutralNs); err != nil {
			m.log.Errorf("Failed to park PWM channel %d: %v", ch, err)
		}
	}
	m.active = make(map[int]bool)
}

func (m *PwmMotors) claim(ch int) error {
	exportPath := fmt.Sprintf("%s/export", m.chipPath)
	if err := os.WriteFile(exportPath, []byte(fmt.Sprintf("%d", ch)), 0o644); err != nil {
		// Already-exported channels report EBUSY; any other failure is real.
		if _, statErr := os.Stat(m.channelPath(ch)); statErr != nil {
			return fmt.Errorf("export PWM channel %d: %w", ch, err)
		}
	}
	if err := m.writeChannel(ch, "period", pwmPeriodNs); err != nil {
		return err
	}
	if err := m.writeChannel(ch, "duty_cycle", pwmNeutralNs); err != nil {
		return err
	}
	if err := m.writeChannel(ch, "enable", 1); err != nil {
		return err
	}
	m.log.Infof("Claimed PWM channel %d", ch)
	return nil
}

func (m *PwmMotors) channelPath(ch int) string {
	return fmt.Sprintf("%s/pwm%d", m.chipPath, ch)
}

func (m *PwmMotors) writeChannel(ch int, attr string, value int) error {
	path := fmt.Sprintf("%s/%s", m.channelPath(ch), attr)
	if err := os.WriteFile(path, []byte(fmt.Sprintf("%d", value)), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// NullMotors is the no-hardware motor driver.
type NullMotors struct{}

func (NullMotors) SetThrottle(int, float64) error { return nil }
func (NullMotors) StopAll()                       {}
