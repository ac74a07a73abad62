package counter

import (
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"

	"hub-service/internal/logger"
)

// Engine delivers one channel-index event per physical object pass into the
// queue handed to Start. Implementations hand events across the thread
// boundary themselves; they never touch orchestrator state.
type Engine interface {
	Start(events chan<- int) error
	Stop()
}

// GpioEngine is the hardware engine. Edge callbacks run on gpiocdev's event
// goroutines, outside the orchestrator; the channel send is the handoff.
type GpioEngine struct {
	chipName string
	pins     []int
	rearm    time.Duration
	log      *logger.Logger

	mu       sync.Mutex
	chip     *gpiocdev.Chip
	lines    []*gpiocdev.Line
	channels map[int]*channelState // keyed by pin offset
	events   chan<- int
	now      func() time.Time
}

func NewGpioEngine(pins []int, rearm time.Duration, log *logger.Logger) *GpioEngine {
	return &GpioEngine{
		chipName: "gpiochip0",
		pins:     pins,
		rearm:    rearm,
		log:      log.WithTag("counter"),
		now:      time.Now,
	}
}

// Start claims each sensor line for both-edge events. A claim failure is
// fatal to that channel only; Start fails outright only when no channel could
// be armed at all.
func (e *GpioEngine) Start(events chan<- int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.chip != nil {
		return fmt.Errorf("engine already started")
	}

	chip, err := gpiocdev.NewChip(e.chipName, gpiocdev.WithConsumer("hub-service"))
	if err != nil {
		return fmt.Errorf("open %s: %w", e.chipName, err)
	}

	e.chip = chip
	e.events = events
	e.channels = make(map[int]*channelState, len(e.pins))

	for idx, pin := range e.pins {
		index, offset := idx, pin
		line, err := chip.RequestLine(offset,
			gpiocdev.AsInput,
			gpiocdev.WithPullUp,
			gpiocdev.WithBothEdges,
			gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
				e.onEdge(index, offset, evt)
			}))
		if err != nil {
			e.log.Errorf("Failed to claim sensor pin %d (channel %d): %v", offset, index, err)
			continue
		}
		e.channels[offset] = &channelState{}
		e.lines = append(e.lines, line)
		e.log.Infof("Armed sensor channel %d on pin %d", index, offset)
	}

	if len(e.lines) == 0 {
		chip.Close()
		e.chip = nil
		return fmt.Errorf("no sensor channels could be armed")
	}
	return nil
}

// onEdge is the hardware-driven entry point, called on a gpiocdev goroutine.
func (e *GpioEngine) onEdge(index, offset int, evt gpiocdev.LineEvent) {
	falling := evt.Type == gpiocdev.LineEventFallingEdge

	e.mu.Lock()
	ch := e.channels[offset]
	events := e.events
	var emit bool
	if ch != nil {
		emit = ch.handleEdge(falling, e.now(), e.rearm)
	}
	e.mu.Unlock()

	if emit && events != nil {
		events <- index
	}
}

// Stop releases all claimed lines and clears channel state. Safe to call
// repeatedly and when Start was never called.
func (e *GpioEngine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, line := range e.lines {
		line.Close()
	}
	e.lines = nil
	e.channels = nil
	e.events = nil
	if e.chip != nil {
		e.chip.Close()
		e.chip = nil
		e.log.Infof("Sensor engine stopped")
	}
}
