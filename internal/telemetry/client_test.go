package telemetry

import (
	"testing"

	"hub-service/internal/logger"
)

type fakeMessage struct {
	topic   string
	payload string
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 0 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 0 }
func (m fakeMessage) Payload() []byte   { return []byte(m.payload) }
func (m fakeMessage) Ack()              {}

func newTestClient() *Client {
	c := NewClient(1883, logger.New(nil, logger.LevelNone))
	c.identity = "red-hub"
	return c
}

func TestMessageRouting(t *testing.T) {
	c := newTestClient()

	c.onMessage(nil, fakeMessage{topicPeriod, "auto"})
	if c.FmsPeriod() != "auto" {
		t.Errorf("period = %q", c.FmsPeriod())
	}

	c.onMessage(nil, fakeMessage{topicControlCode, "35"})
	if c.FmsControlCode() != FmsControlAuto {
		t.Errorf("control = %d", c.FmsControlCode())
	}

	c.onMessage(nil, fakeMessage{"hub/red-hub/active", "false"})
	if c.HubActive() {
		t.Error("hub should be inactive")
	}

	c.onMessage(nil, fakeMessage{topicPracticeActive, "true"})
	if !c.PracticeHubActive() {
		t.Error("practice hub should be active")
	}

	c.onMessage(nil, fakeMessage{topicSecondsInactive, "2.5"})
	if c.SecondsUntilInactive() != 2.5 {
		t.Errorf("seconds = %v", c.SecondsUntilInactive())
	}

	c.onMessage(nil, fakeMessage{"hub/red-hub/motor/1/throttle", "-0.75"})
	if c.MotorThrottle(1) != -0.75 {
		t.Errorf("throttle = %v", c.MotorThrottle(1))
	}
	if c.MotorThrottle(0) != 0 {
		t.Error("unset motor should read zero throttle")
	}
}

func TestMalformedPayloadsIgnored(t *testing.T) {
	c := newTestClient()

	c.onMessage(nil, fakeMessage{topicControlCode, "garbage"})
	if c.FmsControlCode() != 0 {
		t.Error("bad control code should be ignored")
	}

	c.onMessage(nil, fakeMessage{topicSecondsInactive, ""})
	if c.SecondsUntilInactive() != -1 {
		t.Error("bad countdown should keep the default")
	}

	c.onMessage(nil, fakeMessage{"hub/red-hub/motor/x/throttle", "1"})
	c.onMessage(nil, fakeMessage{"hub/other-hub/active", "false"})
	if !c.HubActive() {
		t.Error("another hub's activity must not affect this client")
	}
}

func TestDefaultsBeforeAnyMessage(t *testing.T) {
	c := newTestClient()
	if c.FmsPeriod() != "disabled" || !c.HubActive() || c.SecondsUntilInactive() != -1 {
		t.Error("defaults should be disabled/active/-1")
	}
	if c.IsConnected() {
		t.Error("unstarted client reports disconnected")
	}
}

func TestStopWithoutStart(t *testing.T) {
	c := newTestClient()
	c.Stop()
	c.Stop()
}
