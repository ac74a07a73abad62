// Package telemetry is the robot-side bus client. The robot publishes match
// state (period, activity, countdown, motor throttles) over MQTT and the hub
// publishes its running count back. Values are cached as they arrive; the
// orchestrator polls the typed getters.
package telemetry

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"hub-service/internal/logger"
)

// FMS control codes carried on fms/controlCode: an enabled + DS-attached
// bitmask with the period bit. Anything else reads as disabled.
const (
	FmsControlAuto   = 35
	FmsControlTeleop = 33
)

const (
	topicPeriod          = "fms/period"
	topicControlCode     = "fms/controlCode"
	topicPracticeActive  = "practice/hubActive"
	topicSecondsInactive = "practice/secondsUntilInactive"
)

// Client wraps the MQTT session for one hub identity.
type Client struct {
	port int
	log  *logger.Logger

	mu        sync.RWMutex
	client    paho.Client
	identity  string
	period    string
	control   int
	hubActive bool
	practice  bool
	seconds   float64
	throttles map[int]float64
}

func NewClient(port int, log *logger.Logger) *Client {
	c := &Client{
		port: port,
		log:  log.WithTag("telemetry"),
	}
	c.resetValues()
	return c
}

func (c *Client) resetValues() {
	c.period = "disabled"
	c.control = 0
	c.hubActive = true
	c.practice = false
	c.seconds = -1
	c.throttles = make(map[int]float64)
}

// Start connects to the broker at address with the given client identity.
// Connection failures are retried in the background; the orchestrator treats
// a down broker as degraded, not fatal.
func (c *Client) Start(address, identity string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return fmt.Errorf("telemetry client already started")
	}
	if address == "" {
		return fmt.Errorf("telemetry server address is empty")
	}

	c.identity = identity
	opts := paho.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", address, c.port)).
		SetClientID(identity).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(c.onConnect)

	client := paho.NewClient(opts)
	c.client = client
	c.log.Infof("Connecting to telemetry broker at %s as %s", address, identity)

	token := client.Connect()
	if !token.WaitTimeout(3 * time.Second) {
		c.log.Warnf("Telemetry broker %s not reachable yet, retrying in background", address)
	} else if err := token.Error(); err != nil {
		c.log.Warnf("Telemetry connect: %v (retrying in background)", err)
	}
	return nil
}

func (c *Client) onConnect(client paho.Client) {
	c.mu.RLock()
	identity := c.identity
	c.mu.RUnlock()

	topics := map[string]byte{
		topicPeriod:                             0,
		topicControlCode:                        0,
		topicPracticeActive:                     0,
		topicSecondsInactive:                    0,
		"hub/" + identity + "/active":           0,
		"hub/" + identity + "/motor/+/throttle": 0,
	}
	if token := client.SubscribeMultiple(topics, c.onMessage); token.Wait() && token.Error() != nil {
		c.log.Errorf("Telemetry subscribe: %v", token.Error())
		return
	}
	c.log.Infof("Telemetry connected, %d subscriptions", len(topics))
}

func (c *Client) onMessage(_ paho.Client, msg paho.Message) {
	payload := strings.TrimSpace(string(msg.Payload()))

	c.mu.Lock()
	defer c.mu.Unlock()

	switch topic := msg.Topic(); {
	case topic == topicPeriod:
		c.period = payload
	case topic == topicControlCode:
		if v, err := strconv.Atoi(payload); err == nil {
			c.control = v
		}
	case topic == topicPracticeActive:
		c.practice = payload == "true"
	case topic == topicSecondsInactive:
		if v, err := strconv.ParseFloat(payload, 64); err == nil {
			c.seconds = v
		}
	case topic == "hub/"+c.identity+"/active":
		c.hubActive = payload == "true"
	case strings.HasSuffix(topic, "/throttle"):
		parts := strings.Split(topic, "/")
		if len(parts) != 5 {
			return
		}
		idx, err := strconv.Atoi(parts[3])
		if err != nil {
			return
		}
		if v, err := strconv.ParseFloat(payload, 64); err == nil {
			c.throttles[idx] = v
		}
	}
}

// Stop disconnects and resets cached values to their defaults. Idempotent.
func (c *Client) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return
	}
	c.client.Disconnect(250)
	c.client = nil
	c.resetValues()
	c.log.Infof("Telemetry client stopped")
}

// PublishCount publishes the activity-filtered running count.
func (c *Client) PublishCount(count int) {
	c.mu.RLock()
	client := c.client
	identity := c.identity
	c.mu.RUnlock()

	if client == nil || !client.IsConnectionOpen() {
		return
	}
	topic := "hub/" + identity + "/totalCount"
	client.Publish(topic, 0, false, strconv.Itoa(count))
}

func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client != nil && c.client.IsConnectionOpen()
}

// FmsPeriod returns the raw period string: "auto", "teleop" or "disabled".
func (c *Client) FmsPeriod() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.period
}

// FmsControlCode returns the raw control bitmask (0 when unavailable).
func (c *Client) FmsControlCode() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.control
}

// HubActive reports whether this hub's scoring cycle is active.
func (c *Client) HubActive() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hubActive
}

// PracticeHubActive is the practice-mode activity signal, raw (no grace).
func (c *Client) PracticeHubActive() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.practice
}

// SecondsUntilInactive returns the robot's countdown, or -1 if unavailable.
func (c *Client) SecondsUntilInactive() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.seconds
}

// MotorThrottle returns the robot-commanded throttle for one motor.
func (c *Client) MotorThrottle(index int) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.throttles[index]
}
