package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"hub-service/internal/config"
	"hub-service/internal/core"
	"hub-service/internal/logger"
	"hub-service/internal/types"
)

// Stub adapters: just enough for the orchestrator to run under the server.

type stubSensors struct{}

func (stubSensors) Start(chan<- int) error { return nil }
func (stubSensors) Stop()                  {}

type stubStrip struct{}

func (stubStrip) SetAll(types.Color)    {}
func (stubStrip) SetBrightness(float64) {}
func (stubStrip) Show() error           { return nil }
func (stubStrip) Clear() error          { return nil }

type stubMotors struct{}

func (stubMotors) SetThrottle(int, float64) error { return nil }
func (stubMotors) StopAll()                       {}

type stubFieldBus struct{}

func (stubFieldBus) Start() error             { return nil }
func (stubFieldBus) Stop()                    {}
func (stubFieldBus) SetCount(uint16, uint16)  {}
func (stubFieldBus) GetCoil(uint16) bool      { return false }
func (stubFieldBus) IsActive() bool           { return false }

type stubTelemetry struct{}

func (stubTelemetry) Start(string, string) error     { return nil }
func (stubTelemetry) Stop()                          {}
func (stubTelemetry) PublishCount(int)               {}
func (stubTelemetry) IsConnected() bool              { return false }
func (stubTelemetry) FmsPeriod() string              { return "disabled" }
func (stubTelemetry) FmsControlCode() int            { return 0 }
func (stubTelemetry) HubActive() bool                { return true }
func (stubTelemetry) PracticeHubActive() bool        { return false }
func (stubTelemetry) SecondsUntilInactive() float64  { return -1 }
func (stubTelemetry) MotorThrottle(int) float64      { return 0 }

type stubLighting struct{}

func (stubLighting) Start(chan<- types.Color) error { return nil }
func (stubLighting) Stop()                          {}
func (stubLighting) IsActive() bool                 { return false }

type stubPrefs struct{}

func (stubPrefs) Load() (config.Prefs, error) { return config.DefaultPrefs(), nil }
func (stubPrefs) Save(config.Prefs) error     { return nil }

func newTestServer(t *testing.T) (*httptest.Server, *core.HubSystem) {
	t.Helper()
	log := logger.New(nil, logger.LevelNone)
	bcast := NewBroadcaster(log)

	system := core.NewHubSystem(config.Defaults(), config.RedHub, core.Deps{
		Sensors:     stubSensors{},
		Strip:       stubStrip{},
		Motors:      stubMotors{},
		FieldBus:    stubFieldBus{},
		Telemetry:   stubTelemetry{},
		Lighting:    stubLighting{},
		Broadcaster: bcast,
		Prefs:       stubPrefs{},
	}, log)

	ctx, cancel := context.WithCancel(context.Background())
	if err := system.Start(ctx); err != nil {
		t.Fatalf("start system: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		system.Shutdown()
	})

	srv := NewServer(":0", system, bcast, log)
	ts := httptest.NewServer(srv.http.Handler)
	t.Cleanup(ts.Close)
	return ts, system
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	res, err := http.Post(url, "application/json", &buf)
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return res
}

func TestStatusEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	res, err := http.Get(ts.URL + "/api/status")
	if err != nil {
		t.Fatalf("GET status: %v", err)
	}
	defer res.Body.Close()

	var snap types.Snapshot
	if err := json.NewDecoder(res.Body).Decode(&snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.HubName != "RedHub" || snap.Mode != types.ModeDemo {
		t.Errorf("snapshot = %s/%s, want RedHub/demo", snap.HubName, snap.Mode)
	}
}

func TestSetModeRoundTrip(t *testing.T) {
	ts, system := newTestServer(t)

	res := postJSON(t, ts.URL+"/api/mode", map[string]string{"mode": "field"})
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", res.StatusCode)
	}
	if system.Mode() != types.ModeField {
		t.Errorf("mode = %s, want field", system.Mode())
	}
}

func TestSetModeRejectsInvalid(t *testing.T) {
	ts, _ := newTestServer(t)

	res := postJSON(t, ts.URL+"/api/mode", map[string]string{"mode": "turbo"})
	defer res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", res.StatusCode)
	}

	var body struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Success || body.Error == "" {
		t.Errorf("want structured failure, got %+v", body)
	}

	res2, err := http.Post(ts.URL+"/api/mode", "application/json", strings.NewReader("not json"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer res2.Body.Close()
	if res2.StatusCode != http.StatusBadRequest {
		t.Errorf("malformed body: status = %d, want 400", res2.StatusCode)
	}
}

func TestSimulateEventRequiresToggle(t *testing.T) {
	ts, _ := newTestServer(t)

	res := postJSON(t, ts.URL+"/api/simulate/event", nil)
	res.Body.Close()
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409 while simulator disabled", res.StatusCode)
	}

	res = postJSON(t, ts.URL+"/api/simulate/toggle", nil)
	res.Body.Close()

	res = postJSON(t, ts.URL+"/api/simulate/event", nil)
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Errorf("status = %d after enabling simulator", res.StatusCode)
	}
}

func TestMotorSpeedClamped(t *testing.T) {
	ts, _ := newTestServer(t)

	res := postJSON(t, ts.URL+"/api/motors/speed", map[string]float64{"speed": 2.5})
	defer res.Body.Close()

	var body struct {
		Speed float64 `json:"speed"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Speed != 1 {
		t.Errorf("applied speed = %v, want clamp to 1", body.Speed)
	}
}

func TestWebSocketSendsInitialSnapshot(t *testing.T) {
	ts, _ := newTestServer(t)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var snap types.Snapshot
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatalf("read initial snapshot: %v", err)
	}
	if snap.HubName != "RedHub" {
		t.Errorf("initial snapshot hub = %q", snap.HubName)
	}
}
