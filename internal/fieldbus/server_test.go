package fieldbus

import (
	"testing"
	"time"

	"github.com/simonvetter/modbus"

	"hub-service/internal/logger"
)

func newTestServer() (*Server, *time.Time) {
	s := NewServer("127.0.0.1:0", logger.New(nil, logger.LevelNone))
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	return s, &now
}

func TestSetCountAndRead(t *testing.T) {
	s, _ := newTestServer()
	s.SetCount(1, 42)

	res, err := s.HandleHoldingRegisters(&modbus.HoldingRegistersRequest{Addr: 0, Quantity: 2})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if res[0] != 0 || res[1] != 42 {
		t.Errorf("registers = %v, want [0 42]", res)
	}
}

func TestCoilWriteVisibleToGetCoil(t *testing.T) {
	s, _ := newTestServer()

	_, err := s.HandleCoils(&modbus.CoilsRequest{
		Addr: 2, Quantity: 2, IsWrite: true, Args: []bool{true, false},
	})
	if err != nil {
		t.Fatalf("write coils: %v", err)
	}
	if !s.GetCoil(2) {
		t.Error("coil 2 should be set")
	}
	if s.GetCoil(3) {
		t.Error("coil 3 should be clear")
	}
	if s.GetCoil(99) {
		t.Error("out-of-range coil should read false")
	}
}

func TestLivenessFollowsHoldingRegisterReads(t *testing.T) {
	s, now := newTestServer()

	if s.IsActive() {
		t.Error("fresh server should be inactive")
	}

	if _, err := s.HandleHoldingRegisters(&modbus.HoldingRegistersRequest{Addr: 0, Quantity: 1}); err != nil {
		t.Fatalf("read: %v", err)
	}
	if !s.IsActive() {
		t.Error("server should be active right after a PLC read")
	}

	*now = now.Add(900 * time.Millisecond)
	if !s.IsActive() {
		t.Error("server should stay active within the timeout window")
	}

	*now = now.Add(200 * time.Millisecond)
	if s.IsActive() {
		t.Error("server should go inactive after the timeout")
	}
}

func TestCoilWritesDoNotCountAsLiveness(t *testing.T) {
	s, _ := newTestServer()
	_, _ = s.HandleCoils(&modbus.CoilsRequest{Addr: 0, Quantity: 1, IsWrite: true, Args: []bool{true}})
	if s.IsActive() {
		t.Error("coil traffic alone must not mark the PLC active")
	}
}

func TestOutOfRangeAddressRejected(t *testing.T) {
	s, _ := newTestServer()
	if _, err := s.HandleHoldingRegisters(&modbus.HoldingRegistersRequest{Addr: 8, Quantity: 5}); err != modbus.ErrIllegalDataAddress {
		t.Errorf("expected ErrIllegalDataAddress, got %v", err)
	}
	if _, err := s.HandleCoils(&modbus.CoilsRequest{Addr: 9, Quantity: 2}); err != modbus.ErrIllegalDataAddress {
		t.Errorf("expected ErrIllegalDataAddress, got %v", err)
	}
}

func TestStopWithoutStart(t *testing.T) {
	s, _ := newTestServer()
	s.Stop()
	s.Stop()
}
