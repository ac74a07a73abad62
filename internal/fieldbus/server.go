// Package fieldbus runs the hub's Modbus TCP server. The hub is the slave:
// the field PLC polls the score registers and writes the motor command coils.
//
// Register map (holding registers, 0-based):
//
//	0: red hub object count
//	1: blue hub object count
//
// Coils: motor commands from the PLC (base+0 enable, base+1 direction).
package fieldbus

import (
	"fmt"
	"sync"
	"time"

	"github.com/simonvetter/modbus"

	"hub-service/internal/logger"
)

const (
	registerCount = 10
	coilCount     = 10

	// The PLC polls the score register continuously while a match runs; a
	// read gap longer than this means the field connection is down.
	activeTimeout = time.Second
)

// Server owns the register and coil store and tracks PLC read liveness.
type Server struct {
	addr string
	log  *logger.Logger

	mu        sync.RWMutex
	registers [registerCount]uint16
	coils     [coilCount]bool
	lastRead  time.Time
	server    *modbus.ModbusServer
	now       func() time.Time
}

func NewServer(addr string, log *logger.Logger) *Server {
	return &Server{
		addr: addr,
		log:  log.WithTag("fieldbus"),
		now:  time.Now,
	}
}

// Start begins serving Modbus TCP. A bind failure is returned for the caller
// to log; the hub degrades to no-field-bus operation.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return nil
	}
	server, err := modbus.NewServer(&modbus.ServerConfiguration{
		URL:        "tcp://" + s.addr,
		Timeout:    30 * time.Second,
		MaxClients: 5,
	}, s)
	if err != nil {
		return fmt.Errorf("create modbus server: %w", err)
	}
	if err := server.Start(); err != nil {
		return fmt.Errorf("start modbus server on %s: %w", s.addr, err)
	}
	s.server = server
	s.log.Infof("Modbus TCP server listening on %s", s.addr)
	return nil
}

// Stop shuts the listener down. Idempotent.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return
	}
	s.server.Stop()
	s.server = nil
	s.log.Infof("Modbus server stopped")
}

// SetCount writes an object count into a holding register.
func (s *Server) SetCount(register uint16, count uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if int(register) < registerCount {
		s.registers[register] = count
	}
}

// GetCoil reads a single coil last written by the PLC.
func (s *Server) GetCoil(addr uint16) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if int(addr) >= coilCount {
		return false
	}
	return s.coils[addr]
}

// IsActive reports whether the PLC read a holding register within the last
// second.
func (s *Server) IsActive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.lastRead.IsZero() && s.now().Sub(s.lastRead) < activeTimeout
}

// HandleHoldingRegisters serves PLC reads of the score registers; writes are
// accepted but the orchestrator is the only score author.
func (s *Server) HandleHoldingRegisters(req *modbus.HoldingRegistersRequest) ([]uint16, error) {
	if int(req.Addr)+int(req.Quantity) > registerCount {
		return nil, modbus.ErrIllegalDataAddress
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if req.IsWrite {
		copy(s.registers[req.Addr:], req.Args)
		return nil, nil
	}
	s.lastRead = s.now()
	res := make([]uint16, req.Quantity)
	copy(res, s.registers[req.Addr:int(req.Addr)+int(req.Quantity)])
	return res, nil
}

// HandleCoils serves the PLC's motor command writes.
func (s *Server) HandleCoils(req *modbus.CoilsRequest) ([]bool, error) {
	if int(req.Addr)+int(req.Quantity) > coilCount {
		return nil, modbus.ErrIllegalDataAddress
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if req.IsWrite {
		copy(s.coils[req.Addr:], req.Args)
		return nil, nil
	}
	res := make([]bool, req.Quantity)
	copy(res, s.coils[req.Addr:int(req.Addr)+int(req.Quantity)])
	return res, nil
}

func (s *Server) HandleDiscreteInputs(req *modbus.DiscreteInputsRequest) ([]bool, error) {
	return nil, modbus.ErrIllegalFunction
}

func (s *Server) HandleInputRegisters(req *modbus.InputRegistersRequest) ([]uint16, error) {
	return nil, modbus.ErrIllegalFunction
}
