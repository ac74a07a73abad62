// Package lighting receives E1.31 (sACN) DMX data from the field lighting
// console. Channels 1-3 of the configured universe carry the RGB color the
// hub should display while a match runs.
package lighting

import (
	"bytes"
	"fmt"
	"net"
	"sync"
	"time"

	"hub-service/internal/logger"
	"hub-service/internal/types"
)

const (
	sacnPort = 5568

	// E1.31 framing: the ACN packet identifier sits at byte 4, DMX property
	// values start at byte 126 (slot 0 is the start code, slot 1 = channel 1).
	acnIdentOffset = 4
	dmxDataOffset  = 126

	// Lighting consoles refresh continuously; silence this long means the
	// console went away and the hub should fall back to its idle color.
	activeTimeout = 10 * time.Second
)

var acnIdentifier = []byte("ASC-E1.17\x00\x00\x00")

// Receiver listens on the sACN multicast group for one universe and delivers
// decoded colors into a queue.
type Receiver struct {
	universe int
	log      *logger.Logger

	mu         sync.Mutex
	conn       *net.UDPConn
	lastPacket time.Time
	now        func() time.Time
}

func NewReceiver(universe int, log *logger.Logger) *Receiver {
	return &Receiver{
		universe: universe,
		log:      log.WithTag("lighting"),
		now:      time.Now,
	}
}

// Start joins the universe's multicast group and begins decoding packets into
// colors. Colors are dropped, not queued, when the channel is full.
func (r *Receiver) Start(colors chan<- types.Color) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn != nil {
		return nil
	}
	group := &net.UDPAddr{
		IP:   net.IPv4(239, 255, byte(r.universe>>8), byte(r.universe&0xff)),
		Port: sacnPort,
	}
	conn, err := net.ListenMulticastUDP("udp4", nil, group)
	if err != nil {
		return fmt.Errorf("join sACN group %s: %w", group.IP, err)
	}
	r.conn = conn
	r.log.Infof("Listening for sACN universe %d on %s", r.universe, group.IP)

	go r.readLoop(conn, colors)
	return nil
}

func (r *Receiver) readLoop(conn *net.UDPConn, colors chan<- types.Color) {
	buf := make([]byte, 1024)
	for {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			// Stop() closed the socket.
			return
		}
		color, ok := decodePacket(buf[:n])
		if !ok {
			continue
		}

		r.mu.Lock()
		r.lastPacket = r.now()
		r.mu.Unlock()

		select {
		case colors <- color:
		default:
		}
	}
}

// decodePacket validates the ACN identifier and pulls RGB out of DMX channels
// 1-3. Consoles may send short universes; missing channels read as zero.
func decodePacket(pkt []byte) (types.Color, bool) {
	if len(pkt) < acnIdentOffset+len(acnIdentifier) {
		return types.Color{}, false
	}
	if !bytes.Equal(pkt[acnIdentOffset:acnIdentOffset+len(acnIdentifier)], acnIdentifier) {
		return types.Color{}, false
	}

	var dmx [3]byte
	for i := range dmx {
		if off := dmxDataOffset + i; off < len(pkt) {
			dmx[i] = pkt[off]
		}
	}
	return types.Color{R: dmx[0], G: dmx[1], B: dmx[2]}, true
}

// IsActive reports whether a valid packet arrived within the timeout window.
func (r *Receiver) IsActive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.lastPacket.IsZero() && r.now().Sub(r.lastPacket) < activeTimeout
}

// Stop leaves the multicast group. Idempotent.
func (r *Receiver) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn == nil {
		return
	}
	r.conn.Close()
	r.conn = nil
	r.lastPacket = time.Time{}
	r.log.Infof("sACN receiver stopped")
}
