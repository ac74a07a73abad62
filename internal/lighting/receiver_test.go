package lighting

import (
	"testing"
	"time"

	"hub-service/internal/logger"
	"hub-service/internal/types"
)

func sacnPacket(dmx ...byte) []byte {
	pkt := make([]byte, dmxDataOffset+len(dmx))
	copy(pkt[acnIdentOffset:], acnIdentifier)
	copy(pkt[dmxDataOffset:], dmx)
	return pkt
}

func TestDecodePacket(t *testing.T) {
	color, ok := decodePacket(sacnPacket(255, 179, 0))
	if !ok {
		t.Fatal("valid packet rejected")
	}
	if color != (types.Color{R: 255, G: 179, B: 0}) {
		t.Errorf("color = %v, want amber", color)
	}
}

func TestDecodePacketShortUniverse(t *testing.T) {
	// Only channel 1 present: missing channels read as zero.
	color, ok := decodePacket(sacnPacket(200))
	if !ok {
		t.Fatal("short universe rejected")
	}
	if color != (types.Color{R: 200}) {
		t.Errorf("color = %v, want {200 0 0}", color)
	}
}

func TestDecodePacketBadIdentifier(t *testing.T) {
	pkt := sacnPacket(1, 2, 3)
	pkt[acnIdentOffset] = 'X'
	if _, ok := decodePacket(pkt); ok {
		t.Error("packet without ACN identifier should be dropped")
	}

	if _, ok := decodePacket([]byte{0, 1, 2}); ok {
		t.Error("truncated packet should be dropped")
	}
}

func TestIsActiveWindow(t *testing.T) {
	r := NewReceiver(1, logger.New(nil, logger.LevelNone))
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	if r.IsActive() {
		t.Error("fresh receiver should be inactive")
	}

	r.lastPacket = now
	now = now.Add(9 * time.Second)
	if !r.IsActive() {
		t.Error("receiver should stay active within the timeout")
	}

	now = now.Add(2 * time.Second)
	if r.IsActive() {
		t.Error("receiver should go inactive after the timeout")
	}
}

func TestStopWithoutStart(t *testing.T) {
	r := NewReceiver(1, logger.New(nil, logger.LevelNone))
	r.Stop()
	r.Stop()
}
