package hardware

import (
	"testing"

	"hub-service/internal/types"
)

func TestEncodeFrameSinglePixel(t *testing.T) {
	dst := make([]byte, 24)
	encodeFrame(dst, []types.Color{{R: 255, G: 0, B: 0}}, 1.0)

	// GRB order: first 8 bytes green (all zero bits), next 8 red (all one
	// bits), last 8 blue (all zero bits).
	for i := 0; i < 8; i++ {
		if dst[i] != ledZero {
			t.Fatalf("green byte %d = %#x, want ledZero", i, dst[i])
		}
	}
	for i := 8; i < 16; i++ {
		if dst[i] != ledOne {
			t.Fatalf("red byte %d = %#x, want ledOne", i, dst[i])
		}
	}
	for i := 16; i < 24; i++ {
		if dst[i] != ledZero {
			t.Fatalf("blue byte %d = %#x, want ledZero", i, dst[i])
		}
	}
}

func TestEncodeFrameBitPattern(t *testing.T) {
	dst := make([]byte, 24)
	encodeFrame(dst, []types.Color{{G: 0b1010_0001}}, 1.0)

	want := []byte{ledOne, ledZero, ledOne, ledZero, ledZero, ledZero, ledZero, ledOne}
	for i, w := range want {
		if dst[i] != w {
			t.Errorf("bit %d encoded as %#x, want %#x", i, dst[i], w)
		}
	}
}

func TestEncodeFrameBrightness(t *testing.T) {
	dst := make([]byte, 24)
	encodeFrame(dst, []types.Color{{R: 200, G: 200, B: 200}}, 0.5)

	// 200 * 0.5 = 100 = 0b0110_0100 in every channel.
	want := []byte{ledZero, ledOne, ledOne, ledZero, ledZero, ledOne, ledZero, ledZero}
	for c := 0; c < 3; c++ {
		for i, w := range want {
			if dst[c*8+i] != w {
				t.Errorf("channel %d bit %d = %#x, want %#x", c, i, dst[c*8+i], w)
			}
		}
	}
}

func TestNullStripRemembersColor(t *testing.T) {
	n := &NullStrip{}
	n.SetAll(types.Color{R: 1, G: 2, B: 3})
	if n.Last() != (types.Color{R: 1, G: 2, B: 3}) {
		t.Errorf("Last() = %v", n.Last())
	}
	if err := n.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if n.Last() != types.ColorOff {
		t.Error("clear should reset last color")
	}
}

func TestNullMotorsThrottle(t *testing.T) {
	var m NullMotors
	if err := m.SetThrottle(0, 2.0); err != nil {
		t.Fatalf("set throttle: %v", err)
	}
	m.StopAll()
}
