package tspacket

import "testing"

// TestDecodeGotsCrossCheckAgrees exercises the gots cross-check Decode
// performs on every packet: for a standard-conformant packet, the
// hand-decoded PID/CC must agree with gots's own independently
// implemented accessors, and Decode must succeed.
func TestDecodeGotsCrossCheckAgrees(t *testing.T) {
	d := make([]byte, Size)
	d[0] = SyncByte
	d[1] = 0x01 // PID high bits.
	d[2] = 0x23 // PID low byte -> PID 0x123.
	d[3] = 0x10 | 0x07 // payload-only AFC, CC=7.

	p, err := Decode(d)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if p.PID != 0x123 {
		t.Fatalf("got PID %#x, want 0x123", p.PID)
	}
	if p.CC != 7 {
		t.Fatalf("got CC %d, want 7", p.CC)
	}
	if got := p.gotsPID(); got != p.PID {
		t.Fatalf("gotsPID() = %#x, want %#x (Decode should have rejected any mismatch)", got, p.PID)
	}
	if got := p.gotsCC(); got != uint16(p.CC) {
		t.Fatalf("gotsCC() = %d, want %d (Decode should have rejected any mismatch)", got, p.CC)
	}
}

func TestDecodeAllPIDValues(t *testing.T) {
	for _, pid := range []uint16{0x0000, 0x0001, 0x0100, 0x1234, 0x1FFE, 0x1FFF} {
		d := make([]byte, Size)
		d[0] = SyncByte
		d[1] = byte(pid >> 8 & 0x1f)
		d[2] = byte(pid)
		d[3] = 0x10

		p, err := Decode(d)
		if err != nil {
			t.Fatalf("pid %#x: Decode: %v", pid, err)
		}
		if p.PID != pid {
			t.Fatalf("pid %#x: got %#x", pid, p.PID)
		}
	}
}
