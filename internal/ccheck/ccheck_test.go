package ccheck

import "testing"

func packet(cc byte, tail byte) []byte {
	p := make([]byte, 188)
	p[0] = 0x47
	p[3] = 0x10 | cc
	p[187] = tail
	return p
}

func TestTrackerFirstPacketAlwaysOK(t *testing.T) {
	tr := NewTracker()
	if got := tr.Check(0x100, 5, packet(5, 0)); got != OK {
		t.Fatalf("got %v, want OK", got)
	}
}

func TestTrackerSequentialAdvance(t *testing.T) {
	tr := NewTracker()
	tr.Check(0x100, 0, packet(0, 0))
	for cc := byte(1); cc < 16; cc++ {
		if got := tr.Check(0x100, cc, packet(cc, 0)); got != OK {
			t.Fatalf("cc %d: got %v, want OK", cc, got)
		}
	}
	// Wraps back to 0 after 15.
	if got := tr.Check(0x100, 0, packet(0, 0)); got != OK {
		t.Fatalf("wrap: got %v, want OK", got)
	}
}

func TestTrackerDuplicateSamePayload(t *testing.T) {
	tr := NewTracker()
	p := packet(3, 0xaa)
	tr.Check(0x100, 3, p)
	if got := tr.Check(0x100, 3, p); got != Duplicate {
		t.Fatalf("got %v, want Duplicate", got)
	}
}

func TestTrackerDuplicateCCMismatchedPayloadIsError(t *testing.T) {
	tr := NewTracker()
	tr.Check(0x100, 3, packet(3, 0xaa))
	if got := tr.Check(0x100, 3, packet(3, 0xbb)); got != Error {
		t.Fatalf("got %v, want Error", got)
	}
}

func TestTrackerSkippedCCIsError(t *testing.T) {
	tr := NewTracker()
	tr.Check(0x100, 5, packet(5, 0))
	if got := tr.Check(0x100, 7, packet(7, 0)); got != Error {
		t.Fatalf("got %v, want Error", got)
	}
}

func TestTrackerIndependentPerPID(t *testing.T) {
	tr := NewTracker()
	tr.Check(0x100, 5, packet(5, 0))
	// A different PID starting at an unrelated cc is a fresh start, not an error.
	if got := tr.Check(0x200, 9, packet(9, 0)); got != OK {
		t.Fatalf("got %v, want OK", got)
	}
}

func TestTrackerReset(t *testing.T) {
	tr := NewTracker()
	tr.Check(0x100, 5, packet(5, 0))
	tr.Reset(0x100)
	// After Reset, the next packet is treated as a fresh start regardless of cc.
	if got := tr.Check(0x100, 11, packet(11, 0)); got != OK {
		t.Fatalf("got %v, want OK", got)
	}
}
