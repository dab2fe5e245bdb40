/*
NAME
  monitor_test.go

DESCRIPTION
  See Readme.md

AUTHOR
  Saxon A. Nelson-Milton <saxon.milton@gmail.com>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package tr101290

import (
	"testing"
	"time"

	"github.com/ausocean/tsinspect/internal/ccheck"
	"github.com/ausocean/tsinspect/internal/registry"
	"github.com/ausocean/tsinspect/internal/tspacket"
)

func TestPriorityFilteringMaskP1(t *testing.T) {
	m := NewMonitor(MaskP1)
	m.Counters.Add(ContinuityCounterErrors, 5) // P1: must advance.
	m.Counters.Add(PCRRepetitionErrors, 3)      // P2: must not advance.
	m.Counters.Add(ServiceIDMismatch, 7)        // P3: must not advance.

	if got := m.Counters.Value(ContinuityCounterErrors); got != 5 {
		t.Fatalf("got %d, want 5", got)
	}
	if got := m.Counters.Value(PCRRepetitionErrors); got != 0 {
		t.Fatalf("P2 counter advanced under MaskP1: got %d, want 0", got)
	}
	if got := m.Counters.Value(ServiceIDMismatch); got != 0 {
		t.Fatalf("P3 counter advanced under MaskP1: got %d, want 0", got)
	}

	snap := m.Counters.Snapshot()
	if _, ok := snap["pcr_repetition_errors"]; ok {
		t.Fatalf("disabled P2 counter present in snapshot, want omitted")
	}
}

func TestContinuitySkipCountsTen(t *testing.T) {
	m := NewMonitor(MaskAll)
	for i := 0; i < 10; i++ {
		m.ObserveContinuity(ccheck.Error)
	}
	m.ObserveContinuity(ccheck.OK)
	m.ObserveContinuity(ccheck.Duplicate)
	if got := m.Counters.Value(ContinuityCounterErrors); got != 10 {
		t.Fatalf("got %d, want 10", got)
	}
}

func TestSyncErrorsDelta(t *testing.T) {
	m := NewMonitor(MaskAll)
	m.ObserveSyncErrors(100)
	m.ObserveSyncErrors(150)
	m.ObserveSyncErrors(150) // No change: must not double count.
	if got := m.Counters.Value(SyncByteErrors); got != 150 {
		t.Fatalf("got %d, want 150", got)
	}
}

func TestTimeoutsRouting(t *testing.T) {
	m := NewMonitor(MaskAll)
	m.ObserveTimeouts(registry.Timeouts{PAT: true, CAT: true, Programs: []uint16{1, 2}})
	if got := m.Counters.Value(PATTimeoutErrors); got != 1 {
		t.Fatalf("PAT timeout: got %d, want 1", got)
	}
	if got := m.Counters.Value(CATTimeoutErrors); got != 1 {
		t.Fatalf("CAT timeout: got %d, want 1", got)
	}
	if got := m.Counters.Value(PMTTimeoutErrors); got != 2 {
		t.Fatalf("PMT timeout: got %d, want 2", got)
	}
}

func TestPCRRepetitionAndAccuracy(t *testing.T) {
	m := NewMonitor(MaskAll)
	m.SetPCRPIDs([]uint16{0x50})
	base := time.Unix(0, 0)

	m.ObservePacket(&tspacket.Packet{PID: 0x50, Adapt: &tspacket.AdaptationField{HasPCR: true, PCR: 0}}, base)
	// Exactly on time and exactly matching PCR delta: no violation.
	wallDelta := 40 * time.Millisecond
	pcrDelta := uint64(float64(wallDelta) / float64(time.Second) * pcrHz)
	m.ObservePacket(&tspacket.Packet{PID: 0x50, Adapt: &tspacket.AdaptationField{HasPCR: true, PCR: pcrDelta}}, base.Add(wallDelta))
	if got := m.Counters.Value(PCRRepetitionErrors); got != 0 {
		t.Fatalf("got %d repetition errors, want 0", got)
	}
	if got := m.Counters.Value(PCRAccuracyErrors); got != 0 {
		t.Fatalf("got %d accuracy errors, want 0", got)
	}

	// Now a gap far beyond 100ms, and a PCR that doesn't track wall time.
	m.ObservePacket(&tspacket.Packet{PID: 0x50, Adapt: &tspacket.AdaptationField{HasPCR: true, PCR: pcrDelta + 1}}, base.Add(wallDelta+500*time.Millisecond))
	if got := m.Counters.Value(PCRRepetitionErrors); got != 1 {
		t.Fatalf("got %d repetition errors, want 1", got)
	}
	if got := m.Counters.Value(PCRAccuracyErrors); got != 1 {
		t.Fatalf("got %d accuracy errors, want 1", got)
	}
}

func TestNullPacketRateThreshold(t *testing.T) {
	m := NewMonitor(MaskAll)
	base := time.Unix(0, 0)

	// 20 packets in the window, 4 of them null: exactly 0.20 > 0.15.
	for i := 0; i < 16; i++ {
		m.ObservePacket(&tspacket.Packet{PID: 0x100}, base.Add(time.Duration(i)*10*time.Millisecond))
	}
	for i := 0; i < 4; i++ {
		m.ObservePacket(&tspacket.Packet{PID: tspacket.NullPID}, base.Add(time.Duration(16+i)*10*time.Millisecond))
	}
	if got := m.Counters.Value(NullPacketRateErrors); got == 0 {
		t.Fatalf("got 0 null packet rate errors, want > 0")
	}
}

func TestServiceIDMismatchCount(t *testing.T) {
	m := NewMonitor(MaskAll)
	m.ObserveServiceIDMismatches(2)
	if got := m.Counters.Value(ServiceIDMismatch); got != 2 {
		t.Fatalf("got %d, want 2", got)
	}
}

func TestSectionCRCRouting(t *testing.T) {
	m := NewMonitor(MaskAll)
	m.ObserveSectionCRCError(TablePAT)
	m.ObserveSectionCRCError(TableSDT)
	m.ObserveSectionCRCError(TableSDT)
	if got := m.Counters.Value(PATCRCErrors); got != 1 {
		t.Fatalf("PAT CRC: got %d, want 1", got)
	}
	if got := m.Counters.Value(SDTCRCErrors); got != 2 {
		t.Fatalf("SDT CRC: got %d, want 2", got)
	}
}

func TestCountersSaturate(t *testing.T) {
	c := NewCounters(MaskAll)
	c.values[SyncByteErrors].Store(^uint64(0) - 1)
	c.Add(SyncByteErrors, 10)
	if got := c.Value(SyncByteErrors); got != ^uint64(0) {
		t.Fatalf("got %d, want max uint64 (saturated)", got)
	}
}
