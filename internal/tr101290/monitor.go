/*
NAME
  monitor.go - TR 101 290 compliance monitor: wires packet/section/PCR
  events into the Counters struct.

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
	"time"

	"github.com/ausocean/tsinspect/internal/ccheck"
	"github.com/ausocean/tsinspect/internal/registry"
	"github.com/ausocean/tsinspect/internal/tspacket"
)

// Table names which PSI table a CRC or timeout event concerns, so the
// monitor can route it to the right counter without re-deriving
// table_id classification that internal/registry already owns.
type Table int

const (
	TablePAT Table = iota
	TablePMT
	TableCAT
	TableNIT
	TableSDT
	TableEIT
)

var crcCounterFor = map[Table]Indicator{
	TablePAT: PATCRCErrors,
	TablePMT: PMTCRCErrors,
	TableCAT: CATCRCErrors,
	TableNIT: NITCRCErrors,
	TableSDT: SDTCRCErrors,
	TableEIT: EITCRCErrors,
}

// Monitor observes TS packets, PSI sections, PCR values, and registry
// timeouts, advancing the Indicator counters named in §4.5.
type Monitor struct {
	Counters *Counters

	lastSyncErrors uint64
	nullRate       *nullRateTracker
	pcr            *pcrTracker
	pcrPIDs        map[uint16]bool
}

// NewMonitor returns a Monitor gated by mask.
func NewMonitor(mask Mask) *Monitor {
	return &Monitor{
		Counters: NewCounters(mask),
		nullRate: newNullRateTracker(),
		pcr:      newPCRTracker(),
		pcrPIDs:  make(map[uint16]bool),
	}
}

// SetPCRPIDs updates the set of PIDs currently designated as a
// program's PCR PID, per the registry's current program list. A PID
// dropped from this set loses its PCR repetition/accuracy history.
func (m *Monitor) SetPCRPIDs(pids []uint16) {
	live := make(map[uint16]bool, len(pids))
	for _, pid := range pids {
		live[pid] = true
		if !m.pcrPIDs[pid] {
			m.pcrPIDs[pid] = true
		}
	}
	for pid := range m.pcrPIDs {
		if !live[pid] {
			delete(m.pcrPIDs, pid)
			m.pcr.drop(pid)
		}
	}
}

// ObservePacket updates TEI, null-packet-rate, and (when applicable)
// PCR repetition/accuracy state for one decoded packet at time now.
func (m *Monitor) ObservePacket(pkt *tspacket.Packet, now time.Time) {
	if pkt.TEI {
		m.Counters.Add(TransportErrorIndicator, 1)
	}

	isNull := pkt.PID == tspacket.NullPID
	if frac := m.nullRate.observe(now, isNull); frac > nullRateThreshold {
		m.Counters.Add(NullPacketRateErrors, 1)
	}

	if m.pcrPIDs[pkt.PID] && pkt.Adapt != nil && pkt.Adapt.HasPCR {
		rep, acc := m.pcr.observe(pkt.PID, pkt.Adapt.PCR, now)
		if rep {
			m.Counters.Add(PCRRepetitionErrors, 1)
		}
		if acc {
			m.Counters.Add(PCRAccuracyErrors, 1)
		}
	}
}

// ObserveSyncErrors reconciles the monitor's view of a Framer's
// cumulative SyncErrors counter, adding only the delta since the last
// call (the Framer's counter, like the rest of its state, persists
// across calls, so this must not double-count).
func (m *Monitor) ObserveSyncErrors(cumulative uint64) {
	if cumulative <= m.lastSyncErrors {
		return
	}
	m.Counters.Add(SyncByteErrors, cumulative-m.lastSyncErrors)
	m.lastSyncErrors = cumulative
}

// ObserveContinuity advances continuity_counter_errors when result is
// ccheck.Error. Duplicates and in-sequence packets are not errors.
func (m *Monitor) ObserveContinuity(result ccheck.Result) {
	if result == ccheck.Error {
		m.Counters.Add(ContinuityCounterErrors, 1)
	}
}

// ObserveSectionCRCError advances the CRC counter for tbl.
func (m *Monitor) ObserveSectionCRCError(tbl Table) {
	m.Counters.Add(crcCounterFor[tbl], 1)
}

// ObserveTimeouts advances PAT/CAT/PMT timeout counters from a
// registry.Timeouts result.
func (m *Monitor) ObserveTimeouts(t registry.Timeouts) {
	if t.PAT {
		m.Counters.Add(PATTimeoutErrors, 1)
	}
	if t.CAT {
		m.Counters.Add(CATTimeoutErrors, 1)
	}
	if n := len(t.Programs); n > 0 {
		m.Counters.Add(PMTTimeoutErrors, uint64(n))
	}
}

// ObserveServiceIDMismatches advances service_id_mismatch by n, the
// count of SDT service_ids absent from the current PAT program list.
func (m *Monitor) ObserveServiceIDMismatches(n int) {
	if n > 0 {
		m.Counters.Add(ServiceIDMismatch, uint64(n))
	}
}

// ObserveIngressDrop advances the ingress-channel-lag drop counter, per
// §5's backpressure rule.
func (m *Monitor) ObserveIngressDrop(n uint64) {
	m.Counters.Add(IngressDropErrors, n)
}
