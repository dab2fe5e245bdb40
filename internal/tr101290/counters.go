/*
NAME
  counters.go - TR 101 290 saturating indicator counters.

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

// Package tr101290 maintains the priority-filtered error counters of an
// ETSI TR 101 290-style compliance monitor: one saturating 64-bit
// counter per indicator, gated by a priority mask so that indicators of
// a disabled priority never advance, per §4.5/§6.
package tr101290

import "sync/atomic"

// Indicator names one TR 101 290-style error condition.
type Indicator int

const (
	SyncByteErrors Indicator = iota
	TransportErrorIndicator
	ContinuityCounterErrors
	PATCRCErrors
	PATTimeoutErrors
	PMTCRCErrors
	PMTTimeoutErrors
	CATCRCErrors
	CATTimeoutErrors
	NITCRCErrors
	SDTCRCErrors
	EITCRCErrors
	PCRRepetitionErrors
	PCRAccuracyErrors
	NullPacketRateErrors
	ServiceIDMismatch
	IngressDropErrors

	numIndicators
)

// Priority is the TR 101 290 priority tier an indicator belongs to.
type Priority int

const (
	P1 Priority = iota + 1
	P2
	P3
)

// priorityOf is the priority tag table, kept separate from the counter
// struct itself so the mask check in Add is purely data-driven: adding
// a new indicator never requires touching the increment logic.
//
// PAT and PMT are tagged P1 (their loss breaks demultiplexing
// entirely); CAT is tagged P2 (conditional access is optional and its
// absence doesn't break playback); NIT/SDT/EIT are tagged P3
// (service-information tables, lowest-impact). This mirrors ETSI TR
// 101 290 table 5's own P1/P2/P3 split for the equivalent indicators,
// which spec.md names by condition but doesn't re-tag individually for
// every table.
var priorityOf = [numIndicators]Priority{
	SyncByteErrors:          P1,
	TransportErrorIndicator: P1,
	ContinuityCounterErrors: P1,
	PATCRCErrors:            P1,
	PATTimeoutErrors:        P1,
	PMTCRCErrors:            P1,
	PMTTimeoutErrors:        P1,
	CATCRCErrors:            P2,
	CATTimeoutErrors:        P2,
	NITCRCErrors:            P3,
	SDTCRCErrors:            P3,
	EITCRCErrors:            P3,
	PCRRepetitionErrors:     P2,
	PCRAccuracyErrors:       P2,
	NullPacketRateErrors:    P2,
	ServiceIDMismatch:       P3,
	IngressDropErrors:       P1,
}

// names backs Counters.Snapshot's JSON-friendly field names.
var names = [numIndicators]string{
	SyncByteErrors:          "sync_byte_errors",
	TransportErrorIndicator: "transport_error_indicator",
	ContinuityCounterErrors: "continuity_counter_errors",
	PATCRCErrors:            "pat_crc_errors",
	PATTimeoutErrors:        "pat_timeout_errors",
	PMTCRCErrors:            "pmt_crc_errors",
	PMTTimeoutErrors:        "pmt_timeout_errors",
	CATCRCErrors:            "cat_crc_errors",
	CATTimeoutErrors:        "cat_timeout_errors",
	NITCRCErrors:            "nit_crc_errors",
	SDTCRCErrors:            "sdt_crc_errors",
	EITCRCErrors:            "eit_crc_errors",
	PCRRepetitionErrors:     "pcr_repetition_errors",
	PCRAccuracyErrors:       "pcr_accuracy_errors",
	NullPacketRateErrors:    "null_packet_rate_errors",
	ServiceIDMismatch:       "service_id_mismatch",
	IngressDropErrors:       "ingress_drop_errors",
}

// Mask selects which priority tiers may advance their counters.
type Mask int

const (
	MaskNone Mask = iota
	MaskP1
	MaskP1P2
	MaskAll
)

// enabled reports whether p may advance under mask m.
func (m Mask) enabled(p Priority) bool {
	switch m {
	case MaskP1:
		return p == P1
	case MaskP1P2:
		return p == P1 || p == P2
	case MaskAll:
		return true
	default:
		return false
	}
}

// Counters holds one saturating counter per Indicator. The zero value
// is ready to use with mask MaskNone (every Add is a no-op until a
// mask is set via Counters.SetMask).
type Counters struct {
	mask   atomic.Int32
	values [numIndicators]atomic.Uint64
}

// NewCounters returns a Counters gated by mask.
func NewCounters(mask Mask) *Counters {
	c := &Counters{}
	c.SetMask(mask)
	return c
}

// SetMask changes the active priority mask. Counters already advanced
// are not reset; disabling a priority only stops further increments.
func (c *Counters) SetMask(m Mask) { c.mask.Store(int32(m)) }

// Mask returns the active priority mask.
func (c *Counters) Mask() Mask { return Mask(c.mask.Load()) }

// Add increments ind by delta, saturating at the maximum uint64 value,
// unless ind's priority is disabled by the current mask, in which case
// it is a no-op, per §4.5's "disabled priorities must not advance their
// counters" rule.
func (c *Counters) Add(ind Indicator, delta uint64) {
	if delta == 0 {
		return
	}
	if !c.Mask().enabled(priorityOf[ind]) {
		return
	}
	for {
		old := c.values[ind].Load()
		next := old + delta
		if next < old {
			next = ^uint64(0) // Saturate on overflow.
		}
		if c.values[ind].CompareAndSwap(old, next) {
			return
		}
	}
}

// Value returns ind's current counter value regardless of mask (a
// counter that is currently disabled still reports whatever value it
// had accumulated before being disabled).
func (c *Counters) Value(ind Indicator) uint64 { return c.values[ind].Load() }

// Snapshot returns every indicator's current value keyed by its JSON
// field name, per spec.md §6's `"tr101": { <counter_name>: u64, … }`
// report shape. Indicators whose priority is disabled under the
// current mask are omitted entirely, matching "Counters omitted for
// disabled priorities."
func (c *Counters) Snapshot() map[string]uint64 {
	m := c.Mask()
	out := make(map[string]uint64, numIndicators)
	for i := Indicator(0); i < numIndicators; i++ {
		if !m.enabled(priorityOf[i]) {
			continue
		}
		out[names[i]] = c.values[i].Load()
	}
	return out
}
