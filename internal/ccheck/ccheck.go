/*
NAME
  ccheck.go - shared per-PID continuity counter tracking.

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

// Package ccheck implements the continuity_counter_errors rule shared by
// the PSI section assembler and the elementary stream tracker: a 4-bit,
// mod-16 counter that must advance by one per payload-bearing packet on a
// PID, except that an exact repeat of the previous packet is a permitted
// duplicate rather than an error.
package ccheck

// Tracker holds per-PID continuity counter state.
type Tracker struct {
	state map[uint16]*pidCC
}

type pidCC struct {
	cc      byte
	lastRaw []byte
	primed  bool
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{state: make(map[uint16]*pidCC)}
}

// Result classifies one packet's continuity counter against the PID's
// history.
type Result int

const (
	// OK means cc was exactly last+1 mod 16 (or this is the first packet seen on PID).
	OK Result = iota
	// Duplicate means cc repeated the previous value with an identical raw packet.
	Duplicate
	// Error means cc neither advanced normally nor qualified as a duplicate.
	Error
)

// Check advances the tracker for PID pid given a payload-bearing packet
// with continuity counter cc and full raw 188-byte contents raw. Packets
// without a payload (adaptation_field_control == 0b00 or 0b10) must not be
// passed to Check at all, per spec: continuity counting is skipped
// entirely for them.
func (t *Tracker) Check(pid uint16, cc byte, raw []byte) Result {
	s, ok := t.state[pid]
	if !ok {
		s = &pidCC{}
		t.state[pid] = s
	}
	if !s.primed {
		s.primed = true
		s.cc = cc
		s.lastRaw = append([]byte(nil), raw...)
		return OK
	}

	switch {
	case cc == (s.cc+1)&0x0f:
		s.cc = cc
		s.lastRaw = append(s.lastRaw[:0], raw...)
		return OK
	case cc == s.cc:
		if bytesEqual(s.lastRaw, raw) {
			return Duplicate
		}
		s.cc = cc
		s.lastRaw = append(s.lastRaw[:0], raw...)
		return Error
	default:
		s.cc = cc
		s.lastRaw = append(s.lastRaw[:0], raw...)
		return Error
	}
}

// Reset drops tracked state for pid, e.g. when the PSI assembler aborts a
// section and wants the next packet's cc treated as a fresh start.
func (t *Tracker) Reset(pid uint16) {
	delete(t.state, pid)
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
