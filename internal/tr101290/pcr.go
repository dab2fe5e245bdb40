/*
NAME
  pcr.go - PCR repetition and accuracy checking.

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

	"github.com/ausocean/tsinspect/internal/tspacket"
)

// pcrHz is the PCR clock rate: 27 MHz, per ISO/IEC 13818-1 section 2.4.2.2.
const pcrHz = 27_000_000

// maxPCRInterval is the repetition limit, per §4.5.
const maxPCRInterval = 100 * time.Millisecond

// maxPCRAccuracy is the accuracy tolerance, per §4.5 (a spec-chosen
// bound, not the wider jitter allowance ETSI TR 101 290 itself uses).
const maxPCRAccuracy = 500 * time.Nanosecond

type pcrState struct {
	haveLast bool
	lastWall time.Time
	lastPCR  uint64
}

// pcrTracker holds per-PID PCR continuity state.
type pcrTracker struct {
	pids map[uint16]*pcrState
}

func newPCRTracker() *pcrTracker {
	return &pcrTracker{pids: make(map[uint16]*pcrState)}
}

// observe records a new PCR value on pid at wall-clock time now, and
// reports whether it violated the repetition interval and/or the
// accuracy bound against the previous PCR on the same PID.
func (t *pcrTracker) observe(pid uint16, pcr uint64, now time.Time) (repetition, accuracy bool) {
	s, ok := t.pids[pid]
	if !ok {
		s = &pcrState{}
		t.pids[pid] = s
	}
	defer func() {
		s.haveLast = true
		s.lastWall = now
		s.lastPCR = pcr
	}()

	if !s.haveLast {
		return false, false
	}

	wallDelta := now.Sub(s.lastWall)
	if wallDelta > maxPCRInterval {
		repetition = true
	}

	pcrDelta := (pcr - s.lastPCR + tspacket.PCRWrapModulus) % tspacket.PCRWrapModulus
	pcrDeltaSeconds := float64(pcrDelta) / pcrHz
	diff := wallDelta.Seconds() - pcrDeltaSeconds
	if diff < 0 {
		diff = -diff
	}
	if time.Duration(diff*float64(time.Second)) > maxPCRAccuracy {
		accuracy = true
	}
	return repetition, accuracy
}

// drop removes tracked state for pid, e.g. when it stops being a
// program's PCR PID.
func (t *pcrTracker) drop(pid uint16) { delete(t.pids, pid) }
