/*
NAME
  assembler.go - per-PID PSI section reassembly.

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

package psi

import (
	"github.com/ausocean/tsinspect/internal/ccheck"
)

type pidAssembly struct {
	buf []byte // table_id onward, accumulating toward a known length.
}

// Assembler reassembles PSI sections across TS packets, one state machine
// per PID. It is not safe for concurrent use; the engine owns a single
// Assembler and drives it from its one packet-processing task.
type Assembler struct {
	pids map[uint16]*pidAssembly
	cc   *ccheck.Tracker
}

// NewAssembler returns an empty Assembler.
func NewAssembler() *Assembler {
	return &Assembler{
		pids: make(map[uint16]*pidAssembly),
		cc:   ccheck.NewTracker(),
	}
}

// Outcome reports what happened when feeding one packet to the assembler.
type Outcome struct {
	Sections         []*Section // Zero or more sections completed by this packet.
	ContinuityError  bool
	CRCError         bool
	CRCErrorTableID  byte
	LengthCapError   bool
}

// Feed processes one TS packet addressed to a PID the assembler is
// tracking PSI on. pusi, payload, cc, and raw are taken from the decoded
// tspacket.Packet; hasPayload must reflect AFC, since continuity counting
// is skipped entirely when a packet carries no payload.
func (a *Assembler) Feed(pid uint16, pusi bool, payload []byte, cc byte, raw []byte, hasPayload bool) Outcome {
	var out Outcome
	if !hasPayload {
		return out
	}

	switch a.cc.Check(pid, cc, raw) {
	case ccheck.Duplicate:
		return out
	case ccheck.Error:
		out.ContinuityError = true
		a.reset(pid)
		// Per spec: continuity violation resets reassembly; the packet's
		// payload is still not trustworthy enough to start a new section
		// from, so we stop here rather than guessing at a pointer_field.
		return out
	}

	pa, ok := a.pids[pid]
	if !ok {
		pa = &pidAssembly{}
		a.pids[pid] = pa
	}

	if !pusi {
		if pa.buf == nil {
			// Nothing in progress and no PUSI: can't be part of a section
			// we recognise (e.g. stuffing on this PID); ignore.
			return out
		}
		pa.buf = append(pa.buf, payload...)
		a.drain(pid, pa, &out)
		return out
	}

	if len(payload) == 0 {
		return out
	}
	pointer := int(payload[0])
	if pointer+1 > len(payload) {
		// Malformed pointer_field; abort whatever was in progress.
		pa.buf = nil
		return out
	}
	completion := payload[1 : 1+pointer]
	rest := payload[1+pointer:]

	if pa.buf != nil && len(completion) > 0 {
		pa.buf = append(pa.buf, completion...)
		a.drain(pid, pa, &out)
	}

	// Begin a new section from rest, skipping stuffing bytes (0xFF) that
	// pad out the remainder of the TS packet payload.
	start := 0
	for start < len(rest) && rest[start] == 0xff {
		start++
	}
	if start >= len(rest) {
		pa.buf = nil
		return out
	}
	pa.buf = append([]byte(nil), rest[start:]...)
	a.drain(pid, pa, &out)
	return out
}

// drain attempts to complete as many sections as the currently buffered
// bytes allow; PSI sections are never concatenated without a pointer_field
// in between, so at most one section can actually complete per call, but
// this loop is harmless if bytes are buffered generously.
func (a *Assembler) drain(pid uint16, pa *pidAssembly, out *Outcome) {
	for {
		if len(pa.buf) < 3 {
			return
		}
		tableID, length, err := SectionLength(pa.buf)
		if err != nil {
			return
		}
		if length > Cap(tableID) {
			out.LengthCapError = true
			out.CRCErrorTableID = tableID
			pa.buf = nil
			a.cc.Reset(pid)
			return
		}
		want := int(length) + 3
		if len(pa.buf) < want {
			return // Still waiting on more packets.
		}

		sec, err := Parse(pid, pa.buf[:want])
		pa.buf = nil
		if err != nil {
			out.CRCError = true
			out.CRCErrorTableID = tableID
			return
		}
		out.Sections = append(out.Sections, sec)
		return
	}
}

func (a *Assembler) reset(pid uint16) {
	delete(a.pids, pid)
}
