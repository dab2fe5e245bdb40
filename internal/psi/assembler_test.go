/*
NAME
  assembler_test.go

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
	"testing"
)

const tsPacketSize = 188

// buildPAT returns a minimal, valid (CRC-correct) PAT section body: one
// program (program_number=1) mapped to PMT PID 0x100.
func buildPAT() []byte {
	b := []byte{
		0x00,       // table_id
		0x00, 0x00, // section_length placeholder (filled below)
		0x00, 0x01, // transport_stream_id
		0xc1,       // reserved(2) version(5) current_next(1)
		0x00,       // section_number
		0x00,       // last_section_number
		0x00, 0x01, // program_number = 1
		0xe1, 0x00, // reserved(3) | PMT PID (0x100)
	}
	// section_length covers everything after the length field, plus 4 CRC bytes.
	length := len(b) - 3 + 4
	b[1] = 0xb0 | byte(length>>8&0x0f)
	b[2] = byte(length)
	crc := crc32Update(0xffffffff, crcTable, b)
	b = append(b, byte(crc>>24), byte(crc>>16), byte(crc>>8), byte(crc))
	return b
}

// wrapInPackets splits body (a full section, table_id through CRC) across
// one or more TS packets on pid, each carrying a payload of payloadPerPkt
// bytes, mimicking how a real multiplexer would lay it out with a
// pointer_field on the first packet only. Each packet is 4+payloadPerPkt
// bytes long (188 for a full 184-byte payload), so pkt[4:] is exactly the
// payload that was laid out.
func wrapInPackets(pid uint16, body []byte, payloadPerPkt int) [][]byte {
	var pkts [][]byte
	first := true
	cc := byte(0)
	for len(body) > 0 || first {
		n := payloadPerPkt
		extra := 0
		if first {
			extra = 1 // pointer_field byte
		}
		avail := n - extra
		if avail > len(body) {
			avail = len(body)
		}
		payload := make([]byte, 0, n)
		if first {
			payload = append(payload, 0x00) // pointer_field = 0: section starts immediately
		}
		payload = append(payload, body[:avail]...)
		body = body[avail:]
		for len(payload) < n {
			payload = append(payload, 0xff)
		}

		pkt := make([]byte, 4+n)
		pkt[0] = 0x47
		pusiBit := byte(0)
		if first {
			pusiBit = 0x40
		}
		pkt[1] = pusiBit | byte(pid>>8&0x1f)
		pkt[2] = byte(pid)
		pkt[3] = 0x10 | cc // payload only, no adaptation field
		copy(pkt[4:], payload)
		pkts = append(pkts, pkt)

		cc = (cc + 1) & 0x0f
		first = false
		if len(body) == 0 {
			break
		}
	}
	return pkts
}

func feedAll(a *Assembler, pid uint16, pkts [][]byte) []Outcome {
	var outs []Outcome
	for _, pkt := range pkts {
		pusi := pkt[1]&0x40 != 0
		cc := pkt[3] & 0x0f
		payload := pkt[4:]
		out := a.Feed(pid, pusi, payload, cc, pkt, true)
		outs = append(outs, out)
	}
	return outs
}

func TestAssemblerSinglePacketSection(t *testing.T) {
	body := buildPAT()
	pkts := wrapInPackets(0x00, body, 184)
	if len(pkts) != 1 {
		t.Fatalf("expected the short PAT to fit in one packet, got %d", len(pkts))
	}
	a := NewAssembler()
	outs := feedAll(a, 0x00, pkts)
	if len(outs[0].Sections) != 1 {
		t.Fatalf("expected one completed section, got %d", len(outs[0].Sections))
	}
	sec := outs[0].Sections[0]
	if sec.TableID != 0x00 {
		t.Errorf("TableID = %#x, want 0x00", sec.TableID)
	}
	if sec.TableIDExtension != 1 {
		t.Errorf("TableIDExtension (transport_stream_id) = %d, want 1", sec.TableIDExtension)
	}
}

func TestAssemblerSplitAcrossPackets(t *testing.T) {
	body := buildPAT()
	// Force a split: a payload smaller than the section length.
	pkts := wrapInPackets(0x00, body, 10)
	if len(pkts) < 2 {
		t.Fatalf("expected the section to span multiple packets, got %d", len(pkts))
	}
	a := NewAssembler()
	outs := feedAll(a, 0x00, pkts)

	var total int
	for _, o := range outs {
		total += len(o.Sections)
		if o.CRCError || o.ContinuityError || o.LengthCapError {
			t.Fatalf("unexpected error outcome: %+v", o)
		}
	}
	if total != 1 {
		t.Fatalf("expected exactly one completed section across the split, got %d", total)
	}
}

func TestAssemblerCRCErrorOnCorruption(t *testing.T) {
	body := buildPAT()
	body[8] ^= 0xff // corrupt program_number, invalidating the trailing CRC
	pkts := wrapInPackets(0x00, body, 184)
	a := NewAssembler()
	outs := feedAll(a, 0x00, pkts)
	if !outs[0].CRCError {
		t.Fatalf("expected CRCError, got %+v", outs[0])
	}
	if outs[0].CRCErrorTableID != 0x00 {
		t.Errorf("CRCErrorTableID = %#x, want 0x00", outs[0].CRCErrorTableID)
	}
	if len(outs[0].Sections) != 0 {
		t.Errorf("expected no completed sections on CRC failure, got %d", len(outs[0].Sections))
	}
}

// TestAssemblerIdenticalResubmission exercises the PSI half of the
// duplicate-frame property: feeding the exact same valid section twice (same
// bytes, same continuity counter) must not raise a continuity error; the
// first delivery yields the section and the repeat is absorbed as a
// duplicate by ccheck, so it yields none. Recognising an already-seen
// version of a table is left to the registry.
func TestAssemblerIdenticalResubmission(t *testing.T) {
	body := buildPAT()
	pkts := wrapInPackets(0x00, body, 184)
	a := NewAssembler()

	out1 := feedAll(a, 0x00, pkts)
	// Resubmit the identical packet (same cc, same bytes): this is the
	// "duplicate packet" case, not a new section start, since the pointer
	// field/cc repeat exactly.
	out2 := feedAll(a, 0x00, pkts)

	if len(out1[0].Sections) != 1 {
		t.Fatalf("first submission: expected 1 section, got %d", len(out1[0].Sections))
	}
	if out2[0].ContinuityError {
		t.Fatalf("exact duplicate packet flagged as continuity error")
	}
	if len(out2[0].Sections) != 0 {
		t.Fatalf("duplicate packet should be absorbed by ccheck before reaching reassembly, got %d sections", len(out2[0].Sections))
	}
}

func TestAssemblerContinuityErrorResetsInProgressSection(t *testing.T) {
	body := buildPAT()
	pkts := wrapInPackets(0x00, body, 6)
	if len(pkts) < 3 {
		t.Fatalf("need at least 3 packets to corrupt a middle one, got %d", len(pkts))
	}
	// Jump the continuity counter on the second packet from 1 to 3,
	// skipping 2: a classic continuity_counter_error.
	pkts[1][3] = (pkts[1][3] &^ 0x0f) | 0x03

	a := NewAssembler()
	outs := feedAll(a, 0x00, pkts)

	var sawContinuityError bool
	var total int
	for _, o := range outs {
		if o.ContinuityError {
			sawContinuityError = true
		}
		total += len(o.Sections)
	}
	if !sawContinuityError {
		t.Fatalf("expected a continuity error after the cc jump")
	}
	if total != 0 {
		t.Fatalf("expected the in-progress section to be abandoned, got %d completed sections", total)
	}
}

func TestAssemblerLengthCapAbortsAndResetsContinuity(t *testing.T) {
	body := buildPAT()
	// Claim a section_length that exceeds the PAT/PMT/CAT standard cap of
	// 1021, while leaving too little actual data to ever complete it; the
	// assembler must abort rather than buffer forever.
	length := MaxStandardSectionLen + 1
	body[1] = 0xb0 | byte(length>>8&0x0f)
	body[2] = byte(length)

	pkts := wrapInPackets(0x00, body, 184)
	a := NewAssembler()
	outs := feedAll(a, 0x00, pkts)
	if !outs[0].LengthCapError {
		t.Fatalf("expected LengthCapError, got %+v", outs[0])
	}

	// The abort also resets continuity tracking on the PID: a following
	// packet whose cc (5) does not follow on from the aborted one (0) is a
	// fresh start, not a continuity error.
	next := wrapInPackets(0x00, buildPAT(), 184)
	next[0][3] = (next[0][3] &^ 0x0f) | 0x05
	if out := feedAll(a, 0x00, next); out[0].ContinuityError {
		t.Fatalf("continuity error after a length-cap abort; expected the PID's cc tracking to be reset")
	}
}
