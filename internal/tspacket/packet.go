/*
NAME
  packet.go - decodes the fields of a single 188-byte MPEG-TS packet.

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

// Package tspacket decodes MPEG-TS (ISO/IEC 13818-1) packet headers and
// adaptation fields, and aligns an arbitrary byte stream to the 188-byte
// packet boundary.
package tspacket

import (
	"github.com/pkg/errors"

	gotspacket "github.com/Comcast/gots/v2/packet"
)

// Size is the fixed length of an MPEG-TS packet.
const Size = 188

// SyncByte is the expected value of octet 0 of every TS packet.
const SyncByte = 0x47

// NullPID is the reserved PID for stuffing (null) packets.
const NullPID = 0x1FFF

// ErrShort is returned when Decode is given a slice that is not exactly
// Size bytes long.
var ErrShort = errors.New("tspacket: Decode needs exactly 188 bytes")

// ErrBadSync is returned when octet 0 is not SyncByte.
var ErrBadSync = errors.New("tspacket: sync byte mismatch")

// AdaptationField holds the optional adaptation field of a TS packet. Per
// spec, PCR is a 33-bit base plus 9-bit extension combined as base*300+ext.
type AdaptationField struct {
	Length              int
	Discontinuity       bool
	RandomAccess        bool
	ElementaryStreamPri bool
	HasPCR              bool
	HasOPCR             bool
	HasSplice           bool
	PCR                 uint64 // base*300 + ext, 27MHz ticks.
	OPCR                uint64
	SpliceCountdown     int8
}

// Packet is the decoded form of one 188-byte MPEG-TS packet.
type Packet struct {
	TEI      bool
	PUSI     bool
	Priority bool
	PID      uint16
	TSC      byte // Transport scrambling control, 2 bits.
	AFC      byte // Adaptation field control, 2 bits.
	CC       byte // Continuity counter, 4 bits.
	Adapt    *AdaptationField
	Payload  []byte // View into the packet's backing array; not a copy.

	raw gotspacket.Packet // Reused for the PID/ContinuityCounter accessors gots already provides.
}

// HasPayload reports whether AFC indicates a payload is present.
func (p *Packet) HasPayload() bool { return p.AFC == 0x1 || p.AFC == 0x3 }

// HasAdaptationField reports whether AFC indicates an adaptation field is present.
func (p *Packet) HasAdaptationField() bool { return p.AFC == 0x2 || p.AFC == 0x3 }

// Decode parses a single 188-byte MPEG-TS packet from d. d must be exactly
// Size bytes; the framer is responsible for producing aligned frames.
// Payload aliases d; the returned Packet keeps its own copy of the 188
// bytes only for the gots cross-check.
func Decode(d []byte) (*Packet, error) {
	if len(d) != Size {
		return nil, ErrShort
	}
	if d[0] != SyncByte {
		return nil, ErrBadSync
	}

	var p Packet
	copy(p.raw[:], d)

	p.TEI = d[1]&0x80 != 0
	p.PUSI = d[1]&0x40 != 0
	p.Priority = d[1]&0x20 != 0
	p.PID = uint16(d[1]&0x1f)<<8 | uint16(d[2])
	p.TSC = (d[3] & 0xc0) >> 6
	p.AFC = (d[3] & 0x30) >> 4
	p.CC = d[3] & 0x0f

	if g := p.gotsPID(); g != p.PID {
		return nil, errors.Errorf("tspacket: PID decode mismatch: got %d, gots cross-check %d", p.PID, g)
	}
	if g := p.gotsCC(); g != uint16(p.CC) {
		return nil, errors.Errorf("tspacket: CC decode mismatch: got %d, gots cross-check %d", p.CC, g)
	}

	off := 4
	if p.HasAdaptationField() {
		af, n, err := decodeAdaptationField(d[4:])
		if err != nil {
			return nil, errors.Wrap(err, "tspacket: bad adaptation field")
		}
		p.Adapt = af
		off = 4 + n
	}

	if p.HasPayload() {
		if off > Size {
			return nil, errors.New("tspacket: adaptation field overruns packet")
		}
		p.Payload = d[off:]
	}

	return &p, nil
}

// gotsPID reports the PID as decoded by the gots packet view held in p.raw.
// Decode calls this to cross-check its own header decode against the
// independently implemented accessor the teacher's own discontinuity.go
// relies on; a mismatch fails Decode rather than silently trusting
// either decode.
func (p *Packet) gotsPID() uint16 { return p.raw.PID() }

// gotsCC mirrors the same cross-check for the continuity counter.
func (p *Packet) gotsCC() uint16 { return uint16(p.raw.ContinuityCounter()) }

func decodeAdaptationField(d []byte) (*AdaptationField, int, error) {
	if len(d) < 1 {
		return nil, 0, errors.New("adaptation field: no length byte")
	}
	length := int(d[0])
	if length == 0 {
		return &AdaptationField{Length: 0}, 1, nil
	}
	if length+1 > len(d) {
		return nil, 0, errors.New("adaptation field: length exceeds packet")
	}
	body := d[1 : 1+length]

	af := &AdaptationField{Length: length}
	flags := body[0]
	af.Discontinuity = flags&0x80 != 0
	af.RandomAccess = flags&0x40 != 0
	af.ElementaryStreamPri = flags&0x20 != 0
	af.HasPCR = flags&0x10 != 0
	af.HasOPCR = flags&0x08 != 0
	af.HasSplice = flags&0x04 != 0
	hasTPD := flags&0x02 != 0
	hasExt := flags&0x01 != 0

	idx := 1
	if af.HasPCR {
		if idx+6 > len(body) {
			return nil, 0, errors.New("adaptation field: truncated PCR")
		}
		af.PCR = decodePCR(body[idx : idx+6])
		idx += 6
	}
	if af.HasOPCR {
		if idx+6 > len(body) {
			return nil, 0, errors.New("adaptation field: truncated OPCR")
		}
		af.OPCR = decodePCR(body[idx : idx+6])
		idx += 6
	}
	if af.HasSplice {
		if idx+1 > len(body) {
			return nil, 0, errors.New("adaptation field: truncated splice countdown")
		}
		af.SpliceCountdown = int8(body[idx])
		idx++
	}
	if hasTPD {
		if idx+1 > len(body) {
			return nil, 0, errors.New("adaptation field: truncated transport private data")
		}
		tpdl := int(body[idx])
		idx += 1 + tpdl
	}
	if hasExt {
		if idx+1 > len(body) {
			return nil, 0, errors.New("adaptation field: truncated extension")
		}
		extLen := int(body[idx])
		idx += 1 + extLen
	}
	_ = idx // remaining bytes are stuffing (0xFF), not modeled.

	return af, 1 + length, nil
}

// decodePCR combines the 33-bit base and 9-bit extension of a 6-byte PCR
// field into a single 27MHz tick count: value = base*300 + ext.
func decodePCR(b []byte) uint64 {
	base := uint64(b[0])<<25 | uint64(b[1])<<17 | uint64(b[2])<<9 | uint64(b[3])<<1 | uint64(b[4])>>7
	ext := uint64(b[4]&0x01)<<8 | uint64(b[5])
	return base*300 + ext
}

// PCRWrapModulus is 2^33 * 300, the point at which the combined PCR value
// wraps around (33-bit base * 300 + 0..299 extension); compliance timing
// math must reduce deltas modulo this.
const PCRWrapModulus = uint64(1) << 33 * 300
