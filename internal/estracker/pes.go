/*
NAME
  pes.go - PES packet header decoding.

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

package estracker

import "github.com/pkg/errors"

// PESHeader is the decoded form of a PES packet header, the mirror image
// of the teacher's encode-only pes.Packet: where that type is filled in
// and serialized with Bytes(), PESHeader is read off the wire with DecodePES.
type PESHeader struct {
	StreamID     byte
	PacketLength uint16 // 0 means unbounded, per the standard (common for video).
	PDI          byte   // PTS_DTS_flags: 0 none, 2 PTS only, 3 PTS+DTS.
	HasPTS       bool
	HasDTS       bool
	PTS          uint64 // 90kHz ticks.
	DTS          uint64
	HeaderLength byte
}

// ErrPESTooShort is returned when fewer bytes than the fixed PES header
// requires are available.
var ErrPESTooShort = errors.New("estracker: PES packet shorter than fixed header")

// ErrPESBadStartCode is returned when the first three bytes are not the
// PES start code 0x000001.
var ErrPESBadStartCode = errors.New("estracker: PES start code mismatch")

// DecodePES parses a PES packet beginning at b[0] (the start code),
// returning the decoded header and the payload bytes that follow
// PES_header_data_length, per ISO/IEC 13818-1 section 2.4.3.6. Only the
// fields the stream tracker needs (PTS/DTS, stream_id) are decoded; ESCR,
// ES rate, DSM trick mode, and the other optional fields are skipped over
// via HeaderLength without being parsed individually.
func DecodePES(b []byte) (*PESHeader, []byte, error) {
	const fixedLen = 9
	if len(b) < fixedLen {
		return nil, nil, ErrPESTooShort
	}
	if b[0] != 0x00 || b[1] != 0x00 || b[2] != 0x01 {
		return nil, nil, ErrPESBadStartCode
	}

	h := &PESHeader{
		StreamID:     b[3],
		PacketLength: uint16(b[4])<<8 | uint16(b[5]),
	}

	if !isPESPayloadStreamID(h.StreamID) {
		// program_stream_map, padding_stream, private_stream_2 and a few
		// others carry no PTS/DTS header at all; data starts right after
		// the 6-byte fixed prefix.
		return h, b[6:], nil
	}

	if len(b) < fixedLen {
		return nil, nil, ErrPESTooShort
	}
	h.PDI = (b[7] >> 6) & 0x03
	h.HasPTS = h.PDI == 0x2 || h.PDI == 0x3
	h.HasDTS = h.PDI == 0x3
	h.HeaderLength = b[8]

	end := fixedLen + int(h.HeaderLength)
	if len(b) < end {
		return nil, nil, ErrPESTooShort
	}

	off := fixedLen
	if h.HasPTS {
		if off+5 > len(b) {
			return nil, nil, ErrPESTooShort
		}
		h.PTS = decodeTimestamp(b[off : off+5])
		off += 5
	}
	if h.HasDTS {
		if off+5 > len(b) {
			return nil, nil, ErrPESTooShort
		}
		h.DTS = decodeTimestamp(b[off : off+5])
		off += 5
	}

	return h, b[end:], nil
}

// isPESPayloadStreamID reports whether stream_id carries the optional PES
// header (PTS/DTS etc.) rather than jumping straight to data, per table
// 2-18's exclusion list.
func isPESPayloadStreamID(streamID byte) bool {
	switch streamID {
	case 0xbc, // program_stream_map
		0xbe, // padding_stream
		0xbf, // private_stream_2
		0xf0, // ECM
		0xf1, // EMM
		0xff, // program_stream_directory
		0xf2, // DSMCC_stream
		0xf8: // ITU-T Rec. H.222.1 type E
		return false
	default:
		return true
	}
}

// decodeTimestamp decodes a 5-byte 33-bit PTS or DTS field: 3 marker-
// delimited chunks of the value's bits 32-30, 29-15, and 14-0.
func decodeTimestamp(b []byte) uint64 {
	v := uint64(b[0]>>1&0x07) << 30
	v |= uint64(b[1])<<22 | uint64(b[2]>>1)<<15
	v |= uint64(b[3])<<7 | uint64(b[4]>>1)
	return v
}
