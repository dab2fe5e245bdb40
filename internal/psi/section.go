/*
NAME
  section.go - decodes a single, already-reassembled PSI section.

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

// Package psi reassembles PSI (Program Specific Information) sections from
// a stream of MPEG-TS packets on a single PID, and validates their
// CRC-32/MPEG-2 trailer.
package psi

import (
	"github.com/pkg/errors"
)

// Standard section length caps: PAT/PMT/CAT use the 1021-byte cap; every
// other table_id (see Cap) may use the full 4093.
const (
	MaxStandardSectionLen = 1021
	MaxPrivateSectionLen  = 4093
)

// Section is a fully reassembled and (for tables that carry one)
// CRC-verified PSI section.
type Section struct {
	PID                    uint16
	TableID                byte
	SectionSyntaxIndicator bool
	SectionLength          uint16 // The 12-bit section_length field as transmitted.
	TableIDExtension       uint16 // transport_stream_id for PAT, program_number for PMT, etc.
	VersionNumber          byte   // 5 bits.
	CurrentNextIndicator   bool
	SectionNumber          byte
	LastSectionNumber      byte
	Body                   []byte // Table-specific data, after the syntax-section header, before CRC.
	CRC32                  uint32
	Raw                    []byte // table_id through the trailing CRC, inclusive.
}

// ErrTooShort is returned when fewer than 3 bytes (enough to read
// table_id and section_length) are available.
var ErrTooShort = errors.New("psi: section shorter than header")

// ErrCRC is returned when the trailing CRC32 does not match the computed
// checksum over the section body.
var ErrCRC = errors.New("psi: CRC-32/MPEG-2 mismatch")

// ErrLengthCap is returned when section_length exceeds the cap for its
// table_id, per spec's standardized-length-cap rule.
var ErrLengthCap = errors.New("psi: section_length exceeds standardized cap")

// Cap returns the maximum standardized section_length for a table_id. Only
// PAT (0x00), PMT (0x02), and CAT (0x01) are capped at the narrower
// standard limit; everything else (including private and DVB SI tables)
// gets the wider private-section cap.
func Cap(tableID byte) uint16 {
	switch tableID {
	case 0x00, 0x01, 0x02:
		return MaxStandardSectionLen
	default:
		return MaxPrivateSectionLen
	}
}

// SectionLength reads the 12-bit section_length field from the first three
// bytes of a section (table_id, then two length bytes). It requires no
// other fields to be valid, so the assembler can call it as soon as three
// bytes are available, before the rest of the section has arrived.
func SectionLength(b []byte) (tableID byte, length uint16, err error) {
	if len(b) < 3 {
		return 0, 0, ErrTooShort
	}
	tableID = b[0]
	length = uint16(b[1]&0x0f)<<8 | uint16(b[2])
	return tableID, length, nil
}

// Parse decodes a complete section (exactly section_length+3 bytes,
// starting at table_id) for PID pid. It verifies the CRC for tables that
// carry the standard syntax section; tables with section_syntax_indicator
// clear (e.g. TDT/TOT) carry no CRC and Parse skips that check.
func Parse(pid uint16, b []byte) (*Section, error) {
	tableID, length, err := SectionLength(b)
	if err != nil {
		return nil, err
	}
	want := int(length) + 3
	if len(b) != want {
		return nil, errors.Errorf("psi: expected %d bytes for section, got %d", want, len(b))
	}
	if length > Cap(tableID) {
		return nil, ErrLengthCap
	}

	s := &Section{
		PID:                    pid,
		TableID:                tableID,
		SectionSyntaxIndicator: b[1]&0x80 != 0,
		SectionLength:          length,
		Raw:                    b,
	}

	if !s.SectionSyntaxIndicator {
		s.Body = b[3:]
		return s, nil
	}

	const syntaxHeaderLen = 5 // table_id_extension(2) + version/current_next(1) + section_number(1) + last_section_number(1).
	if len(b) < 3+syntaxHeaderLen+4 {
		return nil, ErrTooShort
	}

	s.TableIDExtension = uint16(b[3])<<8 | uint16(b[4])
	s.VersionNumber = (b[5] >> 1) & 0x1f
	s.CurrentNextIndicator = b[5]&0x01 != 0
	s.SectionNumber = b[6]
	s.LastSectionNumber = b[7]
	s.Body = b[8 : len(b)-4]
	s.CRC32 = uint32(b[len(b)-4])<<24 | uint32(b[len(b)-3])<<16 | uint32(b[len(b)-2])<<8 | uint32(b[len(b)-1])

	if !checkCRC(b) {
		return nil, ErrCRC
	}
	return s, nil
}
