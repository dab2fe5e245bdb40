/*
NAME
  crc.go

DESCRIPTION
  See Readme.md

AUTHOR
  Dan Kortschak <dan@ausocean.org>
  Saxon Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package psi

import (
	"encoding/binary"
	"hash/crc32"
	"math/bits"
)

// crcTable is the CRC-32/MPEG-2 table: same polynomial as crc32.IEEE, but
// computed MSB-first (bit-reversed) to match the standard's definition.
var crcTable = crc32MakeTable(bits.Reverse32(crc32.IEEE))

// checkCRC reports whether the trailing 4 bytes of b are the CRC-32/MPEG-2
// checksum of b[:len(b)-4]. b must start at table_id (the pointer field and
// any pointer filler bytes must already be stripped).
func checkCRC(b []byte) bool {
	if len(b) < 4 {
		return false
	}
	want := binary.BigEndian.Uint32(b[len(b)-4:])
	got := crc32Update(0xffffffff, crcTable, b[:len(b)-4])
	return got == want
}

func crc32MakeTable(poly uint32) *crc32.Table {
	var t crc32.Table
	for i := range t {
		crc := uint32(i) << 24
		for j := 0; j < 8; j++ {
			if crc&0x80000000 != 0 {
				crc = (crc << 1) ^ poly
			} else {
				crc <<= 1
			}
		}
		t[i] = crc
	}
	return &t
}

func crc32Update(crc uint32, tab *crc32.Table, p []byte) uint32 {
	for _, v := range p {
		crc = tab[byte(crc>>24)^v] ^ (crc << 8)
	}
	return crc
}
