/*
NAME
  descriptor.go - shared MPEG-2/DVB descriptor loop parsing.

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

// Package registry decodes PAT, PMT, CAT, NIT, SDT, EIT, and TDT/TOT
// sections into the current program -> PID map and per-table presence
// state, tracking version_number/current_next_indicator transitions and
// the timeout deadlines each table is held to.
package registry

// Descriptor is one descriptor from a descriptor loop: tag, length, and
// its raw payload. Callers needing a specific descriptor's semantics
// (e.g. tag 0x59 subtitling_descriptor) inspect Tag and decode Data
// themselves; the registry does not interpret descriptor bodies beyond
// what §4.4/§4.6 name.
type Descriptor struct {
	Tag  byte
	Data []byte
}

// parseDescriptors walks a standard MPEG-2 descriptor loop (repeated
// tag(1) length(1) data(length) triples) until b is exhausted. A
// truncated trailing descriptor (not enough bytes left for its declared
// length) is dropped rather than causing an error, matching the
// taxonomy in §7: malformed trailing data degrades gracefully.
func parseDescriptors(b []byte) []Descriptor {
	var out []Descriptor
	for len(b) >= 2 {
		tag := b[0]
		length := int(b[1])
		if 2+length > len(b) {
			break
		}
		out = append(out, Descriptor{Tag: tag, Data: b[2 : 2+length]})
		b = b[2+length:]
	}
	return out
}
