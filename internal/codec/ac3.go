/*
NAME
  ac3.go - AC-3 sync frame parsing.

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

package codec

// AC3Header holds the parameters §4.4 names for stream_type 0x81.
type AC3Header struct {
	SampleRate int
	Channels   int
}

var ac3SampleRates = [4]int{48000, 44100, 32000, 0} // fscod 3 is reserved.

// ac3ChannelsByAcmod gives the channel count for acmod 0-7 before any
// LFE channel is added, per ATSC A/52 table 5.8.
var ac3ChannelsByAcmod = [8]int{2, 1, 2, 3, 3, 4, 4, 5}

// ParseAC3 decodes an AC-3 syncframe header: the 16-bit syncword
// 0x0B77, fscod, and the acmod/lfeon fields needed to derive channel
// count, per ATSC A/52 section 5.3.
func ParseAC3(data []byte) (*AC3Header, bool) {
	for i := 0; i+7 <= len(data); i++ {
		if data[i] != 0x0b || data[i+1] != 0x77 {
			continue
		}
		r := NewBitReader(data[i+2:])
		r.SkipBits(16) // crc1.
		fscod := byte(r.ReadBits(2))
		r.SkipBits(6) // frmsizecod.
		r.SkipBits(5) // bsid.
		r.SkipBits(3) // bsmod.
		acmod := byte(r.ReadBits(3))

		if acmod&0x1 != 0 && acmod != 0x1 {
			r.SkipBits(2) // cmixlev.
		}
		if acmod&0x4 != 0 {
			r.SkipBits(2) // surmixlev.
		}
		if acmod == 0x2 {
			r.SkipBits(2) // dsurmod.
		}
		lfeOn := r.ReadFlag()

		if r.Err() != nil || fscod == 3 {
			continue
		}
		channels := ac3ChannelsByAcmod[acmod]
		if lfeOn {
			channels++
		}
		return &AC3Header{SampleRate: ac3SampleRates[fscod], Channels: channels}, true
	}
	return nil, false
}
