/*
NAME
  adts.go - ADTS (AAC) frame header parsing.

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

// ADTSHeader holds the parameters §4.4 names for stream_type 0x0F.
type ADTSHeader struct {
	Profile                byte // MPEG-4 object type minus one, per ISO/IEC 13818-7.
	SamplingFrequencyIndex byte
	SampleRate             int
	ChannelConfiguration   byte
}

var adtsSampleRates = [13]int{
	96000, 88200, 64000, 48000, 44100, 32000,
	24000, 22050, 16000, 12000, 11025, 8000, 7350,
}

// ParseADTS decodes an ADTS frame header: the 12-bit syncword 0xFFF
// followed by ID, layer, protection_absent, profile,
// sampling_frequency_index, and channel_configuration, per ISO/IEC
// 13818-7 annex 1.A.2.2.1. It scans data for the syncword rather than
// assuming it starts at offset 0, since the PES payload may carry
// leading bytes before the first frame.
func ParseADTS(data []byte) (*ADTSHeader, bool) {
	for i := 0; i+7 <= len(data); i++ {
		if data[i] != 0xff || data[i+1]&0xf0 != 0xf0 {
			continue
		}
		// Bits from the second sync byte onward: [4 sync][1 ID][2 layer]
		// [1 protection_absent][2 profile][4 sampling_frequency_index]
		// [1 private][3 channel_config]...
		r := NewBitReader(data[i+1:])
		r.SkipBits(4) // syncword low nibble.
		r.SkipBits(1) // ID.
		r.SkipBits(2) // layer.
		r.SkipBits(1) // protection_absent.
		profile := byte(r.ReadBits(2))
		sfi := byte(r.ReadBits(4))
		r.SkipBits(1) // private_bit.
		chanConfig := byte(r.ReadBits(3))
		if r.Err() != nil || int(sfi) >= len(adtsSampleRates) {
			continue
		}
		return &ADTSHeader{
			Profile:                profile,
			SamplingFrequencyIndex: sfi,
			SampleRate:             adtsSampleRates[sfi],
			ChannelConfiguration:   chanConfig,
		}, true
	}
	return nil, false
}
