/*
NAME
  mpeg1audio.go - MPEG-1/2 Audio (Layer I/II/III) frame header parsing.

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

// MPEG1AudioHeader holds the parameters §4.4 names for stream_type
// 0x03/0x04.
type MPEG1AudioHeader struct {
	Version    byte // 1 = MPEG-1, 0 = MPEG-2 (LSF), per the ID bit.
	Layer      byte // 1, 2, or 3.
	SampleRate int
	Channels   byte // 1 (mono) or 2.
}

var mpeg1SampleRatesByID = map[byte][3]int{
	1: {44100, 48000, 32000}, // MPEG-1.
	0: {22050, 24000, 16000}, // MPEG-2 (LSF).
}

// ParseMPEG1AudioHeader decodes an ISO/IEC 11172-3 frame header: the
// 11-bit frame sync (all ones), ID, layer, sampling_frequency, and
// mode, per section 2.4.1.3. Only the fields §4.4 needs are returned.
func ParseMPEG1AudioHeader(data []byte) (*MPEG1AudioHeader, bool) {
	for i := 0; i+4 <= len(data); i++ {
		if data[i] != 0xff || data[i+1]&0xe0 != 0xe0 {
			continue
		}
		r := NewBitReader(data[i:])
		r.SkipBits(11) // frame sync.
		id := byte(r.ReadBits(1))
		layerBits := byte(r.ReadBits(2))
		r.SkipBits(1) // protection_bit.
		r.SkipBits(4) // bitrate_index.
		sfIdx := byte(r.ReadBits(2))
		r.SkipBits(1) // padding_bit.
		r.SkipBits(1) // private_bit.
		mode := byte(r.ReadBits(2))

		if r.Err() != nil || layerBits == 0 || sfIdx == 3 {
			continue
		}
		rates, ok := mpeg1SampleRatesByID[id]
		if !ok {
			continue
		}
		layer := map[byte]byte{0b11: 1, 0b10: 2, 0b01: 3}[layerBits]
		channels := byte(2)
		if mode == 0b11 {
			channels = 1
		}
		return &MPEG1AudioHeader{
			Version:    id,
			Layer:      layer,
			SampleRate: rates[sfIdx],
			Channels:   channels,
		}, true
	}
	return nil, false
}
