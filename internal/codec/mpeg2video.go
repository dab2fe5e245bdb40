/*
NAME
  mpeg2video.go - MPEG-2 video sequence header parsing.

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

// MPEG2SequenceHeader holds the parameters §4.4 names for stream_type
// 0x02: resolution, aspect ratio code, and derived frame rate.
type MPEG2SequenceHeader struct {
	Width         int
	Height        int
	AspectRatio   byte
	FrameRateCode byte
	FPS           float64
}

var mpeg2FrameRate = map[byte]float64{
	1: 24000.0 / 1001.0,
	2: 24,
	3: 25,
	4: 30000.0 / 1001.0,
	5: 30,
	6: 50,
	7: 60000.0 / 1001.0,
	8: 60,
}

var seqHeaderStartCode = []byte{0x00, 0x00, 0x01, 0xb3}

// ParseMPEG2SequenceHeader searches data for the sequence_header_code
// (0x000001B3) and decodes horizontal_size_value, vertical_size_value,
// aspect_ratio_information, and frame_rate_code per ISO/IEC 13818-2
// section 6.2.2.1. It returns false if the start code is not present.
func ParseMPEG2SequenceHeader(data []byte) (*MPEG2SequenceHeader, bool) {
	idx := indexOf(data, seqHeaderStartCode)
	if idx < 0 || idx+4+4 > len(data) {
		return nil, false
	}
	r := NewBitReader(data[idx+4:])

	h := &MPEG2SequenceHeader{}
	h.Width = int(r.ReadBits(12))
	h.Height = int(r.ReadBits(12))
	h.AspectRatio = byte(r.ReadBits(4))
	h.FrameRateCode = byte(r.ReadBits(4))
	if r.Err() != nil {
		return nil, false
	}
	if fps, ok := mpeg2FrameRate[h.FrameRateCode]; ok {
		h.FPS = fps
	}
	return h, true
}

func indexOf(haystack, needle []byte) int {
	if len(needle) == 0 || len(haystack) < len(needle) {
		return -1
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
