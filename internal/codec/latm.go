/*
NAME
  latm.go - LATM/LOAS AudioSpecificConfig parsing.

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

// LATMConfig holds the parameters §4.4 names for stream_type 0x11.
type LATMConfig struct {
	Profile    byte // audioObjectType.
	SampleRate int
	Channels   byte
}

var mpeg4SampleRates = [13]int{
	96000, 88200, 64000, 48000, 44100, 32000,
	24000, 22050, 16000, 12000, 11025, 8000, 7350,
}

// ParseLATM decodes the common case of a LOAS/LATM frame: an 11-bit
// sync word 0x2B7, a 13-bit audioMuxLengthBytes, and an AudioMuxElement
// whose useSameStreamMux is 0 and whose StreamMuxConfig's
// audioMuxVersion is 0, carrying a single program/layer
// AudioSpecificConfig (audioObjectType, samplingFrequencyIndex,
// channelConfiguration), per ISO/IEC 14496-3 section 1.A.2.1-1.A.2.3.
// Multi-program or multi-layer configurations, and the
// audioMuxVersionA extension, are not decoded; ParseLATM returns false
// for them rather than guessing.
//
// Per AudioMuxElement(muxConfigPresent)'s own syntax, useSameStreamMux
// is read first (outside StreamMuxConfig itself); only when it is clear
// does StreamMuxConfig() begin, whose own first field is
// audioMuxVersion.
func ParseLATM(data []byte) (*LATMConfig, bool) {
	for i := 0; i+3 <= len(data); i++ {
		sync := uint16(data[i])<<3 | uint16(data[i+1])>>5
		if sync != 0x2b7 {
			continue
		}
		r := NewBitReader(data[i:])
		r.SkipBits(11) // syncword.
		r.SkipBits(13) // audioMuxLengthBytes (unused: we parse a single AudioMuxElement in place).

		useSameStreamMux := r.ReadFlag()
		if useSameStreamMux {
			continue // Requires state from a prior frame we don't retain.
		}
		audioMuxVersion := r.ReadFlag()
		if audioMuxVersion {
			continue // audioMuxVersionA: not supported.
		}

		cfg, ok := parseAudioSpecificConfigHeader(r)
		if !ok || r.Err() != nil {
			continue
		}
		return cfg, true
	}
	return nil, false
}

// parseAudioSpecificConfigHeader decodes the remainder of StreamMuxConfig
// far enough to reach the first program/layer's AudioSpecificConfig
// (audioObjectType, samplingFrequencyIndex, channelConfiguration),
// assuming one program and one layer (numProgram==0, numLayer==0), the
// overwhelmingly common broadcast case. For prog==0/lay==0,
// useSameConfig is implicitly 0 (there is no prior config to reuse) and
// is not itself present in the bitstream, so AudioSpecificConfig()
// follows numLayer directly.
func parseAudioSpecificConfigHeader(r *BitReader) (*LATMConfig, bool) {
	r.SkipBits(1) // allStreamsSameTimeFraming.
	r.SkipBits(6) // numSubFrames.
	numProgram := r.ReadBits(4)
	numLayer := r.ReadBits(3) // numLayer (program 0).
	if numProgram != 0 || numLayer != 0 {
		return nil, false
	}

	audioObjectType := byte(r.ReadBits(5))
	samplingFrequencyIndex := byte(r.ReadBits(4))
	var sampleRate int
	if samplingFrequencyIndex == 0xf {
		sampleRate = int(r.ReadBits(24))
	} else if int(samplingFrequencyIndex) < len(mpeg4SampleRates) {
		sampleRate = mpeg4SampleRates[samplingFrequencyIndex]
	} else {
		return nil, false
	}
	channelConfig := byte(r.ReadBits(4))

	return &LATMConfig{
		Profile:    audioObjectType,
		SampleRate: sampleRate,
		Channels:   channelConfig,
	}, true
}
