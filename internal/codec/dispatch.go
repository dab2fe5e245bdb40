/*
NAME
  dispatch.go - stream_type -> parser dispatch table.

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

// Stream types this package has a parser for, per §4.4's table.
const (
	StreamTypeMPEG2Video = 0x02
	StreamTypeMPEG1Audio = 0x03
	StreamTypeMPEG2Audio = 0x04
	StreamTypeDVBSubtitle = 0x06
	StreamTypeADTS        = 0x0f
	StreamTypeLATM        = 0x11
	StreamTypeH264        = 0x1b
	StreamTypeHEVC        = 0x24
	StreamTypeAC3         = 0x81
)

// SubtitlingDescriptorTag is the PMT ES-info descriptor tag (0x59)
// that, present on a stream_type 0x06 entry, distinguishes a DVB
// subtitle stream; the registry carries raw descriptors, and the
// elementary stream tracker checks for this tag directly rather than
// routing it through Parse, since there is no PES payload to parse for
// a presence-only marker.
const SubtitlingDescriptorTag = 0x59

// Chroma names pic_width/height's chroma_format_idc, per §4.4.
func Chroma(chromaFormatIDC uint64) string {
	switch chromaFormatIDC {
	case 0:
		return "4:0:0"
	case 1:
		return "4:2:0"
	case 2:
		return "4:2:2"
	case 3:
		return "4:4:4"
	default:
		return ""
	}
}

// Params is the uniform result of dispatching one stream_type's parser
// over payload bytes; only the fields relevant to the matched codec are
// populated. CodecName is always set when ok is true.
type Params struct {
	CodecName  string
	Width      int
	Height     int
	FPS        float64
	HasFPS     bool
	Chroma     string
	Channels   byte
	SampleRate int
}

// Parse dispatches payload (the PES payload after PES_header_data_length,
// accumulated so far for this access unit) to the parser matched to
// streamType, per §4.4's table. It returns ok=false when the stream_type
// is unknown or the parser could not yet find its sync pattern in
// payload; callers should keep accumulating and retry, since parsers
// are idempotent on partial input.
func Parse(streamType byte, payload []byte) (Params, bool) {
	switch streamType {
	case StreamTypeMPEG2Video:
		h, ok := ParseMPEG2SequenceHeader(payload)
		if !ok {
			return Params{}, false
		}
		return Params{
			CodecName: "mpeg2video",
			Width:     h.Width, Height: h.Height,
			FPS: h.FPS, HasFPS: h.FPS != 0,
		}, true

	case StreamTypeMPEG1Audio, StreamTypeMPEG2Audio:
		h, ok := ParseMPEG1AudioHeader(payload)
		if !ok {
			return Params{}, false
		}
		return Params{
			CodecName:  "mpeg1audio",
			Channels:   h.Channels,
			SampleRate: h.SampleRate,
		}, true

	case StreamTypeADTS:
		h, ok := ParseADTS(payload)
		if !ok {
			return Params{}, false
		}
		return Params{
			CodecName:  "aac",
			Channels:   h.ChannelConfiguration,
			SampleRate: h.SampleRate,
		}, true

	case StreamTypeLATM:
		h, ok := ParseLATM(payload)
		if !ok {
			return Params{}, false
		}
		return Params{
			CodecName:  "aac-latm",
			Channels:   h.Channels,
			SampleRate: h.SampleRate,
		}, true

	case StreamTypeH264:
		nal := findAnnexBNAL(payload, 7) // nal_unit_type == 7: SPS.
		if nal == nil {
			return Params{}, false
		}
		h, ok := ParseH264SPS(ScrubEmulationPrevention(nal))
		if !ok {
			return Params{}, false
		}
		return Params{
			CodecName: "h264",
			Width:     h.Width, Height: h.Height,
			FPS: h.FPS, HasFPS: h.HasFPS,
			Chroma: Chroma(h.ChromaFormatIDC),
		}, true

	case StreamTypeHEVC:
		nal := findAnnexBNALHEVC(payload, 33) // nal_unit_type == 33: SPS.
		if nal == nil {
			return Params{}, false
		}
		h, ok := ParseHEVCSPS(ScrubEmulationPrevention(nal))
		if !ok {
			return Params{}, false
		}
		return Params{
			CodecName: "hevc",
			Width:     h.Width, Height: h.Height,
			Chroma: Chroma(h.ChromaFormatIDC),
		}, true

	case StreamTypeAC3:
		h, ok := ParseAC3(payload)
		if !ok {
			return Params{}, false
		}
		return Params{
			CodecName:  "ac3",
			Channels:   byte(h.Channels),
			SampleRate: h.SampleRate,
		}, true

	default:
		return Params{}, false
	}
}

var annexBStartCode = []byte{0x00, 0x00, 0x01}

// findAnnexBNAL scans data for an Annex-B start code followed by a NAL
// unit whose nal_unit_type (the low 5 bits of the byte after the start
// code) matches want, returning that NAL's bytes with the 1-byte NAL
// header stripped, up to the next start code or the end of data.
func findAnnexBNAL(data []byte, want byte) []byte {
	for i := 0; i+4 <= len(data); i++ {
		if !matchStartCode(data, i) {
			continue
		}
		hdr := data[i+3]
		if hdr&0x1f != want {
			continue
		}
		end := nextStartCode(data, i+4)
		return data[i+4 : end]
	}
	return nil
}

// findAnnexBNALHEVC is findAnnexBNAL adapted for HEVC's 2-byte NAL
// header, where nal_unit_type occupies bits 1-6 of the first header
// byte.
func findAnnexBNALHEVC(data []byte, want byte) []byte {
	for i := 0; i+5 <= len(data); i++ {
		if !matchStartCode(data, i) {
			continue
		}
		hdr := data[i+3]
		nalType := (hdr >> 1) & 0x3f
		if nalType != want {
			continue
		}
		end := nextStartCode(data, i+3+2) // Skip the 2-byte NAL header before parsing RBSP.
		return data[i+3+2 : end]
	}
	return nil
}

func matchStartCode(data []byte, i int) bool {
	return data[i] == 0 && data[i+1] == 0 && data[i+2] == 1
}

func nextStartCode(data []byte, from int) int {
	for i := from; i+3 <= len(data); i++ {
		if matchStartCode(data, i) {
			return i
		}
	}
	return len(data)
}
