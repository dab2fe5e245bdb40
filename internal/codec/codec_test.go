/*
NAME
  codec_test.go

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

import "testing"

// bitWriter is a test-only helper for constructing synthetic bitstreams
// bit-by-bit, mirroring the reverse of BitReader.
type bitWriter struct {
	bytes   []byte
	bitsLen int
}

func (w *bitWriter) writeBits(v uint64, n int) {
	for i := n - 1; i >= 0; i-- {
		bit := byte((v >> uint(i)) & 1)
		byteIdx := w.bitsLen / 8
		for byteIdx >= len(w.bytes) {
			w.bytes = append(w.bytes, 0)
		}
		w.bytes[byteIdx] |= bit << uint(7-w.bitsLen%8)
		w.bitsLen++
	}
}

func (w *bitWriter) writeUE(v uint32) {
	temp := v + 1
	k := 0
	for t := temp; t > 1; t >>= 1 {
		k++
	}
	w.writeBits(0, k) // leading zeros.
	w.writeBits(1, 1) // terminator.
	w.writeBits(uint64(temp), k)
}

func (w *bitWriter) bytesOut() []byte { return w.bytes }

func TestH264SPSBaseline(t *testing.T) {
	w := &bitWriter{}
	w.writeBits(66, 8) // profile_idc (baseline, no chroma_format_idc field).
	w.writeBits(0, 8)  // constraint flags + reserved.
	w.writeBits(30, 8) // level_idc.
	w.writeUE(0)       // seq_parameter_set_id.
	w.writeUE(0)       // log2_max_frame_num_minus4.
	w.writeUE(0)       // pic_order_cnt_type.
	w.writeUE(0)       // log2_max_pic_order_cnt_lsb_minus4.
	w.writeUE(1)       // max_num_ref_frames.
	w.writeBits(0, 1)  // gaps_in_frame_num_value_allowed_flag.
	w.writeUE(119)     // pic_width_in_mbs_minus1 -> width 1920.
	w.writeUE(67)      // pic_height_in_map_units_minus1 -> height 1088 (frame_mbs_only).
	w.writeBits(1, 1)  // frame_mbs_only_flag.
	w.writeBits(1, 1)  // direct_8x8_inference_flag.
	w.writeBits(0, 1)  // frame_cropping_flag.
	w.writeBits(0, 1)  // vui_parameters_present_flag.
	w.writeBits(0, 8)  // padding so the reader never runs past the buffer.

	sps, ok := ParseH264SPS(w.bytesOut())
	if !ok {
		t.Fatalf("ParseH264SPS failed")
	}
	if sps.Width != 1920 || sps.Height != 1088 {
		t.Fatalf("got %dx%d, want 1920x1088", sps.Width, sps.Height)
	}
	if sps.ChromaFormatIDC != 1 {
		t.Fatalf("ChromaFormatIDC = %d, want 1 (default 4:2:0 for profiles without the field)", sps.ChromaFormatIDC)
	}
}

func TestParseADTS(t *testing.T) {
	w := &bitWriter{}
	w.writeBits(0xfff, 12) // syncword.
	w.writeBits(0, 1)      // ID.
	w.writeBits(0, 2)      // layer.
	w.writeBits(1, 1)      // protection_absent.
	w.writeBits(1, 2)      // profile (AAC LC).
	w.writeBits(3, 4)      // sampling_frequency_index -> 48000.
	w.writeBits(0, 1)      // private_bit.
	w.writeBits(2, 3)      // channel_configuration.
	w.writeBits(0, 29)     // remaining header bits (frame_length etc, unused).

	h, ok := ParseADTS(w.bytesOut())
	if !ok {
		t.Fatalf("ParseADTS failed")
	}
	if h.SampleRate != 48000 || h.ChannelConfiguration != 2 {
		t.Fatalf("got rate=%d chans=%d, want 48000/2", h.SampleRate, h.ChannelConfiguration)
	}
}

func TestParseAC3(t *testing.T) {
	w := &bitWriter{}
	w.writeBits(0x0b77, 16) // syncword.
	w.writeBits(0, 16)      // crc1.
	w.writeBits(0, 2)       // fscod -> 48000.
	w.writeBits(0, 6)       // frmsizecod.
	w.writeBits(8, 5)       // bsid.
	w.writeBits(0, 3)       // bsmod.
	w.writeBits(7, 3)       // acmod = 7 (3/2).
	// acmod==7: cmixlev is present (needs acmod&1 && acmod!=1 -> 7&1=1 and !=1).
	w.writeBits(0, 2) // cmixlev.
	w.writeBits(0, 2) // surmixlev (acmod&0x4 != 0 for acmod 7).
	w.writeBits(1, 1) // lfeon.

	h, ok := ParseAC3(w.bytesOut())
	if !ok {
		t.Fatalf("ParseAC3 failed")
	}
	if h.SampleRate != 48000 || h.Channels != 6 {
		t.Fatalf("got rate=%d chans=%d, want 48000/6", h.SampleRate, h.Channels)
	}
}

func TestParseMPEG1AudioHeader(t *testing.T) {
	w := &bitWriter{}
	w.writeBits(0x7ff, 11) // frame sync.
	w.writeBits(1, 1)      // ID = MPEG-1.
	w.writeBits(0b01, 2)   // layer III.
	w.writeBits(1, 1)      // protection_bit.
	w.writeBits(9, 4)      // bitrate_index (unused by parser).
	w.writeBits(0, 2)      // sampling_frequency -> 44100.
	w.writeBits(0, 1)      // padding_bit.
	w.writeBits(0, 1)      // private_bit.
	w.writeBits(0b11, 2)   // mode = mono.

	h, ok := ParseMPEG1AudioHeader(w.bytesOut())
	if !ok {
		t.Fatalf("ParseMPEG1AudioHeader failed")
	}
	if h.SampleRate != 44100 || h.Channels != 1 || h.Layer != 3 {
		t.Fatalf("got rate=%d chans=%d layer=%d, want 44100/1/3", h.SampleRate, h.Channels, h.Layer)
	}
}

func TestParseMPEG2SequenceHeader(t *testing.T) {
	var data []byte
	data = append(data, 0x00, 0x00, 0x01, 0xb3)
	w := &bitWriter{}
	w.writeBits(720, 12)  // horizontal_size_value.
	w.writeBits(576, 12)  // vertical_size_value.
	w.writeBits(2, 4)     // aspect_ratio_information.
	w.writeBits(3, 4)     // frame_rate_code -> 25fps.
	w.writeBits(0, 8)     // padding.
	data = append(data, w.bytesOut()...)

	h, ok := ParseMPEG2SequenceHeader(data)
	if !ok {
		t.Fatalf("ParseMPEG2SequenceHeader failed")
	}
	if h.Width != 720 || h.Height != 576 || h.FPS != 25 {
		t.Fatalf("got %dx%d @%v fps, want 720x576 @25", h.Width, h.Height, h.FPS)
	}
}

func TestParseLATM(t *testing.T) {
	w := &bitWriter{}
	w.writeBits(0x2b7, 11) // syncword.
	w.writeBits(0, 13)     // audioMuxLengthBytes (unused by the parser).
	w.writeBits(0, 1)      // useSameStreamMux.
	w.writeBits(0, 1)      // audioMuxVersion.
	w.writeBits(0, 1)      // allStreamsSameTimeFraming.
	w.writeBits(0, 6)      // numSubFrames.
	w.writeBits(0, 4)      // numProgram.
	w.writeBits(0, 3)      // numLayer.
	w.writeBits(2, 5)      // audioObjectType (AAC LC).
	w.writeBits(3, 4)      // samplingFrequencyIndex -> 48000.
	w.writeBits(2, 4)      // channelConfiguration.
	w.writeBits(0, 8)      // padding so the reader never runs past the buffer.

	cfg, ok := ParseLATM(w.bytesOut())
	if !ok {
		t.Fatalf("ParseLATM failed")
	}
	if cfg.SampleRate != 48000 || cfg.Channels != 2 {
		t.Fatalf("got rate=%d chans=%d, want 48000/2", cfg.SampleRate, cfg.Channels)
	}

	p, ok := Parse(StreamTypeLATM, w.bytesOut())
	if !ok {
		t.Fatalf("Parse(StreamTypeLATM) failed")
	}
	if p.CodecName != "aac-latm" || p.SampleRate != 48000 || p.Channels != 2 {
		t.Fatalf("got %+v, want aac-latm/48000/2", p)
	}
}

func TestParseLATMRejectsUseSameStreamMux(t *testing.T) {
	w := &bitWriter{}
	w.writeBits(0x2b7, 11) // syncword.
	w.writeBits(0, 13)     // audioMuxLengthBytes.
	w.writeBits(1, 1)      // useSameStreamMux set: no prior config retained, must be rejected.
	w.writeBits(0, 40)     // padding.

	if _, ok := ParseLATM(w.bytesOut()); ok {
		t.Fatalf("expected useSameStreamMux=1 to be rejected")
	}
}

func TestDispatchUnknownStreamType(t *testing.T) {
	if _, ok := Parse(0xff, []byte{1, 2, 3}); ok {
		t.Fatalf("expected unknown stream_type to return ok=false")
	}
}

// TestDispatchH264FromAnnexB exercises Parse(StreamTypeH264, ...) end to
// end, through findAnnexBNAL's start-code search and NAL-header strip,
// rather than calling ParseH264SPS directly: findAnnexBNAL must hand
// ParseH264SPS the RBSP with the 1-byte NAL header already removed, or
// every Exp-Golomb field after profile_idc shifts by 8 bits.
func TestDispatchH264FromAnnexB(t *testing.T) {
	w := &bitWriter{}
	w.writeBits(66, 8) // profile_idc (baseline, no chroma_format_idc field).
	w.writeBits(0, 8)  // constraint flags + reserved.
	w.writeBits(30, 8) // level_idc.
	w.writeUE(0)       // seq_parameter_set_id.
	w.writeUE(0)       // log2_max_frame_num_minus4.
	w.writeUE(0)       // pic_order_cnt_type.
	w.writeUE(0)       // log2_max_pic_order_cnt_lsb_minus4.
	w.writeUE(1)       // max_num_ref_frames.
	w.writeBits(0, 1)  // gaps_in_frame_num_value_allowed_flag.
	w.writeUE(119)     // pic_width_in_mbs_minus1 -> width 1920.
	w.writeUE(67)      // pic_height_in_map_units_minus1 -> height 1088 (frame_mbs_only).
	w.writeBits(1, 1)  // frame_mbs_only_flag.
	w.writeBits(1, 1)  // direct_8x8_inference_flag.
	w.writeBits(0, 1)  // frame_cropping_flag.
	w.writeBits(0, 1)  // vui_parameters_present_flag.
	w.writeBits(0, 8)  // padding so the reader never runs past the buffer.

	var annexB []byte
	annexB = append(annexB, 0x00, 0x00, 0x01) // start code.
	annexB = append(annexB, 0x67)             // nal_ref_idc=3, nal_unit_type=7 (SPS).
	annexB = append(annexB, w.bytesOut()...)
	annexB = append(annexB, 0x00, 0x00, 0x01, 0x68) // next start code + NAL (PPS), terminates the SPS scan.

	p, ok := Parse(StreamTypeH264, annexB)
	if !ok {
		t.Fatalf("Parse(StreamTypeH264) failed")
	}
	if p.Width != 1920 || p.Height != 1088 {
		t.Fatalf("got %dx%d, want 1920x1088", p.Width, p.Height)
	}
	if p.CodecName != "h264" {
		t.Fatalf("got codec %q, want h264", p.CodecName)
	}
}

func TestScrubEmulationPrevention(t *testing.T) {
	in := []byte{0x00, 0x00, 0x03, 0x01, 0x00, 0x00, 0x03, 0x02}
	want := []byte{0x00, 0x00, 0x01, 0x00, 0x00, 0x02}
	got := ScrubEmulationPrevention(in)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
