/*
NAME
  h264sps.go - H.264 Sequence Parameter Set parsing.

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

// H264SPS holds the subset of sequence parameter set fields §4.4 needs
// to report video parameters: resolution, chroma subsampling, and
// frame rate (when VUI timing info is present).
type H264SPS struct {
	Profile         uint8
	LevelIDC        uint8
	ChromaFormatIDC uint64
	Width           int
	Height          int
	FPS             float64
	HasFPS          bool
}

// profileHasChromaInfo lists the profile_idc values whose SPS carries
// chroma_format_idc and bit-depth fields, per ITU-T H.264 section
// 7.3.2.1.1.
var profileHasChromaInfo = map[uint8]bool{
	100: true, 110: true, 122: true, 244: true, 44: true,
	83: true, 86: true, 118: true, 128: true, 138: true,
	139: true, 134: true, 135: true,
}

// ParseH264SPS decodes an Annex-B SPS NAL unit's RBSP (the NAL header
// byte and start code already stripped, emulation-prevention bytes
// already scrubbed by ScrubEmulationPrevention) into the parameters
// §4.4 lists for stream_type 0x1B.
//
// Scaling lists, when present, are skipped rather than expanded: §4.4
// only needs resolution/fps/chroma, none of which scaling lists affect,
// so this mirrors the teacher's own NewSPS in spirit (which parses the
// full structure) but only as far as the fields this spec consumes.
func ParseH264SPS(rbsp []byte) (*H264SPS, bool) {
	r := NewBitReader(rbsp)
	sps := &H264SPS{ChromaFormatIDC: 1} // 4:2:0 is the default when chroma_format_idc is absent.

	sps.Profile = uint8(r.ReadBits(8))
	r.SkipBits(8) // constraint_setX_flags(6) + reserved_zero_2bits(2).
	sps.LevelIDC = uint8(r.ReadBits(8))
	r.ReadUE() // seq_parameter_set_id.

	if profileHasChromaInfo[sps.Profile] {
		sps.ChromaFormatIDC = uint64(r.ReadUE())
		if sps.ChromaFormatIDC == 3 {
			r.SkipBits(1) // separate_colour_plane_flag.
		}
		r.ReadUE() // bit_depth_luma_minus8.
		r.ReadUE() // bit_depth_chroma_minus8.
		r.SkipBits(1) // qpprime_y_zero_transform_bypass_flag.
		if r.ReadFlag() {
			if !skipScalingLists(r, sps.ChromaFormatIDC) {
				return nil, false
			}
		}
	}

	r.ReadUE() // log2_max_frame_num_minus4.
	picOrderCntType := r.ReadUE()
	switch picOrderCntType {
	case 0:
		r.ReadUE() // log2_max_pic_order_cnt_lsb_minus4.
	case 1:
		r.SkipBits(1) // delta_pic_order_always_zero_flag.
		r.ReadSE()    // offset_for_non_ref_pic.
		r.ReadSE()    // offset_for_top_to_bottom_field.
		n := r.ReadUE()
		for i := uint32(0); i < n; i++ {
			r.ReadSE() // offset_for_ref_frame[i].
		}
	}

	r.ReadUE()    // max_num_ref_frames.
	r.SkipBits(1) // gaps_in_frame_num_value_allowed_flag.
	widthInMBsMinus1 := r.ReadUE()
	heightInMapUnitsMinus1 := r.ReadUE()
	frameMBSOnly := r.ReadFlag()
	if !frameMBSOnly {
		r.SkipBits(1) // mb_adaptive_frame_field_flag.
	}
	r.SkipBits(1) // direct_8x8_inference_flag.

	width := int(widthInMBsMinus1+1) * 16
	heightMult := 2
	if frameMBSOnly {
		heightMult = 1
	}
	height := int(heightInMapUnitsMinus1+1) * 16 * heightMult

	if r.ReadFlag() { // frame_cropping_flag.
		cropLeft := r.ReadUE()
		cropRight := r.ReadUE()
		cropTop := r.ReadUE()
		cropBottom := r.ReadUE()
		cropUnitX, cropUnitY := chromaCropUnits(sps.ChromaFormatIDC, frameMBSOnly)
		width -= int(cropLeft+cropRight) * cropUnitX
		height -= int(cropTop+cropBottom) * cropUnitY
	}
	sps.Width, sps.Height = width, height

	if r.ReadFlag() { // vui_parameters_present_flag.
		parseVUITiming(r, sps)
	}

	if r.Err() != nil {
		return nil, false
	}
	return sps, true
}

// chromaCropUnits returns the crop unit scale factors for
// frame_crop_*_offset, per ITU-T H.264 table 6-1 / equations 7-19 to
// 7-22: 4:2:0 halves both axes, 4:2:2 halves only the horizontal axis,
// monochrome and 4:4:4 use unit scale, and a non-frame (field) coded
// sequence further doubles the vertical unit.
func chromaCropUnits(chromaFormatIDC uint64, frameMBSOnly bool) (x, y int) {
	subWidthC, subHeightC := 1, 1
	switch chromaFormatIDC {
	case 1: // 4:2:0
		subWidthC, subHeightC = 2, 2
	case 2: // 4:2:2
		subWidthC, subHeightC = 2, 1
	}
	y = subHeightC
	if !frameMBSOnly {
		y *= 2
	}
	return subWidthC, y
}

// parseVUITiming reads only as far as timing_info in vui_parameters(),
// per ITU-T H.264 annex E.1.1, to recover fixed frame rate when
// present: fps = time_scale / (2 * num_units_in_tick).
func parseVUITiming(r *BitReader, sps *H264SPS) {
	if r.ReadFlag() { // aspect_ratio_info_present_flag.
		aspectRatioIDC := r.ReadBits(8)
		const extendedSAR = 255
		if aspectRatioIDC == extendedSAR {
			r.SkipBits(32) // sar_width(16) + sar_height(16).
		}
	}
	if r.ReadFlag() { // overscan_info_present_flag.
		r.SkipBits(1) // overscan_appropriate_flag.
	}
	if r.ReadFlag() { // video_signal_type_present_flag.
		r.SkipBits(4) // video_format(3) + video_full_range_flag(1).
		if r.ReadFlag() { // colour_description_present_flag.
			r.SkipBits(24) // colour_primaries(8) + transfer_characteristics(8) + matrix_coefficients(8).
		}
	}
	if r.ReadFlag() { // chroma_loc_info_present_flag.
		r.ReadUE() // chroma_sample_loc_type_top_field.
		r.ReadUE() // chroma_sample_loc_type_bottom_field.
	}
	if !r.ReadFlag() { // timing_info_present_flag.
		return
	}
	numUnitsInTick := r.ReadBits(32)
	timeScale := r.ReadBits(32)
	fixedFrameRate := r.ReadFlag()
	if r.Err() != nil || numUnitsInTick == 0 || !fixedFrameRate {
		return
	}
	sps.FPS = float64(timeScale) / (2 * float64(numUnitsInTick))
	sps.HasFPS = true
}

// skipScalingLists advances past seq_scaling_list_present_flag[i] and
// any present scaling_list() entries (4x4 for i<6, 8x8 otherwise),
// without expanding them: §4.4's parameters never depend on scaling
// matrix contents.
func skipScalingLists(r *BitReader, chromaFormatIDC uint64) bool {
	count := 8
	if chromaFormatIDC == 3 {
		count = 12
	}
	for i := 0; i < count; i++ {
		if !r.ReadFlag() {
			continue
		}
		size := 16
		if i >= 6 {
			size = 64
		}
		lastScale, nextScale := int32(8), int32(8)
		for j := 0; j < size; j++ {
			if nextScale != 0 {
				delta := r.ReadSE()
				nextScale = (lastScale + delta + 256) % 256
			}
			if nextScale != 0 {
				lastScale = nextScale
			}
		}
		if r.Err() != nil {
			return false
		}
	}
	return true
}
