/*
NAME
  hevcsps.go - HEVC (H.265) Sequence Parameter Set parsing.

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

// HEVCSPS holds the subset of HEVC sequence parameter set fields §4.4
// needs: conformance-cropped resolution and chroma subsampling.
type HEVCSPS struct {
	ChromaFormatIDC uint64
	Width           int
	Height          int
}

// ParseHEVCSPS decodes an HEVC SPS NAL unit's RBSP (the 2-byte NAL
// header and start code already stripped, emulation-prevention bytes
// already scrubbed) for stream_type 0x24, per ITU-T H.265 section
// 7.3.2.2.1.
func ParseHEVCSPS(rbsp []byte) (*HEVCSPS, bool) {
	r := NewBitReader(rbsp)

	r.SkipBits(4) // sps_video_parameter_set_id.
	maxSubLayersMinus1 := int(r.ReadBits(3))
	r.SkipBits(1) // sps_temporal_id_nesting_flag.
	skipProfileTierLevel(r, maxSubLayersMinus1)

	r.ReadUE() // sps_seq_parameter_set_id.
	chromaFormatIDC := uint64(r.ReadUE())
	if chromaFormatIDC == 3 {
		r.SkipBits(1) // separate_colour_plane_flag.
	}
	width := int(r.ReadUE())
	height := int(r.ReadUE())

	if r.ReadFlag() { // conformance_window_flag.
		left := r.ReadUE()
		right := r.ReadUE()
		top := r.ReadUE()
		bottom := r.ReadUE()
		subWidthC, subHeightC := 1, 1
		switch chromaFormatIDC {
		case 1:
			subWidthC, subHeightC = 2, 2
		case 2:
			subWidthC, subHeightC = 2, 1
		}
		width -= int(left+right) * subWidthC
		height -= int(top+bottom) * subHeightC
	}

	if r.Err() != nil {
		return nil, false
	}
	return &HEVCSPS{ChromaFormatIDC: chromaFormatIDC, Width: width, Height: height}, true
}

// skipProfileTierLevel advances past the fixed 96-bit "general" profile/
// tier/level block plus any per-sub-layer profile/level data, per ITU-T
// H.265 section 7.3.3. None of its fields are needed for resolution or
// chroma, so it is only ever skipped, never decoded into named fields.
func skipProfileTierLevel(r *BitReader, maxSubLayersMinus1 int) {
	r.SkipBits(2 + 1 + 5)  // general_profile_space, general_tier_flag, general_profile_idc.
	r.SkipBits(32)         // general_profile_compatibility_flag[32].
	r.SkipBits(4)          // progressive/interlaced/non_packed/frame_only_constraint_flag.
	r.SkipBits(43)         // general_reserved_zero_43bits.
	r.SkipBits(1)          // general_inbld_flag / reserved_zero_bit.
	r.SkipBits(8)          // general_level_idc.

	profilePresent := make([]bool, maxSubLayersMinus1)
	levelPresent := make([]bool, maxSubLayersMinus1)
	for i := 0; i < maxSubLayersMinus1; i++ {
		profilePresent[i] = r.ReadFlag()
		levelPresent[i] = r.ReadFlag()
	}
	if maxSubLayersMinus1 > 0 {
		for i := maxSubLayersMinus1; i < 8; i++ {
			r.SkipBits(2) // reserved_zero_2bits.
		}
	}
	for i := 0; i < maxSubLayersMinus1; i++ {
		if profilePresent[i] {
			r.SkipBits(2 + 1 + 5 + 32 + 4 + 43 + 1) // mirrors the general block above.
		}
		if levelPresent[i] {
			r.SkipBits(8)
		}
	}
}
