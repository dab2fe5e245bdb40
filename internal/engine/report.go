/*
NAME
  report.go - periodic structured report shape.

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

package engine

// Report is the engine's periodic, self-contained view of the stream,
// marshaled verbatim as the JSON object described in §6. Optional
// per-stream fields are pointers so omitempty drops them entirely when
// a stream's codec class doesn't populate them, rather than emitting a
// zero value that could be mistaken for a real measurement.
type Report struct {
	TSTime   string            `json:"ts_time"`
	Programs []ProgramReport   `json:"programs"`
	TR101    map[string]uint64 `json:"tr101"`
}

// ProgramReport is one program's current stream list.
type ProgramReport struct {
	Program uint16          `json:"program"`
	Streams []StreamReport  `json:"streams"`
}

// StreamReport is one elementary stream's codec parameters and rolling
// bitrate, as of report construction.
type StreamReport struct {
	PID         uint16   `json:"pid"`
	StreamType  byte     `json:"stream_type"`
	Codec       string   `json:"codec"`
	BitrateKbps float64  `json:"bitrate_kbps"`
	Width       *uint16  `json:"width,omitempty"`
	Height      *uint16  `json:"height,omitempty"`
	FPS         *float32 `json:"fps,omitempty"`
	Chroma      *string  `json:"chroma,omitempty"`
	Channels    *byte    `json:"channels,omitempty"`
	SampleRate  *uint32  `json:"sample_rate,omitempty"`
}
