/*
NAME
  tracker.go - per-PID elementary stream tracking.

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

package estracker

import (
	"time"

	"github.com/ausocean/tsinspect/internal/ccheck"
	"github.com/ausocean/tsinspect/internal/codec"
	"github.com/ausocean/tsinspect/internal/registry"
	"github.com/ausocean/tsinspect/internal/tspacket"
)

// maxAccumBytes bounds how much of an access unit the tracker will buffer
// looking for a codec's sync pattern before giving up on it, protecting
// against a stream type that never resolves (e.g. corrupt data) pinning
// unbounded memory.
const maxAccumBytes = 2 * 1 << 20

// Stream is the tracker's current view of one elementary stream PID.
type Stream struct {
	PID         uint16
	StreamType  byte
	Subtitle    bool // True when a DVB subtitling_descriptor (tag 0x59) is present.
	PTS         uint64
	DTS         uint64
	HasPTS      bool
	HasDTS      bool
	Params      codec.Params
	HaveParams  bool
	BitrateKbps float64
}

type esState struct {
	streamType byte
	subtitle   bool
	buf        []byte
	started    bool
	meter      *RollingMeter
	lastPTS    uint64
	lastDTS    uint64
	haveParams bool
	params     codec.Params
}

// Tracker demultiplexes PES packets and tracks continuity, bitrate, and
// codec parameters across every elementary stream PID named by the
// current program map.
type Tracker struct {
	cc      *ccheck.Tracker
	streams map[uint16]*esState
	window  time.Duration
}

// NewTracker returns a Tracker whose rolling bitrate meters use window as
// their accumulation period.
func NewTracker(window time.Duration) *Tracker {
	return &Tracker{
		cc:      ccheck.NewTracker(),
		streams: make(map[uint16]*esState),
		window:  window,
	}
}

// SyncPrograms updates the set of tracked PIDs and their descriptor-
// derived metadata (stream_type, DVB subtitle presence) to match the
// registry's current programs, dropping any PID no longer referenced by
// any program.
func (t *Tracker) SyncPrograms(programs []*registry.ProgramState) {
	live := make(map[uint16]bool)
	for _, p := range programs {
		for _, es := range p.ES {
			live[es.PID] = true
			s, ok := t.streams[es.PID]
			if !ok {
				s = &esState{meter: NewRollingMeter(t.window)}
				t.streams[es.PID] = s
			}
			s.streamType = es.StreamType
			s.subtitle = es.StreamType == codec.StreamTypeDVBSubtitle && hasDescriptor(es.Descriptors, codec.SubtitlingDescriptorTag)
		}
	}
	for pid := range t.streams {
		if !live[pid] {
			delete(t.streams, pid)
			t.cc.Reset(pid)
		}
	}
}

func hasDescriptor(descs []registry.Descriptor, tag byte) bool {
	for _, d := range descs {
		if d.Tag == tag {
			return true
		}
	}
	return false
}

// ContinuityResult is returned by Feed for packets on tracked PIDs so
// callers (the compliance monitor) can count continuity_counter_errors
// without re-deriving PID membership themselves.
type ContinuityResult struct {
	Tracked bool
	Result  ccheck.Result
}

// Feed processes one decoded TS packet at time now. It is a no-op for
// PIDs not currently part of any program's elementary stream list.
func (t *Tracker) Feed(pkt *tspacket.Packet, now time.Time) ContinuityResult {
	s, ok := t.streams[pkt.PID]
	if !ok {
		return ContinuityResult{}
	}

	var cr ContinuityResult
	cr.Tracked = true
	if pkt.HasPayload() {
		raw := append([]byte(nil), pkt.Payload...) // Check() retains a copy; give it its own.
		cr.Result = t.cc.Check(pkt.PID, pkt.CC, raw)
	}

	if len(pkt.Payload) > 0 {
		s.meter.Add(now, len(pkt.Payload))
	}

	if pkt.PUSI {
		t.flush(pkt.PID, s)
		s.started = true
		s.buf = append(s.buf[:0], pkt.Payload...)
	} else if s.started {
		if len(s.buf) < maxAccumBytes {
			s.buf = append(s.buf, pkt.Payload...)
		}
	}

	return cr
}

// flush attempts to decode the PES header and dispatch the accumulated
// payload to the matching codec parser, called just before a new PES
// packet's first packet overwrites the buffer.
func (t *Tracker) flush(pid uint16, s *esState) {
	if !s.started || len(s.buf) == 0 {
		return
	}
	hdr, payload, err := DecodePES(s.buf)
	if err != nil {
		return
	}
	if hdr.HasPTS {
		s.lastPTS = hdr.PTS
	}
	if hdr.HasDTS {
		s.lastDTS = hdr.DTS
	}
	if !s.haveParams {
		if params, ok := codec.Parse(s.streamType, payload); ok {
			s.params = params
			s.haveParams = true
		}
	}
}

// Snapshot returns the current state of every tracked elementary stream,
// for inclusion in a status report.
func (t *Tracker) Snapshot(now time.Time) []Stream {
	out := make([]Stream, 0, len(t.streams))
	for pid, s := range t.streams {
		out = append(out, Stream{
			PID:         pid,
			StreamType:  s.streamType,
			Subtitle:    s.subtitle,
			PTS:         s.lastPTS,
			DTS:         s.lastDTS,
			HasPTS:      s.lastPTS != 0,
			HasDTS:      s.lastDTS != 0,
			Params:      s.params,
			HaveParams:  s.haveParams,
			BitrateKbps: s.meter.BitrateKbps(now),
		})
	}
	return out
}
