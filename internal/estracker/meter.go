/*
NAME
  meter.go - rolling bitrate meter.

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

// Package estracker tracks elementary streams: per-PID continuity,
// PES demultiplexing and PTS/DTS extraction, rolling bitrate, and
// dispatch of accumulated payload bytes to the codec parser matched to
// a PID's stream_type, per §4.4.
package estracker

import "time"

// DefaultWindow is the rolling meter window, per §3's RollingMeter entity.
const DefaultWindow = 2 * time.Second

type sample struct {
	at    time.Time
	bytes int
}

// RollingMeter accumulates timestamped byte counts within a trailing
// window and reports the resulting bitrate. Samples older than the
// window are trimmed losslessly on each read, per §3's invariant.
type RollingMeter struct {
	window  time.Duration
	samples []sample
	total   int
}

// NewRollingMeter returns a RollingMeter with the given window.
func NewRollingMeter(window time.Duration) *RollingMeter {
	return &RollingMeter{window: window}
}

// Add records n bytes observed at time at.
func (m *RollingMeter) Add(at time.Time, n int) {
	m.samples = append(m.samples, sample{at: at, bytes: n})
	m.total += n
	m.trim(at)
}

// BitrateKbps returns the current rolling bitrate in kbps, trimming any
// samples that have aged out of the window as of now.
func (m *RollingMeter) BitrateKbps(now time.Time) float64 {
	m.trim(now)
	if len(m.samples) == 0 {
		return 0
	}
	elapsed := now.Sub(m.samples[0].at).Seconds()
	if elapsed <= 0 {
		elapsed = m.window.Seconds()
	}
	return float64(m.total) * 8 / 1000 / elapsed
}

func (m *RollingMeter) trim(now time.Time) {
	cutoff := now.Add(-m.window)
	i := 0
	for i < len(m.samples) && m.samples[i].at.Before(cutoff) {
		m.total -= m.samples[i].bytes
		i++
	}
	m.samples = m.samples[i:]
}
