/*
NAME
  nullrate.go - rolling null-packet-rate tracking.

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

package tr101290

import "time"

// nullRateWindow is the rolling window over which the null packet
// fraction is measured, per §4.5.
const nullRateWindow = 1 * time.Second

// nullRateThreshold is the fraction above which null_packet_rate_errors
// advances, per §4.5.
const nullRateThreshold = 0.15

type packetSample struct {
	at   time.Time
	null bool
}

// nullRateTracker counts the fraction of PID 0x1FFF (null) packets
// among all packets observed in a trailing window, mirroring
// estracker.RollingMeter's trim-on-read shape but counting packets
// instead of bytes and tracking two running totals instead of one.
type nullRateTracker struct {
	samples   []packetSample
	nullCount int
}

func newNullRateTracker() *nullRateTracker {
	return &nullRateTracker{}
}

// observe records one packet (null or not) at time now and reports the
// current null fraction over the trailing window after trimming.
func (t *nullRateTracker) observe(now time.Time, isNull bool) float64 {
	t.samples = append(t.samples, packetSample{at: now, null: isNull})
	if isNull {
		t.nullCount++
	}
	t.trim(now)
	if len(t.samples) == 0 {
		return 0
	}
	return float64(t.nullCount) / float64(len(t.samples))
}

func (t *nullRateTracker) trim(now time.Time) {
	cutoff := now.Add(-nullRateWindow)
	i := 0
	for i < len(t.samples) && t.samples[i].at.Before(cutoff) {
		if t.samples[i].null {
			t.nullCount--
		}
		i++
	}
	t.samples = t.samples[i:]
}
