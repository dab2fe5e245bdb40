/*
NAME
  timeouts.go - per-table staleness deadlines.

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

package registry

import "time"

// Timeouts reports which tables have exceeded their deadline since the
// last accepted section, per §4.3. Programs lists the program_numbers
// whose PMT has timed out.
type Timeouts struct {
	PAT      bool
	CAT      bool
	Programs []uint16
}

// CheckTimeouts evaluates every tracked deadline against now. It also
// expires any programs whose PAT-drop overlap window (see pat.go) has
// elapsed, so callers should invoke this periodically (the engine calls
// it once per report tick at minimum) even if no PMT timeout fires.
func (r *Registry) CheckTimeouts(now time.Time) Timeouts {
	r.expireStale(now)

	var t Timeouts
	if r.patSeen && now.Sub(r.patTime) > PATTimeout {
		t.PAT = true
	}
	if r.cat.seen && now.Sub(r.cat.lastHit) > CATTimeout {
		t.CAT = true
	}
	for program := range r.programs {
		last, ok := r.pmtTime[program]
		if !ok || now.Sub(last) > PMTTimeout {
			t.Programs = append(t.Programs, program)
		}
	}
	return t
}
