/*
NAME
  pat.go - Program Association Table decode and program lifecycle.

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

import (
	"time"

	"github.com/ausocean/tsinspect/internal/psi"
)

// patVersion reports the version_number of the currently active PAT, if any.
func (r *Registry) patVersion() (byte, bool) {
	return r.pat.version, r.patSeen
}

func (r *Registry) feedPAT(sec *psi.Section, now time.Time) bool {
	v, have := r.patVersion()
	if !shouldAccept(sec, have, v) {
		return false
	}

	complete, bodies := r.pat.add(sec)
	r.patTime = now
	if !complete {
		return false
	}
	r.patSeen = true

	newPIDs := make(map[uint16]uint16)
	newNIT, haveNIT := uint16(0), false
	for _, body := range bodies {
		for i := 0; i+4 <= len(body); i += 4 {
			program := uint16(body[i])<<8 | uint16(body[i+1])
			pid := uint16(body[i+2]&0x1f)<<8 | uint16(body[i+3])
			if program == 0 {
				newNIT, haveNIT = pid, true
				continue
			}
			newPIDs[program] = pid
		}
	}

	changed := r.reconcilePrograms(newPIDs, now)
	r.programPID = newPIDs
	r.nitPID, r.haveNIT = newNIT, haveNIT
	return changed
}

// reconcilePrograms applies the new PAT's program set against the
// previous one: programs that disappeared are not dropped immediately
// but marked stale with a removal deadline one overlap window out (the
// "accept new PMT versions before dropping old programs" rule in §4.3),
// in case the same program_number reappears in a near-simultaneous PMT
// update. Programs that reappear before their deadline are unmarked.
func (r *Registry) reconcilePrograms(newPIDs map[uint16]uint16, now time.Time) bool {
	changed := false
	for program := range newPIDs {
		if _, ok := r.programPID[program]; !ok {
			changed = true
		}
		delete(r.stale, program)
	}
	for program := range r.programPID {
		if _, ok := newPIDs[program]; !ok {
			r.stale[program] = now.Add(r.overlap)
		}
	}
	r.expireStale(now)
	return changed
}

// expireStale removes programs (and their PMT/ES state) whose overlap
// window has elapsed without the program reappearing in a later PAT.
func (r *Registry) expireStale(now time.Time) {
	for program, deadline := range r.stale {
		if now.Before(deadline) {
			continue
		}
		delete(r.stale, program)
		if p, ok := r.programs[program]; ok {
			delete(r.pmtSets, p.PMTPID)
		}
		delete(r.programs, program)
		delete(r.pmtTime, program)
	}
}
