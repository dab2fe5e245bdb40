/*
NAME
  pmt.go - Program Map Table decode.

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

func (r *Registry) feedPMT(sec *psi.Section, now time.Time) {
	program := sec.TableIDExtension

	set, ok := r.pmtSets[sec.PID]
	if !ok {
		set = newSectionSet()
		r.pmtSets[sec.PID] = set
	}

	var haveActive bool
	var activeVersion byte
	if p, ok := r.programs[program]; ok {
		haveActive, activeVersion = true, p.Version
	}
	if !shouldAccept(sec, haveActive, activeVersion) {
		return
	}

	complete, bodies := set.add(sec)
	r.pmtTime[program] = now
	if !complete {
		return
	}

	ps := decodePMT(program, sec.PID, sec.VersionNumber, bodies)
	r.programs[program] = ps
}

func decodePMT(program, pmtPID uint16, version byte, bodies [][]byte) *ProgramState {
	var body []byte
	for _, b := range bodies {
		body = append(body, b...)
	}

	ps := &ProgramState{
		Program: program,
		PMTPID:  pmtPID,
		Version: version,
	}
	if len(body) < 4 {
		return ps
	}
	ps.PCRPID = uint16(body[0]&0x1f)<<8 | uint16(body[1])
	programInfoLen := int(body[2]&0x0f)<<8 | int(body[3])
	off := 4
	if off+programInfoLen > len(body) {
		return ps
	}
	ps.ProgramDescriptors = parseDescriptors(body[off : off+programInfoLen])
	off += programInfoLen

	for off+5 <= len(body) {
		streamType := body[off]
		pid := uint16(body[off+1]&0x1f)<<8 | uint16(body[off+2])
		esInfoLen := int(body[off+3]&0x0f)<<8 | int(body[off+4])
		off += 5
		if off+esInfoLen > len(body) {
			break
		}
		ps.ES = append(ps.ES, ESInfo{
			PID:         pid,
			StreamType:  streamType,
			Descriptors: parseDescriptors(body[off : off+esInfoLen]),
		})
		off += esInfoLen
	}
	return ps
}
