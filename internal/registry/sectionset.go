/*
NAME
  sectionset.go - multi-section PSI table reassembly with atomic version promotion.

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

import "github.com/ausocean/tsinspect/internal/psi"

// sectionSet accumulates the section_number..last_section_number span of
// one version of a multi-section PSI table (PAT or PMT). It only ever
// reports a table as complete once every section of the current version
// has arrived, giving the atomic (pending, then promoted) transition
// design note in §9 asks for: a fragmented new version that never
// completes simply never promotes, leaving the previous active state
// untouched.
type sectionSet struct {
	haveVersion bool
	version     byte
	last        byte
	bySection   map[byte][]byte
}

func newSectionSet() *sectionSet {
	return &sectionSet{bySection: make(map[byte][]byte)}
}

// add stages one section. It returns complete=true with the assembled
// bodies (in section_number order) exactly once all sections of this
// version have been seen; stale or out-of-order versions are handled
// per §8 property 3 before add is ever called (see shouldAccept).
func (s *sectionSet) add(sec *psi.Section) (complete bool, bodies [][]byte) {
	if !s.haveVersion || sec.VersionNumber != s.version {
		s.bySection = make(map[byte][]byte)
		s.version = sec.VersionNumber
		s.haveVersion = true
	}
	s.last = sec.LastSectionNumber
	s.bySection[sec.SectionNumber] = sec.Body

	for i := 0; i <= int(s.last); i++ {
		if _, ok := s.bySection[byte(i)]; !ok {
			return false, nil
		}
	}
	bodies = make([][]byte, 0, int(s.last)+1)
	for i := 0; i <= int(s.last); i++ {
		bodies = append(bodies, s.bySection[byte(i)])
	}
	return true, bodies
}

// shouldAccept applies §8 property 3 (version monotonicity) ahead of
// staging: current_next_indicator==0 sections never replace live state,
// and a version lower than one already active is ignored. lastActive
// reports the version_number currently live (if any).
func shouldAccept(sec *psi.Section, haveActive bool, lastActive byte) bool {
	if !sec.CurrentNextIndicator {
		return false
	}
	if !haveActive {
		return true
	}
	// 5-bit version_number field wraps mod 32; treat a same-version
	// repeat as idempotent (accept: add() no-ops productively since the
	// bodies are identical) and only reject a strictly-earlier version.
	if sec.VersionNumber == lastActive {
		return true
	}
	diff := (int(sec.VersionNumber) - int(lastActive) + 32) % 32
	return diff < 16
}
