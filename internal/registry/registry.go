/*
NAME
  registry.go - PSI table registry: PAT/PMT/CAT presence, versioning, and timeouts.

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

// Well-known PIDs and table_ids, per ISO/IEC 13818-1 and ETSI EN 300 468.
const (
	PATPID = 0x0000
	CATPID = 0x0001

	TableIDPAT = 0x00
	TableIDCAT = 0x01
	TableIDPMT = 0x02
	TableIDTDT = 0x70
	TableIDTOT = 0x73
)

func isNIT(tableID byte) bool { return tableID == 0x40 || tableID == 0x41 }
func isSDT(tableID byte) bool { return tableID == 0x42 || tableID == 0x46 }
func isEIT(tableID byte) bool { return tableID >= 0x4e && tableID <= 0x6f }

// Default timeout deadlines, per spec §4.3.
const (
	PATTimeout = 500 * time.Millisecond
	PMTTimeout = 1 * time.Second
	CATTimeout = 2 * time.Second
)

// ESInfo is one elementary stream entry from a PMT.
type ESInfo struct {
	PID         uint16
	StreamType  byte
	Descriptors []Descriptor
}

// ProgramState is the decoded, currently-active view of one program: its
// PMT, PCR PID, and elementary stream list.
type ProgramState struct {
	Program            uint16
	PMTPID             uint16
	PCRPID             uint16
	Version            byte
	ProgramDescriptors []Descriptor
	ES                 []ESInfo
}

// Service is a decoded SDT entry: service_id and its advertised name.
type Service struct {
	ServiceID uint16
	Name      string
}

// presence tracks a table that the registry only timestamps and
// CRC-validates (NIT/SDT/EIT/TDT/TOT), never decoding a body beyond
// what SDT needs for the service_id_mismatch cross-check.
type presence struct {
	seen    bool
	lastHit time.Time
}

// Registry accumulates PSI sections (already CRC-verified by
// internal/psi) into the current program -> PID map, per §4.3. It is
// not safe for concurrent use; the engine drives it from its single
// packet-processing task.
type Registry struct {
	now func() time.Time

	// overlap is the PAT-drop grace window: a program removed by a new
	// PAT version is kept reachable for one refresh interval in case a
	// new PMT for a re-added program is still in flight, per the
	// "overlap window one refresh interval" rule in §4.3.
	overlap time.Duration

	pat        *sectionSet
	patTime    time.Time
	patSeen    bool
	programPID map[uint16]uint16 // program_number -> PMT PID, from the active PAT.
	nitPID     uint16
	haveNIT    bool

	pmtSets  map[uint16]*sectionSet   // keyed by PMT PID.
	pmtTime  map[uint16]time.Time     // keyed by program_number.
	programs map[uint16]*ProgramState // keyed by program_number.
	stale    map[uint16]time.Time     // program_number -> removal deadline.

	cat     presence
	nit     presence
	sdt     presence
	eit     presence
	tdt     presence
	services map[uint16]Service
}

// NewRegistry returns an empty Registry. now is injected for test
// determinism; pass time.Now in production. overlap is the PAT-drop
// grace window (the engine passes its report refresh interval).
func NewRegistry(now func() time.Time, overlap time.Duration) *Registry {
	return &Registry{
		now:        now,
		overlap:    overlap,
		pat:        newSectionSet(),
		programPID: make(map[uint16]uint16),
		pmtSets:    make(map[uint16]*sectionSet),
		pmtTime:    make(map[uint16]time.Time),
		programs:   make(map[uint16]*ProgramState),
		stale:      make(map[uint16]time.Time),
		services:   make(map[uint16]Service),
	}
}

// Event reports what, if anything, a Feed call changed or flagged.
type Event struct {
	ProgramsChanged   bool
	PMTChanged        bool   // Set for every PMT section fed, whether or not it altered the program's state.
	PMTProgram        uint16 // Program number the PMT update concerns, valid iff PMTChanged.
	ServiceIDMismatch []uint16 // service_ids present in SDT but absent from the active PAT.
}

// Feed processes one already-reassembled, CRC-verified section. sec.PID is
// the PID it arrived on (needed since table_id alone does not
// disambiguate PMTs, which share table_id 0x02 across different PIDs).
func (r *Registry) Feed(sec *psi.Section) Event {
	now := r.now()
	var ev Event

	switch {
	case sec.PID == PATPID && sec.TableID == TableIDPAT:
		ev.ProgramsChanged = r.feedPAT(sec, now)
	case sec.PID == CATPID && sec.TableID == TableIDCAT:
		r.cat.seen = true
		r.cat.lastHit = now
	case sec.TableID == TableIDPMT:
		r.feedPMT(sec, now)
		ev.PMTChanged = true
		ev.PMTProgram = sec.TableIDExtension
	case isNIT(sec.TableID):
		r.nit.seen = true
		r.nit.lastHit = now
	case isSDT(sec.TableID):
		r.feedSDT(sec, now)
		ev.ServiceIDMismatch = r.serviceIDMismatches()
	case isEIT(sec.TableID):
		r.eit.seen = true
		r.eit.lastHit = now
	case sec.TableID == TableIDTDT, sec.TableID == TableIDTOT:
		r.tdt.seen = true
		r.tdt.lastHit = now
	}
	return ev
}

// Programs returns the currently active programs, in ascending
// program_number order for deterministic reports.
func (r *Registry) Programs() []*ProgramState {
	out := make([]*ProgramState, 0, len(r.programs))
	for _, p := range r.programs {
		out = append(out, p)
	}
	sortPrograms(out)
	return out
}

// PMTPIDFor returns the PMT PID for a program number from the active
// PAT, and whether that program is currently known.
func (r *Registry) PMTPIDFor(program uint16) (uint16, bool) {
	pid, ok := r.programPID[program]
	return pid, ok
}

// NITPID returns the PID the active PAT's program-0 entry points at, if any.
func (r *Registry) NITPID() (uint16, bool) {
	return r.nitPID, r.haveNIT
}

func sortPrograms(p []*ProgramState) {
	for i := 1; i < len(p); i++ {
		for j := i; j > 0 && p[j-1].Program > p[j].Program; j-- {
			p[j-1], p[j] = p[j], p[j-1]
		}
	}
}
