/*
NAME
  engine.go - the single owning task: framing, PSI, registry, ES
  tracking, and TR 101 290 compliance wired behind one run loop.

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

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/ausocean/tsinspect/internal/estracker"
	"github.com/ausocean/tsinspect/internal/psi"
	"github.com/ausocean/tsinspect/internal/registry"
	"github.com/ausocean/tsinspect/internal/tr101290"
	"github.com/ausocean/tsinspect/internal/tspacket"
)

// Well-known PSI PIDs present regardless of what any PAT advertises, per
// ISO/IEC 13818-1 and ETSI EN 300 468. PMT PIDs are discovered from the
// active PAT and added to this set as programs come and go.
const (
	pidNIT = 0x10
	pidSDT = 0x11
	pidEIT = 0x12
	pidRST = 0x13
	pidTDT = 0x14
)

// Engine is the single cooperatively-scheduled task described in §5: it
// owns the framer, PSI assembler, PSI registry, elementary stream
// tracker, and TR 101 290 monitor, and drives them all from one Run
// loop with no internal locking.
type Engine struct {
	ingress <-chan []byte
	control chan Command

	period time.Duration
	mode   Mode
	logger Logger
	now    func() time.Time

	onReport   func(Report)
	reportChan chan<- Report

	framer    *tspacket.Framer
	assembler *psi.Assembler
	reg       *registry.Registry
	tracker   *estracker.Tracker
	monitor   *tr101290.Monitor

	psiPIDs map[uint16]bool
}

// New constructs an Engine reading from ingress and configured by opts.
// It performs no I/O and starts no goroutine; call Run to drive it.
func New(ingress <-chan []byte, opts Options) (*Engine, error) {
	if ingress == nil {
		return nil, errors.New("engine: nil ingress channel")
	}

	period := opts.ReportPeriod
	if period <= 0 {
		period = DefaultReportPeriod
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = nopLogger{}
	}

	e := &Engine{
		ingress:    ingress,
		control:    make(chan Command),
		period:     period,
		mode:       opts.Mode,
		logger:     logger,
		now:        now,
		onReport:   opts.OnReport,
		reportChan: opts.ReportChan,
		framer:     tspacket.NewFramer(),
		assembler:  psi.NewAssembler(),
		reg:        registry.NewRegistry(now, period),
		tracker:    estracker.NewTracker(estracker.DefaultWindow),
		monitor:    tr101290.NewMonitor(maskFor(opts.Mode)),
		psiPIDs:    wellKnownPSIPIDs(),
	}
	return e, nil
}

// Control returns the channel Start/Stop/GetStatus commands are sent
// on. Sends are only serviced between packets, per §5.
func (e *Engine) Control() chan<- Command { return e.control }

func wellKnownPSIPIDs() map[uint16]bool {
	return map[uint16]bool{
		registry.PATPID: true,
		registry.CATPID: true,
		pidNIT:          true,
		pidSDT:          true,
		pidEIT:          true,
		pidRST:          true,
		pidTDT:          true,
	}
}

func maskFor(m Mode) tr101290.Mask {
	switch m {
	case Tr101Priority1:
		return tr101290.MaskP1
	case Tr101Priority12:
		return tr101290.MaskP1P2
	case Tr101:
		return tr101290.MaskAll
	default:
		return tr101290.MaskNone
	}
}

// Run drives the engine until ctx is cancelled, the ingress channel
// closes, or a Stop command is received. It releases the framer's
// buffered state before returning, per §5's cancellation rule ("clear
// all per-PID state").
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.period)
	defer ticker.Stop()
	defer e.framer.Reset()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case cmd, ok := <-e.control:
			if !ok || cmd.kind == cmdStop {
				return nil
			}
			e.applyCommand(cmd)

		case buf, ok := <-e.ingress:
			if !ok {
				return nil
			}
			e.processBuffer(buf)

		case t := <-ticker.C:
			e.tick(t)
		}
	}
}

func (e *Engine) applyCommand(cmd Command) {
	switch cmd.kind {
	case cmdStart:
		e.setMode(cmd.mode)
	case cmdStop:
		// Run returns on Stop before applying it; nothing further to
		// release here beyond what the deferred framer.Reset already does.
	case cmdGetStatus:
		rep := e.buildReport(e.now())
		select {
		case cmd.status <- rep:
		default:
			// Reply channel not ready; GetStatus is best-effort, never
			// allowed to stall the run loop.
		}
	}
}

func (e *Engine) setMode(m Mode) {
	e.mode = m
	e.monitor.Counters.SetMask(maskFor(m))
}

func (e *Engine) tick(t time.Time) {
	if e.mode == None {
		return
	}
	timeouts := e.reg.CheckTimeouts(t)
	e.monitor.ObserveTimeouts(timeouts)
	e.emitReport(e.buildReport(t))
}

// RecordIngressDrop advances the ingress-drop counter. The caller (the
// socket-owning outer shell) observes the broadcast primitive's own lag
// count; the engine has no visibility into it directly, per §5.
func (e *Engine) RecordIngressDrop(n uint64) {
	e.monitor.ObserveIngressDrop(n)
}

func (e *Engine) processBuffer(buf []byte) {
	if e.mode == None {
		return
	}
	frames := e.framer.Push(buf)
	e.monitor.ObserveSyncErrors(e.framer.SyncErrors)

	now := e.now()
	for _, frame := range frames {
		pkt, err := tspacket.Decode(frame)
		if err != nil {
			e.logger.Debug("engine: packet decode error", "err", err)
			continue
		}
		e.processPacket(pkt, frame, now)
	}
}

func (e *Engine) processPacket(pkt *tspacket.Packet, frame []byte, now time.Time) {
	e.monitor.ObservePacket(pkt, now)

	if pkt.PID == tspacket.NullPID {
		return
	}

	if e.psiPIDs[pkt.PID] {
		e.processPSI(pkt, frame)
		return
	}

	cr := e.tracker.Feed(pkt, now)
	if cr.Tracked {
		e.monitor.ObserveContinuity(cr.Result)
	}
}

func (e *Engine) processPSI(pkt *tspacket.Packet, frame []byte) {
	out := e.assembler.Feed(pkt.PID, pkt.PUSI, pkt.Payload, pkt.CC, frame, pkt.HasPayload())

	if out.ContinuityError {
		e.monitor.Counters.Add(tr101290.ContinuityCounterErrors, 1)
	}
	if out.CRCError || out.LengthCapError {
		if tbl, ok := classifyTable(out.CRCErrorTableID); ok {
			e.monitor.ObserveSectionCRCError(tbl)
		}
		e.logger.Debug("engine: psi section rejected", "table_id", out.CRCErrorTableID, "length_cap", out.LengthCapError)
	}

	refresh := false
	for _, sec := range out.Sections {
		ev := e.reg.Feed(sec)
		if ev.ProgramsChanged || ev.PMTChanged {
			refresh = true
		}
		if n := len(ev.ServiceIDMismatch); n > 0 {
			e.monitor.ObserveServiceIDMismatches(n)
		}
	}
	if refresh {
		e.refreshPrograms()
	}
}

// refreshPrograms re-derives the tracked PMT/PCR PID sets and the
// elementary stream tracker's live PID set from the registry's current
// program list, after a PAT or PMT change.
func (e *Engine) refreshPrograms() {
	programs := e.reg.Programs()

	e.tracker.SyncPrograms(programs)

	pcrPIDs := make([]uint16, 0, len(programs))
	for _, p := range programs {
		pcrPIDs = append(pcrPIDs, p.PCRPID)
	}
	e.monitor.SetPCRPIDs(pcrPIDs)

	psiPIDs := wellKnownPSIPIDs()
	for _, p := range programs {
		psiPIDs[p.PMTPID] = true
	}
	if nit, ok := e.reg.NITPID(); ok {
		psiPIDs[nit] = true
	}
	e.psiPIDs = psiPIDs
}

// classifyTable maps a PSI table_id to the TR 101 290 table the engine's
// own routing needs, independent of internal/registry's unexported
// isNIT/isSDT/isEIT helpers (which classify for program-map purposes,
// not compliance-counter purposes). Table_ids this repo doesn't track a
// CRC counter for (TDT/TOT, which carry no CRC at all) report ok=false.
func classifyTable(tableID byte) (tr101290.Table, bool) {
	switch {
	case tableID == registry.TableIDPAT:
		return tr101290.TablePAT, true
	case tableID == registry.TableIDPMT:
		return tr101290.TablePMT, true
	case tableID == registry.TableIDCAT:
		return tr101290.TableCAT, true
	case tableID == 0x40 || tableID == 0x41:
		return tr101290.TableNIT, true
	case tableID == 0x42 || tableID == 0x46:
		return tr101290.TableSDT, true
	case tableID >= 0x4e && tableID <= 0x6f:
		return tr101290.TableEIT, true
	default:
		return 0, false
	}
}

func (e *Engine) emitReport(rep Report) {
	if e.onReport != nil {
		e.onReport(rep)
	}
	if e.reportChan != nil {
		select {
		case e.reportChan <- rep:
		default:
			// Egress is cooperative, never blocking; a slow consumer
			// misses a tick rather than stalling packet ingestion.
		}
	}
}

// buildReport assembles the current, self-contained Report, per §6's
// JSON shape: one entry per active program, each with its elementary
// streams in PMT order, plus the TR 101 290 counter snapshot.
func (e *Engine) buildReport(now time.Time) Report {
	snap := e.tracker.Snapshot(now)
	byPID := make(map[uint16]estracker.Stream, len(snap))
	for _, s := range snap {
		byPID[s.PID] = s
	}

	programs := e.reg.Programs()
	progs := make([]ProgramReport, 0, len(programs))
	for _, p := range programs {
		pr := ProgramReport{Program: p.Program}
		for _, es := range p.ES {
			if s, ok := byPID[es.PID]; ok {
				pr.Streams = append(pr.Streams, streamReportFrom(s))
				continue
			}
			pr.Streams = append(pr.Streams, StreamReport{
				PID:        es.PID,
				StreamType: es.StreamType,
				Codec:      "unknown",
			})
		}
		progs = append(progs, pr)
	}

	return Report{
		TSTime:   now.UTC().Format(time.RFC3339Nano),
		Programs: progs,
		TR101:    e.monitor.Counters.Snapshot(),
	}
}

func streamReportFrom(s estracker.Stream) StreamReport {
	sr := StreamReport{
		PID:         s.PID,
		StreamType:  s.StreamType,
		BitrateKbps: s.BitrateKbps,
	}
	if !s.HaveParams {
		sr.Codec = "unknown"
		return sr
	}

	sr.Codec = s.Params.CodecName
	if s.Params.Width > 0 {
		w := uint16(s.Params.Width)
		sr.Width = &w
	}
	if s.Params.Height > 0 {
		h := uint16(s.Params.Height)
		sr.Height = &h
	}
	if s.Params.HasFPS {
		f := float32(s.Params.FPS)
		sr.FPS = &f
	}
	if s.Params.Chroma != "" {
		c := s.Params.Chroma
		sr.Chroma = &c
	}
	if s.Params.Channels > 0 {
		ch := s.Params.Channels
		sr.Channels = &ch
	}
	if s.Params.SampleRate > 0 {
		sp := uint32(s.Params.SampleRate)
		sr.SampleRate = &sp
	}
	return sr
}
