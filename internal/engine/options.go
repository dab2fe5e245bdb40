/*
NAME
  options.go - engine construction options.

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

import "time"

// DefaultReportPeriod is the wall-clock report tick interval used when
// Options.ReportPeriod is zero, matching spec's `--refresh` default.
const DefaultReportPeriod = 2 * time.Second

// Options configures a new Engine. Exactly one of OnReport or
// ReportChan should be set; if both are nil, reports are silently
// dropped (GetStatus still works, since its reply channel bypasses
// both).
type Options struct {
	// ReportPeriod is the wall-clock interval between ticks. Zero means
	// DefaultReportPeriod.
	ReportPeriod time.Duration

	// Mode is the initial analysis mode, before any Start command.
	Mode Mode

	// OnReport, if set, is called synchronously from the engine's task
	// once per tick with the freshly built report.
	OnReport func(Report)

	// ReportChan, if set, receives one Report per tick. A send that
	// would block is skipped (the engine never blocks on egress), per
	// §5's framing of the report tick as cooperative, not guaranteed.
	ReportChan chan<- Report

	// Logger receives operational log lines; defaults to a no-op logger.
	Logger Logger

	// Now overrides the engine's clock; defaults to time.Now. Tests
	// inject a deterministic clock here.
	Now func() time.Time
}
