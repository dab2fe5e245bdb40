/*
NAME
  logger.go - engine logging interface.

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

// Package engine wires the packet framer, PSI assembler, PSI registry,
// elementary stream tracker, and TR 101 290 monitor behind the single
// cooperatively-scheduled task and three-channel contract of §5.
package engine

// Log level constants, matching the teacher's logging.Logger level
// values (logging.Debug, logging.Info, logging.Warning, logging.Error,
// logging.Fatal) so a caller that already owns such a logger can adapt
// it to this interface with a trivial shim.
const (
	Debug int8 = iota
	Info
	Warning
	Error
	Fatal
)

// Logger is the logging interface the engine writes operational events
// to (sync loss, PSI CRC failures, version bumps) - never the JSON
// report stream. It mirrors revid.Logger/revid.Config.Logger's public
// shape (SetLevel plus one method per level taking a message and
// key/value pairs), without depending on the teacher's own
// ausocean/utils/logging package, which this repository does not
// import (see DESIGN.md "Dropped teacher modules").
type Logger interface {
	SetLevel(level int8)
	Debug(msg string, params ...interface{})
	Info(msg string, params ...interface{})
	Warning(msg string, params ...interface{})
	Error(msg string, params ...interface{})
	Fatal(msg string, params ...interface{})
}

// nopLogger discards everything; used when Options.Logger is nil so the
// engine never has to nil-check its logger field.
type nopLogger struct{}

func (nopLogger) SetLevel(int8)                    {}
func (nopLogger) Debug(string, ...interface{})     {}
func (nopLogger) Info(string, ...interface{})      {}
func (nopLogger) Warning(string, ...interface{})   {}
func (nopLogger) Error(string, ...interface{})     {}
func (nopLogger) Fatal(string, ...interface{})     {}
