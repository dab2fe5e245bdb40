/*
NAME
  command.go - engine control-channel command sum type.

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

// Mode selects how much of the pipeline runs past framing.
type Mode int

const (
	// None halts demultiplexing entirely; packets are still drained from
	// ingress (so the channel never blocks a producer) but nothing is
	// parsed or reported.
	None Mode = iota

	// Mux demultiplexes PSI and elementary streams (codec parameters,
	// bitrate, PTS/DTS) but runs no TR 101 290 counters at all.
	Mux

	// Tr101Priority1 runs Mux plus TR 101 290 priority-1 counters only.
	Tr101Priority1

	// Tr101Priority12 runs Mux plus TR 101 290 priority-1 and -2 counters.
	Tr101Priority12

	// Tr101 runs Mux plus every TR 101 290 counter.
	Tr101
)

// Command is a closed sum type applied by the engine strictly between
// packets, never mid-packet, per §5. The zero value is not a valid
// Command; construct one with StartCommand, StopCommand, or
// GetStatusCommand.
type Command struct {
	kind   commandKind
	mode   Mode
	status chan<- Report
}

type commandKind int

const (
	cmdStart commandKind = iota + 1 // Zero is left unused so a zero Command matches no kind.
	cmdStop
	cmdGetStatus
)

// StartCommand switches the engine to mode, effective on the next
// packet boundary.
func StartCommand(mode Mode) Command { return Command{kind: cmdStart, mode: mode} }

// StopCommand halts the engine's run loop; Run returns after releasing
// its resources.
func StopCommand() Command { return Command{kind: cmdStop} }

// GetStatusCommand requests an immediate report on reply, built from
// current counter/tracker state rather than waiting for the next
// scheduled tick.
func GetStatusCommand(reply chan<- Report) Command {
	return Command{kind: cmdGetStatus, status: reply}
}
