/*
NAME
  framer.go - aligns an arbitrary byte stream to 188-byte TS packet boundaries.

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

package tspacket

// Framer buffers arbitrary-sized chunks of a byte stream (which need not be
// aligned to UDP datagrams or to 188-byte packets) and emits whole, synced
// TS packets. It requires three consecutive 0x47 bytes at 188-byte strides
// before declaring lock, and re-scans whenever a locked stream loses sync.
type Framer struct {
	buf    []byte
	locked bool

	// SyncErrors counts bytes skipped while scanning for sync, plus one per
	// locked-window sync loss, matching spec's sync_byte_errors counter.
	SyncErrors uint64
}

// NewFramer returns an empty Framer.
func NewFramer() *Framer {
	return &Framer{}
}

// Push appends d to the framer's resync buffer and returns every complete,
// synced 188-byte frame it can now produce. Frames alias the framer's
// internal buffer only until the next call to Push; callers that need to
// retain a frame must copy it.
func (f *Framer) Push(d []byte) [][]byte {
	f.buf = append(f.buf, d...)

	var frames [][]byte
	for {
		if f.locked {
			if len(f.buf) < Size {
				break
			}
			if f.buf[0] == SyncByte {
				frames = append(frames, f.buf[:Size:Size])
				f.buf = f.buf[Size:]
				continue
			}
			// Lost lock: this window doesn't start on a sync byte.
			f.locked = false
			f.SyncErrors++
			continue
		}

		i, ok, pending := f.scanForLock(f.buf)
		// Bytes strictly before i are conclusively junk (either not 0x47,
		// or an 0x47 whose stride was checked and failed).
		if i > 0 {
			f.SyncErrors += uint64(i)
		}
		f.buf = f.buf[i:]
		if !ok {
			if !pending {
				// No candidate byte survives in the buffer at all.
				f.buf = nil
			}
			break
		}
		f.locked = true
	}
	return frames
}

// scanForLock looks for a 0x47 byte followed by two more 0x47 bytes at
// 188-byte strides (three-point sync). It returns the offset of either the
// confirmed lock point or, failing that, the earliest remaining candidate
// byte that more data could still turn into one (pending=true); bytes
// before that offset are conclusively junk.
func (f *Framer) scanForLock(d []byte) (offset int, ok bool, pending bool) {
	for i := 0; i < len(d); i++ {
		if d[i] != SyncByte {
			continue
		}
		if i+2*Size >= len(d) {
			// Not enough data yet to confirm or refute this candidate.
			return i, false, true
		}
		if d[i+Size] == SyncByte && d[i+2*Size] == SyncByte {
			return i, true, false
		}
		// This candidate's stride didn't pan out; it counts as junk too,
		// keep scanning from i+1.
	}
	return len(d), false, false
}

// Reset clears all buffered bytes and drops lock, as required on engine
// cancellation (spec §5: "dropping the engine task must ... clear all
// per-PID state").
func (f *Framer) Reset() {
	f.buf = nil
	f.locked = false
}
