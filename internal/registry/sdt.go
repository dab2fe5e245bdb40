/*
NAME
  sdt.go - Service Description Table decode and PAT cross-check.

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

const serviceDescriptorTag = 0x48

func (r *Registry) feedSDT(sec *psi.Section, now time.Time) {
	r.sdt.seen = true
	r.sdt.lastHit = now

	body := sec.Body
	if len(body) < 3 {
		return
	}
	off := 3 // original_network_id(2) + reserved_future_use(1)
	for off+5 <= len(body) {
		serviceID := uint16(body[off])<<8 | uint16(body[off+1])
		loopLen := int(body[off+3]&0x0f)<<8 | int(body[off+4])
		off += 5
		if off+loopLen > len(body) {
			break
		}
		name := serviceName(parseDescriptors(body[off : off+loopLen]))
		r.services[serviceID] = Service{ServiceID: serviceID, Name: name}
		off += loopLen
	}
}

// serviceName extracts service_name from a service_descriptor (tag
// 0x48), if present: service_type(1), provider_name_length+name,
// then service_name_length+name.
func serviceName(descs []Descriptor) string {
	for _, d := range descs {
		if d.Tag != serviceDescriptorTag || len(d.Data) < 2 {
			continue
		}
		b := d.Data[1:] // skip service_type
		if len(b) < 1 {
			continue
		}
		provLen := int(b[0])
		if 1+provLen > len(b) {
			continue
		}
		b = b[1+provLen:]
		if len(b) < 1 {
			continue
		}
		nameLen := int(b[0])
		if 1+nameLen > len(b) {
			continue
		}
		return string(b[1 : 1+nameLen])
	}
	return ""
}

// Services returns the currently known SDT service_id -> name map.
func (r *Registry) Services() map[uint16]Service {
	out := make(map[uint16]Service, len(r.services))
	for k, v := range r.services {
		out[k] = v
	}
	return out
}

// serviceIDMismatches reports service_ids the SDT lists that the active
// PAT does not reference as a program_number, per §4.5's
// service_id_mismatch indicator. A TS conventionally numbers programs by
// service_id, so the cross-check is against program_number directly.
func (r *Registry) serviceIDMismatches() []uint16 {
	var out []uint16
	for id := range r.services {
		if _, ok := r.programPID[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
