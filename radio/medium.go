// Copyright (c) 2024, The OTNS Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

package radio

import (
	"sort"

	. "github.com/vanetsim/wave-sim/types"
)

// Medium carries frames between radios.
type Medium interface {
	Attach(r *Radio)
	Detach(r *Radio)
	// Deliver hands a completed frame from src to the other radios.
	Deliver(src *Radio, f *Frame)
}

// BroadcastMedium is a lossless medium: every frame reaches every other attached radio, which accepts it
// if tuned to the frame's channel.
type BroadcastMedium struct {
	radios map[DeviceId]*Radio
	// OnDeliver, if set, is called once per completed frame before it is handed to the receivers.
	OnDeliver func(f *Frame)
}

func NewBroadcastMedium() *BroadcastMedium {
	return &BroadcastMedium{
		radios: map[DeviceId]*Radio{},
	}
}

func (m *BroadcastMedium) Attach(r *Radio) {
	m.radios[r.Id] = r
}

func (m *BroadcastMedium) Detach(r *Radio) {
	delete(m.radios, r.Id)
}

func (m *BroadcastMedium) Deliver(src *Radio, f *Frame) {
	if m.OnDeliver != nil {
		m.OnDeliver(f)
	}
	ids := make([]DeviceId, 0, len(m.radios))
	for id := range m.radios {
		if id != src.Id {
			ids = append(ids, id)
		}
	}
	// receivers in id order keep runs reproducible
	sort.Ints(ids)
	for _, id := range ids {
		m.radios[id].receive(f)
	}
}
