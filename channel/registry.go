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

package channel

import (
	"github.com/vanetsim/wave-sim/logger"
)

// State is the lifecycle state of a channel slot.
type State int

const (
	// Dead channels are not used by the device.
	Dead State = iota
	// Active channels are the ones the radio is tuned to and may transmit on.
	Active
	// Inactive channels are owned by an alternating assignment but wait for their interval.
	Inactive
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Inactive:
		return "inactive"
	case Dead:
		return "dead"
	default:
		return "invalid"
	}
}

const (
	DefaultTxPowerLevel = 4
	MaxTxPowerLevel     = 8
)

// Entry describes one channel slot.
type Entry struct {
	Number         Number   `yaml:"channel"`
	OperatingClass int      `yaml:"operating_class"`
	Adapter        bool     `yaml:"adapter"`
	DataRate       DataRate `yaml:"-"`
	TxPowerLevel   int      `yaml:"tx_power_level"`
	State          State    `yaml:"-"`
}

// Registry holds the seven channel slots of a device. Slot states are changed only by the access scheduler.
type Registry struct {
	entries [NumChannels]Entry
}

// NewRegistry creates a registry with every slot dead and set to the default descriptor.
func NewRegistry() *Registry {
	r := &Registry{}
	for i := range r.entries {
		r.entries[i] = Entry{
			Number:         SCH1 + Number(2*i),
			OperatingClass: DefaultOperatingClass,
			Adapter:        true,
			DataRate:       DefaultDataRate,
			TxPowerLevel:   DefaultTxPowerLevel,
			State:          Dead,
		}
	}
	return r
}

func (r *Registry) entry(n Number) *Entry {
	i := index(n)
	logger.AssertTrue(i < NumChannels, "invalid WAVE channel %d", n)
	return &r.entries[i]
}

func (r *Registry) GetState(n Number) State {
	return r.entry(n).State
}

func (r *Registry) SetState(n Number, s State) {
	e := r.entry(n)
	if e.State != s {
		logger.Tracef("channel %d: %s -> %s", n, e.State, s)
	}
	e.State = s
}

func (r *Registry) IsActive(n Number) bool {
	return r.GetState(n) == Active
}

func (r *Registry) IsInactive(n Number) bool {
	return r.GetState(n) == Inactive
}

func (r *Registry) IsDead(n Number) bool {
	return r.GetState(n) == Dead
}

func (r *Registry) GetOperatingClass(n Number) int {
	return r.entry(n).OperatingClass
}

func (r *Registry) IsAdapter(n Number) bool {
	return r.entry(n).Adapter
}

func (r *Registry) GetDataRate(n Number) DataRate {
	return r.entry(n).DataRate
}

func (r *Registry) GetTxPowerLevel(n Number) int {
	return r.entry(n).TxPowerLevel
}

// Entries returns a copy of all slots in ascending channel order.
func (r *Registry) Entries() []Entry {
	res := make([]Entry, NumChannels)
	copy(res, r.entries[:])
	return res
}

// ActiveChannel returns the channel in Active state, if any.
func (r *Registry) ActiveChannel() (Number, bool) {
	for _, e := range r.entries {
		if e.State == Active {
			return e.Number, true
		}
	}
	return 0, false
}
