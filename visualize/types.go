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

package visualize

import (
	"time"

	. "github.com/vanetsim/wave-sim/types"
)

// Visualizer receives the events of a simulation. All methods are called on the dispatcher goroutine,
// except Run.
type Visualizer interface {
	Init()
	Run()
	Stop()

	AddDevice(id DeviceId, cfg *DeviceConfig)
	DeleteDevice(id DeviceId)
	SetAccess(id DeviceId, access AccessInfo)
	Send(src DeviceId, frame *FrameInfo)
	Receive(dst DeviceId, frame *FrameInfo)
	SetSpeed(speed float64)
	AdvanceTime(ts uint64, speed float64)
	SetController(ctrl SimulationController)
}

// AccessInfo is the channel access of a device.
type AccessInfo struct {
	Mode       AccessMode `json:"-"`
	ModeName   string     `json:"mode"`
	Channel    uint32     `json:"channel"`
	Extensions uint8      `json:"extensions,omitempty"`
}

// FrameInfo describes a frame sent or received.
type FrameInfo struct {
	PacketId   uint64   `json:"packet"`
	Src        DeviceId `json:"src"`
	Channel    uint32   `json:"channel"`
	Priority   uint8    `json:"priority"`
	Size       int      `json:"size"`
	DataRate   string   `json:"rate"`
	PowerLevel int      `json:"power_level"`
	DurationUs uint64   `json:"duration_us"`
	Aborted    bool     `json:"aborted,omitempty"`
}

// SimulationController lets a visualizer act on the simulation.
type SimulationController interface {
	CtrlSetSpeed(speed float64) error
	CtrlDeleteDevice(id DeviceId) error
	CtrlStartSch(id DeviceId, channel uint32, immediate bool, extendedAccess uint8) error
	CtrlStopSch(id DeviceId, channel uint32) error
}

func DurationUs(d time.Duration) uint64 {
	return uint64(d / time.Microsecond)
}
