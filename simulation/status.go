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

package simulation

import (
	"github.com/vanetsim/wave-sim/channel"
	"github.com/vanetsim/wave-sim/device"
	. "github.com/vanetsim/wave-sim/types"
)

// DeviceStatus is a snapshot of one device, as shown by the status command and the web API.
type DeviceStatus struct {
	Id           DeviceId          `yaml:"id" json:"id"`
	Name         string            `yaml:"name" json:"name"`
	Access       string            `yaml:"access" json:"access"`
	Channel      channel.Number    `yaml:"channel,omitempty" json:"channel,omitempty"`
	Extensions   uint8             `yaml:"extensions,omitempty" json:"extensions,omitempty"`
	Pending      bool              `yaml:"pending,omitempty" json:"pending,omitempty"`
	RadioChannel channel.Number    `yaml:"radio_channel" json:"radio_channel"`
	Profile      *device.TxProfile `yaml:"profile,omitempty" json:"profile,omitempty"`
	Counters     device.Counters   `yaml:"counters" json:"counters"`
}

// TimeStatus reports the progress of the simulation.
type TimeStatus struct {
	TimeUs  uint64  `yaml:"time_us" json:"time_us"`
	Speed   float64 `yaml:"speed" json:"speed"`
	RunId   string  `yaml:"run_id" json:"run_id"`
	Devices int     `yaml:"devices" json:"devices"`
}

func newDeviceStatus(dev *device.Device) DeviceStatus {
	a := dev.Scheduler.Assignment()
	st := DeviceStatus{
		Id:           dev.Id,
		Name:         dev.Name,
		Access:       a.Mode.String(),
		Channel:      a.Channel,
		Extensions:   a.Extensions,
		Pending:      dev.Scheduler.HasPendingRequest(),
		RadioChannel: dev.Radio.Channel(),
		Counters:     dev.Counters(),
	}
	if a.Mode == NoAccess {
		st.Channel = 0
	}
	if p, ok := dev.TxProfile(); ok {
		st.Profile = &p
	}
	return st
}

// DeviceStatus returns the status of one device.
func (s *Simulation) DeviceStatus(id DeviceId) (DeviceStatus, error) {
	dev, err := s.getDevice(id)
	if err != nil {
		return DeviceStatus{}, err
	}
	return newDeviceStatus(dev), nil
}

// Status returns the status of all devices, ordered by id.
func (s *Simulation) Status() []DeviceStatus {
	res := make([]DeviceStatus, 0, len(s.devices))
	s.VisitDevicesInOrder(func(dev *device.Device) {
		res = append(res, newDeviceStatus(dev))
	})
	return res
}

func (s *Simulation) TimeStatus() TimeStatus {
	return TimeStatus{
		TimeUs:  s.d.CurTime,
		Speed:   s.GetSpeed(),
		RunId:   s.runId,
		Devices: len(s.devices),
	}
}
