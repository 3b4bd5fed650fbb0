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
	"github.com/vanetsim/wave-sim/coordinator"
	"github.com/vanetsim/wave-sim/device"
)

// YamlConfigFile is the scenario file format used by the load and save commands.
type YamlConfigFile struct {
	Intervals   *coordinator.IntervalConfig `yaml:"intervals,omitempty"`
	DevicesList []YamlDeviceConfig          `yaml:"devices"`
}

type YamlDeviceConfig struct {
	ID            int               `yaml:"id"`
	Name          *string           `yaml:"name,omitempty"`
	IpOnCch       bool              `yaml:"ip-on-cch,omitempty"`
	QueueMaxDelay int               `yaml:"queue-max-delay-ms,omitempty"`
	QueueMaxSize  int               `yaml:"queue-max-size,omitempty"`
	Sch           *device.SchInfo   `yaml:"sch,omitempty"`
	Profile       *device.TxProfile `yaml:"profile,omitempty"`
	Traffic       []TrafficConfig   `yaml:"traffic,omitempty"`
}
