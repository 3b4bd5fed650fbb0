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
	"github.com/vanetsim/wave-sim/logger"
	"github.com/vanetsim/wave-sim/pcap"
	. "github.com/vanetsim/wave-sim/types"
)

const (
	DefaultOutputDir = "tmp"
)

type Config struct {
	Id        int
	OutputDir string
	Speed     float64
	AutoGo    bool
	ReadOnly  bool
	LogLevel  logger.Level
	// WatchLevel is the console display level of the log of new devices.
	WatchLevel logger.Level
	Intervals  coordinator.IntervalConfig
	// PcapFrameType selects the capture format of transmitted frames. Captures need an OutputDir.
	PcapFrameType pcap.FrameType
	// NewDeviceConfig is the template for devices added without explicit settings.
	NewDeviceConfig DeviceConfig
}

func DefaultConfig() *Config {
	return &Config{
		Id:              0,
		OutputDir:       DefaultOutputDir,
		Speed:           1,
		AutoGo:          false,
		ReadOnly:        false,
		LogLevel:        logger.DefaultLevel,
		WatchLevel:      logger.ErrorLevel,
		Intervals:       coordinator.DefaultIntervalConfig(),
		PcapFrameType:   pcap.FrameTypeRadiotap,
		NewDeviceConfig: DefaultDeviceConfig(),
	}
}
