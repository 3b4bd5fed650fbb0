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
	"time"

	"github.com/pkg/errors"

	"github.com/vanetsim/wave-sim/channel"
	"github.com/vanetsim/wave-sim/device"
	"github.com/vanetsim/wave-sim/dispatcher"
	"github.com/vanetsim/wave-sim/packet"
	"github.com/vanetsim/wave-sim/prng"
	. "github.com/vanetsim/wave-sim/types"
)

// TrafficConfig describes a periodic broadcast source on one channel.
type TrafficConfig struct {
	Channel    channel.Number `yaml:"channel"`
	Priority   uint8          `yaml:"priority,omitempty"`
	Size       int            `yaml:"size"`
	MaxSize    int            `yaml:"max-size,omitempty"` // payload size is drawn from [Size, MaxSize] if set
	IntervalMs int            `yaml:"interval-ms"`
	ExpiryMs   uint32         `yaml:"expiry-ms,omitempty"`
}

func (tc TrafficConfig) Validate() error {
	switch {
	case !channel.IsWaveChannel(tc.Channel):
		return errors.Errorf("invalid traffic channel %d", tc.Channel)
	case tc.IntervalMs <= 0:
		return errors.Errorf("invalid traffic interval %d ms", tc.IntervalMs)
	case tc.Size <= 0:
		return errors.Errorf("invalid traffic size %d", tc.Size)
	case tc.MaxSize != 0 && tc.MaxSize < tc.Size:
		return errors.Errorf("traffic max-size %d below size %d", tc.MaxSize, tc.Size)
	case tc.Priority > packet.MaxPriority:
		return errors.Errorf("invalid traffic priority %d", tc.Priority)
	}
	return nil
}

func (tc TrafficConfig) interval() time.Duration {
	return time.Duration(tc.IntervalMs) * time.Millisecond
}

type trafficGenerator struct {
	cfg      TrafficConfig
	dev      *device.Device
	timeline dispatcher.Timeline
	timer    *dispatcher.Timer
	Sent     uint64
	Refused  uint64
}

func newTrafficGenerator(timeline dispatcher.Timeline, dev *device.Device, cfg TrafficConfig) *trafficGenerator {
	return &trafficGenerator{
		cfg:      cfg,
		dev:      dev,
		timeline: timeline,
	}
}

// start arms the first packet at a random offset within one interval, so sources do not align.
func (tg *trafficGenerator) start() {
	tg.timer = tg.timeline.Schedule(prng.NewTrafficJitter(tg.cfg.interval()), "traffic", tg.fire)
}

func (tg *trafficGenerator) stop() {
	tg.timer.Cancel()
	tg.timer = nil
}

func (tg *trafficGenerator) fire() {
	maxSize := tg.cfg.MaxSize
	if maxSize == 0 {
		maxSize = tg.cfg.Size
	}
	p := &packet.Packet{
		Dst:  BroadcastDeviceId,
		Size: prng.NewPayloadSize(tg.cfg.Size, maxSize),
	}
	info := device.TxInfo{
		Channel:      tg.cfg.Channel,
		Priority:     tg.cfg.Priority,
		DataRate:     channel.UnknownDataRate,
		TxPowerLevel: channel.MaxTxPowerLevel,
		ExpiryMs:     tg.cfg.ExpiryMs,
	}
	if tg.dev.SendX(p, ProtocolWsmp, info) {
		tg.Sent++
	} else {
		tg.Refused++
	}
	tg.timer = tg.timeline.Schedule(tg.cfg.interval(), "traffic", tg.fire)
}
