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

// Package radio models the WAVE PHY: a half-duplex radio tuned to one channel at a time and the shared
// broadcast medium the radios transmit on.
package radio

import (
	"time"

	"github.com/vanetsim/wave-sim/channel"
	"github.com/vanetsim/wave-sim/dispatcher"
	"github.com/vanetsim/wave-sim/logger"
	"github.com/vanetsim/wave-sim/packet"
	. "github.com/vanetsim/wave-sim/types"
)

const (
	// PreambleAndHeader is the PLCP preamble plus SIGNAL field duration of 10 MHz OFDM.
	PreambleAndHeader = 40 * time.Microsecond
	// SymbolTime is the 10 MHz OFDM symbol duration.
	SymbolTime = 8 * time.Microsecond

	serviceBits = 16
	tailBits    = 6
)

// Frame is a packet on air.
type Frame struct {
	Packet       *packet.Packet
	Src          DeviceId
	Channel      channel.Number
	DataRate     channel.DataRate
	TxPowerLevel int
	Start        time.Duration
	Duration     time.Duration
}

type Counters struct {
	Retunes      uint64
	TxStarted    uint64
	TxDone       uint64
	TxAborted    uint64
	RxFrames     uint64
	RxOffChannel uint64
	RxWhileTx    uint64
}

// TxDone is invoked when a transmission ends; ok is false if it was aborted.
type TxDoneHandler func(f *Frame, ok bool)

// RxHandler is invoked for every frame received on the tuned channel.
type RxHandler func(f *Frame)

type Radio struct {
	Id       DeviceId
	timeline dispatcher.Timeline
	medium   Medium
	channel  channel.Number

	txFrame *Frame
	txTimer *dispatcher.Timer
	onTx    TxDoneHandler
	onRx    RxHandler

	Counters Counters
}

// New creates a radio tuned to the control channel and attaches it to the medium.
func New(id DeviceId, timeline dispatcher.Timeline, medium Medium) *Radio {
	r := &Radio{
		Id:       id,
		timeline: timeline,
		medium:   medium,
		channel:  channel.CCH,
	}
	if medium != nil {
		medium.Attach(r)
	}
	return r
}

func (r *Radio) SetTxDoneHandler(h TxDoneHandler) {
	r.onTx = h
}

func (r *Radio) SetRxHandler(h RxHandler) {
	r.onRx = h
}

func (r *Radio) Channel() channel.Number {
	return r.channel
}

// SetChannel retunes the radio. A frame still on air is aborted.
func (r *Radio) SetChannel(n channel.Number) {
	logger.AssertTrue(channel.IsWaveChannel(n), "retune to invalid channel %d", n)
	if n == r.channel {
		return
	}
	if r.txFrame != nil {
		logger.Debugf("%s: retune to %d aborts %v", GetDeviceName(r.Id), n, r.txFrame.Packet)
		r.finishTx(false)
	}
	logger.Tracef("%s: retune %d -> %d", GetDeviceName(r.Id), r.channel, n)
	r.channel = n
	r.Counters.Retunes++
}

func (r *Radio) IsTransmitting() bool {
	return r.txFrame != nil
}

// Transmit puts p on air on the tuned channel.
func (r *Radio) Transmit(p *packet.Packet, rate channel.DataRate, powerLevel int) *Frame {
	logger.AssertTrue(r.txFrame == nil, "%s: transmit while busy", GetDeviceName(r.Id))
	f := &Frame{
		Packet:       p,
		Src:          r.Id,
		Channel:      r.channel,
		DataRate:     rate,
		TxPowerLevel: powerLevel,
		Start:        r.timeline.Now(),
		Duration:     TxDuration(p.FrameSize(), rate),
	}
	r.txFrame = f
	r.Counters.TxStarted++
	r.txTimer = r.timeline.Schedule(f.Duration, "radio-tx-done", func() {
		r.txTimer = nil
		r.finishTx(true)
	})
	return f
}

func (r *Radio) finishTx(ok bool) {
	f := r.txFrame
	r.txFrame = nil
	r.txTimer.Cancel()
	r.txTimer = nil
	if ok {
		r.Counters.TxDone++
		if r.medium != nil {
			r.medium.Deliver(r, f)
		}
	} else {
		r.Counters.TxAborted++
	}
	if r.onTx != nil {
		r.onTx(f, ok)
	}
}

func (r *Radio) receive(f *Frame) {
	if f.Channel != r.channel {
		r.Counters.RxOffChannel++
		return
	}
	if r.txFrame != nil {
		r.Counters.RxWhileTx++
		return
	}
	r.Counters.RxFrames++
	if r.onRx != nil {
		r.onRx(f)
	}
}

// TxDuration returns the air time of a frameBytes long MPDU at the given 10 MHz OFDM rate.
func TxDuration(frameBytes int, rate channel.DataRate) time.Duration {
	if !rate.IsValid() {
		rate = channel.DefaultDataRate
	}
	ndbps := rate.DataBitsPerSymbol()
	bits := serviceBits + tailBits + 8*frameBytes
	symbols := (bits + ndbps - 1) / ndbps
	return PreambleAndHeader + time.Duration(symbols)*SymbolTime
}
