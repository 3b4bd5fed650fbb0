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

// Package mac implements outside-the-context-of-a-BSS channel access on top of the per-channel queues.
package mac

import (
	"time"

	"github.com/vanetsim/wave-sim/channel"
	"github.com/vanetsim/wave-sim/dispatcher"
	"github.com/vanetsim/wave-sim/logger"
	"github.com/vanetsim/wave-sim/macqueue"
	"github.com/vanetsim/wave-sim/packet"
	"github.com/vanetsim/wave-sim/prng"
	"github.com/vanetsim/wave-sim/radio"
	. "github.com/vanetsim/wave-sim/types"
)

type Config struct {
	DataRate     channel.DataRate
	TxPowerLevel int
	Edca         [macqueue.NumAccessCategories]macqueue.EdcaParameters
}

func DefaultConfig() Config {
	return Config{
		DataRate:     channel.DefaultDataRate,
		TxPowerLevel: channel.DefaultTxPowerLevel,
		Edca:         macqueue.DefaultEdcaParameters(),
	}
}

type Counters struct {
	BusyNotifications uint64
	AccessAttempts    uint64
	Transmitted       uint64
	TxAborted         uint64
	Received          uint64
}

// ReceiveHandler gets every frame the radio received.
type ReceiveHandler func(f *radio.Frame)

// TxHandler gets every frame whose transmission ended; ok is false when it was aborted.
type TxHandler func(f *radio.Frame, ok bool)

type Mac struct {
	id       DeviceId
	timeline dispatcher.Timeline
	radio    *radio.Radio
	queues   *macqueue.QueueSet
	channels macqueue.ChannelStates
	cfg      Config

	busyUntil   time.Duration
	accessTimer *dispatcher.Timer
	onRx        ReceiveHandler
	onTx        TxHandler

	Counters Counters
}

func New(id DeviceId, timeline dispatcher.Timeline, r *radio.Radio, queues *macqueue.QueueSet, channels macqueue.ChannelStates, cfg Config) *Mac {
	if !cfg.DataRate.IsValid() {
		cfg.DataRate = channel.DefaultDataRate
	}
	m := &Mac{
		id:       id,
		timeline: timeline,
		radio:    r,
		queues:   queues,
		channels: channels,
		cfg:      cfg,
	}
	r.SetTxDoneHandler(m.txDone)
	r.SetRxHandler(m.receive)
	queues.SetAccessRequester(m.StartAccessIfNeeded)
	return m
}

func (m *Mac) SetReceiveHandler(h ReceiveHandler) {
	m.onRx = h
}

func (m *Mac) SetTxHandler(h TxHandler) {
	m.onTx = h
}

func (m *Mac) Config() Config {
	return m.cfg
}

// ConfigureEdca replaces the contention parameters of one access category.
func (m *Mac) ConfigureEdca(ac macqueue.AccessCategory, params macqueue.EdcaParameters) {
	logger.AssertTrue(ac >= macqueue.AcBK && ac <= macqueue.AcVO, "invalid access category %d", ac)
	m.cfg.Edca[ac] = params
}

// NotifyBusy marks the medium busy for d from now. Pending channel access waits until it is idle.
func (m *Mac) NotifyBusy(d time.Duration) {
	m.Counters.BusyNotifications++
	until := m.timeline.Now() + d
	if until <= m.busyUntil {
		return
	}
	m.busyUntil = until
	if m.accessTimer.IsPending() {
		m.accessTimer.Cancel()
		m.accessTimer = nil
		m.StartAccessIfNeeded()
	}
}

// BusyUntil returns the end of the current busy period.
func (m *Mac) BusyUntil() time.Duration {
	return m.busyUntil
}

// StartAccessIfNeeded starts an EDCA access for the highest pending access category of the active queue.
func (m *Mac) StartAccessIfNeeded() {
	if m.accessTimer.IsPending() || m.radio.IsTransmitting() || m.queues.Current() != nil {
		return
	}
	if !m.channels.IsActive(m.queues.ActiveChannel()) {
		return
	}
	ac, ok := m.queues.HighestPending()
	if !ok {
		return
	}
	params := m.cfg.Edca[ac]
	delay := params.Aifs() + time.Duration(prng.NewBackoffSlots(params.CwMin))*macqueue.SlotTime
	if now := m.timeline.Now(); m.busyUntil > now {
		delay += m.busyUntil - now
	}
	m.accessTimer = m.timeline.Schedule(delay, "mac-access", m.access)
}

func (m *Mac) access() {
	m.accessTimer = nil
	if m.timeline.Now() < m.busyUntil {
		m.StartAccessIfNeeded()
		return
	}
	if !m.channels.IsActive(m.queues.ActiveChannel()) {
		return
	}
	m.Counters.AccessAttempts++
	p := m.queues.NextPacket(m.TxTime)
	if p == nil {
		logger.Tracef("%s: nothing admitted on channel %d", GetDeviceName(m.id), m.queues.ActiveChannel())
		return
	}
	rate, power := m.TxVectorFor(p)
	m.radio.Transmit(p, rate, power)
}

// TxTime returns the air time p would take with its effective tx vector.
func (m *Mac) TxTime(p *packet.Packet) time.Duration {
	rate, _ := m.TxVectorFor(p)
	return radio.TxDuration(p.FrameSize(), rate)
}

// TxVectorFor returns the rate and power level p is sent with. A requested vector is used as is, unless
// it is adaptable: then its rate is a lower bound and its power level an upper bound on the MAC defaults.
func (m *Mac) TxVectorFor(p *packet.Packet) (channel.DataRate, int) {
	rate, power := m.cfg.DataRate, m.cfg.TxPowerLevel
	tv := p.TxVector
	if tv == nil {
		return rate, power
	}
	if !tv.Adapter {
		if tv.DataRate.IsValid() {
			rate = tv.DataRate
		}
		return rate, tv.TxPowerLevel
	}
	if tv.DataRate.IsValid() && tv.DataRate.BitsPerSecond() > rate.BitsPerSecond() {
		rate = tv.DataRate
	}
	if tv.TxPowerLevel < power {
		power = tv.TxPowerLevel
	}
	return rate, power
}

func (m *Mac) txDone(f *radio.Frame, ok bool) {
	m.queues.TxDone(f.Packet)
	if ok {
		m.Counters.Transmitted++
	} else {
		m.Counters.TxAborted++
	}
	if m.onTx != nil {
		m.onTx(f, ok)
	}
	m.StartAccessIfNeeded()
}

func (m *Mac) receive(f *radio.Frame) {
	m.Counters.Received++
	if m.onRx != nil {
		m.onRx(f)
	}
}

// Stop cancels a pending channel access.
func (m *Mac) Stop() {
	m.accessTimer.Cancel()
	m.accessTimer = nil
}
