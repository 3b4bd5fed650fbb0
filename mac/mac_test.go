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

package mac

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vanetsim/wave-sim/channel"
	"github.com/vanetsim/wave-sim/dispatcher"
	"github.com/vanetsim/wave-sim/macqueue"
	"github.com/vanetsim/wave-sim/packet"
	"github.com/vanetsim/wave-sim/radio"
	. "github.com/vanetsim/wave-sim/types"
)

type fakeAccess struct {
	mode       AccessMode
	untilGuard time.Duration
}

func (fa *fakeAccess) Access() AccessMode {
	return fa.mode
}

func (fa *fakeAccess) TimeUntilGuard() time.Duration {
	return fa.untilGuard
}

type testMac struct {
	d      *dispatcher.Dispatcher
	reg    *channel.Registry
	medium *radio.BroadcastMedium
	radio  *radio.Radio
	qs     *macqueue.QueueSet
	mac    *Mac
	sent   []*radio.Frame
}

func newTestMac(access *fakeAccess) *testMac {
	tm := &testMac{
		d:      dispatcher.NewDispatcher(nil, nil, nil),
		reg:    channel.NewRegistry(),
		medium: radio.NewBroadcastMedium(),
	}
	tm.radio = radio.New(1, tm.d, tm.medium)
	tm.qs = macqueue.NewQueueSet(tm.d, macqueue.DefaultConfig(), access, tm.reg)
	tm.mac = New(1, tm.d, tm.radio, tm.qs, tm.reg, DefaultConfig())
	tm.mac.SetTxHandler(func(f *radio.Frame, ok bool) {
		if ok {
			tm.sent = append(tm.sent, f)
		}
	})
	return tm
}

func TestMac_TxVectorFor(t *testing.T) {
	tm := newTestMac(&fakeAccess{mode: ContinuousAccess, untilGuard: time.Hour})
	p := &packet.Packet{}
	rate, power := tm.mac.TxVectorFor(p)
	assert.Equal(t, channel.Ofdm6Mbps, rate)
	assert.Equal(t, 4, power)

	p.TxVector = &packet.TxVector{DataRate: channel.Ofdm3Mbps, TxPowerLevel: 7}
	rate, power = tm.mac.TxVectorFor(p)
	assert.Equal(t, channel.Ofdm3Mbps, rate)
	assert.Equal(t, 7, power)

	p.TxVector.Adapter = true
	rate, power = tm.mac.TxVectorFor(p)
	assert.Equal(t, channel.Ofdm6Mbps, rate)
	assert.Equal(t, 4, power)

	p.TxVector = &packet.TxVector{DataRate: channel.Ofdm12Mbps, TxPowerLevel: 2, Adapter: true}
	rate, power = tm.mac.TxVectorFor(p)
	assert.Equal(t, channel.Ofdm12Mbps, rate)
	assert.Equal(t, 2, power)
}

func TestMac_SendsOnActiveChannelOnly(t *testing.T) {
	tm := newTestMac(&fakeAccess{mode: ContinuousAccess, untilGuard: time.Hour})
	tm.qs.Enqueue(&packet.Packet{Id: 1, Channel: channel.CCH, Size: 100})
	tm.d.RunFor(10 * time.Millisecond)
	assert.Empty(t, tm.sent)

	tm.reg.SetState(channel.CCH, channel.Active)
	tm.qs.StartAccessIfNeeded()
	tm.d.RunFor(10 * time.Millisecond)
	assert.Len(t, tm.sent, 1)
	assert.Equal(t, uint64(1), tm.sent[0].Packet.Id)
	assert.Equal(t, uint64(1), tm.mac.Counters.Transmitted)
	assert.Nil(t, tm.qs.Current())
}

func TestMac_NotifyBusyDefersAccess(t *testing.T) {
	tm := newTestMac(&fakeAccess{mode: ContinuousAccess, untilGuard: time.Hour})
	tm.reg.SetState(channel.CCH, channel.Active)
	tm.mac.NotifyBusy(4 * time.Millisecond)
	assert.Equal(t, 4*time.Millisecond, tm.mac.BusyUntil())
	tm.mac.NotifyBusy(time.Millisecond)
	assert.Equal(t, 4*time.Millisecond, tm.mac.BusyUntil())

	tm.qs.Enqueue(&packet.Packet{Channel: channel.CCH, Size: 10, Priority: 7})
	tm.d.RunFor(4 * time.Millisecond)
	assert.Empty(t, tm.sent)
	assert.False(t, tm.radio.IsTransmitting())
	tm.d.RunFor(2 * time.Millisecond)
	assert.Len(t, tm.sent, 1)
	assert.True(t, tm.sent[0].Start >= 4*time.Millisecond)
	assert.Equal(t, uint64(2), tm.mac.Counters.BusyNotifications)
}

func TestMac_BusyDuringBackoffReschedules(t *testing.T) {
	tm := newTestMac(&fakeAccess{mode: ContinuousAccess, untilGuard: time.Hour})
	tm.reg.SetState(channel.CCH, channel.Active)
	tm.qs.Enqueue(&packet.Packet{Channel: channel.CCH, Size: 10})
	tm.mac.NotifyBusy(3 * time.Millisecond)
	tm.d.RunFor(10 * time.Millisecond)
	assert.Len(t, tm.sent, 1)
	assert.True(t, tm.sent[0].Start >= 3*time.Millisecond)
}

func TestMac_DrainsQueueInPriorityOrder(t *testing.T) {
	tm := newTestMac(&fakeAccess{mode: ContinuousAccess, untilGuard: time.Hour})
	tm.reg.SetState(channel.CCH, channel.Active)
	tm.qs.Enqueue(&packet.Packet{Id: 1, Channel: channel.CCH, Size: 10, Priority: 1})
	tm.qs.Enqueue(&packet.Packet{Id: 2, Channel: channel.CCH, Size: 10, Priority: 5})
	tm.qs.Enqueue(&packet.Packet{Id: 3, Channel: channel.CCH, Size: 10, Priority: 7})
	tm.d.RunFor(20 * time.Millisecond)

	var ids []uint64
	for _, f := range tm.sent {
		ids = append(ids, f.Packet.Id)
	}
	assert.Equal(t, []uint64{3, 2, 1}, ids)
}

func TestMac_ReceiveHandler(t *testing.T) {
	tm := newTestMac(&fakeAccess{mode: ContinuousAccess, untilGuard: time.Hour})
	other := radio.New(2, tm.d, tm.medium)
	var got []*radio.Frame
	tm.mac.SetReceiveHandler(func(f *radio.Frame) { got = append(got, f) })

	other.Transmit(&packet.Packet{Size: 20}, channel.Ofdm6Mbps, 4)
	tm.d.RunFor(time.Millisecond)
	assert.Len(t, got, 1)
	assert.Equal(t, uint64(1), tm.mac.Counters.Received)
}
