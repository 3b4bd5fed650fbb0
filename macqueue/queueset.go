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

// Package macqueue holds the per-channel outbound queues of a device, one set per access category, and
// decides which packet may go on air next.
package macqueue

import (
	"time"

	"github.com/vanetsim/wave-sim/channel"
	"github.com/vanetsim/wave-sim/dispatcher"
	"github.com/vanetsim/wave-sim/logger"
	"github.com/vanetsim/wave-sim/packet"
	. "github.com/vanetsim/wave-sim/types"
)

// AccessInfo exposes the access state the admission guard depends on.
type AccessInfo interface {
	Access() AccessMode
	TimeUntilGuard() time.Duration
}

// ChannelStates tells whether a channel is currently active.
type ChannelStates interface {
	IsActive(n channel.Number) bool
}

type Config struct {
	MaxDelay time.Duration
	MaxSize  int
	// SweepInterval is the period of the expiry sweep; 0 disables it.
	SweepInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxDelay:      DefaultMaxDelay,
		MaxSize:       DefaultMaxSize,
		SweepInterval: 100 * time.Millisecond,
	}
}

type Counters struct {
	Enqueued      uint64
	DroppedFull   uint64
	Expired       uint64
	Flushed       uint64
	Deferred      uint64
	Dequeued      uint64
	Aborted       uint64
	QueueSwitches uint64
}

// acQueues is the queue map of one access category and the queue wired to its transmit path.
type acQueues struct {
	queues map[channel.Number]*Queue
	active channel.Number
}

// QueueSet routes outbound packets to the queue of their destination channel and keeps one queue per
// access category wired to the transmit path.
type QueueSet struct {
	timeline dispatcher.Timeline
	cfg      Config
	access   AccessInfo
	channels ChannelStates
	acs      [NumAccessCategories]*acQueues

	current       *packet.Packet // packet on air, nil if none
	requestAccess func()
	sweepTimer    *dispatcher.Timer
	Counters      Counters
}

// NewQueueSet creates the queue set with the control channel queue wired to the transmit path.
func NewQueueSet(timeline dispatcher.Timeline, cfg Config, access AccessInfo, channels ChannelStates) *QueueSet {
	qs := &QueueSet{
		timeline: timeline,
		cfg:      cfg,
		access:   access,
		channels: channels,
	}
	for i := range qs.acs {
		qs.acs[i] = &acQueues{
			queues: map[channel.Number]*Queue{},
			active: channel.CCH,
		}
		qs.acs[i].queues[channel.CCH] = NewQueue(cfg.MaxDelay, cfg.MaxSize)
	}
	return qs
}

// SetAccessRequester sets the callback used to ask the MAC to contend for the medium.
func (qs *QueueSet) SetAccessRequester(f func()) {
	qs.requestAccess = f
}

func (qs *QueueSet) queue(ac AccessCategory, n channel.Number) *Queue {
	acq := qs.acs[ac]
	q := acq.queues[n]
	if q == nil {
		q = NewQueue(qs.cfg.MaxDelay, qs.cfg.MaxSize)
		acq.queues[n] = q
	}
	return q
}

// Enqueue appends p to the queue of its destination channel and access category. If that channel is
// active, the MAC is asked to start access; otherwise the packet waits.
func (qs *QueueSet) Enqueue(p *packet.Packet) bool {
	logger.AssertTrue(channel.IsWaveChannel(p.Channel), "packet for invalid channel %d", p.Channel)
	q := qs.queue(AcFromPriority(p.Priority), p.Channel)
	if !q.Enqueue(p, qs.timeline.Now()) {
		qs.Counters.DroppedFull++
		logger.Debugf("queue of channel %d full, dropping %v", p.Channel, p)
		return false
	}
	qs.Counters.Enqueued++
	if qs.channels.IsActive(p.Channel) {
		qs.StartAccessIfNeeded()
	}
	return true
}

// SwitchToChannel wires the queues of channel n to the transmit path. No packet may be on air.
func (qs *QueueSet) SwitchToChannel(n channel.Number) {
	logger.AssertTrue(qs.current == nil, "queue switch to channel %d while %v is on air", n, qs.current)
	for ac := range qs.acs {
		qs.queue(AccessCategory(ac), n)
		qs.acs[ac].active = n
	}
	qs.Counters.QueueSwitches++
}

// ActiveChannel returns the channel whose queues are wired to the transmit path.
func (qs *QueueSet) ActiveChannel() channel.Number {
	return qs.acs[AcBE].active
}

// Flush discards the queued packets of channel n in every access category. A packet on air is released.
func (qs *QueueSet) Flush(n channel.Number) {
	for ac := range qs.acs {
		if q := qs.acs[ac].queues[n]; q != nil {
			qs.Counters.Flushed += uint64(q.Flush())
		}
	}
	qs.releaseCurrent()
}

// FlushAlternating discards the control channel queues and those of the service channel sch.
func (qs *QueueSet) FlushAlternating(sch channel.Number) {
	logger.AssertTrue(qs.access.Access() == AlternatingAccess)
	qs.Flush(channel.CCH)
	qs.Flush(sch)
}

func (qs *QueueSet) releaseCurrent() {
	if qs.current != nil {
		logger.Debugf("releasing %v on air", qs.current)
		qs.Counters.Aborted++
		qs.current = nil
	}
}

// StartAccessIfNeeded asks the MAC to contend if a wired queue holds packets.
func (qs *QueueSet) StartAccessIfNeeded() {
	if qs.requestAccess != nil && qs.HasPending() {
		qs.requestAccess()
	}
}

// HasPending reports whether any queue wired to the transmit path holds a packet.
func (qs *QueueSet) HasPending() bool {
	for _, acq := range qs.acs {
		if q := acq.queues[acq.active]; q != nil && q.Len() > 0 {
			return true
		}
	}
	return false
}

// HighestPending returns the highest access category with a packet in its wired queue.
func (qs *QueueSet) HighestPending() (AccessCategory, bool) {
	for ac := AcVO; ac >= AcBK; ac-- {
		acq := qs.acs[ac]
		if q := acq.queues[acq.active]; q != nil && q.Len() > 0 {
			return ac, true
		}
	}
	return AcBE, false
}

// NextPacket hands the next packet of the wired queues to the MAC, highest access category first,
// after dropping expired packets. Under alternating access a packet whose air time txTime does not end
// before the next guard goes back to the front of its queue.
func (qs *QueueSet) NextPacket(txTime func(p *packet.Packet) time.Duration) *packet.Packet {
	logger.AssertTrue(qs.current == nil)
	now := qs.timeline.Now()
	for ac := AcVO; ac >= AcBK; ac-- {
		acq := qs.acs[ac]
		q := acq.queues[acq.active]
		if q == nil {
			continue
		}
		qs.Counters.Expired += uint64(q.Cleanup(now))
		p := q.Dequeue()
		if p == nil {
			continue
		}
		if qs.access.Access() == AlternatingAccess {
			d, remaining := txTime(p), qs.access.TimeUntilGuard()
			if d >= remaining {
				logger.Debugf("transmission time %v, remaining %v, %v queued again", d, remaining, p)
				q.PushFront(p)
				qs.Counters.Deferred++
				continue
			}
		}
		qs.current = p
		qs.Counters.Dequeued++
		return p
	}
	return nil
}

// Current returns the packet on air, or nil.
func (qs *QueueSet) Current() *packet.Packet {
	return qs.current
}

// TxDone marks the packet on air as sent.
func (qs *QueueSet) TxDone(p *packet.Packet) {
	if qs.current == p {
		qs.current = nil
	}
}

// Len returns the number of queued packets of channel n over all access categories.
func (qs *QueueSet) Len(n channel.Number) int {
	total := 0
	for _, acq := range qs.acs {
		if q := acq.queues[n]; q != nil {
			total += q.Len()
		}
	}
	return total
}

// Cleanup drops expired packets from every queue.
func (qs *QueueSet) Cleanup() int {
	now := qs.timeline.Now()
	dropped := 0
	for _, acq := range qs.acs {
		for _, q := range acq.queues {
			dropped += q.Cleanup(now)
		}
	}
	qs.Counters.Expired += uint64(dropped)
	return dropped
}

// StartExpirySweep arms the periodic expiry sweep.
func (qs *QueueSet) StartExpirySweep() {
	if qs.cfg.SweepInterval <= 0 || qs.sweepTimer.IsPending() {
		return
	}
	qs.sweepTimer = qs.timeline.Schedule(qs.cfg.SweepInterval, "expiry-sweep", func() {
		qs.sweepTimer = nil
		if n := qs.Cleanup(); n > 0 {
			logger.Tracef("expiry sweep dropped %d packets", n)
		}
		qs.StartExpirySweep()
	})
}

func (qs *QueueSet) StopExpirySweep() {
	qs.sweepTimer.Cancel()
	qs.sweepTimer = nil
}
