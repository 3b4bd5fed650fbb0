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

// Package coordinator implements the channel-interval timeline: a self-perpetuating alternation of
// control and service intervals, each starting with a guard interval, phase-locked to UTC seconds.
package coordinator

import (
	"time"

	"github.com/vanetsim/wave-sim/dispatcher"
	"github.com/vanetsim/wave-sim/logger"
)

type Counters struct {
	GuardStarts   uint64
	ControlStarts uint64
	ServiceStarts uint64
}

// Coordinator runs the interval timeline on a dispatcher.Timeline. It holds at most one armed timer.
type Coordinator struct {
	timeline dispatcher.Timeline
	cfg      IntervalConfig
	handlers []Handler

	guardCount uint64 // parity after increment selects the next interval; 0 means stopped
	generation uint64 // bumped on Start and Stop, so an in-flight notification does not re-arm
	timer      *dispatcher.Timer
	Counters   Counters
}

// New creates a stopped Coordinator using the default interval configuration.
func New(timeline dispatcher.Timeline) *Coordinator {
	return &Coordinator{
		timeline: timeline,
		cfg:      DefaultIntervalConfig(),
	}
}

// Configure validates and applies cfg. The timeline must be stopped.
func (c *Coordinator) Configure(cfg IntervalConfig) error {
	logger.AssertTrue(c.IsStopped(), "coordinator configured while running")
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.cfg = cfg
	return nil
}

func (c *Coordinator) Config() IntervalConfig {
	return c.cfg
}

// RegisterListener appends h to the ordered list of handlers.
func (c *Coordinator) RegisterListener(h Handler) {
	logger.AssertNotNil(h)
	c.handlers = append(c.handlers, h)
}

// Start begins the timeline from the current phase. Starting a running coordinator is a sequencing bug.
func (c *Coordinator) Start() {
	logger.AssertTrue(c.IsStopped(), "coordinator already started")
	c.generation++

	now := c.Phase(0)
	cch := c.cfg.ControlInterval
	switch {
	case now == 0:
		c.guardCount = 1
		c.onGuardExpire()
	case now < cch:
		c.guardCount = 2
		c.arm(cch-now, c.onGuardExpire)
	case now == cch:
		c.guardCount = 2
		c.onGuardExpire()
	default:
		c.guardCount = 1
		c.arm(c.cfg.SyncInterval()-now, c.onGuardExpire)
	}
	logger.Debugf("coordinator started at phase %v", now)
}

// Stop cancels the pending timer. Stopping a stopped coordinator is a sequencing bug.
func (c *Coordinator) Stop() {
	logger.AssertFalse(c.IsStopped(), "coordinator already stopped")
	c.generation++
	c.timer.Cancel()
	c.timer = nil
	c.guardCount = 0
	logger.Debugf("coordinator stopped")
}

func (c *Coordinator) IsStopped() bool {
	return c.guardCount == 0
}

func (c *Coordinator) arm(delay time.Duration, f func()) {
	c.timer = c.timeline.Schedule(delay, "coordinator", f)
}

// onGuardExpire enters a guard interval. The parity of the incremented counter selects whether it leads
// into a control or a service slot.
func (c *Coordinator) onGuardExpire() {
	guard := c.cfg.GuardInterval()
	c.guardCount++
	inControl := c.guardCount%2 == 0
	c.Counters.GuardStarts++

	gen := c.generation
	c.notify(Event{Kind: GuardStart, Duration: guard, ControlGuard: inControl, At: c.timeline.Now()})
	if gen != c.generation {
		return
	}
	if inControl {
		c.arm(guard, c.onControlStart)
	} else {
		c.arm(guard, c.onServiceStart)
	}
}

func (c *Coordinator) onControlStart() {
	c.Counters.ControlStarts++
	c.enterSlot(ControlStart, c.cfg.ControlSlot())
}

func (c *Coordinator) onServiceStart() {
	c.Counters.ServiceStarts++
	c.enterSlot(ServiceStart, c.cfg.ServiceSlot())
}

func (c *Coordinator) enterSlot(kind EventKind, slot time.Duration) {
	gen := c.generation
	c.notify(Event{Kind: kind, Duration: slot, At: c.timeline.Now()})
	if gen != c.generation {
		return
	}
	c.arm(slot, c.onGuardExpire)
}

func (c *Coordinator) notify(ev Event) {
	logger.Tracef("coordinator %s start, duration %v", ev.Kind, ev.Duration)
	for _, h := range c.handlers {
		h(ev)
	}
}
