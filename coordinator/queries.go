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

package coordinator

import (
	"time"
)

// The queries below take an offset into the future; 0 queries the present.

// Phase returns (now + offset) modulo the sync interval.
func (c *Coordinator) Phase(offset time.Duration) time.Duration {
	t := c.timeline.Now() + offset
	sync := c.cfg.SyncInterval()
	return t - (t/sync)*sync
}

// intervalTime is the time elapsed since the start of the control or service interval containing
// the queried phase.
func (c *Coordinator) intervalTime(offset time.Duration) time.Duration {
	phase := c.Phase(offset)
	if phase < c.cfg.ControlInterval {
		return phase
	}
	return phase - c.cfg.ControlInterval
}

// halfSyncTolerance is half the sync tolerance, truncated to whole milliseconds.
func (c *Coordinator) halfSyncTolerance() time.Duration {
	return time.Duration(c.cfg.SyncTolerance.Milliseconds()/2) * time.Millisecond
}

func (c *Coordinator) IsControlInterval(offset time.Duration) bool {
	return c.Phase(offset) < c.cfg.ControlInterval
}

func (c *Coordinator) IsServiceInterval(offset time.Duration) bool {
	return !c.IsControlInterval(offset)
}

// IsGuardInterval reports whether the queried time lies in the guard at the start of an interval.
func (c *Coordinator) IsGuardInterval(offset time.Duration) bool {
	return c.intervalTime(offset) < c.cfg.GuardInterval()
}

// IsInSyncTolerance reports whether the queried time lies in one of the two receive-tolerance zones
// of a guard: before or after the switching zone.
func (c *Coordinator) IsInSyncTolerance(offset time.Duration) bool {
	interval := c.intervalTime(offset)
	half := c.halfSyncTolerance()
	if interval < half {
		return true
	}
	return interval >= half+c.cfg.MaxSwitchTime && interval < c.cfg.GuardInterval()
}

// IsInMaxSwitchTime reports whether the queried time lies in the retuning zone in the middle of a guard.
func (c *Coordinator) IsInMaxSwitchTime(offset time.Duration) bool {
	interval := c.intervalTime(offset)
	half := c.halfSyncTolerance()
	return interval >= half && interval < half+c.cfg.MaxSwitchTime
}

// TimeUntilControlInterval returns 0 inside a control interval, else the time until the next one.
func (c *Coordinator) TimeUntilControlInterval(offset time.Duration) time.Duration {
	if c.IsControlInterval(offset) {
		return 0
	}
	return c.cfg.SyncInterval() - c.Phase(offset)
}

// TimeUntilServiceInterval returns 0 inside a service interval, else the time until the next one.
func (c *Coordinator) TimeUntilServiceInterval(offset time.Duration) time.Duration {
	if c.IsServiceInterval(offset) {
		return 0
	}
	return c.cfg.ControlInterval - c.Phase(offset)
}

// TimeUntilGuardInterval returns the time until the next interval boundary.
func (c *Coordinator) TimeUntilGuardInterval(offset time.Duration) time.Duration {
	phase := c.Phase(offset)
	if phase < c.cfg.ControlInterval {
		return c.cfg.ControlInterval - phase
	}
	return c.cfg.SyncInterval() - phase
}
