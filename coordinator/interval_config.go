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
	"fmt"
	"time"
)

const (
	DefaultControlInterval = 50 * time.Millisecond
	DefaultServiceInterval = 50 * time.Millisecond
	DefaultSyncTolerance   = 2 * time.Millisecond
	DefaultMaxSwitchTime   = 2 * time.Millisecond

	// utcSecond is the period every sync interval must divide evenly.
	utcSecond = time.Second
)

// IntervalConfig holds the durations of the channel-interval timeline.
type IntervalConfig struct {
	ControlInterval time.Duration `yaml:"control"`
	ServiceInterval time.Duration `yaml:"service"`
	SyncTolerance   time.Duration `yaml:"sync_tolerance"`
	MaxSwitchTime   time.Duration `yaml:"max_switch_time"`
}

func DefaultIntervalConfig() IntervalConfig {
	return IntervalConfig{
		ControlInterval: DefaultControlInterval,
		ServiceInterval: DefaultServiceInterval,
		SyncTolerance:   DefaultSyncTolerance,
		MaxSwitchTime:   DefaultMaxSwitchTime,
	}
}

// SyncInterval is the period of one control interval plus one service interval.
func (c IntervalConfig) SyncInterval() time.Duration {
	return c.ControlInterval + c.ServiceInterval
}

// GuardInterval is the window at the start of each interval in which the radio may be retuning.
func (c IntervalConfig) GuardInterval() time.Duration {
	return c.SyncTolerance + c.MaxSwitchTime
}

// ControlSlot is the usable part of the control interval, after its guard.
func (c IntervalConfig) ControlSlot() time.Duration {
	return c.ControlInterval - c.GuardInterval()
}

// ServiceSlot is the usable part of the service interval, after its guard.
func (c IntervalConfig) ServiceSlot() time.Duration {
	return c.ServiceInterval - c.GuardInterval()
}

// ConfigurationError reports an IntervalConfig that cannot drive the timeline.
type ConfigurationError struct {
	Config IntervalConfig
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid interval config (control=%v service=%v tolerance=%v switch=%v): %s",
		e.Config.ControlInterval, e.Config.ServiceInterval, e.Config.SyncTolerance, e.Config.MaxSwitchTime,
		e.Reason)
}

// Validate checks that the sync interval divides one UTC second in whole milliseconds and that both
// intervals can hold a guard interval.
func (c IntervalConfig) Validate() error {
	if c.ControlInterval <= 0 || c.ServiceInterval <= 0 || c.SyncTolerance < 0 || c.MaxSwitchTime < 0 {
		return &ConfigurationError{c, "durations must be positive"}
	}
	sync := c.SyncInterval()
	if sync%time.Millisecond != 0 || utcSecond%sync != 0 {
		return &ConfigurationError{c, "every UTC second shall be an integer number of sync intervals"}
	}
	if c.ControlInterval < c.GuardInterval() {
		return &ConfigurationError{c, "control interval shorter than guard interval"}
	}
	if c.ServiceInterval < c.GuardInterval() {
		return &ConfigurationError{c, "service interval shorter than guard interval"}
	}
	return nil
}
