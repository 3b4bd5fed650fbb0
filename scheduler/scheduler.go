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

// Package scheduler decides which channel the radio is tuned to and under which access discipline:
// continuous, alternating or extended.
package scheduler

import (
	"time"

	"github.com/pkg/errors"

	"github.com/vanetsim/wave-sim/channel"
	"github.com/vanetsim/wave-sim/coordinator"
	"github.com/vanetsim/wave-sim/dispatcher"
	"github.com/vanetsim/wave-sim/logger"
	. "github.com/vanetsim/wave-sim/types"
)

var (
	ErrInvalidChannel   = errors.New("not a WAVE channel")
	ErrControlChannel   = errors.New("alternating access needs a service channel")
	ErrAlreadyAssigned  = errors.New("another channel access is assigned")
	ErrInvalidExtension = errors.New("extension count must be in 1..254")
)

const (
	// ContinuousExtension is the extension count requesting unbounded access.
	ContinuousExtension = 0xff
)

// Radio is the retuning capability of the PHY.
type Radio interface {
	SetChannel(n channel.Number)
	Channel() channel.Number
}

// BusyNotifier is the MAC capability of holding channel access for a while.
type BusyNotifier interface {
	NotifyBusy(d time.Duration)
}

// Queues is the part of the channel queue set the scheduler drives.
type Queues interface {
	SwitchToChannel(n channel.Number)
	Flush(n channel.Number)
	FlushAlternating(sch channel.Number)
	StartAccessIfNeeded()
}

// Assignment is the channel access currently granted.
type Assignment struct {
	Mode    AccessMode     `yaml:"mode"`
	Channel channel.Number `yaml:"channel"`
	// Extensions is the number of sync intervals left before an extended access is released.
	Extensions uint8 `yaml:"extensions,omitempty"`
}

type Counters struct {
	Assignments  uint64
	Rejections   uint64
	Deferrals    uint64
	Releases     uint64
	AutoReleases uint64
}

type pendingRequest struct {
	mode       AccessMode
	channel    channel.Number
	extensions uint8
	timer      *dispatcher.Timer
}

type Scheduler struct {
	id       DeviceId
	timeline dispatcher.Timeline
	coord    *coordinator.Coordinator
	channels *channel.Registry
	radio    Radio
	queues   Queues
	busy     BusyNotifier

	mode        AccessMode
	channel     channel.Number // 0 when nothing is owned
	extensions  uint8
	pending     *pendingRequest
	extendTimer *dispatcher.Timer
	onChange    func(a Assignment)

	Counters Counters
}

func New(id DeviceId, timeline dispatcher.Timeline, coord *coordinator.Coordinator, channels *channel.Registry,
	radio Radio, queues Queues, busy BusyNotifier) *Scheduler {
	s := &Scheduler{
		id:       id,
		timeline: timeline,
		coord:    coord,
		channels: channels,
		radio:    radio,
		queues:   queues,
		busy:     busy,
		mode:     NoAccess,
	}
	coord.RegisterListener(s.handleCoordinatorEvent)
	return s
}

// SetChangeHandler registers a function called after every assignment and release.
func (s *Scheduler) SetChangeHandler(f func(a Assignment)) {
	s.onChange = f
}

// Access returns the access mode currently assigned.
func (s *Scheduler) Access() AccessMode {
	return s.mode
}

// AccessOn returns the access mode governing channel n.
func (s *Scheduler) AccessOn(n channel.Number) AccessMode {
	if n == channel.CCH && s.mode == AlternatingAccess {
		return AlternatingAccess
	}
	if s.mode != NoAccess && s.channel == n {
		return s.mode
	}
	return NoAccess
}

// Channel returns the owned channel, or 0.
func (s *Scheduler) Channel() channel.Number {
	return s.channel
}

// IsAssigned reports whether channel n is owned. Alternating access always owns the control channel too.
func (s *Scheduler) IsAssigned(n channel.Number) bool {
	switch s.mode {
	case ContinuousAccess, ExtendedAccess:
		return s.channel == n
	case AlternatingAccess:
		return n == channel.CCH || s.channel == n
	default:
		return false
	}
}

// HasPendingRequest reports whether an assignment waits for its interval to begin.
func (s *Scheduler) HasPendingRequest() bool {
	return s.pending != nil
}

// CancelPending drops a request waiting for its interval.
func (s *Scheduler) CancelPending() {
	if s.pending != nil {
		s.pending.timer.Cancel()
		s.pending = nil
	}
}

func (s *Scheduler) Assignment() Assignment {
	a := Assignment{Mode: s.mode, Channel: s.channel}
	if s.mode == ExtendedAccess {
		a.Extensions = s.extensions
		if sync := s.coord.Config().SyncInterval(); s.extendTimer.IsPending() {
			left := min(s.extendTimer.Remaining(), time.Duration(s.extensions)*sync)
			a.Extensions = uint8((left + sync - 1) / sync)
		}
	}
	return a
}

// TimeUntilGuard returns the time left until the next interval boundary.
func (s *Scheduler) TimeUntilGuard() time.Duration {
	return s.coord.TimeUntilGuardInterval(0)
}

func (s *Scheduler) AssignContinuous(n channel.Number, immediate bool) bool {
	return s.TryAssignContinuous(n, immediate) == nil
}

func (s *Scheduler) AssignAlternating(n channel.Number, immediate bool) bool {
	return s.TryAssignAlternating(n, immediate) == nil
}

func (s *Scheduler) AssignExtended(n channel.Number, extensions uint8, immediate bool) bool {
	return s.TryAssignExtended(n, extensions, immediate) == nil
}

// TryAssignContinuous grants continuous access to n. Unless immediate, the retune waits for the interval
// type matching n.
func (s *Scheduler) TryAssignContinuous(n channel.Number, immediate bool) error {
	if !channel.IsWaveChannel(n) {
		return s.reject(errors.Wrapf(ErrInvalidChannel, "channel %d", n))
	}
	if s.mode == ContinuousAccess && s.channel == n {
		return nil
	}
	if queued, err := s.checkFree(ContinuousAccess, n, 0); queued || err != nil {
		return err
	}
	if immediate || s.inRequiredInterval(n) {
		s.occupy(n)
		s.commit(ContinuousAccess, n, 0)
		return nil
	}
	s.deferRequest(ContinuousAccess, n, 0)
	return nil
}

// TryAssignAlternating grants alternating access between the control channel and service channel n.
func (s *Scheduler) TryAssignAlternating(n channel.Number, immediate bool) error {
	if !channel.IsWaveChannel(n) {
		return s.reject(errors.Wrapf(ErrInvalidChannel, "channel %d", n))
	}
	if channel.IsControl(n) {
		return s.reject(ErrControlChannel)
	}
	if s.mode == AlternatingAccess && s.channel == n {
		return nil
	}
	if s.mode != NoAccess || s.pending != nil {
		return s.reject(s.alreadyAssigned(n))
	}

	cfg := s.coord.Config()
	switchNow := immediate || (s.coord.IsServiceInterval(0) && s.coord.TimeUntilGuardInterval(0) <= cfg.MaxSwitchTime)
	if switchNow {
		s.channels.SetState(n, channel.Active)
		s.channels.SetState(channel.CCH, channel.Inactive)
		s.radio.SetChannel(n)
		s.queues.SwitchToChannel(n)
	} else {
		s.channels.SetState(channel.CCH, channel.Active)
		s.channels.SetState(n, channel.Inactive)
	}
	// the coordinator may notify synchronously when started on a boundary, so commit first
	s.commit(AlternatingAccess, n, 0)
	if s.coord.IsStopped() {
		s.coord.Start()
	}
	return nil
}

// TryAssignExtended grants access to n for the given number of sync intervals, after which it is
// released automatically.
func (s *Scheduler) TryAssignExtended(n channel.Number, extensions uint8, immediate bool) error {
	if !channel.IsWaveChannel(n) {
		return s.reject(errors.Wrapf(ErrInvalidChannel, "channel %d", n))
	}
	if s.mode == ExtendedAccess && s.channel == n && extensions <= s.extensions {
		return nil
	}
	if extensions == 0 || extensions == ContinuousExtension {
		return s.reject(errors.Wrapf(ErrInvalidExtension, "got %d", extensions))
	}
	if queued, err := s.checkFree(ExtendedAccess, n, extensions); queued || err != nil {
		return err
	}
	if immediate || s.inRequiredInterval(n) {
		// time spent waiting for the matching interval does not count as extended time
		wait := s.timeUntilRequiredInterval(n)
		s.occupy(n)
		d := time.Duration(extensions) * s.coord.Config().SyncInterval()
		s.extendTimer = s.timeline.Schedule(wait+d, "extended-access-release", func() {
			s.extendTimer = nil
			s.Counters.AutoReleases++
			logger.Debugf("%s: extended access on channel %d expired", GetDeviceName(s.id), n)
			s.Release(n)
		})
		s.commit(ExtendedAccess, n, extensions)
		return nil
	}
	s.deferRequest(ExtendedAccess, n, extensions)
	return nil
}

// Release gives up the access owned on n. Releasing a channel that is not owned does nothing, except
// canceling a request for it that waits for its interval.
func (s *Scheduler) Release(n channel.Number) {
	if p := s.pending; p != nil && p.channel == n {
		logger.Debugf("%s: canceling pending %v request for channel %d", GetDeviceName(s.id), p.mode, n)
		s.CancelPending()
		return
	}
	if !s.IsAssigned(n) {
		logger.Debugf("%s: access to channel %d already released", GetDeviceName(s.id), n)
		return
	}

	owned := s.channel
	switch s.mode {
	case ContinuousAccess, ExtendedAccess:
		s.channels.SetState(owned, channel.Dead)
		s.radio.SetChannel(channel.CCH)
		s.extendTimer.Cancel()
		s.extendTimer = nil
		s.queues.Flush(owned)
	case AlternatingAccess:
		s.channels.SetState(channel.CCH, channel.Dead)
		s.channels.SetState(owned, channel.Dead)
		s.radio.SetChannel(channel.CCH)
		s.queues.FlushAlternating(owned)
		logger.AssertFalse(s.coord.IsStopped(), "alternating access without a running coordinator")
		s.coord.Stop()
	}
	s.queues.SwitchToChannel(channel.CCH)

	logger.Debugf("%s: released %v access on channel %d", GetDeviceName(s.id), s.mode, owned)
	s.mode = NoAccess
	s.channel = 0
	s.extensions = 0
	s.Counters.Releases++
	s.changed()
}

// checkFree fails if a different access is owned or waiting. queued is set when the same request
// already waits for its interval.
func (s *Scheduler) checkFree(mode AccessMode, n channel.Number, extensions uint8) (queued bool, err error) {
	if s.mode != NoAccess {
		return false, s.reject(s.alreadyAssigned(n))
	}
	if p := s.pending; p != nil {
		if p.mode != mode || p.channel != n {
			return false, s.reject(s.alreadyAssigned(n))
		}
		if extensions > p.extensions {
			p.extensions = extensions
		}
		return true, nil
	}
	return false, nil
}

func (s *Scheduler) alreadyAssigned(n channel.Number) error {
	if s.pending != nil {
		return errors.Wrapf(ErrAlreadyAssigned, "%v request for channel %d pending, requested %d",
			s.pending.mode, s.pending.channel, n)
	}
	return errors.Wrapf(ErrAlreadyAssigned, "%v access on channel %d, requested %d", s.mode, s.channel, n)
}

func (s *Scheduler) reject(err error) error {
	s.Counters.Rejections++
	logger.Debugf("%s: channel access refused: %v", GetDeviceName(s.id), err)
	return err
}

func (s *Scheduler) inRequiredInterval(n channel.Number) bool {
	if channel.IsControl(n) {
		return s.coord.IsControlInterval(0)
	}
	return s.coord.IsServiceInterval(0)
}

func (s *Scheduler) timeUntilRequiredInterval(n channel.Number) time.Duration {
	if channel.IsControl(n) {
		return s.coord.TimeUntilControlInterval(0)
	}
	return s.coord.TimeUntilServiceInterval(0)
}

func (s *Scheduler) deferRequest(mode AccessMode, n channel.Number, extensions uint8) {
	wait := s.timeUntilRequiredInterval(n)
	p := &pendingRequest{mode: mode, channel: n, extensions: extensions}
	p.timer = s.timeline.Schedule(wait, "access-retry", func() {
		s.pending = nil
		var err error
		if p.mode == ExtendedAccess {
			err = s.TryAssignExtended(p.channel, p.extensions, false)
		} else {
			err = s.TryAssignContinuous(p.channel, false)
		}
		if err != nil {
			logger.Warnf("%s: deferred %v request for channel %d failed: %v", GetDeviceName(s.id), p.mode, p.channel, err)
		}
	})
	s.pending = p
	s.Counters.Deferrals++
	logger.Debugf("%s: %v request for channel %d waits %v", GetDeviceName(s.id), mode, n, wait)
}

// occupy tunes the radio and the queues to n and activates it.
func (s *Scheduler) occupy(n channel.Number) {
	s.radio.SetChannel(n)
	s.queues.SwitchToChannel(n)
	s.channels.SetState(n, channel.Active)
}

func (s *Scheduler) commit(mode AccessMode, n channel.Number, extensions uint8) {
	s.mode = mode
	s.channel = n
	s.extensions = extensions
	s.Counters.Assignments++
	logger.Debugf("%s: %v access on channel %d", GetDeviceName(s.id), mode, n)
	s.changed()
	s.queues.StartAccessIfNeeded()
}

func (s *Scheduler) changed() {
	if s.onChange != nil {
		s.onChange(s.Assignment())
	}
}

func (s *Scheduler) handleCoordinatorEvent(ev coordinator.Event) {
	logger.AssertTrue(s.mode == AlternatingAccess, "%s: %v while in %v access", GetDeviceName(s.id), ev.Kind, s.mode)
	switch ev.Kind {
	case coordinator.ControlStart:
		s.channels.SetState(s.channel, channel.Inactive)
		s.channels.SetState(channel.CCH, channel.Active)
		s.queues.StartAccessIfNeeded()
	case coordinator.ServiceStart:
		s.channels.SetState(s.channel, channel.Active)
		s.channels.SetState(channel.CCH, channel.Inactive)
		s.queues.StartAccessIfNeeded()
	case coordinator.GuardStart:
		if ev.ControlGuard {
			logger.AssertTrue(s.coord.IsControlInterval(0) && s.coord.IsGuardInterval(0))
			s.radio.SetChannel(channel.CCH)
			s.queues.SwitchToChannel(channel.CCH)
		} else {
			s.radio.SetChannel(s.channel)
			s.queues.SwitchToChannel(s.channel)
		}
		s.busy.NotifyBusy(ev.Duration)
	}
}
