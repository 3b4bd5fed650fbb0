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

package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vanetsim/wave-sim/channel"
	"github.com/vanetsim/wave-sim/coordinator"
	"github.com/vanetsim/wave-sim/dispatcher"
	"github.com/vanetsim/wave-sim/radio"
	. "github.com/vanetsim/wave-sim/types"
)

const ms = time.Millisecond

type fakeQueues struct {
	switches    []channel.Number
	flushed     []channel.Number
	flushedAlt  []channel.Number
	accessCalls int
	onSwitch    func(n channel.Number)
}

func (fq *fakeQueues) SwitchToChannel(n channel.Number) {
	fq.switches = append(fq.switches, n)
	if fq.onSwitch != nil {
		fq.onSwitch(n)
	}
}

func (fq *fakeQueues) Flush(n channel.Number) {
	fq.flushed = append(fq.flushed, n)
}

func (fq *fakeQueues) FlushAlternating(sch channel.Number) {
	fq.flushedAlt = append(fq.flushedAlt, sch)
}

func (fq *fakeQueues) StartAccessIfNeeded() {
	fq.accessCalls++
}

type fakeBusy struct {
	periods []time.Duration
}

func (fb *fakeBusy) NotifyBusy(d time.Duration) {
	fb.periods = append(fb.periods, d)
}

type testScheduler struct {
	d      *dispatcher.Dispatcher
	coord  *coordinator.Coordinator
	reg    *channel.Registry
	radio  *radio.Radio
	queues *fakeQueues
	busy   *fakeBusy
	s      *Scheduler
}

func newTestScheduler() *testScheduler {
	ts := &testScheduler{
		d:      dispatcher.NewDispatcher(nil, nil, nil),
		reg:    channel.NewRegistry(),
		queues: &fakeQueues{},
		busy:   &fakeBusy{},
	}
	ts.coord = coordinator.New(ts.d)
	ts.radio = radio.New(1, ts.d, nil)
	ts.s = New(1, ts.d, ts.coord, ts.reg, ts.radio, ts.queues, ts.busy)
	return ts
}

func (ts *testScheduler) lastSwitch() channel.Number {
	if len(ts.queues.switches) == 0 {
		return 0
	}
	return ts.queues.switches[len(ts.queues.switches)-1]
}

func TestContinuous_ImmediateAdmission(t *testing.T) {
	ts := newTestScheduler()
	assert.NoError(t, ts.s.TryAssignContinuous(channel.SCH1, true))
	assert.Equal(t, ContinuousAccess, ts.s.Access())
	assert.Equal(t, channel.SCH1, ts.s.Channel())
	assert.Equal(t, channel.SCH1, ts.radio.Channel())
	assert.Equal(t, channel.SCH1, ts.lastSwitch())
	assert.True(t, ts.reg.IsActive(channel.SCH1))
	assert.True(t, ts.s.IsAssigned(channel.SCH1))
	assert.False(t, ts.s.IsAssigned(channel.CCH))
	assert.Equal(t, ContinuousAccess, ts.s.AccessOn(channel.SCH1))
	assert.Equal(t, NoAccess, ts.s.AccessOn(channel.CCH))
	assert.True(t, ts.coord.IsStopped())

	// idempotent on the owned channel
	retunes := ts.radio.Counters.Retunes
	switches := len(ts.queues.switches)
	assert.True(t, ts.s.AssignContinuous(channel.SCH1, false))
	assert.True(t, ts.s.AssignContinuous(channel.SCH1, true))
	assert.Equal(t, uint64(1), ts.s.Counters.Assignments)
	assert.Equal(t, retunes, ts.radio.Counters.Retunes)
	assert.Len(t, ts.queues.switches, switches)

	assert.ErrorIs(t, ts.s.TryAssignContinuous(channel.SCH2, true), ErrAlreadyAssigned)
	assert.False(t, ts.s.AssignAlternating(channel.SCH2, true))
	assert.False(t, ts.s.AssignExtended(channel.SCH1, 2, true))
	assert.Equal(t, uint64(3), ts.s.Counters.Rejections)
	assert.ErrorIs(t, ts.s.TryAssignContinuous(171, true), ErrInvalidChannel)
}

func TestContinuous_WaitsForMatchingInterval(t *testing.T) {
	ts := newTestScheduler()
	assert.True(t, ts.s.AssignContinuous(channel.SCH4, false))
	assert.Equal(t, NoAccess, ts.s.Access())
	assert.True(t, ts.s.HasPendingRequest())
	assert.Equal(t, channel.CCH, ts.radio.Channel())
	assert.Equal(t, 1, ts.d.PendingTimers())

	// the same request does not add a retry, a different one is refused
	assert.True(t, ts.s.AssignContinuous(channel.SCH4, false))
	assert.Equal(t, 1, ts.d.PendingTimers())
	assert.ErrorIs(t, ts.s.TryAssignContinuous(channel.SCH5, false), ErrAlreadyAssigned)
	assert.ErrorIs(t, ts.s.TryAssignAlternating(channel.SCH4, false), ErrAlreadyAssigned)
	assert.ErrorIs(t, ts.s.TryAssignExtended(channel.SCH4, 3, false), ErrAlreadyAssigned)

	ts.d.RunFor(50*ms - time.Microsecond)
	assert.Equal(t, NoAccess, ts.s.Access())
	ts.d.RunFor(time.Microsecond)
	assert.Equal(t, ContinuousAccess, ts.s.Access())
	assert.Equal(t, channel.SCH4, ts.radio.Channel())
	assert.True(t, ts.reg.IsActive(channel.SCH4))
	assert.False(t, ts.s.HasPendingRequest())
	assert.Equal(t, uint64(1), ts.s.Counters.Deferrals)
}

func TestContinuous_ControlChannel(t *testing.T) {
	ts := newTestScheduler()
	assert.True(t, ts.s.AssignContinuous(channel.CCH, false))
	assert.Equal(t, ContinuousAccess, ts.s.Access())
	ts.s.Release(channel.CCH)

	ts.d.RunFor(60 * ms)
	assert.True(t, ts.s.AssignContinuous(channel.CCH, false))
	assert.Equal(t, NoAccess, ts.s.Access())
	ts.d.RunFor(40 * ms)
	assert.Equal(t, ContinuousAccess, ts.s.Access())
	assert.Equal(t, channel.CCH, ts.s.Channel())
}

func TestRelease_CancelsPendingRequest(t *testing.T) {
	ts := newTestScheduler()
	ts.s.AssignContinuous(channel.SCH2, false)
	ts.s.Release(channel.SCH2)
	assert.False(t, ts.s.HasPendingRequest())
	assert.Equal(t, 0, ts.d.PendingTimers())
	ts.d.RunFor(200 * ms)
	assert.Equal(t, NoAccess, ts.s.Access())
	assert.True(t, ts.s.AssignContinuous(channel.SCH3, true))
}

func TestRelease_Continuous(t *testing.T) {
	ts := newTestScheduler()
	var changes []Assignment
	ts.s.SetChangeHandler(func(a Assignment) { changes = append(changes, a) })
	ts.s.AssignContinuous(channel.SCH1, true)

	ts.s.Release(channel.SCH2)
	assert.Equal(t, ContinuousAccess, ts.s.Access())

	ts.s.Release(channel.SCH1)
	assert.Equal(t, NoAccess, ts.s.Access())
	assert.Equal(t, channel.Number(0), ts.s.Channel())
	assert.True(t, ts.reg.IsDead(channel.SCH1))
	assert.Equal(t, channel.CCH, ts.radio.Channel())
	assert.Equal(t, []channel.Number{channel.SCH1}, ts.queues.flushed)
	assert.Equal(t, channel.CCH, ts.lastSwitch())
	assert.Equal(t, []Assignment{{Mode: ContinuousAccess, Channel: channel.SCH1}, {Mode: NoAccess}}, changes)

	ts.s.Release(channel.SCH1)
	assert.Equal(t, uint64(1), ts.s.Counters.Releases)
}

func TestAlternating_Rejections(t *testing.T) {
	ts := newTestScheduler()
	assert.ErrorIs(t, ts.s.TryAssignAlternating(channel.CCH, true), ErrControlChannel)
	assert.ErrorIs(t, ts.s.TryAssignAlternating(186, true), ErrInvalidChannel)
	assert.NoError(t, ts.s.TryAssignAlternating(channel.SCH1, false))
	assert.NoError(t, ts.s.TryAssignAlternating(channel.SCH1, true))
	assert.ErrorIs(t, ts.s.TryAssignAlternating(channel.SCH2, false), ErrAlreadyAssigned)
	assert.ErrorIs(t, ts.s.TryAssignContinuous(channel.SCH1, true), ErrAlreadyAssigned)
	assert.True(t, ts.s.IsAssigned(channel.CCH))
	assert.Equal(t, AlternatingAccess, ts.s.AccessOn(channel.CCH))
}

func TestAlternating_ImmediateAtPhaseZero(t *testing.T) {
	ts := newTestScheduler()
	assert.True(t, ts.s.AssignAlternating(channel.SCH1, true))
	assert.False(t, ts.coord.IsStopped())

	// the coordinator starts on a boundary and enters the control guard at once
	assert.Equal(t, channel.CCH, ts.radio.Channel())
	assert.Equal(t, []channel.Number{channel.SCH1, channel.CCH}, ts.queues.switches)
	assert.Equal(t, []time.Duration{4 * ms}, ts.busy.periods)
	assert.True(t, ts.reg.IsActive(channel.SCH1))
	assert.True(t, ts.reg.IsInactive(channel.CCH))

	ts.d.RunFor(4 * ms)
	assert.True(t, ts.reg.IsActive(channel.CCH))
	assert.True(t, ts.reg.IsInactive(channel.SCH1))

	ts.d.RunFor(46 * ms)
	assert.Equal(t, channel.SCH1, ts.radio.Channel())
	assert.Equal(t, channel.SCH1, ts.lastSwitch())
	assert.Equal(t, []time.Duration{4 * ms, 4 * ms}, ts.busy.periods)
	assert.True(t, ts.reg.IsActive(channel.CCH))

	ts.d.RunFor(4 * ms)
	assert.True(t, ts.reg.IsActive(channel.SCH1))
	assert.True(t, ts.reg.IsInactive(channel.CCH))

	ts.d.RunFor(46 * ms)
	assert.Equal(t, channel.CCH, ts.radio.Channel())
	assert.Equal(t, uint64(4), ts.radio.Counters.Retunes)
}

func TestAlternating_DeferredSwitch(t *testing.T) {
	ts := newTestScheduler()
	ts.d.RunFor(10 * ms)
	assert.True(t, ts.s.AssignAlternating(channel.SCH2, false))
	assert.Equal(t, channel.CCH, ts.radio.Channel())
	assert.Empty(t, ts.queues.switches)
	assert.True(t, ts.reg.IsActive(channel.CCH))
	assert.True(t, ts.reg.IsInactive(channel.SCH2))

	ts.d.RunFor(40 * ms)
	assert.Equal(t, channel.SCH2, ts.radio.Channel())
	assert.Len(t, ts.busy.periods, 1)
}

func TestAlternating_ServiceIntervalFarFromGuard(t *testing.T) {
	ts := newTestScheduler()
	ts.d.RunFor(60 * ms)
	ts.s.AssignAlternating(channel.SCH3, false)
	assert.Equal(t, channel.CCH, ts.radio.Channel())
	assert.True(t, ts.reg.IsActive(channel.CCH))
}

func TestAlternating_SwitchNowBeforeGuard(t *testing.T) {
	ts := newTestScheduler()
	ts.d.RunFor(98 * ms)
	ts.s.AssignAlternating(channel.SCH3, false)
	assert.Equal(t, channel.SCH3, ts.radio.Channel())
	assert.True(t, ts.reg.IsActive(channel.SCH3))
	assert.True(t, ts.reg.IsInactive(channel.CCH))

	ts.d.RunFor(2 * ms)
	assert.Equal(t, channel.CCH, ts.radio.Channel())
	assert.Equal(t, []time.Duration{4 * ms}, ts.busy.periods)
}

func TestRelease_Alternating(t *testing.T) {
	ts := newTestScheduler()
	ts.s.AssignAlternating(channel.SCH1, true)
	ts.d.RunFor(10 * ms)

	ts.s.Release(channel.SCH1)
	assert.Equal(t, NoAccess, ts.s.Access())
	assert.True(t, ts.reg.IsDead(channel.CCH))
	assert.True(t, ts.reg.IsDead(channel.SCH1))
	assert.Equal(t, channel.CCH, ts.radio.Channel())
	assert.Equal(t, []channel.Number{channel.SCH1}, ts.queues.flushedAlt)
	assert.True(t, ts.coord.IsStopped())
	assert.Equal(t, 0, ts.d.PendingTimers())

	ts.d.RunFor(200 * ms)
	assert.Len(t, ts.busy.periods, 1)

	// the control channel is owned too, so releasing it ends the access as well
	ts.s.AssignAlternating(channel.SCH2, true)
	ts.s.Release(channel.CCH)
	assert.Equal(t, NoAccess, ts.s.Access())
	assert.True(t, ts.coord.IsStopped())
}

func TestAlternating_BoundariesKeepQueues(t *testing.T) {
	ts := newTestScheduler()
	var tunedAtSwitch []channel.Number
	ts.queues.onSwitch = func(channel.Number) {
		tunedAtSwitch = append(tunedAtSwitch, ts.radio.Channel())
	}
	assert.True(t, ts.s.AssignAlternating(channel.SCH3, false))
	ts.d.RunFor(300 * ms)

	assert.Equal(t, AlternatingAccess, ts.s.Access())
	assert.Empty(t, ts.queues.flushed)
	assert.Empty(t, ts.queues.flushedAlt)
	// the radio is already on the new channel when the queue follows
	assert.NotEmpty(t, tunedAtSwitch)
	assert.Equal(t, ts.queues.switches, tunedAtSwitch)
}

func TestExtended_Rejections(t *testing.T) {
	ts := newTestScheduler()
	assert.ErrorIs(t, ts.s.TryAssignExtended(channel.SCH1, 0, true), ErrInvalidExtension)
	assert.ErrorIs(t, ts.s.TryAssignExtended(channel.SCH1, ContinuousExtension, true), ErrInvalidExtension)
	assert.ErrorIs(t, ts.s.TryAssignExtended(173, 2, true), ErrInvalidChannel)
	assert.Equal(t, NoAccess, ts.s.Access())
}

func TestExtended_AutoRelease(t *testing.T) {
	ts := newTestScheduler()
	assert.True(t, ts.s.AssignExtended(channel.SCH5, 3, true))
	assert.Equal(t, Assignment{Mode: ExtendedAccess, Channel: channel.SCH5, Extensions: 3}, ts.s.Assignment())
	assert.True(t, ts.reg.IsActive(channel.SCH5))
	assert.Equal(t, channel.SCH5, ts.radio.Channel())

	assert.True(t, ts.s.AssignExtended(channel.SCH5, 2, false))
	assert.ErrorIs(t, ts.s.TryAssignExtended(channel.SCH5, 5, false), ErrAlreadyAssigned)

	// granted in the control interval, so the extension counts from the next service interval
	ts.d.RunFor(100 * ms)
	assert.Equal(t, uint8(3), ts.s.Assignment().Extensions)
	ts.d.RunFor(50 * ms)
	assert.Equal(t, uint8(2), ts.s.Assignment().Extensions)
	ts.d.RunFor(200*ms - time.Microsecond)
	assert.Equal(t, ExtendedAccess, ts.s.Access())
	ts.d.RunFor(time.Microsecond)
	assert.Equal(t, NoAccess, ts.s.Access())
	assert.True(t, ts.reg.IsDead(channel.SCH5))
	assert.Equal(t, channel.CCH, ts.radio.Channel())
	assert.Equal(t, uint64(1), ts.s.Counters.AutoReleases)
	assert.Equal(t, []channel.Number{channel.SCH5}, ts.queues.flushed)
}

func TestExtended_AutoReleaseInServiceInterval(t *testing.T) {
	ts := newTestScheduler()
	ts.d.RunFor(60 * ms)
	assert.True(t, ts.s.AssignExtended(channel.SCH2, 1, true))
	ts.d.RunFor(100*ms - time.Microsecond)
	assert.Equal(t, ExtendedAccess, ts.s.Access())
	ts.d.RunFor(time.Microsecond)
	assert.Equal(t, NoAccess, ts.s.Access())
}

func TestExtended_DeferredAdmission(t *testing.T) {
	ts := newTestScheduler()
	assert.True(t, ts.s.AssignExtended(channel.SCH6, 1, false))
	assert.True(t, ts.s.AssignExtended(channel.SCH6, 2, false))
	assert.Equal(t, 1, ts.d.PendingTimers())

	ts.d.RunFor(50 * ms)
	assert.Equal(t, Assignment{Mode: ExtendedAccess, Channel: channel.SCH6, Extensions: 2}, ts.s.Assignment())
	ts.d.RunFor(200 * ms)
	assert.Equal(t, NoAccess, ts.s.Access())
}

func TestExtended_ManualReleaseCancelsTimer(t *testing.T) {
	ts := newTestScheduler()
	ts.s.AssignExtended(channel.SCH1, 10, true)
	ts.d.RunFor(150 * ms)
	ts.s.Release(channel.SCH1)
	assert.Equal(t, 0, ts.d.PendingTimers())
	assert.Equal(t, uint64(0), ts.s.Counters.AutoReleases)
}

func TestTimeUntilGuard(t *testing.T) {
	ts := newTestScheduler()
	assert.Equal(t, 50*ms, ts.s.TimeUntilGuard())
	ts.d.RunFor(42 * ms)
	assert.Equal(t, 8*ms, ts.s.TimeUntilGuard())
	ts.d.RunFor(10 * ms)
	assert.Equal(t, 48*ms, ts.s.TimeUntilGuard())
}
