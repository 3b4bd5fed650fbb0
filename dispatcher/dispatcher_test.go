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

package dispatcher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vanetsim/wave-sim/progctx"
	. "github.com/vanetsim/wave-sim/types"
)

func TestTimerQueue_NextTimestamp(t *testing.T) {
	d := NewDispatcher(nil, nil, nil)
	assert.Equal(t, Ever, d.NextTimestamp())
	d.ScheduleAt(2, "b", func() {})
	assert.Equal(t, uint64(2), d.NextTimestamp())
	d.ScheduleAt(1, "a", func() {})
	assert.Equal(t, uint64(1), d.NextTimestamp())
	d.ScheduleAt(3, "c", func() {})
	assert.Equal(t, uint64(1), d.NextTimestamp())
	assert.Equal(t, 3, d.PendingTimers())
}

func TestTimerQueue_PopNextKeepsSchedulingOrder(t *testing.T) {
	tq := newTimerQueue()
	for i, ts := range []uint64{5, 1, 5, 3, 5} {
		tq.add(&Timer{Name: string(rune('a' + i)), Timestamp: ts, index: -1})
	}
	var names string
	for tq.Len() > 0 {
		names += tq.PopNext().Name
	}
	assert.Equal(t, "bdace", names)
}

func TestDispatcher_RunForFiresInOrder(t *testing.T) {
	d := NewDispatcher(nil, nil, nil)
	var fired []string
	d.Schedule(30*time.Millisecond, "late", func() { fired = append(fired, "late") })
	d.Schedule(10*time.Millisecond, "early", func() {
		fired = append(fired, "early")
		assert.Equal(t, 10*time.Millisecond, d.Now())
		d.Schedule(0, "now", func() { fired = append(fired, "now") })
	})
	d.RunFor(20 * time.Millisecond)
	assert.Equal(t, []string{"early", "now"}, fired)
	assert.Equal(t, 20*time.Millisecond, d.Now())

	d.RunFor(10 * time.Millisecond)
	assert.Equal(t, []string{"early", "now", "late"}, fired)
	assert.Equal(t, uint64(3), d.Counters.TimersFired)
}

func TestTimer_Cancel(t *testing.T) {
	d := NewDispatcher(nil, nil, nil)
	fired := false
	tm := d.Schedule(time.Millisecond, "x", func() { fired = true })
	assert.True(t, tm.IsPending())
	assert.Equal(t, time.Millisecond, tm.Remaining())
	tm.Cancel()
	tm.Cancel()
	assert.False(t, tm.IsPending())
	assert.Equal(t, time.Duration(0), tm.Remaining())
	d.RunFor(2 * time.Millisecond)
	assert.False(t, fired)

	var nilTimer *Timer
	nilTimer.Cancel()
	assert.False(t, nilTimer.IsPending())
}

func TestDispatcher_NegativeDelayPanics(t *testing.T) {
	d := NewDispatcher(nil, nil, nil)
	assert.Panics(t, func() { d.Schedule(-time.Millisecond, "bad", func() {}) })
}

func TestDispatcher_RunLoop(t *testing.T) {
	ctx := progctx.New(context.Background())
	d := NewDispatcher(ctx, &Config{Speed: MaxSimulateSpeed}, nil)
	go d.Run()

	count := 0
	var tick func()
	tick = func() {
		count++
		d.Schedule(100*time.Millisecond, "tick", tick)
	}
	assert.True(t, d.PostAsync(func() { d.Schedule(0, "tick", tick) }))
	<-d.Go(time.Second)
	done := make(chan int)
	d.PostAsync(func() { done <- count })
	assert.Equal(t, 11, <-done)

	ctx.Cancel(nil)
	ctx.Wait()
	assert.True(t, d.IsStopped())
	assert.False(t, d.PostAsync(func() {}))
}

func TestDispatcher_Speed(t *testing.T) {
	d := NewDispatcher(nil, &Config{Speed: -3}, nil)
	assert.Equal(t, 0.0, d.GetSpeed())
	d.SetSpeed(2 * MaxSimulateSpeed)
	assert.Equal(t, float64(MaxSimulateSpeed), d.GetSpeed())
}
