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
	"container/heap"
	"time"

	"github.com/vanetsim/wave-sim/logger"
	. "github.com/vanetsim/wave-sim/types"
)

// Timer is a one-shot callback scheduled on the simulation timeline.
type Timer struct {
	Name      string
	Timestamp uint64 // us, simulation time the timer fires

	seq   uint64
	f     func()
	index int // position in the timer queue, -1 if not queued
	d     *Dispatcher
}

// Cancel removes the timer from the timeline. Canceling a fired, canceled or nil timer does nothing.
func (t *Timer) Cancel() {
	if t == nil || t.index < 0 {
		return
	}
	t.d.timers.remove(t)
	t.d.Counters.TimersCanceled++
}

// IsPending returns true if the timer is still scheduled to fire.
func (t *Timer) IsPending() bool {
	return t != nil && t.index >= 0
}

// Remaining returns the time left until the timer fires, or 0 if it is not pending.
func (t *Timer) Remaining() time.Duration {
	if !t.IsPending() || t.Timestamp <= t.d.CurTime {
		return 0
	}
	return time.Duration(t.Timestamp-t.d.CurTime) * time.Microsecond
}

type timerHeap []*Timer

func (th timerHeap) Len() int {
	return len(th)
}

// Less orders by fire time, then by scheduling order for timers due at the same time.
func (th timerHeap) Less(i, j int) bool {
	if th[i].Timestamp != th[j].Timestamp {
		return th[i].Timestamp < th[j].Timestamp
	}
	return th[i].seq < th[j].seq
}

func (th timerHeap) Swap(i, j int) {
	a, b := th[i], th[j]
	if a.index != i && b.index != j {
		logger.Panicf("wrong index")
	}

	th[i], th[j] = b, a             // swap the elements
	th[i].index, th[j].index = i, j // fix the indexes
}

func (th *timerHeap) Push(x interface{}) {
	t := x.(*Timer)
	*th = append(*th, t)
	t.index = len(*th) - 1
}

func (th *timerHeap) Pop() (elem interface{}) {
	n := len(*th)
	t := (*th)[n-1]
	(*th)[n-1] = nil
	*th = (*th)[:n-1]
	t.index = -1
	return t
}

type timerQueue struct {
	h   timerHeap
	seq uint64
}

func newTimerQueue() *timerQueue {
	tq := &timerQueue{
		h: timerHeap{},
	}
	heap.Init(&tq.h)
	return tq
}

func (tq *timerQueue) add(t *Timer) {
	logger.AssertTrue(t.index < 0)
	tq.seq++
	t.seq = tq.seq
	heap.Push(&tq.h, t)
}

func (tq *timerQueue) remove(t *Timer) {
	logger.AssertTrue(t.index >= 0 && t.index < len(tq.h) && tq.h[t.index] == t)
	heap.Remove(&tq.h, t.index)
	t.index = -1
}

func (tq *timerQueue) Len() int {
	return len(tq.h)
}

func (tq *timerQueue) NextTimestamp() uint64 {
	if len(tq.h) == 0 {
		return Ever
	}
	return tq.h[0].Timestamp
}

func (tq *timerQueue) PopNext() *Timer {
	if len(tq.h) == 0 {
		return nil
	}
	return heap.Pop(&tq.h).(*Timer)
}
