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
	"time"

	"github.com/vanetsim/wave-sim/logger"
	"github.com/vanetsim/wave-sim/progctx"
	. "github.com/vanetsim/wave-sim/types"
)

const (
	MaxSimulateSpeed = 1000000
	maxPaceSleep     = time.Millisecond * 10
)

// Timeline is the part of the Dispatcher used by components that run on simulation time.
type Timeline interface {
	// Now returns the current simulation time.
	Now() time.Duration
	// Schedule arms a one-shot callback f after delay.
	Schedule(delay time.Duration, name string, f func()) *Timer
}

// CallbackHandler receives notifications about the progress of simulation time.
type CallbackHandler interface {
	OnAdvanceTime(ts uint64, speed float64)
	OnPause(ts uint64)
}

type goDuration struct {
	duration time.Duration
	done     chan struct{}
}

type Counters struct {
	TimersScheduled uint64
	TimersFired     uint64
	TimersCanceled  uint64
	TasksHandled    uint64
}

// Dispatcher drives the discrete-event timeline. All timer callbacks run on the goroutine that runs the
// dispatcher, one at a time and to completion.
type Dispatcher struct {
	ctx                *progctx.ProgCtx
	cfg                Config
	cbHandler          CallbackHandler
	CurTime            uint64
	pauseTime          uint64
	timers             *timerQueue
	taskChan           chan func()
	goDurationChan     chan goDuration
	speed              float64
	speedStartRealTime time.Time
	speedStartTime     uint64
	stopped            bool
	Counters           Counters
}

// NewDispatcher creates a Dispatcher. ctx and cbHandler may be nil when the timeline is driven synchronously
// with RunFor.
func NewDispatcher(ctx *progctx.ProgCtx, cfg *Config, cbHandler CallbackHandler) *Dispatcher {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	d := &Dispatcher{
		ctx:            ctx,
		cfg:            *cfg,
		cbHandler:      cbHandler,
		timers:         newTimerQueue(),
		taskChan:       make(chan func(), 100),
		goDurationChan: make(chan goDuration, 10),
	}
	d.speed = d.normalizeSpeed(cfg.Speed)
	return d
}

func (d *Dispatcher) Now() time.Duration {
	return time.Duration(d.CurTime) * time.Microsecond
}

// Schedule arms a one-shot timer at the current time plus delay. Timers due at the same time fire in
// the order they were scheduled.
func (d *Dispatcher) Schedule(delay time.Duration, name string, f func()) *Timer {
	logger.AssertTrue(delay >= 0, "negative timer delay %v for %s", delay, name)
	return d.ScheduleAt(d.CurTime+uint64(delay/time.Microsecond), name, f)
}

// ScheduleAt arms a one-shot timer at absolute simulation time ts (us).
func (d *Dispatcher) ScheduleAt(ts uint64, name string, f func()) *Timer {
	logger.AssertTrue(ts >= d.CurTime, "timer %s scheduled in the past", name)
	t := &Timer{
		Name:      name,
		Timestamp: ts,
		f:         f,
		index:     -1,
		d:         d,
	}
	d.timers.add(t)
	d.Counters.TimersScheduled++
	return t
}

// PendingTimers returns the number of armed timers.
func (d *Dispatcher) PendingTimers() int {
	return d.timers.Len()
}

// NextTimestamp returns the time of the next armed timer, or Ever.
func (d *Dispatcher) NextTimestamp() uint64 {
	return d.timers.NextTimestamp()
}

// Go requests the running dispatcher loop to advance simulation time by duration. The returned channel
// closes when the period is over.
func (d *Dispatcher) Go(duration time.Duration) <-chan struct{} {
	done := make(chan struct{})
	if d.stopped || (d.ctx != nil && d.ctx.Err() != nil) {
		close(done)
		return done
	}
	d.goDurationChan <- goDuration{
		duration: duration,
		done:     done,
	}
	return done
}

// Run is the dispatcher loop. It returns when the program context is done.
func (d *Dispatcher) Run() {
	logger.AssertNotNil(d.ctx)
	d.ctx.WaitAdd("dispatcher", 1)
	defer d.ctx.WaitDone("dispatcher")
	defer logger.Debugf("dispatcher exit.")
	defer d.Stop()

	done := d.ctx.Done()
loop:
	for {
		select {
		case f := <-d.taskChan:
			d.runTask(f)
		case duration := <-d.goDurationChan:
			d.goFor(duration.duration, d.speed < MaxSimulateSpeed)
			close(duration.done)
			if d.ctx.Err() != nil {
				break loop
			}
		case <-done:
			break loop
		}
	}
}

// RunFor advances simulation time by duration on the calling goroutine, without real-time pacing.
func (d *Dispatcher) RunFor(duration time.Duration) {
	d.goFor(duration, false)
}

// RunUntil advances simulation time up to absolute time ts (us), without real-time pacing.
func (d *Dispatcher) RunUntil(ts uint64) {
	if ts > d.CurTime {
		d.goFor(time.Duration(ts-d.CurTime)*time.Microsecond, false)
	}
}

func (d *Dispatcher) goFor(duration time.Duration, paced bool) {
	d.speedStartRealTime = time.Now()
	d.speedStartTime = d.CurTime

	logger.AssertTrue(d.CurTime == d.pauseTime || d.pauseTime < d.CurTime)
	d.pauseTime = d.CurTime + uint64(duration/time.Microsecond)
	if d.pauseTime > Ever || d.pauseTime < d.CurTime {
		d.pauseTime = Ever
	}

	for d.CurTime < d.pauseTime || d.timers.NextTimestamp() <= d.pauseTime {
		d.handleTasks()
		if d.isCanceled() {
			return
		}
		if !d.processNextEvent(paced) {
			if d.pauseTime != Ever {
				d.advanceTime(d.pauseTime)
			}
			break
		}
	}
	if d.cbHandler != nil {
		d.cbHandler.OnPause(d.CurTime)
	}
}

// processNextEvent fires the next timer that is due before the pause time. It returns false if there
// is none.
func (d *Dispatcher) processNextEvent(paced bool) bool {
	nextTs := d.timers.NextTimestamp()
	if paced {
		sleepUntil := nextTs
		if sleepUntil > d.pauseTime {
			sleepUntil = d.pauseTime
		}
		if !d.sleepUntil(sleepUntil) {
			return true // woke up early; let the caller handle tasks first.
		}
	}
	if nextTs > d.pauseTime {
		return false
	}

	t := d.timers.PopNext()
	d.advanceTime(t.Timestamp)
	d.Counters.TimersFired++
	t.f()
	return true
}

// sleepUntil paces real time to simulation time ts. It returns false if it slept for less than needed.
func (d *Dispatcher) sleepUntil(ts uint64) bool {
	var needSleepDuration time.Duration
	if d.speed <= 0 {
		needSleepDuration = time.Hour
	} else {
		needSleepDuration = time.Duration(float64(ts-d.speedStartTime)/d.speed) * time.Microsecond
	}
	sleepTime := time.Until(d.speedStartRealTime.Add(needSleepDuration))
	if sleepTime <= 0 {
		return true
	}
	if sleepTime > maxPaceSleep {
		time.Sleep(maxPaceSleep)
		return false
	}
	time.Sleep(sleepTime)
	return true
}

func (d *Dispatcher) advanceTime(ts uint64) {
	logger.AssertTrue(d.CurTime <= ts, "%v > %v", d.CurTime, ts)
	if d.CurTime < ts {
		oldTime := d.CurTime
		d.CurTime = ts
		if d.cbHandler != nil && ts/1000000 != oldTime/1000000 {
			elapsedTime := float64(d.CurTime - d.speedStartTime)
			elapsedRealTime := float64(time.Since(d.speedStartRealTime) / time.Microsecond)
			speed := float64(MaxSimulateSpeed)
			if elapsedRealTime > 0 {
				speed = elapsedTime / elapsedRealTime
			}
			d.cbHandler.OnAdvanceTime(ts, speed)
		}
	}
}

func (d *Dispatcher) isCanceled() bool {
	return d.ctx != nil && d.ctx.Err() != nil
}

// PostAsync queues task to run on the dispatcher goroutine. It returns false if the dispatcher is stopped.
func (d *Dispatcher) PostAsync(task func()) bool {
	if d.stopped || d.isCanceled() {
		return false
	}
	if d.ctx == nil {
		d.taskChan <- task
		return true
	}
	select {
	case d.taskChan <- task:
		return true
	case <-d.ctx.Done():
		return false
	}
}

func (d *Dispatcher) runTask(task func()) {
	defer func() {
		err := recover()
		if err != nil {
			logger.Errorf("dispatcher handle task failed: %+v", err)
		}
	}()
	d.Counters.TasksHandled++
	task()
}

func (d *Dispatcher) handleTasks() {
	for {
		select {
		case t := <-d.taskChan:
			d.runTask(t)
		default:
			return
		}
	}
}

// Stop cancels all pending timers. The dispatcher cannot be restarted.
func (d *Dispatcher) Stop() {
	if d.stopped {
		return
	}
	d.stopped = true
	for d.timers.Len() > 0 {
		d.timers.PopNext()
	}
	logger.Debugf("dispatcher stopped at %d us", d.CurTime)
}

func (d *Dispatcher) IsStopped() bool {
	return d.stopped
}

func (d *Dispatcher) normalizeSpeed(f float64) float64 {
	if f <= 0 {
		f = 0
	} else if f >= MaxSimulateSpeed {
		f = MaxSimulateSpeed
	}
	return f
}

func (d *Dispatcher) SetSpeed(f float64) {
	ns := d.normalizeSpeed(f)
	if ns == d.speed {
		return
	}
	d.speed = ns
	d.speedStartRealTime = time.Now()
	d.speedStartTime = d.CurTime
}

func (d *Dispatcher) GetSpeed() float64 {
	return d.speed
}
