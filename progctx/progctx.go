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

// Package progctx implements utilities for managing the context of a program.
package progctx

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/vanetsim/wave-sim/logger"
)

// ProgCtx is the context of a program during its lifetime. It tracks the named goroutines to wait for
// and the functions to run once the program is canceled.
type ProgCtx struct {
	context.Context
	cancel   context.CancelCauseFunc
	canceled atomic.Bool
	wg       sync.WaitGroup

	mu       sync.Mutex
	routines map[string]int
	deferred []func()
}

// New creates a new ProgCtx from the parent context.
func New(parent context.Context) *ProgCtx {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancelCause(parent)
	return &ProgCtx{
		Context:  ctx,
		cancel:   cancel,
		routines: map[string]int{},
	}
}

// Cancel cancels the program context for the given reason, an error or any printable value. Only the
// first call has an effect: it runs the deferred functions in registration order.
func (ctx *ProgCtx) Cancel(reason interface{}) {
	if !ctx.canceled.CompareAndSwap(false, true) {
		return
	}

	var cause error
	switch r := reason.(type) {
	case nil:
		logger.Infof("program exit")
	case error:
		cause = r
		logger.TraceError("program exit: %v", r)
	default:
		cause = errors.Errorf("%v", r)
		logger.Infof("program exit: %v", r)
	}
	ctx.cancel(cause)

	ctx.mu.Lock()
	deferred := ctx.deferred
	ctx.deferred = nil
	ctx.mu.Unlock()
	for _, f := range deferred {
		f()
	}
}

// Cause returns why the context was canceled, or nil while it is still running.
func (ctx *ProgCtx) Cause() error {
	return context.Cause(ctx.Context)
}

// Defer registers f to be called when the program context is canceled.
func (ctx *ProgCtx) Defer(f func()) {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	if ctx.Err() != nil {
		panic(errors.New("can not Defer after context is done"))
	}
	ctx.deferred = append(ctx.deferred, f)
}

// WaitAdd adds delta goroutines named name to wait for.
func (ctx *ProgCtx) WaitAdd(name string, delta int) {
	ctx.mu.Lock()
	ctx.routines[name] += delta
	ctx.mu.Unlock()

	ctx.wg.Add(delta)
}

// WaitDone notifies that a goroutine named name has finished.
func (ctx *ProgCtx) WaitDone(name string) {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()

	if ctx.routines[name] <= 0 {
		logger.Panicf("routine %s is not running, should not call WaitDone", name)
	}
	ctx.routines[name]--
	if ctx.routines[name] == 0 {
		delete(ctx.routines, name)
	}
	ctx.wg.Done()
}

// WaitCount returns the number of goroutines to wait for.
func (ctx *ProgCtx) WaitCount() int {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()

	total := 0
	for _, c := range ctx.routines {
		total += c
	}
	return total
}

// Go runs f in a new goroutine registered under name.
func (ctx *ProgCtx) Go(name string, f func()) {
	ctx.WaitAdd(name, 1)
	go func() {
		defer ctx.WaitDone(name)
		f()
	}()
}

// Wait waits for all registered goroutines to finish.
func (ctx *ProgCtx) Wait() {
	ctx.mu.Lock()
	logger.Infof("program context waiting routines: %v", ctx.routines)
	ctx.mu.Unlock()

	ctx.wg.Wait()
}
