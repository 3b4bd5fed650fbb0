// Copyright (c) 2020, The OTNS Authors.
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

package progctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pkg/errors"
)

func TestNew(t *testing.T) {
	ctx := New(context.Background())
	_ = context.Context(ctx)  // ProgCtx should implement context.Context
	ctx2 := New(nil)          // nolint
	_ = context.Context(ctx2) // ProgCtx should implement context.Context
}

func TestProgCtx_Cancel(t *testing.T) {
	ctx := New(context.Background())
	err := errors.Errorf("test error")
	ctx.Cancel(err)
	go func() {
		err := errors.Errorf("test error")
		ctx.Cancel(err)
		assert.True(t, ctx.Err() == context.Canceled)
		<-ctx.Done()
	}()
	<-ctx.Done()
}

func TestProgCtx_CancelNilError(t *testing.T) {
	ctx := New(context.Background())
	ctx.Cancel(nil)
	go func() {
		err := errors.Errorf("test error")
		ctx.Cancel(err)
		assert.True(t, ctx.Err() == context.Canceled)
		<-ctx.Done()
	}()
	<-ctx.Done()
}

func TestProgCtx_Cause(t *testing.T) {
	ctx := New(context.Background())
	assert.Nil(t, ctx.Cause())

	ctx.Cancel("exit")
	ctx.Cancel(errors.New("second"))
	assert.Equal(t, context.Canceled, ctx.Err())
	assert.EqualError(t, ctx.Cause(), "exit")

	errCtx := New(nil) // nolint
	testErr := errors.New("boom")
	errCtx.Cancel(testErr)
	assert.Equal(t, testErr, errCtx.Cause())

	nilCtx := New(nil) // nolint
	nilCtx.Cancel(nil)
	assert.Equal(t, context.Canceled, nilCtx.Cause())
}

func TestProgCtx_DeferOrder(t *testing.T) {
	ctx := New(context.Background())
	var order []int
	ctx.Defer(func() { order = append(order, 1) })
	ctx.Defer(func() {
		order = append(order, 2)
		ctx.Cancel("again")
	})
	ctx.Cancel(nil)
	assert.Equal(t, []int{1, 2}, order)
}

func TestProgCtx_ParentCanceled(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	ctx := New(parent)
	deferred := false
	ctx.Defer(func() { deferred = true })
	cancel()
	<-ctx.Done()
	ctx.Cancel("late")
	assert.True(t, deferred)
}

func TestProgCtx_Wait(t *testing.T) {
	ctx := New(context.Background())
	ctx.WaitAdd("test1", 1)
	go func() {
		ctx.WaitDone("test1")
	}()

	ctx.WaitAdd("test2", 2)
	for i := 0; i < 2; i++ {
		go func() { defer ctx.WaitDone("test2") }()
	}

	ctx.WaitAdd("test3", 3)
	for i := 0; i < 3; i++ {
		go func() { defer ctx.WaitDone("test3") }()
	}

	ctx.Wait()
}

func TestProgCtx_Go(t *testing.T) {
	ctx := New(context.Background())
	started := make(chan struct{})
	ctx.Go("worker", func() {
		close(started)
		<-ctx.Done()
	})
	<-started
	assert.Equal(t, 1, ctx.WaitCount())

	deferred := false
	ctx.Defer(func() { deferred = true })
	ctx.Cancel("done")
	ctx.Wait()
	assert.True(t, deferred)
	assert.Equal(t, 0, ctx.WaitCount())
	assert.Panics(t, func() { ctx.Defer(func() {}) })
}
