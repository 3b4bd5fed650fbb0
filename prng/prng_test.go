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

package prng

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInitIsDeterministic(t *testing.T) {
	Init(42)
	a := []interface{}{NewTrafficJitter(time.Second), NewBackoffSlots(15), NewPayloadSize(10, 20)}
	Init(42)
	b := []interface{}{NewTrafficJitter(time.Second), NewBackoffSlots(15), NewPayloadSize(10, 20)}
	assert.Equal(t, a, b)
}

func TestRanges(t *testing.T) {
	Init(7)
	for i := 0; i < 100; i++ {
		j := NewTrafficJitter(time.Millisecond)
		assert.True(t, j >= 0 && j < time.Millisecond)
		s := NewBackoffSlots(3)
		assert.True(t, s >= 0 && s <= 3)
		p := NewPayloadSize(5, 8)
		assert.True(t, p >= 5 && p <= 8)
	}
	assert.Equal(t, time.Duration(0), NewTrafficJitter(0))
	assert.Equal(t, 9, NewPayloadSize(9, 9))
}
