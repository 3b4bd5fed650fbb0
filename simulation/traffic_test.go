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

package simulation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanetsim/wave-sim/channel"
	"github.com/vanetsim/wave-sim/device"
)

func TestTrafficConfig_Validate(t *testing.T) {
	valid := TrafficConfig{Channel: channel.SCH1, Size: 100, IntervalMs: 100}
	assert.NoError(t, valid.Validate())

	for _, tc := range []TrafficConfig{
		{Channel: 100, Size: 100, IntervalMs: 100},
		{Channel: channel.SCH1, Size: 0, IntervalMs: 100},
		{Channel: channel.SCH1, Size: 100, IntervalMs: 0},
		{Channel: channel.SCH1, Size: 100, MaxSize: 50, IntervalMs: 100},
		{Channel: channel.SCH1, Size: 100, IntervalMs: 100, Priority: 8},
	} {
		assert.Error(t, tc.Validate(), "%+v", tc)
	}
}

func TestTraffic_Periodic(t *testing.T) {
	sim := newTestSimulation(t)
	tx := addTestDevice(t, sim, 1)
	rx := addTestDevice(t, sim, 2)
	for _, id := range []int{1, 2} {
		require.NoError(t, sim.StartSch(id, device.SchInfo{Channel: channel.SCH3, Immediate: true, ExtendedAccess: 0xff}))
	}

	tc := TrafficConfig{Channel: channel.SCH3, Priority: 6, Size: 100, MaxSize: 200, IntervalMs: 10}
	require.NoError(t, sim.AddTraffic(1, tc))
	assert.Error(t, sim.AddTraffic(1, TrafficConfig{Channel: channel.SCH3}))
	assert.Equal(t, []TrafficConfig{tc}, sim.Traffic(1))

	sim.RunFor(100 * ms)
	gen := sim.traffic[1][0]
	assert.True(t, gen.Sent >= 10 && gen.Sent <= 11, "sent %d", gen.Sent)
	assert.Equal(t, uint64(0), gen.Refused)
	assert.True(t, rx.Counters().Received >= 9)
	assert.Equal(t, gen.Sent, tx.Counters().Enqueued)

	sim.StopTraffic(1)
	assert.Empty(t, sim.Traffic(1))
	sim.RunFor(10 * ms)
	received := rx.Counters().Received
	sim.RunFor(100 * ms)
	assert.Equal(t, received, rx.Counters().Received)
}
