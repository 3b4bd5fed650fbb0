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

func TestStatus(t *testing.T) {
	sim := newTestSimulation(t)
	addTestDevice(t, sim, 2)
	addTestDevice(t, sim, 1)
	require.NoError(t, sim.StartSch(2, device.SchInfo{Channel: channel.SCH4, Immediate: true, ExtendedAccess: 5}))
	require.NoError(t, sim.SetTxProfile(2, device.TxProfile{Channel: channel.SCH4, TxPowerLevel: 3}))

	st := sim.Status()
	require.Len(t, st, 2)
	assert.Equal(t, 1, st[0].Id)
	assert.Equal(t, "none", st[0].Access)
	assert.Equal(t, channel.Number(0), st[0].Channel)
	assert.Equal(t, channel.CCH, st[0].RadioChannel)
	assert.Nil(t, st[0].Profile)

	assert.Equal(t, "extended", st[1].Access)
	assert.Equal(t, channel.SCH4, st[1].Channel)
	assert.Equal(t, uint8(5), st[1].Extensions)
	assert.Equal(t, channel.SCH4, st[1].RadioChannel)
	require.NotNil(t, st[1].Profile)
	assert.Equal(t, 3, st[1].Profile.TxPowerLevel)

	_, err := sim.DeviceStatus(3)
	assert.Error(t, err)

	sim.RunFor(50 * ms)
	ts := sim.TimeStatus()
	assert.Equal(t, uint64(50000), ts.TimeUs)
	assert.Equal(t, 2, ts.Devices)
	assert.Equal(t, sim.RunId(), ts.RunId)
}
