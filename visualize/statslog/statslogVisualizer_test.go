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

package visualize_statslog

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/vanetsim/wave-sim/types"
	"github.com/vanetsim/wave-sim/visualize"
)

func TestStatslogVisualizer(t *testing.T) {
	dir := t.TempDir()
	sv := NewStatslogVisualizer(dir, 7)
	sv.Init()

	cfg := DefaultDeviceConfig()
	sv.AddDevice(1, &cfg)
	sv.AddDevice(2, &cfg)
	sv.AdvanceTime(1000000, 1)
	sv.SetAccess(1, visualize.AccessInfo{Mode: AlternatingAccess, Channel: 172})
	sv.SetAccess(3, visualize.AccessInfo{Mode: ContinuousAccess, Channel: 174})
	sv.Send(1, &visualize.FrameInfo{Channel: 172})
	sv.Receive(2, &visualize.FrameInfo{Channel: 172})
	sv.AdvanceTime(2000000, 1)
	sv.AdvanceTime(3000000, 1) // unchanged: no entry
	sv.Stop()

	data, err := os.ReadFile(getStatsLogFileName(dir, 7))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "timeSec,nDevices"))
	assert.Equal(t, "    0.000000,   2,  2,  0,  0,  0,     0,     0,     0", lines[1])
	assert.Equal(t, "    1.000000,   2,  1,  0,  1,  0,     1,     1,     0", lines[2])
	assert.Equal(t, "    3.000000,   2,  1,  0,  1,  0,     1,     1,     0", lines[3])
}
