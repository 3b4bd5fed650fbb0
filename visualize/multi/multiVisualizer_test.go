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

package visualize_multi

import (
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/vanetsim/wave-sim/types"
	"github.com/vanetsim/wave-sim/visualize"
)

type countingVisualizer struct {
	visualize.Visualizer
	devices int
	sent    int
	times   []uint64
}

func (cv *countingVisualizer) AddDevice(DeviceId, *DeviceConfig) {
	cv.devices++
}

func (cv *countingVisualizer) Send(DeviceId, *visualize.FrameInfo) {
	cv.sent++
}

func (cv *countingVisualizer) AdvanceTime(ts uint64, speed float64) {
	cv.times = append(cv.times, ts)
}

func TestMultiVisualizer_Fanout(t *testing.T) {
	v1 := &countingVisualizer{Visualizer: visualize.NewNopVisualizer()}
	v2 := &countingVisualizer{Visualizer: visualize.NewNopVisualizer()}
	mv := NewMultiVisualizer(v1)
	mv.AddVisualizer(v2)

	cfg := DefaultDeviceConfig()
	mv.AddDevice(1, &cfg)
	mv.Send(1, &visualize.FrameInfo{})
	mv.AdvanceTime(100, 1)
	mv.SetAccess(1, visualize.AccessInfo{Mode: AlternatingAccess})
	mv.Init()
	mv.Stop()

	for _, v := range []*countingVisualizer{v1, v2} {
		assert.Equal(t, 1, v.devices)
		assert.Equal(t, 1, v.sent)
		assert.Equal(t, []uint64{100}, v.times)
	}
}
