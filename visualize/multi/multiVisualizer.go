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
	. "github.com/vanetsim/wave-sim/types"
	"github.com/vanetsim/wave-sim/visualize"
)

type MultiVisualizer struct {
	vs []visualize.Visualizer
}

// NewMultiVisualizer creates a new Visualizer that multiplexes to multiple Visualizers.
func NewMultiVisualizer(vs ...visualize.Visualizer) *MultiVisualizer {
	return &MultiVisualizer{vs: vs}
}

func (mv *MultiVisualizer) AddVisualizer(vs ...visualize.Visualizer) {
	mv.vs = append(mv.vs, vs...)
}

// each passes every event to the visualizers in the order they were added.
func (mv *MultiVisualizer) each(f func(v visualize.Visualizer)) {
	for _, v := range mv.vs {
		f(v)
	}
}

func (mv *MultiVisualizer) Init() {
	mv.each(func(v visualize.Visualizer) { v.Init() })
}

// Run runs all visualizers; the first one on the calling goroutine.
func (mv *MultiVisualizer) Run() {
	if len(mv.vs) == 0 {
		return
	}
	for i := 1; i < len(mv.vs); i++ {
		go mv.vs[i].Run()
	}
	mv.vs[0].Run()
}

func (mv *MultiVisualizer) Stop() {
	mv.each(func(v visualize.Visualizer) { v.Stop() })
}

func (mv *MultiVisualizer) AddDevice(id DeviceId, cfg *DeviceConfig) {
	mv.each(func(v visualize.Visualizer) { v.AddDevice(id, cfg) })
}

func (mv *MultiVisualizer) DeleteDevice(id DeviceId) {
	mv.each(func(v visualize.Visualizer) { v.DeleteDevice(id) })
}

func (mv *MultiVisualizer) SetAccess(id DeviceId, access visualize.AccessInfo) {
	mv.each(func(v visualize.Visualizer) { v.SetAccess(id, access) })
}

func (mv *MultiVisualizer) Send(src DeviceId, frame *visualize.FrameInfo) {
	mv.each(func(v visualize.Visualizer) { v.Send(src, frame) })
}

func (mv *MultiVisualizer) Receive(dst DeviceId, frame *visualize.FrameInfo) {
	mv.each(func(v visualize.Visualizer) { v.Receive(dst, frame) })
}

func (mv *MultiVisualizer) SetSpeed(speed float64) {
	mv.each(func(v visualize.Visualizer) { v.SetSpeed(speed) })
}

func (mv *MultiVisualizer) AdvanceTime(ts uint64, speed float64) {
	mv.each(func(v visualize.Visualizer) { v.AdvanceTime(ts, speed) })
}

func (mv *MultiVisualizer) SetController(ctrl visualize.SimulationController) {
	mv.each(func(v visualize.Visualizer) { v.SetController(ctrl) })
}
