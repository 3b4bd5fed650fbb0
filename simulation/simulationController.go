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
	"github.com/vanetsim/wave-sim/channel"
	"github.com/vanetsim/wave-sim/device"
	"github.com/vanetsim/wave-sim/logger"
	. "github.com/vanetsim/wave-sim/types"
	"github.com/vanetsim/wave-sim/visualize"
)

type simulationController struct {
	sim *Simulation
}

func (sc *simulationController) CtrlSetSpeed(speed float64) error {
	sim := sc.sim
	sim.PostAsync(func() {
		sim.SetSpeed(speed)
	})
	return nil
}

func (sc *simulationController) CtrlDeleteDevice(id DeviceId) error {
	sim := sc.sim
	sim.PostAsync(func() {
		_ = sim.DeleteDevice(id)
	})
	return nil
}

func (sc *simulationController) CtrlStartSch(id DeviceId, ch uint32, immediate bool, extendedAccess uint8) error {
	sim := sc.sim
	info := device.SchInfo{
		Channel:        channel.Number(ch),
		Immediate:      immediate,
		ExtendedAccess: extendedAccess,
	}
	sim.PostAsync(func() {
		if err := sim.StartSch(id, info); err != nil {
			logger.Warnf("CtrlStartSch: %v", err)
		}
	})
	return nil
}

func (sc *simulationController) CtrlStopSch(id DeviceId, ch uint32) error {
	sim := sc.sim
	sim.PostAsync(func() {
		if err := sim.StopSch(id, channel.Number(ch)); err != nil {
			logger.Warnf("CtrlStopSch: %v", err)
		}
	})
	return nil
}

type readonlySimulationController struct {
}

func (r readonlySimulationController) CtrlSetSpeed(speed float64) error {
	return readonlySimulationError
}

func (r readonlySimulationController) CtrlDeleteDevice(id DeviceId) error {
	return readonlySimulationError
}

func (r readonlySimulationController) CtrlStartSch(DeviceId, uint32, bool, uint8) error {
	return readonlySimulationError
}

func (r readonlySimulationController) CtrlStopSch(DeviceId, uint32) error {
	return readonlySimulationError
}

func NewSimulationController(sim *Simulation) visualize.SimulationController {
	if !sim.cfg.ReadOnly {
		return &simulationController{sim}
	} else {
		return readonlySimulationController{}
	}
}
