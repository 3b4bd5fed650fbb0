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
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/vanetsim/wave-sim/channel"
	"github.com/vanetsim/wave-sim/device"
	"github.com/vanetsim/wave-sim/logger"
	. "github.com/vanetsim/wave-sim/types"
)

type KpiManager struct {
	sim           *Simulation
	data          *Kpi
	startCounters DeviceCountersStore
	curCounters   DeviceCountersStore
	startAirtime  AirtimeStore
	curAirtime    AirtimeStore
	isRunning     bool
}

type DeviceCountersStore map[DeviceId]device.Counters
type AirtimeStore map[channel.Number]channelAirtime

// NewKpiManager creates a new KPI manager/bookkeeper for a particular simulation.
func NewKpiManager() *KpiManager {
	km := &KpiManager{}
	return km
}

// Init inits the KPI manager for the given simulation.
func (km *KpiManager) Init(sim *Simulation) {
	logger.AssertNil(km.sim)
	logger.AssertFalse(km.isRunning)
	km.sim = sim
	km.data = &Kpi{Status: "ok", RunId: sim.RunId()}
	km.startCounters = DeviceCountersStore{}
	km.curCounters = DeviceCountersStore{}
}

func (km *KpiManager) Start() {
	logger.AssertNotNil(km.sim)
	km.data = &Kpi{Status: "ok", RunId: km.sim.RunId()}
	km.startCounters = km.retrieveDeviceCounters()
	km.startAirtime = km.retrieveAirtime()
	km.data.TimeUs.StartTimeUs = km.sim.Dispatcher().CurTime
	km.isRunning = true
	km.SaveDefaultFile()
}

func (km *KpiManager) Stop() {
	if km.isRunning {
		km.curCounters = km.retrieveDeviceCounters()
		km.curAirtime = km.retrieveAirtime()
		km.isRunning = false
		km.calculateKpis()
		km.SaveDefaultFile()
	}
}

func (km *KpiManager) IsRunning() bool {
	return km.isRunning
}

// SaveDefaultFile writes the KPI file to the output directory, if there is one.
func (km *KpiManager) SaveDefaultFile() {
	if km.sim.cfg.OutputDir == "" {
		return
	}
	if err := km.SaveFile(km.getDefaultSaveFileName()); err != nil {
		logger.Errorf("%v", err)
	}
}

func (km *KpiManager) SaveFile(fn string) error {
	logger.AssertNotNil(km.sim)
	if km.isRunning {
		km.curCounters = km.retrieveDeviceCounters()
		km.curAirtime = km.retrieveAirtime()
		km.calculateKpis()
	}

	km.data.FileTime = time.Now().Format(time.RFC3339)
	data, err := json.MarshalIndent(km.data, "", "    ")
	logger.PanicIfError(err)

	if err = os.WriteFile(fn, data, 0644); err != nil {
		return errors.Wrapf(err, "could not write KPI JSON file %s", fn)
	}
	return nil
}

// Data returns the KPIs of the last calculation.
func (km *KpiManager) Data() *Kpi {
	return km.data
}

func (km *KpiManager) stopDevice(id DeviceId) {
	// deleted devices during a KPI period won't be used anymore in final device-specific KPI calculations.
	delete(km.startCounters, id)
	delete(km.curCounters, id)
}

func (km *KpiManager) retrieveDeviceCounters() DeviceCountersStore {
	if km.sim.IsStopping() {
		return nil
	}
	res := make(DeviceCountersStore, len(km.sim.devices))
	for id, dev := range km.sim.devices {
		res[id] = dev.Counters()
	}
	return res
}

func (km *KpiManager) retrieveAirtime() AirtimeStore {
	res := make(AirtimeStore, len(km.sim.airtime))
	for ch, at := range km.sim.airtime {
		res[ch] = *at
	}
	return res
}

func (km *KpiManager) calculateChannelKpis() map[channel.Number]KpiChannel {
	ret := make(map[channel.Number]KpiChannel)
	passedTime := km.data.TimeUs.PeriodUs
	if passedTime == 0 {
		return ret
	}
	for _, ch := range channel.AllChannels {
		cur, ok := km.curAirtime[ch]
		if !ok {
			continue
		}
		start := km.startAirtime[ch]
		txTimeUs := uint64((cur.TxTime - start.TxTime) / time.Microsecond)
		numFrames := cur.NumFrames - start.NumFrames
		ret[ch] = KpiChannel{
			TxTimeUs:     txTimeUs,
			TxPercentage: 100.0 * float64(txTimeUs) / float64(passedTime),
			NumFrames:    numFrames,
			AvgFps:       1.0e6 * float64(numFrames) / float64(passedTime),
		}
	}
	return ret
}

func (km *KpiManager) calculateKpis() {
	// time
	km.data.TimeUs.EndTimeUs = km.sim.Dispatcher().CurTime
	km.data.TimeUs.PeriodUs = km.data.TimeUs.EndTimeUs - km.data.TimeUs.StartTimeUs
	km.data.TimeSec.StartTimeSec = float64(km.data.TimeUs.StartTimeUs) / 1e6
	km.data.TimeSec.EndTimeSec = float64(km.data.TimeUs.EndTimeUs) / 1e6
	km.data.TimeSec.PeriodSec = float64(km.data.TimeUs.PeriodUs) / 1e6

	// channels
	km.data.Channels = km.calculateChannelKpis()

	// counters
	km.data.Queue.DeferPercentage = make(map[DeviceId]float64)
	km.data.Queue.ExpirePercentage = make(map[DeviceId]float64)
	km.data.Counters = make(map[DeviceId]device.Counters)
	km.data.Access = make(map[DeviceId]string)
	if km.curCounters == nil {
		km.data.Status = "'counters' and 'queue' not included due to interrupted simulation"
		return
	}
	for id, ctr := range km.curCounters {
		counters := ctr.Sub(km.startCounters[id])
		km.data.Counters[id] = counters
		km.data.Queue.DeferPercentage[id] = percentage(counters.Deferred, counters.Enqueued)
		km.data.Queue.ExpirePercentage[id] = percentage(counters.Expired, counters.Enqueued)
		if dev := km.sim.devices[id]; dev != nil {
			km.data.Access[id] = dev.Access().String()
		}
	}
}

func (km *KpiManager) getDefaultSaveFileName() string {
	return fmt.Sprintf("%s/%d_kpi.json", km.sim.cfg.OutputDir, km.sim.cfg.Id)
}
