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

package energy

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"

	"github.com/vanetsim/wave-sim/logger"
)

type EnergyAnalyser struct {
	devices                map[int]*deviceEnergy
	networkHistory         []NetworkConsumption
	energyHistoryByDevices [][]DeviceEnergy
	lastStored             uint64
}

func (e *EnergyAnalyser) AddDevice(id int, timestamp uint64) {
	if _, ok := e.devices[id]; ok {
		return
	}
	e.devices[id] = newDevice(id, timestamp)
}

func (e *EnergyAnalyser) DeleteDevice(id int) {
	delete(e.devices, id)

	if len(e.devices) == 0 {
		e.ClearEnergyData()
	}
}

// AddTransmission records a transmission of device id that was on air from start to end.
func (e *EnergyAnalyser) AddTransmission(id int, start, end uint64) {
	dev := e.devices[id]
	if dev == nil {
		return
	}
	dev.addTx(start, end)
}

func (e *EnergyAnalyser) GetNetworkEnergyHistory() []NetworkConsumption {
	return e.networkHistory
}

func (e *EnergyAnalyser) GetEnergyHistoryByDevices() [][]DeviceEnergy {
	return e.energyHistoryByDevices
}

// GetEnergyOfDevices returns the energy spent by every device up to timestamp, sorted by id.
func (e *EnergyAnalyser) GetEnergyOfDevices(timestamp uint64) []DeviceEnergy {
	res := make([]DeviceEnergy, 0, len(e.devices))
	for _, id := range e.sortedIds() {
		dev := e.devices[id]
		dev.computeRadioState(timestamp)
		res = append(res, dev.snapshot())
	}
	return res
}

// OnAdvanceTime stores a network snapshot once every ComputePeriod.
func (e *EnergyAnalyser) OnAdvanceTime(timestamp uint64) {
	if timestamp >= e.lastStored+ComputePeriod {
		e.StoreNetworkEnergy(timestamp)
	}
}

func (e *EnergyAnalyser) StoreNetworkEnergy(timestamp uint64) {
	devicesSnapshot := e.GetEnergyOfDevices(timestamp)
	networkSnapshot := NetworkConsumption{
		Timestamp: timestamp,
	}

	netSize := float64(len(devicesSnapshot))
	for _, de := range devicesSnapshot {
		networkSnapshot.EnergyConsListen += de.Listen / netSize
		networkSnapshot.EnergyConsTx += de.Tx / netSize
	}

	e.networkHistory = append(e.networkHistory, networkSnapshot)
	e.energyHistoryByDevices = append(e.energyHistoryByDevices, devicesSnapshot)
	e.lastStored = timestamp
}

// SaveEnergyDataToFile writes <name>_devices.txt and <name>.txt into dir.
func (e *EnergyAnalyser) SaveEnergyDataToFile(dir string, name string, timestamp uint64) error {
	path := filepath.Join(dir, name)
	fileDevices, err := os.Create(path + "_devices.txt")
	if err != nil {
		return errors.Wrap(err, "creating energy file failed")
	}
	defer fileDevices.Close()

	fileNetwork, err := os.Create(path + ".txt")
	if err != nil {
		return errors.Wrap(err, "creating energy file failed")
	}
	defer fileNetwork.Close()

	e.writeEnergyByDevices(fileDevices, timestamp)
	e.writeNetworkEnergy(fileNetwork, timestamp)
	logger.Infof("energy data saved to %s", path)
	return nil
}

func (e *EnergyAnalyser) writeEnergyByDevices(fileDevices *os.File, timestamp uint64) {
	fmt.Fprintf(fileDevices, "Duration of the simulated network (in milliseconds): %d\n", timestamp/1000)
	fmt.Fprintf(fileDevices, "ID\tListening (mJ)\tTransmitting (mJ)\n")

	for _, de := range e.GetEnergyOfDevices(timestamp) {
		fmt.Fprintf(fileDevices, "%d\t%f\t%f\n", de.Id, de.Listen, de.Tx)
	}
}

func (e *EnergyAnalyser) writeNetworkEnergy(fileNetwork *os.File, timestamp uint64) {
	fmt.Fprintf(fileNetwork, "Duration of the simulated network (in milliseconds): %d\n", timestamp/1000)
	fmt.Fprintf(fileNetwork, "Time (ms)\tListening (mJ)\tTransmitting (mJ)\n")
	for _, snapshot := range e.networkHistory {
		fmt.Fprintf(fileNetwork, "%d\t%f\t%f\n",
			snapshot.Timestamp/1000,
			snapshot.EnergyConsListen,
			snapshot.EnergyConsTx,
		)
	}
}

func (e *EnergyAnalyser) ClearEnergyData() {
	logger.Debugf("device energy data cleared")
	e.networkHistory = make([]NetworkConsumption, 0, 3600)
	e.energyHistoryByDevices = make([][]DeviceEnergy, 0, 3600)
}

func (e *EnergyAnalyser) sortedIds() []int {
	ids := make([]int, 0, len(e.devices))
	for id := range e.devices {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func NewEnergyAnalyser() *EnergyAnalyser {
	ea := &EnergyAnalyser{
		devices:                make(map[int]*deviceEnergy),
		networkHistory:         make([]NetworkConsumption, 0, 3600), // 1 sample every 30s for 1 hour
		energyHistoryByDevices: make([][]DeviceEnergy, 0, 3600),
	}
	return ea
}
