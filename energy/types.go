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

// Consumption by radio state of a 10 MHz DSRC transceiver.
// Consumption in kilowatts, time in microseconds, resulting energy in mJ.
const (
	RadioListenConsumption float64 = 0.0012 // kilowatts, receiver on
	RadioTxConsumption     float64 = 0.0018 // kilowatts, at maximum power level
)

const (
	ComputePeriod uint64 = 30000000 // in microseconds
)

type RadioStatus struct {
	SpentListen uint64
	SpentTx     uint64
	Timestamp   uint64
}

// DeviceEnergy is the energy spent by one device, in mJ.
type DeviceEnergy struct {
	Id     int     `yaml:"id"`
	Listen float64 `yaml:"listen"`
	Tx     float64 `yaml:"tx"`
}

// NetworkConsumption is the average energy spent per device, in mJ, at Timestamp.
type NetworkConsumption struct {
	Timestamp        uint64
	EnergyConsListen float64
	EnergyConsTx     float64
}
