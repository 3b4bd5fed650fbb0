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
	"github.com/vanetsim/wave-sim/logger"
)

type deviceEnergy struct {
	id    int
	radio RadioStatus
}

// computeRadioState accounts the time since the last update as listening.
func (dev *deviceEnergy) computeRadioState(timestamp uint64) {
	if timestamp < dev.radio.Timestamp {
		return
	}
	dev.radio.SpentListen += timestamp - dev.radio.Timestamp
	dev.radio.Timestamp = timestamp
}

// addTx moves a finished transmission from listening to transmit time.
func (dev *deviceEnergy) addTx(start, end uint64) {
	logger.AssertTrue(end >= start, "transmission ends before it starts")
	dev.computeRadioState(end)
	delta := end - start
	if delta > dev.radio.SpentListen {
		delta = dev.radio.SpentListen
	}
	dev.radio.SpentListen -= delta
	dev.radio.SpentTx += delta
}

func (dev *deviceEnergy) snapshot() DeviceEnergy {
	return DeviceEnergy{
		Id:     dev.id,
		Listen: float64(dev.radio.SpentListen) * RadioListenConsumption,
		Tx:     float64(dev.radio.SpentTx) * RadioTxConsumption,
	}
}

func newDevice(id int, timestamp uint64) *deviceEnergy {
	return &deviceEnergy{
		id: id,
		radio: RadioStatus{
			Timestamp: timestamp,
		},
	}
}
