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

package channel

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// DataRate is an OFDM data rate of a 10 MHz WAVE channel.
type DataRate int

const (
	UnknownDataRate DataRate = iota
	Ofdm3Mbps
	Ofdm4_5Mbps
	Ofdm6Mbps
	Ofdm9Mbps
	Ofdm12Mbps
	Ofdm18Mbps
	Ofdm24Mbps
	Ofdm27Mbps
)

// DefaultDataRate is the rate of a channel until a profile or packet asks for another one.
const DefaultDataRate = Ofdm6Mbps

// dataBitsPerSymbol holds the data bits carried by one 8 us OFDM symbol at each rate.
var dataBitsPerSymbol = map[DataRate]int{
	Ofdm3Mbps:   24,
	Ofdm4_5Mbps: 36,
	Ofdm6Mbps:   48,
	Ofdm9Mbps:   72,
	Ofdm12Mbps:  96,
	Ofdm18Mbps:  144,
	Ofdm24Mbps:  192,
	Ofdm27Mbps:  216,
}

var dataRateNames = map[DataRate]string{
	Ofdm3Mbps:   "3",
	Ofdm4_5Mbps: "4.5",
	Ofdm6Mbps:   "6",
	Ofdm9Mbps:   "9",
	Ofdm12Mbps:  "12",
	Ofdm18Mbps:  "18",
	Ofdm24Mbps:  "24",
	Ofdm27Mbps:  "27",
}

// DataBitsPerSymbol returns the data bits per OFDM symbol, or 0 for an unknown rate.
func (r DataRate) DataBitsPerSymbol() int {
	return dataBitsPerSymbol[r]
}

// BitsPerSecond returns the nominal bit rate.
func (r DataRate) BitsPerSecond() uint64 {
	return uint64(dataBitsPerSymbol[r]) * 125000
}

func (r DataRate) IsValid() bool {
	_, ok := dataBitsPerSymbol[r]
	return ok
}

func (r DataRate) String() string {
	if name, ok := dataRateNames[r]; ok {
		return "OfdmRate" + name + "Mbps"
	}
	return "UnknownDataRate"
}

// ParseDataRate parses a rate in Mbps such as "6" or "4.5".
func ParseDataRate(s string) (DataRate, error) {
	for r, name := range dataRateNames {
		if name == s {
			return r, nil
		}
	}
	return UnknownDataRate, fmt.Errorf("invalid data rate: %s Mbps", s)
}

// MarshalYAML writes the rate in Mbps, as accepted by ParseDataRate.
func (r DataRate) MarshalYAML() (interface{}, error) {
	return dataRateNames[r], nil
}

func (r *DataRate) UnmarshalYAML(value *yaml.Node) error {
	if value.Value == "" {
		*r = UnknownDataRate
		return nil
	}
	rate, err := ParseDataRate(value.Value)
	if err != nil {
		return err
	}
	*r = rate
	return nil
}
