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

// Package channel classifies WAVE channel numbers and tracks the lifecycle state of each channel slot.
package channel

import (
	"strconv"
)

// Number is a WAVE channel number.
type Number uint32

const (
	SCH1 Number = 172
	SCH2 Number = 174
	SCH3 Number = 176
	CCH  Number = 178
	SCH4 Number = 180
	SCH5 Number = 182
	SCH6 Number = 184

	// NumChannels is the number of WAVE channel slots: the control channel and six service channels.
	NumChannels = 7

	// DefaultOperatingClass is the operating class of every channel (10 MHz channels in the 5.9 GHz band).
	DefaultOperatingClass = 17
)

// ServiceChannels lists the service channel numbers in ascending order.
var ServiceChannels = [...]Number{SCH1, SCH2, SCH3, SCH4, SCH5, SCH6}

// AllChannels lists every WAVE channel number in ascending order.
var AllChannels = [...]Number{SCH1, SCH2, SCH3, CCH, SCH4, SCH5, SCH6}

func (n Number) String() string {
	return strconv.FormatUint(uint64(n), 10)
}

// IsControl reports whether n is the control channel.
func IsControl(n Number) bool {
	return n == CCH
}

// IsService reports whether n is one of the six service channels.
func IsService(n Number) bool {
	if n < SCH1 || n > SCH6 {
		return false
	}
	if n%2 == 1 {
		return false
	}
	return n != CCH
}

// IsWaveChannel reports whether n is the control channel or a service channel.
func IsWaveChannel(n Number) bool {
	return IsControl(n) || IsService(n)
}

// index returns the slot index of n, or NumChannels if n is not a WAVE channel.
func index(n Number) int {
	if !IsWaveChannel(n) {
		return NumChannels
	}
	return int(n-SCH1) / 2
}
