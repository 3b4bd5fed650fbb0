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

package pcap

import (
	"encoding/binary"

	"github.com/vanetsim/wave-sim/channel"
	. "github.com/vanetsim/wave-sim/types"
)

const (
	radiotapHeaderSize = 14

	radiotapPresentFlags   = 1 << 1
	radiotapPresentRate    = 1 << 2
	radiotapPresentChannel = 1 << 3

	radiotapChanOfdm     = 0x0040
	radiotapChan5Ghz     = 0x0100
	radiotapChanHalfRate = 0x4000

	wlanQosDataHeaderSize = 26
	llcSnapHeaderSize     = 8
)

var broadcastMac = [6]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// radiotapHeader returns the header with flags, rate and channel of a 10 MHz OFDM frame.
func radiotapHeader(frame Frame) []byte {
	hdr := make([]byte, radiotapHeaderSize)
	binary.LittleEndian.PutUint16(hdr[2:4], radiotapHeaderSize)
	binary.LittleEndian.PutUint32(hdr[4:8], radiotapPresentFlags|radiotapPresentRate|radiotapPresentChannel)
	hdr[8] = 0 // no FCS at end
	hdr[9] = byte(frame.DataRate.BitsPerSecond() / 500000)
	binary.LittleEndian.PutUint16(hdr[10:12], ChannelFrequencyMhz(frame.Channel))
	binary.LittleEndian.PutUint16(hdr[12:14], radiotapChanOfdm|radiotapChan5Ghz|radiotapChanHalfRate)
	return hdr
}

// ChannelFrequencyMhz returns the center frequency of a 5 GHz channel number.
func ChannelFrequencyMhz(n channel.Number) uint16 {
	return uint16(5000 + 5*n)
}

// DeviceMac returns the locally administered MAC address used for a device in captures.
func DeviceMac(id DeviceId) [6]byte {
	return [6]byte{0x02, 0x00, 0x00, 0x00, byte(id >> 8), byte(id)}
}

// EncodeDataFrame builds an 802.11 QoS data frame sent outside the context of a BSS, carrying an
// LLC/SNAP header with the protocol and a zeroed payload of size bytes.
func EncodeDataFrame(src DeviceId, dst DeviceId, seq uint16, tid uint8, protocol uint16, size int) []byte {
	data := make([]byte, wlanQosDataHeaderSize+llcSnapHeaderSize+size)
	data[0] = 0x88 // type data, subtype QoS data
	data[1] = 0    // not to or from a DS
	addr1 := broadcastMac
	if dst != BroadcastDeviceId {
		addr1 = DeviceMac(dst)
	}
	addr2 := DeviceMac(src)
	copy(data[4:10], addr1[:])
	copy(data[10:16], addr2[:])
	copy(data[16:22], broadcastMac[:]) // wildcard BSSID
	binary.LittleEndian.PutUint16(data[22:24], (seq&0x0fff)<<4)
	binary.LittleEndian.PutUint16(data[24:26], uint16(tid&0x0f))

	llc := data[wlanQosDataHeaderSize:]
	llc[0], llc[1], llc[2] = 0xaa, 0xaa, 0x03
	binary.BigEndian.PutUint16(llc[6:8], protocol)
	return data
}
