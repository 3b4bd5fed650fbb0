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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanetsim/wave-sim/channel"
	. "github.com/vanetsim/wave-sim/types"
)

func TestPcapFile(t *testing.T) {
	pcapFilename := filepath.Join(t.TempDir(), "test.pcap")
	pcap, err := NewFile(pcapFilename, FrameTypeWlan)
	require.NoError(t, err)

	defer func() {
		_ = pcap.Close()
	}()

	require.NoError(t, pcap.Sync())
	assert.Equal(t, pcapFileHeaderSize, getFileSize(t, pcapFilename))

	for i := 0; i < 10; i++ {
		frame := Frame{
			Timestamp: uint64(i) * 1000,
			Data:      []byte{0x12, 0x10, 0xa6, 0x80, 0x65},
			Channel:   channel.CCH,
			DataRate:  channel.Ofdm6Mbps,
		}
		require.NoError(t, pcap.AppendFrame(frame))
		require.NoError(t, pcap.Sync())
		assert.Equal(t, pcapFileHeaderSize+(pcapFrameHeaderSize+5)*(i+1), getFileSize(t, pcapFilename))
	}
}

func TestPcapRadiotapFile(t *testing.T) {
	pcapFilename := filepath.Join(t.TempDir(), "test_radiotap.pcap")
	pcap, err := NewFile(pcapFilename, FrameTypeRadiotap)
	require.NoError(t, err)

	frame := Frame{
		Timestamp: 1500000,
		Data:      []byte{0x12, 0x10, 0x30, 0x3f, 0x94},
		Channel:   channel.SCH1,
		DataRate:  channel.Ofdm12Mbps,
	}
	require.NoError(t, pcap.AppendFrame(frame))
	require.NoError(t, pcap.Close())

	data, err := os.ReadFile(pcapFilename)
	require.NoError(t, err)
	require.Equal(t, pcapFileHeaderSize+pcapFrameHeaderSize+radiotapHeaderSize+5, len(data))
	assert.Equal(t, uint32(dltIeee80211Radio), binary.LittleEndian.Uint32(data[20:24]))

	rec := data[pcapFileHeaderSize:]
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(rec[0:4]))
	assert.Equal(t, uint32(500000), binary.LittleEndian.Uint32(rec[4:8]))
	rt := rec[pcapFrameHeaderSize:]
	assert.Equal(t, byte(24), rt[9]) // 12 Mbps in 500 kbps units
	assert.Equal(t, uint16(5860), binary.LittleEndian.Uint16(rt[10:12]))
}

func TestParseFrameTypeStr(t *testing.T) {
	assert.Equal(t, FrameTypeOff, ParseFrameTypeStr("off"))
	assert.Equal(t, FrameTypeWlan, ParseFrameTypeStr("wlan"))
	assert.Equal(t, FrameTypeRadiotap, ParseFrameTypeStr("radiotap"))
	assert.Equal(t, FrameTypeUnknown, ParseFrameTypeStr("wpan"))
	_, err := NewFile(filepath.Join(t.TempDir(), "x.pcap"), FrameTypeOff)
	assert.Error(t, err)
}

func TestEncodeDataFrame(t *testing.T) {
	data := EncodeDataFrame(0x0102, BroadcastDeviceId, 5, 6, ProtocolWsmp, 10)
	require.Len(t, data, wlanQosDataHeaderSize+llcSnapHeaderSize+10)
	assert.Equal(t, byte(0x88), data[0])
	assert.Equal(t, broadcastMac[:], data[4:10])
	assert.Equal(t, []byte{0x02, 0, 0, 0, 0x01, 0x02}, data[10:16])
	assert.Equal(t, uint16(5<<4), binary.LittleEndian.Uint16(data[22:24]))
	assert.Equal(t, byte(6), data[24])
	assert.Equal(t, []byte{0xaa, 0xaa, 0x03, 0, 0, 0, 0x88, 0xdc}, data[26:34])

	unicast := EncodeDataFrame(1, 2, 0, 0, ProtocolWsmp, 0)
	assert.Equal(t, []byte{0x02, 0, 0, 0, 0, 0x02}, unicast[4:10])
}

func getFileSize(t *testing.T, fp string) int {
	info, err := os.Stat(fp)
	if err != nil {
		t.Fatal(err)
	}

	return int(info.Size())
}
