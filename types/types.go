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

package types

import (
	"fmt"
	"math"
)

type DeviceId = int

const (
	MaxDeviceId       DeviceId = 0xffff
	InvalidDeviceId   DeviceId = 0
	BroadcastDeviceId DeviceId = -1
)

const (
	// Ever is the timestamp of an event that never happens.
	Ever uint64 = math.MaxUint64 / 2
)

// GetDeviceName returns the display name of a device, used as log prefix.
func GetDeviceName(id DeviceId) string {
	return fmt.Sprintf("device<%d>", id)
}

// AccessMode is the channel access discipline a device currently follows.
type AccessMode int

const (
	NoAccess          AccessMode = 0
	ContinuousAccess  AccessMode = 1
	AlternatingAccess AccessMode = 2
	ExtendedAccess    AccessMode = 3
)

func (m AccessMode) String() string {
	switch m {
	case NoAccess:
		return "none"
	case ContinuousAccess:
		return "continuous"
	case AlternatingAccess:
		return "alternating"
	case ExtendedAccess:
		return "extended"
	default:
		return fmt.Sprintf("AccessMode(%d)", int(m))
	}
}

func (m AccessMode) MarshalYAML() (interface{}, error) {
	return m.String(), nil
}

// Protocol numbers (EtherType) carried by frames handed to a device.
const (
	ProtocolIpv4 uint16 = 0x0800
	ProtocolIpv6 uint16 = 0x86DD
	ProtocolWsmp uint16 = 0x88DC
)
