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

// Package packet defines the outbound frame handed from the device to the MAC queues and the radio.
package packet

import (
	"fmt"
	"time"

	"github.com/vanetsim/wave-sim/channel"
	. "github.com/vanetsim/wave-sim/types"
)

const (
	// MaxPriority is the highest 802.1D user priority.
	MaxPriority = 7
	// MaxExpiryMs is the largest per-packet expiry override accepted, in milliseconds.
	MaxExpiryMs = 500
	// MacOverhead is the number of MAC header, LLC/SNAP and FCS bytes added to the payload.
	MacOverhead = 26 + 8 + 4
)

// TxVector is the transmit rate and power requested by a higher layer.
type TxVector struct {
	DataRate     channel.DataRate
	TxPowerLevel int
	// Adapter makes DataRate a lower bound and TxPowerLevel an upper bound instead of exact values.
	Adapter bool
}

// Packet is an outbound frame tagged with its destination channel.
type Packet struct {
	Id       uint64
	Src      DeviceId
	Dst      DeviceId
	Protocol uint16
	Size     int // payload bytes
	Channel  channel.Number
	Priority uint8
	// ExpiryMs overrides the queue's maximum delay when non-zero and smaller.
	ExpiryMs uint32
	// TxVector is set when the sender requested a rate and power.
	TxVector *TxVector

	// EnqueueTime is stamped when the packet first enters a channel queue.
	EnqueueTime time.Duration
}

// FrameSize is the number of bytes sent over the air.
func (p *Packet) FrameSize() int {
	return p.Size + MacOverhead
}

// Lifetime returns how long the packet may wait in a queue whose default maximum delay is maxDelay.
func (p *Packet) Lifetime(maxDelay time.Duration) time.Duration {
	if p.ExpiryMs == 0 {
		return maxDelay
	}
	expiry := time.Duration(p.ExpiryMs) * time.Millisecond
	if expiry < maxDelay {
		return expiry
	}
	return maxDelay
}

func (p *Packet) String() string {
	return fmt.Sprintf("pkt#%d %d->%d ch=%d prio=%d size=%d", p.Id, p.Src, p.Dst, p.Channel, p.Priority, p.Size)
}
