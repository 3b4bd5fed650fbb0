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

package macqueue

import (
	"container/list"
	"time"

	"github.com/vanetsim/wave-sim/packet"
)

const (
	DefaultMaxDelay = 500 * time.Millisecond
	DefaultMaxSize  = 400
)

// Queue is the outbound queue of one channel and access category. Packets older than their lifetime
// are dropped by Cleanup.
type Queue struct {
	packets  *list.List
	maxDelay time.Duration
	maxSize  int
}

func NewQueue(maxDelay time.Duration, maxSize int) *Queue {
	if maxDelay <= 0 {
		maxDelay = DefaultMaxDelay
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Queue{
		packets:  list.New(),
		maxDelay: maxDelay,
		maxSize:  maxSize,
	}
}

func (q *Queue) Len() int {
	return q.packets.Len()
}

func (q *Queue) MaxDelay() time.Duration {
	return q.maxDelay
}

// Enqueue appends p, stamping it with now. It returns false and drops p if the queue is full.
func (q *Queue) Enqueue(p *packet.Packet, now time.Duration) bool {
	if q.packets.Len() >= q.maxSize {
		return false
	}
	p.EnqueueTime = now
	q.packets.PushBack(p)
	return true
}

// PushFront returns p to the head of the queue, keeping its original timestamp.
func (q *Queue) PushFront(p *packet.Packet) {
	q.packets.PushFront(p)
}

// Dequeue removes and returns the head packet, or nil.
func (q *Queue) Dequeue() *packet.Packet {
	e := q.packets.Front()
	if e == nil {
		return nil
	}
	return q.packets.Remove(e).(*packet.Packet)
}

// Peek returns the head packet without removing it, or nil.
func (q *Queue) Peek() *packet.Packet {
	e := q.packets.Front()
	if e == nil {
		return nil
	}
	return e.Value.(*packet.Packet)
}

// Cleanup drops every packet whose enqueue time plus lifetime is not after now. It returns the
// number of dropped packets.
func (q *Queue) Cleanup(now time.Duration) int {
	dropped := 0
	for e := q.packets.Front(); e != nil; {
		next := e.Next()
		p := e.Value.(*packet.Packet)
		if p.EnqueueTime+p.Lifetime(q.maxDelay) <= now {
			q.packets.Remove(e)
			dropped++
		}
		e = next
	}
	return dropped
}

// Flush discards all packets and returns how many there were.
func (q *Queue) Flush() int {
	n := q.packets.Len()
	q.packets.Init()
	return n
}
