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

package prng

import (
	"math/rand"
	"time"
)

var (
	trafficJitterGen     *rand.Rand
	backoffGenerator     *rand.Rand
	payloadSizeGenerator *rand.Rand
)

func init() {
	Init(1)
}

// Init initializes the prng package, either with a fixed PRNG seed (rootSeed != 0) or a 'random' time-based PRNG
// seed (if rootSeed == 0).
func Init(rootSeed int64) {
	if rootSeed == 0 {
		rootSeed = time.Now().UnixNano()
	}
	root := rand.New(rand.NewSource(rootSeed))

	trafficJitterGen = rand.New(rand.NewSource(rootSeed + root.Int63n(1e10)))
	backoffGenerator = rand.New(rand.NewSource(rootSeed + root.Int63n(1e10)))
	payloadSizeGenerator = rand.New(rand.NewSource(rootSeed + root.Int63n(1e10)))
}

// NewTrafficJitter returns a random start offset in [0, max) for a traffic generator.
func NewTrafficJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(trafficJitterGen.Int63n(int64(max)))
}

// NewBackoffSlots draws a backoff slot count in [0, cw].
func NewBackoffSlots(cw int) int {
	return backoffGenerator.Intn(cw + 1)
}

// NewPayloadSize draws a payload size in [min, max].
func NewPayloadSize(min, max int) int {
	if max <= min {
		return min
	}
	return min + payloadSizeGenerator.Intn(max-min+1)
}
