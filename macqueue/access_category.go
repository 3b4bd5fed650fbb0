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
	"fmt"
	"time"
)

// AccessCategory is an EDCA access category.
type AccessCategory int

const (
	AcBK AccessCategory = iota
	AcBE
	AcVI
	AcVO

	NumAccessCategories = 4
)

// priorityToAc maps 802.1D user priorities to access categories.
var priorityToAc = [8]AccessCategory{AcBE, AcBK, AcBK, AcBE, AcVI, AcVI, AcVO, AcVO}

// AcFromPriority returns the access category of a user priority; out of range values map to AcBE.
func AcFromPriority(prio uint8) AccessCategory {
	if int(prio) >= len(priorityToAc) {
		return AcBE
	}
	return priorityToAc[prio]
}

func (ac AccessCategory) String() string {
	switch ac {
	case AcBK:
		return "BK"
	case AcBE:
		return "BE"
	case AcVI:
		return "VI"
	case AcVO:
		return "VO"
	default:
		return fmt.Sprintf("AC(%d)", int(ac))
	}
}

// EdcaParameters are the contention parameters of one access category.
type EdcaParameters struct {
	CwMin int `yaml:"cwmin"`
	CwMax int `yaml:"cwmax"`
	Aifsn int `yaml:"aifsn"`
}

const (
	SlotTime = 13 * time.Microsecond
	Sifs     = 32 * time.Microsecond
)

// DefaultEdcaParameters returns the 10 MHz OCB defaults per access category.
func DefaultEdcaParameters() [NumAccessCategories]EdcaParameters {
	return [NumAccessCategories]EdcaParameters{
		AcBK: {CwMin: 15, CwMax: 1023, Aifsn: 9},
		AcBE: {CwMin: 15, CwMax: 1023, Aifsn: 6},
		AcVI: {CwMin: 7, CwMax: 15, Aifsn: 3},
		AcVO: {CwMin: 3, CwMax: 7, Aifsn: 2},
	}
}

// Aifs returns the arbitration inter-frame space of the parameter set.
func (p EdcaParameters) Aifs() time.Duration {
	return Sifs + time.Duration(p.Aifsn)*SlotTime
}
