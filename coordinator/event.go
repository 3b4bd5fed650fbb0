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

package coordinator

import (
	"fmt"
	"time"
)

// EventKind is the kind of phase transition announced by the Coordinator.
type EventKind int

const (
	// GuardStart is announced when a guard interval begins at the start of a control or service interval.
	GuardStart EventKind = iota
	// ControlStart is announced when the usable control slot begins, right after its guard.
	ControlStart
	// ServiceStart is announced when the usable service slot begins, right after its guard.
	ServiceStart
)

func (k EventKind) String() string {
	switch k {
	case GuardStart:
		return "guard"
	case ControlStart:
		return "control"
	case ServiceStart:
		return "service"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is delivered to every registered Handler on a phase transition.
type Event struct {
	Kind EventKind
	// Duration is the length of the guard (GuardStart) or of the usable slot (ControlStart, ServiceStart).
	Duration time.Duration
	// ControlGuard is set for a GuardStart that leads into a control interval.
	ControlGuard bool
	// At is the simulation time of the transition.
	At time.Duration
}

// Handler consumes timeline events. Handlers run synchronously and in registration order.
type Handler func(ev Event)
