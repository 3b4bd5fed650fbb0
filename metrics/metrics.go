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

// Package metrics exports per-device WAVE statistics to Prometheus.
package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	. "github.com/vanetsim/wave-sim/types"
)

const namespace = "wave"

// Drop reasons used as the "reason" label of wave_dropped_total.
const (
	ReasonNoAccess = "no_access"
	ReasonGuard    = "guard"
	ReasonExpired  = "expired"
	ReasonFlushed  = "flushed"
	ReasonAborted  = "aborted"
	ReasonRefused  = "refused"
)

var (
	// Registry holds the simulator metrics; served by the web package.
	Registry = prometheus.NewRegistry()

	txCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tx_total",
			Help:      "Count of frames transmitted completely.",
		},
		[]string{"device", "channel"},
	)
	rxCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rx_total",
			Help:      "Count of frames passed up by the device.",
		},
		[]string{"device", "channel"},
	)
	deferredCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deferred_total",
			Help:      "Count of frames held back because they would overlap a guard interval.",
		},
		[]string{"device"},
	)
	droppedCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_total",
			Help:      "Count of frames dropped, by reason.",
		},
		[]string{"device", "reason"},
	)
	retunesCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retunes_total",
			Help:      "Count of radio channel switches.",
		},
		[]string{"device"},
	)
	accessModeGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "access_mode",
			Help:      "Current access mode of the device: 0 none, 1 continuous, 2 alternating, 3 extended.",
		},
		[]string{"device"},
	)
	accessChannelGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "access_channel",
			Help:      "Service channel the device has access to, or 0.",
		},
		[]string{"device"},
	)
)

var registerMetrics sync.Once

// Register all metrics.
func Register() {
	registerMetrics.Do(func() {
		Registry.MustRegister(txCounter)
		Registry.MustRegister(rxCounter)
		Registry.MustRegister(deferredCounter)
		Registry.MustRegister(droppedCounter)
		Registry.MustRegister(retunesCounter)
		Registry.MustRegister(accessModeGauge)
		Registry.MustRegister(accessChannelGauge)
	})
}

func deviceLabel(id DeviceId) string {
	return strconv.Itoa(id)
}

// RecordTx records a frame sent by device id on channel ch.
func RecordTx(id DeviceId, ch uint32) {
	txCounter.WithLabelValues(deviceLabel(id), strconv.FormatUint(uint64(ch), 10)).Inc()
}

// RecordRx records a frame received by device id on channel ch.
func RecordRx(id DeviceId, ch uint32) {
	rxCounter.WithLabelValues(deviceLabel(id), strconv.FormatUint(uint64(ch), 10)).Inc()
}

func AddDeferred(id DeviceId, n uint64) {
	if n > 0 {
		deferredCounter.WithLabelValues(deviceLabel(id)).Add(float64(n))
	}
}

func AddDropped(id DeviceId, reason string, n uint64) {
	if n > 0 {
		droppedCounter.WithLabelValues(deviceLabel(id), reason).Add(float64(n))
	}
}

func AddRetunes(id DeviceId, n uint64) {
	if n > 0 {
		retunesCounter.WithLabelValues(deviceLabel(id)).Add(float64(n))
	}
}

// SetAccess records the access mode and channel of device id.
func SetAccess(id DeviceId, mode AccessMode, ch uint32) {
	accessModeGauge.WithLabelValues(deviceLabel(id)).Set(float64(mode))
	accessChannelGauge.WithLabelValues(deviceLabel(id)).Set(float64(ch))
}

// DeleteDevice removes all series of device id.
func DeleteDevice(id DeviceId) {
	labels := prometheus.Labels{"device": deviceLabel(id)}
	txCounter.DeletePartialMatch(labels)
	rxCounter.DeletePartialMatch(labels)
	deferredCounter.DeletePartialMatch(labels)
	droppedCounter.DeletePartialMatch(labels)
	retunesCounter.DeletePartialMatch(labels)
	accessModeGauge.DeletePartialMatch(labels)
	accessChannelGauge.DeletePartialMatch(labels)
}
