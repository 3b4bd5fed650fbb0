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

// Package visualize_nats publishes simulation events as JSON messages on a NATS server and accepts
// simulation control requests from it.
package visualize_nats

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"

	"github.com/vanetsim/wave-sim/logger"
	. "github.com/vanetsim/wave-sim/types"
	. "github.com/vanetsim/wave-sim/visualize"
)

// Conn is the part of *nats.Conn used by the visualizer.
type Conn interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error)
	Drain() error
}

// Connect opens a NATS connection with the reconnect settings used by the simulator.
func Connect(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("wave-sim"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(10),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warnf("NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Infof("NATS reconnected to %s", nc.ConnectedUrl())
		}))
	if err != nil {
		return nil, errors.Wrapf(err, "connect NATS %s", url)
	}
	return nc, nil
}

type deviceEvent struct {
	Id      DeviceId `json:"id"`
	Name    string   `json:"name,omitempty"`
	Deleted bool     `json:"deleted,omitempty"`
}

type accessEvent struct {
	Id DeviceId `json:"id"`
	AccessInfo
}

type frameEvent struct {
	Device DeviceId `json:"device"`
	TimeUs uint64   `json:"time_us"`
	*FrameInfo
}

type timeEvent struct {
	TimeUs uint64  `json:"time_us"`
	Speed  float64 `json:"speed"`
}

// ctrlRequest is the body of a request on <prefix>.ctrl.<command>.
type ctrlRequest struct {
	Id             DeviceId `json:"id"`
	Speed          float64  `json:"speed"`
	Channel        uint32   `json:"channel"`
	Immediate      bool     `json:"immediate"`
	ExtendedAccess uint8    `json:"extended_access"`
}

type ctrlReply struct {
	Ok    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type natsVisualizer struct {
	nc          Conn
	prefix      string
	runId       string
	ctrl        SimulationController
	timestampUs uint64
	stopped     chan struct{}
}

// NewNatsVisualizer creates a new Visualizer that publishes on subjects <prefix>.<runId>.<event>.
func NewNatsVisualizer(nc Conn, prefix string, runId string) Visualizer {
	return &natsVisualizer{
		nc:      nc,
		prefix:  prefix,
		runId:   runId,
		stopped: make(chan struct{}),
	}
}

func (nv *natsVisualizer) subject(event string) string {
	return nv.prefix + "." + nv.runId + "." + event
}

func (nv *natsVisualizer) publish(event string, v interface{}) {
	data, err := json.Marshal(v)
	logger.PanicIfError(err)
	if err = nv.nc.Publish(nv.subject(event), data); err != nil {
		logger.Warnf("NATS publish %s failed: %v", event, err)
	}
}

func (nv *natsVisualizer) Init() {
	_, err := nv.nc.Subscribe(nv.prefix+".ctrl.>", nv.handleCtrl)
	if err != nil {
		logger.Errorf("NATS subscribe failed: %v", err)
	}
}

// Run blocks until Stop is called.
func (nv *natsVisualizer) Run() {
	<-nv.stopped
}

func (nv *natsVisualizer) Stop() {
	select {
	case <-nv.stopped:
		return
	default:
		close(nv.stopped)
	}
	if err := nv.nc.Drain(); err != nil {
		logger.Warnf("NATS drain failed: %v", err)
	}
	logger.Debugf("natsVisualizer stopped.")
}

func (nv *natsVisualizer) AddDevice(id DeviceId, cfg *DeviceConfig) {
	nv.publish("device", deviceEvent{Id: id, Name: cfg.Name})
}

func (nv *natsVisualizer) DeleteDevice(id DeviceId) {
	nv.publish("device", deviceEvent{Id: id, Deleted: true})
}

func (nv *natsVisualizer) SetAccess(id DeviceId, access AccessInfo) {
	access.ModeName = access.Mode.String()
	nv.publish("access", accessEvent{Id: id, AccessInfo: access})
}

func (nv *natsVisualizer) Send(src DeviceId, frame *FrameInfo) {
	nv.publish("tx", frameEvent{Device: src, TimeUs: nv.timestampUs, FrameInfo: frame})
}

func (nv *natsVisualizer) Receive(dst DeviceId, frame *FrameInfo) {
	nv.publish("rx", frameEvent{Device: dst, TimeUs: nv.timestampUs, FrameInfo: frame})
}

func (nv *natsVisualizer) SetSpeed(speed float64) {
	nv.publish("speed", timeEvent{TimeUs: nv.timestampUs, Speed: speed})
}

func (nv *natsVisualizer) AdvanceTime(ts uint64, speed float64) {
	nv.timestampUs = ts
	nv.publish("time", timeEvent{TimeUs: ts, Speed: speed})
}

func (nv *natsVisualizer) SetController(ctrl SimulationController) {
	nv.ctrl = ctrl
}

// handleCtrl runs on a NATS goroutine.
func (nv *natsVisualizer) handleCtrl(msg *nats.Msg) {
	err := nv.dispatchCtrl(msg)
	if err != nil {
		logger.Warnf("NATS control %s failed: %v", msg.Subject, err)
	}
	if msg.Reply == "" {
		return
	}
	reply := ctrlReply{Ok: err == nil}
	if err != nil {
		reply.Error = err.Error()
	}
	data, _ := json.Marshal(reply)
	_ = nv.nc.Publish(msg.Reply, data)
}

func (nv *natsVisualizer) dispatchCtrl(msg *nats.Msg) error {
	if nv.ctrl == nil {
		return errors.New("no simulation controller")
	}
	var req ctrlRequest
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			return errors.Wrap(err, "bad control request")
		}
	}

	cmd := msg.Subject[strings.LastIndexByte(msg.Subject, '.')+1:]
	switch cmd {
	case "speed":
		return nv.ctrl.CtrlSetSpeed(req.Speed)
	case "delete":
		return nv.ctrl.CtrlDeleteDevice(req.Id)
	case "startsch":
		return nv.ctrl.CtrlStartSch(req.Id, req.Channel, req.Immediate, req.ExtendedAccess)
	case "stopsch":
		return nv.ctrl.CtrlStopSch(req.Id, req.Channel)
	default:
		return errors.Errorf("unknown control command %q", cmd)
	}
}
