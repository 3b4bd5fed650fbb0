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

package visualize_nats

import (
	"encoding/json"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/vanetsim/wave-sim/types"
	"github.com/vanetsim/wave-sim/visualize"
)

type published struct {
	subject string
	data    []byte
}

type fakeConn struct {
	msgs    []published
	subject string
	handler nats.MsgHandler
	drained bool
}

func (fc *fakeConn) Publish(subject string, data []byte) error {
	fc.msgs = append(fc.msgs, published{subject, data})
	return nil
}

func (fc *fakeConn) Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error) {
	fc.subject = subject
	fc.handler = cb
	return nil, nil
}

func (fc *fakeConn) Drain() error {
	fc.drained = true
	return nil
}

type fakeCtrl struct {
	speed   float64
	deleted []DeviceId
	started []uint32
	stopped []uint32
}

func (fc *fakeCtrl) CtrlSetSpeed(speed float64) error {
	fc.speed = speed
	return nil
}

func (fc *fakeCtrl) CtrlDeleteDevice(id DeviceId) error {
	fc.deleted = append(fc.deleted, id)
	return nil
}

func (fc *fakeCtrl) CtrlStartSch(id DeviceId, channel uint32, immediate bool, extendedAccess uint8) error {
	fc.started = append(fc.started, channel)
	return nil
}

func (fc *fakeCtrl) CtrlStopSch(id DeviceId, channel uint32) error {
	fc.stopped = append(fc.stopped, channel)
	return nil
}

func TestNatsVisualizer_Publish(t *testing.T) {
	fc := &fakeConn{}
	nv := NewNatsVisualizer(fc, "wave", "run1")
	nv.Init()
	assert.Equal(t, "wave.ctrl.>", fc.subject)

	nv.AdvanceTime(2000000, 1)
	nv.SetAccess(3, visualize.AccessInfo{Mode: AlternatingAccess, Channel: 176})
	nv.Send(3, &visualize.FrameInfo{PacketId: 9, Channel: 176, Size: 100})

	require.Len(t, fc.msgs, 3)
	assert.Equal(t, "wave.run1.time", fc.msgs[0].subject)
	assert.Equal(t, "wave.run1.access", fc.msgs[1].subject)
	assert.Equal(t, "wave.run1.tx", fc.msgs[2].subject)

	var access map[string]interface{}
	require.NoError(t, json.Unmarshal(fc.msgs[1].data, &access))
	assert.Equal(t, "alternating", access["mode"])
	assert.EqualValues(t, 176, access["channel"])

	var tx map[string]interface{}
	require.NoError(t, json.Unmarshal(fc.msgs[2].data, &tx))
	assert.EqualValues(t, 2000000, tx["time_us"])
	assert.EqualValues(t, 9, tx["packet"])

	nv.Stop()
	nv.Stop()
	assert.True(t, fc.drained)
}

func TestNatsVisualizer_Control(t *testing.T) {
	fc := &fakeConn{}
	ctrl := &fakeCtrl{}
	nv := NewNatsVisualizer(fc, "wave", "run1")
	nv.SetController(ctrl)
	nv.Init()

	fc.handler(&nats.Msg{Subject: "wave.ctrl.speed", Data: []byte(`{"speed":4}`)})
	fc.handler(&nats.Msg{Subject: "wave.ctrl.startsch", Data: []byte(`{"id":1,"channel":178}`)})
	fc.handler(&nats.Msg{Subject: "wave.ctrl.stopsch", Data: []byte(`{"id":1,"channel":178}`)})
	fc.handler(&nats.Msg{Subject: "wave.ctrl.delete", Data: []byte(`{"id":2}`), Reply: "inbox.1"})
	fc.handler(&nats.Msg{Subject: "wave.ctrl.reboot", Reply: "inbox.2"})

	assert.Equal(t, 4.0, ctrl.speed)
	assert.Equal(t, []uint32{178}, ctrl.started)
	assert.Equal(t, []uint32{178}, ctrl.stopped)
	assert.Equal(t, []DeviceId{2}, ctrl.deleted)

	require.Len(t, fc.msgs, 2)
	assert.Equal(t, "inbox.1", fc.msgs[0].subject)
	assert.JSONEq(t, `{"ok":true}`, string(fc.msgs[0].data))
	assert.Equal(t, "inbox.2", fc.msgs[1].subject)
	assert.JSONEq(t, `{"ok":false,"error":"unknown control command \"reboot\""}`, string(fc.msgs[1].data))
}
