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

package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanetsim/wave-sim/channel"
	"github.com/vanetsim/wave-sim/device"
	"github.com/vanetsim/wave-sim/simulation"
	. "github.com/vanetsim/wave-sim/types"
)

func newTestServer(t *testing.T) (*Server, *simulation.Simulation) {
	cfg := simulation.DefaultConfig()
	cfg.OutputDir = t.TempDir()
	sim, err := simulation.NewSimulation(nil, cfg, nil)
	require.NoError(t, err)
	t.Cleanup(sim.Stop)

	s := NewServer(sim)
	s.exec = func(ctx context.Context, f func()) error {
		f()
		return nil
	}
	return s, sim
}

func get(t *testing.T, s *Server, path string) (int, string) {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	return rec.Code, string(body)
}

func TestDevicesApi(t *testing.T) {
	s, sim := newTestServer(t)
	cfg := DefaultDeviceConfig()
	cfg.ID = 3
	_, err := sim.AddDevice(&cfg)
	require.NoError(t, err)
	require.NoError(t, sim.StartSch(3, device.SchInfo{Channel: channel.SCH2, Immediate: true, ExtendedAccess: 0xff}))

	code, body := get(t, s, "/api/devices/")
	assert.Equal(t, http.StatusOK, code)
	var list []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(body), &list))
	require.Len(t, list, 1)
	assert.EqualValues(t, 3, list[0]["id"])
	assert.Equal(t, "continuous", list[0]["access"])
	assert.EqualValues(t, 174, list[0]["channel"])

	code, body = get(t, s, "/api/devices/3")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `"radio_channel":174`)

	code, _ = get(t, s, "/api/devices/4")
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = get(t, s, "/api/devices/abc")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestTimeApi(t *testing.T) {
	s, sim := newTestServer(t)
	sim.RunFor(1500 * time.Microsecond)

	code, body := get(t, s, "/api/time")
	assert.Equal(t, http.StatusOK, code)
	var ts simulation.TimeStatus
	require.NoError(t, json.Unmarshal([]byte(body), &ts))
	assert.Equal(t, uint64(1500), ts.TimeUs)
	assert.Equal(t, sim.RunId(), ts.RunId)
}

func TestMetricsApi(t *testing.T) {
	s, sim := newTestServer(t)
	cfg := DefaultDeviceConfig()
	cfg.ID = 1
	_, err := sim.AddDevice(&cfg)
	require.NoError(t, err)

	code, body := get(t, s, "/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, strings.Contains(body, "wave_access_mode"))
}

func TestQueryError(t *testing.T) {
	s, _ := newTestServer(t)
	s.exec = func(ctx context.Context, f func()) error {
		return context.DeadlineExceeded
	}
	code, body := get(t, s, "/api/time")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, body, "deadline")
}
