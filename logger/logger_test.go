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

package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/vanetsim/wave-sim/types"
)

func TestParseLevelString(t *testing.T) {
	lev, err := ParseLevelString("debug")
	assert.Nil(t, err)
	assert.Equal(t, DebugLevel, lev)

	lev, err = ParseLevelString("W")
	assert.Nil(t, err)
	assert.Equal(t, WarnLevel, lev)

	lev, err = ParseLevelString("Crit")
	assert.Nil(t, err)
	assert.Equal(t, ErrorLevel, lev)

	lev, err = ParseLevelString("default")
	assert.Nil(t, err)
	assert.Equal(t, DefaultLevel, lev)

	_, err = ParseLevelString("loud")
	assert.NotNil(t, err)
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "error", ErrorLevel.String())
	assert.Equal(t, "off", OffLevel.String())
	assert.Equal(t, "micro", MicroLevel.String())
	assert.Equal(t, "level(9)", Level(9).String())

	for lv := OffLevel; lv <= MicroLevel; lv++ {
		parsed, err := ParseLevelString(lv.String())
		assert.Nil(t, err)
		assert.Equal(t, lv, parsed)
	}
}

func TestLevelSet(t *testing.T) {
	lv := InfoLevel
	assert.Nil(t, lv.Set("trace"))
	assert.Equal(t, TraceLevel, lv)
	assert.NotNil(t, lv.Set("bogus"))
	assert.Equal(t, TraceLevel, lv)
}

func TestAssertPanics(t *testing.T) {
	assert.NotPanics(t, func() { AssertTrue(true) })
	assert.Panics(t, func() { AssertTrue(false) })
	assert.Panics(t, func() { AssertNotNil(nil) })
	assert.Panics(t, func() { AssertEqual(1, 2) })
}

func TestAssertPanicsWhenLoggingOff(t *testing.T) {
	prev := GetLevel()
	defer SetLevel(prev)
	SetLevel(OffLevel)
	assert.Panics(t, func() { AssertFalse(true) })
}

func TestDeviceLogger(t *testing.T) {
	dir := t.TempDir()
	var now uint64 = 1500
	cfg := DefaultDeviceConfig()
	cfg.ID = 7
	cfg.DeviceLogFile = true

	dl := GetDeviceLogger(dir, "run", &cfg, func() uint64 { return now })
	assert.True(t, dl.IsFileEnabled())
	dl.Infof("retune to %d", 178)
	DeviceLogf(7, DebugLevel, "hello %s", "there")
	dl.DisplayPendingLogEntries()
	dl.Close()

	data, err := os.ReadFile(filepath.Join(dir, "run_7.log"))
	assert.Nil(t, err)
	assert.Contains(t, string(data), "1500 retune to 178")
	assert.Contains(t, string(data), "hello there")
}

func TestSetOutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wave.log")
	SetOutputFile(DefaultFileConfig(path))
	Warnf("written to %s", "file")
	Sync()
	SetOutputFile(FileConfig{})

	data, err := os.ReadFile(path)
	assert.Nil(t, err)
	assert.Contains(t, string(data), "written to file")
}
