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
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	. "github.com/vanetsim/wave-sim/types"
)

// DeviceLogger is a device-specific log object. Levels and output file can be set per individual device.
// Entries are stamped with the simulation time of the clock given to the logger.
type DeviceLogger struct {
	Id           DeviceId
	fileLevel    Level
	displayLevel Level

	logFile       *lumberjack.Logger
	logFileName   string
	isFileEnabled bool
	entries       chan logEntry
	clock         func() uint64
}

var (
	deviceLogs = make(map[DeviceId]*DeviceLogger, 10)
	mutex      = sync.Mutex{}
)

// GetDeviceLogger gets the DeviceLogger instance for the given device and configures it. If outputDir is
// empty, no log file is written.
func GetDeviceLogger(outputDir string, runId string, cfg *DeviceConfig, clock func() uint64) *DeviceLogger {
	mutex.Lock()
	defer mutex.Unlock()

	id := cfg.ID
	dl, ok := deviceLogs[id]
	if !ok {
		dl = &DeviceLogger{
			Id:           id,
			fileLevel:    DebugLevel,
			displayLevel: ErrorLevel,
			entries:      make(chan logEntry, 1000),
		}
		deviceLogs[id] = dl
	}
	dl.clock = clock
	dl.isFileEnabled = cfg.DeviceLogFile && outputDir != ""
	if dl.isFileEnabled && dl.logFile == nil {
		dl.logFileName = filepath.Join(outputDir, fmt.Sprintf("%s_%d.log", runId, id))
		dl.logFile = &lumberjack.Logger{
			Filename:   dl.logFileName,
			MaxSize:    20,
			MaxBackups: 1,
		}
		dl.writeLogFileHeader()
	}
	return dl
}

func (dl *DeviceLogger) writeLogFileHeader() {
	header := fmt.Sprintf("#\n# WAVE device log for %s Created %s\n", GetDeviceName(dl.Id),
		time.Now().Format(time.RFC3339)) +
		"# SimTimeUs  Message"
	_ = dl.writeToLogFile(header)
}

// DeviceLogf logs a formatted log message for the specific device; correct DeviceLogger object will be auto-found.
func DeviceLogf(id DeviceId, level Level, format string, args ...interface{}) {
	mutex.Lock()
	dl := deviceLogs[id]
	mutex.Unlock()
	if dl == nil {
		Logf(level, format, args)
		return
	}
	dl.logf(level, format, args)
}

func (dl *DeviceLogger) logf(level Level, format string, args []interface{}) {
	if level > dl.fileLevel && level > dl.displayLevel {
		return
	}
	var ts uint64
	if dl.clock != nil {
		ts = dl.clock()
	}
	entry := logEntry{
		DeviceId:    dl.Id,
		Level:       level,
		Msg:         getMessage(format, args),
		TimestampUs: ts,
	}
	select {
	case dl.entries <- entry:
		break
	default:
		dl.DisplayPendingLogEntries()
		dl.entries <- entry
	}
	if level <= PanicLevel {
		dl.DisplayPendingLogEntries()
	}
}

func (dl *DeviceLogger) SetFileLevel(level Level) {
	dl.fileLevel = level
}

func (dl *DeviceLogger) SetDisplayLevel(level Level) {
	dl.displayLevel = level
}

func (dl *DeviceLogger) GetDisplayLevel() Level {
	return dl.displayLevel
}

func (dl *DeviceLogger) Tracef(format string, args ...interface{}) {
	dl.logf(TraceLevel, format, args)
}

func (dl *DeviceLogger) Debugf(format string, args ...interface{}) {
	dl.logf(DebugLevel, format, args)
}

func (dl *DeviceLogger) Infof(format string, args ...interface{}) {
	dl.logf(InfoLevel, format, args)
}

func (dl *DeviceLogger) Warnf(format string, args ...interface{}) {
	dl.logf(WarnLevel, format, args)
}

func (dl *DeviceLogger) Errorf(format string, args ...interface{}) {
	dl.logf(ErrorLevel, format, args)
}

func (dl *DeviceLogger) Panicf(format string, args ...interface{}) {
	dl.logf(PanicLevel, format, args)
}

func (dl *DeviceLogger) writeToLogFile(line string) error {
	_, err := dl.logFile.Write([]byte(line + "\n"))
	if err != nil {
		dl.isFileEnabled = false
		Errorf("couldn't write to device log file (%s), closing it", dl.logFileName)
		_ = dl.logFile.Close()
		dl.logFile = nil
	}
	return err
}

// DisplayPendingLogEntries displays all pending log entries for the device, writing them to the device
// log file too if enabled.
func (dl *DeviceLogger) DisplayPendingLogEntries() {
	devStr := GetDeviceName(dl.Id)
	for {
		select {
		case entry := <-dl.entries:
			isSaveEntry := dl.fileLevel >= entry.Level
			isDisplayEntry := dl.displayLevel >= entry.Level
			logStr := fmt.Sprintf("%11d %s", entry.TimestampUs, entry.Msg)
			// whatever is displayed (watch), will also be logged to file.
			if (isDisplayEntry || isSaveEntry) && dl.isFileEnabled {
				_ = dl.writeToLogFile(logStr)
			}
			if isDisplayEntry {
				logAlways(entry.Level, devStr+logStr)
			}
		default:
			return
		}
	}
}

// IsFileEnabled returns true if logging to file is currently enabled, false if not.
func (dl *DeviceLogger) IsFileEnabled() bool {
	return dl.isFileEnabled
}

// Close closes the device log file and also saves/displays any pending entries.
func (dl *DeviceLogger) Close() {
	dl.DisplayPendingLogEntries()
	if dl.logFile != nil {
		_ = dl.logFile.Close()
		dl.logFile = nil
	}
	mutex.Lock()
	delete(deviceLogs, dl.Id)
	mutex.Unlock()
}
