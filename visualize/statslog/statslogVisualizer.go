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

package visualize_statslog

import (
	"fmt"
	"os"

	"github.com/vanetsim/wave-sim/logger"
	. "github.com/vanetsim/wave-sim/types"
	. "github.com/vanetsim/wave-sim/visualize"
)

type statslogVisualizer struct {
	NopVisualizer
	logFile        *os.File
	logFileName    string
	isFileEnabled  bool
	changed        bool   // flag to track if some device stats changed
	timestampUs    uint64 // simulation current timestamp
	logTimestampUs uint64 // last log entry timestamp
	stats          deviceStats
	oldStats       deviceStats

	deviceAccess map[DeviceId]AccessMode
	framesSent   int
	framesRecv   int
	framesAbort  int
}

type deviceStats struct {
	numDevices     int
	numNoAccess    int
	numContinuous  int
	numAlternating int
	numExtended    int
	numSent        int
	numReceived    int
	numAborted     int
}

// NewStatslogVisualizer creates a new Visualizer that writes a log of channel access stats to file.
func NewStatslogVisualizer(outputDir string, simulationId int) Visualizer {
	return &statslogVisualizer{
		logFileName:   getStatsLogFileName(outputDir, simulationId),
		isFileEnabled: true,
		changed:       true,
		deviceAccess:  make(map[DeviceId]AccessMode, 64),
	}
}

func (sv *statslogVisualizer) Init() {
	sv.createLogFile()
}

func (sv *statslogVisualizer) Stop() {
	// add a final entry with final status
	sv.writeLogEntry(sv.timestampUs, sv.calcStats())
	sv.close()
	logger.Debugf("statslogVisualizer stopped and CSV log file closed.")
}

func (sv *statslogVisualizer) AddDevice(id DeviceId, cfg *DeviceConfig) {
	sv.changed = true
	sv.deviceAccess[id] = NoAccess
}

func (sv *statslogVisualizer) DeleteDevice(id DeviceId) {
	sv.changed = true
	delete(sv.deviceAccess, id)
}

func (sv *statslogVisualizer) SetAccess(id DeviceId, access AccessInfo) {
	if _, ok := sv.deviceAccess[id]; !ok {
		return
	}
	sv.changed = true
	sv.deviceAccess[id] = access.Mode
}

func (sv *statslogVisualizer) Send(src DeviceId, frame *FrameInfo) {
	sv.changed = true
	if frame.Aborted {
		sv.framesAbort++
	} else {
		sv.framesSent++
	}
}

func (sv *statslogVisualizer) Receive(DeviceId, *FrameInfo) {
	sv.changed = true
	sv.framesRecv++
}

func (sv *statslogVisualizer) AdvanceTime(ts uint64, speed float64) {
	if sv.changed && sv.checkLogEntryChange() {
		sv.writeLogEntry(sv.timestampUs, sv.stats)
		sv.logTimestampUs = sv.timestampUs
		sv.oldStats = sv.stats
	}
	sv.changed = false // this is kept to avoid sv.calcStats() call every time.
	sv.timestampUs = ts
}

func (sv *statslogVisualizer) createLogFile() {
	logger.AssertNil(sv.logFile)

	var err error
	_ = os.Remove(sv.logFileName)

	sv.logFile, err = os.OpenFile(sv.logFileName, os.O_CREATE|os.O_WRONLY, 0664)
	if err != nil {
		logger.Errorf("creating new stats log file %s failed: %+v", sv.logFileName, err)
		sv.isFileEnabled = false
		return
	}
	sv.writeLogFileHeader()
	logger.Debugf("Stats log file '%s' created.", sv.logFileName)
}

func (sv *statslogVisualizer) writeLogFileHeader() {
	// RFC 4180 CSV file: no leading or trailing spaces in header field names
	header := "timeSec,nDevices,nNoAccess,nContinuous,nAlternating,nExtended,nSent,nReceived,nAborted"
	_ = sv.writeToLogFile(header)
}

func (sv *statslogVisualizer) calcStats() deviceStats {
	return deviceStats{
		numDevices:     len(sv.deviceAccess),
		numNoAccess:    countMode(sv.deviceAccess, NoAccess),
		numContinuous:  countMode(sv.deviceAccess, ContinuousAccess),
		numAlternating: countMode(sv.deviceAccess, AlternatingAccess),
		numExtended:    countMode(sv.deviceAccess, ExtendedAccess),
		numSent:        sv.framesSent,
		numReceived:    sv.framesRecv,
		numAborted:     sv.framesAbort,
	}
}

func (sv *statslogVisualizer) checkLogEntryChange() bool {
	sv.stats = sv.calcStats()
	return sv.stats != sv.oldStats
}

func (sv *statslogVisualizer) writeLogEntry(ts uint64, stats deviceStats) {
	timeSec := float64(ts) / 1e6
	entry := fmt.Sprintf("%12.6f, %3d,%3d,%3d,%3d,%3d,%6d,%6d,%6d", timeSec, stats.numDevices, stats.numNoAccess,
		stats.numContinuous, stats.numAlternating, stats.numExtended, stats.numSent, stats.numReceived,
		stats.numAborted)
	_ = sv.writeToLogFile(entry)
	logger.Debugf("statslog entry added: %s", entry)
}

func (sv *statslogVisualizer) writeToLogFile(line string) error {
	if !sv.isFileEnabled {
		return nil
	}
	_, err := sv.logFile.WriteString(line + "\n")
	if err != nil {
		sv.close()
		sv.isFileEnabled = false
		logger.Errorf("couldn't write to stats log file (%s), closing it", sv.logFileName)
	}
	return err
}

func (sv *statslogVisualizer) close() {
	if sv.logFile != nil {
		_ = sv.logFile.Close()
		sv.logFile = nil
		sv.isFileEnabled = false
	}
}

func getStatsLogFileName(outputDir string, simId int) string {
	return fmt.Sprintf("%s/%d_stats.csv", outputDir, simId)
}

func countMode(deviceAccess map[DeviceId]AccessMode, mode AccessMode) int {
	c := 0
	for _, m := range deviceAccess {
		if m == mode {
			c++
		}
	}
	return c
}
