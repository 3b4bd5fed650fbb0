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

package simulation

import (
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/vanetsim/wave-sim/channel"
	"github.com/vanetsim/wave-sim/coordinator"
	"github.com/vanetsim/wave-sim/device"
	"github.com/vanetsim/wave-sim/dispatcher"
	"github.com/vanetsim/wave-sim/energy"
	"github.com/vanetsim/wave-sim/logger"
	"github.com/vanetsim/wave-sim/metrics"
	"github.com/vanetsim/wave-sim/packet"
	"github.com/vanetsim/wave-sim/pcap"
	"github.com/vanetsim/wave-sim/progctx"
	"github.com/vanetsim/wave-sim/radio"
	"github.com/vanetsim/wave-sim/scheduler"
	. "github.com/vanetsim/wave-sim/types"
	"github.com/vanetsim/wave-sim/visualize"
)

// channelAirtime accumulates the completed transmissions seen on one channel.
type channelAirtime struct {
	TxTime    time.Duration
	NumFrames uint64
}

type Simulation struct {
	Started   chan struct{}
	ctx       *progctx.ProgCtx
	stopped   bool
	cfg       *Config
	runId     string
	devices   map[DeviceId]*device.Device
	traffic   map[DeviceId][]*trafficGenerator
	reported  map[DeviceId]device.Counters
	airtime   map[channel.Number]*channelAirtime
	d         *dispatcher.Dispatcher
	medium    *radio.BroadcastMedium
	vis       visualize.Visualizer
	cmdRunner CmdRunner
	kpiMgr    *KpiManager
	pcap      pcap.File
	energy    *energy.EnergyAnalyser
}

// NewSimulation creates a simulation. ctx may be nil if the simulation is only driven through RunFor.
func NewSimulation(ctx *progctx.ProgCtx, cfg *Config, dispatcherCfg *dispatcher.Config) (*Simulation, error) {
	if err := cfg.Intervals.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid channel intervals")
	}
	s := &Simulation{
		Started:  make(chan struct{}),
		ctx:      ctx,
		cfg:      cfg,
		runId:    uuid.NewString(),
		devices:  map[DeviceId]*device.Device{},
		traffic:  map[DeviceId][]*trafficGenerator{},
		reported: map[DeviceId]device.Counters{},
		airtime:  map[channel.Number]*channelAirtime{},
		medium:   radio.NewBroadcastMedium(),
		vis:      visualize.NewNopVisualizer(),
		energy:   energy.NewEnergyAnalyser(),
	}
	logger.SetLevel(cfg.LogLevel)

	if dispatcherCfg == nil {
		dispatcherCfg = dispatcher.DefaultConfig()
	}
	dispatcherCfg.Speed = cfg.Speed
	s.d = dispatcher.NewDispatcher(ctx, dispatcherCfg, s)
	s.medium.OnDeliver = s.onDeliver

	if cfg.OutputDir != "" {
		if err := s.createTmpDir(); err != nil {
			return nil, errors.Wrapf(err, "creating %s directory failed", cfg.OutputDir)
		}
		if err := s.cleanTmpDir(cfg.Id); err != nil {
			return nil, errors.Wrapf(err, "cleaning %s directory files '%d_*.*' failed", cfg.OutputDir, cfg.Id)
		}
		if cfg.PcapFrameType != pcap.FrameTypeOff {
			pcapFile, err := pcap.NewFile(s.pcapFilename(), cfg.PcapFrameType)
			if err != nil {
				return nil, errors.Wrap(err, "creating pcap file failed")
			}
			s.pcap = pcapFile
		}
	}

	metrics.Register()
	s.kpiMgr = NewKpiManager()
	s.kpiMgr.Init(s)
	logger.Infof("simulation %d created, run id %s", cfg.Id, s.runId)
	return s, nil
}

// AddDevice creates a device. A cfg.ID <= 0 picks the lowest free id.
func (s *Simulation) AddDevice(cfg *DeviceConfig) (*device.Device, error) {
	id := cfg.ID
	if id <= 0 {
		id = s.genDeviceId()
	}
	if id > MaxDeviceId {
		return nil, errors.Errorf("device id %d out of range", id)
	}
	if s.devices[id] != nil {
		return nil, errors.Errorf("device %d already exists", id)
	}

	devCfg := *cfg
	devCfg.ID = id
	dl := logger.GetDeviceLogger(s.cfg.OutputDir, strconv.Itoa(s.cfg.Id), &devCfg, s.clock)
	dl.SetDisplayLevel(s.cfg.WatchLevel)
	dev, err := device.New(&devCfg, s.d, s.medium, s.cfg.Intervals, dl)
	if err != nil {
		dl.Close()
		return nil, err
	}
	dev.SetListener(s)
	s.devices[id] = dev
	s.reported[id] = device.Counters{}
	s.energy.AddDevice(id, s.clock())
	s.vis.AddDevice(id, &devCfg)
	metrics.SetAccess(id, NoAccess, 0)
	logger.Debugf("simulation:AddDevice: %+v", devCfg)
	return dev, nil
}

func (s *Simulation) genDeviceId() DeviceId {
	id := 1
	for s.devices[id] != nil {
		id += 1
	}
	return id
}

func (s *Simulation) DeleteDevice(id DeviceId) error {
	dev := s.devices[id]
	if dev == nil {
		return deviceNotFoundError(id)
	}
	s.StopTraffic(id)
	s.syncMetrics()
	dev.Close()
	delete(s.devices, id)
	delete(s.reported, id)
	s.kpiMgr.stopDevice(id)
	s.energy.DeleteDevice(id)
	s.vis.DeleteDevice(id)
	metrics.DeleteDevice(id)
	return nil
}

func (s *Simulation) Device(id DeviceId) *device.Device {
	return s.devices[id]
}

// Devices returns a sorted array of DeviceIds.
func (s *Simulation) Devices() []DeviceId {
	keys := make([]DeviceId, 0, len(s.devices))
	for key := range s.devices {
		keys = append(keys, key)
	}
	sort.Ints(keys)
	return keys
}

func (s *Simulation) VisitDevicesInOrder(cb func(dev *device.Device)) {
	for _, id := range s.Devices() {
		cb(s.devices[id])
	}
}

func (s *Simulation) getDevice(id DeviceId) (*device.Device, error) {
	dev := s.devices[id]
	if dev == nil {
		return nil, deviceNotFoundError(id)
	}
	return dev, nil
}

// StartSch requests service channel access for a device.
func (s *Simulation) StartSch(id DeviceId, info device.SchInfo) error {
	dev, err := s.getDevice(id)
	if err != nil {
		return err
	}
	return errors.Wrapf(dev.StartSch(info), "%s start sch %d", dev.Name, info.Channel)
}

func (s *Simulation) StopSch(id DeviceId, ch channel.Number) error {
	dev, err := s.getDevice(id)
	if err != nil {
		return err
	}
	if !channel.IsWaveChannel(ch) {
		return scheduler.ErrInvalidChannel
	}
	dev.StopSch(ch)
	return nil
}

// SetTxProfile replaces the tx profile of a device.
func (s *Simulation) SetTxProfile(id DeviceId, p device.TxProfile) error {
	dev, err := s.getDevice(id)
	if err != nil {
		return err
	}
	if old, ok := dev.TxProfile(); ok {
		dev.UnregisterTxProfile(old.Channel)
	}
	if !dev.RegisterTxProfile(p) {
		return errors.Errorf("tx profile for channel %d refused", p.Channel)
	}
	return nil
}

// Send queues count broadcast packets of size bytes on a device. It returns the number of packets
// accepted.
func (s *Simulation) Send(id DeviceId, size int, info device.TxInfo, count int) (int, error) {
	dev, err := s.getDevice(id)
	if err != nil {
		return 0, err
	}
	accepted := 0
	for i := 0; i < count; i++ {
		p := &packet.Packet{
			Dst:  BroadcastDeviceId,
			Size: size,
		}
		if dev.SendX(p, ProtocolWsmp, info) {
			accepted++
		}
	}
	return accepted, nil
}

// AddTraffic starts a periodic traffic generator on a device.
func (s *Simulation) AddTraffic(id DeviceId, cfg TrafficConfig) error {
	dev, err := s.getDevice(id)
	if err != nil {
		return err
	}
	if err = cfg.Validate(); err != nil {
		return err
	}
	tg := newTrafficGenerator(s.d, dev, cfg)
	s.traffic[id] = append(s.traffic[id], tg)
	tg.start()
	return nil
}

// StopTraffic stops all traffic generators of a device.
func (s *Simulation) StopTraffic(id DeviceId) {
	for _, tg := range s.traffic[id] {
		tg.stop()
	}
	delete(s.traffic, id)
}

func (s *Simulation) Traffic(id DeviceId) []TrafficConfig {
	var res []TrafficConfig
	for _, tg := range s.traffic[id] {
		res = append(res, tg.cfg)
	}
	return res
}

// Intervals returns the channel intervals of the devices.
func (s *Simulation) Intervals() coordinator.IntervalConfig {
	return s.cfg.Intervals
}

// SetIntervals changes the channel intervals used by new devices. It fails while devices exist.
func (s *Simulation) SetIntervals(cfg coordinator.IntervalConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg != s.cfg.Intervals && len(s.devices) > 0 {
		return errors.New("cannot change channel intervals while devices exist")
	}
	s.cfg.Intervals = cfg
	return nil
}

// SetWatchLevel sets the level from which log entries of a device are shown on the console.
func (s *Simulation) SetWatchLevel(id DeviceId, level logger.Level) error {
	dev, err := s.getDevice(id)
	if err != nil {
		return err
	}
	dev.Logger().SetDisplayLevel(level)
	return nil
}

func (s *Simulation) Run() {
	defer logger.Debugf("simulation exit.")
	defer s.d.Stop()
	defer s.Stop()

	// run dispatcher in current thread, until exit.
	close(s.Started)
	s.d.Run()
}

// RunFor advances simulation time on the calling goroutine, without pacing.
func (s *Simulation) RunFor(duration time.Duration) {
	s.d.RunFor(duration)
}

func (s *Simulation) AutoGo() bool {
	return s.cfg.AutoGo
}

func (s *Simulation) IsStopping() bool {
	return s.stopped || (s.ctx != nil && s.ctx.Err() != nil)
}

func (s *Simulation) Stop() {
	if s.stopped {
		return
	}
	logger.Infof("stopping simulation ...")
	s.kpiMgr.Stop()
	s.stopped = true

	for _, id := range s.Devices() {
		s.StopTraffic(id)
		s.devices[id].Close()
		delete(s.devices, id)
	}
	s.vis.Stop()
	if s.pcap != nil {
		if err := s.pcap.Close(); err != nil {
			logger.Errorf("close pcap failed: %v", err)
		}
		s.pcap = nil
	}
	if s.ctx != nil {
		s.ctx.Cancel("simulation-stop")
	}
	logger.Debugf("all simulation devices closed.")
}

func (s *Simulation) SetVisualizer(vis visualize.Visualizer) {
	logger.AssertNotNil(vis)
	s.vis = vis
	vis.SetController(NewSimulationController(s))
}

// OnAdvanceTime is part of the implementation of dispatcher.CallbackHandler.
func (s *Simulation) OnAdvanceTime(ts uint64, speed float64) {
	s.vis.AdvanceTime(ts, speed)
	s.energy.OnAdvanceTime(ts)
	s.syncMetrics()
	s.displayPendingLogEntries()
}

// OnPause is part of the implementation of dispatcher.CallbackHandler.
func (s *Simulation) OnPause(ts uint64) {
	s.syncMetrics()
	s.displayPendingLogEntries()
	if s.pcap != nil {
		if err := s.pcap.Sync(); err != nil {
			logger.Warnf("sync pcap failed: %v", err)
		}
	}
}

// OnTransmit is part of the implementation of device.Listener.
func (s *Simulation) OnTransmit(dev *device.Device, f *radio.Frame, ok bool) {
	s.vis.Send(dev.Id, newFrameInfo(f, !ok))
	s.energy.AddTransmission(dev.Id, uint64(f.Start/time.Microsecond), s.clock())
	if ok {
		metrics.RecordTx(dev.Id, uint32(f.Channel))
		s.capture(f)
	}
}

func (s *Simulation) capture(f *radio.Frame) {
	if s.pcap == nil {
		return
	}
	p := f.Packet
	frame := pcap.Frame{
		Timestamp: uint64(f.Start / time.Microsecond),
		Data:      pcap.EncodeDataFrame(f.Src, p.Dst, uint16(p.Id), p.Priority, p.Protocol, p.Size),
		Channel:   f.Channel,
		DataRate:  f.DataRate,
	}
	if err := s.pcap.AppendFrame(frame); err != nil {
		logger.Warnf("write pcap failed: %v", err)
	}
}

func (s *Simulation) pcapFilename() string {
	return fmt.Sprintf("%s/%d_wave.pcap", s.cfg.OutputDir, s.cfg.Id)
}

// OnReceive is part of the implementation of device.Listener.
func (s *Simulation) OnReceive(dev *device.Device, f *radio.Frame) {
	s.vis.Receive(dev.Id, newFrameInfo(f, false))
	metrics.RecordRx(dev.Id, uint32(f.Channel))
}

// OnAccessChange is part of the implementation of device.Listener.
func (s *Simulation) OnAccessChange(dev *device.Device, a scheduler.Assignment) {
	s.vis.SetAccess(dev.Id, visualize.AccessInfo{
		Mode:       a.Mode,
		Channel:    uint32(a.Channel),
		Extensions: a.Extensions,
	})
	metrics.SetAccess(dev.Id, a.Mode, uint32(a.Channel))
}

func (s *Simulation) onDeliver(f *radio.Frame) {
	at := s.airtime[f.Channel]
	if at == nil {
		at = &channelAirtime{}
		s.airtime[f.Channel] = at
	}
	at.TxTime += f.Duration
	at.NumFrames++
}

// syncMetrics exports the counter increments of every device since the last call.
func (s *Simulation) syncMetrics() {
	for id, dev := range s.devices {
		cur := dev.Counters()
		diff := cur.Sub(s.reported[id])
		s.reported[id] = cur

		metrics.AddDeferred(id, diff.Deferred)
		metrics.AddRetunes(id, diff.Retunes)
		metrics.AddDropped(id, metrics.ReasonNoAccess, diff.DroppedNoAccess)
		metrics.AddDropped(id, metrics.ReasonGuard, diff.DroppedGuard)
		metrics.AddDropped(id, metrics.ReasonExpired, diff.Expired)
		metrics.AddDropped(id, metrics.ReasonFlushed, diff.Flushed)
		metrics.AddDropped(id, metrics.ReasonAborted, diff.Aborted)
		metrics.AddDropped(id, metrics.ReasonRefused, diff.Refused)
	}
}

func (s *Simulation) displayPendingLogEntries() {
	s.VisitDevicesInOrder(func(dev *device.Device) {
		dev.Logger().DisplayPendingLogEntries()
	})
}

func (s *Simulation) clock() uint64 {
	return s.d.CurTime
}

func (s *Simulation) PostAsync(f func()) bool {
	return s.d.PostAsync(f)
}

func (s *Simulation) Dispatcher() *dispatcher.Dispatcher {
	return s.d
}

func (s *Simulation) SetSpeed(speed float64) {
	s.d.SetSpeed(speed)
	s.vis.SetSpeed(s.GetSpeed())
}

func (s *Simulation) GetSpeed() float64 {
	return s.d.GetSpeed()
}

func (s *Simulation) Go(duration time.Duration) <-chan struct{} {
	return s.d.Go(duration)
}

func (s *Simulation) cleanTmpDir(simulationId int) error {
	// files of an earlier run with the same simulation id
	err := removeAllFiles(fmt.Sprintf("%s/%d_*.*", s.cfg.OutputDir, simulationId))
	return err
}

func (s *Simulation) createTmpDir() error {
	err := os.Mkdir(s.cfg.OutputDir, 0775)
	if errors.Is(err, fs.ErrExist) {
		return nil
	}
	return err
}

func (s *Simulation) SetCmdRunner(cmdRunner CmdRunner) {
	s.cmdRunner = cmdRunner
}

func (s *Simulation) CmdRunner() CmdRunner {
	return s.cmdRunner
}

func (s *Simulation) GetConfig() *Config {
	return s.cfg
}

// RunId is the unique id of this run, used in the KPI file and the NATS subjects.
func (s *Simulation) RunId() string {
	return s.runId
}

func (s *Simulation) KpiManager() *KpiManager {
	return s.kpiMgr
}

func (s *Simulation) GetEnergyAnalyser() *energy.EnergyAnalyser {
	return s.energy
}

// SaveEnergy writes the energy files into the output directory. An empty name uses "<id>_energy".
func (s *Simulation) SaveEnergy(name string) error {
	if s.cfg.OutputDir == "" {
		return errors.New("no output directory")
	}
	if name == "" {
		name = fmt.Sprintf("%d_energy", s.cfg.Id)
	}
	return s.energy.SaveEnergyDataToFile(s.cfg.OutputDir, name, s.clock())
}
