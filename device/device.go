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

// Package device assembles a WAVE device from the interval coordinator, the channel registry, the
// access scheduler, the channel queues, the MAC and the radio, and offers the service primitives
// upper layers use.
package device

import (
	"fmt"
	"time"

	"github.com/vanetsim/wave-sim/channel"
	"github.com/vanetsim/wave-sim/coordinator"
	"github.com/vanetsim/wave-sim/dispatcher"
	"github.com/vanetsim/wave-sim/logger"
	"github.com/vanetsim/wave-sim/mac"
	"github.com/vanetsim/wave-sim/macqueue"
	"github.com/vanetsim/wave-sim/packet"
	"github.com/vanetsim/wave-sim/radio"
	"github.com/vanetsim/wave-sim/scheduler"
	. "github.com/vanetsim/wave-sim/types"
)

// SchInfo requests access to a channel. ExtendedAccess selects the discipline: 0 for alternating,
// scheduler.ContinuousExtension for continuous, anything else for that many sync intervals.
type SchInfo struct {
	Channel        channel.Number `yaml:"channel"`
	Immediate      bool           `yaml:"immediate"`
	ExtendedAccess uint8          `yaml:"extended_access"`
	// Edca optionally overrides the contention parameters of some access categories.
	Edca map[macqueue.AccessCategory]macqueue.EdcaParameters `yaml:"edca,omitempty"`
}

// TxProfile is the transmit configuration used by Send.
type TxProfile struct {
	Channel      channel.Number   `yaml:"channel"`
	Adaptable    bool             `yaml:"adaptable"`
	TxPowerLevel int              `yaml:"tx_power_level"`
	DataRate     channel.DataRate `yaml:"data_rate"`
}

// TxInfo is the per-packet transmit configuration used by SendX.
type TxInfo struct {
	Channel      channel.Number
	Priority     uint8
	DataRate     channel.DataRate
	TxPowerLevel int
	ExpiryMs     uint32
}

type Counters struct {
	Enqueued          uint64 `yaml:"enqueued" json:"enqueued"`
	Refused           uint64 `yaml:"refused" json:"refused"`
	Transmitted       uint64 `yaml:"transmitted" json:"transmitted"`
	Aborted           uint64 `yaml:"aborted" json:"aborted"`
	Deferred          uint64 `yaml:"deferred" json:"deferred"`
	Expired           uint64 `yaml:"expired" json:"expired"`
	Flushed           uint64 `yaml:"flushed" json:"flushed"`
	Received          uint64 `yaml:"received" json:"received"`
	DroppedNoAccess   uint64 `yaml:"dropped_no_access" json:"dropped_no_access"`
	DroppedGuard      uint64 `yaml:"dropped_guard" json:"dropped_guard"`
	Retunes           uint64 `yaml:"retunes" json:"retunes"`
	BusyNotifications uint64 `yaml:"busy_notifications" json:"busy_notifications"`
}

// Listener observes the traffic and the access changes of a device.
type Listener interface {
	OnTransmit(dev *Device, f *radio.Frame, ok bool)
	OnReceive(dev *Device, f *radio.Frame)
	OnAccessChange(dev *Device, a scheduler.Assignment)
}

type Device struct {
	Id   DeviceId
	Name string

	Registry    *channel.Registry
	Coordinator *coordinator.Coordinator
	Scheduler   *scheduler.Scheduler
	Queues      *macqueue.QueueSet
	Mac         *mac.Mac
	Radio       *radio.Radio

	cfg      DeviceConfig
	timeline dispatcher.Timeline
	medium   radio.Medium
	logger   *logger.DeviceLogger
	profile  *TxProfile
	listener Listener
	nextPkt  uint64
	counters Counters
}

// New builds a device attached to medium. dl receives the device's log output.
func New(cfg *DeviceConfig, timeline dispatcher.Timeline, medium radio.Medium, intervals coordinator.IntervalConfig,
	dl *logger.DeviceLogger) (*Device, error) {
	logger.AssertTrue(cfg.ID > 0 && cfg.ID <= MaxDeviceId, "invalid device id %d", cfg.ID)
	logger.AssertNotNil(dl)

	coord := coordinator.New(timeline)
	if err := coord.Configure(intervals); err != nil {
		return nil, err
	}
	d := &Device{
		Id:          cfg.ID,
		Name:        cfg.Name,
		Registry:    channel.NewRegistry(),
		Coordinator: coord,
		cfg:         *cfg,
		timeline:    timeline,
		medium:      medium,
		logger:      dl,
	}
	if d.Name == "" {
		d.Name = GetDeviceName(d.Id)
	}

	qcfg := macqueue.DefaultConfig()
	if cfg.QueueMaxDelay > 0 {
		qcfg.MaxDelay = time.Duration(cfg.QueueMaxDelay) * time.Millisecond
	}
	if cfg.QueueMaxSize > 0 {
		qcfg.MaxSize = cfg.QueueMaxSize
	}
	qcfg.SweepInterval = intervals.SyncInterval()

	d.Radio = radio.New(d.Id, timeline, medium)
	d.Queues = macqueue.NewQueueSet(timeline, qcfg, d, d.Registry)
	d.Mac = mac.New(d.Id, timeline, d.Radio, d.Queues, d.Registry, mac.DefaultConfig())
	d.Scheduler = scheduler.New(d.Id, timeline, coord, d.Registry, d.Radio, d.Queues, d.Mac)

	d.Mac.SetReceiveHandler(d.receive)
	d.Mac.SetTxHandler(d.transmitted)
	d.Scheduler.SetChangeHandler(d.accessChanged)
	d.Queues.StartExpirySweep()
	d.logger.Infof("created, intervals %v/%v, guard %v", intervals.ControlInterval, intervals.ServiceInterval,
		intervals.GuardInterval())
	return d, nil
}

func (d *Device) SetListener(l Listener) {
	d.listener = l
}

func (d *Device) Config() DeviceConfig {
	return d.cfg
}

func (d *Device) Logger() *logger.DeviceLogger {
	return d.logger
}

// Access returns the access mode granted by the scheduler.
func (d *Device) Access() AccessMode {
	return d.Scheduler.Access()
}

// TimeUntilGuard returns the time left until the next interval boundary.
func (d *Device) TimeUntilGuard() time.Duration {
	return d.Scheduler.TimeUntilGuard()
}

// StartSch requests access to a channel with the discipline selected by info.ExtendedAccess.
func (d *Device) StartSch(info SchInfo) error {
	if !channel.IsWaveChannel(info.Channel) {
		return scheduler.ErrInvalidChannel
	}
	for ac, params := range info.Edca {
		d.Mac.ConfigureEdca(ac, params)
	}

	var err error
	switch info.ExtendedAccess {
	case scheduler.ContinuousExtension:
		err = d.Scheduler.TryAssignContinuous(info.Channel, info.Immediate)
	case 0:
		err = d.Scheduler.TryAssignAlternating(info.Channel, info.Immediate)
	default:
		err = d.Scheduler.TryAssignExtended(info.Channel, info.ExtendedAccess, info.Immediate)
	}
	if err != nil {
		d.logger.Infof("start sch %d refused: %v", info.Channel, err)
	}
	return err
}

// StopSch releases the access to a channel. Invalid channels are ignored.
func (d *Device) StopSch(n channel.Number) {
	if !channel.IsWaveChannel(n) {
		return
	}
	d.Scheduler.Release(n)
}

// RegisterTxProfile installs the profile used by Send. Only one profile may be registered.
func (d *Device) RegisterTxProfile(p TxProfile) bool {
	switch {
	case !channel.IsWaveChannel(p.Channel):
		return false
	case d.profile != nil:
		return false
	case channel.IsControl(p.Channel):
		return false
	case p.TxPowerLevel > channel.MaxTxPowerLevel:
		return false
	}
	d.profile = &p
	return true
}

// UnregisterTxProfile removes the profile if it is registered for channel n.
func (d *Device) UnregisterTxProfile(n channel.Number) {
	if d.profile != nil && d.profile.Channel == n {
		d.profile = nil
	}
}

func (d *Device) TxProfile() (TxProfile, bool) {
	if d.profile == nil {
		return TxProfile{}, false
	}
	return *d.profile, true
}

// SendX queues p for the channel and with the priority, rate and power given in info.
func (d *Device) SendX(p *packet.Packet, protocol uint16, info TxInfo) bool {
	switch {
	case !channel.IsWaveChannel(info.Channel):
		return d.refuse(p, "invalid channel %d", info.Channel)
	case d.Registry.IsDead(info.Channel):
		return d.refuse(p, "channel %d not accessible", info.Channel)
	case info.Priority > packet.MaxPriority:
		return d.refuse(p, "priority %d", info.Priority)
	case info.ExpiryMs > packet.MaxExpiryMs:
		return d.refuse(p, "expiry %d ms", info.ExpiryMs)
	}
	p.Protocol = protocol
	p.Channel = info.Channel
	p.Priority = info.Priority
	p.ExpiryMs = info.ExpiryMs
	p.TxVector = higherTxVector(info.DataRate, info.TxPowerLevel, false)
	return d.enqueue(p)
}

// Send queues p on the channel of the registered tx profile.
func (d *Device) Send(p *packet.Packet, protocol uint16) bool {
	if d.profile == nil {
		return d.refuse(p, "no tx profile")
	}
	if d.Registry.IsDead(d.profile.Channel) {
		return d.refuse(p, "profile channel %d not accessible", d.profile.Channel)
	}
	if (protocol == ProtocolIpv4 || protocol == ProtocolIpv6) && !d.cfg.IpOnCch {
		return d.refuse(p, "IP traffic disabled")
	}
	p.Protocol = protocol
	p.Channel = d.profile.Channel
	p.TxVector = higherTxVector(d.profile.DataRate, d.profile.TxPowerLevel, d.profile.Adaptable)
	return d.enqueue(p)
}

// higherTxVector returns the tx vector requested by an upper layer, or nil if it left the choice to
// the MAC.
func higherTxVector(rate channel.DataRate, power int, adapter bool) *packet.TxVector {
	if power >= channel.MaxTxPowerLevel || rate == channel.UnknownDataRate {
		return nil
	}
	return &packet.TxVector{DataRate: rate, TxPowerLevel: power, Adapter: adapter}
}

func (d *Device) enqueue(p *packet.Packet) bool {
	p.Src = d.Id
	if p.Id == 0 {
		d.nextPkt++
		p.Id = uint64(d.Id)<<32 | d.nextPkt
	}
	if !d.Queues.Enqueue(p) {
		return d.refuse(p, "queue full")
	}
	d.counters.Enqueued++
	d.logger.Tracef("queued %v", p)
	return true
}

func (d *Device) refuse(p *packet.Packet, format string, args ...interface{}) bool {
	d.counters.Refused++
	d.logger.Debugf("refused %v: %s", p, fmt.Sprintf(format, args...))
	return false
}

func (d *Device) receive(f *radio.Frame) {
	switch mode := d.Scheduler.Access(); {
	case mode == NoAccess:
		d.counters.DroppedNoAccess++
		return
	case mode == AlternatingAccess && d.Coordinator.IsGuardInterval(0):
		d.counters.DroppedGuard++
		return
	}
	d.counters.Received++
	d.logger.Tracef("received %v on channel %d", f.Packet, f.Channel)
	if d.listener != nil {
		d.listener.OnReceive(d, f)
	}
}

func (d *Device) transmitted(f *radio.Frame, ok bool) {
	if ok {
		d.logger.Tracef("sent %v on channel %d in %v", f.Packet, f.Channel, f.Duration)
	} else {
		d.logger.Debugf("aborted %v on channel %d", f.Packet, f.Channel)
	}
	if d.listener != nil {
		d.listener.OnTransmit(d, f, ok)
	}
}

func (d *Device) accessChanged(a scheduler.Assignment) {
	d.logger.Debugf("access %v on channel %d", a.Mode, a.Channel)
	if d.listener != nil {
		d.listener.OnAccessChange(d, a)
	}
}

// Counters returns the traffic statistics collected by the device and its components.
func (d *Device) Counters() Counters {
	c := d.counters
	c.Transmitted = d.Mac.Counters.Transmitted
	c.Aborted = d.Mac.Counters.TxAborted
	c.Deferred = d.Queues.Counters.Deferred
	c.Expired = d.Queues.Counters.Expired
	c.Flushed = d.Queues.Counters.Flushed
	c.Retunes = d.Radio.Counters.Retunes
	c.BusyNotifications = d.Mac.Counters.BusyNotifications
	return c
}

// Sub returns the counts accumulated since start was taken.
func (c Counters) Sub(start Counters) Counters {
	return Counters{
		Enqueued:          c.Enqueued - start.Enqueued,
		Refused:           c.Refused - start.Refused,
		Transmitted:       c.Transmitted - start.Transmitted,
		Aborted:           c.Aborted - start.Aborted,
		Deferred:          c.Deferred - start.Deferred,
		Expired:           c.Expired - start.Expired,
		Flushed:           c.Flushed - start.Flushed,
		Received:          c.Received - start.Received,
		DroppedNoAccess:   c.DroppedNoAccess - start.DroppedNoAccess,
		DroppedGuard:      c.DroppedGuard - start.DroppedGuard,
		Retunes:           c.Retunes - start.Retunes,
		BusyNotifications: c.BusyNotifications - start.BusyNotifications,
	}
}

// Close releases any channel access and detaches the device from the medium.
func (d *Device) Close() {
	if a := d.Scheduler.Assignment(); a.Mode != NoAccess {
		d.Scheduler.Release(a.Channel)
	}
	if d.Scheduler.HasPendingRequest() {
		d.Scheduler.CancelPending()
	}
	d.Queues.StopExpirySweep()
	d.Mac.Stop()
	if d.medium != nil {
		d.medium.Detach(d.Radio)
	}
	d.logger.Infof("closed")
	d.logger.Close()
}
