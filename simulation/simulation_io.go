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
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/vanetsim/wave-sim/device"
	"github.com/vanetsim/wave-sim/logger"
	"github.com/vanetsim/wave-sim/scheduler"
	. "github.com/vanetsim/wave-sim/types"
)

// ExportScenario exports the intervals and the devices with their access, profile and traffic to a
// YAML-friendly object.
func (s *Simulation) ExportScenario() YamlConfigFile {
	intervals := s.cfg.Intervals
	res := YamlConfigFile{
		Intervals:   &intervals,
		DevicesList: make([]YamlDeviceConfig, 0, len(s.devices)),
	}
	s.VisitDevicesInOrder(func(dev *device.Device) {
		res.DevicesList = append(res.DevicesList, s.exportDevice(dev))
	})
	return res
}

func (s *Simulation) exportDevice(dev *device.Device) YamlDeviceConfig {
	cfg := dev.Config()
	res := YamlDeviceConfig{
		ID:            dev.Id,
		IpOnCch:       cfg.IpOnCch,
		QueueMaxDelay: cfg.QueueMaxDelay,
		QueueMaxSize:  cfg.QueueMaxSize,
		Traffic:       s.Traffic(dev.Id),
	}
	// include name if non-default
	if cfg.Name != "" {
		res.Name = &cfg.Name
	}

	if a := dev.Scheduler.Assignment(); a.Mode != NoAccess {
		sch := &device.SchInfo{
			Channel:   a.Channel,
			Immediate: true,
		}
		switch a.Mode {
		case ContinuousAccess:
			sch.ExtendedAccess = scheduler.ContinuousExtension
		case ExtendedAccess:
			sch.ExtendedAccess = a.Extensions
			if sch.ExtendedAccess == 0 {
				sch.ExtendedAccess = 1
			}
		}
		res.Sch = sch
	}
	if p, ok := dev.TxProfile(); ok {
		res.Profile = &p
	}
	return res
}

// ImportScenario adds the devices of a scenario. Devices that fail are skipped and reported in the
// returned error.
func (s *Simulation) ImportScenario(cfgFile YamlConfigFile) error {
	if cfgFile.Intervals != nil {
		if err := s.SetIntervals(*cfgFile.Intervals); err != nil {
			return err
		}
	}

	allOk := true
	for _, yd := range cfgFile.DevicesList {
		if err := s.importDevice(yd); err != nil {
			logger.Warnf("Warn: %s", err)
			allOk = false // continue trying to import remaining devices
		}
	}
	if !allOk {
		return fmt.Errorf("not all devices could be imported - see error log above")
	}
	return nil
}

func (s *Simulation) importDevice(yd YamlDeviceConfig) error {
	cfg := s.cfg.NewDeviceConfig
	cfg.ID = yd.ID
	if yd.Name != nil {
		cfg.Name = *yd.Name
	}
	cfg.IpOnCch = yd.IpOnCch
	cfg.QueueMaxDelay = yd.QueueMaxDelay
	cfg.QueueMaxSize = yd.QueueMaxSize

	dev, err := s.AddDevice(&cfg)
	if err != nil {
		return err
	}
	if yd.Profile != nil {
		if err = s.SetTxProfile(dev.Id, *yd.Profile); err != nil {
			return err
		}
	}
	if yd.Sch != nil {
		if err = s.StartSch(dev.Id, *yd.Sch); err != nil {
			return err
		}
	}
	for _, tc := range yd.Traffic {
		if err = s.AddTraffic(dev.Id, tc); err != nil {
			return errors.Wrapf(err, "device %d", dev.Id)
		}
	}
	return nil
}

func (s *Simulation) LoadScenarioFile(fn string) error {
	data, err := os.ReadFile(fn)
	if err != nil {
		return errors.Wrapf(err, "could not load scenario file %s", fn)
	}
	var cfgFile YamlConfigFile
	if err = yaml.Unmarshal(data, &cfgFile); err != nil {
		return errors.Wrapf(err, "could not parse scenario file %s", fn)
	}
	return s.ImportScenario(cfgFile)
}

func (s *Simulation) SaveScenarioFile(fn string) error {
	data, err := yaml.Marshal(s.ExportScenario())
	if err != nil {
		return errors.Wrap(err, "could not marshal scenario")
	}
	if err = os.WriteFile(fn, data, 0644); err != nil {
		return errors.Wrapf(err, "could not write scenario file %s", fn)
	}
	return nil
}
