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

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/vanetsim/wave-sim/channel"
	"github.com/vanetsim/wave-sim/device"
	"github.com/vanetsim/wave-sim/dispatcher"
	"github.com/vanetsim/wave-sim/logger"
	"github.com/vanetsim/wave-sim/progctx"
	"github.com/vanetsim/wave-sim/scheduler"
	"github.com/vanetsim/wave-sim/simulation"
)

const (
	Prompt = "> "

	defaultSendSize = 100
)

type CommandContext struct {
	context.Context
	*Command
	rt     *CmdRunner
	err    error
	output io.Writer
}

func (cc *CommandContext) outputStr(msg string) {
	_, _ = fmt.Fprint(cc.output, msg)
}

func (cc *CommandContext) outputf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(cc.output, format, args...)
}

func (cc *CommandContext) errorf(format string, args ...interface{}) {
	cc.error(errors.Errorf(format, args...))
}

func (cc *CommandContext) error(err error) {
	if err != nil {
		if cc.err != nil { // if previous error, print it now and keep the last.
			cc.outputf("Error: %s\n", cc.err)
		}
		cc.err = err
	}
}

// Err returns the last error that occurred during command execution.
func (cc *CommandContext) Err() error {
	return cc.err
}

func (cc *CommandContext) outputItemsAsYaml(items interface{}) {
	var itemsYaml yaml.Node

	err := itemsYaml.Encode(items)
	logger.PanicIfError(err)

	for _, content := range itemsYaml.Content {
		content.Style = yaml.FlowStyle
	}

	data, err := yaml.Marshal(&itemsYaml)
	logger.PanicIfError(err)

	_, err = cc.output.Write(data)
	logger.PanicIfError(err)
}

// CmdRunner parses console lines and executes them on the simulation goroutine.
type CmdRunner struct {
	sim  *simulation.Simulation
	ctx  *progctx.ProgCtx
	help Help
}

func NewCmdRunner(ctx *progctx.ProgCtx, sim *simulation.Simulation) *CmdRunner {
	cr := &CmdRunner{
		ctx:  ctx,
		sim:  sim,
		help: newHelp(),
	}
	sim.SetCmdRunner(cr)
	return cr
}

func (rt *CmdRunner) RunCommand(cmdline string, output io.Writer) error {
	if rt.ctx.Err() == nil {
		cmd := Command{}

		if err := parseBytes([]byte(cmdline), &cmd); err != nil {
			if _, err := fmt.Fprintf(output, "Error: %v\n", err); err != nil {
				return err
			}
		} else {
			rt.execute(&cmd, output)
		}
	}
	return rt.ctx.Err()
}

func (rt *CmdRunner) HandleCommand(cmdline string, output io.Writer) error {
	return rt.RunCommand(cmdline, output)
}

func (rt *CmdRunner) GetPrompt() string {
	return Prompt
}

func (rt *CmdRunner) execute(cmd *Command, output io.Writer) {
	cc := &CommandContext{
		Context: rt.ctx,
		Command: cmd,
		rt:      rt,
		output:  output,
	}

	defer func() {
		if cc.Err() != nil {
			cc.outputf("Error: %v\n", cc.Err())
		} else {
			cc.outputf("Done\n")
		}
	}()

	defer func() {
		rerr := recover()

		if rerr != nil {
			if err, ok := rerr.(error); ok {
				cc.err = errors.Wrapf(err, "panic: %v", err)
			} else {
				cc.err = errors.Errorf("panic: %v", rerr)
			}
		}
	}()

	if cmd.Add != nil {
		rt.executeAddDevice(cc, cmd.Add)
	} else if cmd.Counters != nil {
		rt.executeCounters(cc, cmd.Counters)
	} else if cmd.Del != nil {
		rt.executeDelDevice(cc, cmd.Del)
	} else if cmd.Devices != nil {
		rt.executeLsDevices(cc, cmd.Devices)
	} else if cmd.Energy != nil {
		rt.executeEnergy(cc, cmd.Energy)
	} else if cmd.Exit != nil {
		rt.executeExit(cc, cmd.Exit)
	} else if cmd.Go != nil {
		rt.executeGo(cc, cmd.Go)
	} else if cmd.Help != nil {
		rt.executeHelp(cc, cmd.Help)
	} else if cmd.Intervals != nil {
		rt.executeIntervals(cc, cmd.Intervals)
	} else if cmd.Kpi != nil {
		rt.executeKpi(cc, cmd.Kpi)
	} else if cmd.Load != nil {
		rt.executeLoad(cc, cmd.Load)
	} else if cmd.LogLevel != nil {
		rt.executeLogLevel(cc, cmd.LogLevel)
	} else if cmd.Profile != nil {
		rt.executeProfile(cc, cmd.Profile)
	} else if cmd.Save != nil {
		rt.executeSave(cc, cmd.Save)
	} else if cmd.Sch != nil {
		rt.executeSch(cc, cmd.Sch)
	} else if cmd.Send != nil {
		rt.executeSend(cc, cmd.Send)
	} else if cmd.Speed != nil {
		rt.executeSpeed(cc, cmd.Speed)
	} else if cmd.Status != nil {
		rt.executeStatus(cc, cmd.Status)
	} else if cmd.Time != nil {
		rt.executeTime(cc, cmd.Time)
	} else if cmd.Traffic != nil {
		rt.executeTraffic(cc, cmd.Traffic)
	} else if cmd.Unwatch != nil {
		rt.executeUnwatch(cc, cmd.Unwatch)
	} else if cmd.Watch != nil {
		rt.executeWatch(cc, cmd.Watch)
	} else {
		logger.Panicf("unimplemented command: %#v", cmd)
	}
}

func (rt *CmdRunner) executeAddDevice(cc *CommandContext, cmd *AddCmd) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		cfg := sim.GetConfig().NewDeviceConfig
		if cmd.Id != nil {
			cfg.ID = cmd.Id.Val
		}
		if cmd.Name != nil {
			cfg.Name = *cmd.Name
		}
		if cmd.IpOnCch != nil {
			cfg.IpOnCch = true
		}
		dev, err := sim.AddDevice(&cfg)
		if err != nil {
			cc.error(err)
			return
		}
		cc.outputf("%d\n", dev.Id)
	})
}

func (rt *CmdRunner) executeDelDevice(cc *CommandContext, cmd *DelCmd) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		for _, sel := range getUniqueAndSorted(cmd.Devices) {
			if sim.Device(sel.Id) == nil {
				cc.outputf("Warn: device %d not found, skipping\n", sel.Id)
				continue
			}
			if err := sim.DeleteDevice(sel.Id); err != nil {
				cc.errorf("device %d, %+v", sel.Id, err)
			}
		}
	})
}

func (rt *CmdRunner) executeLsDevices(cc *CommandContext, cmd *DevicesCmd) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		for _, st := range sim.Status() {
			var line strings.Builder
			line.WriteString(fmt.Sprintf("id=%d\tname=%s\taccess=%s", st.Id, st.Name, st.Access))
			if st.Channel != 0 {
				line.WriteString(fmt.Sprintf("\tchannel=%d", st.Channel))
			}
			line.WriteString(fmt.Sprintf("\tradio=%d\tpending=%v", st.RadioChannel, st.Pending))
			cc.outputf("%s\n", line.String())
		}
	})
}

func (rt *CmdRunner) executeStatus(cc *CommandContext, cmd *StatusCmd) {
	var status []simulation.DeviceStatus
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		if cmd.Device == nil {
			status = sim.Status()
			return
		}
		st, err := sim.DeviceStatus(cmd.Device.Id)
		if err != nil {
			cc.error(err)
			return
		}
		status = append(status, st)
	})
	if cc.Err() == nil && len(status) > 0 {
		cc.outputItemsAsYaml(status)
	}
}

func (rt *CmdRunner) executeCounters(cc *CommandContext, cmd *CountersCmd) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		cc.outputf("%-6s %8s %8s %8s %8s %8s %8s %8s %8s %8s\n", "id", "enq", "refused", "tx", "aborted",
			"deferred", "expired", "rx", "drop-na", "drop-gi")
		sim.VisitDevicesInOrder(func(dev *device.Device) {
			c := dev.Counters()
			cc.outputf("%-6d %8d %8d %8d %8d %8d %8d %8d %8d %8d\n", dev.Id, c.Enqueued, c.Refused, c.Transmitted,
				c.Aborted, c.Deferred, c.Expired, c.Received, c.DroppedNoAccess, c.DroppedGuard)
		})
		dc := sim.Dispatcher().Counters
		cc.outputf("timers scheduled=%d fired=%d canceled=%d, tasks=%d\n", dc.TimersScheduled, dc.TimersFired,
			dc.TimersCanceled, dc.TasksHandled)
	})
}

func (rt *CmdRunner) executeIntervals(cc *CommandContext, cmd *IntervalsCmd) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		iv := sim.Intervals()
		cc.outputf("control        : %v\n", iv.ControlInterval)
		cc.outputf("service        : %v\n", iv.ServiceInterval)
		cc.outputf("sync interval  : %v\n", iv.ControlInterval+iv.ServiceInterval)
		cc.outputf("sync tolerance : %v\n", iv.SyncTolerance)
		cc.outputf("max switch time: %v\n", iv.MaxSwitchTime)
	})
}

func (rt *CmdRunner) executeSch(cc *CommandContext, cmd *SchCmd) {
	if cmd.Stop != nil {
		rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
			cc.error(sim.StopSch(cmd.Device.Id, channel.Number(cmd.Stop.Channel)))
		})
		return
	}

	p := cmd.Start
	info := device.SchInfo{
		Channel:   channel.Number(p.Channel),
		Immediate: p.Immediate != nil,
	}
	if p.Cont != nil {
		info.ExtendedAccess = scheduler.ContinuousExtension
	} else if p.Ext != nil {
		if *p.Ext <= 0 || *p.Ext >= scheduler.ContinuousExtension {
			cc.errorf("extended access must be 1..%d sync intervals", scheduler.ContinuousExtension-1)
			return
		}
		info.ExtendedAccess = uint8(*p.Ext)
	}
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		cc.error(sim.StartSch(cmd.Device.Id, info))
	})
}

func (rt *CmdRunner) executeProfile(cc *CommandContext, cmd *ProfileCmd) {
	var profile device.TxProfile
	if cmd.Params != nil {
		profile = device.TxProfile{
			Channel:      channel.Number(cmd.Params.Channel),
			Adaptable:    cmd.Params.Adapt != nil,
			TxPowerLevel: channel.DefaultTxPowerLevel,
			DataRate:     channel.DefaultDataRate,
		}
		if cmd.Params.Power != nil {
			profile.TxPowerLevel = *cmd.Params.Power
		}
		if cmd.Params.Rate != "" {
			rate, err := channel.ParseDataRate(cmd.Params.Rate)
			if err != nil {
				cc.error(err)
				return
			}
			profile.DataRate = rate
		}
	}

	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		dev := sim.Device(cmd.Device.Id)
		if dev == nil {
			cc.errorf("device %d not found", cmd.Device.Id)
			return
		}
		cur, ok := dev.TxProfile()
		switch {
		case cmd.Clear != nil:
			if ok {
				dev.UnregisterTxProfile(cur.Channel)
			}
		case cmd.Params != nil:
			cc.error(sim.SetTxProfile(dev.Id, profile))
		case ok:
			cc.outputItemsAsYaml([]device.TxProfile{cur})
		default:
			cc.outputf("none\n")
		}
	})
}

func (rt *CmdRunner) executeSend(cc *CommandContext, cmd *SendCmd) {
	info := device.TxInfo{
		Channel:      channel.Number(cmd.Channel),
		DataRate:     channel.UnknownDataRate,
		TxPowerLevel: channel.MaxTxPowerLevel,
	}
	size, count := defaultSendSize, 1
	if cmd.Size != nil {
		size = *cmd.Size
	}
	if cmd.Count != nil {
		count = *cmd.Count
	}
	if cmd.Prio != nil {
		if *cmd.Prio < 0 || *cmd.Prio > 7 {
			cc.errorf("priority must be 0..7")
			return
		}
		info.Priority = uint8(*cmd.Prio)
	}
	if cmd.Expire != nil {
		if *cmd.Expire < 0 {
			cc.errorf("expiry must not be negative")
			return
		}
		info.ExpiryMs = uint32(*cmd.Expire)
	}
	if cmd.Power != nil {
		info.TxPowerLevel = *cmd.Power
	}
	if cmd.Rate != "" {
		rate, err := channel.ParseDataRate(cmd.Rate)
		if err != nil {
			cc.error(err)
			return
		}
		info.DataRate = rate
	}
	if size <= 0 || count <= 0 {
		cc.errorf("size and count must be positive")
		return
	}

	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		accepted, err := sim.Send(cmd.Device.Id, size, info, count)
		if err != nil {
			cc.error(err)
			return
		}
		cc.outputf("%d/%d queued\n", accepted, count)
	})
}

func (rt *CmdRunner) executeTraffic(cc *CommandContext, cmd *TrafficCmd) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		if sim.Device(cmd.Device.Id) == nil {
			cc.errorf("device %d not found", cmd.Device.Id)
			return
		}
		if cmd.Stop != nil {
			sim.StopTraffic(cmd.Device.Id)
			return
		}
		if cmd.Params == nil {
			if tc := sim.Traffic(cmd.Device.Id); len(tc) > 0 {
				cc.outputItemsAsYaml(tc)
			}
			return
		}
		tc := simulation.TrafficConfig{
			Channel:    channel.Number(cmd.Params.Channel),
			Size:       defaultSendSize,
			IntervalMs: cmd.Params.Interval,
		}
		if cmd.Params.Size != nil {
			tc.Size = *cmd.Params.Size
		}
		if cmd.Params.MaxSize != nil {
			tc.MaxSize = *cmd.Params.MaxSize
		}
		if cmd.Params.Prio != nil {
			if *cmd.Params.Prio < 0 || *cmd.Params.Prio > 7 {
				cc.errorf("priority must be 0..7")
				return
			}
			tc.Priority = uint8(*cmd.Params.Prio)
		}
		if cmd.Params.Expire != nil && *cmd.Params.Expire > 0 {
			tc.ExpiryMs = uint32(*cmd.Params.Expire)
		}
		cc.error(sim.AddTraffic(cmd.Device.Id, tc))
	})
}

func (rt *CmdRunner) executeGo(cc *CommandContext, cmd *GoCmd) {
	// determine duration and desired speed of the Go simulation period.
	timeDurToGo, err := time.ParseDuration(cmd.Time)
	if cmd.Ever == nil && err != nil {
		timeDurToGo, err = time.ParseDuration(cmd.Time + "s") // try parsing as seconds
		if err != nil {
			cc.errorf("could not parse time duration: %s", cmd.Time)
			return
		}
	}

	var done <-chan struct{}
	var prevSpeed float64
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		prevSpeed = sim.GetSpeed()
		speed := prevSpeed
		if cmd.Speed != nil {
			speed = *cmd.Speed
		} else if sim.AutoGo() {
			// when in AutoGo mode, 'go' command used to quickly jump time.
			speed = dispatcher.MaxSimulateSpeed
		}
		if speed <= 0 { // when paused, assume 'go' is used to quickly jump time.
			speed = dispatcher.MaxSimulateSpeed
		}
		sim.SetSpeed(speed)
		if cmd.Ever != nil {
			prevSpeed = speed // permanent speed update
		}
	})
	if cc.Err() != nil {
		return
	}

	if cmd.Ever == nil {
		rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
			done = sim.Go(timeDurToGo)
		})
		if done != nil {
			<-done // block for the simulation period.
		}
	} else {
		for rt.ctx.Err() == nil && cc.Err() == nil { // run forever but stop if rt.ctx.Err indicates "done"
			rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
				done = sim.Go(time.Hour)
			})
			if done != nil {
				<-done
			}
		}
	}

	if rt.ctx.Err() == nil {
		rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
			sim.SetSpeed(prevSpeed)
		})
	}
}

func (rt *CmdRunner) executeSpeed(cc *CommandContext, cmd *SpeedCmd) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		if cmd.Speed == nil && cmd.Max == nil {
			cc.outputf("%v\n", sim.GetSpeed())
		} else if cmd.Max != nil {
			sim.SetSpeed(dispatcher.MaxSimulateSpeed)
		} else {
			sim.SetSpeed(*cmd.Speed)
		}
	})
}

func (rt *CmdRunner) executeTime(cc *CommandContext, cmd *TimeCmd) {
	var dispTime uint64
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		dispTime = sim.Dispatcher().CurTime
	})
	cc.outputf("%d\n", dispTime)
}

func (rt *CmdRunner) executeKpi(cc *CommandContext, cmd *KpiCmd) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		km := sim.KpiManager()
		switch cmd.Operation {
		case "start":
			if km.IsRunning() {
				cc.errorf("KPI collection already running")
				return
			}
			km.Start()
		case "stop":
			km.Stop()
		case "save":
			if cmd.Filename == "" {
				km.SaveDefaultFile()
			} else {
				cc.error(km.SaveFile(cmd.Filename))
			}
		default:
			if km.IsRunning() {
				cc.outputf("on\n")
			} else {
				cc.outputf("off\n")
			}
		}
	})
}

func (rt *CmdRunner) executeEnergy(cc *CommandContext, cmd *EnergyCmd) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		if cmd.Save != nil {
			cc.error(sim.SaveEnergy(cmd.Name))
			return
		}
		cc.outputItemsAsYaml(sim.GetEnergyAnalyser().GetEnergyOfDevices(sim.Dispatcher().CurTime))
	})
}

func (rt *CmdRunner) executeLoad(cc *CommandContext, cmd *LoadCmd) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		cc.error(sim.LoadScenarioFile(cmd.Filename))
	})
}

func (rt *CmdRunner) executeSave(cc *CommandContext, cmd *SaveCmd) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		cc.error(sim.SaveScenarioFile(cmd.Filename))
	})
}

func (rt *CmdRunner) executeLogLevel(cc *CommandContext, cmd *LogLevelCmd) {
	if cmd.Level == "" {
		cc.outputf("%v\n", logger.GetLevel().String())
		return
	}
	level, err := logger.ParseLevelString(cmd.Level)
	if err != nil {
		cc.error(err)
		return
	}
	logger.SetLevel(level)
}

func (rt *CmdRunner) executeWatch(cc *CommandContext, cmd *WatchCmd) {
	level := logger.DefaultLevel
	if len(cmd.Level) > 0 {
		var err error
		if level, err = logger.ParseLevelString(cmd.Level); err != nil {
			cc.error(err)
			return
		}
	}

	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		devicesToWatch := cmd.Devices
		if len(cmd.Devices) == 0 && len(cmd.All) == 0 {
			// variant: 'watch'
			var watched []string
			sim.VisitDevicesInOrder(func(dev *device.Device) {
				if dev.Logger().GetDisplayLevel() > logger.ErrorLevel {
					watched = append(watched, fmt.Sprintf("%d", dev.Id))
				}
			})
			cc.outputf("%s\n", strings.Join(watched, " "))
			return
		} else if len(cmd.All) > 0 {
			// variant: 'watch all [<level>]'
			for _, id := range sim.Devices() {
				devicesToWatch = append(devicesToWatch, DeviceSelector{Id: id})
			}
		}

		for _, sel := range getUniqueAndSorted(devicesToWatch) {
			if err := sim.SetWatchLevel(sel.Id, level); err != nil {
				cc.error(err)
			}
		}
	})
}

func (rt *CmdRunner) executeUnwatch(cc *CommandContext, cmd *UnwatchCmd) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		ids := sim.Devices()
		if len(cmd.Devices) > 0 {
			ids = ids[:0:0]
			for _, sel := range getUniqueAndSorted(cmd.Devices) {
				ids = append(ids, sel.Id)
			}
		}
		for _, id := range ids {
			if err := sim.SetWatchLevel(id, logger.ErrorLevel); err != nil {
				cc.outputf("Warn: device %d not found, skipping\n", id)
			}
		}
	})
}

func (rt *CmdRunner) executeExit(cc *CommandContext, cmd *ExitCmd) {
	rt.ctx.Cancel("exit")
}

func (rt *CmdRunner) executeHelp(cc *CommandContext, cmd *HelpCmd) {
	if len(cmd.HelpTopic) > 0 {
		cc.outputStr(rt.help.outputCommandHelp(cmd.HelpTopic))
	} else {
		cc.outputStr(rt.help.outputGeneralHelp())
	}
}

func (rt *CmdRunner) postAsyncWait(cc *CommandContext, f func(sim *simulation.Simulation)) {
	done := make(chan struct{})
	if rt.sim.PostAsync(func() {
		defer close(done) // even if f() fails execution, 'done' should be closed.
		f(rt.sim)         // executing task (later) may set cc.err status if error occurs.
	}) {
		<-done // only block-wait if task was accepted.
	} else {
		cc.error(simulation.CommandInterruptedError) // report cc error if not accepted.
	}
}
