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

package wave_main

import (
	"flag"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"github.com/vanetsim/wave-sim/cli"
	"github.com/vanetsim/wave-sim/dispatcher"
	"github.com/vanetsim/wave-sim/logger"
	"github.com/vanetsim/wave-sim/pcap"
	"github.com/vanetsim/wave-sim/prng"
	"github.com/vanetsim/wave-sim/progctx"
	"github.com/vanetsim/wave-sim/simulation"
	"github.com/vanetsim/wave-sim/visualize"
	visualizeMulti "github.com/vanetsim/wave-sim/visualize/multi"
	visualizeNats "github.com/vanetsim/wave-sim/visualize/nats"
	visualizeStatslog "github.com/vanetsim/wave-sim/visualize/statslog"
	"github.com/vanetsim/wave-sim/web"
)

type MainArgs struct {
	Speed       string
	AutoGo      bool
	ReadOnly    bool
	LogLevel    logger.Level
	LogFile     string
	WatchLevel  logger.Level
	ListenAddr  string
	NatsUrl     string
	NatsPrefix  string
	StatsLog    bool
	PcapType    string
	Seed        int64
	Scenario    string
	OutputDir   string
	SimId       int
	HistoryFile string
}

var (
	args MainArgs
)

func parseArgs() {
	flag.StringVar(&args.Speed, "speed", "1", "set simulating speed, or 'max'")
	flag.BoolVar(&args.AutoGo, "autogo", true, "auto go (runs the simulation at given speed, without issuing 'go' commands.)")
	flag.BoolVar(&args.ReadOnly, "readonly", false, "readonly simulation can not be manipulated by remote controllers")
	args.LogLevel = logger.WarnLevel
	flag.Var(&args.LogLevel, "log", "set logging level: trace, debug, info, note, warn, error.")
	flag.StringVar(&args.LogFile, "log-file", "", "also write the log to this file, rotated by size")
	args.WatchLevel = logger.ErrorLevel
	flag.Var(&args.WatchLevel, "watch", "set default watch level for all new devices: off, trace, debug, info, note, warn, error.")
	flag.StringVar(&args.ListenAddr, "listen", "localhost:8997", "HTTP listen address of the status API and metrics, empty to disable")
	flag.StringVar(&args.NatsUrl, "nats", "", "NATS server URL to publish simulation events to, e.g. nats://localhost:4222")
	flag.StringVar(&args.NatsPrefix, "nats-prefix", "wave", "NATS subject prefix")
	flag.BoolVar(&args.StatsLog, "stats-log", true, "write the device access statistics CSV file")
	flag.StringVar(&args.PcapType, "pcap", pcap.FrameTypeRadiotapStr, "PCAP capture of transmitted frames: off, wlan, radiotap")
	flag.Int64Var(&args.Seed, "seed", 0, "random seed for traffic jitter and backoff, 0 for a time-based seed")
	flag.StringVar(&args.Scenario, "scenario", "", "YAML scenario file to load at start")
	flag.StringVar(&args.OutputDir, "output-dir", simulation.DefaultOutputDir, "directory for log, KPI and statistics files")
	flag.IntVar(&args.SimId, "id", 0, "simulation id, used to name the output files")
	flag.StringVar(&args.HistoryFile, "history", "", "file to keep the console command history in")

	flag.Parse()
}

func Main(ctx *progctx.ProgCtx, visualizerCreator func(ctx *progctx.ProgCtx, args *MainArgs) visualize.Visualizer, cliOptions *cli.CliOptions) {
	parseArgs()

	logger.SetLevel(args.LogLevel)
	if args.LogFile != "" {
		logger.SetOutputFile(logger.DefaultFileConfig(args.LogFile))
	}
	defer logger.Sync()

	prng.Init(args.Seed)
	// run console in the main goroutine
	ctx.Defer(func() {
		_ = os.Stdin.Close()
	})

	handleSignals(ctx)

	sim := createSimulation(ctx)
	vis := createVisualizer(ctx, sim, visualizerCreator)
	vis.Init()
	sim.SetVisualizer(vis)

	if args.Scenario != "" {
		if err := sim.LoadScenarioFile(args.Scenario); err != nil {
			logger.Errorf("%v", err)
		}
	}

	rt := cli.NewCmdRunner(ctx, sim)
	ctx.Go("simulation", sim.Run)
	<-sim.Started

	if args.ListenAddr != "" {
		if err := web.Serve(ctx, args.ListenAddr, sim); err != nil {
			logger.Errorf("web server not started: %v", err)
		}
	}

	if cliOptions == nil {
		cliOptions = cli.DefaultCliOptions()
	}
	if cliOptions.HistoryFile == "" {
		cliOptions.HistoryFile = args.HistoryFile
	}
	go func() {
		err := cli.Cli.Run(rt, cliOptions)
		ctx.Cancel(errors.Wrapf(err, "console exit"))
	}()

	if args.AutoGo {
		ctx.Go("autogo", func() {
			autoGo(ctx, sim)
		})
	}

	vis.Run() // visualize must run in the main thread

	logger.Debugf("waiting for the simulation to stop gracefully ...")
	ctx.Wait()
	logger.Debugf("simulation stopped: %v", ctx.Cause())
}

func handleSignals(ctx *progctx.ProgCtx) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT, syscall.SIGHUP)
	signal.Ignore(syscall.SIGALRM)

	ctx.WaitAdd("handleSignals", 1)
	go func() {
		defer logger.Debugf("handleSignals exit.")
		defer ctx.WaitDone("handleSignals")

		for {
			select {
			case sig := <-c:
				logger.Infof("signal received: %v", sig)
				ctx.Cancel(nil)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func autoGo(ctx *progctx.ProgCtx, sim *simulation.Simulation) {
	for {
		<-sim.Go(time.Second)
		if ctx.Err() != nil { // exit when context is Done.
			return
		}
	}
}

func parseSpeed(s string) (float64, error) {
	s = strings.ToLower(s)
	if s == "max" {
		return dispatcher.MaxSimulateSpeed, nil
	}
	speed, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid speed %s", s)
	}
	return speed, nil
}

func createSimulation(ctx *progctx.ProgCtx) *simulation.Simulation {
	simcfg := simulation.DefaultConfig()

	speed, err := parseSpeed(args.Speed)
	logger.FatalIfError(err)
	simcfg.Id = args.SimId
	simcfg.Speed = speed
	simcfg.ReadOnly = args.ReadOnly
	simcfg.AutoGo = args.AutoGo
	simcfg.OutputDir = args.OutputDir
	simcfg.LogLevel = logger.GetLevel()
	simcfg.WatchLevel = args.WatchLevel
	simcfg.PcapFrameType = pcap.ParseFrameTypeStr(args.PcapType)
	if simcfg.PcapFrameType == pcap.FrameTypeUnknown {
		logger.Fatalf("unknown pcap frame type: %s", args.PcapType)
	}

	sim, err := simulation.NewSimulation(ctx, simcfg, dispatcher.DefaultConfig())
	logger.FatalIfError(err)
	return sim
}

func createVisualizer(ctx *progctx.ProgCtx, sim *simulation.Simulation,
	visualizerCreator func(ctx *progctx.ProgCtx, args *MainArgs) visualize.Visualizer) visualize.Visualizer {
	mv := visualizeMulti.NewMultiVisualizer()
	if visualizerCreator != nil {
		if vis := visualizerCreator(ctx, &args); vis != nil {
			mv.AddVisualizer(vis)
		}
	}
	if args.NatsUrl != "" {
		nc, err := visualizeNats.Connect(args.NatsUrl)
		if err != nil {
			logger.Errorf("NATS connection to %s failed, events won't be published: %v", args.NatsUrl, err)
		} else {
			mv.AddVisualizer(visualizeNats.NewNatsVisualizer(nc, args.NatsPrefix, sim.RunId()))
		}
	}
	if args.StatsLog && args.OutputDir != "" {
		mv.AddVisualizer(visualizeStatslog.NewStatslogVisualizer(args.OutputDir, args.SimId))
	}
	return mv
}
