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
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/pkg/errors"

	"github.com/vanetsim/wave-sim/logger"
)

type CliHandler interface {
	HandleCommand(cmd string, output io.Writer) error
	GetPrompt() string
}

type CliOptions struct {
	EchoInput   bool
	HistoryFile string
	Stdin       *os.File
	Stdout      *os.File
}

func DefaultCliOptions() *CliOptions {
	return &CliOptions{}
}

// CliInstance is the console reading commands from stdin. There is a single instance, Cli.
type CliInstance struct {
	Started  chan struct{}
	Options  *CliOptions
	rl       *readline.Instance
	stopped  chan struct{}
	commands []string
}

var Cli = &CliInstance{
	Started: make(chan struct{}),
	stopped: make(chan struct{}),
}

// OnStdout redraws the prompt after log output overwrote it.
func (cli *CliInstance) OnStdout() {
	if cli.rl != nil {
		cli.rl.Refresh()
	}
}

// Stop ends a running Run and waits for it to return.
func (cli *CliInstance) Stop() {
	<-cli.Started
	// readline blocks on the input runes; a Ctrl-C plus closing stdin unblocks it. Run itself closes
	// the readline instance.
	_, _ = cli.Options.Stdin.WriteString("\003\n")
	_ = cli.Options.Stdin.Close()
	logger.Tracef("waiting for CLI to stop ...")
	<-cli.stopped
}

// Run reads and executes command lines until EOF, Ctrl-C on an empty line, or a handler error.
func (cli *CliInstance) Run(handler CliHandler, options *CliOptions) error {
	defer logger.Debugf("CLI exit.")
	defer close(cli.stopped)

	if options == nil {
		options = DefaultCliOptions()
	}
	if options.Stdin == nil {
		options.Stdin = os.Stdin
	}
	if options.Stdout == nil {
		options.Stdout = os.Stdout
	}
	cli.Options = options

	restore, err := saveTerminalStates(options.Stdin, options.Stdout)
	if err != nil {
		close(cli.Started)
		return err
	}
	defer restore()

	rl, err := cli.open(handler.GetPrompt())
	if err != nil {
		close(cli.Started)
		return err
	}
	defer func() {
		logger.SetStdoutCallback(nil)
		_ = rl.Close()
	}()
	cli.rl = rl
	logger.SetStdoutCallback(cli)
	close(cli.Started)

	for {
		rl.SetPrompt(handler.GetPrompt())
		line, err := rl.Readline()
		switch {
		case len(line) > 0 && line[0] == readline.CharInterrupt:
			return nil
		case errors.Is(err, readline.ErrInterrupt):
			if len(line) == 0 {
				return nil
			}
			continue // Ctrl-C while editing only drops the line
		case err == io.EOF:
			return nil
		case err != nil:
			return err
		}

		if options.EchoInput {
			if _, err = options.Stdout.WriteString(line + "\n"); err != nil {
				return err
			}
		}

		cmd := strings.TrimSpace(line)
		if len(cmd) > 0 {
			err = handler.HandleCommand(cmd, rl.Stdout())
		}
		_ = options.Stdout.Sync()
		if err != nil {
			return err
		}
	}
}

func (cli *CliInstance) open(prompt string) (*readline.Instance, error) {
	return readline.NewEx(&readline.Config{
		Prompt:            prompt,
		HistoryFile:       cli.Options.HistoryFile,
		HistorySearchFold: true,
		AutoComplete:      newCompleter(cli.commandNames()),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		Stdin:             cli.Options.Stdin,
		Stdout:            cli.Options.Stdout,
		FuncFilterInputRune: func(r rune) (rune, bool) {
			// no job control from the console
			return r, r != readline.CharCtrlZ
		},
	})
}

func (cli *CliInstance) commandNames() []string {
	if cli.commands == nil {
		h := newHelp()
		cli.commands = h.commandNames()
	}
	return cli.commands
}

// saveTerminalStates returns a func restoring the terminal mode of those files that are terminals.
func saveTerminalStates(files ...*os.File) (func(), error) {
	var restores []func()
	restoreAll := func() {
		for _, r := range restores {
			r()
		}
	}
	for _, f := range files {
		fd := int(f.Fd())
		if !readline.IsTerminal(fd) {
			continue
		}
		state, err := readline.GetState(fd)
		if err != nil {
			restoreAll()
			return nil, err
		}
		restores = append(restores, func() {
			_ = readline.Restore(fd, state)
		})
	}
	return restoreAll, nil
}

// newCompleter completes the first word of a line to a command name.
func newCompleter(commands []string) *readline.PrefixCompleter {
	items := make([]readline.PrefixCompleterInterface, 0, len(commands))
	for _, c := range commands {
		items = append(items, readline.PcItem(c))
	}
	return readline.NewPrefixCompleter(items...)
}
