// Copyright (C) 2021  Antonio Lassandro

// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU General Public License as published by the Free
// Software Foundation, either version 3 of the License, or (at your option)
// any later version.

// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
// FITNESS FOR A PARTICULAR PURPOSE.  See the GNU General Public License for
// more details.

// You should have received a copy of the GNU General Public License along
// with this program.  If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"golang.org/x/sys/unix"

	"github.com/lassandro/frontpanel/pkg/config"
	"github.com/lassandro/frontpanel/pkg/console"
	"github.com/lassandro/frontpanel/pkg/debugger"
	"github.com/lassandro/frontpanel/pkg/encoding"
	"github.com/lassandro/frontpanel/pkg/gpio"
	"github.com/lassandro/frontpanel/pkg/machine"
	"github.com/lassandro/frontpanel/pkg/panel"
	"github.com/lassandro/frontpanel/pkg/sim"
	"github.com/lassandro/frontpanel/pkg/simh"
	"github.com/lassandro/frontpanel/pkg/timing"
)

const (
	SIMULATOR_SIMH  = "simh"
	SIMULATOR_BENCH = "bench"
)

var cli struct {
	Binary string `arg:"" help:"Simulator executable."`
	Config string `arg:"" type:"path" help:"Configuration table selecting a setup by switch code."`

	Hardware  string   `type:"path" placeholder:"FILE" help:"Hardware description (YAML)."`
	Gpio      string   `placeholder:"BACKEND" help:"GPIO backend: gpiod, periph, rpio or virtual. Overrides the hardware description."`
	Simulator string   `enum:"simh,bench" default:"simh" help:"Simulator to drive: simh or the built-in bench machine."`
	Break     []string `placeholder:"ADDR" help:"Bench machine breakpoint address in octal. Repeatable."`
	Watch     []string `placeholder:"ADDR[:r|w|rw]" help:"Bench machine watchpoint address in octal, logged on read, write or both (default rw). Repeatable."`
	Syslog    bool     `help:"Log to syslog instead of stderr."`
	Debug     bool     `help:"Log debug messages."`
	Virtual   bool     `help:"Run a virtual panel operated from stdin."`
}

func parseWatch(arg string) (debugger.Watchpoint, error) {
	const usage = "ADDR[:r|w|rw]"

	addrArg, typeArg, found := strings.Cut(arg, ":")

	addr, err := encoding.DecodeOctal(addrArg)

	if err != nil {
		return debugger.Watchpoint{}, fmt.Errorf("watchpoint %q: %w", arg, err)
	}

	wtype := debugger.ReadWriteWatch

	if found {
		switch typeArg {
		case "r", "read":
			wtype = debugger.ReadWatch
		case "w", "write":
			wtype = debugger.WriteWatch
		case "rw", "readwrite":
			wtype = debugger.ReadWriteWatch
		default:
			return debugger.Watchpoint{}, fmt.Errorf("watchpoint %q: want %s", arg, usage)
		}
	}

	return debugger.Watchpoint{Addr: addr, Type: wtype}, nil
}

// newDebugger returns nil when there is nothing to break or watch on.
func newDebugger(logger *slog.Logger, breaks []string, watches []string) (*debugger.Debugger, error) {
	if len(breaks) == 0 && len(watches) == 0 {
		return nil, nil
	}

	dbg := debugger.New(logger)

	for _, arg := range breaks {
		addr, err := encoding.DecodeOctal(arg)

		if err != nil {
			return nil, fmt.Errorf("breakpoint %q: %w", arg, err)
		}

		dbg.Breakpoints = append(dbg.Breakpoints, debugger.Breakpoint{Addr: addr})
	}

	for _, arg := range watches {
		watchpoint, err := parseWatch(arg)

		if err != nil {
			return nil, err
		}

		dbg.Watchpoints = append(dbg.Watchpoints, watchpoint)
	}

	return dbg, nil
}

func newStarter(logger *slog.Logger) (sim.Starter, error) {
	if cli.Simulator != SIMULATOR_BENCH {
		if len(cli.Break) > 0 || len(cli.Watch) > 0 {
			logger.Warn("breakpoints and watchpoints only apply to the bench machine")
		}

		return simh.Starter(logger), nil
	}

	dbg, err := newDebugger(logger, cli.Break, cli.Watch)

	if err != nil {
		return nil, err
	}

	// Keep the interface nil rather than holding a nil *Debugger
	if dbg == nil {
		return machine.Starter(logger, nil), nil
	}

	return machine.Starter(logger, dbg), nil
}

// absolute keeps paths valid after the loop changes directory. Bare command
// names are left for PATH lookup.
func absolute(path string) string {
	if !strings.ContainsRune(path, os.PathSeparator) {
		return path
	}

	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}

	return path
}

func frontpanel() int {
	kong.Parse(
		&cli,
		kong.Name("frontpanel"),
		kong.Description("Drives a minicomputer front panel replica from a CPU simulator."),
		kong.UsageOnError(),
	)

	logger, closeLog, err := newLogger(cli.Syslog, cli.Debug)

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	defer closeLog()

	hwconf, err := config.LoadHardware(cli.Hardware)

	if err != nil {
		logger.Error("hardware description", "err", err)
		return 1
	}

	if cli.Gpio != "" {
		hwconf.Backend = cli.Gpio
	}

	if cli.Virtual {
		hwconf.Backend = gpio.BACKEND_VIRTUAL
	}

	if err := hwconf.Validate(); err != nil {
		logger.Error("hardware description", "err", err)
		return 1
	}

	start, err := newStarter(logger)

	if err != nil {
		logger.Error("simulator", "err", err)
		return 1
	}

	chip, err := gpio.Open(hwconf.Backend, hwconf.Chip)

	if err != nil {
		logger.Error("opening gpio", "backend", hwconf.Backend, "chip", hwconf.Chip, "err", err)
		return 1
	}

	var board *panel.SwitchBoard

	if virtual, ok := chip.(*gpio.Virtual); ok {
		board = panel.NewSwitchBoard(virtual, hwconf.Pins)
	}

	hw, err := panel.NewHardware(chip, hwconf.Pins, hwconf.Timing, timing.Nanosleep{})

	if err != nil {
		chip.Close()
		logger.Error("initializing panel", "err", err)
		return 1
	}

	defer func() {
		if err := hw.Close(); err != nil {
			logger.Error("releasing panel", "err", err)
		}
	}()

	table, err := config.Load(cli.Config, logger)

	if err != nil {
		logger.Error("configuration load failed", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), unix.SIGINT, unix.SIGTERM)
	defer stop()

	if board != nil {
		go virtualREPL(board, os.Stdin, os.Stdout, stop)
	}

	loop := &console.Loop{
		Panel:       hw,
		Table:       table,
		Start:       start,
		Binary:      absolute(cli.Binary),
		Logger:      logger,
		Sleeper:     timing.Nanosleep{},
		Settings:    console.SettingsFrom(hwconf.Session),
		ConfigRetry: hwconf.Session.ConfigRetry,
	}

	if err := loop.Run(ctx); err != nil {
		logger.Error("configuration loop stopped", "err", err)
		return 1
	}

	logger.Info("shutting down")

	return 0
}

func main() {
	os.Exit(frontpanel())
}
