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

// Package console runs the front panel against a simulator: one Session per
// selected configuration, and the Loop that selects configurations by
// switch code.
package console

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lassandro/frontpanel/pkg/config"
	"github.com/lassandro/frontpanel/pkg/debugger"
	"github.com/lassandro/frontpanel/pkg/encoding"
	"github.com/lassandro/frontpanel/pkg/panel"
	"github.com/lassandro/frontpanel/pkg/sim"
	"github.com/lassandro/frontpanel/pkg/timing"
)

type Result uint8

const (
	RESULT_EXIT Result = iota
	RESULT_RESTART
	RESULT_RELOAD
)

func (r Result) String() string {
	switch r {
	case RESULT_RESTART:
		return "restart"
	case RESULT_RELOAD:
		return "reload"
	default:
		return "exit"
	}
}

// Hardware failures are logged on the first occurrence and then once per
// this many.
const FAILURE_LOG_INTERVAL = 100

const (
	ADDR16_LIMIT = 1 << 16
	ADDR18_LIMIT = 1 << 18
)

// Panel is the switch and LED hardware.
type Panel interface {
	Scan(m *panel.SwitchMatrix) error
	Drive(leds *panel.LightMatrix) error
}

type Settings struct {
	LoopIdle         time.Duration
	SnapshotInterval time.Duration
	SamplingDepth    int
}

func SettingsFrom(s config.Session) Settings {
	return Settings{
		LoopIdle:         s.LoopIdle,
		SnapshotInterval: s.SnapshotInterval,
		SamplingDepth:    s.SamplingDepth,
	}
}

type edges struct {
	load       panel.Edge
	exam       panel.Edge
	dep        panel.Edge
	cont       panel.Edge
	enableHalt panel.Edge
	start      panel.Edge
	r1Button   panel.Edge
	r2Button   panel.Edge
	test       panel.Edge
}

// Session connects the panel to one simulator run.
type Session struct {
	Panel    Panel
	Start    sim.Starter
	Binary   string
	Entry    config.Entry
	Logger   *slog.Logger
	Sleeper  timing.Sleeper
	Settings Settings

	// Simulator is set once started.
	Simulator sim.Simulator

	State  panel.PanelState
	Matrix panel.SwitchMatrix

	edges   edges
	r1, r2  *panel.RotaryEncoder
	mailbox sim.Mailbox
	regs    sim.Registers

	consoleAddress uint32
	dataLatched    uint16
	useDataLatched bool
	blinking       bool

	scanFailures  int
	driveFailures int
	ran           bool
}

// Ran reports whether the session reached its control loop.
func (s *Session) Ran() bool {
	return s.ran
}

func (s *Session) ConsoleAddress() uint32 {
	return s.consoleAddress
}

// DataLatch returns the latched data and whether it owns the data display.
func (s *Session) DataLatch() (uint16, bool) {
	return s.dataLatched, s.useDataLatched
}

func (s *Session) Blinking() bool {
	return s.blinking
}

// Reset starts a fresh session state. Edge detectors are seeded from the
// current switch positions so switches already in place do not fire.
func (s *Session) Reset() {
	if s.Logger == nil {
		s.Logger = slog.Default()
	}

	if s.Sleeper == nil {
		s.Sleeper = timing.Nanosleep{}
	}

	c := &s.State.Controls

	s.edges = edges{
		load:       panel.Edge{Previous: c.LoadAddr},
		exam:       panel.Edge{Previous: c.Exam},
		dep:        panel.Edge{Previous: c.Dep},
		cont:       panel.Edge{Previous: c.Cont},
		enableHalt: panel.Edge{Previous: c.EnableHalt},
		start:      panel.Edge{Previous: c.Start},
		r1Button:   panel.Edge{Previous: s.State.R1Button},
		r2Button:   panel.Edge{Previous: s.State.R2Button},
		test:       panel.Edge{Previous: c.Test},
	}

	s.r1 = panel.NewRotaryEncoder(panel.R1_POSITIONS)
	s.r2 = panel.NewRotaryEncoder(panel.R2_POSITIONS)

	s.regs = sim.Registers{}
	s.mailbox.Take()

	s.consoleAddress = 0
	s.dataLatched = 0
	s.useDataLatched = false
	s.blinking = false
}

func (s *Session) scan() {
	if err := s.Panel.Scan(&s.Matrix); err != nil {
		if s.scanFailures%FAILURE_LOG_INTERVAL == 0 {
			s.Logger.Error("switch scan failed", "err", err, "failures", s.scanFailures+1)
		}

		s.scanFailures++
	}
}

func (s *Session) drive() {
	var samples []int

	if s.blinking {
		samples = s.regs.PCBits[:]
	}

	leds := panel.EncodeLights(&s.State, samples)

	if err := s.Panel.Drive(&leds); err != nil {
		if s.driveFailures%FAILURE_LOG_INTERVAL == 0 {
			s.Logger.Error("led drive failed", "err", err, "failures", s.driveFailures+1)
		}

		s.driveFailures++
	}
}

// Run starts the simulator for Entry and runs the panel until ctx is done
// or a rotary button ends the session.
func (s *Session) Run(ctx context.Context) Result {
	s.scan()
	panel.DecodeSwitches(&s.Matrix, &s.State)
	s.Reset()

	s.Logger.Info(
		"starting session",
		"sr", fmt.Sprintf("%04o", s.State.SwitchRegister&0o7777),
		"binary", s.Binary,
		"config", s.Entry.ConfigFile,
		"boot", s.Entry.BootDevice,
	)

	simulator, err := s.Start(s.Binary, s.Entry.ConfigFile)

	if err != nil {
		s.Logger.Error("simulator start failed", "err", err)
		return RESULT_EXIT
	}

	s.Simulator = simulator

	defer func() {
		if err := simulator.Close(); err != nil {
			s.Logger.Error("simulator shutdown failed", "err", err)
		}

		s.Simulator = nil
	}()

	err = simulator.Watch(sim.WatchedRegisters, sim.REG_PC, s.Settings.SamplingDepth)

	if err == nil {
		err = simulator.Subscribe(s.Settings.SnapshotInterval, s.mailbox.Put)
	}

	if err != nil {
		s.Logger.Error("register updates unavailable", "err", err)
		return RESULT_EXIT
	}

	s.Logger.Info("booting", "device", s.Entry.BootDevice)

	if err := simulator.Boot(s.Entry.BootDevice); err != nil {
		s.Logger.Error("boot failed", "device", s.Entry.BootDevice, "err", err)
	}

	// Derive the display from the first scan without waiting for a snapshot
	forced := true

	if !s.State.Controls.EnableHalt {
		s.Logger.Info("HALT at session start")

		if err := simulator.Halt(); err != nil {
			s.Logger.Error("halt failed", "err", err)
		}
	}

	s.ran = true

	for {
		if ctx.Err() != nil {
			break
		}

		s.scan()
		panel.DecodeSwitches(&s.Matrix, &s.State)
		panel.DecodeRotaries(&s.Matrix, &s.State, s.r1, s.r2)

		if s.edges.r1Button.Rising(s.State.R1Button) {
			s.Logger.Info("R1 button, reloading configuration")
			return RESULT_RELOAD
		}

		if s.edges.r2Button.Rising(s.State.R2Button) {
			s.Logger.Info("R2 button, restarting session")
			return RESULT_RESTART
		}

		if s.edges.test.Rising(s.State.Controls.Test) {
			s.dump()
		}

		regs := s.mailbox.Take()

		if regs == nil && forced {
			regs = &s.regs
		}

		forced = false

		if regs != nil {
			s.Update(regs)
		} else {
			s.Sleeper.Sleep(s.Settings.LoopIdle)
		}

		s.drive()
	}

	s.Logger.Info("shutting down session")

	return RESULT_EXIT
}

func (s *Session) dump() {
	var state sim.State

	if s.Simulator != nil {
		state = s.Simulator.State()
	}

	e := &s.edges

	debugger.New(s.Logger).Dump(&debugger.Snapshot{
		State:     &s.State,
		Matrix:    &s.Matrix,
		Registers: &s.regs,
		SimState:  state,
		Edges: []debugger.Edge{
			{Name: "load", Previous: e.load.Previous},
			{Name: "exam", Previous: e.exam.Previous},
			{Name: "dep", Previous: e.dep.Previous},
			{Name: "cont", Previous: e.cont.Previous},
			{Name: "enable_halt", Previous: e.enableHalt.Previous},
			{Name: "start", Previous: e.start.Previous},
			{Name: "r1_button", Previous: e.r1Button.Previous},
			{Name: "r2_button", Previous: e.r2Button.Previous},
		},
		ConsoleAddress: s.consoleAddress,
		DataLatched:    s.dataLatched,
		UseDataLatched: s.useDataLatched,
		Blinking:       s.blinking,
	})
}

func (s *Session) latch(value uint16, action string) {
	s.Logger.Debug(
		action,
		"data", encoding.Octal(uint32(value)),
		"addr", encoding.Octal(s.consoleAddress),
	)

	s.dataLatched = value
	s.useDataLatched = true
	s.consoleAddress = encoding.Increment22(s.consoleAddress)
}

// Update applies the console switches to the simulator and derives the
// displayed state from regs. Call once per delivered snapshot.
func (s *Session) Update(regs *sim.Registers) {
	s.regs = *regs

	simulator := s.Simulator
	running := simulator.State() == sim.STATE_RUNNING
	pc := encoding.Mask22(regs.PC)
	c := &s.State.Controls

	_, loadAddr := s.edges.load.Update(c.LoadAddr)
	_, exam := s.edges.exam.Update(c.Exam)
	_, dep := s.edges.dep.Update(c.Dep)
	_, cont := s.edges.cont.Update(c.Cont)
	enable, halt := s.edges.enableHalt.Update(c.EnableHalt)
	_, start := s.edges.start.Update(c.Start)

	if !running && loadAddr {
		s.consoleAddress = encoding.Mask22(s.State.SwitchRegister)
		s.useDataLatched = false

		s.Logger.Debug("LOAD ADDR", "addr", encoding.Octal(s.consoleAddress))
	}

	if !running && exam {
		if value, err := simulator.Examine(s.consoleAddress); err != nil {
			s.Logger.Debug("EXAM failed", "addr", encoding.Octal(s.consoleAddress), "err", err)
		} else {
			s.latch(value, "EXAM")
		}
	}

	if !running && dep {
		value := uint16(s.State.SwitchRegister & encoding.DATA_MASK)

		if err := simulator.Deposit(s.consoleAddress, value); err != nil {
			s.Logger.Debug("DEP failed", "addr", encoding.Octal(s.consoleAddress), "err", err)
		} else {
			s.latch(value, "DEP")
		}
	}

	if cont {
		// S_INST/S_BUS_CYCLE has no effect yet, both positions single step
		if c.SInstSBusCycle {
			s.Logger.Debug("CONT, single step")
		} else {
			s.Logger.Debug("CONT, single step, ignoring S_BUS_CYCLE")
		}

		if err := simulator.Step(); err != nil {
			s.Logger.Error("step failed", "err", err)
		}
	}

	if running && halt {
		s.Logger.Info("HALT")

		if err := simulator.Halt(); err != nil {
			s.Logger.Error("halt failed", "err", err)
		}
	} else if !running && enable {
		s.Logger.Info("ENABLE")

		if err := simulator.Run(); err != nil {
			s.Logger.Error("run failed", "err", err)
		}

		s.useDataLatched = false
	}

	if start {
		s.Logger.Info("START", "pc", encoding.Octal(s.consoleAddress))

		if err := simulator.SetRegister(sim.REG_PC, fmt.Sprintf("%d", s.consoleAddress)); err != nil {
			s.Logger.Error("setting PC failed", "err", err)
		} else {
			pc = s.consoleAddress
			s.regs.PC = pc

			if err := simulator.Run(); err != nil {
				s.Logger.Error("run failed", "err", err)
			}
		}
	}

	s.derive(running, pc)
}

func (s *Session) derive(running bool, pc uint32) {
	state := &s.State
	status := &state.Status

	status.Kernel, status.Super, status.User = false, false, false

	if psw := s.regs.PSW; psw != 0 {
		switch psw >> 14 {
		case 0:
			status.Kernel = true
		case 1:
			status.Super = true
		case 3:
			status.User = true
		}
	}

	status.Run = running

	if !running {
		state.Address = s.consoleAddress
		s.blinking = false
	} else {
		switch state.R1Position {
		case panel.R1_CONS_PHY:
			state.Address = s.consoleAddress
		case panel.R1_PROG_PHY:
			state.Address = encoding.Mask22(pc)
		default:
			state.Address = pc
		}

		s.blinking = state.R1Position != panel.R1_CONS_PHY
	}

	if state.R2Position == panel.R2_DISPLAY_REGISTER {
		index := state.SwitchRegister & 0x7

		if index == sim.R_PC {
			state.Data = uint16(pc)
		} else {
			state.Data = s.regs.R[index]
		}
	} else if s.useDataLatched {
		state.Data = s.dataLatched
	} else if !running {
		state.Data = uint16(state.SwitchRegister & encoding.DATA_MASK)
	}

	status.Addr16 = pc < ADDR16_LIMIT
	status.Addr18 = !status.Addr16 && pc < ADDR18_LIMIT
	status.Addr22 = pc >= ADDR18_LIMIT
	status.Data = false
	status.Master = false
	status.Pause = false
	status.AddrErr = false
	status.ParErr = false

	status.ParLow, status.ParHigh = false, false

	if !s.blinking {
		status.ParLow = encoding.Parity(uint32(state.Data), 8) == 1
		status.ParHigh = encoding.Parity(uint32(state.Data>>8), 6) == 1
	}
}
