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

package debugger

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/lassandro/frontpanel/pkg/encoding"
	"github.com/lassandro/frontpanel/pkg/machine"
	"github.com/lassandro/frontpanel/pkg/panel"
)

func New(logger *slog.Logger) *Debugger {
	if logger == nil {
		logger = slog.Default()
	}

	return &Debugger{Logger: logger}
}

func (dbg *Debugger) Step(state *machine.MachineState) bool {
	for _, breakpoint := range dbg.Breakpoints {
		if state.Program == breakpoint.Addr {
			dbg.Logger.Info("breakpoint", "pc", encoding.Octal(state.Program))
			return true
		}
	}

	return false
}

func (dbg *Debugger) Read(addr uint32, state *machine.MachineState) {
	for _, watchpoint := range dbg.Watchpoints {
		if watchpoint.Type == WriteWatch {
			continue
		}

		if addr == watchpoint.Addr {
			dbg.Logger.Info(
				"watchpoint read",
				"addr", encoding.Octal(addr),
				"value", encoding.Octal(uint32(state.Memory[addr])),
			)
			break
		}
	}
}

func (dbg *Debugger) Write(addr uint32, state *machine.MachineState) {
	for _, watchpoint := range dbg.Watchpoints {
		if watchpoint.Type == ReadWatch {
			continue
		}

		if addr == watchpoint.Addr {
			dbg.Logger.Info(
				"watchpoint write",
				"addr", encoding.Octal(addr),
				"value", encoding.Octal(uint32(state.Memory[addr])),
			)
			break
		}
	}
}

// Dump logs s one line at a time.
func (dbg *Debugger) Dump(s *Snapshot) {
	for _, line := range Format(s) {
		dbg.Logger.Info(line)
	}
}

func flag(name string, value bool) string {
	if value {
		return name + "=1"
	}

	return name + "=0"
}

func Format(s *Snapshot) []string {
	var lines []string

	state := s.State

	lines = append(lines, fmt.Sprintf(
		"SR %s (%d) ADDR %s DATA %s",
		encoding.Octal(state.SwitchRegister),
		state.SwitchRegister,
		encoding.Octal(state.Address),
		encoding.Octal(uint32(state.Data)),
	))

	lines = append(lines, fmt.Sprintf(
		"CONSOLE %s LATCH %s %s %s %s",
		encoding.Octal(s.ConsoleAddress),
		encoding.Octal(uint32(s.DataLatched)),
		flag("owned", s.UseDataLatched),
		flag("blink", s.Blinking),
		s.SimState,
	))

	c := &state.Controls

	lines = append(lines, strings.Join([]string{
		"SWITCHES",
		flag("test", c.Test),
		flag("load_addr", c.LoadAddr),
		flag("exam", c.Exam),
		flag("dep", c.Dep),
		flag("cont", c.Cont),
		flag("enable_halt", c.EnableHalt),
		flag("sinst_sbus_cycle", c.SInstSBusCycle),
		flag("start", c.Start),
	}, " "))

	lines = append(lines, fmt.Sprintf(
		"ROTARY R1 %d %s %s R2 %d %s %s",
		state.R1Position,
		panel.R1Name(state.R1Position),
		flag("button", state.R1Button),
		state.R2Position,
		panel.R2Name(state.R2Position),
		flag("button", state.R2Button),
	))

	if len(s.Edges) > 0 {
		edges := []string{"EDGES"}

		for _, edge := range s.Edges {
			edges = append(edges, flag(edge.Name, edge.Previous))
		}

		lines = append(lines, strings.Join(edges, " "))
	}

	st := &state.Status

	lines = append(lines, strings.Join([]string{
		"STATUS",
		flag("addr22", st.Addr22),
		flag("addr18", st.Addr18),
		flag("addr16", st.Addr16),
		flag("kernel", st.Kernel),
		flag("super", st.Super),
		flag("user", st.User),
		flag("run", st.Run),
		flag("par_low", st.ParLow),
		flag("par_high", st.ParHigh),
	}, " "))

	if regs := s.Registers; regs != nil {
		lines = append(lines, fmt.Sprintf(
			"REGS PC %s IR %s PSW %s R0 %06o R1 %06o R2 %06o R3 %06o R4 %06o R5 %06o SP %06o",
			encoding.Octal(regs.PC),
			encoding.Octal(uint32(regs.IR)),
			encoding.Octal(uint32(regs.PSW)),
			regs.R[0], regs.R[1], regs.R[2], regs.R[3], regs.R[4], regs.R[5], regs.R[6],
		))
	}

	if s.Matrix != nil {
		for row := range s.Matrix {
			var b strings.Builder

			for _, closed := range s.Matrix[row] {
				if closed {
					b.WriteByte('1')
				} else {
					b.WriteByte('0')
				}
			}

			lines = append(lines, fmt.Sprintf("MATRIX %d %s", row, b.String()))
		}
	}

	return lines
}
