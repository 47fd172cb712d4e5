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

package debugger_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/lassandro/frontpanel/pkg/debugger"
	"github.com/lassandro/frontpanel/pkg/machine"
	"github.com/lassandro/frontpanel/pkg/panel"
	"github.com/lassandro/frontpanel/pkg/sim"
)

func TestFormat(t *testing.T) {
	state := panel.PanelState{
		SwitchRegister: 0o1234,
		Address:        0o100,
		Data:           0o7,
		R1Position:     panel.R1_CONS_PHY,
		R2Position:     panel.R2_DISPLAY_REGISTER,
		Controls:       panel.Controls{Test: false, Exam: true},
		Status:         panel.Status{Addr16: true, User: true},
	}

	matrix := panel.SwitchMatrix{}
	matrix[2][0] = true

	lines := debugger.Format(&debugger.Snapshot{
		State:          &state,
		Matrix:         &matrix,
		Edges:          []debugger.Edge{{Name: "exam", Previous: true}},
		Registers:      &sim.Registers{PC: 0o1000, PSW: 0o140000},
		ConsoleAddress: 0o101,
		UseDataLatched: true,
	})

	want := []string{
		"SR 001234 (668) ADDR 000100 DATA 000007",
		"CONSOLE 000101 LATCH 000000 owned=1 blink=0 halted",
		"ROTARY R1 3 CONS_PHY button=0 R2 3 DISPLAY_REGISTER button=0",
		"EDGES exam=1",
		"REGS PC 001000 IR 000000 PSW 140000",
		"MATRIX 2 100000000000",
	}

	joined := strings.Join(lines, "\n")

	for _, w := range want {
		if !strings.Contains(joined, w) {
			t.Errorf("want:%s\nhave:%s", w, joined)
		}
	}

	if !strings.Contains(joined, "test=0") || !strings.Contains(joined, "exam=1 dep=0") {
		t.Errorf("want:test=0 exam=1 dep=0\nhave:%s", joined)
	}
}

func TestBreakpoint(t *testing.T) {
	var buf bytes.Buffer

	dbg := debugger.New(slog.New(slog.NewTextHandler(&buf, nil)))
	dbg.Breakpoints = []debugger.Breakpoint{{Addr: 0o1002}}
	dbg.Watchpoints = []debugger.Watchpoint{
		{Addr: 0o100, Type: debugger.WriteWatch},
		{Addr: 0o200, Type: debugger.ReadWatch},
	}

	state := machine.MachineState{Program: 0o1000, Memory: map[uint32]uint16{0o100: 5}}

	if dbg.Step(&state) {
		t.Error("want:no break at 001000\nhave:break")
	}

	state.Program = 0o1002

	if !dbg.Step(&state) {
		t.Error("want:break at 001002\nhave:none")
	}

	dbg.Read(0o100, &state)
	dbg.Write(0o100, &state)
	dbg.Write(0o200, &state)

	have := buf.String()

	if strings.Count(have, "watchpoint") != 1 || !strings.Contains(have, "watchpoint write") {
		t.Errorf("want:one watchpoint write\nhave:%s", have)
	}

	if !strings.Contains(have, "pc=001002") {
		t.Errorf("want:pc=001002\nhave:%s", have)
	}
}
