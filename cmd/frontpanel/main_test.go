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
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/lassandro/frontpanel/pkg/debugger"
	"github.com/lassandro/frontpanel/pkg/gpio"
	"github.com/lassandro/frontpanel/pkg/machine"
	"github.com/lassandro/frontpanel/pkg/panel"
)

func TestVirtualREPL(t *testing.T) {
	board := panel.NewSwitchBoard(gpio.NewVirtual(), panel.DefaultPins())

	var out bytes.Buffer
	quit := false

	in := strings.NewReader("sr 17\nhalt\nsinst\nexam\n\nr2 cw\nbogus\nquit\nsr 1\n")
	virtualREPL(board, in, &out, func() { quit = true })

	if !quit {
		t.Error("want:quit called\nhave:not called")
	}

	// Two presses of EXAM (repeated by the empty line) and one detent
	if want, have := 4*HOLD_SCANS+4, board.Pending(); want != have {
		t.Errorf("want:%d frames\nhave:%d", want, have)
	}

	m := board.Matrix()
	var state panel.PanelState
	panel.DecodeSwitches(&m, &state)

	if state.SwitchRegister != 0o17 {
		t.Errorf("want:000017\nhave:%06o", state.SwitchRegister)
	}

	if state.Controls.EnableHalt || state.Controls.SInstSBusCycle || state.Controls.Exam {
		t.Errorf("want:HALT, S_BUS_CYCLE and EXAM closed\nhave:%+v", state.Controls)
	}

	if !strings.Contains(out.String(), "'bogus' is not a valid command") {
		t.Errorf("want:error for bogus\nhave:%s", out.String())
	}
}

func TestSyslogPriority(t *testing.T) {
	tests := []struct {
		Level  slog.Level
		Output int
	}{
		{slog.LevelDebug, 0},
		{slog.LevelInfo, 1},
		{slog.LevelInfo + 2, 1},
		{slog.LevelWarn, 2},
		{slog.LevelError, 3},
		{slog.LevelError + 4, 3},
	}

	for _, test := range tests {
		if have := priority(test.Level); have != test.Output {
			t.Errorf("%s\nwant:%d\nhave:%d", test.Level, test.Output, have)
		}
	}
}

func TestNewDebugger(t *testing.T) {
	discard := slog.New(slog.NewTextHandler(io.Discard, nil))

	dbg, err := newDebugger(discard, []string{"1002"}, []string{"2000", "2002:r", "2004:w", "2006:rw"})

	if err != nil {
		t.Fatal(err)
	}

	if len(dbg.Breakpoints) != 1 || dbg.Breakpoints[0].Addr != 0o1002 {
		t.Errorf("want:[1002]\nhave:%+v", dbg.Breakpoints)
	}

	want := []debugger.Watchpoint{
		{Addr: 0o2000, Type: debugger.ReadWriteWatch},
		{Addr: 0o2002, Type: debugger.ReadWatch},
		{Addr: 0o2004, Type: debugger.WriteWatch},
		{Addr: 0o2006, Type: debugger.ReadWriteWatch},
	}

	if len(dbg.Watchpoints) != len(want) {
		t.Fatalf("want:%+v\nhave:%+v", want, dbg.Watchpoints)
	}

	for i := range want {
		if dbg.Watchpoints[i] != want[i] {
			t.Errorf("want:%+v\nhave:%+v", want[i], dbg.Watchpoints[i])
		}
	}

	if dbg, err := newDebugger(discard, nil, nil); dbg != nil || err != nil {
		t.Errorf("want:nil, nil\nhave:%v, %v", dbg, err)
	}

	for _, bad := range []string{"9", "2000:x", ":r"} {
		if _, err := newDebugger(discard, nil, []string{bad}); err == nil {
			t.Errorf("%q\nwant:error\nhave:nil", bad)
		}
	}
}

func TestWatchpointOnBenchMachine(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	dbg, err := newDebugger(logger, nil, []string{"2000:w"})

	if err != nil {
		t.Fatal(err)
	}

	mc := machine.New(logger)
	mc.Debugger = dbg
	defer mc.Close()

	if err := mc.Deposit(0o2000, 0o777); err != nil {
		t.Fatal(err)
	}

	if _, err := mc.Examine(0o2000); err != nil {
		t.Fatal(err)
	}

	out := logs.String()

	if !strings.Contains(out, "watchpoint write") || !strings.Contains(out, "value=000777") {
		t.Errorf("want:watchpoint write logged\nhave:%s", out)
	}

	if strings.Contains(out, "watchpoint read") {
		t.Errorf("want:reads not logged\nhave:%s", out)
	}
}
