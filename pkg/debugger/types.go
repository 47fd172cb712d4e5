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
	"log/slog"

	"github.com/lassandro/frontpanel/pkg/panel"
	"github.com/lassandro/frontpanel/pkg/sim"
)

type WatchpointType uint

const (
	ReadWatch WatchpointType = iota
	WriteWatch
	ReadWriteWatch
)

type Watchpoint struct {
	Addr uint32
	Type WatchpointType
}

type Breakpoint struct {
	Addr uint32
}

// Debugger halts the bench machine on breakpoints and logs watched memory
// accesses.
type Debugger struct {
	Logger *slog.Logger

	Breakpoints []Breakpoint
	Watchpoints []Watchpoint
}

// Edge is the last sampled level of a named switch.
type Edge struct {
	Name     string
	Previous bool
}

// Snapshot is the console state dumped by the TEST switch.
type Snapshot struct {
	State     *panel.PanelState
	Matrix    *panel.SwitchMatrix
	Edges     []Edge
	Registers *sim.Registers
	SimState  sim.State

	ConsoleAddress uint32
	DataLatched    uint16
	UseDataLatched bool
	Blinking       bool
}
