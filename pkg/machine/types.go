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

package machine

import (
	"log/slog"
	"sync"

	"github.com/lassandro/frontpanel/pkg/sim"
)

type MachineState struct {
	// R0-R5 and SP
	Registers   [7]uint16
	Program     uint32
	Procstat    uint16
	Instruction uint16
	Memory      map[uint32]uint16
}

// MachineDebugger is called with the machine locked and must not call back
// into it. Step returning true halts a running machine before the
// instruction at Program executes.
type MachineDebugger interface {
	Step(state *MachineState) bool
	Read(addr uint32, state *MachineState)
	Write(addr uint32, state *MachineState)
}

// Machine is a bench stand-in for a PDP-11 simulator. It fetches words and
// understands HALT, WAIT and BR; every other instruction is a no-op.
type Machine struct {
	CPU      MachineState
	Debugger MachineDebugger
	Logger   *slog.Logger

	// Dir is searched for <device>.bin boot images.
	Dir string

	CyclesPerTick int

	mu      sync.Mutex
	running bool

	// Set when the run loop stopped on a breakpoint, so the next run
	// executes the instruction at the breakpoint before checking again.
	resume bool
	stop    chan struct{}
	done    chan struct{}

	watched map[string]bool
	sampler *sim.Sampler

	subStop chan struct{}
	subDone chan struct{}
}
