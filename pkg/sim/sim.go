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

// Package sim is the contract between the console and a CPU simulator.
package sim

import (
	"errors"
	"sync/atomic"
	"time"
)

type State uint8

const (
	STATE_HALTED State = iota
	STATE_RUNNING
)

const (
	REG_PC  = "PC"
	REG_IR  = "IR"
	REG_PSW = "PSW"
	REG_SP  = "SP"
)

const (
	R_SP = 6
	R_PC = 7
)

// PC_BITS is the width of the sampled program counter.
const PC_BITS = 22

var ErrNotRunning = errors.New("sim: simulator not running")

func (s State) String() string {
	if s == STATE_RUNNING {
		return "running"
	}

	return "halted"
}

// WatchedRegisters are the registers the console displays.
var WatchedRegisters = []string{
	REG_PC, REG_IR, REG_PSW, "R0", "R1", "R2", "R3", "R4", "R5", REG_SP,
}

// Registers is one snapshot. R holds R0-R5 and SP; R[R_PC] mirrors the low
// 16 bits of PC. PCBits counts how often each PC bit was set over the last
// sampling depth, scaled to 0-100.
type Registers struct {
	PC     uint32
	IR     uint16
	PSW    uint16
	R      [8]uint16
	PCBits [PC_BITS]int
}

type Simulator interface {
	Boot(device string) error
	Halt() error
	Run() error
	Step() error
	State() State

	Examine(addr uint32) (uint16, error)
	Deposit(addr uint32, value uint16) error

	// SetRegister sets a named register from its decimal representation.
	SetRegister(name string, decimal string) error

	// Watch selects the registers delivered to Subscribe callbacks. The
	// sampled register gets per-bit activity counts over depth samples.
	Watch(names []string, sampled string, depth int) error

	// Subscribe calls fn from the simulator's goroutine every interval.
	Subscribe(interval time.Duration, fn func(*Registers)) error

	Close() error
}

// Starter launches a simulator for one configuration.
type Starter func(binary string, configFile string) (Simulator, error)

// Mailbox hands the latest snapshot from the simulator's goroutine to the
// control loop. Older snapshots are overwritten.
type Mailbox struct {
	slot atomic.Pointer[Registers]
}

func (m *Mailbox) Put(regs *Registers) {
	snapshot := *regs
	m.slot.Store(&snapshot)
}

// Take returns the pending snapshot and clears it, or nil.
func (m *Mailbox) Take() *Registers {
	return m.slot.Swap(nil)
}
