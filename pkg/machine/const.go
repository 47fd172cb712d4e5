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
	"errors"
	"time"
)

const (
	OP_HALT uint16 = 0o000000
	OP_WAIT uint16 = 0o000001

	// BR   |0000 0001|offset8         | Branch always
	OP_BR      uint16 = 0o000400
	OP_BR_MASK uint16 = 0o177400
)

const (
	ADDR_MASK uint32 = 1<<22 - 1

	// Boot images and the idle loop start here
	BOOT_ADDRESS uint32 = 0o001000

	// Kernel mode, priority 7
	BOOT_PSW uint16 = 0o000340
)

const (
	TICK              = time.Millisecond
	CYCLES_PER_TICK   = 1000
	REGISTER_SP_INDEX = 6
)

var (
	ErrRunning       = errors.New("machine: running")
	ErrNonExistent   = errors.New("machine: nonexistent memory")
	ErrUnknownReg    = errors.New("machine: unknown register")
	ErrSampledReg    = errors.New("machine: only PC can be sampled")
	ErrRegisterValue = errors.New("machine: register value out of range")
)

// Idle loop: WAIT; BR .-2
var idleLoop = []uint16{OP_WAIT, OP_BR | 0o376}
