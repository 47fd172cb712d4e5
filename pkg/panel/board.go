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

package panel

import (
	"sync"

	"github.com/lassandro/frontpanel/pkg/gpio"
)

// SwitchBoard wires a virtual chip up like the physical panel: switches
// connect switch rows to columns, and LED rows light through the columns.
// Queued frames are each seen by exactly one scan, after which the board
// falls back to its static switch positions.
type SwitchBoard struct {
	chip *gpio.Virtual
	pins Pins

	mu       sync.Mutex
	switches SwitchMatrix
	frames   []SwitchMatrix
	lights   LightMatrix
	scanning bool
	scans    int
}

func NewSwitchBoard(chip *gpio.Virtual, pins Pins) *SwitchBoard {
	board := &SwitchBoard{chip: chip, pins: pins}

	chip.Input = board.input
	chip.OnWrite = board.write

	return board
}

func (b *SwitchBoard) input(offset int, driven func(int) (bool, bool)) bool {
	col := indexOf(b.pins.Columns, offset)

	if col < 0 {
		return true
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	current := b.current()

	for row, pin := range b.pins.SwitchRows {
		level, ok := driven(pin)

		if ok && !level && current[row][col] {
			return false
		}
	}

	return true
}

func (b *SwitchBoard) write(offset int, value bool) {
	last := b.pins.SwitchRows[len(b.pins.SwitchRows)-1]

	if offset == last {
		b.mu.Lock()

		if !value {
			b.scanning = true
		} else if b.scanning {
			b.scanning = false
			b.scans++

			if len(b.frames) > 0 {
				b.frames = b.frames[1:]
			}
		}

		b.mu.Unlock()
		return
	}

	row := indexOf(b.pins.LedRows, offset)

	if row < 0 || !value {
		return
	}

	var lit [COLUMNS]bool

	for col, pin := range b.pins.Columns {
		level, ok := b.chip.Level(pin)
		lit[col] = ok && !level
	}

	b.mu.Lock()
	b.lights[row] = lit
	b.mu.Unlock()
}

func (b *SwitchBoard) current() *SwitchMatrix {
	if len(b.frames) > 0 {
		return &b.frames[0]
	}

	return &b.switches
}

// Set closes or opens one switch.
func (b *SwitchBoard) Set(row, col int, closed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.switches[row][col] = closed
}

func (b *SwitchBoard) SetMatrix(m SwitchMatrix) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.switches = m
}

// SetSwitchRegister sets the 22 switch register toggles to value.
func (b *SwitchBoard) SetSwitchRegister(value uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for bit := 0; bit < ADDRESS_BITS; bit++ {
		b.switches[bit/COLUMNS][bit%COLUMNS] = (value>>bit)&0x1 == 1
	}
}

func (b *SwitchBoard) Queue(frames ...SwitchMatrix) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.frames = append(b.frames, frames...)
}

// Press holds a switch closed for the given number of scans, then open for
// as many.
func (b *SwitchBoard) Press(row, col, scans int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	released := b.base()
	released[row][col] = false

	pressed := released
	pressed[row][col] = true

	for i := 0; i < scans; i++ {
		b.frames = append(b.frames, pressed)
	}

	for i := 0; i < scans; i++ {
		b.frames = append(b.frames, released)
	}
}

// Turn rotates encoder 0 (R1) or 1 (R2) by detents, clockwise when
// positive. One detent is a full gray code cycle, one scan per quarter step.
func (b *SwitchBoard) Turn(encoder int, detents int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	colA := COL_R1_A + 2*encoder
	colB := colA + 1

	sequence := [4][2]bool{{false, true}, {true, true}, {true, false}, {false, false}}

	if detents < 0 {
		sequence = [4][2]bool{{true, false}, {true, true}, {false, true}, {false, false}}
		detents = -detents
	}

	frame := b.base()

	for i := 0; i < detents; i++ {
		for _, step := range sequence {
			frame[2][colA] = step[0]
			frame[2][colB] = step[1]
			b.frames = append(b.frames, frame)
		}
	}
}

// base is the matrix after every queued frame has been scanned.
func (b *SwitchBoard) base() SwitchMatrix {
	if len(b.frames) > 0 {
		return b.frames[len(b.frames)-1]
	}

	return b.switches
}

// Matrix is the switch matrix the next scan will see.
func (b *SwitchBoard) Matrix() SwitchMatrix {
	b.mu.Lock()
	defer b.mu.Unlock()

	return *b.current()
}

// Lights is the last pattern driven on each LED row.
func (b *SwitchBoard) Lights() LightMatrix {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.lights
}

func (b *SwitchBoard) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.frames)
}

// Scans counts completed scans.
func (b *SwitchBoard) Scans() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.scans
}

func indexOf(pins []int, offset int) int {
	for i, pin := range pins {
		if pin == offset {
			return i
		}
	}

	return -1
}
