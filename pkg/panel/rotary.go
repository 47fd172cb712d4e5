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

// Consecutive quarter steps in one direction needed to move one position.
const ROTARY_SENSITIVITY = 4

// RotaryEncoder decodes a two phase quadrature signal into a wrapping
// position in [0, States).
type RotaryEncoder struct {
	States      uint8
	LastState   uint8
	Accumulated int8
	Position    uint8
}

func NewRotaryEncoder(states uint8) *RotaryEncoder {
	return &RotaryEncoder{States: states}
}

// Gray code order of a clockwise rotation: 00 -> 01 -> 11 -> 10 -> 00
var clockwise = [4]uint8{
	0b00: 0b01,
	0b01: 0b11,
	0b11: 0b10,
	0b10: 0b00,
}

var counterClockwise = [4]uint8{
	0b00: 0b10,
	0b10: 0b11,
	0b11: 0b01,
	0b01: 0b00,
}

func (r *RotaryEncoder) AddDelta(a, b bool) {
	var state uint8

	if a {
		state |= 0b10
	}

	if b {
		state |= 0b01
	}

	switch state {
	case clockwise[r.LastState]:
		r.Accumulated++
	case counterClockwise[r.LastState]:
		r.Accumulated--
	}

	r.LastState = state

	if r.Accumulated >= ROTARY_SENSITIVITY {
		r.Accumulated = 0
		r.Position = (r.Position + 1) % r.States
	} else if r.Accumulated <= -ROTARY_SENSITIVITY {
		r.Accumulated = 0
		r.Position = (r.Position + r.States - 1) % r.States
	}
}
