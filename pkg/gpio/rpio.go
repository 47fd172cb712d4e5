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

package gpio

import (
	"github.com/stianeikeland/go-rpio/v4"
)

// Raspberry Pi register backend through /dev/gpiomem.
type rpioChip struct{}

type rpioLines struct {
	pins   []rpio.Pin
	closed bool
}

func openRpio() (Chip, error) {
	if err := rpio.Open(); err != nil {
		return nil, err
	}

	return rpioChip{}, nil
}

func (rpioChip) Request(offsets []int, mode Mode, pull Pull, initial []bool) (Lines, error) {
	pins := make([]rpio.Pin, len(offsets))

	for i, offset := range offsets {
		pin := rpio.Pin(offset)

		switch mode {
		case MODE_INPUT:
			pin.Input()

			switch pull {
			case PULL_UP:
				pin.PullUp()
			case PULL_DOWN:
				pin.PullDown()
			default:
				pin.PullOff()
			}
		case MODE_OUTPUT:
			pin.Output()
			pin.Write(rpioState(initial[i]))
		default:
			return nil, ErrMode
		}

		pins[i] = pin
	}

	return &rpioLines{pins: pins}, nil
}

func (rpioChip) Close() error {
	return rpio.Close()
}

func (l *rpioLines) Values(values []bool) error {
	if l.closed {
		return ErrClosed
	}

	for i, pin := range l.pins {
		values[i] = pin.Read() == rpio.High
	}

	return nil
}

func (l *rpioLines) SetValues(values []bool) error {
	if l.closed {
		return ErrClosed
	}

	for i, pin := range l.pins {
		pin.Write(rpioState(values[i]))
	}

	return nil
}

func (l *rpioLines) Close() error {
	l.closed = true
	return nil
}

func rpioState(value bool) rpio.State {
	if value {
		return rpio.High
	}

	return rpio.Low
}
