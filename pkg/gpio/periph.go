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
	"fmt"

	pgpio "periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// periph.io backend. Lines are addressed by BCM number through the pin
// registry ("GPIO20").
type periphChip struct{}

type periphLines struct {
	pins   []pgpio.PinIO
	closed bool
}

func openPeriph() (Chip, error) {
	if _, err := host.Init(); err != nil {
		return nil, err
	}

	return periphChip{}, nil
}

func (periphChip) Request(offsets []int, mode Mode, pull Pull, initial []bool) (Lines, error) {
	pins := make([]pgpio.PinIO, len(offsets))

	for i, offset := range offsets {
		pin := gpioreg.ByName(fmt.Sprintf("GPIO%d", offset))

		if pin == nil {
			return nil, fmt.Errorf("gpio: no pin GPIO%d", offset)
		}

		var err error

		switch mode {
		case MODE_INPUT:
			err = pin.In(periphPull(pull), pgpio.NoEdge)
		case MODE_OUTPUT:
			err = pin.Out(pgpio.Level(initial[i]))
		default:
			return nil, ErrMode
		}

		if err != nil {
			return nil, err
		}

		pins[i] = pin
	}

	return &periphLines{pins: pins}, nil
}

func (periphChip) Close() error {
	return nil
}

func (l *periphLines) Values(values []bool) error {
	if l.closed {
		return ErrClosed
	}

	for i, pin := range l.pins {
		values[i] = pin.Read() == pgpio.High
	}

	return nil
}

func (l *periphLines) SetValues(values []bool) error {
	if l.closed {
		return ErrClosed
	}

	for i, pin := range l.pins {
		if err := pin.Out(pgpio.Level(values[i])); err != nil {
			return err
		}
	}

	return nil
}

func (l *periphLines) Close() error {
	l.closed = true
	return nil
}

func periphPull(pull Pull) pgpio.Pull {
	switch pull {
	case PULL_UP:
		return pgpio.PullUp
	case PULL_DOWN:
		return pgpio.PullDown
	default:
		return pgpio.Float
	}
}
