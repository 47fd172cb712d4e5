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

// Package gpio requests groups of lines from a GPIO controller and drives or
// samples them. Several controller backends are available; all of them are
// reached through Chip.
package gpio

import (
	"errors"
	"fmt"
)

type Mode uint
type Pull uint

const (
	MODE_INPUT Mode = iota
	MODE_OUTPUT
	MODE_OPEN_DRAIN
	MODE_OPEN_SOURCE
)

const (
	PULL_NONE Pull = iota
	PULL_UP
	PULL_DOWN
)

const (
	BACKEND_GPIOD   = "gpiod"
	BACKEND_PERIPH  = "periph"
	BACKEND_RPIO    = "rpio"
	BACKEND_VIRTUAL = "virtual"
)

var (
	ErrInputMode = errors.New("gpio: write to input lines")
	ErrClosed    = errors.New("gpio: lines released")
	ErrMode      = errors.New("gpio: mode not supported by backend")
)

func (m Mode) String() string {
	switch m {
	case MODE_INPUT:
		return "input"
	case MODE_OUTPUT:
		return "output"
	case MODE_OPEN_DRAIN:
		return "open-drain"
	case MODE_OPEN_SOURCE:
		return "open-source"
	default:
		return fmt.Sprintf("mode(%d)", uint(m))
	}
}

func (p Pull) String() string {
	switch p {
	case PULL_NONE:
		return "none"
	case PULL_UP:
		return "up"
	case PULL_DOWN:
		return "down"
	default:
		return fmt.Sprintf("pull(%d)", uint(p))
	}
}

// Chip is an opened GPIO controller.
type Chip interface {
	// Request claims offsets with the given configuration. Output lines
	// start at initial, which has one entry per offset.
	Request(offsets []int, mode Mode, pull Pull, initial []bool) (Lines, error)
	Close() error
}

// Lines is one request on a Chip. Values are logical levels, true is high.
type Lines interface {
	Values(values []bool) error
	SetValues(values []bool) error
	Close() error
}

// Open opens the chip at path with the named backend.
func Open(backend string, path string) (Chip, error) {
	switch backend {
	case "", BACKEND_GPIOD:
		return openGpiod(path)
	case BACKEND_PERIPH:
		return openPeriph()
	case BACKEND_RPIO:
		return openRpio()
	case BACKEND_VIRTUAL:
		return NewVirtual(), nil
	default:
		return nil, fmt.Errorf("gpio: unknown backend %q", backend)
	}
}
