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

//go:build linux

package gpio

import (
	"github.com/warthog618/gpiod"
)

const CONSUMER = "frontpanel"

// Character device backend (/dev/gpiochipN).
type gpiodChip struct {
	chip *gpiod.Chip
}

type gpiodLines struct {
	lines   *gpiod.Lines
	scratch []int
}

func openGpiod(path string) (Chip, error) {
	chip, err := gpiod.NewChip(path, gpiod.WithConsumer(CONSUMER))

	if err != nil {
		return nil, err
	}

	return &gpiodChip{chip: chip}, nil
}

func (c *gpiodChip) Request(offsets []int, mode Mode, pull Pull, initial []bool) (Lines, error) {
	options := make([]gpiod.LineReqOption, 0, 3)

	switch mode {
	case MODE_INPUT:
		options = append(options, gpiod.AsInput)
	case MODE_OUTPUT:
		options = append(options, gpiod.AsOutput(toInts(initial)...), gpiod.AsPushPull)
	case MODE_OPEN_DRAIN:
		options = append(options, gpiod.AsOutput(toInts(initial)...), gpiod.AsOpenDrain)
	case MODE_OPEN_SOURCE:
		options = append(options, gpiod.AsOutput(toInts(initial)...), gpiod.AsOpenSource)
	default:
		return nil, ErrMode
	}

	switch pull {
	case PULL_UP:
		options = append(options, gpiod.WithPullUp)
	case PULL_DOWN:
		options = append(options, gpiod.WithPullDown)
	default:
		options = append(options, gpiod.WithBiasDisabled)
	}

	lines, err := c.chip.RequestLines(offsets, options...)

	if err != nil {
		return nil, err
	}

	return &gpiodLines{lines: lines, scratch: make([]int, len(offsets))}, nil
}

func (c *gpiodChip) Close() error {
	return c.chip.Close()
}

func (l *gpiodLines) Values(values []bool) error {
	if err := l.lines.Values(l.scratch); err != nil {
		return err
	}

	for i, v := range l.scratch {
		values[i] = v != 0
	}

	return nil
}

func (l *gpiodLines) SetValues(values []bool) error {
	return l.lines.SetValues(toInts(values))
}

func (l *gpiodLines) Close() error {
	return l.lines.Close()
}

func toInts(values []bool) []int {
	result := make([]int, len(values))

	for i, v := range values {
		if v {
			result[i] = 1
		}
	}

	return result
}
