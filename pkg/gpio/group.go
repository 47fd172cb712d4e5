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
)

// Group is a set of lines that always change mode together. Changing the
// mode releases the request and claims the lines again.
type Group struct {
	chip    Chip
	offsets []int
	mode    Mode
	pull    Pull
	lines   Lines
	outputs []bool
}

func NewGroup(chip Chip, offsets []int) *Group {
	group := &Group{
		chip:    chip,
		offsets: append([]int(nil), offsets...),
		mode:    MODE_INPUT,
		outputs: make([]bool, len(offsets)),
	}

	return group
}

func (g *Group) Len() int {
	return len(g.offsets)
}

func (g *Group) Mode() Mode {
	return g.mode
}

func (g *Group) SetMode(mode Mode, pull Pull) error {
	if g.lines != nil {
		if err := g.lines.Close(); err != nil {
			return err
		}

		g.lines = nil
	}

	lines, err := g.chip.Request(g.offsets, mode, pull, g.outputs)

	if err != nil {
		return fmt.Errorf("request %v as %s/%s: %w", g.offsets, mode, pull, err)
	}

	g.lines = lines
	g.mode = mode
	g.pull = pull

	return nil
}

func (g *Group) Set(index int, value bool) error {
	if err := g.writable(); err != nil {
		return err
	}

	if index < 0 || index >= len(g.offsets) {
		return fmt.Errorf("gpio: line index %d out of range", index)
	}

	g.outputs[index] = value

	return g.lines.SetValues(g.outputs)
}

func (g *Group) Get(index int) (bool, error) {
	if g.lines == nil {
		return false, ErrClosed
	}

	if index < 0 || index >= len(g.offsets) {
		return false, fmt.Errorf("gpio: line index %d out of range", index)
	}

	values := make([]bool, len(g.offsets))

	if err := g.lines.Values(values); err != nil {
		return false, err
	}

	return values[index], nil
}

func (g *Group) SetAll(values []bool) error {
	if err := g.writable(); err != nil {
		return err
	}

	if len(values) != len(g.offsets) {
		return fmt.Errorf("gpio: %d values for %d lines", len(values), len(g.offsets))
	}

	copy(g.outputs, values)

	return g.lines.SetValues(g.outputs)
}

func (g *Group) GetAll(values []bool) error {
	if g.lines == nil {
		return ErrClosed
	}

	if len(values) != len(g.offsets) {
		return fmt.Errorf("gpio: %d values for %d lines", len(values), len(g.offsets))
	}

	return g.lines.Values(values)
}

func (g *Group) Close() error {
	if g.lines == nil {
		return nil
	}

	err := g.lines.Close()
	g.lines = nil

	return err
}

func (g *Group) writable() error {
	if g.lines == nil {
		return ErrClosed
	}

	if g.mode == MODE_INPUT {
		return ErrInputMode
	}

	return nil
}
