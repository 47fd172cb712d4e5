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
	"sync"
)

// InputFunc computes the level an input line reads. driven reports the
// level of any line currently requested as an output.
type InputFunc func(offset int, driven func(offset int) (level bool, ok bool)) bool

// Virtual is an in-memory chip. Unclaimed input lines read their pull level
// unless Input is set.
type Virtual struct {
	Input   InputFunc
	OnWrite func(offset int, value bool)

	mu     sync.Mutex
	levels map[int]bool
	modes  map[int]Mode
	pulls  map[int]Pull
	closed bool
}

type virtualLines struct {
	chip    *Virtual
	offsets []int
	closed  bool
}

func NewVirtual() *Virtual {
	return &Virtual{
		levels: make(map[int]bool),
		modes:  make(map[int]Mode),
		pulls:  make(map[int]Pull),
	}
}

// Level reports the last level driven on offset and whether it is an output.
func (v *Virtual) Level(offset int) (bool, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.driven(offset)
}

func (v *Virtual) driven(offset int) (bool, bool) {
	mode, claimed := v.modes[offset]

	if !claimed || mode == MODE_INPUT {
		return false, false
	}

	return v.levels[offset], true
}

func (v *Virtual) Request(offsets []int, mode Mode, pull Pull, initial []bool) (Lines, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return nil, ErrClosed
	}

	for _, offset := range offsets {
		if _, busy := v.modes[offset]; busy {
			return nil, fmt.Errorf("gpio: line %d busy", offset)
		}
	}

	for i, offset := range offsets {
		v.modes[offset] = mode
		v.pulls[offset] = pull

		if mode != MODE_INPUT && i < len(initial) {
			v.levels[offset] = initial[i]
		}
	}

	return &virtualLines{chip: v, offsets: append([]int(nil), offsets...)}, nil
}

func (v *Virtual) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.closed = true

	return nil
}

func (l *virtualLines) Values(values []bool) error {
	if l.closed {
		return ErrClosed
	}

	v := l.chip
	v.mu.Lock()
	defer v.mu.Unlock()

	for i, offset := range l.offsets {
		if level, ok := v.driven(offset); ok {
			values[i] = level
		} else if v.Input != nil {
			values[i] = v.Input(offset, v.driven)
		} else {
			values[i] = v.pulls[offset] == PULL_UP
		}
	}

	return nil
}

func (l *virtualLines) SetValues(values []bool) error {
	if l.closed {
		return ErrClosed
	}

	v := l.chip
	changed := make([]int, 0, len(l.offsets))

	v.mu.Lock()

	for i, offset := range l.offsets {
		if v.modes[offset] == MODE_INPUT {
			v.mu.Unlock()
			return ErrInputMode
		}

		if v.levels[offset] != values[i] {
			changed = append(changed, i)
		}

		v.levels[offset] = values[i]
	}

	hook := v.OnWrite
	v.mu.Unlock()

	if hook != nil {
		for _, i := range changed {
			hook(l.offsets[i], values[i])
		}
	}

	return nil
}

func (l *virtualLines) Close() error {
	if l.closed {
		return nil
	}

	v := l.chip
	v.mu.Lock()
	defer v.mu.Unlock()

	for _, offset := range l.offsets {
		delete(v.modes, offset)
		delete(v.pulls, offset)
	}

	l.closed = true

	return nil
}
