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

package gpio_test

import (
	"errors"
	"testing"

	"github.com/lassandro/frontpanel/pkg/gpio"
)

func TestGroupOutput(t *testing.T) {
	chip := gpio.NewVirtual()
	group := gpio.NewGroup(chip, []int{20, 21, 22})

	if err := group.SetMode(gpio.MODE_OUTPUT, gpio.PULL_NONE); err != nil {
		t.Fatal(err)
	}

	if err := group.SetAll([]bool{true, false, true}); err != nil {
		t.Fatal(err)
	}

	if err := group.Set(1, true); err != nil {
		t.Fatal(err)
	}

	for _, offset := range []int{20, 21, 22} {
		level, ok := chip.Level(offset)

		if !ok || !level {
			t.Errorf("want:line %d driven high\nhave:level=%v output=%v", offset, level, ok)
		}
	}

	have, err := group.Get(2)

	if err != nil {
		t.Fatal(err)
	}

	if !have {
		t.Error("want:true\nhave:false")
	}
}

func TestGroupInputRejectsWrites(t *testing.T) {
	chip := gpio.NewVirtual()
	group := gpio.NewGroup(chip, []int{4, 5})

	if err := group.SetMode(gpio.MODE_INPUT, gpio.PULL_UP); err != nil {
		t.Fatal(err)
	}

	if err := group.Set(0, false); !errors.Is(err, gpio.ErrInputMode) {
		t.Errorf("want:%v\nhave:%v", gpio.ErrInputMode, err)
	}

	values := make([]bool, 2)

	if err := group.GetAll(values); err != nil {
		t.Fatal(err)
	}

	if !values[0] || !values[1] {
		t.Errorf("want:pulled up lines read high\nhave:%v", values)
	}
}

func TestGroupModeChangeKeepsOutputs(t *testing.T) {
	chip := gpio.NewVirtual()
	group := gpio.NewGroup(chip, []int{7})

	if err := group.SetMode(gpio.MODE_OUTPUT, gpio.PULL_NONE); err != nil {
		t.Fatal(err)
	}

	if err := group.Set(0, true); err != nil {
		t.Fatal(err)
	}

	if err := group.SetMode(gpio.MODE_INPUT, gpio.PULL_DOWN); err != nil {
		t.Fatal(err)
	}

	if _, ok := chip.Level(7); ok {
		t.Error("want:line 7 released as output\nhave:still driven")
	}

	if err := group.SetMode(gpio.MODE_OUTPUT, gpio.PULL_NONE); err != nil {
		t.Fatal(err)
	}

	if level, ok := chip.Level(7); !ok || !level {
		t.Errorf("want:line 7 high after re-request\nhave:level=%v output=%v", level, ok)
	}
}

func TestVirtualBusyLines(t *testing.T) {
	chip := gpio.NewVirtual()

	if _, err := chip.Request([]int{1, 2}, gpio.MODE_INPUT, gpio.PULL_NONE, nil); err != nil {
		t.Fatal(err)
	}

	if _, err := chip.Request([]int{2}, gpio.MODE_INPUT, gpio.PULL_NONE, nil); err == nil {
		t.Error("want:busy error\nhave:nil")
	}
}

func TestVirtualInputAndWriteHooks(t *testing.T) {
	chip := gpio.NewVirtual()
	writes := 0

	chip.OnWrite = func(offset int, value bool) {
		writes++
	}

	chip.Input = func(offset int, driven func(int) (bool, bool)) bool {
		level, ok := driven(1)
		return ok && level
	}

	out := gpio.NewGroup(chip, []int{1})
	in := gpio.NewGroup(chip, []int{2})

	if err := out.SetMode(gpio.MODE_OUTPUT, gpio.PULL_NONE); err != nil {
		t.Fatal(err)
	}

	if err := in.SetMode(gpio.MODE_INPUT, gpio.PULL_NONE); err != nil {
		t.Fatal(err)
	}

	if err := out.Set(0, true); err != nil {
		t.Fatal(err)
	}

	have, err := in.Get(0)

	if err != nil {
		t.Fatal(err)
	}

	if !have {
		t.Error("want:input follows driven line\nhave:false")
	}

	// Rewriting the same level is not a change.
	if err := out.Set(0, true); err != nil {
		t.Fatal(err)
	}

	if writes != 1 {
		t.Errorf("want:1 write\nhave:%d", writes)
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := gpio.Open("bogus", ""); err == nil {
		t.Error("want:error\nhave:nil")
	}
}
