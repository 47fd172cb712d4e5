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

package sim_test

import (
	"sync"
	"testing"

	"github.com/lassandro/frontpanel/pkg/sim"
)

func TestMailbox(t *testing.T) {
	var box sim.Mailbox

	if regs := box.Take(); regs != nil {
		t.Fatalf("want:nil\nhave:%+v", regs)
	}

	regs := sim.Registers{PC: 01000}
	box.Put(&regs)
	regs.PC = 02000
	box.Put(&regs)
	regs.PC = 03000

	have := box.Take()

	if have == nil || have.PC != 02000 {
		t.Fatalf("want:PC=2000\nhave:%+v", have)
	}

	if again := box.Take(); again != nil {
		t.Errorf("want:nil after take\nhave:%+v", again)
	}
}

func TestMailboxConcurrent(t *testing.T) {
	var box sim.Mailbox
	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()

		for pc := uint32(1); pc <= 1000; pc++ {
			box.Put(&sim.Registers{PC: pc})
		}
	}()

	var last uint32

	for last < 1000 {
		if regs := box.Take(); regs != nil {
			if regs.PC <= last {
				t.Fatalf("want:increasing PC\nhave:%d after %d", regs.PC, last)
			}

			last = regs.PC
		}
	}

	wg.Wait()
}

func TestStateString(t *testing.T) {
	if have := sim.STATE_RUNNING.String(); have != "running" {
		t.Errorf("want:running\nhave:%s", have)
	}

	if have := sim.STATE_HALTED.String(); have != "halted" {
		t.Errorf("want:halted\nhave:%s", have)
	}
}

func TestSampler(t *testing.T) {
	tests := []struct {
		Name   string
		Depth  int
		Input  []uint32
		Output map[int]int
	}{
		{
			Name:   "Steady",
			Depth:  4,
			Input:  []uint32{01, 01, 01, 01},
			Output: map[int]int{0: 100, 1: 0},
		},
		{
			Name:   "Half",
			Depth:  4,
			Input:  []uint32{03, 01, 03, 01},
			Output: map[int]int{0: 100, 1: 50},
		},
		{
			Name:   "Window slides",
			Depth:  2,
			Input:  []uint32{02, 02, 01, 01},
			Output: map[int]int{0: 100, 1: 0},
		},
		{
			Name:   "Partial window",
			Depth:  10,
			Input:  []uint32{1 << 21},
			Output: map[int]int{21: 10},
		},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			sampler := sim.NewSampler(test.Depth)

			for _, value := range test.Input {
				sampler.Add(value)
			}

			var have [sim.PC_BITS]int
			sampler.Counts(&have)

			for bit, want := range test.Output {
				if have[bit] != want {
					t.Errorf("bit %d\nwant:%d\nhave:%d", bit, want, have[bit])
				}
			}
		})
	}
}
