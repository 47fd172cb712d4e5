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

package console_test

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/lassandro/frontpanel/pkg/panel"
	"github.com/lassandro/frontpanel/pkg/sim"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

var errFake = errors.New("fake failure")

// fakeSim records the console's simulator calls.
type fakeSim struct {
	mu     sync.Mutex
	calls  []string
	state  sim.State
	memory map[uint32]uint16

	FailExamine     bool
	FailDeposit     bool
	FailSetRegister bool
	FailWatch       bool

	OnBoot func(device string)
	OnHalt func()
}

func newFakeSim() *fakeSim {
	return &fakeSim{memory: make(map[uint32]uint16)}
}

func (f *fakeSim) record(format string, args ...interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeSim) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.calls...)
}

func (f *fakeSim) setState(state sim.State) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.state = state
}

func (f *fakeSim) Boot(device string) error {
	f.record("boot %s", device)
	f.setState(sim.STATE_RUNNING)

	if f.OnBoot != nil {
		f.OnBoot(device)
	}

	return nil
}

func (f *fakeSim) Halt() error {
	f.record("halt")
	f.setState(sim.STATE_HALTED)

	if f.OnHalt != nil {
		f.OnHalt()
	}

	return nil
}

func (f *fakeSim) Run() error {
	f.record("run")
	f.setState(sim.STATE_RUNNING)

	return nil
}

func (f *fakeSim) Step() error {
	f.record("step")
	return nil
}

func (f *fakeSim) State() sim.State {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.state
}

func (f *fakeSim) Examine(addr uint32) (uint16, error) {
	f.record("examine %06o", addr)

	if f.FailExamine {
		return 0, errFake
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	return f.memory[addr], nil
}

func (f *fakeSim) Deposit(addr uint32, value uint16) error {
	f.record("deposit %06o %06o", addr, value)

	if f.FailDeposit {
		return errFake
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.memory[addr] = value

	return nil
}

func (f *fakeSim) SetRegister(name string, decimal string) error {
	f.record("set %s %s", name, decimal)

	if f.FailSetRegister {
		return errFake
	}

	return nil
}

func (f *fakeSim) Watch(names []string, sampled string, depth int) error {
	f.record("watch %d %s %d", len(names), sampled, depth)

	if f.FailWatch {
		return errFake
	}

	return nil
}

func (f *fakeSim) Subscribe(interval time.Duration, fn func(*sim.Registers)) error {
	f.record("subscribe %s", interval)
	return nil
}

func (f *fakeSim) Close() error {
	f.record("close")
	return nil
}

func resting() panel.Controls {
	return panel.Controls{
		Test:           true,
		LoadAddr:       true,
		Exam:           true,
		Dep:            true,
		Cont:           true,
		EnableHalt:     true,
		SInstSBusCycle: true,
		Start:          true,
	}
}
