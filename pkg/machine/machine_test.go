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

package machine_test

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lassandro/frontpanel/pkg/machine"
	"github.com/lassandro/frontpanel/pkg/sim"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type testCase struct {
	Name    string
	Steps   uint
	Program string
	Memory  map[uint32]uint16
	Output  uint32
}

func TestStep(t *testing.T) {
	tests := []testCase{
		{
			Name:    "No-op",
			Program: "512",
			Memory:  map[uint32]uint16{0o001000: 0o012737},
			Output:  0o001002,
		},
		{
			Name:    "HALT",
			Program: "512",
			Output:  0o001002,
		},
		{
			Name:    "BR backwards",
			Program: "514",
			Memory:  map[uint32]uint16{0o001002: 0o000776},
			Output:  0o001000,
		},
		{
			Name:    "BR forwards",
			Program: "512",
			Memory:  map[uint32]uint16{0o001000: 0o000403},
			Output:  0o001010,
		},
		{
			Name:    "BR self",
			Program: "512",
			Steps:   3,
			Memory:  map[uint32]uint16{0o001000: 0o000777},
			Output:  0o001000,
		},
		{
			Name:    "Wrap",
			Program: "4194302",
			Memory:  map[uint32]uint16{0o17777776: 0o000240},
			Output:  0,
		},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			mc := machine.New(discard)

			if err := mc.SetRegister(sim.REG_PC, test.Program); err != nil {
				t.Fatal(err)
			}

			for addr, value := range test.Memory {
				if err := mc.Deposit(addr, value); err != nil {
					t.Fatal(err)
				}
			}

			if test.Steps == 0 {
				test.Steps = 1
			}

			for i := uint(0); i < test.Steps; i++ {
				if err := mc.Step(); err != nil {
					t.Fatal(err)
				}
			}

			if have := mc.Snapshot().PC; have != test.Output {
				t.Errorf("want:%06o\nhave:%06o", test.Output, have)
			}
		})
	}
}

func TestExamineDeposit(t *testing.T) {
	mc := machine.New(discard)

	if err := mc.Deposit(0o100, 0o177777); err != nil {
		t.Fatal(err)
	}

	have, err := mc.Examine(0o100)

	if err != nil {
		t.Fatal(err)
	}

	if have != 0o177777 {
		t.Errorf("want:177777\nhave:%06o", have)
	}

	if have, err = mc.Examine(0o101); err != nil || have != 0o177777 {
		t.Errorf("want:odd address reads its word\nhave:%06o %v", have, err)
	}

	if err := mc.Deposit(1<<22, 1); !errors.Is(err, machine.ErrNonExistent) {
		t.Errorf("want:%v\nhave:%v", machine.ErrNonExistent, err)
	}
}

func TestSetRegister(t *testing.T) {
	tests := []struct {
		Name  string
		Reg   string
		Value string
		Fail  bool
	}{
		{Name: "PC", Reg: "PC", Value: "4194303"},
		{Name: "PC too wide", Reg: "PC", Value: "4194304", Fail: true},
		{Name: "R5", Reg: "R5", Value: "65535"},
		{Name: "R0 too wide", Reg: "R0", Value: "65536", Fail: true},
		{Name: "SP", Reg: "SP", Value: "512"},
		{Name: "PSW", Reg: "PSW", Value: "49152"},
		{Name: "Unknown", Reg: "R9", Value: "1", Fail: true},
		{Name: "Not decimal", Reg: "R1", Value: "0x10", Fail: true},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			mc := machine.New(discard)
			err := mc.SetRegister(test.Reg, test.Value)

			if (err != nil) != test.Fail {
				t.Errorf("want:fail=%v\nhave:%v", test.Fail, err)
			}
		})
	}

	mc := machine.New(discard)
	mc.SetRegister("PSW", "49152")
	mc.SetRegister("SP", "512")
	mc.SetRegister("R2", "7")

	regs := mc.Snapshot()

	if regs.PSW != 0xC000 || regs.R[sim.R_SP] != 512 || regs.R[2] != 7 {
		t.Errorf("want:PSW=140000 SP=1000 R2=7\nhave:%+v", regs)
	}
}

func waitState(t *testing.T, mc *machine.Machine, want sim.State) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)

	for mc.State() != want {
		if time.Now().After(deadline) {
			t.Fatalf("want:%s\nhave:%s", want, mc.State())
		}

		time.Sleep(time.Millisecond)
	}
}

func TestBootIdleLoop(t *testing.T) {
	mc := machine.New(discard)
	mc.Dir = t.TempDir()
	defer mc.Close()

	if err := mc.Boot("RL0"); err != nil {
		t.Fatal(err)
	}

	if mc.State() != sim.STATE_RUNNING {
		t.Fatal("want:running\nhave:halted")
	}

	if err := mc.Step(); !errors.Is(err, machine.ErrRunning) {
		t.Errorf("want:%v\nhave:%v", machine.ErrRunning, err)
	}

	deadline := time.Now().Add(2 * time.Second)

	for mc.Snapshot().PCBits[9] != 100 {
		if time.Now().After(deadline) {
			t.Fatal("want:full sample window\nhave:timeout")
		}

		time.Sleep(machine.TICK)
	}

	if err := mc.Halt(); err != nil {
		t.Fatal(err)
	}

	waitState(t, mc, sim.STATE_HALTED)

	regs := mc.Snapshot()

	if regs.PC != 0o001000 && regs.PC != 0o001002 {
		t.Errorf("want:PC in idle loop\nhave:%06o", regs.PC)
	}

	if regs.PCBits[9] != 100 {
		t.Errorf("want:bit 9 active\nhave:%d", regs.PCBits[9])
	}
}

func TestBootImageHalts(t *testing.T) {
	dir := t.TempDir()

	// MOV R0,R0; HALT
	image := []byte{0x10, 0x00, 0x00, 0x00}

	if err := os.WriteFile(filepath.Join(dir, "rl0.bin"), image, 0o644); err != nil {
		t.Fatal(err)
	}

	mc := machine.New(discard)
	mc.Dir = dir
	defer mc.Close()

	if err := mc.Boot("RL0"); err != nil {
		t.Fatal(err)
	}

	waitState(t, mc, sim.STATE_HALTED)

	if have := mc.Snapshot().PC; have != 0o001004 {
		t.Errorf("want:001004\nhave:%06o", have)
	}

	word, err := mc.Examine(0o001000)

	if err != nil {
		t.Fatal(err)
	}

	if word != 0o010000 {
		t.Errorf("want:010000\nhave:%06o", word)
	}
}

func TestBootOddImage(t *testing.T) {
	dir := t.TempDir()

	if err := os.WriteFile(filepath.Join(dir, "rl0.bin"), []byte{1, 2, 3}, 0o644); err != nil {
		t.Fatal(err)
	}

	mc := machine.New(discard)
	mc.Dir = dir
	defer mc.Close()

	if err := mc.Boot("RL0"); err == nil {
		t.Error("want:error\nhave:nil")
	}
}

func TestSubscribe(t *testing.T) {
	mc := machine.New(discard)
	mc.Dir = t.TempDir()
	defer mc.Close()

	if err := mc.Watch(sim.WatchedRegisters, sim.REG_PC, 10); err != nil {
		t.Fatal(err)
	}

	var box sim.Mailbox

	if err := mc.Subscribe(time.Millisecond, box.Put); err != nil {
		t.Fatal(err)
	}

	if err := mc.Boot("RL0"); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)

	for {
		regs := box.Take()

		if regs != nil && regs.PCBits[9] == 100 {
			if regs.PSW != machine.BOOT_PSW {
				t.Errorf("want:%06o\nhave:%06o", machine.BOOT_PSW, regs.PSW)
			}

			break
		}

		if time.Now().After(deadline) {
			t.Fatal("want:snapshot with sampled PC\nhave:none")
		}

		time.Sleep(time.Millisecond)
	}
}

func TestWatchUnknown(t *testing.T) {
	mc := machine.New(discard)

	if err := mc.Watch([]string{"PC", "R7X"}, "PC", 100); !errors.Is(err, machine.ErrUnknownReg) {
		t.Errorf("want:%v\nhave:%v", machine.ErrUnknownReg, err)
	}

	if err := mc.Watch([]string{"PC"}, "R0", 100); !errors.Is(err, machine.ErrSampledReg) {
		t.Errorf("want:%v\nhave:%v", machine.ErrSampledReg, err)
	}
}

type breakAt struct {
	Addr  uint32
	Reads []uint32
}

func (b *breakAt) Step(state *machine.MachineState) bool {
	return state.Program == b.Addr
}

func (b *breakAt) Read(addr uint32, state *machine.MachineState) {
	b.Reads = append(b.Reads, addr)
}

func (b *breakAt) Write(addr uint32, state *machine.MachineState) {}

func TestDebuggerBreak(t *testing.T) {
	mc := machine.New(discard)
	mc.Dir = t.TempDir()
	defer mc.Close()

	dbg := &breakAt{Addr: 0o001002}
	mc.Debugger = dbg

	if err := mc.Boot("RL0"); err != nil {
		t.Fatal(err)
	}

	waitState(t, mc, sim.STATE_HALTED)

	if have := mc.Snapshot().PC; have != 0o001002 {
		t.Errorf("want:001002\nhave:%06o", have)
	}

	if _, err := mc.Examine(0o001002); err != nil {
		t.Fatal(err)
	}

	if len(dbg.Reads) != 1 || dbg.Reads[0] != 0o001002 {
		t.Errorf("want:[1002]\nhave:%o", dbg.Reads)
	}
}

func TestDebuggerBreakResume(t *testing.T) {
	dir := t.TempDir()

	// MOV R0,R0; MOV R0,R0; HALT
	image := []byte{0x10, 0x00, 0x10, 0x00, 0x00, 0x00}

	if err := os.WriteFile(filepath.Join(dir, "rl0.bin"), image, 0o644); err != nil {
		t.Fatal(err)
	}

	mc := machine.New(discard)
	mc.Dir = dir
	mc.Debugger = &breakAt{Addr: 0o001002}
	defer mc.Close()

	if err := mc.Boot("RL0"); err != nil {
		t.Fatal(err)
	}

	waitState(t, mc, sim.STATE_HALTED)

	if have := mc.Snapshot().PC; have != 0o001002 {
		t.Fatalf("want:001002\nhave:%06o", have)
	}

	if err := mc.Run(); err != nil {
		t.Fatal(err)
	}

	waitState(t, mc, sim.STATE_HALTED)

	if have := mc.Snapshot().PC; have != 0o001006 {
		t.Errorf("want:001006 after HALT\nhave:%06o", have)
	}
}
