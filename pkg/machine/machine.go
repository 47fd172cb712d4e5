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

package machine

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lassandro/frontpanel/pkg/encoding"
	"github.com/lassandro/frontpanel/pkg/sim"
)

func New(logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.Default()
	}

	mc := &Machine{
		Logger:        logger,
		CyclesPerTick: CYCLES_PER_TICK,
		sampler:       sim.NewSampler(sim.DEFAULT_DEPTH),
	}

	mc.CPU.Reset()

	return mc
}

// Starter launches bench machines. The binary is ignored; boot images are
// looked up next to the configuration file.
func Starter(logger *slog.Logger, debugger MachineDebugger) sim.Starter {
	return func(binary string, configFile string) (sim.Simulator, error) {
		mc := New(logger)
		mc.Dir = filepath.Dir(configFile)
		mc.Debugger = debugger

		logger.Debug("bench machine started", "binary", binary, "config", configFile)

		return mc, nil
	}
}

func (mc *MachineState) Reset() {
	for i := range mc.Registers {
		mc.Registers[i] = 0
	}

	mc.Memory = make(map[uint32]uint16)
	mc.Program = BOOT_ADDRESS
	mc.Procstat = BOOT_PSW
	mc.Instruction = 0
}

// LoadBin reads big endian words into memory starting at addr.
func (mc *MachineState) LoadBin(reader io.Reader, addr uint32) error {
	scratch := make([]byte, 2)

	for {
		_, err := io.ReadFull(reader, scratch)

		if err == io.EOF {
			return nil
		} else if err == io.ErrUnexpectedEOF {
			return errors.New("Odd length binary")
		} else if err != nil {
			return err
		}

		if addr > ADDR_MASK {
			return ErrNonExistent
		}

		mc.Memory[addr] = binary.BigEndian.Uint16(scratch)
		addr += 2
	}
}

func (mc *Machine) read(addr uint32) uint16 {
	if mc.Debugger != nil {
		mc.Debugger.Read(addr, &mc.CPU)
	}

	return mc.CPU.Memory[addr]
}

func (mc *Machine) write(addr uint32, value uint16) {
	if value == 0 {
		delete(mc.CPU.Memory, addr)
	} else {
		mc.CPU.Memory[addr] = value
	}

	if mc.Debugger != nil {
		mc.Debugger.Write(addr, &mc.CPU)
	}
}

// step executes one instruction and reports whether it was HALT.
func (mc *Machine) step() bool {
	instruction := mc.CPU.Memory[mc.CPU.Program]
	mc.CPU.Instruction = instruction
	mc.CPU.Program = (mc.CPU.Program + 2) & ADDR_MASK

	switch {
	case instruction == OP_HALT:
		return true

	case instruction == OP_WAIT:
		// No interrupt sources, WAIT falls through

	// BR   |0000 0001|offset8         | Branch always
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case instruction&OP_BR_MASK == OP_BR:
		offset := int16(encoding.SignExtend(instruction&0xFF, 8))
		mc.CPU.Program = uint32(int32(mc.CPU.Program)+2*int32(offset)) & ADDR_MASK
	}

	return false
}

func (mc *Machine) Boot(device string) error {
	if err := mc.Halt(); err != nil {
		return err
	}

	mc.mu.Lock()

	mc.CPU.Reset()
	mc.sampler.Reset()
	mc.resume = false

	image := filepath.Join(mc.Dir, strings.ToLower(device)+".bin")
	file, err := os.Open(image)

	if errors.Is(err, os.ErrNotExist) {
		for i, word := range idleLoop {
			mc.CPU.Memory[BOOT_ADDRESS+uint32(2*i)] = word
		}

		mc.Logger.Info("no boot image, running idle loop", "device", device, "image", image)
	} else if err != nil {
		mc.mu.Unlock()
		return err
	} else {
		err = mc.CPU.LoadBin(file, BOOT_ADDRESS)
		file.Close()

		if err != nil {
			mc.mu.Unlock()
			return fmt.Errorf("%s: %w", image, err)
		}

		mc.Logger.Info("booted image", "device", device, "image", image)
	}

	mc.mu.Unlock()

	return mc.Run()
}

func (mc *Machine) Run() error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if mc.running {
		return nil
	}

	mc.running = true
	mc.stop = make(chan struct{})
	mc.done = make(chan struct{})

	go mc.loop(mc.stop, mc.done)

	return nil
}

func (mc *Machine) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(TICK)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		mc.mu.Lock()

		for i := 0; i < mc.CyclesPerTick && mc.running; i++ {
			if mc.Debugger != nil && !mc.resume && mc.Debugger.Step(&mc.CPU) {
				mc.resume = true
				mc.halted("break")
				break
			}

			mc.resume = false

			if mc.step() {
				mc.halted("HALT instruction")
				break
			}

			mc.sampler.Add(mc.CPU.Program)
		}

		running := mc.running
		mc.mu.Unlock()

		if !running {
			return
		}
	}
}

// halted stops the machine from inside the run loop.
func (mc *Machine) halted(reason string) {
	mc.running = false
	mc.stop = nil

	mc.Logger.Info(
		"machine halted",
		"reason", reason,
		"pc", encoding.Octal(mc.CPU.Program),
	)
}

func (mc *Machine) Halt() error {
	mc.mu.Lock()
	stop, done := mc.stop, mc.done
	mc.running = false
	mc.stop = nil
	mc.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}

	return nil
}

func (mc *Machine) Step() error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if mc.running {
		return ErrRunning
	}

	mc.resume = false
	mc.step()

	return nil
}

func (mc *Machine) State() sim.State {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if mc.running {
		return sim.STATE_RUNNING
	}

	return sim.STATE_HALTED
}

// wordAddress maps a console address onto the word containing it.
func wordAddress(addr uint32) (uint32, error) {
	if addr > ADDR_MASK {
		return 0, ErrNonExistent
	}

	return addr &^ 0x1, nil
}

func (mc *Machine) Examine(addr uint32) (uint16, error) {
	addr, err := wordAddress(addr)

	if err != nil {
		return 0, err
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()

	return mc.read(addr), nil
}

func (mc *Machine) Deposit(addr uint32, value uint16) error {
	addr, err := wordAddress(addr)

	if err != nil {
		return err
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.write(addr, value)

	return nil
}

func (mc *Machine) SetRegister(name string, decimal string) error {
	value, err := encoding.DecodeInt(decimal)

	if err != nil {
		return err
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()

	name = strings.ToUpper(name)

	if name == sim.REG_PC {
		if value > ADDR_MASK {
			return ErrRegisterValue
		}

		mc.CPU.Program = value
		return nil
	}

	if value > 0xFFFF {
		return ErrRegisterValue
	}

	switch name {
	case sim.REG_PSW:
		mc.CPU.Procstat = uint16(value)
	case sim.REG_SP:
		mc.CPU.Registers[REGISTER_SP_INDEX] = uint16(value)
	default:
		var index int

		if _, err := fmt.Sscanf(name, "R%d", &index); err != nil || index < 0 || index > 6 {
			return fmt.Errorf("%w: %s", ErrUnknownReg, name)
		}

		mc.CPU.Registers[index] = uint16(value)
	}

	return nil
}

func (mc *Machine) Watch(names []string, sampled string, depth int) error {
	watched := make(map[string]bool)

	for _, name := range names {
		switch name = strings.ToUpper(name); name {
		case sim.REG_PC, sim.REG_IR, sim.REG_PSW, sim.REG_SP,
			"R0", "R1", "R2", "R3", "R4", "R5":
			watched[name] = true
		default:
			return fmt.Errorf("%w: %s", ErrUnknownReg, name)
		}
	}

	if sampled != "" && strings.ToUpper(sampled) != sim.REG_PC {
		return ErrSampledReg
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.watched = watched

	if sampled != "" {
		mc.sampler = sim.NewSampler(depth)
	}

	return nil
}

// Snapshot copies the watched registers.
func (mc *Machine) Snapshot() sim.Registers {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	var regs sim.Registers

	all := mc.watched == nil

	if all || mc.watched[sim.REG_PC] {
		regs.PC = mc.CPU.Program
		regs.R[sim.R_PC] = uint16(mc.CPU.Program)
		mc.sampler.Counts(&regs.PCBits)
	}

	if all || mc.watched[sim.REG_IR] {
		regs.IR = mc.CPU.Instruction
	}

	if all || mc.watched[sim.REG_PSW] {
		regs.PSW = mc.CPU.Procstat
	}

	for i := 0; i < 6; i++ {
		if all || mc.watched[fmt.Sprintf("R%d", i)] {
			regs.R[i] = mc.CPU.Registers[i]
		}
	}

	if all || mc.watched[sim.REG_SP] {
		regs.R[sim.R_SP] = mc.CPU.Registers[REGISTER_SP_INDEX]
	}

	return regs
}

func (mc *Machine) Subscribe(interval time.Duration, fn func(*sim.Registers)) error {
	if interval <= 0 {
		return fmt.Errorf("machine: invalid interval %s", interval)
	}

	mc.unsubscribe()

	stop := make(chan struct{})
	done := make(chan struct{})

	mc.mu.Lock()
	mc.subStop, mc.subDone = stop, done
	mc.mu.Unlock()

	go func() {
		defer close(done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				regs := mc.Snapshot()
				fn(&regs)
			}
		}
	}()

	return nil
}

func (mc *Machine) unsubscribe() {
	mc.mu.Lock()
	stop, done := mc.subStop, mc.subDone
	mc.subStop, mc.subDone = nil, nil
	mc.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
}

func (mc *Machine) Close() error {
	mc.unsubscribe()
	return mc.Halt()
}
