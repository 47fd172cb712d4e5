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

// Package simh drives a SIMH simulator through its remote console.
package simh

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lassandro/frontpanel/pkg/encoding"
	"github.com/lassandro/frontpanel/pkg/sim"
)

const COMMAND_TIMEOUT = 5 * time.Second

var (
	ErrCommand = errors.New("simh: command failed")
	ErrRunning = errors.New("simh: simulation running")
)

// Messages the simulator prints when it stops on its own
var stopMessages = []string{
	"Simulation stopped",
	"HALT instruction",
	"Breakpoint",
	"Step expired",
}

type Client struct {
	Logger  *slog.Logger
	Timeout time.Duration

	conn   net.Conn
	prompt promptReader

	mu      sync.Mutex
	state   atomic.Uint32
	watched []string
	sampled string
	sampler *sim.Sampler

	subStop chan struct{}
	subDone chan struct{}

	process *exec.Cmd
	script  string
}

// Connect takes over a remote console connection and waits for its first
// prompt.
func Connect(conn net.Conn, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		Logger:  logger,
		Timeout: COMMAND_TIMEOUT,
		conn:    conn,
		prompt:  promptReader{r: bufio.NewReader(conn)},
		watched: sim.WatchedRegisters,
		sampled: sim.REG_PC,
		sampler: sim.NewSampler(sim.DEFAULT_DEPTH),
	}

	conn.SetReadDeadline(time.Now().Add(c.Timeout))
	banner, err := c.prompt.untilPrompt()

	if err != nil {
		return nil, fmt.Errorf("simh: waiting for prompt: %w", err)
	}

	if banner = strings.TrimSpace(banner); banner != "" {
		logger.Debug("remote console connected", "banner", banner)
	}

	return c, nil
}

func (c *Client) send(data []byte) (string, error) {
	c.conn.SetDeadline(time.Now().Add(c.Timeout))

	if _, err := c.conn.Write(data); err != nil {
		return "", err
	}

	return c.prompt.untilPrompt()
}

// command runs one console command and returns its output without the
// echoed command line and stop notices.
func (c *Client) command(line string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out, err := c.send([]byte(line + "\r\n"))

	if err != nil {
		return "", fmt.Errorf("simh: %s: %w", line, err)
	}

	lines := strings.Split(out, "\n")

	if len(lines) > 0 && strings.TrimSpace(lines[0]) == line {
		lines = lines[1:]
	}

	return c.noteStops(lines), nil
}

func (c *Client) noteStops(lines []string) string {
	var kept []string

	for _, line := range lines {
		line = strings.TrimSpace(line)

		if line == "" {
			continue
		}

		if isStop(line) {
			c.state.Store(uint32(sim.STATE_HALTED))
			c.Logger.Info("simulation stopped", "message", line)
			continue
		}

		kept = append(kept, line)
	}

	return strings.Join(kept, "\n")
}

func isStop(line string) bool {
	for _, message := range stopMessages {
		if strings.HasPrefix(line, message) {
			return true
		}
	}

	return false
}

// exec runs a command that prints nothing on success.
func (c *Client) exec(line string) error {
	out, err := c.command(line)

	if err != nil {
		return err
	}

	if out != "" {
		return fmt.Errorf("%w: %s: %s", ErrCommand, line, strings.SplitN(out, "\n", 2)[0])
	}

	return nil
}

func (c *Client) Boot(device string) error {
	if err := c.exec("BOOT " + device); err != nil {
		return err
	}

	c.state.Store(uint32(sim.STATE_RUNNING))

	return nil
}

func (c *Client) Run() error {
	if err := c.exec("CONT"); err != nil {
		return err
	}

	c.state.Store(uint32(sim.STATE_RUNNING))

	return nil
}

func (c *Client) Halt() error {
	if c.State() == sim.STATE_HALTED {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	out, err := c.send([]byte{WRU})

	if err != nil {
		return fmt.Errorf("simh: halt: %w", err)
	}

	c.noteStops(strings.Split(out, "\n"))
	c.state.Store(uint32(sim.STATE_HALTED))

	return nil
}

func (c *Client) Step() error {
	if c.State() == sim.STATE_RUNNING {
		return ErrRunning
	}

	return c.exec("STEP")
}

func (c *Client) State() sim.State {
	return sim.State(c.state.Load())
}

func (c *Client) Examine(addr uint32) (uint16, error) {
	line := fmt.Sprintf("EXAMINE -O %o", addr)
	out, err := c.command(line)

	if err != nil {
		return 0, err
	}

	values := parseValues(out)
	value, ok := values[fmt.Sprintf("%o", addr)]

	if !ok || value > 0xFFFF {
		return 0, fmt.Errorf("%w: %s: %s", ErrCommand, line, out)
	}

	return uint16(value), nil
}

func (c *Client) Deposit(addr uint32, value uint16) error {
	return c.exec(fmt.Sprintf("DEPOSIT %o %o", addr, value))
}

func (c *Client) SetRegister(name string, decimal string) error {
	if _, err := encoding.DecodeInt(decimal); err != nil {
		return err
	}

	return c.exec(fmt.Sprintf("DEPOSIT -D %s %s", strings.ToUpper(name), decimal))
}

func (c *Client) Watch(names []string, sampled string, depth int) error {
	if len(names) == 0 {
		return errors.New("simh: no registers to watch")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.watched = append([]string(nil), names...)
	c.sampled = strings.ToUpper(sampled)
	c.sampler = sim.NewSampler(depth)

	return nil
}

// parseValues reads "NAME:<tab>VALUE" lines, values in octal. Leading
// zeros are dropped from numeric names.
func parseValues(out string) map[string]uint32 {
	values := make(map[string]uint32)

	for _, line := range strings.Split(out, "\n") {
		name, field, found := strings.Cut(line, ":")

		if !found {
			continue
		}

		fields := strings.Fields(field)

		if len(fields) == 0 {
			continue
		}

		value, err := encoding.DecodeOctal(fields[0])

		if err != nil {
			continue
		}

		name = strings.ToUpper(strings.TrimSpace(name))

		if addr, err := encoding.DecodeOctal(name); err == nil {
			name = fmt.Sprintf("%o", addr)
		}

		values[name] = value
	}

	return values
}

// Poll reads the watched registers once.
func (c *Client) Poll() (sim.Registers, error) {
	var regs sim.Registers

	c.mu.Lock()
	names := strings.Join(c.watched, ",")
	c.mu.Unlock()

	out, err := c.command("EXAMINE -O " + names)

	if err != nil {
		return regs, err
	}

	values := parseValues(out)

	regs.PC = encoding.Mask22(values[sim.REG_PC])
	regs.IR = uint16(values[sim.REG_IR])
	regs.PSW = uint16(values[sim.REG_PSW])

	for i := 0; i < 6; i++ {
		regs.R[i] = uint16(values[fmt.Sprintf("R%d", i)])
	}

	regs.R[sim.R_SP] = uint16(values[sim.REG_SP])
	regs.R[sim.R_PC] = uint16(regs.PC)

	c.mu.Lock()

	if sampledValue, ok := values[c.sampled]; ok && c.State() == sim.STATE_RUNNING {
		c.sampler.Add(sampledValue)
	}

	c.sampler.Counts(&regs.PCBits)
	c.mu.Unlock()

	return regs, nil
}

func (c *Client) Subscribe(interval time.Duration, fn func(*sim.Registers)) error {
	if interval <= 0 {
		return fmt.Errorf("simh: invalid interval %s", interval)
	}

	c.unsubscribe()

	stop := make(chan struct{})
	done := make(chan struct{})

	c.mu.Lock()
	c.subStop, c.subDone = stop, done
	c.mu.Unlock()

	go func() {
		defer close(done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
			}

			regs, err := c.Poll()

			if err != nil {
				c.Logger.Debug("register poll failed", "err", err)
				continue
			}

			fn(&regs)
		}
	}()

	return nil
}

func (c *Client) unsubscribe() {
	c.mu.Lock()
	stop, done := c.subStop, c.subDone
	c.subStop, c.subDone = nil, nil
	c.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
}

// Close stops polling, ends the simulator and removes its startup script.
func (c *Client) Close() error {
	c.unsubscribe()

	if err := c.Halt(); err != nil {
		c.Logger.Debug("halt before exit failed", "err", err)
	}

	c.conn.SetWriteDeadline(time.Now().Add(c.Timeout))
	c.conn.Write([]byte("EXIT\r\n"))

	err := c.conn.Close()

	if c.process != nil {
		exited := make(chan error, 1)

		go func() {
			exited <- c.process.Wait()
		}()

		select {
		case <-exited:
		case <-time.After(c.Timeout):
			c.Logger.Error("simulator did not exit, killing", "pid", c.process.Process.Pid)
			c.process.Process.Kill()
			<-exited
		}
	}

	if c.script != "" {
		os.Remove(c.script)
	}

	return err
}
