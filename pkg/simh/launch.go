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

package simh

import (
	"bytes"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/lassandro/frontpanel/pkg/sim"
)

const (
	DIAL_TIMEOUT = 10 * time.Second
	DIAL_RETRY   = 100 * time.Millisecond
)

// Script is the startup script handed to the simulator: the configuration
// followed by a remote console the client can take over.
func Script(configFile string, port int) string {
	return fmt.Sprintf(
		"do %s\nset remote telnet=%d\nset remote master\n",
		configFile,
		port,
	)
}

func freePort() (int, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")

	if err != nil {
		return 0, err
	}

	defer listener.Close()

	return listener.Addr().(*net.TCPAddr).Port, nil
}

// Start launches binary on a generated startup script and connects to its
// remote console.
func Start(binary string, configFile string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	port, err := freePort()

	if err != nil {
		return nil, err
	}

	script, err := os.CreateTemp("", "frontpanel-*.ini")

	if err != nil {
		return nil, err
	}

	_, err = script.WriteString(Script(configFile, port))

	if closeErr := script.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		os.Remove(script.Name())
		return nil, err
	}

	output := &lineLogger{logger: logger}

	cmd := exec.Command(binary, script.Name())
	cmd.Stdout = output
	cmd.Stderr = output

	if err := cmd.Start(); err != nil {
		os.Remove(script.Name())
		return nil, err
	}

	logger.Debug("simulator started", "binary", binary, "pid", cmd.Process.Pid, "port", port)

	conn, err := dial(fmt.Sprintf("127.0.0.1:%d", port))

	if err == nil {
		var client *Client

		if client, err = Connect(conn, logger); err == nil {
			client.process = cmd
			client.script = script.Name()

			return client, nil
		}

		conn.Close()
	}

	cmd.Process.Kill()
	cmd.Wait()
	os.Remove(script.Name())

	return nil, fmt.Errorf("simh: remote console: %w", err)
}

func dial(addr string) (net.Conn, error) {
	deadline := time.Now().Add(DIAL_TIMEOUT)

	for {
		conn, err := net.DialTimeout("tcp", addr, DIAL_RETRY)

		if err == nil {
			return conn, nil
		}

		if time.Now().After(deadline) {
			return nil, err
		}

		time.Sleep(DIAL_RETRY)
	}
}

func Starter(logger *slog.Logger) sim.Starter {
	return func(binary string, configFile string) (sim.Simulator, error) {
		client, err := Start(binary, configFile, logger)

		if err != nil {
			return nil, err
		}

		return client, nil
	}
}

// lineLogger logs the simulator's console output one line at a time.
type lineLogger struct {
	logger *slog.Logger

	mu      sync.Mutex
	partial []byte
}

func (l *lineLogger) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.partial = append(l.partial, p...)

	for {
		i := bytes.IndexByte(l.partial, '\n')

		if i < 0 {
			break
		}

		line := bytes.TrimRight(l.partial[:i], "\r")

		if len(line) > 0 {
			l.logger.Debug("simulator", "output", string(line))
		}

		l.partial = l.partial[i+1:]
	}

	return len(p), nil
}
