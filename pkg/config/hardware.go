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

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lassandro/frontpanel/pkg/gpio"
	"github.com/lassandro/frontpanel/pkg/panel"
	"github.com/lassandro/frontpanel/pkg/sim"
)

const DEFAULT_CHIP = "/dev/gpiochip0"

type Session struct {
	LoopIdle         time.Duration `yaml:"loop_idle"`
	ConfigRetry      time.Duration `yaml:"config_retry"`
	SnapshotInterval time.Duration `yaml:"snapshot_interval"`
	SamplingDepth    int           `yaml:"sampling_depth"`
}

// Hardware describes the wiring and timing of one panel.
type Hardware struct {
	Backend string       `yaml:"backend"`
	Chip    string       `yaml:"chip"`
	Pins    panel.Pins   `yaml:"pins"`
	Timing  panel.Timing `yaml:"timing"`
	Session Session      `yaml:"session"`
}

func DefaultHardware() Hardware {
	return Hardware{
		Backend: gpio.BACKEND_GPIOD,
		Chip:    DEFAULT_CHIP,
		Pins:    panel.DefaultPins(),
		Timing:  panel.DefaultTiming(),
		Session: Session{
			LoopIdle:         time.Microsecond,
			ConfigRetry:      10 * time.Second,
			SnapshotInterval: 10 * time.Millisecond,
			SamplingDepth:    sim.DEFAULT_DEPTH,
		},
	}
}

// LoadHardware reads a hardware description over the defaults. An empty
// path returns the defaults.
func LoadHardware(path string) (Hardware, error) {
	hw := DefaultHardware()

	if path == "" {
		return hw, nil
	}

	data, err := os.ReadFile(path)

	if err != nil {
		return hw, err
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&hw); err != nil && !errors.Is(err, io.EOF) {
		return hw, fmt.Errorf("%s: %w", path, err)
	}

	if err := hw.Validate(); err != nil {
		return hw, fmt.Errorf("%s: %w", path, err)
	}

	return hw, nil
}

func (hw *Hardware) Validate() error {
	switch hw.Backend {
	case gpio.BACKEND_GPIOD, gpio.BACKEND_PERIPH, gpio.BACKEND_RPIO, gpio.BACKEND_VIRTUAL:
	default:
		return fmt.Errorf("unknown backend %q", hw.Backend)
	}

	if err := hw.Pins.Validate(); err != nil {
		return err
	}

	if err := hw.Timing.Validate(); err != nil {
		return err
	}

	s := &hw.Session

	if s.LoopIdle <= 0 || s.ConfigRetry <= 0 || s.SnapshotInterval <= 0 {
		return errors.New("session durations must be positive")
	}

	if s.SamplingDepth <= 0 {
		return fmt.Errorf("sampling_depth must be positive, have %d", s.SamplingDepth)
	}

	return nil
}
