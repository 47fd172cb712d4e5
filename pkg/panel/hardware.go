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

package panel

import (
	"errors"
	"fmt"
	"time"

	"github.com/lassandro/frontpanel/pkg/gpio"
	"github.com/lassandro/frontpanel/pkg/timing"
)

// Pins are line offsets on the GPIO chip.
type Pins struct {
	LedRows    []int `yaml:"led_rows"`
	SwitchRows []int `yaml:"switch_rows"`
	Columns    []int `yaml:"columns"`
}

type Timing struct {
	LedVisible   time.Duration `yaml:"led_visible"`
	LedBlanking  time.Duration `yaml:"led_blanking"`
	SwitchSettle time.Duration `yaml:"switch_settle"`
	ModeChange   time.Duration `yaml:"mode_change"`
}

func DefaultPins() Pins {
	return Pins{
		LedRows:    []int{20, 21, 22, 23, 24, 25},
		SwitchRows: []int{16, 17, 18},
		Columns:    []int{26, 27, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13},
	}
}

func DefaultTiming() Timing {
	return Timing{
		LedVisible:   1500 * time.Microsecond,
		LedBlanking:  100 * time.Microsecond,
		SwitchSettle: 50 * time.Microsecond,
		ModeChange:   10 * time.Microsecond,
	}
}

func (p Pins) Validate() error {
	if len(p.LedRows) != LED_ROWS {
		return fmt.Errorf("want %d led rows, have %d", LED_ROWS, len(p.LedRows))
	}

	if len(p.SwitchRows) != SWITCH_ROWS {
		return fmt.Errorf("want %d switch rows, have %d", SWITCH_ROWS, len(p.SwitchRows))
	}

	if len(p.Columns) != COLUMNS {
		return fmt.Errorf("want %d columns, have %d", COLUMNS, len(p.Columns))
	}

	seen := make(map[int]bool)

	for _, group := range [][]int{p.LedRows, p.SwitchRows, p.Columns} {
		for _, pin := range group {
			if pin < 0 {
				return fmt.Errorf("negative pin %d", pin)
			}

			if seen[pin] {
				return fmt.Errorf("pin %d used twice", pin)
			}

			seen[pin] = true
		}
	}

	return nil
}

func (t Timing) Validate() error {
	durations := map[string]time.Duration{
		"led_visible":   t.LedVisible,
		"led_blanking":  t.LedBlanking,
		"switch_settle": t.SwitchSettle,
		"mode_change":   t.ModeChange,
	}

	for name, d := range durations {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, have %s", name, d)
		}
	}

	return nil
}

// Hardware scans the switch matrix and multiplexes the LED matrix. The LED
// and switch matrices share the column lines, which are outputs except
// during a scan.
type Hardware struct {
	LedRows    *gpio.Group
	SwitchRows *gpio.Group
	Columns    *gpio.Group

	Timing  Timing
	Sleeper timing.Sleeper

	chip gpio.Chip
}

// NewHardware claims the lines and puts them in their idle state: LED rows
// low, switch rows and columns high.
func NewHardware(chip gpio.Chip, pins Pins, t Timing, sleeper timing.Sleeper) (*Hardware, error) {
	if err := pins.Validate(); err != nil {
		return nil, fmt.Errorf("pins: %w", err)
	}

	if sleeper == nil {
		sleeper = timing.Nanosleep{}
	}

	hw := &Hardware{
		LedRows:    gpio.NewGroup(chip, pins.LedRows),
		SwitchRows: gpio.NewGroup(chip, pins.SwitchRows),
		Columns:    gpio.NewGroup(chip, pins.Columns),
		Timing:     t,
		Sleeper:    sleeper,
		chip:       chip,
	}

	setup := []struct {
		group *gpio.Group
		level bool
	}{
		{hw.LedRows, false},
		{hw.SwitchRows, true},
		{hw.Columns, true},
	}

	for _, s := range setup {
		err := s.group.SetMode(gpio.MODE_OUTPUT, gpio.PULL_NONE)

		if err == nil {
			err = s.group.SetAll(fill(s.group.Len(), s.level))
		}

		if err != nil {
			hw.release()
			return nil, err
		}
	}

	return hw, nil
}

// Close leaves the lines in their idle state and releases them along with
// the chip.
func (hw *Hardware) Close() error {
	var errs []error

	if hw.LedRows.Mode() != gpio.MODE_INPUT {
		errs = append(errs, hw.LedRows.SetAll(fill(LED_ROWS, false)))
	}

	if hw.SwitchRows.Mode() != gpio.MODE_INPUT {
		errs = append(errs, hw.SwitchRows.SetAll(fill(SWITCH_ROWS, true)))
	}

	errs = append(errs, hw.release())

	return errors.Join(errs...)
}

func (hw *Hardware) release() error {
	return errors.Join(
		hw.LedRows.Close(),
		hw.SwitchRows.Close(),
		hw.Columns.Close(),
		hw.chip.Close(),
	)
}

// Scan pulls each switch row low in turn and reads the columns. A closed
// switch pulls its column low and reads as true in m. m is only written
// when the whole scan succeeds.
func (hw *Hardware) Scan(m *SwitchMatrix) error {
	var scanned SwitchMatrix

	if err := hw.Columns.SetMode(gpio.MODE_INPUT, gpio.PULL_UP); err != nil {
		return err
	}

	rows := make([]bool, SWITCH_ROWS)
	columns := make([]bool, COLUMNS)

	var scanErr error

	for row := 0; row < SWITCH_ROWS && scanErr == nil; row++ {
		for i := range rows {
			rows[i] = i != row
		}

		if scanErr = hw.SwitchRows.SetAll(rows); scanErr != nil {
			break
		}

		hw.Sleeper.Sleep(hw.Timing.SwitchSettle)

		if scanErr = hw.Columns.GetAll(columns); scanErr != nil {
			break
		}

		for col, level := range columns {
			scanned[row][col] = !level
		}
	}

	err := hw.SwitchRows.SetAll(fill(SWITCH_ROWS, true))

	hw.Sleeper.Sleep(hw.Timing.ModeChange)

	if modeErr := hw.Columns.SetMode(gpio.MODE_OUTPUT, gpio.PULL_NONE); modeErr != nil {
		return errors.Join(scanErr, err, modeErr)
	}

	if err := errors.Join(scanErr, err, hw.Columns.SetAll(fill(COLUMNS, true))); err != nil {
		return err
	}

	*m = scanned

	return nil
}

// Drive shows one frame of leds, one row at a time. Columns sink current,
// so a lit LED is a low column.
func (hw *Hardware) Drive(leds *LightMatrix) error {
	if err := hw.LedRows.SetAll(fill(LED_ROWS, false)); err != nil {
		return err
	}

	columns := make([]bool, COLUMNS)

	for row := 0; row < LED_ROWS; row++ {
		for col := range columns {
			columns[col] = !leds[row][col]
		}

		if err := hw.Columns.SetAll(columns); err != nil {
			return err
		}

		hw.Sleeper.Sleep(hw.Timing.LedBlanking)

		if err := hw.LedRows.Set(row, true); err != nil {
			return err
		}

		hw.Sleeper.Sleep(hw.Timing.LedVisible)

		if err := hw.LedRows.Set(row, false); err != nil {
			return err
		}
	}

	return hw.Columns.SetAll(fill(COLUMNS, true))
}

func fill(n int, value bool) []bool {
	values := make([]bool, n)

	for i := range values {
		values[i] = value
	}

	return values
}
