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

// Package panel models the front panel: its switch matrix, rotary encoders
// and LED matrix, and the scanning and multiplexing of those over GPIO.
package panel

const (
	SWITCH_ROWS = 3
	LED_ROWS    = 6
	COLUMNS     = 12
)

// Rotary encoder 1 selects the address display source.
const (
	R1_USER_D uint8 = iota
	R1_SUPER_D
	R1_KERNEL_D
	R1_CONS_PHY
	R1_USER_I
	R1_SUPER_I
	R1_KERNEL_I
	R1_PROG_PHY
	R1_POSITIONS
)

// Rotary encoder 2 selects the data display source.
const (
	R2_DATA_PATHS uint8 = iota
	R2_BUS_REG
	R2_MU_ADR_FPP_CPU
	R2_DISPLAY_REGISTER
	R2_POSITIONS
)

var r1Names = [R1_POSITIONS]string{
	"USER_D", "SUPER_D", "KERNEL_D", "CONS_PHY",
	"USER_I", "SUPER_I", "KERNEL_I", "PROG_PHY",
}

var r2Names = [R2_POSITIONS]string{
	"DATA_PATHS", "BUS_REG", "MU_ADR_FPP_CPU", "DISPLAY_REGISTER",
}

type SwitchMatrix [SWITCH_ROWS][COLUMNS]bool
type LightMatrix [LED_ROWS][COLUMNS]bool

type Status struct {
	Addr22  bool
	Addr18  bool
	Addr16  bool
	Data    bool
	Kernel  bool
	Super   bool
	User    bool
	Master  bool
	Pause   bool
	Run     bool
	AddrErr bool
	ParErr  bool
	ParLow  bool
	ParHigh bool
}

// Control switches read true in their resting position.
type Controls struct {
	Test           bool
	LoadAddr       bool
	Exam           bool
	Dep            bool
	Cont           bool
	EnableHalt     bool
	SInstSBusCycle bool
	Start          bool
}

type PanelState struct {
	Address uint32
	Data    uint16
	Status  Status

	R1Position uint8
	R2Position uint8
	R1Button   bool
	R2Button   bool

	SwitchRegister uint32
	Controls       Controls
}

func R1Name(position uint8) string {
	if position >= R1_POSITIONS {
		return "?"
	}

	return r1Names[position]
}

func R2Name(position uint8) string {
	if position >= R2_POSITIONS {
		return "?"
	}

	return r2Names[position]
}
