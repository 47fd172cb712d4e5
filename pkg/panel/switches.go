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

// Switch matrix layout
//
//	row 0  cols 0-11  SR0..SR11
//	row 1  cols 0-9   SR12..SR21
//	row 1  cols 10-11 R1, R2 push buttons
//	row 2  cols 0-7   TEST LOAD_ADDR EXAM DEP CONT ENABLE/HALT S_INST/S_BC START
//	row 2  cols 8-11  R1 A, R1 B, R2 A, R2 B
const (
	COL_R1_BUTTON = 10
	COL_R2_BUTTON = 11

	COL_TEST       = 0
	COL_LOAD_ADDR  = 1
	COL_EXAM       = 2
	COL_DEP        = 3
	COL_CONT       = 4
	COL_ENABLE     = 5
	COL_SINST_SBUS = 6
	COL_START      = 7

	COL_R1_A = 8
	COL_R1_B = 9
	COL_R2_A = 10
	COL_R2_B = 11
)

// DecodeSwitches fills the switch register and control switches. Closed
// control switches read as false.
func DecodeSwitches(m *SwitchMatrix, state *PanelState) {
	state.SwitchRegister = 0

	for col := 0; col < COLUMNS; col++ {
		if m[0][col] {
			state.SwitchRegister |= 1 << col
		}
	}

	for col := 0; col < 10; col++ {
		if m[1][col] {
			state.SwitchRegister |= 1 << (12 + col)
		}
	}

	state.Controls = Controls{
		Test:           !m[2][COL_TEST],
		LoadAddr:       !m[2][COL_LOAD_ADDR],
		Exam:           !m[2][COL_EXAM],
		Dep:            !m[2][COL_DEP],
		Cont:           !m[2][COL_CONT],
		EnableHalt:     !m[2][COL_ENABLE],
		SInstSBusCycle: !m[2][COL_SINST_SBUS],
		Start:          !m[2][COL_START],
	}
}

// DecodeRotaries feeds both encoders one sample and copies their positions
// and push buttons into state. Call once per scan.
func DecodeRotaries(m *SwitchMatrix, state *PanelState, r1, r2 *RotaryEncoder) {
	state.R1Button = m[1][COL_R1_BUTTON]
	r1.AddDelta(m[2][COL_R1_A], m[2][COL_R1_B])
	state.R1Position = r1.Position

	state.R2Button = m[1][COL_R2_BUTTON]
	r2.AddDelta(m[2][COL_R2_A], m[2][COL_R2_B])
	state.R2Position = r2.Position
}
