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

// A sampled address bit is lit when its activity count exceeds this.
const SAMPLE_THRESHOLD = 50

const ADDRESS_BITS = 22

// EncodeLights lays out state on the LED matrix. When samples is non-nil the
// address rows show per-bit activity instead of state.Address.
//
//	row 0  cols 0-11  A0..A11
//	row 1  cols 0-9   A12..A21
//	row 2  cols 0-11  ADDR22 ADDR18 ADDR16 DATA KERNEL SUPER USER MASTER PAUSE RUN ADRS_ERR PAR_ERR
//	row 3  cols 0-11  D0..D11
//	row 4  cols 0-5   D12..D15 PAR_LOW PAR_HIGH
//	row 4  cols 6-9   R1 positions 0-3, row 5 cols 6-9 R1 positions 4-7
//	row 4  cols 10-11 R2 positions 0-1, row 5 cols 10-11 R2 positions 2-3
func EncodeLights(state *PanelState, samples []int) LightMatrix {
	var leds LightMatrix

	for bit := 0; bit < ADDRESS_BITS; bit++ {
		var lit bool

		if samples != nil {
			lit = bit < len(samples) && samples[bit] > SAMPLE_THRESHOLD
		} else {
			lit = (state.Address>>bit)&0x1 == 1
		}

		leds[bit/COLUMNS][bit%COLUMNS] = lit
	}

	status := &state.Status
	leds[2] = [COLUMNS]bool{
		status.Addr22,
		status.Addr18,
		status.Addr16,
		status.Data,
		status.Kernel,
		status.Super,
		status.User,
		status.Master,
		status.Pause,
		status.Run,
		status.AddrErr,
		status.ParErr,
	}

	for bit := 0; bit < 16; bit++ {
		leds[3+bit/COLUMNS][bit%COLUMNS] = (state.Data>>bit)&0x1 == 1
	}

	leds[4][4] = status.ParLow
	leds[4][5] = status.ParHigh

	if r1 := state.R1Position; r1 < R1_POSITIONS {
		leds[4+r1/4][6+r1%4] = true
	}

	if r2 := state.R2Position; r2 < R2_POSITIONS {
		leds[4+r2/2][10+r2%2] = true
	}

	return leds
}
