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

package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/lassandro/frontpanel/pkg/encoding"
	"github.com/lassandro/frontpanel/pkg/panel"
)

// Scans a momentary switch is held closed. Long enough for the session to
// see it across a register snapshot.
const HOLD_SCANS = 8

const virtualHelp = `sr <octal>            set the switch register
load exam dep cont    press a console switch
start test            press a console switch
halt | enable         move ENABLE/HALT
sinst                 flip S_INST/S_BUS_CYCLE
r1|r2 cw|ccw|push     turn or push a rotary knob
leds                  show the LED matrix
quit                  stop the panel`

var controlColumns = map[string]int{
	"test":  panel.COL_TEST,
	"load":  panel.COL_LOAD_ADDR,
	"exam":  panel.COL_EXAM,
	"dep":   panel.COL_DEP,
	"cont":  panel.COL_CONT,
	"start": panel.COL_START,
}

func virtualKnob(board *panel.SwitchBoard, out io.Writer, encoder int, args []string) {
	const usage = "r1|r2 cw|ccw|push"

	if len(args) != 1 {
		fmt.Fprintln(out, usage)
		return
	}

	switch args[0] {
	case "cw":
		board.Turn(encoder, 1)
	case "ccw":
		board.Turn(encoder, -1)
	case "push":
		board.Press(1, panel.COL_R1_BUTTON+encoder, HOLD_SCANS)
	default:
		fmt.Fprintln(out, usage)
	}
}

func virtualLeds(board *panel.SwitchBoard, out io.Writer) {
	lights := board.Lights()

	for row := range lights {
		var line strings.Builder

		for col := panel.COLUMNS - 1; col >= 0; col-- {
			if lights[row][col] {
				line.WriteByte('*')
			} else {
				line.WriteByte('.')
			}
		}

		fmt.Fprintf(out, "%d %s\n", row, line.String())
	}
}

// virtualREPL operates the switch board from in until quit or end of input.
func virtualREPL(board *panel.SwitchBoard, in io.Reader, out io.Writer, quit func()) {
	defer quit()

	var lastcmd []string

	scanner := bufio.NewScanner(in)

	for {
		fmt.Fprint(out, "(panel) ")

		if !scanner.Scan() {
			fmt.Fprintln(out)
			return
		}

		args := strings.Fields(scanner.Text())

		if len(args) == 0 {
			if len(lastcmd) == 0 {
				continue
			}

			args = lastcmd
		} else {
			lastcmd = args
		}

		cmd := args[0]
		args = args[1:]

		if col, ok := controlColumns[cmd]; ok {
			board.Press(2, col, HOLD_SCANS)
			continue
		}

		switch cmd {
		case "sr":
			if len(args) != 1 {
				fmt.Fprintln(out, "sr <octal>")
				continue
			}

			value, err := encoding.DecodeOctal(args[0])

			if err != nil {
				fmt.Fprintln(out, err)
				continue
			}

			board.SetSwitchRegister(value)
			fmt.Fprintf(out, "SR %s\n", encoding.Octal(encoding.Mask22(value)))

		case "halt":
			board.Set(2, panel.COL_ENABLE, true)

		case "enable":
			board.Set(2, panel.COL_ENABLE, false)

		case "sinst":
			m := board.Matrix()
			board.Set(2, panel.COL_SINST_SBUS, !m[2][panel.COL_SINST_SBUS])

		case "r1":
			virtualKnob(board, out, 0, args)

		case "r2":
			virtualKnob(board, out, 1, args)

		case "leds":
			virtualLeds(board, out)

		case "h", "help":
			fmt.Fprintln(out, virtualHelp)

		case "q", "quit", "exit":
			return

		default:
			fmt.Fprintf(out, "error: '%s' is not a valid command\n", cmd)
		}
	}
}
