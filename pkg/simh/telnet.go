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
	"bufio"
	"bytes"
	"errors"
)

const PROMPT = "sim> "

// Telnet control bytes sent by the remote console during negotiation
const (
	IAC  byte = 255
	DONT byte = 254
	DO   byte = 253
	WONT byte = 252
	WILL byte = 251
	SB   byte = 250
	SE   byte = 240
)

// WRU stops a running simulation (Ctrl-E).
const WRU byte = 0x05

var errPromptOverflow = errors.New("simh: no prompt in response")

const MAX_RESPONSE = 1 << 16

// promptReader strips telnet negotiation and collects output up to the
// next prompt.
type promptReader struct {
	r *bufio.Reader
}

func (p *promptReader) next() (byte, error) {
	for {
		b, err := p.r.ReadByte()

		if err != nil {
			return 0, err
		}

		if b != IAC {
			return b, nil
		}

		cmd, err := p.r.ReadByte()

		if err != nil {
			return 0, err
		}

		switch cmd {
		case IAC:
			return IAC, nil
		case DO, DONT, WILL, WONT:
			if _, err := p.r.ReadByte(); err != nil {
				return 0, err
			}
		case SB:
			if err := p.skipSubnegotiation(); err != nil {
				return 0, err
			}
		}
	}
}

func (p *promptReader) skipSubnegotiation() error {
	var last byte

	for {
		b, err := p.r.ReadByte()

		if err != nil {
			return err
		}

		if last == IAC && b == SE {
			return nil
		}

		last = b
	}
}

// untilPrompt returns everything read before the prompt, with carriage
// returns and NULs removed.
func (p *promptReader) untilPrompt() (string, error) {
	var buf bytes.Buffer

	for !bytes.HasSuffix(buf.Bytes(), []byte(PROMPT)) {
		if buf.Len() > MAX_RESPONSE {
			return "", errPromptOverflow
		}

		b, err := p.next()

		if err != nil {
			return buf.String(), err
		}

		if b == '\r' || b == 0 {
			continue
		}

		buf.WriteByte(b)
	}

	return string(buf.Bytes()[:buf.Len()-len(PROMPT)]), nil
}
