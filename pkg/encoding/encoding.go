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

package encoding

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	ADDR_BITS = 22
	ADDR_MASK = uint32(1)<<ADDR_BITS - 1
	DATA_MASK = uint32(0xFFFF)
)

// Decodes an octal string in the formats: 001234, 1234, 0o1234
func DecodeOctal(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0o"), "0O")

	if len(s) == 0 {
		return 0, errors.New("Invalid octal string")
	}

	result, err := strconv.ParseUint(s, 8, 32)

	if err != nil {
		return 0, err
	}

	return uint32(result), nil
}

// Decodes a base-10 string in the formats: #123, 123
func DecodeInt(s string) (uint32, error) {
	if i := strings.Index(s, "#"); i == 0 {
		s = s[1:]
	}

	result, err := strconv.ParseUint(s, 10, 32)

	if err != nil {
		return 0, err
	}

	return uint32(result), nil
}

func Octal(value uint32) string {
	return fmt.Sprintf("%06o", value)
}

func Mask22(value uint32) uint32 {
	return value & ADDR_MASK
}

// Increments a 22-bit address, wrapping at 2^22
func Increment22(addr uint32) uint32 {
	return (addr + 1) & ADDR_MASK
}

// Returns the XOR of the low bitcount bits of value
func Parity(value uint32, bitcount uint) uint32 {
	var result uint32

	for i := uint(0); i < bitcount; i++ {
		result ^= (value >> i) & 0x1
	}

	return result
}

// Sign extends the low bitcount bits of value to 16 bits
func SignExtend(value uint16, bitcount uint16) uint16 {
	value &= 0xFFFF >> (16 - bitcount)

	if (value>>(bitcount-1))&0x1 == 1 {
		value |= (0xFFFF << bitcount)
	}

	return value
}
