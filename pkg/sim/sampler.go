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

package sim

// DEFAULT_DEPTH is the number of samples a bit activity count covers.
const DEFAULT_DEPTH = 100

// Sampler keeps per-bit set counts over the last depth values of a register.
type Sampler struct {
	ring   []uint32
	next   int
	filled int
	counts [PC_BITS]int
}

func NewSampler(depth int) *Sampler {
	if depth <= 0 {
		depth = DEFAULT_DEPTH
	}

	return &Sampler{ring: make([]uint32, depth)}
}

func (s *Sampler) Depth() int {
	return len(s.ring)
}

func (s *Sampler) Add(value uint32) {
	if s.filled == len(s.ring) {
		s.count(s.ring[s.next], -1)
	} else {
		s.filled++
	}

	s.ring[s.next] = value
	s.count(value, 1)
	s.next = (s.next + 1) % len(s.ring)
}

func (s *Sampler) count(value uint32, delta int) {
	for bit := 0; bit < PC_BITS; bit++ {
		if (value>>bit)&0x1 == 1 {
			s.counts[bit] += delta
		}
	}
}

// Counts writes each bit's activity scaled to 0-100 of the full depth.
func (s *Sampler) Counts(out *[PC_BITS]int) {
	for bit, count := range s.counts {
		out[bit] = count * 100 / len(s.ring)
	}
}

func (s *Sampler) Reset() {
	s.next = 0
	s.filled = 0
	s.counts = [PC_BITS]int{}
}
