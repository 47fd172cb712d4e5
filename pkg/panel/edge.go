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

// Edge reports transitions of a sampled signal. Sample each signal exactly
// once per authoritative reading.
type Edge struct {
	Previous bool
}

func (e *Edge) Update(current bool) (rising bool, falling bool) {
	rising = current && !e.Previous
	falling = !current && e.Previous
	e.Previous = current

	return rising, falling
}

func (e *Edge) Rising(current bool) bool {
	rising, _ := e.Update(current)
	return rising
}

func (e *Edge) Falling(current bool) bool {
	_, falling := e.Update(current)
	return falling
}
