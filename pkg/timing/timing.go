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

// Package timing provides the fixed-duration delays used for signal settling
// and LED persistence. Delays are not cancellable.
package timing

import (
	"time"

	"golang.org/x/sys/unix"
)

type Sleeper interface {
	Sleep(d time.Duration)
}

// Nanosleep sleeps with nanosleep(2), resuming after signal interruptions
// with the remaining time.
type Nanosleep struct{}

func (Nanosleep) Sleep(d time.Duration) {
	if d <= 0 {
		return
	}

	request := unix.NsecToTimespec(d.Nanoseconds())
	var remain unix.Timespec

	for {
		err := unix.Nanosleep(&request, &remain)

		if err != unix.EINTR {
			return
		}

		request = remain
	}
}

// Nop returns immediately. Used when driving virtual hardware.
type Nop struct{}

func (Nop) Sleep(time.Duration) {}
