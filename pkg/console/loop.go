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

package console

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lassandro/frontpanel/pkg/config"
	"github.com/lassandro/frontpanel/pkg/encoding"
	"github.com/lassandro/frontpanel/pkg/panel"
	"github.com/lassandro/frontpanel/pkg/sim"
	"github.com/lassandro/frontpanel/pkg/timing"
)

// Loop selects a configuration by the switch register and runs sessions
// until ctx is done.
type Loop struct {
	Panel    Panel
	Table    *config.Table
	Start    sim.Starter
	Binary   string
	Logger   *slog.Logger
	Sleeper  timing.Sleeper
	Settings Settings

	// ConfigRetry is the wait before rescanning when no entry matches.
	ConfigRetry time.Duration

	// Chdir changes into an entry's directory. Defaults to os.Chdir.
	Chdir func(dir string) error

	// Sessions counts started sessions.
	Sessions int
}

func (l *Loop) wait(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// Run returns nil when ctx is done, or an error when an entry's directory
// cannot be entered.
func (l *Loop) Run(ctx context.Context) error {
	if l.Logger == nil {
		l.Logger = slog.Default()
	}

	if l.Chdir == nil {
		l.Chdir = os.Chdir
	}

	for ctx.Err() == nil {
		var matrix panel.SwitchMatrix
		var state panel.PanelState

		if err := l.Panel.Scan(&matrix); err != nil {
			l.Logger.Error("switch scan failed", "err", err)
			l.wait(ctx, l.ConfigRetry)
			continue
		}

		panel.DecodeSwitches(&matrix, &state)

		code := state.SwitchRegister
		entry, ok := l.Table.Find(code)

		if !ok {
			l.Logger.Info(
				"no configuration for switch code, waiting",
				"code", encoding.Octal(code),
				"retry", l.ConfigRetry,
			)

			l.wait(ctx, l.ConfigRetry)
			continue
		}

		l.Logger.Info(
			"configuration selected",
			"code", encoding.Octal(code),
			"dir", entry.Directory,
			"config", entry.ConfigFile,
			"boot", entry.BootDevice,
		)

		if err := l.Chdir(entry.Directory); err != nil {
			return fmt.Errorf("entering %s: %w", entry.Directory, err)
		}

		session := &Session{
			Panel:    l.Panel,
			Start:    l.Start,
			Binary:   l.Binary,
			Entry:    entry,
			Logger:   l.Logger,
			Sleeper:  l.Sleeper,
			Settings: l.Settings,
		}

		l.Sessions++
		result := session.Run(ctx)

		switch result {
		case RESULT_RELOAD:
			if err := l.Table.Reload(); err != nil {
				l.Logger.Error("configuration reload failed, keeping previous entries", "err", err)
			}

			fallthrough

		case RESULT_RESTART:
			l.Logger.Info("restarting session")

		default:
			if ctx.Err() != nil {
				break
			}

			l.Logger.Info("session completed; restarting")

			// A session that failed during setup would otherwise respawn
			// the simulator immediately
			if !session.Ran() {
				l.wait(ctx, l.ConfigRetry)
			}
		}
	}

	return nil
}
