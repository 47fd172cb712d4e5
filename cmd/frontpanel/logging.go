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
	"context"
	"log/slog"
	"log/syslog"
	"os"
	"strings"
)

const SYSLOG_TAG = "frontpanel"

func newLogger(useSyslog bool, debug bool) (*slog.Logger, func() error, error) {
	level := slog.LevelInfo

	if debug {
		level = slog.LevelDebug
	}

	if !useSyslog {
		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
		return slog.New(handler), func() error { return nil }, nil
	}

	writer, err := syslog.New(syslog.LOG_DAEMON|syslog.LOG_INFO, SYSLOG_TAG)

	if err != nil {
		return nil, nil, err
	}

	return slog.New(newSyslogHandler(writer, level)), writer.Close, nil
}

type priorityWriter func(string) error

func (w priorityWriter) Write(p []byte) (int, error) {
	if err := w(strings.TrimSuffix(string(p), "\n")); err != nil {
		return 0, err
	}

	return len(p), nil
}

// syslogHandler formats records as text and sends each one at the syslog
// priority matching its level.
type syslogHandler struct {
	level    slog.Leveler
	handlers [4]slog.Handler
}

func newSyslogHandler(w *syslog.Writer, level slog.Leveler) *syslogHandler {
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// syslog stamps its own time
			if len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.Attr{}
			}

			return a
		},
	}

	h := &syslogHandler{level: level}

	for i, write := range []func(string) error{w.Debug, w.Info, w.Warning, w.Err} {
		h.handlers[i] = slog.NewTextHandler(priorityWriter(write), opts)
	}

	return h
}

func priority(level slog.Level) int {
	switch {
	case level >= slog.LevelError:
		return 3
	case level >= slog.LevelWarn:
		return 2
	case level >= slog.LevelInfo:
		return 1
	default:
		return 0
	}
}

func (h *syslogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *syslogHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.handlers[priority(r.Level)].Handle(ctx, r)
}

func (h *syslogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := &syslogHandler{level: h.level}

	for i, handler := range h.handlers {
		clone.handlers[i] = handler.WithAttrs(attrs)
	}

	return clone
}

func (h *syslogHandler) WithGroup(name string) slog.Handler {
	clone := &syslogHandler{level: h.level}

	for i, handler := range h.handlers {
		clone.handlers[i] = handler.WithGroup(name)
	}

	return clone
}
