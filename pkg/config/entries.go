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

// Package config loads the switch code configuration table and the
// hardware description.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lassandro/frontpanel/pkg/encoding"
)

var ErrNoEntries = errors.New("config: no configuration entries")

// Entry is one line of the table:
//
//	switch_code, directory, config_file, boot_device
type Entry struct {
	SwitchCode uint32
	Directory  string
	ConfigFile string
	BootDevice string
}

type Table struct {
	Path   string
	Logger *slog.Logger

	entries []Entry
}

// Load reads the table at path. The returned table is usable even when
// loading fails; it then matches nothing until a successful Reload.
func Load(path string, logger *slog.Logger) (*Table, error) {
	if logger == nil {
		logger = slog.Default()
	}

	table := &Table{Path: path, Logger: logger}

	return table, table.Reload()
}

// Reload replaces the entries only when the file parses to at least one
// entry.
func (t *Table) Reload() error {
	file, err := os.Open(t.Path)

	if err != nil {
		return err
	}

	defer file.Close()

	entries, err := Parse(file, t.Logger)

	if err != nil {
		return fmt.Errorf("%s: %w", t.Path, err)
	}

	t.entries = entries

	t.Logger.Info("configuration loaded", "path", t.Path, "entries", len(entries))

	return nil
}

func (t *Table) Find(code uint32) (Entry, bool) {
	for _, entry := range t.entries {
		if entry.SwitchCode == code {
			return entry, true
		}
	}

	return Entry{}, false
}

func (t *Table) Entries() []Entry {
	return append([]Entry(nil), t.entries...)
}

// Parse reads table lines. Blank lines and lines starting with '#' or ';'
// are skipped, malformed lines are logged and skipped.
func Parse(r io.Reader, logger *slog.Logger) ([]Entry, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var entries []Entry

	scanner := bufio.NewScanner(r)
	lineno := 0

	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || line[0] == '#' || line[0] == ';' {
			continue
		}

		entry, err := parseEntry(line)

		if err != nil {
			logger.Error("skipping configuration line", "line", lineno, "err", err)
			continue
		}

		entries = append(entries, entry)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(entries) == 0 {
		return nil, ErrNoEntries
	}

	return entries, nil
}

func parseEntry(line string) (Entry, error) {
	fields := strings.Split(line, ",")

	if len(fields) < 4 {
		return Entry{}, fmt.Errorf("want 4 fields, have %d", len(fields))
	}

	// Anything after the boot device is ignored
	fields = fields[:4]

	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])

		if fields[i] == "" {
			return Entry{}, fmt.Errorf("field %d is empty", i+1)
		}
	}

	code, err := encoding.DecodeOctal(fields[0])

	if err != nil {
		return Entry{}, fmt.Errorf("switch code %q: %w", fields[0], err)
	}

	if code > encoding.ADDR_MASK {
		return Entry{}, fmt.Errorf("switch code %q wider than 22 bits", fields[0])
	}

	return Entry{
		SwitchCode: code,
		Directory:  fields[1],
		ConfigFile: fields[2],
		BootDevice: fields[3],
	}, nil
}
