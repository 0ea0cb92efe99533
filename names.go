/*
Copyright © 2015-2022 Leo Antunes <leo@costela.net>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program.  If not, see <http://www.gnu.org/licenses/>.
*/

package lpmodel

import "strconv"

type nameEntry struct {
	name     string // explicit name, empty when unset
	original string
}

// NameTable maps the 1-based indices of one axis (rows or columns) to names.
// Indices without an explicit name get a generated one made of the table's
// prefix and the index. Names are positional: removing an entry shifts the
// names of all later entries down by one.
type NameTable struct {
	prefix  string
	entries []nameEntry
	named   bool

	lookup map[string]int // lazily built, lowest index wins
}

// NewNameTable returns an empty table generating default names with the
// given prefix, e.g. "R" for rows or "C" for columns.
func NewNameTable(prefix string) *NameTable {
	return &NameTable{prefix: prefix}
}

func (t *NameTable) Len() int {
	return len(t.entries)
}

// HasNames reports whether any entry was ever given an explicit name.
func (t *NameTable) HasNames() bool {
	return t.named
}

// Append adds an entry at the end of the table. An empty name leaves the
// entry unnamed.
func (t *NameTable) Append(name string) int {
	t.Insert(len(t.entries)+1, name)

	return len(t.entries)
}

// Insert adds an entry at the given index, shifting the entries at and after
// it up by one. Out of range indices are clamped to the end of the table.
func (t *NameTable) Insert(index int, name string) {
	if index < 1 || index > len(t.entries)+1 {
		index = len(t.entries) + 1
	}

	entry := nameEntry{name: name, original: name}
	if name == "" {
		entry.original = t.prefix + strconv.Itoa(index)
	} else {
		t.named = true
	}

	t.entries = append(t.entries, nameEntry{})
	copy(t.entries[index:], t.entries[index-1:])
	t.entries[index-1] = entry
	t.lookup = nil
}

// SetName renames the entry at index. Duplicate names are accepted; see
// IndexOf for how they are resolved.
func (t *NameTable) SetName(index int, name string) error {
	if !t.valid(index) {
		return ErrIndexOutOfRange
	}
	if name == "" {
		return ErrInvalidName
	}

	t.entries[index-1].name = name
	t.named = true
	t.lookup = nil

	return nil
}

// Name returns the current name of the entry at index.
func (t *NameTable) Name(index int) (string, bool) {
	if !t.valid(index) {
		return "", false
	}

	if name := t.entries[index-1].name; name != "" {
		return name, true
	}

	return t.prefix + strconv.Itoa(index), true
}

// OriginalName returns the name the entry at index had when it was created.
// It follows the entry when earlier entries are removed and is not affected
// by SetName.
func (t *NameTable) OriginalName(index int) (string, bool) {
	if !t.valid(index) {
		return "", false
	}

	return t.entries[index-1].original, true
}

// IsDefault reports whether the entry at index uses a generated name.
func (t *NameTable) IsDefault(index int) bool {
	return t.valid(index) && t.entries[index-1].name == ""
}

// IndexOf returns the lowest index whose current name equals name.
func (t *NameTable) IndexOf(name string) (int, bool) {
	if t.lookup == nil {
		t.lookup = make(map[string]int, len(t.entries))
		for i := len(t.entries); i >= 1; i-- {
			n, _ := t.Name(i)
			t.lookup[n] = i
		}
	}

	index, ok := t.lookup[name]

	return index, ok
}

// Remove deletes the entry at index and shifts the later ones down.
func (t *NameTable) Remove(index int) error {
	if !t.valid(index) {
		return ErrIndexOutOfRange
	}

	t.entries = append(t.entries[:index-1], t.entries[index:]...)
	t.lookup = nil

	return nil
}

// Clone returns an independent copy of the table.
func (t *NameTable) Clone() *NameTable {
	return &NameTable{
		prefix:  t.prefix,
		entries: append([]nameEntry(nil), t.entries...),
		named:   t.named,
	}
}

func (t *NameTable) valid(index int) bool {
	return index >= 1 && index <= len(t.entries)
}
